/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "0.3.0"

var (
	cfgFile   string
	dbPath    string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "doctran",
	Short: "Batch document translator",
	Long: `A CLI application that translates whole documents (Word, Excel, PowerPoint,
text, HTML, Markdown, CSV and SRT subtitles) through a translation backend,
batching their texts and writing <name>.<lang>.<ext> next to the source.

Supported services: Google Translate, Systran, MyMemory, Ollama, OpenRouter,
Gemini and an offline mock.

Settings may also come from a YAML config file (--config, ./.doctran.yaml or
~/.doctran.yaml) and DOCTRAN_* environment variables.

Use "doctran translate --help" for translation options.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./.doctran.yaml or $HOME/.doctran.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path for translation memory, glossary and job history (default doctran.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
}
