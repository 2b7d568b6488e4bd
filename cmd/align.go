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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var alignKind string

var alignCmd = &cobra.Command{
	Use:   "align <file>",
	Short: "Write a bilingual CSV of a document's texts",
	Long: `Translate a document and write <file>.<lang>.csv next to it with one
source,translation row per text instead of the translated document.

Example:
  doctran align manual.docx -t uk   # writes manual.docx.uk.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Target == "" {
			return fmt.Errorf("--target language is required")
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		kind, err := parseKindFlag(alignKind)
		if err != nil {
			return err
		}

		p, db, err := buildPipeline(cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out, err := p.Align(ctx, jobFor(cfg.Source, cfg.Target, args[0], kind))
		if out != "" {
			fmt.Printf("%s -> %s\n", args[0], out)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(alignCmd)
	addTranslateFlags(alignCmd)
	alignCmd.Flags().StringVar(&alignKind, "kind", "", "Document kind (default from extension)")
}
