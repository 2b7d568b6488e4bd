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
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valpere/doctran/internal/langcode"
	"github.com/valpere/doctran/internal/pipeline"
	"github.com/valpere/doctran/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Translate documents as they appear in a directory",
	Long: `Watch a directory and translate every supported document created in it.
Translations are written next to the source and are not picked up again.

Example:
  doctran watch ./inbox -t uk --watch-concurrency 4`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dir := cfg.Watch.Dir
		if len(args) == 1 {
			dir = args[0]
		}
		if dir == "" {
			return fmt.Errorf("no directory to watch (pass one or set watch.dir)")
		}
		target, err := langcode.ParseTarget(cfg.Target)
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}

		p, db, err := buildPipeline(cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()

		handle := func(ctx context.Context, path string) error {
			out, err := p.Run(ctx, jobFor(cfg.Source, target, path, ""))
			if out != "" {
				log.Info("translated", "source", path, "output", out)
			}
			return err
		}

		w, err := watcher.New(dir, handle, watcher.Options{
			Extensions:    pipeline.DefaultTable().Extensions(),
			Ignore:        func(path string) bool { return isTranslation(path, target) },
			MaxConcurrent: cfg.Watch.Concurrency,
			Logger:        log,
		})
		if err != nil {
			return err
		}
		defer w.Stop()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := w.Start(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

// isTranslation reports whether path looks like an output written for
// target, such as notes.uk.txt.
func isTranslation(path, target string) bool {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.HasSuffix(strings.ToLower(stem), "."+strings.ToLower(target))
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addTranslateFlags(watchCmd)
	watchCmd.Flags().Int("watch-concurrency", 0, "Documents translated at once (default 2)")
}
