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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valpere/doctran/internal/config"
	"github.com/valpere/doctran/internal/dispatcher"
	"github.com/valpere/doctran/internal/format"
	"github.com/valpere/doctran/internal/pipeline"
)

var (
	translateKind     string
	translateManifest string
)

var translateCmd = &cobra.Command{
	Use:   "translate [files...]",
	Short: "Translate documents",
	Long: `Translate one or more documents and write <name>.<lang>.<ext> next to each.

The document format comes from the file extension unless --kind is given.
Files are processed one after another; a failing file does not stop the rest.

Examples:
  doctran translate report.docx -t uk
  doctran translate notes.md slides.pptx -t de --service ollama -c 4
  doctran translate --manifest jobs.yaml`,
	RunE: runTranslate,
}

func runTranslate(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && translateManifest == "" {
		return fmt.Errorf("no input files (pass files or --manifest)")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	jobs, err := collectJobs(cfg, args)
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

	failed := 0
	for _, job := range jobs {
		report, err := p.Execute(ctx, job)
		if err != nil {
			failed++
			printFailure(job, report, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		fmt.Printf("%s -> %s (%s, %s, %d texts in %d batches)\n",
			job.SourcePath, report.OutputPath, report.Kind, report.SourceLanguage, report.Nodes, report.Batches)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(jobs))
	}
	return nil
}

// collectJobs turns the file arguments and the manifest into jobs.
func collectJobs(cfg *config.Config, args []string) ([]pipeline.DocumentJob, error) {
	kind, err := parseKindFlag(translateKind)
	if err != nil {
		return nil, err
	}

	var jobs []pipeline.DocumentJob
	for _, path := range args {
		jobs = append(jobs, jobFor(cfg.Source, cfg.Target, path, kind))
	}

	if translateManifest != "" {
		m, err := config.LoadManifest(translateManifest)
		if err != nil {
			return nil, err
		}
		for _, e := range m.Jobs {
			job := pipeline.DocumentJob{
				SourcePath:     e.Path,
				SourceLanguage: firstSet(e.Source, cfg.Source),
				TargetLanguage: firstSet(e.Target, cfg.Target),
				Kind:           kind,
			}
			if e.Kind != "" {
				if job.Kind, err = format.ParseKind(e.Kind); err != nil {
					return nil, fmt.Errorf("manifest entry %s: %w", e.Path, err)
				}
			}
			jobs = append(jobs, job)
		}
	}

	for _, job := range jobs {
		if job.TargetLanguage == "" {
			return nil, fmt.Errorf("no target language for %s (use --target)", job.SourcePath)
		}
	}
	return jobs, nil
}

func jobFor(source, target, path string, kind format.Kind) pipeline.DocumentJob {
	return pipeline.DocumentJob{
		SourcePath:     path,
		SourceLanguage: source,
		TargetLanguage: target,
		Kind:           kind,
	}
}

func parseKindFlag(s string) (format.Kind, error) {
	if s == "" {
		return "", nil
	}
	return format.ParseKind(s)
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func printFailure(job pipeline.DocumentJob, report *pipeline.Report, err error) {
	var agg *dispatcher.AggregateTranslationError
	if errors.As(err, &agg) {
		fmt.Fprintf(os.Stderr, "%s: %d of %d batches failed\n", job.SourcePath, len(agg.Failures), report.Batches)
		for _, f := range agg.Failures {
			fmt.Fprintf(os.Stderr, "  %v\n", f)
		}
		if report.OutputPath != "" {
			fmt.Fprintf(os.Stderr, "  partial output kept at %s\n", report.OutputPath)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", job.SourcePath, err)
}

func init() {
	rootCmd.AddCommand(translateCmd)
	addTranslateFlags(translateCmd)
	translateCmd.Flags().StringVar(&translateKind, "kind", "", "Document kind: word, spreadsheet, presentation, text, markup, subtitle (default from extension)")
	translateCmd.Flags().StringVar(&translateManifest, "manifest", "", "YAML file listing documents to translate")
}
