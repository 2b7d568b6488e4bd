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
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/doctran/internal/config"
	"github.com/valpere/doctran/internal/detector"
	"github.com/valpere/doctran/internal/logger"
	"github.com/valpere/doctran/internal/pipeline"
	"github.com/valpere/doctran/internal/store"
	"github.com/valpere/doctran/internal/translator"
	"github.com/valpere/doctran/internal/validator"
)

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"db":                 "db",
	"log-level":          "log.level",
	"log-format":         "log.format",
	"source":             "source",
	"target":             "target",
	"service":            "service",
	"concurrency":        "concurrency",
	"on-failure":         "pipeline.on_failure",
	"no-cache":           "no_cache",
	"validate":           "validate",
	"instructions":       "instructions",
	"batch-count":        "batch.max_count",
	"batch-chars":        "batch.max_chars",
	"google-credentials": "google.credentials",
	"google-project":     "google.project",
	"google-key":         "google.key",
	"ollama-url":         "ollama.url",
	"ollama-models":      "ollama.models",
	"openrouter-key":     "openrouter.key",
	"openrouter-models":  "openrouter.models",
	"gemini-key":         "gemini.key",
	"gemini-model":       "gemini.model",
	"systran-key":        "systran.key",
	"mymemory-email":     "mymemory.email",
	"watch-concurrency":  "watch.concurrency",
	"addr":               "serve.addr",
	"max-jobs":           "serve.max_jobs",
	"max-queued":         "serve.max_queued",
}

// loadConfig binds the flags of cmd and loads the merged configuration.
// Binding happens per command because viper keeps one flag per key.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.GetViper()
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind --%s: %w", name, err)
			}
		}
	}
	return config.Load(v, cfgFile)
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
}

// openStore opens the database named by the configuration.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	db, err := store.New(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// withStore runs fn against the configured database and closes it after.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, db *store.Store) error) error {
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(cmd.Context(), db)
}

// buildService constructs the configured backend and the per-call settings
// it reads.
func buildService(cfg *config.Config) (translator.TranslationService, translator.ServiceConfig, error) {
	var scfg translator.ServiceConfig
	switch cfg.Service {
	case "google":
		scfg.Credentials = cfg.Google.Credentials
		scfg.ProjectID = cfg.Google.Project
		scfg.APIKey = cfg.Google.Key
		return translator.NewGoogleService(), scfg, nil
	case "systran":
		return translator.NewSystranService(cfg.Systran.Key), scfg, nil
	case "mymemory":
		return translator.NewMyMemoryService(cfg.MyMemory.Email), scfg, nil
	case "ollama":
		return translator.NewOllamaTranslator(cfg.Ollama.URL, cfg.Ollama.Models), scfg, nil
	case "openrouter":
		return translator.NewOpenRouterService(cfg.OpenRouter.Key, cfg.OpenRouter.URL, cfg.OpenRouter.Models), scfg, nil
	case "gemini":
		scfg.BaseURL = cfg.Gemini.URL
		return translator.NewGeminiService(cfg.Gemini.Key, cfg.Gemini.Model), scfg, nil
	case "mock":
		return translator.NewMockService(), scfg, nil
	}
	return nil, scfg, fmt.Errorf("unknown service %q (want google, systran, mymemory, ollama, openrouter, gemini or mock)", cfg.Service)
}

// buildPipeline wires the backend, translation memory, glossary and job
// history into a pipeline. The caller closes the returned store.
func buildPipeline(cfg *config.Config, log *slog.Logger) (*pipeline.Pipeline, *store.Store, error) {
	svc, scfg, err := buildService(cfg)
	if err != nil {
		return nil, nil, err
	}
	policy, err := pipeline.ParseFailurePolicy(cfg.Pipeline.OnFailure)
	if err != nil {
		return nil, nil, err
	}

	db, err := store.New(cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	det := detector.New()
	var mem translator.Memory
	if !cfg.NoCache {
		mem = db
	}
	var val translator.BatchValidator
	if cfg.ValidateOutput {
		val = validator.New(det)
	}
	svc = decorateService(svc, mem, val)

	fn := translator.BatchFunc(svc, scfg,
		translator.WithGlossary(db),
		translator.WithInstructions(cfg.Instructions),
	)

	log.Debug("pipeline configured",
		"service", svc.Name(),
		"concurrency", cfg.Concurrency,
		"batch_count", cfg.Batch.MaxCount,
		"batch_chars", cfg.Batch.MaxChars,
		"on_failure", policy,
		"cache", !cfg.NoCache,
	)

	p := pipeline.New(fn, pipeline.Options{
		Concurrency:   cfg.Concurrency,
		MaxBatchCount: cfg.Batch.MaxCount,
		MaxBatchChars: cfg.Batch.MaxChars,
		FailurePolicy: policy,
		Detector:      det,
		Recorder:      db,
		Logger:        log,
	})
	return p, db, nil
}

// decorateService wraps svc with output validation and the translation
// memory. Validation sits inside the cache so that rejected batches are
// never stored. A nil mem or val skips that layer.
func decorateService(svc translator.TranslationService, mem translator.Memory, val translator.BatchValidator) translator.TranslationService {
	if val != nil {
		svc = translator.NewValidatedService(svc, val)
	}
	if mem != nil {
		svc = translator.NewCachedService(svc, mem)
	}
	return svc
}

// addTranslateFlags registers the flags shared by the commands that run the
// pipeline.
func addTranslateFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("source", "s", "", "Source language code or \"auto\" (default auto)")
	f.StringP("target", "t", "", "Target language code (e.g. uk, fr, de)")
	f.String("service", "", "Translation service: google, systran, mymemory, ollama, openrouter, gemini, mock (default google)")
	f.IntP("concurrency", "c", 0, "Maximum batches in flight per document (default 1)")
	f.String("on-failure", "", "What to do when some batches fail: discard or keep-partial (default discard)")
	f.Bool("no-cache", false, "Bypass the translation memory")
	f.Bool("validate", false, "Reject batches whose output is not in the target language")
	f.String("instructions", "", "Extra instructions for LLM services")
	f.Int("batch-count", 0, "Maximum texts per batch (default 99)")
	f.Int("batch-chars", 0, "Character budget per batch (default 9000)")

	f.String("google-credentials", "", "Path to Google Cloud service account JSON")
	f.String("google-project", "", "Google Cloud project ID")
	f.String("google-key", "", "Google Translate API key")
	f.String("ollama-url", "", "Ollama API base URL (default http://localhost:11434)")
	f.StringSlice("ollama-models", nil, "Ollama models to pick from")
	f.String("openrouter-key", "", "OpenRouter API key")
	f.StringSlice("openrouter-models", nil, "OpenRouter models to pick from")
	f.String("gemini-key", "", "Gemini API key")
	f.String("gemini-model", "", "Gemini model (default "+translator.DefaultGeminiModel+")")
	f.String("systran-key", "", "Systran API key")
	f.String("mymemory-email", "", "Email for the MyMemory daily quota")
}
