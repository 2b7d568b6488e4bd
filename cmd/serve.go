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
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/doctran/internal/server"
)

var serveRoot string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept translation jobs over HTTP",
	Long: `Run an HTTP server that queues document jobs and reports their status.

Endpoints:
  POST /v1/jobs       submit {"source_path", "target_language", "source_language", "kind"}
  GET  /v1/jobs       list recent jobs
  GET  /v1/jobs/{id}  show one job
  GET  /health

Example:
  doctran serve --addr :8080 --root ./docs --service ollama`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
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

		srv := server.New(p, db, server.Options{
			Root:      serveRoot,
			MaxJobs:   cfg.Serve.MaxJobs,
			MaxQueued: cfg.Serve.MaxQueued,
			Logger:    log,
		})
		httpServer := &http.Server{
			Addr:              cfg.Serve.Addr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info("listening", "addr", cfg.Serve.Addr, "root", serveRoot)
			errCh <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				srv.Shutdown()
				return err
			}
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = httpServer.Shutdown(shutdownCtx)
		srv.Shutdown()
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addTranslateFlags(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default :8080)")
	serveCmd.Flags().StringVar(&serveRoot, "root", "", "Only accept documents under this directory")
	serveCmd.Flags().Int("max-jobs", 2, "Jobs translated at once")
	serveCmd.Flags().Int("max-queued", 64, "Unfinished jobs accepted before submissions are refused")
}
