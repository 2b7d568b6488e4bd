// Package server exposes document jobs over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/valpere/doctran/internal/format"
	"github.com/valpere/doctran/internal/langcode"
	"github.com/valpere/doctran/internal/pipeline"
	"github.com/valpere/doctran/internal/store"
)

// Runner executes one document job.
type Runner interface {
	Run(ctx context.Context, job pipeline.DocumentJob) (string, error)
}

// JobStore reads and writes the job history.
type JobStore interface {
	SaveJob(ctx context.Context, job *store.JobRecord) error
	GetJob(ctx context.Context, id string) (*store.JobRecord, bool, error)
	ListJobs(ctx context.Context, limit int) ([]store.JobRecord, error)
}

type Options struct {
	// Root restricts source paths to this directory when set.
	Root string
	// MaxJobs bounds the jobs running at once. Defaults to 2.
	MaxJobs int
	// MaxQueued bounds the accepted jobs that have not finished yet,
	// running ones included. Submissions beyond it get 503. Defaults to 64.
	MaxQueued int
	Logger    *slog.Logger
}

type Server struct {
	runner Runner
	jobs   JobStore
	root   string
	logger *slog.Logger

	running chan struct{}
	pending chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(runner Runner, jobs JobStore, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.MaxJobs <= 0 {
		opts.MaxJobs = 2
	}
	if opts.MaxQueued <= 0 {
		opts.MaxQueued = 64
	}
	if opts.MaxQueued < opts.MaxJobs {
		opts.MaxQueued = opts.MaxJobs
	}
	root := opts.Root
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
		if resolved, err := filepath.EvalSymlinks(root); err == nil {
			root = resolved
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		runner:  runner,
		jobs:    jobs,
		root:    root,
		logger:  logger,
		running: make(chan struct{}, opts.MaxJobs),
		pending: make(chan struct{}, opts.MaxQueued),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", s.handleSubmit)
		r.Get("/", s.handleList)
		r.Get("/{id}", s.handleStatus)
	})
	return r
}

// Shutdown cancels running jobs and waits for them to return.
func (s *Server) Shutdown() {
	s.cancel()
	s.wg.Wait()
}

// Wait blocks until every submitted job has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// SubmitRequest is the body of POST /v1/jobs.
type SubmitRequest struct {
	SourcePath     string `json:"source_path"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Kind           string `json:"kind"`
}

type submitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSubmit queues a job and runs it in the background.
// POST /v1/jobs
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	job, err := s.validate(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	select {
	case s.pending <- struct{}{}:
	default:
		http.Error(w, "Too many jobs in progress", http.StatusServiceUnavailable)
		return
	}

	rec := &store.JobRecord{
		ID:         job.ID,
		SourcePath: job.SourcePath,
		Kind:       string(job.Kind),
		SourceLang: job.SourceLanguage,
		TargetLang: job.TargetLanguage,
		Status:     store.JobQueued,
	}
	if err := s.jobs.SaveJob(r.Context(), rec); err != nil {
		<-s.pending
		s.logger.Error("failed to queue job", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.pending }()

		// A cancelled server still runs the job so it is recorded as failed.
		select {
		case s.running <- struct{}{}:
			defer func() { <-s.running }()
		case <-s.ctx.Done():
		}

		out, err := s.runner.Run(s.ctx, job)
		if err != nil {
			s.logger.Error("job failed", "job", job.ID, "error", err)
			return
		}
		s.logger.Info("job finished", "job", job.ID, "output", out)
	}()

	s.logger.Info("job queued", "job", job.ID, "source", job.SourcePath, "target", job.TargetLanguage)
	writeJSON(w, http.StatusAccepted, submitResponse{ID: job.ID, Status: rec.Status})
}

func (s *Server) validate(req SubmitRequest) (pipeline.DocumentJob, error) {
	job := pipeline.DocumentJob{ID: uuid.NewString()}

	if req.SourcePath == "" {
		return job, errors.New("source_path is required")
	}
	path, err := filepath.Abs(req.SourcePath)
	if err != nil {
		return job, err
	}
	// Links are resolved so the check and the output both use the real location.
	if path, err = filepath.EvalSymlinks(path); err != nil {
		return job, fmt.Errorf("source_path: %w", err)
	}
	if s.root != "" {
		rel, err := filepath.Rel(s.root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return job, errors.New("source_path is outside the served directory")
		}
	}
	job.SourcePath = path

	if job.SourceLanguage, err = langcode.Parse(req.SourceLanguage); err != nil {
		return job, err
	}
	if job.TargetLanguage, err = langcode.ParseTarget(req.TargetLanguage); err != nil {
		return job, err
	}
	if req.Kind != "" {
		if job.Kind, err = format.ParseKind(req.Kind); err != nil {
			return job, err
		}
	}
	return job, nil
}

// handleStatus returns one job record.
// GET /v1/jobs/{id}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, found, err := s.jobs.GetJob(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to read job", "job", id, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleList returns the most recent jobs.
// GET /v1/jobs?limit=N
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	jobs, err := s.jobs.ListJobs(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list jobs", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []store.JobRecord{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
