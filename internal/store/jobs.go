package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Job statuses. A job is queued or running until it is saved or failed.
const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobSaved   = "saved"
	JobFailed  = "failed"
)

// JobRecord is one document pipeline run.
type JobRecord struct {
	ID            string    `json:"id"`
	SourcePath    string    `json:"source_path"`
	OutputPath    string    `json:"output_path,omitempty"`
	Kind          string    `json:"kind,omitempty"`
	SourceLang    string    `json:"source_lang"`
	TargetLang    string    `json:"target_lang"`
	Status        string    `json:"status"`
	Nodes         int       `json:"nodes"`
	Batches       int       `json:"batches"`
	FailedBatches int       `json:"failed_batches"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SaveJob inserts the job or, when its ID exists, overwrites everything but
// the creation time. A missing ID is generated.
func (s *Store) SaveJob(ctx context.Context, job *JobRecord) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = JobRunning
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, source_path, output_path, kind, source_lang, target_lang, status, nodes, batches, failed_batches, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			source_path = excluded.source_path,
			output_path = excluded.output_path,
			kind = excluded.kind,
			source_lang = excluded.source_lang,
			target_lang = excluded.target_lang,
			status = excluded.status,
			nodes = excluded.nodes,
			batches = excluded.batches,
			failed_batches = excluded.failed_batches,
			error = excluded.error,
			updated_at = excluded.updated_at`,
		job.ID, job.SourcePath, job.OutputPath, job.Kind, job.SourceLang, job.TargetLang, job.Status,
		job.Nodes, job.Batches, job.FailedBatches, job.Error, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob returns a job by ID. The boolean is false when no such job exists.
func (s *Store) GetJob(ctx context.Context, id string) (*JobRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

// ListJobs returns the most recent jobs first. A limit of 0 or less returns
// every job.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC, id`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

const jobColumns = `id, source_path, COALESCE(output_path, ''), COALESCE(kind, ''), source_lang, target_lang, status,
	nodes, batches, failed_batches, COALESCE(error, ''), created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row scanner) (*JobRecord, error) {
	var j JobRecord
	err := row.Scan(&j.ID, &j.SourcePath, &j.OutputPath, &j.Kind, &j.SourceLang, &j.TargetLang, &j.Status,
		&j.Nodes, &j.Batches, &j.FailedBatches, &j.Error, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
