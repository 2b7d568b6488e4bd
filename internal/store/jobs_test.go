package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestStore_Jobs(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	job := &JobRecord{SourcePath: "manual.docx", SourceLang: "auto", TargetLang: "fr"}
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}
	created := job.CreatedAt
	if job.ID == "" || job.Status != JobRunning {
		t.Fatalf("expected generated ID and running status, got %+v", job)
	}

	job.Status = JobSaved
	job.SourceLang = "en"
	job.OutputPath = "manual.fr.docx"
	job.Kind = "word"
	job.Nodes, job.Batches = 120, 2
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob (update) failed: %v", err)
	}

	got, found, err := s.GetJob(ctx, job.ID)
	if err != nil || !found {
		t.Fatalf("GetJob: found=%v err=%v", found, err)
	}
	if got.Status != JobSaved || got.OutputPath != "manual.fr.docx" || got.Nodes != 120 || got.SourceLang != "en" {
		t.Errorf("unexpected job: %+v", got)
	}
	if got.Error != "" {
		t.Errorf("expected empty error, got %q", got.Error)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("creation time changed on update: %v -> %v", created, got.CreatedAt)
	}

	all, err := s.ListJobs(ctx, 0)
	if err != nil || len(all) != 1 {
		t.Errorf("update must not add a row, got %d jobs (err %v)", len(all), err)
	}
}

func TestStore_GetJob_Missing(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	_, found, err := s.GetJob(context.Background(), "nope")
	if err != nil || found {
		t.Errorf("expected not found, got found=%v err=%v", found, err)
	}
}

func TestStore_ListJobs(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		if err := s.SaveJob(ctx, &JobRecord{SourcePath: name, SourceLang: "en", TargetLang: "de"}); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}
	}

	all, err := s.ListJobs(ctx, 0)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 jobs, got %d", len(all))
	}

	limited, err := s.ListJobs(ctx, 2)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 jobs, got %d", len(limited))
	}
}
