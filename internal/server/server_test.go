package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/valpere/doctran/internal/pipeline"
	"github.com/valpere/doctran/internal/store"
	"github.com/valpere/doctran/internal/translator"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, string) {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	st, err := store.New(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	fn := translator.BatchFunc(translator.NewMockService(), translator.ServiceConfig{})
	p := pipeline.New(fn, pipeline.Options{Recorder: st})

	srv := New(p, st, Options{Root: dir})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	t.Cleanup(srv.Shutdown)
	return srv, ts, dir
}

func postJob(t *testing.T, url string, req SubmitRequest) *http.Response {
	t.Helper()
	body, _ := json.Marshal(req)
	resp, err := http.Post(url+"/v1/jobs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestSubmitAndStatus(t *testing.T) {
	srv, ts, dir := newTestServer(t)
	src := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(src, []byte("Hello\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	resp := postJob(t, ts.URL, SubmitRequest{SourcePath: src, SourceLanguage: "en", TargetLanguage: "French"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var accepted submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if accepted.ID == "" || accepted.Status != store.JobQueued {
		t.Fatalf("unexpected response: %+v", accepted)
	}

	srv.Wait()

	status, err := http.Get(ts.URL + "/v1/jobs/" + accepted.ID)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer status.Body.Close()
	if status.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", status.StatusCode)
	}
	var job store.JobRecord
	if err := json.NewDecoder(status.Body).Decode(&job); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.Status != store.JobSaved || job.OutputPath != filepath.Join(dir, "notes.fr.txt") {
		t.Errorf("unexpected job: %+v", job)
	}

	data, err := os.ReadFile(job.OutputPath)
	if err != nil || string(data) != "[fr] Hello\n" {
		t.Errorf("unexpected output %q (err %v)", data, err)
	}

	list, err := http.Get(ts.URL + "/v1/jobs?limit=10")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer list.Body.Close()
	var jobs []store.JobRecord
	if err := json.NewDecoder(list.Body).Decode(&jobs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != accepted.ID {
		t.Errorf("unexpected job list: %+v", jobs)
	}
}

func TestSubmit_Invalid(t *testing.T) {
	_, ts, dir := newTestServer(t)
	inside := filepath.Join(dir, "a.txt")

	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{"missing path", SubmitRequest{TargetLanguage: "fr"}},
		{"missing target", SubmitRequest{SourcePath: inside}},
		{"unknown language", SubmitRequest{SourcePath: inside, TargetLanguage: "klingonese!"}},
		{"unknown kind", SubmitRequest{SourcePath: inside, TargetLanguage: "fr", Kind: "pdf"}},
		{"outside root", SubmitRequest{SourcePath: filepath.Join(dir, "..", "other.txt"), TargetLanguage: "fr"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJob(t, ts.URL, tt.req)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestStatus_NotFound(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/jobs/does-not-exist")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSubmit_SymlinkOutsideRoot(t *testing.T) {
	_, ts, dir := newTestServer(t)
	secret := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(secret, []byte("Hello\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	link := filepath.Join(dir, "link.txt")
	if err := os.Symlink(secret, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	resp := postJob(t, ts.URL, SubmitRequest{SourcePath: link, TargetLanguage: "fr"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for a link leaving the root, got %d", resp.StatusCode)
	}
}

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]store.JobRecord
}

func (m *memJobs) SaveJob(ctx context.Context, job *store.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

func (m *memJobs) GetJob(ctx context.Context, id string) (*store.JobRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	return &job, ok, nil
}

func (m *memJobs) ListJobs(ctx context.Context, limit int) ([]store.JobRecord, error) {
	return nil, nil
}

// blockingRunner holds every job until release is closed.
type blockingRunner struct {
	release  chan struct{}
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (r *blockingRunner) Run(ctx context.Context, job pipeline.DocumentJob) (string, error) {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-r.release:
	case <-ctx.Done():
	}
	return job.SourcePath, nil
}

func TestSubmit_Limits(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(src, []byte("Hello\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	runner := &blockingRunner{release: make(chan struct{})}
	srv := New(runner, &memJobs{jobs: map[string]store.JobRecord{}}, Options{Root: dir, MaxJobs: 1, MaxQueued: 2})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	req := SubmitRequest{SourcePath: src, TargetLanguage: "fr"}
	for i, want := range []int{http.StatusAccepted, http.StatusAccepted, http.StatusServiceUnavailable} {
		resp := postJob(t, ts.URL, req)
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("submission %d: expected %d, got %d", i, want, resp.StatusCode)
		}
	}

	close(runner.release)
	srv.Wait()

	if runner.peak.Load() != 1 {
		t.Errorf("expected one job at a time, peak %d", runner.peak.Load())
	}

	resp := postJob(t, ts.URL, req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("finished jobs should free the queue, got %d", resp.StatusCode)
	}
	srv.Wait()
}
