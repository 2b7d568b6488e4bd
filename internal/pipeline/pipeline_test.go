package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gomutex/godocx"

	"github.com/valpere/doctran/internal/dispatcher"
	"github.com/valpere/doctran/internal/format"
	"github.com/valpere/doctran/internal/store"
	"github.com/valpere/doctran/internal/translator"
)

func mockFunc() dispatcher.TranslateFunc {
	return translator.BatchFunc(translator.NewMockService(), translator.ServiceConfig{})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		source, code, want string
	}{
		{"manual.docx", "fr", "manual.fr.docx"},
		{"notes.txt", "fr", "notes.fr.txt"},
		{"report.pptx", "en", "report.en.pptx"},
		{filepath.Join("docs", "deck.pptx"), "de", filepath.Join("docs", "deck.de.pptx")},
		{"archive.tar.gz", "uk", "archive.tar.uk.gz"},
		{"README", "es", "README.es"},
	}

	for _, tt := range tests {
		if got := OutputPath(tt.source, tt.code); got != tt.want {
			t.Errorf("OutputPath(%q, %q) = %q, want %q", tt.source, tt.code, got, tt.want)
		}
	}
}

func TestParseFailurePolicy(t *testing.T) {
	for in, want := range map[string]FailurePolicy{"": Discard, "discard": Discard, "Keep-Partial": KeepPartial} {
		got, err := ParseFailurePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseFailurePolicy(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFailurePolicy("retry"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestRun_Text(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "notes.txt", "Hello\n\nWorld\n")

	out, err := New(mockFunc(), Options{}).Run(context.Background(), DocumentJob{
		SourcePath:     src,
		SourceLanguage: "en",
		TargetLanguage: "French",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if out != filepath.Join(dir, "notes.fr.txt") {
		t.Errorf("unexpected output path %q", out)
	}
	if got := readFile(t, out); got != "[fr] Hello\n\n[fr] World\n" {
		t.Errorf("unexpected output %q", got)
	}
	if readFile(t, src) != "Hello\n\nWorld\n" {
		t.Error("source must not be modified")
	}
}

func TestRun_Word(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "manual.docx")
	gen, err := godocx.NewDocument()
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	gen.AddParagraph("Install the device")
	gen.AddParagraph("Plug it in")
	if err := gen.SaveTo(src); err != nil {
		t.Fatalf("save fixture: %v", err)
	}

	out, err := New(mockFunc(), Options{}).Run(context.Background(), DocumentJob{
		SourcePath:     src,
		SourceLanguage: "en",
		TargetLanguage: "fr",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if filepath.Base(out) != "manual.fr.docx" {
		t.Fatalf("unexpected output path %q", out)
	}

	f, err := DefaultTable().Resolve("", out)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	translated, err := f.Open(out)
	if err != nil {
		t.Fatalf("reopen output: %v", err)
	}
	body := strings.Join(translated.Streams()[0].Texts(), "|")
	if !strings.Contains(body, "[fr] Install the device") || !strings.Contains(body, "[fr] Plug it in") {
		t.Errorf("body not translated: %q", body)
	}
}

// fixtures returns one small document per supported text format.
func fixtures(t *testing.T, dir string) []string {
	t.Helper()
	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, fmt.Sprintf("Line number %d of the document", i))
	}
	docx := filepath.Join(dir, "doc.docx")
	gen, err := godocx.NewDocument()
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	for _, l := range lines[:10] {
		gen.AddParagraph(l)
	}
	if err := gen.SaveTo(docx); err != nil {
		t.Fatalf("save fixture: %v", err)
	}

	return []string{
		writeFile(t, dir, "doc.txt", strings.Join(lines, "\n")+"\n"),
		writeFile(t, dir, "doc.srt", "1\n00:00:01,000 --> 00:00:02,000\nHello there\n\n2\n00:00:03,000 --> 00:00:04,000\nGeneral Kenobi\n"),
		writeFile(t, dir, "doc.csv", "name,qty,note\nApple,3,fresh fruit\nPear,5,\"ripe, sweet\"\n"),
		writeFile(t, dir, "doc.html", "<html><head><title>Title</title><script>var x = 1;</script></head><body><p>First <b>bold</b> text</p></body></html>"),
		writeFile(t, dir, "doc.md", "# Heading\n\nSome *emphasis* and `code`.\n\n- item one\n- item two\n"),
		docx,
	}
}

func TestRun_IdempotentAcrossConcurrency(t *testing.T) {
	dir := t.TempDir()
	for _, src := range fixtures(t, dir) {
		t.Run(filepath.Ext(src), func(t *testing.T) {
			var first []byte
			for _, conc := range []int{1, 4, 8, 1} {
				p := New(mockFunc(), Options{Concurrency: conc, MaxBatchCount: 3})
				out, err := p.Run(context.Background(), DocumentJob{SourcePath: src, SourceLanguage: "en", TargetLanguage: "fr"})
				if err != nil {
					t.Fatalf("concurrency %d: %v", conc, err)
				}
				data, err := os.ReadFile(out)
				if err != nil {
					t.Fatalf("read output: %v", err)
				}
				if first == nil {
					first = data
					continue
				}
				if !bytes.Equal(first, data) {
					t.Errorf("concurrency %d produced different bytes", conc)
				}
			}
		})
	}
}

// failingOn fails every batch that contains text.
func failingOn(text string) dispatcher.TranslateFunc {
	mock := &translator.MockService{FailOn: text}
	return translator.BatchFunc(mock, translator.ServiceConfig{})
}

func TestRun_FailLate_Discard(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "notes.txt", "t0\nt1\nt2\nt3\nt4\nt5\n")
	stale := writeFile(t, dir, "notes.fr.txt", "stale output")

	p := New(failingOn("t2"), Options{MaxBatchCount: 2})
	out, err := p.Run(context.Background(), DocumentJob{SourcePath: src, SourceLanguage: "en", TargetLanguage: "fr"})

	if out != "" {
		t.Errorf("discard policy must not report an output, got %q", out)
	}
	var agg *dispatcher.AggregateTranslationError
	if !errors.As(err, &agg) {
		t.Fatalf("expected aggregate error, got %v", err)
	}
	if len(agg.Failures) != 1 || agg.Failures[0].BatchIndex != 1 {
		t.Errorf("expected only batch 1 to fail, got %v", agg)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("pre-existing output must be removed even when nothing is written")
	}
}

func TestRun_FailLate_KeepPartial(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "notes.txt", "t0\nt1\nt2\nt3\nt4\nt5\n")

	p := New(failingOn("t2"), Options{MaxBatchCount: 2, FailurePolicy: KeepPartial, Concurrency: 4})
	out, err := p.Run(context.Background(), DocumentJob{SourcePath: src, SourceLanguage: "en", TargetLanguage: "fr"})

	var agg *dispatcher.AggregateTranslationError
	if !errors.As(err, &agg) {
		t.Fatalf("expected aggregate error, got %v", err)
	}
	want := "[fr] t0\n[fr] t1\nt2\nt3\n[fr] t4\n[fr] t5\n"
	if got := readFile(t, out); got != want {
		t.Errorf("partial output = %q, want %q", got, want)
	}
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	txt := writeFile(t, dir, "notes.txt", "hello\n")
	pdf := writeFile(t, dir, "paper.pdf", "%PDF-1.4")
	broken := writeFile(t, dir, "broken.docx", "not a zip")

	tests := []struct {
		name       string
		job        DocumentJob
		extraction bool
	}{
		{"unsupported extension", DocumentJob{SourcePath: pdf, TargetLanguage: "fr"}, true},
		{"kind disagrees with extension", DocumentJob{SourcePath: txt, TargetLanguage: "fr", Kind: format.Word}, true},
		{"malformed package", DocumentJob{SourcePath: broken, TargetLanguage: "fr"}, true},
		{"missing source", DocumentJob{SourcePath: filepath.Join(dir, "absent.txt"), TargetLanguage: "fr"}, true},
		{"no target", DocumentJob{SourcePath: txt}, false},
		{"auto target", DocumentJob{SourcePath: txt, TargetLanguage: "auto"}, false},
	}

	p := New(mockFunc(), Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := p.Run(context.Background(), tt.job)
			if err == nil {
				t.Fatalf("expected error, got output %q", out)
			}
			var ee *format.ExtractionError
			if errors.As(err, &ee) != tt.extraction {
				t.Errorf("ExtractionError = %v, want %v (err %v)", !tt.extraction, tt.extraction, err)
			}
		})
	}
}

type fixedDetector string

func (d fixedDetector) DetectSample(texts []string) (string, bool) {
	return string(d), d != ""
}

func TestRun_DetectsSourceLanguage(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "notes.txt", "Bonjour\n")

	var mu sync.Mutex
	var seen []string
	fn := func(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
		mu.Lock()
		seen = append(seen, sourceLang)
		mu.Unlock()
		return texts, nil
	}

	report, err := New(fn, Options{Detector: fixedDetector("fr")}).Execute(context.Background(), DocumentJob{
		SourcePath:     src,
		SourceLanguage: "auto",
		TargetLanguage: "en",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if report.SourceLanguage != "fr" || len(seen) != 1 || seen[0] != "fr" {
		t.Errorf("detected language not used: report %q, calls %v", report.SourceLanguage, seen)
	}
}

type memoryRecorder struct {
	mu   sync.Mutex
	jobs map[string]store.JobRecord
	n    int
}

func (r *memoryRecorder) SaveJob(ctx context.Context, job *store.JobRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID == "" {
		r.n++
		job.ID = fmt.Sprintf("job-%d", r.n)
	}
	r.jobs[job.ID] = *job
	return nil
}

func TestRun_RecordsJob(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "notes.txt", "a\nb\nc\n")
	rec := &memoryRecorder{jobs: map[string]store.JobRecord{}}

	report, err := New(mockFunc(), Options{Recorder: rec, MaxBatchCount: 2}).Execute(context.Background(), DocumentJob{
		SourcePath:     src,
		SourceLanguage: "en",
		TargetLanguage: "de",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	job, ok := rec.jobs[report.JobID]
	if !ok {
		t.Fatalf("job %q not recorded", report.JobID)
	}
	if job.Status != store.JobSaved || job.Nodes != 3 || job.Batches != 2 || job.Kind != string(format.Text) {
		t.Errorf("unexpected record: %+v", job)
	}
	if job.OutputPath != filepath.Join(dir, "notes.de.txt") {
		t.Errorf("unexpected output in record: %q", job.OutputPath)
	}
}

func TestAlign(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "notes.txt", "Hello, world\n\nBye\n")

	out, err := New(mockFunc(), Options{Detector: fixedDetector("en")}).Align(context.Background(), DocumentJob{
		SourcePath:     src,
		SourceLanguage: "auto",
		TargetLanguage: "fr",
	})
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	if out != filepath.Join(dir, "notes.txt.fr.csv") {
		t.Errorf("unexpected output path %q", out)
	}

	want := "EN,FR,Word Alignment\n\"Hello, world\",\"[fr] Hello, world\",\nBye,[fr] Bye,\n"
	if got := readFile(t, out); got != want {
		t.Errorf("alignment = %q, want %q", got, want)
	}
}
