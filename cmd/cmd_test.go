package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valpere/doctran/internal/config"
	"github.com/valpere/doctran/internal/format"
	"github.com/valpere/doctran/internal/store"
	"github.com/valpere/doctran/internal/translator"
)

func TestIsTranslation(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"inbox/notes.txt", false},
		{"inbox/notes.uk.txt", true},
		{"inbox/notes.UK.docx", true},
		{"inbox/notes.uk.csv", true},
		{"inbox/duke.txt", false},
		{"inbox/notes.fr.txt", false},
	}
	for _, tt := range tests {
		if got := isTranslation(tt.path, "uk"); got != tt.want {
			t.Errorf("isTranslation(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSnippet(t *testing.T) {
	if got := snippet("short", 10); got != "short" {
		t.Errorf("unexpected snippet %q", got)
	}
	if got := snippet("Привіт, як справи сьогодні?", 10); got != "Привіт,..." {
		t.Errorf("snippet must cut on runes, got %q", got)
	}
}

func TestBuildService(t *testing.T) {
	for _, name := range []string{"google", "systran", "mymemory", "ollama", "openrouter", "gemini", "mock"} {
		cfg := &config.Config{Service: name}
		svc, _, err := buildService(cfg)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", name, err)
			continue
		}
		if svc.Name() != name {
			t.Errorf("service %s reports name %q", name, svc.Name())
		}
	}
	if _, _, err := buildService(&config.Config{Service: "deepl"}); err == nil {
		t.Error("expected error for unknown service")
	}
}

type countingMemory struct {
	saved int
}

func (m *countingMemory) GetCachedTranslation(ctx context.Context, text, src, tgt string) (string, bool, error) {
	return "", false, nil
}

func (m *countingMemory) SaveToMemory(ctx context.Context, text, src, tgt, translated, service string) error {
	m.saved++
	return nil
}

type rejectingValidator struct{}

func (rejectingValidator) ValidateBatch(translations []string, targetLang string) error {
	return errors.New("wrong language")
}

func TestDecorateService(t *testing.T) {
	req := translator.TranslateRequest{Texts: []string{"hello"}, SourceLang: "en", TargetLang: "fr"}

	t.Run("rejected batch is not cached", func(t *testing.T) {
		mem := &countingMemory{}
		svc := decorateService(&translator.MockService{}, mem, rejectingValidator{})
		if _, err := svc.Translate(context.Background(), translator.ServiceConfig{}, req); err == nil {
			t.Fatal("expected validation failure")
		}
		if mem.saved != 0 {
			t.Errorf("rejected batch saved %d entries", mem.saved)
		}
	})

	t.Run("accepted batch is cached", func(t *testing.T) {
		mem := &countingMemory{}
		svc := decorateService(&translator.MockService{}, mem, nil)
		if _, err := svc.Translate(context.Background(), translator.ServiceConfig{}, req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mem.saved != 1 {
			t.Errorf("expected 1 saved entry, got %d", mem.saved)
		}
	})

	t.Run("no layers", func(t *testing.T) {
		svc := &translator.MockService{}
		if got := decorateService(svc, nil, nil); got != translator.TranslationService(svc) {
			t.Errorf("expected the bare service, got %T", got)
		}
	})
}

func TestCollectJobs_Manifest(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "jobs.yaml")
	data := `target: de
jobs:
  - path: a.docx
  - path: b.txt
    target: fr
    kind: markup
`
	if err := os.WriteFile(manifest, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	translateManifest = manifest
	defer func() { translateManifest = "" }()

	cfg := &config.Config{Source: "auto", Target: "uk"}
	jobs, err := collectJobs(cfg, []string{"c.srt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	if jobs[0].SourcePath != "c.srt" || jobs[0].TargetLanguage != "uk" {
		t.Errorf("unexpected argument job: %+v", jobs[0])
	}
	if jobs[1].TargetLanguage != "de" || jobs[1].SourceLanguage != "auto" {
		t.Errorf("manifest defaults not applied: %+v", jobs[1])
	}
	if jobs[2].TargetLanguage != "fr" || jobs[2].Kind != format.Markup {
		t.Errorf("manifest entry overrides not applied: %+v", jobs[2])
	}
}

func TestCollectJobs_NoTarget(t *testing.T) {
	if _, err := collectJobs(&config.Config{Source: "auto"}, []string{"a.txt"}); err == nil {
		t.Error("expected error without a target language")
	}
}

func TestImportGlossary(t *testing.T) {
	db, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()

	n, err := importGlossary(ctx, db, strings.NewReader("source_term,target_term\ninvoice,Rechnung\n\"tax, net\",Nettosteuer\n"), "en", "de")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 imported entries, got %d", n)
	}
	terms, err := db.GetGlossaryTerms(ctx, "en", "de")
	if err != nil {
		t.Fatal(err)
	}
	if terms["invoice"] != "Rechnung" || terms["tax, net"] != "Nettosteuer" {
		t.Errorf("unexpected terms: %v", terms)
	}

	if _, err := importGlossary(ctx, db, strings.NewReader("lonely\n"), "en", "de"); err == nil {
		t.Error("expected error for a row without a target term")
	}
}
