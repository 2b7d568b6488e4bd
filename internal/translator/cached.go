package translator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/valpere/doctran/internal/dispatcher"
	"github.com/valpere/doctran/internal/postprocess"
)

// Memory is a translation memory keyed by source text and language pair.
type Memory interface {
	GetCachedTranslation(ctx context.Context, sourceText, sourceLang, targetLang string) (string, bool, error)
	SaveToMemory(ctx context.Context, sourceText, sourceLang, targetLang, translatedText, serviceUsed string) error
}

// CachedService answers texts found in the translation memory and sends only
// the misses to the wrapped service. New translations are saved back only
// when the wrapped service succeeds with one translation per miss, so any
// validation must happen inside it.
type CachedService struct {
	svc TranslationService
	mem Memory
}

func NewCachedService(svc TranslationService, mem Memory) *CachedService {
	return &CachedService{svc: svc, mem: mem}
}

func (s *CachedService) Name() string {
	return s.svc.Name()
}

func (s *CachedService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	start := time.Now()

	// Auto-detected sources have no stable key.
	if req.SourceLang == "" || req.SourceLang == "auto" {
		return s.svc.Translate(ctx, cfg, req)
	}

	out := make([]string, len(req.Texts))
	var misses []string
	var positions []int
	for i, text := range req.Texts {
		cached, found, err := s.mem.GetCachedTranslation(ctx, text, req.SourceLang, req.TargetLang)
		if err != nil {
			return &ServiceResult{ServiceName: s.Name(), Error: err.Error()}, fmt.Errorf("failed to read translation memory: %w", err)
		}
		if found {
			// Keys are stored trimmed, so padding comes from the request.
			out[i] = postprocess.RestorePadding(text, cached)
			continue
		}
		misses = append(misses, text)
		positions = append(positions, i)
	}

	result := &ServiceResult{ServiceName: s.Name(), Confidence: 1.0, Metadata: map[string]string{}}
	if len(misses) > 0 {
		sub := req
		sub.Texts = misses
		inner, err := s.svc.Translate(ctx, cfg, sub)
		if err != nil {
			return inner, err
		}
		if len(inner.Translations) != len(misses) {
			return inner, fmt.Errorf("%w: sent %d, received %d", dispatcher.ErrLengthMismatch, len(misses), len(inner.Translations))
		}
		for j, pos := range positions {
			out[pos] = inner.Translations[j]
			if err := s.mem.SaveToMemory(ctx, misses[j], req.SourceLang, req.TargetLang, inner.Translations[j], inner.ServiceName); err != nil {
				return inner, fmt.Errorf("failed to save to translation memory: %w", err)
			}
		}
		result.Confidence = inner.Confidence
		for k, v := range inner.Metadata {
			result.Metadata[k] = v
		}
	}

	result.Translations = out
	result.Metadata["cache_hits"] = strconv.Itoa(len(req.Texts) - len(misses))
	result.Latency = time.Since(start)
	return result, nil
}

func (s *CachedService) IsAvailable(ctx context.Context) error {
	return s.svc.IsAvailable(ctx)
}

func (s *CachedService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return s.svc.SupportedLanguages(ctx)
}
