package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/valpere/doctran/internal/dispatcher"
)

// Glossary supplies fixed term translations for a language pair.
type Glossary interface {
	GetGlossaryTerms(ctx context.Context, sourceLang, targetLang string) (map[string]string, error)
}

type batchOptions struct {
	glossary     Glossary
	instructions string
}

type BatchOption func(*batchOptions)

// WithGlossary injects the glossary terms of the language pair into every
// request.
func WithGlossary(g Glossary) BatchOption {
	return func(o *batchOptions) { o.glossary = g }
}

// WithInstructions appends free-form instructions to LLM prompts.
func WithInstructions(s string) BatchOption {
	return func(o *batchOptions) { o.instructions = s }
}

// BatchFunc adapts a service to the dispatcher. Blank texts are answered
// locally and never reach the service; the rest go out in one request.
func BatchFunc(svc TranslationService, cfg ServiceConfig, opts ...BatchOption) dispatcher.TranslateFunc {
	var o batchOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
		out := make([]string, len(texts))
		var pending []string
		var positions []int
		for i, text := range texts {
			if strings.TrimSpace(text) == "" {
				out[i] = text
				continue
			}
			pending = append(pending, text)
			positions = append(positions, i)
		}
		if len(pending) == 0 {
			return out, nil
		}

		req := TranslateRequest{
			Texts:        pending,
			SourceLang:   sourceLang,
			TargetLang:   targetLang,
			Instructions: o.instructions,
		}
		if o.glossary != nil {
			terms, err := o.glossary.GetGlossaryTerms(ctx, sourceLang, targetLang)
			if err != nil {
				return nil, fmt.Errorf("failed to load glossary: %w", err)
			}
			req.GlossaryTerms = terms
		}

		result, err := svc.Translate(ctx, cfg, req)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", svc.Name(), err)
		}
		if len(result.Translations) != len(pending) {
			return nil, fmt.Errorf("%s: %w: sent %d, received %d", svc.Name(), dispatcher.ErrLengthMismatch, len(pending), len(result.Translations))
		}
		for j, pos := range positions {
			out[pos] = result.Translations[j]
		}
		return out, nil
	}
}
