package translator

import (
	"context"
	"fmt"
)

// BatchValidator rejects translations that are not in the target language.
type BatchValidator interface {
	ValidateBatch(translations []string, targetLang string) error
}

// ValidatedService fails a batch whose translations are detected in another
// language than the requested target.
type ValidatedService struct {
	svc TranslationService
	val BatchValidator
}

func NewValidatedService(svc TranslationService, val BatchValidator) *ValidatedService {
	return &ValidatedService{svc: svc, val: val}
}

func (s *ValidatedService) Name() string {
	return s.svc.Name()
}

func (s *ValidatedService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result, err := s.svc.Translate(ctx, cfg, req)
	if err != nil {
		return result, err
	}
	if err := s.val.ValidateBatch(result.Translations, req.TargetLang); err != nil {
		result.Error = fmt.Sprintf("validation failed: %v", err)
		return result, fmt.Errorf("validation failed: %w", err)
	}
	return result, nil
}

func (s *ValidatedService) IsAvailable(ctx context.Context) error {
	return s.svc.IsAvailable(ctx)
}

func (s *ValidatedService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return s.svc.SupportedLanguages(ctx)
}
