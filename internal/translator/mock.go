package translator

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockService translates offline by tagging each text with the target
// language. It is deterministic, so repeated runs produce identical output.
type MockService struct {
	// FailOn makes every batch containing this substring fail.
	FailOn string
}

func NewMockService() *MockService {
	return &MockService{}
}

func (s *MockService) Name() string {
	return "mock"
}

func (s *MockService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if err := ctx.Err(); err != nil {
		result.Error = err.Error()
		return result, err
	}

	result.Translations = make([]string, len(req.Texts))
	for i, text := range req.Texts {
		if s.FailOn != "" && strings.Contains(text, s.FailOn) {
			result.Translations = nil
			result.Error = fmt.Sprintf("mock failure on segment %d", i)
			return result, fmt.Errorf("mock failure on segment %d", i)
		}
		result.Translations[i] = MockTranslate(text, req.TargetLang)
	}
	result.Confidence = 1.0
	return result, nil
}

func (s *MockService) IsAvailable(ctx context.Context) error {
	return nil
}

func (s *MockService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return nil, nil
}

// MockTranslate is the transformation applied by MockService.
func MockTranslate(text, targetLang string) string {
	return fmt.Sprintf("[%s] %s", targetLang, text)
}
