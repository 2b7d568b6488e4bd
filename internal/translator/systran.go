package translator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	systranHost = "api-systran-systran-translation-v1.p.rapidapi.com"
	systranURL  = "https://" + systranHost + "/translation/text/translate"
)

var errSystranKey = errors.New("Systran API key required")

// SystranService translates a whole batch in one call through RapidAPI.
type SystranService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewSystranService(apiKey string) *SystranService {
	return &SystranService{
		apiKey:  apiKey,
		baseURL: systranURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *SystranService) Name() string {
	return "systran"
}

type systranRequest struct {
	Text   []string `json:"text"`
	Source string   `json:"source,omitempty"`
	Target string   `json:"target"`
	Format string   `json:"format"`
}

type systranResponse struct {
	Outputs []struct {
		Output string `json:"output"`
		Error  string `json:"error"`
	} `json:"outputs"`
}

func (s *SystranService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	apiKey := firstNonEmpty(s.apiKey, cfg.APIKey)
	if apiKey == "" {
		return fail(result, errSystranKey)
	}

	body := systranRequest{Text: req.Texts, Target: req.TargetLang, Format: "text"}
	if req.SourceLang != "auto" {
		body.Source = req.SourceLang
	}
	headers := map[string]string{
		"X-RapidAPI-Key":  apiKey,
		"X-RapidAPI-Host": systranHost,
	}
	var resp systranResponse
	if err := postJSON(ctx, s.client, s.baseURL, headers, body, &resp); err != nil {
		return fail(result, err)
	}
	if len(resp.Outputs) == 0 {
		return fail(result, errors.New("empty translation response"))
	}

	result.Translations = make([]string, len(resp.Outputs))
	for i, o := range resp.Outputs {
		if o.Error != "" {
			result.Translations = nil
			return fail(result, fmt.Errorf("segment %d: %s", i, o.Error))
		}
		result.Translations[i] = o.Output
	}
	result.Confidence = 1.0
	return result, nil
}

func (s *SystranService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return errSystranKey
	}
	return nil
}

func (s *SystranService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"en", "fr", "es", "de", "it", "pt", "ru", "zh", "ja", "ko", "ar"}, nil
}
