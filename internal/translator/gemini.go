package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiService calls the Gemini API through the genai SDK.
type GeminiService struct {
	apiKey  string
	model   string
	baseURL string
}

func NewGeminiService(apiKey, model string) *GeminiService {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiService{apiKey: apiKey, model: model}
}

func (s *GeminiService) Name() string {
	return "gemini"
}

func (s *GeminiService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	apiKey := s.apiKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		result.Error = "Gemini API key required"
		return result, fmt.Errorf("Gemini API key required")
	}
	model := cfg.Model
	if model == "" {
		model = s.model
	}

	batch, err := protectBatch(req.Texts)
	if err != nil {
		return fail(result, err)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL := firstNonEmpty(cfg.BaseURL, s.baseURL); baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return fail(result, fmt.Errorf("failed to create client: %w", err))
	}

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(
			buildSystemPrompt(req.SourceLang, req.TargetLang, len(req.Texts), req.GlossaryTerms, req.Instructions),
			genai.RoleUser,
		),
		ResponseMIMEType: "application/json",
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(batch.payload), genCfg)
	if err != nil {
		return fail(result, fmt.Errorf("generate content: %w", err))
	}

	var sb strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
	}
	if sb.Len() == 0 {
		result.Error = "empty response from Gemini"
		return result, fmt.Errorf("empty response from Gemini")
	}

	translations, err := batch.restore(sb.String())
	if err != nil {
		return fail(result, err)
	}

	result.Translations = translations
	result.Confidence = 0.8
	result.Metadata = map[string]string{"model": model}

	return result, nil
}

func (s *GeminiService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("Gemini API key not configured")
	}
	return nil
}

func (s *GeminiService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"en", "es", "fr", "de", "it", "pt", "ru", "zh", "ja", "ko", "ar", "uk", "vi", "pl", "nl", "tr"}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
