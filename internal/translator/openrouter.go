package translator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var DefaultOpenRouterModels = []string{
	"google/gemini-2.0-flash-exp:free",
	"qwen/qwen2.5-72b-instruct:free",
	"mistralai/mistral-nemo:free",
	"meta-llama/llama-3.1-8b-instruct:free",
}

var errOpenRouterKey = errors.New("OpenRouter API key required")

// OpenRouterService talks to any OpenAI-compatible chat completions API,
// OpenRouter by default.
type OpenRouterService struct {
	apiKey  string
	baseURL string
	models  []string
	client  *http.Client
}

func NewOpenRouterService(apiKey string, baseURL string, models []string) *OpenRouterService {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if len(models) == 0 {
		models = DefaultOpenRouterModels
	}
	return &OpenRouterService{
		apiKey:  apiKey,
		baseURL: baseURL,
		models:  models,
		client:  &http.Client{Timeout: 300 * time.Second},
	}
}

func (s *OpenRouterService) Name() string {
	return "openrouter"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (s *OpenRouterService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	apiKey := firstNonEmpty(s.apiKey, cfg.APIKey)
	if apiKey == "" {
		return fail(result, errOpenRouterKey)
	}
	model := pickModel(cfg.Model, s.models)

	batch, err := protectBatch(req.Texts)
	if err != nil {
		return fail(result, err)
	}

	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: buildSystemPrompt(req.SourceLang, req.TargetLang, len(req.Texts), req.GlossaryTerms, req.Instructions)},
			{Role: "user", Content: batch.payload},
		},
		MaxTokens: 16384,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + apiKey,
		"HTTP-Referer":  "https://doctran.local",
		"X-Title":       "doctran",
	}
	var resp chatResponse
	if err := postJSON(ctx, s.client, s.baseURL+"/chat/completions", headers, body, &resp); err != nil {
		return fail(result, err)
	}
	if len(resp.Choices) == 0 {
		return fail(result, errors.New("empty response from API"))
	}

	translations, err := batch.restore(resp.Choices[0].Message.Content)
	if err != nil {
		return fail(result, err)
	}

	result.Translations = translations
	result.Confidence = 0.7
	result.Metadata = map[string]string{
		"model":             model,
		"prompt_tokens":     fmt.Sprint(resp.Usage.PromptTokens),
		"completion_tokens": fmt.Sprint(resp.Usage.CompletionTokens),
	}
	return result, nil
}

func (s *OpenRouterService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return errOpenRouterKey
	}
	return nil
}

func (s *OpenRouterService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"en", "es", "fr", "de", "it", "pt", "ru", "zh", "ja", "ko", "ar", "uk"}, nil
}
