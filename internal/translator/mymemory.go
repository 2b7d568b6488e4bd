package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valpere/doctran/internal/chunker"
)

const (
	myMemoryURL = "https://api.mymemory.translated.net/get"
	// myMemoryMaxQuery is the API's limit on the q parameter, in bytes.
	myMemoryMaxQuery = 500
)

// MyMemoryService has no batch endpoint, so texts are sent one by one and
// long texts are cut into queries the API accepts. The first failing text
// fails the whole batch.
type MyMemoryService struct {
	email   string
	baseURL string
	client  *http.Client
}

func NewMyMemoryService(email string) *MyMemoryService {
	return &MyMemoryService{
		email:   email,
		baseURL: myMemoryURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *MyMemoryService) Name() string {
	return "mymemory"
}

func (s *MyMemoryService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	sourceLang := req.SourceLang
	if sourceLang == "" || sourceLang == "auto" {
		sourceLang = "en"
	}
	langPair := fmt.Sprintf("%s|%s", sourceLang, req.TargetLang)

	var confidence float64
	result.Translations = make([]string, 0, len(req.Texts))
	for i, text := range req.Texts {
		translated, match, err := s.translateText(ctx, text, langPair)
		if err != nil {
			result.Translations = nil
			result.Error = fmt.Sprintf("segment %d: %v", i, err)
			return result, fmt.Errorf("segment %d: %w", i, err)
		}
		result.Translations = append(result.Translations, translated)
		confidence += match
	}

	if len(req.Texts) > 0 {
		result.Confidence = confidence / float64(len(req.Texts))
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}

	return result, nil
}

// translateText translates text piece by piece and reports the mean match
// score of the pieces.
func (s *MyMemoryService) translateText(ctx context.Context, text, langPair string) (string, float64, error) {
	pieces := chunker.Split(text, myMemoryMaxQuery)
	out := make([]string, len(pieces))
	var match float64
	var sent int
	for i, p := range pieces {
		if strings.TrimSpace(p.Text) == "" {
			out[i] = p.Text
			continue
		}
		translated, m, err := s.translateOne(ctx, p.Text, langPair)
		if err != nil {
			return "", 0, err
		}
		out[i] = translated
		match += m
		sent++
	}
	if sent > 0 {
		match /= float64(sent)
	}
	return chunker.Join(pieces, out), match, nil
}

func (s *MyMemoryService) translateOne(ctx context.Context, text, langPair string) (string, float64, error) {
	apiURL := fmt.Sprintf("%s?q=%s&langpair=%s", s.baseURL, url.QueryEscape(text), url.QueryEscape(langPair))
	if s.email != "" {
		apiURL += fmt.Sprintf("&de=%s", url.QueryEscape(s.email))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var mymemResp struct {
		ResponseData struct {
			TranslatedText string  `json:"translatedText"`
			Match          float64 `json:"match"`
		} `json:"responseData"`
		ResponseStatus  int    `json:"responseStatus"`
		ResponseDetails string `json:"responseDetails"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&mymemResp); err != nil {
		return "", 0, fmt.Errorf("failed to decode response: %w", err)
	}

	if mymemResp.ResponseStatus != 200 {
		return "", 0, fmt.Errorf("API error: %s (%d)", mymemResp.ResponseDetails, mymemResp.ResponseStatus)
	}

	return mymemResp.ResponseData.TranslatedText, mymemResp.ResponseData.Match, nil
}

func (s *MyMemoryService) IsAvailable(ctx context.Context) error {
	return nil
}

func (s *MyMemoryService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{
		"en", "es", "fr", "de", "it", "pt", "ru", "ja", "ko", "zh",
		"ar", "nl", "pl", "tr", "sv", "da", "no", "fi", "el", "he",
		"th", "vi", "id", "ms", "cs", "hu", "ro", "uk", "bg", "ca",
	}, nil
}
