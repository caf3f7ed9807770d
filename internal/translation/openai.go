package translation

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o-mini"
)

// OpenAIProvider translates through an OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	endpointURL string
	apiKey      string
	model       string
	http        *resty.Client
}

func NewOpenAIProvider(baseURL, apiKey, model string, timeout time.Duration) *OpenAIProvider {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		endpointURL: chatCompletionsURL(baseURL),
		apiKey:      strings.TrimSpace(apiKey),
		model:       model,
		http:        newHTTPClient(timeout),
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

// ModelName returns the configured model identifier.
func (p *OpenAIProvider) ModelName() string {
	return p.model
}

func (p *OpenAIProvider) TranslateText(ctx context.Context, text, targetLang string) (string, error) {
	body := map[string]any{
		"model":       p.model,
		"temperature": 0.2,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt(targetLang)},
			{"role": "user", "content": text},
		},
	}

	req := p.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if p.apiKey != "" {
		req.SetAuthToken(p.apiKey)
	}

	resp, err := req.Post(p.endpointURL)
	if err != nil {
		return "", fmt.Errorf("openai translate: %w", err)
	}
	if resp.IsError() {
		if msg := gjson.GetBytes(resp.Body(), "error.message").String(); msg != "" {
			return "", fmt.Errorf("openai translate: %s: %s", resp.Status(), msg)
		}
		return "", statusError("openai", resp)
	}
	return strings.TrimSpace(gjson.GetBytes(resp.Body(), "choices.0.message.content").String()), nil
}

func systemPrompt(targetLang string) string {
	return fmt.Sprintf("You are a professional literary translator. Translate the user's text to %s. Preserve meaning and style.", targetLang)
}

func chatCompletionsURL(base string) string {
	endpoint := strings.TrimSpace(base)
	if endpoint == "" {
		endpoint = DefaultOpenAIBaseURL
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}

	parsed, err := url.Parse(endpoint)
	if err != nil || strings.TrimSpace(parsed.Host) == "" {
		return DefaultOpenAIBaseURL + "/chat/completions"
	}

	path := strings.TrimRight(parsed.Path, "/")
	switch {
	case strings.HasSuffix(path, "/chat/completions"):
		parsed.Path = path
	case path == "":
		parsed.Path = "/v1/chat/completions"
	default:
		parsed.Path = path + "/chat/completions"
	}
	return parsed.String()
}
