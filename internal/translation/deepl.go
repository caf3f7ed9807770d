package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const DefaultDeepLURL = "https://api-free.deepl.com/v2/translate"

// DeepLProvider calls the DeepL v2 translate endpoint with form-encoded input.
type DeepLProvider struct {
	url    string
	apiKey string
	http   *resty.Client
}

func NewDeepLProvider(url, apiKey string, timeout time.Duration) *DeepLProvider {
	url = strings.TrimSpace(url)
	if url == "" {
		url = DefaultDeepLURL
	}
	return &DeepLProvider{
		url:    url,
		apiKey: strings.TrimSpace(apiKey),
		http:   newHTTPClient(timeout),
	}
}

func (p *DeepLProvider) Name() string {
	return "deepl"
}

func (p *DeepLProvider) TranslateText(ctx context.Context, text, targetLang string) (string, error) {
	resp, err := p.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"auth_key":    p.apiKey,
			"text":        text,
			"target_lang": strings.ToUpper(targetLang),
		}).
		Post(p.url)
	if err != nil {
		return "", fmt.Errorf("deepl translate: %w", err)
	}
	if resp.IsError() {
		return "", statusError("deepl", resp)
	}
	return gjson.GetBytes(resp.Body(), "translations.0.text").String(), nil
}
