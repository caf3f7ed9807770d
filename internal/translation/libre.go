package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// DefaultLibreTranslateURL is used when no endpoint is configured.
const DefaultLibreTranslateURL = "http://localhost:5000/translate"

// LibreProvider calls a LibreTranslate /translate endpoint.
type LibreProvider struct {
	url    string
	apiKey string
	http   *resty.Client
}

func NewLibreProvider(url, apiKey string, timeout time.Duration) *LibreProvider {
	url = strings.TrimSpace(url)
	if url == "" {
		url = DefaultLibreTranslateURL
	}
	return &LibreProvider{
		url:    url,
		apiKey: strings.TrimSpace(apiKey),
		http:   newHTTPClient(timeout),
	}
}

func (p *LibreProvider) Name() string {
	return "libre"
}

func (p *LibreProvider) TranslateText(ctx context.Context, text, targetLang string) (string, error) {
	body := map[string]any{
		"q":      text,
		"source": "auto",
		"target": targetLang,
		"format": "text",
	}
	if p.apiKey != "" {
		body["api_key"] = p.apiKey
	}

	resp, err := p.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(p.url)
	if err != nil {
		return "", fmt.Errorf("libre translate: %w", err)
	}
	if resp.IsError() {
		return "", statusError("libre", resp)
	}

	parsed := gjson.ParseBytes(resp.Body())
	if v := parsed.Get("translatedText"); v.Exists() && v.Type != gjson.Null {
		return v.String(), nil
	}
	return parsed.Get("translation").String(), nil
}
