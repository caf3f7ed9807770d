package translation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestLibreProviderRequestShape(t *testing.T) {
	t.Parallel()

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translatedText":"Bonjour"}`))
	}))
	defer server.Close()

	provider := NewLibreProvider(server.URL, "secret", time.Second)
	text, err := provider.TranslateText(context.Background(), "Hello", "fr")
	if err != nil {
		t.Fatalf("TranslateText: %v", err)
	}
	if text != "Bonjour" {
		t.Fatalf("expected Bonjour, got %q", text)
	}
	want := map[string]any{"q": "Hello", "source": "auto", "target": "fr", "format": "text", "api_key": "secret"}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("body[%s] = %v, want %v (body=%v)", key, got[key], value, got)
		}
	}
}

func TestLibreProviderOmitsBlankAPIKeyAndFallsBack(t *testing.T) {
	t.Parallel()

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"translation":"Hola"}`))
	}))
	defer server.Close()

	text, err := NewLibreProvider(server.URL, "", time.Second).TranslateText(context.Background(), "Hello", "es")
	if err != nil {
		t.Fatalf("TranslateText: %v", err)
	}
	if text != "Hola" {
		t.Fatalf("expected fallback field, got %q", text)
	}
	if _, ok := got["api_key"]; ok {
		t.Fatalf("api_key must be omitted when unset: %v", got)
	}
}

func TestLibreProviderNullTranslatedTextFallsBack(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"translatedText":null,"translation":"Hola"}`))
	}))
	defer server.Close()

	text, err := NewLibreProvider(server.URL, "", time.Second).TranslateText(context.Background(), "Hello", "es")
	if err != nil {
		t.Fatalf("TranslateText: %v", err)
	}
	if text != "Hola" {
		t.Fatalf("expected fallback for null translatedText, got %q", text)
	}
}

func TestLibreProviderMalformedResponseDegradesToEmpty(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":true}`))
	}))
	defer server.Close()

	text, err := NewLibreProvider(server.URL, "", time.Second).TranslateText(context.Background(), "Hello", "de")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}

func TestLibreProviderNon2xxIsError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewLibreProvider(server.URL, "", time.Second).TranslateText(context.Background(), "Hello", "de")
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected 503 error, got %v", err)
	}
}

func TestDeepLProviderRequestShape(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("auth_key") != "dl-key" {
			t.Errorf("auth_key = %q", r.PostForm.Get("auth_key"))
		}
		if r.PostForm.Get("text") != "Hello" {
			t.Errorf("text = %q", r.PostForm.Get("text"))
		}
		if r.PostForm.Get("target_lang") != "DE" {
			t.Errorf("target_lang = %q", r.PostForm.Get("target_lang"))
		}
		_, _ = w.Write([]byte(`{"translations":[{"detected_source_language":"EN","text":"Hallo"}]}`))
	}))
	defer server.Close()

	text, err := NewDeepLProvider(server.URL, "dl-key", time.Second).TranslateText(context.Background(), "Hello", "de")
	if err != nil {
		t.Fatalf("TranslateText: %v", err)
	}
	if text != "Hallo" {
		t.Fatalf("expected Hallo, got %q", text)
	}
}

func TestDeepLProviderEmptyTranslations(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"translations":[]}`))
	}))
	defer server.Close()

	text, err := NewDeepLProvider(server.URL, "k", time.Second).TranslateText(context.Background(), "Hello", "de")
	if err != nil || text != "" {
		t.Fatalf("expected empty degrade, got %q err=%v", text, err)
	}
}

func TestOpenAIProviderRequestShape(t *testing.T) {
	t.Parallel()

	var (
		path string
		auth string
		body struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Ciao  "}}]}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(server.URL+"/v1", "sk-test", "gpt-test", time.Second)
	text, err := provider.TranslateText(context.Background(), "Hello", "it")
	if err != nil {
		t.Fatalf("TranslateText: %v", err)
	}
	if text != "Ciao" {
		t.Fatalf("expected trimmed content, got %q", text)
	}
	if path != "/v1/chat/completions" {
		t.Fatalf("unexpected path %q", path)
	}
	if auth != "Bearer sk-test" {
		t.Fatalf("unexpected authorization %q", auth)
	}
	if body.Model != "gpt-test" || body.Temperature != 0.2 {
		t.Fatalf("unexpected model/temperature: %+v", body)
	}
	if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Content != "Hello" {
		t.Fatalf("unexpected messages: %+v", body.Messages)
	}
	if !strings.Contains(body.Messages[0].Content, "Translate the user's text to it.") {
		t.Fatalf("unexpected system prompt: %q", body.Messages[0].Content)
	}
}

func TestOpenAIProviderErrorMessage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer server.Close()

	_, err := NewOpenAIProvider(server.URL, "bad", "", time.Second).TranslateText(context.Background(), "Hello", "it")
	if err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Fatalf("expected provider message in error, got %v", err)
	}
}

func TestChatCompletionsURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                             "https://api.openai.com/v1/chat/completions",
		"https://api.openai.com/v1":    "https://api.openai.com/v1/chat/completions",
		"https://api.openai.com/v1/":   "https://api.openai.com/v1/chat/completions",
		"http://127.0.0.1:8845":        "http://127.0.0.1:8845/v1/chat/completions",
		"proxy.local/openai/v1":        "https://proxy.local/openai/v1/chat/completions",
		"http://x/v1/chat/completions": "http://x/v1/chat/completions",
	}
	for input, want := range cases {
		if got := chatCompletionsURL(input); got != want {
			t.Fatalf("chatCompletionsURL(%q) = %q, want %q", input, got, want)
		}
	}
}
