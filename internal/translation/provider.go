package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Provider translates text into targetLang. Implementations make exactly one
// outbound request per call. A response without the expected field yields ""
// and a nil error; transport failures and non-2xx statuses are errors.
type Provider interface {
	TranslateText(ctx context.Context, text, targetLang string) (string, error)
	Name() string
}

// DefaultTimeout bounds a single provider request.
const DefaultTimeout = 30 * time.Second

func newHTTPClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "webnovels-translator/1.0")
}

func statusError(provider string, resp *resty.Response) error {
	return fmt.Errorf("%s translate: %s; body: %s", provider, resp.Status(), abbreviate(strings.TrimSpace(resp.String()), 512))
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// RateLimitedProvider spaces outbound calls of the wrapped provider.
type RateLimitedProvider struct {
	Provider
	limiter *rate.Limiter
}

// NewRateLimitedProvider wraps p with a limiter allowing perSecond calls.
// A non-positive rate returns p unchanged.
func NewRateLimitedProvider(p Provider, perSecond float64) Provider {
	if p == nil || perSecond <= 0 {
		return p
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedProvider{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (p *RateLimitedProvider) TranslateText(ctx context.Context, text, targetLang string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%s rate limit: %w", p.Name(), err)
	}
	return p.Provider.TranslateText(ctx, text, targetLang)
}
