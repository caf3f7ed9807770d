package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareCountsMatchedRoute(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/api/v1/novels/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/novels/:id", "204"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/novels/abc", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/novels/:id", "204"))
	if after-before != 1 {
		t.Fatalf("expected one counted request, got %v", after-before)
	}
}

func TestRecordProviderCallOutcome(t *testing.T) {
	before := testutil.ToFloat64(translationCalls.WithLabelValues("deepl", "error"))
	RecordProviderCall("deepl", 10*time.Millisecond, errors.New("boom"))
	after := testutil.ToFloat64(translationCalls.WithLabelValues("deepl", "error"))
	if after-before != 1 {
		t.Fatalf("expected error outcome to increment, got %v", after-before)
	}
}

func TestHandlerExposesNamespace(t *testing.T) {
	RecordCacheLookup(true)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "webnovels_translation_chapter_cache_total") {
		t.Fatalf("expected cache counter in exposition output")
	}
}
