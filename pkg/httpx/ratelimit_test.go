package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("allows requests within the limit", func(t *testing.T) {
		cfg := RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3}
		h := Chain(okHandler(), RateLimitByIP(cfg))

		for range 3 {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.7:1234"
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("rejects requests over the limit with Retry-After", func(t *testing.T) {
		cfg := RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
		h := Chain(okHandler(), RateLimitByIP(cfg))

		first := httptest.NewRequest(http.MethodGet, "/", nil)
		first.RemoteAddr = "203.0.113.8:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, first)
		require.Equal(t, http.StatusOK, rec.Code)

		second := httptest.NewRequest(http.MethodGet, "/", nil)
		second.RemoteAddr = "203.0.113.8:5678"
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, second)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("limits keys independently", func(t *testing.T) {
		cfg := RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
		h := Chain(okHandler(), RateLimitByIP(cfg))

		a := httptest.NewRequest(http.MethodGet, "/", nil)
		a.RemoteAddr = "203.0.113.9:1000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, a)
		require.Equal(t, http.StatusOK, rec.Code)

		b := httptest.NewRequest(http.MethodGet, "/", nil)
		b.RemoteAddr = "203.0.113.10:1000"
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, b)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestIPKeyExtractor(t *testing.T) {
	t.Parallel()

	t.Run("prefers X-Forwarded-For", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
		req.RemoteAddr = "10.0.0.2:4321"
		require.Equal(t, "198.51.100.1", IPKeyExtractor(req))
	})

	t.Run("falls back to RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.4:4321"
		require.Equal(t, "192.0.2.4", IPKeyExtractor(req))
	})
}
