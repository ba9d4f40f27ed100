package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		sent       string
		wantCode   int
	}{
		{name: "matching key", configured: "secret", sent: "secret", wantCode: http.StatusOK},
		{name: "wrong key", configured: "secret", sent: "guess", wantCode: http.StatusUnauthorized},
		{name: "missing key", configured: "secret", sent: "", wantCode: http.StatusUnauthorized},
		// An unset server key locks the surface rather than opening it.
		{name: "unconfigured server key", configured: "", sent: "", wantCode: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := APIKeyMiddleware(tc.configured)(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
			if tc.sent != "" {
				req.Header.Set("X-API-Key", tc.sent)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

func TestLimit_BlocksAboveBurst(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Limit(1, 2, time.Minute, logger)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/incidents", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
}

func TestLimit_TracksVisitorsIndependently(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Limit(1, 1, time.Minute, logger)(okHandler())

	first := httptest.NewRequest(http.MethodPost, "/api/v1/incidents", nil)
	first.RemoteAddr = "10.0.0.1:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, first)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The first visitor is now out of budget, a second one is not.
	again := httptest.NewRequest(http.MethodPost, "/api/v1/incidents", nil)
	again.RemoteAddr = "10.0.0.1:5001"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, again)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	other := httptest.NewRequest(http.MethodPost, "/api/v1/incidents", nil)
	other.RemoteAddr = "10.0.0.2:5000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}
