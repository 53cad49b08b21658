package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTraceMiddleware_HeaderSelection(t *testing.T) {
	var seen string
	handler := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "trace header wins", headers: map[string]string{"X-Trace-ID": "abc", "X-Request-ID": "def"}, want: "abc"},
		{name: "request id fallback", headers: map[string]string{"X-Request-ID": "def"}, want: "def"},
		{name: "oversized id replaced", headers: map[string]string{"X-Trace-ID": strings.Repeat("a", 65)}},
		{name: "control characters replaced", headers: map[string]string{"X-Trace-ID": "bad\nid"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if tt.want != "" {
				assert.Equal(t, tt.want, seen)
			} else {
				_, err := uuid.Parse(seen)
				assert.NoError(t, err)
			}
			assert.Equal(t, seen, rec.Header().Get("X-Trace-ID"))
		})
	}
}

func TestLoggingMiddleware_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := chi.NewRouter()
	r.Use(LoggingMiddleware(zap.New(core)))
	r.Get("/transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	})
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/transactions/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/transactions/{id}", fields["route"])
	assert.EqualValues(t, http.StatusNotFound, fields["status"])
	assert.EqualValues(t, len("missing"), fields["bytes"])

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
}

func TestRoutePattern(t *testing.T) {
	assert.Equal(t, unmatchedRoute, routePattern(httptest.NewRequest(http.MethodGet, "/nowhere", nil)))

	var pattern string
	r := chi.NewRouter()
	r.Get("/bank/accounts/{id}", func(w http.ResponseWriter, r *http.Request) {
		pattern = routePattern(r)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bank/accounts/7", nil))
	assert.Equal(t, "/bank/accounts/{id}", pattern)
}
