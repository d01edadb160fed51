package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestUserIDMiddleware(t *testing.T) {
	ts := newTestServer(t)

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/research", nil)
		rec := httptest.NewRecorder()
		ts.server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "X-User-ID header is required")
	})

	t.Run("blank header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/research", nil)
		req.Header.Set("X-User-ID", "   ")
		rec := httptest.NewRecorder()
		ts.server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("oversized header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/research", nil)
		req.Header.Set("X-User-ID", strings.Repeat("u", 300))
		rec := httptest.NewRecorder()
		ts.server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCorrelationIDMiddleware(t *testing.T) {
	ts := newTestServer(t)
	ts.sessions.On("List", mock.Anything, mock.Anything).Return(nil, int64(0), nil)

	t.Run("echoes caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/research", nil)
		req.Header.Set("X-Correlation-ID", "corr-42")
		rec := ts.do(req)

		assert.Equal(t, "corr-42", rec.Header().Get("X-Correlation-ID"))
	})

	t.Run("generates one when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/research", nil)
		rec := ts.do(req)

		assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	})
}

func TestHealthEndpointDoesNotRequireIdentity(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
