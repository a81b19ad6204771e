package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saludplena/claims-engine/internal/infrastructure/auth/token"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	codec, err := token.NewCodec("router-test-secret", time.Hour)
	require.NoError(t, err)

	return NewRouter(RouterConfig{
		TokenVerifier:    codec,
		JobTriggerSecret: "router-job-secret",
		Mode:             "test",
	})
}

func TestRouter_APIRequiresAuth(t *testing.T) {
	r := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/internments/some-id", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_UnknownRouteIs404(t *testing.T) {
	r := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_NilHandlersLeaveRoutesUnregistered(t *testing.T) {
	r := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_RequestIDEchoed(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/internments/x", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "trace-123", rec.Header().Get("X-Request-ID"))
}
