package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
)

func TestRequestIDReusesSaneHeader(t *testing.T) {
	handler := RequestID(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, "req-123", resp.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("a", maxRequestIDLen+1))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	got := resp.Header().Get(requestIDHeader)
	require.NotEmpty(t, got)
	assert.Len(t, got, 36)
}

func TestSanitizeRequestID(t *testing.T) {
	assert.Equal(t, "", sanitizeRequestID("has space"))
	assert.Equal(t, "", sanitizeRequestID("  "))
	assert.Equal(t, "abc", sanitizeRequestID(" abc "))
}

func TestRecovererWritesInternalError(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.NotContains(t, resp.Body.String(), "boom")
}
