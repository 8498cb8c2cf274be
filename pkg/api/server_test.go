package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanjosebrosas/second-brain/pkg/config"
	"github.com/ryanjosebrosas/second-brain/pkg/deps"
)

// Contract: when initialization failed, /health reports the generic
// message and never leaks the underlying error.
func TestHealthReportsGenericInitFailure(t *testing.T) {
	s := NewServer(nil, true, "0")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, "Initialization failed. Check server logs.", body["message"])
	assert.Len(t, body, 2, "no other detail is exposed")
}

func TestAPIRejectedWhenInitFailed(t *testing.T) {
	s := NewServer(nil, true, "0")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/memories", nil)
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIKeyGate(t *testing.T) {
	d := &deps.Deps{Config: &config.Config{APIKey: "sekrit", OperationTimeout: config.DefaultOperationTimeout}}
	s := NewServer(d, false, "0")

	// Missing key → 401.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/recall", nil)
	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong key → 401.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/recall", nil)
	req.Header.Set("X-API-Key", "wrong")
	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Correct key reaches the handler (which rejects the empty body).
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/recall", nil)
	req.Header.Set("X-API-Key", "sekrit")
	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIKeyGateDisabledWhenEmpty(t *testing.T) {
	d := &deps.Deps{Config: &config.Config{OperationTimeout: config.DefaultOperationTimeout}}
	s := NewServer(d, false, "0")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/recall", nil)
	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "gate disabled, handler validation applies")
}
