package observability_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/neardup/internal/observability"
)

func serve(t *testing.T, h http.Handler, path string) (int, observability.HealthReport) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body observability.HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return rec.Code, body
}

func pass(name string) observability.ReadyCheck {
	return observability.ReadyCheck{Name: name, Check: func(context.Context) error { return nil }}
}

func TestHealthHandler_ReturnsOK(t *testing.T) {
	t.Parallel()

	code, body := serve(t, observability.HealthHandler("1.2.3"), "/healthz")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "1.2.3", body.Version)
}

func TestReadyHandler_AllChecksPass(t *testing.T) {
	t.Parallel()

	code, body := serve(t, observability.ReadyHandler(pass("model"), pass("index")), "/readyz")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, map[string]string{"model": "ok", "index": "ok"}, body.Checks)
	assert.Empty(t, body.Reason)
}

func TestReadyHandler_NoChecks(t *testing.T) {
	t.Parallel()

	code, body := serve(t, observability.ReadyHandler(), "/readyz")

	assert.Equal(t, http.StatusOK, code)
	assert.Nil(t, body.Checks)
}

func TestReadyHandler_FailingCheck(t *testing.T) {
	t.Parallel()

	fail := observability.ReadyCheck{
		Name:  "model",
		Check: func(context.Context) error { return errors.New("not loaded") },
	}

	code, body := serve(t, observability.ReadyHandler(pass("index"), fail), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, "model: not loaded", body.Reason)
	assert.Equal(t, "ok", body.Checks["index"])
	assert.Equal(t, "not loaded", body.Checks["model"])
}
