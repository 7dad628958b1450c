package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeProbe(name string, critical bool, err error) dependencyProbe {
	return dependencyProbe{
		name:     name,
		critical: critical,
		ping:     func(context.Context) error { return err },
	}
}

func readinessFor(t *testing.T, probes []dependencyProbe) (int, ReadinessResponse) {
	t.Helper()
	h := newHealthHandler(probes, "test", "0.0.0")

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var body ReadinessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec.Code, body
}

func TestReadinessAllDependenciesUp(t *testing.T) {
	code, body := readinessFor(t, []dependencyProbe{
		fakeProbe("postgres", true, nil),
		fakeProbe("redis", false, nil),
	})

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, body.Dependencies)
}

func TestReadinessOptionalDependencyDegrades(t *testing.T) {
	code, body := readinessFor(t, []dependencyProbe{
		fakeProbe("postgres", true, nil),
		fakeProbe("redis", false, errors.New("connection refused")),
	})

	// Lock service loss degrades but keeps the instance in rotation.
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "down", body.Dependencies["redis"])
}

func TestReadinessCriticalDependencyFails(t *testing.T) {
	code, body := readinessFor(t, []dependencyProbe{
		fakeProbe("postgres", true, errors.New("dial timeout")),
		fakeProbe("redis", false, nil),
	})

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "down", body.Dependencies["postgres"])
}

func TestReadinessOptionalFailureNeverMasksError(t *testing.T) {
	code, body := readinessFor(t, []dependencyProbe{
		fakeProbe("postgres", true, errors.New("dial timeout")),
		fakeProbe("redis", false, errors.New("connection refused")),
	})

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "error", body.Status)
}
