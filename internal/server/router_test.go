package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/financeflow/internal/auth"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	healthy := true
	router := NewRouter(Config{
		JWTManager: auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour),
		Health: func(ctx context.Context) error {
			if !healthy {
				return errors.New("database is gone")
			}
			return nil
		},
	})

	rec := get(t, router, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	healthy = false
	rec = get(t, router, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	builds := prometheus.NewCounter(prometheus.CounterOpts{Name: "financeflow_test_builds_total", Help: "Test counter."})
	reg.MustRegister(builds)
	builds.Add(3)

	router := NewRouter(Config{
		JWTManager: auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour),
		Registry:   reg,
	})

	rec := get(t, router, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "financeflow_test_builds_total 3")
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	router := NewRouter(Config{
		JWTManager: auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour),
		StaticPath: dir,
	})

	tests := []struct {
		path string
		code int
		body string
	}{
		{"/", http.StatusOK, "<html>app</html>"},
		{"/assets/app.js", http.StatusOK, "console.log(1)"},
		{"/friends/42", http.StatusOK, "<html>app</html>"},
		{"/financeflow.v1.LedgerService/Unknown", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, router, tt.path)
			assert.Equal(t, tt.code, rec.Code)
			if tt.body != "" {
				assert.True(t, strings.Contains(rec.Body.String(), tt.body), rec.Body.String())
			}
		})
	}
}
