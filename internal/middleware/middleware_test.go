package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/financeflow/internal/auth"
	"github.com/mmynk/financeflow/internal/models"
	"github.com/mmynk/financeflow/pkg/api"
	"github.com/mmynk/financeflow/pkg/api/apiconnect"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func whoAmI(ctx context.Context, _ *connect.Request[api.GetProfileRequest]) (*connect.Response[api.ProfileResponse], error) {
	return connect.NewResponse(&api.ProfileResponse{
		User: &models.User{ID: GetUserID(ctx), Username: GetUsername(ctx)},
	}), nil
}

func setupInterceptedServer(t *testing.T, metrics *Metrics) (string, *auth.JWTManager) {
	t.Helper()
	jwtManager := auth.NewJWTManager(testSecret, time.Hour)
	opts := []connect.HandlerOption{
		connect.WithCodec(apiconnect.Codec{}),
		connect.WithInterceptors(
			metrics.Interceptor(),
			RequireAuth(jwtManager, apiconnect.AuthServiceLoginProcedure),
			LoggingInterceptor(nil),
		),
	}

	mux := http.NewServeMux()
	mux.Handle(apiconnect.ProfileServiceGetProfileProcedure,
		connect.NewUnaryHandler(apiconnect.ProfileServiceGetProfileProcedure, whoAmI, opts...))
	mux.Handle(apiconnect.AuthServiceLoginProcedure,
		connect.NewUnaryHandler(apiconnect.AuthServiceLoginProcedure, whoAmI, opts...))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server.URL, jwtManager
}

func call(t *testing.T, baseURL, procedure, authHeader string) (*connect.Response[api.ProfileResponse], error) {
	t.Helper()
	client := connect.NewClient[api.GetProfileRequest, api.ProfileResponse](
		http.DefaultClient, baseURL+procedure, connect.WithCodec(apiconnect.Codec{}))
	req := connect.NewRequest(&api.GetProfileRequest{})
	if authHeader != "" {
		req.Header().Set("Authorization", authHeader)
	}
	return client.CallUnary(context.Background(), req)
}

func TestRequireAuth(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	baseURL, jwtManager := setupInterceptedServer(t, metrics)

	token, err := jwtManager.Generate(&models.User{ID: "u-1", Username: "alice"})
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		resp, err := call(t, baseURL, apiconnect.ProfileServiceGetProfileProcedure, "Bearer "+token)
		require.NoError(t, err)
		assert.Equal(t, "u-1", resp.Msg.User.ID)
		assert.Equal(t, "alice", resp.Msg.User.Username)
	})

	rejected := map[string]string{
		"missing header": "",
		"wrong scheme":   "Token " + token,
		"garbage token":  "Bearer not-a-jwt",
	}
	for name, header := range rejected {
		t.Run(name, func(t *testing.T) {
			_, err := call(t, baseURL, apiconnect.ProfileServiceGetProfileProcedure, header)
			assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
		})
	}

	t.Run("public procedure", func(t *testing.T) {
		resp, err := call(t, baseURL, apiconnect.AuthServiceLoginProcedure, "")
		require.NoError(t, err)
		assert.Empty(t, resp.Msg.User.ID)
	})

	ok := metrics.requests.WithLabelValues(apiconnect.ProfileServiceGetProfileProcedure, "ok")
	unauth := metrics.requests.WithLabelValues(apiconnect.ProfileServiceGetProfileProcedure, connect.CodeUnauthenticated.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(ok))
	assert.Equal(t, 3.0, testutil.ToFloat64(unauth))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.latency))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, hit("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, hit("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, hit("10.0.0.2"), "limits are per client")

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusNoContent, hit("10.0.0.1"), "tokens refill")

	now = now.Add(2 * time.Minute)
	hit("10.0.0.3")
	rl.mu.Lock()
	_, kept := rl.visitors["10.0.0.1"]
	rl.mu.Unlock()
	assert.False(t, kept, "idle visitors are dropped")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:1234"
	assert.Equal(t, "192.0.2.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
