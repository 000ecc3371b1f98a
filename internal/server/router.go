// Package server assembles the HTTP surface: Connect services, health and
// metrics endpoints, and the static frontend.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/financeflow/internal/auth"
	"github.com/mmynk/financeflow/internal/middleware"
	"github.com/mmynk/financeflow/pkg/api/apiconnect"
)

// Config holds router configuration.
type Config struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int

	// StaticPath is the frontend directory. Empty disables static serving.
	StaticPath string

	JWTManager *auth.JWTManager

	// Registry receives the RPC metrics and is served on /metrics.
	Registry *prometheus.Registry

	// Health reports whether dependencies are reachable.
	Health func(ctx context.Context) error

	Auth         apiconnect.AuthServiceHandler
	Profile      apiconnect.ProfileServiceHandler
	Ledger       apiconnect.LedgerServiceHandler
	Friend       apiconnect.FriendServiceHandler
	Notification apiconnect.NotificationServiceHandler
}

// NewRouter creates the HTTP router.
func NewRouter(cfg Config) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.RateLimitRPS > 0 {
		r.Use(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 0).Middleware)
	}

	r.Get("/healthz", healthHandler(cfg.Health))
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{Registry: cfg.Registry}))

	metrics := middleware.NewMetrics(cfg.Registry)
	opts := []connect.HandlerOption{
		connect.WithInterceptors(
			metrics.Interceptor(),
			middleware.RequireAuth(cfg.JWTManager, apiconnect.PublicProcedures...),
			middleware.LoggingInterceptor(cfg.Logger),
		),
	}

	mount := func(path string, h http.Handler) {
		r.Handle(path+"*", h)
	}
	if cfg.Auth != nil {
		mount(apiconnect.NewAuthServiceHandler(cfg.Auth, opts...))
	}
	if cfg.Profile != nil {
		mount(apiconnect.NewProfileServiceHandler(cfg.Profile, opts...))
	}
	if cfg.Ledger != nil {
		mount(apiconnect.NewLedgerServiceHandler(cfg.Ledger, opts...))
	}
	if cfg.Friend != nil {
		mount(apiconnect.NewFriendServiceHandler(cfg.Friend, opts...))
	}
	if cfg.Notification != nil {
		mount(apiconnect.NewNotificationServiceHandler(cfg.Notification, opts...))
	}

	if cfg.StaticPath != "" {
		r.NotFound(staticHandler(cfg.StaticPath))
	}

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				slog.Error("Health check failed", "error", err)
				status, code = "unavailable", http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}

// staticHandler serves the frontend. Unknown paths fall back to index.html so
// client-side routes work.
func staticHandler(staticPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/financeflow.v1.") {
			http.NotFound(w, r)
			return
		}

		urlPath := r.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}
		filePath := filepath.Join(staticPath, filepath.Clean("/"+urlPath))

		if info, err := os.Stat(filePath); err != nil || info.IsDir() {
			http.ServeFile(w, r, filepath.Join(staticPath, "index.html"))
			return
		}
		http.ServeFile(w, r, filePath)
	}
}
