package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/financeflow/internal/auth"
	"github.com/mmynk/financeflow/internal/config"
	"github.com/mmynk/financeflow/internal/server"
	"github.com/mmynk/financeflow/internal/service"
	"github.com/mmynk/financeflow/internal/storage/sqlite"
	"github.com/mmynk/financeflow/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Env)
	logger.Info("Starting FinanceFlow server", "env", cfg.Env, "port", cfg.Port)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", cfg.DBPath)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)
	aggregator := cfg.Aggregator()

	staticPath := cfg.StaticPath
	if staticPath != "" {
		if abs, err := filepath.Abs(staticPath); err == nil {
			staticPath = abs
		}
		logger.Info("Serving static files", "path", staticPath)
	}

	router := server.NewRouter(server.Config{
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		StaticPath:     staticPath,
		JWTManager:     jwtManager,
		Registry:       registry,
		Health:         store.Ping,
		Auth:           service.NewAuthService(authenticator, jwtManager, logger),
		Profile:        service.NewProfileService(store, authenticator),
		Ledger:         service.NewLedgerService(store, aggregator, cfg.Split.BalanceTolerance),
		Friend:         service.NewFriendService(store, aggregator),
		Notification:   service.NewNotificationService(store, aggregator),
	})

	// h2c serves HTTP/2 without TLS for Connect clients.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("Connect server starting", "address", srv.Addr, "url", "http://localhost"+srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}
