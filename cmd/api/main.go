package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/maraichr/sqlshape/internal/api"
	"github.com/maraichr/sqlshape/internal/auth"
	"github.com/maraichr/sqlshape/internal/compare"
	"github.com/maraichr/sqlshape/internal/config"
	"github.com/maraichr/sqlshape/internal/evaluation"
	"github.com/maraichr/sqlshape/internal/store"
	"github.com/maraichr/sqlshape/internal/store/postgres"
	vk "github.com/maraichr/sqlshape/internal/store/valkey"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	_ = godotenv.Load(".env") // ignore error if .env missing

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()
	deps := &api.RouterDeps{
		Options: evaluation.Options{
			Compare:   compare.Options{IgnoreValues: cfg.Evaluate.IgnoreValues},
			PGCheck:   cfg.Evaluate.PGCheck,
			ExecMatch: cfg.Evaluate.ExecMatch,
		},
	}

	// Database (optional: enables db_id schemas and execution match)
	pool, err := postgres.NewPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Warn("database unavailable, db_id schema lookup disabled", slog.String("error", err.Error()))
	} else {
		defer pool.Close()
		s := store.New(pool)
		deps.DB = s
		deps.Schemas = s
		deps.Lister = s
		deps.Executor = s
		logger.Info("connected to database")

		// Valkey (optional: caches introspected schemas)
		vkClient, err := vk.NewClient(ctx, cfg.Valkey)
		if err != nil {
			logger.Warn("valkey connection failed, schema cache disabled", slog.String("error", err.Error()))
		} else {
			defer vkClient.Close()
			cache := vk.NewSchemaCache(vkClient, s, cfg.Valkey.SchemaTTL, logger)
			deps.Schemas = cache
			deps.Cache = cache
			logger.Info("connected to valkey", slog.Duration("schema_ttl", cfg.Valkey.SchemaTTL))
		}
	}

	// Record sink (optional)
	objects, err := store.NewObjectStore(ctx, cfg)
	if err != nil {
		logger.Warn("record sink unavailable, records not persisted", slog.String("sink", cfg.Records.Sink), slog.String("error", err.Error()))
	} else if objects != nil {
		deps.Sink = objects
		logger.Info("record sink enabled", slog.String("sink", cfg.Records.Sink))
	}

	// Auth (optional: AUTH_ENABLED=true with an issuer URL)
	if cfg.Auth.Enabled {
		verifier, err := auth.NewVerifier(ctx, cfg.Auth.IssuerURL, cfg.Auth.PublicIssuer, cfg.Auth.Audience)
		if err != nil {
			logger.Error("failed to init OIDC verifier", slog.String("error", err.Error()))
			os.Exit(1)
		}
		deps.Auth = auth.RequireAuth(verifier, logger)
		deps.ExecGuard = auth.NewExecGuard(true)
		logger.Info("OIDC auth enabled", slog.String("issuer", cfg.Auth.IssuerURL))
	} else {
		deps.Auth = auth.DevModeMiddleware(logger)
	}

	router := api.NewRouter(logger, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting API server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
