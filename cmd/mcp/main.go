package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	sdkauth "github.com/modelcontextprotocol/go-sdk/auth"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/modelcontextprotocol/go-sdk/oauthex"

	"github.com/maraichr/sqlshape/internal/api/middleware"
	"github.com/maraichr/sqlshape/internal/auth"
	"github.com/maraichr/sqlshape/internal/compare"
	"github.com/maraichr/sqlshape/internal/config"
	"github.com/maraichr/sqlshape/internal/evaluation"
	"github.com/maraichr/sqlshape/internal/mcp/tools"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		schemas tools.SchemaLoader
		exec    evaluation.Executor
		sink    evaluation.RecordSink
	)

	// Database (optional: enables db_id schemas and execution match)
	pool, err := postgres.NewPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Warn("database unavailable, only inline schemas accepted", slog.String("error", err.Error()))
	} else {
		defer pool.Close()
		s := store.New(pool)
		schemas, exec = s, s
		logger.Info("connected to database")

		vkClient, err := vk.NewClient(ctx, cfg.Valkey)
		if err != nil {
			logger.Warn("valkey unavailable, schema cache disabled", slog.String("error", err.Error()))
		} else {
			defer vkClient.Close()
			schemas = vk.NewSchemaCache(vkClient, s, cfg.Valkey.SchemaTTL, logger)
			logger.Info("connected to valkey")
		}
	}

	objects, err := store.NewObjectStore(ctx, cfg)
	if err != nil {
		logger.Warn("record sink unavailable, records not persisted", slog.String("error", err.Error()))
	} else if objects != nil {
		sink = objects
	}

	opts := evaluation.Options{
		Compare:   compare.Options{IgnoreValues: cfg.Evaluate.IgnoreValues},
		PGCheck:   cfg.Evaluate.PGCheck,
		ExecMatch: cfg.Evaluate.ExecMatch,
	}

	parseSQL := tools.NewParseSQLHandler(schemas, logger)
	compareSQL := tools.NewCompareSQLHandler(schemas, exec, sink, opts, auth.NewExecGuard(cfg.Auth.Enabled), logger)
	describeSchema := tools.NewDescribeSchemaHandler(schemas, logger)

	// SDK MCP server
	sdkServer := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "sqlshape", Version: "1.0.0"}, nil)

	sdkmcp.AddTool(sdkServer, &sdkmcp.Tool{
		Name:        "parse_sql",
		Description: "Parse a SQL query against a database schema (db_id or inline table -> columns map) into its structural form. Reports tables, clauses and any parse diagnostics such as unknown columns. Accepts a ```sql fenced block.",
	}, tools.WrapHandler[tools.ParseSQLParams](parseSQL))

	sdkmcp.AddTool(sdkServer, &sdkmcp.Tool{
		Name:        "compare_sql",
		Description: "Compare a predicted SQL query with a gold query component by component (select, where, group, order, tables, joins, set operators). Reports exact structural match, per-component scores and tables missing from the schema.",
	}, tools.WrapHandler[tools.CompareSQLParams](compareSQL))

	sdkmcp.AddTool(sdkServer, &sdkmcp.Tool{
		Name:        "describe_schema",
		Description: "List the tables and columns of a database schema by db_id, or the columns of one table.",
	}, tools.WrapHandler[tools.DescribeSchemaParams](describeSchema))

	// Stateless: every tool call carries its own schema reference.
	sdkHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return sdkServer },
		&sdkmcp.StreamableHTTPOptions{Stateless: true},
	)

	mux := http.NewServeMux()

	var mcpHandler http.Handler
	if cfg.Auth.Enabled {
		verifier, err := auth.NewVerifier(ctx, cfg.Auth.IssuerURL, cfg.Auth.PublicIssuer, cfg.Auth.Audience)
		if err != nil {
			logger.Error("failed to init OIDC verifier for MCP", slog.String("error", err.Error()))
			os.Exit(1)
		}

		resourceMetadataURL := ""
		if cfg.MCP.BaseURL != "" {
			resourceMetadataURL = cfg.MCP.BaseURL + "/.well-known/oauth-protected-resource"

			authServerURL := cfg.Auth.PublicIssuer
			if authServerURL == "" {
				authServerURL = cfg.Auth.IssuerURL
			}
			prm := &oauthex.ProtectedResourceMetadata{
				Resource:               cfg.MCP.BaseURL,
				AuthorizationServers:   []string{authServerURL},
				ScopesSupported:        []string{"openid", auth.ScopeRead, auth.ScopeExec},
				BearerMethodsSupported: []string{"header"},
				ResourceName:           "sqlshape MCP server",
			}
			mux.Handle("/.well-known/oauth-protected-resource", sdkauth.ProtectedResourceMetadataHandler(prm))
			logger.Info("protected resource metadata enabled", slog.String("url", resourceMetadataURL))
		}

		mcpHandler = sdkauth.RequireBearerToken(auth.NewMCPTokenVerifier(verifier), &sdkauth.RequireBearerTokenOptions{
			ResourceMetadataURL: resourceMetadataURL,
		})(sdkHandler)
		logger.Info("MCP OIDC auth enabled", slog.String("issuer", cfg.Auth.IssuerURL))
	} else {
		mcpHandler = auth.DevModeMiddleware(logger)(sdkHandler)
	}
	mcpHandler = middleware.Logger(logger)(mcpHandler)
	mux.Handle("/mcp", mcpHandler)
	mux.Handle("/", mcpHandler)

	httpServer := &http.Server{Addr: cfg.MCP.Addr, Handler: mux}

	go func() {
		logger.Info("MCP server listening", slog.String("addr", cfg.MCP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("MCP HTTP server error", slog.String("error", err.Error()))
		}
	}()

	<-ctx.Done()
	logger.Info("MCP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("MCP HTTP shutdown", slog.String("error", err.Error()))
	}
	logger.Info("MCP server stopped")
}
