package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	apihandler "github.com/maraichr/sqlshape/internal/api/handler"
	apimw "github.com/maraichr/sqlshape/internal/api/middleware"
	"github.com/maraichr/sqlshape/internal/auth"
	"github.com/maraichr/sqlshape/internal/evaluation"
)

// RouterDeps holds optional dependencies for the router. Every field may be
// left nil; inline schemas work without any of them.
type RouterDeps struct {
	DB       apihandler.Pinger
	Schemas  apihandler.SchemaLoader
	Lister   apihandler.SchemaLister
	Cache    apihandler.SchemaInvalidator
	Executor evaluation.Executor
	Sink     evaluation.RecordSink
	Options  evaluation.Options

	// Auth authenticates /api/v1 requests: auth.RequireAuth when OIDC is
	// enabled, auth.DevModeMiddleware otherwise. ExecGuard gates exec_match.
	Auth      func(http.Handler) http.Handler
	ExecGuard auth.ExecGuard
}

func NewRouter(logger *slog.Logger, deps *RouterDeps) *chi.Mux {
	if deps == nil {
		deps = &RouterDeps{}
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(apimw.Logger(logger))
	r.Use(apimw.CORS)
	r.Use(chimw.Recoverer)

	// Health checks
	health := apihandler.NewHealthHandler(deps.DB)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if deps.Auth != nil {
			r.Use(deps.Auth)
			r.Use(auth.RequireScope(auth.ScopeRead, auth.ScopeExec))
		}

		parse := apihandler.NewParseHandler(logger, deps.Schemas)
		r.Post("/parse", parse.Parse)

		compare := apihandler.NewCompareHandler(logger, deps.Schemas, deps.Executor, deps.Sink, deps.Options, deps.ExecGuard)
		r.Post("/compare", compare.Compare)

		schemas := apihandler.NewSchemaHandler(logger, deps.Schemas, deps.Cache, deps.Lister)
		r.Get("/schemas", schemas.List)
		r.Route("/schemas/{dbID}", func(r chi.Router) {
			r.Get("/", schemas.Get)
			r.Delete("/cache", schemas.Invalidate)
		})
	})

	return r
}
