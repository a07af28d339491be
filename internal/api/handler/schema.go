package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maraichr/sqlshape/internal/parser"
	"github.com/maraichr/sqlshape/pkg/apierr"
)

// SchemaLoader loads the schema index of one database.
type SchemaLoader interface {
	LoadSchema(ctx context.Context, dbID string) (*parser.Schema, error)
}

// SchemaInvalidator drops a cached schema.
type SchemaInvalidator interface {
	Invalidate(ctx context.Context, dbID string) error
}

// SchemaLister lists the database schemas that can be used as db_id.
type SchemaLister interface {
	ListSchemas(ctx context.Context) ([]string, error)
}

// schemaRef is embedded in request bodies that need a schema: either an
// inline table -> columns mapping or the id of a database to introspect.
type schemaRef struct {
	DBID   string              `json:"db_id,omitempty"`
	Schema map[string][]string `json:"schema,omitempty"`
}

// resolveSchema prefers an inline schema over db_id.
func resolveSchema(ctx context.Context, loader SchemaLoader, ref schemaRef) (*parser.Schema, *apierr.Error) {
	if len(ref.Schema) > 0 {
		return parser.NewSchema(ref.Schema), nil
	}
	if ref.DBID == "" {
		return nil, apierr.SchemaRequired()
	}
	return loadSchema(ctx, loader, ref.DBID)
}

func loadSchema(ctx context.Context, loader SchemaLoader, dbID string) (*parser.Schema, *apierr.Error) {
	if err := validateDBID(dbID); err != nil {
		return nil, err
	}
	if loader == nil {
		return nil, apierr.NotImplemented("Schema lookup by db_id")
	}
	schema, err := loader.LoadSchema(ctx, dbID)
	if err != nil {
		if apierr.IsNotFound(err) {
			return nil, apierr.SchemaNotFound(dbID)
		}
		return nil, apierr.SchemaLoadFailed(err)
	}
	return schema, nil
}

type SchemaHandler struct {
	logger  *slog.Logger
	schemas SchemaLoader
	cache   SchemaInvalidator
	lister  SchemaLister
}

func NewSchemaHandler(logger *slog.Logger, schemas SchemaLoader, cache SchemaInvalidator, lister SchemaLister) *SchemaHandler {
	return &SchemaHandler{logger: logger, schemas: schemas, cache: cache, lister: lister}
}

// List returns the names usable as db_id.
func (h *SchemaHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		writeAPIError(w, h.logger, apierr.NotImplemented("Schema listing"))
		return
	}
	names, err := h.lister.ListSchemas(r.Context())
	if err != nil {
		writeAPIError(w, h.logger, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"schemas": names})
}

func (h *SchemaHandler) Get(w http.ResponseWriter, r *http.Request) {
	dbID := chi.URLParam(r, "dbID")

	schema, apiErr := loadSchema(r.Context(), h.schemas, dbID)
	if apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"db_id":  dbID,
		"tables": schema.Mapping(),
	})
}

// Invalidate drops the cached schema so the next lookup introspects the
// database again.
func (h *SchemaHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	dbID := chi.URLParam(r, "dbID")
	if err := validateDBID(dbID); err != nil {
		writeAPIError(w, h.logger, err)
		return
	}
	if h.cache == nil {
		writeAPIError(w, h.logger, apierr.NotImplemented("Schema cache"))
		return
	}
	if err := h.cache.Invalidate(r.Context(), dbID); err != nil {
		writeAPIError(w, h.logger, apierr.InternalError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
