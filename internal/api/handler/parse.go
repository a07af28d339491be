package handler

import (
	"log/slog"
	"net/http"

	"github.com/maraichr/sqlshape/internal/compare"
	"github.com/maraichr/sqlshape/internal/parser"
	"github.com/maraichr/sqlshape/internal/parser/pgsql"
	"github.com/maraichr/sqlshape/internal/parser/sqlutil"
)

type ParseHandler struct {
	logger  *slog.Logger
	schemas SchemaLoader
}

func NewParseHandler(logger *slog.Logger, schemas SchemaLoader) *ParseHandler {
	return &ParseHandler{logger: logger, schemas: schemas}
}

type parseResponse struct {
	IR          *parser.SQL         `json:"ir"`
	Diagnostics []parser.Diagnostic `json:"diagnostics"`
	Clean       bool                `json:"clean"`
	Dialect     string              `json:"dialect"`
	// Canonical is equal for two queries exactly when they match structurally.
	Canonical string            `json:"canonical"`
	Aliases   map[string]string `json:"aliases"`
	PGCheck   *pgsql.Result     `json:"pg_check,omitempty"`
}

func (h *ParseHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		schemaRef
		SQL     string `json:"sql"`
		PGCheck bool   `json:"pg_check"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeAPIError(w, h.logger, err)
		return
	}
	if err := validateSQL("sql", req.SQL); err != nil {
		writeAPIError(w, h.logger, err)
		return
	}

	schema, apiErr := resolveSchema(r.Context(), h.schemas, req.schemaRef)
	if apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}

	doc := parser.Parse(schema, req.SQL)
	resp := parseResponse{
		IR:          doc,
		Diagnostics: doc.Diagnostics.Global,
		Clean:       doc.Clean(),
		Dialect:     sqlutil.DetectDialect(req.SQL),
		Canonical:   compare.Canonical(doc, compare.Options{}),
		Aliases:     parser.AliasMap(schema, req.SQL),
	}
	if resp.Diagnostics == nil {
		resp.Diagnostics = []parser.Diagnostic{}
	}
	if req.PGCheck || resp.Dialect == sqlutil.DialectPostgres {
		res := pgsql.Check(req.SQL)
		resp.PGCheck = &res
	}

	writeJSON(w, http.StatusOK, resp)
}
