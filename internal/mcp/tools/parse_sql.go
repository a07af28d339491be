package tools

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/maraichr/sqlshape/internal/compare"
	"github.com/maraichr/sqlshape/internal/mcp"
	"github.com/maraichr/sqlshape/internal/parser"
	"github.com/maraichr/sqlshape/internal/parser/sqlutil"
)

// ParseSQLParams are the parameters for the parse_sql tool.
type ParseSQLParams struct {
	SQL               string              `json:"sql"`
	DBID              string              `json:"db_id,omitempty"`
	Schema            map[string][]string `json:"schema,omitempty"`
	IncludeIR         bool                `json:"include_ir,omitempty"`
	MaxResponseTokens int                 `json:"max_response_tokens,omitempty"`
}

// ParseSQLHandler implements the parse_sql MCP tool.
type ParseSQLHandler struct {
	schemas SchemaLoader
	logger  *slog.Logger
}

// NewParseSQLHandler creates a new handler. schemas may be nil.
func NewParseSQLHandler(schemas SchemaLoader, logger *slog.Logger) *ParseSQLHandler {
	return &ParseSQLHandler{schemas: schemas, logger: logger}
}

// Handle parses one query and reports its structure and diagnostics.
func (h *ParseSQLHandler) Handle(ctx context.Context, params ParseSQLParams) (string, error) {
	sql := sqlutil.ExtractSQL(params.SQL)
	if sql == "" {
		return "", fmt.Errorf("sql is required")
	}
	schema, err := ResolveSchema(ctx, h.schemas, params.DBID, params.Schema)
	if err != nil {
		return "", err
	}

	doc := parser.Parse(schema, sql)
	diags := doc.Diagnostics.Global

	rb := mcp.NewResponseBuilder(params.MaxResponseTokens)
	status := "clean"
	if len(diags) > 0 {
		status = fmt.Sprintf("%d diagnostic(s)", len(diags))
	}
	rb.AddHeader(fmt.Sprintf("**Parse** (%s, dialect %s)", status, sqlutil.DetectDialect(sql)))
	rb.AddSection("Structure", "- "+strings.Join(mcp.SummarizeSQL(doc), "\n- "))
	if aliases := formatAliases(parser.AliasMap(schema, sql)); aliases != "" {
		rb.AddSection("Aliases", aliases)
	}
	rb.AddSection("Canonical", "`"+compare.Canonical(doc, compare.Options{})+"`")

	if len(diags) > 0 {
		rb.AddLine("### Diagnostics")
		for _, d := range diags {
			if !rb.AddItem(mcp.FormatDiagnostic(d)) {
				break
			}
		}
		rb.AddLine("")
	}
	if params.IncludeIR {
		rb.AddCodeBlock("json", mcp.IndentJSON(doc))
	}

	return rb.FinalizeWithHints(len(diags), rb.ItemCount(), mcp.HintsForParse(doc, params.DBID)), nil
}

// formatAliases lists the aliases that differ from the table they name.
func formatAliases(aliases map[string]string) string {
	var lines []string
	for _, alias := range slices.Sorted(maps.Keys(aliases)) {
		if table := aliases[alias]; table != alias {
			lines = append(lines, fmt.Sprintf("- %s → %s", alias, table))
		}
	}
	return strings.Join(lines, "\n")
}
