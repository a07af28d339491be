package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maraichr/sqlshape/internal/mcp"
)

// DescribeSchemaParams are the parameters for the describe_schema tool.
type DescribeSchemaParams struct {
	DBID              string `json:"db_id"`
	Table             string `json:"table,omitempty"`
	MaxResponseTokens int    `json:"max_response_tokens,omitempty"`
}

// DescribeSchemaHandler implements the describe_schema MCP tool.
type DescribeSchemaHandler struct {
	schemas SchemaLoader
	logger  *slog.Logger
}

func NewDescribeSchemaHandler(schemas SchemaLoader, logger *slog.Logger) *DescribeSchemaHandler {
	return &DescribeSchemaHandler{schemas: schemas, logger: logger}
}

// Handle lists the tables of a database, or the columns of one table.
func (h *DescribeSchemaHandler) Handle(ctx context.Context, params DescribeSchemaParams) (string, error) {
	schema, err := LoadSchema(ctx, h.schemas, params.DBID)
	if err != nil {
		return "", err
	}

	rb := mcp.NewResponseBuilder(params.MaxResponseTokens)
	if params.Table != "" {
		if !schema.HasTable(params.Table) {
			return "", fmt.Errorf("table %s not found in %s", params.Table, params.DBID)
		}
		cols := schema.Columns(params.Table)
		rb.AddHeader(fmt.Sprintf("**%s.%s** (%d columns)", params.DBID, strings.ToLower(params.Table), len(cols)))
		for _, c := range cols {
			if !rb.AddItem("`" + c + "`") {
				break
			}
		}
		return rb.Finalize(len(cols), rb.ItemCount()), nil
	}

	tables := schema.Tables()
	rb.AddHeader(fmt.Sprintf("**%s** (%d tables)", params.DBID, len(tables)))
	for _, t := range tables {
		if !rb.AddItem(fmt.Sprintf("`%s`: %s", t, strings.Join(schema.Columns(t), ", "))) {
			break
		}
	}
	return rb.Finalize(len(tables), rb.ItemCount()), nil
}
