package tools

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/maraichr/sqlshape/internal/auth"
	"github.com/maraichr/sqlshape/internal/parser"
)

// ToolHandler is the interface that all tool handlers implement.
type ToolHandler[P any] interface {
	Handle(ctx context.Context, params P) (string, error)
}

// WrapHandler adapts a ToolHandler into the SDK's AddTool callback.
// It handles nil params by using a zero value, puts the bearer token's
// principal in ctx, and maps errors to CallToolResult.
func WrapHandler[P any](h ToolHandler[P]) func(context.Context, *sdkmcp.CallToolRequest, *P) (*sdkmcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, params *P) (*sdkmcp.CallToolResult, any, error) {
		if params == nil {
			params = new(P)
		}
		if req != nil && req.Extra != nil {
			if p, ok := auth.PrincipalFromTokenInfo(req.Extra.TokenInfo); ok {
				ctx = auth.WithPrincipal(ctx, p)
			}
		}
		result, err := h.Handle(ctx, *params)
		if err != nil {
			return &sdkmcp.CallToolResult{
				IsError: true,
				Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: err.Error()}},
			}, nil, nil
		}
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: result}},
		}, nil, nil
	}
}

// SchemaLoader loads the schema index of one database.
type SchemaLoader interface {
	LoadSchema(ctx context.Context, dbID string) (*parser.Schema, error)
}

var dbIDRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ResolveSchema prefers an inline schema over dbID.
func ResolveSchema(ctx context.Context, loader SchemaLoader, dbID string, inline map[string][]string) (*parser.Schema, error) {
	if len(inline) > 0 {
		return parser.NewSchema(inline), nil
	}
	if dbID == "" {
		return nil, fmt.Errorf("either schema or db_id is required")
	}
	return LoadSchema(ctx, loader, dbID)
}

// LoadSchema translates loader errors into user-friendly messages.
func LoadSchema(ctx context.Context, loader SchemaLoader, dbID string) (*parser.Schema, error) {
	if !dbIDRegex.MatchString(dbID) {
		return nil, fmt.Errorf("invalid db_id %q", dbID)
	}
	if loader == nil {
		return nil, fmt.Errorf("schema lookup by db_id is not configured; pass an inline schema")
	}
	schema, err := loader.LoadSchema(ctx, dbID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("schema %s not found", dbID)
		}
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return schema, nil
}
