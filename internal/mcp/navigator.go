package mcp

import (
	"github.com/maraichr/sqlshape/internal/parser"
	"github.com/maraichr/sqlshape/pkg/models"
)

// NavigationHints suggests next tool calls based on current results.
type NavigationHints struct {
	Steps []NavigationStep `json:"steps"`
}

// NavigationStep is a suggested next MCP tool call.
type NavigationStep struct {
	Tool            string            `json:"tool"`
	Description     string            `json:"description"`
	Params          map[string]string `json:"params,omitempty"`
	EstimatedTokens int               `json:"estimated_tokens,omitempty"`
}

// HintsForParse suggests follow-ups after parse_sql.
func HintsForParse(doc *parser.SQL, dbID string) *NavigationHints {
	h := &NavigationHints{}
	if !doc.Clean() && dbID != "" {
		h.Steps = append(h.Steps, NavigationStep{
			Tool:            "describe_schema",
			Description:     "Check table and column names the parser could not resolve",
			Params:          map[string]string{"db_id": dbID},
			EstimatedTokens: 800,
		})
	}
	h.Steps = append(h.Steps, NavigationStep{
		Tool:            "compare_sql",
		Description:     "Score this query against a reference query",
		EstimatedTokens: 500,
	})
	return h
}

// HintsForCompare suggests follow-ups after compare_sql.
func HintsForCompare(rec *models.Record) *NavigationHints {
	h := &NavigationHints{}
	if rec.LowConfidence {
		h.Steps = append(h.Steps, NavigationStep{
			Tool:            "parse_sql",
			Description:     "Inspect the diagnostics of the predicted query",
			Params:          map[string]string{"db_id": rec.DBID},
			EstimatedTokens: 1200,
		})
	}
	if len(rec.MissingTables) > 0 && rec.DBID != "" {
		h.Steps = append(h.Steps, NavigationStep{
			Tool:            "describe_schema",
			Description:     "List the tables that do exist",
			Params:          map[string]string{"db_id": rec.DBID},
			EstimatedTokens: 800,
		})
	}
	return h
}
