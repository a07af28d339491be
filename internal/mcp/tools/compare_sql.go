package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maraichr/sqlshape/internal/auth"
	"github.com/maraichr/sqlshape/internal/evaluation"
	"github.com/maraichr/sqlshape/internal/mcp"
	"github.com/maraichr/sqlshape/pkg/models"
)

// CompareSQLParams are the parameters for the compare_sql tool.
type CompareSQLParams struct {
	GoldSQL           string              `json:"gold_sql"`
	PredSQL           string              `json:"pred_sql"`
	DBID              string              `json:"db_id,omitempty"`
	Schema            map[string][]string `json:"schema,omitempty"`
	IgnoreValues      bool                `json:"ignore_values,omitempty"`
	ExecMatch         bool                `json:"exec_match,omitempty"`
	MaxResponseTokens int                 `json:"max_response_tokens,omitempty"`
}

// CompareSQLHandler implements the compare_sql MCP tool.
type CompareSQLHandler struct {
	schemas SchemaLoader
	exec    evaluation.Executor
	sink    evaluation.RecordSink
	opts    evaluation.Options
	guard   auth.ExecGuard
	logger  *slog.Logger
}

// NewCompareSQLHandler creates a new handler. schemas, exec and sink may be
// nil.
func NewCompareSQLHandler(schemas SchemaLoader, exec evaluation.Executor, sink evaluation.RecordSink, opts evaluation.Options, guard auth.ExecGuard, logger *slog.Logger) *CompareSQLHandler {
	return &CompareSQLHandler{schemas: schemas, exec: exec, sink: sink, opts: opts, guard: guard, logger: logger}
}

// Handle scores a predicted query against a gold query.
func (h *CompareSQLHandler) Handle(ctx context.Context, params CompareSQLParams) (string, error) {
	task := models.Task{
		DBID:     params.DBID,
		GoldSQL:  params.GoldSQL,
		Response: params.PredSQL,
	}
	if task.GoldSQL == "" {
		return "", fmt.Errorf("gold_sql is required")
	}
	if evaluation.PredictedSQL(task) == "" {
		return "", fmt.Errorf("pred_sql is required")
	}
	schema, err := ResolveSchema(ctx, h.schemas, params.DBID, params.Schema)
	if err != nil {
		return "", err
	}

	opts := h.opts
	opts.Compare.IgnoreValues = opts.Compare.IgnoreValues || params.IgnoreValues
	opts.ExecMatch = opts.ExecMatch || params.ExecMatch
	if opts.ExecMatch {
		if err := h.guard.Check(ctx); err != nil {
			if params.ExecMatch {
				return "", err
			}
			opts.ExecMatch = false
		}
	}

	rec, err := evaluation.New(opts, h.exec, h.sink, h.logger).Evaluate(ctx, task, schema)
	if err != nil && rec == nil {
		return "", fmt.Errorf("compare: %w", err)
	}
	if err != nil {
		h.logger.Warn("record not saved", slog.String("error", err.Error()))
	}

	rb := mcp.NewResponseBuilder(params.MaxResponseTokens)
	mcp.FormatRecord(rb, rec)
	return rb.FinalizeWithHints(len(rec.Components), len(rec.Components), mcp.HintsForCompare(rec)), nil
}
