package handler

import (
	"log/slog"
	"net/http"

	"github.com/maraichr/sqlshape/internal/auth"
	"github.com/maraichr/sqlshape/internal/evaluation"
	"github.com/maraichr/sqlshape/pkg/apierr"
	"github.com/maraichr/sqlshape/pkg/models"
)

type CompareHandler struct {
	logger  *slog.Logger
	schemas SchemaLoader
	exec    evaluation.Executor
	sink    evaluation.RecordSink
	opts    evaluation.Options
	guard   auth.ExecGuard
}

// NewCompareHandler creates a compare handler. exec and sink may be nil.
// guard decides which callers may have their queries executed.
func NewCompareHandler(logger *slog.Logger, schemas SchemaLoader, exec evaluation.Executor, sink evaluation.RecordSink, opts evaluation.Options, guard auth.ExecGuard) *CompareHandler {
	return &CompareHandler{logger: logger, schemas: schemas, exec: exec, sink: sink, opts: opts, guard: guard}
}

func (h *CompareHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		schemaRef
		QuestionID   int    `json:"question_id"`
		Question     string `json:"question"`
		Difficulty   string `json:"difficulty"`
		GoldSQL      string `json:"gold_sql"`
		PredSQL      string `json:"pred_sql"`
		Response     string `json:"response"`
		IgnoreValues *bool  `json:"ignore_values"`
		ExecMatch    *bool  `json:"exec_match"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeAPIError(w, h.logger, err)
		return
	}
	if err := validateSQL("gold_sql", req.GoldSQL); err != nil {
		writeAPIError(w, h.logger, err)
		return
	}
	task := models.Task{
		QuestionID: req.QuestionID,
		DBID:       req.DBID,
		Question:   req.Question,
		GoldSQL:    req.GoldSQL,
		Difficulty: req.Difficulty,
		Response:   req.Response,
		AnswerSQL:  req.PredSQL,
	}
	if err := validateSQL("pred_sql", evaluation.PredictedSQL(task)); err != nil {
		writeAPIError(w, h.logger, err)
		return
	}
	if req.DBID != "" {
		if err := validateDBID(req.DBID); err != nil {
			writeAPIError(w, h.logger, err)
			return
		}
	}

	schema, apiErr := resolveSchema(r.Context(), h.schemas, req.schemaRef)
	if apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}

	opts := h.opts
	if req.IgnoreValues != nil {
		opts.Compare.IgnoreValues = *req.IgnoreValues
	}
	if req.ExecMatch != nil {
		opts.ExecMatch = *req.ExecMatch
	}
	if opts.ExecMatch {
		if err := h.guard.Check(r.Context()); err != nil {
			if req.ExecMatch != nil {
				writeAPIError(w, h.logger, apierr.ExecForbidden())
				return
			}
			// server default: score without executing
			opts.ExecMatch = false
		}
	}

	rec, err := evaluation.New(opts, h.exec, h.sink, h.logger).Evaluate(r.Context(), task, schema)
	if err != nil {
		if rec != nil {
			writeAPIError(w, h.logger, apierr.RecordSaveFailed(err))
			return
		}
		writeAPIError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}
