// Package evaluation scores generated SQL against gold SQL: both sides are
// parsed into the structural IR, compared, optionally executed, and the
// outcome is persisted as a Record.
package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/maraichr/sqlshape/internal/compare"
	"github.com/maraichr/sqlshape/internal/parser"
	"github.com/maraichr/sqlshape/internal/parser/pgsql"
	"github.com/maraichr/sqlshape/internal/parser/sqlutil"
	"github.com/maraichr/sqlshape/internal/store"
	"github.com/maraichr/sqlshape/pkg/models"
)

// Executor runs both queries against the task database and compares their
// results.
type Executor interface {
	ExecMatch(ctx context.Context, dbID, gold, pred string, ordered bool) (bool, error)
}

// RecordSink persists evaluation records.
type RecordSink interface {
	SaveRecord(ctx context.Context, r *models.Record) error
}

type Options struct {
	Compare compare.Options
	// PGCheck runs the PostgreSQL grammar check on every pair instead of
	// only on queries that look like PostgreSQL.
	PGCheck   bool
	ExecMatch bool
}

type Evaluator struct {
	exec   Executor
	sink   RecordSink
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New creates an evaluator. exec and sink may be nil.
func New(opts Options, exec Executor, sink RecordSink, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		exec:   exec,
		sink:   sink,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// PredictedSQL returns the query to evaluate for task: AnswerSQL when set,
// otherwise the SQL extracted from the model response.
func PredictedSQL(task models.Task) string {
	if task.AnswerSQL != "" {
		return strings.TrimSpace(task.AnswerSQL)
	}
	return sqlutil.ExtractSQL(task.Response)
}

type side struct {
	ir    *parser.SQL
	json  []byte
	check *pgsql.Result
}

// Evaluate scores one task against schema. The record is returned even
// when persisting it fails.
func (e *Evaluator) Evaluate(ctx context.Context, task models.Task, schema *parser.Schema) (*models.Record, error) {
	if schema == nil {
		return nil, fmt.Errorf("evaluate task %d: schema is required", task.QuestionID)
	}
	pred := PredictedSQL(task)
	if task.AnswerSQL == "" && !sqlutil.HasFence(task.Response) && !sqlutil.LooksLikeSQL(pred) {
		e.logger.Warn("response does not look like SQL",
			slog.Int("question_id", task.QuestionID), slog.String("db_id", task.DBID))
	}

	dialect := sqlutil.DetectDialect(task.GoldSQL)
	if dialect == sqlutil.DialectGeneric {
		dialect = sqlutil.DetectDialect(pred)
	}
	check := e.opts.PGCheck || dialect == sqlutil.DialectPostgres

	var gold, gen side
	g, gctx := errgroup.WithContext(ctx)
	for _, job := range []struct {
		sql string
		out *side
	}{{task.GoldSQL, &gold}, {pred, &gen}} {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return e.parseSide(job.sql, schema, check, job.out)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluate task %d: %w", task.QuestionID, err)
	}

	report := compare.Compare(gold.ir, gen.ir, e.opts.Compare)
	if report.LowConfidence {
		e.logger.Warn("comparing best-effort parse",
			slog.Int("question_id", task.QuestionID),
			slog.Int("gold_diagnostics", gold.ir.Diagnostics.Count()),
			slog.Int("pred_diagnostics", gen.ir.Diagnostics.Count()))
	}

	rec := &models.Record{
		ID:              uuid.New(),
		CreatedAt:       e.now().UTC(),
		QuestionID:      task.QuestionID,
		DBID:            task.DBID,
		Question:        task.Question,
		Difficulty:      task.Difficulty,
		GoldSQL:         task.GoldSQL,
		PredSQL:         pred,
		Dialect:         dialect,
		GoldIR:          gold.json,
		PredIR:          gen.json,
		ExactMatch:      report.ExactMatch,
		LowConfidence:   report.LowConfidence,
		MeanF1:          report.MeanF1(),
		Components:      scores(report),
		GoldDiagnostics: gold.ir.Diagnostics.Count(),
		PredDiagnostics: gen.ir.Diagnostics.Count(),
		MissingTables:   MissingTables(pred, schema),
	}
	if check {
		rec.PGCheck = &models.PGCheck{
			GoldValid:        gold.check.Valid,
			PredValid:        gen.check.Valid,
			GoldError:        gold.check.Error,
			PredError:        gen.check.Error,
			FingerprintMatch: pgsql.SameStatement(*gold.check, *gen.check),
		}
	}

	if e.opts.ExecMatch && e.exec != nil && task.DBID != "" {
		ordered := gold.ir.OrderBy.Dir != ""
		ok, err := e.exec.ExecMatch(ctx, task.DBID, task.GoldSQL, pred, ordered)
		switch {
		case err == nil:
			rec.ExecMatch = &ok
		case store.IsPredFailure(err):
			// the prediction does not run: a wrong answer
			rec.ExecMatch = &ok
			rec.ExecError = err.Error()
		default:
			// no verdict when the gold side or the database fails
			rec.ExecError = err.Error()
			e.logger.Warn("execution match failed",
				slog.Int("question_id", task.QuestionID), slog.String("error", err.Error()))
		}
	}

	if e.sink != nil {
		if err := e.sink.SaveRecord(ctx, rec); err != nil {
			return rec, fmt.Errorf("save record %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}

func (e *Evaluator) parseSide(sql string, schema *parser.Schema, check bool, out *side) error {
	out.ir = parser.Parse(schema, sql)
	data, err := json.Marshal(out.ir)
	if err != nil {
		return fmt.Errorf("marshal ir: %w", err)
	}
	out.json = data
	if check {
		res := pgsql.Check(sql)
		out.check = &res
	}
	return nil
}

func scores(r compare.Report) []models.ComponentScore {
	out := make([]models.ComponentScore, len(r.Components))
	for i, c := range r.Components {
		out[i] = models.ComponentScore{
			Name:    c.Name,
			Gold:    c.Gold,
			Pred:    c.Pred,
			Matched: c.Matched,
			Exact:   c.Exact,
			F1:      c.F1(),
		}
	}
	return out
}

// MissingTables lists the tables sql reads or writes that schema does not
// declare, lowercased and without duplicates. Schema qualifiers are
// ignored.
func MissingTables(sql string, schema *parser.Schema) []string {
	var out []string
	seen := make(map[string]bool)
	for _, ref := range sqlutil.TableRefs(sql) {
		name := strings.ToLower(ref.Name)
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		if name == "" || seen[name] || schema.HasTable(name) {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
