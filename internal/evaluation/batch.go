package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/maraichr/sqlshape/internal/parser"
	"github.com/maraichr/sqlshape/pkg/models"
)

// Batch evaluates many tasks with bounded concurrency. Each database
// schema is loaded once per run.
type Batch struct {
	evaluator   *Evaluator
	schemas     SchemaLoader
	concurrency int
	logger      *slog.Logger

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]*parser.Schema
}

func NewBatch(evaluator *Evaluator, schemas SchemaLoader, concurrency int, logger *slog.Logger) *Batch {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Batch{
		evaluator:   evaluator,
		schemas:     schemas,
		concurrency: concurrency,
		logger:      logger,
		cache:       make(map[string]*parser.Schema),
	}
}

// Run evaluates tasks. A task that fails is logged and counted in the
// summary; its slot in the returned slice is nil. Only cancellation of ctx
// aborts the run.
func (b *Batch) Run(ctx context.Context, tasks []models.Task) ([]*models.Record, models.Summary, error) {
	records := make([]*models.Record, len(tasks))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.concurrency)

	for i, task := range tasks {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			schema, err := b.schema(egCtx, task.DBID)
			if err != nil {
				b.logger.Error("load schema failed",
					slog.Int("question_id", task.QuestionID),
					slog.String("db_id", task.DBID),
					slog.String("error", err.Error()))
				return nil
			}
			rec, err := b.evaluator.Evaluate(egCtx, task, schema)
			if err != nil {
				b.logger.Error("evaluate task failed",
					slog.Int("question_id", task.QuestionID),
					slog.String("error", err.Error()))
			}
			records[i] = rec
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, models.Summary{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, models.Summary{}, err
	}

	var sum models.Summary
	for _, r := range records {
		if r == nil {
			sum.Total++
			sum.Failed++
			continue
		}
		sum.Add(r)
	}
	return records, sum, nil
}

func (b *Batch) schema(ctx context.Context, dbID string) (*parser.Schema, error) {
	b.mu.Lock()
	s, ok := b.cache[dbID]
	b.mu.Unlock()
	if ok {
		return s, nil
	}

	v, err, _ := b.group.Do(dbID, func() (any, error) {
		s, err := b.schemas.LoadSchema(ctx, dbID)
		if err != nil {
			return nil, fmt.Errorf("load schema %s: %w", dbID, err)
		}
		b.mu.Lock()
		b.cache[dbID] = s
		b.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*parser.Schema), nil
}
