package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maraichr/sqlshape/internal/parser"
	"github.com/maraichr/sqlshape/internal/store/postgres"
)

const (
	execTimeout = 30 * time.Second
	execMaxRows = 100000
)

type Store struct {
	*postgres.Queries
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{
		Queries: postgres.New(pool),
		pool:    pool,
	}
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// WithReadOnlyTx runs fn in a read-only transaction that is always rolled
// back.
func (s *Store) WithReadOnlyTx(ctx context.Context, fn func(*postgres.Queries) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	return fn(s.Queries.WithTx(tx))
}

// LoadSchema builds the schema index of the database schema named dbID. A
// schema with no columns is reported as pgx.ErrNoRows.
func (s *Store) LoadSchema(ctx context.Context, dbID string) (*parser.Schema, error) {
	cols, err := s.ListSchemaColumns(ctx, dbID)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", dbID, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("schema %s: %w", dbID, pgx.ErrNoRows)
	}
	return parser.NewSchema(groupColumns(cols)), nil
}

func groupColumns(cols []postgres.SchemaColumn) map[string][]string {
	tables := make(map[string][]string)
	for _, c := range cols {
		tables[c.TableName] = append(tables[c.TableName], c.ColumnName)
	}
	return tables
}

// ExecError wraps a failure of one side of an execution match.
type ExecError struct {
	Side string // "gold" or "pred"
	Err  error
}

func (e *ExecError) Error() string { return e.Side + " query: " + e.Err.Error() }
func (e *ExecError) Unwrap() error { return e.Err }

// ExecMatch runs gold and pred against schema dbID and reports whether
// they return the same rows. Row order is ignored unless ordered is set.
// A query that fails returns an *ExecError naming its side.
func (s *Store) ExecMatch(ctx context.Context, dbID, gold, pred string, ordered bool) (bool, error) {
	var goldRows, predRows []string
	var predErr error
	err := s.WithReadOnlyTx(ctx, func(q *postgres.Queries) error {
		if err := q.SetSearchPath(ctx, dbID); err != nil {
			return fmt.Errorf("set search path: %w", err)
		}
		if err := q.SetStatementTimeout(ctx, execTimeout.Milliseconds()); err != nil {
			return fmt.Errorf("set statement timeout: %w", err)
		}

		var err error
		if goldRows, err = q.QueryRows(ctx, gold, execMaxRows); err != nil {
			return &ExecError{Side: "gold", Err: err}
		}
		// a failed statement aborts the transaction, so pred runs last
		predRows, predErr = q.QueryRows(ctx, pred, execMaxRows)
		return nil
	})
	if err != nil {
		return false, err
	}
	if predErr != nil {
		return false, &ExecError{Side: "pred", Err: predErr}
	}
	return sameRows(goldRows, predRows, ordered), nil
}

// IsPredFailure reports whether err came from the predicted query alone.
func IsPredFailure(err error) bool {
	var ee *ExecError
	return errors.As(err, &ee) && ee.Side == "pred"
}

func sameRows(a, b []string, ordered bool) bool {
	if len(a) != len(b) {
		return false
	}
	if !ordered {
		a = append([]string(nil), a...)
		b = append([]string(nil), b...)
		sort.Strings(a)
		sort.Strings(b)
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
