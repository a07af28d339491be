package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maraichr/sqlshape/internal/store/postgres"
)

func TestSameRows(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []string
		ordered bool
		want    bool
	}{
		{"equal", []string{"1", "2"}, []string{"1", "2"}, true, true},
		{"reordered unordered", []string{"1", "2"}, []string{"2", "1"}, false, true},
		{"reordered ordered", []string{"1", "2"}, []string{"2", "1"}, true, false},
		{"length differs", []string{"1"}, []string{"1", "1"}, false, false},
		{"multiplicity differs", []string{"1", "1", "2"}, []string{"1", "2", "2"}, false, false},
		{"both empty", nil, nil, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sameRows(tt.a, tt.b, tt.ordered); got != tt.want {
				t.Errorf("sameRows = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGroupColumns(t *testing.T) {
	got := groupColumns([]postgres.SchemaColumn{
		{TableName: "employees", ColumnName: "id", Ordinal: 1},
		{TableName: "employees", ColumnName: "name", Ordinal: 2},
		{TableName: "departments", ColumnName: "id", Ordinal: 1},
	})
	if len(got) != 2 || len(got["employees"]) != 2 || got["employees"][1] != "name" {
		t.Errorf("groupColumns = %v", got)
	}
}

func TestIsPredFailure(t *testing.T) {
	if !IsPredFailure(&ExecError{Side: "pred", Err: errors.New("boom")}) {
		t.Error("pred side should be reported")
	}
	if IsPredFailure(&ExecError{Side: "gold", Err: errors.New("boom")}) {
		t.Error("gold side is not a pred failure")
	}
	if IsPredFailure(errors.New("boom")) {
		t.Error("plain error is not a pred failure")
	}
}

func setupStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		t.Skipf("postgres ping failed: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return New(pool)
}

func TestStoreIntegration(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.Pool().Exec(ctx, `
		DROP SCHEMA IF EXISTS sqlshape_test CASCADE;
		CREATE SCHEMA sqlshape_test;
		CREATE TABLE sqlshape_test.employees (id int, name text, salary int);
		INSERT INTO sqlshape_test.employees VALUES (1, 'a', 10), (2, 'b', 20);`)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	t.Cleanup(func() {
		s.Pool().Exec(context.Background(), "DROP SCHEMA IF EXISTS sqlshape_test CASCADE")
	})

	schema, err := s.LoadSchema(ctx, "sqlshape_test")
	if err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	if !schema.HasColumn("employees", "salary") {
		t.Errorf("schema = %v", schema.Mapping())
	}

	if _, err := s.LoadSchema(ctx, "sqlshape_missing"); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("missing schema err = %v", err)
	}

	ok, err := s.ExecMatch(ctx, "sqlshape_test",
		"SELECT name FROM employees WHERE salary > 5",
		"SELECT name FROM employees ORDER BY id DESC", false)
	if err != nil || !ok {
		t.Errorf("ExecMatch = %v, %v", ok, err)
	}

	ok, err = s.ExecMatch(ctx, "sqlshape_test", "SELECT name FROM employees", "SELECT nope FROM employees", false)
	if ok || !IsPredFailure(err) {
		t.Errorf("broken pred = %v, %v", ok, err)
	}
}
