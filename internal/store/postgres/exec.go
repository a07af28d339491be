package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// SetSearchPath scopes unqualified names in the current transaction to
// schemaName.
func (q *Queries) SetSearchPath(ctx context.Context, schemaName string) error {
	_, err := q.db.Exec(ctx, "SET LOCAL search_path TO "+pgx.Identifier{schemaName}.Sanitize())
	return err
}

// SetStatementTimeout bounds each statement in the current transaction.
func (q *Queries) SetStatementTimeout(ctx context.Context, ms int64) error {
	_, err := q.db.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", ms))
	return err
}

// QueryRows runs an arbitrary read query and renders every row as one
// string, in result order. Values are formatted with %v; NULL renders as
// "NULL".
func (q *Queries) QueryRows(ctx context.Context, sql string, limit int) ([]string, error) {
	rows, err := q.db.Query(ctx, sql, pgx.QueryExecModeSimpleProtocol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		if limit > 0 && len(out) >= limit {
			return nil, fmt.Errorf("result exceeds %d rows", limit)
		}
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(vals))
		for i, v := range vals {
			if v == nil {
				parts[i] = "NULL"
				continue
			}
			parts[i] = fmt.Sprintf("%v", v)
		}
		out = append(out, strings.Join(parts, "\x1f"))
	}
	return out, rows.Err()
}
