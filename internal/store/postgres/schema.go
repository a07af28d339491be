package postgres

// schema.go holds the catalog queries behind schema introspection.

import (
	"context"
)

// SchemaColumn is one row of information_schema.columns.
type SchemaColumn struct {
	TableName  string
	ColumnName string
	Ordinal    int32
}

// ListSchemaColumns returns every column of every table in schemaName,
// ordered by table and declaration order.
func (q *Queries) ListSchemaColumns(ctx context.Context, schemaName string) ([]SchemaColumn, error) {
	rows, err := q.db.Query(ctx,
		`SELECT table_name, column_name, ordinal_position
		 FROM information_schema.columns
		 WHERE table_schema = $1
		 ORDER BY table_name, ordinal_position`,
		schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SchemaColumn
	for rows.Next() {
		var i SchemaColumn
		if err := rows.Scan(&i.TableName, &i.ColumnName, &i.Ordinal); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// ListSchemas returns the user schemas of the database.
func (q *Queries) ListSchemas(ctx context.Context) ([]string, error) {
	rows, err := q.db.Query(ctx,
		`SELECT schema_name
		 FROM information_schema.schemata
		 WHERE schema_name NOT IN ('pg_catalog', 'information_schema')
		   AND schema_name NOT LIKE 'pg_toast%'
		   AND schema_name NOT LIKE 'pg_temp%'
		 ORDER BY schema_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		items = append(items, name)
	}
	return items, rows.Err()
}
