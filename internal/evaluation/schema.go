package evaluation

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/maraichr/sqlshape/internal/parser"
)

// SchemaLoader loads the schema index of one database.
type SchemaLoader interface {
	LoadSchema(ctx context.Context, dbID string) (*parser.Schema, error)
}

// StaticSchema serves one schema for every database id.
type StaticSchema struct {
	Schema *parser.Schema
}

func (s StaticSchema) LoadSchema(context.Context, string) (*parser.Schema, error) {
	return s.Schema, nil
}

type schemaEntry struct {
	Table   string `json:"table"`
	ColData []struct {
		ColumnName string `json:"column_name"`
	} `json:"col_data"`
}

// ReadSchemaFile reads a schema file. See DecodeSchema for the formats.
func ReadSchemaFile(path string) (*parser.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema file: %w", err)
	}
	defer f.Close()
	return DecodeSchema(f)
}

// DecodeSchema accepts either the dataset export format
//
//	[{"table": "employees", "col_data": [{"column_name": "id"}, ...]}, ...]
//
// or a plain {"table": ["column", ...]} object.
func DecodeSchema(r io.Reader) (*parser.Schema, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}

	tables := make(map[string][]string)
	switch first {
	case '[':
		var entries []schemaEntry
		if err := json.NewDecoder(br).Decode(&entries); err != nil {
			return nil, fmt.Errorf("decode schema: %w", err)
		}
		for _, e := range entries {
			if e.Table == "" {
				return nil, fmt.Errorf("decode schema: entry without table name")
			}
			cols := make([]string, 0, len(e.ColData))
			for _, c := range e.ColData {
				cols = append(cols, c.ColumnName)
			}
			tables[e.Table] = cols
		}
	case '{':
		if err := json.NewDecoder(br).Decode(&tables); err != nil {
			return nil, fmt.Errorf("decode schema: %w", err)
		}
	default:
		return nil, fmt.Errorf("decode schema: unexpected %q", first)
	}
	return parser.NewSchema(tables), nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b, br.UnreadByte()
	}
}
