package parser

import (
	"sort"
	"strings"
)

// Wildcard is the canonical identifier of "*".
const Wildcard ColumnRef = "*"

// Schema maps "table" and "table.column" names, case-folded, to canonical
// identifiers. It is immutable once built and safe for concurrent use.
type Schema struct {
	tables  map[string][]string
	columns map[string]map[string]bool
	names   []string // table names, sorted
	ids     map[string]ColumnRef
}

// NewSchema builds the index from a table -> columns mapping. Names are
// lowercased; when two input keys fold to the same table, the key that
// sorts last wins.
func NewSchema(tables map[string][]string) *Schema {
	s := &Schema{
		tables:  make(map[string][]string, len(tables)),
		columns: make(map[string]map[string]bool, len(tables)),
		ids:     map[string]ColumnRef{"*": Wildcard},
	}

	keys := make([]string, 0, len(tables))
	for k := range tables {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		table := strings.ToLower(k)
		for _, old := range s.tables[table] {
			delete(s.ids, table+"."+old)
		}
		cols := make([]string, 0, len(tables[k]))
		set := make(map[string]bool, len(tables[k]))
		for _, c := range tables[k] {
			col := strings.ToLower(c)
			cols = append(cols, col)
			set[col] = true
			s.ids[table+"."+col] = ColumnRef(table + "." + col)
		}
		s.tables[table] = cols
		s.columns[table] = set
		s.ids[table] = ColumnRef(table)
	}

	s.names = make([]string, 0, len(s.tables))
	for t := range s.tables {
		s.names = append(s.names, t)
	}
	sort.Strings(s.names)
	return s
}

// Lookup returns the canonical identifier for "*", "table" or "table.column".
func (s *Schema) Lookup(name string) (ColumnRef, bool) {
	id, ok := s.ids[strings.ToLower(name)]
	return id, ok
}

// HasTable reports whether table is part of the schema.
func (s *Schema) HasTable(table string) bool {
	_, ok := s.tables[strings.ToLower(table)]
	return ok
}

// HasColumn reports whether table declares column.
func (s *Schema) HasColumn(table, column string) bool {
	return s.columns[strings.ToLower(table)][strings.ToLower(column)]
}

// Tables returns the table names in sorted order.
func (s *Schema) Tables() []string {
	return append([]string(nil), s.names...)
}

// Columns returns the declared columns of table in declaration order.
func (s *Schema) Columns(table string) []string {
	return append([]string(nil), s.tables[strings.ToLower(table)]...)
}

// Mapping returns a copy of the lowercased table -> columns mapping.
func (s *Schema) Mapping() map[string][]string {
	out := make(map[string][]string, len(s.tables))
	for t, cols := range s.tables {
		out[t] = append([]string(nil), cols...)
	}
	return out
}
