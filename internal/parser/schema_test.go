package parser

import (
	"reflect"
	"testing"
)

func TestSchemaLookup(t *testing.T) {
	s := NewSchema(map[string][]string{
		"Employees":   {"ID", "Name", "dept_id"},
		"departments": {"id", "name"},
	})

	tests := []struct {
		name string
		want ColumnRef
		ok   bool
	}{
		{"*", Wildcard, true},
		{"employees", "employees", true},
		{"EMPLOYEES", "employees", true},
		{"employees.name", "employees.name", true},
		{"Employees.ID", "employees.id", true},
		{"departments.name", "departments.name", true},
		{"departments.dept_id", Unresolved, false},
		{"salaries", Unresolved, false},
	}
	for _, tt := range tests {
		got, ok := s.Lookup(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSchemaTablesAndColumns(t *testing.T) {
	s := NewSchema(map[string][]string{
		"b": {"Z", "y"},
		"a": {"x"},
	})

	if got := s.Tables(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Tables() = %v", got)
	}
	if got := s.Columns("B"); !reflect.DeepEqual(got, []string{"z", "y"}) {
		t.Errorf("Columns(B) = %v, want declaration order", got)
	}
	if !s.HasColumn("b", "Y") {
		t.Error("expected HasColumn(b, Y)")
	}
	if s.HasTable("c") {
		t.Error("unexpected table c")
	}
}

func TestSchemaDuplicateKeys(t *testing.T) {
	s := NewSchema(map[string][]string{
		"T": {"a"},
		"t": {"b"},
	})
	// "t" sorts after "T" and wins.
	if !s.HasColumn("t", "b") || s.HasColumn("t", "a") {
		t.Errorf("unexpected columns %v", s.Columns("t"))
	}
}
