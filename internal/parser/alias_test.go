package parser

import (
	"reflect"
	"strings"
	"testing"
)

func TestMatchBrackets(t *testing.T) {
	tests := []struct {
		name   string
		prefix []string
		ok     bool
		want   []string
	}{
		{
			name:   "aggregate call",
			prefix: []string{"count", "(", "*", ")"},
			ok:     true,
			want:   []string{"count", "(", "*", ")"},
		},
		{
			name:   "last group wins",
			prefix: []string{"select", "max", "(", "a", ")", "+", "min", "(", "b", ")"},
			ok:     true,
			want:   []string{"min", "(", "b", ")"},
		},
		{
			name:   "nested groups",
			prefix: []string{"f", "(", "g", "(", "x", ")", ")"},
			ok:     true,
			want:   []string{"f", "(", "g", "(", "x", ")", ")"},
		},
		{
			name:   "group at start has no name token",
			prefix: []string{"(", "a", ")"},
			ok:     true,
			want:   []string{"(", "a", ")"},
		},
		{name: "extra close", prefix: []string{"a", ")"}},
		{name: "unclosed", prefix: []string{"(", "a"}},
		{name: "no parens", prefix: []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, got := matchBrackets(tt.prefix)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if tt.ok && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("span = %q, want %q", got, tt.want)
			}
			if !tt.ok && len(got) != 0 {
				t.Errorf("expected empty span, got %q", got)
			}
		})
	}
}

func TestAliasMap(t *testing.T) {
	s := NewSchema(map[string][]string{
		"employees":   {"id", "name"},
		"departments": {"id", "name"},
	})

	got := AliasMap(s, "SELECT count(*) AS total FROM employees AS e")
	want := map[string]string{
		"total":       "count ( * )",
		"e":           "employees",
		"employees":   "employees",
		"departments": "departments",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AliasMap = %v, want %v", got, want)
	}
}

func TestAliasMapInvalidPrefix(t *testing.T) {
	s := NewSchema(map[string][]string{"t": {"a"}})
	got := AliasMap(s, "SELECT a) AS x FROM t")
	if got["x"] != InvalidAlias {
		t.Errorf("x = %q, want %q", got["x"], InvalidAlias)
	}
}

func TestAliasMapSkipsSubqueries(t *testing.T) {
	s := NewSchema(map[string][]string{"t": {"a"}, "u": {"b"}})
	got := AliasMap(s, "SELECT x.a FROM t AS x WHERE x.a IN (SELECT y.b FROM u AS y)")
	if _, ok := got["y"]; ok {
		t.Error("alias of nested level leaked into outer level")
	}
	if got["x"] != "t" {
		t.Errorf("x = %q, want t", got["x"])
	}
}

func TestAliasConflictsWithTable(t *testing.T) {
	s := NewSchema(map[string][]string{
		"employees":   {"id", "name"},
		"departments": {"id", "name"},
	})
	doc := Parse(s, "SELECT name FROM departments AS employees")

	found := false
	for _, d := range doc.Diagnostics.Global {
		if strings.Contains(d.Message, "alias 'employees' conflicts with real table name") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected conflict diagnostic, got %+v", doc.Diagnostics.Global)
	}
	if got := AliasMap(s, "SELECT name FROM departments AS employees")["employees"]; got != "employees" {
		t.Errorf("real table should win, got %q", got)
	}
}
