package mcp

import (
	"testing"

	"github.com/maraichr/sqlshape/internal/parser"
	"github.com/maraichr/sqlshape/pkg/models"
)

func toolNames(h *NavigationHints) []string {
	var out []string
	for _, s := range h.Steps {
		out = append(out, s.Tool)
	}
	return out
}

func TestHintsForParse(t *testing.T) {
	schema := parser.NewSchema(map[string][]string{"employees": {"id", "name"}})

	clean := HintsForParse(parser.Parse(schema, "SELECT name FROM employees"), "hr")
	if got := toolNames(clean); len(got) != 1 || got[0] != "compare_sql" {
		t.Errorf("clean parse hints = %v", got)
	}

	dirty := HintsForParse(parser.Parse(schema, "SELECT bonus FROM employees"), "hr")
	got := toolNames(dirty)
	if len(got) != 2 || got[0] != "describe_schema" {
		t.Fatalf("dirty parse hints = %v", got)
	}
	if dirty.Steps[0].Params["db_id"] != "hr" {
		t.Errorf("params = %v", dirty.Steps[0].Params)
	}

	inline := HintsForParse(parser.Parse(schema, "SELECT bonus FROM employees"), "")
	if got := toolNames(inline); len(got) != 1 {
		t.Errorf("inline schema should not suggest describe_schema: %v", got)
	}
}

func TestHintsForCompare(t *testing.T) {
	tests := []struct {
		name string
		rec  models.Record
		want []string
	}{
		{"clean", models.Record{DBID: "hr"}, nil},
		{"low confidence", models.Record{DBID: "hr", LowConfidence: true}, []string{"parse_sql"}},
		{"missing tables", models.Record{DBID: "hr", MissingTables: []string{"bonus"}}, []string{"describe_schema"}},
		{"missing tables without db", models.Record{MissingTables: []string{"bonus"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toolNames(HintsForCompare(&tt.rec))
			if len(got) != len(tt.want) {
				t.Fatalf("hints = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("hints[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}
