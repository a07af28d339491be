package mcp

import (
	"strings"
	"testing"

	"github.com/maraichr/sqlshape/internal/parser"
	"github.com/maraichr/sqlshape/pkg/models"
)

func testSchema() *parser.Schema {
	return parser.NewSchema(map[string][]string{
		"employees":   {"id", "name", "dept_id", "salary"},
		"departments": {"id", "name"},
	})
}

// --- ResponseBuilder ---

func TestResponseBuilder_DefaultMaxTokens(t *testing.T) {
	rb := NewResponseBuilder(0)
	if rb.maxTokens != defaultMaxTokens {
		t.Errorf("default max tokens should be %d, got %d", defaultMaxTokens, rb.maxTokens)
	}
}

func TestResponseBuilder_AddHeader(t *testing.T) {
	rb := NewResponseBuilder(1000)
	rb.AddHeader("# Test Header")
	result := rb.Finalize(0, 0)
	if !strings.Contains(result, "# Test Header") {
		t.Error("header should be present in output")
	}
	if rb.TokenEstimate() == 0 {
		t.Error("token estimate should be positive after adding header")
	}
}

func TestResponseBuilder_AddLine_BudgetExceeded(t *testing.T) {
	rb := NewResponseBuilder(5) // Very small budget
	rb.AddLine("short")
	ok := rb.AddLine(strings.Repeat("x", 100))
	if ok {
		t.Error("adding line exceeding budget should fail")
	}
	if !rb.IsTruncated() {
		t.Error("should be marked as truncated")
	}
	if !strings.Contains(rb.Finalize(2, 1), "1 of 2") {
		t.Error("truncation notice should show counts")
	}
}

func TestResponseBuilder_AddItemCounts(t *testing.T) {
	rb := NewResponseBuilder(1000)
	rb.AddItem("a")
	rb.AddItem("b")
	rb.AddLine("not an item")
	if rb.ItemCount() != 2 {
		t.Errorf("item count = %d", rb.ItemCount())
	}
	if !strings.Contains(rb.Finalize(2, 2), "- a\n- b\n") {
		t.Error("items should render as a list")
	}
}

func TestResponseBuilder_AddCodeBlock(t *testing.T) {
	rb := NewResponseBuilder(1000)
	rb.AddCodeBlock("json", "{}\n")
	if got := rb.Finalize(0, 0); got != "```json\n{}\n```\n\n" {
		t.Errorf("code block = %q", got)
	}
}

func TestResponseBuilder_FinalizeWithHints(t *testing.T) {
	rb := NewResponseBuilder(2000)
	rb.AddLine("result line")
	hints := &NavigationHints{
		Steps: []NavigationStep{
			{Tool: "compare_sql", Description: "Score it", EstimatedTokens: 600},
		},
	}
	result := rb.FinalizeWithHints(1, 1, hints)
	if !strings.Contains(result, "Next steps:") || !strings.Contains(result, "compare_sql") {
		t.Error("should contain navigation hints section")
	}
	if !strings.Contains(result, "600 tokens") {
		t.Error("should contain token estimate")
	}

	rb = NewResponseBuilder(2000)
	if strings.Contains(rb.FinalizeWithHints(1, 1, nil), "Next steps:") {
		t.Error("nil hints should not produce next steps section")
	}
}

// --- Formatting ---

func TestFormatDiagnostic(t *testing.T) {
	d := parser.Diagnostic{Message: "parse_col: unknown alias/column 'x'", Sample: []string{"select", "x"}, Index: 1, Cause: "boom"}
	got := FormatDiagnostic(d)
	for _, want := range []string{"unknown alias/column", "at token 1", "near `select x`", "(boom)"} {
		if !strings.Contains(got, want) {
			t.Errorf("%q missing %q", got, want)
		}
	}
	if strings.Contains(FormatDiagnostic(parser.Diagnostic{Message: "m", Index: -1}), "at token") {
		t.Error("index -1 should not be rendered")
	}
}

func TestSummarizeSQL(t *testing.T) {
	doc := parser.Parse(testSchema(), "SELECT DISTINCT e.name FROM employees AS e JOIN departments AS d ON e.dept_id = d.id "+
		"WHERE e.salary > 10 OR d.name = 'x' ORDER BY e.salary DESC LIMIT 3")
	got := strings.Join(SummarizeSQL(doc), "\n")
	for _, want := range []string{
		"select: distinct 1 item(s)",
		"from: employees, departments",
		"join conditions: 1",
		"where: 2 predicate(s) joined by or",
		"order by: 1 unit(s) desc",
		"limit: 3",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestFormatRecord(t *testing.T) {
	yes := true
	rec := &models.Record{
		ExactMatch:    false,
		MeanF1:        0.5,
		LowConfidence: true,
		Components:    []models.ComponentScore{{Name: "select", Gold: 1, Pred: 1, Matched: 0}},
		MissingTables: []string{"staff"},
		PGCheck:       &models.PGCheck{GoldValid: true, PredValid: false, PredError: "syntax error"},
		ExecMatch:     &yes,
	}
	rb := NewResponseBuilder(2000)
	FormatRecord(rb, rec)
	got := rb.Finalize(1, 1)
	for _, want := range []string{"mismatch", "0.50", "Low confidence", "| select | 1 | 1 | 0 | no |", "`staff`", "syntax error", "Execution match: true"} {
		if !strings.Contains(got, want) {
			t.Errorf("record output missing %q:\n%s", want, got)
		}
	}
}

// --- Hints ---

func TestFormatterHintsForParse(t *testing.T) {
	clean := parser.Parse(testSchema(), "SELECT name FROM employees")
	if h := HintsForParse(clean, "hr"); len(h.Steps) != 1 || h.Steps[0].Tool != "compare_sql" {
		t.Errorf("clean hints = %+v", h.Steps)
	}
	dirty := parser.Parse(testSchema(), "SELECT bonus FROM employees")
	if h := HintsForParse(dirty, "hr"); len(h.Steps) != 2 || h.Steps[0].Tool != "describe_schema" {
		t.Errorf("dirty hints = %+v", h.Steps)
	}
	if h := HintsForParse(dirty, ""); len(h.Steps) != 1 {
		t.Errorf("without db_id there is no schema to describe: %+v", h.Steps)
	}
}

func TestFormatterHintsForCompare(t *testing.T) {
	if h := HintsForCompare(&models.Record{}); len(h.Steps) != 0 {
		t.Errorf("clean record hints = %+v", h.Steps)
	}
	h := HintsForCompare(&models.Record{DBID: "hr", LowConfidence: true, MissingTables: []string{"x"}})
	if len(h.Steps) != 2 {
		t.Errorf("hints = %+v", h.Steps)
	}
}
