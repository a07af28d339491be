package parser

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func companySchema() *Schema {
	return NewSchema(map[string][]string{
		"employees":   {"id", "name", "dept_id"},
		"departments": {"id", "name"},
	})
}

func hasDiag(list []Diagnostic, substr string) bool {
	for _, d := range list {
		if strings.Contains(d.Message, substr) {
			return true
		}
	}
	return false
}

func TestParseSimpleSelect(t *testing.T) {
	s := NewSchema(map[string][]string{"t": {"col", "b"}})
	doc := Parse(s, "SELECT col FROM t")

	if len(doc.From.Tables) != 1 || doc.From.Tables[0].Table != "t" {
		t.Fatalf("from = %+v", doc.From.Tables)
	}
	if len(doc.Select.Items) != 1 {
		t.Fatalf("expected 1 select item, got %d", len(doc.Select.Items))
	}
	item := doc.Select.Items[0]
	if item.Agg != AggNone || item.Val.Op != UnitNone || item.Val.Right != nil {
		t.Errorf("unexpected select item %+v", item)
	}
	if item.Val.Left.Col != "t.col" || item.Val.Left.Agg != AggNone {
		t.Errorf("col = %q, want t.col", item.Val.Left.Col)
	}
	if !doc.Clean() {
		t.Errorf("expected clean parse, got %+v", doc.Diagnostics)
	}
}

func TestParseJoinScenario(t *testing.T) {
	doc := Parse(companySchema(),
		"SELECT e.name FROM employees AS e JOIN departments AS d ON e.dept_id = d.id WHERE d.name = 'Sales'")

	if got := doc.Select.Items[0].Val.Left.Col; got != "employees.name" {
		t.Errorf("select col = %q", got)
	}
	if len(doc.From.Tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(doc.From.Tables))
	}
	if doc.From.Tables[0].Table != "employees" || doc.From.Tables[1].Table != "departments" {
		t.Errorf("tables = %+v", doc.From.Tables)
	}

	join := doc.From.Conds.Predicates()
	if len(join) != 1 {
		t.Fatalf("expected 1 join predicate, got %d", len(join))
	}
	if join[0].Op != OpEq || join[0].Left.Left.Col != "employees.dept_id" {
		t.Errorf("join left = %+v", join[0])
	}
	if v, ok := join[0].Value1.(ColumnValue); !ok || v.Unit.Col != "departments.id" {
		t.Errorf("join right = %#v", join[0].Value1)
	}

	where := doc.Where.Predicates()
	if len(where) != 1 {
		t.Fatalf("expected 1 where predicate, got %d", len(where))
	}
	if where[0].Left.Left.Col != "departments.name" {
		t.Errorf("where left = %q", where[0].Left.Left.Col)
	}
	if v, ok := where[0].Value1.(StringValue); !ok || v != "Sales" {
		t.Errorf("where value = %#v, want StringValue(Sales)", where[0].Value1)
	}

	if !doc.Clean() {
		t.Errorf("expected no diagnostics, got %+v", doc.Diagnostics)
	}
}

func TestParseImplicitAliasAndLeftJoin(t *testing.T) {
	doc := Parse(companySchema(),
		"SELECT e.name, d.name FROM employees e LEFT JOIN departments d ON e.dept_id = d.id")

	if !doc.Clean() {
		t.Fatalf("unexpected diagnostics %+v", doc.Diagnostics.Global)
	}
	if len(doc.Select.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(doc.Select.Items))
	}
	if doc.Select.Items[0].Val.Left.Col != "employees.name" || doc.Select.Items[1].Val.Left.Col != "departments.name" {
		t.Errorf("items = %+v", doc.Select.Items)
	}
	if len(doc.From.Conds.Predicates()) != 1 {
		t.Errorf("expected 1 join predicate")
	}
}

func TestParseBareColumnFirstTableWins(t *testing.T) {
	doc := Parse(companySchema(), "SELECT name FROM departments JOIN employees ON departments.id = employees.dept_id")
	if got := doc.Select.Items[0].Val.Left.Col; got != "departments.name" {
		t.Errorf("bare column resolved to %q, want departments.name", got)
	}

	doc = Parse(companySchema(), "SELECT name FROM employees JOIN departments ON departments.id = employees.dept_id")
	if got := doc.Select.Items[0].Val.Left.Col; got != "employees.name" {
		t.Errorf("bare column resolved to %q, want employees.name", got)
	}
}

func TestParseBetween(t *testing.T) {
	doc := Parse(companySchema(), "SELECT name FROM employees WHERE id BETWEEN 1 AND 5")
	preds := doc.Where.Predicates()
	if len(preds) != 1 {
		t.Fatalf("expected 1 predicate, got %d", len(preds))
	}
	p := preds[0]
	if p.Op != OpBetween {
		t.Errorf("op = %v", p.Op)
	}
	if p.Value1 != NumberValue(1) || p.Value2 != NumberValue(5) {
		t.Errorf("values = %#v, %#v", p.Value1, p.Value2)
	}
	if !doc.Clean() {
		t.Errorf("unexpected diagnostics %+v", doc.Diagnostics)
	}
}

func TestParseBetweenMissingAnd(t *testing.T) {
	doc := Parse(companySchema(), "SELECT name FROM employees WHERE id BETWEEN 1")
	preds := doc.Where.Predicates()
	if len(preds) != 1 {
		t.Fatalf("expected 1 predicate, got %d", len(preds))
	}
	if preds[0].Value2 != nil {
		t.Errorf("val2 should be unset, got %#v", preds[0].Value2)
	}
	if !hasDiag(doc.Diagnostics.ByClause[ClauseWhere], "expected 'and'") {
		t.Errorf("expected where diagnostic, got %+v", doc.Diagnostics.ByClause)
	}
}

func TestParseUnion(t *testing.T) {
	s := NewSchema(map[string][]string{"t": {"a"}, "u": {"b"}})
	doc := Parse(s, "SELECT a FROM t UNION SELECT b FROM u")

	if doc.Union == nil {
		t.Fatal("expected union operand")
	}
	if len(doc.Select.Items) != 1 || doc.Select.Items[0].Val.Left.Col != "t.a" {
		t.Errorf("first branch select = %+v", doc.Select.Items)
	}
	if len(doc.From.Tables) != 1 || doc.From.Tables[0].Table != "t" {
		t.Errorf("first branch from = %+v", doc.From.Tables)
	}
	if doc.Union.Select.Items[0].Val.Left.Col != "u.b" || doc.Union.From.Tables[0].Table != "u" {
		t.Errorf("union operand = %+v", doc.Union)
	}
	if op, _ := doc.SetOp(); op != "union" {
		t.Errorf("SetOp = %q", op)
	}
	if !doc.Clean() {
		t.Errorf("unexpected diagnostics %+v", doc.Diagnostics.Global)
	}
}

func TestParseChainedSetOps(t *testing.T) {
	s := NewSchema(map[string][]string{"t": {"a"}, "u": {"b"}})
	doc := Parse(s, "SELECT a FROM t UNION SELECT b FROM u EXCEPT SELECT a FROM t")

	if doc.Union == nil || doc.Union.Except == nil {
		t.Fatalf("expected right-nested chain, got %+v", doc)
	}
	if doc.Union.Except.From.Tables[0].Table != "t" {
		t.Errorf("third branch = %+v", doc.Union.Except.From)
	}
	if !doc.Clean() {
		t.Errorf("unexpected diagnostics %+v", doc.Diagnostics.Global)
	}
}

func TestParseSetOpInsideSubquery(t *testing.T) {
	s := NewSchema(map[string][]string{"t": {"a"}, "u": {"b"}})
	doc := Parse(s, "SELECT a FROM t WHERE a IN (SELECT a FROM t UNION SELECT b FROM u)")

	preds := doc.Where.Predicates()
	if len(preds) != 1 {
		t.Fatalf("expected 1 predicate, got %d", len(preds))
	}
	sub, ok := preds[0].Value1.(SubqueryValue)
	if !ok {
		t.Fatalf("value = %#v", preds[0].Value1)
	}
	if sub.Query.Union == nil {
		t.Error("expected union inside subquery")
	}
	if !doc.Clean() {
		t.Errorf("unexpected diagnostics %+v", doc.Diagnostics.Global)
	}
}

func TestParseAliasTransparency(t *testing.T) {
	s := NewSchema(map[string][]string{"t": {"a", "b"}})
	aliased := Parse(s, "SELECT x.a FROM t AS x")
	plain := Parse(s, "SELECT t.a FROM t")

	if aliased.Select.Items[0].Val.Left.Col != plain.Select.Items[0].Val.Left.Col {
		t.Errorf("%q != %q", aliased.Select.Items[0].Val.Left.Col, plain.Select.Items[0].Val.Left.Col)
	}
	if !aliased.Clean() || !plain.Clean() {
		t.Error("expected clean parses")
	}
}

func TestParseQuotedLiterals(t *testing.T) {
	tests := []struct {
		query string
		want  StringValue
	}{
		{"SELECT name FROM employees WHERE name = 'O''Brien'", "O''Brien"},
		{`SELECT name FROM employees WHERE name = "Hello, World"`, "Hello, World"},
		{"SELECT name FROM employees WHERE name = 'a  (b) and c'", "a  (b) and c"},
	}
	for _, tt := range tests {
		doc := Parse(companySchema(), tt.query)
		preds := doc.Where.Predicates()
		if len(preds) != 1 {
			t.Errorf("%s: expected 1 predicate, got %d", tt.query, len(preds))
			continue
		}
		if preds[0].Value1 != tt.want {
			t.Errorf("%s: value = %#v, want %q", tt.query, preds[0].Value1, tt.want)
		}
	}
}

func TestParseSubqueryAndList(t *testing.T) {
	doc := Parse(companySchema(),
		"SELECT name FROM employees WHERE dept_id IN (SELECT id FROM departments WHERE name = 'Sales') AND id IN (1, 2, 3)")

	if !doc.Clean() {
		t.Fatalf("unexpected diagnostics %+v", doc.Diagnostics.Global)
	}
	preds := doc.Where.Predicates()
	if len(preds) != 2 {
		t.Fatalf("expected 2 predicates, got %d", len(preds))
	}
	if got := doc.Where.Connectives(); len(got) != 1 || got[0] != "and" {
		t.Errorf("connectives = %v", got)
	}

	sub, ok := preds[0].Value1.(SubqueryValue)
	if !ok {
		t.Fatalf("value1 = %#v", preds[0].Value1)
	}
	if sub.Query.From.Tables[0].Table != "departments" {
		t.Errorf("subquery from = %+v", sub.Query.From)
	}
	if inner := sub.Query.Where.Predicates(); len(inner) != 1 || inner[0].Left.Left.Col != "departments.name" {
		t.Errorf("subquery where = %+v", inner)
	}

	list, ok := preds[1].Value1.(ListValue)
	if !ok || len(list) != 3 || list[2] != NumberValue(3) {
		t.Errorf("list = %#v", preds[1].Value1)
	}
}

func TestParseAggregatesAndTrailingClauses(t *testing.T) {
	doc := Parse(companySchema(),
		"SELECT dept_id, count(*) FROM employees GROUP BY dept_id HAVING count(*) > 1 ORDER BY dept_id DESC LIMIT 5")

	if !doc.Clean() {
		t.Fatalf("unexpected diagnostics %+v", doc.Diagnostics.Global)
	}
	if it := doc.Select.Items[1]; it.Agg != AggCount || it.Val.Left.Col != Wildcard {
		t.Errorf("count item = %+v", it)
	}
	if len(doc.GroupBy) != 1 || doc.GroupBy[0].Col != "employees.dept_id" {
		t.Errorf("group by = %+v", doc.GroupBy)
	}

	having := doc.Having.Predicates()
	if len(having) != 1 {
		t.Fatalf("expected 1 having predicate, got %d", len(having))
	}
	if having[0].Left.Left.Agg != AggCount || having[0].Left.Left.Col != Wildcard || having[0].Op != OpGt {
		t.Errorf("having = %+v", having[0])
	}
	if having[0].Value1 != NumberValue(1) {
		t.Errorf("having value = %#v", having[0].Value1)
	}

	if doc.OrderBy.Dir != "desc" || len(doc.OrderBy.Units) != 1 || doc.OrderBy.Units[0].Left.Col != "employees.dept_id" {
		t.Errorf("order by = %+v", doc.OrderBy)
	}
	if doc.Limit == nil || *doc.Limit != 5 {
		t.Errorf("limit = %v", doc.Limit)
	}
}

func TestParseFunctionWrappers(t *testing.T) {
	s := NewSchema(map[string][]string{"t": {"x", "y"}})

	doc := Parse(s, "SELECT ROUND(x, 2) FROM t")
	if !doc.Clean() {
		t.Errorf("round: unexpected diagnostics %+v", doc.Diagnostics.Global)
	}
	if got := doc.Select.Items[0].Val.Left.Col; got != "t.x" {
		t.Errorf("round: col = %q", got)
	}

	doc = Parse(s, "SELECT CAST(x AS REAL) / y FROM t")
	if !doc.Clean() {
		t.Errorf("cast: unexpected diagnostics %+v", doc.Diagnostics.Global)
	}
	vu := doc.Select.Items[0].Val
	if vu.Op != UnitDiv || vu.Left.Col != "t.x" || vu.Right == nil || vu.Right.Col != "t.y" {
		t.Errorf("cast: val unit = %+v", vu)
	}

	doc = Parse(s, "SELECT max(x) - min(x) FROM t")
	vu = doc.Select.Items[0].Val
	if doc.Select.Items[0].Agg != AggNone || vu.Left.Agg != AggMax || vu.Op != UnitSub || vu.Right == nil || vu.Right.Agg != AggMin {
		t.Errorf("agg arithmetic: %+v", doc.Select.Items[0])
	}
}

func TestParseNestedRootParens(t *testing.T) {
	s := NewSchema(map[string][]string{"t": {"a"}, "u": {"b"}})

	doc := Parse(s, "((SELECT a FROM t))")
	if len(doc.Select.Items) != 1 || doc.Select.Items[0].Val.Left.Col != "t.a" {
		t.Errorf("select = %+v", doc.Select.Items)
	}
	if len(doc.From.Tables) != 1 || doc.From.Tables[0].Table != "t" {
		t.Errorf("from = %+v", doc.From.Tables)
	}
	if !doc.Clean() {
		t.Errorf("unexpected diagnostics %+v", doc.Diagnostics.Global)
	}

	doc = Parse(s, "(((SELECT a FROM t)) UNION (SELECT b FROM u));")
	if doc.Union == nil || doc.Union.From.Tables[0].Table != "u" {
		t.Fatalf("expected union operand, got %+v", doc.Union)
	}
	if !doc.Clean() {
		t.Errorf("unexpected diagnostics %+v", doc.Diagnostics.Global)
	}

	doc = Parse(s, "((SELECT a FROM t)")
	if !hasDiag(doc.Diagnostics.Global, "expected closing ')'") {
		t.Errorf("missing closer should be diagnosed: %+v", doc.Diagnostics.Global)
	}
}

func TestParseLeadingNot(t *testing.T) {
	s := NewSchema(map[string][]string{"t": {"a", "b"}})
	doc := Parse(s, "SELECT a FROM t WHERE NOT a = 1 AND b = 2")

	preds := doc.Where.Predicates()
	if len(preds) != 2 {
		t.Fatalf("expected 2 predicates, got %+v", preds)
	}
	if !preds[0].Not || preds[0].Op != OpEq || preds[0].Left.Left.Col != "t.a" {
		t.Errorf("first predicate = %+v", preds[0])
	}
	if preds[1].Not {
		t.Errorf("negation must not leak to the next predicate: %+v", preds[1])
	}
	if !doc.Clean() {
		t.Errorf("unexpected diagnostics %+v", doc.Diagnostics.Global)
	}
}

func TestParseIsNotNull(t *testing.T) {
	s := NewSchema(map[string][]string{"t": {"x", "y"}})
	doc := Parse(s, "SELECT x FROM t WHERE y IS NOT NULL")

	preds := doc.Where.Predicates()
	if len(preds) != 1 || preds[0].Op != OpIs || !preds[0].Not {
		t.Fatalf("predicate = %+v", preds)
	}
	if preds[0].Value1 != RawValue("null") {
		t.Errorf("value = %#v", preds[0].Value1)
	}
	if !doc.Clean() {
		t.Errorf("failed column attempt must not leave diagnostics: %+v", doc.Diagnostics.Global)
	}
}

func TestParseDiagnostics(t *testing.T) {
	s := NewSchema(map[string][]string{"t": {"x", "y"}})

	tests := []struct {
		name   string
		query  string
		clause string
		want   string
	}{
		{"unknown column", "SELECT salary FROM t", ClauseSelect, "Error col: salary"},
		{"unknown table", "SELECT x FROM nope", ClauseFrom, "unknown table 'nope'"},
		{"missing from", "SELECT 1", ClauseFrom, "'from' not found"},
		{"missing where op", "SELECT x FROM t WHERE y", ClauseWhere, "expected where-op"},
		{"group without by", "SELECT x FROM t GROUP x", ClauseGroupBy, "expected 'by'"},
		{"limit not integer", "SELECT x FROM t LIMIT abc", ClauseLimit, "not an integer"},
		{"unknown alias", "SELECT z.x FROM t", ClauseSelect, "unknown alias/column 'z.x'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Parse(s, tt.query)
			if doc.Clean() {
				t.Fatal("expected diagnostics")
			}
			if !hasDiag(doc.Diagnostics.ByClause[tt.clause], tt.want) {
				t.Errorf("clause %s: want %q, got %+v", tt.clause, tt.want, doc.Diagnostics.ByClause)
			}
			if !hasDiag(doc.Diagnostics.Global, tt.want) {
				t.Errorf("global list is missing %q", tt.want)
			}
		})
	}
}

func TestParseLimitCarriesCause(t *testing.T) {
	s := NewSchema(map[string][]string{"t": {"x"}})
	doc := Parse(s, "SELECT x FROM t LIMIT abc")
	if doc.Limit != nil {
		t.Errorf("limit = %v, want nil", *doc.Limit)
	}
	list := doc.Diagnostics.ByClause[ClauseLimit]
	if len(list) != 1 || list[0].Cause == "" {
		t.Errorf("limit diagnostics = %+v", list)
	}
}

func TestParseUnknownColumnIsUnresolved(t *testing.T) {
	s := NewSchema(map[string][]string{"t": {"x"}})
	doc := Parse(s, "SELECT salary FROM t")
	if doc.Select.Items[0].Val.Left.Col.Resolved() {
		t.Errorf("expected unresolved column, got %q", doc.Select.Items[0].Val.Left.Col)
	}
}

func TestParseTrailingTokens(t *testing.T) {
	s := NewSchema(map[string][]string{"t": {"x"}})
	doc := Parse(s, "SELECT x FROM t ) x")
	if !hasDiag(doc.Diagnostics.Global, "unparsed trailing tokens") {
		t.Errorf("expected trailing-token diagnostic, got %+v", doc.Diagnostics.Global)
	}
}

func TestParseDepthLimit(t *testing.T) {
	s := NewSchema(map[string][]string{"t": {"x"}})
	q := "SELECT x FROM t WHERE x IN " +
		strings.Repeat("(SELECT x FROM t WHERE x IN ", 40) + "(1)" + strings.Repeat(")", 40)

	doc := Parse(s, q)
	if !hasDiag(doc.Diagnostics.Global, "nesting deeper than") {
		t.Errorf("expected depth diagnostic, got %d diagnostics", len(doc.Diagnostics.Global))
	}
	if hasDiag(doc.Diagnostics.Global, "internal parser failure") {
		t.Error("depth limit must not surface as a recovered failure")
	}
}

func TestParseEmptyAndNilSchema(t *testing.T) {
	doc := Parse(nil, "")
	if doc == nil {
		t.Fatal("Parse returned nil")
	}
	if doc.Clean() {
		t.Error("empty query should be diagnosed")
	}
}

func TestParseIdempotent(t *testing.T) {
	s := companySchema()
	queries := []string{
		"SELECT e.name FROM employees AS e JOIN departments AS d ON e.dept_id = d.id WHERE d.name = 'Sales'",
		"SELECT salary FROM employees WHERE id BETWEEN 1",
		"SELECT name FROM employees WHERE 'unterminated",
	}
	for _, q := range queries {
		first, err := json.Marshal(Parse(s, q))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		second, _ := json.Marshal(Parse(s, q))
		if string(first) != string(second) {
			t.Errorf("%s: output differs between calls\n%s\n%s", q, first, second)
		}
	}
}

func TestParseConcurrentCallsAreIndependent(t *testing.T) {
	s := companySchema()
	clean := "SELECT name FROM employees"
	noisy := "SELECT salary FROM employees LIMIT x"

	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for i := 0; i < 32; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if doc := Parse(s, clean); !doc.Clean() {
				errs <- "clean query picked up diagnostics"
			}
		}()
		go func() {
			defer wg.Done()
			if doc := Parse(s, noisy); len(doc.Diagnostics.Global) != 2 {
				errs <- "noisy query has wrong diagnostic count"
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}
