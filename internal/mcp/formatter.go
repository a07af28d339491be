package mcp

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/maraichr/sqlshape/internal/parser"
	"github.com/maraichr/sqlshape/pkg/models"
)

const defaultMaxTokens = 4000

// ResponseBuilder constructs token-budgeted Markdown responses for MCP tools.
type ResponseBuilder struct {
	buf           strings.Builder
	tokenEstimate int
	maxTokens     int
	truncated     bool
	itemCount     int
}

// NewResponseBuilder creates a builder with the given token budget.
// If maxTokens <= 0, defaultMaxTokens is used.
func NewResponseBuilder(maxTokens int) *ResponseBuilder {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &ResponseBuilder{maxTokens: maxTokens}
}

// AddHeader writes a header line to the response.
func (rb *ResponseBuilder) AddHeader(text string) {
	line := text + "\n\n"
	rb.buf.WriteString(line)
	rb.tokenEstimate += len(line) / 4
}

// AddLine writes a single line to the response, returning false if budget exceeded.
func (rb *ResponseBuilder) AddLine(text string) bool {
	return rb.add(text + "\n")
}

// AddItem writes a counted list item.
func (rb *ResponseBuilder) AddItem(text string) bool {
	if !rb.add("- " + text + "\n") {
		return false
	}
	rb.itemCount++
	return true
}

// AddSection writes a section with a heading.
func (rb *ResponseBuilder) AddSection(heading string, content string) bool {
	return rb.add(fmt.Sprintf("### %s\n%s\n\n", heading, content))
}

// AddCodeBlock writes a fenced block in the given language.
func (rb *ResponseBuilder) AddCodeBlock(lang, code string) bool {
	return rb.add("```" + lang + "\n" + strings.TrimRight(code, "\n") + "\n```\n\n")
}

// AddRawText writes raw text, respecting the budget.
func (rb *ResponseBuilder) AddRawText(text string) bool {
	return rb.add(text)
}

func (rb *ResponseBuilder) add(text string) bool {
	cost := len(text) / 4
	if rb.tokenEstimate+cost > rb.maxTokens {
		rb.truncated = true
		return false
	}
	rb.buf.WriteString(text)
	rb.tokenEstimate += cost
	return true
}

// Finalize appends truncation notice and returns the final response text.
func (rb *ResponseBuilder) Finalize(totalCount, returnedCount int) string {
	if rb.truncated || returnedCount < totalCount {
		rb.buf.WriteString(fmt.Sprintf(
			"\n---\n*Showing %d of %d items (truncated to ~%d tokens). Increase `max_response_tokens` for the full output.*\n",
			returnedCount, totalCount, rb.maxTokens))
	}
	return rb.buf.String()
}

// FinalizeWithHints appends navigation hints and truncation notice.
func (rb *ResponseBuilder) FinalizeWithHints(totalCount, returnedCount int, hints *NavigationHints) string {
	if rb.truncated || returnedCount < totalCount {
		rb.buf.WriteString(fmt.Sprintf(
			"\n---\n*Showing %d of %d items (~%d tokens).*\n",
			returnedCount, totalCount, rb.tokenEstimate))
	}

	if hints != nil && len(hints.Steps) > 0 {
		rb.buf.WriteString("\n---\n**Next steps:**\n")
		for _, step := range hints.Steps {
			rb.buf.WriteString(fmt.Sprintf("- %s → `%s`", step.Description, step.Tool))
			if step.EstimatedTokens > 0 {
				rb.buf.WriteString(fmt.Sprintf(" (~%d tokens)", step.EstimatedTokens))
			}
			rb.buf.WriteString("\n")
		}
	}

	return rb.buf.String()
}

// TokenEstimate returns the current estimated token count.
func (rb *ResponseBuilder) TokenEstimate() int {
	return rb.tokenEstimate
}

// IsTruncated returns whether the response was truncated.
func (rb *ResponseBuilder) IsTruncated() bool {
	return rb.truncated
}

// ItemCount returns the number of items added.
func (rb *ResponseBuilder) ItemCount() int {
	return rb.itemCount
}

// FormatDiagnostic renders one diagnostic as a single line.
func FormatDiagnostic(d parser.Diagnostic) string {
	var b strings.Builder
	b.WriteString(d.Message)
	if d.Index >= 0 {
		fmt.Fprintf(&b, " at token %d", d.Index)
	}
	if len(d.Sample) > 0 {
		fmt.Fprintf(&b, " near `%s`", strings.Join(d.Sample, " "))
	}
	if d.Cause != "" {
		fmt.Fprintf(&b, " (%s)", d.Cause)
	}
	return b.String()
}

// SummarizeSQL lists the clauses present in doc, one short line each.
func SummarizeSQL(doc *parser.SQL) []string {
	var lines []string
	distinct := ""
	if doc.Select.Distinct {
		distinct = "distinct "
	}
	lines = append(lines, fmt.Sprintf("select: %s%d item(s)", distinct, len(doc.Select.Items)))

	tables := make([]string, 0, len(doc.From.Tables))
	for _, t := range doc.From.Tables {
		switch {
		case t.Kind == parser.TableSubquery:
			tables = append(tables, "(subquery)")
		case t.Table.Resolved():
			tables = append(tables, string(t.Table))
		default:
			tables = append(tables, "?")
		}
	}
	lines = append(lines, "from: "+strings.Join(tables, ", "))
	if n := len(doc.From.Conds.Predicates()); n > 0 {
		lines = append(lines, fmt.Sprintf("join conditions: %d", n))
	}
	if n := len(doc.Where.Predicates()); n > 0 {
		lines = append(lines, fmt.Sprintf("where: %d predicate(s) joined by %s", n, connectives(doc.Where)))
	}
	if len(doc.GroupBy) > 0 {
		lines = append(lines, fmt.Sprintf("group by: %d column(s)", len(doc.GroupBy)))
	}
	if n := len(doc.Having.Predicates()); n > 0 {
		lines = append(lines, fmt.Sprintf("having: %d predicate(s)", n))
	}
	if doc.OrderBy.Dir != "" {
		lines = append(lines, fmt.Sprintf("order by: %d unit(s) %s", len(doc.OrderBy.Units), doc.OrderBy.Dir))
	}
	if doc.Limit != nil {
		lines = append(lines, fmt.Sprintf("limit: %d", *doc.Limit))
	}
	if op, rhs := doc.SetOp(); rhs != nil {
		lines = append(lines, op+": nested query")
	}
	return lines
}

func connectives(c parser.Condition) string {
	conns := c.Connectives()
	if len(conns) == 0 {
		return "nothing"
	}
	seen := map[string]bool{}
	var out []string
	for _, op := range conns {
		if !seen[op] {
			seen[op] = true
			out = append(out, op)
		}
	}
	sort.Strings(out)
	return strings.Join(out, "/")
}

// IndentJSON renders v as indented JSON, or an error line.
func IndentJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "error: " + err.Error()
	}
	return string(data)
}

// FormatRecord renders an evaluation record as Markdown.
func FormatRecord(rb *ResponseBuilder, rec *models.Record) {
	verdict := "mismatch"
	if rec.ExactMatch {
		verdict = "exact match"
	}
	rb.AddHeader(fmt.Sprintf("**Comparison**: %s (mean F1 %.2f)", verdict, rec.MeanF1))
	if rec.LowConfidence {
		rb.AddLine(fmt.Sprintf("*Low confidence: %d gold / %d predicted parse diagnostics.*",
			rec.GoldDiagnostics, rec.PredDiagnostics))
	}

	rb.AddLine("| component | gold | pred | matched | exact |")
	rb.AddLine("|---|---|---|---|---|")
	for _, c := range rec.Components {
		mark := "no"
		if c.Exact {
			mark = "yes"
		}
		if !rb.AddLine(fmt.Sprintf("| %s | %d | %d | %d | %s |", c.Name, c.Gold, c.Pred, c.Matched, mark)) {
			return
		}
	}
	rb.AddLine("")

	if len(rec.MissingTables) > 0 {
		rb.AddLine("Tables not in schema: `" + strings.Join(rec.MissingTables, "`, `") + "`")
	}
	if rec.PGCheck != nil {
		rb.AddLine(fmt.Sprintf("PostgreSQL check: gold valid=%t, pred valid=%t, same fingerprint=%t",
			rec.PGCheck.GoldValid, rec.PGCheck.PredValid, rec.PGCheck.FingerprintMatch))
		if rec.PGCheck.PredError != "" {
			rb.AddLine("Predicted query error: " + rec.PGCheck.PredError)
		}
	}
	if rec.ExecMatch != nil {
		line := fmt.Sprintf("Execution match: %t", *rec.ExecMatch)
		if rec.ExecError != "" {
			line += " (" + rec.ExecError + ")"
		}
		rb.AddLine(line)
	}
}
