// Package parser turns a SQL query into a structural IR, resolving every
// column and table it can against a schema. Parsing never fails: whatever
// cannot be understood is recorded as a diagnostic and the rest of the query
// is still returned.
package parser

import "fmt"

// maxDepth bounds query nesting. Deeper levels are skipped and diagnosed.
const maxDepth = 32

// parser holds the state of one Parse call.
type parser struct {
	toks   []string
	schema *Schema
	diags  *collector
	depth  int
}

// Parse parses query against schema. The returned document is never nil;
// Diagnostics.Global on it lists every irregularity seen during the call.
func Parse(schema *Schema, query string) *SQL {
	if schema == nil {
		schema = NewSchema(nil)
	}
	c := &collector{}
	p := &parser{
		toks:   cleanTokens(tokenize(query, c)),
		schema: schema,
		diags:  c,
	}
	root := &SQL{}
	p.run(root)
	root.Diagnostics.Global = c.all()
	return root
}

func (p *parser) run(root *SQL) {
	defer func() {
		if r := recover(); r != nil {
			p.diags.record("parse: internal parser failure", p.toks, -1, fmt.Errorf("%v", r))
		}
	}()
	idx := p.parseSQL(0, nil, root)
	if idx < len(p.toks) {
		p.fail("parse: unparsed trailing tokens", idx)
	}
}

func (p *parser) at(i int) string {
	if i < 0 || i >= len(p.toks) {
		return ""
	}
	return p.toks[i]
}

func (p *parser) fail(msg string, idx int) {
	p.diags.record(msg, p.toks, idx, nil)
}

// parseSQL parses one query level starting at idx into doc and returns the
// index past it. outer is the alias scope of the enclosing level.
func (p *parser) parseSQL(idx int, outer *scope, doc *SQL) int {
	if p.depth >= maxDepth {
		p.fail(fmt.Sprintf("parse_sql: nesting deeper than %d levels", maxDepth), idx)
		return p.skipLevel(idx)
	}
	p.depth++
	defer func() { p.depth-- }()

	block := p.at(idx) == "("
	if block && p.at(idx+1) == "(" {
		return p.parseWrapped(idx, outer, doc)
	}
	if block {
		idx++
	}
	sc := p.newScope(idx, levelEnd(p.toks, idx), outer)

	m := p.diags.mark()
	fromEnd, from, defaults, hasFrom := p.parseFrom(idx, sc)
	doc.From = from
	doc.Diagnostics.attach(ClauseFrom, p.diags.since(m))

	m = p.diags.mark()
	selEnd, sel := p.parseSelect(idx, sc, defaults)
	doc.Select = sel
	doc.Diagnostics.attach(ClauseSelect, p.diags.since(m))

	idx = selEnd
	if hasFrom {
		idx = fromEnd
	}

	m = p.diags.mark()
	idx, doc.Where = p.parseWhere(idx, sc, defaults)
	doc.Diagnostics.attach(ClauseWhere, p.diags.since(m))

	m = p.diags.mark()
	idx, doc.GroupBy = p.parseGroupBy(idx, sc, defaults)
	doc.Diagnostics.attach(ClauseGroupBy, p.diags.since(m))

	m = p.diags.mark()
	idx, doc.Having = p.parseHaving(idx, sc, defaults)
	doc.Diagnostics.attach(ClauseHaving, p.diags.since(m))

	m = p.diags.mark()
	idx, doc.OrderBy = p.parseOrderBy(idx, sc, defaults)
	doc.Diagnostics.attach(ClauseOrderBy, p.diags.since(m))

	m = p.diags.mark()
	idx, doc.Limit = p.parseLimit(idx)
	doc.Diagnostics.attach(ClauseLimit, p.diags.since(m))

	idx = p.skipSemicolons(idx)
	if block {
		// (select a from t union select b from u)
		idx = p.parseSetOp(idx, outer, doc)
		if p.at(idx) == ")" {
			idx++
		} else {
			p.fail("parse_sql: expected closing ')' for block", idx)
		}
	}
	idx = p.skipSemicolons(idx)
	// A parenthesized subquery ends at its ")"; only a top-level statement
	// may continue with a set operation after the paren.
	if op, _ := doc.SetOp(); op == "" && (!block || outer == nil) {
		idx = p.parseSetOp(idx, outer, doc)
	}
	return idx
}

// parseWrapped parses a block whose first token opens another block, as in
// "((select a from t))". The outer parens add nothing to the query.
func (p *parser) parseWrapped(idx int, outer *scope, doc *SQL) int {
	idx = p.parseSQL(idx+1, outer, doc)
	if op, _ := doc.SetOp(); op == "" {
		// ((select a from t) union (select b from u))
		idx = p.parseSetOp(idx, outer, doc)
	}
	if p.at(idx) == ")" {
		idx++
	} else {
		p.fail("parse_sql: expected closing ')' for block", idx)
	}
	idx = p.skipSemicolons(idx)
	if op, _ := doc.SetOp(); op == "" && outer == nil {
		idx = p.parseSetOp(idx, outer, doc)
	}
	return idx
}

// parseSetOp attaches the set operation starting at idx, if any. A chain
// "a union b union c" nests to the right: a.Union = b, b.Union = c.
func (p *parser) parseSetOp(idx int, outer *scope, doc *SQL) int {
	op := p.at(idx)
	if !setOps[op] {
		return idx
	}
	idx++
	if p.at(idx) == "all" {
		idx++
	}
	m := p.diags.mark()
	rhs := &SQL{}
	switch op {
	case "intersect":
		doc.Intersect = rhs
	case "union":
		doc.Union = rhs
	case "except":
		doc.Except = rhs
	}
	idx = p.parseSQL(idx, outer, rhs)
	doc.Diagnostics.attach(op, p.diags.since(m))
	return idx
}

func (p *parser) skipSemicolons(idx int) int {
	for p.at(idx) == ";" {
		idx++
	}
	return idx
}

// skipLevel returns the index past the level starting at idx, including its
// closing paren when it opens with one.
func (p *parser) skipLevel(idx int) int {
	if p.at(idx) == "(" {
		return closeParen(p.toks, idx) + 1
	}
	return levelEnd(p.toks, idx)
}
