package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// parseSelect parses the select list starting at idx. Select-list aliases
// are skipped and not retained.
func (p *parser) parseSelect(idx int, sc *scope, defaults []string) (int, Select) {
	var sel Select
	if p.at(idx) != "select" {
		p.fail("parse_select: 'select' not found", idx)
		return idx, sel
	}
	idx++
	if p.at(idx) == "distinct" {
		sel.Distinct = true
		idx++
	}

	for idx < len(p.toks) {
		tok := p.at(idx)
		if isClauseKeyword(tok) || tok == ")" || tok == ";" {
			break
		}
		agg := AggNone
		if p.wholeAggItem(idx) {
			agg, _ = aggOf(tok)
			idx++
		}
		var vu ValUnit
		idx, vu = p.parseValUnit(idx, sc, defaults)
		sel.Items = append(sel.Items, SelectItem{Agg: agg, Val: vu})

		if p.at(idx) == "as" {
			idx += 2
		} else if isWord(p.at(idx)) {
			idx++
		}
		if p.at(idx) == "," {
			idx++
		}
	}
	return idx, sel
}

// wholeAggItem reports whether the select item at idx is exactly one
// aggregate call, as in "count(*)" or "max(salary) as top". Aggregates
// inside arithmetic are left to the column unit.
func (p *parser) wholeAggItem(idx int) bool {
	if _, ok := aggOf(p.at(idx)); !ok || p.at(idx+1) != "(" {
		return false
	}
	after := p.at(closeParen(p.toks, idx+1) + 1)
	return after == "" || after == "," || after == "as" || after == ")" || after == ";" ||
		isClauseKeyword(after) || isWord(after)
}

// findFrom locates the FROM keyword of the level starting at idx, skipping
// parenthesized groups so a nested query's FROM is never taken.
func (p *parser) findFrom(idx int) int {
	end := levelEnd(p.toks, idx)
	for i := idx; i < end; i++ {
		switch p.toks[i] {
		case "(":
			i = closeParen(p.toks, i)
		case "from":
			return i
		}
	}
	return -1
}

// parseFrom parses the FROM clause of the level starting at idx. It returns
// the index past the clause, the clause, and the default tables in the order
// they appear. ok is false when the level has no FROM.
func (p *parser) parseFrom(idx int, sc *scope) (next int, from From, defaults []string, ok bool) {
	at := p.findFrom(idx)
	if at < 0 {
		p.fail("parse_from: 'from' not found", idx)
		return idx, from, nil, false
	}
	idx = at + 1

	for idx < len(p.toks) {
		idx = p.skipJoin(idx)
		if p.at(idx) == "(" && p.at(idx+1) == "select" {
			sub := &SQL{}
			idx = p.parseSQL(idx, sc, sub)
			from.Tables = append(from.Tables, TableUnit{Kind: TableSubquery, Subquery: sub})
			if p.at(idx) == "as" {
				idx += 2
			} else if isWord(p.at(idx)) {
				idx++
			}
		} else {
			block := p.at(idx) == "("
			if block {
				idx++
			}
			var tu TableUnit
			var name string
			idx, tu, name = p.parseTableUnit(idx, sc)
			from.Tables = append(from.Tables, tu)
			if name != "" {
				defaults = append(defaults, name)
			}
			if block {
				if p.at(idx) == ")" {
					idx++
				} else {
					p.fail("parse_from: expected closing ')' for block", idx)
				}
			}
		}

		if p.at(idx) == "on" {
			var conds Condition
			idx, conds = p.parseCondition(idx+1, sc, defaults)
			if len(from.Conds) > 0 && len(conds) > 0 {
				from.Conds = append(from.Conds, CondItem{Connective: "and"})
			}
			from.Conds = append(from.Conds, conds...)
		}

		tok := p.at(idx)
		if idx >= len(p.toks) || isClauseKeyword(tok) || tok == ")" || tok == ";" {
			break
		}
		if tok == "," {
			idx++
			continue
		}
		if tok != "join" && !joinPrefixes[tok] {
			p.fail("parse_from: unexpected token in from clause", idx)
			break
		}
	}
	return idx, from, defaults, true
}

// skipJoin moves past [inner|left|right|full|outer|cross|natural]* join.
func (p *parser) skipJoin(idx int) int {
	j := idx
	for joinPrefixes[p.at(j)] {
		j++
	}
	if p.at(j) == "join" {
		return j + 1
	}
	return idx
}

// parseTableUnit parses "name [as alias | alias]". It returns the canonical
// table name, or "" when the table is unknown.
func (p *parser) parseTableUnit(idx int, sc *scope) (int, TableUnit, string) {
	tu := TableUnit{Kind: TableRef}
	if idx >= len(p.toks) {
		p.fail("parse_table_unit: unexpected end of query", idx)
		return idx + 1, tu, ""
	}
	start := idx
	name := strings.ToLower(unquote(p.toks[idx]))
	if t, ok := sc.local(name); ok {
		name = t
	}
	// schema-qualified names: main.employees
	if !p.schema.HasTable(name) {
		if dot := strings.LastIndex(name, "."); dot >= 0 && p.schema.HasTable(name[dot+1:]) {
			name = name[dot+1:]
		}
	}

	switch next := p.at(idx + 1); {
	case next == "as":
		idx += 3
	case isWord(next):
		if p.schema.HasTable(next) {
			p.fail(fmt.Sprintf("alias '%s' conflicts with real table name", next), idx+1)
		} else {
			sc.aliases[next] = name
		}
		idx += 2
	default:
		idx++
	}

	if !p.schema.HasTable(name) {
		p.fail(fmt.Sprintf("parse_table_unit: unknown table '%s'", name), start)
		return idx, tu, ""
	}
	tu.Table, _ = p.schema.Lookup(name)
	return idx, tu, name
}

func (p *parser) parseWhere(idx int, sc *scope, defaults []string) (int, Condition) {
	if p.at(idx) != "where" {
		return idx, nil
	}
	return p.parseCondition(idx+1, sc, defaults)
}

func (p *parser) parseGroupBy(idx int, sc *scope, defaults []string) (int, []ColUnit) {
	if p.at(idx) != "group" {
		return idx, nil
	}
	idx++
	if p.at(idx) != "by" {
		p.fail("parse_group_by: expected 'by' after 'group'", idx)
		return idx, nil
	}
	idx++

	var units []ColUnit
	for idx < len(p.toks) {
		tok := p.at(idx)
		if isClauseKeyword(tok) || tok == ")" || tok == ";" {
			break
		}
		var cu ColUnit
		idx, cu = p.parseColUnit(idx, sc, defaults)
		units = append(units, cu)
		if p.at(idx) != "," {
			break
		}
		idx++
	}
	return idx, units
}

func (p *parser) parseHaving(idx int, sc *scope, defaults []string) (int, Condition) {
	if p.at(idx) != "having" {
		return idx, nil
	}
	return p.parseCondition(idx+1, sc, defaults)
}

// parseOrderBy collects the order units. The last direction keyword seen
// applies to the whole clause; the default is "asc".
func (p *parser) parseOrderBy(idx int, sc *scope, defaults []string) (int, OrderBy) {
	var ob OrderBy
	if p.at(idx) != "order" {
		return idx, ob
	}
	idx++
	if p.at(idx) != "by" {
		p.fail("parse_order_by: expected 'by' after 'order'", idx)
		return idx, ob
	}
	idx++

	ob.Dir = "asc"
	for idx < len(p.toks) {
		tok := p.at(idx)
		if isClauseKeyword(tok) || tok == ")" || tok == ";" {
			break
		}
		var vu ValUnit
		idx, vu = p.parseValUnit(idx, sc, defaults)
		ob.Units = append(ob.Units, vu)
		if d := p.at(idx); d == "asc" || d == "desc" {
			ob.Dir = d
			idx++
		}
		// NULLS FIRST / NULLS LAST
		if p.at(idx) == "nulls" {
			idx += 2
		}
		if p.at(idx) != "," {
			break
		}
		idx++
	}
	return idx, ob
}

// parseLimit reads LIMIT n, LIMIT n OFFSET m and LIMIT m, n. Only the row
// count is kept.
func (p *parser) parseLimit(idx int) (int, *int) {
	if p.at(idx) != "limit" {
		return idx, nil
	}
	n, err := strconv.Atoi(p.at(idx + 1))
	if err != nil {
		p.diags.record("parse_limit: limit value is not an integer", p.toks, idx+1, err)
		return idx + 2, nil
	}
	idx += 2
	switch p.at(idx) {
	case "offset":
		idx += 2
	case ",":
		if count, err := strconv.Atoi(p.at(idx + 1)); err == nil {
			n = count
		} else {
			p.diags.record("parse_limit: limit value is not an integer", p.toks, idx+1, err)
		}
		idx += 2
	}
	return idx, &n
}
