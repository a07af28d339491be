package parser

import (
	"fmt"
	"strings"
)

// parseCol resolves the token at idx to a column identifier. Qualified
// names go through the alias map; bare names are looked up in the default
// tables in the order the FROM clause introduced them, first match wins.
func (p *parser) parseCol(idx int, sc *scope, defaults []string) (int, ColumnRef) {
	if idx >= len(p.toks) {
		p.fail("parse_col: unexpected end of query", idx)
		return idx + 1, Unresolved
	}
	tok := strings.ToLower(unquote(p.toks[idx]))
	if tok == "*" {
		return idx + 1, Wildcard
	}

	if strings.Contains(tok, ".") {
		parts := strings.Split(tok, ".")
		if len(parts) != 2 {
			p.fail(fmt.Sprintf("parse_col: malformed composite token '%s'", tok), idx)
			return idx + 1, Unresolved
		}
		alias, col := parts[0], parts[1]
		if col == "*" {
			return idx + 1, Wildcard
		}
		table := alias
		if t, ok := sc.resolve(alias); ok {
			table = t
		}
		if id, ok := p.schema.Lookup(table + "." + col); ok {
			return idx + 1, id
		}
		p.fail(fmt.Sprintf("parse_col: unknown alias/column '%s'", tok), idx)
		return idx + 1, Unresolved
	}

	if len(defaults) == 0 {
		p.fail("parse_col: default_tables missing or empty", idx)
		return idx + 1, Unresolved
	}
	for _, d := range defaults {
		table := d
		if t, ok := sc.local(d); ok {
			table = t
		}
		if p.schema.HasColumn(table, tok) {
			id, _ := p.schema.Lookup(table + "." + tok)
			return idx + 1, id
		}
	}
	p.fail(fmt.Sprintf("Error col: %s", tok), idx)
	return idx + 1, Unresolved
}

// isWrapper reports whether idx starts a scalar function call such as
// CAST(, NULLIF( or ROUND( whose first argument is a column.
func (p *parser) isWrapper(idx int) bool {
	tok := p.at(idx)
	if p.at(idx+1) != "(" || !isWord(tok) {
		return false
	}
	_, agg := aggOf(tok)
	return !agg
}

// parseColUnit parses a column unit and requires every paren it opened to
// be closed.
func (p *parser) parseColUnit(idx int, sc *scope, defaults []string) (int, ColUnit) {
	idx, cu, open := p.colUnit(idx, sc, defaults)
	return p.closeArgs(idx, open), cu
}

// colUnit parses [wrapper( | (]* [agg( [distinct]] column [as type] and
// closes as many of its parens as it can. It returns the number of parens
// still open when it stopped at a ",", leaving the remaining arguments to
// the caller.
func (p *parser) colUnit(idx int, sc *scope, defaults []string) (int, ColUnit, int) {
	var cu ColUnit
	open := 0
	for {
		if p.at(idx) == "(" {
			open++
			idx++
			continue
		}
		if p.isWrapper(idx) {
			open++
			idx += 2
			// strftime('%Y', col): a leading format literal is noise.
			if isLiteral(p.at(idx)) && p.at(idx+1) == "," {
				idx += 2
			}
			continue
		}
		break
	}

	if agg, ok := aggOf(p.at(idx)); ok && p.at(idx+1) == "(" {
		cu.Agg = agg
		idx += 2
		if p.at(idx) == "distinct" {
			cu.Distinct = true
			idx++
		}
		var inner ColUnit
		idx, inner = p.parseColUnit(idx, sc, defaults)
		cu.Col = inner.Col
		cu.Distinct = cu.Distinct || inner.Distinct
		if p.at(idx) == "as" {
			idx += 2
		}
		if p.at(idx) == ")" {
			idx++
		} else {
			p.fail("parse_col_unit: expected ')' after agg col", idx)
		}
	} else {
		if _, ok := aggOf(p.at(idx)); ok {
			p.fail("parse_col_unit: expected '(' after agg op", idx+1)
			idx++
		}
		if p.at(idx) == "distinct" {
			cu.Distinct = true
			idx++
		}
		idx, cu.Col = p.parseCol(idx, sc, defaults)
	}

	// CAST(x AS type)
	if p.at(idx) == "as" && open > 0 {
		idx += 2
	}
	for open > 0 && p.at(idx) == ")" {
		open--
		idx++
	}
	if open > 0 && p.at(idx) != "," {
		p.fail("parse_col_unit: expected closing ')' for block", idx)
		open = 0
	}
	return idx, cu, open
}

// closeArgs skips the trailing arguments of open function calls. A single
// bare numeral (ROUND(x, 2)) or an empty trailing comma is tolerated
// silently; anything else is skipped up to the closing paren and diagnosed.
func (p *parser) closeArgs(idx, open int) int {
	for ; open > 0; open-- {
		switch {
		case p.at(idx) == ")":
			idx++
		case p.at(idx) == "," && p.at(idx+1) == ")":
			idx += 2
		case p.at(idx) == ",":
			if _, ok := number(p.at(idx + 1)); ok && p.at(idx+2) == ")" {
				idx += 3
				continue
			}
			end := p.skipToClose(idx)
			p.fail("parse_val_unit: extra function arguments ignored", idx)
			idx = end
		default:
			p.fail("parse_val_unit: expected closing ')' for block", idx)
			return idx
		}
	}
	return idx
}

// skipToClose returns the index just past the ")" that closes the group idx
// is in, or len(toks).
func (p *parser) skipToClose(idx int) int {
	depth := 0
	for i := idx; i < len(p.toks); i++ {
		switch p.toks[i] {
		case "(":
			depth++
		case ")":
			if depth == 0 {
				return i + 1
			}
			depth--
		}
	}
	return len(p.toks)
}

// tryColUnit attempts to read the whole of toks as one column unit. A failed
// attempt leaves no diagnostics behind; the caller falls back to a literal.
func (p *parser) tryColUnit(toks []string, sc *scope, defaults []string) (ColUnit, bool) {
	m := p.diags.mark()
	sub := &parser{toks: toks, schema: p.schema, diags: p.diags, depth: p.depth}
	end, cu := sub.parseColUnit(0, sc, defaults)
	if cu.Col.Resolved() && end >= len(toks) && p.diags.mark() == m {
		return cu, true
	}
	p.diags.rollback(m)
	return ColUnit{}, false
}
