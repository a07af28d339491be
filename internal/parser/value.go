package parser

import "strings"

// parseValUnit parses a column unit optionally followed by an arithmetic
// operator and a second column unit, all inside an optional "(" block.
func (p *parser) parseValUnit(idx int, sc *scope, defaults []string) (int, ValUnit) {
	var vu ValUnit
	block := p.at(idx) == "(" && p.at(idx+1) != "select"
	if block {
		idx++
	}

	idx, left, open := p.colUnit(idx, sc, defaults)
	vu.Left = left
	if op, ok := unitOf(p.at(idx)); ok && open == 0 {
		idx++
		var right ColUnit
		idx, right, open = p.colUnit(idx, sc, defaults)
		vu.Op = op
		vu.Right = &right
	}
	idx = p.closeArgs(idx, open)

	if block {
		if p.at(idx) == ")" {
			idx++
		} else {
			p.fail("parse_val_unit: expected closing ')' for block", idx)
		}
	}
	return idx, vu
}

// parseValue parses a predicate operand: a nested query, a literal, a
// number, a column unit or, failing all of those, the raw token run.
func (p *parser) parseValue(idx int, sc *scope, defaults []string) (int, Value) {
	block := p.at(idx) == "(" && p.at(idx+1) != "select"
	if p.at(idx) == "(" && p.at(idx+1) == "select" {
		// The subquery owns its parens.
		sub := &SQL{}
		idx = p.parseSQL(idx, sc, sub)
		return idx, SubqueryValue{Query: sub}
	}
	if block {
		idx++
	}

	idx, v := p.valueItem(idx, sc, defaults)
	if !block {
		return idx, v
	}

	if p.at(idx) == "," {
		list := ListValue{v}
		for p.at(idx) == "," {
			var next Value
			idx, next = p.valueItem(idx+1, sc, defaults)
			list = append(list, next)
		}
		v = list
	}
	if p.at(idx) == ")" {
		idx++
	} else {
		p.fail("parse_value: expected closing ')' for block", idx)
	}
	return idx, v
}

func (p *parser) valueItem(idx int, sc *scope, defaults []string) (int, Value) {
	tok := p.at(idx)
	switch {
	case idx >= len(p.toks):
		p.fail("parse_value: unexpected end of query", idx)
		return idx, RawValue("")
	case tok == "select":
		sub := &SQL{}
		idx = p.parseSQL(idx, sc, sub)
		return idx, SubqueryValue{Query: sub}
	case tok == "(" && p.at(idx+1) == "select":
		sub := &SQL{}
		idx = p.parseSQL(idx, sc, sub)
		return idx, SubqueryValue{Query: sub}
	case isLiteral(tok):
		return idx + 1, StringValue(unquote(tok))
	}
	if f, ok := number(tok); ok {
		return idx + 1, NumberValue(f)
	}
	if tok == "-" {
		if f, ok := number(p.at(idx + 1)); ok {
			return idx + 2, NumberValue(-f)
		}
	}

	end := idx
	depth := 0
	for end < len(p.toks) {
		t := p.toks[end]
		if depth == 0 && endsValue(t) {
			break
		}
		switch t {
		case "(":
			depth++
		case ")":
			depth--
		}
		end++
	}
	if end == idx {
		p.fail("parse_value: expected value", idx)
		return idx, RawValue("")
	}

	run := p.toks[idx:end]
	if cu, ok := p.tryColUnit(run, sc, defaults); ok {
		return end, ColumnValue{Unit: cu}
	}
	return end, RawValue(strings.Join(run, " "))
}
