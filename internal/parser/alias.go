package parser

import (
	"fmt"
	"strings"
)

// InvalidAlias is the target recorded for an alias whose parenthesized
// expression could not be recovered.
const InvalidAlias = "Invalid prefix tokens"

// matchBrackets finds the outermost balanced parenthesis group ending at the
// last ")" of prefix that closes a top-level group, extended one token to the
// left to take in a function or keyword name. Unbalanced or absent parens
// return false; that is a normal outcome.
func matchBrackets(prefix []string) (bool, []string) {
	var stack []int
	lidx, ridx := -1, -1
	for i, t := range prefix {
		switch t {
		case "(":
			stack = append(stack, i)
		case ")":
			if len(stack) == 0 {
				return false, nil
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				lidx, ridx = open, i
			}
		}
	}
	if lidx < 0 || len(stack) != 0 {
		return false, nil
	}
	start := max(0, lidx-1)
	return true, prefix[start : ridx+1]
}

// scope is the alias map of one query level. outer links to the enclosing
// level and is consulted only after the local map misses.
type scope struct {
	aliases map[string]string
	outer   *scope
}

func (s *scope) resolve(name string) (string, bool) {
	for sc := s; sc != nil; sc = sc.outer {
		if t, ok := sc.aliases[name]; ok {
			return t, true
		}
	}
	return "", false
}

// local resolves name against this level only.
func (s *scope) local(name string) (string, bool) {
	t, ok := s.aliases[name]
	return t, ok
}

// levelEnd returns the exclusive end of the query level starting at start:
// the first unmatched ")" or set operator at depth zero, or len(toks).
func levelEnd(toks []string, start int) int {
	depth := 0
	for i := start; i < len(toks); i++ {
		switch toks[i] {
		case "(":
			depth++
		case ")":
			if depth == 0 {
				return i
			}
			depth--
		case "intersect", "union", "except":
			if depth == 0 {
				return i
			}
		}
	}
	return len(toks)
}

// closeParen returns the index of the ")" matching the "(" at open, or
// len(toks) when there is none.
func closeParen(toks []string, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i] {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(toks)
}

// scanAliases builds the alias map for toks[lo:hi]. Parenthesized subqueries
// inside the window belong to their own level and are skipped.
func scanAliases(toks []string, lo, hi int) map[string]string {
	aliases := make(map[string]string)
	for i := lo; i < hi; i++ {
		if toks[i] == "(" && i+1 < hi && toks[i+1] == "select" {
			i = closeParen(toks, i)
			continue
		}
		if toks[i] != "as" || i == lo || i+1 >= len(toks) {
			continue
		}
		name := toks[i+1]
		prev := toks[i-1]
		if prev != ")" && prev != "(" {
			aliases[name] = unquote(prev)
			continue
		}
		if ok, span := matchBrackets(toks[lo:i]); ok {
			aliases[name] = strings.Join(span, " ")
		} else {
			aliases[name] = InvalidAlias
		}
	}
	return aliases
}

// newScope scans the level toks[lo:hi] and merges in the schema's real table
// names. An alias that shadows a table name is diagnosed; the table wins.
func (p *parser) newScope(lo, hi int, outer *scope) *scope {
	aliases := scanAliases(p.toks, lo, hi)
	for _, t := range p.schema.Tables() {
		if target, ok := aliases[t]; ok && target != t {
			p.diags.record(fmt.Sprintf("alias '%s' conflicts with real table name", t), p.toks, lo, nil)
		}
		aliases[t] = t
	}
	return &scope{aliases: aliases, outer: outer}
}

// AliasMap returns the alias map the parser builds for the outermost query
// level of query.
func AliasMap(schema *Schema, query string) map[string]string {
	c := &collector{}
	toks := cleanTokens(tokenize(query, c))
	p := &parser{toks: toks, schema: schema, diags: c}
	lo := 0
	if len(toks) > 0 && toks[0] == "(" {
		lo = 1
	}
	return p.newScope(lo, levelEnd(toks, lo), nil).aliases
}
