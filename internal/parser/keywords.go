package parser

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

var clauseKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "group": true, "order": true,
	"limit": true, "intersect": true, "union": true, "except": true, "having": true,
}

var joinKeywords = map[string]bool{"join": true, "on": true, "as": true}

// joinPrefixes may precede JOIN. The join kind is not retained in the IR.
var joinPrefixes = map[string]bool{
	"inner": true, "left": true, "right": true, "full": true,
	"outer": true, "cross": true, "natural": true,
}

var setOps = map[string]bool{"intersect": true, "union": true, "except": true}

// reserved words are never taken as implicit aliases or function names.
var reserved = map[string]bool{
	"select": true, "from": true, "where": true, "group": true, "order": true, "by": true,
	"having": true, "limit": true, "offset": true, "intersect": true, "union": true,
	"except": true, "all": true, "join": true, "inner": true, "left": true, "right": true,
	"full": true, "outer": true, "cross": true, "natural": true, "on": true, "using": true,
	"as": true, "and": true, "or": true, "not": true, "in": true, "exists": true,
	"between": true, "like": true, "is": true, "null": true, "distinct": true,
	"asc": true, "desc": true, "case": true, "when": true, "then": true, "else": true,
	"end": true, "values": true,
}

func isClauseKeyword(tok string) bool { return clauseKeywords[tok] }

// endsPredicate reports whether tok closes a condition.
func endsPredicate(tok string) bool {
	return clauseKeywords[tok] || joinKeywords[tok] || joinPrefixes[tok] || tok == ")" || tok == ";"
}

// endsValue reports whether tok closes an unquoted value run.
func endsValue(tok string) bool {
	return endsPredicate(tok) || tok == "," || tok == "and" || tok == "or"
}

// isWord reports whether tok is an unquoted identifier-like token that is
// not a reserved word.
func isWord(tok string) bool {
	if tok == "" || reserved[tok] || isLiteral(tok) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(tok)
	return r == '_' || unicode.IsLetter(r)
}

// number parses tok as a numeric literal. Words such as "inf" or "nan" are
// identifiers, not numbers.
func number(tok string) (float64, bool) {
	if tok == "" || !(tok[0] == '.' || (tok[0] >= '0' && tok[0] <= '9')) {
		return 0, false
	}
	f, err := strconv.ParseFloat(tok, 64)
	return f, err == nil
}
