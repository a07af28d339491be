package parser

import (
	"strings"
	"unicode"
)

// lexer turns a query string into lowercase word/punctuation tokens.
// Quoted literals are kept as single tokens wrapped in double quotes with
// their content untouched; backtick and bracket quoted identifiers become
// plain lowercase identifier tokens.
type lexer struct {
	input  []rune
	pos    int
	toks   []string
	quotes bool // false once an unmatched quote was seen
}

// tokenize splits query into tokens. An unmatched quote is recorded on c and
// the query is re-scanned with quote characters treated as punctuation.
func tokenize(query string, c *collector) []string {
	l := &lexer{input: []rune(query), quotes: true}
	if at, ok := unmatchedQuote(l.input); ok {
		c.record("tokenize: unexpected/unmatched quote count", []string{snippet(l.input, at)}, -1, nil)
		l.quotes = false
	}
	l.run()
	return mergeOperators(l.toks)
}

func (l *lexer) run() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case unicode.IsSpace(ch):
			l.pos++
		case ch == '-' && l.peek(1) == '-':
			l.skipLineComment()
		case ch == '/' && l.peek(1) == '*':
			l.skipBlockComment()
		case (ch == '\'' || ch == '"') && l.quotes:
			l.toks = append(l.toks, l.readLiteral())
		case ch == '`' || ch == '[':
			l.toks = append(l.toks, l.readQuotedIdent())
		case isWordPart(ch):
			l.toks = append(l.toks, l.readWord())
		default:
			l.toks = append(l.toks, string(ch))
			l.pos++
		}
	}
}

func (l *lexer) peek(n int) rune {
	if l.pos+n < len(l.input) {
		return l.input[l.pos+n]
	}
	return 0
}

func (l *lexer) skipLineComment() {
	for l.pos < len(l.input) && l.input[l.pos] != '\n' {
		l.pos++
	}
}

func (l *lexer) skipBlockComment() {
	l.pos += 2
	for l.pos < len(l.input) {
		if l.input[l.pos] == '*' && l.peek(1) == '/' {
			l.pos += 2
			return
		}
		l.pos++
	}
}

// readLiteral reads a quoted span. Single and double quotes are normalized
// to double quotes; a doubled delimiter inside the span is an escape.
func (l *lexer) readLiteral() string {
	delim := l.input[l.pos]
	l.pos++
	var b strings.Builder
	b.WriteByte('"')
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == delim {
			if l.peek(1) == delim {
				b.WriteRune(ch)
				b.WriteRune(ch)
				l.pos += 2
				continue
			}
			l.pos++
			break
		}
		b.WriteRune(ch)
		l.pos++
	}
	b.WriteByte('"')
	return b.String()
}

func (l *lexer) readQuotedIdent() string {
	closer := '`'
	if l.input[l.pos] == '[' {
		closer = ']'
	}
	l.pos++
	start := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != closer {
		l.pos++
	}
	val := string(l.input[start:l.pos])
	if l.pos < len(l.input) {
		l.pos++
	}
	// A qualified name may continue after the closing quote: `t`.`col`.
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		l.pos++
		return strings.ToLower(val) + "." + l.readQualifierPart()
	}
	return strings.ToLower(val)
}

// readWord reads an identifier, keyword or number. Dots join qualified names
// and decimals; a dot followed by a quoted identifier continues the word.
func (l *lexer) readWord() string {
	start := l.pos
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if isWordPart(ch) {
			l.pos++
			continue
		}
		if ch == '.' {
			next := l.peek(1)
			if isWordPart(next) {
				l.pos++
				continue
			}
			if next == '*' {
				l.pos += 2
				break
			}
			if next == '`' || next == '[' || (next == '"' && l.quotes) {
				word := strings.ToLower(string(l.input[start:l.pos]))
				l.pos++
				return word + "." + l.readQualifierPart()
			}
		}
		break
	}
	return strings.ToLower(string(l.input[start:l.pos]))
}

// readQualifierPart reads the part of a qualified name after the dot.
func (l *lexer) readQualifierPart() string {
	if l.pos >= len(l.input) {
		return ""
	}
	switch ch := l.input[l.pos]; {
	case ch == '`' || ch == '[':
		return l.readQuotedIdent()
	case ch == '"' && l.quotes:
		return strings.ToLower(unquote(l.readLiteral()))
	case isWordPart(ch):
		return l.readWord()
	}
	return ""
}

func isWordPart(ch rune) bool {
	return ch == '_' || ch == '$' || ch == '#' || ch == '@' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

// unmatchedQuote reports the position of a quote that is never closed.
func unmatchedQuote(in []rune) (int, bool) {
	for i := 0; i < len(in); i++ {
		switch in[i] {
		case '-':
			if i+1 < len(in) && in[i+1] == '-' {
				for i < len(in) && in[i] != '\n' {
					i++
				}
			}
		case '/':
			if i+1 < len(in) && in[i+1] == '*' {
				for i += 2; i+1 < len(in) && !(in[i] == '*' && in[i+1] == '/'); i++ {
				}
				i++
			}
		case '`', '[':
			closer := '`'
			if in[i] == '[' {
				closer = ']'
			}
			for i++; i < len(in) && in[i] != closer; i++ {
			}
		case '\'', '"':
			delim := in[i]
			open := i
			closed := false
			for i++; i < len(in); i++ {
				if in[i] == delim {
					if i+1 < len(in) && in[i+1] == delim {
						i++
						continue
					}
					closed = true
					break
				}
			}
			if !closed {
				return open, true
			}
		}
	}
	return 0, false
}

func snippet(in []rune, at int) string {
	end := min(len(in), at+24)
	return string(in[at:end])
}

// mergeOperators folds "!", ">", "<" followed by "=" into one token, and
// "<" followed by ">" into "!=".
func mergeOperators(toks []string) []string {
	out := make([]string, 0, len(toks))
	for _, cur := range toks {
		if n := len(out); n > 0 {
			prev := out[n-1]
			switch {
			case cur == "=" && (prev == "!" || prev == ">" || prev == "<"):
				out[n-1] = prev + "="
				continue
			case cur == ">" && prev == "<":
				out[n-1] = "!="
				continue
			}
		}
		out = append(out, cur)
	}
	return out
}

// isLiteral reports whether tok is a quoted literal token.
func isLiteral(tok string) bool {
	return len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"'
}

func unquote(tok string) string {
	if isLiteral(tok) {
		return tok[1 : len(tok)-1]
	}
	return tok
}

// cleanTokens strips stray quote characters from non-literal tokens and
// drops tokens that become empty.
func cleanTokens(toks []string) []string {
	out := toks[:0]
	for _, t := range toks {
		if !isLiteral(t) {
			t = strings.ReplaceAll(t, `"`, "")
			t = strings.ReplaceAll(t, "'", "")
		}
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
