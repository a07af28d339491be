package sqlutil

import (
	"regexp"
	"strings"
)

var fencedSQL = regexp.MustCompile("(?s)```sql\n(.*?)```")

// ExtractSQL returns the first ```sql fenced block of a model response with
// newlines folded to spaces. Without a fence the trimmed response is returned.
func ExtractSQL(response string) string {
	if m := fencedSQL.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(strings.ReplaceAll(m[1], "\n", " "))
	}
	return strings.TrimSpace(response)
}

// HasFence reports whether response carries a ```sql block.
func HasFence(response string) bool {
	return fencedSQL.MatchString(response)
}

// TableRef is a table name found after a FROM, JOIN, INTO, UPDATE, DELETE or
// MERGE keyword.
type TableRef struct {
	Name   string `json:"name"`
	Access string `json:"access"` // reads_from or writes_to
}

// TableRefs scans SQL text for table names without parsing it. Names keep
// their source spelling; duplicates are reported once per keyword hit.
func TableRefs(sql string) []TableRef {
	var refs []TableRef
	upper := strings.ToUpper(sql)
	keywords := []string{"FROM", "JOIN", "INTO", "UPDATE", "DELETE", "MERGE"}

	for _, kw := range keywords {
		idx := 0
		for {
			pos := strings.Index(upper[idx:], kw+" ")
			if pos < 0 {
				break
			}
			abs := idx + pos
			pos = abs + len(kw) + 1
			if abs > 0 && isIdentByte(upper[abs-1]) {
				idx = pos
				continue
			}
			rest := strings.TrimSpace(sql[pos:])
			end := strings.IndexAny(rest, " \t\n\r,;)(")
			name := rest
			if end >= 0 {
				name = rest[:end]
			}
			name = strings.Trim(strings.TrimSpace(name), "`\"[]")
			if name != "" && !IsSQLKeyword(name) {
				refs = append(refs, TableRef{Name: name, Access: accessOf(kw)})
			}
			idx = pos
		}
	}
	return refs
}

func accessOf(keyword string) string {
	switch keyword {
	case "INTO", "UPDATE", "DELETE", "MERGE":
		return "writes_to"
	default:
		return "reads_from"
	}
}

func isIdentByte(ch byte) bool {
	return ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '_'
}

// LooksLikeSQL returns true if the string contains SQL keywords.
// Uses word-boundary checking to avoid false positives on identifiers like "DeleteUser".
func LooksLikeSQL(s string) bool {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, kw := range []string{"SELECT", "INSERT", "UPDATE", "DELETE", "FROM", "WITH", "CREATE", "ALTER", "DROP", "MERGE"} {
		if containsSQLKeyword(upper, kw) {
			return true
		}
	}
	return false
}

// containsSQLKeyword checks if kw appears as a word boundary in s.
func containsSQLKeyword(upper, kw string) bool {
	idx := 0
	for {
		pos := strings.Index(upper[idx:], kw)
		if pos < 0 {
			return false
		}
		absPos := idx + pos
		if absPos > 0 && isIdentByte(upper[absPos-1]) {
			idx = absPos + len(kw)
			continue
		}
		endPos := absPos + len(kw)
		if endPos < len(upper) && isIdentByte(upper[endPos]) {
			idx = endPos
			continue
		}
		return true
	}
}

var sqlKeywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "AND": true,
	"OR": true, "SET": true, "VALUES": true, "AS": true,
	"ON": true, "IN": true, "NOT": true, "NULL": true,
	"INTO": true, "JOIN": true, "LEFT": true, "RIGHT": true,
	"INNER": true, "OUTER": true, "CROSS": true, "FULL": true,
	"GROUP": true, "ORDER": true, "BY": true, "HAVING": true,
	"UNION": true, "ALL": true, "EXISTS": true, "BETWEEN": true,
	"LIKE": true, "IS": true, "CASE": true, "WHEN": true,
	"THEN": true, "ELSE": true, "END": true, "LIMIT": true,
	"TABLE": true, "WITH": true, "TOP": true, "NATURAL": true,
	"DISTINCT": true, "INSERT": true, "UPDATE": true, "DELETE": true,
}

// IsSQLKeyword returns true if the given string is a common SQL keyword.
func IsSQLKeyword(s string) bool {
	return sqlKeywords[strings.ToUpper(s)]
}

// Dialect names returned by DetectDialect.
const (
	DialectPostgres = "pgsql"
	DialectTSQL     = "tsql"
	DialectSQLite   = "sqlite"
	DialectGeneric  = "generic"
)

// DetectDialect guesses the SQL dialect of a query from vendor-specific
// syntax. Plain ANSI queries are reported as generic.
func DetectDialect(sql string) string {
	text := strings.ToUpper(sql)
	scores := map[string]int{}

	for _, kw := range []string{"TOP ", "ISNULL(", "GETDATE()", "CHARINDEX(", "WITH (NOLOCK)",
		"CROSS APPLY", "OUTER APPLY", "NVARCHAR", "DATEDIFF(DAY", "LEN("} {
		if strings.Contains(text, kw) {
			scores[DialectTSQL] += 2
		}
	}
	for _, kw := range []string{"::TEXT", "::INTEGER", "::NUMERIC", "::DATE", "ILIKE", "SIMILAR TO",
		"DISTINCT ON", "DATE_TRUNC(", "EXTRACT(", "INTERVAL '", "NULLS LAST", "NULLS FIRST"} {
		if strings.Contains(text, kw) {
			scores[DialectPostgres] += 2
		}
	}
	for _, kw := range []string{"STRFTIME(", "JULIANDAY(", "IIF(", "GLOB ", "SUBSTR(", "INSTR(", "`"} {
		if strings.Contains(text, kw) {
			scores[DialectSQLite] += 2
		}
	}

	best, bestScore := DialectGeneric, 0
	for _, d := range []string{DialectPostgres, DialectTSQL, DialectSQLite} {
		if scores[d] > bestScore {
			best, bestScore = d, scores[d]
		}
	}
	return best
}
