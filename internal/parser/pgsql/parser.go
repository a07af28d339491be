// Package pgsql checks queries against the real PostgreSQL grammar via
// pg_query_go. It complements the best-effort structural parser: a query the
// structural parser had to guess at can still be confirmed as valid SQL, and
// two queries with equal fingerprints are the same statement up to literals.
package pgsql

import (
	"fmt"
	"sort"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Result is the outcome of checking one query.
type Result struct {
	Valid       bool     `json:"valid"`
	Error       string   `json:"error,omitempty"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Statements  int      `json:"statements"`
	Tables      []string `json:"tables,omitempty"`
}

// Check parses sql with the PostgreSQL parser. A syntax error is reported in
// the result, not returned.
func Check(sql string) Result {
	tree, err := pg_query.Parse(sql)
	if err != nil {
		return Result{Error: fmt.Sprintf("pg_query parse: %v", err)}
	}

	w := &walker{tables: make(map[string]bool)}
	for _, stmt := range tree.Stmts {
		w.walkStatement(stmt)
	}

	res := Result{Valid: true, Statements: len(tree.Stmts)}
	fp, err := pg_query.Fingerprint(sql)
	if err != nil {
		res.Error = fmt.Sprintf("pg_query fingerprint: %v", err)
	} else {
		res.Fingerprint = fp
	}
	for t := range w.tables {
		res.Tables = append(res.Tables, t)
	}
	sort.Strings(res.Tables)
	return res
}

// SameStatement reports whether gold and pred fingerprint identically. Both
// must be valid PostgreSQL.
func SameStatement(gold, pred Result) bool {
	return gold.Valid && pred.Valid && gold.Fingerprint != "" && gold.Fingerprint == pred.Fingerprint
}

type walker struct {
	tables map[string]bool
}

func (w *walker) walkStatement(rawStmt *pg_query.RawStmt) {
	if rawStmt.Stmt == nil {
		return
	}
	if sel := rawStmt.Stmt.GetSelectStmt(); sel != nil {
		w.walkSelect(sel)
	}
}

func (w *walker) walkSelect(stmt *pg_query.SelectStmt) {
	if stmt == nil {
		return
	}
	if stmt.WithClause != nil {
		for _, cte := range stmt.WithClause.Ctes {
			if c := cte.GetCommonTableExpr(); c != nil {
				w.walkNode(c.Ctequery)
			}
		}
	}
	for _, from := range stmt.FromClause {
		w.walkFrom(from)
	}
	w.walkNode(stmt.WhereClause)
	w.walkNode(stmt.HavingClause)
	// set operations keep their operands in Larg/Rarg
	w.walkSelect(stmt.Larg)
	w.walkSelect(stmt.Rarg)
}

func (w *walker) walkFrom(node *pg_query.Node) {
	if node == nil {
		return
	}
	if rv := node.GetRangeVar(); rv != nil {
		w.tables[rangeVarToQualified(rv)] = true
	}
	if jt := node.GetJoinExpr(); jt != nil {
		w.walkFrom(jt.Larg)
		w.walkFrom(jt.Rarg)
		w.walkNode(jt.Quals)
	}
	if sub := node.GetRangeSubselect(); sub != nil {
		w.walkNode(sub.Subquery)
	}
}

// walkNode descends into expressions looking for sublinks.
func (w *walker) walkNode(node *pg_query.Node) {
	if node == nil {
		return
	}
	switch {
	case node.GetSelectStmt() != nil:
		w.walkSelect(node.GetSelectStmt())
	case node.GetSubLink() != nil:
		w.walkNode(node.GetSubLink().Subselect)
	case node.GetBoolExpr() != nil:
		for _, arg := range node.GetBoolExpr().Args {
			w.walkNode(arg)
		}
	case node.GetAExpr() != nil:
		w.walkNode(node.GetAExpr().Lexpr)
		w.walkNode(node.GetAExpr().Rexpr)
	case node.GetNullTest() != nil:
		w.walkNode(node.GetNullTest().Arg)
	}
}

func rangeVarToQualified(rv *pg_query.RangeVar) string {
	if rv.Schemaname != "" {
		return rv.Schemaname + "." + rv.Relname
	}
	return rv.Relname
}
