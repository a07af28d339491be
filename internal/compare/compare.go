// Package compare scores a predicted query's IR against a gold IR, component
// by component, in the manner of the Spider exact-set-match evaluation.
package compare

import (
	"sort"
	"strings"

	"github.com/maraichr/sqlshape/internal/parser"
)

// Component names.
const (
	CompSelect      = "select"
	CompSelectNoAgg = "select(no AGG)"
	CompWhere       = "where"
	CompWhereNoOp   = "where(no OP)"
	CompGroupNoHav  = "group(no Having)"
	CompGroup       = "group"
	CompOrder       = "order"
	CompAndOr       = "and/or"
	CompTables      = "table"
	CompJoin        = "join"
	CompIUEN        = "IUEN"
	CompKeywords    = "keywords"
)

// Options controls how values are compared.
type Options struct {
	// IgnoreValues compares predicates and LIMIT without their literal
	// operands; columns and subqueries still count.
	IgnoreValues bool `json:"ignore_values"`
}

// Component is the match tally of one part of the query.
type Component struct {
	Name    string `json:"name"`
	Gold    int    `json:"gold"`
	Pred    int    `json:"pred"`
	Matched int    `json:"matched"`
	Exact   bool   `json:"exact"`
}

func (c Component) Precision() float64 {
	if c.Pred == 0 {
		return 0
	}
	return float64(c.Matched) / float64(c.Pred)
}

func (c Component) Recall() float64 {
	if c.Gold == 0 {
		return 0
	}
	return float64(c.Matched) / float64(c.Gold)
}

// F1 is 1 for a component that is absent on both sides.
func (c Component) F1() float64 {
	if c.Gold == 0 && c.Pred == 0 {
		return 1
	}
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// Report is the result of one comparison.
type Report struct {
	Components []Component `json:"components"`
	ExactMatch bool        `json:"exact_match"`
	// LowConfidence is set when either IR carries diagnostics; the
	// comparison then ran on a best-effort structure.
	LowConfidence bool `json:"low_confidence"`
}

// Component returns the named component, or a zero value.
func (r Report) Component(name string) Component {
	for _, c := range r.Components {
		if c.Name == name {
			return c
		}
	}
	return Component{Name: name}
}

// MeanF1 averages F1 over all components.
func (r Report) MeanF1() float64 {
	if len(r.Components) == 0 {
		return 0
	}
	var sum float64
	for _, c := range r.Components {
		sum += c.F1()
	}
	return sum / float64(len(r.Components))
}

// Compare scores pred against gold. Neither document is modified.
func Compare(gold, pred *parser.SQL, opts Options) Report {
	if gold == nil {
		gold = &parser.SQL{}
	}
	if pred == nil {
		pred = &parser.SQL{}
	}
	k := keyer{opts: opts}

	r := Report{
		Components: []Component{
			multiset(CompSelect, selectKeys(k, gold, true), selectKeys(k, pred, true)),
			multiset(CompSelectNoAgg, selectKeys(k, gold, false), selectKeys(k, pred, false)),
			multiset(CompWhere, k.preds(gold.Where, true), k.preds(pred.Where, true)),
			multiset(CompWhereNoOp, k.preds(gold.Where, false), k.preds(pred.Where, false)),
			multiset(CompGroupNoHav, groupKeys(k, gold), groupKeys(k, pred)),
			groupWithHaving(k, gold, pred),
			orderComponent(k, gold, pred),
			set(CompAndOr, andOr(gold), andOr(pred)),
			multiset(CompTables, tableKeys(k, gold), tableKeys(k, pred)),
			multiset(CompJoin, k.preds(gold.From.Conds, true), k.preds(pred.From.Conds, true)),
			setOpComponent(k, gold, pred),
			set(CompKeywords, keywords(gold), keywords(pred)),
		},
		LowConfidence: !gold.Clean() || !pred.Clean(),
	}

	r.ExactMatch = true
	for _, c := range r.Components {
		if !c.Exact {
			r.ExactMatch = false
			break
		}
	}
	return r
}

// multiset counts matched keys with multiplicity.
func multiset(name string, gold, pred []string) Component {
	c := Component{Name: name, Gold: len(gold), Pred: len(pred)}
	remaining := make(map[string]int, len(gold))
	for _, g := range gold {
		remaining[g]++
	}
	for _, p := range pred {
		if strings.Contains(p, unresolvedMark) {
			continue
		}
		if remaining[p] > 0 {
			remaining[p]--
			c.Matched++
		}
	}
	c.Exact = c.Gold == c.Pred && c.Matched == c.Gold
	return c
}

// set counts distinct keys.
func set(name string, gold, pred []string) Component {
	return multiset(name, dedupe(gold), dedupe(pred))
}

func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := keys[:0:0]
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

func selectKeys(k keyer, doc *parser.SQL, withAgg bool) []string {
	out := make([]string, 0, len(doc.Select.Items))
	for _, it := range doc.Select.Items {
		if withAgg {
			out = append(out, k.selectItem(it))
		} else {
			out = append(out, k.val(it.Val))
		}
	}
	return out
}

func groupKeys(k keyer, doc *parser.SQL) []string {
	out := make([]string, 0, len(doc.GroupBy))
	for _, cu := range doc.GroupBy {
		out = append(out, k.col(cu))
	}
	return out
}

func tableKeys(k keyer, doc *parser.SQL) []string {
	out := make([]string, 0, len(doc.From.Tables))
	for _, t := range doc.From.Tables {
		out = append(out, k.table(t))
	}
	return out
}

// groupWithHaving treats GROUP BY plus HAVING as one unit.
func groupWithHaving(k keyer, gold, pred *parser.SQL) Component {
	unit := func(doc *parser.SQL) []string {
		if len(doc.GroupBy) == 0 {
			return nil
		}
		keys := groupKeys(k, doc)
		having := k.preds(doc.Having, true)
		return []string{"group[" + sortedJoin(keys) + "] having[" + sortedJoin(having) + "]"}
	}
	return multiset(CompGroup, unit(gold), unit(pred))
}

// orderComponent treats ORDER BY plus the presence of LIMIT as one unit.
func orderComponent(k keyer, gold, pred *parser.SQL) Component {
	unit := func(doc *parser.SQL) []string {
		if doc.OrderBy.Dir == "" {
			return nil
		}
		units := make([]string, 0, len(doc.OrderBy.Units))
		for _, vu := range doc.OrderBy.Units {
			units = append(units, k.val(vu))
		}
		key := doc.OrderBy.Dir + "[" + strings.Join(units, ";") + "]"
		if doc.Limit != nil {
			key += " limit"
		}
		return []string{key}
	}
	return multiset(CompOrder, unit(gold), unit(pred))
}

func setOpComponent(k keyer, gold, pred *parser.SQL) Component {
	unit := func(doc *parser.SQL) []string {
		op, rhs := doc.SetOp()
		if rhs == nil {
			return nil
		}
		return []string{op + "{" + k.sql(rhs) + "}"}
	}
	return multiset(CompIUEN, unit(gold), unit(pred))
}

func andOr(doc *parser.SQL) []string {
	return append(doc.Where.Connectives(), doc.Having.Connectives()...)
}

// keywords lists the clause and operator keywords a query uses.
func keywords(doc *parser.SQL) []string {
	var out []string
	if len(doc.Where) > 0 {
		out = append(out, "where")
	}
	if len(doc.GroupBy) > 0 {
		out = append(out, "group")
	}
	if len(doc.Having) > 0 {
		out = append(out, "having")
	}
	if doc.OrderBy.Dir != "" {
		out = append(out, "order")
	}
	if doc.Limit != nil {
		out = append(out, "limit")
	}
	if op, rhs := doc.SetOp(); rhs != nil {
		out = append(out, op)
	}
	if doc.Select.Distinct {
		out = append(out, "distinct")
	}
	for _, c := range andOr(doc) {
		if c == "or" {
			out = append(out, "or")
		}
	}
	preds := append(doc.Where.Predicates(), doc.Having.Predicates()...)
	for _, p := range preds {
		if p.Not {
			out = append(out, "not")
		}
		switch p.Op {
		case parser.OpIn:
			out = append(out, "in")
		case parser.OpLike:
			out = append(out, "like")
		}
	}
	return out
}

func sortedJoin(keys []string) string {
	cp := append([]string(nil), keys...)
	sort.Strings(cp)
	return strings.Join(cp, ";")
}
