package compare

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/maraichr/sqlshape/internal/parser"
)

// unresolvedMark appears in any key built from an unresolved column. Such
// keys never match, so a guess on both sides is not mistaken for agreement.
// Quoted literals in keys escape NUL, so the mark cannot come from a value.
const unresolvedMark = "\x00?"

type keyer struct {
	opts Options
}

func (k keyer) col(cu parser.ColUnit) string {
	col := string(cu.Col)
	if !cu.Col.Resolved() {
		col = unresolvedMark
	}
	d := ""
	if cu.Distinct {
		d = "distinct "
	}
	return fmt.Sprintf("%s(%s%s)", cu.Agg, d, col)
}

func (k keyer) val(vu parser.ValUnit) string {
	if vu.Right == nil {
		return k.col(vu.Left)
	}
	return k.col(vu.Left) + " " + vu.Op.String() + " " + k.col(*vu.Right)
}

func (k keyer) selectItem(it parser.SelectItem) string {
	return it.Agg.String() + ":" + k.val(it.Val)
}

func (k keyer) value(v parser.Value) string {
	switch v := v.(type) {
	case nil:
		return ""
	case parser.ColumnValue:
		return "col:" + k.col(v.Unit)
	case parser.SubqueryValue:
		return "sql:{" + k.sql(v.Query) + "}"
	}
	if k.opts.IgnoreValues {
		return "value"
	}
	switch v := v.(type) {
	case parser.NumberValue:
		return "num:" + strconv.FormatFloat(float64(v), 'g', -1, 64)
	case parser.StringValue:
		return "str:" + strconv.Quote(string(v))
	case parser.RawValue:
		return "raw:" + strings.ToLower(string(v))
	case parser.ListValue:
		parts := make([]string, len(v))
		for i, it := range v {
			parts[i] = k.value(it)
		}
		return "list:[" + strings.Join(parts, ",") + "]"
	}
	return fmt.Sprintf("%T", v)
}

func (k keyer) pred(p parser.Predicate, withOp bool) string {
	if !withOp {
		return k.val(p.Left)
	}
	not := ""
	if p.Not {
		not = "not "
	}
	key := fmt.Sprintf("%s%s %s %s", not, k.val(p.Left), p.Op, k.value(p.Value1))
	if p.Value2 != nil {
		key += " and " + k.value(p.Value2)
	}
	return key
}

func (k keyer) table(t parser.TableUnit) string {
	if t.Kind == parser.TableSubquery {
		return "sql:{" + k.sql(t.Subquery) + "}"
	}
	if !t.Table.Resolved() {
		return "table:" + unresolvedMark
	}
	return "table:" + string(t.Table)
}

// sql renders a canonical form of doc. Multiset parts are sorted so that
// reordered select lists, tables or predicates render identically.
func (k keyer) sql(doc *parser.SQL) string {
	if doc == nil {
		return ""
	}
	var b strings.Builder
	parts := func(label string, keys []string) {
		sort.Strings(keys)
		fmt.Fprintf(&b, "%s[%s]", label, strings.Join(keys, ";"))
	}

	sel := make([]string, 0, len(doc.Select.Items))
	for _, it := range doc.Select.Items {
		sel = append(sel, k.selectItem(it))
	}
	if doc.Select.Distinct {
		b.WriteString("distinct ")
	}
	parts("select", sel)

	tables := make([]string, 0, len(doc.From.Tables))
	for _, t := range doc.From.Tables {
		tables = append(tables, k.table(t))
	}
	parts("from", tables)
	parts("on", k.preds(doc.From.Conds, true))
	parts("where", k.preds(doc.Where, true))
	parts("conn", doc.Where.Connectives())

	group := make([]string, 0, len(doc.GroupBy))
	for _, cu := range doc.GroupBy {
		group = append(group, k.col(cu))
	}
	parts("group", group)
	parts("having", k.preds(doc.Having, true))

	if doc.OrderBy.Dir != "" {
		units := make([]string, 0, len(doc.OrderBy.Units))
		for _, vu := range doc.OrderBy.Units {
			units = append(units, k.val(vu))
		}
		// order units are positional
		fmt.Fprintf(&b, "order %s[%s]", doc.OrderBy.Dir, strings.Join(units, ";"))
	}
	if doc.Limit != nil {
		if k.opts.IgnoreValues {
			b.WriteString("limit")
		} else {
			fmt.Fprintf(&b, "limit %d", *doc.Limit)
		}
	}
	if op, rhs := doc.SetOp(); rhs != nil {
		fmt.Fprintf(&b, " %s {%s}", op, k.sql(rhs))
	}
	return b.String()
}

func (k keyer) preds(c parser.Condition, withOp bool) []string {
	preds := c.Predicates()
	out := make([]string, 0, len(preds))
	for _, p := range preds {
		out = append(out, k.pred(p, withOp))
	}
	return out
}

// Canonical returns a deterministic rendering of doc's structure. Two
// documents with equal canonical forms are an exact structural match.
func Canonical(doc *parser.SQL, opts Options) string {
	return keyer{opts: opts}.sql(doc)
}
