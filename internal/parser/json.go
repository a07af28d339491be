package parser

import (
	"encoding/json"
	"fmt"
)

// The JSON form of the IR is the human-readable view: enums as their names,
// unresolved columns as null, values tagged by kind.

type colJSON struct {
	Agg      string  `json:"agg"`
	Col      *string `json:"col"`
	Distinct bool    `json:"distinct"`
}

type valJSON struct {
	Op    string   `json:"op"`
	Left  colJSON  `json:"left"`
	Right *colJSON `json:"right,omitempty"`
}

type selectItemJSON struct {
	Agg string  `json:"agg"`
	Val valJSON `json:"val"`
}

type selectJSON struct {
	Distinct bool             `json:"distinct"`
	Items    []selectItemJSON `json:"items"`
}

type tableJSON struct {
	Kind     string  `json:"kind"`
	Table    *string `json:"table,omitempty"`
	Subquery *SQL    `json:"subquery,omitempty"`
}

type fromJSON struct {
	Tables []tableJSON `json:"table_units"`
	Conds  []any       `json:"conds"`
}

type predJSON struct {
	Not  bool    `json:"not"`
	Op   string  `json:"op"`
	Left valJSON `json:"val_unit"`
	Val1 any     `json:"val1"`
	Val2 any     `json:"val2"`
}

type orderJSON struct {
	Dir   string    `json:"dir"`
	Units []valJSON `json:"units"`
}

type sqlJSON struct {
	Select      selectJSON              `json:"select"`
	From        fromJSON                `json:"from"`
	Where       []any                   `json:"where"`
	GroupBy     []colJSON               `json:"groupBy"`
	Having      []any                   `json:"having"`
	OrderBy     *orderJSON              `json:"orderBy"`
	Limit       *int                    `json:"limit"`
	Intersect   *SQL                    `json:"intersect"`
	Union       *SQL                    `json:"union"`
	Except      *SQL                    `json:"except"`
	Diagnostics map[string][]Diagnostic `json:"diagnostics,omitempty"`
}

// MarshalJSON renders the human-readable view of the document.
func (s SQL) MarshalJSON() ([]byte, error) {
	v := sqlJSON{
		Select: selectJSON{Distinct: s.Select.Distinct, Items: []selectItemJSON{}},
		From: fromJSON{
			Tables: []tableJSON{},
			Conds:  condJSON(s.From.Conds),
		},
		Where:     condJSON(s.Where),
		GroupBy:   []colJSON{},
		Having:    condJSON(s.Having),
		Limit:     s.Limit,
		Intersect: s.Intersect,
		Union:     s.Union,
		Except:    s.Except,
	}
	for _, it := range s.Select.Items {
		v.Select.Items = append(v.Select.Items, selectItemJSON{Agg: it.Agg.String(), Val: toValJSON(it.Val)})
	}
	for _, t := range s.From.Tables {
		tj := tableJSON{Kind: t.Kind.String()}
		if t.Kind == TableSubquery {
			tj.Subquery = t.Subquery
		} else {
			tj.Table = refJSON(t.Table)
		}
		v.From.Tables = append(v.From.Tables, tj)
	}
	for _, cu := range s.GroupBy {
		v.GroupBy = append(v.GroupBy, toColJSON(cu))
	}
	if s.OrderBy.Dir != "" {
		o := &orderJSON{Dir: s.OrderBy.Dir, Units: []valJSON{}}
		for _, vu := range s.OrderBy.Units {
			o.Units = append(o.Units, toValJSON(vu))
		}
		v.OrderBy = o
	}
	if !s.Diagnostics.Empty() {
		v.Diagnostics = make(map[string][]Diagnostic, len(s.Diagnostics.ByClause)+1)
		for clause, list := range s.Diagnostics.ByClause {
			if len(list) > 0 {
				v.Diagnostics[clause] = list
			}
		}
		if len(s.Diagnostics.Global) > 0 {
			v.Diagnostics["global"] = s.Diagnostics.Global
		}
	}
	return json.Marshal(v)
}

func refJSON(c ColumnRef) *string {
	if !c.Resolved() {
		return nil
	}
	s := string(c)
	return &s
}

func toColJSON(cu ColUnit) colJSON {
	return colJSON{Agg: cu.Agg.String(), Col: refJSON(cu.Col), Distinct: cu.Distinct}
}

func toValJSON(vu ValUnit) valJSON {
	v := valJSON{Op: vu.Op.String(), Left: toColJSON(vu.Left)}
	if vu.Right != nil {
		r := toColJSON(*vu.Right)
		v.Right = &r
	}
	return v
}

func condJSON(c Condition) []any {
	out := make([]any, 0, len(c))
	for _, it := range c {
		if it.Pred == nil {
			out = append(out, it.Connective)
			continue
		}
		out = append(out, predJSON{
			Not:  it.Pred.Not,
			Op:   it.Pred.Op.String(),
			Left: toValJSON(it.Pred.Left),
			Val1: valueJSON(it.Pred.Value1),
			Val2: valueJSON(it.Pred.Value2),
		})
	}
	return out
}

// valueJSON tags a value with its kind: {"number": 1}, {"string": "x"},
// {"column": {...}}, {"subquery": {...}}, {"raw": "..."} or {"list": [...]}.
func valueJSON(v Value) any {
	switch v := v.(type) {
	case nil:
		return nil
	case NumberValue:
		return map[string]any{"number": float64(v)}
	case StringValue:
		return map[string]any{"string": string(v)}
	case ColumnValue:
		return map[string]any{"column": toColJSON(v.Unit)}
	case SubqueryValue:
		return map[string]any{"subquery": v.Query}
	case RawValue:
		return map[string]any{"raw": string(v)}
	case ListValue:
		items := make([]any, 0, len(v))
		for _, it := range v {
			items = append(items, valueJSON(it))
		}
		return map[string]any{"list": items}
	default:
		return map[string]any{"raw": fmt.Sprintf("%v", v)}
	}
}
