package parser

// AggOp is an aggregate function applied to a column.
type AggOp int

const (
	AggNone AggOp = iota
	AggMax
	AggMin
	AggCount
	AggSum
	AggAvg
)

var aggNames = [...]string{"none", "max", "min", "count", "sum", "avg"}

func (a AggOp) String() string {
	if a < 0 || int(a) >= len(aggNames) {
		return "unknown"
	}
	return aggNames[a]
}

// aggOf maps a token to its aggregate. "none" is deliberately not a keyword.
func aggOf(tok string) (AggOp, bool) {
	switch tok {
	case "max":
		return AggMax, true
	case "min":
		return AggMin, true
	case "count":
		return AggCount, true
	case "sum":
		return AggSum, true
	case "avg":
		return AggAvg, true
	}
	return AggNone, false
}

// UnitOp is the arithmetic operator joining the two halves of a ValUnit.
type UnitOp int

const (
	UnitNone UnitOp = iota
	UnitSub
	UnitAdd
	UnitMul
	UnitDiv
)

var unitNames = [...]string{"none", "-", "+", "*", "/"}

func (u UnitOp) String() string {
	if u < 0 || int(u) >= len(unitNames) {
		return "unknown"
	}
	return unitNames[u]
}

func unitOf(tok string) (UnitOp, bool) {
	switch tok {
	case "-":
		return UnitSub, true
	case "+":
		return UnitAdd, true
	case "*":
		return UnitMul, true
	case "/":
		return UnitDiv, true
	}
	return UnitNone, false
}

// WhereOp is a predicate comparison operator.
type WhereOp int

const (
	OpNot WhereOp = iota
	OpBetween
	OpEq
	OpGt
	OpLt
	OpGe
	OpLe
	OpNe
	OpIn
	OpLike
	OpIs
	OpExists
)

var whereNames = [...]string{"not", "between", "=", ">", "<", ">=", "<=", "!=", "in", "like", "is", "exists"}

func (o WhereOp) String() string {
	if o < 0 || int(o) >= len(whereNames) {
		return "unknown"
	}
	return whereNames[o]
}

func whereOf(tok string) (WhereOp, bool) {
	for i, name := range whereNames {
		if name == tok {
			return WhereOp(i), true
		}
	}
	return 0, false
}

// ColumnRef is a canonical schema identifier. The zero value is the
// unresolved marker.
type ColumnRef string

// Unresolved marks a column or table that could not be found in the schema.
const Unresolved ColumnRef = ""

func (c ColumnRef) Resolved() bool { return c != Unresolved }

// ColUnit is (aggregate, column, distinct).
type ColUnit struct {
	Agg      AggOp
	Col      ColumnRef
	Distinct bool
}

// ValUnit is a bare column (Op == UnitNone, Right == nil) or an arithmetic
// expression between two columns.
type ValUnit struct {
	Op    UnitOp
	Left  ColUnit
	Right *ColUnit
}

// Value is a predicate operand. Implementations: NumberValue, StringValue,
// SubqueryValue, ColumnValue, RawValue and ListValue.
type Value interface {
	isValue()
}

// NumberValue is a numeric literal.
type NumberValue float64

// StringValue is a quoted literal; the text between the quotes, verbatim.
type StringValue string

// SubqueryValue is a scalar or set-valued nested query.
type SubqueryValue struct {
	Query *SQL
}

// ColumnValue is an operand that resolved as a column unit.
type ColumnValue struct {
	Unit ColUnit
}

// RawValue is an unquoted token run that is neither a number nor a column,
// kept as space-joined text.
type RawValue string

// ListValue is a parenthesized, comma-separated list of operands.
type ListValue []Value

func (NumberValue) isValue()   {}
func (StringValue) isValue()   {}
func (SubqueryValue) isValue() {}
func (ColumnValue) isValue()   {}
func (RawValue) isValue()      {}
func (ListValue) isValue()     {}

// TableKind distinguishes a schema table from a derived table.
type TableKind int

const (
	TableRef TableKind = iota
	TableSubquery
)

func (k TableKind) String() string {
	if k == TableSubquery {
		return "sql"
	}
	return "table_unit"
}

// TableUnit is one entry of a FROM clause.
type TableUnit struct {
	Kind     TableKind
	Table    ColumnRef
	Subquery *SQL
}

// Predicate is one comparison. Value2 is only set for BETWEEN.
type Predicate struct {
	Not    bool
	Op     WhereOp
	Left   ValUnit
	Value1 Value
	Value2 Value
}

// Condition is an ordered sequence of predicates and "and"/"or" connectives.
type Condition []CondItem

// CondItem is either a predicate or a connective.
type CondItem struct {
	Pred       *Predicate
	Connective string
}

// Predicates returns the predicates of c in source order, skipping connectives.
func (c Condition) Predicates() []Predicate {
	var out []Predicate
	for _, it := range c {
		if it.Pred != nil {
			out = append(out, *it.Pred)
		}
	}
	return out
}

// Connectives returns the connective tokens of c in source order.
func (c Condition) Connectives() []string {
	var out []string
	for _, it := range c {
		if it.Pred == nil {
			out = append(out, it.Connective)
		}
	}
	return out
}

// SelectItem is one entry of the select list.
type SelectItem struct {
	Agg AggOp
	Val ValUnit
}

type Select struct {
	Distinct bool
	Items    []SelectItem
}

type From struct {
	Tables []TableUnit
	Conds  Condition
}

type OrderBy struct {
	Dir   string // "asc" or "desc"
	Units []ValUnit
}

// SQL is the IR document for one query level.
type SQL struct {
	Select    Select
	From      From
	Where     Condition
	GroupBy   []ColUnit
	Having    Condition
	OrderBy   OrderBy
	Limit     *int
	Intersect *SQL
	Union     *SQL
	Except    *SQL

	Diagnostics Diagnostics
}

// SetOp returns the set operator attached to this level and its operand.
func (s *SQL) SetOp() (string, *SQL) {
	switch {
	case s.Intersect != nil:
		return "intersect", s.Intersect
	case s.Union != nil:
		return "union", s.Union
	case s.Except != nil:
		return "except", s.Except
	}
	return "", nil
}

// Clean reports whether no diagnostics were recorded anywhere while
// producing s. A clean document is a high-confidence structural parse.
func (s *SQL) Clean() bool {
	return s.Diagnostics.Empty()
}
