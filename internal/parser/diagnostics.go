package parser

// Clause names used as keys of Diagnostics.ByClause.
const (
	ClauseFrom      = "from"
	ClauseSelect    = "select"
	ClauseWhere     = "where"
	ClauseGroupBy   = "groupBy"
	ClauseHaving    = "having"
	ClauseOrderBy   = "orderBy"
	ClauseLimit     = "limit"
	ClauseIntersect = "intersect"
	ClauseUnion     = "union"
	ClauseExcept    = "except"
)

// Diagnostic is a non-fatal parse irregularity.
type Diagnostic struct {
	Message string   `json:"message"`
	Sample  []string `json:"toks_sample,omitempty"`
	Index   int      `json:"idx"` // -1 when not tied to a cursor position
	Cause   string   `json:"exception,omitempty"`
}

// Diagnostics groups diagnostics by the clause that was being parsed.
// Global is only populated on the root document and holds every diagnostic
// of the call, including those from nested levels and from tokenization.
type Diagnostics struct {
	ByClause map[string][]Diagnostic
	Global   []Diagnostic
}

func (d Diagnostics) Empty() bool {
	if len(d.Global) > 0 {
		return false
	}
	for _, list := range d.ByClause {
		if len(list) > 0 {
			return false
		}
	}
	return true
}

// Count returns the number of distinct diagnostics recorded. On the root
// document this is len(Global).
func (d Diagnostics) Count() int {
	if d.Global != nil {
		return len(d.Global)
	}
	n := 0
	for _, list := range d.ByClause {
		n += len(list)
	}
	return n
}

func (d *Diagnostics) attach(clause string, list []Diagnostic) {
	if len(list) == 0 {
		return
	}
	if d.ByClause == nil {
		d.ByClause = make(map[string][]Diagnostic)
	}
	d.ByClause[clause] = append(d.ByClause[clause], list...)
}

// collector is the append-only diagnostic sink of one Parse call.
type collector struct {
	items []Diagnostic
}

const sampleRadius = 3

func (c *collector) record(msg string, toks []string, idx int, cause error) {
	d := Diagnostic{Message: msg, Index: idx}
	if toks != nil {
		at := idx
		if at < 0 {
			at = 0
		}
		lo := max(0, at-sampleRadius)
		hi := min(len(toks), at+sampleRadius)
		if lo < hi {
			d.Sample = append([]string(nil), toks[lo:hi]...)
		}
	}
	if cause != nil {
		d.Cause = cause.Error()
	}
	c.items = append(c.items, d)
}

func (c *collector) mark() int { return len(c.items) }

// since returns a copy of everything recorded after mark m.
func (c *collector) since(m int) []Diagnostic {
	if m >= len(c.items) {
		return nil
	}
	return append([]Diagnostic(nil), c.items[m:]...)
}

// rollback drops everything recorded after mark m.
func (c *collector) rollback(m int) {
	if m < len(c.items) {
		c.items = c.items[:m]
	}
}

func (c *collector) all() []Diagnostic {
	return append([]Diagnostic{}, c.items...)
}
