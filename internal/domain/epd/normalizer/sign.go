package normalizer

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Column identifies the semantic column a cell belongs to.
type Column string

const (
	ColumnNone          Column = ""
	ColumnRecalculation Column = "recalculation"
	ColumnDebt          Column = "debt"
	ColumnPaid          Column = "paid"
)

// Hint lists the keyword stems that flip or confirm the sign of a fragment
// in one column. Alternate enables the even/odd index fallback.
type Hint struct {
	Positive  []string
	Negative  []string
	Alternate bool
}

// SignHints is an immutable set of per-column hints.
type SignHints struct {
	hints map[Column]Hint
}

// NewSignHints copies hints into an immutable set.
func NewSignHints(hints map[Column]Hint) SignHints {
	copied := make(map[Column]Hint, len(hints))
	for col, h := range hints {
		copied[col] = Hint{
			Positive:  lowerAll(h.Positive),
			Negative:  lowerAll(h.Negative),
			Alternate: h.Alternate,
		}
	}
	return SignHints{hints: copied}
}

// DefaultSignHints returns the keyword stems seen on EPD bills.
func DefaultSignHints() SignHints {
	return NewSignHints(map[Column]Hint{
		ColumnRecalculation: {
			Positive:  []string{"начис", "доначис", "увелич", "поступ"},
			Negative:  []string{"уменьш", "переплат", "сниж", "вычет"},
			Alternate: true,
		},
		ColumnDebt: {
			Positive:  []string{"задолж", "долг"},
			Negative:  []string{"переплат", "аванс"},
			Alternate: true,
		},
		ColumnPaid: {
			Negative: []string{"переплат"},
		},
	})
}

// Lookup returns the hint for a column.
func (h SignHints) Lookup(col Column) (Hint, bool) {
	hint, ok := h.hints[col]
	return hint, ok
}

// All returns a copy of every column's hint.
func (h SignHints) All() map[Column]Hint {
	out := make(map[Column]Hint, len(h.hints))
	for col, hint := range h.hints {
		out[col] = Hint{
			Positive:  append([]string(nil), hint.Positive...),
			Negative:  append([]string(nil), hint.Negative...),
			Alternate: hint.Alternate,
		}
	}
	return out
}

// SignResolver signs the fragments of adjustment columns.
type SignResolver struct {
	hints SignHints
}

// NewSignResolver creates a resolver over the given hints.
func NewSignResolver(hints SignHints) *SignResolver {
	return &SignResolver{hints: hints}
}

var defaultResolver = NewSignResolver(DefaultSignHints())

// ResolveColumn sums the signed contributions of raw using the default hints.
func ResolveColumn(raw string, col Column) decimal.Decimal {
	return defaultResolver.Resolve(raw, col)
}

// Resolve returns the sum of all fragment contributions of a cell.
func (r *SignResolver) Resolve(raw string, col Column) decimal.Decimal {
	total := decimal.Zero
	for _, f := range Fragments(raw) {
		total = total.Add(r.Contribution(f, col))
	}
	return total
}

// Contribution decides the sign of a single fragment:
// zero stays zero, then an explicit sign, then keywords in the fragment's
// line, then index alternation where the column allows it.
func (r *SignResolver) Contribution(f Fragment, col Column) decimal.Decimal {
	if f.IsZero() {
		return decimal.Zero
	}
	if f.HasExplicitSign && !f.Signed.Equal(f.Magnitude) {
		return f.Signed
	}

	hint, ok := r.hints.Lookup(col)
	if !ok {
		return f.Magnitude
	}

	if ContainsAny(f.Segment, hint.Negative) {
		return f.Magnitude.Neg()
	}
	if ContainsAny(f.Segment, hint.Positive) {
		return f.Magnitude
	}

	if hint.Alternate && f.Index%2 == 1 {
		return f.Magnitude.Neg()
	}
	return f.Magnitude
}

// ContainsAny reports whether s contains any of stems.
func ContainsAny(s string, stems []string) bool {
	for _, stem := range stems {
		if strings.Contains(s, stem) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
