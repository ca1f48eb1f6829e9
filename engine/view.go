package engine

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spektr-org/kpideck/schema"
)

// ============================================================================
// DATASET ACCESS — cell parsing + index subsets
// ============================================================================
// Cells stay strings until a formula or section asks for a number or a date.
// Grouping produces subsets (index lists into the parent dataset), never
// copies of rows.
// ============================================================================

// Value returns the trimmed cell at row i, column col ("" when absent).
func (d *Dataset) Value(i int, col string) string {
	if d == nil || i < 0 || i >= len(d.Rows) {
		return ""
	}
	return strings.TrimSpace(d.Rows[i][col])
}

// Amount parses the cell at row i as a money amount.
func (d *Dataset) Amount(i int, col string) (decimal.Decimal, bool) {
	return ParseAmount(d.Value(i, col))
}

// Number parses the cell at row i as a float.
func (d *Dataset) Number(i int, col string) (float64, bool) {
	v, ok := d.Amount(i, col)
	if !ok {
		return 0, false
	}
	return v.InexactFloat64(), true
}

// Time parses the cell at row i as a date. An empty layout tries schema.DateLayouts.
func (d *Dataset) Time(i int, col, layout string) (time.Time, bool) {
	return ParseDate(d.Value(i, col), layout)
}

// ParseAmount parses "1,234.50", "$99", "-12" and accounting negatives "(40.00)".
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	s = strings.ReplaceAll(s, ",", "")

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		v = v.Neg()
	}
	return v, true
}

// ParseDate parses s with layout, or with each of schema.DateLayouts when layout is empty.
func ParseDate(s, layout string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if layout != "" {
		t, err := time.Parse(layout, s)
		return t, err == nil
	}
	for _, l := range schema.DateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ============================================================================
// SUBSET — rows of one group (zero-copy)
// ============================================================================

type subset struct {
	parent  *Dataset
	indices []int
}

func allRows(d *Dataset) subset {
	idx := make([]int, d.Len())
	for i := range idx {
		idx[i] = i
	}
	return subset{parent: d, indices: idx}
}

func (s subset) Len() int { return len(s.indices) }

// sum adds the parseable amounts of col; n is the number of rows that contributed.
func (s subset) sum(col string) (total decimal.Decimal, n int) {
	for _, i := range s.indices {
		if v, ok := s.parent.Amount(i, col); ok {
			total = total.Add(v)
			n++
		}
	}
	return total, n
}

// numbers returns the parseable values of col as floats.
func (s subset) numbers(col string) []float64 {
	out := make([]float64, 0, len(s.indices))
	for _, i := range s.indices {
		if v, ok := s.parent.Number(i, col); ok {
			out = append(out, v)
		}
	}
	return out
}
