package engine

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spektr-org/kpideck/schema"
)

// ============================================================================
// AGGREGATORS — Grouping, Aggregation, and Sorting over Dataset subsets
// ============================================================================
// Grouping produces subsets (index lists into the parent dataset).
// Rows whose grouping cell is empty or malformed join no group.
// ============================================================================

// Group is one bucket of rows with its aggregate.
type Group struct {
	Key   string
	Value float64
	Count int
	rows  subset
}

// keyFunc derives a row's group key. ok=false excludes the row.
type keyFunc func(d *Dataset, i int) (key string, ok bool)

// GroupAndAggregate is the pipeline behind every chart section:
// group → aggregate → sort.
func GroupAndAggregate(d *Dataset, key keyFunc, measure, aggregation, sortBy string) []Group {
	if d.Len() == 0 {
		return nil
	}

	groups := groupRows(allRows(d), key)
	for i := range groups {
		aggregateGroup(&groups[i], measure, aggregation)
	}
	SortGroups(groups, sortBy)
	return groups
}

// ============================================================================
// GROUPING
// ============================================================================

func groupRows(s subset, key keyFunc) []Group {
	grouped := make(map[string][]int)
	order := make([]string, 0)

	for _, i := range s.indices {
		k, ok := key(s.parent, i)
		if !ok {
			continue
		}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], i)
	}

	groups := make([]Group, 0, len(order))
	for _, k := range order {
		groups = append(groups, Group{
			Key:  k,
			rows: subset{parent: s.parent, indices: grouped[k]},
		})
	}
	return groups
}

// byMonth keys rows by the calendar month of a date column ("Jan-2026").
func byMonth(col, layout string) keyFunc {
	return func(d *Dataset, i int) (string, bool) {
		t, ok := d.Time(i, col, layout)
		if !ok {
			return "", false
		}
		return t.Format(monthLayout), true
	}
}

// byValue keys rows by a trimmed text cell.
func byValue(col string) keyFunc {
	return func(d *Dataset, i int) (string, bool) {
		v := d.Value(i, col)
		return v, v != ""
	}
}

// byAgingBucket keys rows by their bucket cell, deriving the bucket from
// days outstanding when the cell is empty.
func byAgingBucket(cols schema.ColumnMapping) keyFunc {
	return func(d *Dataset, i int) (string, bool) {
		if b := d.Value(i, cols.AgingBucket); b != "" {
			return b, true
		}
		days, ok := d.Number(i, cols.DaysOutstanding)
		if !ok || days < 0 {
			return "", false
		}
		return AgingBucket(days), true
	}
}

// AgingBucket returns the standard bucket label for a days-outstanding value.
func AgingBucket(days float64) string {
	switch {
	case days <= 30:
		return "0-30"
	case days <= 60:
		return "31-60"
	case days <= 90:
		return "61-90"
	case days <= 120:
		return "91-120"
	default:
		return "120+"
	}
}

// ============================================================================
// AGGREGATION
// ============================================================================

func aggregateGroup(g *Group, measure, aggregation string) {
	g.Count = g.rows.Len()
	switch aggregation {
	case "count":
		g.Value = float64(g.Count)
	default:
		total, _ := g.rows.sum(measure)
		g.Value = total.InexactFloat64()
	}
}

// ============================================================================
// SORTING
// ============================================================================

// SortGroups sorts groups by mode. Unknown modes keep first-seen order.
func SortGroups(groups []Group, sortBy string) {
	switch sortBy {
	case "chronological":
		sort.SliceStable(groups, func(i, j int) bool {
			return ParseMonthOrder(groups[i].Key) < ParseMonthOrder(groups[j].Key)
		})
	case "bucket":
		sort.SliceStable(groups, func(i, j int) bool {
			return bucketLess(groups[i].Key, groups[j].Key)
		})
	case "value_desc":
		sort.SliceStable(groups, func(i, j int) bool {
			if groups[i].Value != groups[j].Value {
				return groups[i].Value > groups[j].Value
			}
			return groups[i].Key < groups[j].Key
		})
	case "label_asc":
		sort.SliceStable(groups, func(i, j int) bool {
			return strings.ToLower(groups[i].Key) < strings.ToLower(groups[j].Key)
		})
	default:
		// preserve grouping order
	}
}

// bucketLess orders by the bucket's numeric lower bound ("31-60" → 31).
// Labels without one sort after numeric buckets, alphabetically.
func bucketLess(a, b string) bool {
	la, okA := bucketLowerBound(a)
	lb, okB := bucketLowerBound(b)
	switch {
	case okA && okB && la != lb:
		return la < lb
	case okA != okB:
		return okA
	default:
		return a < b
	}
}

func bucketLowerBound(label string) (int, bool) {
	end := 0
	for end < len(label) && label[end] >= '0' && label[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(label[:end])
	return n, err == nil
}

// ============================================================================
// MONTHS
// ============================================================================

const monthLayout = "Jan-2006"

// ParseMonthOrder converts "Jan-2026" to sortable int (202601).
func ParseMonthOrder(monthStr string) int {
	t, err := time.Parse(monthLayout, monthStr)
	if err != nil {
		return 0
	}
	return t.Year()*100 + int(t.Month())
}
