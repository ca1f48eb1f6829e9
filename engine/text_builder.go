package engine

import "fmt"

// ============================================================================
// PERIOD HELPER
// ============================================================================

// DerivePeriod builds a human-readable period string from the months of a
// dataset's date column: "Mar-2026" or "Jan-2026 – Mar-2026".
func DerivePeriod(d *Dataset, col, layout string) string {
	if d.Len() == 0 {
		return "No data"
	}

	months := make(map[string]bool)
	month := byMonth(col, layout)
	for i := 0; i < d.Len(); i++ {
		if m, ok := month(d, i); ok {
			months[m] = true
		}
	}

	if len(months) == 0 {
		return "All time"
	}

	var earliest, latest string
	var earliestOrder, latestOrder int
	first := true

	for m := range months {
		order := ParseMonthOrder(m)
		if first || order < earliestOrder {
			earliest = m
			earliestOrder = order
		}
		if first || order > latestOrder {
			latest = m
			latestOrder = order
		}
		first = false
	}

	if earliest == latest {
		return earliest
	}
	return fmt.Sprintf("%s – %s", earliest, latest)
}
