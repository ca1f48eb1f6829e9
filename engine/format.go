package engine

import (
	"fmt"
	"math"
)

// ============================================================================
// FORMATTING — Display strings for KPI values and changes
// ============================================================================

// Placeholder is shown in place of a KPI value whose data source is missing.
const Placeholder = "--"

// NotAvailable is the change text when no prior period was supplied.
const NotAvailable = "N/A"

// FormatValue formats v per the display format. symbol prefixes currency values.
func FormatValue(v float64, f Format, symbol string) string {
	switch f {
	case PercentFormat:
		return FormatPercent(v)
	case CurrencyFormat:
		return FormatCurrencyShort(v, symbol)
	default:
		return FormatNumber(v)
	}
}

// FormatNumber rounds to an integer and groups thousands: 1234.6 → "1,235".
func FormatNumber(v float64) string {
	return FormatInt(int64(math.Round(v)))
}

// FormatPercent formats with one decimal place: 61.666 → "61.7%".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", cleanZero(v, 10))
}

// currencyUnits are tried smallest first.
var currencyUnits = []struct {
	size   float64
	suffix string
}{
	{1e3, "K"},
	{1e6, "M"},
	{1e9, "B"},
}

// FormatCurrencyShort abbreviates magnitude: 1234567 → "$1.2M", 950 → "$950".
func FormatCurrencyShort(v float64, symbol string) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	rounded := math.Round(v)
	if rounded < 1000 {
		if rounded == 0 {
			sign = ""
		}
		return sign + symbol + FormatInt(int64(rounded))
	}

	// A unit applies until its one-decimal display would reach 1000.
	for i, u := range currencyUnits {
		scaled := math.Round(v/u.size*10) / 10
		if scaled < 1000 || i == len(currencyUnits)-1 {
			return fmt.Sprintf("%s%s%.1f%s", sign, symbol, scaled, u.suffix)
		}
	}
	return ""
}

// FormatChange renders a period-over-period delta. Percent KPIs move in
// points, everything else in percent of the prior value.
func FormatChange(changeRaw float64, f Format) string {
	v := cleanZero(changeRaw, 10)
	if f == PercentFormat {
		if v == 0 {
			return "0.0 pts"
		}
		return fmt.Sprintf("%+.1f pts", v)
	}
	if v == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%+.1f%%", v)
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// cleanZero returns 0 for values that round to zero at the given scale,
// so they never render as "-0.0".
func cleanZero(v, scale float64) float64 {
	if math.Round(v*scale) == 0 {
		return 0
	}
	return v
}
