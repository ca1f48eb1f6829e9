package engine

import (
	"fmt"
)

// ============================================================================
// TABLE BUILDER — Flat tables for text / CSV output
// ============================================================================

// BuildKPITable renders KPI results as one row per KPI.
func BuildKPITable(title string, results []KpiResult) *TableData {
	columns := []Column{
		{Key: "kpi", Label: "KPI", Align: "left"},
		{Key: "value", Label: "Value", Align: "right"},
		{Key: "change", Label: "Change", Align: "right"},
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.Label, r.Value, r.Change})
	}

	return &TableData{
		Title:   title,
		Columns: columns,
		Rows:    rows,
	}
}

// BuildSeriesTable renders one chart series as label / value / count rows.
func BuildSeriesTable(sec Section, points []ChartPoint, symbol string) *TableData {
	valueLabel := "Amount"
	if sec.Aggregation == "count" {
		valueLabel = "Count"
	}

	columns := []Column{
		{Key: "label", Label: sec.Title, Align: "left"},
		{Key: "value", Label: valueLabel, Align: "right"},
		{Key: "count", Label: "Rows", Align: "right"},
	}

	rows := make([][]string, 0, len(points))
	for _, p := range points {
		value := FormatInt(int64(p.Value))
		if sec.Format == CurrencyFormat {
			value = fmt.Sprintf("%s%.2f", symbol, p.Value)
		}
		rows = append(rows, []string{p.Label, value, fmt.Sprintf("%d", p.Count)})
	}

	return &TableData{
		Title:   sec.Title,
		Columns: columns,
		Rows:    rows,
	}
}
