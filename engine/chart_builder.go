package engine

import (
	"github.com/spektr-org/kpideck/schema"
)

// ============================================================================
// CHART BUILDER — Layout sections → series
// ============================================================================
// Each chart section is one entry in a fixed catalog: which source it reads,
// how rows group, what is aggregated and how the groups are ordered.
// kpiCards renders the KPI results and has no series.
// ============================================================================

// Section describes how one layout section's series is built.
type Section struct {
	ID          schema.SectionID
	Title       string
	Source      string
	Aggregation string // "sum" or "count"
	Order       string // see SortGroups
	Format      Format // display format of point values

	key     func(cols schema.ColumnMapping) keyFunc
	measure func(cols schema.ColumnMapping) string
}

var sectionCatalog = map[schema.SectionID]Section{
	schema.SectionChargesByMonth: {
		Title:       "Charges by Month",
		Source:      schema.SourceCharges,
		Aggregation: "sum",
		Order:       "chronological",
		Format:      CurrencyFormat,
		key:         func(c schema.ColumnMapping) keyFunc { return byMonth(c.PostDate, c.DateLayout) },
		measure:     func(c schema.ColumnMapping) string { return c.ChargeAmount },
	},
	schema.SectionPaymentsByMonth: {
		Title:       "Payments by Month",
		Source:      schema.SourcePayments,
		Aggregation: "sum",
		Order:       "chronological",
		Format:      CurrencyFormat,
		key:         func(c schema.ColumnMapping) keyFunc { return byMonth(c.PostDate, c.DateLayout) },
		measure:     func(c schema.ColumnMapping) string { return c.PaymentAmount },
	},
	schema.SectionDenialsByMonth: {
		Title:       "Denials by Month",
		Source:      schema.SourceDenials,
		Aggregation: "count",
		Order:       "chronological",
		Format:      NumberFormat,
		key:         func(c schema.ColumnMapping) keyFunc { return byMonth(c.PostDate, c.DateLayout) },
	},
	schema.SectionARAging: {
		Title:       "A/R Aging",
		Source:      schema.SourceOpenAR,
		Aggregation: "sum",
		Order:       "bucket",
		Format:      CurrencyFormat,
		key:         byAgingBucket,
		measure:     func(c schema.ColumnMapping) string { return c.OpenARAmount },
	},
	schema.SectionDenialsByReason: {
		Title:       "Denials by Reason",
		Source:      schema.SourceDenials,
		Aggregation: "count",
		Order:       "value_desc",
		Format:      NumberFormat,
		key:         func(c schema.ColumnMapping) keyFunc { return byValue(c.DenialReason) },
	},
	schema.SectionPayerMix: {
		Title:       "Payer Mix",
		Source:      schema.SourcePayments,
		Aggregation: "sum",
		Order:       "value_desc",
		Format:      CurrencyFormat,
		key:         func(c schema.ColumnMapping) keyFunc { return byValue(c.Payer) },
		measure:     func(c schema.ColumnMapping) string { return c.PaymentAmount },
	},
}

// LookupSection returns the catalog entry of a chart section. kpiCards and
// unknown ids report false.
func LookupSection(id schema.SectionID) (Section, bool) {
	s, ok := sectionCatalog[id]
	s.ID = id
	return s, ok
}

// BuildCharts produces one series per chart section in sections, keyed by
// section id. Sections over a missing source get an empty series.
func BuildCharts(sections []schema.SectionID, d Datasets) map[string][]ChartPoint {
	cols := d.columns()
	charts := make(map[string][]ChartPoint)

	for _, id := range sections {
		sec, ok := LookupSection(id)
		if !ok {
			continue
		}
		charts[string(id)] = BuildSeries(sec, d.Get(sec.Source), cols)
	}
	return charts
}

// BuildSeries aggregates one dataset per the section definition.
func BuildSeries(sec Section, ds *Dataset, cols schema.ColumnMapping) []ChartPoint {
	if ds.Missing() || sec.key == nil {
		return []ChartPoint{}
	}

	measure := ""
	if sec.measure != nil {
		measure = sec.measure(cols)
	}
	groups := GroupAndAggregate(ds, sec.key(cols), measure, sec.Aggregation, sec.Order)

	points := make([]ChartPoint, 0, len(groups))
	for _, g := range groups {
		points = append(points, ChartPoint{
			Label: g.Key,
			Value: RoundTo2(g.Value),
			Count: g.Count,
		})
	}
	return points
}
