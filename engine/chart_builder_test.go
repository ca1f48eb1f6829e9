package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/kpideck/schema"
)

var monthlyChargesCSV = `claim_id,charge_amount,post_date
1,100,2026-03-02
2,50.25,2026-01-15
3,100,2026-01-20
4,abc,2026-02-11
5,75,not-a-date
6,20,`

var agingCSV = `claim_id,balance,aging_bucket,days_outstanding
1,100,31-60,
2,50,,10
3,25,,150
4,999,,abc
5,40,91-120,
6,5,,58`

var reasonsCSV = `claim_id,denial_reason,post_date
1,CO-97,2026-01-03
2,CO-45,2026-01-04
3,PR-1,2026-02-01
4,CO-45,2026-02-05
5,,2026-02-07`

var payerCSV = `claim_id,payment_amount,payer
1,100,Cigna
2,300,Aetna
3,100,Medicare
4,50,Cigna
5,80,`

func chartDatasets() Datasets {
	return NewDatasets(schema.DefaultColumnMapping(),
		dataset(schema.SourceCharges, monthlyChargesCSV),
		dataset(schema.SourceOpenAR, agingCSV),
		dataset(schema.SourceDenials, reasonsCSV),
		dataset(schema.SourcePayments, payerCSV),
		MissingDataset(schema.SourceAdjustments),
	)
}

func labels(points []ChartPoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.Label
	}
	return out
}

func TestBuildChartsByMonth(t *testing.T) {
	charts := BuildCharts([]schema.SectionID{schema.SectionKPICards, schema.SectionChargesByMonth, schema.SectionDenialsByMonth}, chartDatasets())

	_, hasCards := charts[string(schema.SectionKPICards)]
	assert.False(t, hasCards, "kpiCards has no series")

	charges := charts[string(schema.SectionChargesByMonth)]
	assert.Equal(t, []string{"Jan-2026", "Feb-2026", "Mar-2026"}, labels(charges))
	assert.Equal(t, 150.25, charges[0].Value)
	assert.Equal(t, 2, charges[0].Count)
	assert.Equal(t, 0.0, charges[1].Value, "malformed amount keeps its month group")
	assert.Equal(t, 1, charges[1].Count)

	denials := charts[string(schema.SectionDenialsByMonth)]
	require.Len(t, denials, 2)
	assert.Equal(t, ChartPoint{Label: "Jan-2026", Value: 2, Count: 2}, denials[0])
	assert.Equal(t, ChartPoint{Label: "Feb-2026", Value: 3, Count: 3}, denials[1])
}

func TestBuildChartsARAging(t *testing.T) {
	charts := BuildCharts([]schema.SectionID{schema.SectionARAging}, chartDatasets())
	aging := charts[string(schema.SectionARAging)]

	assert.Equal(t, []string{"0-30", "31-60", "91-120", "120+"}, labels(aging))
	assert.Equal(t, 50.0, aging[0].Value)
	assert.Equal(t, 105.0, aging[1].Value, "explicit bucket plus derived 58 days")
	assert.Equal(t, 25.0, aging[3].Value)
}

func TestBuildChartsRanked(t *testing.T) {
	charts := BuildCharts([]schema.SectionID{schema.SectionDenialsByReason, schema.SectionPayerMix}, chartDatasets())

	reasons := charts[string(schema.SectionDenialsByReason)]
	assert.Equal(t, []string{"CO-45", "CO-97", "PR-1"}, labels(reasons))
	assert.Equal(t, 2.0, reasons[0].Value)

	payers := charts[string(schema.SectionPayerMix)]
	assert.Equal(t, []string{"Aetna", "Cigna", "Medicare"}, labels(payers))
	assert.Equal(t, 150.0, payers[1].Value)
}

func TestBuildChartsMissingSource(t *testing.T) {
	d := chartDatasets()
	d.Sources[schema.SourceDenials] = MissingDataset(schema.SourceDenials)

	charts := BuildCharts([]schema.SectionID{schema.SectionDenialsByReason, schema.SectionPayerMix}, d)
	reasons, ok := charts[string(schema.SectionDenialsByReason)]
	require.True(t, ok)
	assert.NotNil(t, reasons)
	assert.Empty(t, reasons)
	assert.NotEmpty(t, charts[string(schema.SectionPayerMix)])
}

func TestBuildChartsColumnMapping(t *testing.T) {
	cols := schema.ColumnMapping{PostDate: "Posted", ChargeAmount: "Billed", DateLayout: "01/02/2006"}.WithDefaults()
	d := NewDatasets(cols, dataset(schema.SourceCharges, "Billed,Posted\n10,01/31/2026\n15,02/01/2026"))

	charges := BuildCharts([]schema.SectionID{schema.SectionChargesByMonth}, d)[string(schema.SectionChargesByMonth)]
	assert.Equal(t, []ChartPoint{{Label: "Jan-2026", Value: 10, Count: 1}, {Label: "Feb-2026", Value: 15, Count: 1}}, charges)
}

func TestAgingBucket(t *testing.T) {
	assert.Equal(t, "0-30", AgingBucket(0))
	assert.Equal(t, "0-30", AgingBucket(30))
	assert.Equal(t, "31-60", AgingBucket(31))
	assert.Equal(t, "91-120", AgingBucket(120))
	assert.Equal(t, "120+", AgingBucket(121))
}

func TestDerivePeriod(t *testing.T) {
	cols := schema.DefaultColumnMapping()
	d := chartDatasets()

	assert.Equal(t, "Jan-2026 – Mar-2026", DerivePeriod(d.Get(schema.SourceCharges), cols.PostDate, ""))
	assert.Equal(t, "Jan-2026", DerivePeriod(dataset("x", "post_date\n2026-01-09"), cols.PostDate, ""))
	assert.Equal(t, "No data", DerivePeriod(MissingDataset("x"), cols.PostDate, ""))
	assert.Equal(t, "All time", DerivePeriod(dataset("x", "post_date\nsoon"), cols.PostDate, ""))
}

func TestEvaluate(t *testing.T) {
	cfg := &schema.ClientConfig{
		ClientID:  "acme",
		Name:      "Acme",
		ShortName: "A",
		KPIs:      defs("countClaims", "totalPayments"),
		Layout:    schema.Layout{Sections: []schema.SectionID{schema.SectionKPICards, schema.SectionPayerMix}},
		Currency:  "€",
	}

	bundle, err := Evaluate(cfg, chartDatasets(), nil, WithCurrencySymbol("$"))
	require.NoError(t, err)

	assert.Same(t, cfg, bundle.Config)
	require.Len(t, bundle.KPIs, 2)
	assert.Equal(t, "6", bundle.KPIs[0].Value)
	assert.Equal(t, "€630", bundle.KPIs[1].Value, "client currency wins")
	assert.Len(t, bundle.ChartData, 1)
	assert.Equal(t, "Jan-2026 – Mar-2026", bundle.Period)
	assert.Equal(t, []string{schema.SourceAdjustments}, bundle.MissingSources)
}

func TestBuildTables(t *testing.T) {
	results, err := ComputeKPIs(defs("countClaims", "grossCollectionRate"), scenarioDatasets(), nil)
	require.NoError(t, err)

	table := BuildKPITable("Acme", results)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"GROSSCOLLECTIONRATE", "61.7%", "N/A"}, table.Rows[1])

	sec, ok := LookupSection(schema.SectionPayerMix)
	require.True(t, ok)
	series := BuildSeriesTable(sec, []ChartPoint{{Label: "Aetna", Value: 300, Count: 1}}, "$")
	assert.Equal(t, []string{"Aetna", "$300.00", "1"}, series.Rows[0])
	assert.Equal(t, "Payer Mix", series.Columns[0].Label)
}
