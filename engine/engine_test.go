package engine

import (
	stderrors "errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/kpideck/internal/errors"
	"github.com/spektr-org/kpideck/schema"
)

// ============================================================================
// FIXTURES
// ============================================================================

var chargesCSV = `claim_id,charge_amount,post_date
1,100,2026-01-05
2,100,2026-01-20
3,100,2026-02-03`

var paymentsCSV = `claim_id,payment_amount,post_date,payer
1,90,2026-02-01,Aetna
3,95,2026-02-10,Cigna`

var denialsCSV = `claim_id,denial_reason,post_date
2,CO-45,2026-02-01`

// dataset builds a present dataset from simple comma-separated text.
func dataset(name, text string) *Dataset {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	header := strings.Split(lines[0], ",")
	rows := []Row{}
	for _, line := range lines[1:] {
		cells := strings.Split(line, ",")
		row := Row{}
		for i, h := range header {
			if i < len(cells) {
				row[h] = cells[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return NewDataset(name, header, rows)
}

func scenarioDatasets() Datasets {
	return NewDatasets(schema.DefaultColumnMapping(),
		dataset(schema.SourceCharges, chargesCSV),
		dataset(schema.SourcePayments, paymentsCSV),
		dataset(schema.SourceDenials, denialsCSV),
	)
}

func emptyDatasets() Datasets {
	sets := make([]*Dataset, 0, 5)
	for _, name := range []string{schema.SourceCharges, schema.SourcePayments, schema.SourceAdjustments, schema.SourceDenials, schema.SourceOpenAR} {
		sets = append(sets, NewDataset(name, nil, []Row{}))
	}
	return NewDatasets(schema.DefaultColumnMapping(), sets...)
}

func defs(keys ...string) []schema.KpiDefinition {
	out := make([]schema.KpiDefinition, len(keys))
	for i, k := range keys {
		out[i] = schema.KpiDefinition{Key: k, Label: strings.ToUpper(k), FormulaKey: k}
	}
	return out
}

func byKey(results []KpiResult) map[string]KpiResult {
	m := make(map[string]KpiResult, len(results))
	for _, r := range results {
		m[r.Key] = r
	}
	return m
}

// ============================================================================
// KPI ENGINE
// ============================================================================

func TestComputeKPIsScenario(t *testing.T) {
	results, err := ComputeKPIs(
		defs("countClaims", "grossCollectionRate", "denialRate", "firstPassRate", "cleanClaimRate", "totalPayments"),
		scenarioDatasets(), nil)
	require.NoError(t, err)
	got := byKey(results)

	assert.Equal(t, "3", got["countClaims"].Value)
	assert.Equal(t, 3.0, got["countClaims"].RawValue)

	assert.Equal(t, "61.7%", got["grossCollectionRate"].Value)
	assert.InDelta(t, 61.6667, got["grossCollectionRate"].RawValue, 0.001)

	assert.Equal(t, "33.3%", got["denialRate"].Value)
	assert.True(t, got["denialRate"].DownBetter)

	assert.Equal(t, "66.7%", got["firstPassRate"].Value)
	assert.Equal(t, got["firstPassRate"].RawValue, got["cleanClaimRate"].RawValue)

	assert.Equal(t, "$185", got["totalPayments"].Value)
	assert.Equal(t, CurrencyFormat, got["totalPayments"].Format)

	for _, r := range results {
		assert.Equal(t, NotAvailable, r.Change, r.Key)
		assert.Zero(t, r.ChangeRaw, r.Key)
		assert.False(t, r.Degraded, r.Key)
	}
}

func TestComputeKPIsAllEmpty(t *testing.T) {
	results, err := ComputeKPIs(defs(FormulaKeys()...), emptyDatasets(), nil)
	require.NoError(t, err)
	require.Len(t, results, len(FormulaKeys()))

	for _, r := range results {
		assert.Zero(t, r.RawValue, r.Key)
		assert.False(t, math.IsNaN(r.RawValue), r.Key)
		assert.False(t, r.Degraded, r.Key)
	}
	got := byKey(results)
	assert.Equal(t, "0", got["countClaims"].Value)
	assert.Equal(t, "0.0%", got["grossCollectionRate"].Value)
	assert.Equal(t, "$0", got["totalOpenAR"].Value)
}

func TestRatesZeroWhenDenominatorEmpty(t *testing.T) {
	d := emptyDatasets()
	d.Sources[schema.SourcePayments] = dataset(schema.SourcePayments, paymentsCSV)
	d.Sources[schema.SourceDenials] = dataset(schema.SourceDenials, denialsCSV)

	for _, key := range []string{"grossCollectionRate", "netCollectionRate", "denialRate", "firstPassRate"} {
		f, ok := LookupFormula(key)
		require.True(t, ok, key)
		assert.Equal(t, 0.0, f.Compute(d), key)
	}
}

func TestNetCollectionRate(t *testing.T) {
	d := scenarioDatasets()
	d.Sources[schema.SourceAdjustments] = dataset(schema.SourceAdjustments, "claim_id,adjustment_amount\n1,30\n2,20")

	f, _ := LookupFormula("netCollectionRate")
	assert.InDelta(t, 74.0, f.Compute(d), 1e-9)

	d.Sources[schema.SourceAdjustments] = dataset(schema.SourceAdjustments, "claim_id,adjustment_amount\n1,300")
	assert.Equal(t, 0.0, f.Compute(d), "non-positive denominator")
}

func TestComputeKPIsPreservesOrder(t *testing.T) {
	keys := []string{"totalPayments", "countClaims", "denialRate", "grossCollectionRate", "cleanClaimRate"}
	results, err := ComputeKPIs(defs(keys...), scenarioDatasets(), nil)
	require.NoError(t, err)

	got := make([]string, len(results))
	for i, r := range results {
		got[i] = r.Key
	}
	assert.Equal(t, keys, got)
}

func TestComputeKPIsMissingSourceIsolated(t *testing.T) {
	d := scenarioDatasets()
	d.Sources[schema.SourceOpenAR] = MissingDataset(schema.SourceOpenAR)

	results, err := ComputeKPIs(defs("totalOpenAR", "totalPayments", "countClaims"), d, nil)
	require.NoError(t, err)
	got := byKey(results)

	assert.True(t, got["totalOpenAR"].Degraded)
	assert.Equal(t, Placeholder, got["totalOpenAR"].Value)
	assert.Zero(t, got["totalOpenAR"].RawValue)

	assert.False(t, got["totalPayments"].Degraded)
	assert.Equal(t, "$185", got["totalPayments"].Value)
	assert.Equal(t, "3", got["countClaims"].Value)
}

func TestComputeKPIsUnknownFormula(t *testing.T) {
	_, err := ComputeKPIs([]schema.KpiDefinition{{Key: "x", Label: "X", FormulaKey: "doesNotExist"}}, scenarioDatasets(), nil)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrUnknownFormula))
}

func TestComputeKPIsPriorPeriod(t *testing.T) {
	prior := NewDatasets(schema.DefaultColumnMapping(),
		dataset(schema.SourceCharges, "claim_id,charge_amount,post_date\n8,100,2025-12-01\n9,100,2025-12-09"),
		dataset(schema.SourcePayments, "claim_id,payment_amount,post_date,payer\n8,100,2025-12-20,Aetna"),
		NewDataset(schema.SourceDenials, []string{"claim_id"}, []Row{}),
	)

	results, err := ComputeKPIs(defs("countClaims", "grossCollectionRate", "denialRate", "totalPayments"),
		scenarioDatasets(), &prior)
	require.NoError(t, err)
	got := byKey(results)

	assert.Equal(t, "+50.0%", got["countClaims"].Change)
	assert.InDelta(t, 50.0, got["countClaims"].ChangeRaw, 1e-9)

	assert.Equal(t, "+11.7 pts", got["grossCollectionRate"].Change)
	assert.Equal(t, "+33.3 pts", got["denialRate"].Change)
	assert.Equal(t, "+85.0%", got["totalPayments"].Change)
}

func TestComputeKPIsPriorMissingSource(t *testing.T) {
	prior := NewDatasets(schema.DefaultColumnMapping(),
		dataset(schema.SourceCharges, "claim_id,charge_amount\n8,100\n9,100"),
	)
	results, err := ComputeKPIs(defs("countClaims", "grossCollectionRate"), scenarioDatasets(), &prior)
	require.NoError(t, err)
	got := byKey(results)

	assert.Equal(t, "+50.0%", got["countClaims"].Change)
	assert.Equal(t, NotAvailable, got["grossCollectionRate"].Change)
}

func TestSupplementaryFormulas(t *testing.T) {
	d := scenarioDatasets()
	d.Sources[schema.SourceOpenAR] = dataset(schema.SourceOpenAR, "claim_id,balance,days_outstanding\n1,10,12\n2,20,45\n3,30,97")

	results, err := ComputeKPIs(defs("totalCharges", "averageCharge", "medianDaysInAR", "totalOpenAR"), d, nil)
	require.NoError(t, err)
	got := byKey(results)

	assert.Equal(t, "$300", got["totalCharges"].Value)
	assert.Equal(t, 100.0, got["averageCharge"].RawValue)
	assert.Equal(t, 45.0, got["medianDaysInAR"].RawValue)
	assert.Equal(t, "$60", got["totalOpenAR"].Value)
}

func TestFormulaRegistry(t *testing.T) {
	for _, key := range []string{"countClaims", "grossCollectionRate", "netCollectionRate", "denialRate",
		"firstPassRate", "cleanClaimRate", "totalPayments", "totalOpenAR"} {
		assert.True(t, HasFormula(key), key)
	}
	assert.False(t, HasFormula("doesNotExist"))
}

// ============================================================================
// FORMATTING
// ============================================================================

func TestFormatCurrencyShort(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.4, "$0"},
		{950, "$950"},
		{999.6, "$1.0K"},
		{12500, "$12.5K"},
		{-12500, "-$12.5K"},
		{1234567, "$1.2M"},
		{999950, "$1.0M"},
		{2.5e9, "$2.5B"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCurrencyShort(tt.in, "$"), "%v", tt.in)
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "1,235", FormatValue(1234.6, NumberFormat, "$"))
	assert.Equal(t, "1,000,000", FormatValue(1e6, NumberFormat, "$"))
	assert.Equal(t, "61.7%", FormatValue(61.666, PercentFormat, "$"))
	assert.Equal(t, "0.0%", FormatValue(-0.04, PercentFormat, "$"))
	assert.Equal(t, "€1.5K", FormatValue(1500, CurrencyFormat, "€"))
}

func TestFormatChange(t *testing.T) {
	assert.Equal(t, "+1.2 pts", FormatChange(1.234, PercentFormat))
	assert.Equal(t, "-12.5%", FormatChange(-12.5, NumberFormat))
	assert.Equal(t, "0.0%", FormatChange(0.01, CurrencyFormat))
	assert.Equal(t, "0.0 pts", FormatChange(0, PercentFormat))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1,234.50", "1234.5", true},
		{" $99 ", "99", true},
		{"-12", "-12", true},
		{"(40.00)", "-40", true},
		{"", "0", false},
		{"n/a", "0", false},
	}
	for _, tt := range tests {
		v, ok := ParseAmount(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, v.String(), tt.in)
	}
}

func TestParseDateAutoLayouts(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2026-03-07", "2026-03-07"},
		{"03/07/2026", "2026-03-07"},
		{"3/7/2026", "2026-03-07"},
		{"2026-03-07 14:30:00", "2026-03-07"},
		{"2026-03-07T14:30:00Z", "2026-03-07"},
		{"2026-03", "2026-03-01"},
		{"Mar-2026", "2026-03-01"},
		{"03/07/26", "2026-03-07"},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in, "")
		require.True(t, ok, tt.in)
		assert.Equal(t, tt.want, got.Format("2006-01-02"), tt.in)
	}

	_, ok := ParseDate("07.03.2026", "")
	assert.False(t, ok)
}
