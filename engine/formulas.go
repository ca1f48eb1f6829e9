package engine

import (
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/spektr-org/kpideck/schema"
)

// ============================================================================
// FORMULA REGISTRY — Closed table of KPI computations
// ============================================================================
// A client config names formulas by key; the table below is the only place
// those keys resolve. Every Compute is pure over the Datasets it is given and
// returns 0 instead of dividing by an empty or non-positive denominator.
//
// firstPassRate and cleanClaimRate share one body. Clean-claim rate normally
// also excludes claims with correction activity; existing client configs rely
// on the two matching, so they stay identical.
// ============================================================================

// Formula describes one KPI computation and how to display it.
type Formula struct {
	Format     Format
	DownBetter bool
	Sources    []string // logical data sources Compute reads
	Compute    func(Datasets) float64
}

var formulas = map[string]Formula{
	"countClaims": {
		Format:  NumberFormat,
		Sources: []string{schema.SourceCharges},
		Compute: func(d Datasets) float64 {
			return float64(d.Get(schema.SourceCharges).Len())
		},
	},
	"grossCollectionRate": {
		Format:  PercentFormat,
		Sources: []string{schema.SourcePayments, schema.SourceCharges},
		Compute: func(d Datasets) float64 {
			cols := d.columns()
			return percentOf(
				sumColumn(d, schema.SourcePayments, cols.PaymentAmount),
				sumColumn(d, schema.SourceCharges, cols.ChargeAmount),
			)
		},
	},
	"netCollectionRate": {
		Format:  PercentFormat,
		Sources: []string{schema.SourcePayments, schema.SourceCharges, schema.SourceAdjustments},
		Compute: func(d Datasets) float64 {
			cols := d.columns()
			charges := sumColumn(d, schema.SourceCharges, cols.ChargeAmount)
			adjustments := sumColumn(d, schema.SourceAdjustments, cols.AdjustmentAmount)
			return percentOf(sumColumn(d, schema.SourcePayments, cols.PaymentAmount), charges.Sub(adjustments))
		},
	},
	"denialRate": {
		Format:     PercentFormat,
		DownBetter: true,
		Sources:    []string{schema.SourceDenials, schema.SourceCharges},
		Compute: func(d Datasets) float64 {
			return percentOf(
				decimal.NewFromInt(int64(d.Get(schema.SourceDenials).Len())),
				decimal.NewFromInt(int64(d.Get(schema.SourceCharges).Len())),
			)
		},
	},
	"firstPassRate": {
		Format:  PercentFormat,
		Sources: []string{schema.SourceCharges, schema.SourceDenials},
		Compute: firstPassRate,
	},
	"cleanClaimRate": {
		Format:  PercentFormat,
		Sources: []string{schema.SourceCharges, schema.SourceDenials},
		Compute: firstPassRate,
	},
	"totalPayments": {
		Format:  CurrencyFormat,
		Sources: []string{schema.SourcePayments},
		Compute: func(d Datasets) float64 {
			return sumColumn(d, schema.SourcePayments, d.columns().PaymentAmount).InexactFloat64()
		},
	},
	"totalOpenAR": {
		Format:     CurrencyFormat,
		DownBetter: true,
		Sources:    []string{schema.SourceOpenAR},
		Compute: func(d Datasets) float64 {
			return sumColumn(d, schema.SourceOpenAR, d.columns().OpenARAmount).InexactFloat64()
		},
	},

	// ── Supplementary ──

	"totalCharges": {
		Format:  CurrencyFormat,
		Sources: []string{schema.SourceCharges},
		Compute: func(d Datasets) float64 {
			return sumColumn(d, schema.SourceCharges, d.columns().ChargeAmount).InexactFloat64()
		},
	},
	"totalAdjustments": {
		Format:     CurrencyFormat,
		DownBetter: true,
		Sources:    []string{schema.SourceAdjustments},
		Compute: func(d Datasets) float64 {
			return sumColumn(d, schema.SourceAdjustments, d.columns().AdjustmentAmount).InexactFloat64()
		},
	},
	"averageCharge": {
		Format:  CurrencyFormat,
		Sources: []string{schema.SourceCharges},
		Compute: func(d Datasets) float64 {
			mean, err := stats.Mean(columnValues(d, schema.SourceCharges, d.columns().ChargeAmount))
			if err != nil {
				return 0
			}
			return mean
		},
	},
	"medianDaysInAR": {
		Format:     NumberFormat,
		DownBetter: true,
		Sources:    []string{schema.SourceOpenAR},
		Compute: func(d Datasets) float64 {
			median, err := stats.Median(columnValues(d, schema.SourceOpenAR, d.columns().DaysOutstanding))
			if err != nil {
				return 0
			}
			return median
		},
	},
}

// LookupFormula returns the registered formula for key.
func LookupFormula(key string) (Formula, bool) {
	f, ok := formulas[key]
	return f, ok
}

// HasFormula reports whether key is registered. Suitable for schema.WithFormulaLookup.
func HasFormula(key string) bool {
	_, ok := formulas[key]
	return ok
}

// FormulaKeys returns every registered key, sorted.
func FormulaKeys() []string {
	keys := make([]string, 0, len(formulas))
	for k := range formulas {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ============================================================================
// HELPERS
// ============================================================================

func firstPassRate(d Datasets) float64 {
	charges := int64(d.Get(schema.SourceCharges).Len())
	denials := int64(d.Get(schema.SourceDenials).Len())
	return percentOf(decimal.NewFromInt(charges-denials), decimal.NewFromInt(charges))
}

// percentOf returns 100 × num / den, or 0 when den ≤ 0.
func percentOf(num, den decimal.Decimal) float64 {
	if !den.IsPositive() {
		return 0
	}
	return num.Mul(decimal.NewFromInt(100)).Div(den).InexactFloat64()
}

func sumColumn(d Datasets, source, col string) decimal.Decimal {
	total, _ := allRows(d.Get(source)).sum(col)
	return total
}

func columnValues(d Datasets, source, col string) []float64 {
	return allRows(d.Get(source)).numbers(col)
}

func (d Datasets) columns() schema.ColumnMapping {
	return d.Columns.WithDefaults()
}
