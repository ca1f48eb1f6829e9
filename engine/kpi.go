package engine

import (
	"math"

	"go.uber.org/zap"

	"github.com/spektr-org/kpideck/internal/errors"
	"github.com/spektr-org/kpideck/schema"
)

// ============================================================================
// KPI ENGINE — Declared KPIs → display-ready results
// ============================================================================
// Pipeline per definition:
//   1. Resolve formula by key (unknown key is an invariant violation)
//   2. Missing source → placeholder result, nothing computed
//   3. Compute + format the current value
//   4. With a prior period: compute the delta, else "N/A"
//
// Output order is the declaration order.
// ============================================================================

// ComputeKPIs evaluates defs against current. prior may be nil.
func ComputeKPIs(defs []schema.KpiDefinition, current Datasets, prior *Datasets, opts ...Option) ([]KpiResult, error) {
	return computeKPIs(defs, current, prior, applyOptions(opts))
}

func computeKPIs(defs []schema.KpiDefinition, current Datasets, prior *Datasets, cfg *config) ([]KpiResult, error) {
	results := make([]KpiResult, 0, len(defs))
	for _, def := range defs {
		formula, ok := LookupFormula(def.FormulaKey)
		if !ok {
			return nil, errors.UnknownFormula(def.Key, def.FormulaKey)
		}
		results = append(results, computeKPI(def, formula, current, prior, cfg))
	}
	return results, nil
}

func computeKPI(def schema.KpiDefinition, f Formula, current Datasets, prior *Datasets, cfg *config) KpiResult {
	result := KpiResult{
		Key:        def.Key,
		Label:      def.Label,
		Format:     f.Format,
		DownBetter: f.DownBetter,
		Change:     NotAvailable,
	}

	if missing := missingSource(f, current); missing != "" {
		cfg.Logger.Debug("kpi degraded",
			zap.String("kpi", def.Key), zap.String("source", missing))
		result.Value = Placeholder
		result.Degraded = true
		return result
	}

	value := f.Compute(current)
	result.RawValue = value
	result.Value = FormatValue(value, f.Format, cfg.CurrencySymbol)

	if prior != nil && missingSource(f, *prior) == "" {
		result.ChangeRaw = change(value, f.Compute(*prior), f.Format)
		result.Change = FormatChange(result.ChangeRaw, f.Format)
	}
	return result
}

// change is the point difference for percent formats and the relative
// change (in percent of |prior|) otherwise. A zero prior gives 0.
func change(current, prior float64, f Format) float64 {
	if f == PercentFormat {
		return current - prior
	}
	if prior == 0 {
		return 0
	}
	return 100 * (current - prior) / math.Abs(prior)
}

func missingSource(f Formula, d Datasets) string {
	for _, s := range f.Sources {
		if d.Missing(s) {
			return s
		}
	}
	return ""
}
