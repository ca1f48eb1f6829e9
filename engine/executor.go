package engine

import (
	"go.uber.org/zap"

	"github.com/spektr-org/kpideck/schema"
)

// ============================================================================
// EXECUTOR — Config + Datasets → Bundle
// ============================================================================
// Entry point: Evaluate(cfg, current, prior, opts...)
//
// Pipeline:
//   1. Compute declared KPIs (declaration order)
//   2. Build one series per chart section in the layout
//   3. Derive the period label from charge post dates
//   4. Collect missing sources
//
// Both KPI and chart steps read the same Datasets; nothing is mutated.
// ============================================================================

// Evaluate runs the KPI engine and chart transformer over loaded datasets.
// prior may be nil. The returned Bundle has no LoadID or warnings; the
// caller owning the load fills those in.
func Evaluate(cfg *schema.ClientConfig, current Datasets, prior *Datasets, opts ...Option) (*Bundle, error) {
	o := applyOptions(opts)
	if cfg.Currency != "" {
		o.CurrencySymbol = cfg.Currency
	}

	kpis, err := computeKPIs(cfg.KPIs, current, prior, o)
	if err != nil {
		return nil, err
	}

	cols := current.columns()
	bundle := &Bundle{
		Config:         cfg,
		KPIs:           kpis,
		ChartData:      BuildCharts(cfg.Layout.Sections, current),
		Period:         DerivePeriod(current.Get(schema.SourceCharges), cols.PostDate, cols.DateLayout),
		MissingSources: current.MissingSources(),
	}

	o.Logger.Debug("client evaluated",
		zap.String("client", cfg.ClientID),
		zap.Int("kpis", len(bundle.KPIs)),
		zap.Int("series", len(bundle.ChartData)),
		zap.Strings("missing", bundle.MissingSources))

	return bundle, nil
}
