package engine

import "go.uber.org/zap"

// ============================================================================
// ENGINE OPTIONS — Functional options for ComputeKPIs() / Evaluate()
// ============================================================================

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	CurrencySymbol string // prefix for currency-formatted KPIs
	Logger         *zap.Logger
}

// WithCurrencySymbol sets the symbol prefixed to currency values (e.g., "$", "€").
// An empty symbol keeps the default.
func WithCurrencySymbol(symbol string) Option {
	return func(c *config) {
		if symbol != "" {
			c.CurrencySymbol = symbol
		}
	}
}

// WithLogger routes engine diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		CurrencySymbol: "$",
		Logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
