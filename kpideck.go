// Package kpideck builds client KPI dashboards from flat-file extracts.
//
// Usage:
//
//	import "github.com/spektr-org/kpideck/dashboard"
//
//	svc := dashboard.NewService(source.New("./clients"),
//	    dashboard.WithLogger(logger),
//	    dashboard.WithEngineOptions(engine.WithCurrencySymbol("$")),
//	)
//	bundle, err := svc.Load(ctx, "acme")
//
// A client config (configs/<clientId>.json or .yaml) names the extracts to
// load, the KPIs to compute and the chart sections to build. The engine
// package evaluates a closed set of formulas over the parsed extracts and
// returns render-ready values; render, server and cmd/kpideck present them.
//
// A missing extract degrades only the KPIs and charts that read it.
package kpideck
