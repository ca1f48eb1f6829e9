package dashboard

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spektr-org/kpideck/engine"
	"github.com/spektr-org/kpideck/internal/errors"
	"github.com/spektr-org/kpideck/loader"
	"github.com/spektr-org/kpideck/schema"
	"github.com/spektr-org/kpideck/source"
)

// ============================================================================
// DASHBOARD SERVICE — clientID → Bundle
// ============================================================================
// Pipeline:
//   1. Resolve + validate the client config (aborts on config errors)
//   2. Fetch + parse every extract concurrently
//   3. KPI engine + chart transformer over the same Datasets
//   4. Stamp the bundle with a load id and loader warnings
// ============================================================================

// BundleLoader produces a bundle for one client. Service is the production
// implementation; Navigator accepts anything satisfying it.
type BundleLoader interface {
	Load(ctx context.Context, clientID string) (*engine.Bundle, error)
}

// Service wires resolver, loader and engine together.
type Service struct {
	fetcher    source.Fetcher
	resolver   *schema.Resolver
	loader     *loader.Loader
	engineOpts []engine.Option
	loaderOpts []loader.Option
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for the service and the components it builds.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEngineOptions passes options through to engine.Evaluate.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithLoaderOptions passes options through to loader.New.
func WithLoaderOptions(opts ...loader.Option) Option {
	return func(s *Service) {
		s.loaderOpts = append(s.loaderOpts, opts...)
	}
}

// NewService creates a Service reading configs and extracts from f.
func NewService(f source.Fetcher, opts ...Option) *Service {
	s := &Service{fetcher: f, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	s.resolver = schema.NewResolver(f,
		schema.WithFormulaLookup(engine.HasFormula),
		schema.WithLogger(s.logger))
	s.loader = loader.New(f, append([]loader.Option{loader.WithLogger(s.logger)}, s.loaderOpts...)...)
	s.engineOpts = append([]engine.Option{engine.WithLogger(s.logger)}, s.engineOpts...)
	return s
}

// Load resolves, loads and evaluates one client.
func (s *Service) Load(ctx context.Context, clientID string) (*engine.Bundle, error) {
	loadID := uuid.NewString()
	log := s.logger.With(zap.String("client", clientID), zap.String("load_id", loadID))

	cfg, err := s.resolver.Resolve(ctx, clientID)
	if err != nil {
		log.Warn("config rejected", zap.String("code", errors.GetCode(err)), zap.Error(err))
		return nil, err
	}

	res, err := s.loader.Load(ctx, cfg)
	if err != nil {
		log.Warn("data load failed", zap.String("code", errors.GetCode(err)), zap.Error(err))
		return nil, err
	}

	bundle, err := engine.Evaluate(cfg, res.Current, res.Prior, s.engineOpts...)
	if err != nil {
		log.Error("evaluation failed", zap.Error(err))
		return nil, err
	}
	bundle.LoadID = loadID
	bundle.Warnings = res.Warnings

	log.Info("client loaded",
		zap.Int("kpis", len(bundle.KPIs)),
		zap.String("period", bundle.Period),
		zap.Strings("missing", bundle.MissingSources))
	return bundle, nil
}

// Resolve returns the validated config of a client without loading data.
func (s *Service) Resolve(ctx context.Context, clientID string) (*schema.ClientConfig, error) {
	return s.resolver.Resolve(ctx, clientID)
}

// Clients returns the client registry in display order.
func (s *Service) Clients(ctx context.Context) ([]schema.ClientSummary, error) {
	return schema.LoadRegistry(ctx, s.fetcher)
}
