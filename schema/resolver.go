package schema

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"path"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/kpideck/internal/errors"
	"github.com/spektr-org/kpideck/source"
)

// ============================================================================
// RESOLVER — clientId → validated ClientConfig
// ============================================================================
// Fetches configs/<id>.json, falling back to .yaml / .yml, decodes it and
// validates it. An invalid config aborts the load; there is no partial
// recovery.
// ============================================================================

// Resolver loads and validates client configs.
type Resolver struct {
	fetcher      source.Fetcher
	knownFormula func(string) bool
	logger       *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFormulaLookup sets the predicate used to validate kpis[].formulaKey.
func WithFormulaLookup(fn func(string) bool) ResolverOption {
	return func(r *Resolver) {
		r.knownFormula = fn
	}
}

// WithLogger sets the resolver logger.
func WithLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates a Resolver reading from f.
func NewResolver(f source.Fetcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		fetcher: f,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fetches, decodes and validates the config for clientID.
func (r *Resolver) Resolve(ctx context.Context, clientID string) (*ClientConfig, error) {
	if !source.ValidClientID(clientID) {
		return nil, errors.ConfigNotFound(clientID, nil)
	}

	var (
		data []byte
		name string
	)
	for _, candidate := range source.ConfigPaths(clientID) {
		b, err := r.fetcher.Fetch(ctx, candidate)
		if err == nil {
			data, name = b, candidate
			break
		}
		if !stderrors.Is(err, source.ErrNotFound) {
			return nil, errors.ConfigFetchFailed(clientID, candidate, err)
		}
	}
	if name == "" {
		return nil, errors.ConfigNotFound(clientID, source.ErrNotFound)
	}

	cfg, err := Decode(name, data)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg, clientID, r.knownFormula); err != nil {
		r.logger.Warn("config rejected",
			zap.String("client", clientID),
			zap.String("field", errors.GetField(err)),
			zap.Error(err))
		return nil, err
	}

	r.logger.Debug("config resolved",
		zap.String("client", clientID),
		zap.String("document", name),
		zap.Int("kpis", len(cfg.KPIs)),
		zap.Int("sources", len(cfg.DataSources)))
	return cfg, nil
}

// Decode parses a config document; the format follows the file extension.
func Decode(name string, data []byte) (*ClientConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.ConfigInvalid("", name+" is empty")
	}

	cfg := &ClientConfig{}
	switch path.Ext(name) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.ConfigInvalid("", fmt.Sprintf("malformed YAML in %s: %v", name, err))
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			var typeErr *json.UnmarshalTypeError
			if stderrors.As(err, &typeErr) {
				return nil, errors.ConfigInvalid(typeErr.Field, fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value))
			}
			return nil, errors.ConfigInvalid("", fmt.Sprintf("malformed JSON in %s: %v", name, err))
		}
	}
	return cfg, nil
}
