package dashboard

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spektr-org/kpideck/engine"
	"github.com/spektr-org/kpideck/internal/errors"
)

// Navigator tracks the client currently on screen. Each Navigate cancels the
// load started by the previous one; a load that completes after it was
// superseded is discarded and reported as LOAD_SUPERSEDED.
type Navigator struct {
	loader BundleLoader
	logger *zap.Logger

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	current *engine.Bundle
}

// NewNavigator creates a Navigator over l.
func NewNavigator(l BundleLoader, logger *zap.Logger) *Navigator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Navigator{loader: l, logger: logger}
}

// Navigate loads clientID, invalidating any in-flight navigation.
func (n *Navigator) Navigate(ctx context.Context, clientID string) (*engine.Bundle, error) {
	return n.Begin(ctx, clientID).Wait()
}

// Pending is a navigation that has claimed its place in line but whose load
// has not run yet.
type Pending struct {
	nav      *Navigator
	clientID string
	gen      uint64
	ctx      context.Context
	cancel   context.CancelFunc
}

// Begin supersedes every earlier navigation immediately and returns the new
// one. Callers that start loads concurrently call Begin in input order and
// Wait from their own goroutines.
func (n *Navigator) Begin(ctx context.Context, clientID string) *Pending {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		n.cancel()
	}
	n.gen++
	loadCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	return &Pending{nav: n, clientID: clientID, gen: n.gen, ctx: loadCtx, cancel: cancel}
}

// Wait runs the load. The bundle becomes current only if no navigation
// began after this one; otherwise Wait returns LOAD_SUPERSEDED.
func (p *Pending) Wait() (*engine.Bundle, error) {
	n := p.nav
	n.mu.Lock()
	stale := p.gen != n.gen
	n.mu.Unlock()
	if stale {
		p.cancel()
		return nil, errors.LoadSuperseded(p.clientID)
	}

	bundle, err := n.loader.Load(p.ctx, p.clientID)

	n.mu.Lock()
	defer n.mu.Unlock()
	p.cancel()

	if p.gen != n.gen {
		n.logger.Debug("discarding superseded load", zap.String("client", p.clientID))
		return nil, errors.LoadSuperseded(p.clientID)
	}
	n.cancel = nil
	if err != nil {
		return nil, err
	}
	n.current = bundle
	return bundle, nil
}

// Current returns the most recently accepted bundle, or nil.
func (n *Navigator) Current() *engine.Bundle {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Close cancels any in-flight navigation.
func (n *Navigator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.gen++
}
