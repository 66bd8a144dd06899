// Package engine wires the full interception pipeline for a page: match
// the marketplace, attach the purchase guards, open a reflection gate per
// blocked action, and persist resolved decisions.
//
// One Engine serves many pages; each OpenPage call yields a Page tracking
// that page's state. A page holds at most one live gate: a new interception
// dismisses the previous gate before opening its own.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/impulsevault/engine/dom"
	"github.com/impulsevault/engine/extract"
	"github.com/impulsevault/engine/gate"
	"github.com/impulsevault/engine/intercept"
	"github.com/impulsevault/engine/marketplace"
	"github.com/impulsevault/engine/recorder"
	"github.com/impulsevault/engine/store"
)

// Config assembles an Engine.
type Config struct {
	Registry *marketplace.Registry
	Store    store.Store
	Gate     gate.Config
	Logger   *slog.Logger
}

// Engine is the per-process orchestrator.
type Engine struct {
	registry *marketplace.Registry
	store    store.Store
	recorder *recorder.Recorder
	gateCfg  gate.Config
	logger   *slog.Logger
}

// New builds an Engine. The recorder is created internally so every page
// shares one decision write path.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		registry: cfg.Registry,
		store:    cfg.Store,
		recorder: recorder.New(cfg.Store, logger),
		gateCfg:  cfg.Gate,
		logger:   logger,
	}
}

// Recorder exposes the shared decision write path (the relay reads through
// it too).
func (e *Engine) Recorder() *recorder.Recorder { return e.recorder }

// Page is the engine's state for one open page.
type Page struct {
	engine *Engine
	doc    *dom.Document
	cfg    marketplace.Config
	active bool

	mu   sync.Mutex
	gate *gate.Gate
}

// OpenPage matches the page against the marketplace registry and, on a
// match, attaches the purchase guards. Pages on unsupported hosts come back
// inactive and are never touched again.
func (e *Engine) OpenPage(ctx context.Context, doc *dom.Document) *Page {
	cfg := e.registry.Match(doc.Hostname())
	if cfg == nil {
		e.logger.Debug("engine: unsupported host", "host", doc.Hostname())
		return &Page{engine: e, doc: doc}
	}

	p := &Page{engine: e, doc: doc, cfg: *cfg, active: true}
	w := intercept.New(e.store, func(info extract.ProductInfo) {
		p.openGate(ctx, info)
	}, e.logger)
	w.Attach(ctx, doc, *cfg)

	e.logger.Info("engine: page opened",
		"host", doc.Hostname(), "marketplace", cfg.DomainFragment)
	return p
}

// openGate replaces any live gate with a fresh one for the intercepted
// product. Runs inside event dispatch; it must not touch the page tree.
func (p *Page) openGate(ctx context.Context, info extract.ProductInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gate != nil && !p.gate.Terminal() {
		p.gate.Dismiss()
	}

	e := p.engine
	sink := func(ctx context.Context, info extract.ProductInfo, reason string, wasPurchased bool) {
		if err := e.recorder.Record(ctx, info, reason, wasPurchased); err != nil {
			e.logger.Error("engine: persisting decision", "error", err)
		}
	}
	p.gate = gate.Open(e.gateCfg, info, sink, e.logger)
}

// Active reports whether the page matched a marketplace.
func (p *Page) Active() bool { return p.active }

// Marketplace returns the matched marketplace config (zero when inactive).
func (p *Page) Marketplace() marketplace.Config { return p.cfg }

// Gate returns the page's current gate, or nil before the first
// interception.
func (p *Page) Gate() *gate.Gate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gate
}

// Close dismisses any live gate. Call when the page goes away.
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gate != nil && !p.gate.Terminal() {
		p.gate.Dismiss()
	}
}
