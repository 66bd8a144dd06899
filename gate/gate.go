// Package gate implements the reflection gate: the timed, justification-
// gated decision flow a shopper must pass before a purchase action may
// proceed.
//
// One Gate instance exists per interception event. It counts down, tracks
// the justification text, and unlocks the two decision actions only while
// the unlock predicate holds:
//
//	secondsLeft == 0 && len(trim(reason)) >= MinReasonLength
//
// The predicate is re-evaluated on every tick and every edit, not latched.
// Deleting text below the threshold after unlocking re-locks the gate.
// Resolution hands the decision to a sink (the recorder); dismissal persists
// nothing. Either way the timer stops deterministically: no tick fires after
// a terminal transition.
package gate

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/impulsevault/engine/extract"
)

// Phase is the gate's lifecycle position.
type Phase string

const (
	PhaseCounting  Phase = "counting"
	PhaseAwaiting  Phase = "awaiting_justification"
	PhaseUnlocked  Phase = "unlocked"
	PhasePurchased Phase = "resolved_purchased"
	PhaseSaved     Phase = "resolved_saved"
	PhaseDismissed Phase = "dismissed"
)

// ErrLocked is returned when a decision action fires while the gate is not
// unlocked (countdown running or justification too short).
type ErrLocked struct {
	SecondsLeft  int
	ReasonLength int
}

func (e *ErrLocked) Error() string {
	return "gate: locked (countdown or justification incomplete)"
}

// ErrTerminal is returned when an action fires on an already-closed gate.
type ErrTerminal struct{ Phase Phase }

func (e *ErrTerminal) Error() string { return "gate: already closed: " + string(e.Phase) }

// DecisionSink receives the resolved decision. Persistence failures are the
// sink's to log; the gate is torn down regardless.
type DecisionSink func(ctx context.Context, info extract.ProductInfo, reason string, wasPurchased bool)

// Config tunes the gate.
type Config struct {
	// CountdownSeconds is the forced reflection time. Default: 10.
	CountdownSeconds int `yaml:"countdown_seconds"`
	// MinReasonLength is the justification threshold in characters
	// (after trimming). Default: 10.
	MinReasonLength int `yaml:"min_reason_length"`
	// TickInterval is the wall-clock length of one countdown second.
	// Default: 1s. Tests shorten it; it is set in code, not from YAML.
	TickInterval time.Duration `yaml:"-"`
}

func (c *Config) applyDefaults() {
	if c.CountdownSeconds <= 0 {
		c.CountdownSeconds = 10
	}
	if c.MinReasonLength <= 0 {
		c.MinReasonLength = 10
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
}

// View is a renderable snapshot of the gate for whatever UI hosts it.
type View struct {
	Product        extract.ProductInfo
	Phase          Phase
	SecondsLeft    int
	ReasonLength   int
	ButtonsEnabled bool
}

// Gate is one open reflection gate.
type Gate struct {
	cfg    Config
	sink   DecisionSink
	logger *slog.Logger

	mu          sync.Mutex
	product     extract.ProductInfo
	reason      string
	secondsLeft int
	phase       Phase

	cancel context.CancelFunc
	done   chan struct{}
}

// Open starts a gate for the product and begins the countdown. The sink is
// invoked at most once, on resolution; never on dismissal.
func Open(cfg Config, product extract.ProductInfo, sink DecisionSink, logger *slog.Logger) *Gate {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	g := &Gate{
		cfg:         cfg,
		sink:        sink,
		logger:      logger,
		product:     product,
		secondsLeft: cfg.CountdownSeconds,
		phase:       PhaseCounting,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	go g.run(ctx)

	logger.Info("gate: opened",
		"product", product.ProductName,
		"price", product.Price,
		"website", product.Website,
		"countdown", cfg.CountdownSeconds)
	return g
}

// run drives the countdown. It exits as soon as the count reaches zero or
// the gate closes; after that no tick can fire.
func (g *Gate) run(ctx context.Context) {
	ticker := time.NewTicker(g.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if finished := g.tick(); finished {
				return
			}
		}
	}
}

// tick decrements the countdown and re-evaluates the phase. It reports true
// when ticking is no longer needed.
func (g *Gate) tick() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.terminalLocked() {
		return true
	}
	if g.secondsLeft > 0 {
		g.secondsLeft--
	}
	g.reevaluateLocked()
	return g.secondsLeft == 0
}

// SetReason updates the justification text and re-evaluates the unlock
// predicate. Called on every edit; a no-op once the gate is closed.
func (g *Gate) SetReason(text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.terminalLocked() {
		return
	}
	g.reason = text
	g.reevaluateLocked()
}

// reevaluateLocked applies the unlock predicate. Not a latch: it moves in
// both directions between awaiting and unlocked.
func (g *Gate) reevaluateLocked() {
	if g.terminalLocked() {
		return
	}
	if g.secondsLeft > 0 {
		g.phase = PhaseCounting
		return
	}
	if g.reasonLengthLocked() >= g.cfg.MinReasonLength {
		g.phase = PhaseUnlocked
	} else {
		g.phase = PhaseAwaiting
	}
}

func (g *Gate) reasonLengthLocked() int {
	return len(strings.TrimSpace(g.reason))
}

func (g *Gate) terminalLocked() bool {
	switch g.phase {
	case PhasePurchased, PhaseSaved, PhaseDismissed:
		return true
	}
	return false
}

// ContinuePurchase resolves the gate toward the purchase. Only legal while
// unlocked.
func (g *Gate) ContinuePurchase(ctx context.Context) error {
	return g.resolve(ctx, true)
}

// SaveInstead resolves the gate toward the savings redirect. Only legal
// while unlocked.
func (g *Gate) SaveInstead(ctx context.Context) error {
	return g.resolve(ctx, false)
}

func (g *Gate) resolve(ctx context.Context, wasPurchased bool) error {
	g.mu.Lock()
	if g.terminalLocked() {
		phase := g.phase
		g.mu.Unlock()
		return &ErrTerminal{Phase: phase}
	}
	if g.phase != PhaseUnlocked {
		err := &ErrLocked{SecondsLeft: g.secondsLeft, ReasonLength: g.reasonLengthLocked()}
		g.mu.Unlock()
		return err
	}

	if wasPurchased {
		g.phase = PhasePurchased
	} else {
		g.phase = PhaseSaved
	}
	product := g.product
	reason := strings.TrimSpace(g.reason)
	g.closeLocked()
	g.mu.Unlock()

	g.logger.Info("gate: resolved",
		"product", product.ProductName, "purchased", wasPurchased)

	// Hand off outside the lock. The sink owns persistence failures; the
	// gate is gone either way.
	if g.sink != nil {
		g.sink(ctx, product, reason, wasPurchased)
	}
	return nil
}

// Dismiss closes the gate without persisting anything. Legal from any
// non-terminal state; dismissing twice is a no-op.
func (g *Gate) Dismiss() {
	g.mu.Lock()
	if g.terminalLocked() {
		g.mu.Unlock()
		return
	}
	g.phase = PhaseDismissed
	g.closeLocked()
	g.mu.Unlock()

	g.logger.Info("gate: dismissed", "product", g.product.ProductName)
}

// closeLocked cancels the timer and signals Done. Caller holds g.mu and has
// already set a terminal phase.
func (g *Gate) closeLocked() {
	g.cancel()
	close(g.done)
}

// Done is closed when the gate reaches a terminal state.
func (g *Gate) Done() <-chan struct{} { return g.done }

// Terminal reports whether the gate is closed.
func (g *Gate) Terminal() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.terminalLocked()
}

// View snapshots the gate for rendering.
func (g *Gate) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return View{
		Product:        g.product,
		Phase:          g.phase,
		SecondsLeft:    g.secondsLeft,
		ReasonLength:   g.reasonLengthLocked(),
		ButtonsEnabled: g.phase == PhaseUnlocked,
	}
}
