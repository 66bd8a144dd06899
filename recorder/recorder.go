// Package recorder persists resolved gate decisions and keeps the rolling
// counters in sync.
//
// Record is the single write path for purchase records and for counter
// increments; the weekly/monthly resets belong to the scheduler collaborator
// and never happen here. The read-modify-write against the store is one
// logical sequence per decision: within a page context it is serialized by
// the dispatch loop, across page contexts lost updates are possible and
// accepted (there is no cross-context lock to take).
package recorder

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/impulsevault/engine/extract"
	"github.com/impulsevault/engine/idgen"
	"github.com/impulsevault/engine/store"
)

// Recorder is the decision write path.
type Recorder struct {
	store    store.Store
	logger   *slog.Logger
	newID    idgen.Generator
	now      func() time.Time
	sanitize *bluemonday.Policy
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithIDGenerator overrides the record ID generator (tests).
func WithIDGenerator(gen idgen.Generator) Option {
	return func(r *Recorder) { r.newID = gen }
}

// WithClock overrides the timestamp source (tests).
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// New creates a Recorder writing through the given store.
func New(s store.Store, logger *slog.Logger, opts ...Option) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		store:  s,
		logger: logger,
		newID:  idgen.Default,
		now:    time.Now,
		// Reasons are free text later rendered by the dashboard; strip
		// any markup before it reaches storage.
		sanitize: bluemonday.StrictPolicy(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Record persists one resolved decision: a new PurchaseRecord is prepended
// to the list and, on the saved branch, the impulse/money counters are
// incremented by 1 and the product price. The purchased branch leaves stats
// untouched.
//
// Fire-and-forget from the gate's perspective: the returned error exists for
// callers that want to log it, but by the time Record runs the gate has
// already closed and nothing user-visible depends on the outcome.
func (r *Recorder) Record(ctx context.Context, info extract.ProductInfo, reason string, wasPurchased bool) error {
	cur, err := r.store.Get(ctx, store.KeyPurchaseRecords, store.KeyUserStats)
	if err != nil {
		return fmt.Errorf("recorder: read store: %w", err)
	}

	rec := store.PurchaseRecord{
		ID:           r.newID(),
		Date:         r.now().UTC(),
		ProductName:  info.ProductName,
		Price:        info.Price,
		Reason:       r.cleanReason(reason),
		WasPurchased: wasPurchased,
		WasSaved:     !wasPurchased,
		Website:      info.Website,
	}

	var records []store.PurchaseRecord
	if cur.PurchaseRecords != nil {
		records = *cur.PurchaseRecords
	}
	// Newest first. The list grows without bound; pruning is the
	// dashboard's call, not ours.
	records = append([]store.PurchaseRecord{rec}, records...)

	var stats store.UserStats
	if cur.UserStats != nil {
		stats = *cur.UserStats
	}
	if !wasPurchased {
		stats.TotalImpulsesStopped++
		stats.TotalMoneySaved += info.Price
		stats.WeeklyImpulsesStopped++
		stats.WeeklyMoneySaved += info.Price
		stats.MonthlyImpulsesStopped++
		stats.MonthlyMoneySaved += info.Price
	}

	if err := r.store.Set(ctx, store.Record{
		PurchaseRecords: &records,
		UserStats:       &stats,
	}); err != nil {
		return fmt.Errorf("recorder: write store: %w", err)
	}

	r.logger.Info("recorder: decision persisted",
		"id", rec.ID,
		"website", rec.Website,
		"price", rec.Price,
		"saved", rec.WasSaved)
	return nil
}

// cleanReason strips markup from a justification, undoes the entity
// escaping the sanitizer applies to plain text, and collapses the
// whitespace runs left where tags were removed.
func (r *Recorder) cleanReason(reason string) string {
	s := html.UnescapeString(r.sanitize.Sanitize(reason))
	return strings.Join(strings.Fields(s), " ")
}

// Stats returns the current counters (zeroed when never written).
func (r *Recorder) Stats(ctx context.Context) (store.UserStats, error) {
	cur, err := r.store.Get(ctx, store.KeyUserStats)
	if err != nil {
		return store.UserStats{}, fmt.Errorf("recorder: read stats: %w", err)
	}
	if cur.UserStats == nil {
		return store.UserStats{}, nil
	}
	return *cur.UserStats, nil
}

// Records returns the decision list, newest first.
func (r *Recorder) Records(ctx context.Context) ([]store.PurchaseRecord, error) {
	cur, err := r.store.Get(ctx, store.KeyPurchaseRecords)
	if err != nil {
		return nil, fmt.Errorf("recorder: read records: %w", err)
	}
	if cur.PurchaseRecords == nil {
		return nil, nil
	}
	return *cur.PurchaseRecords, nil
}
