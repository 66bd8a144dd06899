// Package intercept binds purchase-action guards onto a page and decides,
// per event, whether the native action may proceed.
//
// A Watcher scans the page for the marketplace's buy buttons and for forms
// that look like checkout forms, binds its handler to each, and re-runs the
// scan after every structural mutation. Binding is idempotent two ways: a
// per-element marker skips already-monitored elements, and the named binding
// replaces rather than stacks if a rescan reaches one anyway. A given
// element never ends up with two guards.
//
// The kill switch is read per event, not cached: flipping it off lets the
// very next click through without a rebind pass.
package intercept

import (
	"context"
	"log/slog"
	"strings"

	"github.com/impulsevault/engine/dom"
	"github.com/impulsevault/engine/extract"
	"github.com/impulsevault/engine/marketplace"
	"github.com/impulsevault/engine/store"
)

const (
	markMonitored = "monitored"
	bindingName   = "purchase-guard"
)

// formKeywords flag a form as purchase-related when any of them appears in
// its action, id or class.
var formKeywords = []string{"checkout", "buy", "add-to-cart"}

// InterceptFunc receives the product snapshot for a blocked purchase action.
type InterceptFunc func(info extract.ProductInfo)

// Watcher guards one or more pages against un-reflected purchases.
type Watcher struct {
	store       store.Store
	onIntercept InterceptFunc
	logger      *slog.Logger
}

// New creates a Watcher. onIntercept fires once per blocked action.
func New(s store.Store, onIntercept InterceptFunc, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{store: s, onIntercept: onIntercept, logger: logger}
}

// Attach runs the initial bind scan on the page and subscribes to mutations
// so late-rendered buttons get guarded too. Attaching the same Watcher to
// the same page twice adds no second guard to any element.
func (w *Watcher) Attach(ctx context.Context, doc *dom.Document, cfg marketplace.Config) {
	w.scan(ctx, doc, cfg)
	doc.OnMutation(func() {
		w.scan(ctx, doc, cfg)
	})
	w.logger.Info("intercept: attached",
		"host", doc.Hostname(), "marketplace", cfg.DomainFragment)
}

// scan binds the guard to every current buy button and checkout form.
func (w *Watcher) scan(ctx context.Context, doc *dom.Document, cfg marketplace.Config) {
	h := w.handler(ctx, doc, cfg)

	for _, el := range doc.QuerySelectorAll(cfg.Selectors.BuyButton) {
		w.bind(el, "click", h)
	}
	for _, form := range doc.QuerySelectorAll("form") {
		if isCheckoutForm(form) {
			w.bind(form, "submit", h)
		}
	}
}

func (w *Watcher) bind(el dom.Element, eventType string, h dom.Handler) {
	if el.Marked(markMonitored) {
		return
	}
	el.Mark(markMonitored)
	el.On(eventType, bindingName, h)
}

// handler is the guard itself: consult the kill switch, and either let the
// native action through untouched or block it and surface the product.
func (w *Watcher) handler(ctx context.Context, doc *dom.Document, cfg marketplace.Config) dom.Handler {
	return func(ev *dom.Event) {
		if !w.enabled(ctx) {
			w.logger.Debug("intercept: disabled, passing through",
				"host", doc.Hostname(), "event", ev.Type)
			return
		}

		ev.PreventDefault()
		ev.StopPropagation()

		info := extract.Extract(&cfg, doc)
		w.logger.Info("intercept: purchase action blocked",
			"host", doc.Hostname(),
			"event", ev.Type,
			"product", info.ProductName,
			"price", info.Price)
		if w.onIntercept != nil {
			w.onIntercept(info)
		}
	}
}

// enabled reads the kill switch. Absent or unreadable means enabled: a
// broken store must never silently disable the guard.
func (w *Watcher) enabled(ctx context.Context) bool {
	rec, err := w.store.Get(ctx, store.KeyExtensionEnabled)
	if err != nil {
		w.logger.Warn("intercept: reading enabled flag", "error", err)
		return true
	}
	if rec.ExtensionEnabled == nil {
		return true
	}
	return *rec.ExtensionEnabled
}

// isCheckoutForm matches the purchase-form heuristic: any keyword in the
// form's action, id or class.
func isCheckoutForm(form dom.Element) bool {
	hay := strings.ToLower(form.Attr("action") + " " + form.Attr("id") + " " + form.Attr("class"))
	for _, kw := range formKeywords {
		if strings.Contains(hay, kw) {
			return true
		}
	}
	return false
}
