package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/impulsevault/engine/dom"
	"github.com/impulsevault/engine/gate"
	"github.com/impulsevault/engine/marketplace"
	"github.com/impulsevault/engine/store"
)

const productPage = `<!DOCTYPE html>
<html>
<head><title>Espresso Machine | MegaShop</title></head>
<body>
  <h1 id="productTitle">Espresso Machine Deluxe</h1>
  <span class="a-price-whole">$249.99</span>
  <input id="buy-now-button" type="submit" value="Buy Now">
</body>
</html>`

var testRegistry = marketplace.NewRegistry([]marketplace.Config{{
	DomainFragment: "megashop",
	Selectors: marketplace.Selectors{
		ProductName: "#productTitle",
		Price:       ".a-price-whole",
		BuyButton:   "#buy-now-button",
	},
}})

func testEngine(s store.Store) *Engine {
	return New(Config{
		Registry: testRegistry,
		Store:    s,
		Gate: gate.Config{
			CountdownSeconds: 2,
			MinReasonLength:  10,
			TickInterval:     5 * time.Millisecond,
		},
	})
}

func openTestPage(t *testing.T, e *Engine) *Page {
	t.Helper()
	doc, err := dom.Parse("www.megashop.com", productPage)
	if err != nil {
		t.Fatal(err)
	}
	return e.OpenPage(context.Background(), doc)
}

func waitForPhase(t *testing.T, g *gate.Gate, want gate.Phase) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if g.View().Phase == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("gate never reached %s, stuck at %s", want, g.View().Phase)
}

func clickBuy(t *testing.T, p *Page) bool {
	t.Helper()
	btn := p.doc.QuerySelector("#buy-now-button")
	if !btn.Valid() {
		t.Fatal("buy button not found")
	}
	return btn.Click()
}

func TestFullSaveFlow(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	e := testEngine(s)
	p := openTestPage(t, e)

	if !p.Active() {
		t.Fatal("page must match the marketplace")
	}
	if clickBuy(t, p) {
		t.Fatal("buy click must be blocked")
	}

	g := p.Gate()
	if g == nil {
		t.Fatal("interception must open a gate")
	}
	v := g.View()
	if v.Phase != gate.PhaseCounting || v.SecondsLeft == 0 || v.SecondsLeft > 2 {
		t.Fatalf("fresh gate: %+v", v)
	}
	if v.Product.ProductName != "Espresso Machine Deluxe" || v.Product.Price != 249.99 {
		t.Fatalf("extracted product: %+v", v.Product)
	}

	g.SetReason("mine broke last week")
	waitForPhase(t, g, gate.PhaseUnlocked)
	if err := g.SaveInstead(ctx); err != nil {
		t.Fatal(err)
	}

	records, err := e.Recorder().Records(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || !records[0].WasSaved {
		t.Fatalf("records: %+v", records)
	}
	stats, err := e.Recorder().Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalImpulsesStopped != 1 || stats.TotalMoneySaved != 249.99 {
		t.Fatalf("stats: %+v", stats)
	}
}

func TestShortReasonStaysLocked(t *testing.T) {
	s := store.NewMemory()
	e := testEngine(s)
	p := openTestPage(t, e)

	clickBuy(t, p)
	g := p.Gate()
	g.SetReason("short")
	waitForPhase(t, g, gate.PhaseAwaiting)

	err := g.ContinuePurchase(context.Background())
	var locked *gate.ErrLocked
	if !errors.As(err, &locked) {
		t.Fatalf("five characters must not unlock, got %v", err)
	}
	if g.View().ButtonsEnabled {
		t.Fatal("buttons must stay disabled")
	}
}

func TestSecondInterceptionReplacesGate(t *testing.T) {
	s := store.NewMemory()
	e := testEngine(s)
	p := openTestPage(t, e)

	clickBuy(t, p)
	first := p.Gate()

	clickBuy(t, p)
	second := p.Gate()

	if first == second {
		t.Fatal("second interception must open a fresh gate")
	}
	if !first.Terminal() || first.View().Phase != gate.PhaseDismissed {
		t.Fatalf("first gate must be dismissed, phase %s", first.View().Phase)
	}
	if second.Terminal() {
		t.Fatal("second gate must be live")
	}
}

func TestDisabledPassthrough(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	if err := s.Set(ctx, store.Record{ExtensionEnabled: store.Bool(false)}); err != nil {
		t.Fatal(err)
	}

	e := testEngine(s)
	p := openTestPage(t, e)

	if !clickBuy(t, p) {
		t.Fatal("disabled engine must let the click through")
	}
	if p.Gate() != nil {
		t.Fatal("disabled engine must not open a gate")
	}
}

func TestUnsupportedHostInactive(t *testing.T) {
	s := store.NewMemory()
	e := testEngine(s)

	doc, err := dom.Parse("www.unrelated.org", productPage)
	if err != nil {
		t.Fatal(err)
	}
	p := e.OpenPage(context.Background(), doc)

	if p.Active() {
		t.Fatal("unsupported host must stay inactive")
	}
	// Nothing was bound, so the native click proceeds.
	if !doc.QuerySelector("#buy-now-button").Click() {
		t.Fatal("inactive page must not guard anything")
	}
}

func TestCloseDismissesGate(t *testing.T) {
	s := store.NewMemory()
	e := testEngine(s)
	p := openTestPage(t, e)

	clickBuy(t, p)
	g := p.Gate()
	p.Close()

	if !g.Terminal() {
		t.Fatal("closing the page must dismiss its gate")
	}
}
