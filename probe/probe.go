// Package probe loads a live product page in headless Chrome and runs the
// marketplace match and product extraction against its real markup. It is
// the field-validation tool for selector configs: when a marketplace
// redesigns, the probe shows what the engine would extract before any
// shopper hits the broken selectors.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/impulsevault/engine/dom"
	"github.com/impulsevault/engine/extract"
	"github.com/impulsevault/engine/marketplace"
)

// Config configures the probe browser.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local headless Chrome.
	RemoteURL string

	// Timeout bounds navigation and load per page. Default: 30s.
	Timeout time.Duration

	// Stealth applies the anti-detection page setup. Default on; storefronts
	// serve bot-detection pages to bare automation.
	Stealth bool

	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Report is the outcome of probing one page.
type Report struct {
	URL         string               `json:"url"`
	Hostname    string               `json:"hostname"`
	Marketplace string               `json:"marketplace,omitempty"`
	Product     *extract.ProductInfo `json:"product,omitempty"`
}

// Probe owns one browser for a sequence of page inspections.
type Probe struct {
	cfg Config

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// New creates a Probe. Call Start before Snapshot or Inspect.
func New(cfg Config) *Probe {
	cfg.applyDefaults()
	return &Probe{cfg: cfg}
}

// Start launches Chrome, or connects to the configured remote instance.
func (p *Probe) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	wsURL := p.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("probe: launch: %w", err)
		}
		p.lnch = l
		wsURL = u
		p.cfg.Logger.Info("probe: launched chrome", "url", wsURL)
	} else {
		p.cfg.Logger.Info("probe: connecting to remote chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("probe: connect: %w", err)
	}
	p.browser = b
	return nil
}

// Close shuts the browser down.
func (p *Probe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil {
		if err := p.browser.Close(); err != nil {
			p.cfg.Logger.Warn("probe: closing browser", "error", err)
		}
		p.browser = nil
	}
	if p.lnch != nil {
		p.lnch.Kill()
		p.lnch = nil
	}
	return nil
}

// Snapshot navigates to the page, waits for load, and freezes its markup
// into a Document the engine can run against.
func (p *Probe) Snapshot(ctx context.Context, pageURL string) (*dom.Document, error) {
	p.mu.Lock()
	b := p.browser
	p.mu.Unlock()
	if b == nil {
		return nil, fmt.Errorf("probe: not started")
	}

	hostname, err := hostnameOf(pageURL)
	if err != nil {
		return nil, err
	}

	var page *rod.Page
	if p.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("probe: create tab: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("probe: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		p.cfg.Logger.Warn("probe: wait load timeout", "url", pageURL, "error", err)
	}

	res, err := page.Context(navCtx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("probe: read markup: %w", err)
	}

	return dom.Parse(hostname, res.Value.Str())
}

// Inspect snapshots the page and reports the marketplace match and the
// product extraction, exactly as the engine would see them.
func (p *Probe) Inspect(ctx context.Context, pageURL string, registry *marketplace.Registry) (*Report, error) {
	doc, err := p.Snapshot(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	report := &Report{URL: pageURL, Hostname: doc.Hostname()}
	cfg := registry.Match(doc.Hostname())
	if cfg == nil {
		p.cfg.Logger.Info("probe: no marketplace match", "host", doc.Hostname())
		return report, nil
	}

	report.Marketplace = cfg.DomainFragment
	info := extract.Extract(cfg, doc)
	report.Product = &info

	p.cfg.Logger.Info("probe: extracted",
		"host", doc.Hostname(),
		"marketplace", cfg.DomainFragment,
		"product", info.ProductName,
		"price", info.Price)
	return report, nil
}

func hostnameOf(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("probe: parse url %q: %w", pageURL, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("probe: url %q has no host", pageURL)
	}
	return u.Hostname(), nil
}
