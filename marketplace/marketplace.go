// Package marketplace holds the registry of retailer configurations: which
// hostnames the engine instruments and which CSS selectors locate the product
// name, price, and buy action on each of them.
//
// The registry is immutable once built. Matching is a pure function over
// (hostname, table): the first config whose domain fragment is a substring of
// the hostname wins, so more specific entries must be registered first.
package marketplace

import "strings"

// Selectors are CSS selector lists (comma-separated alternatives) for the
// three page features the engine cares about.
type Selectors struct {
	ProductName string `yaml:"product_name"`
	Price       string `yaml:"price"`
	BuyButton   string `yaml:"buy_button"`
}

// Config describes one marketplace: a hostname fragment and its selectors.
type Config struct {
	// DomainFragment matches any hostname that contains it
	// ("amazon" matches amazon.com, amazon.co.uk, smile.amazon.com).
	DomainFragment string    `yaml:"domain"`
	Selectors      Selectors `yaml:"selectors"`
}

// Registry is an ordered, immutable list of marketplace configs.
type Registry struct {
	configs []Config
}

// NewRegistry builds a registry from an ordered config list.
// An empty list is valid: Match never succeeds and no page is instrumented.
func NewRegistry(configs []Config) *Registry {
	cp := make([]Config, len(configs))
	copy(cp, configs)
	return &Registry{configs: cp}
}

// Match returns the first config whose DomainFragment is a substring of
// hostname, or nil when the page is not a known marketplace. A nil result is
// a no-op signal, not an error: the engine leaves unmatched pages alone.
func (r *Registry) Match(hostname string) *Config {
	for i := range r.configs {
		if contains(hostname, r.configs[i].DomainFragment) {
			cfg := r.configs[i]
			return &cfg
		}
	}
	return nil
}

// Len reports the number of registered configs.
func (r *Registry) Len() int { return len(r.configs) }

func contains(hostname, fragment string) bool {
	return fragment != "" && strings.Contains(hostname, fragment)
}
