// Package extract turns a live product page into a normalized ProductInfo.
//
// Extraction is best-effort: every miss degrades to a fallback
// (page title, sentinel price) instead of an error, because the reflection
// gate must always be able to open once an interception fires. Brittle
// retailer markup interrupts the user with a placeholder, never silently
// lets the purchase through.
package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/impulsevault/engine/dom"
	"github.com/impulsevault/engine/marketplace"
)

// SentinelPrice is recorded when no price can be parsed from the page.
// Non-zero so the gate's savings framing still renders something plausible.
const SentinelPrice = 99.99

// FallbackName is used when neither selectors nor the page title yield one.
const FallbackName = "Unknown Product"

// ProductInfo is a normalized view of the product under purchase. It is
// built fresh per interception and never persisted directly.
type ProductInfo struct {
	ProductName string  `json:"productName"`
	Price       float64 `json:"price"`
	Website     string  `json:"website"`
}

// priceRe matches an optional currency marker followed by a numeric group.
// Grouping separators are stripped before parsing.
var priceRe = regexp.MustCompile(`(\$|£|€|₹|Rs\.)?\s*([0-9][0-9,.]*)`)

// Extract reads the document through the marketplace selectors and returns
// a ProductInfo. It never fails: selector misses fall back to the page
// title (cut at the first '|', where retailers append their brand) and to
// SentinelPrice.
func Extract(cfg *marketplace.Config, doc *dom.Document) ProductInfo {
	info := ProductInfo{
		ProductName: titleFallback(doc.Title()),
		Price:       SentinelPrice,
		Website:     doc.Hostname(),
	}

	if el := doc.QuerySelector(cfg.Selectors.ProductName); el.Valid() {
		if name := strings.TrimSpace(el.TextContent()); name != "" {
			info.ProductName = name
		}
	}

	if el := doc.QuerySelector(cfg.Selectors.Price); el.Valid() {
		if price, ok := ParsePrice(el.TextContent()); ok {
			info.Price = price
		}
	}

	return info
}

// ParsePrice extracts a numeric price from free-form text. It accepts the
// currency markers $, £, €, ₹ and Rs., strips grouping commas, and rounds
// to two decimals. ok is false when no numeric group is present.
func ParsePrice(text string) (price float64, ok bool) {
	m := priceRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, false
	}

	num := strings.ReplaceAll(m[2], ",", "")
	// A trailing separator ("1,234." → "1234.") still parses below.
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return math.Round(v*100) / 100, true
}

func titleFallback(title string) string {
	name := title
	if i := strings.IndexByte(title, '|'); i >= 0 {
		name = title[:i]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return FallbackName
	}
	return name
}
