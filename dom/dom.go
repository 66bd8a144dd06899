// Package dom models the page a content engine runs against: a parsed HTML
// tree with selector queries, per-element event bindings, and structural
// mutation notifications.
//
// It is the in-process stand-in for a live browser page. The engine treats
// it as an external event source: clicks and submits arrive via Dispatch,
// structural changes via ApplyHTML/Remove, and the engine reacts through
// bindings and mutation subscriptions. All dispatch within one Document is
// serialized, mirroring a single-threaded page event loop; the engine never
// sees two callbacks for the same page run concurrently.
package dom

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a virtual page: parsed HTML plus the engine-visible state
// layered on top of it (bindings, markers, mutation subscribers).
type Document struct {
	mu       sync.Mutex
	root     *html.Node
	body     *html.Node
	hostname string
	title    string

	// bindings are keyed by element identity, then event type, then a
	// caller-chosen binding name. Re-binding the same name replaces the
	// handler, so a rebind scan can never stack duplicates.
	bindings map[*html.Node]map[string]map[string]Handler

	// marks are boolean markers per element identity (e.g. "monitored").
	marks map[*html.Node]map[string]bool

	// subscribers are notified after every structural mutation.
	subscribers []func()

	// dispatchMu serializes event dispatch and mutation notification,
	// the Go analogue of the page event loop.
	dispatchMu sync.Mutex
}

// Element is a handle to a node in a Document. Identity is node identity:
// two handles to the same node compare equal via Same.
type Element struct {
	doc *Document
	n   *html.Node
}

// Parse builds a Document from raw HTML. hostname is the page's host as a
// marketplace registry key; it is not derived from the markup.
func Parse(hostname string, rawHTML string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}

	d := &Document{
		root:     root,
		hostname: hostname,
		bindings: make(map[*html.Node]map[string]map[string]Handler),
		marks:    make(map[*html.Node]map[string]bool),
	}
	d.body = d.findFirst(atom.Body)
	d.title = d.findTitle()
	return d, nil
}

// Hostname returns the page host.
func (d *Document) Hostname() string { return d.hostname }

// Title returns the page <title> text, trimmed.
func (d *Document) Title() string { return d.title }

// Same reports whether two handles point at the same underlying node.
func (e Element) Same(other Element) bool { return e.n == other.n }

// Tag returns the element's tag name (lowercase).
func (e Element) Tag() string { return e.n.Data }

// Attr returns the value of an attribute, or "" when absent.
func (e Element) Attr(key string) string { return getAttr(e.n, key) }

// TextContent returns the concatenated visible text of the subtree, trimmed,
// skipping script/style/noscript.
func (e Element) TextContent() string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.n)
	return sb.String()
}

// Mark sets a boolean marker on the element, keyed by element identity.
func (e Element) Mark(key string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	m := e.doc.marks[e.n]
	if m == nil {
		m = make(map[string]bool)
		e.doc.marks[e.n] = m
	}
	m[key] = true
}

// Marked reports whether a marker is set on the element.
func (e Element) Marked(key string) bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.doc.marks[e.n][key]
}

func (d *Document) findFirst(a atom.Atom) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == a {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return found
}

func (d *Document) findTitle() string {
	n := d.findFirst(atom.Title)
	if n == nil || n.FirstChild == nil {
		return ""
	}
	return strings.TrimSpace(n.FirstChild.Data)
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}
