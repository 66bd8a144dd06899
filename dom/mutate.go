package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// OnMutation subscribes fn to structural changes (node insertion/removal
// anywhere under the body). fn runs synchronously after the mutation is
// applied, on the mutating goroutine, serialized with event dispatch.
func (d *Document) OnMutation(fn func()) {
	d.mu.Lock()
	d.subscribers = append(d.subscribers, fn)
	d.mu.Unlock()
}

// AppendHTML parses a fragment and appends its nodes as children of the
// element, then notifies mutation subscribers. This is how tests and the
// live-page bridge model dynamically injected content.
func (e Element) AppendHTML(fragment string) error {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     e.n.Data,
		DataAtom: e.n.DataAtom,
	})
	if err != nil {
		return fmt.Errorf("dom: parse fragment: %w", err)
	}

	d := e.doc
	d.dispatchMu.Lock()
	for _, n := range nodes {
		e.n.AppendChild(n)
	}
	d.dispatchMu.Unlock()

	d.notifyMutation()
	return nil
}

// AppendToBody appends a fragment to the document body.
func (d *Document) AppendToBody(fragment string) error {
	if d.body == nil {
		return fmt.Errorf("dom: document has no body")
	}
	return (Element{doc: d, n: d.body}).AppendHTML(fragment)
}

// Remove detaches the element from the tree, drops bindings and markers for
// it and everything under it, and notifies mutation subscribers. Removing an
// already-detached element is a no-op.
func (e Element) Remove() {
	d := e.doc

	d.dispatchMu.Lock()
	attached := e.n.Parent != nil
	if attached {
		e.n.Parent.RemoveChild(e.n)
	}
	d.dispatchMu.Unlock()

	if !attached {
		return
	}

	d.mu.Lock()
	forSubtree(e.n, func(n *html.Node) {
		delete(d.bindings, n)
		delete(d.marks, n)
	})
	d.mu.Unlock()

	d.notifyMutation()
}

// forSubtree visits n and every node beneath it.
func forSubtree(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		forSubtree(c, fn)
	}
}

// Body returns the document body element.
func (d *Document) Body() Element {
	if d.body == nil {
		d.body = d.findFirst(atom.Body)
	}
	return Element{doc: d, n: d.body}
}

func (d *Document) notifyMutation() {
	d.mu.Lock()
	subs := make([]func(), len(d.subscribers))
	copy(subs, d.subscribers)
	d.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}
