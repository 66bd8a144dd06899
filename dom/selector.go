package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// QuerySelector returns the first element matching the selector list, in
// document order, or a zero Element (Valid() == false).
//
// Supported selector subset, matching what real marketplace tables use:
//   - tag, .class, #id, [attr], [attr=val] (quoted or bare values)
//   - compounds: tag.class1.class2#id[attr='val']
//   - descendant combinator (space)
//   - selector lists (comma-separated alternatives, tried left to right)
func (d *Document) QuerySelector(selector string) Element {
	for _, alt := range splitList(selector) {
		if nodes := d.queryAll(alt); len(nodes) > 0 {
			return Element{doc: d, n: nodes[0]}
		}
	}
	return Element{}
}

// QuerySelectorAll returns all elements matching the selector list.
// Elements matched by multiple alternatives appear once.
func (d *Document) QuerySelectorAll(selector string) []Element {
	uniq := make(map[*html.Node]bool)
	var out []Element
	for _, alt := range splitList(selector) {
		for _, n := range d.queryAll(alt) {
			if uniq[n] {
				continue
			}
			uniq[n] = true
			out = append(out, Element{doc: d, n: n})
		}
	}
	return out
}

// Valid reports whether the handle points at a real element.
func (e Element) Valid() bool { return e.n != nil }

// queryAll evaluates one alternative (no commas): compound parts separated
// by descendant combinators.
func (d *Document) queryAll(alt string) []*html.Node {
	parts := splitCompound(alt)
	if len(parts) == 0 {
		return nil
	}

	matches := matchPart(d.root, parts[0])
	for i := 1; i < len(parts); i++ {
		var next []*html.Node
		for _, parent := range matches {
			next = append(next, matchPart(parent, parts[i])...)
		}
		matches = next
	}
	return matches
}

// matchPart finds all descendants of root (excluding root) matching one
// compound selector part.
func matchPart(root *html.Node, part string) []*html.Node {
	c := parseCompound(part)
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n != root && c.matches(n) {
			results = append(results, n)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return results
}

// compound is one parsed selector part: tag + classes + id + attributes.
type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrCond
}

type attrCond struct {
	key string
	val string // empty means presence-only
	has bool   // val is significant even when empty
}

// parseCompound parses "tag.c1.c2#id[attr='val']". Attribute blocks are cut
// out first so dots and hashes inside quoted values cannot confuse the
// class/id scan.
func parseCompound(part string) compound {
	var c compound

	for {
		open := strings.IndexByte(part, '[')
		if open < 0 {
			break
		}
		end := strings.IndexByte(part[open:], ']')
		if end < 0 {
			// Unterminated attribute block: ignore the rest.
			part = part[:open]
			break
		}
		block := part[open+1 : open+end]
		part = part[:open] + part[open+end+1:]

		var cond attrCond
		if eq := strings.IndexByte(block, '='); eq >= 0 {
			cond.key = strings.TrimSpace(block[:eq])
			cond.val = strings.Trim(strings.TrimSpace(block[eq+1:]), `"'`)
			cond.has = true
		} else {
			cond.key = strings.TrimSpace(block)
		}
		if cond.key != "" {
			c.attrs = append(c.attrs, cond)
		}
	}

	// Scan tag/classes/id left to right.
	for len(part) > 0 {
		switch part[0] {
		case '.':
			end := nextDelim(part[1:])
			c.classes = append(c.classes, part[1:1+end])
			part = part[1+end:]
		case '#':
			end := nextDelim(part[1:])
			c.id = part[1 : 1+end]
			part = part[1+end:]
		default:
			end := nextDelim(part)
			c.tag = strings.ToLower(part[:end])
			part = part[end:]
		}
	}
	return c
}

// nextDelim returns the index of the next '.' or '#' in s, or len(s).
func nextDelim(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' || s[i] == '#' {
			return i
		}
	}
	return len(s)
}

func (c compound) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && c.tag != "*" && n.Data != c.tag {
		return false
	}
	if c.id != "" && getAttr(n, "id") != c.id {
		return false
	}
	if len(c.classes) > 0 {
		have := strings.Fields(getAttr(n, "class"))
		for _, want := range c.classes {
			found := false
			for _, cls := range have {
				if cls == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	for _, cond := range c.attrs {
		if cond.has {
			if getAttr(n, cond.key) != cond.val {
				return false
			}
		} else if !hasAttr(n, cond.key) {
			return false
		}
	}
	return true
}

// splitList splits a selector list on top-level commas (commas inside
// attribute blocks do not split).
func splitList(selector string) []string {
	return splitTopLevel(selector, ',')
}

// splitCompound splits one alternative on top-level whitespace (descendant
// combinator); spaces inside attribute values do not split.
func splitCompound(alt string) []string {
	return splitTopLevel(alt, ' ')
}

func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				if p := strings.TrimSpace(s[start:i]); p != "" {
					parts = append(parts, p)
				}
				start = i + 1
			}
		}
	}
	if p := strings.TrimSpace(s[start:]); p != "" {
		parts = append(parts, p)
	}
	return parts
}
