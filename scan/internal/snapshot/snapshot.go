// Package snapshot provides an immutable, read-only view of a rendered page
// for the extraction engine. A Snapshot is built once per scan from the
// page's serialized DOM and discarded when the scan ends.
//
// The query surface is deliberately narrow (find by pattern, visible text,
// attribute lookup, ancestor lookup) so extractors are testable against
// plain HTML fixtures without a browser.
package snapshot

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Snapshot is a parsed, immutable view of a rendered page.
type Snapshot struct {
	doc *html.Node
}

// Parse builds a Snapshot from serialized DOM markup.
func Parse(markup string) (*Snapshot, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}
	return &Snapshot{doc: doc}, nil
}

// Find returns all elements matching the pattern, in document order.
// An empty result is an expected negative, not an error.
func (s *Snapshot) Find(pattern string) []*Element {
	var out []*Element
	for _, n := range querySelectorAll(s.doc, pattern) {
		out = append(out, &Element{node: n})
	}
	return out
}

// BodyTextLen returns the length of the page's total visible text. Used by
// degraded mode when no structural hypothesis matched anything.
func (s *Snapshot) BodyTextLen() int {
	body := findFirstByTag(s.doc, atom.Body)
	if body == nil {
		body = s.doc
	}
	return len(collectText(body))
}

// Element is a handle to one node of the Snapshot.
type Element struct {
	node *html.Node
}

// Text returns the element's visible text, whitespace-joined and trimmed.
// Script, style and inline-hidden content is excluded.
func (e *Element) Text() string {
	return collectText(e.node)
}

// Attr returns the value of an attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// Find returns descendants of this element matching the pattern, in
// document order. The element itself is never included.
func (e *Element) Find(pattern string) []*Element {
	sel := parseSimpleSelector(lastSelectorPart(pattern))
	var out []*Element
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if matchesSelector(c, sel) {
				out = append(out, &Element{node: c})
			}
			walk(c)
		}
	}
	walk(e.node)
	return out
}

// Ancestor walks up the tree and returns the nearest ancestor matching the
// pattern, or false when none exists.
func (e *Element) Ancestor(pattern string) (*Element, bool) {
	sel := parseSimpleSelector(lastSelectorPart(pattern))
	for n := e.node.Parent; n != nil; n = n.Parent {
		if matchesSelector(n, sel) {
			return &Element{node: n}, true
		}
	}
	return nil, false
}

// HTML renders the element's markup. Used for dump artifacts.
func (e *Element) HTML() string {
	var buf bytes.Buffer
	if err := html.Render(&buf, e.node); err != nil {
		return ""
	}
	return buf.String()
}

func lastSelectorPart(pattern string) string {
	parts := strings.Fields(pattern)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

func findFirstByTag(root *html.Node, tag atom.Atom) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == tag {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}
