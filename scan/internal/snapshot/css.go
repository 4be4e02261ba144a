package snapshot

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Simple CSS selector engine. Supported forms:
//
//   - tag: "table", "div"
//   - .class: ".x-grid"
//   - #id: "#main"
//   - tag.class: "div.x-grid-cell"
//   - tag#id: "div#uebersicht"
//   - tag[attr]: "div[data-recordindex]"
//   - tag[attr=val]: "div[role=grid]"
//   - combinations separated by space (descendant combinator)
//
// This covers every structural pattern the discovery cascade uses; anything
// fancier belongs in the browser, not here.

// querySelectorAll returns all nodes matching a selector, in document order.
func querySelectorAll(doc *html.Node, selector string) []*html.Node {
	parts := strings.Fields(selector)
	if len(parts) == 0 {
		return nil
	}

	matches := matchSimple(doc, parts[0])

	// Descendant combinator: filter through subsequent parts.
	for i := 1; i < len(parts); i++ {
		var next []*html.Node
		for _, parent := range matches {
			next = append(next, matchSimple(parent, parts[i])...)
		}
		matches = next
	}

	return matches
}

// matchSimple finds all nodes under root matching a single selector part.
// Root itself is not considered.
func matchSimple(root *html.Node, part string) []*html.Node {
	sel := parseSimpleSelector(part)
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if matchesSelector(c, sel) {
				results = append(results, c)
			}
			walk(c)
		}
	}
	walk(root)
	return results
}

type simpleSelector struct {
	tag     string
	id      string
	class   string
	attrKey string
	attrVal string
}

// parseSimpleSelector parses "tag.class", "#id", "tag[attr=val]", etc.
func parseSimpleSelector(part string) simpleSelector {
	var s simpleSelector

	if idx := strings.IndexByte(part, '['); idx >= 0 {
		attrPart := strings.TrimRight(part[idx+1:], "]")
		part = part[:idx]
		if eqIdx := strings.IndexByte(attrPart, '='); eqIdx >= 0 {
			s.attrKey = attrPart[:eqIdx]
			s.attrVal = strings.Trim(attrPart[eqIdx+1:], `"'`)
		} else {
			s.attrKey = attrPart
		}
	}

	if idx := strings.IndexByte(part, '#'); idx >= 0 {
		s.id = part[idx+1:]
		part = part[:idx]
	}

	if idx := strings.IndexByte(part, '.'); idx >= 0 {
		s.class = part[idx+1:]
		part = part[:idx]
	}

	s.tag = part
	return s
}

func matchesSelector(n *html.Node, s simpleSelector) bool {
	if n.Type != html.ElementNode {
		return false
	}

	if s.tag != "" && n.Data != s.tag {
		return false
	}

	if s.id != "" && nodeAttr(n, "id") != s.id {
		return false
	}

	if s.class != "" {
		found := false
		for _, c := range strings.Fields(nodeAttr(n, "class")) {
			if c == s.class {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if s.attrKey != "" {
		if s.attrVal != "" {
			if nodeAttr(n, s.attrKey) != s.attrVal {
				return false
			}
		} else if !nodeHasAttr(n, s.attrKey) {
			return false
		}
	}

	return true
}

func nodeAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeHasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
}

func hasHiddenStyle(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "style" {
			for _, pat := range hiddenStylePatterns {
				if pat.MatchString(a.Val) {
					return true
				}
			}
		}
	}
	return false
}

// collectText extracts all visible text from a node subtree.
func collectText(root *html.Node) string {
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
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
			if hasHiddenStyle(n) {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return sb.String()
}
