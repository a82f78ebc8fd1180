package content

import (
	"strings"

	"golang.org/x/net/html"
)

// Node is one visible text-bearing content node captured by a snapshot.
type Node struct {
	// Ref points at the live element in the content tree. It is a weak
	// reference in the sense that holders must tolerate the tree having
	// drifted by the time they use it.
	Ref *html.Node

	// Text is the whitespace-collapsed visible text of the node's subtree.
	Text string

	// Order is the node's document-order index within the snapshot.
	Order int

	// Depth is the node's distance from the tree root.
	Depth int

	// VerticalPos is the cumulative visible-text offset at which the node
	// begins. A layout-free monotone proxy for top-to-bottom position.
	VerticalPos int
}

// SnapshotConfig controls which parts of the tree a snapshot covers.
type SnapshotConfig struct {
	// ExcludeSelectors prune matching elements and their subtrees.
	// Supported forms: "tag", ".class", "#id", "[attr]". Nil means
	// DefaultExcludeSelectors; an empty non-nil slice disables exclusion.
	ExcludeSelectors []string
}

// DefaultExcludeSelectors returns the boilerplate exclusion set: scripts,
// navigation chrome, and ad-marked regions.
func DefaultExcludeSelectors() []string {
	return []string{
		"nav", "header", "footer", "aside", "form", "button",
		".ad", ".ads", ".advertisement", ".sponsored",
		"#ad", "[data-ad]",
	}
}

// blockTags are elements that establish their own text unit. Elements outside
// this set are treated as inline and do not break up a candidate.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"body": true, "caption": true, "dd": true, "details": true, "div": true,
	"dl": true, "dt": true, "fieldset": true, "figcaption": true,
	"figure": true, "footer": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "li": true,
	"main": true, "nav": true, "ol": true, "p": true, "pre": true,
	"section": true, "summary": true, "table": true, "td": true, "th": true,
	"tr": true, "ul": true,
}

// Snapshot walks the current content tree and returns its visible
// text-bearing leaf blocks in document order. Repeated calls over an
// unchanged tree return identical snapshots; after tree mutation a fresh
// call observes the new state.
func (d *Document) Snapshot(cfg SnapshotConfig) []Node {
	exclude := cfg.ExcludeSelectors
	if exclude == nil {
		exclude = DefaultExcludeSelectors()
	}
	selectors := parseSelectors(exclude)

	var nodes []Node
	vertical := 0

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if nonTextTags[n.Data] || matchesAny(selectors, n) || isHidden(n) {
				return
			}
			if blockTags[n.Data] && !hasBlockDescendantWithText(n) {
				text := CollapseSpace(Text(n))
				if text != "" {
					nodes = append(nodes, Node{
						Ref:         n,
						Text:        text,
						Order:       len(nodes),
						Depth:       Depth(n),
						VerticalPos: vertical,
					})
					vertical += len(text) + 1
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)

	return nodes
}

// hasBlockDescendantWithText reports whether n contains a nested block
// element carrying visible text. Such containers are descended into rather
// than captured wholesale.
func hasBlockDescendantWithText(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if blockTags[c.Data] && CollapseSpace(Text(c)) != "" {
			return true
		}
		if hasBlockDescendantWithText(c) {
			return true
		}
	}
	return false
}

// isHidden applies the visibility heuristics available without a layout
// engine: the hidden attribute, aria-hidden, inline display/visibility
// styles, zero-size inline styles, and hidden inputs.
func isHidden(n *html.Node) bool {
	for _, attr := range n.Attr {
		switch attr.Key {
		case "hidden":
			return true
		case "aria-hidden":
			if attr.Val == "true" {
				return true
			}
		case "type":
			if n.Data == "input" && attr.Val == "hidden" {
				return true
			}
		case "style":
			style := strings.ReplaceAll(strings.ToLower(attr.Val), " ", "")
			if strings.Contains(style, "display:none") ||
				strings.Contains(style, "visibility:hidden") ||
				hasZeroDimension(style, "width") ||
				hasZeroDimension(style, "height") {
				return true
			}
		}
	}
	return false
}

// hasZeroDimension reports whether a normalized inline style declares the
// given dimension as zero ("width:0", "width:0px"), without matching nonzero
// values that merely start with 0.
func hasZeroDimension(style, dim string) bool {
	for _, decl := range strings.Split(style, ";") {
		name, val, ok := strings.Cut(decl, ":")
		if !ok || name != dim {
			continue
		}
		if val == "0" || val == "0px" || val == "0em" || val == "0%" {
			return true
		}
	}
	return false
}

// selector is a parsed exclusion pattern.
type selector struct {
	tag   string
	class string
	id    string
	attr  string
}

func parseSelectors(raw []string) []selector {
	selectors := make([]selector, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		switch {
		case strings.HasPrefix(r, "."):
			selectors = append(selectors, selector{class: r[1:]})
		case strings.HasPrefix(r, "#"):
			selectors = append(selectors, selector{id: r[1:]})
		case strings.HasPrefix(r, "[") && strings.HasSuffix(r, "]"):
			selectors = append(selectors, selector{attr: r[1 : len(r)-1]})
		default:
			selectors = append(selectors, selector{tag: strings.ToLower(r)})
		}
	}
	return selectors
}

func matchesAny(selectors []selector, n *html.Node) bool {
	for _, sel := range selectors {
		if sel.matches(n) {
			return true
		}
	}
	return false
}

func (s selector) matches(n *html.Node) bool {
	switch {
	case s.tag != "":
		return n.Data == s.tag
	case s.id != "":
		return attrValue(n, "id") == s.id
	case s.class != "":
		for _, c := range strings.Fields(attrValue(n, "class")) {
			if c == s.class {
				return true
			}
		}
		return false
	case s.attr != "":
		for _, attr := range n.Attr {
			if attr.Key == s.attr {
				return true
			}
		}
		return false
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
