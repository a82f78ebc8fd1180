package content

import (
	"strings"

	"golang.org/x/net/html"
)

// nonTextTags are elements whose text content is never rendered.
var nonTextTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
	"title":    true,
	"iframe":   true,
	"svg":      true,
}

// Text returns the raw concatenated text content of n's subtree in document
// order, skipping non-rendered elements. No whitespace collapsing is applied;
// the highlighter depends on raw offsets being stable.
func Text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && nonTextTags[node.Data] {
			return
		}
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// WalkText visits every rendered text node under n in document order,
// reporting the cumulative raw-text offset at which each begins. Returning
// false from fn stops the walk.
func WalkText(n *html.Node, fn func(tn *html.Node, offset int) bool) {
	offset := 0
	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if node.Type == html.ElementNode && nonTextTags[node.Data] {
			return true
		}
		if node.Type == html.TextNode {
			if !fn(node, offset) {
				return false
			}
			offset += len(node.Data)
			return true
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(n)
}

// CollapseSpace trims s and collapses every run of whitespace to a single
// space. Chunk text and cache keys are always in collapsed form.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Depth returns the number of ancestors of n. Deeper nodes are more specific
// and win locator ties.
func Depth(n *html.Node) int {
	d := 0
	for p := n.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// TagPath returns a coarse tag descriptor like "body>div>p" for diagnostics.
func TagPath(n *html.Node) string {
	var tags []string
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode {
			tags = append(tags, cur.Data)
		}
	}
	// Reverse into root-first order
	for i, j := 0, len(tags)-1; i < j; i, j = i+1, j-1 {
		tags[i], tags[j] = tags[j], tags[i]
	}
	return strings.Join(tags, ">")
}
