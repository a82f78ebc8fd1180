package locator

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/dshills/pagesense/internal/content"
	"github.com/dshills/pagesense/pkg/types"
)

// Marker attributes and classes. The data attribute identifies markers for
// reversible removal; the classes are the hook for visual styling.
const (
	MarkAttr    = "data-pagesense"
	markClass   = "pagesense-highlight"
	activeClass = "pagesense-active"
)

// Highlighter applies and removes highlight markers in a live content tree.
// Marker insertion wraps exact text ranges in <mark> elements without
// altering adjacent text; removal is a structural unwrap that restores the
// tree's text content to the pre-highlight baseline exactly.
type Highlighter struct {
	doc    *content.Document
	marks  map[string][]*html.Node // chunk ID -> marker elements
	active string                  // chunk ID carrying active emphasis
}

// NewHighlighter creates a highlighter over doc.
func NewHighlighter(doc *content.Document) *Highlighter {
	return &Highlighter{
		doc:   doc,
		marks: make(map[string][]*html.Node),
	}
}

// Highlight wraps the result's matched text inside the given resolved node.
// When the full chunk text is not present verbatim the largest locatable
// portion is marked instead; failure to locate any range is reported but is
// not fatal to the result set.
func (h *Highlighter) Highlight(result *types.SearchResult, node content.Node) error {
	needle := matchableText(result.Chunk.Text, node.Text)
	raw := content.Text(node.Ref)

	start, end, ok := findRawRange(raw, needle)
	if !ok {
		return fmt.Errorf("text range not found in resolved node for chunk %s", result.Chunk.ID)
	}

	marks := wrapRange(node.Ref, start, end, result.Chunk.ID)
	if len(marks) == 0 {
		return fmt.Errorf("no text nodes covered highlight range for chunk %s", result.Chunk.ID)
	}
	h.marks[result.Chunk.ID] = append(h.marks[result.Chunk.ID], marks...)
	return nil
}

// HighlightAll highlights every navigable result, skipping ones whose range
// has drifted away since resolution. Returns the number highlighted.
func (h *Highlighter) HighlightAll(results []*types.SearchResult, snapshot []content.Node) int {
	byOrder := make(map[int]content.Node, len(snapshot))
	for _, node := range snapshot {
		byOrder[node.Order] = node
	}

	count := 0
	for _, result := range results {
		if !result.Navigable() {
			continue
		}
		node, ok := byOrder[result.ResolvedOrder]
		if !ok {
			continue
		}
		if err := h.Highlight(result, node); err == nil {
			count++
		}
	}
	return count
}

// SetActive moves the single active emphasis to the given chunk's markers,
// clearing it from the previous holder. An empty ID clears emphasis
// entirely.
func (h *Highlighter) SetActive(chunkID string) {
	if h.active == chunkID {
		return
	}
	if prev, ok := h.marks[h.active]; ok {
		for _, mark := range prev {
			setMarkClass(mark, false)
		}
	}
	h.active = chunkID
	if next, ok := h.marks[chunkID]; ok {
		for _, mark := range next {
			setMarkClass(mark, true)
		}
	}
}

// ActiveID returns the chunk ID currently carrying active emphasis.
func (h *Highlighter) ActiveID() string {
	return h.active
}

// RemoveAll structurally unwraps every marker in the tree, restoring the
// original text content exactly, and resets the highlighter's bookkeeping.
func (h *Highlighter) RemoveAll() {
	parents := make(map[*html.Node]bool)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			walk(c)
			if isMark(c) {
				unwrap(c)
				parents[n] = true
			}
			c = next
		}
	}
	walk(h.doc.Root())

	// Unwrapping leaves runs of adjacent text nodes; merge them so
	// repeated highlight cycles do not fragment the tree.
	for parent := range parents {
		mergeAdjacentText(parent)
	}

	h.marks = make(map[string][]*html.Node)
	h.active = ""
}

// matchableText picks the largest portion of the chunk text locatable in the
// node: the full text when contained, else its bounded leading probe, else
// the node's own text (the prefix-fallback resolution case).
func matchableText(chunkText, nodeText string) string {
	if strings.Contains(nodeText, chunkText) {
		return chunkText
	}
	if probe := boundedProbe(chunkText); strings.Contains(nodeText, probe) {
		return probe
	}
	return nodeText
}

// findRawRange locates needle inside raw text using whitespace-insensitive
// matching: a single space in the collapsed needle matches any whitespace
// run in the raw text. Returns raw byte offsets.
func findRawRange(raw, needle string) (int, int, bool) {
	if needle == "" {
		return 0, 0, false
	}
	for i := 0; i < len(raw); i++ {
		if end, ok := matchAt(raw, needle, i); ok {
			return i, end, true
		}
	}
	return 0, 0, false
}

func matchAt(raw, needle string, start int) (int, bool) {
	k := start
	for j := 0; j < len(needle); {
		if k >= len(raw) {
			return 0, false
		}
		switch {
		case needle[j] == ' ':
			if !isSpaceByte(raw[k]) {
				return 0, false
			}
			for k < len(raw) && isSpaceByte(raw[k]) {
				k++
			}
			j++
		case raw[k] == needle[j]:
			k++
			j++
		default:
			return 0, false
		}
	}
	return k, true
}

func isSpaceByte(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

// wrapRange wraps the raw-text byte range [start, end) under root in marker
// elements. The range may span several text nodes; each covered portion gets
// its own marker. Affected text nodes are collected first so the walk never
// iterates a tree it is mutating.
func wrapRange(root *html.Node, start, end int, chunkID string) []*html.Node {
	type segment struct {
		tn       *html.Node
		from, to int
	}
	var segments []segment

	content.WalkText(root, func(tn *html.Node, offset int) bool {
		if offset >= end {
			return false
		}
		nodeEnd := offset + len(tn.Data)
		if nodeEnd <= start {
			return true
		}
		from := 0
		if start > offset {
			from = start - offset
		}
		to := len(tn.Data)
		if end < nodeEnd {
			to = end - offset
		}
		if from < to {
			segments = append(segments, segment{tn: tn, from: from, to: to})
		}
		return true
	})

	marks := make([]*html.Node, 0, len(segments))
	for _, seg := range segments {
		marks = append(marks, wrapTextNode(seg.tn, seg.from, seg.to, chunkID))
	}
	return marks
}

// wrapTextNode splits one text node around [from, to) and wraps the middle
// in a marker element. The concatenated text content is unchanged.
func wrapTextNode(tn *html.Node, from, to int, chunkID string) *html.Node {
	parent := tn.Parent
	text := tn.Data

	mark := &html.Node{
		Type: html.ElementNode,
		Data: "mark",
		Attr: []html.Attribute{
			{Key: MarkAttr, Val: chunkID},
			{Key: "class", Val: markClass},
		},
	}
	mark.AppendChild(&html.Node{Type: html.TextNode, Data: text[from:to]})

	if from > 0 {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text[:from]}, tn)
	}
	parent.InsertBefore(mark, tn)
	if to < len(text) {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text[to:]}, tn)
	}
	parent.RemoveChild(tn)

	return mark
}

func isMark(n *html.Node) bool {
	if n.Type != html.ElementNode || n.Data != "mark" {
		return false
	}
	for _, attr := range n.Attr {
		if attr.Key == MarkAttr {
			return true
		}
	}
	return false
}

// unwrap replaces a marker element with its children in place.
func unwrap(mark *html.Node) {
	parent := mark.Parent
	for c := mark.FirstChild; c != nil; {
		next := c.NextSibling
		mark.RemoveChild(c)
		parent.InsertBefore(c, mark)
		c = next
	}
	parent.RemoveChild(mark)
}

// mergeAdjacentText coalesces sibling text nodes under parent.
func mergeAdjacentText(parent *html.Node) {
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.TextNode && next != nil && next.Type == html.TextNode {
			c.Data += next.Data
			parent.RemoveChild(next)
			continue // re-check c against its new next sibling
		}
		c = next
	}
}

func setMarkClass(mark *html.Node, active bool) {
	val := markClass
	if active {
		val = markClass + " " + activeClass
	}
	for i, attr := range mark.Attr {
		if attr.Key == "class" {
			mark.Attr[i].Val = val
			return
		}
	}
	mark.Attr = append(mark.Attr, html.Attribute{Key: "class", Val: val})
}
