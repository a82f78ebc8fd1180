package locator

import (
	"sort"
	"strings"

	"github.com/dshills/pagesense/internal/content"
	"github.com/dshills/pagesense/pkg/types"
)

// MaxProbeLength bounds the leading substring used for containment matching
// when a chunk's full text is too long to expect verbatim inside one node.
const MaxProbeLength = 120

// Resolve re-resolves each ranked result to a node in the given snapshot,
// which should be freshly taken: results are produced from a chunk snapshot
// that may be older than the live tree. Resolution is best effort - a chunk
// with no candidate is left unresolved and simply drops out of the navigable
// set.
func Resolve(results []*types.SearchResult, snapshot []content.Node) {
	for _, result := range results {
		if node, ok := resolveOne(result.Chunk.Text, snapshot); ok {
			result.ResolvedOrder = node.Order
			result.VerticalPos = node.VerticalPos
			// Hidden nodes never appear in a snapshot, so anything
			// resolved here is currently visible.
			result.Visible = true
		} else {
			result.ResolvedOrder = -1
			result.Visible = false
		}
	}
}

// resolveOne finds the best current node for the chunk text. Candidates are
// nodes whose text contains the probe; among them the winner minimizes the
// length difference to the target text, with ties broken in favor of the
// deeper, more specific node.
func resolveOne(target string, snapshot []content.Node) (content.Node, bool) {
	probe := boundedProbe(target)
	if probe == "" {
		return content.Node{}, false
	}

	var candidates []content.Node
	for _, node := range snapshot {
		if strings.Contains(node.Text, probe) {
			candidates = append(candidates, node)
		}
	}

	if len(candidates) == 0 {
		// A chunk merged from several siblings spans multiple leaf
		// blocks; no single node contains it. Fall back to the node
		// the chunk's text starts in.
		for _, node := range snapshot {
			if len(node.Text) >= MinPrefixCandidate && strings.HasPrefix(target, node.Text) {
				candidates = append(candidates, node)
			}
		}
	}

	if len(candidates) == 0 {
		return content.Node{}, false
	}

	best := candidates[0]
	bestDiff := lengthDiff(best.Text, target)
	for _, cand := range candidates[1:] {
		diff := lengthDiff(cand.Text, target)
		if diff < bestDiff || (diff == bestDiff && cand.Depth > best.Depth) {
			best = cand
			bestDiff = diff
		}
	}
	return best, true
}

// MinPrefixCandidate is the smallest node text accepted in the prefix
// fallback, so trivial fragments do not masquerade as matches.
const MinPrefixCandidate = 20

// boundedProbe returns the chunk text itself when short enough, otherwise a
// leading substring cut back to a word boundary.
func boundedProbe(text string) string {
	if len(text) <= MaxProbeLength {
		return text
	}
	probe := text[:MaxProbeLength]
	if idx := strings.LastIndexByte(probe, ' '); idx > 0 {
		probe = probe[:idx]
	}
	return probe
}

func lengthDiff(a, b string) int {
	d := len(a) - len(b)
	if d < 0 {
		return -d
	}
	return d
}

// NavigableOrder filters results down to the navigable set and re-sorts it
// by vertical position so navigation follows natural reading order. The
// similarity score is retained on each result for display only; it does not
// affect navigation order.
func NavigableOrder(results []*types.SearchResult) []*types.SearchResult {
	navigable := make([]*types.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Navigable() {
			navigable = append(navigable, r)
		}
	}
	sort.SliceStable(navigable, func(i, j int) bool {
		return navigable[i].VerticalPos < navigable[j].VerticalPos
	})
	return navigable
}
