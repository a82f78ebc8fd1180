// Package content provides the content source for pagesense: a parsed HTML
// tree plus the snapshot query that yields its visible text-bearing nodes.
//
// A snapshot is a point-in-time, document-ordered list of "leaf blocks":
// block-level elements that carry visible text but contain no nested block
// with text of its own. Scripts, styles, hidden elements, and anything
// matching the configured exclusion selectors are pruned together with their
// subtrees.
//
//	doc, err := content.LoadFile("article.html")
//	nodes := doc.Snapshot(content.SnapshotConfig{
//	    ExcludeSelectors: content.DefaultExcludeSelectors(),
//	})
//
// Snapshots are cheap and refreshable: the segmenter consumes one at session
// start, and the locator takes a fresh one per query so results re-resolve
// against the current tree rather than a stale extraction.
//
// The package also provides the raw-text utilities (Text, WalkText) the
// highlighter uses to map character ranges back onto individual text nodes.
package content
