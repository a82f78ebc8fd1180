// Package locator resolves ranked search results back to positions in the
// live content tree and manages highlight markers.
//
// Resolution matches chunk text against a fresh snapshot of the tree, so
// results survive content mutation between embedding and display: chunks
// whose text has been removed come back unresolved rather than pointing at
// stale nodes. Highlighting wraps exact raw-text ranges in marker elements
// and is fully reversible; removing all markers restores the tree's text
// content byte for byte.
package locator
