// Package segmenter divides a page's visible text into bounded, possibly
// overlapping chunks for embedding and ranking.
//
// # Segmentation Strategy
//
// Snapshot nodes are first merged by parent, so runs of short siblings (list
// items, table cells) combine into one candidate unit. Candidates longer than
// the configured maximum are split with a sliding window: each window is cut
// at the nearest preceding whitespace inside its trailing 20% to avoid
// mid-word breaks, and the next window starts short of the cut by the
// configured overlap fraction.
//
//	s := segmenter.New(segmenter.Config{})
//	chunks := s.Segment(doc.Snapshot(content.SnapshotConfig{
//	    ExcludeSelectors: content.DefaultExcludeSelectors(),
//	}))
//
// # Sizing
//
// Defaults: minimum 50 characters, maximum 500, overlap 10%. Fragments under
// the minimum are discarded unless they are the sole fragment for their
// source or the terminal remainder of a split run.
//
// Given an unchanged snapshot and configuration the output, including chunk
// IDs, is identical on repeated calls. Duplicate text in two different nodes
// yields two distinct chunks; there is no cross-node deduplication.
package segmenter
