package segmenter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dshills/pagesense/internal/content"
	"github.com/dshills/pagesense/pkg/types"
)

const (
	// DefaultMinChunkLength is the smallest chunk emitted, except when a
	// source produces a single short fragment.
	DefaultMinChunkLength = 50

	// DefaultMaxChunkLength is the splitting window size.
	DefaultMaxChunkLength = 500

	// DefaultOverlapPercentage is the fraction of each window repeated at
	// the start of the next one.
	DefaultOverlapPercentage = 0.1

	// breakZoneFraction is the trailing fraction of a window searched for
	// a whitespace split point to avoid mid-word cuts.
	breakZoneFraction = 0.2
)

// Config controls segmentation. Zero values take the package defaults.
type Config struct {
	MinChunkLength    int
	MaxChunkLength    int
	OverlapPercentage float64
}

func (c Config) withDefaults() Config {
	if c.MinChunkLength <= 0 {
		c.MinChunkLength = DefaultMinChunkLength
	}
	if c.MaxChunkLength <= 0 {
		c.MaxChunkLength = DefaultMaxChunkLength
	}
	if c.MaxChunkLength < c.MinChunkLength {
		c.MaxChunkLength = c.MinChunkLength
	}
	if c.OverlapPercentage < 0 || c.OverlapPercentage >= 1 {
		c.OverlapPercentage = DefaultOverlapPercentage
	}
	return c
}

// Segmenter splits a content snapshot into bounded, possibly overlapping
// text chunks.
type Segmenter struct {
	cfg Config
}

// New creates a Segmenter with the given configuration.
func New(cfg Config) *Segmenter {
	return &Segmenter{cfg: cfg.withDefaults()}
}

// Segment converts a snapshot into an ordered chunk sequence. Sibling nodes
// sharing a parent are merged into one candidate before splitting, so short
// fragments such as list items combine. An empty snapshot yields an empty
// sequence, not an error. Output is deterministic for a given snapshot and
// configuration.
func (s *Segmenter) Segment(nodes []content.Node) []*types.TextChunk {
	chunks := make([]*types.TextChunk, 0, len(nodes))

	for _, group := range groupSiblings(nodes) {
		texts := make([]string, len(group))
		for i, node := range group {
			texts[i] = node.Text
		}
		candidate := strings.Join(texts, " ")
		if candidate == "" {
			continue
		}

		for _, fragment := range s.split(candidate) {
			chunks = append(chunks, &types.TextChunk{
				ID:             chunkID(len(chunks), fragment),
				Text:           fragment,
				SourceOrder:    group[0].Order,
				SourceSelector: content.TagPath(group[0].Ref),
			})
		}
	}

	return chunks
}

// groupSiblings batches consecutive snapshot nodes that share a parent.
func groupSiblings(nodes []content.Node) [][]content.Node {
	var groups [][]content.Node
	for i := 0; i < len(nodes); {
		j := i + 1
		for j < len(nodes) && sameParent(nodes[j], nodes[j-1]) {
			j++
		}
		groups = append(groups, nodes[i:j])
		i = j
	}
	return groups
}

func sameParent(a, b content.Node) bool {
	return a.Ref != nil && b.Ref != nil && a.Ref.Parent == b.Ref.Parent
}

// split applies the sliding window. Each window ending mid-text is cut at the
// nearest preceding whitespace inside the trailing break zone; the next
// window starts overlapPercentage short of the cut. Fragments under the
// minimum are dropped unless they are the sole fragment for their source.
func (s *Segmenter) split(text string) []string {
	if len(text) <= s.cfg.MaxChunkLength {
		return []string{text}
	}

	window := s.cfg.MaxChunkLength
	var fragments []string

	start := 0
	for start < len(text) {
		end := start + window
		if end >= len(text) {
			fragments = append(fragments, strings.TrimSpace(text[start:]))
			break
		}

		cut := end
		zone := end - int(float64(window)*breakZoneFraction)
		if zone < start {
			zone = start
		}
		if idx := strings.LastIndexByte(text[zone:end], ' '); idx >= 0 {
			cut = zone + idx
		} else {
			// No whitespace in the zone; back off to a rune boundary.
			for cut > start && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		if cut <= start {
			cut = end
		}

		fragments = append(fragments, strings.TrimSpace(text[start:cut]))

		overlap := int(float64(cut-start) * s.cfg.OverlapPercentage)
		advance := (cut - start) - overlap
		if advance <= 0 {
			advance = cut - start
		}
		start += advance
	}

	if len(fragments) == 1 {
		// Sole fragment for its source keeps the minimum-length exemption.
		return fragments
	}

	kept := fragments[:0]
	for i, f := range fragments {
		if f == "" {
			continue
		}
		// The terminal remainder of a split run is exempt from the
		// minimum so trailing content is not lost.
		if len(f) >= s.cfg.MinChunkLength || i == len(fragments)-1 {
			kept = append(kept, f)
		}
	}
	return kept
}

// chunkID derives a deterministic opaque token from the chunk's position and
// content so repeated segmentation of an unchanged snapshot is identical.
func chunkID(index int, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("c%04d-%s", index, hex.EncodeToString(sum[:6]))
}
