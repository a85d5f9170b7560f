// Package hierarchy builds and queries an agglomerative merge hierarchy
// over an initial superpixel partition. The hierarchy is a binary tree kept
// as an arena of nodes addressed by integer id: ids 0..numLeaves-1 are the
// initial regions, every merge appends a parent node with a non-decreasing
// level, and the last node is the root. Once built, a Hierarchy is
// immutable and safe for concurrent cuts.
package hierarchy

import (
	"math"
	"sort"
)

// Hierarchy is the read-only merge tree plus the leaf labeling it was built
// over. Cuts at any level produce flat label maps without touching shared
// state.
type Hierarchy struct {
	// labels assigns every pixel its leaf (superpixel) id.
	labels        []int
	width, height int

	// parents[i] is the id of node i's parent; the root is its own
	// parent. levels[i] is the dissimilarity at which node i was created;
	// leaves sit at level 0. A child's level never exceeds its parent's.
	parents []int
	levels  []float64

	numLeaves int
	maxLevel  float64
}

// New assembles a hierarchy from its arena representation. The builder is
// the usual caller; tests construct small trees directly.
func New(labels []int, width, height int, parents []int, levels []float64, numLeaves int) *Hierarchy {
	maxLevel := 0.0
	for _, l := range levels {
		if l > maxLevel {
			maxLevel = l
		}
	}
	return &Hierarchy{
		labels:    labels,
		width:     width,
		height:    height,
		parents:   parents,
		levels:    levels,
		numLeaves: numLeaves,
		maxLevel:  maxLevel,
	}
}

// MaxLevel is the root's level: cutting at or above it yields one region.
func (h *Hierarchy) MaxLevel() float64 {
	return h.maxLevel
}

// NumLeaves returns the initial superpixel count.
func (h *Hierarchy) NumLeaves() int {
	return h.numLeaves
}

// NumNodes returns the total arena size, leaves included.
func (h *Hierarchy) NumNodes() int {
	return len(h.parents)
}

// Width returns the pixel width of the labeled image.
func (h *Hierarchy) Width() int {
	return h.width
}

// Height returns the pixel height of the labeled image.
func (h *Hierarchy) Height() int {
	return h.height
}

// Level returns the level of node id.
func (h *Hierarchy) Level(id int) float64 {
	return h.levels[id]
}

// Parent returns the parent id of node id; the root returns itself.
func (h *Hierarchy) Parent(id int) int {
	return h.parents[id]
}

// Cut truncates the tree at the given level and returns one label per
// pixel: each pixel is labeled with its highest ancestor whose level does
// not exceed the threshold. The level is clamped into [0, MaxLevel].
// Returned ids are frontier node ids, not renumbered; callers needing
// contiguous ids must remap.
//
// Cut only reads the hierarchy and may be called concurrently.
func (h *Hierarchy) Cut(level float64) []int {
	if level < 0 {
		level = 0
	}
	if level > h.maxLevel {
		level = h.maxLevel
	}

	// Parents always have larger ids than their children, so a single
	// descending pass resolves every node's frontier ancestor.
	n := len(h.parents)
	assign := make([]int, n)
	for i := n - 1; i >= 0; i-- {
		p := h.parents[i]
		if p != i && assign[p] != -1 {
			assign[i] = assign[p]
			continue
		}
		if h.levels[i] <= level {
			assign[i] = i
		} else {
			assign[i] = -1
		}
	}

	out := make([]int, len(h.labels))
	for i, leaf := range h.labels {
		out[i] = assign[leaf]
	}
	return out
}

// LeafLabels returns a copy of the initial superpixel labeling.
func (h *Hierarchy) LeafLabels() []int {
	out := make([]int, len(h.labels))
	copy(out, h.labels)
	return out
}

// LevelForCount returns the smallest cut level yielding at most target
// regions. target >= NumLeaves maps to level 0, target <= 1 to MaxLevel.
func (h *Hierarchy) LevelForCount(target int) float64 {
	if target >= h.numLeaves {
		return 0
	}
	if target <= 1 {
		return h.maxLevel
	}
	// Every merge applied at or below the cut level removes one region,
	// so reaching target regions takes numLeaves-target merges.
	internal := make([]float64, 0, len(h.levels)-h.numLeaves)
	for i := h.numLeaves; i < len(h.levels); i++ {
		internal = append(internal, h.levels[i])
	}
	sort.Float64s(internal)
	k := h.numLeaves - target
	if k > len(internal) {
		k = len(internal)
	}
	return internal[k-1]
}

// CutToCount cuts the hierarchy to approximately target regions. Merges
// sharing the chosen level are all applied, so the result can undershoot
// the target when levels tie.
func (h *Hierarchy) CutToCount(target int) []int {
	return h.Cut(h.LevelForCount(target))
}

// ScaleLevel maps a normalized control value in [0,1] to a cut level using
// an exponential ramp, 2^(t*log2(maxLevel)), so interactive scrubbing feels
// perceptually even. Hierarchies with MaxLevel <= 1 fall back to a linear
// ramp.
func (h *Hierarchy) ScaleLevel(t float64) float64 {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	if h.maxLevel <= 1 {
		return t * h.maxLevel
	}
	return math.Pow(2, t*math.Log2(h.maxLevel))
}
