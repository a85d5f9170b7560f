package hierarchy

import (
	"testing"

	"hierseg/pkg/regiongraph"
)

// perPixelHierarchy builds a hierarchy over an image with one region per
// pixel using the given criterion.
func perPixelHierarchy(t *testing.T, pixels []uint8, width, height int, criterion Criterion) *Hierarchy {
	t.Helper()
	labels := make([]int, len(pixels))
	for i := range labels {
		labels[i] = i
	}
	g, err := regiongraph.Build(pixels, width, height, 1, labels, len(pixels))
	if err != nil {
		t.Fatalf("Graph build failed: %v", err)
	}
	return Build(g, labels, width, height, criterion)
}

func gradientPixels(width, height int) []uint8 {
	out := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out[y*width+x] = uint8((x*16 + y) % 256)
		}
	}
	return out
}

func TestBuildSingleRoot(t *testing.T) {
	for _, criterion := range []Criterion{CriterionMumfordShah, CriterionColor} {
		h := perPixelHierarchy(t, gradientPixels(4, 4), 4, 4, criterion)

		if h.NumNodes() != 2*h.NumLeaves()-1 {
			t.Errorf("Criterion %d: expected %d nodes, got %d",
				criterion, 2*h.NumLeaves()-1, h.NumNodes())
		}
		root := h.NumNodes() - 1
		if h.Parent(root) != root {
			t.Errorf("Criterion %d: root should be its own parent", criterion)
		}
		for i := 0; i < root; i++ {
			if h.Parent(i) <= i {
				t.Errorf("Criterion %d: node %d has parent %d, expected a larger id",
					criterion, i, h.Parent(i))
			}
		}
	}
}

func TestBuildUltrametric(t *testing.T) {
	for _, criterion := range []Criterion{CriterionMumfordShah, CriterionColor} {
		h := perPixelHierarchy(t, gradientPixels(4, 4), 4, 4, criterion)

		for i := 0; i < h.NumLeaves(); i++ {
			if h.Level(i) != 0 {
				t.Errorf("Criterion %d: leaf %d has level %f", criterion, i, h.Level(i))
			}
		}
		for i := 0; i < h.NumNodes(); i++ {
			p := h.Parent(i)
			if h.Level(i) > h.Level(p) {
				t.Errorf("Criterion %d: node %d level %f exceeds parent level %f",
					criterion, i, h.Level(i), h.Level(p))
			}
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	pixels := gradientPixels(4, 4)
	a := perPixelHierarchy(t, pixels, 4, 4, CriterionMumfordShah)
	b := perPixelHierarchy(t, pixels, 4, 4, CriterionMumfordShah)

	if a.NumNodes() != b.NumNodes() {
		t.Fatalf("Node counts differ: %d vs %d", a.NumNodes(), b.NumNodes())
	}
	for i := 0; i < a.NumNodes(); i++ {
		if a.Parent(i) != b.Parent(i) || a.Level(i) != b.Level(i) {
			t.Errorf("Node %d differs between identical builds", i)
		}
	}
}

// TestBuildFinestCut checks that a cut at level zero reproduces the initial
// partition when every merge carries a positive dissimilarity, which holds
// for images whose regions all have distinct means.
func TestBuildFinestCut(t *testing.T) {
	h := perPixelHierarchy(t, gradientPixels(4, 4), 4, 4, CriterionMumfordShah)

	got := h.Cut(0)
	for i, l := range got {
		if l != i {
			t.Errorf("Pixel %d: expected its own region, got %d", i, l)
		}
	}
}

// TestBuildConstantImage checks that merging identical regions costs
// nothing: every merge level is zero and any cut yields a single region.
func TestBuildConstantImage(t *testing.T) {
	pixels := make([]uint8, 16)
	for i := range pixels {
		pixels[i] = 128
	}
	h := perPixelHierarchy(t, pixels, 4, 4, CriterionMumfordShah)

	if h.MaxLevel() != 0 {
		t.Errorf("Expected max level 0, got %f", h.MaxLevel())
	}
	got := h.Cut(0)
	for i := 1; i < len(got); i++ {
		if got[i] != got[0] {
			t.Fatalf("Expected a single region, got labels %v", got)
		}
	}
}

// TestBuildMergesSimilarFirst checks that the lightest boundary collapses
// before heavier ones: with one pair of near-identical pixels the first
// merge joins that pair.
func TestBuildMergesSimilarFirst(t *testing.T) {
	// Pixels 0 and 1 differ by 2; every other adjacency differs by 98 or
	// more.
	pixels := []uint8{100, 102, 200, 0}
	h := perPixelHierarchy(t, pixels, 2, 2, CriterionMumfordShah)

	// The first merged node is id 4 and its children are the two pixels.
	if h.Parent(0) != 4 || h.Parent(1) != 4 {
		t.Errorf("Expected pixels 0 and 1 to merge first, parents %d and %d",
			h.Parent(0), h.Parent(1))
	}
}
