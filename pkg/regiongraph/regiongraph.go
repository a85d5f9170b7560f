// Package regiongraph builds the region-adjacency graph over an initial
// superpixel labeling: one node per region carrying aggregate color
// statistics, one undirected edge per pair of regions that share a boundary.
package regiongraph

import "fmt"

// Region holds the aggregate statistics of one initial superpixel.
// Statistics are finalized during Build and never mutated afterwards;
// merged regions are represented by fresh nodes in the hierarchy, not by
// updates here.
type Region struct {
	// Area is the number of member pixels.
	Area int

	// Perimeter counts boundary contributions: one per 4-neighbor pixel
	// pair that crosses the region boundary, plus one per pixel side on
	// the image border.
	Perimeter int

	// Sum and SumSq are the per-channel sums of sample values and squared
	// sample values over all member pixels.
	Sum   []float64
	SumSq []float64
}

// Mean returns the mean value of channel c over the region.
func (r *Region) Mean(c int) float64 {
	if r.Area == 0 {
		return 0
	}
	return r.Sum[c] / float64(r.Area)
}

// Edge connects two adjacent regions. Multiple boundary pixel pairs between
// the same region pair contribute to a single edge.
type Edge struct {
	// A and B are the endpoint region ids, A < B.
	A, B int

	// Length is the number of 4-neighbor pixel pairs crossing the shared
	// boundary.
	Length int
}

// Graph is the region-adjacency graph. It is read-only after Build.
type Graph struct {
	// Regions is indexed by region id.
	Regions []Region

	// Edges holds one entry per adjacent region pair, in first-encounter
	// order, which is deterministic for a given labeling.
	Edges []Edge

	// Channels is the per-pixel sample count of the source image.
	Channels int
}

// Build scans the labeling and accumulates region statistics and
// adjacencies. Label ids must be contiguous in 0..count-1; pixels is the
// row-major interleaved sample data the labeling was computed from.
func Build(pixels []uint8, width, height, channels int, labels []int, count int) (*Graph, error) {
	if len(labels) != width*height {
		return nil, fmt.Errorf("label array length %d does not match %dx%d image", len(labels), width, height)
	}
	if len(pixels) != width*height*channels {
		return nil, fmt.Errorf("pixel buffer length %d does not match %dx%dx%d image", len(pixels), width, height, channels)
	}

	// Every label is checked up front: the scan loop reads neighbor labels
	// before their own pixel is visited.
	for i, id := range labels {
		if id < 0 || id >= count {
			return nil, fmt.Errorf("label %d at pixel (%d,%d) outside 0..%d", id, i%width, i/width, count-1)
		}
	}

	g := &Graph{
		Regions:  make([]Region, count),
		Channels: channels,
	}
	for i := range g.Regions {
		g.Regions[i].Sum = make([]float64, channels)
		g.Regions[i].SumSq = make([]float64, channels)
	}

	edgeIndex := make(map[[2]int]int)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			id := labels[idx]
			reg := &g.Regions[id]
			reg.Area++
			for c := 0; c < channels; c++ {
				v := float64(pixels[idx*channels+c])
				reg.Sum[c] += v
				reg.SumSq[c] += v * v
			}

			// Image border sides count toward the perimeter.
			if x == 0 {
				reg.Perimeter++
			}
			if x == width-1 {
				reg.Perimeter++
			}
			if y == 0 {
				reg.Perimeter++
			}
			if y == height-1 {
				reg.Perimeter++
			}

			// Right and down neighbors cover every 4-connected pair once.
			if x+1 < width {
				g.addBoundary(id, labels[idx+1], edgeIndex)
			}
			if y+1 < height {
				g.addBoundary(id, labels[idx+width], edgeIndex)
			}
		}
	}
	return g, nil
}

func (g *Graph) addBoundary(a, b int, edgeIndex map[[2]int]int) {
	if a == b {
		return
	}
	g.Regions[a].Perimeter++
	g.Regions[b].Perimeter++
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	key := [2]int{lo, hi}
	if ei, ok := edgeIndex[key]; ok {
		g.Edges[ei].Length++
		return
	}
	edgeIndex[key] = len(g.Edges)
	g.Edges = append(g.Edges, Edge{A: lo, B: hi, Length: 1})
}

// NumRegions returns the node count.
func (g *Graph) NumRegions() int {
	return len(g.Regions)
}

// NumEdges returns the adjacency count.
func (g *Graph) NumEdges() int {
	return len(g.Edges)
}
