package hierarchy

import (
	"container/heap"
	"math"

	log "github.com/sirupsen/logrus"

	"hierseg/pkg/regiongraph"
)

// Criterion selects the dissimilarity used to order merges.
type Criterion int

const (
	// CriterionMumfordShah weights each candidate merge by its apparition
	// scale: the Mumford-Shah scale at which merging the two regions
	// becomes cheaper than keeping them separate, computed from the
	// regions' piecewise linear energy functions.
	CriterionMumfordShah Criterion = iota

	// CriterionColor weights each candidate merge by the Euclidean
	// distance between the regions' mean color vectors.
	CriterionColor
)

// node is one arena entry during construction: an initial region or a
// merged parent. Statistics are finalized when the node is created and
// never mutated; a merge produces a fresh node.
type node struct {
	area      int
	perimeter int
	sum       []float64
	sumSq     []float64
	energy    Plef
	active    bool
}

type builderEdge struct {
	a, b   int
	length int
	weight float64
	active bool
}

// edgeHeap is a min-heap over edge indices keyed by weight, with the edge
// index as a deterministic tie-break so identical inputs always build
// identical hierarchies.
type edgeHeap struct {
	edges   *[]builderEdge
	indices []int
}

func (h edgeHeap) Len() int { return len(h.indices) }
func (h edgeHeap) Less(i, j int) bool {
	ei, ej := h.indices[i], h.indices[j]
	wi, wj := (*h.edges)[ei].weight, (*h.edges)[ej].weight
	if wi != wj {
		return wi < wj
	}
	return ei < ej
}
func (h edgeHeap) Swap(i, j int)      { h.indices[i], h.indices[j] = h.indices[j], h.indices[i] }
func (h *edgeHeap) Push(x any)        { h.indices = append(h.indices, x.(int)) }
func (h *edgeHeap) Pop() any {
	old := h.indices
	n := len(old)
	x := old[n-1]
	h.indices = old[:n-1]
	return x
}

// Build constructs the merge hierarchy over a region-adjacency graph.
// labels is the superpixel labeling of a width x height image whose region
// ids index g.Regions.
//
// Merges pop the globally lightest active edge; each merge appends a parent
// node whose statistics are recombined from its children and reweights the
// parent's edges from those fresh statistics. Node levels are clamped to be
// at least the maximum child level, so cuts at any threshold are nested.
func Build(g *regiongraph.Graph, labels []int, width, height int, criterion Criterion) *Hierarchy {
	numLeaves := g.NumRegions()
	channels := g.Channels

	nodes := make([]node, numLeaves, 2*numLeaves)
	parents := make([]int, numLeaves, 2*numLeaves)
	levels := make([]float64, numLeaves, 2*numLeaves)
	for i := range nodes {
		r := &g.Regions[i]
		sum := make([]float64, channels)
		sumSq := make([]float64, channels)
		copy(sum, r.Sum)
		copy(sumSq, r.SumSq)
		nodes[i] = node{
			area:      r.Area,
			perimeter: r.Perimeter,
			sum:       sum,
			sumSq:     sumSq,
			energy:    PlefFrom(PlefPiece{StartX: 0, StartY: dataFidelity(sum, sumSq, r.Area), Slope: float64(r.Perimeter)}),
			active:    true,
		}
		parents[i] = i
	}

	edges := make([]builderEdge, 0, 2*len(g.Edges))
	adjacency := make([][]int, numLeaves, 2*numLeaves)
	for _, e := range g.Edges {
		w := edgeWeight(criterion, &nodes[e.A], &nodes[e.B], e.Length, channels)
		ei := len(edges)
		edges = append(edges, builderEdge{a: e.A, b: e.B, length: e.Length, weight: w, active: true})
		adjacency[e.A] = append(adjacency[e.A], ei)
		adjacency[e.B] = append(adjacency[e.B], ei)
	}

	h := &edgeHeap{edges: &edges, indices: make([]int, len(edges))}
	for i := range h.indices {
		h.indices[i] = i
	}
	heap.Init(h)

	merges := 0
	// Scratch for the union of the merged pair's neighbors, keyed by
	// neighbor id; values accumulate boundary length.
	neighborLength := make(map[int]int)

	for h.Len() > 0 {
		ei := heap.Pop(h).(int)
		fusion := &edges[ei]
		if !fusion.active {
			// Stale entry referencing an already-merged region.
			continue
		}
		fusion.active = false
		a, b := fusion.a, fusion.b

		// Union of the children's neighbors, minus the pair itself.
		for k := range neighborLength {
			delete(neighborLength, k)
		}
		for _, end := range [2]int{a, b} {
			for _, adjEI := range adjacency[end] {
				e := &edges[adjEI]
				if !e.active {
					continue
				}
				nb := e.a
				if nb == end {
					nb = e.b
				}
				if nb == a || nb == b {
					continue
				}
				neighborLength[nb] += e.length
				e.active = false
			}
		}

		parent := fuse(&nodes[a], &nodes[b], fusion.length, channels)
		newID := len(nodes)
		nodes = append(nodes, parent)
		adjacency = append(adjacency, nil)

		nodes[a].active = false
		nodes[b].active = false
		parents[a] = newID
		parents[b] = newID
		parents = append(parents, newID)

		level := fusion.weight
		// Ultrametric clamp: recomputed weights can dip below the levels
		// already assigned to the children.
		if levels[a] > level {
			level = levels[a]
		}
		if levels[b] > level {
			level = levels[b]
		}
		levels = append(levels, level)

		// Reweight every surviving adjacency from the parent's fresh
		// statistics. Neighbor ids are iterated in sorted order by
		// reusing the adjacency lists rather than the map, keeping edge
		// creation deterministic.
		for _, end := range [2]int{a, b} {
			for _, adjEI := range adjacency[end] {
				e := edges[adjEI]
				nb := e.a
				if nb == end {
					nb = e.b
				}
				length, pending := neighborLength[nb]
				if !pending {
					continue
				}
				delete(neighborLength, nb)
				w := edgeWeight(criterion, &nodes[newID], &nodes[nb], length, channels)
				newEI := len(edges)
				edges = append(edges, builderEdge{a: newID, b: nb, length: length, weight: w, active: true})
				adjacency[newID] = append(adjacency[newID], newEI)
				adjacency[nb] = append(adjacency[nb], newEI)
				heap.Push(h, newEI)
			}
		}
		merges++
	}

	// A partition of a connected pixel grid yields a connected adjacency
	// graph, so a single root remains; guard against disconnected inputs
	// anyway by chaining any leftover roots at the current maximum level.
	roots := make([]int, 0, 1)
	for i := range nodes {
		if nodes[i].active {
			roots = append(roots, i)
		}
	}
	if len(roots) > 1 {
		maxLevel := 0.0
		for _, l := range levels {
			if l > maxLevel {
				maxLevel = l
			}
		}
		acc := roots[0]
		for _, r := range roots[1:] {
			parent := fuse(&nodes[acc], &nodes[r], 0, channels)
			newID := len(nodes)
			nodes = append(nodes, parent)
			nodes[acc].active = false
			nodes[r].active = false
			parents[acc] = newID
			parents[r] = newID
			parents = append(parents, newID)
			levels = append(levels, maxLevel)
			acc = newID
			merges++
		}
	}

	log.WithFields(log.Fields{
		"leaves": numLeaves,
		"merges": merges,
		"nodes":  len(nodes),
	}).Debug("hierarchy built")

	return New(labels, width, height, parents, levels, numLeaves)
}

// fuse combines two regions into a fresh parent node. The parent's
// statistics are the size-weighted combination of the children's; its
// energy function is the children's sum taken to its infimum with the
// merged region's own energy piece.
func fuse(a, b *node, boundaryLength, channels int) node {
	area := a.area + b.area
	perimeter := a.perimeter + b.perimeter - 2*boundaryLength
	sum := make([]float64, channels)
	sumSq := make([]float64, channels)
	for c := 0; c < channels; c++ {
		sum[c] = a.sum[c] + b.sum[c]
		sumSq[c] = a.sumSq[c] + b.sumSq[c]
	}

	energy := a.energy.Sum(b.energy, 0)
	energy.Infimum(PlefPiece{StartX: 0, StartY: dataFidelity(sum, sumSq, area), Slope: float64(perimeter)})

	return node{
		area:      area,
		perimeter: perimeter,
		sum:       sum,
		sumSq:     sumSq,
		energy:    energy,
		active:    true,
	}
}

// edgeWeight computes the dissimilarity between two active regions from
// their current aggregate statistics.
func edgeWeight(criterion Criterion, a, b *node, boundaryLength, channels int) float64 {
	switch criterion {
	case CriterionColor:
		sum := 0.0
		for c := 0; c < channels; c++ {
			d := a.sum[c]/float64(a.area) - b.sum[c]/float64(b.area)
			sum += d * d
		}
		return math.Sqrt(sum)
	default:
		return apparitionScale(a, b, boundaryLength, channels)
	}
}

// apparitionScale returns the Mumford-Shah scale at which fusing the two
// regions becomes optimal: the crossing point between the sum of the
// children's optimal energies and the merged region's energy piece.
func apparitionScale(a, b *node, boundaryLength, channels int) float64 {
	area := a.area + b.area
	perimeter := a.perimeter + b.perimeter - 2*boundaryLength
	sum := make([]float64, channels)
	sumSq := make([]float64, channels)
	for c := 0; c < channels; c++ {
		sum[c] = a.sum[c] + b.sum[c]
		sumSq[c] = a.sumSq[c] + b.sumSq[c]
	}

	combined := a.energy.Sum(b.energy, 0)
	xi := combined.Infimum(PlefPiece{StartX: 0, StartY: dataFidelity(sum, sumSq, area), Slope: float64(perimeter)})
	if math.IsNaN(xi) || math.IsInf(xi, 0) || xi < 0 {
		// Degenerate crossing; the ultrametric clamp keeps the merge
		// level consistent with the children.
		return 0
	}
	return xi
}

// dataFidelity is the within-region sum of squared deviations from the
// mean, summed over channels.
func dataFidelity(sum, sumSq []float64, area int) float64 {
	if area == 0 {
		return 0
	}
	df := 0.0
	for c := range sum {
		df += sumSq[c] - sum[c]*sum[c]/float64(area)
	}
	if df < 0 {
		// Guard against rounding pushing the variance term negative.
		df = 0
	}
	return df
}
