// Package slic partitions an image into compact, roughly equal-area
// superpixels using SLIC-style clustering in joint color+spatial space.
//
// The algorithm seeds cluster centers on a regular grid, perturbs each seed
// to the lowest-gradient position in its 3x3 neighborhood, then alternates
// between assigning pixels to the nearest center within a local window and
// recomputing each center from its assigned pixels. A final connectivity
// pass guarantees that every output region is a single connected component
// above a minimum size.
package slic

import (
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// Options controls the superpixel clustering.
type Options struct {
	// Compactness weights spatial distance against color distance.
	// Higher values favor regular, grid-like superpixels; lower values
	// favor color-accurate boundaries.
	Compactness float64

	// Iterations caps the assign/update loop. The loop also stops early
	// once the centers stop moving.
	Iterations int

	// Workers is the number of goroutines used for the per-pixel
	// assignment phase. Zero means one per CPU.
	Workers int
}

// DefaultOptions returns the standard SLIC parameters.
func DefaultOptions() Options {
	return Options{
		Compactness: 10.0,
		Iterations:  10,
		Workers:     runtime.NumCPU(),
	}
}

// Result holds the superpixel labeling.
type Result struct {
	// Labels assigns a region id in 0..Count-1 to every pixel in
	// row-major order.
	Labels []int

	// Count is the number of regions actually produced. It never exceeds
	// the requested target; clusters can vanish during connectivity
	// cleanup.
	Count int
}

// center is a cluster center in joint feature+spatial space.
type center struct {
	feat []float64
	x, y float64
}

// Segment clusters the image into at most targetCount superpixels.
//
// pixels is row-major interleaved 8-bit data with the given dimensions.
// If targetCount is at least the pixel count the clustering degenerates to
// one region per pixel.
func Segment(pixels []uint8, width, height, channels, targetCount int, opts Options) *Result {
	numPixels := width * height
	if targetCount >= numPixels {
		// Degenerate but valid: every pixel is its own region.
		labels := make([]int, numPixels)
		for i := range labels {
			labels[i] = i
		}
		return &Result{Labels: labels, Count: numPixels}
	}
	if targetCount < 1 {
		targetCount = 1
	}
	if opts.Compactness <= 0 {
		opts.Compactness = DefaultOptions().Compactness
	}
	if opts.Iterations < 1 {
		opts.Iterations = DefaultOptions().Iterations
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}

	feats := features(pixels, width, height, channels)
	nf := len(feats) / numPixels

	// Superpixel side length S, so that S*S approximates the region area.
	step := math.Sqrt(float64(numPixels) / float64(targetCount))
	if step < 1 {
		step = 1
	}

	centers := seedCenters(feats, nf, width, height, targetCount, step)
	perturbCenters(centers, feats, nf, width, height)

	labels := make([]int, numPixels)
	dists := make([]float64, numPixels)

	// (m/S)^2 scales squared spatial distance into the color distance range.
	mDivS := (opts.Compactness / step) * (opts.Compactness / step)
	window := int(step)
	if window < 1 {
		window = 1
	}

	for iter := 0; iter < opts.Iterations; iter++ {
		assign(labels, dists, centers, feats, nf, width, height, window, mDivS, opts.Workers)
		moved := update(centers, labels, feats, nf, width)
		if moved < 0.25 {
			break
		}
	}

	relabeled, count := enforceConnectivity(labels, width, height, len(centers))
	if count > targetCount {
		relabeled, count = capRegionCount(relabeled, width, height, count, targetCount)
	}
	return &Result{Labels: relabeled, Count: count}
}

// features converts the raw samples into per-pixel float vectors. RGB input
// is converted to CIE Lab so that color distances are perceptually uniform;
// other channel counts are used as-is.
func features(pixels []uint8, width, height, channels int) []float64 {
	numPixels := width * height
	if channels != 3 {
		out := make([]float64, numPixels*channels)
		for i, v := range pixels {
			out[i] = float64(v)
		}
		return out
	}
	out := make([]float64, numPixels*3)
	for i := 0; i < numPixels; i++ {
		c := colorful.Color{
			R: float64(pixels[i*3]) / 255.0,
			G: float64(pixels[i*3+1]) / 255.0,
			B: float64(pixels[i*3+2]) / 255.0,
		}
		l, a, b := c.Lab()
		// Scale into the conventional Lab ranges so the default
		// compactness behaves like classic SLIC.
		out[i*3] = l * 100
		out[i*3+1] = a * 100
		out[i*3+2] = b * 100
	}
	return out
}

// seedCenters places initial centers on a regular grid spaced by step,
// spreading the residual border evenly across rows and columns.
func seedCenters(feats []float64, nf, width, height, targetCount int, step float64) []center {
	s := int(step + 0.5)
	if s < 1 {
		s = 1
	}
	halfS := (s + 1) / 2

	xSeeds := (width + s - 1) / s
	ySeeds := (height + s - 1) / s
	if s*xSeeds > width && xSeeds > 1 {
		xSeeds--
	}
	if s*ySeeds > height && ySeeds > 1 {
		ySeeds--
	}
	// Never seed more clusters than requested.
	for xSeeds*ySeeds > targetCount {
		if xSeeds >= ySeeds && xSeeds > 1 {
			xSeeds--
		} else if ySeeds > 1 {
			ySeeds--
		} else {
			break
		}
	}

	xCorrect := (float64(width) - float64(xSeeds)*float64(s)) / float64(xSeeds)
	yCorrect := (float64(height) - float64(ySeeds)*float64(s)) / float64(ySeeds)

	centers := make([]center, 0, xSeeds*ySeeds)
	for ydx := 0; ydx < ySeeds; ydx++ {
		y := ydx*s + halfS + int(float64(ydx)*yCorrect)
		for xdx := 0; xdx < xSeeds; xdx++ {
			x := xdx*s + halfS + int(float64(xdx)*xCorrect)
			if x >= width || y >= height {
				continue
			}
			feat := make([]float64, nf)
			copy(feat, feats[(y*width+x)*nf:(y*width+x+1)*nf])
			centers = append(centers, center{feat: feat, x: float64(x), y: float64(y)})
		}
	}
	if len(centers) == 0 {
		x, y := width/2, height/2
		feat := make([]float64, nf)
		copy(feat, feats[(y*width+x)*nf:(y*width+x+1)*nf])
		centers = append(centers, center{feat: feat, x: float64(x), y: float64(y)})
	}
	return centers
}

// perturbCenters moves each seed to the lowest-gradient position within its
// 3x3 neighborhood so that no seed starts on an edge or noisy pixel.
func perturbCenters(centers []center, feats []float64, nf, width, height int) {
	for ci := range centers {
		cx := int(centers[ci].x)
		cy := int(centers[ci].y)
		minGrad := math.Inf(1)
		bestX, bestY := cx, cy
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				x, y := cx+dx, cy+dy
				if x < 0 || x >= width || y < 0 || y >= height {
					continue
				}
				grad := featDist(feats, nf, clampPixel(x+1, y, width, height), clampPixel(x-1, y, width, height)) +
					featDist(feats, nf, clampPixel(x, y+1, width, height), clampPixel(x, y-1, width, height))
				if grad < minGrad {
					minGrad = grad
					bestX, bestY = x, y
				}
			}
		}
		centers[ci].x = float64(bestX)
		centers[ci].y = float64(bestY)
		copy(centers[ci].feat, feats[(bestY*width+bestX)*nf:(bestY*width+bestX+1)*nf])
	}
}

func clampPixel(x, y, width, height int) int {
	if x < 0 {
		x = 0
	}
	if x >= width {
		x = width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= height {
		y = height - 1
	}
	return y*width + x
}

// featDist is the squared distance between two pixel feature vectors.
func featDist(feats []float64, nf, i, j int) float64 {
	sum := 0.0
	for c := 0; c < nf; c++ {
		d := feats[i*nf+c] - feats[j*nf+c]
		sum += d * d
	}
	return sum
}

// assign gives every pixel the label of the nearest center within a 2S x 2S
// window, measuring distance as dColor + (m/S)^2 * dSpatial. The image is
// split into horizontal bands processed by independent workers; each worker
// only writes pixels inside its own band, so no synchronization is needed
// beyond the final barrier.
func assign(labels []int, dists []float64, centers []center, feats []float64, nf, width, height, window int, mDivS float64, workers int) {
	for i := range dists {
		dists[i] = math.Inf(1)
		labels[i] = -1
	}

	if workers > height {
		workers = height
	}
	rowsPerWorker := (height + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		bandY0 := w * rowsPerWorker
		bandY1 := bandY0 + rowsPerWorker
		if bandY1 > height {
			bandY1 = height
		}
		if bandY0 >= bandY1 {
			continue
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			for ci := range centers {
				c := &centers[ci]
				cy0 := int(c.y) - window
				cy1 := int(c.y) + window + 1
				if cy0 < y0 {
					cy0 = y0
				}
				if cy1 > y1 {
					cy1 = y1
				}
				cx0 := int(c.x) - window
				cx1 := int(c.x) + window + 1
				if cx0 < 0 {
					cx0 = 0
				}
				if cx1 > width {
					cx1 = width
				}
				for y := cy0; y < cy1; y++ {
					dy := float64(y) - c.y
					for x := cx0; x < cx1; x++ {
						idx := y*width + x
						dc := 0.0
						for ch := 0; ch < nf; ch++ {
							d := feats[idx*nf+ch] - c.feat[ch]
							dc += d * d
						}
						dx := float64(x) - c.x
						d := dc + mDivS*(dx*dx+dy*dy)
						if d < dists[idx] {
							dists[idx] = d
							labels[idx] = ci
						}
					}
				}
			}
		}(bandY0, bandY1)
	}
	wg.Wait()
}

// update recomputes every center as the mean feature vector and centroid of
// its assigned pixels, returning the total squared center displacement.
func update(centers []center, labels []int, feats []float64, nf, width int) float64 {
	type acc struct {
		feat   []float64
		sx, sy float64
		n      int
	}
	accs := make([]acc, len(centers))
	for i := range accs {
		accs[i].feat = make([]float64, nf)
	}
	for idx, ci := range labels {
		if ci < 0 {
			continue
		}
		a := &accs[ci]
		for c := 0; c < nf; c++ {
			a.feat[c] += feats[idx*nf+c]
		}
		a.sx += float64(idx % width)
		a.sy += float64(idx / width)
		a.n++
	}

	moved := 0.0
	for ci := range centers {
		a := &accs[ci]
		if a.n == 0 {
			continue
		}
		n := float64(a.n)
		nx, ny := a.sx/n, a.sy/n
		dx := nx - centers[ci].x
		dy := ny - centers[ci].y
		moved += dx*dx + dy*dy
		centers[ci].x = nx
		centers[ci].y = ny
		for c := 0; c < nf; c++ {
			centers[ci].feat[c] = a.feat[c] / n
		}
	}
	return moved
}

var (
	dx4 = [4]int{-1, 0, 1, 0}
	dy4 = [4]int{0, -1, 0, 1}
)

// enforceConnectivity relabels the clustering into contiguous connected
// components. Components smaller than a quarter of the nominal superpixel
// area are absorbed into an adjacent region, so no degenerate fragments
// survive. Returned ids are contiguous from 0.
func enforceConnectivity(labels []int, width, height, numCenters int) ([]int, int) {
	numPixels := width * height
	minSize := numPixels / numCenters / 4

	out := make([]int, numPixels)
	for i := range out {
		out[i] = -1
	}

	next := 0
	queue := make([]int, 0, 64)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			start := y*width + x
			if out[start] != -1 {
				continue
			}
			queue = queue[:0]
			queue = append(queue, start)
			out[start] = next

			// Remember a neighboring region to absorb this component
			// into if it turns out too small.
			adj := next
			for k := 0; k < 4; k++ {
				nx, ny := x+dx4[k], y+dy4[k]
				if nx >= 0 && nx < width && ny >= 0 && ny < height && out[ny*width+nx] >= 0 && out[ny*width+nx] != next {
					adj = out[ny*width+nx]
					break
				}
			}

			for qi := 0; qi < len(queue); qi++ {
				cur := queue[qi]
				cx, cy := cur%width, cur/width
				for k := 0; k < 4; k++ {
					nx, ny := cx+dx4[k], cy+dy4[k]
					if nx < 0 || nx >= width || ny < 0 || ny >= height {
						continue
					}
					nIdx := ny*width + nx
					if out[nIdx] == -1 && labels[nIdx] == labels[cur] {
						out[nIdx] = next
						queue = append(queue, nIdx)
					}
				}
			}

			if len(queue) <= minSize && adj != next {
				for _, idx := range queue {
					out[idx] = adj
				}
				continue
			}
			next++
		}
	}
	return out, next
}

// capRegionCount merges the smallest regions into adjacent ones until at
// most target regions remain. Connectivity cleanup can split a cluster into
// several surviving components, which would otherwise push the region count
// past the requested target.
func capRegionCount(labels []int, width, height, count, target int) ([]int, int) {
	sizes := make([]int, count)
	neighbor := make([]int, count)
	for i := range neighbor {
		neighbor[i] = -1
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			id := labels[y*width+x]
			sizes[id]++
			if x+1 < width && labels[y*width+x+1] != id {
				neighbor[id] = labels[y*width+x+1]
				neighbor[labels[y*width+x+1]] = id
			}
			if y+1 < height && labels[(y+1)*width+x] != id {
				neighbor[id] = labels[(y+1)*width+x]
				neighbor[labels[(y+1)*width+x]] = id
			}
		}
	}

	order := make([]int, count)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		if sizes[order[i]] != sizes[order[j]] {
			return sizes[order[i]] < sizes[order[j]]
		}
		return order[i] < order[j]
	})

	merge := make([]int, count)
	for i := range merge {
		merge[i] = i
	}
	resolve := func(id int) int {
		for merge[id] != id {
			id = merge[id]
		}
		return id
	}
	merged := 0
	for _, id := range order {
		if count-merged <= target {
			break
		}
		if neighbor[id] < 0 {
			continue
		}
		nb := resolve(neighbor[id])
		if nb == id {
			continue
		}
		merge[id] = nb
		merged++
	}

	// Renumber the surviving regions contiguously from 0.
	remap := make([]int, count)
	for i := range remap {
		remap[i] = -1
	}
	next := 0
	for i := 0; i < count; i++ {
		if resolve(i) == i {
			remap[i] = next
			next++
		}
	}
	out := make([]int, len(labels))
	for i, id := range labels {
		out[i] = remap[resolve(id)]
	}
	return out, next
}
