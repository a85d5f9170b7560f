package segmentation

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Metrics holds segmentation quality measures computed from a label map
// against its source image. They are diagnostic only; nothing in the
// pipeline depends on them.
type Metrics struct {
	// Regions is the number of distinct labels.
	Regions int

	// ExplainedVariation is the fraction of per-pixel intensity variance
	// captured by replacing each pixel with its region mean. 1 means the
	// segmentation reproduces the image exactly; 0 means it explains
	// nothing. Constant images report 1.
	ExplainedVariation float64

	// BoundaryDensity is the fraction of pixels lying on a region
	// boundary. Lower values indicate smoother partitions at a given
	// region count.
	BoundaryDensity float64

	// MeanRegionSize and RegionSizeStdDev summarize the region area
	// distribution in pixels.
	MeanRegionSize   float64
	RegionSizeStdDev float64
}

// ComputeMetrics evaluates a label map against its source image.
func ComputeMetrics(pixels []uint8, width, height, channels int, labels []int) (*Metrics, error) {
	if width <= 0 || height <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%dx%d", ErrEmptyInput, width, height, channels)
	}
	if len(pixels) != width*height*channels {
		return nil, fmt.Errorf("%w: have %d bytes, want %d", ErrInvalidDimensions, len(pixels), width*height*channels)
	}
	if len(labels) != width*height {
		return nil, fmt.Errorf("%w: have %d labels, want %d", ErrInvalidLabels, len(labels), width*height)
	}

	numPixels := width * height

	// Per-pixel intensity, averaged across channels.
	intensity := make([]float64, numPixels)
	for i := 0; i < numPixels; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += float64(pixels[i*channels+c])
		}
		intensity[i] = sum / float64(channels)
	}

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for i, id := range labels {
		sums[id] += intensity[i]
		counts[id]++
	}

	approx := make([]float64, numPixels)
	for i, id := range labels {
		approx[i] = sums[id] / float64(counts[id])
	}

	totalVar := stat.Variance(intensity, nil)
	explained := 1.0
	if totalVar > 0 {
		explained = stat.Variance(approx, nil) / totalVar
		if explained > 1 {
			explained = 1
		}
	}

	boundary := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if (x+1 < width && labels[i+1] != labels[i]) ||
				(y+1 < height && labels[i+width] != labels[i]) {
				boundary++
			}
		}
	}

	sizes := make([]float64, 0, len(counts))
	for _, n := range counts {
		sizes = append(sizes, float64(n))
	}
	sizeStdDev := 0.0
	if len(sizes) > 1 {
		sizeStdDev = stat.StdDev(sizes, nil)
	}

	return &Metrics{
		Regions:            len(counts),
		ExplainedVariation: explained,
		BoundaryDensity:    float64(boundary) / float64(numPixels),
		MeanRegionSize:     stat.Mean(sizes, nil),
		RegionSizeStdDev:   sizeStdDev,
	}, nil
}
