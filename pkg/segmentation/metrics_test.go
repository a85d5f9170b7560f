package segmentation

import (
	"errors"
	"math"
	"testing"
)

func TestComputeMetricsTwoRegions(t *testing.T) {
	// The partition follows the intensity step exactly, so the region-mean
	// approximation reproduces the image.
	pixels := []uint8{10, 10, 200, 200}
	labels := []int{0, 0, 1, 1}

	m, err := ComputeMetrics(pixels, 2, 2, 1, labels)
	if err != nil {
		t.Fatalf("ComputeMetrics failed: %v", err)
	}

	if m.Regions != 2 {
		t.Errorf("Expected 2 regions, got %d", m.Regions)
	}
	if math.Abs(m.ExplainedVariation-1) > 1e-12 {
		t.Errorf("Expected explained variation 1, got %f", m.ExplainedVariation)
	}
	// Only the top row borders the other region.
	if m.BoundaryDensity != 0.5 {
		t.Errorf("Expected boundary density 0.5, got %f", m.BoundaryDensity)
	}
	if m.MeanRegionSize != 2 {
		t.Errorf("Expected mean region size 2, got %f", m.MeanRegionSize)
	}
	if m.RegionSizeStdDev != 0 {
		t.Errorf("Expected zero size deviation, got %f", m.RegionSizeStdDev)
	}
}

func TestComputeMetricsConstantImage(t *testing.T) {
	pixels := []uint8{50, 50, 50, 50}
	labels := []int{0, 0, 0, 0}

	m, err := ComputeMetrics(pixels, 2, 2, 1, labels)
	if err != nil {
		t.Fatalf("ComputeMetrics failed: %v", err)
	}
	if m.ExplainedVariation != 1 {
		t.Errorf("Constant image: expected explained variation 1, got %f", m.ExplainedVariation)
	}
	if m.BoundaryDensity != 0 {
		t.Errorf("Single region: expected no boundary pixels, got %f", m.BoundaryDensity)
	}
	if m.RegionSizeStdDev != 0 {
		t.Errorf("Single region: expected zero size deviation, got %f", m.RegionSizeStdDev)
	}
}

func TestComputeMetricsPartialExplanation(t *testing.T) {
	// One region over a non-constant image explains none of the variance.
	pixels := []uint8{0, 100, 0, 100}
	labels := []int{0, 0, 0, 0}

	m, err := ComputeMetrics(pixels, 2, 2, 1, labels)
	if err != nil {
		t.Fatalf("ComputeMetrics failed: %v", err)
	}
	if m.ExplainedVariation != 0 {
		t.Errorf("Expected explained variation 0, got %f", m.ExplainedVariation)
	}
}

func TestComputeMetricsValidation(t *testing.T) {
	if _, err := ComputeMetrics(nil, 0, 2, 1, nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Expected ErrEmptyInput, got %v", err)
	}
	if _, err := ComputeMetrics(make([]uint8, 3), 2, 2, 1, make([]int, 4)); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Expected ErrInvalidDimensions, got %v", err)
	}
	if _, err := ComputeMetrics(make([]uint8, 4), 2, 2, 1, make([]int, 2)); !errors.Is(err, ErrInvalidLabels) {
		t.Errorf("Expected ErrInvalidLabels, got %v", err)
	}
}
