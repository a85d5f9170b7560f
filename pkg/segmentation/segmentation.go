// Package segmentation wires the full multiscale segmentation pipeline:
// superpixel initialization, region-adjacency graph construction, merge
// hierarchy building, threshold cuts and rendering. It is the package
// callers are expected to use; the stage packages remain available for
// finer control.
package segmentation

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"

	"hierseg/internal/models"
	"hierseg/pkg/hierarchy"
	"hierseg/pkg/regiongraph"
	"hierseg/pkg/render"
	"hierseg/pkg/slic"
)

// Error kinds reported for caller contract violations. All input validation
// happens before any hierarchy state is allocated; there is no partial
// result to recover.
var (
	// ErrInvalidDimensions reports a buffer whose length does not match
	// the stated width, height and channel count.
	ErrInvalidDimensions = errors.New("buffer length does not match dimensions")

	// ErrEmptyInput reports zero width, height, channels or target
	// region count.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidLabels reports a label array whose length does not match
	// the image.
	ErrInvalidLabels = errors.New("label array length does not match image")

	// ErrUnsupportedBitDepth reports source images deeper than 8 bits
	// per channel. Detection happens at the models.FromImage boundary.
	ErrUnsupportedBitDepth = models.ErrUnsupportedBitDepth
)

// Params holds the tunable parameters of the pipeline.
type Params struct {
	// Compactness is the SLIC spatial/color tradeoff.
	Compactness float64

	// Iterations caps the SLIC assign/update loop.
	Iterations int

	// Criterion selects the merge dissimilarity.
	Criterion hierarchy.Criterion

	// Workers bounds internal parallelism. Zero means one per CPU.
	Workers int

	// RenderStyle selects how labels map to display colors.
	RenderStyle render.Style
}

// DefaultParams returns the standard pipeline configuration.
func DefaultParams() Params {
	return Params{
		Compactness: 10.0,
		Iterations:  10,
		Criterion:   hierarchy.CriterionMumfordShah,
		Workers:     runtime.NumCPU(),
		RenderStyle: render.StyleMeanColor,
	}
}

// Segmenter runs the pipeline over one image and caches the built
// hierarchy so repeated interactive cuts stay cheap. The build is a single
// synchronous computation; once built, Cut and Render only read immutable
// state and may be called concurrently.
type Segmenter struct {
	params Params
	buf    *models.PixelBuffer
	hier   *hierarchy.Hierarchy
}

// NewSegmenter creates a segmenter over the given image.
func NewSegmenter(buf *models.PixelBuffer, params Params) *Segmenter {
	return &Segmenter{params: params, buf: buf}
}

// Build runs superpixel initialization, graph construction and hierarchy
// building for the given target region count, caching the result.
func (s *Segmenter) Build(targetRegions int) (*hierarchy.Hierarchy, error) {
	if err := validate(s.buf.Data, s.buf.Width, s.buf.Height, s.buf.Channels, targetRegions); err != nil {
		return nil, err
	}

	start := time.Now()
	opts := slic.DefaultOptions()
	opts.Compactness = s.params.Compactness
	opts.Iterations = s.params.Iterations
	if s.params.Workers > 0 {
		opts.Workers = s.params.Workers
	}

	res := slic.Segment(s.buf.Data, s.buf.Width, s.buf.Height, s.buf.Channels, targetRegions, opts)
	log.WithFields(log.Fields{
		"stage":   "slic",
		"regions": res.Count,
		"elapsed": time.Since(start),
	}).Info("superpixels computed")

	g, err := regiongraph.Build(s.buf.Data, s.buf.Width, s.buf.Height, s.buf.Channels, res.Labels, res.Count)
	if err != nil {
		return nil, fmt.Errorf("building region graph: %w", err)
	}
	log.WithFields(log.Fields{
		"stage": "graph",
		"nodes": g.NumRegions(),
		"edges": g.NumEdges(),
	}).Info("region graph built")

	s.hier = hierarchy.Build(g, res.Labels, s.buf.Width, s.buf.Height, s.params.Criterion)
	log.WithFields(log.Fields{
		"stage":    "hierarchy",
		"maxLevel": s.hier.MaxLevel(),
		"elapsed":  time.Since(start),
	}).Info("hierarchy built")

	return s.hier, nil
}

// Hierarchy returns the cached hierarchy, or nil before Build.
func (s *Segmenter) Hierarchy() *hierarchy.Hierarchy {
	return s.hier
}

// CutAt cuts the cached hierarchy at the given level.
func (s *Segmenter) CutAt(level float64) (*models.LabelMap, error) {
	if s.hier == nil {
		return nil, errors.New("hierarchy not built")
	}
	return &models.LabelMap{
		Labels: s.hier.Cut(level),
		Width:  s.buf.Width,
		Height: s.buf.Height,
	}, nil
}

// RenderLabels renders a label map against the segmenter's source image.
func (s *Segmenter) RenderLabels(lm *models.LabelMap) ([]uint8, error) {
	if len(lm.Labels) != s.buf.NumPixels() {
		return nil, ErrInvalidLabels
	}
	return render.Render(s.buf.Data, s.buf.Width, s.buf.Height, s.buf.Channels, lm.Labels, s.params.RenderStyle)
}

// validate checks the caller input contract shared by all entry points.
func validate(pixels []uint8, width, height, channels, targetRegions int) error {
	if width <= 0 || height <= 0 || channels <= 0 {
		return fmt.Errorf("%w: dimensions %dx%dx%d", ErrEmptyInput, width, height, channels)
	}
	if targetRegions <= 0 {
		return fmt.Errorf("%w: target region count %d", ErrEmptyInput, targetRegions)
	}
	if len(pixels) != width*height*channels {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrInvalidDimensions, len(pixels), width*height*channels)
	}
	return nil
}

// BuildHierarchy runs the construction half of the pipeline and returns the
// read-only hierarchy. Target counts above the pixel count clamp to one
// region per pixel rather than failing.
func BuildHierarchy(pixels []uint8, width, height, channels, targetRegions int, params Params) (*hierarchy.Hierarchy, error) {
	if err := validate(pixels, width, height, channels, targetRegions); err != nil {
		return nil, err
	}
	buf, err := models.NewPixelBuffer(pixels, width, height, channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDimensions, err)
	}
	return NewSegmenter(buf, params).Build(targetRegions)
}

// CutHierarchy cuts a built hierarchy at the given level, clamped into
// [0, MaxLevel]. Pure; safe to call concurrently on the same hierarchy.
func CutHierarchy(h *hierarchy.Hierarchy, level float64) []int {
	return h.Cut(level)
}

// DisplayLabels renders a label array over the source image and returns an
// RGBA bitmap of width*height*4 bytes.
func DisplayLabels(pixels []uint8, width, height, channels int, labels []int) ([]uint8, error) {
	if width <= 0 || height <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%dx%d", ErrEmptyInput, width, height, channels)
	}
	if len(pixels) != width*height*channels {
		return nil, fmt.Errorf("%w: have %d bytes, want %d", ErrInvalidDimensions, len(pixels), width*height*channels)
	}
	if len(labels) != width*height {
		return nil, fmt.Errorf("%w: have %d labels, want %d", ErrInvalidLabels, len(labels), width*height)
	}
	return render.Render(pixels, width, height, channels, labels, render.StyleMeanColor)
}

// HierarchicalSegmentation is the one-call convenience path: build the
// hierarchy, cut it to approximately targetRegions regions, and render the
// result with the default style.
func HierarchicalSegmentation(pixels []uint8, width, height, channels, targetRegions int) ([]uint8, error) {
	h, err := BuildHierarchy(pixels, width, height, channels, targetRegions, DefaultParams())
	if err != nil {
		return nil, err
	}
	labels := h.CutToCount(targetRegions)
	return DisplayLabels(pixels, width, height, channels, labels)
}

// SLIC exposes superpixel initialization plus rendering without the merge
// hierarchy, drawing region contours over the source image.
func SLIC(pixels []uint8, width, height, channels, numSuperpixels int, compactness float64) ([]uint8, error) {
	if err := validate(pixels, width, height, channels, numSuperpixels); err != nil {
		return nil, err
	}
	opts := slic.DefaultOptions()
	if compactness > 0 {
		opts.Compactness = compactness
	}
	res := slic.Segment(pixels, width, height, channels, numSuperpixels, opts)
	return render.Render(pixels, width, height, channels, res.Labels, render.StyleContours)
}
