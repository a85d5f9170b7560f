// Package models defines the plain data carriers shared across the
// segmentation pipeline: raw pixel buffers and flat label maps.
package models

import (
	"errors"
	"fmt"
	"image"
)

// ErrUnsupportedBitDepth is returned when a source image carries more than
// 8 bits per channel. The segmentation core only operates on single-byte
// samples, so deeper images are rejected before any conversion happens.
var ErrUnsupportedBitDepth = errors.New("unsupported bit depth: images must be 8 bits per channel")

// PixelBuffer holds a raster image as row-major interleaved 8-bit samples.
// The buffer is treated as immutable once constructed; every pipeline stage
// reads from it and produces freshly owned results.
type PixelBuffer struct {
	// Data is the sample data, len = Width*Height*Channels, interleaved
	// per pixel in row-major order.
	Data []uint8

	// Width and Height are the image dimensions in pixels.
	Width  int
	Height int

	// Channels is the number of samples per pixel (1 for grayscale,
	// 3 for RGB).
	Channels int
}

// NewPixelBuffer wraps an existing sample slice, validating that its length
// matches the stated dimensions.
func NewPixelBuffer(data []uint8, width, height, channels int) (*PixelBuffer, error) {
	if width <= 0 || height <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%dx%d", width, height, channels)
	}
	if len(data) != width*height*channels {
		return nil, fmt.Errorf("buffer length %d does not match dimensions %dx%dx%d",
			len(data), width, height, channels)
	}
	return &PixelBuffer{Data: data, Width: width, Height: height, Channels: channels}, nil
}

// FromImage converts a decoded image into a PixelBuffer. Grayscale images
// become single-channel buffers; everything else is converted to 3-channel
// RGB. Images with 16-bit samples are rejected with ErrUnsupportedBitDepth.
func FromImage(img image.Image) (*PixelBuffer, error) {
	switch img.(type) {
	case *image.Gray16, *image.RGBA64, *image.NRGBA64:
		return nil, ErrUnsupportedBitDepth
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if gray, ok := img.(*image.Gray); ok {
		data := make([]uint8, width*height)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				data[y*width+x] = gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y
			}
		}
		return NewPixelBuffer(data, width, height, 1)
	}

	data := make([]uint8, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			off := (y*width + x) * 3
			data[off] = uint8(r >> 8)
			data[off+1] = uint8(g >> 8)
			data[off+2] = uint8(b >> 8)
		}
	}
	return NewPixelBuffer(data, width, height, 3)
}

// Sample returns channel c of the pixel at (x, y). No bounds checking.
func (p *PixelBuffer) Sample(x, y, c int) uint8 {
	return p.Data[(y*p.Width+x)*p.Channels+c]
}

// NumPixels returns the total pixel count.
func (p *PixelBuffer) NumPixels() int {
	return p.Width * p.Height
}

// LabelMap assigns one region id to every pixel of an image. A LabelMap is
// produced fresh by every hierarchy cut and never mutated afterwards.
type LabelMap struct {
	// Labels holds one region id per pixel in row-major order.
	Labels []int

	// Width and Height match the source image dimensions.
	Width  int
	Height int
}

// NumRegions counts the distinct region ids present in the map.
func (l *LabelMap) NumRegions() int {
	seen := make(map[int]struct{})
	for _, id := range l.Labels {
		seen[id] = struct{}{}
	}
	return len(seen)
}
