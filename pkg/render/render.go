// Package render turns flat label maps into RGBA bitmaps for display.
// Colors are a deterministic function of the label id and source pixels
// only, so a region keeps its color across different cut levels and
// repeated renders of the same inputs are byte-identical.
package render

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Style selects how label ids map to display colors.
type Style int

const (
	// StyleMeanColor fills every region with the mean source color of its
	// pixels.
	StyleMeanColor Style = iota

	// StylePalette fills every region with a color hashed from its label
	// id into HSV space. Ids map to the same color regardless of which
	// image or cut level produced them.
	StylePalette

	// StyleContours copies the source image and draws region boundaries
	// in a solid color.
	StyleContours
)

// contourColor is the boundary color for StyleContours.
var contourColor = [3]uint8{0, 0, 0}

// Render maps a label array to an RGBA bitmap of width*height*4 bytes.
// pixels is the row-major interleaved source data; labels must hold one id
// per pixel. Label ids may be arbitrary non-negative integers (cut
// frontiers are not renumbered).
func Render(pixels []uint8, width, height, channels int, labels []int, style Style) ([]uint8, error) {
	if len(labels) != width*height {
		return nil, fmt.Errorf("label array length %d does not match %dx%d image", len(labels), width, height)
	}
	if len(pixels) != width*height*channels {
		return nil, fmt.Errorf("pixel buffer length %d does not match %dx%dx%d image", len(pixels), width, height, channels)
	}

	switch style {
	case StylePalette:
		return renderPalette(width, height, labels), nil
	case StyleContours:
		return renderContours(pixels, width, height, channels, labels), nil
	default:
		return renderMeanColor(pixels, width, height, channels, labels), nil
	}
}

// sourceRGB reads pixel i of the source as RGB. Images with fewer than
// three channels render as gray, averaging the available channels.
func sourceRGB(pixels []uint8, channels, i int) (uint8, uint8, uint8) {
	off := i * channels
	if channels >= 3 {
		return pixels[off], pixels[off+1], pixels[off+2]
	}
	sum := 0
	for c := 0; c < channels; c++ {
		sum += int(pixels[off+c])
	}
	v := uint8((sum + channels/2) / channels)
	return v, v, v
}

func renderMeanColor(pixels []uint8, width, height, channels int, labels []int) []uint8 {
	type acc struct {
		r, g, b float64
		n       int
	}
	accs := make(map[int]*acc)
	for i, id := range labels {
		a := accs[id]
		if a == nil {
			a = &acc{}
			accs[id] = a
		}
		r, g, b := sourceRGB(pixels, channels, i)
		a.r += float64(r)
		a.g += float64(g)
		a.b += float64(b)
		a.n++
	}

	means := make(map[int][3]uint8, len(accs))
	for id, a := range accs {
		n := float64(a.n)
		means[id] = [3]uint8{uint8(a.r/n + 0.5), uint8(a.g/n + 0.5), uint8(a.b/n + 0.5)}
	}

	out := make([]uint8, width*height*4)
	for i, id := range labels {
		c := means[id]
		out[i*4] = c[0]
		out[i*4+1] = c[1]
		out[i*4+2] = c[2]
		out[i*4+3] = 255
	}
	return out
}

// labelColor hashes a label id to a stable, visually distinct color.
// A multiplicative integer hash spreads consecutive ids across the hue
// circle; saturation and value stay in a readable band.
func labelColor(id int) [3]uint8 {
	h := uint64(id) * 0x9e3779b97f4a7c15
	h ^= h >> 31
	hue := float64(h%3600) / 10.0
	sat := 0.55 + float64((h>>16)%30)/100.0
	val := 0.75 + float64((h>>24)%20)/100.0
	c := colorful.Hsv(hue, sat, val)
	r, g, b := c.RGB255()
	return [3]uint8{r, g, b}
}

func renderPalette(width, height int, labels []int) []uint8 {
	colors := make(map[int][3]uint8)
	out := make([]uint8, width*height*4)
	for i, id := range labels {
		c, ok := colors[id]
		if !ok {
			c = labelColor(id)
			colors[id] = c
		}
		out[i*4] = c[0]
		out[i*4+1] = c[1]
		out[i*4+2] = c[2]
		out[i*4+3] = 255
	}
	return out
}

func renderContours(pixels []uint8, width, height, channels int, labels []int) []uint8 {
	out := make([]uint8, width*height*4)
	for i := range labels {
		r, g, b := sourceRGB(pixels, channels, i)
		out[i*4] = r
		out[i*4+1] = g
		out[i*4+2] = b
		out[i*4+3] = 255
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			boundary := (x+1 < width && labels[i+1] != labels[i]) ||
				(y+1 < height && labels[i+width] != labels[i])
			if boundary {
				out[i*4] = contourColor[0]
				out[i*4+1] = contourColor[1]
				out[i*4+2] = contourColor[2]
			}
		}
	}
	return out
}
