package render

import (
	"bytes"
	"testing"
)

func TestRenderMeanColor(t *testing.T) {
	// Two regions of two pixels each, means 20 and 110.
	pixels := []uint8{10, 30, 100, 120}
	labels := []int{0, 0, 1, 1}

	out, err := Render(pixels, 2, 2, 1, labels, StyleMeanColor)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(out) != 16 {
		t.Fatalf("Expected 16 bytes, got %d", len(out))
	}

	wantMeans := []uint8{20, 20, 110, 110}
	for i, want := range wantMeans {
		r, g, b, a := out[i*4], out[i*4+1], out[i*4+2], out[i*4+3]
		if r != want || g != want || b != want {
			t.Errorf("Pixel %d: expected gray %d, got (%d,%d,%d)", i, want, r, g, b)
		}
		if a != 255 {
			t.Errorf("Pixel %d: expected opaque alpha, got %d", i, a)
		}
	}
}

func TestRenderMeanColorRGB(t *testing.T) {
	// One region covering both pixels; channel means 15, 25, 35.
	pixels := []uint8{10, 20, 30, 20, 30, 40}
	labels := []int{0, 0}

	out, err := Render(pixels, 2, 1, 3, labels, StyleMeanColor)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if out[i*4] != 15 || out[i*4+1] != 25 || out[i*4+2] != 35 {
			t.Errorf("Pixel %d: expected (15,25,35), got (%d,%d,%d)",
				i, out[i*4], out[i*4+1], out[i*4+2])
		}
	}
}

func TestRenderTwoChannelAveragesGray(t *testing.T) {
	// Both channels contribute to the displayed gray value.
	pixels := []uint8{100, 200, 100, 200}
	labels := []int{0, 1}

	out, err := Render(pixels, 2, 1, 2, labels, StyleContours)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	// Pixel 1 has no differing right or down neighbor and keeps its
	// source gray, the rounded channel average.
	if out[4] != 150 || out[5] != 150 || out[6] != 150 {
		t.Errorf("Expected gray 150, got (%d,%d,%d)", out[4], out[5], out[6])
	}
}

func TestRenderPaletteDeterministic(t *testing.T) {
	pixels := make([]uint8, 4)
	labels := []int{0, 7, 0, 7}

	a, err := Render(pixels, 2, 2, 1, labels, StylePalette)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	b, err := Render(pixels, 2, 2, 1, labels, StylePalette)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("Palette render should be deterministic")
	}

	// Same id, same color; different ids, different colors.
	if a[0] != a[8] || a[1] != a[9] || a[2] != a[10] {
		t.Error("Pixels sharing a label should share a color")
	}
	if a[0] == a[4] && a[1] == a[5] && a[2] == a[6] {
		t.Error("Labels 0 and 7 should map to distinct colors")
	}
}

func TestRenderPaletteIgnoresPosition(t *testing.T) {
	pixels := make([]uint8, 4)
	a, _ := Render(pixels, 2, 2, 1, []int{3, 0, 0, 0}, StylePalette)
	b, _ := Render(pixels, 2, 2, 1, []int{0, 0, 0, 3}, StylePalette)

	// Label 3 gets the same color wherever it appears.
	if a[0] != b[12] || a[1] != b[13] || a[2] != b[14] {
		t.Error("Label color should depend on the id only")
	}
}

func TestRenderContours(t *testing.T) {
	pixels := []uint8{50, 60, 70, 80}
	labels := []int{0, 1, 0, 1}

	out, err := Render(pixels, 2, 2, 1, labels, StyleContours)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	// Pixels 0 and 2 border a differing right neighbor and turn black;
	// pixels 1 and 3 keep their source gray.
	for _, i := range []int{0, 2} {
		if out[i*4] != 0 || out[i*4+1] != 0 || out[i*4+2] != 0 {
			t.Errorf("Pixel %d: expected contour color, got (%d,%d,%d)",
				i, out[i*4], out[i*4+1], out[i*4+2])
		}
	}
	for _, i := range []int{1, 3} {
		want := pixels[i]
		if out[i*4] != want {
			t.Errorf("Pixel %d: expected source value %d, got %d", i, want, out[i*4])
		}
	}
}

func TestRenderValidation(t *testing.T) {
	if _, err := Render([]uint8{1, 2}, 2, 2, 1, []int{0, 0, 0, 0}, StyleMeanColor); err == nil {
		t.Error("Expected error for short pixel buffer")
	}
	if _, err := Render(make([]uint8, 4), 2, 2, 1, []int{0, 0}, StyleMeanColor); err == nil {
		t.Error("Expected error for short label array")
	}
}
