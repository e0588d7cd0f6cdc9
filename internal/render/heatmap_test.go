package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/lox/surftemp/internal/raster"
)

func testGrid() *raster.Grid {
	g := raster.NewGrid(4, 4, 0, 1, 0.25)
	lst := make([]float64, 16)
	for i := range lst {
		lst[i] = 20.0 + float64(i)
	}
	g.LST = lst
	return g
}

func TestHeatmap(t *testing.T) {
	g := testGrid()
	g.Valid[0] = false

	img, err := Heatmap(g, 0)
	if err != nil {
		t.Fatalf("Heatmap: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 4 || b.Dy() != 4 {
		t.Fatalf("size = %dx%d, want 4x4", b.Dx(), b.Dy())
	}

	_, _, _, a := img.At(0, 0).RGBA()
	if a != 0 {
		t.Error("invalid pixel should be transparent")
	}
	_, _, _, a = img.At(1, 0).RGBA()
	if a == 0 {
		t.Error("valid pixel should be opaque")
	}

	// Coldest valid pixel sits at the bottom of the ramp, hottest at the top.
	coldest := color.NRGBAModel.Convert(img.At(1, 0))
	if coldest != rampStops[0] {
		t.Errorf("coldest pixel = %v, want %v", coldest, rampStops[0])
	}
	hottest := color.NRGBAModel.Convert(img.At(3, 3))
	if hottest != rampStops[len(rampStops)-1] {
		t.Errorf("hottest pixel = %v, want %v", hottest, rampStops[len(rampStops)-1])
	}
}

func TestHeatmapDownscales(t *testing.T) {
	g := raster.NewGrid(100, 50, 0, 1, 0.001)
	lst := make([]float64, 100*50)
	for i := range lst {
		lst[i] = 25.0
	}
	g.LST = lst

	img, err := Heatmap(g, 40)
	if err != nil {
		t.Fatalf("Heatmap: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 40 || b.Dy() != 20 {
		t.Errorf("size = %dx%d, want 40x20", b.Dx(), b.Dy())
	}
}

func TestHeatmapErrors(t *testing.T) {
	t.Run("no LST band", func(t *testing.T) {
		g := raster.NewGrid(2, 2, 0, 1, 0.5)
		if _, err := Heatmap(g, 0); err == nil {
			t.Error("expected error for missing LST band")
		}
	})

	t.Run("no valid pixels", func(t *testing.T) {
		g := raster.NewGrid(2, 2, 0, 1, 0.5)
		g.LST = make([]float64, 4)
		for i := range g.Valid {
			g.Valid[i] = false
		}
		if _, err := Heatmap(g, 0); err == nil {
			t.Error("expected error for all-invalid grid")
		}
	})
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, testGrid(), 0); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Errorf("output is not a decodable PNG: %v", err)
	}
}
