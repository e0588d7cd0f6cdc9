// Package render turns the latest scene's clipped LST band into a PNG
// heatmap for display alongside the statistics.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"

	"github.com/lox/surftemp/internal/raster"
)

// Thermal ramp stops, cold to hot.
var rampStops = []color.NRGBA{
	{R: 0x31, G: 0x36, B: 0x95, A: 0xff}, // deep blue
	{R: 0x45, G: 0x75, B: 0xb4, A: 0xff},
	{R: 0xab, G: 0xd9, B: 0xe9, A: 0xff},
	{R: 0xff, G: 0xff, B: 0xbf, A: 0xff},
	{R: 0xfd, G: 0xae, B: 0x61, A: 0xff},
	{R: 0xd7, G: 0x30, B: 0x27, A: 0xff}, // deep red
}

// Heatmap renders the grid's LST band. Invalid pixels are transparent;
// valid pixels are colored on a ramp stretched between the grid's own min
// and max. maxWidth bounds the output size; larger grids are downscaled
// with bilinear interpolation.
func Heatmap(g *raster.Grid, maxWidth int) (image.Image, error) {
	if g.LST == nil {
		return nil, fmt.Errorf("grid has no derived LST band")
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range g.LST {
		if !g.Valid[i] {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo > hi {
		return nil, fmt.Errorf("grid has no valid pixels to render")
	}

	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			i := y*g.Width + x
			if !g.Valid[i] {
				continue
			}
			t := 0.0
			if hi > lo {
				t = (g.LST[i] - lo) / (hi - lo)
			}
			img.SetNRGBA(x, y, rampColor(t))
		}
	}

	if maxWidth > 0 && g.Width > maxWidth {
		scale := float64(maxWidth) / float64(g.Width)
		dst := image.NewNRGBA(image.Rect(0, 0, maxWidth, int(float64(g.Height)*scale)))
		draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
		return dst, nil
	}
	return img, nil
}

// WritePNG renders the heatmap and encodes it.
func WritePNG(w io.Writer, g *raster.Grid, maxWidth int) error {
	img, err := Heatmap(g, maxWidth)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// rampColor interpolates the ramp at t in [0, 1].
func rampColor(t float64) color.NRGBA {
	if t <= 0 {
		return rampStops[0]
	}
	if t >= 1 {
		return rampStops[len(rampStops)-1]
	}
	pos := t * float64(len(rampStops)-1)
	i := int(pos)
	f := pos - float64(i)
	a, b := rampStops[i], rampStops[i+1]
	lerp := func(x, y uint8) uint8 { return uint8(float64(x) + f*(float64(y)-float64(x))) }
	return color.NRGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 0xff}
}
