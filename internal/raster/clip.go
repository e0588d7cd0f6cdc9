package raster

import "github.com/lox/surftemp/internal/geo"

// Clip invalidates every pixel whose center falls outside the geometry.
// Used to restrict the latest scene's LST band to the area of interest
// before rendering.
func Clip(g *Grid, aoi *geo.Geometry) {
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			i := y*g.Width + x
			if !g.Valid[i] {
				continue
			}
			lon, lat := g.CellCenter(x, y)
			if !aoi.Contains(lon, lat) {
				g.Valid[i] = false
			}
		}
	}
}
