// Package raster holds the in-memory form of a decoded scene and the
// per-pixel transforms applied to it: QA cloud masking, LST derivation, and
// clipping to a geometry.
package raster

// Grid is one scene's decoded rasters on a north-up grid. DN and QA are the
// source bands and are never mutated; LST is appended by DeriveLST, and Valid
// only ever shrinks.
type Grid struct {
	Width  int
	Height int

	// Upper-left corner in WGS84 and square pixel size in degrees.
	OriginLon    float64
	OriginLat    float64
	PixelSizeDeg float64

	DN    []uint16  // raw thermal digital numbers, row-major
	QA    []uint16  // pixel quality bit-flags
	LST   []float64 // derived surface temperature, °C; nil until DeriveLST
	Valid []bool
}

// NewGrid allocates a grid with all pixels valid.
func NewGrid(width, height int, originLon, originLat, pixelSizeDeg float64) *Grid {
	n := width * height
	valid := make([]bool, n)
	for i := range valid {
		valid[i] = true
	}
	return &Grid{
		Width:        width,
		Height:       height,
		OriginLon:    originLon,
		OriginLat:    originLat,
		PixelSizeDeg: pixelSizeDeg,
		DN:           make([]uint16, n),
		QA:           make([]uint16, n),
		Valid:        valid,
	}
}

// CellCenter returns the WGS84 coordinate of the pixel center at (x, y).
func (g *Grid) CellCenter(x, y int) (lon, lat float64) {
	lon = g.OriginLon + (float64(x)+0.5)*g.PixelSizeDeg
	lat = g.OriginLat - (float64(y)+0.5)*g.PixelSizeDeg
	return
}

// ValidCount returns the number of pixels still valid.
func (g *Grid) ValidCount() int {
	n := 0
	for _, v := range g.Valid {
		if v {
			n++
		}
	}
	return n
}
