// Package extract computes zonal statistics of a scene's LST band over an
// area of interest.
package extract

import (
	"database/sql"
	"errors"
	"math"

	"github.com/lox/surftemp/internal/geo"
	"github.com/lox/surftemp/internal/raster"
)

// ErrPixelLimit is returned when the region exceeds the pixel budget and
// best-effort degradation is disabled.
var ErrPixelLimit = errors.New("region exceeds pixel budget")

// Meters per degree of latitude, used to translate the sampling scale into
// a grid stride.
const metersPerDegree = 111320.0

// Options control the sampling of the region.
type Options struct {
	// ScaleMeters is the target sampling resolution. At the native 30 m
	// it visits every pixel.
	ScaleMeters float64
	// MaxPixels bounds how many pixels one extraction may visit.
	MaxPixels int64
	// BestEffort coarsens the sampling stride until the region fits the
	// budget instead of failing.
	BestEffort bool
}

// Stats is the spatial aggregate for one scene: mean and population
// standard deviation of the LST band over the geometry, plus the number of
// valid pixels sampled. Mean and StdDev are invalid when no valid pixel
// fell inside the region.
type Stats struct {
	Mean   sql.NullFloat64
	StdDev sql.NullFloat64
	Count  int64
}

// RegionStats aggregates the LST band over the geometry. Pixels count when
// their center lies inside the geometry and they survived masking. The grid
// must already have its LST band derived.
func RegionStats(g *raster.Grid, aoi *geo.Geometry, opts Options) (Stats, error) {
	minLon, minLat, maxLon, maxLat := aoi.Bounds()

	// Pixel window covering the geometry bounds, clamped to the grid.
	x0 := int(math.Floor((minLon - g.OriginLon) / g.PixelSizeDeg))
	x1 := int(math.Ceil((maxLon - g.OriginLon) / g.PixelSizeDeg))
	y0 := int(math.Floor((g.OriginLat - maxLat) / g.PixelSizeDeg))
	y1 := int(math.Ceil((g.OriginLat - minLat) / g.PixelSizeDeg))
	x0, y0 = max(x0, 0), max(y0, 0)
	x1, y1 = min(x1, g.Width), min(y1, g.Height)
	if x0 >= x1 || y0 >= y1 {
		return Stats{}, nil
	}

	stride := strideFor(g, opts.ScaleMeters)
	if opts.MaxPixels > 0 {
		for window(x0, x1, y0, y1, stride) > opts.MaxPixels {
			if !opts.BestEffort {
				return Stats{}, ErrPixelLimit
			}
			stride *= 2
		}
	}

	var (
		count    int64
		sum, ssq float64
	)
	for y := y0; y < y1; y += stride {
		for x := x0; x < x1; x += stride {
			i := y*g.Width + x
			if !g.Valid[i] {
				continue
			}
			lon, lat := g.CellCenter(x, y)
			if !aoi.Contains(lon, lat) {
				continue
			}
			v := g.LST[i]
			count++
			sum += v
			ssq += v * v
		}
	}

	if count == 0 {
		return Stats{}, nil
	}

	mean := sum / float64(count)
	variance := ssq/float64(count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return Stats{
		Mean:   sql.NullFloat64{Float64: mean, Valid: true},
		StdDev: sql.NullFloat64{Float64: math.Sqrt(variance), Valid: true},
		Count:  count,
	}, nil
}

// strideFor converts the sampling scale into a pixel stride against the
// grid's native resolution at the grid center latitude.
func strideFor(g *raster.Grid, scaleMeters float64) int {
	if scaleMeters <= 0 {
		return 1
	}
	_, centerLat := g.CellCenter(g.Width/2, g.Height/2)
	nativeMeters := g.PixelSizeDeg * metersPerDegree * math.Cos(centerLat*math.Pi/180)
	if nativeMeters <= 0 {
		return 1
	}
	stride := int(math.Round(scaleMeters / nativeMeters))
	return max(stride, 1)
}

func window(x0, x1, y0, y1, stride int) int64 {
	cols := (x1 - x0 + stride - 1) / stride
	rows := (y1 - y0 + stride - 1) / stride
	return int64(cols) * int64(rows)
}
