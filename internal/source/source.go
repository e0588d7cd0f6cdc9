// Package source provides the imagery providers: a scene search plus band
// retrieval for each of the two satellite platforms. Providers are
// independent; the pipeline merges their results.
package source

import (
	"context"
	"time"

	"github.com/lox/surftemp/internal/models"
	"github.com/lox/surftemp/internal/raster"
)

// Query narrows a scene search by space, time, and scene cloud cover.
// Start is inclusive, End exclusive.
type Query struct {
	MinLon, MinLat  float64
	MaxLon, MaxLat  float64
	Start           time.Time
	End             time.Time
	MaxCloudPercent float64
}

// Source is one imagery provider.
type Source interface {
	Name() string
	// SearchScenes returns metadata for scenes matching the query. An
	// empty result is valid, not an error.
	SearchScenes(ctx context.Context, q Query) ([]models.Scene, error)
	// FetchBands retrieves and decodes the thermal and QA bands for a
	// scene returned by SearchScenes.
	FetchBands(ctx context.Context, scene models.Scene) (*raster.Grid, error)
}

// matches reports whether a scene passes the query filters. Sources share
// this so metadata filtering behaves identically regardless of transport.
func matches(s models.Scene, q Query) bool {
	if s.CloudCover >= q.MaxCloudPercent {
		return false
	}
	if !s.AcquiredAt.Before(q.End) || s.AcquiredAt.Before(q.Start) {
		return false
	}
	// bbox intersection against the scene footprint
	sMinLon := s.OriginLon
	sMaxLon := s.OriginLon + float64(s.Width)*s.PixelSizeDeg
	sMaxLat := s.OriginLat
	sMinLat := s.OriginLat - float64(s.Height)*s.PixelSizeDeg
	if sMaxLon < q.MinLon || sMinLon > q.MaxLon || sMaxLat < q.MinLat || sMinLat > q.MaxLat {
		return false
	}
	return true
}
