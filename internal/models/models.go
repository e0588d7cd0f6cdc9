package models

import (
	"database/sql"
	"time"
)

// Scene is the metadata for one satellite thermal acquisition, as returned
// by a scene search. Band rasters are fetched separately via the locators.
type Scene struct {
	ID         string
	Platform   string // "landsat-8" or "landsat-9"
	AcquiredAt time.Time
	CloudCover float64 // reported scene cloud cover, percent

	// North-up geotransform for the delivered rasters: upper-left corner
	// in WGS84 and square pixel size in degrees.
	Width        int
	Height       int
	OriginLon    float64
	OriginLat    float64
	PixelSizeDeg float64

	// Locators for the band rasters, interpreted by the source that
	// produced the scene (HTTP URL or FTP path).
	ThermalPath string
	QAPath      string
}

// ObservationRecord is one row of the LST time series: the zonal statistics
// of a single scene over the area of interest. LSTMean is invalid when the
// region had no unmasked pixels; such records are filtered before
// aggregation.
type ObservationRecord struct {
	SceneID    string
	Platform   string
	Date       time.Time // UTC midnight of acquisition day
	Year       int
	Month      int
	Day        int
	DayOfYear  int
	LSTMean    sql.NullFloat64 // °C
	LSTStdDev  sql.NullFloat64
	PixelCount int64
	CloudCover float64
}

// NewObservationRecord builds a record for a scene with its date fields
// decomposed for later grouping.
func NewObservationRecord(scene Scene, mean, stddev sql.NullFloat64, count int64) ObservationRecord {
	t := scene.AcquiredAt.UTC()
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return ObservationRecord{
		SceneID:    scene.ID,
		Platform:   scene.Platform,
		Date:       date,
		Year:       t.Year(),
		Month:      int(t.Month()),
		Day:        t.Day(),
		DayOfYear:  t.YearDay(),
		LSTMean:    mean,
		LSTStdDev:  stddev,
		PixelCount: count,
		CloudCover: scene.CloudCover,
	}
}

// AnalysisParams are the tunables for one analysis invocation.
type AnalysisParams struct {
	Start           time.Time // inclusive
	End             time.Time // exclusive
	MaxCloudPercent float64
	ScaleMeters     float64
	MaxPixels       int64
	Workers         int
}

// AnalysisRun is one persisted analysis session.
type AnalysisRun struct {
	ID              string
	CreatedAt       time.Time
	GeometryJSON    string
	Start           time.Time
	End             time.Time
	MaxCloudPercent float64
	ScaleMeters     float64
	SceneCount      int
	ValidCount      int
}
