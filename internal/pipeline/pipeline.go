// Package pipeline orchestrates one analysis: search both imagery sources,
// run the mask → derive → extract chain concurrently per scene, then join
// and aggregate. The core holds no state between invocations; everything
// flows forward from geometry + date range to the aggregated result.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/lox/surftemp/internal/extract"
	"github.com/lox/surftemp/internal/geo"
	"github.com/lox/surftemp/internal/metrics"
	"github.com/lox/surftemp/internal/models"
	"github.com/lox/surftemp/internal/raster"
	"github.com/lox/surftemp/internal/source"
	"github.com/lox/surftemp/internal/stats"
)

// Analysis runs LST time-series analyses against a fixed set of imagery
// sources.
type Analysis struct {
	sources []source.Source
}

func New(sources ...source.Source) *Analysis {
	return &Analysis{sources: sources}
}

// LatestScene is the most recent processed scene, with its LST band
// clipped to the area of interest for visualization.
type LatestScene struct {
	Scene models.Scene
	Grid  *raster.Grid
}

// Result is the complete output of one analysis run.
type Result struct {
	Records []models.ObservationRecord // one per processed scene, nulls included
	Series  stats.TimeSeries
	Latest  *LatestScene // nil when no scene was processed
}

type sceneJob struct {
	scene models.Scene
	src   source.Source
}

// Run executes the full pipeline for one geometry and date range. Scene
// search failures abort the run; per-scene band failures skip the scene.
// Zero matching scenes is a valid empty result.
func (a *Analysis) Run(ctx context.Context, aoi *geo.Geometry, params models.AnalysisParams) (*Result, error) {
	if !params.End.After(params.Start) {
		return nil, fmt.Errorf("end date %s must be after start date %s",
			params.End.Format("2006-01-02"), params.Start.Format("2006-01-02"))
	}

	minLon, minLat, maxLon, maxLat := aoi.Bounds()
	query := source.Query{
		MinLon: minLon, MinLat: minLat,
		MaxLon: maxLon, MaxLat: maxLat,
		Start:           params.Start,
		End:             params.End,
		MaxCloudPercent: params.MaxCloudPercent,
	}

	var jobs []sceneJob
	for _, src := range a.sources {
		scenes, err := src.SearchScenes(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name(), err)
		}
		log.Printf("source %s: %d scenes match", src.Name(), len(scenes))
		for _, s := range scenes {
			jobs = append(jobs, sceneJob{scene: s, src: src})
		}
	}

	records, latest := a.processScenes(ctx, jobs, aoi, params)

	startYear := params.Start.Year()
	endYear := params.End.AddDate(0, 0, -1).Year() // end date is exclusive
	series := stats.Aggregate(records, startYear, endYear)

	if latest != nil {
		raster.Clip(latest.Grid, aoi)
	}

	metrics.AnalysisRuns.Inc()
	return &Result{Records: records, Series: series, Latest: latest}, nil
}

// processScenes runs the per-scene chain on a bounded worker pool and joins
// before returning. Each scene is independent; results are collected under
// a single mutex.
func (a *Analysis) processScenes(ctx context.Context, jobs []sceneJob, aoi *geo.Geometry, params models.AnalysisParams) ([]models.ObservationRecord, *LatestScene) {
	workers := params.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	jobCh := make(chan sceneJob)
	var (
		mu      sync.Mutex
		records []models.ObservationRecord
		latest  *LatestScene
	)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				rec, grid, ok := a.processScene(ctx, job, aoi, params)
				if !ok {
					continue
				}
				mu.Lock()
				records = append(records, rec)
				if latest == nil || job.scene.AcquiredAt.After(latest.Scene.AcquiredAt) {
					latest = &LatestScene{Scene: job.scene, Grid: grid}
				}
				mu.Unlock()
			}
		}()
	}

dispatch:
	for _, job := range jobs {
		// Stop handing out work once cancelled; in-flight scenes
		// finish on their own.
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case jobCh <- job:
		}
	}
	close(jobCh)
	wg.Wait()

	return records, latest
}

func (a *Analysis) processScene(ctx context.Context, job sceneJob, aoi *geo.Geometry, params models.AnalysisParams) (models.ObservationRecord, *raster.Grid, bool) {
	grid, err := job.src.FetchBands(ctx, job.scene)
	if err != nil {
		log.Printf("scene %s: fetch bands: %v (skipping)", job.scene.ID, err)
		metrics.SceneFetchErrors.WithLabelValues(job.src.Name()).Inc()
		return models.ObservationRecord{}, nil, false
	}

	// Mask before deriving so temperatures are never computed over
	// pixels already known to be contaminated.
	raster.ApplyCloudMask(grid)
	raster.DeriveLST(grid)

	started := time.Now()
	st, err := extract.RegionStats(grid, aoi, extract.Options{
		ScaleMeters: params.ScaleMeters,
		MaxPixels:   params.MaxPixels,
		BestEffort:  true,
	})
	if err != nil {
		log.Printf("scene %s: extract: %v (skipping)", job.scene.ID, err)
		return models.ObservationRecord{}, nil, false
	}
	metrics.ExtractDuration.Observe(time.Since(started).Seconds())
	metrics.ScenesProcessed.WithLabelValues(job.src.Name()).Inc()

	rec := models.NewObservationRecord(job.scene, st.Mean, st.StdDev, st.Count)
	return rec, grid, true
}
