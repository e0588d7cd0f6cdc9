package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lox/surftemp/internal/models"
	"github.com/lox/surftemp/internal/stats"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateRun records a new analysis session and returns its generated ID.
func (s *Store) CreateRun(geometryJSON string, params models.AnalysisParams) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`
		INSERT INTO analysis_runs (id, created_at, geometry_json, start_date, end_date, max_cloud_percent, scale_meters)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, time.Now().UTC(), geometryJSON, params.Start, params.End, params.MaxCloudPercent, params.ScaleMeters)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun updates the scene counts once the pipeline has joined.
func (s *Store) FinishRun(runID string, sceneCount, validCount int) error {
	_, err := s.db.Exec(`
		UPDATE analysis_runs SET scene_count = ?, valid_count = ? WHERE id = ?
	`, sceneCount, validCount, runID)
	return err
}

func (s *Store) GetRun(runID string) (*models.AnalysisRun, error) {
	row := s.db.QueryRow(`
		SELECT id, created_at, geometry_json, start_date, end_date, max_cloud_percent, scale_meters, scene_count, valid_count
		FROM analysis_runs WHERE id = ?
	`, runID)
	return scanRun(row)
}

// GetLatestRun returns the most recently created run, or nil if the store
// is empty.
func (s *Store) GetLatestRun() (*models.AnalysisRun, error) {
	row := s.db.QueryRow(`
		SELECT id, created_at, geometry_json, start_date, end_date, max_cloud_percent, scale_meters, scene_count, valid_count
		FROM analysis_runs ORDER BY created_at DESC LIMIT 1
	`)
	return scanRun(row)
}

func scanRun(row *sql.Row) (*models.AnalysisRun, error) {
	var run models.AnalysisRun
	err := row.Scan(&run.ID, &run.CreatedAt, &run.GeometryJSON, &run.Start, &run.End,
		&run.MaxCloudPercent, &run.ScaleMeters, &run.SceneCount, &run.ValidCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) InsertObservation(runID string, rec models.ObservationRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO observations (run_id, scene_id, platform, date, year, month, day, day_of_year, lst_mean, lst_stddev, pixel_count, cloud_cover)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, scene_id) DO NOTHING
	`, runID, rec.SceneID, rec.Platform, rec.Date, rec.Year, rec.Month, rec.Day, rec.DayOfYear,
		rec.LSTMean, rec.LSTStdDev, rec.PixelCount, rec.CloudCover)
	return err
}

func (s *Store) GetObservations(runID string) ([]models.ObservationRecord, error) {
	rows, err := s.db.Query(`
		SELECT scene_id, platform, date, year, month, day, day_of_year, lst_mean, lst_stddev, pixel_count, cloud_cover
		FROM observations
		WHERE run_id = ?
		ORDER BY date ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ObservationRecord
	for rows.Next() {
		var rec models.ObservationRecord
		if err := rows.Scan(&rec.SceneID, &rec.Platform, &rec.Date, &rec.Year, &rec.Month, &rec.Day,
			&rec.DayOfYear, &rec.LSTMean, &rec.LSTStdDev, &rec.PixelCount, &rec.CloudCover); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// InsertSummaries persists all four groupings of an aggregated series.
func (s *Store) InsertSummaries(runID string, series stats.TimeSeries) error {
	if err := s.insertSummary(runID, "overall", "all", series.Overall); err != nil {
		return err
	}
	for _, m := range series.Monthly {
		if err := s.insertSummary(runID, "monthly", m.Month.String(), m.Summary); err != nil {
			return err
		}
	}
	for _, y := range series.Yearly {
		if err := s.insertSummary(runID, "yearly", fmt.Sprintf("%d", y.Year), y.Summary); err != nil {
			return err
		}
	}
	for _, sn := range series.Seasonal {
		if err := s.insertSummary(runID, "seasonal", sn.Season.String(), sn.Summary); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertSummary(runID, grouping, bucket string, sum stats.Summary) error {
	_, err := s.db.Exec(`
		INSERT INTO summaries (run_id, grouping, bucket, count, mean, min, max, stddev, median)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, grouping, bucket) DO UPDATE SET
			count = excluded.count,
			mean = excluded.mean,
			min = excluded.min,
			max = excluded.max,
			stddev = excluded.stddev,
			median = excluded.median
	`, runID, grouping, bucket, sum.Count, sum.Mean, sum.Min, sum.Max, sum.StdDev, sum.Median)
	if err != nil {
		return fmt.Errorf("insert %s/%s summary: %w", grouping, bucket, err)
	}
	return nil
}

// SummaryRow is one persisted summary bucket.
type SummaryRow struct {
	Grouping string
	Bucket   string
	Summary  stats.Summary
}

func (s *Store) GetSummaries(runID, grouping string) ([]SummaryRow, error) {
	rows, err := s.db.Query(`
		SELECT grouping, bucket, count, mean, min, max, stddev, median
		FROM summaries
		WHERE run_id = ? AND grouping = ?
		ORDER BY id ASC
	`, runID, grouping)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var r SummaryRow
		if err := rows.Scan(&r.Grouping, &r.Bucket, &r.Summary.Count, &r.Summary.Mean,
			&r.Summary.Min, &r.Summary.Max, &r.Summary.StdDev, &r.Summary.Median); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
