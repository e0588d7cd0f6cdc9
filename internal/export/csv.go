// Package export writes the analysis outputs as delimited text: the full
// time series plus the monthly and yearly summary tables.
package export

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/lox/surftemp/internal/models"
	"github.com/lox/surftemp/internal/stats"
)

// TimeSeriesColumns is the fixed column selector for the time-series
// export. Order matters to downstream consumers.
var TimeSeriesColumns = []string{"date", "LST_mean", "LST_stdDev", "LST_count", "year", "month", "day"}

// WriteTimeSeries writes one row per observation record, sorted by date.
// Null aggregates become empty cells.
func WriteTimeSeries(w io.Writer, records []models.ObservationRecord) error {
	sorted := append([]models.ObservationRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	cw := csv.NewWriter(w)
	if err := cw.Write(TimeSeriesColumns); err != nil {
		return err
	}
	for _, r := range sorted {
		row := []string{
			r.Date.Format("2006-01-02"),
			formatNullFloat(r.LSTMean),
			formatNullFloat(r.LSTStdDev),
			strconv.FormatInt(r.PixelCount, 10),
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Month),
			strconv.Itoa(r.Day),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTimeSeries parses a CSV produced by WriteTimeSeries. Round-trips
// exactly: dates, nullability, and values are preserved.
func ReadTimeSeries(r io.Reader) ([]models.ObservationRecord, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty csv")
	}
	if len(rows[0]) != len(TimeSeriesColumns) {
		return nil, fmt.Errorf("unexpected header %v", rows[0])
	}

	var records []models.ObservationRecord
	for i, row := range rows[1:] {
		date, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: parse date: %w", i+1, err)
		}
		mean, err := parseNullFloat(row[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: parse LST_mean: %w", i+1, err)
		}
		stddev, err := parseNullFloat(row[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: parse LST_stdDev: %w", i+1, err)
		}
		count, err := strconv.ParseInt(row[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: parse LST_count: %w", i+1, err)
		}
		year, _ := strconv.Atoi(row[4])
		month, _ := strconv.Atoi(row[5])
		day, _ := strconv.Atoi(row[6])

		records = append(records, models.ObservationRecord{
			Date:       date,
			Year:       year,
			Month:      month,
			Day:        day,
			DayOfYear:  date.YearDay(),
			LSTMean:    mean,
			LSTStdDev:  stddev,
			PixelCount: count,
		})
	}
	return records, nil
}

// WriteMonthly writes the 12 monthly summary rows.
func WriteMonthly(w io.Writer, monthly [12]stats.MonthlyStats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"month", "count", "mean", "min", "max"}); err != nil {
		return err
	}
	for _, m := range monthly {
		row := []string{
			m.Month.String(),
			strconv.Itoa(m.Count),
			formatNullFloat(m.Mean),
			formatNullFloat(m.Min),
			formatNullFloat(m.Max),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteYearly writes one summary row per year of the configured span.
func WriteYearly(w io.Writer, yearly []stats.YearlyStats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"year", "count", "mean", "min", "max"}); err != nil {
		return err
	}
	for _, y := range yearly {
		row := []string{
			strconv.Itoa(y.Year),
			strconv.Itoa(y.Count),
			formatNullFloat(y.Mean),
			formatNullFloat(y.Min),
			formatNullFloat(y.Max),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatNullFloat(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'g', -1, 64)
}

func parseNullFloat(s string) (sql.NullFloat64, error) {
	if s == "" {
		return sql.NullFloat64{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}, err
	}
	return sql.NullFloat64{Float64: f, Valid: true}, nil
}
