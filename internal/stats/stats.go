// Package stats turns the per-scene observation records into summary
// statistics: one overall block plus monthly, yearly, and seasonal
// groupings. All groupings operate on the same up-front filtered set;
// records are never mutated.
package stats

import (
	"database/sql"
	"math"
	"sort"
	"time"

	"github.com/lox/surftemp/internal/models"
)

// Summary holds aggregate statistics over a set of LST means. All values
// except Count are invalid when the set is empty.
type Summary struct {
	Count  int
	Mean   sql.NullFloat64
	Min    sql.NullFloat64
	Max    sql.NullFloat64
	StdDev sql.NullFloat64
	Median sql.NullFloat64
}

// Summarize computes a Summary over the values. Empty input yields count 0
// with all statistics invalid; NaN never leaks into the output.
func Summarize(values []float64) Summary {
	s := Summary{Count: len(values)}
	if len(values) == 0 {
		return s
	}

	minV, maxV := values[0], values[0]
	sum := 0.0
	for _, v := range values {
		sum += v
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(len(values)))

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		median = sorted[mid]
	} else {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	s.Mean = sql.NullFloat64{Float64: mean, Valid: true}
	s.Min = sql.NullFloat64{Float64: minV, Valid: true}
	s.Max = sql.NullFloat64{Float64: maxV, Valid: true}
	s.StdDev = sql.NullFloat64{Float64: stddev, Valid: true}
	s.Median = sql.NullFloat64{Float64: median, Valid: true}
	return s
}

// Season is one of the four fixed three-month buckets.
type Season int

const (
	Winter Season = iota // Dec, Jan, Feb
	Spring               // Mar, Apr, May
	Monsoon              // Jun, Jul, Aug
	PostMonsoon          // Sep, Oct, Nov
)

var seasonNames = [...]string{"Winter", "Spring", "Monsoon", "Post-Monsoon"}

func (s Season) String() string { return seasonNames[s] }

// SeasonOf maps a calendar month to its season.
func SeasonOf(m time.Month) Season {
	switch m {
	case time.December, time.January, time.February:
		return Winter
	case time.March, time.April, time.May:
		return Spring
	case time.June, time.July, time.August:
		return Monsoon
	default:
		return PostMonsoon
	}
}

// MonthlyStats is the summary for one calendar month across all years.
type MonthlyStats struct {
	Month time.Month
	Summary
}

// YearlyStats is the summary for one calendar year.
type YearlyStats struct {
	Year int
	Summary
}

// SeasonalStats is the summary for one season across all years.
type SeasonalStats struct {
	Season Season
	Summary
}

// TimeSeries is the full aggregation output for one analysis.
type TimeSeries struct {
	Records  []models.ObservationRecord // valid records only
	Overall  Summary
	Monthly  [12]MonthlyStats
	Yearly   []YearlyStats
	Seasonal [4]SeasonalStats
}

// FilterValid returns the records whose LST mean is present. Records with
// no valid pixels carry an invalid mean and are dropped here, once, before
// any grouping.
func FilterValid(records []models.ObservationRecord) []models.ObservationRecord {
	valid := make([]models.ObservationRecord, 0, len(records))
	for _, r := range records {
		if r.LSTMean.Valid {
			valid = append(valid, r)
		}
	}
	return valid
}

// Aggregate filters the records and computes the overall, monthly, yearly,
// and seasonal summaries. The yearly span runs startYear..endYear
// inclusive; years outside the span are ignored. Every valid record lands
// in exactly one bucket of each grouping.
func Aggregate(records []models.ObservationRecord, startYear, endYear int) TimeSeries {
	valid := FilterValid(records)

	ts := TimeSeries{Records: valid}

	means := make([]float64, 0, len(valid))
	for _, r := range valid {
		means = append(means, r.LSTMean.Float64)
	}
	ts.Overall = Summarize(means)

	byMonth := make(map[time.Month][]float64)
	byYear := make(map[int][]float64)
	bySeason := make(map[Season][]float64)
	for _, r := range valid {
		m := time.Month(r.Month)
		v := r.LSTMean.Float64
		byMonth[m] = append(byMonth[m], v)
		byYear[r.Year] = append(byYear[r.Year], v)
		bySeason[SeasonOf(m)] = append(bySeason[SeasonOf(m)], v)
	}

	for m := time.January; m <= time.December; m++ {
		ts.Monthly[m-1] = MonthlyStats{Month: m, Summary: Summarize(byMonth[m])}
	}
	for y := startYear; y <= endYear; y++ {
		ts.Yearly = append(ts.Yearly, YearlyStats{Year: y, Summary: Summarize(byYear[y])})
	}
	for s := Winter; s <= PostMonsoon; s++ {
		ts.Seasonal[s] = SeasonalStats{Season: s, Summary: Summarize(bySeason[s])}
	}

	return ts
}
