package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lox/surftemp/internal/export"
	"github.com/lox/surftemp/internal/geo"
	"github.com/lox/surftemp/internal/models"
	"github.com/lox/surftemp/internal/narrative"
	"github.com/lox/surftemp/internal/pipeline"
	"github.com/lox/surftemp/internal/render"
	"github.com/lox/surftemp/internal/source"
	"github.com/lox/surftemp/internal/stats"
	"github.com/lox/surftemp/internal/store"
)

type CLI struct {
	DB          string `help:"Path to SQLite database." default:"data/surftemp.db" env:"SURFTEMP_DB"`
	MetricsAddr string `help:"Optional address to serve Prometheus metrics on while running." env:"METRICS_ADDR"`

	Analyze AnalyzeCmd `cmd:"" help:"Run an LST time-series analysis over an area of interest."`
	Export  ExportCmd  `cmd:"" help:"Re-export the CSV tables for a stored analysis run."`
}

type AnalyzeCmd struct {
	AOI    string  `help:"Path to a GeoJSON polygon describing the area of interest." type:"existingfile" xor:"aoi" required:""`
	Point  string  `help:"Point of interest as lat,lon, buffered by --buffer." xor:"aoi" required:""`
	Buffer float64 `help:"Buffer radius in meters for --point." default:"100"`

	Start     string  `help:"Start date, inclusive (YYYY-MM-DD)." default:"2014-01-01"`
	End       string  `help:"End date, exclusive (YYYY-MM-DD)." default:"2024-01-01"`
	MaxCloud  float64 `help:"Scene cloud-cover threshold percent. Defaults to 30 for a polygon, 20 for a point." default:"-1"`
	Scale     float64 `help:"Sampling resolution in meters." default:"30"`
	MaxPixels int64   `help:"Pixel budget per scene extraction." default:"10000000"`
	Workers   int     `help:"Concurrent scene workers (0 = number of CPUs)."`

	SearchURL string `help:"Scene search API base URL." env:"SCENE_API_URL" default:"https://scenes.surftemp.net"`
	APIKey    string `help:"Scene search API key." env:"SCENE_API_KEY"`
	FTPHost   string `help:"FTP scene archive host:port; when set it serves the landsat-9 source." env:"SCENE_FTP_HOST"`
	FTPRoot   string `help:"FTP scene archive root directory." env:"SCENE_FTP_ROOT" default:"/scenes"`

	Out       string `help:"Directory for CSV and PNG outputs." default:"out"`
	Narrative bool   `help:"Generate a plain-language summary (requires OPENAI_API_KEY)."`
}

type ExportCmd struct {
	RunID string `arg:"" optional:"" help:"Run to export; defaults to the most recent."`
	Out   string `help:"Directory for CSV outputs." default:"out"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("surftemp"),
		kong.Description("Land surface temperature time-series analysis from satellite thermal imagery."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	if cli.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cli.MetricsAddr, mux); err != nil {
				log.Printf("metrics listener: %v", err)
			}
		}()
	}

	kctx.FatalIfErrorf(kctx.Run(&cli))
}

func openStore(path string) (*store.Store, *sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return st, db, nil
}

func (c *AnalyzeCmd) Run(cli *CLI, ctx context.Context) error {
	aoi, pointMode, err := c.geometry()
	if err != nil {
		return err
	}

	start, err := time.Parse("2006-01-02", c.Start)
	if err != nil {
		return fmt.Errorf("parse start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", c.End)
	if err != nil {
		return fmt.Errorf("parse end date: %w", err)
	}

	maxCloud := c.MaxCloud
	if maxCloud < 0 {
		// The area tool historically used 30, the point tool 20.
		maxCloud = 30
		if pointMode {
			maxCloud = 20
		}
	}

	params := models.AnalysisParams{
		Start:           start,
		End:             end,
		MaxCloudPercent: maxCloud,
		ScaleMeters:     c.Scale,
		MaxPixels:       c.MaxPixels,
		Workers:         c.Workers,
	}

	st, db, err := openStore(cli.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	analysis := pipeline.New(c.sources()...)

	log.Printf("analyzing %s to %s, cloud threshold %.0f%%, scale %.0fm",
		c.Start, c.End, maxCloud, c.Scale)
	result, err := analysis.Run(ctx, aoi, params)
	if err != nil {
		return err
	}

	geomJSON, err := aoi.MarshalGeoJSON()
	if err != nil {
		return fmt.Errorf("marshal geometry: %w", err)
	}
	runID, err := st.CreateRun(string(geomJSON), params)
	if err != nil {
		return err
	}
	for _, rec := range result.Records {
		if err := st.InsertObservation(runID, rec); err != nil {
			return fmt.Errorf("insert observation %s: %w", rec.SceneID, err)
		}
	}
	if err := st.InsertSummaries(runID, result.Series); err != nil {
		return err
	}
	if err := st.FinishRun(runID, len(result.Records), len(result.Series.Records)); err != nil {
		return err
	}
	log.Printf("run %s: %d scenes, %d with valid data", runID, len(result.Records), len(result.Series.Records))

	if err := writeExports(c.Out, result.Records, result.Series); err != nil {
		return err
	}

	if result.Latest != nil {
		path := filepath.Join(c.Out, "latest_lst.png")
		if err := writePNG(path, result); err != nil {
			// The heatmap is a nicety; a scene with no valid pixels
			// inside the AOI is not worth failing the run over.
			log.Printf("render latest scene: %v", err)
		} else {
			log.Printf("wrote %s (scene %s)", path, result.Latest.Scene.ID)
		}
	}

	printSummary(result.Series)

	if c.Narrative {
		gen, err := narrative.NewGenerator()
		if err != nil {
			log.Printf("narrative disabled: %v", err)
		} else if text, err := gen.Summarize(ctx, result.Series); err != nil {
			log.Printf("narrative: %v", err)
		} else {
			fmt.Printf("\n%s\n", text)
		}
	}

	return nil
}

func (c *AnalyzeCmd) geometry() (*geo.Geometry, bool, error) {
	if c.Point != "" {
		parts := strings.Split(c.Point, ",")
		if len(parts) != 2 {
			return nil, false, fmt.Errorf("point must be lat,lon")
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, false, fmt.Errorf("parse point latitude: %w", err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, false, fmt.Errorf("parse point longitude: %w", err)
		}
		aoi, err := geo.Buffer(geo.Point{Lon: lon, Lat: lat}, c.Buffer)
		if err != nil {
			return nil, false, err
		}
		return aoi, true, nil
	}

	data, err := os.ReadFile(c.AOI)
	if err != nil {
		return nil, false, fmt.Errorf("read aoi file: %w", err)
	}
	aoi, err := geo.ParseGeoJSON(data)
	if err != nil {
		return nil, false, err
	}
	return aoi, false, nil
}

// sources builds the two imagery providers. The HTTP API always serves
// landsat-8; landsat-9 comes from the FTP archive when configured, and
// falls back to the HTTP API otherwise.
func (c *AnalyzeCmd) sources() []source.Source {
	srcs := []source.Source{
		source.NewLandsatAPI(c.SearchURL, "landsat-8", c.APIKey),
	}
	if c.FTPHost != "" {
		srcs = append(srcs, source.NewFTPArchive(c.FTPHost, c.FTPRoot, "landsat-9"))
	} else {
		srcs = append(srcs, source.NewLandsatAPI(c.SearchURL, "landsat-9", c.APIKey))
	}
	return srcs
}

func writeExports(outDir string, records []models.ObservationRecord, series stats.TimeSeries) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	files := []struct {
		name  string
		write func(f *os.File) error
	}{
		{"timeseries.csv", func(f *os.File) error { return export.WriteTimeSeries(f, records) }},
		{"monthly.csv", func(f *os.File) error { return export.WriteMonthly(f, series.Monthly) }},
		{"yearly.csv", func(f *os.File) error { return export.WriteYearly(f, series.Yearly) }},
	}
	for _, spec := range files {
		path := filepath.Join(outDir, spec.name)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := spec.write(f); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Printf("wrote %s", path)
	}
	return nil
}

func writePNG(path string, result *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return render.WritePNG(f, result.Latest.Grid, 1024)
}

func printSummary(series stats.TimeSeries) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "\nOverall\tcount %d\tmean %s\tmin %s\tmax %s\tstddev %s\tmedian %s\n",
		series.Overall.Count, nf(series.Overall.Mean), nf(series.Overall.Min),
		nf(series.Overall.Max), nf(series.Overall.StdDev), nf(series.Overall.Median))

	fmt.Fprintln(w, "\nMonth\tCount\tMean\tMin\tMax")
	for _, m := range series.Monthly {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", m.Month, m.Count, nf(m.Mean), nf(m.Min), nf(m.Max))
	}

	fmt.Fprintln(w, "\nYear\tCount\tMean\tMin\tMax")
	for _, y := range series.Yearly {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", y.Year, y.Count, nf(y.Mean), nf(y.Min), nf(y.Max))
	}

	fmt.Fprintln(w, "\nSeason\tCount\tMean\tMin\tMax")
	for _, s := range series.Seasonal {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", s.Season, s.Count, nf(s.Mean), nf(s.Min), nf(s.Max))
	}

	w.Flush()
}

func nf(v sql.NullFloat64) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf("%.2f", v.Float64)
}

func (c *ExportCmd) Run(cli *CLI) error {
	st, db, err := openStore(cli.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	var run *models.AnalysisRun
	if c.RunID != "" {
		run, err = st.GetRun(c.RunID)
	} else {
		run, err = st.GetLatestRun()
	}
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no stored analysis run found")
	}

	records, err := st.GetObservations(run.ID)
	if err != nil {
		return err
	}

	startYear := run.Start.Year()
	endYear := run.End.AddDate(0, 0, -1).Year()
	series := stats.Aggregate(records, startYear, endYear)

	log.Printf("exporting run %s (%d observations)", run.ID, len(records))
	return writeExports(c.Out, records, series)
}
