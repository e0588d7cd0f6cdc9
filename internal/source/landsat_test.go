package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/image/tiff"

	"github.com/lox/surftemp/internal/models"
)

func encodeBandTIFF(t *testing.T, w, h int, values []uint16) []byte {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := values[y*w+x]
			i := y*img.Stride + 2*x
			img.Pix[i] = uint8(v >> 8)
			img.Pix[i+1] = uint8(v)
		}
	}
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode tiff: %v", err)
	}
	return buf.Bytes()
}

func testQuery() Query {
	return Query{
		MinLon: 146.0, MinLat: -37.0, MaxLon: 147.0, MaxLat: -36.0,
		Start:           time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		End:             time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxCloudPercent: 30,
	}
}

func TestSearchScenes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/scenes" {
			t.Errorf("path = %s, want /v1/scenes", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("platform") != "landsat-8" {
			t.Errorf("platform = %q", q.Get("platform"))
		}
		if q.Get("start") != "2020-01-01" || q.Get("end") != "2021-01-01" {
			t.Errorf("dates = %q..%q", q.Get("start"), q.Get("end"))
		}
		if q.Get("max_cloud") != "30" {
			t.Errorf("max_cloud = %q", q.Get("max_cloud"))
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}

		fmt.Fprint(w, `{"scenes":[
			{"id":"S1","platform":"landsat-8","acquired":"2020-06-01T00:30:00Z","cloud_cover":10,
			 "width":4,"height":4,"origin_lon":146.0,"origin_lat":-36.0,"pixel_size_deg":0.25,
			 "thermal_url":"u1","qa_url":"u2"},
			{"id":"TOO_CLOUDY","platform":"landsat-8","acquired":"2020-06-17T00:30:00Z","cloud_cover":55,
			 "width":4,"height":4,"origin_lon":146.0,"origin_lat":-36.0,"pixel_size_deg":0.25,
			 "thermal_url":"u1","qa_url":"u2"},
			{"id":"OUT_OF_RANGE","platform":"landsat-8","acquired":"2021-06-01T00:30:00Z","cloud_cover":5,
			 "width":4,"height":4,"origin_lon":146.0,"origin_lat":-36.0,"pixel_size_deg":0.25,
			 "thermal_url":"u1","qa_url":"u2"},
			{"id":"ELSEWHERE","platform":"landsat-8","acquired":"2020-06-01T00:30:00Z","cloud_cover":5,
			 "width":4,"height":4,"origin_lon":10.0,"origin_lat":50.0,"pixel_size_deg":0.25,
			 "thermal_url":"u1","qa_url":"u2"}
		]}`)
	}))
	defer srv.Close()

	api := NewLandsatAPI(srv.URL, "landsat-8", "test-key")
	scenes, err := api.SearchScenes(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("SearchScenes: %v", err)
	}

	if len(scenes) != 1 {
		t.Fatalf("got %d scenes, want 1 (cloud, date, and bbox filters applied)", len(scenes))
	}
	if scenes[0].ID != "S1" {
		t.Errorf("scene ID = %q, want S1", scenes[0].ID)
	}
	if scenes[0].Platform != "landsat-8" {
		t.Errorf("platform = %q", scenes[0].Platform)
	}
}

func TestSearchScenesEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"scenes":[]}`)
	}))
	defer srv.Close()

	api := NewLandsatAPI(srv.URL, "landsat-8", "")
	scenes, err := api.SearchScenes(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("SearchScenes: %v", err)
	}
	if len(scenes) != 0 {
		t.Errorf("got %d scenes, want 0", len(scenes))
	}
}

func TestSearchScenesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such collection", http.StatusNotFound)
	}))
	defer srv.Close()

	api := NewLandsatAPI(srv.URL, "landsat-8", "")
	if _, err := api.SearchScenes(context.Background(), testQuery()); err == nil {
		t.Error("expected error from 404 response")
	}
}

func TestFetchBands(t *testing.T) {
	thermal := encodeBandTIFF(t, 2, 2, []uint16{40000, 40000, 40000, 40000})
	qa := encodeBandTIFF(t, 2, 2, []uint16{0, 1 << 4, 0, 0})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/thermal.tif":
			w.Write(thermal)
		case "/qa.tif":
			w.Write(qa)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	api := NewLandsatAPI(srv.URL, "landsat-8", "")
	scene := models.Scene{
		ID: "S1", Platform: "landsat-8",
		Width: 2, Height: 2,
		OriginLon: 146.0, OriginLat: -36.0, PixelSizeDeg: 0.25,
		ThermalPath: srv.URL + "/thermal.tif",
		QAPath:      srv.URL + "/qa.tif",
	}

	grid, err := api.FetchBands(context.Background(), scene)
	if err != nil {
		t.Fatalf("FetchBands: %v", err)
	}
	if grid.Width != 2 || grid.Height != 2 {
		t.Fatalf("grid size = %dx%d, want 2x2", grid.Width, grid.Height)
	}
	if grid.DN[0] != 40000 {
		t.Errorf("DN[0] = %d, want 40000", grid.DN[0])
	}
	if grid.QA[1] != 1<<4 {
		t.Errorf("QA[1] = %d, want cloud bit", grid.QA[1])
	}
	if got := grid.ValidCount(); got != 4 {
		t.Errorf("fresh grid valid count = %d, want 4 (mask not yet applied)", got)
	}
}

func TestFetchBandsSizeMismatch(t *testing.T) {
	band := encodeBandTIFF(t, 2, 2, []uint16{1, 2, 3, 4})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(band)
	}))
	defer srv.Close()

	api := NewLandsatAPI(srv.URL, "landsat-8", "")
	scene := models.Scene{
		ID: "S1", Width: 3, Height: 3,
		ThermalPath: srv.URL + "/thermal.tif",
		QAPath:      srv.URL + "/qa.tif",
	}
	if _, err := api.FetchBands(context.Background(), scene); err == nil {
		t.Error("expected error for band size mismatch")
	}
}

func TestMatches(t *testing.T) {
	base := models.Scene{
		AcquiredAt: time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC),
		CloudCover: 10,
		Width:      4, Height: 4,
		OriginLon: 146.0, OriginLat: -36.0, PixelSizeDeg: 0.25,
	}

	tests := []struct {
		name   string
		mutate func(*models.Scene)
		want   bool
	}{
		{"matching scene", func(s *models.Scene) {}, true},
		{"cloud at threshold excluded", func(s *models.Scene) { s.CloudCover = 30 }, false},
		{"acquired on end date excluded", func(s *models.Scene) {
			s.AcquiredAt = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
		}, false},
		{"acquired on start date included", func(s *models.Scene) {
			s.AcquiredAt = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		}, true},
		{"footprint west of query", func(s *models.Scene) { s.OriginLon = 140.0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.mutate(&s)
			if got := matches(s, testQuery()); got != tt.want {
				t.Errorf("matches = %v, want %v", got, tt.want)
			}
		})
	}
}
