package extract

import (
	"math"
	"testing"

	"github.com/lox/surftemp/internal/geo"
	"github.com/lox/surftemp/internal/raster"
)

// testGrid builds a 4x4 grid over lon 0..0.4, lat 0..0.4 with the LST band
// set directly.
func testGrid(t *testing.T, lst []float64) *raster.Grid {
	t.Helper()
	g := raster.NewGrid(4, 4, 0, 0.4, 0.1)
	if len(lst) != 16 {
		t.Fatalf("need 16 values, got %d", len(lst))
	}
	g.LST = lst
	return g
}

func wholeArea(t *testing.T) *geo.Geometry {
	t.Helper()
	aoi, err := geo.FromRings([][]geo.Point{{
		{Lon: 0, Lat: 0}, {Lon: 0.4, Lat: 0}, {Lon: 0.4, Lat: 0.4}, {Lon: 0, Lat: 0.4}, {Lon: 0, Lat: 0},
	}})
	if err != nil {
		t.Fatalf("FromRings: %v", err)
	}
	return aoi
}

func TestRegionStats(t *testing.T) {
	lst := make([]float64, 16)
	for i := range lst {
		lst[i] = 20.0 // uniform field
	}
	lst[0] = 36.0 // one hot pixel

	g := testGrid(t, lst)
	st, err := RegionStats(g, wholeArea(t), Options{})
	if err != nil {
		t.Fatalf("RegionStats: %v", err)
	}

	if st.Count != 16 {
		t.Fatalf("Count = %d, want 16", st.Count)
	}
	// mean = (15*20 + 36) / 16 = 21
	if !st.Mean.Valid || math.Abs(st.Mean.Float64-21.0) > 1e-9 {
		t.Errorf("Mean = %v, want 21", st.Mean)
	}
	// population stddev: sqrt((15*(20-21)^2 + (36-21)^2)/16) = sqrt(15)
	wantStd := math.Sqrt(15)
	if !st.StdDev.Valid || math.Abs(st.StdDev.Float64-wantStd) > 1e-9 {
		t.Errorf("StdDev = %v, want %v", st.StdDev, wantStd)
	}
}

func TestRegionStatsExcludesMaskedPixels(t *testing.T) {
	lst := make([]float64, 16)
	for i := range lst {
		lst[i] = 25.0
	}
	g := testGrid(t, lst)
	g.Valid[0] = false
	g.Valid[5] = false

	st, err := RegionStats(g, wholeArea(t), Options{})
	if err != nil {
		t.Fatalf("RegionStats: %v", err)
	}
	if st.Count != 14 {
		t.Errorf("Count = %d, want 14", st.Count)
	}
}

func TestRegionStatsAllMasked(t *testing.T) {
	g := testGrid(t, make([]float64, 16))
	for i := range g.Valid {
		g.Valid[i] = false
	}

	st, err := RegionStats(g, wholeArea(t), Options{})
	if err != nil {
		t.Fatalf("RegionStats: %v", err)
	}
	if st.Count != 0 {
		t.Errorf("Count = %d, want 0", st.Count)
	}
	if st.Mean.Valid || st.StdDev.Valid {
		t.Error("mean and stddev must be null when no pixel is valid")
	}
}

func TestRegionStatsDisjointGeometry(t *testing.T) {
	g := testGrid(t, make([]float64, 16))
	aoi, err := geo.FromRings([][]geo.Point{{
		{Lon: 10, Lat: 10}, {Lon: 11, Lat: 10}, {Lon: 11, Lat: 11}, {Lon: 10, Lat: 11}, {Lon: 10, Lat: 10},
	}})
	if err != nil {
		t.Fatalf("FromRings: %v", err)
	}

	st, err := RegionStats(g, aoi, Options{})
	if err != nil {
		t.Fatalf("RegionStats: %v", err)
	}
	if st.Count != 0 || st.Mean.Valid {
		t.Errorf("disjoint geometry should yield empty stats, got %+v", st)
	}
}

func TestRegionStatsPixelBudget(t *testing.T) {
	lst := make([]float64, 16)
	for i := range lst {
		lst[i] = 25.0
	}

	t.Run("strict budget fails", func(t *testing.T) {
		g := testGrid(t, lst)
		_, err := RegionStats(g, wholeArea(t), Options{MaxPixels: 4, BestEffort: false})
		if err != ErrPixelLimit {
			t.Errorf("err = %v, want ErrPixelLimit", err)
		}
	})

	t.Run("best effort coarsens instead", func(t *testing.T) {
		g := testGrid(t, lst)
		st, err := RegionStats(g, wholeArea(t), Options{MaxPixels: 4, BestEffort: true})
		if err != nil {
			t.Fatalf("RegionStats: %v", err)
		}
		if st.Count == 0 || st.Count > 4 {
			t.Errorf("Count = %d, want between 1 and 4", st.Count)
		}
		if !st.Mean.Valid || st.Mean.Float64 != 25.0 {
			t.Errorf("Mean = %v, want 25", st.Mean)
		}
	})
}

func TestStrideFor(t *testing.T) {
	// ~30m pixels at the equator.
	g := raster.NewGrid(100, 100, 0, 0, 30.0/111320.0)

	tests := []struct {
		name  string
		scale float64
		want  int
	}{
		{"native scale", 30, 1},
		{"double scale", 60, 2},
		{"zero scale defaults to full", 0, 1},
		{"sub-native clamps to 1", 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strideFor(g, tt.scale); got != tt.want {
				t.Errorf("strideFor(%v) = %d, want %d", tt.scale, got, tt.want)
			}
		})
	}
}
