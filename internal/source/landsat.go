package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lox/surftemp/internal/metrics"
	"github.com/lox/surftemp/internal/models"
	"github.com/lox/surftemp/internal/raster"
)

// LandsatAPI is an HTTP imagery source: a scene search endpoint plus band
// rasters served as single-band TIFFs. One client handles one platform;
// the pipeline runs one per satellite.
type LandsatAPI struct {
	baseURL  string
	platform string
	apiKey   string
	client   *http.Client
}

func NewLandsatAPI(baseURL, platform, apiKey string) *LandsatAPI {
	return &LandsatAPI{
		baseURL:  baseURL,
		platform: platform,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (l *LandsatAPI) Name() string { return l.platform }

type sceneResponse struct {
	Scenes []sceneJSON `json:"scenes"`
}

type sceneJSON struct {
	ID           string  `json:"id"`
	Platform     string  `json:"platform"`
	Acquired     string  `json:"acquired"`
	CloudCover   float64 `json:"cloud_cover"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	OriginLon    float64 `json:"origin_lon"`
	OriginLat    float64 `json:"origin_lat"`
	PixelSizeDeg float64 `json:"pixel_size_deg"`
	ThermalURL   string  `json:"thermal_url"`
	QAURL        string  `json:"qa_url"`
}

func (l *LandsatAPI) SearchScenes(ctx context.Context, q Query) ([]models.Scene, error) {
	params := url.Values{
		"platform":  {l.platform},
		"bbox":      {fmt.Sprintf("%f,%f,%f,%f", q.MinLon, q.MinLat, q.MaxLon, q.MaxLat)},
		"start":     {q.Start.UTC().Format("2006-01-02")},
		"end":       {q.End.UTC().Format("2006-01-02")},
		"max_cloud": {fmt.Sprintf("%g", q.MaxCloudPercent)},
	}

	started := time.Now()
	body, err := l.get(ctx, l.baseURL+"/v1/scenes?"+params.Encode())
	if err != nil {
		metrics.SceneSearchTotal.WithLabelValues(l.platform, "error").Inc()
		return nil, fmt.Errorf("search %s scenes: %w", l.platform, err)
	}
	metrics.SceneSearchTotal.WithLabelValues(l.platform, "ok").Inc()
	metrics.SceneSearchLatency.WithLabelValues(l.platform).Observe(time.Since(started).Seconds())

	var resp sceneResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal scene search: %w", err)
	}

	var scenes []models.Scene
	for _, s := range resp.Scenes {
		acquired, err := time.Parse(time.RFC3339, s.Acquired)
		if err != nil {
			return nil, fmt.Errorf("scene %s: parse acquired time: %w", s.ID, err)
		}
		scene := models.Scene{
			ID:           s.ID,
			Platform:     l.platform,
			AcquiredAt:   acquired.UTC(),
			CloudCover:   s.CloudCover,
			Width:        s.Width,
			Height:       s.Height,
			OriginLon:    s.OriginLon,
			OriginLat:    s.OriginLat,
			PixelSizeDeg: s.PixelSizeDeg,
			ThermalPath:  s.ThermalURL,
			QAPath:       s.QAURL,
		}
		// The server applies the same filters; re-check locally so a
		// permissive server can't smuggle out-of-range scenes in.
		if matches(scene, q) {
			scenes = append(scenes, scene)
		}
	}
	return scenes, nil
}

func (l *LandsatAPI) FetchBands(ctx context.Context, scene models.Scene) (*raster.Grid, error) {
	thermal, err := l.fetchBand(ctx, scene.ThermalPath, scene)
	if err != nil {
		return nil, fmt.Errorf("fetch thermal band: %w", err)
	}
	qa, err := l.fetchBand(ctx, scene.QAPath, scene)
	if err != nil {
		return nil, fmt.Errorf("fetch qa band: %w", err)
	}

	g := raster.NewGrid(scene.Width, scene.Height, scene.OriginLon, scene.OriginLat, scene.PixelSizeDeg)
	g.DN = thermal
	g.QA = qa
	return g, nil
}

func (l *LandsatAPI) fetchBand(ctx context.Context, bandURL string, scene models.Scene) ([]uint16, error) {
	body, err := l.get(ctx, bandURL)
	if err != nil {
		return nil, err
	}
	samples, w, h, err := raster.DecodeBand(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if w != scene.Width || h != scene.Height {
		return nil, fmt.Errorf("band size %dx%d does not match scene %s metadata %dx%d",
			w, h, scene.ID, scene.Width, scene.Height)
	}
	return samples, nil
}

// get fetches a URL with exponential backoff. Rate limiting and server
// errors are retried; everything else fails permanently.
func (l *LandsatAPI) get(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if l.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+l.apiKey)
		}

		resp, err := l.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}
