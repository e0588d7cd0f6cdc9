package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/lox/surftemp/internal/models"
	"github.com/lox/surftemp/internal/raster"
)

// FTPArchive is an imagery source backed by a public FTP scene archive,
// laid out as <root>/<platform>/<year>/<scene-id>/ with a metadata.json
// plus thermal.tif and qa.tif per scene directory.
type FTPArchive struct {
	host     string // host:port
	root     string
	platform string
	timeout  time.Duration
}

func NewFTPArchive(host, root, platform string) *FTPArchive {
	return &FTPArchive{
		host:     host,
		root:     root,
		platform: platform,
		timeout:  30 * time.Second,
	}
}

func (a *FTPArchive) Name() string { return a.platform }

// archiveMetadata is the per-scene metadata.json in the archive.
type archiveMetadata struct {
	ID           string  `json:"id"`
	Acquired     string  `json:"acquired"`
	CloudCover   float64 `json:"cloud_cover"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	OriginLon    float64 `json:"origin_lon"`
	OriginLat    float64 `json:"origin_lat"`
	PixelSizeDeg float64 `json:"pixel_size_deg"`
}

func (a *FTPArchive) dial() (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(a.host, ftp.DialWithTimeout(a.timeout))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	if err := conn.Login("anonymous", "anonymous"); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("ftp login: %w", err)
	}
	return conn, nil
}

func (a *FTPArchive) SearchScenes(ctx context.Context, q Query) ([]models.Scene, error) {
	conn, err := a.dial()
	if err != nil {
		return nil, fmt.Errorf("search %s scenes: %w", a.platform, err)
	}
	defer conn.Quit()

	var scenes []models.Scene
	for year := q.Start.Year(); year <= q.End.Year(); year++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		yearDir := path.Join(a.root, a.platform, fmt.Sprintf("%04d", year))
		entries, err := conn.List(yearDir)
		if err != nil {
			// Years with no acquisitions have no directory.
			continue
		}

		for _, e := range entries {
			if e.Type != ftp.EntryTypeFolder {
				continue
			}
			sceneDir := path.Join(yearDir, e.Name)
			meta, err := a.readMetadata(conn, sceneDir)
			if err != nil {
				return nil, fmt.Errorf("scene %s: %w", e.Name, err)
			}

			acquired, err := time.Parse(time.RFC3339, meta.Acquired)
			if err != nil {
				return nil, fmt.Errorf("scene %s: parse acquired time: %w", meta.ID, err)
			}
			scene := models.Scene{
				ID:           meta.ID,
				Platform:     a.platform,
				AcquiredAt:   acquired.UTC(),
				CloudCover:   meta.CloudCover,
				Width:        meta.Width,
				Height:       meta.Height,
				OriginLon:    meta.OriginLon,
				OriginLat:    meta.OriginLat,
				PixelSizeDeg: meta.PixelSizeDeg,
				ThermalPath:  path.Join(sceneDir, "thermal.tif"),
				QAPath:       path.Join(sceneDir, "qa.tif"),
			}
			if matches(scene, q) {
				scenes = append(scenes, scene)
			}
		}
	}
	return scenes, nil
}

func (a *FTPArchive) readMetadata(conn *ftp.ServerConn, sceneDir string) (*archiveMetadata, error) {
	resp, err := conn.Retr(path.Join(sceneDir, "metadata.json"))
	if err != nil {
		return nil, fmt.Errorf("ftp retr metadata: %w", err)
	}
	defer resp.Close()

	body, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var meta archiveMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &meta, nil
}

func (a *FTPArchive) FetchBands(ctx context.Context, scene models.Scene) (*raster.Grid, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	conn, err := a.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	thermal, err := a.fetchBand(conn, scene.ThermalPath, scene)
	if err != nil {
		return nil, fmt.Errorf("fetch thermal band: %w", err)
	}
	qa, err := a.fetchBand(conn, scene.QAPath, scene)
	if err != nil {
		return nil, fmt.Errorf("fetch qa band: %w", err)
	}

	g := raster.NewGrid(scene.Width, scene.Height, scene.OriginLon, scene.OriginLat, scene.PixelSizeDeg)
	g.DN = thermal
	g.QA = qa
	return g, nil
}

func (a *FTPArchive) fetchBand(conn *ftp.ServerConn, bandPath string, scene models.Scene) ([]uint16, error) {
	resp, err := conn.Retr(bandPath)
	if err != nil {
		return nil, fmt.Errorf("ftp retr: %w", err)
	}
	defer resp.Close()

	samples, w, h, err := raster.DecodeBand(resp)
	if err != nil {
		return nil, err
	}
	if w != scene.Width || h != scene.Height {
		return nil, fmt.Errorf("band size %dx%d does not match scene %s metadata %dx%d",
			w, h, scene.ID, scene.Width, scene.Height)
	}
	return samples, nil
}
