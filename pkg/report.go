package pkg

import (
	"os"
	"time"

	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/ecopia-map/cesium_fetcher/internal/geometry"
	"github.com/goccy/go-json"
)

// Report summarises one resolve run. It is what -report writes and what the query command reads.
type Report struct {
	RunID          string               `json:"run_id"`
	StartedAt      time.Time            `json:"started_at"`
	Duration       string               `json:"duration"`
	MaxDepth       int                  `json:"max_depth"`
	Region         geometry.LatLonRange `json:"region"`
	ClusterFetches int                  `json:"cluster_fetches"`
	Pruned         int                  `json:"pruned"`

	Tiles           []TileReport `json:"tiles"`
	BoundingVolumes [][]float64  `json:"bounding_volumes"`
	Downloaded      []string     `json:"downloaded"`
	FromCache       []string     `json:"from_cache"`
	Cached          int          `json:"cached"`
	Skipped         int          `json:"skipped"`
	Failed          int          `json:"failed"`
	BranchErrors    []string     `json:"branch_errors,omitempty"`

	// Contains lists the bounding volumes holding the query point, when one was given.
	Contains [][]float64 `json:"contains,omitempty"`
}

// TileReport is one resolved candidate. ContentPath carries no query string so no session ends up on disk.
type TileReport struct {
	Depth          int       `json:"depth"`
	ContentPath    string    `json:"content_path,omitempty"`
	BoundingVolume []float64 `json:"bounding_volume"`
	Center         []float64 `json:"center,omitempty"`
	File           string    `json:"file,omitempty"`
	Cached         bool      `json:"cached,omitempty"`
	Skipped        bool      `json:"skipped,omitempty"`
	Error          string    `json:"error,omitempty"`
}

func WriteReport(path string, report *Report) error {
	data, err := json.MarshalIndent(report, "", "\t")
	if err != nil {
		return errs.Wrap(errs.Configuration, "write report", err)
	}
	if err := os.WriteFile(path, data, 0666); err != nil {
		return errs.Wrapf(errs.Configuration, "write report", err, "writing %s", path)
	}
	return nil
}

func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrapf(errs.Configuration, "read report", err, "reading %s", path)
	}
	report := &Report{}
	if err := json.Unmarshal(data, report); err != nil {
		return nil, errs.Wrapf(errs.Parse, "read report", err, "decoding %s", path)
	}
	return report, nil
}
