package pkg

import (
	"os"
	"path/filepath"

	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/ecopia-map/cesium_fetcher/internal/io"
	"github.com/ecopia-map/cesium_fetcher/internal/resolver"
	"github.com/ecopia-map/cesium_fetcher/internal/tileset"
)

// BuildLocalTileset lays the downloaded tiles out as children of the service root, with content URIs pointing
// at the cached files relative to dir. Failed and skipped candidates are left out.
func BuildLocalTileset(root *tileset.Tile, candidates []resolver.Candidate, downloads []*io.DownloadResult, dir string) *tileset.Tileset {
	local := &tileset.Tile{Refine: "REPLACE"}
	if root != nil {
		local.BoundingVolume = root.BoundingVolume
		local.GeometricError = root.GeometricError
	}

	for _, d := range downloads {
		if d.Skipped || d.Err != nil || d.Path == "" {
			continue
		}
		tile := candidates[d.Index].Tile
		local.Children = append(local.Children, &tileset.Tile{
			BoundingVolume: tile.BoundingVolume,
			GeometricError: tile.GeometricError,
			Refine:         tile.Refine,
			Content:        &tileset.Content{URI: localURI(dir, d.Path)},
		})
	}

	return &tileset.Tileset{
		Asset:          tileset.Asset{Version: "1.0"},
		GeometricError: local.GeometricError,
		Root:           local,
	}
}

func localURI(dir string, file string) string {
	if rel, err := filepath.Rel(dir, file); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(file)
}

func WriteLocalTileset(path string, ts *tileset.Tileset) error {
	data, err := tileset.Encode(ts)
	if err != nil {
		return errs.Wrap(errs.Parse, "write tileset", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return errs.Wrapf(errs.Configuration, "write tileset", err, "creating folder of %s", path)
	}
	if err := os.WriteFile(path, data, 0666); err != nil {
		return errs.Wrapf(errs.Configuration, "write tileset", err, "writing %s", path)
	}
	return nil
}

func ReadLocalTileset(path string) (*tileset.Tileset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrapf(errs.Configuration, "read tileset", err, "reading %s", path)
	}
	return tileset.Decode(data, path)
}
