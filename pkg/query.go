package pkg

import (
	"github.com/ecopia-map/cesium_fetcher/internal/converters"
	"github.com/ecopia-map/cesium_fetcher/internal/geometry"
	"github.com/ecopia-map/cesium_fetcher/internal/tiler"
	"github.com/ecopia-map/cesium_fetcher/internal/tileset"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/glog"
	"github.com/samber/lo"
)

// QueryPoint returns the boxes containing the ECEF point, in input order. Entries that are not valid 12 value
// boxes are ignored.
func QueryPoint(boxes [][]float64, point mgl64.Vec3) [][]float64 {
	return lo.Filter(boxes, func(box []float64, i int) bool {
		obb, err := geometry.NewOrientedBoundingBox(box)
		if err != nil {
			glog.V(1).Infof("query skips bounding volume %d: %v", i, err)
			return false
		}
		return geometry.PointInOBB(point, obb)
	})
}

// FindTilesOfInterest returns the deepest tiles of the tree whose box contains the ECEF point, in depth first
// order. A tile containing the point is returned itself when none of its children does.
func FindTilesOfInterest(tile *tileset.Tile, point mgl64.Vec3) []*tileset.Tile {
	if tile == nil {
		return nil
	}

	var found []*tileset.Tile
	tile.Walk(func(t *tileset.Tile, _ int) bool {
		if !tileContains(t, point) {
			return false
		}
		if !lo.SomeBy(t.Children, func(child *tileset.Tile) bool { return tileContains(child, point) }) {
			found = append(found, t)
			return false
		}
		return true
	})
	return found
}

func tileContains(tile *tileset.Tile, point mgl64.Vec3) bool {
	obb, err := tile.BoundingVolume.OBB()
	if err != nil {
		return false
	}
	return obb.Contains(point)
}

// queryPointECEF validates the geodetic query point and converts it to ECEF.
func queryPointECEF(converter converters.CoordinateConverter, q *tiler.QueryOptions) (mgl64.Vec3, error) {
	c, err := converter.ConvertToWGS84Cartesian(geometry.NewCoordinate(q.Longitude, q.Latitude, q.Altitude))
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return c.Vec3(), nil
}

// RunQuery answers a point query against the bounding volumes stored in a report.
func RunQuery(opts *tiler.QueryOptions) ([][]float64, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	report, err := ReadReport(opts.Report)
	if err != nil {
		return nil, err
	}

	point, err := queryPointECEF(converters.NewWGS84Converter(), opts)
	if err != nil {
		return nil, err
	}
	return QueryPoint(report.BoundingVolumes, point), nil
}

// RunTreeQuery walks the tile tree of a local tileset written by a resolve and returns the deepest tiles
// holding the point.
func RunTreeQuery(opts *tiler.QueryOptions) ([]*tileset.Tile, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ts, err := ReadLocalTileset(opts.Tileset)
	if err != nil {
		return nil, err
	}

	point, err := queryPointECEF(converters.NewWGS84Converter(), opts)
	if err != nil {
		return nil, err
	}
	return FindTilesOfInterest(ts.Root, point), nil
}
