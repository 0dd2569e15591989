package geometry

import (
	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/go-gl/mathgl/mgl64"
)

// Region is the area of interest as ECEF corner points, normally a quadrilateral.
type Region struct {
	Corners []Coordinate
}

func NewRegion(corners []Coordinate) (*Region, error) {
	if len(corners) < 3 {
		return nil, errs.New(errs.Geometry, "build region", "a region needs at least 3 corners, got %d", len(corners))
	}
	for i, c := range corners {
		if !c.IsFinite() {
			return nil, errs.New(errs.Geometry, "build region", "corner %d is not finite", i)
		}
	}
	return &Region{Corners: corners}, nil
}

func (r *Region) Points() []mgl64.Vec3 {
	points := make([]mgl64.Vec3, len(r.Corners))
	for i, c := range r.Corners {
		points[i] = c.Vec3()
	}
	return points
}

func (r *Region) Range(g Geodesy) LatLonRange {
	return RangeOfECEF(r.Points(), g)
}

// VolumeAABB extrudes the corners along their normals between the below and above heights and returns the
// ECEF box holding the result.
func (r *Region) VolumeAABB(g Geodesy, below, above float64) AxisAlignedBoundingBox {
	points := make([]mgl64.Vec3, 0, 2*len(r.Corners))
	for _, c := range r.Corners {
		lat, lon, _ := g.ECEFToGeodetic(c.X, c.Y, c.Z)
		for _, h := range []float64{below, above} {
			x, y, z := g.GeodeticToECEF(lat, lon, h)
			points = append(points, mgl64.Vec3{x, y, z})
		}
	}
	return NewAABBFromPoints(points...)
}
