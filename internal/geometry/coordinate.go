package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Contains the coordinates of a point. Geodetic coordinates store longitude in X, latitude in Y and
// ellipsoidal height in Z; cartesian coordinates store ECEF metres.
type Coordinate struct {
	X float64
	Y float64
	Z float64
}

func NewCoordinate(x, y, z float64) Coordinate {
	return Coordinate{X: x, Y: y, Z: z}
}

func CoordinateFromVec3(v mgl64.Vec3) Coordinate {
	return Coordinate{X: v[0], Y: v[1], Z: v[2]}
}

func (c Coordinate) Vec3() mgl64.Vec3 {
	return mgl64.Vec3{c.X, c.Y, c.Z}
}

func (c Coordinate) IsFinite() bool {
	return isFinite(c.X) && isFinite(c.Y) && isFinite(c.Z)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Geodesy converts between WGS84 geodetic coordinates (degrees, metres) and ECEF.
type Geodesy interface {
	GeodeticToECEF(lat, lon, alt float64) (x, y, z float64)
	ECEFToGeodetic(x, y, z float64) (lat, lon, alt float64)
}
