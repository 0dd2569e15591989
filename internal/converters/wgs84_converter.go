package converters

import (
	"math"

	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/ecopia-map/cesium_fetcher/internal/geometry"
)

const (
	WGS84SemiMajorAxis       = 6378137.0
	WGS84EccentricitySquared = 6.69437999014e-3

	toRadians = math.Pi / 180
	toDegrees = 180 / math.Pi
)

var (
	wgs84SemiMinorAxis = WGS84SemiMajorAxis * math.Sqrt(1-WGS84EccentricitySquared)
	// second eccentricity squared, (a²-b²)/b²
	wgs84SecondEccentricitySquared = (WGS84SemiMajorAxis*WGS84SemiMajorAxis - wgs84SemiMinorAxis*wgs84SemiMinorAxis) /
		(wgs84SemiMinorAxis * wgs84SemiMinorAxis)
)

// WGS84Converter implements the closed form ellipsoid conversions. It holds no state and is safe for
// concurrent use.
type WGS84Converter struct{}

func NewWGS84Converter() *WGS84Converter {
	return &WGS84Converter{}
}

func primeVerticalRadius(sinLat float64) float64 {
	return WGS84SemiMajorAxis / math.Sqrt(1-WGS84EccentricitySquared*sinLat*sinLat)
}

func (c *WGS84Converter) GeodeticToECEF(lat, lon, alt float64) (x, y, z float64) {
	phi := lat * toRadians
	lambda := lon * toRadians
	sinPhi, cosPhi := math.Sincos(phi)
	sinLambda, cosLambda := math.Sincos(lambda)
	n := primeVerticalRadius(sinPhi)

	x = (n + alt) * cosPhi * cosLambda
	y = (n + alt) * cosPhi * sinLambda
	z = ((1-WGS84EccentricitySquared)*n + alt) * sinPhi
	return x, y, z
}

// ECEFToGeodetic uses Bowring's single pass formula, accurate to well under a millimetre for heights between
// -1 km and 100 km.
func (c *WGS84Converter) ECEFToGeodetic(x, y, z float64) (lat, lon, alt float64) {
	a := WGS84SemiMajorAxis
	b := wgs84SemiMinorAxis
	p := math.Hypot(x, y)

	if p == 0 {
		// on the polar axis
		switch {
		case z > 0:
			return 90, 0, z - b
		case z < 0:
			return -90, 0, -z - b
		}
		return 0, 0, -a
	}

	theta := math.Atan2(a*z, b*p)
	sinTheta, cosTheta := math.Sincos(theta)
	num := z + wgs84SecondEccentricitySquared*b*sinTheta*sinTheta*sinTheta
	den := p - WGS84EccentricitySquared*a*cosTheta*cosTheta*cosTheta

	var phi float64
	if den <= 0 {
		phi = math.Copysign(math.Pi/2, z)
	} else {
		phi = math.Atan2(num, den)
	}
	lambda := math.Atan2(y, x)

	sinPhi, cosPhi := math.Sincos(phi)
	n := primeVerticalRadius(sinPhi)
	if math.Abs(phi) < math.Pi/4 {
		alt = p/cosPhi - n
	} else {
		alt = z/sinPhi - n*(1-WGS84EccentricitySquared)
	}

	return phi * toDegrees, lambda * toDegrees, alt
}

// ConvertToWGS84Cartesian converts a geodetic coordinate (lon, lat, height) to ECEF.
func (c *WGS84Converter) ConvertToWGS84Cartesian(coord geometry.Coordinate) (geometry.Coordinate, error) {
	if err := validateGeodetic(coord); err != nil {
		return geometry.Coordinate{}, err
	}
	x, y, z := c.GeodeticToECEF(coord.Y, coord.X, coord.Z)
	return geometry.NewCoordinate(x, y, z), nil
}

// ConvertFromWGS84Cartesian converts an ECEF coordinate to (lon, lat, height).
func (c *WGS84Converter) ConvertFromWGS84Cartesian(coord geometry.Coordinate) (geometry.Coordinate, error) {
	if !coord.IsFinite() {
		return geometry.Coordinate{}, errs.New(errs.Geometry, "convert from ECEF", "coordinate %v is not finite", coord)
	}
	lat, lon, alt := c.ECEFToGeodetic(coord.X, coord.Y, coord.Z)
	return geometry.NewCoordinate(lon, lat, alt), nil
}

func (c *WGS84Converter) Cleanup() {}

func validateGeodetic(coord geometry.Coordinate) error {
	if !coord.IsFinite() {
		return errs.New(errs.Geometry, "convert to ECEF", "coordinate %v is not finite", coord)
	}
	if coord.Y < -90 || coord.Y > 90 {
		return errs.New(errs.Geometry, "convert to ECEF", "latitude %f out of range", coord.Y)
	}
	if coord.X < -180 || coord.X > 180 {
		return errs.New(errs.Geometry, "convert to ECEF", "longitude %f out of range", coord.X)
	}
	return nil
}
