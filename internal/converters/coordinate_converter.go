package converters

import (
	"github.com/ecopia-map/cesium_fetcher/internal/geometry"
)

// CoordinateConverter converts between WGS84 geodetic coordinates (EPSG:4326, degrees) and ECEF (EPSG:4978).
// Geodetic coordinates carry longitude in X and latitude in Y.
type CoordinateConverter interface {
	GeodeticToECEF(lat, lon, alt float64) (x, y, z float64)
	ECEFToGeodetic(x, y, z float64) (lat, lon, alt float64)
	ConvertToWGS84Cartesian(coord geometry.Coordinate) (geometry.Coordinate, error)
	ConvertFromWGS84Cartesian(coord geometry.Coordinate) (geometry.Coordinate, error)
	Cleanup()
}
