//go:build proj4

package converters

import (
	"math"
	"sync"

	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/ecopia-map/cesium_fetcher/internal/geometry"
	"github.com/golang/glog"
	proj "github.com/xeonx/proj4"
)

const (
	epsg4326 = "+proj=longlat +datum=WGS84 +no_defs"
	epsg4978 = "+proj=geocent +datum=WGS84 +units=m +no_defs"
)

// proj4CoordinateConverter delegates to libproj. Projections are not safe for concurrent use so every
// transformation holds the mutex.
type proj4CoordinateConverter struct {
	sync.Mutex
	geodetic *proj.Proj
	geocent  *proj.Proj
	fallback *WGS84Converter
}

func NewProj4Converter() (CoordinateConverter, error) {
	geodetic, err := proj.InitPlus(epsg4326)
	if err != nil {
		return nil, errs.Wrapf(errs.Configuration, "init proj4", err, "projection %s", epsg4326)
	}
	geocent, err := proj.InitPlus(epsg4978)
	if err != nil {
		geodetic.Close()
		return nil, errs.Wrapf(errs.Configuration, "init proj4", err, "projection %s", epsg4978)
	}

	return &proj4CoordinateConverter{
		geodetic: geodetic,
		geocent:  geocent,
		fallback: NewWGS84Converter(),
	}, nil
}

func (cc *proj4CoordinateConverter) transform(src, dst *proj.Proj, x, y, z float64) (float64, float64, float64, error) {
	cc.Lock()
	defer cc.Unlock()

	xs, ys, zs := []float64{x}, []float64{y}, []float64{z}
	if src.IsLatLong() {
		xs[0] *= toRadians
		ys[0] *= toRadians
	}
	if err := proj.TransformRaw(src, dst, xs, ys, zs); err != nil {
		return 0, 0, 0, err
	}
	if dst.IsLatLong() {
		xs[0] *= toDegrees
		ys[0] *= toDegrees
	}
	return xs[0], ys[0], zs[0], nil
}

func (cc *proj4CoordinateConverter) GeodeticToECEF(lat, lon, alt float64) (x, y, z float64) {
	x, y, z, err := cc.transform(cc.geodetic, cc.geocent, lon, lat, alt)
	if err != nil || math.IsNaN(x) {
		glog.Warningf("proj4 geodetic to ECEF failed for (%f, %f, %f), using closed form: %v", lat, lon, alt, err)
		return cc.fallback.GeodeticToECEF(lat, lon, alt)
	}
	return x, y, z
}

func (cc *proj4CoordinateConverter) ECEFToGeodetic(x, y, z float64) (lat, lon, alt float64) {
	lon, lat, alt, err := cc.transform(cc.geocent, cc.geodetic, x, y, z)
	if err != nil || math.IsNaN(lat) {
		glog.Warningf("proj4 ECEF to geodetic failed for (%f, %f, %f), using closed form: %v", x, y, z, err)
		return cc.fallback.ECEFToGeodetic(x, y, z)
	}
	return lat, lon, alt
}

func (cc *proj4CoordinateConverter) ConvertToWGS84Cartesian(coord geometry.Coordinate) (geometry.Coordinate, error) {
	if err := validateGeodetic(coord); err != nil {
		return geometry.Coordinate{}, err
	}
	x, y, z, err := cc.transform(cc.geodetic, cc.geocent, coord.X, coord.Y, coord.Z)
	if err != nil {
		return geometry.Coordinate{}, errs.Wrap(errs.Geometry, "convert to ECEF", err)
	}
	return geometry.NewCoordinate(x, y, z), nil
}

func (cc *proj4CoordinateConverter) ConvertFromWGS84Cartesian(coord geometry.Coordinate) (geometry.Coordinate, error) {
	if !coord.IsFinite() {
		return geometry.Coordinate{}, errs.New(errs.Geometry, "convert from ECEF", "coordinate %v is not finite", coord)
	}
	lon, lat, alt, err := cc.transform(cc.geocent, cc.geodetic, coord.X, coord.Y, coord.Z)
	if err != nil {
		return geometry.Coordinate{}, errs.Wrap(errs.Geometry, "convert from ECEF", err)
	}
	return geometry.NewCoordinate(lon, lat, alt), nil
}

func (cc *proj4CoordinateConverter) Cleanup() {
	cc.Lock()
	defer cc.Unlock()
	if cc.geodetic != nil {
		cc.geodetic.Close()
		cc.geodetic = nil
	}
	if cc.geocent != nil {
		cc.geocent.Close()
		cc.geocent = nil
	}
}
