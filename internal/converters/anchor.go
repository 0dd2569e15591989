package converters

import (
	"math"

	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/ecopia-map/cesium_fetcher/internal/geometry"
	"github.com/go-gl/mathgl/mgl64"
)

// EarthAnchor ties a local model frame to the globe: ModelBasePoint (in model units) sits at the anchor's
// latitude, longitude and altitude, model X points east, Y north and Z up.
type EarthAnchor struct {
	Latitude       float64
	Longitude      float64
	Altitude       float64
	ModelBasePoint geometry.Coordinate
	UnitScale      float64 // metres per model unit
}

func NewEarthAnchor(lat, lon, alt float64, basePoint geometry.Coordinate, unitScale float64) (*EarthAnchor, error) {
	anchor := &EarthAnchor{
		Latitude:       lat,
		Longitude:      lon,
		Altitude:       alt,
		ModelBasePoint: basePoint,
		UnitScale:      unitScale,
	}
	if err := anchor.Validate(); err != nil {
		return nil, err
	}
	return anchor, nil
}

// Validate rejects anchors outside the open ranges (-90, 90) and (-180, 180). Values are never clamped.
func (a *EarthAnchor) Validate() error {
	const op = "validate earth anchor"
	if a == nil {
		return errs.New(errs.Configuration, op, "earth anchor is not set")
	}
	if math.IsNaN(a.Latitude) || a.Latitude <= -90 || a.Latitude >= 90 {
		return errs.New(errs.Configuration, op, "latitude %v must be within (-90, 90)", a.Latitude)
	}
	if math.IsNaN(a.Longitude) || a.Longitude <= -180 || a.Longitude >= 180 {
		return errs.New(errs.Configuration, op, "longitude %v must be within (-180, 180)", a.Longitude)
	}
	if math.IsNaN(a.Altitude) || math.IsInf(a.Altitude, 0) {
		return errs.New(errs.Configuration, op, "altitude %v is not finite", a.Altitude)
	}
	if !a.ModelBasePoint.IsFinite() {
		return errs.New(errs.Configuration, op, "model base point %v is not finite", a.ModelBasePoint)
	}
	if math.IsNaN(a.UnitScale) || math.IsInf(a.UnitScale, 0) || a.UnitScale <= 0 {
		return errs.New(errs.Configuration, op, "unit scale %v must be a positive number", a.UnitScale)
	}
	return nil
}

// enuFrame returns the east, north and up unit vectors at the anchor.
func (a *EarthAnchor) enuFrame() (east, north, up mgl64.Vec3) {
	sinPhi, cosPhi := math.Sincos(a.Latitude * toRadians)
	sinLambda, cosLambda := math.Sincos(a.Longitude * toRadians)

	east = mgl64.Vec3{-sinLambda, cosLambda, 0}
	north = mgl64.Vec3{-sinPhi * cosLambda, -sinPhi * sinLambda, cosPhi}
	up = mgl64.Vec3{cosPhi * cosLambda, cosPhi * sinLambda, sinPhi}
	return east, north, up
}

// ModelToECEF places a model point on the globe.
func (a *EarthAnchor) ModelToECEF(g geometry.Geodesy, point geometry.Coordinate) (mgl64.Vec3, error) {
	if err := a.Validate(); err != nil {
		return mgl64.Vec3{}, err
	}
	if !point.IsFinite() {
		return mgl64.Vec3{}, errs.New(errs.Geometry, "model to earth", "point %v is not finite", point)
	}

	offset := point.Vec3().Sub(a.ModelBasePoint.Vec3()).Mul(a.UnitScale)
	east, north, up := a.enuFrame()
	x, y, z := g.GeodeticToECEF(a.Latitude, a.Longitude, a.Altitude)

	return mgl64.Vec3{x, y, z}.
		Add(east.Mul(offset[0])).
		Add(north.Mul(offset[1])).
		Add(up.Mul(offset[2])), nil
}

// ModelToEarth maps a model point to a geodetic coordinate (lon in X, lat in Y, height in Z).
func (a *EarthAnchor) ModelToEarth(g geometry.Geodesy, point geometry.Coordinate) (geometry.Coordinate, error) {
	ecef, err := a.ModelToECEF(g, point)
	if err != nil {
		return geometry.Coordinate{}, err
	}
	lat, lon, alt := g.ECEFToGeodetic(ecef[0], ecef[1], ecef[2])
	return geometry.NewCoordinate(lon, lat, alt), nil
}

// RegionToECEF maps the model space corners of the region of interest to ECEF, applying the elevation
// correction to each corner's height.
func (a *EarthAnchor) RegionToECEF(g geometry.Geodesy, corners []geometry.Coordinate, corrector ElevationCorrector) (*geometry.Region, error) {
	ecef := make([]geometry.Coordinate, 0, len(corners))
	for _, corner := range corners {
		geo, err := a.ModelToEarth(g, corner)
		if err != nil {
			return nil, err
		}
		alt := geo.Z
		if corrector != nil {
			alt = corrector.CorrectElevation(geo.X, geo.Y, alt)
		}
		x, y, z := g.GeodeticToECEF(geo.Y, geo.X, alt)
		ecef = append(ecef, geometry.NewCoordinate(x, y, z))
	}
	return geometry.NewRegion(ecef)
}
