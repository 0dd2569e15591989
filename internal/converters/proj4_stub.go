//go:build !proj4

package converters

import "github.com/ecopia-map/cesium_fetcher/internal/errs"

// NewProj4Converter needs the binary to be built with the proj4 tag and libproj installed.
func NewProj4Converter() (CoordinateConverter, error) {
	return nil, errs.New(errs.Configuration, "init proj4", "built without proj4 support, rebuild with -tags proj4")
}
