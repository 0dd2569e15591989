package std_algorithm_manager

import (
	"github.com/ecopia-map/cesium_fetcher/internal/converters"
	"github.com/ecopia-map/cesium_fetcher/internal/converters/elevation/offset_elevation_corrector"
	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/ecopia-map/cesium_fetcher/internal/geometry"
	"github.com/ecopia-map/cesium_fetcher/internal/resolver"
	"github.com/ecopia-map/cesium_fetcher/internal/tiler"
	"github.com/ecopia-map/cesium_fetcher/internal/tileset"
	"github.com/ecopia-map/cesium_fetcher/pkg/algorithm_manager"
	"github.com/golang/glog"
)

type StandardAlgorithmManager struct {
	options             *tiler.FetcherOptions
	coordinateConverter converters.CoordinateConverter
	elevationCorrector  converters.ElevationCorrector
}

func NewAlgorithmManager(opts *tiler.FetcherOptions) (algorithm_manager.AlgorithmManager, error) {
	converter, err := converterFactory(opts.Converter)
	if err != nil {
		return nil, err
	}

	return &StandardAlgorithmManager{
		options:             opts,
		coordinateConverter: converter,
		elevationCorrector:  offset_elevation_corrector.NewOffsetElevationCorrector(opts.ZOffset),
	}, nil
}

func (m *StandardAlgorithmManager) GetElevationCorrectionAlgorithm() converters.ElevationCorrector {
	return m.elevationCorrector
}

func (m *StandardAlgorithmManager) GetCoordinateConverterAlgorithm() converters.CoordinateConverter {
	return m.coordinateConverter
}

// GetViabilityAlgorithm returns the pruning predicate for the configured algorithm. Tiles carrying a region
// volume are always compared by latitude/longitude extent.
func (m *StandardAlgorithmManager) GetViabilityAlgorithm(region *geometry.Region) resolver.Predicate {
	g := m.coordinateConverter
	regionRange := region.Range(g)

	switch m.options.Algorithm {
	case tiler.Volume:
		volume := region.VolumeAABB(g, m.options.VolumeBelow, m.options.VolumeAbove)
		return func(tile *tileset.Tile) (bool, error) {
			if viable, handled, err := overlapsByRegion(tile, regionRange); handled {
				return viable, err
			}
			obb, err := tile.BoundingVolume.OBB()
			if err != nil {
				return false, err
			}
			return geometry.OBBIntersectsAABB(obb, volume), nil
		}
	default:
		return func(tile *tileset.Tile) (bool, error) {
			if viable, handled, err := overlapsByRegion(tile, regionRange); handled {
				return viable, err
			}
			obb, err := tile.BoundingVolume.OBB()
			if err != nil {
				return false, err
			}
			return geometry.TileBoundaryOverlap(regionRange, obb, g), nil
		}
	}
}

// overlapsByRegion handles tiles bounded by a region volume. handled is false for box volumes.
func overlapsByRegion(tile *tileset.Tile, regionRange geometry.LatLonRange) (viable bool, handled bool, err error) {
	r, ok, err := tile.BoundingVolume.LatLonRange()
	if err != nil {
		return false, true, err
	}
	if !ok {
		return false, false, nil
	}
	return geometry.LatLonRangesOverlap(regionRange, r), true, nil
}

func converterFactory(kind tiler.ConverterKind) (converters.CoordinateConverter, error) {
	switch kind {
	case tiler.WGS84, "":
		return converters.NewWGS84Converter(), nil
	case tiler.Proj4:
		converter, err := converters.NewProj4Converter()
		if err != nil {
			return nil, err
		}
		glog.Infoln("using proj4 coordinate converter")
		return converter, nil
	}
	return nil, errs.New(errs.Configuration, "select converter", "unknown converter %q", kind)
}
