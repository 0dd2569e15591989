package algorithm_manager

import (
	"github.com/ecopia-map/cesium_fetcher/internal/converters"
	"github.com/ecopia-map/cesium_fetcher/internal/geometry"
	"github.com/ecopia-map/cesium_fetcher/internal/resolver"
)

type AlgorithmManager interface {
	GetElevationCorrectionAlgorithm() converters.ElevationCorrector
	GetCoordinateConverterAlgorithm() converters.CoordinateConverter
	GetViabilityAlgorithm(region *geometry.Region) resolver.Predicate
}
