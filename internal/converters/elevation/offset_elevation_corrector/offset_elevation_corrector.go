package offset_elevation_corrector

import "github.com/ecopia-map/cesium_fetcher/internal/converters"

// OffsetElevationCorrector shifts region heights by a constant number of metres.
type OffsetElevationCorrector struct {
	Offset float64
}

func NewOffsetElevationCorrector(offset float64) converters.ElevationCorrector {
	return &OffsetElevationCorrector{
		Offset: offset,
	}
}

func (c *OffsetElevationCorrector) CorrectElevation(lon, lat, z float64) float64 {
	return z + c.Offset
}
