package geometry_test

import (
	"testing"

	"github.com/ecopia-map/cesium_fetcher/internal/converters"
	"github.com/ecopia-map/cesium_fetcher/internal/geometry"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// boxAt builds an ECEF box of the given half size, axis aligned with the world frame, centred on a surface point.
func boxAt(g geometry.Geodesy, lat, lon, half float64) *geometry.OrientedBoundingBox {
	x, y, z := g.GeodeticToECEF(lat, lon, 0)
	return &geometry.OrientedBoundingBox{
		Center:   mgl64.Vec3{x, y, z},
		HalfAxes: [3]mgl64.Vec3{{half, 0, 0}, {0, half, 0}, {0, 0, half}},
	}
}

func TestTileBoundaryOverlap(t *testing.T) {
	g := converters.NewWGS84Converter()
	region := geometry.LatLonRange{MinLat: 45.0, MaxLat: 45.01, MinLon: 9.0, MaxLon: 9.01}

	assert.True(t, geometry.TileBoundaryOverlap(region, boxAt(g, 45.005, 9.005, 100), g))
	assert.True(t, geometry.TileBoundaryOverlap(region, boxAt(g, 45.02, 9.02, 5000), g), "large neighbour reaches into the region")
	assert.False(t, geometry.TileBoundaryOverlap(region, boxAt(g, -33.9, 151.2, 1000), g))
	assert.False(t, geometry.TileBoundaryOverlap(region, boxAt(g, 46.0, 9.005, 100), g))
}

func TestTileBoundaryOverlapAcrossAntimeridian(t *testing.T) {
	g := converters.NewWGS84Converter()
	region := geometry.LatLonRange{MinLat: -1, MaxLat: 1, MinLon: 179.9, MaxLon: -179.9}

	tile := boxAt(g, 0, 180, 2000)
	r := geometry.OBBRange(tile, g)
	assert.True(t, r.CrossesAntimeridian())
	assert.True(t, geometry.TileBoundaryOverlap(region, tile, g))
}

func TestOBBRangeAroundPole(t *testing.T) {
	g := converters.NewWGS84Converter()
	r := geometry.OBBRange(boxAt(g, 90, 0, 10000), g)
	assert.Equal(t, 90.0, r.MaxLat)
	assert.Equal(t, -180.0, r.MinLon)
	assert.Equal(t, 180.0, r.MaxLon)
}

func TestOBBRangeHoldsEveryEdgePoint(t *testing.T) {
	g := converters.NewWGS84Converter()
	x, y, z := g.GeodeticToECEF(60, 30, 0)
	tile := &geometry.OrientedBoundingBox{
		Center:   mgl64.Vec3{x, y, z},
		HalfAxes: [3]mgl64.Vec3{{150000, 40000, 0}, {-30000, 120000, 50000}, {0, -20000, 90000}},
	}
	r := geometry.OBBRange(tile, g)
	require.False(t, r.CrossesAntimeridian())

	corners := tile.Corners()
	maxLat := -90.0
	for i := 0; i < 8; i++ {
		for axis := 0; axis < 3; axis++ {
			if i&(1<<uint(axis)) != 0 {
				continue
			}
			from, to := corners[i], corners[i|1<<uint(axis)]
			for k := 0; k <= 200; k++ {
				p := from.Add(to.Sub(from).Mul(float64(k) / 200))
				lat, lon, _ := g.ECEFToGeodetic(p[0], p[1], p[2])
				assert.GreaterOrEqual(t, lat, r.MinLat)
				assert.LessOrEqual(t, lat, r.MaxLat)
				assert.GreaterOrEqual(t, lon, r.MinLon)
				assert.LessOrEqual(t, lon, r.MaxLon)
				if lat > maxLat {
					maxLat = lat
				}
			}
		}
	}
	assert.Less(t, r.MaxLat-maxLat, 0.05, "padding stays small")
}

func TestRegionRangeAndVolume(t *testing.T) {
	g := converters.NewWGS84Converter()

	var corners []geometry.Coordinate
	for _, ll := range [][2]float64{{10, 20}, {10, 20.01}, {10.01, 20.01}, {10.01, 20}} {
		x, y, z := g.GeodeticToECEF(ll[0], ll[1], 0)
		corners = append(corners, geometry.NewCoordinate(x, y, z))
	}
	region, err := geometry.NewRegion(corners)
	require.NoError(t, err)

	r := region.Range(g)
	assert.InDelta(t, 10, r.MinLat, 1e-9)
	assert.InDelta(t, 10.01, r.MaxLat, 1e-9)
	assert.InDelta(t, 20, r.MinLon, 1e-9)
	assert.InDelta(t, 20.01, r.MaxLon, 1e-9)

	volume := region.VolumeAABB(g, -100, 500)
	inside := boxAt(g, 10.005, 20.005, 10)
	assert.True(t, volume.Contains(inside.Center))
	assert.True(t, geometry.OBBIntersectsAABB(inside, volume))
	assert.False(t, geometry.OBBIntersectsAABB(boxAt(g, 11, 21, 10), volume))

	_, err = geometry.NewRegion(corners[:2])
	assert.Error(t, err)
}
