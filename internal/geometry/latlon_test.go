package geometry

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestLatLonRangesOverlap(t *testing.T) {
	cases := []struct {
		name string
		a, b LatLonRange
		want bool
	}{
		{"identical", LatLonRange{10, 20, 30, 40}, LatLonRange{10, 20, 30, 40}, true},
		{"nested", LatLonRange{0, 50, 0, 50}, LatLonRange{10, 20, 10, 20}, true},
		{"shared edge", LatLonRange{0, 10, 0, 10}, LatLonRange{10, 20, 10, 20}, true},
		{"disjoint latitude", LatLonRange{0, 10, 0, 10}, LatLonRange{11, 20, 0, 10}, false},
		{"disjoint longitude", LatLonRange{0, 10, 0, 10}, LatLonRange{0, 10, 20, 30}, false},
		{"region across antimeridian", LatLonRange{-5, 5, 170, -170}, LatLonRange{-1, 1, 175, 179}, true},
		{"tile east of antimeridian", LatLonRange{-5, 5, 170, -170}, LatLonRange{-1, 1, -179, -175}, true},
		{"tile far from antimeridian", LatLonRange{-5, 5, 170, -170}, LatLonRange{-1, 1, 0, 10}, false},
		{"both across antimeridian", LatLonRange{-5, 5, 175, -175}, LatLonRange{-5, 5, 179, -179}, true},
		{"shifted by 360", LatLonRange{0, 10, 350, 355}, LatLonRange{0, 10, -8, -6}, true},
		{"full circle", LatLonRange{-90, 90, -180, 180}, LatLonRange{0, 1, 42, 43}, true},
		{"wide range not wrapping", LatLonRange{0, 10, -170, 170}, LatLonRange{0, 10, 175, 176}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, LatLonRangesOverlap(c.a, c.b))
			assert.Equal(t, c.want, LatLonRangesOverlap(c.b, c.a), "overlap must be symmetric")
		})
	}
}

func TestCrossesAntimeridian(t *testing.T) {
	assert.True(t, LatLonRange{MinLon: 170, MaxLon: -170}.CrossesAntimeridian())
	assert.False(t, LatLonRange{MinLon: -170, MaxLon: 170}.CrossesAntimeridian())
	assert.False(t, LatLonRange{MinLon: -180, MaxLon: 180}.CrossesAntimeridian())
}

func TestLongitudeArc(t *testing.T) {
	min, max := longitudeArc([]float64{10, 12, 11})
	assert.Equal(t, 10.0, min)
	assert.Equal(t, 12.0, max)

	min, max = longitudeArc([]float64{179, -179, 175, -175})
	assert.Equal(t, 175.0, min)
	assert.Equal(t, -175.0, max)

	min, max = longitudeArc([]float64{42})
	assert.Equal(t, 42.0, min)
	assert.Equal(t, 42.0, max)
}

func TestBoundCorners(t *testing.T) {
	r := LatLonRange{MinLat: 1, MaxLat: 2, MinLon: 3, MaxLon: 4}
	b := r.Bound()
	assert.Equal(t, orb.Point{3, 1}, b.Min)
	assert.Equal(t, orb.Point{4, 2}, b.Max)
}
