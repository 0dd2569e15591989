package geometry

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"
)

// LatLonRange is a geographic extent in degrees. MinLon > MaxLon marks a range that crosses the antimeridian.
type LatLonRange struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

func (r LatLonRange) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{r.MinLon, r.MinLat}, Max: orb.Point{r.MaxLon, r.MaxLat}}
}

func (r LatLonRange) coversAllLongitudes() bool {
	return r.MaxLon-r.MinLon >= 360
}

func (r LatLonRange) CrossesAntimeridian() bool {
	if r.coversAllLongitudes() {
		return false
	}
	return denormalizeLon(normalizeLon(r.MinLon)) > denormalizeLon(normalizeLon(r.MaxLon))
}

// bounds maps the range to [0, 360) longitudes, splitting it in two when it wraps.
func (r LatLonRange) bounds() []orb.Bound {
	if r.coversAllLongitudes() {
		return []orb.Bound{{Min: orb.Point{0, r.MinLat}, Max: orb.Point{360, r.MaxLat}}}
	}

	lo, hi := normalizeLon(r.MinLon), normalizeLon(r.MaxLon)
	if lo <= hi {
		return []orb.Bound{{Min: orb.Point{lo, r.MinLat}, Max: orb.Point{hi, r.MaxLat}}}
	}
	return []orb.Bound{
		{Min: orb.Point{lo, r.MinLat}, Max: orb.Point{360, r.MaxLat}},
		{Min: orb.Point{0, r.MinLat}, Max: orb.Point{hi, r.MaxLat}},
	}
}

// LatLonRangesOverlap reports whether two closed ranges share at least one point, treating longitude as
// circular.
func LatLonRangesOverlap(a, b LatLonRange) bool {
	if a.MinLat > b.MaxLat || b.MinLat > a.MaxLat {
		return false
	}
	for _, ab := range a.bounds() {
		for _, bb := range b.bounds() {
			if ab.Intersects(bb) {
				return true
			}
		}
	}
	return false
}

func normalizeLon(lon float64) float64 {
	l := math.Mod(lon, 360)
	if l < 0 {
		l += 360
	}
	return l
}

func denormalizeLon(lon float64) float64 {
	if lon > 180 {
		return lon - 360
	}
	return lon
}

// longitudeArc returns the shortest arc, walking east from min to max, that holds every longitude.
func longitudeArc(lons []float64) (float64, float64) {
	norm := make([]float64, len(lons))
	for i, l := range lons {
		norm[i] = normalizeLon(l)
	}
	sort.Float64s(norm)

	n := len(norm)
	gapIdx := n - 1
	gap := norm[0] + 360 - norm[n-1]
	for i := 0; i < n-1; i++ {
		if g := norm[i+1] - norm[i]; g > gap {
			gap = g
			gapIdx = i
		}
	}

	return denormalizeLon(norm[(gapIdx+1)%n]), denormalizeLon(norm[gapIdx])
}

// RangeOfECEF converts ECEF points to geodetic coordinates and returns their extent.
func RangeOfECEF(points []mgl64.Vec3, g Geodesy) LatLonRange {
	if len(points) == 0 {
		return LatLonRange{}
	}

	r := LatLonRange{MinLat: math.Inf(1), MaxLat: math.Inf(-1)}
	lons := make([]float64, 0, len(points))
	for _, p := range points {
		lat, lon, _ := g.ECEFToGeodetic(p[0], p[1], p[2])
		r.MinLat = math.Min(r.MinLat, lat)
		r.MaxLat = math.Max(r.MaxLat, lat)
		lons = append(lons, lon)
	}
	r.MinLon, r.MaxLon = longitudeArc(lons)
	return r
}

const (
	edgeSegments = 4
	// rangePadding is added on every side of a sampled extent, in degrees (about 11 m).
	rangePadding = 1e-4
)

// OBBRange returns the geodetic extent of a box from its corners and points along its edges. The extent is
// padded by the most an extreme between two samples can exceed them. Boxes whose extent reaches the polar axis
// get every longitude and the pole on their side.
func OBBRange(obb *OrientedBoundingBox, g Geodesy) LatLonRange {
	corners := obb.Corners()
	samples := make([]mgl64.Vec3, 0, 8+12*(edgeSegments-1))
	samples = append(samples, corners[:]...)
	for i := 0; i < 8; i++ {
		for axis := 0; axis < 3; axis++ {
			if i&(1<<uint(axis)) != 0 {
				continue
			}
			from, to := corners[i], corners[i|1<<uint(axis)]
			for k := 1; k < edgeSegments; k++ {
				t := float64(k) / edgeSegments
				samples = append(samples, from.Add(to.Sub(from).Mul(t)))
			}
		}
	}

	r := RangeOfECEF(samples, g)
	r = padRange(r, obb)

	box := obb.AABB()
	if box.Min[0] <= 0 && box.Max[0] >= 0 && box.Min[1] <= 0 && box.Max[1] >= 0 {
		r.MinLon, r.MaxLon = -180, 180
		if box.Max[2] > 0 {
			r.MaxLat = 90
		}
		if box.Min[2] < 0 {
			r.MinLat = -90
		}
	}
	return r
}

// padRange widens r by the sampling error bound of OBBRange. Between two samples h apart on a straight edge at
// distance d from the center (latitude) or the polar axis (longitude), the angle overshoots the samples by at
// most h²/(8d²) radians.
func padRange(r LatLonRange, obb *OrientedBoundingBox) LatLonRange {
	var longest float64
	for _, axis := range obb.HalfAxes {
		longest = math.Max(longest, 2*axis.Len())
	}
	h := longest / edgeSegments
	radius := obb.HalfAxes[0].Len() + obb.HalfAxes[1].Len() + obb.HalfAxes[2].Len()

	overshoot := func(d float64) float64 {
		if d <= h {
			return 360
		}
		return rangePadding + h*h/(8*d*d)*180/math.Pi
	}
	latPad := overshoot(obb.Center.Len() - radius)
	lonPad := overshoot(math.Hypot(obb.Center[0], obb.Center[1]) - radius)

	r.MinLat = math.Max(-90, r.MinLat-latPad)
	r.MaxLat = math.Min(90, r.MaxLat+latPad)

	if r.coversAllLongitudes() {
		return r
	}
	width := r.MaxLon - r.MinLon
	if width < 0 {
		width += 360
	}
	if width+2*lonPad >= 360 {
		r.MinLon, r.MaxLon = -180, 180
		return r
	}
	r.MinLon = denormalizeLon(normalizeLon(r.MinLon - lonPad))
	r.MaxLon = denormalizeLon(normalizeLon(r.MaxLon + lonPad))
	return r
}

// TileBoundaryOverlap tests a tile's box against the region's geographic extent.
func TileBoundaryOverlap(region LatLonRange, tile *OrientedBoundingBox, g Geodesy) bool {
	return LatLonRangesOverlap(region, OBBRange(tile, g))
}
