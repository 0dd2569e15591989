package geometry

import (
	"math"

	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/ecopia-map/cesium_fetcher/tools"
	"github.com/go-gl/mathgl/mgl64"
)

// OrientedBoundingBox is the 3D Tiles "box" volume: a center and three half-axis vectors in ECEF metres.
type OrientedBoundingBox struct {
	Center   mgl64.Vec3
	HalfAxes [3]mgl64.Vec3
}

// NewOrientedBoundingBox reads the 12 number layout [cx cy cz  xx xy xz  yx yy yz  zx zy zz].
func NewOrientedBoundingBox(box []float64) (*OrientedBoundingBox, error) {
	if len(box) != 12 {
		return nil, errs.New(errs.Geometry, "read box", "expected 12 values, got %d", len(box))
	}
	for i, v := range box {
		if !isFinite(v) {
			return nil, errs.New(errs.Geometry, "read box", "value %d is not finite", i)
		}
	}

	obb := &OrientedBoundingBox{
		Center: mgl64.Vec3{box[0], box[1], box[2]},
		HalfAxes: [3]mgl64.Vec3{
			{box[3], box[4], box[5]},
			{box[6], box[7], box[8]},
			{box[9], box[10], box[11]},
		},
	}
	for i, axis := range obb.HalfAxes {
		if tools.IsFloatZero(axis.Len()) {
			return nil, errs.New(errs.Geometry, "read box", "half-axis %d has zero length", i)
		}
	}
	return obb, nil
}

func (b *OrientedBoundingBox) Array() [12]float64 {
	return [12]float64{
		b.Center[0], b.Center[1], b.Center[2],
		b.HalfAxes[0][0], b.HalfAxes[0][1], b.HalfAxes[0][2],
		b.HalfAxes[1][0], b.HalfAxes[1][1], b.HalfAxes[1][2],
		b.HalfAxes[2][0], b.HalfAxes[2][1], b.HalfAxes[2][2],
	}
}

// Corners returns center ± each half-axis, in the order of a binary counter over (x, y, z) signs.
func (b *OrientedBoundingBox) Corners() [8]mgl64.Vec3 {
	var corners [8]mgl64.Vec3
	for i := 0; i < 8; i++ {
		c := b.Center
		for axis := 0; axis < 3; axis++ {
			if i&(1<<uint(axis)) == 0 {
				c = c.Sub(b.HalfAxes[axis])
			} else {
				c = c.Add(b.HalfAxes[axis])
			}
		}
		corners[i] = c
	}
	return corners
}

func (b *OrientedBoundingBox) AABB() AxisAlignedBoundingBox {
	var extent mgl64.Vec3
	for i := 0; i < 3; i++ {
		for _, axis := range b.HalfAxes {
			extent[i] += math.Abs(axis[i])
		}
	}
	return AxisAlignedBoundingBox{Min: b.Center.Sub(extent), Max: b.Center.Add(extent)}
}

func (b *OrientedBoundingBox) Contains(point mgl64.Vec3) bool {
	return PointInOBB(point, b)
}

// PointInOBB projects point-center onto the direction of each half-axis and accepts the point when every
// projection is within that half-axis' length, i.e. |d·a| <= |a|². Half-axes need not be unit length.
// Boundary points are inside.
func PointInOBB(point mgl64.Vec3, obb *OrientedBoundingBox) bool {
	d := point.Sub(obb.Center)
	for _, axis := range obb.HalfAxes {
		lengthSq := axis.Dot(axis)
		if lengthSq == 0 {
			return false
		}
		if math.Abs(d.Dot(axis)) > lengthSq*(1+1e-12) {
			return false
		}
	}
	return true
}
