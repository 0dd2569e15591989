package geometry

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func unitCube() AxisAlignedBoundingBox {
	return AxisAlignedBoundingBox{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}
}

func TestOBBIntersectsAABB(t *testing.T) {
	s := math.Sqrt2 / 4
	cases := []struct {
		name string
		obb  *OrientedBoundingBox
		want bool
	}{
		{
			name: "same box",
			obb:  &OrientedBoundingBox{Center: mgl64.Vec3{0.5, 0.5, 0.5}, HalfAxes: [3]mgl64.Vec3{{0.5, 0, 0}, {0, 0.5, 0}, {0, 0, 0.5}}},
			want: true,
		},
		{
			name: "contained",
			obb:  &OrientedBoundingBox{Center: mgl64.Vec3{0.5, 0.5, 0.5}, HalfAxes: [3]mgl64.Vec3{{0.1, 0, 0}, {0, 0.1, 0}, {0, 0, 0.1}}},
			want: true,
		},
		{
			name: "touching face",
			obb:  &OrientedBoundingBox{Center: mgl64.Vec3{1.5, 0.5, 0.5}, HalfAxes: [3]mgl64.Vec3{{0.5, 0, 0}, {0, 0.5, 0}, {0, 0, 0.5}}},
			want: true,
		},
		{
			name: "separated along x",
			obb:  &OrientedBoundingBox{Center: mgl64.Vec3{3, 0.5, 0.5}, HalfAxes: [3]mgl64.Vec3{{0.5, 0, 0}, {0, 0.5, 0}, {0, 0, 0.5}}},
			want: false,
		},
		{
			name: "rotated and overlapping a corner",
			obb:  &OrientedBoundingBox{Center: mgl64.Vec3{1.2, 1.2, 0.5}, HalfAxes: [3]mgl64.Vec3{{2 * s, 2 * s, 0}, {-2 * s, 2 * s, 0}, {0, 0, 0.5}}},
			want: true,
		},
		{
			name: "rotated and separated only by its own face normal",
			obb:  &OrientedBoundingBox{Center: mgl64.Vec3{2, 2, 0.5}, HalfAxes: [3]mgl64.Vec3{{2 * s, 2 * s, 0}, {-2 * s, 2 * s, 0}, {0, 0, 0.5}}},
			want: false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, OBBIntersectsAABB(c.obb, unitCube()))
		})
	}
}

func TestOBBIntersectsItsOwnAABB(t *testing.T) {
	obb := rotatedBox()
	assert.True(t, OBBIntersectsAABB(obb, obb.AABB()))

	far := obb.AABB()
	far.Min = far.Min.Add(mgl64.Vec3{1000, 0, 0})
	far.Max = far.Max.Add(mgl64.Vec3{1000, 0, 0})
	assert.False(t, OBBIntersectsAABB(obb, far))
}
