package geometry

import "github.com/go-gl/mathgl/mgl64"

type AxisAlignedBoundingBox struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// NewAABBFromPoints returns the smallest box holding every point; an empty slice gives a zero box.
func NewAABBFromPoints(points ...mgl64.Vec3) AxisAlignedBoundingBox {
	if len(points) == 0 {
		return AxisAlignedBoundingBox{}
	}
	box := AxisAlignedBoundingBox{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		box = box.Extend(p)
	}
	return box
}

func (b AxisAlignedBoundingBox) Extend(p mgl64.Vec3) AxisAlignedBoundingBox {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
	return b
}

func (b AxisAlignedBoundingBox) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AxisAlignedBoundingBox) HalfExtents() mgl64.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

func (b AxisAlignedBoundingBox) Contains(p mgl64.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}
