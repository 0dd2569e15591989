package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const satEpsilon = 1e-6

// OBBIntersectsAABB runs the separating axis test over the 3 box axes, the 3 OBB axes and their 9 cross
// products. Touching boxes intersect.
func OBBIntersectsAABB(obb *OrientedBoundingBox, aabb AxisAlignedBoundingBox) bool {
	aExt := aabb.HalfExtents()

	var bAxis [3]mgl64.Vec3
	var bExt [3]float64
	for i, axis := range obb.HalfAxes {
		length := axis.Len()
		if length == 0 {
			return false
		}
		bExt[i] = length
		bAxis[i] = axis.Mul(1 / length)
	}

	// R[i][j] is the i-th world component of the j-th OBB axis.
	var r, absR [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = bAxis[j][i]
			absR[i][j] = math.Abs(r[i][j]) + satEpsilon
		}
	}

	t := obb.Center.Sub(aabb.Center())

	for i := 0; i < 3; i++ {
		ra := aExt[i]
		rb := bExt[0]*absR[i][0] + bExt[1]*absR[i][1] + bExt[2]*absR[i][2]
		if math.Abs(t[i]) > ra+rb {
			return false
		}
	}

	for j := 0; j < 3; j++ {
		ra := aExt[0]*absR[0][j] + aExt[1]*absR[1][j] + aExt[2]*absR[2][j]
		rb := bExt[j]
		if math.Abs(t[0]*r[0][j]+t[1]*r[1][j]+t[2]*r[2][j]) > ra+rb {
			return false
		}
	}

	for i := 0; i < 3; i++ {
		i1, i2 := (i+1)%3, (i+2)%3
		for j := 0; j < 3; j++ {
			j1, j2 := (j+1)%3, (j+2)%3
			ra := aExt[i1]*absR[i2][j] + aExt[i2]*absR[i1][j]
			rb := bExt[j1]*absR[i][j2] + bExt[j2]*absR[i][j1]
			if math.Abs(t[i2]*r[i1][j]-t[i1]*r[i2][j]) > ra+rb {
				return false
			}
		}
	}

	return true
}
