package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/constraints"
)

// Clamp restricts v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Sign returns -1 for negative values and 1 otherwise.
func Sign[T constraints.Signed | constraints.Float](v T) T {
	if v < 0 {
		return -1
	}
	return 1
}

// IsZero reports whether every component of v is within eps of zero.
func IsZero(v mgl64.Vec3, eps float64) bool {
	return math.Abs(v.X()) <= eps && math.Abs(v.Y()) <= eps && math.Abs(v.Z()) <= eps
}

// Perpendicular returns a unit vector orthogonal to the unit vector n.
// The component of n with the smallest magnitude is dropped to keep the
// cross product well conditioned.
func Perpendicular(n mgl64.Vec3) mgl64.Vec3 {
	x2, y2, z2 := n.X()*n.X(), n.Y()*n.Y(), n.Z()*n.Z()

	switch {
	case x2 < y2 && x2 < z2:
		inv := 1 / math.Sqrt(y2+z2)
		return mgl64.Vec3{0, n.Z() * inv, -n.Y() * inv}
	case y2 < z2:
		inv := 1 / math.Sqrt(x2+z2)
		return mgl64.Vec3{-n.Z() * inv, 0, n.X() * inv}
	default:
		inv := 1 / math.Sqrt(x2+y2)
		return mgl64.Vec3{n.Y() * inv, -n.X() * inv, 0}
	}
}

// ScaleRows multiplies row i of m by s[i].
func ScaleRows(m mgl64.Mat3, s mgl64.Vec3) mgl64.Mat3 {
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			m[col*3+row] *= s[row]
		}
	}
	return m
}

// AbsMat3 returns m with every element replaced by its absolute value.
func AbsMat3(m mgl64.Mat3) mgl64.Mat3 {
	for i := range m {
		m[i] = math.Abs(m[i])
	}
	return m
}
