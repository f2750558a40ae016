package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// NewAABBFromPoints returns the smallest box enclosing all points.
func NewAABBFromPoints(points ...mgl64.Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}
	aabb := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		aabb = aabb.AddPoint(p)
	}
	return aabb
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Overlaps checks if two AABBs overlap. Touching boxes overlap.
func (a AABB) Overlaps(other AABB) bool {
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

// Combine returns the union of both boxes.
func (a AABB) Combine(other AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{math.Min(a.Min.X(), other.Min.X()), math.Min(a.Min.Y(), other.Min.Y()), math.Min(a.Min.Z(), other.Min.Z())},
		Max: mgl64.Vec3{math.Max(a.Max.X(), other.Max.X()), math.Max(a.Max.Y(), other.Max.Y()), math.Max(a.Max.Z(), other.Max.Z())},
	}
}

// AddPoint grows the box to include p.
func (a AABB) AddPoint(p mgl64.Vec3) AABB {
	return a.Combine(AABB{Min: p, Max: p})
}

// Expand pads every side by margin.
func (a AABB) Expand(margin float64) AABB {
	m := mgl64.Vec3{margin, margin, margin}
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Extents returns the half size on each axis.
func (a AABB) Extents() mgl64.Vec3 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// LongestAxis returns 0, 1 or 2.
func (a AABB) LongestAxis() int {
	size := a.Max.Sub(a.Min)
	if size.X() >= size.Y() && size.X() >= size.Z() {
		return 0
	}
	if size.Y() >= size.Z() {
		return 1
	}
	return 2
}

// Transformed returns the world box of a local box placed by tf.
func (a AABB) Transformed(tf Transform) AABB {
	center := tf.Point(a.Center())
	extents := AbsMat3(tf.Basis()).Mul3x1(a.Extents())
	return AABB{Min: center.Sub(extents), Max: center.Add(extents)}
}

// IntersectsSegment tests the segment [begin, end] against the box on the
// three box axes and the three cross axes.
func (a AABB) IntersectsSegment(begin, end mgl64.Vec3) bool {
	center := a.Center()
	ext := a.Extents()
	mid := begin.Add(end).Mul(0.5).Sub(center)
	half := end.Sub(begin).Mul(0.5)
	adx, ady, adz := math.Abs(half.X()), math.Abs(half.Y()), math.Abs(half.Z())

	if math.Abs(mid.X()) > ext.X()+adx || math.Abs(mid.Y()) > ext.Y()+ady || math.Abs(mid.Z()) > ext.Z()+adz {
		return false
	}

	if math.Abs(mid.Y()*half.Z()-mid.Z()*half.Y()) > ext.Y()*adz+ext.Z()*ady+Epsilon {
		return false
	}
	if math.Abs(mid.Z()*half.X()-mid.X()*half.Z()) > ext.X()*adz+ext.Z()*adx+Epsilon {
		return false
	}
	if math.Abs(mid.X()*half.Y()-mid.Y()*half.X()) > ext.X()*ady+ext.Y()*adx+Epsilon {
		return false
	}
	return true
}
