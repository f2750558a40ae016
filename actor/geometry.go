package actor

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// GeometryType tags the closed set of supported geometries.
type GeometryType uint8

const (
	GeometrySphere GeometryType = iota
	GeometryBox
	GeometryCapsule
	GeometryStaticMesh

	// GeometryTypeCount is the number of geometry tags, used to size dispatch tables.
	GeometryTypeCount = 4
)

func (t GeometryType) String() string {
	switch t {
	case GeometrySphere:
		return "sphere"
	case GeometryBox:
		return "box"
	case GeometryCapsule:
		return "capsule"
	case GeometryStaticMesh:
		return "static mesh"
	}
	return "unknown"
}

var (
	ErrInvalidGeometry  = errors.New("invalid geometry")
	ErrEmptyMesh        = errors.New("static mesh has no triangles")
	ErrTooManyTriangles = errors.New("static mesh exceeds the triangle cap")
)

// RayCastHit describes where a segment first touches a geometry.
type RayCastHit struct {
	Position mgl64.Vec3
	Normal   mgl64.Vec3
	// Fraction is the hit parameter in [0, 1] along begin -> end.
	Fraction float64
}

// Geometry is implemented by Sphere, Box, Capsule and StaticMesh.
type Geometry interface {
	Type() GeometryType
	Volume() float64
	// InertiaCoeff is the inertia tensor per unit mass, in local space.
	InertiaCoeff() mgl64.Mat3
	ComputeAABB(tf Transform) AABB
	// RayCastLocal casts a segment expressed in the geometry's local space.
	RayCastLocal(begin, end mgl64.Vec3) (RayCastHit, bool)
}

// ConvexGeometry adds support-point queries to convex geometries.
type ConvexGeometry interface {
	Geometry
	// Support returns the local point furthest along dir.
	Support(dir mgl64.Vec3) mgl64.Vec3
}

// RayCast casts the world segment [begin, end] against g placed at tf.
func RayCast(g Geometry, begin, end mgl64.Vec3, tf Transform) (RayCastHit, bool) {
	hit, ok := g.RayCastLocal(tf.InvPoint(begin), tf.InvPoint(end))
	if !ok {
		return RayCastHit{}, false
	}
	hit.Position = tf.Point(hit.Position)
	hit.Normal = tf.Vector(hit.Normal)
	return hit, true
}
