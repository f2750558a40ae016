package narrowphase

import (
	"math"

	"github.com/akmonengine/oimo/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// detectSpheres is the shared sphere-sphere test between c1 (radius r1) and
// c2 (radius r2). Capsule pairs reduce to it once the closest points of their
// segments are known.
func detectSpheres(result *Result, c1, c2 mgl64.Vec3, r1, r2 float64) {
	d := c2.Sub(c1)
	len2 := d.LenSqr()
	rsum := r1 + r2
	if len2 >= rsum*rsum {
		return
	}

	dist := math.Sqrt(len2)
	normal := mgl64.Vec3{1, 0, 0}
	if dist > actor.Epsilon {
		normal = d.Mul(1 / dist)
	}

	result.Normal = normal
	result.addPoint(c1.Add(normal.Mul(r1)), c2.Sub(normal.Mul(r2)), rsum-dist, 0)
}

func detectSphereSphere(result *Result, s1, s2 *actor.Sphere, tf1, tf2 actor.Transform) {
	detectSpheres(result, tf1.Position, tf2.Position, s1.Radius(), s2.Radius())
}

func detectSphereCapsule(result *Result, s *actor.Sphere, c *actor.Capsule, tf1, tf2 actor.Transform) {
	p, q := c.Segment(tf2)
	closest, _ := closestOnSegment(tf1.Position, p, q)
	detectSpheres(result, tf1.Position, closest, s.Radius(), c.Radius())
}

func detectCapsuleCapsule(result *Result, c1, c2 *actor.Capsule, tf1, tf2 actor.Transform) {
	p1, q1 := c1.Segment(tf1)
	p2, q2 := c2.Segment(tf2)
	cp1, cp2 := closestSegmentSegment(p1, q1, p2, q2)
	detectSpheres(result, cp1, cp2, c1.Radius(), c2.Radius())
	result.Incremental = true
}

// detectSphereBox clamps the sphere center into the box. A center inside the
// box is pushed out through the nearest face.
func detectSphereBox(result *Result, s *actor.Sphere, b *actor.Box, tf1, tf2 actor.Transform) {
	radius := s.Radius()
	half := b.HalfExtents()
	center := tf2.InvPoint(tf1.Position)

	clamped := mgl64.Vec3{
		actor.Clamp(center.X(), -half.X(), half.X()),
		actor.Clamp(center.Y(), -half.Y(), half.Y()),
		actor.Clamp(center.Z(), -half.Z(), half.Z()),
	}

	d := clamped.Sub(center)
	len2 := d.LenSqr()
	if len2 >= radius*radius {
		return
	}

	if len2 > actor.Epsilon*actor.Epsilon {
		dist := math.Sqrt(len2)
		normal := tf2.Vector(d.Mul(1 / dist))
		result.Normal = normal
		result.addPoint(tf1.Position.Add(normal.Mul(radius)), tf2.Point(clamped), radius-dist, 0)
		return
	}

	// Centre à l'intérieur : sortie par la face la plus proche
	axis := 0
	faceDist := half[0] - math.Abs(center[0])
	for i := 1; i < 3; i++ {
		if fd := half[i] - math.Abs(center[i]); fd < faceDist {
			axis, faceDist = i, fd
		}
	}

	var local mgl64.Vec3
	local[axis] = -actor.Sign(center[axis])
	onFace := center
	onFace[axis] = -local[axis] * half[axis]

	normal := tf2.Vector(local)
	result.Normal = normal
	result.addPoint(tf1.Position.Add(normal.Mul(radius)), tf2.Point(onFace), radius+faceDist, 0)
}
