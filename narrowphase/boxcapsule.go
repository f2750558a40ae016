package narrowphase

import (
	"math"

	"github.com/akmonengine/oimo/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Number of ternary search steps along the capsule segment.
const boxCapsuleIterations = 16

func clampToBox(p, half mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		actor.Clamp(p.X(), -half.X(), half.X()),
		actor.Clamp(p.Y(), -half.Y(), half.Y()),
		actor.Clamp(p.Z(), -half.Z(), half.Z()),
	}
}

// detectBoxCapsule searches the segment parameter minimizing the distance to
// the box, which is convex along the segment, then runs a sphere test there.
func detectBoxCapsule(result *Result, b *actor.Box, c *actor.Capsule, tf1, tf2 actor.Transform) {
	result.Incremental = true

	half := b.HalfExtents()
	radius := c.Radius()

	wp, wq := c.Segment(tf2)
	p := tf1.InvPoint(wp)
	q := tf1.InvPoint(wq)
	d := q.Sub(p)

	distance2 := func(t float64) float64 {
		x := p.Add(d.Mul(t))
		return clampToBox(x, half).Sub(x).LenSqr()
	}

	lo, hi := 0.0, 1.0
	for i := 0; i < boxCapsuleIterations; i++ {
		m1 := lo + (hi-lo)/3
		m2 := hi - (hi-lo)/3
		if distance2(m1) < distance2(m2) {
			hi = m2
		} else {
			lo = m1
		}
	}

	seg := p.Add(d.Mul((lo + hi) * 0.5))
	onBox := clampToBox(seg, half)
	diff := seg.Sub(onBox)
	dist2 := diff.LenSqr()
	if dist2 >= radius*radius {
		return
	}

	var local mgl64.Vec3
	depth := 0.0
	if dist2 > actor.Epsilon*actor.Epsilon {
		dist := math.Sqrt(dist2)
		local = diff.Mul(1 / dist)
		depth = radius - dist
	} else {
		// Segment dans la boîte : sortie par la face la plus proche
		axis := 0
		faceDist := half[0] - math.Abs(seg[0])
		for i := 1; i < 3; i++ {
			if fd := half[i] - math.Abs(seg[i]); fd < faceDist {
				axis, faceDist = i, fd
			}
		}
		local[axis] = actor.Sign(seg[axis])
		onBox[axis] = local[axis] * half[axis]
		depth = radius + faceDist
	}

	normal := tf1.Vector(local)
	segWorld := tf1.Point(seg)
	result.Normal = normal
	result.addPoint(tf1.Point(onBox), segWorld.Sub(normal.Mul(radius)), depth, 0)
}
