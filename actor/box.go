package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Box represents an oriented box collision shape
// The box is defined by its half-extents (half-width, half-height, half-depth)
type Box struct {
	halfExtents  mgl64.Vec3
	volume       float64
	inertiaCoeff mgl64.Mat3
}

func NewBox(halfExtents mgl64.Vec3) *Box {
	b := &Box{}
	b.SetHalfExtents(halfExtents)
	return b
}

func (b *Box) Type() GeometryType { return GeometryBox }

func (b *Box) HalfExtents() mgl64.Vec3 { return b.halfExtents }

func (b *Box) SetHalfExtents(halfExtents mgl64.Vec3) {
	b.halfExtents = halfExtents
	hx, hy, hz := halfExtents.X(), halfExtents.Y(), halfExtents.Z()
	// Volume = 8 * hx * hy * hz (full dimensions are 2*halfExtents)
	b.volume = 8 * hx * hy * hz

	// Formule pour une boîte : I = (m/12) * (dimension1² + dimension2²), ici avec les demi-dimensions
	b.inertiaCoeff = mgl64.Diag3(mgl64.Vec3{
		(hy*hy + hz*hz) / 3,
		(hx*hx + hz*hz) / 3,
		(hx*hx + hy*hy) / 3,
	})
}

func (b *Box) Volume() float64 { return b.volume }

func (b *Box) InertiaCoeff() mgl64.Mat3 { return b.inertiaCoeff }

func (b *Box) ComputeAABB(tf Transform) AABB {
	extents := AbsMat3(tf.Basis()).Mul3x1(b.halfExtents)
	return AABB{Min: tf.Position.Sub(extents), Max: tf.Position.Add(extents)}
}

func (b *Box) Support(dir mgl64.Vec3) mgl64.Vec3 {
	hx, hy, hz := b.halfExtents.X(), b.halfExtents.Y(), b.halfExtents.Z()

	if dir.X() < 0 {
		hx = -hx
	}
	if dir.Y() < 0 {
		hy = -hy
	}
	if dir.Z() < 0 {
		hz = -hz
	}

	return mgl64.Vec3{hx, hy, hz}
}

// Face returns the four local vertices of face id (0:+x 1:-x 2:+y 3:-y 4:+z 5:-z),
// counter-clockwise seen from outside.
func (b *Box) Face(id int) [4]mgl64.Vec3 {
	hx, hy, hz := b.halfExtents.X(), b.halfExtents.Y(), b.halfExtents.Z()

	switch id {
	case 0:
		return [4]mgl64.Vec3{{hx, hy, hz}, {hx, -hy, hz}, {hx, -hy, -hz}, {hx, hy, -hz}}
	case 1:
		return [4]mgl64.Vec3{{-hx, hy, hz}, {-hx, hy, -hz}, {-hx, -hy, -hz}, {-hx, -hy, hz}}
	case 2:
		return [4]mgl64.Vec3{{hx, hy, hz}, {hx, hy, -hz}, {-hx, hy, -hz}, {-hx, hy, hz}}
	case 3:
		return [4]mgl64.Vec3{{hx, -hy, hz}, {-hx, -hy, hz}, {-hx, -hy, -hz}, {hx, -hy, -hz}}
	case 4:
		return [4]mgl64.Vec3{{hx, hy, hz}, {-hx, hy, hz}, {-hx, -hy, hz}, {hx, -hy, hz}}
	default:
		return [4]mgl64.Vec3{{hx, hy, -hz}, {hx, -hy, -hz}, {-hx, -hy, -hz}, {-hx, hy, -hz}}
	}
}

// RayCastLocal is a slab test. Segments starting inside the box report no hit.
func (b *Box) RayCastLocal(begin, end mgl64.Vec3) (RayCastHit, bool) {
	d := end.Sub(begin)
	tMin, tMax := 0.0, 1.0
	axis := -1

	for i := 0; i < 3; i++ {
		h := b.halfExtents[i]
		if math.Abs(d[i]) < Epsilon {
			if begin[i] < -h || begin[i] > h {
				return RayCastHit{}, false
			}
			continue
		}

		inv := 1 / d[i]
		t1 := (-h - begin[i]) * inv
		t2 := (h - begin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
			axis = i
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return RayCastHit{}, false
		}
	}

	if axis < 0 {
		return RayCastHit{}, false
	}

	var normal mgl64.Vec3
	normal[axis] = -Sign(d[axis])
	return RayCastHit{Position: begin.Add(d.Mul(tMin)), Normal: normal, Fraction: tMin}, true
}
