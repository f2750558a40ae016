package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Capsule is a segment along the local Y axis swept by a sphere.
type Capsule struct {
	radius       float64
	halfHeight   float64
	volume       float64
	inertiaCoeff mgl64.Mat3
}

func NewCapsule(radius, halfHeight float64) *Capsule {
	c := &Capsule{}
	c.SetSize(radius, halfHeight)
	return c
}

func (c *Capsule) Type() GeometryType { return GeometryCapsule }

func (c *Capsule) Radius() float64 { return c.radius }

// HalfHeight is half the length of the inner segment.
func (c *Capsule) HalfHeight() float64 { return c.halfHeight }

func (c *Capsule) SetSize(radius, halfHeight float64) {
	c.radius = radius
	c.halfHeight = halfHeight

	r2 := radius * radius
	hh2 := halfHeight * halfHeight
	cylinderVolume := math.Pi * r2 * 2 * halfHeight
	sphereVolume := 4.0 / 3.0 * math.Pi * r2 * radius
	c.volume = cylinderVolume + sphereVolume

	if c.volume <= 0 {
		c.inertiaCoeff = mgl64.Mat3{}
		return
	}
	invVolume := 1 / c.volume
	inertiaXZ := invVolume * (cylinderVolume*(r2*0.25+hh2/3) + sphereVolume*(r2*0.4+halfHeight*radius*0.75+hh2))
	inertiaY := invVolume * (cylinderVolume*r2*0.5 + sphereVolume*r2*0.4)
	c.inertiaCoeff = mgl64.Diag3(mgl64.Vec3{inertiaXZ, inertiaY, inertiaXZ})
}

func (c *Capsule) Volume() float64 { return c.volume }

func (c *Capsule) InertiaCoeff() mgl64.Mat3 { return c.inertiaCoeff }

// Segment returns the world endpoints of the inner segment.
func (c *Capsule) Segment(tf Transform) (mgl64.Vec3, mgl64.Vec3) {
	axis := tf.Vector(mgl64.Vec3{0, c.halfHeight, 0})
	return tf.Position.Sub(axis), tf.Position.Add(axis)
}

func (c *Capsule) ComputeAABB(tf Transform) AABB {
	axis := tf.Vector(mgl64.Vec3{0, 1, 0})
	extents := mgl64.Vec3{
		math.Abs(axis.X())*c.halfHeight + c.radius,
		math.Abs(axis.Y())*c.halfHeight + c.radius,
		math.Abs(axis.Z())*c.halfHeight + c.radius,
	}
	return AABB{Min: tf.Position.Sub(extents), Max: tf.Position.Add(extents)}
}

func (c *Capsule) Support(dir mgl64.Vec3) mgl64.Vec3 {
	var p mgl64.Vec3
	if dir.LenSqr() > Epsilon*Epsilon {
		p = dir.Normalize().Mul(c.radius)
	}
	if dir.Y() >= 0 {
		p[1] += c.halfHeight
	} else {
		p[1] -= c.halfHeight
	}
	return p
}

func (c *Capsule) RayCastLocal(begin, end mgl64.Vec3) (RayCastHit, bool) {
	d := end.Sub(begin)
	r2 := c.radius * c.radius

	// Cylinder body, tested in the XZ plane.
	a := d.X()*d.X() + d.Z()*d.Z()
	b := begin.X()*d.X() + begin.Z()*d.Z()
	cc := begin.X()*begin.X() + begin.Z()*begin.Z() - r2
	if a > Epsilon {
		disc := b*b - a*cc
		if disc >= 0 {
			t := (-b - math.Sqrt(disc)) / a
			if t >= 0 && t <= 1 {
				pos := begin.Add(d.Mul(t))
				if math.Abs(pos.Y()) <= c.halfHeight {
					normal := mgl64.Vec3{pos.X(), 0, pos.Z()}.Normalize()
					return RayCastHit{Position: pos, Normal: normal, Fraction: t}, true
				}
			}
		}
	} else if cc > 0 {
		return RayCastHit{}, false
	}

	// Hemispherical caps.
	best := RayCastHit{Fraction: 2}
	found := false
	for _, sign := range [2]float64{1, -1} {
		center := mgl64.Vec3{0, sign * c.halfHeight, 0}
		hit, ok := (&Sphere{radius: c.radius}).RayCastLocal(begin.Sub(center), end.Sub(center))
		if !ok || hit.Fraction >= best.Fraction {
			continue
		}
		if hit.Position.Y()*sign < 0 {
			continue
		}
		hit.Position = hit.Position.Add(center)
		best = hit
		found = true
	}
	return best, found
}
