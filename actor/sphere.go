package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Sphere is a ball centered on the shape origin
type Sphere struct {
	radius       float64
	volume       float64
	inertiaCoeff mgl64.Mat3
}

func NewSphere(radius float64) *Sphere {
	s := &Sphere{}
	s.SetRadius(radius)
	return s
}

func (s *Sphere) Type() GeometryType { return GeometrySphere }

func (s *Sphere) Radius() float64 { return s.radius }

// SetRadius updates the radius and the cached mass properties.
func (s *Sphere) SetRadius(radius float64) {
	s.radius = radius
	s.volume = 4.0 / 3.0 * math.Pi * radius * radius * radius
	// Sphère pleine : I = 2/5 m r²
	s.inertiaCoeff = mgl64.Diag3(mgl64.Vec3{0.4 * radius * radius, 0.4 * radius * radius, 0.4 * radius * radius})
}

func (s *Sphere) Volume() float64 { return s.volume }

func (s *Sphere) InertiaCoeff() mgl64.Mat3 { return s.inertiaCoeff }

func (s *Sphere) ComputeAABB(tf Transform) AABB {
	r := mgl64.Vec3{s.radius, s.radius, s.radius}
	return AABB{Min: tf.Position.Sub(r), Max: tf.Position.Add(r)}
}

func (s *Sphere) Support(dir mgl64.Vec3) mgl64.Vec3 {
	if dir.LenSqr() < Epsilon*Epsilon {
		return mgl64.Vec3{}
	}
	return dir.Normalize().Mul(s.radius)
}

func (s *Sphere) RayCastLocal(begin, end mgl64.Vec3) (RayCastHit, bool) {
	d := end.Sub(begin)
	a := d.Dot(d)
	if a < Epsilon {
		return RayCastHit{}, false
	}
	b := begin.Dot(d)
	c := begin.Dot(begin) - s.radius*s.radius
	disc := b*b - a*c
	if disc < 0 {
		return RayCastHit{}, false
	}

	t := (-b - math.Sqrt(disc)) / a
	if t < 0 || t > 1 {
		return RayCastHit{}, false
	}

	pos := begin.Add(d.Mul(t))
	return RayCastHit{Position: pos, Normal: pos.Normalize(), Fraction: t}, true
}
