package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a rigid placement in 3D space
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatIdent(),
	}
}

// NewTransformFrom builds a transform from a position and an orientation.
func NewTransformFrom(position mgl64.Vec3, rotation mgl64.Quat) Transform {
	return Transform{Position: position, Rotation: rotation.Normalize()}
}

// Basis returns the rotation as an orthonormal matrix. Column i is local axis i in world space.
func (t Transform) Basis() mgl64.Mat3 {
	return t.Rotation.Mat4().Mat3()
}

// SetBasis sets the rotation from an orthonormal matrix.
func (t *Transform) SetBasis(m mgl64.Mat3) {
	t.Rotation = mgl64.Mat4ToQuat(m.Mat4()).Normalize()
}

// Point maps a local point to world space.
func (t Transform) Point(local mgl64.Vec3) mgl64.Vec3 {
	return t.Position.Add(t.Rotation.Rotate(local))
}

// Vector maps a local direction to world space.
func (t Transform) Vector(local mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(local)
}

// InvPoint maps a world point into local space.
func (t Transform) InvPoint(world mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(world.Sub(t.Position))
}

// InvVector maps a world direction into local space.
func (t Transform) InvVector(world mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(world)
}

// Mul composes t with a transform expressed in t's local frame (t * local).
func (t Transform) Mul(local Transform) Transform {
	return Transform{
		Position: t.Point(local.Position),
		Rotation: t.Rotation.Mul(local.Rotation).Normalize(),
	}
}

// Inverse returns the transform mapping world space back into t's local space.
func (t Transform) Inverse() Transform {
	inv := t.Rotation.Conjugate()
	return Transform{Position: inv.Rotate(t.Position).Mul(-1), Rotation: inv}
}
