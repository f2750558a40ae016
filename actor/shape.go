package actor

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

var (
	ErrShapeAttached    = errors.New("shape already attached to a body")
	ErrShapeNotAttached = errors.New("shape not attached to this body")
)

// ShapeConfig describes a shape before it is attached to a body.
type ShapeConfig struct {
	// LocalTransform places the geometry relative to the body.
	LocalTransform Transform
	Geometry       Geometry
	Friction       float64
	Restitution    float64
	Density        float64
	CollisionGroup int
	// CollisionMask selects the groups this shape collides with; -1 means all.
	CollisionMask      int
	IsTrigger          bool
	PositionCorrection PositionCorrection
}

// DefaultShapeConfig returns the usual material values for g.
func DefaultShapeConfig(g Geometry) ShapeConfig {
	return ShapeConfig{
		LocalTransform: NewTransform(),
		Geometry:       g,
		Friction:       DefaultFriction,
		Restitution:    DefaultRestitution,
		Density:        DefaultDensity,
		CollisionGroup: 1,
		CollisionMask:  -1,
	}
}

// Shape binds a geometry to a body with a local offset and material.
type Shape struct {
	id   int
	body *RigidBody

	Geometry       Geometry
	LocalTransform Transform
	// PreviousTransform and Transform are world placements at the start and end of the step.
	PreviousTransform Transform
	Transform         Transform

	Friction           float64
	Restitution        float64
	Density            float64
	CollisionGroup     int
	CollisionMask      int
	IsTrigger          bool
	PositionCorrection PositionCorrection

	// aabb covers both the previous and current placement.
	aabb         AABB
	displacement mgl64.Vec3

	// ProxyID is the broadphase handle, -1 while the shape is not in a world.
	ProxyID int

	UserData any
}

func NewShape(config ShapeConfig) (*Shape, error) {
	if config.Geometry == nil {
		return nil, errors.Wrap(ErrInvalidGeometry, "shape config has no geometry")
	}
	local := config.LocalTransform
	if local.Rotation == (mgl64.Quat{}) {
		local.Rotation = mgl64.QuatIdent()
	}

	s := &Shape{
		id:                 -1,
		Geometry:           config.Geometry,
		LocalTransform:     local,
		PreviousTransform:  local,
		Transform:          local,
		Friction:           config.Friction,
		Restitution:        config.Restitution,
		Density:            config.Density,
		CollisionGroup:     config.CollisionGroup,
		CollisionMask:      config.CollisionMask,
		IsTrigger:          config.IsTrigger,
		PositionCorrection: config.PositionCorrection,
		ProxyID:            -1,
	}
	s.aabb = config.Geometry.ComputeAABB(local)
	return s, nil
}

// ID is assigned by the world; -1 until the shape is registered.
func (s *Shape) ID() int { return s.id }

func (s *Shape) SetID(id int) { s.id = id }

func (s *Shape) Body() *RigidBody { return s.body }

func (s *Shape) AABB() AABB { return s.aabb }

// Displacement is how far the shape moved during the last sync.
func (s *Shape) Displacement() mgl64.Vec3 { return s.displacement }

// Sync places the shape for a body that moved from tf1 to tf2.
func (s *Shape) Sync(tf1, tf2 Transform) {
	s.PreviousTransform = tf1.Mul(s.LocalTransform)
	s.Transform = tf2.Mul(s.LocalTransform)

	aabb1 := s.Geometry.ComputeAABB(s.PreviousTransform)
	aabb2 := s.Geometry.ComputeAABB(s.Transform)
	s.aabb = aabb1.Combine(aabb2)
	s.displacement = s.Transform.Position.Sub(s.PreviousTransform.Position)
}
