package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

func createTestShape(t *testing.T, g Geometry) *Shape {
	t.Helper()
	s, err := NewShape(DefaultShapeConfig(g))
	if err != nil {
		t.Fatalf("NewShape() error = %v", err)
	}
	return s
}

func TestNewShape(t *testing.T) {
	s := createTestShape(t, NewSphere(1))

	if s.ID() != -1 || s.ProxyID != -1 {
		t.Errorf("fresh shape should have no id and no proxy")
	}
	if s.Friction != DefaultFriction || s.Restitution != DefaultRestitution || s.Density != DefaultDensity {
		t.Errorf("default material not applied: %+v", s)
	}
	if s.CollisionGroup != 1 || s.CollisionMask != -1 {
		t.Errorf("default filter = %d/%d", s.CollisionGroup, s.CollisionMask)
	}

	if _, err := NewShape(ShapeConfig{}); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("missing geometry error = %v", err)
	}
}

func TestShapeSync(t *testing.T) {
	cfg := DefaultShapeConfig(NewBox(mgl64.Vec3{1, 1, 1}))
	cfg.LocalTransform = NewTransformFrom(mgl64.Vec3{2, 0, 0}, mgl64.QuatIdent())
	s, err := NewShape(cfg)
	if err != nil {
		t.Fatal(err)
	}

	tf1 := NewTransformFrom(mgl64.Vec3{0, 0, 0}, mgl64.QuatIdent())
	tf2 := NewTransformFrom(mgl64.Vec3{0, 3, 0}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}))
	s.Sync(tf1, tf2)

	if !vec3Equal(s.PreviousTransform.Position, mgl64.Vec3{2, 0, 0}, 1e-9) {
		t.Errorf("previous position = %v", s.PreviousTransform.Position)
	}
	// Le décalage local tourne avec le corps
	if !vec3Equal(s.Transform.Position, mgl64.Vec3{0, 5, 0}, 1e-9) {
		t.Errorf("current position = %v", s.Transform.Position)
	}

	aabb := s.AABB()
	if !vec3Equal(aabb.Min, mgl64.Vec3{-1, -1, -1}, 1e-9) || !vec3Equal(aabb.Max, mgl64.Vec3{3, 6, 1}, 1e-9) {
		t.Errorf("swept AABB = %v", aabb)
	}
	if !vec3Equal(s.Displacement(), mgl64.Vec3{-2, 5, 0}, 1e-9) {
		t.Errorf("Displacement() = %v", s.Displacement())
	}
}

func TestShapeAttach(t *testing.T) {
	body := NewRigidBody(DefaultRigidBodyConfig())
	other := NewRigidBody(DefaultRigidBodyConfig())
	s := createTestShape(t, NewSphere(1))

	if err := body.AddShape(s); err != nil {
		t.Fatalf("AddShape() error = %v", err)
	}
	if s.Body() != body {
		t.Errorf("Body() not set")
	}
	if err := other.AddShape(s); !errors.Is(err, ErrShapeAttached) {
		t.Errorf("second attach error = %v", err)
	}
	if err := other.RemoveShape(s); !errors.Is(err, ErrShapeNotAttached) {
		t.Errorf("foreign remove error = %v", err)
	}
	if err := body.RemoveShape(s); err != nil {
		t.Errorf("RemoveShape() error = %v", err)
	}
	if s.Body() != nil || len(body.Shapes()) != 0 {
		t.Errorf("shape still attached")
	}
}
