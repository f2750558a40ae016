package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, and collisions
	// They have finite mass and can move freely
	BodyTypeDynamic BodyType = iota

	// BodyTypeStatic bodies are immovable and have infinite mass
	// They are not affected by forces or gravity (e.g., ground, walls)
	BodyTypeStatic

	// BodyTypeKinematic bodies move with their velocity but ignore forces and contacts
	BodyTypeKinematic
)

// RigidBodyConfig holds the initial state of a body.
type RigidBodyConfig struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	Type            BodyType
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3
	LinearDamping   float64
	AngularDamping  float64

	AutoSleep                        bool
	SleepingVelocityThreshold        float64
	SleepingAngularVelocityThreshold float64
	SleepingTimeThreshold            float64
}

func DefaultRigidBodyConfig() RigidBodyConfig {
	return RigidBodyConfig{
		Rotation:                         mgl64.QuatIdent(),
		Type:                             BodyTypeDynamic,
		AutoSleep:                        true,
		SleepingVelocityThreshold:        DefaultSleepingVelocityThreshold,
		SleepingAngularVelocityThreshold: DefaultSleepingAngularVelocityThreshold,
		SleepingTimeThreshold:            DefaultSleepingTimeThreshold,
	}
}

// ContactLink is one edge of the contact graph, seen from a body.
type ContactLink struct {
	ContactID int
	Other     *RigidBody
}

// RigidBody represents a rigid body in the physics simulation
type RigidBody struct {
	// Spatial properties
	PreviousTransform Transform
	Transform         Transform

	Velocity        mgl64.Vec3 // Linear velocity (m/s)
	AngularVelocity mgl64.Vec3 // rad/s
	// Split impulse accumulators, consumed by IntegratePseudoVelocity.
	PseudoVelocity        mgl64.Vec3
	AngularPseudoVelocity mgl64.Vec3

	LinearDamping  float64
	AngularDamping float64
	GravityScale   float64

	AutoSleep                        bool
	SleepingVelocityThreshold        float64
	SleepingAngularVelocityThreshold float64
	SleepingTimeThreshold            float64
	IsSleeping                       bool
	SleepTime                        float64

	// AddedToIsland is scratch state owned by the world's island builder.
	AddedToIsland bool

	bodyType BodyType
	shapes   []*Shape

	mass              float64
	invMass           float64
	localInertia      mgl64.Mat3
	invLocalInertia   mgl64.Mat3
	invInertia        mgl64.Mat3
	rotFactor         mgl64.Vec3
	accumulatedForce  mgl64.Vec3
	accumulatedTorque mgl64.Vec3
	linearImpulse     mgl64.Vec3
	angularImpulse    mgl64.Vec3
	contactLinks      []ContactLink

	UserData any
}

// NewRigidBody creates a new rigid body with no shapes. Mass is derived
// from the shapes as they are added.
func NewRigidBody(config RigidBodyConfig) *RigidBody {
	rotation := config.Rotation
	if rotation == (mgl64.Quat{}) {
		rotation = mgl64.QuatIdent()
	}
	tf := NewTransformFrom(config.Position, rotation)

	rb := &RigidBody{
		PreviousTransform:                tf,
		Transform:                        tf,
		Velocity:                         config.LinearVelocity,
		AngularVelocity:                  config.AngularVelocity,
		LinearDamping:                    config.LinearDamping,
		AngularDamping:                   config.AngularDamping,
		GravityScale:                     1,
		AutoSleep:                        config.AutoSleep,
		SleepingVelocityThreshold:        config.SleepingVelocityThreshold,
		SleepingAngularVelocityThreshold: config.SleepingAngularVelocityThreshold,
		SleepingTimeThreshold:            config.SleepingTimeThreshold,
		bodyType:                         config.Type,
		rotFactor:                        mgl64.Vec3{1, 1, 1},
	}
	rb.UpdateMass()

	return rb
}

// ========== SHAPES ==========

func (rb *RigidBody) AddShape(s *Shape) error {
	if s.body != nil {
		return ErrShapeAttached
	}
	s.body = rb
	rb.shapes = append(rb.shapes, s)
	s.Sync(rb.Transform, rb.Transform)
	rb.UpdateMass()
	return nil
}

func (rb *RigidBody) RemoveShape(s *Shape) error {
	for i, shape := range rb.shapes {
		if shape == s {
			rb.shapes = append(rb.shapes[:i], rb.shapes[i+1:]...)
			s.body = nil
			rb.UpdateMass()
			return nil
		}
	}
	return errors.WithStack(ErrShapeNotAttached)
}

func (rb *RigidBody) Shapes() []*Shape {
	return rb.shapes
}

// SyncShapes moves every shape to the body's previous and current placement.
func (rb *RigidBody) SyncShapes() {
	for _, s := range rb.shapes {
		s.Sync(rb.PreviousTransform, rb.Transform)
	}
}

// ========== MASS ==========

// UpdateMass recomputes mass and local inertia from the shapes' densities.
// Inertia is taken about the body origin using the parallel-axis theorem.
func (rb *RigidBody) UpdateMass() {
	totalMass := 0.0
	totalInertia := mgl64.Mat3{}

	for _, s := range rb.shapes {
		mass := s.Density * s.Geometry.Volume()

		r := s.LocalTransform.Basis()
		inertia := r.Mul3(s.Geometry.InertiaCoeff()).Mul3(r.Transpose()).Mul(mass)

		// Théorème de Huygens : I += m * (|p|² E - p pᵀ)
		p := s.LocalTransform.Position
		offset := mgl64.Ident3().Mul(p.Dot(p)).Sub(p.OuterProd3(p))
		inertia = inertia.Add(offset.Mul(mass))

		totalMass += mass
		totalInertia = totalInertia.Add(inertia)
	}

	rb.mass = totalMass
	rb.localInertia = totalInertia
	rb.completeMassData()
}

// SetMass overrides the mass while keeping the inertia distribution.
func (rb *RigidBody) SetMass(mass float64) {
	if rb.mass > Epsilon {
		rb.localInertia = rb.localInertia.Mul(mass / rb.mass)
	}
	rb.mass = mass
	rb.completeMassData()
}

// SetMassData sets mass and local inertia directly.
func (rb *RigidBody) SetMassData(mass float64, localInertia mgl64.Mat3) {
	rb.mass = mass
	rb.localInertia = localInertia
	rb.completeMassData()
}

func (rb *RigidBody) completeMassData() {
	det := rb.localInertia.Det()
	if rb.mass > Epsilon && det > Epsilon && rb.bodyType == BodyTypeDynamic {
		rb.invMass = 1 / rb.mass
		rb.invLocalInertia = rb.localInertia.Inv()
	} else if rb.bodyType == BodyTypeDynamic {
		// Massless dynamic bodies still need to respond to contacts.
		rb.invMass = 1e-9
		rb.invLocalInertia = mgl64.Ident3().Mul(1e-9)
	} else {
		rb.invMass = 0
		rb.invLocalInertia = mgl64.Mat3{}
	}
	rb.updateInvInertia()
}

func (rb *RigidBody) updateInvInertia() {
	r := rb.Transform.Basis()
	rb.invInertia = ScaleRows(r.Mul3(rb.invLocalInertia).Mul3(r.Transpose()), rb.rotFactor)
}

func (rb *RigidBody) Mass() float64 { return rb.mass }

func (rb *RigidBody) InverseMass() float64 { return rb.invMass }

func (rb *RigidBody) LocalInertia() mgl64.Mat3 { return rb.localInertia }

// InverseInertia is the world-space inverse inertia tensor.
func (rb *RigidBody) InverseInertia() mgl64.Mat3 { return rb.invInertia }

// SetRotationFactor scales angular response per world axis (0 locks the axis).
func (rb *RigidBody) SetRotationFactor(f mgl64.Vec3) {
	rb.rotFactor = f
	rb.updateInvInertia()
	rb.WakeUp()
}

func (rb *RigidBody) RotationFactor() mgl64.Vec3 { return rb.rotFactor }

func (rb *RigidBody) Type() BodyType { return rb.bodyType }

// SetType switches the body type and recomputes mass properties.
func (rb *RigidBody) SetType(t BodyType) {
	rb.bodyType = t
	rb.UpdateMass()
	rb.WakeUp()
}

func (rb *RigidBody) IsStatic() bool { return rb.bodyType == BodyTypeStatic }

func (rb *RigidBody) IsDynamic() bool { return rb.bodyType == BodyTypeDynamic }

// ========== TRANSFORM ==========

func (rb *RigidBody) Position() mgl64.Vec3 { return rb.Transform.Position }

func (rb *RigidBody) SetPosition(p mgl64.Vec3) {
	rb.Transform.Position = p
	rb.teleported()
}

func (rb *RigidBody) Orientation() mgl64.Quat { return rb.Transform.Rotation }

func (rb *RigidBody) SetOrientation(q mgl64.Quat) {
	rb.Transform.Rotation = q.Normalize()
	rb.updateInvInertia()
	rb.teleported()
}

// Rotation returns the orientation as a matrix.
func (rb *RigidBody) Rotation() mgl64.Mat3 { return rb.Transform.Basis() }

func (rb *RigidBody) SetRotation(m mgl64.Mat3) {
	rb.Transform.SetBasis(m)
	rb.updateInvInertia()
	rb.teleported()
}

func (rb *RigidBody) SetTransform(tf Transform) {
	rb.Transform = NewTransformFrom(tf.Position, tf.Rotation)
	rb.updateInvInertia()
	rb.teleported()
}

// teleported places the body without sweeping its shapes.
func (rb *RigidBody) teleported() {
	rb.PreviousTransform = rb.Transform
	rb.SyncShapes()
	rb.WakeUp()
}

// ========== VELOCITY ==========

func (rb *RigidBody) SetLinearVelocity(v mgl64.Vec3) {
	if rb.bodyType == BodyTypeStatic {
		rb.Velocity = mgl64.Vec3{}
	} else {
		rb.Velocity = v
	}
	rb.WakeUp()
}

func (rb *RigidBody) SetAngularVelocity(w mgl64.Vec3) {
	if rb.bodyType == BodyTypeStatic {
		rb.AngularVelocity = mgl64.Vec3{}
	} else {
		rb.AngularVelocity = w
	}
	rb.WakeUp()
}

// ========== FORCES & IMPULSES ==========

// ApplyForce adds a force at a world point; the offset from the body origin produces torque.
func (rb *RigidBody) ApplyForce(force, worldPoint mgl64.Vec3) {
	rb.accumulatedForce = rb.accumulatedForce.Add(force)
	rb.accumulatedTorque = rb.accumulatedTorque.Add(worldPoint.Sub(rb.Transform.Position).Cross(force))
	rb.WakeUp()
}

func (rb *RigidBody) ApplyForceToCenter(force mgl64.Vec3) {
	rb.accumulatedForce = rb.accumulatedForce.Add(force)
	rb.WakeUp()
}

func (rb *RigidBody) ApplyTorque(torque mgl64.Vec3) {
	rb.accumulatedTorque = rb.accumulatedTorque.Add(torque)
	rb.WakeUp()
}

// ApplyImpulse changes velocity instantly as if impulse acted at worldPoint.
func (rb *RigidBody) ApplyImpulse(impulse, worldPoint mgl64.Vec3) {
	rb.Velocity = rb.Velocity.Add(impulse.Mul(rb.invMass))
	angular := worldPoint.Sub(rb.Transform.Position).Cross(impulse)
	rb.AngularVelocity = rb.AngularVelocity.Add(rb.invInertia.Mul3x1(angular))
	rb.WakeUp()
}

func (rb *RigidBody) ApplyLinearImpulse(impulse mgl64.Vec3) {
	rb.Velocity = rb.Velocity.Add(impulse.Mul(rb.invMass))
	rb.WakeUp()
}

func (rb *RigidBody) ApplyAngularImpulse(impulse mgl64.Vec3) {
	rb.AngularVelocity = rb.AngularVelocity.Add(rb.invInertia.Mul3x1(impulse))
	rb.WakeUp()
}

func (rb *RigidBody) Force() mgl64.Vec3 { return rb.accumulatedForce }

func (rb *RigidBody) Torque() mgl64.Vec3 { return rb.accumulatedTorque }

func (rb *RigidBody) ClearForces() {
	rb.accumulatedForce = mgl64.Vec3{0, 0, 0}
	rb.accumulatedTorque = mgl64.Vec3{0, 0, 0}
}

// LinearContactImpulse is the net linear impulse received from contacts in the last step.
func (rb *RigidBody) LinearContactImpulse() mgl64.Vec3 { return rb.linearImpulse }

func (rb *RigidBody) AngularContactImpulse() mgl64.Vec3 { return rb.angularImpulse }

func (rb *RigidBody) AddContactImpulse(linear, angular mgl64.Vec3) {
	rb.linearImpulse = rb.linearImpulse.Add(linear)
	rb.angularImpulse = rb.angularImpulse.Add(angular)
}

func (rb *RigidBody) ClearContactImpulses() {
	rb.linearImpulse = mgl64.Vec3{}
	rb.angularImpulse = mgl64.Vec3{}
}

// ========== INTÉGRATION ==========

// UpdateVelocity applies gravity, accumulated forces and damping over dt.
// Only dynamic bodies are affected.
func (rb *RigidBody) UpdateVelocity(gravity mgl64.Vec3, dt float64) {
	if rb.bodyType != BodyTypeDynamic {
		return
	}

	linearAcc := gravity.Mul(rb.GravityScale).Add(rb.accumulatedForce.Mul(rb.invMass))
	rb.Velocity = rb.Velocity.Add(linearAcc.Mul(dt))

	angularAcc := rb.invInertia.Mul3x1(rb.accumulatedTorque)
	rb.AngularVelocity = rb.AngularVelocity.Add(angularAcc.Mul(dt))

	rb.Velocity = rb.Velocity.Mul(FastInvExp(rb.LinearDamping * dt))
	rb.AngularVelocity = rb.AngularVelocity.Mul(FastInvExp(rb.AngularDamping * dt))
}

// Integrate advances the transform by the current velocities over dt.
// Per-step motion is clamped to MaxTranslationPerStep and MaxRotationPerStep.
func (rb *RigidBody) Integrate(dt float64) {
	if rb.bodyType == BodyTypeStatic {
		rb.Velocity = mgl64.Vec3{}
		rb.AngularVelocity = mgl64.Vec3{}
		rb.PseudoVelocity = mgl64.Vec3{}
		rb.AngularPseudoVelocity = mgl64.Vec3{}
		return
	}

	translate := rb.Velocity.Mul(dt)
	rotate := rb.AngularVelocity.Mul(dt)

	translate2 := translate.LenSqr()
	rotate2 := rotate.LenSqr()
	if translate2 <= Epsilon*Epsilon && rotate2 <= Epsilon*Epsilon {
		return
	}

	if translate2 > MaxTranslationPerStep*MaxTranslationPerStep {
		translate = translate.Mul(MaxTranslationPerStep / math.Sqrt(translate2))
	}
	if rotate2 > MaxRotationPerStep*MaxRotationPerStep {
		rotate = rotate.Mul(MaxRotationPerStep / math.Sqrt(rotate2))
	}

	rb.ApplyTranslation(translate)
	rb.ApplyRotation(rotate)
}

// IntegratePseudoVelocity applies the split-impulse displacement and resets it.
func (rb *RigidBody) IntegratePseudoVelocity() {
	if rb.PseudoVelocity.LenSqr() == 0 && rb.AngularPseudoVelocity.LenSqr() == 0 {
		return
	}
	translate := rb.PseudoVelocity
	rotate := rb.AngularPseudoVelocity
	rb.PseudoVelocity = mgl64.Vec3{}
	rb.AngularPseudoVelocity = mgl64.Vec3{}

	if rb.bodyType == BodyTypeStatic {
		return
	}
	rb.ApplyTranslation(translate)
	rb.ApplyRotation(rotate)
}

func (rb *RigidBody) ApplyTranslation(translation mgl64.Vec3) {
	rb.Transform.Position = rb.Transform.Position.Add(translation)
}

// ApplyRotation rotates the body by the rotation vector r (axis * angle).
func (rb *RigidBody) ApplyRotation(r mgl64.Vec3) {
	theta := r.Len()
	halfTheta := theta * 0.5

	var sinc, cosHalf float64
	if halfTheta < 0.5 {
		// Maclaurin expansion of sin(x)/x and cos(x) around 0
		ht2 := halfTheta * halfTheta
		sinc = 0.5 * (1 - ht2/6 + ht2*ht2/120)
		cosHalf = 1 - ht2*0.5 + ht2*ht2/24
	} else {
		sinc = math.Sin(halfTheta) / theta
		cosHalf = math.Cos(halfTheta)
	}

	dq := mgl64.Quat{W: cosHalf, V: r.Mul(sinc)}
	rb.Transform.Rotation = dq.Mul(rb.Transform.Rotation).Normalize()
	rb.updateInvInertia()
}

// FastInvExp approximates exp(-x) for small non-negative x.
func FastInvExp(x float64) float64 {
	x2 := x * x
	return 1 / (1 + x + x2*(0.5+x*(1.0/6)+x2*(1.0/24)))
}

// ========== SLEEP ==========

// IsSleepy reports whether both velocities are under the sleep thresholds.
func (rb *RigidBody) IsSleepy() bool {
	return rb.AutoSleep &&
		rb.Velocity.LenSqr() < rb.SleepingVelocityThreshold*rb.SleepingVelocityThreshold &&
		rb.AngularVelocity.LenSqr() < rb.SleepingAngularVelocityThreshold*rb.SleepingAngularVelocityThreshold
}

func (rb *RigidBody) Sleep() {
	rb.IsSleeping = true
	rb.SleepTime = 0
	rb.Velocity = mgl64.Vec3{}
	rb.AngularVelocity = mgl64.Vec3{}
	rb.ClearForces()
}

func (rb *RigidBody) WakeUp() {
	rb.IsSleeping = false
	rb.SleepTime = 0
}

// ========== CONTACT GRAPH ==========

func (rb *RigidBody) LinkContact(contactID int, other *RigidBody) {
	rb.contactLinks = append(rb.contactLinks, ContactLink{ContactID: contactID, Other: other})
}

func (rb *RigidBody) UnlinkContact(contactID int) {
	for i, link := range rb.contactLinks {
		if link.ContactID == contactID {
			last := len(rb.contactLinks) - 1
			rb.contactLinks[i] = rb.contactLinks[last]
			rb.contactLinks = rb.contactLinks[:last]
			return
		}
	}
}

func (rb *RigidBody) ContactLinks() []ContactLink {
	return rb.contactLinks
}
