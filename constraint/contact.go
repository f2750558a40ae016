package constraint

import (
	"github.com/akmonengine/oimo/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// JacobianRow maps the velocities of both bodies to a scalar relative
// velocity: Lin1·v1 + Ang1·w1 + Lin2·v2 + Ang2·w2.
type JacobianRow struct {
	Lin1 mgl64.Vec3
	Lin2 mgl64.Vec3
	Ang1 mgl64.Vec3
	Ang2 mgl64.Vec3
}

func newJacobianRow(dir, relPos1, relPos2 mgl64.Vec3) JacobianRow {
	return JacobianRow{
		Lin1: dir.Mul(-1),
		Lin2: dir,
		Ang1: dir.Cross(relPos1),
		Ang2: relPos2.Cross(dir),
	}
}

func (j *JacobianRow) velocity(v1, w1, v2, w2 mgl64.Vec3) float64 {
	return j.Lin1.Dot(v1) + j.Ang1.Dot(w1) + j.Lin2.Dot(v2) + j.Ang2.Dot(w2)
}

// SolverInfoRow is the solver input for one enabled manifold point.
type SolverInfoRow struct {
	JacobianN JacobianRow
	JacobianT JacobianRow
	JacobianB JacobianRow

	// Rhs is the target normal velocity (restitution or position bias).
	Rhs      float64
	Friction float64

	Impulse *ContactImpulse
}

// SolverInfo is rebuilt by the contact constraint before each solve phase.
type SolverInfo struct {
	Body1   *actor.RigidBody
	Body2   *actor.RigidBody
	Rows    [MAX_MANIFOLD_POINTS]SolverInfoRow
	NumRows int
}

// ContactConstraint turns a manifold into solver rows for two shapes.
type ContactConstraint struct {
	positionCorrection PositionCorrection
	manifold           *Manifold

	s1 *actor.Shape
	s2 *actor.Shape
	b1 *actor.RigidBody
	b2 *actor.RigidBody
}

func NewContactConstraint(manifold *Manifold) *ContactConstraint {
	return &ContactConstraint{manifold: manifold}
}

// Attach binds the constraint to two shapes and their bodies.
func (cc *ContactConstraint) Attach(s1, s2 *actor.Shape) {
	cc.s1 = s1
	cc.s2 = s2
	cc.b1 = s1.Body()
	cc.b2 = s2.Body()
	cc.positionCorrection = mixPositionCorrection(s1.PositionCorrection, s2.PositionCorrection)
}

func (cc *ContactConstraint) Detach() {
	cc.s1 = nil
	cc.s2 = nil
	cc.b1 = nil
	cc.b2 = nil
}

// SyncManifold moves the manifold points with the current body transforms.
func (cc *ContactConstraint) SyncManifold() {
	cc.manifold.updateDepthsAndPositions(cc.b1.Transform, cc.b2.Transform)
}

// VelocitySolverInfo fills info with one row per penetrating point.
// Separated points are disabled and lose their impulse.
func (cc *ContactConstraint) VelocitySolverInfo(ts TimeStep, info *SolverInfo) {
	info.Body1 = cc.b1
	info.Body2 = cc.b2
	info.NumRows = 0

	m := cc.manifold
	friction := MixFriction(cc.s1.Friction, cc.s2.Friction)
	restitution := MixRestitution(cc.s1.Restitution, cc.s2.Restitution)

	v1, w1 := cc.b1.Velocity, cc.b1.AngularVelocity
	v2, w2 := cc.b2.Velocity, cc.b2.AngularVelocity

	for i := 0; i < m.numPoints; i++ {
		p := &m.points[i]
		if p.depth < 0 {
			p.disabled = true
			p.impulse.Clear()
			continue
		}
		p.disabled = false

		row := &info.Rows[info.NumRows]
		info.NumRows++

		row.Friction = friction
		row.JacobianN = newJacobianRow(m.normal, p.relPos1, p.relPos2)
		row.JacobianT = newJacobianRow(m.tangent, p.relPos1, p.relPos2)
		row.JacobianB = newJacobianRow(m.binormal, p.relPos1, p.relPos2)

		rvn := row.JacobianN.velocity(v1, w1, v2, w2)
		// no bounce on resting contacts
		if rvn < -actor.BounceThreshold && !p.warmStarted {
			row.Rhs = -rvn * restitution
		} else {
			row.Rhs = 0
		}

		if cc.positionCorrection == actor.PositionCorrectionBaumgarte && p.depth > actor.LinearSlop {
			row.Rhs = max(row.Rhs, (p.depth-actor.LinearSlop)*actor.VelocityBaumgarte*ts.InvDt)
		}

		if !p.warmStarted {
			p.impulse.Clear()
		}
		row.Impulse = &p.impulse
	}
}

// PositionSolverInfo fills info with the normal rows of the enabled points.
func (cc *ContactConstraint) PositionSolverInfo(info *SolverInfo) {
	info.Body1 = cc.b1
	info.Body2 = cc.b2
	info.NumRows = 0

	m := cc.manifold
	for i := 0; i < m.numPoints; i++ {
		p := &m.points[i]
		if p.disabled {
			continue
		}

		row := &info.Rows[info.NumRows]
		info.NumRows++

		row.JacobianN = newJacobianRow(m.normal, p.relPos1, p.relPos2)
		row.Rhs = max(p.depth-actor.LinearSlop, 0)
		row.Impulse = &p.impulse
	}
}

// IsTouching reports whether any point penetrates.
func (cc *ContactConstraint) IsTouching() bool {
	for i := 0; i < cc.manifold.numPoints; i++ {
		if cc.manifold.points[i].depth >= 0 {
			return true
		}
	}
	return false
}

func (cc *ContactConstraint) Shape1() *actor.Shape { return cc.s1 }

func (cc *ContactConstraint) Shape2() *actor.Shape { return cc.s2 }

func (cc *ContactConstraint) Body1() *actor.RigidBody { return cc.b1 }

func (cc *ContactConstraint) Body2() *actor.RigidBody { return cc.b2 }

func (cc *ContactConstraint) Manifold() *Manifold { return cc.manifold }

func (cc *ContactConstraint) PositionCorrection() PositionCorrection {
	return cc.positionCorrection
}

func (cc *ContactConstraint) SetPositionCorrection(p PositionCorrection) {
	cc.positionCorrection = p
}
