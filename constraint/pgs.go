package constraint

import (
	"math"

	"github.com/akmonengine/oimo/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// massDataRow caches the inverse-mass-weighted jacobians of one row.
type massDataRow struct {
	invMLinN1, invMLinN2 mgl64.Vec3
	invMAngN1, invMAngN2 mgl64.Vec3
	invMLinT1, invMLinT2 mgl64.Vec3
	invMAngT1, invMAngT2 mgl64.Vec3
	invMLinB1, invMLinB2 mgl64.Vec3
	invMAngB1, invMAngB2 mgl64.Vec3

	massN float64
	// inverse of the 2x2 tangent/binormal mass matrix
	massTB00, massTB01, massTB10, massTB11 float64
}

// bodyVelocity is a local copy of the velocities of both bodies, written
// back once a pass over the rows is done.
type bodyVelocity struct {
	v1, w1, v2, w2 mgl64.Vec3
}

func (bv *bodyVelocity) along(j *JacobianRow) float64 {
	return j.velocity(bv.v1, bv.w1, bv.v2, bv.w2)
}

func (bv *bodyVelocity) apply(lin1, ang1, lin2, ang2 mgl64.Vec3, impulse float64) {
	bv.v1 = bv.v1.Add(lin1.Mul(impulse))
	bv.w1 = bv.w1.Add(ang1.Mul(impulse))
	bv.v2 = bv.v2.Add(lin2.Mul(impulse))
	bv.w2 = bv.w2.Add(ang2.Mul(impulse))
}

// PgsContactConstraintSolver solves one contact constraint with projected
// Gauss-Seidel iterations (sequential impulses).
type PgsContactConstraintSolver struct {
	constraint *ContactConstraint
	info       SolverInfo
	massData   [MAX_MANIFOLD_POINTS]massDataRow

	b1 *actor.RigidBody
	b2 *actor.RigidBody

	// AddedToIsland is scratch state owned by the island builder.
	AddedToIsland bool
}

var _ ConstraintSolver = (*PgsContactConstraintSolver)(nil)

func NewPgsContactConstraintSolver(constraint *ContactConstraint) *PgsContactConstraintSolver {
	return &PgsContactConstraintSolver{constraint: constraint}
}

func (s *PgsContactConstraintSolver) Constraint() *ContactConstraint { return s.constraint }

// Info exposes the rows of the last solve phase.
func (s *PgsContactConstraintSolver) Info() *SolverInfo { return &s.info }

// ========== VELOCITY ==========

func (s *PgsContactConstraintSolver) PreSolveVelocity(ts TimeStep) {
	s.constraint.VelocitySolverInfo(ts, &s.info)
	s.b1 = s.info.Body1
	s.b2 = s.info.Body2

	invM1, invM2 := s.b1.InverseMass(), s.b2.InverseMass()
	invI1, invI2 := s.b1.InverseInertia(), s.b2.InverseInertia()

	for i := 0; i < s.info.NumRows; i++ {
		row := &s.info.Rows[i]
		md := &s.massData[i]

		jn := &row.JacobianN
		md.invMLinN1 = jn.Lin1.Mul(invM1)
		md.invMLinN2 = jn.Lin2.Mul(invM2)
		md.invMAngN1 = invI1.Mul3x1(jn.Ang1)
		md.invMAngN2 = invI2.Mul3x1(jn.Ang2)
		md.massN = invert(invM1 + invM2 + md.invMAngN1.Dot(jn.Ang1) + md.invMAngN2.Dot(jn.Ang2))

		jt := &row.JacobianT
		jb := &row.JacobianB
		md.invMLinT1 = jt.Lin1.Mul(invM1)
		md.invMLinT2 = jt.Lin2.Mul(invM2)
		md.invMLinB1 = jb.Lin1.Mul(invM1)
		md.invMLinB2 = jb.Lin2.Mul(invM2)
		md.invMAngT1 = invI1.Mul3x1(jt.Ang1)
		md.invMAngT2 = invI2.Mul3x1(jt.Ang2)
		md.invMAngB1 = invI1.Mul3x1(jb.Ang1)
		md.invMAngB2 = invI2.Mul3x1(jb.Ang2)

		invMassTB00 := invM1 + invM2 + md.invMAngT1.Dot(jt.Ang1) + md.invMAngT2.Dot(jt.Ang2)
		invMassTB01 := md.invMAngT1.Dot(jb.Ang1) + md.invMAngT2.Dot(jb.Ang2)
		invMassTB11 := invM1 + invM2 + md.invMAngB1.Dot(jb.Ang1) + md.invMAngB2.Dot(jb.Ang2)

		var invDet float64
		if det := invMassTB00*invMassTB11 - invMassTB01*invMassTB01; det > actor.Epsilon*invMassTB00*invMassTB11 {
			invDet = 1 / det
		}
		md.massTB00 = invMassTB11 * invDet
		md.massTB01 = -invMassTB01 * invDet
		md.massTB10 = -invMassTB01 * invDet
		md.massTB11 = invMassTB00 * invDet
	}
}

// WarmStart re-applies last step's impulses, scaled by the dt ratio.
func (s *PgsContactConstraintSolver) WarmStart(ts TimeStep) {
	bv := s.loadVelocity()

	for i := 0; i < s.info.NumRows; i++ {
		row := &s.info.Rows[i]
		md := &s.massData[i]
		imp := row.Impulse

		imp.ImpulseT = imp.ImpulseL.Dot(row.JacobianT.Lin2)
		imp.ImpulseB = imp.ImpulseL.Dot(row.JacobianB.Lin2)

		imp.ImpulseN *= ts.DtRatio
		imp.ImpulseT *= ts.DtRatio
		imp.ImpulseB *= ts.DtRatio

		bv.apply(md.invMLinN1, md.invMAngN1, md.invMLinN2, md.invMAngN2, imp.ImpulseN)
		bv.apply(md.invMLinT1, md.invMAngT1, md.invMLinT2, md.invMAngT2, imp.ImpulseT)
		bv.apply(md.invMLinB1, md.invMAngB1, md.invMLinB2, md.invMAngB2, imp.ImpulseB)
	}

	s.storeVelocity(bv)
}

// SolveVelocity runs one iteration: friction rows first, then normal rows.
func (s *PgsContactConstraintSolver) SolveVelocity() {
	bv := s.loadVelocity()

	for i := 0; i < s.info.NumRows; i++ {
		row := &s.info.Rows[i]
		md := &s.massData[i]
		imp := row.Impulse

		rvt := bv.along(&row.JacobianT)
		rvb := bv.along(&row.JacobianB)

		oldT, oldB := imp.ImpulseT, imp.ImpulseB
		imp.ImpulseT -= rvt*md.massTB00 + rvb*md.massTB01
		imp.ImpulseB -= rvt*md.massTB10 + rvb*md.massTB11

		// cône de frottement
		maxImpulse := row.Friction * imp.ImpulseN
		if math.Abs(maxImpulse) <= actor.Epsilon {
			imp.ImpulseT = 0
			imp.ImpulseB = 0
		} else if lenSq := imp.ImpulseT*imp.ImpulseT + imp.ImpulseB*imp.ImpulseB; lenSq > maxImpulse*maxImpulse {
			scale := maxImpulse / math.Sqrt(lenSq)
			imp.ImpulseT *= scale
			imp.ImpulseB *= scale
		}

		bv.apply(md.invMLinT1, md.invMAngT1, md.invMLinT2, md.invMAngT2, imp.ImpulseT-oldT)
		bv.apply(md.invMLinB1, md.invMAngB1, md.invMLinB2, md.invMAngB2, imp.ImpulseB-oldB)
	}

	for i := 0; i < s.info.NumRows; i++ {
		row := &s.info.Rows[i]
		md := &s.massData[i]
		imp := row.Impulse

		rvn := bv.along(&row.JacobianN)
		oldN := imp.ImpulseN
		imp.ImpulseN = max(imp.ImpulseN+(row.Rhs-rvn)*md.massN, 0)

		bv.apply(md.invMLinN1, md.invMAngN1, md.invMLinN2, md.invMAngN2, imp.ImpulseN-oldN)
	}

	s.storeVelocity(bv)
}

// ========== POSITION ==========

// updatePositionData moves the manifold with the bodies and rebuilds the
// normal rows and their masses.
func (s *PgsContactConstraintSolver) updatePositionData() {
	s.constraint.SyncManifold()
	s.constraint.PositionSolverInfo(&s.info)
	s.b1 = s.info.Body1
	s.b2 = s.info.Body2

	invM1, invM2 := s.b1.InverseMass(), s.b2.InverseMass()
	invI1, invI2 := s.b1.InverseInertia(), s.b2.InverseInertia()

	for i := 0; i < s.info.NumRows; i++ {
		jn := &s.info.Rows[i].JacobianN
		md := &s.massData[i]

		md.invMLinN1 = jn.Lin1.Mul(invM1)
		md.invMLinN2 = jn.Lin2.Mul(invM2)
		md.invMAngN1 = invI1.Mul3x1(jn.Ang1)
		md.invMAngN2 = invI2.Mul3x1(jn.Ang2)
		md.massN = invert(invM1 + invM2 + md.invMAngN1.Dot(jn.Ang1) + md.invMAngN2.Dot(jn.Ang2))
	}
}

func (s *PgsContactConstraintSolver) PreSolvePosition(ts TimeStep) {
	s.updatePositionData()
	for i := 0; i < s.info.NumRows; i++ {
		s.info.Rows[i].Impulse.ImpulseP = 0
	}
}

// SolvePositionSplitImpulse solves the penetration on the pseudo velocities.
func (s *PgsContactConstraintSolver) SolvePositionSplitImpulse() {
	bv := bodyVelocity{
		v1: s.b1.PseudoVelocity, w1: s.b1.AngularPseudoVelocity,
		v2: s.b2.PseudoVelocity, w2: s.b2.AngularPseudoVelocity,
	}

	s.solvePosition(&bv, actor.PositionSplitImpulseBaumgarte)

	s.b1.PseudoVelocity, s.b1.AngularPseudoVelocity = bv.v1, bv.w1
	s.b2.PseudoVelocity, s.b2.AngularPseudoVelocity = bv.v2, bv.w2
}

// SolvePositionNgs moves the bodies out of penetration directly.
func (s *PgsContactConstraintSolver) SolvePositionNgs(ts TimeStep) {
	s.updatePositionData()

	var bv bodyVelocity
	s.solvePosition(&bv, actor.PositionNgsBaumgarte)

	s.b1.ApplyTranslation(bv.v1)
	s.b2.ApplyTranslation(bv.v2)
	s.b1.ApplyRotation(bv.w1)
	s.b2.ApplyRotation(bv.w2)
}

func (s *PgsContactConstraintSolver) solvePosition(bv *bodyVelocity, baumgarte float64) {
	for i := 0; i < s.info.NumRows; i++ {
		row := &s.info.Rows[i]
		md := &s.massData[i]
		imp := row.Impulse

		rvn := bv.along(&row.JacobianN)
		oldP := imp.ImpulseP
		imp.ImpulseP = max(imp.ImpulseP+(row.Rhs-rvn)*md.massN*baumgarte, 0)

		bv.apply(md.invMLinN1, md.invMAngN1, md.invMLinN2, md.invMAngN2, imp.ImpulseP-oldP)
	}
}

// ========== POST SOLVE ==========

// PostSolve stores the lateral impulses for the next warm start, adds the
// contact impulses to both bodies and resyncs the manifold.
func (s *PgsContactConstraintSolver) PostSolve() {
	var lin1, ang1, lin2, ang2 mgl64.Vec3

	for i := 0; i < s.info.NumRows; i++ {
		row := &s.info.Rows[i]
		imp := row.Impulse
		jn, jt, jb := &row.JacobianN, &row.JacobianT, &row.JacobianB

		imp.ImpulseL = jt.Lin2.Mul(imp.ImpulseT).Add(jb.Lin2.Mul(imp.ImpulseB))

		for _, r := range [3]struct {
			j       *JacobianRow
			impulse float64
		}{{jn, imp.ImpulseN}, {jt, imp.ImpulseT}, {jb, imp.ImpulseB}} {
			lin1 = lin1.Add(r.j.Lin1.Mul(r.impulse))
			ang1 = ang1.Add(r.j.Ang1.Mul(r.impulse))
			lin2 = lin2.Add(r.j.Lin2.Mul(r.impulse))
			ang2 = ang2.Add(r.j.Ang2.Mul(r.impulse))
		}
	}

	s.b1.AddContactImpulse(lin1, ang1)
	s.b2.AddContactImpulse(lin2, ang2)

	s.constraint.SyncManifold()
}

func (s *PgsContactConstraintSolver) loadVelocity() bodyVelocity {
	return bodyVelocity{
		v1: s.b1.Velocity, w1: s.b1.AngularVelocity,
		v2: s.b2.Velocity, w2: s.b2.AngularVelocity,
	}
}

func (s *PgsContactConstraintSolver) storeVelocity(bv bodyVelocity) {
	s.b1.Velocity, s.b1.AngularVelocity = bv.v1, bv.w1
	s.b2.Velocity, s.b2.AngularVelocity = bv.v2, bv.w2
}

// invert returns 1/x, or 0 when x is too small to invert safely.
func invert(x float64) float64 {
	if math.Abs(x) > actor.Epsilon {
		return 1 / x
	}
	return 0
}
