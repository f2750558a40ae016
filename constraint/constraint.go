package constraint

import (
	"math"

	"github.com/akmonengine/oimo/actor"
)

// PositionCorrection selects how penetration is removed for a contact.
type PositionCorrection = actor.PositionCorrection

// TimeStep carries the step length. DtRatio is dt divided by the previous
// step's dt, used to rescale warm-start impulses.
type TimeStep struct {
	Dt      float64
	InvDt   float64
	DtRatio float64
}

// NewTimeStep builds a TimeStep from the current and previous dt.
// A previous dt of zero gives a ratio of 1.
func NewTimeStep(dt, previousDt float64) TimeStep {
	ts := TimeStep{Dt: dt, DtRatio: 1}
	if dt > actor.Epsilon {
		ts.InvDt = 1 / dt
	}
	if previousDt > actor.Epsilon {
		ts.DtRatio = dt / previousDt
	}
	return ts
}

// ConstraintSolver is driven by an island through the phases of a step:
// velocity pre-solve, warm start, velocity iterations, optional position
// iterations, then post-solve.
type ConstraintSolver interface {
	PreSolveVelocity(ts TimeStep)
	WarmStart(ts TimeStep)
	SolveVelocity()
	PreSolvePosition(ts TimeStep)
	SolvePositionSplitImpulse()
	SolvePositionNgs(ts TimeStep)
	PostSolve()
}

// MixFriction combines two friction coefficients with the geometric mean.
func MixFriction(f1, f2 float64) float64 {
	// Moyenne géométrique (standard en physique)
	return math.Sqrt(f1 * f2)
}

// MixRestitution combines two restitution coefficients with the geometric mean.
func MixRestitution(e1, e2 float64) float64 {
	return math.Sqrt(e1 * e2)
}

// mixPositionCorrection keeps the stronger of the two shapes' algorithms,
// ordered Baumgarte < split impulse < NGS.
func mixPositionCorrection(p1, p2 PositionCorrection) PositionCorrection {
	return max(p1, p2)
}
