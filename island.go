package oimo

import (
	"github.com/akmonengine/oimo/actor"
	"github.com/akmonengine/oimo/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// Island is a group of bodies connected by touching contacts, solved
// together. One Island value is reused for every group of a step.
type Island struct {
	gravity mgl64.Vec3

	bodies  []*actor.RigidBody
	solvers []*constraint.PgsContactConstraintSolver
	// Position solvers, by correction algorithm.
	solversSi  []*constraint.PgsContactConstraintSolver
	solversNgs []*constraint.PgsContactConstraintSolver

	maxBodies  int
	maxSolvers int

	// syncBody moves the shapes and proxies of a body after integration.
	syncBody func(rb *actor.RigidBody)
}

func newIsland(syncBody func(rb *actor.RigidBody)) *Island {
	return &Island{
		gravity:    StandardGravity,
		bodies:     make([]*actor.RigidBody, 0, MAX_ISLAND_BODIES),
		solvers:    make([]*constraint.PgsContactConstraintSolver, 0, MAX_ISLAND_SOLVERS),
		solversSi:  make([]*constraint.PgsContactConstraintSolver, 0, MAX_ISLAND_SOLVERS),
		solversNgs: make([]*constraint.PgsContactConstraintSolver, 0, MAX_ISLAND_SOLVERS),
		maxBodies:  MAX_ISLAND_BODIES,
		maxSolvers: MAX_ISLAND_SOLVERS,
		syncBody:   syncBody,
	}
}

// addRigidBody returns false when the island is full.
func (is *Island) addRigidBody(rb *actor.RigidBody) bool {
	if len(is.bodies) >= is.maxBodies {
		return false
	}
	rb.AddedToIsland = true
	is.bodies = append(is.bodies, rb)
	return true
}

// addSolver returns false when the island is full.
func (is *Island) addSolver(s *constraint.PgsContactConstraintSolver, pc constraint.PositionCorrection) bool {
	if len(is.solvers) >= is.maxSolvers {
		return false
	}
	s.AddedToIsland = true
	is.solvers = append(is.solvers, s)

	switch pc {
	case actor.PositionCorrectionSplitImpulse:
		is.solversSi = append(is.solversSi, s)
	case actor.PositionCorrectionNgs:
		is.solversNgs = append(is.solversNgs, s)
	}
	return true
}

func (is *Island) clear() {
	clear(is.bodies)
	clear(is.solvers)
	clear(is.solversSi)
	clear(is.solversNgs)
	is.bodies = is.bodies[:0]
	is.solvers = is.solvers[:0]
	is.solversSi = is.solversSi[:0]
	is.solversNgs = is.solversNgs[:0]
}

// stepSingleRigidBody integrates a body that has no contact.
func (is *Island) stepSingleRigidBody(ts constraint.TimeStep, rb *actor.RigidBody) {
	dt := ts.Dt

	rb.PreviousTransform = rb.Transform
	rb.ClearContactImpulses()

	if rb.IsSleepy() {
		rb.SleepTime += dt
		if rb.SleepTime >= rb.SleepingTimeThreshold {
			rb.Sleep()
		}
	} else {
		rb.SleepTime = 0
	}

	if !rb.IsSleeping {
		rb.UpdateVelocity(is.gravity, dt)
		rb.Integrate(dt)
		is.syncBody(rb)
	}
}

// step solves the island. The whole island falls asleep when every body
// has been sleepy for its own time threshold.
func (is *Island) step(ts constraint.TimeStep, velocityIterations, positionIterations int) {
	dt := ts.Dt
	sleepIsland := true

	for _, rb := range is.bodies {
		rb.PreviousTransform = rb.Transform
		rb.ClearContactImpulses()
		rb.IsSleeping = false

		if rb.IsSleepy() {
			rb.SleepTime += dt
		} else {
			rb.SleepTime = 0
		}
		if rb.SleepTime < rb.SleepingTimeThreshold {
			sleepIsland = false
		}

		rb.UpdateVelocity(is.gravity, dt)
	}

	if sleepIsland {
		for _, rb := range is.bodies {
			rb.Sleep()
		}
		return
	}

	// ===== Vitesses =====
	for _, s := range is.solvers {
		s.PreSolveVelocity(ts)
	}
	for _, s := range is.solvers {
		s.WarmStart(ts)
	}
	for i := 0; i < velocityIterations; i++ {
		for _, s := range is.solvers {
			s.SolveVelocity()
		}
	}

	for _, rb := range is.bodies {
		rb.Integrate(dt)
	}

	// ===== Split impulse =====
	for _, s := range is.solversSi {
		s.PreSolvePosition(ts)
	}
	for i := 0; i < positionIterations; i++ {
		for _, s := range is.solversSi {
			s.SolvePositionSplitImpulse()
		}
	}

	for _, rb := range is.bodies {
		rb.IntegratePseudoVelocity()
	}

	// ===== NGS =====
	for _, s := range is.solversNgs {
		s.PreSolvePosition(ts)
	}
	for i := 0; i < positionIterations; i++ {
		for _, s := range is.solversNgs {
			s.SolvePositionNgs(ts)
		}
	}

	for _, s := range is.solvers {
		s.PostSolve()
	}

	for _, rb := range is.bodies {
		is.syncBody(rb)
	}
}

func (is *Island) NumRigidBodies() int { return len(is.bodies) }

func (is *Island) NumSolvers() int { return len(is.solvers) }
