package constraint

import (
	"math"
	"testing"

	"github.com/akmonengine/oimo/actor"
	"github.com/go-gl/mathgl/mgl64"
)

func TestPgsSolveVelocity(t *testing.T) {
	tests := []struct {
		name         string
		setup        contactSetup
		wantVelocity mgl64.Vec3
		// normal impulse divided by the sphere mass
		wantImpulseN float64
	}{
		{
			name:         "stops approach",
			setup:        contactSetup{depth: 0.001, velocity: mgl64.Vec3{0, -2, 0}},
			wantVelocity: mgl64.Vec3{0, 0, 0},
			wantImpulseN: 2,
		},
		{
			name:         "elastic bounce",
			setup:        contactSetup{depth: 0.001, velocity: mgl64.Vec3{0, -2, 0}, restitution: 1},
			wantVelocity: mgl64.Vec3{0, 2, 0},
			wantImpulseN: 4,
		},
		{
			name:         "baumgarte pushes out",
			setup:        contactSetup{depth: 0.105},
			wantVelocity: mgl64.Vec3{0, 1.2, 0},
			wantImpulseN: 1.2,
		},
		{
			name: "friction stops sliding",
			setup: contactSetup{
				depth: 0.001, velocity: mgl64.Vec3{0.5, -2, 0}, friction: 0.5, lockRotation: true,
			},
			wantVelocity: mgl64.Vec3{0, 0, 0},
			wantImpulseN: 2,
		},
		{
			name: "friction cone clamps",
			setup: contactSetup{
				depth: 0.001, velocity: mgl64.Vec3{3, -2, 0}, friction: 0.5, lockRotation: true,
			},
			wantVelocity: mgl64.Vec3{2, 0, 0},
			wantImpulseN: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			solver, _, _ := createTestContact(t, tt.setup)
			b1 := solver.Constraint().Body1()
			b2 := solver.Constraint().Body2()

			solveVelocity(solver, NewTimeStep(1.0/60, 1.0/60), 10)

			if !b1.Velocity.ApproxEqualThreshold(tt.wantVelocity, 1e-9) {
				t.Errorf("velocity = %v, want %v", b1.Velocity, tt.wantVelocity)
			}
			if b2.Velocity != (mgl64.Vec3{}) || b2.AngularVelocity != (mgl64.Vec3{}) {
				t.Errorf("static body moved: %v %v", b2.Velocity, b2.AngularVelocity)
			}

			impulseN := solver.Constraint().Manifold().Point(0).NormalImpulse() / b1.Mass()
			if math.Abs(impulseN-tt.wantImpulseN) > 1e-9 {
				t.Errorf("normal impulse / mass = %v, want %v", impulseN, tt.wantImpulseN)
			}
		})
	}
}

func TestPgsNormalImpulseNeverPulls(t *testing.T) {
	// Separating contact: the solver must not pull the sphere back.
	solver, _, _ := createTestContact(t, contactSetup{depth: 0.001, velocity: mgl64.Vec3{0, 3, 0}})
	solveVelocity(solver, NewTimeStep(1.0/60, 1.0/60), 10)

	b1 := solver.Constraint().Body1()
	if !b1.Velocity.ApproxEqualThreshold(mgl64.Vec3{0, 3, 0}, 1e-12) {
		t.Errorf("velocity = %v, want [0 3 0]", b1.Velocity)
	}
	if impulse := solver.Constraint().Manifold().Point(0).NormalImpulse(); impulse != 0 {
		t.Errorf("normal impulse = %v, want 0", impulse)
	}
}

func TestPgsPostSolveAndWarmStart(t *testing.T) {
	solver, updater, result := createTestContact(t, contactSetup{depth: 0.001, velocity: mgl64.Vec3{0, -2, 0}})
	b1 := solver.Constraint().Body1()
	b2 := solver.Constraint().Body2()
	mass := b1.Mass()

	solveVelocity(solver, NewTimeStep(1.0/60, 1.0/60), 10)
	solver.PostSolve()

	if !b1.LinearContactImpulse().ApproxEqualThreshold(mgl64.Vec3{0, 2 * mass, 0}, 1e-9) {
		t.Errorf("body1 contact impulse = %v, want [0 %v 0]", b1.LinearContactImpulse(), 2*mass)
	}
	if !b2.LinearContactImpulse().ApproxEqualThreshold(mgl64.Vec3{0, -2 * mass, 0}, 1e-9) {
		t.Errorf("body2 contact impulse = %v, want [0 %v 0]", b2.LinearContactImpulse(), -2*mass)
	}

	// Next step at half the dt: the same point is matched by id and its
	// impulse re-applied at half strength.
	b1.Velocity = mgl64.Vec3{0, -2, 0}
	updater.Update(result, b1.Transform, b2.Transform)
	point := solver.Constraint().Manifold().Point(0)
	if !point.IsWarmStarted() {
		t.Fatalf("point not warm started after update")
	}

	ts := NewTimeStep(1.0/60, 1.0/30)
	solver.PreSolveVelocity(ts)
	solver.WarmStart(ts)

	if math.Abs(point.NormalImpulse()-mass) > 1e-9 {
		t.Errorf("warm started impulse = %v, want %v", point.NormalImpulse(), mass)
	}
	if !b1.Velocity.ApproxEqualThreshold(mgl64.Vec3{0, -1, 0}, 1e-9) {
		t.Errorf("velocity after warm start = %v, want [0 -1 0]", b1.Velocity)
	}
}

func TestPgsFrictionWarmStartFollowsBasis(t *testing.T) {
	solver, _, _ := createTestContact(t, contactSetup{
		depth: 0.001, velocity: mgl64.Vec3{3, -2, 0}, friction: 0.5, lockRotation: true,
	})
	mass := solver.Constraint().Body1().Mass()

	solveVelocity(solver, NewTimeStep(1.0/60, 1.0/60), 10)
	solver.PostSolve()

	// The lateral impulse is the one the ground receives: the sliding
	// sphere drags it along +x, at the cone limit.
	impulseL := solver.Constraint().Manifold().Point(0).Impulse().ImpulseL
	if !impulseL.ApproxEqualThreshold(mgl64.Vec3{mass, 0, 0}, 1e-9) {
		t.Errorf("lateral impulse = %v, want [%v 0 0]", impulseL, mass)
	}
}

func TestPgsSolvePosition(t *testing.T) {
	t.Run("split impulse", func(t *testing.T) {
		solver, _, _ := createTestContact(t, contactSetup{depth: 0.105, correction: actor.PositionCorrectionSplitImpulse})
		b1 := solver.Constraint().Body1()
		ts := NewTimeStep(1.0/60, 1.0/60)

		solveVelocity(solver, ts, 10)
		if b1.Velocity.Len() > 1e-12 {
			t.Fatalf("velocity = %v, want zero without baumgarte", b1.Velocity)
		}

		solver.PreSolvePosition(ts)
		solver.SolvePositionSplitImpulse()

		want := (0.105 - actor.LinearSlop) * actor.PositionSplitImpulseBaumgarte
		if math.Abs(b1.PseudoVelocity.Y()-want) > 1e-9 {
			t.Errorf("pseudo velocity = %v, want %v", b1.PseudoVelocity.Y(), want)
		}

		for i := 0; i < 50; i++ {
			solver.SolvePositionSplitImpulse()
		}
		if math.Abs(b1.PseudoVelocity.Y()-0.1) > 1e-6 {
			t.Errorf("converged pseudo velocity = %v, want 0.1", b1.PseudoVelocity.Y())
		}

		b1.IntegratePseudoVelocity()
		if math.Abs(b1.Position().Y()-0.995) > 1e-6 {
			t.Errorf("position after pseudo velocity = %v, want 0.995", b1.Position().Y())
		}
	})

	t.Run("ngs", func(t *testing.T) {
		solver, _, _ := createTestContact(t, contactSetup{depth: 0.105, correction: actor.PositionCorrectionNgs})
		b1 := solver.Constraint().Body1()
		b2 := solver.Constraint().Body2()
		ts := NewTimeStep(1.0/60, 1.0/60)

		solveVelocity(solver, ts, 10)
		solver.PreSolvePosition(ts)

		solver.SolvePositionNgs(ts)
		if math.Abs(b1.Position().Y()-0.995) > 1e-9 {
			t.Errorf("position after one iteration = %v, want 0.995", b1.Position().Y())
		}

		// Depth is now the slop: nothing left to correct.
		solver.SolvePositionNgs(ts)
		if math.Abs(b1.Position().Y()-0.995) > 1e-9 {
			t.Errorf("position after two iterations = %v, want 0.995", b1.Position().Y())
		}
		if b2.Position() != (mgl64.Vec3{0, -0.5, 0}) {
			t.Errorf("static body moved to %v", b2.Position())
		}
	})
}
