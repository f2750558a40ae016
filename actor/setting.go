package actor

import "math"

// Tuning constants shared by the collision and solver packages.
const (
	Epsilon float64 = 1e-6

	// LinearSlop is the penetration allowed before position correction kicks in.
	LinearSlop float64 = 0.005
	// ContactPersistenceThreshold bounds how far a manifold point may drift
	// (along or across the normal) before it is dropped.
	ContactPersistenceThreshold float64 = 0.05

	VelocityBaumgarte             float64 = 0.2
	PositionSplitImpulseBaumgarte float64 = 0.4
	PositionNgsBaumgarte          float64 = 1.0

	// EdgeBiasMult scales edge-axis depths in the box SAT tests so that face
	// axes win when depths are close.
	EdgeBiasMult float64 = 1.05

	// BounceThreshold is the approach speed below which restitution is ignored.
	BounceThreshold float64 = 0.5

	MaxTranslationPerStep float64 = 20
	MaxRotationPerStep    float64 = math.Pi

	DefaultSleepingVelocityThreshold        float64 = 0.2
	DefaultSleepingAngularVelocityThreshold float64 = 0.5
	DefaultSleepingTimeThreshold            float64 = 1.0

	DefaultFriction    float64 = 0.2
	DefaultRestitution float64 = 0.2
	DefaultDensity     float64 = 1

	// BVH limits for static meshes.
	BvhMaxTriangles = 256
	BvhMaxDepth     = 12
	BvhLeafSize     = 4
	BvhMaxQuery     = 256
)

// PositionCorrection selects how a contact removes penetration.
type PositionCorrection uint8

const (
	// PositionCorrectionBaumgarte biases the velocity solve.
	PositionCorrectionBaumgarte PositionCorrection = iota
	// PositionCorrectionSplitImpulse solves a separate pseudo velocity.
	PositionCorrectionSplitImpulse
	// PositionCorrectionNgs moves the bodies directly.
	PositionCorrectionNgs
)

func (p PositionCorrection) String() string {
	switch p {
	case PositionCorrectionSplitImpulse:
		return "split-impulse"
	case PositionCorrectionNgs:
		return "ngs"
	}
	return "baumgarte"
}
