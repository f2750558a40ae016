package oimo

import (
	"github.com/akmonengine/oimo/actor"
	"github.com/akmonengine/oimo/constraint"
	"github.com/akmonengine/oimo/narrowphase"
)

// Contact is the persistent state of one pair of shapes whose bounding
// boxes overlap: the last detection result, the manifold built from it and
// the constraint solving it.
type Contact struct {
	id int

	s1, s2   *actor.Shape
	b1, b2   *actor.RigidBody
	detector *narrowphase.Detector
	result   narrowphase.Result

	manifold   *constraint.Manifold
	updater    *constraint.ManifoldUpdater
	constraint *constraint.ContactConstraint
	solver     *constraint.PgsContactConstraintSolver

	// latest is set when the broadphase reported the pair this step.
	latest bool
	// shouldBeSkipped keeps a contact alive without running its detector.
	shouldBeSkipped bool
	touching        bool
	wasTouching     bool
	triggering      bool
}

func newContact(id int) *Contact {
	manifold := constraint.NewManifold()
	cc := constraint.NewContactConstraint(manifold)

	return &Contact{
		id:         id,
		manifold:   manifold,
		updater:    constraint.NewManifoldUpdater(manifold),
		constraint: cc,
		solver:     constraint.NewPgsContactConstraintSolver(cc),
	}
}

func (c *Contact) attach(s1, s2 *actor.Shape, detector *narrowphase.Detector) {
	c.s1 = s1
	c.s2 = s2
	c.b1 = s1.Body()
	c.b2 = s2.Body()
	c.detector = detector

	c.latest = true
	c.shouldBeSkipped = false
	c.touching = false
	c.wasTouching = false
	c.triggering = false

	c.manifold.Clear()
	c.constraint.Attach(s1, s2)
	c.solver.AddedToIsland = false
}

func (c *Contact) detach() {
	c.s1, c.s2 = nil, nil
	c.b1, c.b2 = nil, nil
	c.detector = nil
	c.result.Clear()
	c.manifold.Clear()
	c.constraint.Detach()
	c.touching = false
	c.wasTouching = false
	c.triggering = false
}

// updateManifold runs the detector and folds its result into the manifold.
// It only touches the contact's own state and may run concurrently with
// other contacts.
func (c *Contact) updateManifold() {
	if c.detector == nil {
		return
	}

	c.detector.Detect(&c.result, c.s1.Geometry, c.s2.Geometry, c.s1.Transform, c.s2.Transform)

	if c.result.NumPoints > 0 {
		c.updater.Update(&c.result, c.b1.Transform, c.b2.Transform)
		c.touching = true
		c.triggering = c.isTriggerPair()
	} else {
		c.manifold.Clear()
		c.touching = false
		c.triggering = false
	}
}

func (c *Contact) isTriggerPair() bool {
	return c.s1.IsTrigger || c.s2.IsTrigger
}

func (c *Contact) ID() int { return c.id }

func (c *Contact) Shape1() *actor.Shape { return c.s1 }

func (c *Contact) Shape2() *actor.Shape { return c.s2 }

func (c *Contact) Body1() *actor.RigidBody { return c.b1 }

func (c *Contact) Body2() *actor.RigidBody { return c.b2 }

// Manifold holds the points of the contact, in world space.
func (c *Contact) Manifold() *constraint.Manifold { return c.manifold }

func (c *Contact) Constraint() *constraint.ContactConstraint { return c.constraint }

// IsTouching reports whether the last detection found contact points.
func (c *Contact) IsTouching() bool { return c.touching }

// IsTriggering reports whether the contact is touching and one of its
// shapes is a trigger.
func (c *Contact) IsTriggering() bool { return c.triggering }
