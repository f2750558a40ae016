package oimo

import (
	"log"
	"slices"

	"github.com/akmonengine/oimo/actor"
	"github.com/akmonengine/oimo/broadphase"
	"github.com/akmonengine/oimo/constraint"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// World owns the bodies, the broadphase and the contacts, and advances the
// simulation one Step at a time.
type World struct {
	// Gravity acceleration (m/s², or N/kg)
	Gravity            mgl64.Vec3
	VelocityIterations int
	PositionIterations int
	// Workers > 1 runs narrowphase on several goroutines.
	Workers int

	Events Events

	bodies       []*actor.RigidBody
	numShapes    int
	shapeIDCount int

	broadPhase     broadphase.BroadPhase
	contactManager *ContactManager
	island         *Island
	// stack is the DFS stack of the island builder.
	stack      []*actor.RigidBody
	timeStep   constraint.TimeStep
	numIslands int

	logger *log.Logger
	// truncated is set when an island was cut short during the current step.
	truncated bool
}

func NewWorld(config WorldConfig) *World {
	w := &World{
		Gravity:            config.Gravity,
		VelocityIterations: config.VelocityIterations,
		PositionIterations: config.PositionIterations,
		Workers:            config.Workers,
		Events:             NewEvents(),
		bodies:             make([]*actor.RigidBody, 0, MAX_RIGID_BODIES),
		broadPhase:         broadphase.New(config.BroadPhase, config.HashCellSize, config.HashTableSize),
		stack:              make([]*actor.RigidBody, 0, MAX_RIGID_BODIES),
	}
	w.contactManager = newContactManager(w.broadPhase, &w.Events, discardLogger())
	w.island = newIsland(w.syncBody)
	w.SetLogger(config.Logger)

	return w
}

// SetLogger replaces the logger used for capacity warnings. nil silences the world.
func (w *World) SetLogger(logger *log.Logger) {
	if logger == nil {
		logger = discardLogger()
	}
	w.logger = logger
	w.contactManager.logger = logger
}

// ========== BODIES & SHAPES ==========

// AddRigidBody registers rb and all of its shapes. On error the world is left unchanged.
func (w *World) AddRigidBody(rb *actor.RigidBody) error {
	if slices.Contains(w.bodies, rb) {
		return errors.WithStack(ErrBodyAlreadyAdded)
	}
	if len(w.bodies) >= MAX_RIGID_BODIES {
		return errors.Wrapf(ErrBodyLimit, "capacity %d", MAX_RIGID_BODIES)
	}
	shapes := rb.Shapes()
	if w.numShapes+len(shapes) > MAX_SHAPES {
		return errors.Wrapf(ErrShapeLimit, "capacity %d, body has %d shapes", MAX_SHAPES, len(shapes))
	}

	for i, s := range shapes {
		if err := w.registerShape(s); err != nil {
			for _, registered := range shapes[:i] {
				w.unregisterShape(registered)
			}
			return err
		}
	}
	w.bodies = append(w.bodies, rb)

	return nil
}

// RemoveRigidBody removes rb, its proxies and every contact involving it.
func (w *World) RemoveRigidBody(rb *actor.RigidBody) error {
	k := slices.Index(w.bodies, rb)
	if k < 0 {
		w.logger.Printf("removing a rigid body that is not in the world")
		return errors.WithStack(ErrBodyNotFound)
	}

	for _, s := range rb.Shapes() {
		w.unregisterShape(s)
	}
	w.bodies = slices.Delete(w.bodies, k, k+1)
	rb.AddedToIsland = false
	w.Events.forget(rb)

	return nil
}

// AddShape creates a shape from config and attaches it to rb, which must
// already be in the world.
func (w *World) AddShape(rb *actor.RigidBody, config actor.ShapeConfig) (*actor.Shape, error) {
	if !slices.Contains(w.bodies, rb) {
		return nil, errors.WithStack(ErrBodyNotFound)
	}
	if w.numShapes >= MAX_SHAPES {
		return nil, errors.Wrapf(ErrShapeLimit, "capacity %d", MAX_SHAPES)
	}

	s, err := actor.NewShape(config)
	if err != nil {
		return nil, err
	}
	if err := rb.AddShape(s); err != nil {
		return nil, err
	}
	if err := w.registerShape(s); err != nil {
		_ = rb.RemoveShape(s)
		return nil, err
	}
	rb.WakeUp()

	return s, nil
}

// RemoveShape detaches s from its body and destroys its contacts.
func (w *World) RemoveShape(s *actor.Shape) error {
	rb := s.Body()
	if rb == nil || s.ProxyID < 0 || !slices.Contains(w.bodies, rb) {
		w.logger.Printf("removing a shape that is not in the world")
		return errors.WithStack(ErrShapeNotFound)
	}

	w.unregisterShape(s)
	if err := rb.RemoveShape(s); err != nil {
		return err
	}
	rb.WakeUp()

	return nil
}

func (w *World) registerShape(s *actor.Shape) error {
	id, err := w.broadPhase.CreateProxy(s, s.AABB())
	if err != nil {
		w.logger.Printf("cannot register shape: %v", err)
		return err
	}
	s.ProxyID = id
	s.SetID(w.shapeIDCount)
	w.shapeIDCount++
	w.numShapes++

	return nil
}

func (w *World) unregisterShape(s *actor.Shape) {
	w.contactManager.destroyShapeContacts(s)
	if err := w.broadPhase.DestroyProxy(s.ProxyID); err != nil {
		w.logger.Printf("cannot unregister shape %d: %v", s.ID(), err)
	}
	s.ProxyID = -1
	s.SetID(-1)
	w.numShapes--
}

// syncBody places the shapes of rb at its new transform and moves their proxies.
func (w *World) syncBody(rb *actor.RigidBody) {
	rb.SyncShapes()
	for _, s := range rb.Shapes() {
		w.broadPhase.MoveProxy(s.ProxyID, s.AABB(), s.Displacement())
	}
}

// syncProxies catches up with bodies moved by hand since the last step.
func (w *World) syncProxies() {
	for _, rb := range w.bodies {
		for _, s := range rb.Shapes() {
			w.broadPhase.MoveProxy(s.ProxyID, s.AABB(), s.Displacement())
		}
	}
}

// ========== STEP ==========

// Step advances the world by dt seconds. dt <= Epsilon is a no-op.
func (w *World) Step(dt float64) {
	if dt <= actor.Epsilon {
		return
	}
	w.timeStep = constraint.NewTimeStep(dt, w.timeStep.Dt)
	w.contactManager.workers = max(DEFAULT_WORKERS, w.Workers)

	w.syncProxies()
	w.updateContacts()
	w.solveIslands()

	w.Events.processSleepEvents(w.bodies)
}

func (w *World) updateContacts() {
	w.contactManager.updateContacts()
	w.contactManager.updateManifolds()
}

func (w *World) solveIslands() {
	w.numIslands = 0
	w.truncated = false
	w.island.gravity = w.Gravity

	for _, b := range w.bodies {
		if b.AddedToIsland || b.IsSleeping || b.IsStatic() {
			continue
		}

		if len(b.ContactLinks()) == 0 {
			w.island.stepSingleRigidBody(w.timeStep, b)
			w.numIslands++
			continue
		}

		w.buildIsland(b)
		w.island.step(w.timeStep, w.VelocityIterations, w.PositionIterations)
		w.island.clear()
		w.numIslands++
	}

	if w.truncated {
		w.logger.Printf("island capacity reached (%d bodies, %d solvers), some contacts were not solved",
			w.island.maxBodies, w.island.maxSolvers)
	}

	for _, b := range w.bodies {
		b.AddedToIsland = false
		b.ClearForces()
	}
	for _, c := range w.contactManager.contacts {
		c.solver.AddedToIsland = false
	}
}

// buildIsland gathers the bodies reachable from base through touching,
// non-trigger contacts. The search does not go through static bodies.
func (w *World) buildIsland(base *actor.RigidBody) {
	w.island.addRigidBody(base)
	w.stack = append(w.stack[:0], base)

	for len(w.stack) > 0 {
		rb := w.stack[len(w.stack)-1]
		w.stack[len(w.stack)-1] = nil
		w.stack = w.stack[:len(w.stack)-1]

		for _, link := range rb.ContactLinks() {
			c := w.contactManager.contact(link.ContactID)
			if c == nil || c.solver.AddedToIsland || c.isTriggerPair() || !c.constraint.IsTouching() {
				continue
			}
			if !w.island.addSolver(c.solver, c.constraint.PositionCorrection()) {
				w.truncated = true
				continue
			}

			other := link.Other
			if other.AddedToIsland || other.IsStatic() {
				continue
			}
			if len(w.stack) >= MAX_RIGID_BODIES || !w.island.addRigidBody(other) {
				w.truncated = true
				continue
			}
			w.stack = append(w.stack, other)
		}
	}
}

// ========== QUERIES ==========

// RayCast calls fn for every shape crossed by the segment [begin, end].
func (w *World) RayCast(begin, end mgl64.Vec3, fn func(shape *actor.Shape, hit actor.RayCastHit)) {
	w.broadPhase.RayCast(begin, end, func(p *broadphase.Proxy) {
		shape, ok := p.UserData.(*actor.Shape)
		if !ok {
			return
		}
		if hit, ok := actor.RayCast(shape.Geometry, begin, end, shape.Transform); ok {
			fn(shape, hit)
		}
	})
}

// RayCastClosest returns the first shape hit along [begin, end].
func (w *World) RayCastClosest(begin, end mgl64.Vec3) (actor.RayCastHit, *actor.Shape, bool) {
	var closest actor.RayCastHit
	var closestShape *actor.Shape

	w.RayCast(begin, end, func(shape *actor.Shape, hit actor.RayCastHit) {
		if closestShape == nil || hit.Fraction < closest.Fraction {
			closest = hit
			closestShape = shape
		}
	})

	return closest, closestShape, closestShape != nil
}

// AABBTest calls fn for every shape whose bounding box overlaps aabb.
func (w *World) AABBTest(aabb actor.AABB, fn func(shape *actor.Shape)) {
	w.broadPhase.AABBTest(aabb, func(p *broadphase.Proxy) {
		if shape, ok := p.UserData.(*actor.Shape); ok {
			fn(shape)
		}
	})
}

// ========== ACCESSORS ==========

func (w *World) RigidBodies() []*actor.RigidBody { return w.bodies }

func (w *World) NumRigidBodies() int { return len(w.bodies) }

func (w *World) NumShapes() int { return w.numShapes }

// Contacts lists the live contacts, touching or not.
func (w *World) Contacts() []*Contact { return w.contactManager.Contacts() }

func (w *World) NumContacts() int { return w.contactManager.NumContacts() }

// NumIslands is the number of islands solved by the last step, single bodies included.
func (w *World) NumIslands() int { return w.numIslands }

func (w *World) BroadPhase() broadphase.BroadPhase { return w.broadPhase }

func (w *World) ContactManager() *ContactManager { return w.contactManager }

// DrainEvents returns the events queued since the last drain or flush.
func (w *World) DrainEvents() []Event {
	return w.Events.Drain()
}
