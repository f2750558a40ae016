package oimo

import (
	"bytes"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/akmonengine/oimo/actor"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

const testDt = 1.0 / 60

func createTestWorld() *World {
	config := DefaultWorldConfig()
	config.Logger = nil
	return NewWorld(config)
}

func createTestBody(t *testing.T, w *World, bodyType actor.BodyType, position mgl64.Vec3, configs ...actor.ShapeConfig) *actor.RigidBody {
	t.Helper()

	bodyConfig := actor.DefaultRigidBodyConfig()
	bodyConfig.Type = bodyType
	bodyConfig.Position = position
	rb := actor.NewRigidBody(bodyConfig)

	for _, config := range configs {
		s, err := actor.NewShape(config)
		if err != nil {
			t.Fatal(err)
		}
		if err := rb.AddShape(s); err != nil {
			t.Fatal(err)
		}
	}
	if w != nil {
		if err := w.AddRigidBody(rb); err != nil {
			t.Fatal(err)
		}
	}
	return rb
}

func sphereConfig(radius float64) actor.ShapeConfig {
	config := actor.DefaultShapeConfig(actor.NewSphere(radius))
	config.Restitution = 0
	return config
}

func boxConfig(half mgl64.Vec3) actor.ShapeConfig {
	config := actor.DefaultShapeConfig(actor.NewBox(half))
	config.Restitution = 0
	return config
}

// createTestGround adds a static 10x1x10 box whose top face is y=0.
func createTestGround(t *testing.T, w *World) *actor.RigidBody {
	return createTestBody(t, w, actor.BodyTypeStatic, mgl64.Vec3{0, -0.5, 0}, boxConfig(mgl64.Vec3{5, 0.5, 5}))
}

// =============================================================================
// Simulation Tests
// =============================================================================

func TestWorld_SphereDropSettles(t *testing.T) {
	w := createTestWorld()
	createTestGround(t, w)
	sphere := createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{0, 10, 0}, sphereConfig(1))

	for i := 0; i < 600; i++ {
		w.Step(testDt)
	}

	depth := 1 - sphere.Position().Y()
	if depth < -0.01 || depth > actor.LinearSlop+1e-3 {
		t.Errorf("resting depth = %v, want within linear slop %v", depth, actor.LinearSlop)
	}
	if v := sphere.Velocity.Len(); v >= actor.DefaultSleepingVelocityThreshold {
		t.Errorf("final speed = %v, want below %v", v, actor.DefaultSleepingVelocityThreshold)
	}
	if math.Abs(sphere.Position().X()) > 1e-6 || math.Abs(sphere.Position().Z()) > 1e-6 {
		t.Errorf("sphere drifted sideways to %v", sphere.Position())
	}
	if !sphere.IsSleeping {
		t.Errorf("sphere is not sleeping after 10 s at rest")
	}
}

func TestWorld_RestingBoxSteadyState(t *testing.T) {
	w := createTestWorld()
	createTestGround(t, w)
	box := createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{0, 0.49, 0}, boxConfig(mgl64.Vec3{0.5, 0.5, 0.5}))
	box.AutoSleep = false

	previous := box.Velocity
	for i := 0; i < 120; i++ {
		w.Step(testDt)

		if i >= 60 {
			if dv := box.Velocity.Sub(previous).Len(); dv > 1e-3 {
				t.Fatalf("step %d: velocity changed by %v", i, dv)
			}
		}
		previous = box.Velocity
	}

	if v := box.Velocity.Len(); v > 1e-2 {
		t.Errorf("resting box speed = %v", v)
	}
	if y := box.Position().Y(); y < 0.5-0.02 || y > 0.5+1e-3 {
		t.Errorf("resting box height = %v, want about 0.5", y)
	}
	if n := w.Contacts()[0].Manifold().NumPoints(); n != 4 {
		t.Errorf("box on ground has %d manifold points, want 4", n)
	}
}

func TestWorld_StepIgnoresTinyDt(t *testing.T) {
	w := createTestWorld()
	sphere := createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{0, 10, 0}, sphereConfig(1))

	for _, dt := range []float64{0, -testDt, actor.Epsilon} {
		w.Step(dt)
	}
	if sphere.Position() != (mgl64.Vec3{0, 10, 0}) || sphere.Velocity != (mgl64.Vec3{}) {
		t.Errorf("body moved on a no-op step: %v %v", sphere.Position(), sphere.Velocity)
	}
}

func TestWorld_FreeFall(t *testing.T) {
	w := createTestWorld()
	sphere := createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{0, 10, 0}, sphereConfig(1))

	w.Step(testDt)

	wantV := StandardGravity.Y() * testDt
	if math.Abs(sphere.Velocity.Y()-wantV) > 1e-9 {
		t.Errorf("velocity = %v, want %v", sphere.Velocity.Y(), wantV)
	}
	if math.Abs(sphere.Position().Y()-(10+wantV*testDt)) > 1e-9 {
		t.Errorf("position = %v, want %v", sphere.Position().Y(), 10+wantV*testDt)
	}
	if w.NumIslands() != 1 {
		t.Errorf("NumIslands() = %d, want 1", w.NumIslands())
	}
}

func TestWorld_KinematicIgnoresGravity(t *testing.T) {
	w := createTestWorld()
	kinematic := createTestBody(t, w, actor.BodyTypeKinematic, mgl64.Vec3{}, boxConfig(mgl64.Vec3{1, 1, 1}))
	kinematic.SetLinearVelocity(mgl64.Vec3{1, 0, 0})

	for i := 0; i < 60; i++ {
		w.Step(testDt)
	}

	if !kinematic.Position().ApproxEqualThreshold(mgl64.Vec3{1, 0, 0}, 1e-9) {
		t.Errorf("kinematic position = %v, want [1 0 0]", kinematic.Position())
	}
}

func TestWorld_ParallelManifoldsMatchSequential(t *testing.T) {
	run := func(workers int) []mgl64.Vec3 {
		w := createTestWorld()
		w.Workers = workers
		createTestGround(t, w)

		var bodies []*actor.RigidBody
		for i := 0; i < 6; i++ {
			x := float64(i%3)*1.5 - 1.5
			y := 1 + float64(i/3)*2.5
			bodies = append(bodies, createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{x, y, 0}, sphereConfig(0.7)))
		}
		for i := 0; i < 90; i++ {
			w.Step(testDt)
		}

		positions := make([]mgl64.Vec3, len(bodies))
		for i, b := range bodies {
			positions[i] = b.Position()
		}
		return positions
	}

	sequential := run(1)
	parallel := run(4)
	for i := range sequential {
		if sequential[i] != parallel[i] {
			t.Errorf("body %d: sequential %v, parallel %v", i, sequential[i], parallel[i])
		}
	}
}

// =============================================================================
// Sleep Tests
// =============================================================================

func TestWorld_IslandSleepsTogether(t *testing.T) {
	tests := []struct {
		name       string
		restless   bool
		wantAsleep bool
	}{
		{"resting stack sleeps", false, true},
		{"one restless body keeps the island awake", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := createTestWorld()
			createTestGround(t, w)
			bottom := createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{0, 0.499, 0}, boxConfig(mgl64.Vec3{0.5, 0.5, 0.5}))
			top := createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{0, 1.498, 0}, boxConfig(mgl64.Vec3{0.5, 0.5, 0.5}))
			if tt.restless {
				// never sleepy long enough
				top.SleepingTimeThreshold = math.Inf(1)
			}

			for i := 0; i < 240; i++ {
				w.Step(testDt)
				if bottom.IsSleeping != top.IsSleeping {
					t.Fatalf("step %d: bottom sleeping %v, top sleeping %v", i, bottom.IsSleeping, top.IsSleeping)
				}
			}

			if bottom.IsSleeping != tt.wantAsleep {
				t.Errorf("island sleeping = %v, want %v", bottom.IsSleeping, tt.wantAsleep)
			}
		})
	}
}

func TestWorld_SleepingBodyWakesOnImpact(t *testing.T) {
	w := createTestWorld()
	createTestGround(t, w)
	resting := createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{0, 0.499, 0}, boxConfig(mgl64.Vec3{0.5, 0.5, 0.5}))

	for i := 0; i < 180 && !resting.IsSleeping; i++ {
		w.Step(testDt)
	}
	if !resting.IsSleeping {
		t.Fatalf("box did not fall asleep")
	}

	createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{0, 3, 0}, sphereConfig(0.5))
	woke := false
	for i := 0; i < 120 && !woke; i++ {
		w.Step(testDt)
		woke = !resting.IsSleeping
	}
	if !woke {
		t.Errorf("sleeping box was not woken by the falling sphere")
	}
}

// =============================================================================
// Bodies and Shapes Tests
// =============================================================================

func TestWorld_AddRigidBody(t *testing.T) {
	w := createTestWorld()
	rb := createTestBody(t, nil, actor.BodyTypeDynamic, mgl64.Vec3{}, sphereConfig(1), boxConfig(mgl64.Vec3{1, 1, 1}))

	if err := w.AddRigidBody(rb); err != nil {
		t.Fatal(err)
	}
	if w.NumRigidBodies() != 1 || w.NumShapes() != 2 || w.BroadPhase().NumProxies() != 2 {
		t.Errorf("counts = %d bodies %d shapes %d proxies, want 1 2 2",
			w.NumRigidBodies(), w.NumShapes(), w.BroadPhase().NumProxies())
	}
	for _, s := range rb.Shapes() {
		if s.ProxyID < 0 || s.ID() < 0 {
			t.Errorf("shape not registered: proxy %d id %d", s.ProxyID, s.ID())
		}
	}

	if err := w.AddRigidBody(rb); !errors.Is(err, ErrBodyAlreadyAdded) {
		t.Errorf("second AddRigidBody() error = %v, want ErrBodyAlreadyAdded", err)
	}
}

func TestWorld_Capacity(t *testing.T) {
	t.Run("body limit", func(t *testing.T) {
		w := createTestWorld()
		for i := 0; i < MAX_RIGID_BODIES; i++ {
			createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{float64(i) * 3, 0, 0}, sphereConfig(1))
		}

		extra := createTestBody(t, nil, actor.BodyTypeDynamic, mgl64.Vec3{}, sphereConfig(1))
		if err := w.AddRigidBody(extra); !errors.Is(err, ErrBodyLimit) {
			t.Fatalf("AddRigidBody() error = %v, want ErrBodyLimit", err)
		}
		if w.NumRigidBodies() != MAX_RIGID_BODIES || extra.Shapes()[0].ProxyID != -1 {
			t.Errorf("failed add changed the world: %d bodies, proxy %d", w.NumRigidBodies(), extra.Shapes()[0].ProxyID)
		}
		w.Step(testDt)
	})

	t.Run("shape limit", func(t *testing.T) {
		w := createTestWorld()
		configs := make([]actor.ShapeConfig, MAX_SHAPES+1)
		for i := range configs {
			configs[i] = sphereConfig(0.1)
		}
		rb := createTestBody(t, nil, actor.BodyTypeDynamic, mgl64.Vec3{}, configs...)

		if err := w.AddRigidBody(rb); !errors.Is(err, ErrShapeLimit) {
			t.Fatalf("AddRigidBody() error = %v, want ErrShapeLimit", err)
		}
		if w.NumShapes() != 0 || w.BroadPhase().NumProxies() != 0 {
			t.Errorf("failed add left %d shapes and %d proxies", w.NumShapes(), w.BroadPhase().NumProxies())
		}
	})

	t.Run("contact pool", func(t *testing.T) {
		var logs bytes.Buffer
		config := DefaultWorldConfig()
		config.Logger = log.New(&logs, "oimo: ", 0)
		w := NewWorld(config)

		// Every pair overlaps: far more pairs than contact slots.
		for i := 0; i < MAX_RIGID_BODIES; i++ {
			createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{float64(i) * 0.01, 0, 0}, sphereConfig(1))
		}
		w.Step(testDt)

		if w.NumContacts() != MAX_CONTACTS {
			t.Errorf("NumContacts() = %d, want %d", w.NumContacts(), MAX_CONTACTS)
		}
		if n := strings.Count(logs.String(), "contact pool exhausted"); n != 1 {
			t.Errorf("pool exhaustion logged %d times, want 1", n)
		}
	})
}

func TestWorld_IslandTruncation(t *testing.T) {
	createColumn := func(t *testing.T, logs *bytes.Buffer) *World {
		config := DefaultWorldConfig()
		config.Logger = log.New(logs, "oimo: ", 0)
		w := NewWorld(config)
		createTestGround(t, w)
		for i := 0; i < 3; i++ {
			createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{0, 0.49 + float64(i)*0.99, 0}, sphereConfig(0.5))
		}
		return w
	}

	t.Run("bodies", func(t *testing.T) {
		var logs bytes.Buffer
		w := createColumn(t, &logs)
		w.island.maxBodies = 2

		w.Step(testDt)

		if n := strings.Count(logs.String(), "island capacity reached"); n != 1 {
			t.Errorf("truncation logged %d times, want 1", n)
		}
		// Le troisième corps forme sa propre île
		if w.NumIslands() != 2 {
			t.Errorf("NumIslands() = %d, want 2", w.NumIslands())
		}
	})

	t.Run("solvers", func(t *testing.T) {
		var logs bytes.Buffer
		w := createColumn(t, &logs)
		w.island.maxSolvers = 1

		w.Step(testDt)

		if !strings.Contains(logs.String(), "island capacity reached") {
			t.Error("solver truncation was not logged")
		}
		for _, b := range w.RigidBodies() {
			if b.AddedToIsland {
				t.Error("island flags should be cleared after the step")
			}
		}
	})

	t.Run("default caps", func(t *testing.T) {
		var logs bytes.Buffer
		w := createColumn(t, &logs)

		w.Step(testDt)

		if strings.Contains(logs.String(), "island capacity reached") {
			t.Errorf("unexpected truncation: %s", logs.String())
		}
		if w.NumIslands() != 1 {
			t.Errorf("NumIslands() = %d, want 1", w.NumIslands())
		}
	})
}

func TestWorld_RemoveRigidBody(t *testing.T) {
	w := createTestWorld()
	ground := createTestGround(t, w)
	sphere := createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{0, 0.99, 0}, sphereConfig(1))

	w.Step(testDt)
	if w.NumContacts() != 1 || !w.Contacts()[0].IsTouching() {
		t.Fatalf("expected one touching contact, got %d", w.NumContacts())
	}
	w.DrainEvents()

	if err := w.RemoveRigidBody(ground); err != nil {
		t.Fatal(err)
	}
	if w.NumContacts() != 0 || len(sphere.ContactLinks()) != 0 {
		t.Errorf("contacts left after removal: %d, links %d", w.NumContacts(), len(sphere.ContactLinks()))
	}
	if w.NumRigidBodies() != 1 || w.NumShapes() != 1 {
		t.Errorf("counts = %d bodies %d shapes, want 1 1", w.NumRigidBodies(), w.NumShapes())
	}
	if ground.Shapes()[0].ProxyID != -1 {
		t.Errorf("removed shape still has proxy %d", ground.Shapes()[0].ProxyID)
	}

	events := w.DrainEvents()
	if len(events) != 1 || events[0].Type() != CONTACT_END {
		t.Errorf("events after removal = %v, want one CONTACT_END", events)
	}

	if err := w.RemoveRigidBody(ground); !errors.Is(err, ErrBodyNotFound) {
		t.Errorf("second RemoveRigidBody() error = %v, want ErrBodyNotFound", err)
	}
}

func TestWorld_AddRemoveShape(t *testing.T) {
	w := createTestWorld()
	createTestGround(t, w)
	rb := createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{0, 0.99, 0}, sphereConfig(1))
	mass := rb.Mass()

	// Tall enough to reach the ground below the sphere.
	extra, err := w.AddShape(rb, boxConfig(mgl64.Vec3{0.5, 1, 0.5}))
	if err != nil {
		t.Fatal(err)
	}
	if w.NumShapes() != 3 || rb.Mass() <= mass {
		t.Errorf("after AddShape: %d shapes, mass %v (was %v)", w.NumShapes(), rb.Mass(), mass)
	}

	w.Step(testDt)
	if w.NumContacts() != 2 {
		t.Fatalf("NumContacts() = %d, want 2", w.NumContacts())
	}

	if err := w.RemoveShape(extra); err != nil {
		t.Fatal(err)
	}
	if w.NumContacts() != 1 || w.NumShapes() != 2 || extra.Body() != nil {
		t.Errorf("after RemoveShape: %d contacts, %d shapes", w.NumContacts(), w.NumShapes())
	}
	if err := w.RemoveShape(extra); !errors.Is(err, ErrShapeNotFound) {
		t.Errorf("second RemoveShape() error = %v, want ErrShapeNotFound", err)
	}

	stranger := createTestBody(t, nil, actor.BodyTypeDynamic, mgl64.Vec3{}, sphereConfig(1))
	if _, err := w.AddShape(stranger, sphereConfig(1)); !errors.Is(err, ErrBodyNotFound) {
		t.Errorf("AddShape() on a foreign body error = %v, want ErrBodyNotFound", err)
	}
}

// =============================================================================
// Filtering Tests
// =============================================================================

func TestShouldCollide(t *testing.T) {
	tests := []struct {
		name         string
		type1, type2 actor.BodyType
		group1       int
		mask1        int
		group2       int
		mask2        int
		sameBody     bool
		expected     bool
	}{
		{"dynamic pair", actor.BodyTypeDynamic, actor.BodyTypeDynamic, 1, -1, 1, -1, false, true},
		{"dynamic and static", actor.BodyTypeDynamic, actor.BodyTypeStatic, 1, -1, 1, -1, false, true},
		{"static pair", actor.BodyTypeStatic, actor.BodyTypeStatic, 1, -1, 1, -1, false, false},
		{"kinematic and static", actor.BodyTypeKinematic, actor.BodyTypeStatic, 1, -1, 1, -1, false, false},
		{"kinematic and dynamic", actor.BodyTypeKinematic, actor.BodyTypeDynamic, 1, -1, 1, -1, false, true},
		{"same body", actor.BodyTypeDynamic, actor.BodyTypeDynamic, 1, -1, 1, -1, true, false},
		{"first mask excludes", actor.BodyTypeDynamic, actor.BodyTypeDynamic, 1, 4, 2, -1, false, false},
		{"second mask excludes", actor.BodyTypeDynamic, actor.BodyTypeDynamic, 1, -1, 2, 2, false, false},
		{"masks match", actor.BodyTypeDynamic, actor.BodyTypeDynamic, 1, 2, 2, 1, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c1 := sphereConfig(1)
			c1.CollisionGroup, c1.CollisionMask = tt.group1, tt.mask1
			c2 := sphereConfig(1)
			c2.CollisionGroup, c2.CollisionMask = tt.group2, tt.mask2

			var s1, s2 *actor.Shape
			if tt.sameBody {
				rb := createTestBody(t, nil, tt.type1, mgl64.Vec3{}, c1, c2)
				s1, s2 = rb.Shapes()[0], rb.Shapes()[1]
			} else {
				s1 = createTestBody(t, nil, tt.type1, mgl64.Vec3{}, c1).Shapes()[0]
				s2 = createTestBody(t, nil, tt.type2, mgl64.Vec3{}, c2).Shapes()[0]
			}

			if got := shouldCollide(s1, s2); got != tt.expected {
				t.Errorf("shouldCollide() = %v, want %v", got, tt.expected)
			}
			if got := shouldCollide(s2, s1); got != tt.expected {
				t.Errorf("shouldCollide() reversed = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestWorld_FilteredPairHasNoContact(t *testing.T) {
	w := createTestWorld()
	c1 := sphereConfig(1)
	c1.CollisionGroup, c1.CollisionMask = 1, 1
	c2 := sphereConfig(1)
	c2.CollisionGroup, c2.CollisionMask = 2, 2
	a := createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{0, 0, 0}, c1)
	b := createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{0.5, 0, 0}, c2)
	a.GravityScale, b.GravityScale = 0, 0

	w.Step(testDt)

	if w.NumContacts() != 0 {
		t.Errorf("NumContacts() = %d, want 0", w.NumContacts())
	}
	if a.Velocity != (mgl64.Vec3{}) || b.Velocity != (mgl64.Vec3{}) {
		t.Errorf("filtered bodies were pushed apart: %v %v", a.Velocity, b.Velocity)
	}
}

// =============================================================================
// Query Tests
// =============================================================================

func TestWorld_RayCast(t *testing.T) {
	w := createTestWorld()
	ground := createTestGround(t, w)
	sphere := createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{0, 3, 0}, sphereConfig(1))

	begin, end := mgl64.Vec3{0, 10, 0}, mgl64.Vec3{0, -10, 0}

	hits := make(map[*actor.RigidBody]actor.RayCastHit)
	w.RayCast(begin, end, func(shape *actor.Shape, hit actor.RayCastHit) {
		hits[shape.Body()] = hit
	})
	if len(hits) != 2 {
		t.Fatalf("RayCast() hit %d shapes, want 2", len(hits))
	}
	if h := hits[ground]; math.Abs(h.Fraction-0.5) > 1e-9 {
		t.Errorf("ground hit fraction = %v, want 0.5", h.Fraction)
	}

	hit, shape, ok := w.RayCastClosest(begin, end)
	if !ok || shape.Body() != sphere {
		t.Fatalf("RayCastClosest() = %v %v, want the sphere", shape, ok)
	}
	if math.Abs(hit.Fraction-0.3) > 1e-9 {
		t.Errorf("closest fraction = %v, want 0.3", hit.Fraction)
	}
	if !hit.Position.ApproxEqualThreshold(mgl64.Vec3{0, 4, 0}, 1e-9) {
		t.Errorf("closest position = %v, want [0 4 0]", hit.Position)
	}
	if !hit.Normal.ApproxEqualThreshold(mgl64.Vec3{0, 1, 0}, 1e-9) {
		t.Errorf("closest normal = %v, want [0 1 0]", hit.Normal)
	}

	if _, _, ok := w.RayCastClosest(mgl64.Vec3{20, 10, 0}, mgl64.Vec3{20, -10, 0}); ok {
		t.Errorf("RayCastClosest() hit something outside every shape")
	}
}

func TestWorld_AABBTest(t *testing.T) {
	w := createTestWorld()
	createTestGround(t, w)
	sphere := createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{0, 3, 0}, sphereConfig(1))

	var found []*actor.Shape
	w.AABBTest(actor.AABB{Min: mgl64.Vec3{-0.5, 2.5, -0.5}, Max: mgl64.Vec3{0.5, 3.5, 0.5}}, func(shape *actor.Shape) {
		found = append(found, shape)
	})

	if len(found) != 1 || found[0] != sphere.Shapes()[0] {
		t.Errorf("AABBTest() found %d shapes, want only the sphere", len(found))
	}
}
