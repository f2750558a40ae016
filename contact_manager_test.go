package oimo

import (
	"testing"

	"github.com/akmonengine/oimo/actor"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

func TestContactManager_ContactPersistsAcrossSteps(t *testing.T) {
	w := createTestWorld()
	createTestGround(t, w)
	createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{0, 0.99, 0}, sphereConfig(1))

	w.Step(testDt)
	if w.NumContacts() != 1 {
		t.Fatalf("NumContacts() = %d, want 1", w.NumContacts())
	}
	first := w.Contacts()[0]

	for i := 0; i < 10; i++ {
		w.Step(testDt)
	}
	if w.NumContacts() != 1 || w.Contacts()[0] != first {
		t.Error("the contact should be reused while the pair keeps overlapping")
	}
	if !first.IsTouching() || first.Manifold().NumPoints() != 1 {
		t.Errorf("touching = %v, points = %d, want a touching single-point contact",
			first.IsTouching(), first.Manifold().NumPoints())
	}
}

func TestContactManager_SlotReuse(t *testing.T) {
	w := createTestWorld()
	createTestGround(t, w)
	sphere := createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{0, 0.99, 0}, sphereConfig(1))

	w.Step(testDt)
	id := w.Contacts()[0].ID()

	if err := w.RemoveRigidBody(sphere); err != nil {
		t.Fatal(err)
	}
	if w.NumContacts() != 0 {
		t.Fatalf("NumContacts() = %d after removal, want 0", w.NumContacts())
	}
	if links := w.RigidBodies()[0].ContactLinks(); len(links) != 0 {
		t.Errorf("ground kept %d contact links", len(links))
	}

	createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{1, 0.99, 0}, sphereConfig(1))
	w.Step(testDt)

	if w.NumContacts() != 1 {
		t.Fatalf("NumContacts() = %d, want 1", w.NumContacts())
	}
	if got := w.Contacts()[0].ID(); got != id {
		t.Errorf("new contact took slot %d, want freed slot %d", got, id)
	}
}

func TestContactManager_AllocExhaustion(t *testing.T) {
	cm := newContactManager(nil, nil, discardLogger())

	for i := 0; i < MAX_CONTACTS; i++ {
		c, err := cm.allocContact()
		if err != nil {
			t.Fatalf("alloc %d: %v", i, err)
		}
		if c.ID() != i {
			t.Fatalf("alloc %d returned slot %d", i, c.ID())
		}
	}

	if _, err := cm.allocContact(); !errors.Is(err, ErrContactPoolExhausted) {
		t.Fatalf("alloc past capacity: err = %v, want ErrContactPoolExhausted", err)
	}
	if !cm.exhausted {
		t.Error("exhaustion should be remembered until a slot is freed")
	}
}

func TestContactManager_SeparatedPairIsDestroyed(t *testing.T) {
	w := createTestWorld()
	createTestGround(t, w)
	sphere := createTestBody(t, w, actor.BodyTypeDynamic, mgl64.Vec3{0, 0.99, 0}, sphereConfig(1))

	w.Step(testDt)
	if w.NumContacts() != 1 {
		t.Fatalf("NumContacts() = %d, want 1", w.NumContacts())
	}

	sphere.SetPosition(mgl64.Vec3{0, 10, 0})
	w.Step(testDt)

	if w.NumContacts() != 0 {
		t.Errorf("NumContacts() = %d after teleport, want 0", w.NumContacts())
	}
	ended := 0
	for _, event := range w.DrainEvents() {
		if event.Type() == CONTACT_END {
			ended++
		}
	}
	if ended != 1 {
		t.Errorf("CONTACT_END count = %d, want 1", ended)
	}
}
