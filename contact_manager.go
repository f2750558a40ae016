package oimo

import (
	"log"
	"slices"

	"github.com/akmonengine/oimo/actor"
	"github.com/akmonengine/oimo/broadphase"
	"github.com/akmonengine/oimo/narrowphase"
	"github.com/pkg/errors"
)

// ContactManager turns broadphase pairs into contacts and keeps them up to
// date. Contacts live in a fixed pool; freed slots are reused.
type ContactManager struct {
	broadPhase broadphase.BroadPhase
	matrix     *narrowphase.CollisionMatrix

	pool [MAX_CONTACTS]*Contact
	used int
	free []int

	// contacts lists live contacts in creation order.
	contacts []*Contact

	// exhausted is set once the pool-full warning was logged, until a slot is freed.
	exhausted bool
	workers   int
	logger    *log.Logger
	events    *Events
}

func newContactManager(bp broadphase.BroadPhase, events *Events, logger *log.Logger) *ContactManager {
	return &ContactManager{
		broadPhase: bp,
		matrix:     narrowphase.NewCollisionMatrix(),
		free:       make([]int, 0, MAX_CONTACTS),
		contacts:   make([]*Contact, 0, MAX_CONTACTS),
		workers:    DEFAULT_WORKERS,
		logger:     logger,
		events:     events,
	}
}

// shouldCollide applies the body and group/mask filters to a shape pair.
func shouldCollide(s1, s2 *actor.Shape) bool {
	b1, b2 := s1.Body(), s2.Body()
	if b1 == nil || b2 == nil || b1 == b2 {
		return false
	}
	if !b1.IsDynamic() && !b2.IsDynamic() {
		return false
	}
	return s1.CollisionGroup&s2.CollisionMask != 0 && s2.CollisionGroup&s1.CollisionMask != 0
}

// ========== POOL ==========

func (cm *ContactManager) allocContact() (*Contact, error) {
	var id int
	switch {
	case len(cm.free) > 0:
		id = cm.free[len(cm.free)-1]
		cm.free = cm.free[:len(cm.free)-1]
	case cm.used < MAX_CONTACTS:
		id = cm.used
		cm.pool[id] = newContact(id)
		cm.used++
	default:
		if !cm.exhausted {
			cm.logger.Printf("contact pool exhausted (capacity %d), new pairs are ignored", MAX_CONTACTS)
			cm.exhausted = true
		}
		return nil, errors.Wrapf(ErrContactPoolExhausted, "capacity %d", MAX_CONTACTS)
	}
	return cm.pool[id], nil
}

// contact returns the live contact stored in slot id.
func (cm *ContactManager) contact(id int) *Contact {
	if id < 0 || id >= cm.used {
		return nil
	}
	return cm.pool[id]
}

// release unlinks c from its bodies and returns its slot to the pool.
func (cm *ContactManager) release(c *Contact) {
	cm.events.recordDestroyed(c)

	c.b1.UnlinkContact(c.id)
	c.b2.UnlinkContact(c.id)
	c.detach()

	cm.free = append(cm.free, c.id)
	cm.exhausted = false
}

func (cm *ContactManager) destroyContact(c *Contact) {
	if i := slices.Index(cm.contacts, c); i >= 0 {
		cm.contacts = slices.Delete(cm.contacts, i, i+1)
		cm.release(c)
	}
}

// destroyShapeContacts removes every contact involving s and wakes the
// bodies on the other side.
func (cm *ContactManager) destroyShapeContacts(s *actor.Shape) {
	body := s.Body()
	if body == nil {
		return
	}
	for _, link := range slices.Clone(body.ContactLinks()) {
		c := cm.contact(link.ContactID)
		if c == nil || (c.s1 != s && c.s2 != s) {
			continue
		}
		link.Other.WakeUp()
		cm.destroyContact(c)
	}
}

// ========== UPDATE ==========

// updateContacts collects the broadphase pairs, creates the new contacts
// and destroys the outdated ones.
func (cm *ContactManager) updateContacts() {
	cm.broadPhase.CollectPairs()
	cm.createContacts()
	cm.destroyOutdatedContacts()
}

func (cm *ContactManager) createContacts() {
	for _, pair := range cm.broadPhase.Pairs() {
		s1, ok1 := pair.Proxy1.UserData.(*actor.Shape)
		s2, ok2 := pair.Proxy2.UserData.(*actor.Shape)
		if !ok1 || !ok2 {
			continue
		}
		if s1.ID() > s2.ID() {
			s1, s2 = s2, s1
		}
		if !shouldCollide(s1, s2) {
			continue
		}

		if existing := cm.findContact(s1, s2); existing != nil {
			existing.latest = true
			continue
		}

		detector := cm.matrix.Detector(s1.Geometry.Type(), s2.Geometry.Type())
		if detector == nil {
			continue
		}

		c, err := cm.allocContact()
		if err != nil {
			continue
		}
		c.attach(s1, s2, detector)
		cm.contacts = append(cm.contacts, c)

		b1, b2 := s1.Body(), s2.Body()
		b1.LinkContact(c.id, b2)
		b2.LinkContact(c.id, b1)
	}
}

// findContact looks for the contact (s1, s2) among the links of the body
// with the fewest contacts.
func (cm *ContactManager) findContact(s1, s2 *actor.Shape) *Contact {
	links := s1.Body().ContactLinks()
	if other := s2.Body().ContactLinks(); len(other) < len(links) {
		links = other
	}
	for _, link := range links {
		c := cm.contact(link.ContactID)
		if c != nil && c.s1 == s1 && c.s2 == s2 {
			return c
		}
	}
	return nil
}

func (cm *ContactManager) destroyOutdatedContacts() {
	incremental := cm.broadPhase.Incremental()

	n := 0
	for _, c := range cm.contacts {
		if cm.isOutdated(c, incremental) {
			cm.release(c)
			continue
		}
		cm.contacts[n] = c
		n++
	}
	clear(cm.contacts[n:])
	cm.contacts = cm.contacts[:n]
}

// isOutdated also decides whether a surviving contact skips detection this step.
func (cm *ContactManager) isOutdated(c *Contact, incremental bool) bool {
	if c.latest {
		c.latest = false
		c.shouldBeSkipped = false
		return false
	}
	if !incremental {
		return true
	}

	if !isAwake(c.b1) && !isAwake(c.b2) {
		c.shouldBeSkipped = true
		return false
	}
	if !cm.broadPhase.IsOverlapping(c.s1.ProxyID, c.s2.ProxyID) || !shouldCollide(c.s1, c.s2) {
		return true
	}
	c.shouldBeSkipped = !c.s1.AABB().Overlaps(c.s2.AABB())
	return false
}

// updateManifolds runs narrowphase on every live contact, then records the
// contact events in creation order.
func (cm *ContactManager) updateManifolds() {
	task(cm.workers, cm.contacts, func(c *Contact) {
		if !c.shouldBeSkipped {
			c.updateManifold()
		}
	})

	for _, c := range cm.contacts {
		cm.events.recordContact(c)
	}
}

func (cm *ContactManager) Contacts() []*Contact { return cm.contacts }

func (cm *ContactManager) NumContacts() int { return len(cm.contacts) }
