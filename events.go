package oimo

import (
	"github.com/akmonengine/oimo/actor"
)

const (
	TRIGGER_ENTER EventType = iota
	CONTACT_BEGIN
	TRIGGER_STAY
	CONTACT_STAY
	TRIGGER_EXIT
	CONTACT_END
	ON_SLEEP
	ON_WAKE
)

type EventType uint8

func (t EventType) String() string {
	switch t {
	case TRIGGER_ENTER:
		return "trigger enter"
	case CONTACT_BEGIN:
		return "contact begin"
	case TRIGGER_STAY:
		return "trigger stay"
	case CONTACT_STAY:
		return "contact stay"
	case TRIGGER_EXIT:
		return "trigger exit"
	case CONTACT_END:
		return "contact end"
	case ON_SLEEP:
		return "sleep"
	case ON_WAKE:
		return "wake"
	}
	return "unknown"
}

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// ContactEvent reports a change on a contact, or a trigger overlap.
type ContactEvent struct {
	Kind      EventType
	ContactID int
	ShapeA    *actor.Shape
	ShapeB    *actor.Shape
}

func (e ContactEvent) Type() EventType { return e.Kind }

func (e ContactEvent) BodyA() *actor.RigidBody { return e.ShapeA.Body() }

func (e ContactEvent) BodyB() *actor.RigidBody { return e.ShapeB.Body() }

// Sleep/Wake events
type SleepEvent struct {
	Body *actor.RigidBody
}

func (e SleepEvent) Type() EventType { return ON_SLEEP }

type WakeEvent struct {
	Body *actor.RigidBody
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

// EventListener - callback for events
type EventListener func(event Event)

// Events is the post-step event queue. The world fills it during Step; the
// caller either drains it or flushes it to the subscribed listeners.
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	sleepStates map[*actor.RigidBody]bool
}

func NewEvents() Events {
	return Events{
		listeners:   make(map[EventType][]EventListener),
		buffer:      make([]Event, 0, 256),
		sleepStates: make(map[*actor.RigidBody]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// Len is the number of queued events.
func (e *Events) Len() int {
	return len(e.buffer)
}

func (e *Events) emitContact(c *Contact, contactKind, triggerKind EventType) {
	kind := contactKind
	if c.isTriggerPair() {
		kind = triggerKind
	}
	e.buffer = append(e.buffer, ContactEvent{
		Kind:      kind,
		ContactID: c.id,
		ShapeA:    c.s1,
		ShapeB:    c.s2,
	})
}

// recordContact compares the touching state of c with the previous step
// to emit Begin/Stay/End.
func (e *Events) recordContact(c *Contact) {
	switch {
	case c.touching && !c.wasTouching:
		e.emitContact(c, CONTACT_BEGIN, TRIGGER_ENTER)
	case c.touching && c.wasTouching:
		// Pas de STAY entre deux corps endormis
		if isAwake(c.b1) || isAwake(c.b2) {
			e.emitContact(c, CONTACT_STAY, TRIGGER_STAY)
		}
	case !c.touching && c.wasTouching:
		e.emitContact(c, CONTACT_END, TRIGGER_EXIT)
	}
	c.wasTouching = c.touching
}

// recordDestroyed ends a contact that is destroyed while touching.
func (e *Events) recordDestroyed(c *Contact) {
	if c.wasTouching {
		e.emitContact(c, CONTACT_END, TRIGGER_EXIT)
	}
}

func (e *Events) processSleepEvents(bodies []*actor.RigidBody) {
	for _, body := range bodies {
		trackedState, exists := e.sleepStates[body]
		if !exists {
			e.sleepStates[body] = body.IsSleeping
			continue
		}

		if !trackedState && body.IsSleeping {
			e.buffer = append(e.buffer, SleepEvent{Body: body})
			e.sleepStates[body] = true
		} else if trackedState && !body.IsSleeping {
			e.buffer = append(e.buffer, WakeEvent{Body: body})
			e.sleepStates[body] = false
		}
	}
}

// forget drops the sleep state tracked for a removed body.
func (e *Events) forget(body *actor.RigidBody) {
	delete(e.sleepStates, body)
}

// Flush sends all buffered events to the listeners and clears the buffer.
func (e *Events) Flush() {
	for _, event := range e.buffer {
		if listeners, ok := e.listeners[event.Type()]; ok {
			for _, listener := range listeners {
				listener(event)
			}
		}
	}
	clear(e.buffer)
	e.buffer = e.buffer[:0]
}

// Drain returns the buffered events and clears the buffer without calling
// the listeners.
func (e *Events) Drain() []Event {
	events := make([]Event, len(e.buffer))
	copy(events, e.buffer)
	clear(e.buffer)
	e.buffer = e.buffer[:0]
	return events
}

func isAwake(rb *actor.RigidBody) bool {
	return !rb.IsSleeping && !rb.IsStatic()
}
