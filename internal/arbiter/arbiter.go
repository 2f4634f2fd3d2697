// Package arbiter tracks persistent contact pairs between bodies and prunes
// them safely while the collection is being scanned.
package arbiter

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dynsolve/internal/body"
)

// Contact is one contact point reported by collision detection.
type Contact struct {
	Position   mgl64.Vec2
	Normal     mgl64.Vec2
	Separation float64
}

// Arbiter is the contact record for a pair of bodies. It lives across steps
// while the pair stays in contact.
type Arbiter struct {
	bodyA    *body.Body
	bodyB    *body.Body
	contacts []Contact

	registered bool
}

func New() *Arbiter {
	return &Arbiter{contacts: make([]Contact, 0, 2)}
}

// Init binds the arbiter to a body pair and clears old contacts.
func (a *Arbiter) Init(bodyA, bodyB *body.Body) *Arbiter {
	a.bodyA = bodyA
	a.bodyB = bodyB
	a.contacts = a.contacts[:0]
	return a
}

func (a *Arbiter) BodyA() *body.Body { return a.bodyA }
func (a *Arbiter) BodyB() *body.Body { return a.bodyB }
func (a *Arbiter) ContactCount() int { return len(a.contacts) }

func (a *Arbiter) Contacts() []Contact {
	out := make([]Contact, len(a.contacts))
	copy(out, a.contacts)
	return out
}

func (a *Arbiter) AddContact(c Contact) {
	a.contacts = append(a.contacts, c)
}

func (a *Arbiter) ClearContacts() {
	a.contacts = a.contacts[:0]
}

// Involves reports whether b is one of the pair.
func (a *Arbiter) Involves(b *body.Body) bool {
	return b != nil && (a.bodyA == b || a.bodyB == b)
}

// ContainsDisposedBody is true when either side is gone.
func (a *Arbiter) ContainsDisposedBody() bool {
	return (a.bodyA != nil && a.bodyA.IsDisposed()) || (a.bodyB != nil && a.bodyB.IsDisposed())
}

// Reset returns the arbiter to an unowned state.
func (a *Arbiter) Reset() {
	a.bodyA = nil
	a.bodyB = nil
	a.contacts = a.contacts[:0]
	a.registered = false
}
