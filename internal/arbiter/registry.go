package arbiter

// Releaser takes ownership of arbiters the registry drops.
type Releaser interface {
	Release(a *Arbiter)
}

// Registry holds the live arbiters in insertion order. Removal is done in two
// passes: matching arbiters are first collected into a scratch buffer, then
// swept out of the live list, so predicates always see a stable list.
type Registry struct {
	items  []*Arbiter
	marked []*Arbiter
}

func NewRegistry() *Registry {
	return &Registry{
		items:  make([]*Arbiter, 0, 16),
		marked: make([]*Arbiter, 0, 16),
	}
}

// Add appends a. An arbiter already in a registry is ignored.
func (r *Registry) Add(a *Arbiter) bool {
	if a == nil || a.registered {
		return false
	}
	a.registered = true
	r.items = append(r.items, a)
	return true
}

func (r *Registry) Len() int          { return len(r.items) }
func (r *Registry) At(i int) *Arbiter { return r.items[i] }

func (r *Registry) Contains(a *Arbiter) bool {
	for _, it := range r.items {
		if it == a {
			return true
		}
	}
	return false
}

// Items returns a copy of the live list.
func (r *Registry) Items() []*Arbiter {
	out := make([]*Arbiter, len(r.items))
	copy(out, r.items)
	return out
}

// ForEachSafe calls action for every arbiter by index. The length is read
// again after every call, so arbiters the action appends are visited in the
// same pass.
func (r *Registry) ForEachSafe(action func(a *Arbiter)) {
	for i := 0; i < len(r.items); i++ {
		action(r.items[i])
	}
}

// RemoveAllMatching drops every arbiter matching the predicate and resets it.
// The arbiters are not pooled; their owner is responsible for that.
func (r *Registry) RemoveAllMatching(match func(a *Arbiter) bool) int {
	return r.removeMarked(match, func(a *Arbiter) { a.Reset() })
}

// RemoveAndReleaseZeroContact drops arbiters without contact points and
// releases them to p.
func (r *Registry) RemoveAndReleaseZeroContact(p Releaser) int {
	return r.removeMarked(contactCountIsZero, p.Release)
}

// RemoveAndReleaseDisposedBody drops arbiters referencing a disposed body and
// releases them to p.
func (r *Registry) RemoveAndReleaseDisposedBody(p Releaser) int {
	return r.removeMarked((*Arbiter).ContainsDisposedBody, p.Release)
}

// Clear releases every arbiter to p.
func (r *Registry) Clear(p Releaser) int {
	return r.removeMarked(func(*Arbiter) bool { return true }, p.Release)
}

func contactCountIsZero(a *Arbiter) bool {
	return a.ContactCount() == 0
}

func (r *Registry) removeMarked(match func(*Arbiter) bool, dispose func(*Arbiter)) int {
	for _, a := range r.items {
		if match(a) {
			r.marked = append(r.marked, a)
		}
	}
	if len(r.marked) == 0 {
		return 0
	}

	// marked preserves live order, so one merge walk compacts the list
	kept, m := 0, 0
	for _, a := range r.items {
		if m < len(r.marked) && a == r.marked[m] {
			m++
			continue
		}
		r.items[kept] = a
		kept++
	}
	clear(r.items[kept:])
	r.items = r.items[:kept]

	removed := len(r.marked)
	for i, a := range r.marked {
		a.registered = false
		dispose(a)
		r.marked[i] = nil
	}
	r.marked = r.marked[:0]
	return removed
}
