// Package pool recycles instances that are expensive to allocate every step.
package pool

// Pool hands out reusable instances. Release resets an instance before it
// becomes available again; releasing an instance that is already free is a
// no-op, so a released instance is never handed out twice.
type Pool[T comparable] struct {
	newFn   func() T
	resetFn func(T)
	free    []T
	isFree  map[T]struct{}
	created int
}

func New[T comparable](newFn func() T, resetFn func(T)) *Pool[T] {
	return &Pool[T]{
		newFn:   newFn,
		resetFn: resetFn,
		isFree:  make(map[T]struct{}),
	}
}

// Prefill allocates n instances up front.
func (p *Pool[T]) Prefill(n int) {
	for i := 0; i < n; i++ {
		v := p.newFn()
		p.created++
		p.free = append(p.free, v)
		p.isFree[v] = struct{}{}
	}
}

func (p *Pool[T]) Acquire() T {
	n := len(p.free)
	if n == 0 {
		p.created++
		return p.newFn()
	}
	v := p.free[n-1]
	var zero T
	p.free[n-1] = zero
	p.free = p.free[:n-1]
	delete(p.isFree, v)
	return v
}

func (p *Pool[T]) Release(v T) {
	if _, ok := p.isFree[v]; ok {
		return
	}
	if p.resetFn != nil {
		p.resetFn(v)
	}
	p.free = append(p.free, v)
	p.isFree[v] = struct{}{}
}

// Available is the number of instances ready to be acquired without allocating.
func (p *Pool[T]) Available() int { return len(p.free) }

// Created is the number of instances the pool has allocated.
func (p *Pool[T]) Created() int { return p.created }
