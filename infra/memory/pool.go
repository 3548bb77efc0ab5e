// Package memory provides object pooling for hot-path allocations.
package memory

import "sync"

// Resettable objects clear themselves before reuse.
type Resettable interface {
	Reset()
}

// Pool is a typed object pool. Orders churn fast during matching; pooling
// them keeps steady-state GC pressure flat.
type Pool[T any] struct {
	p *sync.Pool
}

func NewPool[T any](ctor func() *T) *Pool[T] {
	return &Pool[T]{
		p: &sync.Pool{
			New: func() any { return ctor() },
		},
	}
}

func (p *Pool[T]) Get() *T {
	return p.p.Get().(*T)
}

func (p *Pool[T]) Put(v *T) {
	if r, ok := any(v).(Resettable); ok {
		r.Reset()
	}
	p.p.Put(v)
}
