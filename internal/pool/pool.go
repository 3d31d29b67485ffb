// Package pool lends reusable mutable instances (walkers, resolvers) to
// independent walks.
package pool

import (
	"fmt"
	"sync"
)

// Pool caches idle instances of T. Borrow and Return are safe for concurrent
// use; a borrowed instance belongs to one goroutine until it is returned.
type Pool[T any] struct {
	idle  sync.Pool
	reset func(*T)

	debug bool
	mu    sync.Mutex
	out   map[*T]struct{}
}

type options struct {
	debug bool
}

// Option configures a Pool.
type Option func(*options)

// WithDebug tracks borrowed instances so that returning an instance twice, or
// one that was never borrowed, panics. Tracking takes a lock on every call.
func WithDebug() Option {
	return func(o *options) { o.debug = true }
}

// New creates a pool allocating instances with newFn. reset clears an
// instance's state on Return; it may be nil.
func New[T any](newFn func() *T, reset func(*T), opts ...Option) *Pool[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	p := &Pool[T]{reset: reset, debug: o.debug}
	p.idle.New = func() any { return newFn() }
	if o.debug {
		p.out = make(map[*T]struct{})
	}
	return p
}

// Borrow returns an idle instance or a freshly allocated one. It never fails.
func (p *Pool[T]) Borrow() *T {
	v := p.idle.Get().(*T)
	if p.debug {
		p.mu.Lock()
		p.out[v] = struct{}{}
		p.mu.Unlock()
	}
	return v
}

// Return resets v and makes it available to a later Borrow. v must not be
// used afterwards.
func (p *Pool[T]) Return(v *T) {
	if v == nil {
		return
	}
	if p.debug {
		p.mu.Lock()
		_, ok := p.out[v]
		delete(p.out, v)
		p.mu.Unlock()
		if !ok {
			panic(fmt.Sprintf("pool: return of %T %p that is not borrowed", v, v))
		}
	}
	if p.reset != nil {
		p.reset(v)
	}
	p.idle.Put(v)
}

// Outstanding reports the number of borrowed instances. Always zero unless
// the pool was created WithDebug.
func (p *Pool[T]) Outstanding() int {
	if !p.debug {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.out)
}
