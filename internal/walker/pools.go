package walker

import (
	"context"

	"github.com/DeusData/codebase-execwalk/internal/pool"
	"github.com/DeusData/codebase-execwalk/internal/semantic"
	"github.com/DeusData/codebase-execwalk/internal/syntax"
)

// Pools lends the walkers, resolvers and collectors that walks reuse. A
// Pools is safe for concurrent use; every instance it lends goes back to it
// on Release.
type Pools struct {
	walkers     *pool.Pool[Walker]
	recursions  *pool.Pool[Recursion]
	assignments *pool.Pool[AssignmentWalker]
	mutations   *pool.Pool[MutationWalker]
}

// NewPools creates empty pools. With pool.WithDebug, releasing an instance
// twice panics.
func NewPools(opts ...pool.Option) *Pools {
	p := &Pools{}
	p.walkers = pool.New(
		func() *Walker { return &Walker{pools: p} },
		func(w *Walker) {
			clear(w.visited)
			w.visited = w.visited[:0]
			w.rec, w.owned, w.root, w.rootType, w.observe = nil, false, nil, nil, nil
			w.scope, w.limit, w.full = ScopeMember, 0, false
		},
		opts...,
	)
	p.recursions = pool.New(
		func() *Recursion { return &Recursion{pools: p, visited: make(map[visitKey]struct{})} },
		func(r *Recursion) {
			clear(r.visited)
			r.ctx, r.model, r.err = nil, nil, nil
		},
		opts...,
	)
	p.assignments = pool.New(
		func() *AssignmentWalker {
			return &AssignmentWalker{pools: p, seen: make(map[*syntax.Node]struct{})}
		},
		func(aw *AssignmentWalker) {
			clear(aw.assignments)
			aw.assignments = aw.assignments[:0]
			clear(aw.seen)
			aw.walker = nil
		},
		opts...,
	)
	p.mutations = pool.New(
		func() *MutationWalker { return &MutationWalker{pools: p} },
		func(mw *MutationWalker) {
			clear(mw.mutations)
			mw.mutations = mw.mutations[:0]
			mw.walker = nil
		},
		opts...,
	)
	return p
}

// defaultPools serves walks that are not given WithPools.
var defaultPools = NewPools()

// BorrowRecursion returns an empty Recursion over model. The caller must
// Release it when the walk is done.
func (p *Pools) BorrowRecursion(ctx context.Context, model semantic.Model) *Recursion {
	r := p.recursions.Borrow()
	r.ctx = ctx
	r.model = model
	return r
}

// Outstanding reports the instances currently lent. Always zero unless the
// pools were created with pool.WithDebug.
func (p *Pools) Outstanding() int {
	return p.walkers.Outstanding() + p.recursions.Outstanding() +
		p.assignments.Outstanding() + p.mutations.Outstanding()
}
