package walker

import (
	"context"

	"github.com/DeusData/codebase-execwalk/internal/semantic"
	"github.com/DeusData/codebase-execwalk/internal/syntax"
)

// AssignmentWalker collects assignments and initialized declarations in
// execution order.
type AssignmentWalker struct {
	pools       *Pools
	walker      *Walker
	assignments []*syntax.Node
	seen        map[*syntax.Node]struct{}
}

// BorrowAssignments walks root and collects its assignments. The result must
// be released.
func BorrowAssignments(ctx context.Context, root *syntax.Node, scope Scope, model semantic.Model, opts ...Option) (*AssignmentWalker, error) {
	pools := poolsOf(opts)
	aw := pools.assignments.Borrow()
	w, err := Walk(ctx, root, scope, model, withObserver(opts, aw.observe)...)
	if err != nil {
		pools.assignments.Return(aw)
		return nil, err
	}
	aw.walker = w
	return aw, nil
}

// poolsOf returns the pools opts select.
func poolsOf(opts []Option) *Pools {
	if p := applyOptions(opts).pools; p != nil {
		return p
	}
	return defaultPools
}

// withObserver adds fn after any observer the caller passed in opts.
func withObserver(opts []Option, fn func(*syntax.Node)) []Option {
	all := make([]Option, 0, len(opts)+1)
	all = append(all, opts...)
	return append(all, func(o *walkOptions) {
		prev := o.observe
		if prev == nil {
			o.observe = fn
			return
		}
		o.observe = func(n *syntax.Node) {
			prev(n)
			fn(n)
		}
	})
}

func (aw *AssignmentWalker) observe(n *syntax.Node) {
	switch n.Kind() {
	case syntax.KindAssignment:
	case syntax.KindDeclarator:
		if n.Field(syntax.RoleValue) == nil {
			return
		}
	case syntax.KindProperty:
		if propertyInitializer(n) == nil {
			return
		}
	default:
		return
	}
	if _, dup := aw.seen[n]; dup {
		return
	}
	aw.seen[n] = struct{}{}
	aw.assignments = append(aw.assignments, n)
}

// Assignments returns assignment expressions, initialized declarators and
// initialized properties in the order they execute.
func (aw *AssignmentWalker) Assignments() []*syntax.Node { return aw.assignments }

// Visited returns every node the underlying walk visited.
func (aw *AssignmentWalker) Visited() []*syntax.Node { return aw.walker.Visited() }

// Truncated reports whether the underlying walk stopped at its visit limit.
func (aw *AssignmentWalker) Truncated() bool { return aw.walker.Truncated() }

// FirstAssignmentTo returns the first assignment whose target is sym.
func (aw *AssignmentWalker) FirstAssignmentTo(sym *semantic.Symbol) (*syntax.Node, bool) {
	if sym == nil {
		return nil, false
	}
	model := aw.walker.rec.model
	for _, a := range aw.assignments {
		if model.Symbol(assignedTarget(a)) == sym {
			return a, true
		}
	}
	return nil, false
}

// AssignmentsWithValue returns the assignments whose assigned value is sym.
func (aw *AssignmentWalker) AssignmentsWithValue(sym *semantic.Symbol) []*syntax.Node {
	if sym == nil {
		return nil
	}
	model := aw.walker.rec.model
	var out []*syntax.Node
	for _, a := range aw.assignments {
		if model.Symbol(assignedValue(a)) == sym {
			out = append(out, a)
		}
	}
	return out
}

// Release returns the walker and its buffers to their pools.
func (aw *AssignmentWalker) Release() {
	aw.walker.Release()
	aw.pools.assignments.Return(aw)
}

// assignedTarget returns the node naming what an assignment writes. For
// declarators and properties this is the declaration itself.
func assignedTarget(a *syntax.Node) *syntax.Node {
	if a.Kind() == syntax.KindAssignment {
		return a.Field(syntax.RoleLeft)
	}
	return a
}

func assignedValue(a *syntax.Node) *syntax.Node {
	switch a.Kind() {
	case syntax.KindAssignment:
		return a.Field(syntax.RoleRight)
	case syntax.KindProperty:
		return propertyInitializer(a)
	}
	return a.Field(syntax.RoleValue)
}
