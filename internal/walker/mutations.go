package walker

import (
	"context"
	"slices"

	"github.com/DeusData/codebase-execwalk/internal/semantic"
	"github.com/DeusData/codebase-execwalk/internal/syntax"
)

// MutationWalker collects everything that changes a variable, field or
// property: assignments, increments and decrements, and ref/out arguments.
type MutationWalker struct {
	pools     *Pools
	walker    *Walker
	mutations []*syntax.Node
}

// BorrowMutations walks root and collects its mutations. The result must be
// released.
func BorrowMutations(ctx context.Context, root *syntax.Node, scope Scope, model semantic.Model, opts ...Option) (*MutationWalker, error) {
	pools := poolsOf(opts)
	mw := pools.mutations.Borrow()
	w, err := Walk(ctx, root, scope, model, withObserver(opts, mw.observe)...)
	if err != nil {
		pools.mutations.Return(mw)
		return nil, err
	}
	mw.walker = w
	return mw, nil
}

func (mw *MutationWalker) observe(n *syntax.Node) {
	if mutated(n) != nil {
		mw.mutations = append(mw.mutations, n)
	}
}

// Mutations returns the mutating nodes in execution order.
func (mw *MutationWalker) Mutations() []*syntax.Node { return mw.mutations }

// IsEmpty reports whether the walk found no mutation.
func (mw *MutationWalker) IsEmpty() bool { return len(mw.mutations) == 0 }

// Visited returns every node the underlying walk visited.
func (mw *MutationWalker) Visited() []*syntax.Node { return mw.walker.Visited() }

// Truncated reports whether the underlying walk stopped at its visit limit.
func (mw *MutationWalker) Truncated() bool { return mw.walker.Truncated() }

// MutationsOf returns the mutations whose target resolves to sym.
func (mw *MutationWalker) MutationsOf(sym *semantic.Symbol) []*syntax.Node {
	if sym == nil {
		return nil
	}
	model := mw.walker.rec.model
	return slices.DeleteFunc(slices.Clone(mw.mutations), func(n *syntax.Node) bool {
		return model.Symbol(mutated(n)) != sym
	})
}

// Release returns the walker and its buffers to their pools.
func (mw *MutationWalker) Release() {
	mw.walker.Release()
	mw.pools.mutations.Return(mw)
}

// mutated returns the expression n writes to, or nil when n is not a mutation.
func mutated(n *syntax.Node) *syntax.Node {
	switch n.Kind() {
	case syntax.KindAssignment:
		return n.Field(syntax.RoleLeft)
	case syntax.KindPrefixUnary, syntax.KindPostfixUnary:
		if n.Op() == "++" || n.Op() == "--" {
			return n.Field(syntax.RoleExpression)
		}
	case syntax.KindArgument:
		if spec := n.Spec(); spec != nil && slices.Contains(spec.RefArgumentKeywords, n.Op()) {
			return n.Field(syntax.RoleExpression)
		}
	}
	return nil
}
