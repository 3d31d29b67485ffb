package walker

import (
	"context"
	"log/slog"

	"github.com/DeusData/codebase-execwalk/internal/semantic"
	"github.com/DeusData/codebase-execwalk/internal/syntax"
)

type visitKey struct {
	caller string
	kind   TargetKind
	node   *syntax.Node
}

// Recursion resolves reference nodes to the declarations they execute and
// remembers every (caller, kind, node) it has attempted, so that recursive
// code is entered at most once per call site. One Recursion serves one walk
// and every walk nested in it; it is not safe for concurrent use.
type Recursion struct {
	pools   *Pools
	ctx     context.Context
	model   semantic.Model
	visited map[visitKey]struct{}
	err     error
}

// BorrowRecursion returns an empty Recursion over model from the default
// pools. The caller must Release it when the walk is done.
func BorrowRecursion(ctx context.Context, model semantic.Model) *Recursion {
	return defaultPools.BorrowRecursion(ctx, model)
}

// Release clears the visited set and returns r to the pools it came from.
func (r *Recursion) Release() {
	r.pools.recursions.Return(r)
}

// Model returns the semantic model resolutions go through.
func (r *Recursion) Model() semantic.Model { return r.model }

// Err returns the context error that stopped resolution, if any.
func (r *Recursion) Err() error { return r.err }

// Len returns the number of keys attempted so far.
func (r *Recursion) Len() int { return len(r.visited) }

func (r *Recursion) cancelled() bool {
	if r.err != nil {
		return true
	}
	if r.ctx == nil {
		return false
	}
	if err := r.ctx.Err(); err != nil {
		r.err = err
		slog.Debug("walker.cancelled", "err", err, "visited", len(r.visited))
		return true
	}
	return false
}

// Once records (caller, kind, node) and reports whether it was new. It
// returns false once the context is cancelled.
func (r *Recursion) Once(caller string, kind TargetKind, node *syntax.Node) bool {
	if node == nil || r.cancelled() {
		return false
	}
	key := visitKey{caller: caller, kind: kind, node: node}
	if _, seen := r.visited[key]; seen {
		return false
	}
	r.visited[key] = struct{}{}
	return true
}

// resolve guards, resolves and narrows a reference. The declaration must be
// unique: partial and external symbols are not followed.
func (r *Recursion) resolve(
	caller string,
	kind TargetKind,
	source *syntax.Node,
	symbol func() *semantic.Symbol,
	narrow func(*semantic.Symbol, *syntax.Node) *syntax.Node,
) (Target, bool) {
	if !r.Once(caller, kind, source) {
		return Target{}, false
	}
	sym := symbol()
	if sym == nil {
		return Target{}, false
	}
	decls := r.model.Declarations(sym)
	if len(decls) != 1 {
		return Target{}, false
	}
	decl := narrow(sym, decls[0])
	if decl == nil {
		return Target{}, false
	}
	return Target{Source: source, Symbol: sym, Declaration: decl}, true
}

func (r *Recursion) symbolOf(n *syntax.Node, kinds ...semantic.SymbolKind) func() *semantic.Symbol {
	return func() *semantic.Symbol {
		sym := r.model.Symbol(n)
		if sym == nil {
			return nil
		}
		for _, k := range kinds {
			if sym.Kind == k {
				return sym
			}
		}
		return nil
	}
}

// TargetForInvocation resolves the method or local function a call runs.
func (r *Recursion) TargetForInvocation(caller string, inv *syntax.Node) (Target, bool) {
	if syntax.IsNameof(inv) {
		return Target{}, false
	}
	return r.resolve(caller, TargetMethod, inv,
		r.symbolOf(inv, semantic.SymbolMethod, semantic.SymbolLocalFunction), declarationWithBody)
}

// TargetForObjectCreation resolves the constructor an object creation runs.
// Implicit default constructors have no declaration and yield false.
func (r *Recursion) TargetForObjectCreation(caller string, creation *syntax.Node) (Target, bool) {
	return r.resolve(caller, TargetConstructor, creation,
		r.symbolOf(creation, semantic.SymbolConstructor), declarationWithBody)
}

// TargetForConstructorInitializer resolves the constructor chained with
// this(...), base(...) or super(...).
func (r *Recursion) TargetForConstructorInitializer(caller string, init *syntax.Node) (Target, bool) {
	return r.resolve(caller, TargetConstructorInitializer, init,
		r.symbolOf(init, semantic.SymbolConstructor), declarationWithBody)
}

// TargetForBaseConstructor resolves the parameterless base constructor that a
// constructor (or type) without an explicit initializer chains to.
func (r *Recursion) TargetForBaseConstructor(caller string, from *syntax.Node) (Target, bool) {
	return r.resolve(caller, TargetBaseConstructor, from, func() *semantic.Symbol {
		typ := r.model.Symbol(syntax.EnclosingType(from))
		return typ.Base().DefaultConstructor()
	}, declarationWithBody)
}

// TargetForArgument resolves the parameter an argument binds to.
func (r *Recursion) TargetForArgument(caller string, arg *syntax.Node) (Target, bool) {
	return r.resolve(caller, TargetParameter, arg, func() *semantic.Symbol {
		return semantic.ParameterOf(r.model, arg)
	}, parameterDeclaration)
}

// TargetForGetter resolves the get accessor a property read runs.
func (r *Recursion) TargetForGetter(caller string, n *syntax.Node) (Target, bool) {
	return r.resolve(caller, TargetGetter, n, r.symbolOf(n, semantic.SymbolProperty), getterOf)
}

// TargetForSetter resolves the set (or init) accessor a property write runs.
func (r *Recursion) TargetForSetter(caller string, n *syntax.Node) (Target, bool) {
	return r.resolve(caller, TargetSetter, n, r.symbolOf(n, semantic.SymbolProperty), setterOf)
}

// ResolveTarget resolves what a single reference node executes, without a
// walk. Identifiers naming a callee resolve through their invocation; names
// in write position resolve to the setter.
func ResolveTarget(ctx context.Context, n *syntax.Node, model semantic.Model) (Target, bool) {
	return defaultPools.ResolveTarget(ctx, n, model)
}

// ResolveTarget is the package-level ResolveTarget borrowing from p.
func (p *Pools) ResolveTarget(ctx context.Context, n *syntax.Node, model semantic.Model) (Target, bool) {
	if n == nil || model == nil {
		return Target{}, false
	}
	r := p.BorrowRecursion(ctx, model)
	defer r.Release()

	const caller = "ResolveTarget"
	if inv := calleeInvocation(n); inv != nil {
		n = inv
	}
	switch n.Kind() {
	case syntax.KindInvocation:
		return r.TargetForInvocation(caller, n)
	case syntax.KindObjectCreation, syntax.KindImplicitObjectCreation:
		return r.TargetForObjectCreation(caller, n)
	case syntax.KindConstructorInitializer:
		return r.TargetForConstructorInitializer(caller, n)
	case syntax.KindArgument:
		return r.TargetForArgument(caller, n)
	case syntax.KindConstructor:
		if init := syntax.ConstructorInitializer(n); init != nil {
			return r.TargetForConstructorInitializer(caller, init)
		}
		return r.TargetForBaseConstructor(caller, n)
	case syntax.KindIdentifier, syntax.KindGenericName, syntax.KindMemberAccess:
		name := n
		if n.Kind() == syntax.KindMemberAccess {
			name = n.Field(syntax.RoleName)
		}
		if p := n.Parent(); p != nil && p.Kind() == syntax.KindObjectCreation && p.Field(syntax.RoleType) == n {
			return r.TargetForObjectCreation(caller, p)
		}
		if accessOf(name)&accessRead == 0 {
			return r.TargetForSetter(caller, name)
		}
		return r.TargetForGetter(caller, name)
	}
	if p := n.Parent(); p != nil && p.Kind() == syntax.KindArgumentList {
		return r.TargetForArgument(caller, n)
	}
	return Target{}, false
}

// calleeInvocation returns the invocation n names as its callee.
func calleeInvocation(n *syntax.Node) *syntax.Node {
	p := n.Parent()
	for depth := 0; p != nil && depth < 3; depth++ {
		if p.Kind() == syntax.KindInvocation {
			if _, name := syntax.InvocationParts(p); name == n {
				return p
			}
			if p.Field(syntax.RoleName) == nil && p.Field(syntax.RoleExpression) == n {
				return p
			}
			return nil
		}
		if p.Kind() != syntax.KindMemberAccess && p.Kind() != syntax.KindGenericName {
			return nil
		}
		p = p.Parent()
	}
	return nil
}
