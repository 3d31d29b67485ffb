// Package walker visits syntax in approximate execution order, following
// constructor chains, invoked methods and property accessors as far as the
// walk's Scope allows.
package walker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DeusData/codebase-execwalk/internal/semantic"
	"github.com/DeusData/codebase-execwalk/internal/syntax"
)

var (
	ErrNilRoot  = errors.New("walker: nil root")
	ErrNilModel = errors.New("walker: nil semantic model")
)

// Caller tags distinguish the walker operations that resolve the same node.
const (
	callerInvocation   = "Invocation"
	callerCreation     = "ObjectCreation"
	callerChain        = "ConstructorInitializer"
	callerBase         = "BaseConstructor"
	callerImplicitBase = "ImplicitBaseConstructor"
	callerProperty     = "Property"
	callerStatic       = "StaticInitialization"
)

// Walker records the nodes of one walk in the order they were visited.
type Walker struct {
	pools    *Pools
	rec      *Recursion
	owned    bool
	scope    Scope
	root     *syntax.Node
	rootType *semantic.Symbol
	visited  []*syntax.Node
	observe  func(*syntax.Node)
	limit    int
	full     bool
}

type walkOptions struct {
	observe func(*syntax.Node)
	limit   int
	pools   *Pools
}

func applyOptions(opts []Option) walkOptions {
	var o walkOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures a walk.
type Option func(*walkOptions)

// WithObserver calls fn for every visited node, in visit order.
func WithObserver(fn func(*syntax.Node)) Option {
	return func(o *walkOptions) { o.observe = fn }
}

// WithLimit stops the walk after n visited nodes. Zero means no limit.
func WithLimit(n int) Option {
	return func(o *walkOptions) { o.limit = n }
}

// WithPools borrows the walk's instances from p instead of the default pools.
func WithPools(p *Pools) Option {
	return func(o *walkOptions) { o.pools = p }
}

// Walk visits root in execution order. The returned Walker must be released.
// A cancelled context aborts the walk with the context's error.
func Walk(ctx context.Context, root *syntax.Node, scope Scope, model semantic.Model, opts ...Option) (*Walker, error) {
	if root == nil {
		return nil, ErrNilRoot
	}
	if model == nil {
		return nil, ErrNilModel
	}
	o := applyOptions(opts)
	if o.pools == nil {
		o.pools = defaultPools
	}
	rec := o.pools.BorrowRecursion(ctx, model)
	w, err := walk(rec, true, root, scope, o)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root.Kind(), err)
	}
	return w, nil
}

// WalkWith walks root sharing rec with an enclosing walk, so that code already
// entered by the enclosing walk is not entered again. rec stays owned by the
// caller.
func WalkWith(rec *Recursion, root *syntax.Node, scope Scope, opts ...Option) (*Walker, error) {
	if root == nil {
		return nil, ErrNilRoot
	}
	if rec == nil || rec.model == nil {
		return nil, ErrNilModel
	}
	o := applyOptions(opts)
	if o.pools == nil {
		o.pools = rec.pools
	}
	return walk(rec, false, root, scope, o)
}

func walk(rec *Recursion, owned bool, root *syntax.Node, scope Scope, o walkOptions) (*Walker, error) {
	w := o.pools.walkers.Borrow()
	w.rec, w.owned, w.scope, w.root = rec, owned, scope, root
	w.observe, w.limit = o.observe, o.limit
	w.rootType = rec.model.Symbol(syntax.EnclosingType(root))
	if w.rootType == nil {
		slog.Debug("walker.unresolved_root", "root", root.String(), "scope", scope.String())
	}

	w.walkRoot(root)
	if err := rec.Err(); err != nil {
		w.Release()
		return nil, err
	}
	return w, nil
}

// Visited returns the visited nodes in visit order. The slice is reused after
// Release.
func (w *Walker) Visited() []*syntax.Node { return w.visited }

// Scope returns the scope the walk runs with.
func (w *Walker) Scope() Scope { return w.scope }

// Recursion returns the resolver shared by this walk.
func (w *Walker) Recursion() *Recursion { return w.rec }

// Truncated reports whether the walk stopped at its visit limit.
func (w *Walker) Truncated() bool { return w.full }

// Release returns the walker (and the Recursion, when the walk owns it) to
// the pools they came from.
func (w *Walker) Release() {
	if w == nil {
		return
	}
	if w.owned && w.rec != nil {
		w.rec.Release()
	}
	w.pools.walkers.Return(w)
}

func (w *Walker) stopped() bool {
	return w.full || w.rec.err != nil
}

func (w *Walker) record(n *syntax.Node) bool {
	if w.stopped() {
		return false
	}
	if w.limit > 0 && len(w.visited) >= w.limit {
		w.full = true
		return false
	}
	w.visited = append(w.visited, n)
	if w.observe != nil {
		w.observe(n)
	}
	return true
}

func (w *Walker) walkRoot(root *syntax.Node) {
	switch root.Kind() {
	case syntax.KindConstructor:
		if !isStatic(root) && w.scope >= ScopeType {
			w.visitStaticInitialization(w.typeDeclarations(root))
		}
		if w.record(root) {
			w.visitConstructor(root, true)
		}
	case syntax.KindLocalFunction:
		w.visitCode(root)
	default:
		w.visit(root)
	}
}

// visit records n and descends in execution order.
func (w *Walker) visit(n *syntax.Node) {
	if n == nil || !w.record(n) {
		return
	}
	switch n.Kind() {
	case syntax.KindType:
		w.visitType(n)
	case syntax.KindConstructor:
		w.visitConstructor(n, true)
	case syntax.KindMethod, syntax.KindAccessor, syntax.KindStaticInitializer, syntax.KindLambda:
		w.visit(n.Field(syntax.RoleBody))
	case syntax.KindLocalFunction, syntax.KindParameterList, syntax.KindBaseList:
		// declarations run when invoked, not where they are written
	case syntax.KindProperty:
		w.visitAccessors(n)
	case syntax.KindDeclarator:
		w.visit(n.Field(syntax.RoleValue))
	case syntax.KindFor:
		w.visitFor(n)
	case syntax.KindAssignment:
		w.visit(n.Field(syntax.RoleRight))
		w.visit(n.Field(syntax.RoleLeft))
	case syntax.KindInvocation:
		w.visitInvocation(n)
	case syntax.KindObjectCreation, syntax.KindImplicitObjectCreation:
		w.visitCreation(n)
	case syntax.KindConstructorInitializer:
		w.visitConstructorInitializer(n, true)
	case syntax.KindIdentifier, syntax.KindGenericName:
		w.visitName(n)
	default:
		w.visitChildren(n)
	}
}

func (w *Walker) visitChildren(n *syntax.Node) {
	for _, ch := range n.Children() {
		if w.stopped() {
			return
		}
		w.visit(ch)
	}
}

// visitCode records a member and visits its body.
func (w *Walker) visitCode(decl *syntax.Node) {
	if decl.Kind() == syntax.KindConstructor {
		if w.record(decl) {
			w.visitConstructor(decl, true)
		}
		return
	}
	if decl.Kind() == syntax.KindLocalFunction {
		if w.record(decl) {
			w.visit(decl.Field(syntax.RoleBody))
		}
		return
	}
	w.visit(decl)
}

// visitType visits initializers in source order, then the static constructor,
// the non-private constructors, the non-private members, and, in a recursive
// walk, nested types.
//
// Static initialization counts as done for the rest of the walk, so creating
// the type again only runs its instance initializers and constructor.
func (w *Walker) visitType(n *syntax.Node) {
	members := n.Children()
	static := w.rec.Once(callerStatic, TargetStaticInitialization, w.typeDeclarations(n)[0])
	initialized := map[*syntax.Node]bool{}
	for _, m := range members {
		switch m.Kind() {
		case syntax.KindField, syntax.KindProperty:
			if static || !isStatic(m) {
				initialized[m] = w.visitInitializer(m)
			}
		case syntax.KindBlock:
			w.visit(m)
		}
	}
	if static {
		for _, m := range members {
			if m.Kind() == syntax.KindStaticInitializer || (m.Kind() == syntax.KindConstructor && isStatic(m)) {
				w.visit(m)
			}
		}
	}
	for _, m := range members {
		if m.Kind() == syntax.KindConstructor && !isStatic(m) && !isPrivate(m) && w.record(m) {
			w.visitConstructor(m, false)
		}
	}
	for _, m := range members {
		switch {
		case m.Kind() != syntax.KindMethod && m.Kind() != syntax.KindProperty, isPrivate(m):
		case initialized[m]:
			w.visitAccessors(m)
		default:
			w.visit(m)
		}
	}
	if w.scope == ScopeRecursive {
		for _, m := range members {
			if m.Kind() == syntax.KindType {
				w.visit(m)
			}
		}
	}
}

// visitInitializer visits the initial values of a field or property. It
// reports whether it recorded a property.
func (w *Walker) visitInitializer(m *syntax.Node) bool {
	switch m.Kind() {
	case syntax.KindField:
		for _, d := range m.Children() {
			if d.Kind() == syntax.KindDeclarator && d.Field(syntax.RoleValue) != nil {
				w.visit(d)
			}
		}
	case syntax.KindProperty:
		if v := propertyInitializer(m); v != nil && w.record(m) {
			w.visit(v)
			return true
		}
	}
	return false
}

func (w *Walker) visitAccessors(prop *syntax.Node) {
	for _, ch := range prop.Children() {
		switch ch.Kind() {
		case syntax.KindAccessor, syntax.KindArrowBody:
			w.visit(ch)
		}
	}
}

// visitInitializers visits instance (or static) field and property
// initializers of every declaration of a type in source order. Java instance
// initializer blocks run with the instance initializers and static blocks
// with the static ones.
func (w *Walker) visitInitializers(decls []*syntax.Node, static bool) {
	for _, decl := range decls {
		for _, m := range decl.Children() {
			switch m.Kind() {
			case syntax.KindField, syntax.KindProperty:
				if isStatic(m) == static {
					w.visitInitializer(m)
				}
			case syntax.KindBlock:
				if !static {
					w.visit(m)
				}
			case syntax.KindStaticInitializer:
				if static {
					w.visit(m)
				}
			}
		}
	}
}

// visitStaticInitialization visits the static initializers and the static
// constructor of a type, once per walk.
func (w *Walker) visitStaticInitialization(decls []*syntax.Node) {
	if len(decls) == 0 || !w.rec.Once(callerStatic, TargetStaticInitialization, decls[0]) {
		return
	}
	w.visitInitializers(decls, true)
	for _, decl := range decls {
		for _, m := range decl.Children() {
			if m.Kind() == syntax.KindConstructor && isStatic(m) {
				w.visit(m)
			}
		}
	}
}

// visitConstructor visits a constructor that has already been recorded.
// withInitializers is false when the caller already ran the instance
// initializers of the type.
func (w *Walker) visitConstructor(ctor *syntax.Node, withInitializers bool) {
	body := ctor.Field(syntax.RoleBody)
	if isStatic(ctor) {
		w.visit(body)
		return
	}
	spec := ctor.Spec()
	init := syntax.ConstructorInitializer(ctor)
	chainsThis := init != nil && init.Op() == spec.ThisKeyword
	runInitializers := withInitializers && !chainsThis

	chain := func() {
		switch {
		case init != nil:
			if w.record(init) {
				w.visitConstructorInitializer(init, withInitializers)
			}
		case w.scope != ScopeMember:
			w.visitBaseChain(ctor)
		}
	}
	if spec.InitializersBeforeBaseConstructor {
		if runInitializers {
			w.visitInitializers(w.typeDeclarations(ctor), false)
		}
		chain()
	} else {
		chain()
		if runInitializers {
			w.visitInitializers(w.typeDeclarations(ctor), false)
		}
	}

	if body == nil || !w.record(body) {
		return
	}
	for _, stmt := range body.Children() {
		if init != nil && syntax.Contains(stmt, init) {
			continue
		}
		if w.stopped() {
			return
		}
		w.visit(stmt)
	}
}

// visitConstructorInitializer visits the arguments of this(...)/base(...) and
// then the chained constructor.
func (w *Walker) visitConstructorInitializer(init *syntax.Node, withInitializers bool) {
	w.visit(init.Field(syntax.RoleArguments))
	if w.scope == ScopeMember {
		return
	}
	t, ok := w.rec.TargetForConstructorInitializer(callerChain, init)
	if !ok || !w.follows(t.Symbol, nil) {
		return
	}
	if init.Op() != init.Spec().ThisKeyword {
		withInitializers = true
	}
	if w.record(t.Declaration) {
		w.visitConstructor(t.Declaration, withInitializers)
	}
}

// visitBaseChain visits the parameterless base constructor that from (a
// constructor or type declaration) implicitly chains to. Implicit base
// constructors are walked through to the first declared one.
func (w *Walker) visitBaseChain(from *syntax.Node) {
	if w.scope == ScopeMember {
		return
	}
	if t, ok := w.rec.TargetForBaseConstructor(callerBase, from); ok {
		if w.follows(t.Symbol, nil) && w.record(t.Declaration) {
			w.visitConstructor(t.Declaration, true)
		}
		return
	}
	base := w.rec.model.Symbol(syntax.EnclosingType(from)).Base()
	ctor := base.DefaultConstructor()
	if !ctor.IsImplicit() || !w.follows(ctor, nil) {
		return
	}
	decls := w.rec.model.Declarations(base)
	if len(decls) == 0 || !w.rec.Once(callerImplicitBase, TargetBaseConstructor, decls[0]) {
		return
	}
	if decls[0].Spec().InitializersBeforeBaseConstructor {
		w.visitInitializers(decls, false)
		w.visitBaseChain(decls[0])
	} else {
		w.visitBaseChain(decls[0])
		w.visitInitializers(decls, false)
	}
}

// visitFor visits the initializers, condition, body and updates of a for loop
// in that order.
func (w *Walker) visitFor(n *syntax.Node) {
	init, cond, body, update := syntax.ForParts(n)
	for _, ch := range init {
		w.visit(ch)
	}
	w.visit(cond)
	w.visit(body)
	for _, ch := range update {
		w.visit(ch)
	}
}

func (w *Walker) visitInvocation(inv *syntax.Node) {
	if syntax.IsNameof(inv) {
		return
	}
	recv, _ := syntax.InvocationParts(inv)
	w.visit(inv.Field(syntax.RoleExpression))
	if inv.Field(syntax.RoleName) != nil && inv.Field(syntax.RoleName) != inv.Field(syntax.RoleExpression) {
		w.record(inv.Field(syntax.RoleName))
	}
	w.visit(inv.Field(syntax.RoleArguments))
	if w.scope == ScopeMember {
		return
	}
	if t, ok := w.rec.TargetForInvocation(callerInvocation, inv); ok && w.follows(t.Symbol, recv) {
		w.visitCode(t.Declaration)
	}
}

// visitCreation runs the constructed type's initializers, the arguments, the
// constructor body and the object initializer, when the scope allows entering
// the type.
func (w *Walker) visitCreation(n *syntax.Node) {
	args := n.Field(syntax.RoleArguments)
	objInit := n.Field(syntax.RoleInitializer)
	if w.scope == ScopeMember {
		w.visit(args)
		w.visit(objInit)
		return
	}
	ctor := w.rec.model.Symbol(n)
	var typ *semantic.Symbol
	if ctor != nil {
		typ = ctor.Container
	}
	enter := typ != nil && (w.scope == ScopeRecursive || typ == w.rootType)
	if !enter {
		w.visit(args)
		w.visit(objInit)
		return
	}
	decls := w.rec.model.Declarations(typ)
	if w.scope >= ScopeType {
		w.visitStaticInitialization(decls)
	}
	if w.rec.Once(callerCreation, TargetInitializers, n) {
		w.visitInitializers(decls, false)
	}
	w.visit(args)
	if t, ok := w.rec.TargetForObjectCreation(callerCreation, n); ok {
		if w.record(t.Declaration) {
			w.visitConstructor(t.Declaration, false)
		}
	} else if ctor.IsImplicit() && len(decls) > 0 {
		w.visitBaseChain(decls[0])
	}
	w.visit(objInit)
}

// visitName follows property accessors for an identifier in read, write or
// read-write position.
func (w *Walker) visitName(n *syntax.Node) {
	if w.scope == ScopeMember || syntax.IsDeclarationName(n) || syntax.IsInsideNameof(n) {
		return
	}
	if n.Kind() == syntax.KindGenericName {
		return
	}
	var recv *syntax.Node
	if p := n.Parent(); p != nil && p.Kind() == syntax.KindMemberAccess && p.Field(syntax.RoleName) == n {
		recv = p.Field(syntax.RoleExpression)
	}
	mode := accessOf(n)
	if mode&accessRead != 0 {
		if t, ok := w.rec.TargetForGetter(callerProperty, n); ok && w.follows(t.Symbol, recv) {
			w.visit(t.Declaration)
		}
	}
	if mode&accessWrite != 0 {
		if t, ok := w.rec.TargetForSetter(callerProperty, n); ok && w.follows(t.Symbol, recv) {
			w.visit(t.Declaration)
		}
	}
}

// follows applies the scope filter to a resolved member reached through
// receiver (nil for an implicit this).
func (w *Walker) follows(sym *semantic.Symbol, receiver *syntax.Node) bool {
	switch w.scope {
	case ScopeMember:
		return false
	case ScopeRecursive:
		return true
	}
	owner := sym.Container
	if w.rootType == nil || owner == nil {
		return false
	}
	if sym.Static {
		if w.scope < ScopeType {
			return false
		}
		return owner.IsAssignableTo(w.rootType)
	}
	return isSelf(receiver) && w.rootType.IsAssignableTo(owner)
}

func isSelf(receiver *syntax.Node) bool {
	for receiver != nil && receiver.Kind() == syntax.KindParenthesized {
		receiver = receiver.Field(syntax.RoleExpression)
	}
	if receiver == nil {
		return true
	}
	switch receiver.Kind() {
	case syntax.KindThis, syntax.KindBase:
		return true
	}
	return false
}

// typeDeclarations returns every declaration of the type enclosing n, or
// just the enclosing declaration when the type does not resolve.
func (w *Walker) typeDeclarations(n *syntax.Node) []*syntax.Node {
	decl := syntax.EnclosingType(n)
	if decl == nil {
		return nil
	}
	if typ := w.rec.model.Symbol(decl); typ != nil {
		if decls := w.rec.model.Declarations(typ); len(decls) > 0 {
			return decls
		}
	}
	return []*syntax.Node{decl}
}

func isStatic(n *syntax.Node) bool {
	if n.Kind() == syntax.KindStaticInitializer {
		return true
	}
	spec := n.Spec()
	if spec == nil {
		return false
	}
	if n.HasModifier(spec.StaticKeyword) {
		return true
	}
	if len(spec.ConstKeywords) == 1 && n.HasModifier(spec.ConstKeywords[0]) {
		return true
	}
	return false
}

func isPrivate(n *syntax.Node) bool {
	spec := n.Spec()
	if spec == nil {
		return false
	}
	if n.HasModifier(spec.PrivateKeyword) {
		return true
	}
	if !spec.DefaultMemberPrivate {
		return false
	}
	if t := syntax.EnclosingType(n.Parent()); t != nil && t.RawKind() == "interface_declaration" {
		return false
	}
	for _, m := range [...]string{"public", "protected", "internal"} {
		if n.HasModifier(m) {
			return false
		}
	}
	return true
}

// propertyInitializer returns the `= value` of an auto-property.
func propertyInitializer(prop *syntax.Node) *syntax.Node {
	v := prop.Field(syntax.RoleValue)
	if v == nil || v.Kind() == syntax.KindArrowBody {
		return nil
	}
	return v
}

type access uint8

const (
	accessRead access = 1 << iota
	accessWrite
)

// Reads reports whether the value named by n is read where n appears.
func Reads(n *syntax.Node) bool { return accessOf(n)&accessRead != 0 }

// Writes reports whether n is assigned where it appears, including compound
// assignment, increment and out/ref arguments.
func Writes(n *syntax.Node) bool { return accessOf(n)&accessWrite != 0 }

// accessOf classifies whether a name is read, written, or both.
func accessOf(n *syntax.Node) access {
	site := n
	if p := n.Parent(); p != nil && p.Kind() == syntax.KindMemberAccess && p.Field(syntax.RoleName) == n {
		site = p
	}
	p := site.Parent()
	for p != nil && p.Kind() == syntax.KindParenthesized {
		site, p = p, p.Parent()
	}
	if p == nil {
		return accessRead
	}
	switch p.Kind() {
	case syntax.KindAssignment:
		if p.Field(syntax.RoleLeft) == site {
			if p.Op() == "=" {
				return accessWrite
			}
			return accessRead | accessWrite
		}
	case syntax.KindPrefixUnary, syntax.KindPostfixUnary:
		if p.Op() == "++" || p.Op() == "--" {
			return accessRead | accessWrite
		}
	case syntax.KindArgument:
		switch p.Op() {
		case "out":
			return accessWrite
		case "ref":
			return accessRead | accessWrite
		}
	}
	return accessRead
}
