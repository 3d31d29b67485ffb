package semantic

import (
	"github.com/DeusData/codebase-execwalk/internal/fqn"
	"github.com/DeusData/codebase-execwalk/internal/syntax"
)

// Symbol implements Model.
func (x *Index) Symbol(n *syntax.Node) *Symbol {
	if n == nil {
		return nil
	}
	if s, ok := x.declared[n]; ok {
		return s
	}
	switch n.Kind() {
	case syntax.KindIdentifier, syntax.KindGenericName:
		if inv := calleeOf(n); inv != nil {
			return x.invocation(inv)
		}
		p := n.Parent()
		if p != nil && p.Field(syntax.RoleName) == n {
			switch p.Kind() {
			case syntax.KindMemberAccess:
				return x.memberAccess(p)
			case syntax.KindGenericName:
				return x.Symbol(p)
			}
		}
		if syntax.IsDeclarationName(n) {
			return nil
		}
		return x.lookup(n, simpleText(n))
	case syntax.KindMemberAccess:
		if inv := calleeOf(n); inv != nil {
			return x.invocation(inv)
		}
		return x.memberAccess(n)
	case syntax.KindInvocation:
		return x.invocation(n)
	case syntax.KindObjectCreation:
		return x.constructorFor(x.typeByName(syntax.TypeName(n.Field(syntax.RoleType)), n), len(syntax.Arguments(n)))
	case syntax.KindImplicitObjectCreation:
		return x.constructorFor(x.implicitType(n), len(syntax.Arguments(n)))
	case syntax.KindConstructorInitializer:
		return x.chained(n)
	case syntax.KindArgument:
		return ParameterOf(x, n)
	case syntax.KindThis:
		return x.enclosingType(n)
	case syntax.KindBase:
		return x.enclosingType(n).Base()
	case syntax.KindParenthesized:
		return x.Symbol(n.Field(syntax.RoleExpression))
	}
	return nil
}

// ParameterOf returns the parameter an argument binds to. arg is an argument
// node, or for grammars without argument wrappers, the argument expression.
func ParameterOf(m Model, arg *syntax.Node) *Symbol {
	list := arg.Parent()
	if list == nil || list.Kind() != syntax.KindArgumentList || list.Parent() == nil {
		return nil
	}
	callee := m.Symbol(list.Parent())
	if callee == nil {
		return nil
	}
	name := ""
	if arg.Kind() == syntax.KindArgument {
		if id := arg.Field(syntax.RoleName); id != nil && id != arg.Field(syntax.RoleExpression) {
			name = id.Text()
		}
	}
	return callee.ParameterAt(arg.Index(), name)
}

// calleeOf returns the invocation that n names as its callee, or nil.
func calleeOf(n *syntax.Node) *syntax.Node {
	p := n.Parent()
	for depth := 0; p != nil && depth < 3; depth++ {
		if p.Kind() == syntax.KindInvocation {
			_, name := syntax.InvocationParts(p)
			if name == n || (p.Field(syntax.RoleName) == nil && p.Field(syntax.RoleExpression) == n) {
				return p
			}
			return nil
		}
		switch p.Kind() {
		case syntax.KindMemberAccess, syntax.KindGenericName:
			p = p.Parent()
		default:
			return nil
		}
	}
	return nil
}

func simpleText(n *syntax.Node) string {
	if n.Kind() == syntax.KindGenericName {
		return n.Field(syntax.RoleName).Text()
	}
	return n.Text()
}

// lookup resolves an unqualified name: locals and parameters of enclosing
// scopes, then members of enclosing types and their bases, then types.
func (x *Index) lookup(n *syntax.Node, name string) *Symbol {
	for p := n.Parent(); p != nil && p.Kind() != syntax.KindType; p = p.Parent() {
		s := x.scopes[p][name]
		if s == nil {
			continue
		}
		if s.Kind == SymbolLocal && n.Start().Before(s.decls[0].Start()) {
			continue
		}
		return s
	}
	for t := syntax.EnclosingType(n); t != nil; t = syntax.FirstAncestor(t, syntax.KindType) {
		if s := x.findValue(x.declared[t], name); s != nil {
			return s
		}
	}
	return x.typeByName(name, n)
}

// findValue returns the member named name visible in t, searching base types.
// Overloaded method groups are ambiguous and yield nil.
func (x *Index) findValue(t *Symbol, name string) *Symbol {
	for c, depth := t, 0; c != nil && depth < maxBaseDepth; c, depth = c.base, depth+1 {
		switch ms := c.members[name]; len(ms) {
		case 0:
			continue
		case 1:
			return ms[0]
		default:
			return nil
		}
	}
	return nil
}

// methods collects the methods named name visible in t. A derived method
// hides base methods with the same arity.
func (x *Index) methods(t *Symbol, name string) []*Symbol {
	var out []*Symbol
	for c, depth := t, 0; c != nil && depth < maxBaseDepth; c, depth = c.base, depth+1 {
		for _, m := range c.members[name] {
			if m.Kind == SymbolMethod && !hidden(out, m) {
				out = append(out, m)
			}
		}
	}
	return out
}

func hidden(visible []*Symbol, m *Symbol) bool {
	for _, v := range visible {
		if v.minArgs == m.minArgs && v.maxArgs == m.maxArgs {
			return true
		}
	}
	return false
}

func (x *Index) memberAccess(ma *syntax.Node) *Symbol {
	nameNode := ma.Field(syntax.RoleName)
	if nameNode == nil {
		return nil
	}
	name := simpleText(nameNode)
	if t := x.typeOf(ma.Field(syntax.RoleExpression)); t != nil {
		return x.findValue(t, name)
	}
	// Namespace-qualified type reference (Shop.Models.Order).
	return x.typeByName(name, ma)
}

func (x *Index) invocation(inv *syntax.Node) *Symbol {
	if syntax.IsNameof(inv) {
		return nil
	}
	recv, nameNode := syntax.InvocationParts(inv)
	if nameNode == nil {
		return nil
	}
	name := nameNode.Text()
	argc := len(syntax.Arguments(inv))
	if recv != nil {
		return pickByArity(x.methods(x.typeOf(recv), name), argc)
	}
	for p := inv.Parent(); p != nil && p.Kind() != syntax.KindType; p = p.Parent() {
		if s := x.scopes[p][name]; s != nil {
			if s.Kind == SymbolLocalFunction && s.Accepts(argc) {
				return s
			}
			return nil
		}
	}
	for t := syntax.EnclosingType(inv); t != nil; t = syntax.FirstAncestor(t, syntax.KindType) {
		if ms := x.methods(x.declared[t], name); len(ms) > 0 {
			return pickByArity(ms, argc)
		}
	}
	return nil
}

func (x *Index) chained(ci *syntax.Node) *Symbol {
	t := x.enclosingType(ci)
	if ci.Op() == ci.Spec().BaseKeyword {
		t = t.Base()
	}
	return x.constructorFor(t, len(syntax.Arguments(ci)))
}

func (x *Index) constructorFor(t *Symbol, argc int) *Symbol {
	if t == nil {
		return nil
	}
	ctors := t.Constructors()
	if len(ctors) == 0 {
		if argc == 0 {
			return t.implicit
		}
		return nil
	}
	return pickByArity(ctors, argc)
}

// implicitType infers the type constructed by a target-typed `new(...)`
// from the slot receiving it.
func (x *Index) implicitType(n *syntax.Node) *Symbol {
	p := n.Parent()
	if p == nil {
		return nil
	}
	switch p.Kind() {
	case syntax.KindDeclarator:
		if owner := p.Parent(); owner != nil {
			return x.typeByName(syntax.TypeName(owner.Field(syntax.RoleType)), n)
		}
	case syntax.KindAssignment:
		if p.Field(syntax.RoleRight) == n {
			return x.typeOf(p.Field(syntax.RoleLeft))
		}
	case syntax.KindProperty:
		if s := x.declared[p]; s != nil {
			return x.typeByName(s.TypeName, n)
		}
	case syntax.KindReturn, syntax.KindArrowBody:
		if s := x.declared[syntax.EnclosingBody(n)]; s != nil {
			return x.typeByName(s.TypeName, n)
		}
	case syntax.KindArgument:
		if param := ParameterOf(x, p); param != nil {
			return x.typeByName(param.TypeName, n)
		}
	}
	return nil
}

// typeOf returns the static type of expression e when it can be named.
func (x *Index) typeOf(e *syntax.Node) *Symbol {
	if e == nil {
		return nil
	}
	switch e.Kind() {
	case syntax.KindThis:
		return x.enclosingType(e)
	case syntax.KindBase:
		return x.enclosingType(e).Base()
	case syntax.KindParenthesized:
		return x.typeOf(e.Field(syntax.RoleExpression))
	case syntax.KindObjectCreation:
		return x.typeByName(syntax.TypeName(e.Field(syntax.RoleType)), e)
	case syntax.KindImplicitObjectCreation:
		return x.implicitType(e)
	}
	s := x.Symbol(e)
	if s == nil {
		return nil
	}
	switch s.Kind {
	case SymbolType:
		return s
	case SymbolConstructor:
		return s.Container
	}
	return x.typeByName(s.TypeName, e)
}

// typeByName resolves a simple type name as seen from node from: a nested
// type of an enclosing type (or its bases) wins, then the only candidate,
// then the candidate closest in the namespace structure.
func (x *Index) typeByName(name string, from *syntax.Node) *Symbol {
	cands := x.types[name]
	switch len(cands) {
	case 0:
		return nil
	case 1:
		return cands[0]
	}
	for t := syntax.EnclosingType(from); t != nil; t = syntax.FirstAncestor(t, syntax.KindType) {
		for c, depth := x.declared[t], 0; c != nil && depth < maxBaseDepth; c, depth = c.base, depth+1 {
			for _, m := range c.members[name] {
				if m.Kind == SymbolType {
					return m
				}
			}
		}
	}
	qns := make([]string, len(cands))
	for i, c := range cands {
		qns[i] = c.QualifiedName
	}
	if i := fqn.Closest(qns, qualifiedName(x.enclosingType(from))); i >= 0 {
		return cands[i]
	}
	return nil
}
