package semantic

import (
	"github.com/DeusData/codebase-execwalk/internal/fqn"
	"github.com/DeusData/codebase-execwalk/internal/syntax"
)

// maxBaseDepth bounds walks up inheritance chains so malformed (cyclic)
// hierarchies terminate.
const maxBaseDepth = 64

// Index is a Model built from a fixed set of parsed files. It is immutable
// after NewIndex returns and safe for concurrent use.
type Index struct {
	// types maps a simple type name to every type declaring it
	types map[string][]*Symbol
	// byQN maps qualifiedName -> type; partial declarations share an entry
	byQN map[string]*Symbol
	// declared maps declaration nodes and their name identifiers to symbols
	declared map[*syntax.Node]*Symbol
	// scopes maps a scope node to the locals, parameters and local
	// functions declared directly in it
	scopes  map[*syntax.Node]map[string]*Symbol
	symbols []*Symbol
}

// NewIndex declares every symbol of files and resolves base types.
func NewIndex(files ...*syntax.File) *Index {
	x := &Index{
		types:    make(map[string][]*Symbol),
		byQN:     make(map[string]*Symbol),
		declared: make(map[*syntax.Node]*Symbol),
		scopes:   make(map[*syntax.Node]map[string]*Symbol),
	}
	for _, f := range files {
		if f != nil && f.Root != nil {
			x.declareTypes(f.Root, "", nil)
		}
	}
	x.resolveBases()

	var inferred []*Symbol
	for _, f := range files {
		if f != nil && f.Root != nil {
			inferred = x.declareLocals(f.Root, inferred)
		}
	}
	for _, s := range inferred {
		s.TypeName = ""
		if decl := s.decls[0]; decl.Kind() == syntax.KindDeclarator {
			if t := x.typeOf(decl.Field(syntax.RoleValue)); t != nil {
				s.TypeName = t.Name
			}
		}
	}
	return x
}

// Symbols returns the declared types and members in declaration order.
func (x *Index) Symbols() []*Symbol {
	return x.symbols
}

// Type returns the type with the given qualified name, or the only type with
// that simple name.
func (x *Index) Type(name string) *Symbol {
	if t := x.byQN[name]; t != nil {
		return t
	}
	if cands := x.types[name]; len(cands) == 1 {
		return cands[0]
	}
	return nil
}

// Declarations implements Model.
func (x *Index) Declarations(sym *Symbol) []*syntax.Node {
	if sym == nil {
		return nil
	}
	return sym.decls
}

func (x *Index) declareTypes(n *syntax.Node, ns string, outer *Symbol) {
	for _, ch := range n.Children() {
		switch {
		case ch.Kind() == syntax.KindNamespace:
			name := fqn.Join(ns, ch.Field(syntax.RoleName).Text())
			if ch.RawKind() == "file_scoped_namespace_declaration" {
				ns = name
			}
			x.declareTypes(ch, name, outer)
		case ch.RawKind() == "package_declaration":
			if len(ch.Children()) > 0 {
				ns = ch.Children()[0].Text()
			}
		case ch.Kind() == syntax.KindType:
			x.declareType(ch, ns, outer)
		case outer == nil:
			x.declareTypes(ch, ns, nil)
		}
	}
}

func (x *Index) declareType(n *syntax.Node, ns string, outer *Symbol) {
	id := n.Field(syntax.RoleName)
	if id == nil {
		return
	}
	name := id.Text()
	qn := fqn.Join(ns, name)
	if outer != nil {
		qn = fqn.Join(outer.QualifiedName, name)
	}
	sym := x.byQN[qn]
	if sym == nil {
		sym = &Symbol{
			Kind:          SymbolType,
			Name:          name,
			QualifiedName: qn,
			Container:     outer,
			Static:        n.HasModifier(n.Spec().StaticKeyword),
			Private:       isPrivate(n, outer),
			members:       make(map[string][]*Symbol),
			isClass:       isClassLike(n),
		}
		x.byQN[qn] = sym
		x.types[name] = append(x.types[name], sym)
		x.symbols = append(x.symbols, sym)
		if outer != nil {
			outer.members[name] = append(outer.members[name], sym)
		}
	}
	sym.decls = append(sym.decls, n)
	x.declared[n] = sym
	x.declared[id] = sym

	for _, ch := range n.Children() {
		switch ch.Kind() {
		case syntax.KindBaseList:
			if ch.RawKind() == "super_interfaces" {
				continue
			}
			for _, b := range ch.Children() {
				if b.Kind() == syntax.KindOther && len(b.Children()) > 0 {
					b = b.Children()[0]
				}
				if bn := syntax.TypeName(b); bn != "" {
					sym.baseNames = append(sym.baseNames, bn)
				}
			}
		case syntax.KindField:
			x.declareField(sym, ch)
		case syntax.KindProperty:
			x.declareProperty(sym, ch)
		case syntax.KindConstructor:
			x.declareConstructor(sym, ch)
		case syntax.KindMethod:
			x.declareMethod(sym, ch)
		case syntax.KindType:
			x.declareType(ch, ns, sym)
		}
	}
}

func (x *Index) addMember(t, s *Symbol, decl, id *syntax.Node) {
	s.Container = t
	s.decls = []*syntax.Node{decl}
	t.members[s.Name] = append(t.members[s.Name], s)
	x.declared[decl] = s
	if id != nil {
		x.declared[id] = s
	}
	x.symbols = append(x.symbols, s)
}

func (x *Index) declareField(t *Symbol, field *syntax.Node) {
	typeName := syntax.TypeName(field.Field(syntax.RoleType))
	constant := isConst(field)
	static := constant || field.HasModifier(field.Spec().StaticKeyword)
	private := isPrivate(field, t)
	for _, d := range field.Children() {
		if d.Kind() != syntax.KindDeclarator {
			continue
		}
		id := d.Field(syntax.RoleName)
		if id == nil {
			continue
		}
		x.addMember(t, &Symbol{
			Kind:          SymbolField,
			Name:          id.Text(),
			QualifiedName: fqn.Join(t.QualifiedName, id.Text()),
			Static:        static,
			Private:       private,
			Const:         constant,
			TypeName:      typeName,
		}, d, id)
	}
}

func (x *Index) declareProperty(t *Symbol, prop *syntax.Node) {
	id := prop.Field(syntax.RoleName)
	if id == nil {
		return
	}
	s := &Symbol{
		Kind:          SymbolProperty,
		Name:          id.Text(),
		QualifiedName: fqn.Join(t.QualifiedName, id.Text()),
		Static:        prop.HasModifier(prop.Spec().StaticKeyword),
		Private:       isPrivate(prop, t),
		TypeName:      syntax.TypeName(prop.Field(syntax.RoleType)),
	}
	x.addMember(t, s, prop, id)
	for _, acc := range prop.Children() {
		if acc.Kind() == syntax.KindAccessor {
			x.declared[acc] = s
		}
	}
}

func (x *Index) declareConstructor(t *Symbol, ctor *syntax.Node) {
	static := ctor.HasModifier(ctor.Spec().StaticKeyword)
	name := ctorName
	if static {
		name = staticCtorName
	}
	s := &Symbol{
		Kind:          SymbolConstructor,
		Name:          name,
		QualifiedName: fqn.Join(t.QualifiedName, name),
		Static:        static,
		Private:       isPrivate(ctor, t),
		TypeName:      t.Name,
	}
	x.addMember(t, s, ctor, ctor.Field(syntax.RoleName))
	x.declareParameters(s, ctor, t)
}

func (x *Index) declareMethod(t *Symbol, m *syntax.Node) {
	id := m.Field(syntax.RoleName)
	if id == nil {
		return
	}
	s := &Symbol{
		Kind:          SymbolMethod,
		Name:          id.Text(),
		QualifiedName: fqn.Join(t.QualifiedName, id.Text()),
		Static:        m.HasModifier(m.Spec().StaticKeyword),
		Private:       isPrivate(m, t),
		TypeName:      syntax.TypeName(m.Field(syntax.RoleType)),
	}
	x.addMember(t, s, m, id)
	x.declareParameters(s, m, t)
}

// declareParameters registers the parameters of owner (a method,
// constructor, local function or lambda) in the scope of its node. owner is
// nil for lambdas, which have no symbol.
func (x *Index) declareParameters(owner *Symbol, node *syntax.Node, container *Symbol) {
	list := node.Field(syntax.RoleParameters)
	if list == nil {
		for _, ch := range node.Children() {
			if ch.Kind() == syntax.KindParameterList {
				list = ch
				break
			}
		}
	}
	if list == nil {
		return
	}
	var params []*syntax.Node
	switch list.Kind() {
	case syntax.KindIdentifier:
		params = []*syntax.Node{list}
	default:
		params = list.Children()
	}

	prefix := ""
	if container != nil {
		prefix = container.QualifiedName
	}
	if owner != nil {
		prefix = owner.QualifiedName
	}
	minArgs, maxArgs, ordinal := 0, 0, 0
	for _, p := range params {
		id := p
		if p.Kind() != syntax.KindIdentifier {
			id = p.Field(syntax.RoleName)
		}
		if id == nil || id.Kind() != syntax.KindIdentifier {
			continue
		}
		ps := &Symbol{
			Kind:          SymbolParameter,
			Name:          id.Text(),
			QualifiedName: fqn.Join(prefix, id.Text()),
			Container:     container,
			Ordinal:       ordinal,
			decls:         []*syntax.Node{p},
		}
		if p != id {
			ps.TypeName = syntax.TypeName(p.Field(syntax.RoleType))
		}
		x.declared[p] = ps
		x.declared[id] = ps
		x.declare(node, ps)
		ordinal++
		if owner != nil {
			owner.params = append(owner.params, ps)
		}

		switch {
		case p.RawKind() == "spread_parameter" || p.HasModifier("params") || p.HasToken("params"):
			maxArgs = -1
		case p.HasToken("="):
			if maxArgs >= 0 {
				maxArgs++
			}
		default:
			minArgs++
			if maxArgs >= 0 {
				maxArgs++
			}
		}
	}
	if owner != nil {
		owner.minArgs, owner.maxArgs = minArgs, maxArgs
	}
}

func (x *Index) declare(scope *syntax.Node, s *Symbol) {
	names := x.scopes[scope]
	if names == nil {
		names = make(map[string]*Symbol)
		x.scopes[scope] = names
	}
	if _, dup := names[s.Name]; !dup {
		names[s.Name] = s
	}
}

// declareLocals registers locals, lambda parameters and local functions.
// Locals declared with an inferred type are appended to inferred.
func (x *Index) declareLocals(root *syntax.Node, inferred []*Symbol) []*Symbol {
	local := func(id, decl, scope, typeNode *syntax.Node) *Symbol {
		container := x.enclosingType(decl)
		s := &Symbol{
			Kind:          SymbolLocal,
			Name:          id.Text(),
			QualifiedName: fqn.Join(qualifiedName(container), id.Text()),
			Container:     container,
			TypeName:      syntax.TypeName(typeNode),
			decls:         []*syntax.Node{decl},
		}
		x.declared[decl] = s
		x.declared[id] = s
		x.declare(scope, s)
		if s.TypeName == "var" {
			inferred = append(inferred, s)
		}
		return s
	}

	syntax.Inspect(root, func(n *syntax.Node) bool {
		switch n.Kind() {
		case syntax.KindDeclarator:
			owner := n.Parent()
			id := n.Field(syntax.RoleName)
			if owner == nil || owner.Kind() == syntax.KindField || id == nil {
				return true
			}
			scope := owner
			if owner.Kind() == syntax.KindLocalDeclaration && owner.Parent() != nil {
				scope = owner.Parent()
			}
			local(id, n, scope, owner.Field(syntax.RoleType))
		case syntax.KindForEach:
			id := n.Field(syntax.RoleLeft)
			if id == nil {
				id = n.Field(syntax.RoleName)
			}
			if id != nil && id.Kind() == syntax.KindIdentifier {
				local(id, id, n, n.Field(syntax.RoleType))
			}
		case syntax.KindLocalFunction:
			id := n.Field(syntax.RoleName)
			if id == nil || n.Parent() == nil {
				return true
			}
			container := x.enclosingType(n)
			s := &Symbol{
				Kind:          SymbolLocalFunction,
				Name:          id.Text(),
				QualifiedName: fqn.Join(qualifiedName(container), id.Text()),
				Container:     container,
				TypeName:      syntax.TypeName(n.Field(syntax.RoleType)),
				decls:         []*syntax.Node{n},
			}
			x.declared[n] = s
			x.declared[id] = s
			x.declare(n.Parent(), s)
			x.declareParameters(s, n, container)
		case syntax.KindLambda:
			x.declareParameters(nil, n, x.enclosingType(n))
		case syntax.KindOther:
			switch n.RawKind() {
			case "catch_declaration", "catch_formal_parameter":
				if id := n.Field(syntax.RoleName); id != nil {
					if scope := syntax.FirstAncestor(n, syntax.KindCatch); scope != nil {
						local(id, n, scope, n.Field(syntax.RoleType))
					}
				}
			case "declaration_expression":
				if id := n.Field(syntax.RoleName); id != nil {
					if scope := statementScope(n); scope != nil {
						local(id, n, scope, n.Field(syntax.RoleType))
					}
				}
			}
		}
		return true
	})
	return inferred
}

// statementScope returns the statement list an expression-level declaration
// leaks into.
func statementScope(n *syntax.Node) *syntax.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case syntax.KindBlock, syntax.KindSwitchSection, syntax.KindFor, syntax.KindForEach:
			return p
		}
		if p.Kind().IsCodeBody() {
			return p
		}
	}
	return nil
}

// resolveBases binds base type names and synthesizes implicit constructors.
func (x *Index) resolveBases() {
	for _, s := range x.symbols {
		if s.Kind != SymbolType {
			continue
		}
		for _, bn := range s.baseNames {
			bt := x.typeByName(bn, s.decls[0])
			if bt == nil || bt == s || !bt.isClass || bt.IsAssignableTo(s) {
				continue
			}
			s.base = bt
			break
		}
		if s.isClass && len(s.Constructors()) == 0 {
			s.implicit = &Symbol{
				Kind:          SymbolConstructor,
				Name:          ctorName,
				QualifiedName: fqn.Join(s.QualifiedName, ctorName),
				Container:     s,
				TypeName:      s.Name,
			}
		}
	}
}

func (x *Index) enclosingType(n *syntax.Node) *Symbol {
	t := syntax.EnclosingType(n)
	if t == nil {
		return nil
	}
	return x.declared[t]
}

func qualifiedName(s *Symbol) string {
	if s == nil {
		return ""
	}
	return s.QualifiedName
}

func isClassLike(n *syntax.Node) bool {
	switch n.RawKind() {
	case "class_declaration", "struct_declaration", "record_declaration", "record_struct_declaration":
		return true
	}
	return false
}

func isConst(n *syntax.Node) bool {
	kws := n.Spec().ConstKeywords
	if len(kws) == 0 {
		return false
	}
	for _, kw := range kws {
		if !n.HasModifier(kw) {
			return false
		}
	}
	return true
}

func isPrivate(n *syntax.Node, container *Symbol) bool {
	spec := n.Spec()
	if n.HasModifier(spec.PrivateKeyword) {
		return true
	}
	if !spec.DefaultMemberPrivate || container == nil {
		return false
	}
	if len(container.decls) > 0 && container.decls[0].RawKind() == "interface_declaration" {
		return false
	}
	for _, m := range [...]string{"public", "protected", "internal"} {
		if n.HasModifier(m) {
			return false
		}
	}
	return true
}
