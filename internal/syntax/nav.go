package syntax

import "strings"

// FirstAncestor returns the nearest strict ancestor of n whose kind is one of
// kinds, or nil.
func FirstAncestor(n *Node, kinds ...Kind) *Node {
	if n == nil {
		return nil
	}
	for p := n.parent; p != nil; p = p.parent {
		for _, k := range kinds {
			if p.kind == k {
				return p
			}
		}
	}
	return nil
}

// Contains reports whether other is n or lies inside n.
func Contains(n, other *Node) bool {
	if n == nil || other == nil {
		return false
	}
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// Depth returns the number of ancestors of n.
func Depth(n *Node) int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// CommonAncestor returns the lowest node containing both a and b, or nil
// when they live in different trees.
func CommonAncestor(a, b *Node) *Node {
	if a == nil || b == nil {
		return nil
	}
	da, db := Depth(a), Depth(b)
	for da > db {
		a = a.parent
		da--
	}
	for db > da {
		b = b.parent
		db--
	}
	for a != b {
		a, b = a.parent, b.parent
		if a == nil || b == nil {
			return nil
		}
	}
	return a
}

// ChildToward returns the child of ancestor on the path to n.
func ChildToward(ancestor, n *Node) *Node {
	for p := n; p != nil; p = p.parent {
		if p.parent == ancestor {
			return p
		}
	}
	return nil
}

// Find returns every node under root (root included) for which pred holds,
// in source pre-order.
func Find(root *Node, pred func(*Node) bool) []*Node {
	var out []*Node
	Inspect(root, func(n *Node) bool {
		if pred(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Inspect traverses the tree in depth-first source order. Returning false
// skips the node's children.
func Inspect(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, ch := range n.children {
		Inspect(ch, fn)
	}
}

// NodeAt returns the deepest node whose span contains pos.
func NodeAt(root *Node, pos Position) *Node {
	if root == nil || pos.Before(root.start) || !pos.Before(root.end) {
		return nil
	}
	for _, ch := range root.children {
		if hit := NodeAt(ch, pos); hit != nil {
			return hit
		}
	}
	return root
}

// IsDeclarationName reports whether id is the declared name of its parent
// (a type, member, local, parameter, or label) rather than a reference.
func IsDeclarationName(id *Node) bool {
	p := id.parent
	if p == nil || p.Field(RoleName) != id {
		if p != nil && p.kind == KindForEach && p.Field(RoleLeft) == id {
			return true
		}
		return false
	}
	switch p.kind {
	case KindMemberAccess, KindInvocation, KindGenericName, KindArgument, KindGoto:
		return false
	}
	return true
}

// InvocationParts splits a call into its receiver expression (nil for an
// unqualified call) and the identifier naming the callee.
func InvocationParts(inv *Node) (receiver, name *Node) {
	if name = inv.Field(RoleName); name != nil {
		return inv.Field(RoleExpression), name
	}
	callee := inv.Field(RoleExpression)
	if callee == nil {
		return nil, nil
	}
	switch callee.kind {
	case KindMemberAccess:
		return callee.Field(RoleExpression), simpleName(callee.Field(RoleName))
	case KindIdentifier:
		return nil, callee
	case KindGenericName:
		return nil, callee.Field(RoleName)
	}
	return callee, nil
}

func simpleName(n *Node) *Node {
	if n != nil && n.kind == KindGenericName {
		return n.Field(RoleName)
	}
	return n
}

// Arguments returns the argument nodes of a call, object creation, or
// constructor initializer. For grammars without argument wrappers these are
// the expressions themselves.
func Arguments(call *Node) []*Node {
	list := call.Field(RoleArguments)
	if list == nil {
		return nil
	}
	return list.children
}

// ArgumentExpression returns the value expression of an argument node.
func ArgumentExpression(arg *Node) *Node {
	if arg.kind == KindArgument {
		return arg.Field(RoleExpression)
	}
	return arg
}

// ConstructorInitializer returns the chaining call of a constructor:
// the `: this(...)`/`: base(...)` clause or a leading `this(...)`/`super(...)`
// statement.
func ConstructorInitializer(ctor *Node) *Node {
	if init := ctor.Field(RoleInitializer); init != nil && init.kind == KindConstructorInitializer {
		return init
	}
	body := ctor.Field(RoleBody)
	if body == nil || len(body.children) == 0 {
		return nil
	}
	first := body.children[0]
	if first.kind == KindExpressionStatement {
		first = first.Field(RoleExpression)
	}
	if first != nil && first.kind == KindConstructorInitializer {
		return first
	}
	return nil
}

// TypeName returns the simple name written by a type reference: the last
// segment of a qualified name, without type arguments or nullability.
func TypeName(n *Node) string {
	if n == nil {
		return ""
	}
	text := n.Text()
	if i := strings.IndexByte(text, '<'); i >= 0 {
		text = text[:i]
	}
	for len(text) > 0 && (text[len(text)-1] == '?' || text[len(text)-1] == ']' || text[len(text)-1] == '[') {
		text = text[:len(text)-1]
	}
	if i := strings.LastIndexByte(text, '.'); i >= 0 {
		text = text[i+1:]
	}
	return text
}

// EnclosingType returns the nearest type declaration containing n, or n
// itself when it is one.
func EnclosingType(n *Node) *Node {
	if n == nil {
		return nil
	}
	if n.kind == KindType {
		return n
	}
	return FirstAncestor(n, KindType)
}

// EnclosingBody returns the nearest code body (member, accessor, local
// function, lambda, or initialized declarator) containing n.
func EnclosingBody(n *Node) *Node {
	for p := n.parent; p != nil; p = p.parent {
		if p.kind.IsCodeBody() {
			if p.kind == KindDeclarator && (p.parent == nil || p.parent.kind != KindField) {
				continue
			}
			return p
		}
	}
	return nil
}

// IsInsideNameof reports whether n is an operand of a nameof(...) expression,
// which names a symbol without executing it.
func IsInsideNameof(n *Node) bool {
	spec := n.Spec()
	if spec == nil || spec.NameofFunction == "" {
		return false
	}
	for p := n.parent; p != nil; p = p.parent {
		if p.kind == KindInvocation && IsNameof(p) {
			return true
		}
		if p.kind.IsStatement() || p.kind.IsCodeBody() {
			return false
		}
	}
	return false
}

// IsNameof reports whether inv is a nameof(...) expression.
func IsNameof(inv *Node) bool {
	spec := inv.Spec()
	if spec == nil || spec.NameofFunction == "" {
		return false
	}
	recv, name := InvocationParts(inv)
	return recv == nil && name != nil && name.Text() == spec.NameofFunction
}

// ForParts splits a for loop into its initializers, condition, body and
// update expressions. Grammars name only the first of several initializers or
// updates, so the rest are classified by position.
func ForParts(n *Node) (init []*Node, cond, body *Node, update []*Node) {
	cond, body = n.Field(RoleCondition), n.Field(RoleBody)
	first := n.Field(RoleUpdate)
	for _, ch := range n.children {
		switch {
		case ch == cond || ch == body:
		case first != nil && ch.index >= first.index:
			update = append(update, ch)
		default:
			init = append(init, ch)
		}
	}
	return init, cond, body, update
}
