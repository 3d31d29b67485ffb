package syntax

import (
	"fmt"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/codebase-execwalk/internal/lang"
	"github.com/DeusData/codebase-execwalk/internal/parser"
)

type kindTable struct {
	kinds       map[string]Kind
	transparent map[string]bool
	skipped     map[string]bool
	modifiers   map[string]bool
	update      map[string]bool
}

var (
	tablesMu sync.Mutex
	tables   = map[lang.Language]*kindTable{}
)

func tableFor(spec *lang.LanguageSpec) *kindTable {
	tablesMu.Lock()
	defer tablesMu.Unlock()
	if t, ok := tables[spec.Language]; ok {
		return t
	}
	t := &kindTable{
		kinds:       make(map[string]Kind),
		transparent: toSet(spec.TransparentNodeTypes),
		skipped:     toSet(spec.SkippedNodeTypes),
		modifiers:   toSet(spec.ModifierNodeTypes),
		update:      toSet(spec.UpdateNodeTypes),
	}
	groups := []struct {
		types []string
		kind  Kind
	}{
		{spec.ModuleNodeTypes, KindModule},
		{spec.NamespaceNodeTypes, KindNamespace},
		{spec.ClassNodeTypes, KindType},
		{spec.BaseListNodeTypes, KindBaseList},
		{spec.FieldNodeTypes, KindField},
		{spec.DeclaratorNodeTypes, KindDeclarator},
		{spec.PropertyNodeTypes, KindProperty},
		{spec.AccessorNodeTypes, KindAccessor},
		{spec.ConstructorNodeTypes, KindConstructor},
		{spec.ConstructorInitializerNodeTypes, KindConstructorInitializer},
		{spec.StaticInitializerNodeTypes, KindStaticInitializer},
		{spec.MethodNodeTypes, KindMethod},
		{spec.LocalFunctionNodeTypes, KindLocalFunction},
		{spec.LambdaNodeTypes, KindLambda},
		{spec.ParameterListNodeTypes, KindParameterList},
		{spec.ParameterNodeTypes, KindParameter},
		{spec.ArrowBodyNodeTypes, KindArrowBody},
		{spec.BlockNodeTypes, KindBlock},
		{spec.ExpressionStatementNodeTypes, KindExpressionStatement},
		{spec.LocalDeclarationNodeTypes, KindLocalDeclaration},
		{spec.IfNodeTypes, KindIf},
		{spec.WhileNodeTypes, KindWhile},
		{spec.DoNodeTypes, KindDo},
		{spec.ForNodeTypes, KindFor},
		{spec.ForEachNodeTypes, KindForEach},
		{spec.SwitchNodeTypes, KindSwitch},
		{spec.SwitchSectionNodeTypes, KindSwitchSection},
		{spec.TryNodeTypes, KindTry},
		{spec.CatchNodeTypes, KindCatch},
		{spec.FinallyNodeTypes, KindFinally},
		{spec.ReturnNodeTypes, KindReturn},
		{spec.ThrowNodeTypes, KindThrow},
		{spec.GotoNodeTypes, KindGoto},
		{spec.LabeledNodeTypes, KindLabeled},
		{spec.BreakNodeTypes, KindBreak},
		{spec.ContinueNodeTypes, KindContinue},
		{spec.OtherStatementNodeTypes, KindStatement},
		{spec.CallNodeTypes, KindInvocation},
		{spec.ObjectCreationNodeTypes, KindObjectCreation},
		{spec.ImplicitCreationNodeTypes, KindImplicitObjectCreation},
		{spec.ObjectInitializerNodeTypes, KindObjectInitializer},
		{spec.ArgumentListNodeTypes, KindArgumentList},
		{spec.ArgumentNodeTypes, KindArgument},
		{spec.AssignmentNodeTypes, KindAssignment},
		{spec.PrefixUnaryNodeTypes, KindPrefixUnary},
		{spec.PostfixUnaryNodeTypes, KindPostfixUnary},
		{spec.UpdateNodeTypes, KindPostfixUnary},
		{spec.BinaryNodeTypes, KindBinary},
		{spec.ConditionalNodeTypes, KindConditional},
		{spec.MemberAccessNodeTypes, KindMemberAccess},
		{spec.IdentifierNodeTypes, KindIdentifier},
		{spec.GenericNameNodeTypes, KindGenericName},
		{spec.ThisNodeTypes, KindThis},
		{spec.BaseNodeTypes, KindBase},
		{spec.LiteralNodeTypes, KindLiteral},
		{spec.ParenthesizedNodeTypes, KindParenthesized},
	}
	for _, g := range groups {
		for _, typ := range g.types {
			t.kinds[typ] = g.kind
		}
	}
	tables[spec.Language] = t
	return t
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}

// Parse parses source with the grammar of l and converts the result into an
// immutable Node tree. The tree-sitter tree is released before returning.
func Parse(path string, l lang.Language, source []byte) (*File, error) {
	spec := lang.ForLanguage(l)
	if spec == nil {
		return nil, fmt.Errorf("unsupported language: %s", l)
	}
	tree, err := parser.Parse(l, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	f := &File{Path: path, Language: l, Spec: spec, Source: source}
	c := &converter{file: f, table: tableFor(spec)}
	f.Root = c.convert(tree.RootNode(), nil)
	return f, nil
}

type converter struct {
	file  *File
	table *kindTable
}

func (c *converter) convert(r *tree_sitter.Node, parent *Node) *Node {
	kind := c.table.kinds[r.Kind()]
	if !r.IsNamed() {
		switch r.Kind() {
		case "this":
			kind = KindThis
		case "base", "super":
			kind = KindBase
		}
	}
	n := &Node{
		kind:      kind,
		raw:       r.Kind(),
		file:      c.file,
		parent:    parent,
		startByte: r.StartByte(),
		endByte:   r.EndByte(),
		start:     toPosition(r.StartPosition()),
		end:       toPosition(r.EndPosition()),
	}
	switch n.kind {
	case KindIdentifier, KindLiteral, KindThis, KindBase:
		// leaves: nested tokens (string content, escapes) carry no structure
	default:
		c.collect(r, n)
	}
	c.finish(n)
	return n
}

// collect converts the children of r into n. Transparent wrappers are
// flattened so that, e.g., the declarators of a C# field hang directly off
// the field node.
func (c *converter) collect(r *tree_sitter.Node, n *Node) {
	seenNamed := false
	for i := uint(0); i < r.ChildCount(); i++ {
		ch := r.Child(i)
		if ch == nil {
			continue
		}
		field := r.FieldNameForChild(uint32(i))
		kind := ch.Kind()
		if !ch.IsNamed() && !isReceiverKeyword(kind, field) {
			n.tokens = append(n.tokens, kind)
			if field == "operator" || field == "name" || (n.op == "" && isOperatorToken(kind)) {
				n.op = kind
				if !seenNamed {
					n.prefix = true
				}
			}
			continue
		}
		switch {
		case c.table.skipped[kind] || ch.IsExtra():
			continue
		case c.table.modifiers[kind]:
			n.modifiers = append(n.modifiers, modifierWords(c.file.Source[ch.StartByte():ch.EndByte()])...)
			continue
		case c.table.transparent[kind]:
			c.collect(ch, n)
			continue
		}
		seenNamed = true
		child := c.convert(ch, n)
		child.index = len(n.children)
		n.children = append(n.children, child)
		if role, ok := fieldRoles[field]; ok && n.roles[role] == nil {
			n.roles[role] = child
		}
	}
}

// isReceiverKeyword reports whether an anonymous this/base/super token fills an
// expression slot (`this.x`, `base.M()`); such tokens become nodes.
func isReceiverKeyword(tok, field string) bool {
	switch tok {
	case "this", "base", "super":
		role, ok := fieldRoles[field]
		return ok && role == RoleExpression
	}
	return false
}

func isOperatorToken(tok string) bool {
	switch tok {
	case "=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<=", ">>=", ">>>=", "??=",
		"++", "--", "!", "~", "-", "+",
		"this", "base", "super", "ref", "out", "in",
		"get", "set", "init", "add", "remove":
		return true
	}
	return false
}

func modifierWords(text []byte) []string {
	var words []string
	for _, w := range strings.Fields(string(text)) {
		if strings.HasPrefix(w, "@") || strings.ContainsAny(w, "()") {
			continue
		}
		words = append(words, w)
	}
	return words
}

func toPosition(p tree_sitter.Point) Position {
	return Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

// finish fills structural slots the grammar leaves unnamed.
func (c *converter) finish(n *Node) {
	switch n.kind {
	case KindType, KindMethod, KindLocalFunction, KindProperty, KindParameter,
		KindDeclarator, KindLabeled, KindGoto, KindGenericName, KindNamespace:
		if n.roles[RoleName] == nil {
			n.roles[RoleName] = lastOrFirstIdentifier(n)
		}
	case KindConstructor:
		if n.roles[RoleName] == nil {
			n.roles[RoleName] = firstOfKind(n, KindIdentifier)
		}
		if n.roles[RoleInitializer] == nil {
			n.roles[RoleInitializer] = firstOfKind(n, KindConstructorInitializer)
		}
		if n.HasModifier(c.file.Spec.StaticKeyword) {
			n.op = c.file.Spec.StaticKeyword
		}
	}

	switch n.kind {
	case KindConstructor, KindMethod, KindAccessor, KindLocalFunction, KindStaticInitializer,
		KindLambda, KindCatch, KindFinally:
		if n.roles[RoleBody] == nil {
			n.roles[RoleBody] = lastOfKind(n, KindBlock, KindArrowBody)
		}
	case KindParameterList, KindArgumentList:
		n.op = ""
	case KindDeclarator:
		if n.roles[RoleValue] == nil && n.HasToken("=") {
			if last := lastChild(n); last != nil && last != n.roles[RoleName] {
				n.roles[RoleValue] = last
			}
		}
	case KindProperty:
		if v := n.roles[RoleValue]; v == nil && n.HasToken("=") {
			if last := lastChild(n); last != nil && last.kind != KindAccessor && last != n.roles[RoleName] {
				n.roles[RoleValue] = last
			}
		}
	case KindAccessor:
		if n.op == "" {
			n.op = "get"
		}
	case KindConstructorInitializer:
		if n.op == "" || (n.op != c.file.Spec.ThisKeyword && n.op != c.file.Spec.BaseKeyword) {
			n.op = ""
			for _, ch := range n.children {
				switch ch.kind {
				case KindThis:
					n.op = c.file.Spec.ThisKeyword
				case KindBase:
					n.op = c.file.Spec.BaseKeyword
				}
			}
		}
		if n.roles[RoleArguments] == nil {
			n.roles[RoleArguments] = firstOfKind(n, KindArgumentList)
		}
	case KindInvocation, KindObjectCreation, KindImplicitObjectCreation:
		if n.roles[RoleArguments] == nil {
			n.roles[RoleArguments] = firstOfKind(n, KindArgumentList)
		}
		if n.kind == KindObjectCreation && n.roles[RoleType] == nil {
			n.roles[RoleType] = firstOfKind(n, KindIdentifier, KindGenericName)
		}
		if n.roles[RoleInitializer] == nil {
			n.roles[RoleInitializer] = firstOfKind(n, KindObjectInitializer)
		}
	case KindPrefixUnary, KindPostfixUnary:
		if c.table.update[n.raw] {
			if n.prefix {
				n.kind = KindPrefixUnary
			} else {
				n.kind = KindPostfixUnary
			}
		}
		if n.roles[RoleExpression] == nil {
			n.roles[RoleExpression] = firstChild(n)
		}
	case KindParenthesized, KindExpressionStatement, KindReturn, KindThrow, KindArrowBody:
		if n.roles[RoleExpression] == nil {
			n.roles[RoleExpression] = firstChild(n)
		}
	case KindArgument:
		if last := lastChild(n); last != nil && last != n.roles[RoleName] {
			n.roles[RoleExpression] = last
		}
	case KindAssignment, KindBinary:
		if n.roles[RoleLeft] == nil {
			n.roles[RoleLeft] = firstChild(n)
		}
		if n.roles[RoleRight] == nil {
			n.roles[RoleRight] = lastChild(n)
		}
	case KindMemberAccess:
		if n.roles[RoleName] == nil {
			n.roles[RoleName] = lastChild(n)
		}
		if n.roles[RoleExpression] == nil {
			n.roles[RoleExpression] = firstChild(n)
		}
	}
}

func firstChild(n *Node) *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[0]
}

func lastChild(n *Node) *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[len(n.children)-1]
}

func firstOfKind(n *Node, kinds ...Kind) *Node {
	for _, ch := range n.children {
		for _, k := range kinds {
			if ch.kind == k {
				return ch
			}
		}
	}
	return nil
}

func lastOfKind(n *Node, kinds ...Kind) *Node {
	for i := len(n.children) - 1; i >= 0; i-- {
		for _, k := range kinds {
			if n.children[i].kind == k {
				return n.children[i]
			}
		}
	}
	return nil
}

// lastOrFirstIdentifier returns the declared name. Generic and qualified names
// keep the simple name last (A.B.C, List<T>); declarations keep it first.
func lastOrFirstIdentifier(n *Node) *Node {
	if n.kind == KindGenericName {
		if id := firstOfKind(n, KindIdentifier); id != nil && n.raw != "qualified_name" && n.raw != "scoped_type_identifier" {
			return id
		}
		return lastOfKind(n, KindIdentifier, KindGenericName)
	}
	return firstOfKind(n, KindIdentifier)
}
