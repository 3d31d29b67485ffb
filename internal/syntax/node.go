package syntax

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/DeusData/codebase-execwalk/internal/lang"
)

// Position is a 1-based line/column location. Columns count bytes.
type Position struct {
	Line   int
	Column int
}

// Before reports whether p comes strictly before o.
func (p Position) Before(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

func (p Position) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// ParsePosition parses "line:col" with both parts 1-based.
func ParsePosition(s string) (Position, error) {
	l, c, ok := strings.Cut(s, ":")
	if !ok {
		return Position{}, fmt.Errorf("position %q: want line:col", s)
	}
	line, err := strconv.Atoi(strings.TrimSpace(l))
	if err != nil || line < 1 {
		return Position{}, fmt.Errorf("position %q: bad line", s)
	}
	col, err := strconv.Atoi(strings.TrimSpace(c))
	if err != nil || col < 1 {
		return Position{}, fmt.Errorf("position %q: bad column", s)
	}
	return Position{Line: line, Column: col}, nil
}

// File is one parsed source file. The tree is immutable once Parse returns.
type File struct {
	Path     string
	Language lang.Language
	Spec     *lang.LanguageSpec
	Source   []byte
	Root     *Node
}

// Node is an element of the immutable syntax tree. Identity is by pointer:
// two nodes with identical text at different positions are different nodes.
type Node struct {
	kind      Kind
	raw       string
	op        string
	file      *File
	parent    *Node
	index     int
	children  []*Node
	roles     [roleCount]*Node
	modifiers []string
	tokens    []string
	prefix    bool
	startByte uint
	endByte   uint
	start     Position
	end       Position
}

// Kind returns the normalized node kind.
func (n *Node) Kind() Kind { return n.kind }

// RawKind returns the grammar's node kind (e.g. "invocation_expression").
func (n *Node) RawKind() string { return n.raw }

// Op returns the operator or keyword attached to the node: assignment and
// unary operators, accessor keywords (get/set/init), chaining keywords
// (this/base/super), and ref/out for arguments.
func (n *Node) Op() string { return n.op }

// File returns the file the node belongs to.
func (n *Node) File() *File { return n.file }

// Parent returns the enclosing node, nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Index returns the position of n among its parent's children.
func (n *Node) Index() int { return n.index }

// Children returns the named children in source order. The slice must not be modified.
func (n *Node) Children() []*Node { return n.children }

// Field returns the child in the given structural slot, or nil.
func (n *Node) Field(r Role) *Node {
	if n == nil || r >= roleCount {
		return nil
	}
	return n.roles[r]
}

// Modifiers returns the declaration modifiers (static, private, const, ...).
func (n *Node) Modifiers() []string { return n.modifiers }

// HasModifier reports whether the declaration carries modifier m.
func (n *Node) HasModifier(m string) bool {
	return slices.Contains(n.modifiers, m)
}

// HasToken reports whether an anonymous token t appears directly in n.
func (n *Node) HasToken(t string) bool {
	return slices.Contains(n.tokens, t)
}

// Start returns the start position of the node.
func (n *Node) Start() Position { return n.start }

// End returns the end position of the node.
func (n *Node) End() Position { return n.end }

// Text returns the source text spanned by the node.
func (n *Node) Text() string {
	if n == nil || n.file == nil {
		return ""
	}
	return string(n.file.Source[n.startByte:n.endByte])
}

// Spec returns the language spec of the node's file.
func (n *Node) Spec() *lang.LanguageSpec {
	if n == nil || n.file == nil {
		return nil
	}
	return n.file.Spec
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	text := n.Text()
	if len(text) > 40 {
		text = text[:40] + "..."
	}
	return n.kind.String() + "(" + text + ")"
}
