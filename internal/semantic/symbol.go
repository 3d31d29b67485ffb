// Package semantic resolves syntax nodes to the symbols they declare or
// reference, locates symbol declarations, and folds constant expressions.
//
// Resolution is name based: there is no type checker behind it. Overloads are
// told apart by argument count only, and anything ambiguous resolves to nil,
// which callers treat as "stop following this edge".
package semantic

import (
	"github.com/DeusData/codebase-execwalk/internal/syntax"
)

// SymbolKind classifies what a symbol denotes.
type SymbolKind uint8

const (
	SymbolType SymbolKind = iota + 1
	SymbolMethod
	SymbolConstructor
	SymbolProperty
	SymbolField
	SymbolLocal
	SymbolParameter
	SymbolLocalFunction
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolType:
		return "Type"
	case SymbolMethod:
		return "Method"
	case SymbolConstructor:
		return "Constructor"
	case SymbolProperty:
		return "Property"
	case SymbolField:
		return "Field"
	case SymbolLocal:
		return "Local"
	case SymbolParameter:
		return "Parameter"
	case SymbolLocalFunction:
		return "LocalFunction"
	}
	return "Unknown"
}

// Model is the semantic view the walker consumes. Implementations must be
// safe for concurrent use once built.
type Model interface {
	// Symbol returns the symbol n declares or references, or nil.
	Symbol(n *syntax.Node) *Symbol
	// Declarations returns the declaring nodes of sym. Partial types have
	// several; implicit constructors have none.
	Declarations(sym *Symbol) []*syntax.Node
	// Constant evaluates n as a compile-time constant.
	Constant(n *syntax.Node) (any, bool)
}

const (
	ctorName       = ".ctor"
	staticCtorName = ".cctor"
)

// Symbol is the resolved meaning of a declaration. There is exactly one
// Symbol per declared entity, so pointer equality is symbol equality.
type Symbol struct {
	Kind          SymbolKind
	Name          string
	QualifiedName string
	// Container is the type declaring the symbol. For locals and parameters it
	// is the type declaring the enclosing member.
	Container *Symbol
	Static    bool
	Private   bool
	Const     bool
	// TypeName is the declared (or inferred) simple type name of fields,
	// properties, locals and parameters, and the return type of methods.
	TypeName string
	// Ordinal is the position of a parameter.
	Ordinal int

	minArgs   int
	maxArgs   int // -1: variadic
	params    []*Symbol
	decls     []*syntax.Node
	base      *Symbol
	baseNames []string
	members   map[string][]*Symbol
	implicit  *Symbol
	isClass   bool
}

// Base returns the base class of a type symbol, or nil.
func (s *Symbol) Base() *Symbol {
	if s == nil {
		return nil
	}
	return s.base
}

// IsAssignableTo reports whether type s is t or derives from it.
func (s *Symbol) IsAssignableTo(t *Symbol) bool {
	if t == nil {
		return false
	}
	seen := 0
	for c := s; c != nil && seen < 64; c = c.base {
		if c == t {
			return true
		}
		seen++
	}
	return false
}

// Members returns the members of a type declared under name, without
// consulting base types.
func (s *Symbol) Members(name string) []*Symbol {
	if s == nil {
		return nil
	}
	return s.members[name]
}

// Parameters returns the parameters of a method, constructor or local function.
func (s *Symbol) Parameters() []*Symbol {
	if s == nil {
		return nil
	}
	return s.params
}

// Constructors returns the declared instance constructors of a type.
func (s *Symbol) Constructors() []*Symbol {
	return s.Members(ctorName)
}

// StaticConstructor returns the static constructor of a type, or nil.
func (s *Symbol) StaticConstructor() *Symbol {
	if ctors := s.Members(staticCtorName); len(ctors) > 0 {
		return ctors[0]
	}
	return nil
}

// DefaultConstructor returns the parameterless instance constructor of a
// type: a declared one, or the implicit one when no constructor is declared.
// Nil when the type declares constructors but none accepts zero arguments.
func (s *Symbol) DefaultConstructor() *Symbol {
	if s == nil {
		return nil
	}
	ctors := s.Constructors()
	if len(ctors) == 0 {
		return s.implicit
	}
	return pickByArity(ctors, 0)
}

// Accepts reports whether a call with argc arguments can bind to s.
func (s *Symbol) Accepts(argc int) bool {
	if argc < s.minArgs {
		return false
	}
	return s.maxArgs < 0 || argc <= s.maxArgs
}

// ParameterAt returns the parameter receiving the argument at ordinal, or the
// parameter named name when name is non-empty.
func (s *Symbol) ParameterAt(ordinal int, name string) *Symbol {
	if s == nil || len(s.params) == 0 {
		return nil
	}
	if name != "" {
		for _, p := range s.params {
			if p.Name == name {
				return p
			}
		}
		return nil
	}
	if ordinal < len(s.params) {
		return s.params[ordinal]
	}
	if s.maxArgs < 0 {
		return s.params[len(s.params)-1]
	}
	return nil
}

// IsImplicit reports whether s is a compiler-provided default constructor.
func (s *Symbol) IsImplicit() bool {
	return s != nil && s.Kind == SymbolConstructor && len(s.decls) == 0
}

func (s *Symbol) String() string {
	if s == nil {
		return "<nil>"
	}
	return s.Kind.String() + " " + s.QualifiedName
}

func pickByArity(candidates []*Symbol, argc int) *Symbol {
	var found *Symbol
	for _, c := range candidates {
		if !c.Accepts(argc) {
			continue
		}
		if found != nil {
			return nil
		}
		found = c
	}
	return found
}
