package walker

import (
	"github.com/DeusData/codebase-execwalk/internal/semantic"
	"github.com/DeusData/codebase-execwalk/internal/syntax"
)

// TargetKind tags what a resolution was looking for. It is part of the
// visited-set key, so one node can be resolved once per kind.
type TargetKind uint8

const (
	TargetMethod TargetKind = iota + 1
	TargetConstructor
	TargetConstructorInitializer
	TargetBaseConstructor
	TargetParameter
	TargetGetter
	TargetSetter
	TargetInitializers
	TargetStaticInitialization
)

var targetKindNames = [...]string{
	TargetMethod:                 "Method",
	TargetConstructor:            "Constructor",
	TargetConstructorInitializer: "ConstructorInitializer",
	TargetBaseConstructor:        "BaseConstructor",
	TargetParameter:              "Parameter",
	TargetGetter:                 "Getter",
	TargetSetter:                 "Setter",
	TargetInitializers:           "Initializers",
	TargetStaticInitialization:   "StaticInitialization",
}

func (k TargetKind) String() string {
	if int(k) < len(targetKindNames) && targetKindNames[k] != "" {
		return targetKindNames[k]
	}
	return "Unknown"
}

// Target records that Source resolved to Symbol, whose body is Declaration:
// a method, local function, constructor, accessor, expression body, or
// parameter node.
type Target struct {
	Source      *syntax.Node
	Symbol      *semantic.Symbol
	Declaration *syntax.Node
}

// declarationWithBody accepts members that carry executable code.
func declarationWithBody(_ *semantic.Symbol, decl *syntax.Node) *syntax.Node {
	switch decl.Kind() {
	case syntax.KindMethod, syntax.KindLocalFunction, syntax.KindConstructor:
		if decl.Field(syntax.RoleBody) != nil {
			return decl
		}
	}
	return nil
}

// getterOf returns the get accessor, or the expression body of a
// get-only property.
func getterOf(_ *semantic.Symbol, prop *syntax.Node) *syntax.Node {
	if prop.Kind() != syntax.KindProperty {
		return nil
	}
	if acc := accessor(prop, "get"); acc != nil {
		return acc
	}
	if v := prop.Field(syntax.RoleValue); v != nil && v.Kind() == syntax.KindArrowBody {
		return v
	}
	for _, ch := range prop.Children() {
		if ch.Kind() == syntax.KindArrowBody {
			return ch
		}
	}
	return nil
}

func setterOf(_ *semantic.Symbol, prop *syntax.Node) *syntax.Node {
	if prop.Kind() != syntax.KindProperty {
		return nil
	}
	if acc := accessor(prop, "set"); acc != nil {
		return acc
	}
	return accessor(prop, "init")
}

func accessor(prop *syntax.Node, op string) *syntax.Node {
	for _, ch := range prop.Children() {
		if ch.Kind() == syntax.KindAccessor && ch.Op() == op && ch.Field(syntax.RoleBody) != nil {
			return ch
		}
	}
	return nil
}

func parameterDeclaration(_ *semantic.Symbol, decl *syntax.Node) *syntax.Node {
	switch decl.Kind() {
	case syntax.KindParameter, syntax.KindIdentifier:
		return decl
	}
	return nil
}
