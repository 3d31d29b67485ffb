package syntax

// Kind is the closed set of node kinds the walker and the order procedure
// dispatch on. Grammar-specific tree-sitter kinds are folded into these by the
// language spec tables; anything unlisted becomes KindOther.
type Kind uint8

const (
	KindOther Kind = iota
	KindModule
	KindNamespace
	KindType
	KindBaseList
	KindField
	KindDeclarator
	KindProperty
	KindAccessor
	KindConstructor
	KindConstructorInitializer
	KindStaticInitializer
	KindMethod
	KindLocalFunction
	KindLambda
	KindParameterList
	KindParameter
	KindArrowBody

	KindBlock
	KindExpressionStatement
	KindLocalDeclaration
	KindIf
	KindWhile
	KindDo
	KindFor
	KindForEach
	KindSwitch
	KindSwitchSection
	KindTry
	KindCatch
	KindFinally
	KindReturn
	KindThrow
	KindGoto
	KindLabeled
	KindBreak
	KindContinue
	KindStatement

	KindInvocation
	KindObjectCreation
	KindImplicitObjectCreation
	KindObjectInitializer
	KindArgumentList
	KindArgument
	KindAssignment
	KindPrefixUnary
	KindPostfixUnary
	KindBinary
	KindConditional
	KindMemberAccess
	KindIdentifier
	KindGenericName
	KindThis
	KindBase
	KindLiteral
	KindParenthesized
)

var kindNames = [...]string{
	KindOther:                  "Other",
	KindModule:                 "Module",
	KindNamespace:              "Namespace",
	KindType:                   "Type",
	KindBaseList:               "BaseList",
	KindField:                  "Field",
	KindDeclarator:             "Declarator",
	KindProperty:               "Property",
	KindAccessor:               "Accessor",
	KindConstructor:            "Constructor",
	KindConstructorInitializer: "ConstructorInitializer",
	KindStaticInitializer:      "StaticInitializer",
	KindMethod:                 "Method",
	KindLocalFunction:          "LocalFunction",
	KindLambda:                 "Lambda",
	KindParameterList:          "ParameterList",
	KindParameter:              "Parameter",
	KindArrowBody:              "ArrowBody",
	KindBlock:                  "Block",
	KindExpressionStatement:    "ExpressionStatement",
	KindLocalDeclaration:       "LocalDeclaration",
	KindIf:                     "If",
	KindWhile:                  "While",
	KindDo:                     "Do",
	KindFor:                    "For",
	KindForEach:                "ForEach",
	KindSwitch:                 "Switch",
	KindSwitchSection:          "SwitchSection",
	KindTry:                    "Try",
	KindCatch:                  "Catch",
	KindFinally:                "Finally",
	KindReturn:                 "Return",
	KindThrow:                  "Throw",
	KindGoto:                   "Goto",
	KindLabeled:                "Labeled",
	KindBreak:                  "Break",
	KindContinue:               "Continue",
	KindStatement:              "Statement",
	KindInvocation:             "Invocation",
	KindObjectCreation:         "ObjectCreation",
	KindImplicitObjectCreation: "ImplicitObjectCreation",
	KindObjectInitializer:      "ObjectInitializer",
	KindArgumentList:           "ArgumentList",
	KindArgument:               "Argument",
	KindAssignment:             "Assignment",
	KindPrefixUnary:            "PrefixUnary",
	KindPostfixUnary:           "PostfixUnary",
	KindBinary:                 "Binary",
	KindConditional:            "Conditional",
	KindMemberAccess:           "MemberAccess",
	KindIdentifier:             "Identifier",
	KindGenericName:            "GenericName",
	KindThis:                   "This",
	KindBase:                   "Base",
	KindLiteral:                "Literal",
	KindParenthesized:          "Parenthesized",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Other"
}

// IsStatement reports whether k is a statement kind. Local functions count:
// they sit in statement lists.
func (k Kind) IsStatement() bool {
	switch k {
	case KindBlock, KindExpressionStatement, KindLocalDeclaration, KindIf, KindWhile,
		KindDo, KindFor, KindForEach, KindSwitch, KindTry, KindReturn, KindThrow,
		KindGoto, KindLabeled, KindBreak, KindContinue, KindStatement, KindLocalFunction:
		return true
	}
	return false
}

// IsLoop reports whether k repeats its body.
func (k Kind) IsLoop() bool {
	switch k {
	case KindWhile, KindDo, KindFor, KindForEach:
		return true
	}
	return false
}

// IsMember reports whether k declares a type member with its own body.
func (k Kind) IsMember() bool {
	switch k {
	case KindField, KindProperty, KindConstructor, KindStaticInitializer, KindMethod:
		return true
	}
	return false
}

// IsCodeBody reports whether k owns executable code that runs as its own
// invocation: members, accessors, local functions and lambdas.
func (k Kind) IsCodeBody() bool {
	switch k {
	case KindConstructor, KindStaticInitializer, KindMethod, KindAccessor,
		KindLocalFunction, KindLambda, KindDeclarator, KindProperty:
		return true
	}
	return false
}

// Role names a structural slot of a node, mirroring grammar field names.
type Role uint8

const (
	RoleName Role = iota + 1
	RoleType
	RoleBody
	RoleCondition
	RoleConsequence
	RoleAlternative
	RoleLeft
	RoleRight
	RoleValue
	RoleArguments
	RoleInitializer
	RoleUpdate
	RoleExpression
	RoleParameters
	roleCount
)

// fieldRoles maps tree-sitter field names onto roles. Grammars disagree on
// names for the same slot, hence the aliases.
var fieldRoles = map[string]Role{
	"name":        RoleName,
	"field":       RoleName,
	"type":        RoleType,
	"returns":     RoleType,
	"body":        RoleBody,
	"condition":   RoleCondition,
	"consequence": RoleConsequence,
	"alternative": RoleAlternative,
	"left":        RoleLeft,
	"right":       RoleRight,
	"value":       RoleValue,
	"arguments":   RoleArguments,
	"initializer": RoleInitializer,
	"init":        RoleInitializer,
	"update":      RoleUpdate,
	"expression":  RoleExpression,
	"object":      RoleExpression,
	"function":    RoleExpression,
	"operand":     RoleExpression,
	"parameters":  RoleParameters,
}
