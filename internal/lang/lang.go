package lang

// Language represents a supported programming language.
type Language string

const (
	CSharp Language = "c-sharp"
	Java   Language = "java"
)

// AllLanguages returns all supported languages.
func AllLanguages() []Language {
	return []Language{CSharp, Java}
}

// LanguageSpec defines the tree-sitter node types for a language, grouped by
// the syntactic role they play during an execution-order walk.
type LanguageSpec struct {
	Language       Language
	FileExtensions []string

	ModuleNodeTypes    []string
	NamespaceNodeTypes []string
	ClassNodeTypes     []string
	// FieldNodeTypes lists field declarations; each wraps one or more declarators.
	FieldNodeTypes      []string
	DeclaratorNodeTypes []string
	PropertyNodeTypes   []string
	AccessorNodeTypes   []string
	// ConstructorNodeTypes covers instance and static constructors. Static-ness
	// comes from the modifier set.
	ConstructorNodeTypes []string
	// ConstructorInitializerNodeTypes lists `: this(...)`/`: base(...)` (C#) and
	// `this(...)`/`super(...)` (Java) chaining nodes.
	ConstructorInitializerNodeTypes []string
	// StaticInitializerNodeTypes lists Java `static { ... }` blocks.
	StaticInitializerNodeTypes []string
	MethodNodeTypes            []string
	LocalFunctionNodeTypes     []string
	LambdaNodeTypes            []string
	ParameterListNodeTypes     []string
	ParameterNodeTypes         []string
	ArrowBodyNodeTypes         []string

	BlockNodeTypes               []string
	ExpressionStatementNodeTypes []string
	LocalDeclarationNodeTypes    []string
	IfNodeTypes                  []string
	WhileNodeTypes               []string
	DoNodeTypes                  []string
	ForNodeTypes                 []string
	ForEachNodeTypes             []string
	SwitchNodeTypes              []string
	SwitchSectionNodeTypes       []string
	TryNodeTypes                 []string
	CatchNodeTypes               []string
	FinallyNodeTypes             []string
	ReturnNodeTypes              []string
	ThrowNodeTypes               []string
	GotoNodeTypes                []string
	LabeledNodeTypes             []string
	BreakNodeTypes               []string
	ContinueNodeTypes            []string
	// OtherStatementNodeTypes are statements executed as a unit with their
	// children in source order (lock, using, yield, ...).
	OtherStatementNodeTypes []string

	CallNodeTypes              []string
	ObjectCreationNodeTypes    []string
	ImplicitCreationNodeTypes  []string
	ObjectInitializerNodeTypes []string
	ArgumentListNodeTypes      []string
	ArgumentNodeTypes          []string
	AssignmentNodeTypes        []string
	PrefixUnaryNodeTypes       []string
	PostfixUnaryNodeTypes      []string
	UpdateNodeTypes            []string
	BinaryNodeTypes            []string
	ConditionalNodeTypes       []string
	MemberAccessNodeTypes      []string
	IdentifierNodeTypes        []string
	GenericNameNodeTypes       []string
	ThisNodeTypes              []string
	BaseNodeTypes              []string
	LiteralNodeTypes           []string
	ParenthesizedNodeTypes     []string
	ModifierNodeTypes          []string
	BaseListNodeTypes          []string
	// TransparentNodeTypes are wrappers whose children are hoisted into the
	// enclosing node (declaration lists, accessor lists, switch bodies).
	TransparentNodeTypes []string
	// SkippedNodeTypes are dropped together with their subtrees.
	SkippedNodeTypes    []string
	NameofFunction      string
	ThisKeyword         string
	BaseKeyword         string
	StaticKeyword       string
	PrivateKeyword      string
	ConstKeywords       []string
	RefArgumentKeywords []string

	// InitializersBeforeBaseConstructor is true when field initializers run
	// before the chained base constructor (C#), false when they run after it (Java).
	InitializersBeforeBaseConstructor bool
	// SwitchFallthrough is true when control may fall from one switch section
	// into the next.
	SwitchFallthrough bool
	// DefaultMemberPrivate is true when a member without an access modifier is private.
	DefaultMemberPrivate bool
}

// registry maps file extensions to language specs.
var registry = map[string]*LanguageSpec{}

// Register adds a LanguageSpec to the global registry.
func Register(spec *LanguageSpec) {
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

// ForExtension returns the LanguageSpec for a file extension (e.g. ".cs").
func ForExtension(ext string) *LanguageSpec {
	return registry[ext]
}

// ForLanguage returns the LanguageSpec for a language.
func ForLanguage(lang Language) *LanguageSpec {
	for _, spec := range registry {
		if spec.Language == lang {
			return spec
		}
	}
	return nil
}

// LanguageForExtension returns the Language for a file extension.
func LanguageForExtension(ext string) (Language, bool) {
	spec := registry[ext]
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}
