package lang

func init() {
	Register(&LanguageSpec{
		Language:           CSharp,
		FileExtensions:     []string{".cs"},
		ModuleNodeTypes:    []string{"compilation_unit"},
		NamespaceNodeTypes: []string{"namespace_declaration", "file_scoped_namespace_declaration"},
		ClassNodeTypes: []string{
			"class_declaration",
			"struct_declaration",
			"record_declaration",
			"record_struct_declaration",
			"interface_declaration",
			"enum_declaration",
		},
		FieldNodeTypes:                  []string{"field_declaration", "event_field_declaration"},
		DeclaratorNodeTypes:             []string{"variable_declarator"},
		PropertyNodeTypes:               []string{"property_declaration"},
		AccessorNodeTypes:               []string{"accessor_declaration"},
		ConstructorNodeTypes:            []string{"constructor_declaration"},
		ConstructorInitializerNodeTypes: []string{"constructor_initializer"},
		MethodNodeTypes: []string{
			"method_declaration",
			"operator_declaration",
			"conversion_operator_declaration",
			"destructor_declaration",
		},
		LocalFunctionNodeTypes:       []string{"local_function_statement"},
		LambdaNodeTypes:              []string{"lambda_expression", "anonymous_method_expression"},
		ParameterListNodeTypes:       []string{"parameter_list", "bracketed_parameter_list"},
		ParameterNodeTypes:           []string{"parameter"},
		ArrowBodyNodeTypes:           []string{"arrow_expression_clause"},
		BlockNodeTypes:               []string{"block"},
		ExpressionStatementNodeTypes: []string{"expression_statement"},
		LocalDeclarationNodeTypes:    []string{"local_declaration_statement"},
		IfNodeTypes:                  []string{"if_statement"},
		WhileNodeTypes:               []string{"while_statement"},
		DoNodeTypes:                  []string{"do_statement"},
		ForNodeTypes:                 []string{"for_statement"},
		ForEachNodeTypes:             []string{"foreach_statement"},
		SwitchNodeTypes:              []string{"switch_statement"},
		SwitchSectionNodeTypes:       []string{"switch_section"},
		TryNodeTypes:                 []string{"try_statement"},
		CatchNodeTypes:               []string{"catch_clause"},
		FinallyNodeTypes:             []string{"finally_clause"},
		ReturnNodeTypes:              []string{"return_statement"},
		ThrowNodeTypes:               []string{"throw_statement", "throw_expression"},
		GotoNodeTypes:                []string{"goto_statement"},
		LabeledNodeTypes:             []string{"labeled_statement"},
		BreakNodeTypes:               []string{"break_statement"},
		ContinueNodeTypes:            []string{"continue_statement"},
		OtherStatementNodeTypes: []string{
			"lock_statement",
			"using_statement",
			"yield_statement",
			"checked_statement",
			"unsafe_statement",
			"fixed_statement",
			"empty_statement",
		},
		CallNodeTypes:              []string{"invocation_expression"},
		ObjectCreationNodeTypes:    []string{"object_creation_expression"},
		ImplicitCreationNodeTypes:  []string{"implicit_object_creation_expression"},
		ObjectInitializerNodeTypes: []string{"initializer_expression"},
		ArgumentListNodeTypes:      []string{"argument_list"},
		ArgumentNodeTypes:          []string{"argument"},
		AssignmentNodeTypes:        []string{"assignment_expression"},
		PrefixUnaryNodeTypes:       []string{"prefix_unary_expression"},
		PostfixUnaryNodeTypes:      []string{"postfix_unary_expression"},
		BinaryNodeTypes:            []string{"binary_expression"},
		ConditionalNodeTypes:       []string{"conditional_expression"},
		MemberAccessNodeTypes:      []string{"member_access_expression"},
		IdentifierNodeTypes:        []string{"identifier"},
		GenericNameNodeTypes:       []string{"generic_name", "qualified_name"},
		ThisNodeTypes:              []string{"this_expression", "this"},
		BaseNodeTypes:              []string{"base_expression", "base"},
		LiteralNodeTypes: []string{
			"integer_literal",
			"real_literal",
			"string_literal",
			"verbatim_string_literal",
			"raw_string_literal",
			"character_literal",
			"boolean_literal",
			"null_literal",
		},
		ParenthesizedNodeTypes: []string{"parenthesized_expression"},
		ModifierNodeTypes:      []string{"modifier"},
		BaseListNodeTypes:      []string{"base_list"},
		TransparentNodeTypes: []string{
			"declaration_list",
			"variable_declaration",
			"accessor_list",
			"switch_body",
			"equals_value_clause",
		},
		SkippedNodeTypes:    []string{"comment", "attribute_list", "preproc_region", "preproc_endregion"},
		NameofFunction:      "nameof",
		ThisKeyword:         "this",
		BaseKeyword:         "base",
		StaticKeyword:       "static",
		PrivateKeyword:      "private",
		ConstKeywords:       []string{"const"},
		RefArgumentKeywords: []string{"ref", "out"},

		InitializersBeforeBaseConstructor: true,
		SwitchFallthrough:                 false,
		DefaultMemberPrivate:              true,
	})
}
