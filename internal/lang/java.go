package lang

func init() {
	Register(&LanguageSpec{
		Language:        Java,
		FileExtensions:  []string{".java"},
		ModuleNodeTypes: []string{"program"},
		ClassNodeTypes: []string{
			"class_declaration",
			"interface_declaration",
			"enum_declaration",
			"record_declaration",
		},
		FieldNodeTypes:                  []string{"field_declaration"},
		DeclaratorNodeTypes:             []string{"variable_declarator"},
		ConstructorNodeTypes:            []string{"constructor_declaration", "compact_constructor_declaration"},
		ConstructorInitializerNodeTypes: []string{"explicit_constructor_invocation"},
		StaticInitializerNodeTypes:      []string{"static_initializer"},
		MethodNodeTypes:                 []string{"method_declaration"},
		LambdaNodeTypes:                 []string{"lambda_expression"},
		ParameterListNodeTypes:          []string{"formal_parameters"},
		ParameterNodeTypes:              []string{"formal_parameter", "spread_parameter"},
		BlockNodeTypes:                  []string{"block", "constructor_body"},
		ExpressionStatementNodeTypes:    []string{"expression_statement"},
		LocalDeclarationNodeTypes:       []string{"local_variable_declaration"},
		IfNodeTypes:                     []string{"if_statement"},
		WhileNodeTypes:                  []string{"while_statement"},
		DoNodeTypes:                     []string{"do_statement"},
		ForNodeTypes:                    []string{"for_statement"},
		ForEachNodeTypes:                []string{"enhanced_for_statement"},
		SwitchNodeTypes:                 []string{"switch_statement", "switch_expression"},
		SwitchSectionNodeTypes:          []string{"switch_block_statement_group", "switch_rule"},
		TryNodeTypes:                    []string{"try_statement", "try_with_resources_statement"},
		CatchNodeTypes:                  []string{"catch_clause"},
		FinallyNodeTypes:                []string{"finally_clause"},
		ReturnNodeTypes:                 []string{"return_statement"},
		ThrowNodeTypes:                  []string{"throw_statement"},
		LabeledNodeTypes:                []string{"labeled_statement"},
		BreakNodeTypes:                  []string{"break_statement"},
		ContinueNodeTypes:               []string{"continue_statement"},
		OtherStatementNodeTypes: []string{
			"synchronized_statement",
			"yield_statement",
			"assert_statement",
		},
		CallNodeTypes:           []string{"method_invocation"},
		ObjectCreationNodeTypes: []string{"object_creation_expression"},
		ArgumentListNodeTypes:   []string{"argument_list"},
		AssignmentNodeTypes:     []string{"assignment_expression"},
		PrefixUnaryNodeTypes:    []string{"unary_expression"},
		UpdateNodeTypes:         []string{"update_expression"},
		BinaryNodeTypes:         []string{"binary_expression"},
		ConditionalNodeTypes:    []string{"ternary_expression"},
		MemberAccessNodeTypes:   []string{"field_access"},
		IdentifierNodeTypes:     []string{"identifier", "type_identifier"},
		GenericNameNodeTypes:    []string{"generic_type", "scoped_type_identifier"},
		ThisNodeTypes:           []string{"this"},
		BaseNodeTypes:           []string{"super"},
		LiteralNodeTypes: []string{
			"decimal_integer_literal",
			"hex_integer_literal",
			"octal_integer_literal",
			"binary_integer_literal",
			"decimal_floating_point_literal",
			"hex_floating_point_literal",
			"string_literal",
			"text_block",
			"character_literal",
			"true",
			"false",
			"null_literal",
		},
		ParenthesizedNodeTypes: []string{"parenthesized_expression"},
		ModifierNodeTypes:      []string{"modifiers"},
		BaseListNodeTypes:      []string{"superclass", "super_interfaces"},
		TransparentNodeTypes: []string{
			"class_body",
			"interface_body",
			"enum_body",
			"enum_body_declarations",
			"switch_block",
		},
		SkippedNodeTypes: []string{"line_comment", "block_comment", "marker_annotation", "annotation"},
		ThisKeyword:      "this",
		BaseKeyword:      "super",
		StaticKeyword:    "static",
		PrivateKeyword:   "private",
		ConstKeywords:    []string{"static", "final"},

		InitializersBeforeBaseConstructor: false,
		SwitchFallthrough:                 true,
		DefaultMemberPrivate:              false,
	})
}
