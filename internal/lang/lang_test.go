package lang

import "testing"

func TestForExtension(t *testing.T) {
	tests := []struct {
		ext  string
		lang Language
	}{
		{".cs", CSharp},
		{".java", Java},
	}
	for _, tt := range tests {
		spec := ForExtension(tt.ext)
		if spec == nil {
			t.Errorf("ForExtension(%q) = nil, want %s", tt.ext, tt.lang)
			continue
		}
		if spec.Language != tt.lang {
			t.Errorf("ForExtension(%q).Language = %s, want %s", tt.ext, spec.Language, tt.lang)
		}
	}
}

func TestForLanguage(t *testing.T) {
	for _, lang := range AllLanguages() {
		spec := ForLanguage(lang)
		if spec == nil {
			t.Errorf("ForLanguage(%s) = nil", lang)
		}
	}
}

func TestUnknownExtension(t *testing.T) {
	for _, ext := range []string{".xyz", ".py", ".go"} {
		if spec := ForExtension(ext); spec != nil {
			t.Errorf("ForExtension(%s) should be nil, got %v", ext, spec.Language)
		}
		if _, ok := LanguageForExtension(ext); ok {
			t.Errorf("LanguageForExtension(%s) reported a language", ext)
		}
	}
}

func TestCSharpSpec(t *testing.T) {
	spec := ForLanguage(CSharp)
	if spec == nil {
		t.Fatal("C# spec not registered")
	}
	if !spec.InitializersBeforeBaseConstructor {
		t.Error("C# field initializers run before the base constructor")
	}
	if spec.SwitchFallthrough {
		t.Error("C# switch sections do not fall through")
	}
	if !spec.DefaultMemberPrivate {
		t.Error("C# members default to private")
	}
	if spec.NameofFunction != "nameof" {
		t.Errorf("NameofFunction = %q", spec.NameofFunction)
	}
	if spec.ThisKeyword != "this" || spec.BaseKeyword != "base" {
		t.Errorf("chaining keywords = %q/%q", spec.ThisKeyword, spec.BaseKeyword)
	}
}

func TestJavaSpec(t *testing.T) {
	spec := ForLanguage(Java)
	if spec == nil {
		t.Fatal("Java spec not registered")
	}
	if spec.InitializersBeforeBaseConstructor {
		t.Error("Java field initializers run after super()")
	}
	if !spec.SwitchFallthrough {
		t.Error("Java switch groups fall through")
	}
	if spec.DefaultMemberPrivate {
		t.Error("Java members default to package access")
	}
	if spec.BaseKeyword != "super" {
		t.Errorf("BaseKeyword = %q", spec.BaseKeyword)
	}
	if len(spec.StaticInitializerNodeTypes) == 0 {
		t.Error("Java static initializer blocks not mapped")
	}
}

func TestNoDuplicateNodeTypes(t *testing.T) {
	for _, l := range AllLanguages() {
		spec := ForLanguage(l)
		seen := map[string]string{}
		groups := map[string][]string{
			"Class":       spec.ClassNodeTypes,
			"Method":      spec.MethodNodeTypes,
			"Constructor": spec.ConstructorNodeTypes,
			"Call":        spec.CallNodeTypes,
			"Assignment":  spec.AssignmentNodeTypes,
			"Lambda":      spec.LambdaNodeTypes,
			"Block":       spec.BlockNodeTypes,
		}
		for group, types := range groups {
			for _, typ := range types {
				if prev, dup := seen[typ]; dup {
					t.Errorf("%s: %q in both %s and %s", l, typ, prev, group)
				}
				seen[typ] = group
			}
		}
	}
}
