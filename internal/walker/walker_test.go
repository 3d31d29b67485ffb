package walker

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/DeusData/codebase-execwalk/internal/pool"
	"github.com/DeusData/codebase-execwalk/internal/semantic"
	"github.com/DeusData/codebase-execwalk/internal/syntax"
	"github.com/DeusData/codebase-execwalk/internal/syntax/syntaxtest"
)

type fixture struct {
	files []*syntax.File
	index *semantic.Index
}

func load(t *testing.T, archive string) fixture {
	t.Helper()
	files := syntaxtest.ParseArchive(t, archive)
	return fixture{files: files, index: semantic.NewIndex(files...)}
}

// literals walks root and returns the literals visited, in order.
func (f fixture) literals(t *testing.T, root *syntax.Node, scope Scope) []string {
	t.Helper()
	w, err := Walk(context.Background(), root, scope, f.index)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	defer w.Release()
	return syntaxtest.Literals(w.Visited())
}

func (f fixture) decl(t *testing.T, kind syntax.Kind, name string) *syntax.Node {
	t.Helper()
	return syntaxtest.Declaration(t, f.files, kind, name)
}

func TestInitializerBeforeConstructor(t *testing.T) {
	f := load(t, `
-- C.cs --
class C
{
    int x = 1;
    C() { x = 2; }
}
`)
	got := f.literals(t, f.decl(t, syntax.KindConstructor, "C"), ScopeMember)
	if diff := cmp.Diff([]string{"1", "2"}, got); diff != "" {
		t.Errorf("literal order (-want +got):\n%s", diff)
	}
}

const staticArchive = `
-- C.cs --
class C
{
    public C() { y = 20; }
    static C() { s = 10; }
    static int s;
    int y;
}
`

func TestStaticConstructorFirst(t *testing.T) {
	f := load(t, staticArchive)
	instance := syntaxtest.Find(t, f.files, syntax.KindConstructor, "public C() { y = 20; }")

	for _, scope := range []Scope{ScopeType, ScopeRecursive} {
		got := f.literals(t, instance, scope)
		if diff := cmp.Diff([]string{"10", "20"}, got); diff != "" {
			t.Errorf("%s: literal order (-want +got):\n%s", scope, diff)
		}
	}
	for _, scope := range []Scope{ScopeMember, ScopeInstance} {
		got := f.literals(t, instance, scope)
		if diff := cmp.Diff([]string{"20"}, got); diff != "" {
			t.Errorf("%s: static constructor must not run (-want +got):\n%s", scope, diff)
		}
	}

	typ := f.decl(t, syntax.KindType, "C")
	if diff := cmp.Diff([]string{"10", "20"}, f.literals(t, typ, ScopeMember)); diff != "" {
		t.Errorf("type walk (-want +got):\n%s", diff)
	}
}

func TestTypeWalkRunsStaticInitializationOnce(t *testing.T) {
	f := load(t, `
-- T.cs --
class T
{
    static T() { s = 10; }
    public T() { a = 20; }
    public static T Make() { return new T(); }
    public int Count { get; set; } = 30;
    static int s;
    int a;
}
`)
	typ := f.decl(t, syntax.KindType, "T")
	for _, scope := range []Scope{ScopeType, ScopeRecursive} {
		// the factory constructs a second instance, without static initialization
		if diff := cmp.Diff([]string{"30", "10", "20", "30", "20"}, f.literals(t, typ, scope)); diff != "" {
			t.Errorf("%s: literal order (-want +got):\n%s", scope, diff)
		}

		mw, err := BorrowMutations(context.Background(), typ, scope, f.index)
		if err != nil {
			t.Fatal(err)
		}
		statics := 0
		for _, m := range mw.Mutations() {
			if m.Text() == "s = 10" {
				statics++
			}
		}
		mw.Release()
		if statics != 1 {
			t.Errorf("%s: static assignment reported %d times", scope, statics)
		}
	}

	w, err := Walk(context.Background(), typ, ScopeMember, f.index)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Release()
	count := syntaxtest.Declaration(t, f.files, syntax.KindProperty, "Count")
	recorded := 0
	for _, n := range w.Visited() {
		if n == count {
			recorded++
		}
	}
	if recorded != 1 {
		t.Errorf("initialized property recorded %d times", recorded)
	}
}

func TestTypeWalkOrder(t *testing.T) {
	f := load(t, `
-- T.cs --
class T
{
    public T() { a = 20; }
    static T() { s = 10; }
    int a = 1;
    static int s = 2;
    public void M() { a = 30; }
    private void Hidden() { a = 40; }
    class Nested { public void N() { int z = 50; } }
}
`)
	typ := f.decl(t, syntax.KindType, "T")
	if diff := cmp.Diff([]string{"1", "2", "10", "20", "30"}, f.literals(t, typ, ScopeMember)); diff != "" {
		t.Errorf("member scope (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "2", "10", "20", "30", "50"}, f.literals(t, typ, ScopeRecursive)); diff != "" {
		t.Errorf("recursive scope visits nested types last (-want +got):\n%s", diff)
	}
}

func TestAssignmentValueBeforeTarget(t *testing.T) {
	f := load(t, `
-- A.cs --
class A
{
    void Run(Holder a) { a.b = Method(); }
    int Method() { return 1; }
}
`)
	w, err := Walk(context.Background(), f.decl(t, syntax.KindMethod, "Run"), ScopeMember, f.index)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Release()

	call, target := -1, -1
	for i, n := range w.Visited() {
		switch {
		case n.Kind() == syntax.KindInvocation && n.Text() == "Method()":
			call = i
		case n.Kind() == syntax.KindMemberAccess && n.Text() == "a.b":
			target = i
		}
	}
	if call < 0 || target < 0 || call > target {
		t.Errorf("Method() at %d, a.b at %d: value must be visited first", call, target)
	}
}

func TestCycleTermination(t *testing.T) {
	f := load(t, `
-- C.cs --
class C
{
    public void A() { B(); }
    public void B() { A(); }
    public void R() { R(); }
}
class D
{
    public void M() { new E().N(); }
}
class E
{
    public void N() { new D().M(); }
}
`)
	for _, name := range []string{"A", "R"} {
		w, err := Walk(context.Background(), f.decl(t, syntax.KindMethod, name), ScopeRecursive, f.index)
		if err != nil {
			t.Fatal(err)
		}
		calls := 0
		for _, n := range w.Visited() {
			if n.Kind() == syntax.KindInvocation {
				calls++
			}
		}
		w.Release()
		if calls == 0 || calls > 3 {
			t.Errorf("%s: %d invocations visited", name, calls)
		}
	}

	w, err := Walk(context.Background(), f.decl(t, syntax.KindMethod, "M"), ScopeRecursive, f.index)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Release()
	var entered []string
	for _, n := range w.Visited() {
		if n.Kind() == syntax.KindMethod {
			entered = append(entered, n.Field(syntax.RoleName).Text())
		}
	}
	if diff := cmp.Diff([]string{"M", "N", "M"}, entered); diff != "" {
		t.Errorf("mutual recursion across types (-want +got):\n%s", diff)
	}
}

const scopeArchive = `
-- S.cs --
class Base
{
    public int Inherited() { return 11; }
}
class S : Base
{
    static int Shared() { return 22; }
    int Helper() { return 33; }

    public void Root(S other)
    {
        Helper();
        this.Inherited();
        Shared();
        other.Helper();
        Other.Run();
    }
}
class Other
{
    public static int Run() { return 44; }
}
`

func TestScopeFilter(t *testing.T) {
	f := load(t, scopeArchive)
	root := f.decl(t, syntax.KindMethod, "Root")

	tests := []struct {
		scope Scope
		want  []string
	}{
		{ScopeMember, nil},
		{ScopeInstance, []string{"33", "11"}},
		{ScopeType, []string{"33", "11", "22"}},
		{ScopeRecursive, []string{"33", "11", "22", "33", "44"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, f.literals(t, root, tt.scope)); diff != "" {
			t.Errorf("%s (-want +got):\n%s", tt.scope, diff)
		}
	}
}

const monotonicArchive = `
-- M.cs --
class Base
{
    public Base() { b = 1; }
    public static int Util() { return 2; }
    int b;
}
class M : Base
{
    static M() { s = 3; }
    int f = 4;
    public M() { f = 5; }
    public int P { get { return f + 6; } set { f = value + 7; } }
    public void Run() { P = P + 1; var m = new M(); var o = new Other(); Util(); }
    static int s;
}
class Other
{
    public Other() { x = 8; }
    int x;
}
`

func TestScopeMonotonicity(t *testing.T) {
	declared := func(archive string, kind syntax.Kind, name string) func() (fixture, *syntax.Node) {
		return func() (fixture, *syntax.Node) {
			f := load(t, archive)
			return f, f.decl(t, kind, name)
		}
	}
	tests := []struct {
		name string
		root func() (fixture, *syntax.Node)
	}{
		{"method root", declared(scopeArchive, syntax.KindMethod, "Root")},
		{"type root", declared(monotonicArchive, syntax.KindType, "M")},
		{"method with creations", declared(monotonicArchive, syntax.KindMethod, "Run")},
		{"constructor root", func() (fixture, *syntax.Node) {
			f := load(t, monotonicArchive)
			return f, syntaxtest.Find(t, f.files, syntax.KindConstructor, "public M() { f = 5; }")
		}},
	}
	for _, tt := range tests {
		f, root := tt.root()

		var prev map[*syntax.Node]bool
		for _, scope := range []Scope{ScopeMember, ScopeInstance, ScopeType, ScopeRecursive} {
			w, err := Walk(context.Background(), root, scope, f.index)
			if err != nil {
				t.Fatal(err)
			}
			cur := map[*syntax.Node]bool{}
			for _, n := range w.Visited() {
				cur[n] = true
			}
			w.Release()
			for n := range prev {
				if !cur[n] {
					t.Errorf("%s: %s lost %v visited by a narrower scope", tt.name, scope, n)
				}
			}
			prev = cur
		}
	}
}

func TestTypeScopeStaticMembers(t *testing.T) {
	f := load(t, monotonicArchive)
	run := f.decl(t, syntax.KindMethod, "Run")

	if got := f.literals(t, run, ScopeType); slices.Contains(got, "2") {
		t.Errorf("type scope followed a static member of a base type: %q", got)
	}
	if got := f.literals(t, run, ScopeRecursive); !slices.Contains(got, "2") {
		t.Errorf("recursive scope skipped Base.Util: %q", got)
	}
}

func TestConstructorChainingCSharp(t *testing.T) {
	f := load(t, `
-- Chain.cs --
class Base
{
    protected int b = 1;
    public Base() { b = 2; }
}
class Derived : Base
{
    int d = 3;
    public Derived() : this(0) { d = 5; }
    public Derived(int v) { d = 4; }
}
`)
	root := syntaxtest.Find(t, f.files, syntax.KindConstructor, "public Derived() : this(0) { d = 5; }")
	if diff := cmp.Diff([]string{"0", "3", "1", "2", "4", "5"}, f.literals(t, root, ScopeInstance)); diff != "" {
		t.Errorf("instance scope (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"0", "5"}, f.literals(t, root, ScopeMember)); diff != "" {
		t.Errorf("member scope (-want +got):\n%s", diff)
	}
}

func TestConstructorChainingJava(t *testing.T) {
	f := load(t, `
-- Chain.java --
class Base {
    int b = 1;
    Base() { b = 2; }
}
class Derived extends Base {
    int d = 3;
    Derived() { this(0); d = 5; }
    Derived(int v) { d = 4; }
}
`)
	root := syntaxtest.Find(t, f.files, syntax.KindConstructor, "Derived() { this(0); d = 5; }")
	if diff := cmp.Diff([]string{"0", "1", "2", "3", "4", "5"}, f.literals(t, root, ScopeInstance)); diff != "" {
		t.Errorf("java initializer placement (-want +got):\n%s", diff)
	}
}

func TestImplicitBaseChain(t *testing.T) {
	f := load(t, `
-- Implicit.cs --
class Root
{
    public Root() { r = 1; }
    int r;
}
class Middle : Root
{
    int m = 2;
}
class Leaf : Middle
{
    public Leaf() { l = 3; }
    int l;
}
`)
	root := f.decl(t, syntax.KindConstructor, "Leaf")
	if diff := cmp.Diff([]string{"2", "1", "3"}, f.literals(t, root, ScopeInstance)); diff != "" {
		t.Errorf("implicit base chain (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"3"}, f.literals(t, root, ScopeMember)); diff != "" {
		t.Errorf("member scope never chains (-want +got):\n%s", diff)
	}
}

func TestObjectCreation(t *testing.T) {
	f := load(t, `
-- C.cs --
class C
{
    public int x = 1;
    public C() { x = 2; }
    public static C Make() { return new C() { x = 3 }; }
    public static Other Foreign() { return new Other(7); }
}
class Other
{
    public Other(int v) { w = 8; }
    int w;
}
`)
	make := f.decl(t, syntax.KindMethod, "Make")
	if diff := cmp.Diff([]string{"1", "2", "3"}, f.literals(t, make, ScopeInstance)); diff != "" {
		t.Errorf("same-type creation (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"3"}, f.literals(t, make, ScopeMember)); diff != "" {
		t.Errorf("member scope creation (-want +got):\n%s", diff)
	}

	foreign := f.decl(t, syntax.KindMethod, "Foreign")
	if diff := cmp.Diff([]string{"7"}, f.literals(t, foreign, ScopeType)); diff != "" {
		t.Errorf("other type under type scope (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"7", "8"}, f.literals(t, foreign, ScopeRecursive)); diff != "" {
		t.Errorf("other type under recursive scope (-want +got):\n%s", diff)
	}
}

func TestPropertyAccessors(t *testing.T) {
	f := load(t, `
-- P.cs --
class P
{
    int v;
    public int Value { get { return v + 100; } set { v = value + 200; } }
    public int Auto { get; set; }

    void Read() { var a = Value; }
    void Write() { Value = 1; }
    void Both() { Value += 1; }
    void Named() { var n = nameof(Value); }
    void Through(P other) { var a = other.Value; }
    void Increment() { Value++; }
    void Decrement() { --Value; }
}
`)
	tests := []struct {
		method string
		want   []string
	}{
		{"Read", []string{"100"}},
		{"Write", []string{"1", "200"}},
		{"Both", []string{"1", "100", "200"}},
		{"Named", nil},
		{"Through", nil},
		{"Increment", []string{"100", "200"}},
		{"Decrement", []string{"100", "200"}},
	}
	for _, tt := range tests {
		got := f.literals(t, f.decl(t, syntax.KindMethod, tt.method), ScopeInstance)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("%s (-want +got):\n%s", tt.method, diff)
		}
	}
	through := f.literals(t, f.decl(t, syntax.KindMethod, "Through"), ScopeRecursive)
	if diff := cmp.Diff([]string{"100"}, through); diff != "" {
		t.Errorf("recursive scope follows other.Value (-want +got):\n%s", diff)
	}
}

func TestWalkErrors(t *testing.T) {
	f := load(t, scopeArchive)
	root := f.decl(t, syntax.KindMethod, "Root")

	if _, err := Walk(context.Background(), nil, ScopeMember, f.index); !errors.Is(err, ErrNilRoot) {
		t.Errorf("nil root: %v", err)
	}
	if _, err := Walk(context.Background(), root, ScopeMember, nil); !errors.Is(err, ErrNilModel) {
		t.Errorf("nil model: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Walk(ctx, root, ScopeInstance, f.index); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled walk: %v", err)
	}
}

func TestWalkLimit(t *testing.T) {
	f := load(t, scopeArchive)
	w, err := Walk(context.Background(), f.decl(t, syntax.KindMethod, "Root"), ScopeRecursive, f.index, WithLimit(5))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Release()
	if len(w.Visited()) != 5 || !w.Truncated() {
		t.Errorf("visited %d, truncated %v", len(w.Visited()), w.Truncated())
	}
}

func TestPooledWalkersStartEmpty(t *testing.T) {
	f := load(t, scopeArchive)
	root := f.decl(t, syntax.KindMethod, "Root")

	for i := 0; i < 3; i++ {
		var observed int
		w, err := Walk(context.Background(), root, ScopeRecursive, f.index, WithObserver(func(*syntax.Node) { observed++ }))
		if err != nil {
			t.Fatal(err)
		}
		if len(w.Visited()) != observed {
			t.Errorf("run %d: visited %d nodes, observed %d", i, len(w.Visited()), observed)
		}
		if w.Visited()[0] != root {
			t.Errorf("run %d: first visited %v, want root", i, w.Visited()[0])
		}
		w.Release()
	}

	r := BorrowRecursion(context.Background(), f.index)
	r.Once("test", TargetMethod, root)
	r.Release()
	r = BorrowRecursion(context.Background(), f.index)
	defer r.Release()
	if r.Len() != 0 {
		t.Errorf("borrowed Recursion carries %d keys", r.Len())
	}
	if !r.Once("test", TargetMethod, root) || r.Once("test", TargetMethod, root) {
		t.Error("Once must accept a key exactly once")
	}
	if !r.Once("other", TargetMethod, root) {
		t.Error("a different caller tag is a different key")
	}
}

func TestWalkWithSharesRecursion(t *testing.T) {
	f := load(t, scopeArchive)
	root := f.decl(t, syntax.KindMethod, "Root")
	rec := BorrowRecursion(context.Background(), f.index)
	defer rec.Release()

	first, err := WalkWith(rec, root, ScopeInstance)
	if err != nil {
		t.Fatal(err)
	}
	n := len(first.Visited())
	first.Release()

	second, err := WalkWith(rec, root, ScopeInstance)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Release()
	if len(second.Visited()) >= n {
		t.Errorf("second walk over a shared Recursion re-entered callees: %d >= %d", len(second.Visited()), n)
	}
}

func TestParseScope(t *testing.T) {
	for _, s := range []Scope{ScopeMember, ScopeInstance, ScopeType, ScopeRecursive} {
		got, err := ParseScope(s.String())
		if err != nil || got != s {
			t.Errorf("ParseScope(%q) = %v, %v", s.String(), got, err)
		}
	}
	if got, err := ParseScope("RECURSIVE"); err != nil || got != ScopeRecursive {
		t.Errorf("case-insensitive parse failed: %v %v", got, err)
	}
	if _, err := ParseScope("everything"); err == nil {
		t.Error("expected error for unknown scope")
	}
}

func TestInjectedPools(t *testing.T) {
	f := load(t, scopeArchive)
	root := f.decl(t, syntax.KindMethod, "Root")
	pools := NewPools(pool.WithDebug())

	w, err := Walk(context.Background(), root, ScopeRecursive, f.index, WithPools(pools))
	if err != nil {
		t.Fatal(err)
	}
	if got := pools.Outstanding(); got != 2 {
		t.Errorf("Outstanding during a walk = %d, want walker and resolver", got)
	}
	w.Release()

	aw, err := BorrowAssignments(context.Background(), root, ScopeInstance, f.index, WithPools(pools))
	if err != nil {
		t.Fatal(err)
	}
	aw.Release()
	mw, err := BorrowMutations(context.Background(), root, ScopeInstance, f.index, WithPools(pools))
	if err != nil {
		t.Fatal(err)
	}
	mw.Release()
	if _, ok := pools.ResolveTarget(context.Background(), syntaxtest.FindText(t, f.files, "Helper()"), f.index); !ok {
		t.Error("ResolveTarget through injected pools failed")
	}
	if got := pools.Outstanding(); got != 0 {
		t.Errorf("Outstanding after release = %d", got)
	}
}

func TestDoubleReleasePanics(t *testing.T) {
	f := load(t, scopeArchive)
	root := f.decl(t, syntax.KindMethod, "Root")

	releaseTwice := map[string]func(*Pools) func(){
		"walker": func(p *Pools) func() {
			w, err := Walk(context.Background(), root, ScopeMember, f.index, WithPools(p))
			if err != nil {
				t.Fatal(err)
			}
			w.Release()
			return w.Release
		},
		"recursion": func(p *Pools) func() {
			r := p.BorrowRecursion(context.Background(), f.index)
			r.Release()
			return r.Release
		},
		"assignments": func(p *Pools) func() {
			aw, err := BorrowAssignments(context.Background(), root, ScopeMember, f.index, WithPools(p))
			if err != nil {
				t.Fatal(err)
			}
			aw.Release()
			return aw.Release
		},
	}
	for name, setup := range releaseTwice {
		again := setup(NewPools(pool.WithDebug()))
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s: second Release did not panic", name)
				}
			}()
			again()
		}()
	}
}
