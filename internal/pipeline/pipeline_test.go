package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/txtar"

	"github.com/DeusData/codebase-execwalk/internal/config"
	"github.com/DeusData/codebase-execwalk/internal/store"
	"github.com/DeusData/codebase-execwalk/internal/syntax"
)

const shopArchive = `
-- src/Shop/Cart.cs --
namespace Shop
{
    public class Entity
    {
        public Entity() { }
    }

    public class Cart : Entity
    {
        private int count;
        public int Count { get { return count; } set { count = value; } }

        public Cart() : this(0) { }

        public Cart(int initial)
        {
            Count = initial;
        }

        public void Add(int amount)
        {
            Count += amount;
            Log();
        }

        public void Add(int amount, string note)
        {
            Add(amount);
        }

        private void Log() { }
    }
}
-- src/Shop/Checkout.cs --
namespace Shop
{
    public class Checkout
    {
        public int Run()
        {
            var cart = new Cart();
            cart.Add(2);
            return cart.Count;
        }

        public Receipt Finish() => new Receipt();
    }

    public class Receipt { }
}
-- java/shop/Basket.java --
package shop;

public class Basket {
    void fill() {
        helper();
    }

    private void helper() {}
}
-- obj/Generated.cs --
namespace Shop { public class Ignored { } }
-- README.md --
not source
`

func writeArchive(t *testing.T, archive string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range txtar.Parse([]byte(archive)).Files {
		path := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, f.Data, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func runPipeline(t *testing.T, s *store.Store, dir string) (*Pipeline, *Project) {
	t.Helper()
	p := New(context.Background(), s, dir, nil)
	proj, err := p.Run()
	if err != nil {
		t.Fatalf("Pipeline.Run: %v", err)
	}
	return p, proj
}

func TestLoad(t *testing.T) {
	dir := writeArchive(t, shopArchive)
	proj, err := Load(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var paths []string
	for _, f := range proj.Files {
		paths = append(paths, f.Path)
	}
	sort.Strings(paths)
	want := []string{"java/shop/Basket.java", "src/Shop/Cart.cs", "src/Shop/Checkout.cs"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	if proj.File("src/Shop/Cart.cs") == nil {
		t.Error("File(src/Shop/Cart.cs) = nil")
	}
	if len(proj.Hashes()) != 3 {
		t.Errorf("Hashes = %v", proj.Hashes())
	}
	if proj.Name != ProjectNameFromPath(dir) {
		t.Errorf("Name = %q", proj.Name)
	}
}

func TestLoadExcludePaths(t *testing.T) {
	dir := writeArchive(t, shopArchive)
	cfg := config.Default()
	cfg.Discover.ExcludePaths = []string{"java"}
	proj, err := Load(context.Background(), dir, cfg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(proj.Files) != 2 || proj.File("java/shop/Basket.java") != nil {
		t.Errorf("java not excluded: %d files", len(proj.Files))
	}
}

func TestLoadCancelled(t *testing.T) {
	dir := writeArchive(t, shopArchive)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, dir, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Load err = %v, want context.Canceled", err)
	}
}

func TestFindDeclaration(t *testing.T) {
	dir := writeArchive(t, shopArchive)
	proj, err := Load(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name     string
		wantKind syntax.Kind
		wantLine int
		wantErr  error
	}{
		{"Cart", syntax.KindType, 8, nil},
		{"Shop.Cart", syntax.KindType, 8, nil},
		{"Cart.Log", syntax.KindMethod, 31, nil},
		{"Shop.Cart.Add/2", syntax.KindMethod, 26, nil},
		{"Cart.Add/1", syntax.KindMethod, 20, nil},
		{"Cart.Cart/1", syntax.KindConstructor, 15, nil},
		{"Cart..ctor/0", syntax.KindConstructor, 13, nil},
		{"Basket.fill", syntax.KindMethod, 4, nil},
		{"Cart.Add", 0, 0, ErrAmbiguous},
		{"Cart.Cart", 0, 0, ErrAmbiguous},
		{"Cart.Missing", 0, 0, ErrNotFound},
		{"Nowhere.Run", 0, 0, ErrNotFound},
		{"Receipt.Receipt", 0, 0, ErrNotFound},
		{"", 0, 0, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := proj.FindDeclaration(tt.name)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindDeclaration: %v", err)
			}
			if n.Kind() != tt.wantKind || n.Start().Line != tt.wantLine {
				t.Errorf("got %s at line %d, want %s at line %d", n.Kind(), n.Start().Line, tt.wantKind, tt.wantLine)
			}
		})
	}
}

func TestNodeAt(t *testing.T) {
	dir := writeArchive(t, shopArchive)
	proj, err := Load(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// "Log();" inside Cart.Add(int)
	n, err := proj.NodeAt("src/Shop/Cart.cs", 23, 13)
	if err != nil {
		t.Fatalf("NodeAt: %v", err)
	}
	if n.Kind() != syntax.KindIdentifier || n.Text() != "Log" {
		t.Errorf("NodeAt = %s %q, want identifier Log", n.Kind(), n.Text())
	}

	if _, err := proj.NodeAt("src/Missing.cs", 1, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file err = %v", err)
	}
	if _, err := proj.NodeAt("src/Shop/Cart.cs", 500, 1); err == nil {
		t.Error("expected error past end of file")
	}
}

func edgeSet(t *testing.T, s *store.Store, project string) []string {
	t.Helper()
	nodes, err := s.FindNodesByLabel(project, store.LabelMethod)
	if err != nil {
		t.Fatal(err)
	}
	for _, label := range []string{store.LabelConstructor, store.LabelType} {
		more, err := s.FindNodesByLabel(project, label)
		if err != nil {
			t.Fatal(err)
		}
		nodes = append(nodes, more...)
	}
	prefix := len(project) + 1
	var out []string
	for _, n := range nodes {
		edges, err := s.EdgesOf(n.ID, store.Outbound)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range edges {
			tgt, err := s.FindNodeByID(e.TargetID)
			if err != nil || tgt == nil {
				t.Fatalf("edge target %d: %v", e.TargetID, err)
			}
			out = append(out, n.QualifiedName[prefix:]+" "+e.Type+" "+tgt.QualifiedName[prefix:])
		}
	}
	sort.Strings(out)
	return out
}

func TestPipelineRun(t *testing.T) {
	dir := writeArchive(t, shopArchive)
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	p, proj := runPipeline(t, s, dir)
	if proj == nil || proj.Index == nil {
		t.Fatal("Run returned no project")
	}

	for _, qn := range []string{
		"Shop.Cart",
		"Shop.Cart..ctor()",
		"Shop.Cart..ctor(int)",
		"Shop.Cart.Add(int)",
		"Shop.Cart.Add(int,string)",
		"Shop.Cart.Count",
		"Shop.Cart.count",
		"Shop.Receipt",
		"shop.Basket.fill()",
	} {
		n, err := s.FindNodeByQN(p.ProjectName, p.ProjectName+"."+qn)
		if err != nil || n == nil {
			t.Errorf("node %s missing (err=%v)", qn, err)
		}
	}
	if n, _ := s.FindNodeByQN(p.ProjectName, p.ProjectName+".Shop.Ignored"); n != nil {
		t.Error("obj/ should be ignored")
	}

	ctor, _ := s.FindNodeByQN(p.ProjectName, p.ProjectName+".Shop.Cart..ctor(int)")
	if ctor != nil && (ctor.Name != "Cart" || ctor.Label != store.LabelConstructor || ctor.FilePath != "src/Shop/Cart.cs") {
		t.Errorf("constructor node = %+v", ctor)
	}

	prop, _ := s.FindNodeByQN(p.ProjectName, p.ProjectName+".Shop.Cart.Count")
	if prop == nil || prop.Symbol != "Shop.Cart.Count" || prop.Language != "c-sharp" || prop.TypeName != "int" || prop.Static {
		t.Errorf("property node = %+v", prop)
	}

	want := []string{
		"Shop.Cart INHERITS Shop.Entity",
		"Shop.Cart..ctor() CHAINS Shop.Cart..ctor(int)",
		"Shop.Cart..ctor(int) WRITES_PROPERTY Shop.Cart.Count",
		"Shop.Cart.Add(int) CALLS Shop.Cart.Log()",
		"Shop.Cart.Add(int) READS_PROPERTY Shop.Cart.Count",
		"Shop.Cart.Add(int) WRITES_PROPERTY Shop.Cart.Count",
		"Shop.Cart.Add(int,string) CALLS Shop.Cart.Add(int)",
		"Shop.Checkout.Finish() CONSTRUCTS Shop.Receipt",
		"Shop.Checkout.Run() CALLS Shop.Cart.Add(int)",
		"Shop.Checkout.Run() CONSTRUCTS Shop.Cart..ctor()",
		"Shop.Checkout.Run() READS_PROPERTY Shop.Cart.Count",
		"shop.Basket.fill() CALLS shop.Basket.helper()",
	}
	if diff := cmp.Diff(want, edgeSet(t, s, p.ProjectName)); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}

	hashes, _ := s.GetFileHashes(p.ProjectName)
	if diff := cmp.Diff(proj.Hashes(), hashes); diff != "" {
		t.Errorf("stored hashes mismatch (-loaded +stored):\n%s", diff)
	}
}

func TestPipelineIncremental(t *testing.T) {
	dir := writeArchive(t, shopArchive)
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	p, _ := runPipeline(t, s, dir)
	before, _ := s.CountNodes(p.ProjectName)

	// unchanged: the rows survive untouched
	n1, _ := s.FindNodeByQN(p.ProjectName, p.ProjectName+".Shop.Cart")
	runPipeline(t, s, dir)
	n2, _ := s.FindNodeByQN(p.ProjectName, p.ProjectName+".Shop.Cart")
	if n1 == nil || n2 == nil || n1.ID != n2.ID {
		t.Errorf("no-op reindex rewrote rows: %v -> %v", n1, n2)
	}

	// a removed file drops its declarations
	if err := os.Remove(filepath.Join(dir, "java", "shop", "Basket.java")); err != nil {
		t.Fatal(err)
	}
	runPipeline(t, s, dir)
	after, _ := s.CountNodes(p.ProjectName)
	if after >= before {
		t.Errorf("nodes after removal = %d, want fewer than %d", after, before)
	}
	if n, _ := s.FindNodeByQN(p.ProjectName, p.ProjectName+".shop.Basket"); n != nil {
		t.Error("Basket still indexed after removal")
	}
	hashes, _ := s.GetFileHashes(p.ProjectName)
	if _, ok := hashes["java/shop/Basket.java"]; ok {
		t.Error("hash of removed file kept")
	}

	// an edited file is picked up
	path := filepath.Join(dir, "src", "Shop", "Checkout.cs")
	src, _ := os.ReadFile(path)
	src = append(src, []byte("\nnamespace Shop { public class Coupon { } }\n")...)
	if err := os.WriteFile(path, src, 0o600); err != nil {
		t.Fatal(err)
	}
	runPipeline(t, s, dir)
	if n, _ := s.FindNodeByQN(p.ProjectName, p.ProjectName+".Shop.Coupon"); n == nil {
		t.Error("Coupon not indexed after edit")
	}
}

func TestClassify(t *testing.T) {
	changed, removed := classify(
		map[string]string{"a.cs": "1", "b.cs": "2", "c.cs": "3"},
		map[string]string{"a.cs": "1", "b.cs": "x", "d.cs": "4"},
	)
	if changed != 2 || removed != 1 {
		t.Errorf("classify = %d changed, %d removed; want 2, 1", changed, removed)
	}
}

func TestProjectNameFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/home/user/shop", "home-user-shop"},
		{"/", "root"},
		{"/srv/app/", "srv-app"},
	}
	for _, tt := range tests {
		if got := ProjectNameFromPath(tt.path); got != tt.want {
			t.Errorf("ProjectNameFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
