package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DeusData/codebase-execwalk/internal/tools"
)

const cartSource = `namespace Shop
{
    public class Cart
    {
        private int count;

        public Cart(int n)
        {
            count = n;
            Add(1);
        }

        public void Add(int n)
        {
            count += n;
            Total = count;
        }

        public int Total { get; set; }
    }
}
`

func writeCart(t *testing.T) (dir, file string) {
	t.Helper()
	dir = t.TempDir()
	file = filepath.Join(dir, "Cart.cs")
	if err := os.WriteFile(file, []byte(cartSource), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir, file
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("execwalk %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestVersion(t *testing.T) {
	if out := mustRun(t, "--version"); out != "execwalk dev\n" {
		t.Errorf("version = %q", out)
	}
}

func TestWalkFile(t *testing.T) {
	_, file := writeCart(t)
	out := mustRun(t, "walk", file, "Cart.Cart", "--scope", "member", "--collect", "assignments")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("output:\n%s", out)
	}
	if !strings.HasPrefix(lines[0], "Constructor ") || !strings.Contains(lines[0], "scope member") {
		t.Errorf("header = %q", lines[0])
	}
	if f := strings.Fields(lines[1]); len(f) < 2 || f[0] != "Cart.cs:9:13" || f[1] != "Assignment" || !strings.HasSuffix(lines[1], "count = n") {
		t.Errorf("assignment line = %q", lines[1])
	}
}

func TestWalkJSON(t *testing.T) {
	dir, _ := writeCart(t)
	out := mustRun(t, "walk", dir, "Cart.Cart", "-s", "instance", "-c", "mutations", "--json")
	var res tools.WalkResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if res.Scope != "instance" || res.Collect != "mutations" || len(res.Nodes) == 0 {
		t.Errorf("walk = %+v", res)
	}
	for _, n := range res.Nodes {
		if n.File != "Cart.cs" {
			t.Errorf("mutation outside Cart.cs: %+v", n)
		}
	}
}

func TestWalkLimit(t *testing.T) {
	_, file := writeCart(t)
	out := mustRun(t, "walk", file, "Cart.Add", "-n", "1")
	if !strings.Contains(out, "... truncated") {
		t.Errorf("output:\n%s", out)
	}
}

func TestBefore(t *testing.T) {
	_, file := writeCart(t)
	tests := []struct {
		a, b string
		want string
	}{
		{"9:13", "10:13", "Before"},
		{"10:13", "9:13", "NotBefore"},
		{"9:13", "15:13", "Unknown"},
	}
	for _, tt := range tests {
		if out := mustRun(t, "before", file, tt.a, tt.b); strings.TrimSpace(out) != tt.want {
			t.Errorf("before %s %s = %q, want %s", tt.a, tt.b, out, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	dir, _ := writeCart(t)
	out := mustRun(t, "resolve", "Cart.cs", "10:13", "--repo", dir)
	if !strings.Contains(out, "-> Method Shop.Cart.Add (Method at Cart.cs:13:9)") {
		t.Errorf("resolve = %q", out)
	}
}

func TestAST(t *testing.T) {
	_, file := writeCart(t)
	out := mustRun(t, "ast", file)
	if !strings.Contains(out, "Type [class_declaration] 3:5") {
		t.Errorf("normalized tree missing class:\n%s", out)
	}
	raw := mustRun(t, "ast", "--raw", file)
	if !strings.Contains(raw, "class_declaration 3:5") || !strings.Contains(raw, "name: identifier") {
		t.Errorf("raw tree:\n%s", raw)
	}
}

func TestIndex(t *testing.T) {
	dir, _ := writeCart(t)
	cache := t.TempDir()
	out := mustRun(t, "index", dir, "--cache-dir", cache)
	if !strings.Contains(out, ": 1 files, ") {
		t.Errorf("index = %q", out)
	}
	dbs, _ := filepath.Glob(filepath.Join(cache, "*.db"))
	if len(dbs) != 1 {
		t.Errorf("databases = %v", dbs)
	}
}

func TestCommandErrors(t *testing.T) {
	dir, file := writeCart(t)
	readme := filepath.Join(dir, "README.md")
	if err := os.WriteFile(readme, []byte("# cart\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unsupported file", []string{"walk", readme, "Cart"}, "not a C# or Java file"},
		{"bad scope", []string{"walk", file, "Cart", "--scope", "galaxy"}, "unknown scope"},
		{"bad collect", []string{"walk", file, "Cart", "--collect", "reads"}, "unknown collect"},
		{"missing declaration", []string{"walk", file, "Basket"}, "not found"},
		{"bad position", []string{"before", file, "9", "10:13"}, "want line:col"},
		{"outside file", []string{"resolve", file, "400:1"}, "no node at position"},
		{"index file", []string{"index", file}, "not a directory"},
		{"arg count", []string{"before", file, "9:13"}, "accepts 3 arg(s)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}
