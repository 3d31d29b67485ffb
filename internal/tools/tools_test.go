package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/tools/txtar"

	"github.com/DeusData/codebase-execwalk/internal/store"
)

const cartArchive = `
-- src/Cart.cs --
namespace Shop
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

type handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error)

func writeRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range txtar.Parse([]byte(cartArchive)).Files {
		path := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, f.Data, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newTestServer(t *testing.T) (*Server, *store.StoreRouter) {
	t.Helper()
	r, err := store.NewRouterWithDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.CloseAll)
	return NewServer(r), r
}

// call invokes h and returns the result text and error flag.
func call(t *testing.T, h handler, args map[string]any) (string, bool) {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatal(err)
	}
	res, err := h(context.Background(), &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: raw},
	})
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	if len(res.Content) != 1 {
		t.Fatalf("content = %d items", len(res.Content))
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T", res.Content[0])
	}
	return text.Text, res.IsError
}

func callJSON(t *testing.T, h handler, args map[string]any, out any) {
	t.Helper()
	text, isErr := call(t, h, args)
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("decode %q: %v", text, err)
	}
}

func indexRepo(t *testing.T, srv *Server) string {
	t.Helper()
	var res struct {
		Project string `json:"project"`
		Files   int    `json:"files"`
		Nodes   int    `json:"nodes"`
		Edges   int    `json:"edges"`
	}
	callJSON(t, srv.handleIndexRepository, map[string]any{"repo_path": writeRepo(t)}, &res)
	if res.Project == "" || res.Files != 1 || res.Nodes == 0 || res.Edges == 0 {
		t.Fatalf("index result = %+v", res)
	}
	return res.Project
}

func texts(nodes []NodeEntry) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Text)
	}
	return out
}

func TestWalkExecutionOrder(t *testing.T) {
	srv, _ := newTestServer(t)
	project := indexRepo(t, srv)

	tests := []struct {
		scope string
		want  []string
	}{
		{"member", []string{"count = n"}},
		{"instance", []string{"count = n", "count += n", "Total = count"}},
	}
	for _, tt := range tests {
		t.Run(tt.scope, func(t *testing.T) {
			var res WalkResult
			callJSON(t, srv.handleWalkExecutionOrder, map[string]any{
				"project": project,
				"name":    "Cart.Cart",
				"scope":   tt.scope,
				"collect": "assignments",
			}, &res)
			if res.Root.Kind != "Constructor" || res.Root.Start != "7:9" {
				t.Errorf("root = %+v", res.Root)
			}
			if diff := cmp.Diff(tt.want, texts(res.Nodes)); diff != "" {
				t.Errorf("assignments (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWalkExecutionOrderLimit(t *testing.T) {
	srv, _ := newTestServer(t)
	project := indexRepo(t, srv)

	var full, capped WalkResult
	callJSON(t, srv.handleWalkExecutionOrder, map[string]any{"project": project, "name": "Shop.Cart.Add"}, &full)
	if full.Truncated || full.Visited == 0 || len(full.Nodes) != full.Visited || full.Collect != "none" {
		t.Fatalf("full walk = %d nodes, visited %d, truncated %v", len(full.Nodes), full.Visited, full.Truncated)
	}
	if full.Scope != "instance" {
		t.Errorf("default scope = %s", full.Scope)
	}
	callJSON(t, srv.handleWalkExecutionOrder, map[string]any{"project": project, "name": "Shop.Cart.Add", "limit": 2}, &capped)
	if !capped.Truncated || len(capped.Nodes) != 2 {
		t.Errorf("capped walk = %d nodes, truncated %v", len(capped.Nodes), capped.Truncated)
	}
	if diff := cmp.Diff(full.Nodes[:2], capped.Nodes); diff != "" {
		t.Errorf("capped prefix (-full +capped):\n%s", diff)
	}
}

func TestExecutesBefore(t *testing.T) {
	srv, _ := newTestServer(t)
	project := indexRepo(t, srv)

	tests := []struct {
		a, b string
		want string
	}{
		{"9:13", "10:13", "Before"},
		{"10:13", "9:13", "NotBefore"},
		{"9:13", "15:13", "Unknown"},
	}
	for _, tt := range tests {
		var res struct {
			Result string `json:"result"`
		}
		callJSON(t, srv.handleExecutesBefore, map[string]any{
			"project": project, "file": "src/Cart.cs", "a": tt.a, "b": tt.b,
		}, &res)
		if res.Result != tt.want {
			t.Errorf("executes_before(%s, %s) = %s, want %s", tt.a, tt.b, res.Result, tt.want)
		}
	}
}

func TestResolveTarget(t *testing.T) {
	srv, _ := newTestServer(t)
	project := indexRepo(t, srv)

	var res struct {
		Resolved    bool      `json:"resolved"`
		Symbol      string    `json:"symbol"`
		SymbolKind  string    `json:"symbol_kind"`
		Declaration NodeEntry `json:"declaration"`
	}
	callJSON(t, srv.handleResolveTarget, map[string]any{
		"project": project, "file": "src/Cart.cs", "position": "10:13",
	}, &res)
	if !res.Resolved || res.Symbol != "Shop.Cart.Add" || res.SymbolKind != "Method" {
		t.Fatalf("resolve = %+v", res)
	}
	if res.Declaration.Kind != "Method" || res.Declaration.Start != "13:9" {
		t.Errorf("declaration = %+v", res.Declaration)
	}

	var lit struct {
		Resolved bool `json:"resolved"`
	}
	callJSON(t, srv.handleResolveTarget, map[string]any{
		"project": project, "file": "src/Cart.cs", "position": "5:9",
	}, &lit)
	if lit.Resolved {
		t.Error("modifier should not resolve")
	}
}

func TestGetDeclarationSource(t *testing.T) {
	srv, _ := newTestServer(t)
	project := indexRepo(t, srv)

	var res struct {
		Kind      string `json:"kind"`
		StartLine int    `json:"start_line"`
		EndLine   int    `json:"end_line"`
		Source    string `json:"source"`
	}
	callJSON(t, srv.handleGetDeclarationSource, map[string]any{"project": project, "name": "Cart.Add"}, &res)
	if res.Kind != "Method" || res.StartLine != 13 || res.EndLine != 17 {
		t.Errorf("declaration = %+v", res)
	}
	if !strings.Contains(res.Source, "  15 |             count += n;") {
		t.Errorf("source:\n%s", res.Source)
	}
}

func TestSearchAndTrace(t *testing.T) {
	srv, _ := newTestServer(t)
	project := indexRepo(t, srv)

	var found struct {
		Total   int `json:"total"`
		Results []struct {
			QualifiedName string `json:"qualified_name"`
			OutDegree     int    `json:"out_degree"`
		} `json:"results"`
	}
	callJSON(t, srv.handleSearchDeclarations, map[string]any{"label": "Constructor"}, &found)
	if found.Total != 1 || found.Results[0].QualifiedName != project+".Shop.Cart..ctor(int)" {
		t.Fatalf("search = %+v", found)
	}
	if found.Results[0].OutDegree != 1 {
		t.Errorf("constructor out degree = %d", found.Results[0].OutDegree)
	}

	var trace struct {
		Visited []hopEntry  `json:"visited"`
		Edges   []edgeEntry `json:"edges"`
	}
	callJSON(t, srv.handleTraceReferences, map[string]any{
		"qualified_name": found.Results[0].QualifiedName,
	}, &trace)
	want := []edgeEntry{
		{From: project + ".Shop.Cart..ctor(int)", To: project + ".Shop.Cart.Add(int)", Type: store.EdgeCalls, Count: 1},
		{From: project + ".Shop.Cart.Add(int)", To: project + ".Shop.Cart.Total", Type: store.EdgeWritesProperty, Count: 1},
	}
	if diff := cmp.Diff(want, trace.Edges); diff != "" {
		t.Errorf("trace edges (-want +got):\n%s", diff)
	}

	// a symbol name resolves when one declaration carries it
	var both struct {
		Root      hopEntry    `json:"root"`
		Direction string      `json:"direction"`
		Visited   []hopEntry  `json:"visited"`
		Edges     []edgeEntry `json:"edges"`
	}
	callJSON(t, srv.handleTraceReferences, map[string]any{
		"qualified_name": "Shop.Cart.Add",
		"direction":      "both",
		"depth":          1,
	}, &both)
	if both.Root.QualifiedName != project+".Shop.Cart.Add(int)" || both.Direction != "both" {
		t.Fatalf("root = %+v, direction %s", both.Root, both.Direction)
	}
	if diff := cmp.Diff(want, both.Edges); diff != "" {
		t.Errorf("both edges (-want +got):\n%s", diff)
	}
	if len(both.Visited) != 2 || both.Visited[0].Hop != 1 {
		t.Errorf("both visited = %+v", both.Visited)
	}

	var schema struct {
		Schema store.SchemaInfo `json:"schema"`
	}
	callJSON(t, srv.handleGetGraphSchema, map[string]any{"project": project}, &schema)
	if len(schema.Schema.NodeLabels) == 0 || len(schema.Schema.RelationshipTypes) != 2 {
		t.Errorf("schema = %+v", schema.Schema)
	}
}

func TestProjectLifecycle(t *testing.T) {
	srv, r := newTestServer(t)
	project := indexRepo(t, srv)

	var listed []struct {
		Name     string `json:"name"`
		RootPath string `json:"root_path"`
		Files    int    `json:"files"`
		Nodes    int    `json:"nodes"`
		Loaded   bool   `json:"loaded"`
	}
	callJSON(t, srv.handleListProjects, nil, &listed)
	if len(listed) != 1 || listed[0].Name != project || listed[0].Files != 1 || listed[0].Nodes == 0 || !listed[0].Loaded {
		t.Fatalf("list = %+v", listed)
	}

	// A fresh server loads the project from its stored root.
	fresh := NewServer(r)
	var res WalkResult
	callJSON(t, fresh.handleWalkExecutionOrder, map[string]any{"name": "Cart.Add", "scope": "member"}, &res)
	if len(res.Nodes) == 0 {
		t.Error("lazy-loaded walk visited nothing")
	}

	var deleted map[string]string
	callJSON(t, srv.handleDeleteProject, map[string]any{"project_name": project}, &deleted)
	if deleted["deleted"] != project {
		t.Errorf("delete = %v", deleted)
	}
	if r.HasProject(project) {
		t.Error("database survived delete")
	}
	if _, isErr := call(t, srv.handleWalkExecutionOrder, map[string]any{"project": project, "name": "Cart"}); !isErr {
		t.Error("walk after delete should fail")
	}
}

func TestToolErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	if text, isErr := call(t, srv.handleWalkExecutionOrder, map[string]any{"name": "Cart"}); !isErr || !strings.Contains(text, "no indexed projects") {
		t.Errorf("walk without projects = %q, %v", text, isErr)
	}
	project := indexRepo(t, srv)

	tests := []struct {
		name string
		h    handler
		args map[string]any
		want string
	}{
		{"missing repo", srv.handleIndexRepository, map[string]any{}, "repo_path is required"},
		{"repo not dir", srv.handleIndexRepository, map[string]any{"repo_path": filepath.Join(t.TempDir(), "nope")}, "not a directory"},
		{"missing name", srv.handleWalkExecutionOrder, map[string]any{"project": project}, "name is required"},
		{"bad scope", srv.handleWalkExecutionOrder, map[string]any{"name": "Cart", "scope": "galaxy"}, "unknown scope"},
		{"bad collect", srv.handleWalkExecutionOrder, map[string]any{"name": "Cart", "collect": "reads"}, "unknown collect"},
		{"not found", srv.handleWalkExecutionOrder, map[string]any{"name": "Missing"}, "not found"},
		{"unknown member", srv.handleWalkExecutionOrder, map[string]any{"name": "Cart.Nope"}, "not found"},
		{"unknown project", srv.handleWalkExecutionOrder, map[string]any{"project": "nope", "name": "Cart"}, "project not found"},
		{"bad position", srv.handleExecutesBefore, map[string]any{"file": "src/Cart.cs", "a": "9", "b": "10:1"}, "want line:col"},
		{"unknown file", srv.handleResolveTarget, map[string]any{"file": "src/Nope.cs", "position": "1:1"}, "not found"},
		{"unknown qn", srv.handleTraceReferences, map[string]any{"qualified_name": "x.Y"}, "declaration not found"},
		{"bad direction", srv.handleTraceReferences, map[string]any{"qualified_name": project + ".Shop.Cart", "direction": "up"}, "direction"},
		{"bad regex", srv.handleSearchDeclarations, map[string]any{"name_pattern": "("}, "search"},
		{"delete unknown", srv.handleDeleteProject, map[string]any{"project_name": "nope"}, "project not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := call(t, tt.h, tt.args)
			if !isErr {
				t.Fatalf("expected error result, got %s", text)
			}
			if !strings.Contains(text, tt.want) {
				t.Errorf("error %q does not mention %q", text, tt.want)
			}
		})
	}
}
