package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/codebase-execwalk/internal/config"
	"github.com/DeusData/codebase-execwalk/internal/pipeline"
	"github.com/DeusData/codebase-execwalk/internal/store"
	"github.com/DeusData/codebase-execwalk/internal/syntax"
	"github.com/DeusData/codebase-execwalk/internal/walker"
)

// Version is reported to MCP clients. Overridden by the CLI at startup.
var Version = "dev"

// Server wraps the MCP server with tool handlers. Loaded projects are cached
// in memory; the store keeps only what survives a restart.
type Server struct {
	mcp    *mcp.Server
	router *store.StoreRouter

	indexMu sync.Mutex // serializes indexing with the watcher

	mu       sync.Mutex
	projects map[string]*pipeline.Project

	pools *walker.Pools
}

// NewServer creates a new MCP server with all tools registered.
func NewServer(r *store.StoreRouter) *Server {
	srv := &Server{
		router:   r,
		projects: make(map[string]*pipeline.Project),
		pools:    walker.NewPools(),
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "execwalk",
				Version: Version,
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "index_repository",
		Description: "Index a C#/Java repository. Parses every source file, builds the semantic model the walker runs on, and stores declarations with their CALLS, CONSTRUCTS, CHAINS, INHERITS and property read/write edges. Unchanged repositories are not rewritten.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"repo_path": {
					"type": "string",
					"description": "Absolute path to the repository to index"
				}
			},
			"required": ["repo_path"]
		}`),
	}, s.handleIndexRepository)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "walk_execution_order",
		Description: "Walk a type or member in approximate execution order. Follows static initialization, field initializers, constructor chains, invoked methods and property accessors as far as the scope allows. Optionally collects only assignments or mutations.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {
					"type": "string",
					"description": "Project name (optional when exactly one project is indexed)"
				},
				"name": {
					"type": "string",
					"description": "Type or member to walk, e.g. 'Cart', 'Shop.Cart.Add', 'Cart.Add/2' (parameter count), 'Cart.Cart' (constructor), 'Cart.static' (static constructor)"
				},
				"scope": {
					"type": "string",
					"description": "How far to follow references",
					"enum": ["member", "instance", "type", "recursive"]
				},
				"collect": {
					"type": "string",
					"description": "none returns every visited node; assignments and mutations return only those",
					"enum": ["none", "assignments", "mutations"]
				},
				"limit": {
					"type": "integer",
					"description": "Maximum visited nodes (default 1000)"
				}
			},
			"required": ["name"]
		}`),
	}, s.handleWalkExecutionOrder)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "executes_before",
		Description: "Decide whether the code at position a is guaranteed to execute before the code at position b. Answers Before, NotBefore, or Unknown (different members, goto, deferred code).",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {"type": "string", "description": "Project name"},
				"file": {"type": "string", "description": "File path relative to the project root"},
				"a": {"type": "string", "description": "First position as line:col (1-based)"},
				"b": {"type": "string", "description": "Second position as line:col (1-based)"}
			},
			"required": ["file", "a", "b"]
		}`),
	}, s.handleExecutesBefore)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "resolve_target",
		Description: "Resolve the invocation, object creation, constructor initializer, argument or property access at a position to the declaration whose code runs there.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {"type": "string", "description": "Project name"},
				"file": {"type": "string", "description": "File path relative to the project root"},
				"position": {"type": "string", "description": "Position as line:col (1-based)"}
			},
			"required": ["file", "position"]
		}`),
	}, s.handleResolveTarget)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_declaration_source",
		Description: "Return the source text of a type or member, found the same way walk_execution_order finds its root.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {"type": "string", "description": "Project name"},
				"name": {"type": "string", "description": "Type or member, e.g. 'Cart.Add/1'"}
			},
			"required": ["name"]
		}`),
	}, s.handleGetDeclarationSource)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "search_declarations",
		Description: "Search indexed declarations by label, name regex and file glob. Returns each match with its in/out edge degree.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {"type": "string", "description": "Project name"},
				"label": {
					"type": "string",
					"description": "Declaration label",
					"enum": ["Type", "Constructor", "Method", "Property", "Field", "LocalFunction"]
				},
				"name_pattern": {"type": "string", "description": "Regex matched against name, symbol and qualified name"},
				"file_pattern": {"type": "string", "description": "Glob over the relative file path, e.g. 'src/**/*.cs'"},
				"language": {"type": "string", "enum": ["c-sharp", "java"], "description": "Source language"},
				"relationship": {"type": "string", "description": "Edge type the degrees count (default all)"},
				"limit": {"type": "integer", "description": "Max results (default 100)"},
				"offset": {"type": "integer", "description": "Skip N results for pagination"}
			}
		}`),
	}, s.handleSearchDeclarations)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "trace_references",
		Description: "Breadth-first traversal of stored reference edges from a declaration: what it calls, constructs and touches (outbound), who reaches it (inbound), or both.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {"type": "string", "description": "Project name"},
				"qualified_name": {"type": "string", "description": "Qualified name as returned by search_declarations, or an unambiguous symbol such as 'Shop.Cart.Add'"},
				"direction": {"type": "string", "enum": ["outbound", "inbound", "both"], "description": "Default outbound"},
				"edge_types": {
					"type": "array",
					"items": {"type": "string"},
					"description": "Edge types to follow (default all)"
				},
				"depth": {"type": "integer", "description": "Maximum hops (1-5, default 3)"}
			},
			"required": ["qualified_name"]
		}`),
	}, s.handleTraceReferences)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_graph_schema",
		Description: "Summarize an indexed project: declaration counts by label and language, edge counts by type, the most common edge patterns, the most referenced declarations and partial types.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {"type": "string", "description": "Project name"}
			}
		}`),
	}, s.handleGetGraphSchema)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_projects",
		Description: "List indexed projects with their root path, index time and declaration/edge counts.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleListProjects)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "delete_project",
		Description: "Delete an indexed project and its database.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project_name": {"type": "string", "description": "Project to delete"}
			},
			"required": ["project_name"]
		}`),
	}, s.handleDeleteProject)
}

// resolveProjectName returns name, or the only indexed project when name is
// empty.
func (s *Server) resolveProjectName(name string) (string, error) {
	if name != "" {
		if !s.router.HasProject(name) {
			return "", fmt.Errorf("project not found: %s", name)
		}
		return name, nil
	}
	projects, err := s.router.ListProjects()
	if err != nil {
		return "", fmt.Errorf("list projects: %w", err)
	}
	switch len(projects) {
	case 0:
		return "", fmt.Errorf("no indexed projects; run index_repository first")
	case 1:
		return projects[0].Name, nil
	}
	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, p.Name)
	}
	slices.Sort(names)
	return "", fmt.Errorf("project is required (indexed: %s)", strings.Join(names, ", "))
}

// resolveStore returns the project's name and store.
func (s *Server) resolveStore(name string) (string, *store.Store, error) {
	name, err := s.resolveProjectName(name)
	if err != nil {
		return "", nil, err
	}
	st, err := s.router.ForProject(name)
	if err != nil {
		return "", nil, fmt.Errorf("store: %w", err)
	}
	return name, st, nil
}

// loadProject returns the parsed project, loading it from its stored root on
// first use.
func (s *Server) loadProject(ctx context.Context, name string) (*pipeline.Project, error) {
	name, st, err := s.resolveStore(name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	proj, ok := s.projects[name]
	s.mu.Unlock()
	if ok {
		return proj, nil
	}

	info, err := st.GetProject(name)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", name, err)
	}
	if info == nil {
		return nil, fmt.Errorf("project not found: %s", name)
	}
	proj, err = pipeline.Load(ctx, info.RootPath, config.Load(info.RootPath))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	proj.Name = name
	slog.Info("tools.project.loaded", "project", name, "files", len(proj.Files))
	s.cacheProject(proj)
	return proj, nil
}

func (s *Server) cacheProject(proj *pipeline.Project) {
	s.mu.Lock()
	s.projects[proj.Name] = proj
	s.mu.Unlock()
}

func (s *Server) forgetProject(name string) {
	s.mu.Lock()
	delete(s.projects, name)
	s.mu.Unlock()
}

// NodeEntry describes a syntax node in tool output.
type NodeEntry struct {
	Kind  string `json:"kind"`
	Text  string `json:"text"`
	File  string `json:"file"`
	Start string `json:"start"`
	End   string `json:"end"`
}

const maxNodeText = 80

func DescribeNode(n *syntax.Node) NodeEntry {
	text := strings.Join(strings.Fields(n.Text()), " ")
	if len(text) > maxNodeText {
		text = text[:maxNodeText] + "..."
	}
	e := NodeEntry{
		Kind:  n.Kind().String(),
		Text:  text,
		Start: n.Start().String(),
		End:   n.End().String(),
	}
	if f := n.File(); f != nil {
		e.File = f.Path
	}
	return e
}

func describeNodes(nodes []*syntax.Node) []NodeEntry {
	out := make([]NodeEntry, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, DescribeNode(n))
	}
	return out
}

// jsonResult marshals data to JSON and returns as tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

// getStringArg extracts a string argument from parsed args.
func getStringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// getIntArg extracts an integer argument with a default value.
func getIntArg(args map[string]any, key string, defaultVal int) int {
	v, ok := args[key]
	if !ok {
		return defaultVal
	}
	f, ok := v.(float64) // JSON numbers decode as float64
	if !ok {
		return defaultVal
	}
	return int(f)
}

// getStringsArg extracts a string array argument.
func getStringsArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
