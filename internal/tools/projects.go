package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleListProjects(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.router.ListProjects()
	if err != nil {
		return errResult(fmt.Sprintf("list projects: %v", err)), nil
	}

	type projectEntry struct {
		Name      string `json:"name"`
		RootPath  string `json:"root_path"`
		IndexedAt string `json:"indexed_at"`
		Files     int    `json:"files"`
		Nodes     int    `json:"nodes"`
		Edges     int    `json:"edges"`
		Loaded    bool   `json:"loaded"`
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]projectEntry, 0, len(projects))
	for _, p := range projects {
		_, loaded := s.projects[p.Name]
		result = append(result, projectEntry{
			Name:      p.Name,
			RootPath:  p.RootPath,
			IndexedAt: p.IndexedAt,
			Files:     p.Files,
			Nodes:     p.Nodes,
			Edges:     p.Edges,
			Loaded:    loaded,
		})
	}
	return jsonResult(result), nil
}

func (s *Server) handleDeleteProject(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	name := getStringArg(args, "project_name")
	if name == "" {
		return errResult("project_name is required"), nil
	}
	if !s.router.HasProject(name) {
		return errResult(fmt.Sprintf("project not found: %s", name)), nil
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	if err := s.router.DeleteProject(name); err != nil {
		return errResult(fmt.Sprintf("delete failed: %v", err)), nil
	}
	s.forgetProject(name)

	return jsonResult(map[string]any{
		"deleted": name,
		"status":  "ok",
	}), nil
}
