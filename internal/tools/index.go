package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/codebase-execwalk/internal/pipeline"
)

// Reindex runs the indexing pipeline for a project and refreshes its cached
// parse. It is the watcher's callback.
func (s *Server) Reindex(ctx context.Context, projectName, rootPath string) error {
	// Lock to prevent concurrent indexing with auto-sync watcher
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	st, err := s.router.ForProject(projectName)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	p := pipeline.New(ctx, st, rootPath, nil)
	p.ProjectName = projectName
	proj, err := p.Run()
	if err != nil {
		return err
	}
	s.cacheProject(proj)
	return nil
}

func (s *Server) handleIndexRepository(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	repoPath := getStringArg(args, "repo_path")
	if repoPath == "" {
		return errResult("repo_path is required"), nil
	}

	// Resolve to absolute path
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return errResult(fmt.Sprintf("invalid path: %v", err)), nil
	}
	if fi, statErr := os.Stat(absPath); statErr != nil || !fi.IsDir() {
		return errResult(fmt.Sprintf("not a directory: %s", absPath)), nil
	}

	projectName := pipeline.ProjectNameFromPath(absPath)
	if err := s.Reindex(ctx, projectName, absPath); err != nil {
		return errResult(fmt.Sprintf("indexing failed: %v", err)), nil
	}

	st, err := s.router.ForProject(projectName)
	if err != nil {
		return errResult(fmt.Sprintf("store: %v", err)), nil
	}
	stats, err := st.Stats(projectName)
	if err != nil || stats == nil {
		return errResult(fmt.Sprintf("project stats: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"project":    projectName,
		"files":      stats.Files,
		"nodes":      stats.Nodes,
		"edges":      stats.Edges,
		"indexed_at": stats.IndexedAt,
	}), nil
}
