package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleGetDeclarationSource(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	name := getStringArg(args, "name")
	if name == "" {
		return errResult("name is required"), nil
	}

	proj, err := s.loadProject(ctx, getStringArg(args, "project"))
	if err != nil {
		return errResult(err.Error()), nil
	}
	decl, err := proj.FindDeclaration(name)
	if err != nil {
		return errResult(err.Error()), nil
	}

	f := decl.File()
	return jsonResult(map[string]any{
		"name":       name,
		"kind":       decl.Kind().String(),
		"file_path":  f.Path,
		"start_line": decl.Start().Line,
		"end_line":   decl.End().Line,
		"source":     readLines(f.Source, decl.Start().Line, decl.End().Line),
	}), nil
}

// readLines returns lines startLine..endLine (1-based, inclusive) of source,
// each prefixed with its line number.
func readLines(source []byte, startLine, endLine int) string {
	var sb strings.Builder
	for i, line := range strings.Split(string(source), "\n") {
		lineNum := i + 1
		if lineNum > endLine {
			break
		}
		if lineNum >= startLine {
			fmt.Fprintf(&sb, "%4d | %s\n", lineNum, strings.TrimRight(line, "\r"))
		}
	}
	return sb.String()
}
