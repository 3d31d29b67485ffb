package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleGetGraphSchema(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	projName, st, err := s.resolveStore(getStringArg(args, "project"))
	if err != nil {
		return errResult(err.Error()), nil
	}

	schema, err := st.GetSchema(projName)
	if err != nil {
		return errResult(fmt.Sprintf("schema: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"project": projName,
		"schema":  schema,
	}), nil
}
