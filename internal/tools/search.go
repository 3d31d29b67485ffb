package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/codebase-execwalk/internal/store"
)

func (s *Server) handleSearchDeclarations(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	projName, st, err := s.resolveStore(getStringArg(args, "project"))
	if err != nil {
		return errResult(err.Error()), nil
	}

	output, err := st.Search(store.SearchParams{
		Project:      projName,
		Label:        getStringArg(args, "label"),
		NamePattern:  getStringArg(args, "name_pattern"),
		FilePattern:  getStringArg(args, "file_pattern"),
		Language:     getStringArg(args, "language"),
		Relationship: getStringArg(args, "relationship"),
		Limit:        getIntArg(args, "limit", 100),
		Offset:       getIntArg(args, "offset", 0),
	})
	if err != nil {
		return errResult(fmt.Sprintf("search: %v", err)), nil
	}

	type resultEntry struct {
		Name          string `json:"name"`
		QualifiedName string `json:"qualified_name"`
		Symbol        string `json:"symbol"`
		Label         string `json:"label"`
		FilePath      string `json:"file_path"`
		StartLine     int    `json:"start_line"`
		EndLine       int    `json:"end_line"`
		InDegree      int    `json:"in_degree"`
		OutDegree     int    `json:"out_degree"`
	}

	results := make([]resultEntry, 0, len(output.Results))
	for _, r := range output.Results {
		results = append(results, resultEntry{
			Name:          r.Node.Name,
			QualifiedName: r.Node.QualifiedName,
			Symbol:        r.Node.Symbol,
			Label:         r.Node.Label,
			FilePath:      r.Node.FilePath,
			StartLine:     r.Node.StartLine,
			EndLine:       r.Node.EndLine,
			InDegree:      r.InDegree,
			OutDegree:     r.OutDegree,
		})
	}

	return jsonResult(map[string]any{
		"project":  projName,
		"total":    output.Total,
		"results":  results,
		"has_more": output.Total > getIntArg(args, "offset", 0)+len(results),
	}), nil
}
