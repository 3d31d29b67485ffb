package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/codebase-execwalk/internal/store"
)

const maxTraceResults = 200

type hopEntry struct {
	Hop           int    `json:"hop"`
	Name          string `json:"name"`
	QualifiedName string `json:"qualified_name"`
	Label         string `json:"label"`
	FilePath      string `json:"file_path"`
	StartLine     int    `json:"start_line"`
}

type edgeEntry struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Type  string `json:"type"`
	Count int    `json:"count"`
}

func (s *Server) handleTraceReferences(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	qn := getStringArg(args, "qualified_name")
	if qn == "" {
		return errResult("qualified_name is required"), nil
	}

	depth := getIntArg(args, "depth", 3)
	if depth < 1 {
		depth = 1
	}
	if depth > 5 {
		depth = 5
	}

	direction := store.Direction(getStringArg(args, "direction"))
	switch direction {
	case "":
		direction = store.Outbound
	case store.Outbound, store.Inbound, store.Both:
	default:
		return errResult(fmt.Sprintf("invalid direction %q: use outbound, inbound or both", direction)), nil
	}

	projName, st, err := s.resolveStore(getStringArg(args, "project"))
	if err != nil {
		return errResult(err.Error()), nil
	}

	rootNode, err := findDeclaration(st, projName, qn)
	if err != nil {
		return errResult(err.Error()), nil
	}

	result, err := st.BFS(rootNode.ID, direction, getStringsArg(args, "edge_types"), depth, maxTraceResults)
	if err != nil {
		return errResult(fmt.Sprintf("trace: %v", err)), nil
	}

	hops := make([]hopEntry, 0, len(result.Visited))
	for _, h := range result.Visited {
		hops = append(hops, hopEntry{
			Hop:           h.Hop,
			Name:          h.Node.Name,
			QualifiedName: h.Node.QualifiedName,
			Label:         h.Node.Label,
			FilePath:      h.Node.FilePath,
			StartLine:     h.Node.StartLine,
		})
	}
	edges := make([]edgeEntry, 0, len(result.Edges))
	for _, e := range result.Edges {
		edges = append(edges, edgeEntry{From: e.From, To: e.To, Type: e.Type, Count: e.Count})
	}

	return jsonResult(map[string]any{
		"root": map[string]any{
			"name":           rootNode.Name,
			"qualified_name": rootNode.QualifiedName,
			"label":          rootNode.Label,
			"file_path":      rootNode.FilePath,
			"start_line":     rootNode.StartLine,
		},
		"direction": string(direction),
		"visited":   hops,
		"edges":     edges,
	}), nil
}

// findDeclaration accepts a stored qualified name, with or without the
// project prefix, or a symbol name that only one declaration carries.
func findDeclaration(st *store.Store, project, name string) (*store.Node, error) {
	for _, qn := range []string{name, project + "." + name} {
		n, err := st.FindNodeByQN(project, qn)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", name, err)
		}
		if n != nil {
			return n, nil
		}
	}
	nodes, err := st.FindNodesBySymbol(project, name)
	if err != nil {
		return nil, err
	}
	switch len(nodes) {
	case 0:
		return nil, fmt.Errorf("declaration not found: %s", name)
	case 1:
		return nodes[0], nil
	}
	qns := make([]string, 0, len(nodes))
	for _, n := range nodes {
		qns = append(qns, n.QualifiedName)
	}
	return nil, fmt.Errorf("%s is ambiguous: %s", name, strings.Join(qns, ", "))
}
