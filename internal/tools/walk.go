package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/codebase-execwalk/internal/config"
	"github.com/DeusData/codebase-execwalk/internal/order"
	"github.com/DeusData/codebase-execwalk/internal/pipeline"
	"github.com/DeusData/codebase-execwalk/internal/syntax"
	"github.com/DeusData/codebase-execwalk/internal/walker"
)

const defaultWalkLimit = 1000

// WalkResult is the output of walk_execution_order.
type WalkResult struct {
	Root      NodeEntry   `json:"root"`
	Scope     string      `json:"scope"`
	Collect   string      `json:"collect"`
	Visited   int         `json:"visited"`
	Truncated bool        `json:"truncated"`
	Nodes     []NodeEntry `json:"nodes"`
}

// WalkNodes walks root and returns the visited nodes, or only the
// assignments or mutations when collect asks for them. extra options are
// applied after the visit limit.
func WalkNodes(ctx context.Context, proj *pipeline.Project, root *syntax.Node, scope walker.Scope, collect string, limit int, extra ...walker.Option) (*WalkResult, error) {
	res := &WalkResult{Root: DescribeNode(root), Scope: scope.String(), Collect: collect}
	opts := append([]walker.Option{walker.WithLimit(limit)}, extra...)
	switch collect {
	case "", "none":
		res.Collect = "none"
		w, err := walker.Walk(ctx, root, scope, proj.Index, opts...)
		if err != nil {
			return nil, err
		}
		defer w.Release()
		res.Visited, res.Truncated = len(w.Visited()), w.Truncated()
		res.Nodes = describeNodes(w.Visited())
	case "assignments":
		aw, err := walker.BorrowAssignments(ctx, root, scope, proj.Index, opts...)
		if err != nil {
			return nil, err
		}
		defer aw.Release()
		res.Visited, res.Truncated = len(aw.Visited()), aw.Truncated()
		res.Nodes = describeNodes(aw.Assignments())
	case "mutations":
		mw, err := walker.BorrowMutations(ctx, root, scope, proj.Index, opts...)
		if err != nil {
			return nil, err
		}
		defer mw.Release()
		res.Visited, res.Truncated = len(mw.Visited()), mw.Truncated()
		res.Nodes = describeNodes(mw.Mutations())
	default:
		return nil, fmt.Errorf("unknown collect %q (want none, assignments or mutations)", collect)
	}
	return res, nil
}

func (s *Server) handleWalkExecutionOrder(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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
	cfg := config.Load(proj.Root)

	scope := cfg.EffectiveScope()
	if raw := getStringArg(args, "scope"); raw != "" {
		if scope, err = walker.ParseScope(raw); err != nil {
			return errResult(err.Error()), nil
		}
	}
	limit := getIntArg(args, "limit", defaultWalkLimit)
	if capped := cfg.EffectiveMaxVisited(); capped > 0 && (limit <= 0 || limit > capped) {
		limit = capped
	}

	root, err := proj.FindDeclaration(name)
	if err != nil {
		return errResult(err.Error()), nil
	}
	res, err := WalkNodes(ctx, proj, root, scope, getStringArg(args, "collect"), limit, walker.WithPools(s.pools))
	if err != nil {
		return errResult(fmt.Sprintf("walk %s: %v", name, err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleExecutesBefore(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	file := getStringArg(args, "file")
	if file == "" {
		return errResult("file is required"), nil
	}
	pa, err := syntax.ParsePosition(getStringArg(args, "a"))
	if err != nil {
		return errResult(err.Error()), nil
	}
	pb, err := syntax.ParsePosition(getStringArg(args, "b"))
	if err != nil {
		return errResult(err.Error()), nil
	}

	proj, err := s.loadProject(ctx, getStringArg(args, "project"))
	if err != nil {
		return errResult(err.Error()), nil
	}
	a, err := proj.NodeAt(file, pa.Line, pa.Column)
	if err != nil {
		return errResult(err.Error()), nil
	}
	b, err := proj.NodeAt(file, pb.Line, pb.Column)
	if err != nil {
		return errResult(err.Error()), nil
	}

	return jsonResult(map[string]any{
		"a":      DescribeNode(a),
		"b":      DescribeNode(b),
		"result": order.ExecutesBefore(a, b).String(),
	}), nil
}

func (s *Server) handleResolveTarget(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	file := getStringArg(args, "file")
	if file == "" {
		return errResult("file is required"), nil
	}
	pos, err := syntax.ParsePosition(getStringArg(args, "position"))
	if err != nil {
		return errResult(err.Error()), nil
	}

	proj, err := s.loadProject(ctx, getStringArg(args, "project"))
	if err != nil {
		return errResult(err.Error()), nil
	}
	n, err := proj.NodeAt(file, pos.Line, pos.Column)
	if err != nil {
		return errResult(err.Error()), nil
	}

	t, ok := s.pools.ResolveTarget(ctx, n, proj.Index)
	if !ok {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errResult(ctxErr.Error()), nil
		}
		return jsonResult(map[string]any{
			"source":   DescribeNode(n),
			"resolved": false,
		}), nil
	}
	return jsonResult(map[string]any{
		"source":      DescribeNode(t.Source),
		"resolved":    true,
		"symbol":      t.Symbol.QualifiedName,
		"symbol_kind": t.Symbol.Kind.String(),
		"declaration": DescribeNode(t.Declaration),
	}), nil
}
