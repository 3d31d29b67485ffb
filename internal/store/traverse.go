package store

import "fmt"

// Direction selects which end of an edge a traversal follows.
type Direction string

const (
	// Outbound follows source to target: what a declaration reaches.
	Outbound Direction = "outbound"
	// Inbound follows target to source: what reaches a declaration.
	Inbound Direction = "inbound"
	// Both follows edges either way.
	Both Direction = "both"
)

// TraverseResult is the outcome of BFS.
type TraverseResult struct {
	Root    *Node
	Visited []*NodeHop
	Edges   []EdgeInfo
}

// NodeHop is a reached node and its distance from the root.
type NodeHop struct {
	Node *Node
	Hop  int
}

// EdgeInfo names the ends of a traversed edge by qualified name.
type EdgeInfo struct {
	From  string
	To    string
	Type  string
	Count int
}

const (
	defaultTraceDepth   = 3
	defaultTraceResults = 200
)

// BFS walks the edges of the given types (all when empty) breadth first from
// the node with id start. It stops at maxDepth hops or once maxResults nodes
// were reached. Every traversed edge is reported once.
func (s *Store) BFS(start int64, dir Direction, edgeTypes []string, maxDepth, maxResults int) (*TraverseResult, error) {
	switch dir {
	case Outbound, Inbound, Both:
	default:
		return nil, fmt.Errorf("bfs: invalid direction %q", dir)
	}
	if maxDepth <= 0 {
		maxDepth = defaultTraceDepth
	}
	if maxResults <= 0 {
		maxResults = defaultTraceResults
	}

	root, err := s.FindNodeByID(start)
	if err != nil {
		return nil, fmt.Errorf("bfs root: %w", err)
	}
	if root == nil {
		return nil, fmt.Errorf("bfs: no node with id %d", start)
	}

	res := &TraverseResult{Root: root}
	known := map[int64]*Node{start: root}
	seenEdge := make(map[int64]bool)
	frontier := []int64{start}

	for hop := 1; hop <= maxDepth && len(frontier) > 0; hop++ {
		var pending []*Edge
		var next []int64
		queued := make(map[int64]bool)
		for _, id := range frontier {
			edges, err := s.EdgesOf(id, dir, edgeTypes...)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				if seenEdge[e.ID] {
					continue
				}
				seenEdge[e.ID] = true
				pending = append(pending, e)
				other := e.TargetID
				if other == id {
					other = e.SourceID
				}
				if _, ok := known[other]; !ok && !queued[other] {
					queued[other] = true
					next = append(next, other)
				}
			}
		}

		if room := maxResults - len(res.Visited); len(next) > room {
			next = next[:room]
		}
		reached, err := s.FindNodesByIDs(next)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, id := range next {
			n := reached[id]
			if n == nil {
				continue
			}
			known[id] = n
			res.Visited = append(res.Visited, &NodeHop{Node: n, Hop: hop})
			frontier = append(frontier, id)
		}

		// edges to nodes cut by maxResults are dropped with them
		for _, e := range pending {
			from, to := known[e.SourceID], known[e.TargetID]
			if from == nil || to == nil {
				continue
			}
			res.Edges = append(res.Edges, EdgeInfo{From: from.QualifiedName, To: to.QualifiedName, Type: e.Type, Count: e.Count})
		}
		if len(res.Visited) >= maxResults {
			break
		}
	}
	return res, nil
}
