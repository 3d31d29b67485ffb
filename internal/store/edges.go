package store

import "fmt"

const edgeInsertColumns = "project, source_id, target_id, type, ref_count, file_path, line, col"

const edgeInsertCount = 8

// A re-inserted reference adds its count and keeps the first site.
const edgeUpsertTail = ` ON CONFLICT(source_id, target_id, type) DO UPDATE SET
	ref_count = edges.ref_count + excluded.ref_count`

func (e *Edge) insertArgs() []any {
	count := e.Count
	if count <= 0 {
		count = 1
	}
	return []any{e.Project, e.SourceID, e.TargetID, e.Type, count, e.FilePath, e.Line, e.Col}
}

// InsertEdge inserts one edge.
func (s *Store) InsertEdge(e *Edge) error {
	return s.InsertEdgeBatch([]*Edge{e})
}

// InsertEdgeBatch inserts edges with multi-row statements.
func (s *Store) InsertEdgeBatch(edges []*Edge) error {
	return chunks(len(edges), edgeInsertCount, func(lo, hi int) error {
		args := make([]any, 0, (hi-lo)*edgeInsertCount)
		for _, e := range edges[lo:hi] {
			args = append(args, e.insertArgs()...)
		}
		_, err := s.q.Exec("INSERT INTO edges ("+edgeInsertColumns+") VALUES "+
			placeholders(hi-lo, edgeInsertCount)+edgeUpsertTail, args...)
		if err != nil {
			return fmt.Errorf("insert edges: %w", err)
		}
		return nil
	})
}

// EdgesOf returns the edges leaving (Outbound), entering (Inbound) or
// touching (Both) a node, restricted to types when any are given, in
// insertion order.
func (s *Store) EdgesOf(nodeID int64, dir Direction, types ...string) ([]*Edge, error) {
	var where string
	args := []any{nodeID}
	switch dir {
	case Outbound:
		where = "source_id=?"
	case Inbound:
		where = "target_id=?"
	case Both:
		where = "(source_id=? OR target_id=?)"
		args = append(args, nodeID)
	default:
		return nil, fmt.Errorf("invalid direction %q", dir)
	}
	if len(types) > 0 {
		where += " AND type IN (" + params(len(types)) + ")"
		for _, t := range types {
			args = append(args, t)
		}
	}

	rows, err := s.q.Query("SELECT id, "+edgeInsertColumns+" FROM edges WHERE "+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("edges of %d: %w", nodeID, err)
	}
	defer rows.Close()
	var result []*Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.ID, &e.Project, &e.SourceID, &e.TargetID, &e.Type, &e.Count, &e.FilePath, &e.Line, &e.Col); err != nil {
			return nil, err
		}
		result = append(result, &e)
	}
	return result, rows.Err()
}

// CountEdges returns the number of edges in a project.
func (s *Store) CountEdges(project string) (int, error) {
	var count int
	err := s.q.QueryRow("SELECT COUNT(*) FROM edges WHERE project=?", project).Scan(&count)
	return count, err
}

// DeleteEdgesByProject deletes every edge of a project.
func (s *Store) DeleteEdgesByProject(project string) error {
	_, err := s.q.Exec("DELETE FROM edges WHERE project=?", project)
	return err
}
