package store

import (
	"database/sql"
	"errors"
	"fmt"
)

const nodeInsertColumns = `project, label, name, qualified_name, symbol, language, file_path,
	start_line, start_col, end_line, end_col, is_static, is_private, is_const, type_name, partial`

const nodeInsertCount = 16

const nodeSelect = `SELECT id, ` + nodeInsertColumns + ` FROM nodes`

const nodeUpsertTail = ` ON CONFLICT(project, qualified_name) DO UPDATE SET
	label=excluded.label, name=excluded.name, symbol=excluded.symbol, language=excluded.language,
	file_path=excluded.file_path, start_line=excluded.start_line, start_col=excluded.start_col,
	end_line=excluded.end_line, end_col=excluded.end_col, is_static=excluded.is_static,
	is_private=excluded.is_private, is_const=excluded.is_const, type_name=excluded.type_name,
	partial=excluded.partial
	RETURNING id, qualified_name`

func (n *Node) insertArgs() []any {
	return []any{n.Project, n.Label, n.Name, n.QualifiedName, n.Symbol, n.Language, n.FilePath,
		n.StartLine, n.StartCol, n.EndLine, n.EndCol, n.Static, n.Private, n.Const, n.TypeName, n.Partial}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner) (*Node, error) {
	var n Node
	err := row.Scan(&n.ID, &n.Project, &n.Label, &n.Name, &n.QualifiedName, &n.Symbol, &n.Language, &n.FilePath,
		&n.StartLine, &n.StartCol, &n.EndLine, &n.EndCol, &n.Static, &n.Private, &n.Const, &n.TypeName, &n.Partial)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Store) queryNodes(query string, args ...any) ([]*Node, error) {
	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []*Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (s *Store) queryNode(query string, args ...any) (*Node, error) {
	n, err := scanNode(s.q.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return n, err
}

// UpsertNode inserts n, or updates the node with the same qualified name,
// and returns its id.
func (s *Store) UpsertNode(n *Node) (int64, error) {
	ids, err := s.UpsertNodeBatch([]*Node{n})
	if err != nil {
		return 0, err
	}
	return ids[n.QualifiedName], nil
}

// UpsertNodeBatch upserts nodes with multi-row statements and returns the id
// of every node by qualified name.
func (s *Store) UpsertNodeBatch(nodes []*Node) (map[string]int64, error) {
	ids := make(map[string]int64, len(nodes))
	err := chunks(len(nodes), nodeInsertCount, func(lo, hi int) error {
		args := make([]any, 0, (hi-lo)*nodeInsertCount)
		for _, n := range nodes[lo:hi] {
			args = append(args, n.insertArgs()...)
		}
		rows, err := s.q.Query("INSERT INTO nodes ("+nodeInsertColumns+") VALUES "+
			placeholders(hi-lo, nodeInsertCount)+nodeUpsertTail, args...)
		if err != nil {
			return fmt.Errorf("upsert nodes: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			var qn string
			if err := rows.Scan(&id, &qn); err != nil {
				return err
			}
			ids[qn] = id
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// FindNodeByID returns the node with the given id, or nil.
func (s *Store) FindNodeByID(id int64) (*Node, error) {
	return s.queryNode(nodeSelect+" WHERE id=?", id)
}

// FindNodeByQN returns the node with the given stored qualified name, or nil.
func (s *Store) FindNodeByQN(project, qualifiedName string) (*Node, error) {
	return s.queryNode(nodeSelect+" WHERE project=? AND qualified_name=?", project, qualifiedName)
}

// FindNodesBySymbol returns the nodes declaring symbol; overloads share one
// symbol name.
func (s *Store) FindNodesBySymbol(project, symbol string) ([]*Node, error) {
	nodes, err := s.queryNodes(nodeSelect+" WHERE project=? AND symbol=? ORDER BY file_path, start_line", project, symbol)
	if err != nil {
		return nil, fmt.Errorf("find by symbol: %w", err)
	}
	return nodes, nil
}

// FindNodesByLabel returns every node with the given label, in file order.
func (s *Store) FindNodesByLabel(project, label string) ([]*Node, error) {
	nodes, err := s.queryNodes(nodeSelect+" WHERE project=? AND label=? ORDER BY file_path, start_line", project, label)
	if err != nil {
		return nil, fmt.Errorf("find by label: %w", err)
	}
	return nodes, nil
}

// FindNodesByIDs returns the nodes with the given ids, keyed by id.
func (s *Store) FindNodesByIDs(ids []int64) (map[int64]*Node, error) {
	result := make(map[int64]*Node, len(ids))
	err := chunks(len(ids), 1, func(lo, hi int) error {
		args := make([]any, 0, hi-lo)
		for _, id := range ids[lo:hi] {
			args = append(args, id)
		}
		nodes, err := s.queryNodes(nodeSelect+" WHERE id IN ("+params(hi-lo)+")", args...)
		if err != nil {
			return fmt.Errorf("find by ids: %w", err)
		}
		for _, n := range nodes {
			result[n.ID] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CountNodes returns the number of nodes in a project.
func (s *Store) CountNodes(project string) (int, error) {
	var count int
	err := s.q.QueryRow("SELECT COUNT(*) FROM nodes WHERE project=?", project).Scan(&count)
	return count, err
}

// DeleteNodesByProject deletes every node of a project; their edges cascade.
func (s *Store) DeleteNodesByProject(project string) error {
	_, err := s.q.Exec("DELETE FROM nodes WHERE project=?", project)
	return err
}
