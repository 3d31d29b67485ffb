package store

import (
	"database/sql"
	"fmt"
)

// SchemaInfo summarizes the declarations and references of a project.
type SchemaInfo struct {
	NodeLabels        []Count      `json:"node_labels"`
	Languages         []Count      `json:"languages"`
	RelationshipTypes []Count      `json:"relationship_types"`
	Patterns          []Count      `json:"relationship_patterns"`
	MostReferenced    []Referenced `json:"most_referenced"`
	PartialTypes      []string     `json:"partial_types,omitempty"`
}

// Count is a grouped row count.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Referenced is a declaration and how many references reach it.
type Referenced struct {
	QualifiedName string `json:"qualified_name"`
	Label         string `json:"label"`
	References    int    `json:"references"`
}

const (
	schemaPatterns   = 25
	schemaReferenced = 15
)

// GetSchema summarizes a project. Counts are ordered largest first.
func (s *Store) GetSchema(project string) (*SchemaInfo, error) {
	info := &SchemaInfo{}
	groups := []struct {
		dst   *[]Count
		query string
		args  []any
	}{
		{&info.NodeLabels, "SELECT label, COUNT(*) c FROM nodes WHERE project=? GROUP BY label ORDER BY c DESC, label", nil},
		{&info.Languages, "SELECT language, COUNT(*) c FROM nodes WHERE project=? GROUP BY language ORDER BY c DESC, language", nil},
		{&info.RelationshipTypes, "SELECT type, COUNT(*) c FROM edges WHERE project=? GROUP BY type ORDER BY c DESC, type", nil},
		{&info.Patterns, `SELECT '(:' || src.label || ')-[:' || e.type || ']->(:' || tgt.label || ')', COUNT(*) c
			FROM edges e JOIN nodes src ON src.id = e.source_id JOIN nodes tgt ON tgt.id = e.target_id
			WHERE e.project=? GROUP BY 1 ORDER BY c DESC, 1 LIMIT ?`, []any{schemaPatterns}},
	}
	for _, g := range groups {
		counts, err := s.counts(g.query, append([]any{project}, g.args...)...)
		if err != nil {
			return nil, fmt.Errorf("schema: %w", err)
		}
		*g.dst = counts
	}

	var err error
	if info.MostReferenced, err = s.mostReferenced(project); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	partial, err := s.queryNodes(nodeSelect+" WHERE project=? AND label=? AND partial>0 ORDER BY qualified_name", project, LabelType)
	if err != nil {
		return nil, fmt.Errorf("schema partial types: %w", err)
	}
	for _, n := range partial {
		info.PartialTypes = append(info.PartialTypes, n.Symbol)
	}
	return info, nil
}

func (s *Store) counts(query string, args ...any) ([]Count, error) {
	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Count
	for rows.Next() {
		var c Count
		var name sql.NullString
		if err := rows.Scan(&name, &c.Count); err != nil {
			return nil, err
		}
		c.Name = name.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) mostReferenced(project string) ([]Referenced, error) {
	rows, err := s.q.Query(`SELECT n.qualified_name, n.label, SUM(e.ref_count) refs
		FROM edges e JOIN nodes n ON n.id = e.target_id
		WHERE e.project=? GROUP BY n.id ORDER BY refs DESC, n.qualified_name LIMIT ?`, project, schemaReferenced)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Referenced
	for rows.Next() {
		var r Referenced
		if err := rows.Scan(&r.QualifiedName, &r.Label, &r.References); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
