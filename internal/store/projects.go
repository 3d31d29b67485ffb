package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Project is the record of one indexing run.
type Project struct {
	Name      string
	IndexedAt string
	RootPath  string
}

// Stats summarizes what a project database holds.
type Stats struct {
	Project
	Files int
	Nodes int
	Edges int
}

// UpsertProject records that name was indexed from rootPath now.
func (s *Store) UpsertProject(name, rootPath string) error {
	_, err := s.q.Exec(`INSERT INTO projects (name, indexed_at, root_path) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET indexed_at=excluded.indexed_at, root_path=excluded.root_path`,
		name, Now(), rootPath)
	if err != nil {
		return fmt.Errorf("upsert project %s: %w", name, err)
	}
	return nil
}

// GetProject returns the project record, or nil when name was never indexed.
func (s *Store) GetProject(name string) (*Project, error) {
	p := &Project{}
	err := s.q.QueryRow("SELECT name, indexed_at, root_path FROM projects WHERE name=?", name).
		Scan(&p.Name, &p.IndexedAt, &p.RootPath)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("get project %s: %w", name, err)
	}
	return p, nil
}

// Stats returns the project record with its file, node and edge counts, or
// nil when name was never indexed.
func (s *Store) Stats(name string) (*Stats, error) {
	st := &Stats{}
	err := s.q.QueryRow(`SELECT p.name, p.indexed_at, p.root_path,
		(SELECT COUNT(*) FROM file_hashes f WHERE f.project = p.name),
		(SELECT COUNT(*) FROM nodes n WHERE n.project = p.name),
		(SELECT COUNT(*) FROM edges e WHERE e.project = p.name)
		FROM projects p WHERE p.name=?`, name).
		Scan(&st.Name, &st.IndexedAt, &st.RootPath, &st.Files, &st.Nodes, &st.Edges)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("project stats %s: %w", name, err)
	}
	return st, nil
}

// DeleteProject removes a project record; its files, nodes and edges cascade.
func (s *Store) DeleteProject(name string) error {
	_, err := s.q.Exec("DELETE FROM projects WHERE name=?", name)
	return err
}

// UpsertFileHash records the hex xxh3 digest of a source file.
func (s *Store) UpsertFileHash(project, relPath, hash string) error {
	_, err := s.q.Exec(`INSERT INTO file_hashes (project, rel_path, xxh3) VALUES (?, ?, ?)
		ON CONFLICT(project, rel_path) DO UPDATE SET xxh3=excluded.xxh3`,
		project, relPath, hash)
	return err
}

// GetFileHashes returns the recorded digests of a project by relative path.
func (s *Store) GetFileHashes(project string) (map[string]string, error) {
	rows, err := s.q.Query("SELECT rel_path, xxh3 FROM file_hashes WHERE project=?", project)
	if err != nil {
		return nil, fmt.Errorf("get file hashes: %w", err)
	}
	defer rows.Close()
	hashes := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, err
		}
		hashes[path] = hash
	}
	return hashes, rows.Err()
}

// DeleteFileHashes forgets every digest of a project.
func (s *Store) DeleteFileHashes(project string) error {
	_, err := s.q.Exec("DELETE FROM file_hashes WHERE project=?", project)
	return err
}
