// Package store persists indexed declarations and the references between
// them in one SQLite database per project.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Declaration labels.
const (
	LabelType          = "Type"
	LabelConstructor   = "Constructor"
	LabelMethod        = "Method"
	LabelProperty      = "Property"
	LabelField         = "Field"
	LabelLocalFunction = "LocalFunction"
)

// Reference edge types.
const (
	EdgeInherits       = "INHERITS"
	EdgeCalls          = "CALLS"
	EdgeConstructs     = "CONSTRUCTS"
	EdgeChains         = "CHAINS"
	EdgeReadsProperty  = "READS_PROPERTY"
	EdgeWritesProperty = "WRITES_PROPERTY"
)

// Querier abstracts *sql.DB and *sql.Tx so store methods work in both contexts.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store is a project database.
type Store struct {
	db     *sql.DB
	q      Querier
	dbPath string
}

// Node is a stored declaration. QualifiedName is unique per project and
// carries the parameter types of callables; Symbol is the name the walker
// and the semantic index use (namespace.Type.Member).
type Node struct {
	ID            int64
	Project       string
	Label         string
	Name          string
	QualifiedName string
	Symbol        string
	Language      string
	FilePath      string
	StartLine     int
	StartCol      int
	EndLine       int
	EndCol        int
	Static        bool
	Private       bool
	Const         bool
	TypeName      string
	// Partial counts further declarations of a partial type in other files.
	Partial int
}

// Edge is a resolved reference from the declaration containing it to the
// declaration it reaches. References with the same ends and type fold into
// one edge; the site recorded is the first one.
type Edge struct {
	ID       int64
	Project  string
	SourceID int64
	TargetID int64
	Type     string
	Count    int
	FilePath string
	Line     int
	Col      int
}

func cacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	dir := filepath.Join(home, ".cache", "execwalk")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("mkdir cache: %w", err)
	}
	return dir, nil
}

// OpenPath opens or creates the database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return newStore(db, dbPath)
}

// OpenMemory opens an empty in-memory database.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	// each pooled connection would see its own empty database
	db.SetMaxOpenConns(1)
	return newStore(db, ":memory:")
}

func newStore(db *sql.DB, path string) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, q: db, dbPath: path}, nil
}

// WithTransaction runs fn against a store bound to one transaction, which is
// committed when fn returns nil and rolled back otherwise.
func (s *Store) WithTransaction(fn func(tx *Store) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Store{db: s.db, q: tx, dbPath: s.dbPath}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path, or ":memory:".
func (s *Store) Path() string {
	return s.dbPath
}

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	name TEXT PRIMARY KEY,
	indexed_at TEXT NOT NULL,
	root_path TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS file_hashes (
	project TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
	rel_path TEXT NOT NULL,
	xxh3 TEXT NOT NULL,
	PRIMARY KEY (project, rel_path)
);

CREATE TABLE IF NOT EXISTS nodes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
	label TEXT NOT NULL,
	name TEXT NOT NULL,
	qualified_name TEXT NOT NULL,
	symbol TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL DEFAULT '',
	file_path TEXT NOT NULL DEFAULT '',
	start_line INTEGER NOT NULL DEFAULT 0,
	start_col INTEGER NOT NULL DEFAULT 0,
	end_line INTEGER NOT NULL DEFAULT 0,
	end_col INTEGER NOT NULL DEFAULT 0,
	is_static INTEGER NOT NULL DEFAULT 0,
	is_private INTEGER NOT NULL DEFAULT 0,
	is_const INTEGER NOT NULL DEFAULT 0,
	type_name TEXT NOT NULL DEFAULT '',
	partial INTEGER NOT NULL DEFAULT 0,
	UNIQUE(project, qualified_name)
);

CREATE INDEX IF NOT EXISTS idx_nodes_label ON nodes(project, label);
CREATE INDEX IF NOT EXISTS idx_nodes_symbol ON nodes(project, symbol);
CREATE INDEX IF NOT EXISTS idx_nodes_file ON nodes(project, file_path, start_line);

CREATE TABLE IF NOT EXISTS edges (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
	source_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	target_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	type TEXT NOT NULL,
	ref_count INTEGER NOT NULL DEFAULT 1,
	file_path TEXT NOT NULL DEFAULT '',
	line INTEGER NOT NULL DEFAULT 0,
	col INTEGER NOT NULL DEFAULT 0,
	UNIQUE(source_id, target_id, type)
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id, type);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id, type);
CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(project, type);
`

// maxVars is SQLite's default limit of bind variables per statement.
const maxVars = 999

// chunks calls fn for consecutive [lo, hi) ranges of n rows, each small
// enough that rows of cols variables stay within maxVars.
func chunks(n, cols int, fn func(lo, hi int) error) error {
	per := maxVars / cols
	for lo := 0; lo < n; lo += per {
		if err := fn(lo, min(lo+per, n)); err != nil {
			return err
		}
	}
	return nil
}

// params returns n comma-separated "?".
func params(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// placeholders returns rows comma-separated groups of cols "?" each.
func placeholders(rows, cols int) string {
	return strings.TrimSuffix(strings.Repeat("("+params(cols)+"),", rows), ",")
}

// Now returns the current UTC time in RFC 3339 format.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
