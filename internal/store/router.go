package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

const dbExt = ".db"

// ProjectInfo describes a project database found in the router's directory.
// The embedded stats are zero when the database holds no project record.
type ProjectInfo struct {
	Stats
	DBPath string
}

// StoreRouter lends one Store per project, each in its own database file
// under a shared directory. Stores are opened on first use and stay open.
type StoreRouter struct {
	dir string

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRouter returns a router over the user cache directory.
func NewRouter() (*StoreRouter, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, err
	}
	return &StoreRouter{dir: dir, stores: make(map[string]*Store)}, nil
}

// NewRouterWithDir returns a router over dir, creating it when needed.
func NewRouterWithDir(dir string) (*StoreRouter, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &StoreRouter{dir: dir, stores: make(map[string]*Store)}, nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid project name: %q", name)
	}
	return nil
}

func (r *StoreRouter) dbPath(name string) string {
	return filepath.Join(r.dir, name+dbExt)
}

// ForProject returns the store of a project, opening or creating its database.
func (r *StoreRouter) ForProject(name string) (*Store, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[name]; ok {
		return s, nil
	}
	s, err := OpenPath(r.dbPath(name))
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", name, err)
	}
	r.stores[name] = s
	return s, nil
}

// names lists the projects with a database file, sorted.
func (r *StoreRouter) names() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("readdir %s: %w", r.dir, err)
	}
	var names []string
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), dbExt)
		if e.IsDir() || !ok || validName(name) != nil {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// ListProjects describes every project database, sorted by name. A database
// that cannot be read is listed without stats.
func (r *StoreRouter) ListProjects() ([]*ProjectInfo, error) {
	names, err := r.names()
	if err != nil {
		return nil, err
	}
	infos := make([]*ProjectInfo, 0, len(names))
	for _, name := range names {
		info := &ProjectInfo{DBPath: r.dbPath(name)}
		info.Name = name
		if st, err := r.ForProject(name); err != nil {
			slog.Warn("router.list.open", "project", name, "err", err)
		} else if stats, err := st.Stats(name); err != nil {
			slog.Warn("router.list.stats", "project", name, "err", err)
		} else if stats != nil {
			info.Stats = *stats
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// DeleteProject closes the project's store and removes its database files.
func (r *StoreRouter) DeleteProject(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[name]; ok {
		if err := s.Close(); err != nil {
			slog.Warn("router.delete.close", "project", name, "err", err)
		}
		delete(r.stores, name)
	}
	base := r.dbPath(name)
	for _, p := range []string{base, base + "-wal", base + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	slog.Info("router.delete", "project", name)
	return nil
}

// HasProject reports whether a database file exists for name.
func (r *StoreRouter) HasProject(name string) bool {
	if validName(name) != nil {
		return false
	}
	_, err := os.Stat(r.dbPath(name))
	return err == nil
}

// Dir returns the directory holding the databases.
func (r *StoreRouter) Dir() string {
	return r.dir
}

// CloseAll closes every open store.
func (r *StoreRouter) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, s := range r.stores {
		if err := s.Close(); err != nil {
			slog.Warn("router.close", "project", name, "err", err)
		}
	}
	clear(r.stores)
}
