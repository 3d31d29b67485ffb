// Package watcher re-indexes projects whose C# or Java sources change.
package watcher

import (
	"context"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/DeusData/codebase-execwalk/internal/config"
	"github.com/DeusData/codebase-execwalk/internal/discover"
	"github.com/DeusData/codebase-execwalk/internal/store"
)

const (
	baseInterval = 1 * time.Second
	maxInterval  = 60 * time.Second

	// filesPerSecond adds a second of polling interval per this many files.
	filesPerSecond = 500

	// loggedChanges caps the paths named in a change event.
	loggedChanges = 5
)

type fileStamp struct {
	modTime time.Time
	size    int64
}

// snapshot maps a repository-relative path to its stamp.
type snapshot map[string]fileStamp

// changes returns the sorted paths added, removed or modified since old.
func (s snapshot) changes(old snapshot) []string {
	var changed []string
	for p, now := range s {
		if was, ok := old[p]; !ok || !was.modTime.Equal(now.modTime) || was.size != now.size {
			changed = append(changed, p)
		}
	}
	for p := range old {
		if _, ok := s[p]; !ok {
			changed = append(changed, p)
		}
	}
	slices.Sort(changed)
	return changed
}

// IndexFunc re-indexes one project.
type IndexFunc func(ctx context.Context, projectName, rootPath string) error

// Lister reports the indexed projects to watch. *store.StoreRouter
// implements it.
type Lister interface {
	ListProjects() ([]*store.ProjectInfo, error)
}

type projectState struct {
	baseline snapshot
	interval time.Duration
	nextPoll time.Time
}

func (st *projectState) due(now time.Time) bool {
	return !now.Before(st.nextPoll)
}

func (st *projectState) wait(d time.Duration) {
	st.nextPoll = time.Now().Add(d)
}

// Watcher polls indexed projects and calls its IndexFunc when the files the
// indexer would read change. Polling is adaptive: larger projects are
// polled less often. It is driven by a single goroutine.
type Watcher struct {
	projects Lister
	indexFn  IndexFunc
	states   map[string]*projectState
	ctx      context.Context
}

// New creates a Watcher.
func New(projects Lister, indexFn IndexFunc) *Watcher {
	return &Watcher{
		projects: projects,
		indexFn:  indexFn,
		states:   make(map[string]*projectState),
		ctx:      context.Background(),
	}
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.ctx = ctx
	ticker := time.NewTicker(baseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollAll()
		}
	}
}

// pollAll polls every due project. Projects no longer listed are forgotten.
func (w *Watcher) pollAll() {
	infos, err := w.projects.ListProjects()
	if err != nil {
		slog.Warn("watcher.list_projects", "err", err)
		return
	}

	now := time.Now()
	listed := make(map[string]bool, len(infos))
	for _, info := range infos {
		if info.RootPath == "" {
			continue
		}
		listed[info.Name] = true
		st := w.states[info.Name]
		if st == nil {
			st = &projectState{}
			w.states[info.Name] = st
		} else if !st.due(now) {
			continue
		}
		w.poll(info, st)
	}
	maps.DeleteFunc(w.states, func(name string, _ *projectState) bool { return !listed[name] })
}

// poll compares a fresh snapshot of one project with its baseline. The first
// snapshot only sets the baseline. A failed re-index keeps the old baseline
// so the change is seen again next time.
func (w *Watcher) poll(info *store.ProjectInfo, st *projectState) {
	if _, err := os.Stat(info.RootPath); err != nil {
		slog.Warn("watcher.root_gone", "project", info.Name, "path", info.RootPath)
		st.wait(maxInterval)
		return
	}

	snap, err := capture(w.ctx, info.RootPath)
	if err != nil {
		slog.Warn("watcher.snapshot", "project", info.Name, "err", err)
		st.wait(max(st.interval, baseInterval))
		return
	}
	st.interval = pollInterval(len(snap))
	defer st.wait(st.interval)

	if st.baseline == nil {
		slog.Debug("watcher.baseline", "project", info.Name, "files", len(snap))
		st.baseline = snap
		return
	}
	changed := snap.changes(st.baseline)
	if len(changed) == 0 {
		return
	}

	slog.Info("watcher.changed", "project", info.Name, "count", len(changed),
		"paths", changed[:min(len(changed), loggedChanges)])
	if err := w.indexFn(w.ctx, info.Name, info.RootPath); err != nil {
		slog.Warn("watcher.index", "project", info.Name, "err", err)
		return
	}
	st.baseline = snap
}

// capture stamps every file the indexer would read, plus the configuration
// and ignore files that decide which files those are.
func capture(ctx context.Context, root string) (snapshot, error) {
	cfg := config.Load(root)
	files, err := discover.Discover(ctx, root, cfg.DiscoverOptions())
	if err != nil {
		return nil, err
	}

	snap := make(snapshot, len(files)+2)
	stamp := func(path, key string) {
		if fi, err := os.Stat(path); err == nil {
			snap[key] = fileStamp{modTime: fi.ModTime(), size: fi.Size()}
		}
	}
	for _, f := range files {
		stamp(f.Path, f.RelPath)
	}
	for _, name := range []string{config.FileName, discover.IgnoreFileName} {
		stamp(filepath.Join(root, name), name)
	}
	return snap, nil
}

// pollInterval grows from one second by a second per filesPerSecond files,
// up to maxInterval.
func pollInterval(files int) time.Duration {
	return min(baseInterval+time.Duration(files/filesPerSecond)*time.Second, maxInterval)
}
