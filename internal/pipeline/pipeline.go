// Package pipeline indexes a repository: it discovers and parses C# and Java
// sources, builds the semantic index the walker runs on, and persists the
// declarations and their resolved references.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/DeusData/codebase-execwalk/internal/config"
	"github.com/DeusData/codebase-execwalk/internal/discover"
	"github.com/DeusData/codebase-execwalk/internal/semantic"
	"github.com/DeusData/codebase-execwalk/internal/store"
	"github.com/DeusData/codebase-execwalk/internal/syntax"
)

// Pipeline orchestrates the indexing of one repository into a store.
type Pipeline struct {
	ctx         context.Context
	Store       *store.Store
	RepoPath    string
	ProjectName string
	cfg         *config.Config
}

// New creates a Pipeline. A nil cfg loads .execwalk.yaml from repoPath.
func New(ctx context.Context, s *store.Store, repoPath string, cfg *config.Config) *Pipeline {
	if cfg == nil {
		cfg = config.Load(repoPath)
	}
	return &Pipeline{
		ctx:         ctx,
		Store:       s,
		RepoPath:    repoPath,
		ProjectName: ProjectNameFromPath(repoPath),
		cfg:         cfg,
	}
}

// ProjectNameFromPath derives a unique project name from an absolute path
// by replacing path separators with dashes and trimming the leading dash.
func ProjectNameFromPath(absPath string) string {
	cleaned := filepath.ToSlash(filepath.Clean(absPath))
	name := strings.ReplaceAll(cleaned, "/", "-")
	name = strings.ReplaceAll(name, ":", "")
	name = strings.TrimLeft(name, "-")
	if name == "" {
		return "root"
	}
	return name
}

// Run loads the repository and persists its declarations and reference
// edges within a single transaction. When every file hash matches the
// previous run, persistence is skipped.
func (p *Pipeline) Run() (*Project, error) {
	slog.Info("pipeline.start", "project", p.ProjectName, "path", p.RepoPath)
	start := time.Now()

	proj, err := Load(p.ctx, p.RepoPath, p.cfg)
	if err != nil {
		return nil, err
	}
	proj.Name = p.ProjectName

	stored, err := p.Store.GetFileHashes(p.ProjectName)
	if err != nil {
		return nil, fmt.Errorf("file hashes: %w", err)
	}
	changed, removed := classify(proj.hashes, stored)
	slog.Info("incremental.classify", "changed", changed, "removed", removed, "total", len(proj.Files))
	if changed == 0 && removed == 0 && len(stored) > 0 {
		slog.Info("incremental.noop", "reason", "no_changes")
		return proj, nil
	}

	if err := p.ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.Store.WithTransaction(func(tx *store.Store) error {
		return p.persist(tx, proj)
	}); err != nil {
		return nil, err
	}

	nc, _ := p.Store.CountNodes(p.ProjectName)
	ec, _ := p.Store.CountEdges(p.ProjectName)
	slog.Info("pipeline.done", "nodes", nc, "edges", ec, "elapsed", time.Since(start))
	return proj, nil
}

// classify counts files whose hash differs from the stored one, and stored
// files that no longer exist.
func classify(current, stored map[string]string) (changed, removed int) {
	for path, h := range current {
		if stored[path] != h {
			changed++
		}
	}
	for path := range stored {
		if _, ok := current[path]; !ok {
			removed++
		}
	}
	return changed, removed
}

// persist replaces the project's rows. References cross files, so a change
// in one file can redirect edges that originate in another; the whole graph
// is rebuilt.
func (p *Pipeline) persist(tx *store.Store, proj *Project) error {
	if err := tx.DeleteEdgesByProject(p.ProjectName); err != nil {
		return fmt.Errorf("clear edges: %w", err)
	}
	if err := tx.DeleteNodesByProject(p.ProjectName); err != nil {
		return fmt.Errorf("clear nodes: %w", err)
	}
	if err := tx.DeleteFileHashes(p.ProjectName); err != nil {
		return fmt.Errorf("clear hashes: %w", err)
	}
	if err := tx.UpsertProject(p.ProjectName, p.RepoPath); err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}

	t := time.Now()
	g := newGraph(p.ctx, p.ProjectName, proj.Index)
	g.declare(proj.Files)
	if err := g.reference(proj.Files); err != nil {
		return err
	}
	slog.Info("pass.timing", "pass", "graph", "elapsed", time.Since(t))

	ids, err := tx.UpsertNodeBatch(g.nodes)
	if err != nil {
		return fmt.Errorf("upsert nodes: %w", err)
	}
	edges := make([]*store.Edge, 0, len(g.edges))
	for _, pe := range g.edges {
		srcID, srcOK := ids[pe.SourceQN]
		tgtID, tgtOK := ids[pe.TargetQN]
		if !srcOK || !tgtOK {
			continue
		}
		edges = append(edges, &store.Edge{
			Project:  p.ProjectName,
			SourceID: srcID,
			TargetID: tgtID,
			Type:     pe.Type,
			Count:    pe.Count,
			FilePath: pe.FilePath,
			Line:     pe.Line,
			Col:      pe.Col,
		})
	}
	if err := tx.InsertEdgeBatch(edges); err != nil {
		return fmt.Errorf("insert edges: %w", err)
	}
	g.logEdgeCounts()

	for path, h := range proj.hashes {
		if err := tx.UpsertFileHash(p.ProjectName, path, h); err != nil {
			return fmt.Errorf("file hash %s: %w", path, err)
		}
	}
	return nil
}

// Load discovers, parses and indexes repoPath without touching a store.
func Load(ctx context.Context, repoPath string, cfg *config.Config) (*Project, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	files, err := discover.Discover(ctx, repoPath, cfg.DiscoverOptions())
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	slog.Info("pipeline.discovered", "files", len(files))
	proj, err := LoadFiles(ctx, repoPath, files, cfg.EffectiveWorkers())
	if err != nil {
		return nil, err
	}
	proj.Name = ProjectNameFromPath(repoPath)
	return proj, nil
}

type parseResult struct {
	File *syntax.File
	Hash string
	Err  error
}

// LoadFiles parses files in parallel with at most workers goroutines and
// builds their semantic index. Files that cannot be read or parsed are
// logged and left out.
func LoadFiles(ctx context.Context, root string, files []discover.FileInfo, workers int) (*Project, error) {
	results := make([]parseResult, len(files))
	if workers <= 0 || workers > len(files) {
		workers = max(len(files), 1)
	}

	t := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = parseFile(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slog.Info("pass.timing", "pass", "parse", "elapsed", time.Since(t))

	proj := &Project{
		Root:   root,
		byPath: make(map[string]*syntax.File, len(files)),
		hashes: make(map[string]string, len(files)),
	}
	for i, r := range results {
		if r.Err != nil {
			slog.Warn("parse.file.err", "path", files[i].RelPath, "lang", files[i].Language, "err", r.Err)
			continue
		}
		proj.Files = append(proj.Files, r.File)
		proj.byPath[r.File.Path] = r.File
		proj.hashes[r.File.Path] = r.Hash
	}

	t = time.Now()
	proj.Index = semantic.NewIndex(proj.Files...)
	slog.Info("pass.timing", "pass", "semantic", "elapsed", time.Since(t), "symbols", len(proj.Index.Symbols()))
	return proj, nil
}

// parseFile reads, hashes and parses one file. It touches no shared state.
func parseFile(f discover.FileInfo) parseResult {
	source, err := os.ReadFile(f.Path)
	if err != nil {
		return parseResult{Err: err}
	}
	parsed, err := syntax.Parse(f.RelPath, f.Language, source)
	if err != nil {
		return parseResult{Err: err}
	}
	return parseResult{File: parsed, Hash: contentHash(source)}
}

func contentHash(source []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(source))
}
