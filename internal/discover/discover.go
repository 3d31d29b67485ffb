// Package discover finds the C# and Java sources of a repository.
package discover

import (
	"bufio"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/DeusData/codebase-execwalk/internal/lang"
)

// IgnoreFileName is the per-repository ignore file, one glob per line.
const IgnoreFileName = ".execwalkignore"

// DefaultMaxFileSize skips files larger than 4 MiB, which are almost always
// generated.
const DefaultMaxFileSize = 4 << 20

// skipDirs are build output, tool state and dependency directories.
var skipDirs = map[string]bool{
	".cache": true, ".git": true, ".gradle": true, ".hg": true,
	".idea": true, ".maven": true, ".svn": true, ".tmp": true,
	".vs": true, ".vscode": true, "TestResults": true, "bin": true,
	"build": true, "coverage": true, "dist": true, "node_modules": true,
	"obj": true, "out": true, "packages": true, "target": true,
	"temp": true, "tmp": true, "vendor": true,
}

// generatedSuffixes mark designer and source-generator output.
var generatedSuffixes = []string{
	".g.cs", ".g.i.cs", ".Designer.cs", ".AssemblyInfo.cs", "~", ".tmp",
}

// FileInfo represents a discovered source file.
type FileInfo struct {
	Path     string        // absolute path
	RelPath  string        // relative to repo root, slash-separated
	Language lang.Language // detected language
}

// Options configures file discovery.
type Options struct {
	IgnoreFile   string   // path to an ignore file (default: <repo>/.execwalkignore)
	ExcludePaths []string // extra glob patterns, e.g. from .execwalk.yaml
	MaxFileSize  int64    // 0 means DefaultMaxFileSize, negative disables
}

// patterns match a glob against either the base name or the slash-separated
// path relative to the repository root.
type patterns []string

func (ps patterns) match(rel string) bool {
	base := path.Base(rel)
	for _, p := range ps {
		if ok, _ := path.Match(p, base); ok {
			return true
		}
		if ok, _ := path.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func isGenerated(name string) bool {
	for _, suffix := range generatedSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Discover walks repoPath in lexical order and returns every file of a
// registered language. Symlinks are not followed and unreadable directories
// are skipped.
func Discover(ctx context.Context, repoPath string, opts *Options) ([]FileInfo, error) {
	root, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{}
	}

	ignoreFile := opts.IgnoreFile
	if ignoreFile == "" {
		ignoreFile = filepath.Join(root, IgnoreFileName)
	}
	ignore, err := loadIgnoreFile(ignoreFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("discover.ignore_file", "path", ignoreFile, "err", err)
	}
	ignore = append(ignore, opts.ExcludePaths...)

	maxSize := opts.MaxFileSize
	if maxSize == 0 {
		maxSize = DefaultMaxFileSize
	}

	var files []FileInfo
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if d != nil && d.IsDir() && p != root {
				slog.Warn("discover.skip_dir", "path", p, "err", walkErr)
				return fs.SkipDir
			}
			return walkErr
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		switch {
		case d.IsDir():
			if skipDirs[d.Name()] || ignore.match(rel) {
				return fs.SkipDir
			}
			return nil
		case !d.Type().IsRegular(), isGenerated(d.Name()), ignore.match(rel):
			return nil
		}

		l, ok := lang.LanguageForExtension(filepath.Ext(d.Name()))
		if !ok {
			return nil
		}
		if maxSize > 0 {
			info, err := d.Info()
			if err != nil {
				return nil
			}
			if info.Size() > maxSize {
				slog.Info("discover.skip_large", "path", rel, "size", info.Size())
				return nil
			}
		}
		files = append(files, FileInfo{Path: p, RelPath: rel, Language: l})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// loadIgnoreFile reads one glob per line. Blank lines and # comments are
// skipped, and a trailing slash is dropped.
func loadIgnoreFile(name string) (patterns, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ps patterns
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ps = append(ps, strings.TrimSuffix(line, "/"))
	}
	return ps, sc.Err()
}
