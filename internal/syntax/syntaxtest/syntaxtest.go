// Package syntaxtest parses multi-file source fixtures for tests.
package syntaxtest

import (
	"path/filepath"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/DeusData/codebase-execwalk/internal/lang"
	"github.com/DeusData/codebase-execwalk/internal/syntax"
)

// ParseArchive parses every file of a txtar archive, picking the grammar from
// the file extension.
func ParseArchive(tb testing.TB, archive string) []*syntax.File {
	tb.Helper()
	ar := txtar.Parse([]byte(archive))
	files := make([]*syntax.File, 0, len(ar.Files))
	for _, f := range ar.Files {
		l, ok := lang.LanguageForExtension(filepath.Ext(f.Name))
		if !ok {
			tb.Fatalf("no language for %s", f.Name)
		}
		pf, err := syntax.Parse(f.Name, l, f.Data)
		if err != nil {
			tb.Fatalf("parse %s: %v", f.Name, err)
		}
		files = append(files, pf)
	}
	return files
}

// Find returns the first node of kind whose text is text.
func Find(tb testing.TB, files []*syntax.File, kind syntax.Kind, text string) *syntax.Node {
	tb.Helper()
	if hits := FindAll(files, kind, text); len(hits) > 0 {
		return hits[0]
	}
	tb.Fatalf("no %s node with text %q", kind, text)
	return nil
}

// FindText returns the outermost node, in source order, whose text is text.
func FindText(tb testing.TB, files []*syntax.File, text string) *syntax.Node {
	tb.Helper()
	for _, f := range files {
		if hits := syntax.Find(f.Root, func(n *syntax.Node) bool { return n.Text() == text }); len(hits) > 0 {
			return hits[0]
		}
	}
	tb.Fatalf("no node with text %q", text)
	return nil
}

// FindAll returns every node of kind whose text is text, in source order.
func FindAll(files []*syntax.File, kind syntax.Kind, text string) []*syntax.Node {
	var out []*syntax.Node
	for _, f := range files {
		out = append(out, syntax.Find(f.Root, func(n *syntax.Node) bool {
			return n.Kind() == kind && n.Text() == text
		})...)
	}
	return out
}

// Declaration returns the first declaration of kind named name. Constructors
// are found by their type name.
func Declaration(tb testing.TB, files []*syntax.File, kind syntax.Kind, name string) *syntax.Node {
	tb.Helper()
	for _, f := range files {
		hits := syntax.Find(f.Root, func(n *syntax.Node) bool {
			return n.Kind() == kind && n.Field(syntax.RoleName).Text() == name
		})
		if len(hits) > 0 {
			return hits[0]
		}
	}
	tb.Fatalf("no %s declaration named %q", kind, name)
	return nil
}

// Texts returns the source text of each node.
func Texts(nodes []*syntax.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Text()
	}
	return out
}

// Literals returns the text of the literal nodes among nodes, in order.
func Literals(nodes []*syntax.Node) []string {
	var out []string
	for _, n := range nodes {
		if n.Kind() == syntax.KindLiteral {
			out = append(out, n.Text())
		}
	}
	return out
}
