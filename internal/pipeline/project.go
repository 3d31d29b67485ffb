package pipeline

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/DeusData/codebase-execwalk/internal/semantic"
	"github.com/DeusData/codebase-execwalk/internal/syntax"
)

var (
	ErrNotFound  = errors.New("declaration not found")
	ErrAmbiguous = errors.New("ambiguous declaration")
)

// Project is a loaded repository: its parsed files and the semantic index
// built over all of them. It is immutable and safe for concurrent use.
type Project struct {
	Name  string
	Root  string
	Files []*syntax.File
	Index *semantic.Index

	byPath map[string]*syntax.File
	hashes map[string]string
}

// File returns the parsed file at relPath (slash or OS separated), or nil.
func (p *Project) File(relPath string) *syntax.File {
	return p.byPath[filepath.ToSlash(filepath.Clean(relPath))]
}

// Hashes returns a copy of the content hash of every loaded file.
func (p *Project) Hashes() map[string]string {
	return maps.Clone(p.hashes)
}

// NodeAt returns the deepest node covering the 1-based line and column of
// relPath.
func (p *Project) NodeAt(relPath string, line, col int) (*syntax.Node, error) {
	f := p.File(relPath)
	if f == nil {
		return nil, fmt.Errorf("file %q: %w", relPath, ErrNotFound)
	}
	n := syntax.NodeAt(f.Root, syntax.Position{Line: line, Column: col})
	if n == nil {
		return nil, fmt.Errorf("%s:%d:%d: no node at position", relPath, line, col)
	}
	return n, nil
}

// FindDeclaration resolves name to the declaration a walk starts from.
// name is a type ("Cart", "Shop.Cart") or a member of one ("Cart.Add"). A
// member named like its type selects the constructor; ".cctor" (C#) or
// "static" selects the static constructor. Overloads must be told apart by
// a parameter count suffix: "Cart.Add/2".
func (p *Project) FindDeclaration(name string) (*syntax.Node, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty name: %w", ErrNotFound)
	}
	if t := p.Index.Type(name); t != nil {
		return first(p.Index.Declarations(t), name)
	}

	member, arity := name, -1
	if i := strings.LastIndexByte(name, '/'); i > 0 {
		if _, err := fmt.Sscanf(name[i+1:], "%d", &arity); err != nil {
			return nil, fmt.Errorf("%q: invalid arity: %w", name, ErrNotFound)
		}
		member = name[:i]
	}

	dot := strings.LastIndexByte(member, '.')
	if dot <= 0 {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	typeName, memberName := member[:dot], member[dot+1:]
	if strings.HasSuffix(typeName, ".") {
		// "Cart..cctor"
		typeName, memberName = strings.TrimSuffix(typeName, "."), "."+memberName
	}
	t := p.Index.Type(typeName)
	if t == nil {
		if cands := p.typeCandidates(typeName); len(cands) > 1 {
			return nil, fmt.Errorf("%q: type matches %s: %w", name, strings.Join(cands, ", "), ErrAmbiguous)
		}
		return nil, fmt.Errorf("type %q: %w", typeName, ErrNotFound)
	}

	var members []*semantic.Symbol
	switch memberName {
	case t.Name, ".ctor":
		members = t.Constructors()
	case "static", ".cctor":
		if sc := t.StaticConstructor(); sc != nil {
			members = []*semantic.Symbol{sc}
		}
	default:
		members = t.Members(memberName)
	}
	if arity >= 0 {
		members = slices.DeleteFunc(slices.Clone(members), func(m *semantic.Symbol) bool {
			return len(m.Parameters()) != arity
		})
	}
	switch len(members) {
	case 0:
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	case 1:
		return first(p.Index.Declarations(members[0]), name)
	}
	sigs := make([]string, len(members))
	for i, m := range members {
		sigs[i] = m.QualifiedName + signature(m)
	}
	return nil, fmt.Errorf("%q matches %s: %w", name, strings.Join(sigs, ", "), ErrAmbiguous)
}

func (p *Project) typeCandidates(simple string) []string {
	var out []string
	for _, s := range p.Index.Symbols() {
		if s.Kind == semantic.SymbolType && s.Name == simple {
			out = append(out, s.QualifiedName)
		}
	}
	return out
}

func first(decls []*syntax.Node, name string) (*syntax.Node, error) {
	if len(decls) == 0 {
		return nil, fmt.Errorf("%q has no declaration: %w", name, ErrNotFound)
	}
	return decls[0], nil
}
