package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/DeusData/codebase-execwalk/internal/fqn"
	"github.com/DeusData/codebase-execwalk/internal/semantic"
	"github.com/DeusData/codebase-execwalk/internal/store"
	"github.com/DeusData/codebase-execwalk/internal/syntax"
	"github.com/DeusData/codebase-execwalk/internal/walker"
)

// pendingEdge is an edge between qualified names, resolved to row ids once
// the nodes are written.
type pendingEdge struct {
	SourceQN string
	TargetQN string
	Type     string
	Count    int
	FilePath string
	Line     int
	Col      int
}

type edgeKey struct {
	src, tgt *semantic.Symbol
	typ      string
}

// graph collects the declaration nodes and reference edges of a project.
type graph struct {
	ctx     context.Context
	project string
	index   *semantic.Index
	qns     map[*semantic.Symbol]string
	nodes   []*store.Node
	edges   []*pendingEdge
	seen    map[edgeKey]*pendingEdge
}

func newGraph(ctx context.Context, project string, index *semantic.Index) *graph {
	return &graph{
		ctx:     ctx,
		project: project,
		index:   index,
		qns:     make(map[*semantic.Symbol]string),
		seen:    make(map[edgeKey]*pendingEdge),
	}
}

var labels = map[semantic.SymbolKind]string{
	semantic.SymbolType:          store.LabelType,
	semantic.SymbolConstructor:   store.LabelConstructor,
	semantic.SymbolMethod:        store.LabelMethod,
	semantic.SymbolProperty:      store.LabelProperty,
	semantic.SymbolField:         store.LabelField,
	semantic.SymbolLocalFunction: store.LabelLocalFunction,
}

// signature renders the parameter types of callables so that overloads get
// distinct qualified names.
func signature(s *semantic.Symbol) string {
	switch s.Kind {
	case semantic.SymbolMethod, semantic.SymbolConstructor, semantic.SymbolLocalFunction:
	default:
		return ""
	}
	types := make([]string, 0, len(s.Parameters()))
	for _, p := range s.Parameters() {
		t := p.TypeName
		if t == "" {
			t = "?"
		}
		types = append(types, t)
	}
	return "(" + strings.Join(types, ",") + ")"
}

// declare emits one node per declared type and member, then one per local
// function, named after the member that declares it.
func (g *graph) declare(files []*syntax.File) {
	for _, s := range g.index.Symbols() {
		g.addNode(s, fqn.Join(g.project, s.QualifiedName+signature(s)))
	}
	for _, f := range files {
		syntax.Inspect(f.Root, func(n *syntax.Node) bool {
			if n.Kind() != syntax.KindLocalFunction {
				return true
			}
			s := g.index.Symbol(n)
			if s == nil || s.Kind != semantic.SymbolLocalFunction {
				return true
			}
			if owner := g.owner(n.Parent()); owner != nil {
				g.addNode(s, g.qns[owner]+"."+s.Name+signature(s))
			}
			return true
		})
	}
}

func (g *graph) addNode(s *semantic.Symbol, qn string) {
	decls := g.index.Declarations(s)
	label, ok := labels[s.Kind]
	if !ok || len(decls) == 0 {
		return
	}
	d := decls[0]
	name := s.Name
	if s.Kind == semantic.SymbolConstructor && s.Container != nil {
		name = s.Container.Name
	}
	g.qns[s] = qn
	g.nodes = append(g.nodes, &store.Node{
		Project:       g.project,
		Label:         label,
		Name:          name,
		QualifiedName: qn,
		Symbol:        s.QualifiedName,
		Language:      string(d.File().Language),
		FilePath:      d.File().Path,
		StartLine:     d.Start().Line,
		StartCol:      d.Start().Column,
		EndLine:       d.End().Line,
		EndCol:        d.End().Column,
		Static:        s.Static,
		Private:       s.Private,
		Const:         s.Const,
		TypeName:      s.TypeName,
		Partial:       len(decls) - 1,
	})
}

// owner returns the innermost persisted declaration enclosing n.
func (g *graph) owner(n *syntax.Node) *semantic.Symbol {
	for p := n; p != nil; p = p.Parent() {
		switch p.Kind() {
		case syntax.KindMethod, syntax.KindConstructor, syntax.KindProperty,
			syntax.KindDeclarator, syntax.KindLocalFunction, syntax.KindType:
			if s := g.index.Symbol(p); s != nil {
				if _, ok := g.qns[s]; ok {
					return s
				}
			}
		}
	}
	return nil
}

// reference emits the inheritance edges and one edge per distinct
// (owner, target, type) reference found in files.
func (g *graph) reference(files []*syntax.File) error {
	for _, s := range g.index.Symbols() {
		if s.Kind == semantic.SymbolType {
			g.addEdge(s, s.Base(), store.EdgeInherits, nil)
		}
	}
	for _, f := range files {
		if err := g.ctx.Err(); err != nil {
			return err
		}
		syntax.Inspect(f.Root, func(n *syntax.Node) bool {
			g.referenceAt(n)
			return true
		})
	}
	return nil
}

func (g *graph) referenceAt(n *syntax.Node) {
	switch n.Kind() {
	case syntax.KindInvocation:
		if syntax.IsNameof(n) {
			return
		}
		g.addEdge(g.owner(n), g.resolve(n), store.EdgeCalls, n)
	case syntax.KindObjectCreation, syntax.KindImplicitObjectCreation:
		g.addEdge(g.owner(n), g.constructed(n), store.EdgeConstructs, n)
	case syntax.KindConstructorInitializer:
		g.addEdge(g.owner(n), g.constructed(n), store.EdgeChains, n)
	case syntax.KindIdentifier:
		if syntax.IsDeclarationName(n) || syntax.IsInsideNameof(n) {
			return
		}
		s := g.index.Symbol(n)
		if s == nil || s.Kind != semantic.SymbolProperty {
			return
		}
		owner := g.owner(n)
		if walker.Reads(n) {
			g.addEdge(owner, s, store.EdgeReadsProperty, n)
		}
		if walker.Writes(n) {
			g.addEdge(owner, s, store.EdgeWritesProperty, n)
		}
	}
}

// resolve finds the member n executes through the walker's resolver, so
// edges agree with what a walk enters. Bodiless targets (abstract and
// interface members) fall back to plain symbol lookup.
func (g *graph) resolve(n *syntax.Node) *semantic.Symbol {
	if t, ok := walker.ResolveTarget(g.ctx, n, g.index); ok && t.Symbol != nil {
		return t.Symbol
	}
	return g.index.Symbol(n)
}

// constructed resolves a creation or chaining node to its constructor, or
// to the type itself when the constructor is implicit.
func (g *graph) constructed(n *syntax.Node) *semantic.Symbol {
	s := g.resolve(n)
	if s.IsImplicit() {
		return s.Container
	}
	return s
}

func (g *graph) addEdge(src, tgt *semantic.Symbol, typ string, at *syntax.Node) {
	if src == nil || tgt == nil {
		return
	}
	srcQN, ok := g.qns[src]
	if !ok {
		return
	}
	tgtQN, ok := g.qns[tgt]
	if !ok {
		return
	}
	key := edgeKey{src, tgt, typ}
	if e := g.seen[key]; e != nil {
		e.Count++
		return
	}
	e := &pendingEdge{SourceQN: srcQN, TargetQN: tgtQN, Type: typ, Count: 1}
	if at != nil {
		e.FilePath = at.File().Path
		e.Line, e.Col = at.Start().Line, at.Start().Column
	}
	g.seen[key] = e
	g.edges = append(g.edges, e)
}

func (g *graph) logEdgeCounts() {
	counts := make(map[string]int)
	for _, e := range g.edges {
		counts[e.Type]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		slog.Info("pipeline.edges", "type", t, "count", counts[t])
	}
}
