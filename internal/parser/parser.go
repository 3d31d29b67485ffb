// Package parser binds the C# and Java tree-sitter grammars and lends pooled
// parsers for them.
package parser

import (
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	tree_sitter_c_sharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"github.com/DeusData/codebase-execwalk/internal/lang"
	"github.com/DeusData/codebase-execwalk/internal/pool"
)

type grammar struct {
	language *tree_sitter.Language
	parsers  *pool.Pool[tree_sitter.Parser]
}

var (
	grammarsOnce sync.Once
	grammars     map[lang.Language]*grammar
)

func loadGrammars() map[lang.Language]*grammar {
	grammarsOnce.Do(func() {
		languages := map[lang.Language]*tree_sitter.Language{
			lang.CSharp: tree_sitter.NewLanguage(tree_sitter_c_sharp.Language()),
			lang.Java:   tree_sitter.NewLanguage(tree_sitter_java.Language()),
		}
		grammars = make(map[lang.Language]*grammar, len(languages))
		for l, tsLang := range languages {
			grammars[l] = &grammar{
				language: tsLang,
				parsers: pool.New(func() *tree_sitter.Parser {
					p := tree_sitter.NewParser()
					if err := p.SetLanguage(tsLang); err != nil {
						panic(fmt.Sprintf("parser: %s grammar: %v", l, err))
					}
					return p
				}, nil),
			}
		}
	})
	return grammars
}

// Parse parses source with the grammar of l. The caller closes the tree.
func Parse(l lang.Language, source []byte) (*tree_sitter.Tree, error) {
	g, ok := loadGrammars()[l]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", l)
	}
	p := g.parsers.Borrow()
	tree := p.Parse(source, nil)
	g.parsers.Return(p)
	if tree == nil {
		return nil, fmt.Errorf("parse %s: no tree", l)
	}
	return tree, nil
}

// Visit is called for each node in document order with the node's field name
// in its parent ("" when unnamed) and its depth below the walk root.
// Returning false skips the node's children.
type Visit func(n *tree_sitter.Node, field string, depth int) bool

// Walk traverses the tree below root with a tree cursor.
func Walk(root *tree_sitter.Node, fn Visit) {
	if root == nil {
		return
	}
	c := root.Walk()
	defer c.Close()

	depth := 0
	for {
		if fn(c.Node(), c.FieldName(), depth) && c.GotoFirstChild() {
			depth++
			continue
		}
		for {
			if depth == 0 {
				return
			}
			if c.GotoNextSibling() {
				break
			}
			c.GotoParent()
			depth--
		}
	}
}

// NodeText returns the source text spanned by n.
func NodeText(n *tree_sitter.Node, source []byte) string {
	start, end := n.StartByte(), n.EndByte()
	if end > uint(len(source)) || start > end {
		return ""
	}
	return string(source[start:end])
}
