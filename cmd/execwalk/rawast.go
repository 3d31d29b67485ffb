package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/codebase-execwalk/internal/lang"
	"github.com/DeusData/codebase-execwalk/internal/parser"
)

// printRawAST dumps the tree-sitter tree of path, before normalization.
func printRawAST(w io.Writer, path string) error {
	l, ok := lang.LanguageForExtension(filepath.Ext(path))
	if !ok {
		return fmt.Errorf("%s: not a C# or Java file", path)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tree, err := parser.Parse(l, source)
	if err != nil {
		return err
	}
	defer tree.Close()

	parser.Walk(tree.RootNode(), func(n *tree_sitter.Node, field string, depth int) bool {
		text := parser.NodeText(n, source)
		if len(text) > 60 {
			text = text[:60] + "..."
		}
		if field != "" {
			field += ": "
		}
		pos := n.StartPosition()
		fmt.Fprintf(w, "%s%s%s %d:%d %q\n", strings.Repeat("  ", depth), field, n.Kind(), pos.Row+1, pos.Column+1, text)
		return true
	})
	return nil
}
