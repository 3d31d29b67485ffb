package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DeusData/codebase-execwalk/internal/config"
	"github.com/DeusData/codebase-execwalk/internal/discover"
	"github.com/DeusData/codebase-execwalk/internal/lang"
	"github.com/DeusData/codebase-execwalk/internal/order"
	"github.com/DeusData/codebase-execwalk/internal/pipeline"
	"github.com/DeusData/codebase-execwalk/internal/syntax"
	"github.com/DeusData/codebase-execwalk/internal/tools"
	"github.com/DeusData/codebase-execwalk/internal/walker"
)

// loadProject loads repo when it is set and returns file relative to it.
// Otherwise file is loaded on its own.
func loadProject(ctx context.Context, repo, file string) (*pipeline.Project, string, error) {
	if repo != "" {
		root, err := filepath.Abs(repo)
		if err != nil {
			return nil, "", fmt.Errorf("repo path: %w", err)
		}
		proj, err := pipeline.Load(ctx, root, config.Load(root))
		if err != nil {
			return nil, "", err
		}
		rel := file
		if filepath.IsAbs(file) {
			if rel, err = filepath.Rel(root, file); err != nil {
				return nil, "", fmt.Errorf("file %s: %w", file, err)
			}
		}
		return proj, filepath.ToSlash(rel), nil
	}

	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, "", fmt.Errorf("file path: %w", err)
	}
	l, ok := lang.LanguageForExtension(filepath.Ext(abs))
	if !ok {
		return nil, "", fmt.Errorf("%s: not a C# or Java file", file)
	}
	rel := filepath.Base(abs)
	proj, err := pipeline.LoadFiles(ctx, filepath.Dir(abs), []discover.FileInfo{
		{Path: abs, RelPath: rel, Language: l},
	}, 1)
	if err != nil {
		return nil, "", err
	}
	if proj.File(rel) == nil {
		return nil, "", fmt.Errorf("%s: could not be read or parsed", file)
	}
	return proj, rel, nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func newIndexCmd() *cobra.Command {
	var cacheDir string
	cmd := &cobra.Command{
		Use:   "index <repo>",
		Short: "Index a repository into the project database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if !isDir(root) {
				return fmt.Errorf("not a directory: %s", root)
			}
			r, err := openRouter(cacheDir)
			if err != nil {
				return err
			}
			defer r.CloseAll()

			name := pipeline.ProjectNameFromPath(root)
			st, err := r.ForProject(name)
			if err != nil {
				return err
			}
			proj, err := pipeline.New(cmd.Context(), st, root, nil).Run()
			if err != nil {
				return err
			}
			stats, err := st.Stats(name)
			if err != nil {
				return err
			}
			if stats == nil {
				return fmt.Errorf("project %s was not recorded", name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d files, %d declarations, %d edges\n", name, len(proj.Files), stats.Nodes, stats.Edges)
			return nil
		},
	}
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Directory for project databases (default ~/.cache/execwalk)")
	return cmd
}

func newWalkCmd() *cobra.Command {
	var (
		repo    string
		scope   string
		collect string
		limit   int
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "walk <file|dir> <Type[.Member]>",
		Short: "Print the nodes of a type or member in execution order",
		Long: "Walk a type or member in approximate execution order. The first argument is a\n" +
			"source file, or a directory that is loaded as a whole repository. Members are\n" +
			"named Type.Member; overloads take a parameter count suffix (Cart.Add/2).",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, name := args[0], args[1]
			if repo == "" && isDir(target) {
				repo, target = target, ""
			}
			proj, _, err := loadProject(cmd.Context(), repo, target)
			if err != nil {
				return err
			}
			cfg := config.Load(proj.Root)

			sc := cfg.EffectiveScope()
			if scope != "" {
				if sc, err = walker.ParseScope(scope); err != nil {
					return err
				}
			}
			if limit == 0 {
				limit = cfg.EffectiveMaxVisited()
			}

			root, err := proj.FindDeclaration(name)
			if err != nil {
				return err
			}
			res, err := tools.WalkNodes(cmd.Context(), proj, root, sc, collect, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printWalk(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "Load the whole repository so references across files resolve")
	cmd.Flags().StringVarP(&scope, "scope", "s", "", "member, instance, type or recursive (default from .execwalk.yaml, else instance)")
	cmd.Flags().StringVarP(&collect, "collect", "c", "none", "none, assignments or mutations")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Stop after this many visited nodes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printWalk(w io.Writer, res *tools.WalkResult) {
	fmt.Fprintf(w, "%s %s at %s:%s (scope %s, %d visited)\n",
		res.Root.Kind, res.Root.Text, res.Root.File, res.Root.Start, res.Scope, res.Visited)
	for _, n := range res.Nodes {
		fmt.Fprintf(w, "%-24s %-20s %s\n", n.File+":"+n.Start, n.Kind, n.Text)
	}
	if res.Truncated {
		fmt.Fprintln(w, "... truncated")
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parsePositions(raw ...string) ([]syntax.Position, error) {
	out := make([]syntax.Position, 0, len(raw))
	for _, r := range raw {
		p, err := syntax.ParsePosition(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func newBeforeCmd() *cobra.Command {
	var repo string
	cmd := &cobra.Command{
		Use:   "before <file> <line:col> <line:col>",
		Short: "Report whether the first position executes before the second",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePositions(args[1], args[2])
			if err != nil {
				return err
			}
			proj, rel, err := loadProject(cmd.Context(), repo, args[0])
			if err != nil {
				return err
			}
			a, err := proj.NodeAt(rel, pos[0].Line, pos[0].Column)
			if err != nil {
				return err
			}
			b, err := proj.NodeAt(rel, pos[1].Line, pos[1].Column)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), order.ExecutesBefore(a, b))
			return nil
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "Repository the file belongs to")
	return cmd
}

func newResolveCmd() *cobra.Command {
	var repo string
	cmd := &cobra.Command{
		Use:   "resolve <file> <line:col>",
		Short: "Resolve the call, creation or property access at a position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePositions(args[1])
			if err != nil {
				return err
			}
			proj, rel, err := loadProject(cmd.Context(), repo, args[0])
			if err != nil {
				return err
			}
			n, err := proj.NodeAt(rel, pos[0].Line, pos[0].Column)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			t, ok := walker.ResolveTarget(cmd.Context(), n, proj.Index)
			if !ok {
				fmt.Fprintf(out, "%s: unresolved\n", n)
				return nil
			}
			decl := tools.DescribeNode(t.Declaration)
			fmt.Fprintf(out, "%s -> %s %s (%s at %s:%s)\n",
				t.Source, t.Symbol.Kind, t.Symbol.QualifiedName, decl.Kind, decl.File, decl.Start)
			return nil
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "Repository the file belongs to")
	return cmd
}

func newASTCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "ast <file>",
		Short: "Print the syntax tree of a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if raw {
				return printRawAST(cmd.OutOrStdout(), args[0])
			}
			proj, rel, err := loadProject(cmd.Context(), "", args[0])
			if err != nil {
				return err
			}
			printAST(cmd.OutOrStdout(), proj.File(rel).Root, 0)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the tree-sitter tree instead of the normalized one")
	return cmd
}

func printAST(w io.Writer, n *syntax.Node, indent int) {
	text := strings.Join(strings.Fields(n.Text()), " ")
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	fmt.Fprintf(w, "%s%s [%s] %s %q\n", strings.Repeat("  ", indent), n.Kind(), n.RawKind(), n.Start(), text)
	for _, ch := range n.Children() {
		printAST(w, ch, indent+1)
	}
}
