package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/DeusData/codebase-execwalk/internal/store"
	"github.com/DeusData/codebase-execwalk/internal/tools"
	"github.com/DeusData/codebase-execwalk/internal/watcher"
)

func newMCPCmd() *cobra.Command {
	var (
		cacheDir string
		noWatch  bool
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := openRouter(cacheDir)
			if err != nil {
				return err
			}
			defer r.CloseAll()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := tools.NewServer(r)
			if !noWatch {
				w := watcher.New(r, srv.Reindex)
				go w.Run(ctx)
			}

			slog.Info("mcp.start", "version", version, "cache", r.Dir())
			if err := srv.MCPServer().Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Directory for project databases (default ~/.cache/execwalk)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not re-index projects when their files change")
	return cmd
}

func openRouter(dir string) (*store.StoreRouter, error) {
	if dir != "" {
		return store.NewRouterWithDir(dir)
	}
	return store.NewRouter()
}
