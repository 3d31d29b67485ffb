package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/DeusData/codebase-execwalk/internal/tools"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "execwalk",
		Short:         "Walk C# and Java code in execution order",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			// stdout carries results (and the MCP protocol), so logs go to stderr.
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			})))
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.SetVersionTemplate("execwalk {{.Version}}\n")
	tools.Version = version

	rootCmd.AddCommand(
		newMCPCmd(),
		newIndexCmd(),
		newWalkCmd(),
		newBeforeCmd(),
		newResolveCmd(),
		newASTCmd(),
		newInstallCmd(),
		newUninstallCmd(),
	)
	return rootCmd
}
