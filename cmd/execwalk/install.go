package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"
)

// serverName is our entry in MCP client configurations.
const serverName = "execwalk"

const cliTimeout = 30 * time.Second

// client is an MCP client we can register with: either through its own CLI,
// or by editing its JSON configuration file.
type client struct {
	name string
	cli  string                   // executable, for CLI-managed clients
	path func(home string) string // config file, for JSON-managed clients
}

var clients = []client{
	{name: "Claude Code", cli: "claude"},
	{name: "Cursor", path: func(home string) string { return filepath.Join(home, ".cursor", "mcp.json") }},
	{name: "Windsurf", path: func(home string) string {
		return filepath.Join(home, ".codeium", "windsurf", "mcp_config.json")
	}},
}

// installer applies or reverts registrations and reports what it does.
type installer struct {
	out    io.Writer
	dryRun bool
	binary string
	home   string
}

func (in *installer) printf(format string, args ...any) {
	fmt.Fprintf(in.out, format, args...)
}

func newInstaller(cmd *cobra.Command, dryRun bool) (*installer, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("home dir: %w", err)
	}
	return &installer{out: cmd.OutOrStdout(), dryRun: dryRun, home: home}, nil
}

func newInstallCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Register the MCP server with Claude Code, Cursor and Windsurf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := newInstaller(cmd, dryRun)
			if err != nil {
				return err
			}
			if in.binary, err = detectBinaryPath(); err != nil {
				return err
			}
			in.printf("execwalk %s install\nBinary: %s\n\n", version, in.binary)
			for _, c := range clients {
				in.install(c)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print what would change without changing it")
	return cmd
}

func newUninstallCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the MCP server registrations made by install",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := newInstaller(cmd, dryRun)
			if err != nil {
				return err
			}
			for _, c := range clients {
				in.uninstall(c)
			}
			in.printf("Done. Binary and databases were NOT removed.\n")
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print what would change without changing it")
	return cmd
}

func (in *installer) install(c client) {
	if c.cli != "" {
		exe := findCLI(c.cli)
		if exe == "" {
			in.printf("[%s] not found, skipping\n", c.name)
			return
		}
		in.printf("[%s] detected (%s)\n", c.name, exe)
		// remove first: add fails when an entry exists
		in.run(exe, true, "mcp", "remove", "-s", "user", serverName)
		if in.run(exe, false, "mcp", "add", "--scope", "user", serverName, "--", in.binary, "mcp") {
			in.printf("  MCP server registered (scope: user)\n")
		}
		return
	}

	path := c.path(in.home)
	in.printf("[%s] MCP config: %s\n", c.name, path)
	if in.dryRun {
		in.printf("  [dry-run] Would upsert %s in %s\n", serverName, path)
		return
	}
	err := editServers(path, true, func(servers map[string]any) {
		servers[serverName] = map[string]any{"command": in.binary, "args": []string{"mcp"}}
	})
	if err != nil {
		in.printf("  %v\n", err)
		return
	}
	in.printf("  MCP server registered in %s\n", path)
}

func (in *installer) uninstall(c client) {
	if c.cli != "" {
		exe := findCLI(c.cli)
		if exe == "" {
			return
		}
		in.printf("[%s] detected (%s)\n", c.name, exe)
		if in.run(exe, false, "mcp", "remove", "-s", "user", serverName) {
			in.printf("  MCP server deregistered\n")
		}
		return
	}

	path := c.path(in.home)
	if !hasServer(path) {
		return
	}
	in.printf("[%s] MCP config: %s\n", c.name, path)
	if in.dryRun {
		in.printf("  [dry-run] Would remove %s from %s\n", serverName, path)
		return
	}
	err := editServers(path, false, func(servers map[string]any) {
		delete(servers, serverName)
	})
	if err != nil {
		in.printf("  %v\n", err)
		return
	}
	in.printf("  Removed %s from %s\n", serverName, path)
}

// run executes a client CLI, or prints it under --dry-run, and reports
// success. Failures are printed unless silent.
func (in *installer) run(exe string, silent bool, args ...string) bool {
	if in.dryRun {
		if !silent {
			in.printf("  [dry-run] Would run: %s %v\n", exe, args)
		}
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stdout, cmd.Stderr = in.out, in.out
	if err := cmd.Run(); err != nil {
		if !silent {
			in.printf("  %s %s: %v\n", filepath.Base(exe), args[1], err)
		}
		return false
	}
	return true
}

// detectBinaryPath resolves the running binary through symlinks.
func detectBinaryPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("detect binary: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolve symlink: %w", err)
	}
	return resolved, nil
}

// findCLI looks up name on PATH, then in the usual per-user and system
// install directories.
func findCLI(name string) string {
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dirs := []string{"/usr/local/bin", filepath.Join(home, ".npm", "bin"), filepath.Join(home, ".local", "bin")}
	if runtime.GOOS == "darwin" {
		dirs = append(dirs, "/opt/homebrew/bin")
	}
	for _, dir := range dirs {
		if p := filepath.Join(dir, name); fileExists(p) {
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// readConfig parses an MCP client config. A missing file is an empty config.
func readConfig(path string) (map[string]any, error) {
	root := map[string]any{}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return root, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return root, nil
}

func hasServer(path string) bool {
	root, err := readConfig(path)
	if err != nil {
		return false
	}
	servers, _ := root["mcpServers"].(map[string]any)
	_, ok := servers[serverName]
	return ok
}

// editServers applies edit to the mcpServers object of a config file and
// replaces the file. Invalid JSON is overwritten only when create is set.
func editServers(path string, create bool, edit func(servers map[string]any)) error {
	root, err := readConfig(path)
	if err != nil {
		if !create {
			return err
		}
		root = map[string]any{}
	}
	servers, ok := root["mcpServers"].(map[string]any)
	if !ok {
		servers = map[string]any{}
	}
	edit(servers)
	root["mcpServers"] = servers

	out, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(out, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
