package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const testBinary = "/usr/local/bin/execwalk"

// setTestHome points the home directory at home on every platform and
// empties PATH so no real client CLI is found.
func setTestHome(t *testing.T, home string) {
	t.Helper()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
	t.Setenv("PATH", t.TempDir())
}

func clientNamed(t *testing.T, name string) client {
	t.Helper()
	for _, c := range clients {
		if c.name == name {
			return c
		}
	}
	t.Fatalf("no client %q", name)
	return client{}
}

func testInstaller(t *testing.T, dryRun bool) (*installer, *bytes.Buffer) {
	t.Helper()
	home := t.TempDir()
	setTestHome(t, home)
	var out bytes.Buffer
	return &installer{out: &out, dryRun: dryRun, binary: testBinary, home: home}, &out
}

func readServers(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var root struct {
		Servers map[string]any `json:"mcpServers"`
	}
	if err := json.Unmarshal(data, &root); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}
	return root.Servers
}

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestFindCLI(t *testing.T) {
	home := t.TempDir()
	setTestHome(t, home)

	if got := findCLI("nonexistent-binary-xyz"); got != "" {
		t.Fatalf("findCLI(nonexistent) = %q", got)
	}
	if runtime.GOOS == "windows" {
		t.Skip("fallback directories are Unix locations")
	}

	fake := filepath.Join(home, ".local", "bin", "testcli")
	writeConfigFile(t, fake, "#!/bin/sh\n")
	if got := findCLI("testcli"); got != fake {
		t.Errorf("findCLI fallback = %q, want %q", got, fake)
	}

	onPath := t.TempDir()
	writeConfigFile(t, filepath.Join(onPath, "testcli"), "#!/bin/sh\n")
	if err := os.Chmod(filepath.Join(onPath, "testcli"), 0o500); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", onPath)
	if got := findCLI("testcli"); got != filepath.Join(onPath, "testcli") {
		t.Errorf("findCLI on PATH = %q", got)
	}
}

func TestDetectBinaryPath(t *testing.T) {
	path, err := detectBinaryPath()
	if err != nil {
		t.Fatalf("detectBinaryPath: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Fatalf("expected absolute path, got %q", path)
	}
}

func TestInstallEditor(t *testing.T) {
	in, _ := testInstaller(t, false)
	cursor := clientNamed(t, "Cursor")
	path := cursor.path(in.home)

	in.install(cursor)
	in.install(cursor)

	want := map[string]any{
		serverName: map[string]any{"command": testBinary, "args": []any{"mcp"}},
	}
	if diff := cmp.Diff(want, readServers(t, path)); diff != "" {
		t.Errorf("servers (-want +got):\n%s", diff)
	}
	if fileExists(path + ".tmp") {
		t.Error("temporary file left behind")
	}
}

func TestInstallEditorKeepsOtherServers(t *testing.T) {
	in, _ := testInstaller(t, false)
	cursor := clientNamed(t, "Cursor")
	path := cursor.path(in.home)
	writeConfigFile(t, path, `{"theme": "dark", "mcpServers": {"other": {"command": "/usr/bin/other"}}}`)

	in.install(cursor)

	servers := readServers(t, path)
	if _, ok := servers["other"]; !ok || len(servers) != 2 {
		t.Errorf("servers = %v", servers)
	}
	root, _ := readConfig(path)
	if root["theme"] != "dark" {
		t.Errorf("unrelated settings lost: %v", root)
	}
}

func TestInstallEditorReplacesInvalidJSON(t *testing.T) {
	in, _ := testInstaller(t, false)
	cursor := clientNamed(t, "Cursor")
	path := cursor.path(in.home)
	writeConfigFile(t, path, "{not json")

	in.install(cursor)
	if _, ok := readServers(t, path)[serverName]; !ok {
		t.Error("entry missing after replacing invalid config")
	}
}

func TestUninstallEditor(t *testing.T) {
	in, out := testInstaller(t, false)
	windsurf := clientNamed(t, "Windsurf")
	path := windsurf.path(in.home)
	writeConfigFile(t, path, `{"mcpServers": {"execwalk": {"command": "x"}, "other": {"command": "y"}}}`)

	in.uninstall(windsurf)
	if diff := cmp.Diff(map[string]any{"other": map[string]any{"command": "y"}}, readServers(t, path)); diff != "" {
		t.Errorf("servers after uninstall (-want +got):\n%s", diff)
	}

	out.Reset()
	in.uninstall(windsurf)
	if out.Len() != 0 {
		t.Errorf("second uninstall reported %q", out.String())
	}
}

func TestDryRun(t *testing.T) {
	in, out := testInstaller(t, true)
	cursor := clientNamed(t, "Cursor")
	path := cursor.path(in.home)

	in.install(cursor)
	if fileExists(path) {
		t.Fatalf("dry run wrote %s", path)
	}
	if !strings.Contains(out.String(), "[dry-run] Would upsert execwalk") {
		t.Errorf("dry-run output = %q", out.String())
	}

	writeConfigFile(t, path, `{"mcpServers": {"execwalk": {"command": "x"}}}`)
	out.Reset()
	in.uninstall(cursor)
	if !strings.Contains(out.String(), "[dry-run] Would remove execwalk") {
		t.Errorf("dry-run uninstall output = %q", out.String())
	}
	if _, ok := readServers(t, path)[serverName]; !ok {
		t.Error("dry-run uninstall removed the entry")
	}
}

func TestInstallCommandDryRun(t *testing.T) {
	home := t.TempDir()
	setTestHome(t, home)

	out := mustRun(t, "install", "--dry-run")
	for _, want := range []string{"[Claude Code] not found", "[Cursor] MCP config", "[Windsurf] MCP config"} {
		if !strings.Contains(out, want) {
			t.Errorf("install output missing %q:\n%s", want, out)
		}
	}
	if fileExists(filepath.Join(home, ".cursor")) {
		t.Error("dry run created editor config")
	}
}
