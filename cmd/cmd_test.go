package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd("test")
	for _, name := range []string{"serve", "run", "history"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("missing --config flag")
	}
}

func TestRunThenHistory(t *testing.T) {
	dir := t.TempDir()
	journal := filepath.ToSlash(filepath.Join(dir, "journal.db"))
	cfg := writeFile(t, dir, "config.toml", fmt.Sprintf(`
[journal]
enabled = true
driver = "sqlite"
dsn = '%s'

[logging]
level = "error"
`, journal))
	script := writeFile(t, dir, "row.yaml", `
steps:
  - tool: solidworks_create_sketch
    args: {plane: Top}
  - tool: solidworks_sketch_circle
    args: {radius: 5}
  - tool: solidworks_sketch_circle
    args: {radius: 5, spacing: 5}
`)

	out, err := execute(t, "run", script, "--simulate", "--config", cfg)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "[3] solidworks_sketch_circle (ok)") {
		t.Errorf("unexpected run output:\n%s", out)
	}
	if !strings.Contains(out, "at position (15.0, 0.0) [spacing]") {
		t.Errorf("second circle was not spaced from the first:\n%s", out)
	}

	out, err = execute(t, "history", "--config", cfg, "--limit", "2")
	if err != nil {
		t.Fatalf("history: %v\n%s", err, out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("history printed %d lines, want header + 2:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "STARTED") || !strings.Contains(lines[1], "solidworks_sketch_circle") {
		t.Errorf("unexpected history output:\n%s", out)
	}
}

func TestRun_FailingStep(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.toml", "[journal]\nenabled = false\n\n[logging]\nlevel = \"error\"\n")
	script := writeFile(t, dir, "bad.json", `[
  {"tool": "solidworks_create_sketch", "args": {"plane": "Front"}},
  {"tool": "solidworks_sketch_circle", "args": {"radius": -1}}
]`)

	out, err := execute(t, "run", script, "--simulate", "--config", cfg)
	if err == nil {
		t.Fatalf("expected run to fail:\n%s", out)
	}
	if !strings.Contains(out, "[2] solidworks_sketch_circle (error)") {
		t.Errorf("unexpected run output:\n%s", out)
	}
}
