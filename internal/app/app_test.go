package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cadbridge/internal/config"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Journal.DSN = filepath.Join(t.TempDir(), "journal.db")
	cfg.Logging.Level = "error"
	a, err := New(context.Background(), cfg, Options{Simulate: true, Version: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { a.Close(context.Background()) })
	return a
}

const plateScript = `
steps:
  - tool: solidworks_create_sketch
    args: {plane: Front}
  - tool: solidworks_sketch_rectangle
    args: {width: 40, height: 30}
  - tool: solidworks_sketch_circle
    args: {radius: 5, spacing: 10}
  - tool: solidworks_exit_sketch
  - tool: solidworks_create_extrusion
    args: {depth: 10}
`

func TestRunScript_JournalsEveryStep(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	s, err := ParseScript("plate.yaml", []byte(plateScript))
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	var out bytes.Buffer
	if err := a.RunScript(ctx, s, &out); err != nil {
		t.Fatalf("RunScript: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "at position (35.0, 0.0) [spacing]") {
		t.Errorf("output missing the spaced circle:\n%s", out.String())
	}

	n, err := a.journal.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("journal has %d entries, want 5", n)
	}
}

func TestRunScript_StopsAtFirstFailure(t *testing.T) {
	a := newTestApp(t)
	s, err := ParseScript("bad.json", []byte(`[
		{"tool": "solidworks_create_sketch"},
		{"tool": "solidworks_sketch_circle", "args": {"radius": 5, "relativeX": 10}},
		{"tool": "solidworks_sketch_circle", "args": {"radius": 5}}
	]`))
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	var out bytes.Buffer
	err = a.RunScript(context.Background(), s, &out)
	if !errors.Is(err, ErrScriptFailed) {
		t.Fatalf("err = %v, want ErrScriptFailed", err)
	}
	if strings.Contains(out.String(), "[3]") {
		t.Errorf("step 3 ran after a failure:\n%s", out.String())
	}
}

func TestParseScript_RequiresTool(t *testing.T) {
	if _, err := ParseScript("s.yaml", []byte("steps:\n  - args: {x: 1}\n")); err == nil {
		t.Error("expected an error for a step without a tool")
	}
}

func TestApplyConfig_UpdatesLiveSettings(t *testing.T) {
	a := newTestApp(t)
	next := config.DefaultConfig()
	next.Dialog.PollIntervalMs = 20
	next.Dialog.TimeoutMs = 400
	next.Logging.Level = "debug"

	a.ApplyConfig(a.cfg, next)

	if got := a.guard.Options().PollInterval; got != 20*time.Millisecond {
		t.Errorf("poll interval = %v", got)
	}
	if got := a.guard.Options().Timeout; got != 400*time.Millisecond {
		t.Errorf("timeout = %v", got)
	}
	if !a.logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level not applied")
	}
	if next.Host.Mode != config.HostSim {
		t.Errorf("command-line --simulate lost on reload: mode = %q", next.Host.Mode)
	}
}
