// Package config handles configuration loading, validation and hot reload
// for cadbridge.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"cadbridge/internal/dialog"
)

// Host modes.
const (
	HostCOM = "com"
	HostSim = "sim"
)

// Config is the complete cadbridge configuration.
type Config struct {
	Host    HostConfig    `toml:"host" yaml:"host" json:"host"`
	Dialog  DialogConfig  `toml:"dialog" yaml:"dialog" json:"dialog"`
	Journal JournalConfig `toml:"journal" yaml:"journal" json:"journal"`
	Logging LoggingConfig `toml:"logging" yaml:"logging" json:"logging"`
	Server  ServerConfig  `toml:"server" yaml:"server" json:"server"`
}

type HostConfig struct {
	// Mode is com (drive the real application) or sim (in-memory host).
	Mode           string   `toml:"mode" yaml:"mode" json:"mode"`
	ProgID         string   `toml:"prog_id" yaml:"prog_id" json:"prog_id"`
	Templates      []string `toml:"templates" yaml:"templates" json:"templates"`
	StartupWaitSec int      `toml:"startup_wait" yaml:"startup_wait" json:"startup_wait"`
	Visible        bool     `toml:"visible" yaml:"visible" json:"visible"`
}

type DialogConfig struct {
	PollIntervalMs  int    `toml:"poll_interval_ms" yaml:"poll_interval_ms" json:"poll_interval_ms"`
	TimeoutMs       int    `toml:"timeout_ms" yaml:"timeout_ms" json:"timeout_ms"`
	HungCallAfterMs int    `toml:"hung_call_after_ms" yaml:"hung_call_after_ms" json:"hung_call_after_ms"`
	HostProcess     string `toml:"host_process" yaml:"host_process" json:"host_process"`
	// Signatures override or extend the built-in dialog signatures by name.
	Signatures map[string]dialog.Signature `toml:"signatures" yaml:"signatures" json:"signatures"`
}

type JournalConfig struct {
	Enabled       bool   `toml:"enabled" yaml:"enabled" json:"enabled"`
	Driver        string `toml:"driver" yaml:"driver" json:"driver"`
	DSN           string `toml:"dsn" yaml:"dsn" json:"dsn"`
	RetentionDays int    `toml:"retention_days" yaml:"retention_days" json:"retention_days"`
	PruneSchedule string `toml:"prune_schedule" yaml:"prune_schedule" json:"prune_schedule"`
}

type LoggingConfig struct {
	Level    string `toml:"level" yaml:"level" json:"level"`
	Format   string `toml:"format" yaml:"format" json:"format"`
	Output   string `toml:"output" yaml:"output" json:"output"`
	FilePath string `toml:"file_path" yaml:"file_path" json:"file_path"`
}

type ServerConfig struct {
	Name      string `toml:"name" yaml:"name" json:"name"`
	Transport string `toml:"transport" yaml:"transport" json:"transport"`
	Addr      string `toml:"addr" yaml:"addr" json:"addr"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Host: HostConfig{
			Mode:   HostCOM,
			ProgID: "SldWorks.Application",
			Templates: []string{
				`C:\ProgramData\SOLIDWORKS\SOLIDWORKS *\templates\Part.prtdot`,
				`C:\ProgramData\SolidWorks\SOLIDWORKS *\templates\Part.prtdot`,
			},
			StartupWaitSec: 60,
			Visible:        true,
		},
		Dialog: DialogConfig{
			PollIntervalMs:  100,
			TimeoutMs:       10_000,
			HungCallAfterMs: 120_000,
			HostProcess:     "SLDWORKS.exe",
		},
		Journal: JournalConfig{
			Enabled:       true,
			Driver:        "sqlite",
			DSN:           filepath.Join(Dir(), "journal.db"),
			RetentionDays: 30,
			PruneSchedule: "0 3 * * *",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Output:   "stderr",
			FilePath: filepath.Join(Dir(), "logs", "cadbridge.log"),
		},
		Server: ServerConfig{
			Name:      "cadbridge",
			Transport: "stdio",
			Addr:      "127.0.0.1:8765",
		},
	}
}

// Dir is the per-user cadbridge directory.
func Dir() string {
	if d, err := os.UserConfigDir(); err == nil {
		return filepath.Join(d, "cadbridge")
	}
	return ".cadbridge"
}

// Path is the default config file location.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// ApplyEnvOverrides applies CADBRIDGE_* environment variables. Malformed
// numbers are ignored and the file value is kept.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CADBRIDGE_HOST_MODE"); v != "" {
		c.Host.Mode = v
	}
	if v := os.Getenv("CADBRIDGE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v, ok := envInt("CADBRIDGE_DIALOG_POLL_MS"); ok {
		c.Dialog.PollIntervalMs = v
	}
	if v, ok := envInt("CADBRIDGE_DIALOG_TIMEOUT_MS"); ok {
		c.Dialog.TimeoutMs = v
	}
	if v := os.Getenv("CADBRIDGE_JOURNAL_DSN"); v != "" {
		c.Journal.DSN = v
	}
	if v := os.Getenv("CADBRIDGE_TEMPLATE"); v != "" {
		c.Host.Templates = append([]string{v}, c.Host.Templates...)
	}
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

// Validate reports every problem at once.
// normalize lowercases the enumerated settings so later consumers can match
// them exactly.
func (c *Config) normalize() {
	c.Host.Mode = strings.ToLower(strings.TrimSpace(c.Host.Mode))
	c.Journal.Driver = strings.ToLower(strings.TrimSpace(c.Journal.Driver))
	c.Server.Transport = strings.ToLower(strings.TrimSpace(c.Server.Transport))
}

func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Host.Mode) {
	case HostCOM, HostSim:
	default:
		errs = append(errs, fmt.Errorf("host.mode: unknown mode %q (want com or sim)", c.Host.Mode))
	}
	if c.Host.StartupWaitSec < 0 {
		errs = append(errs, errors.New("host.startup_wait: must not be negative"))
	}

	if c.Dialog.PollIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("dialog.poll_interval_ms: must be positive, got %d", c.Dialog.PollIntervalMs))
	}
	if c.Dialog.TimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("dialog.timeout_ms: must be positive, got %d", c.Dialog.TimeoutMs))
	} else if c.Dialog.PollIntervalMs >= c.Dialog.TimeoutMs {
		errs = append(errs, fmt.Errorf("dialog.poll_interval_ms (%d) must be less than dialog.timeout_ms (%d)",
			c.Dialog.PollIntervalMs, c.Dialog.TimeoutMs))
	}
	if c.Dialog.HungCallAfterMs < 0 {
		errs = append(errs, errors.New("dialog.hung_call_after_ms: must not be negative"))
	}
	for name, sig := range c.Dialog.Signatures {
		if sig.Class == "" && sig.Title == "" {
			errs = append(errs, fmt.Errorf("dialog.signatures.%s: class or title is required", name))
		}
	}

	if c.Journal.Enabled {
		switch strings.ToLower(strings.TrimSpace(c.Journal.Driver)) {
		case "sqlite", "postgres", "mysql":
		default:
			errs = append(errs, fmt.Errorf("journal.driver: unknown driver %q (want sqlite, postgres or mysql)", c.Journal.Driver))
		}
		if c.Journal.DSN == "" {
			errs = append(errs, errors.New("journal.dsn: required when the journal is enabled"))
		}
		if c.Journal.RetentionDays < 0 {
			errs = append(errs, errors.New("journal.retention_days: must not be negative"))
		}
		if c.Journal.PruneSchedule != "" {
			if _, err := cron.ParseStandard(c.Journal.PruneSchedule); err != nil {
				errs = append(errs, fmt.Errorf("journal.prune_schedule: %w", err))
			}
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}
	switch strings.ToLower(c.Logging.Output) {
	case "", "stderr", "file", "both":
	default:
		errs = append(errs, fmt.Errorf("logging.output: unknown output %q (stdout is reserved for the MCP transport)", c.Logging.Output))
	}

	switch strings.ToLower(c.Server.Transport) {
	case "stdio":
	case "http":
		if c.Server.Addr == "" {
			errs = append(errs, errors.New("server.addr: required for the http transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("server.transport: unknown transport %q (want stdio or http)", c.Server.Transport))
	}
	return errors.Join(errs...)
}

// DialogOptions converts the dialog section to supervisor timings.
func (c *Config) DialogOptions() dialog.Options {
	return dialog.Options{
		PollInterval:  time.Duration(c.Dialog.PollIntervalMs) * time.Millisecond,
		Timeout:       time.Duration(c.Dialog.TimeoutMs) * time.Millisecond,
		HungCallAfter: time.Duration(c.Dialog.HungCallAfterMs) * time.Millisecond,
	}
}

// Signatures merges the configured dialog signatures over the built-in ones.
func (c *Config) Signatures() map[string]dialog.Signature {
	sigs := dialog.DefaultSignatures()
	for name, sig := range c.Dialog.Signatures {
		sig.Name = name
		sigs[name] = sig
	}
	return sigs
}

// Retention is how long journal entries are kept. Zero keeps them forever.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Journal.RetentionDays) * 24 * time.Hour
}

// StartupWait is how long the COM host waits for a launched application.
func (c *Config) StartupWait() time.Duration {
	return time.Duration(c.Host.StartupWaitSec) * time.Second
}
