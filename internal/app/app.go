// Package app is the composition root: it turns a Config into a connected
// host, the services on top of it, the call journal and the MCP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cadbridge/internal/config"
	"cadbridge/internal/dialog"
	"cadbridge/internal/host"
	"cadbridge/internal/logging"
	mcpserver "cadbridge/internal/mcp"
	"cadbridge/internal/service"
	"cadbridge/internal/storage"
)

// Options are the command-line choices layered over the config file.
type Options struct {
	ConfigPath string
	Simulate   bool
	Transport  string
	Addr       string
	Version    string
}

// overlay applies the command-line choices to cfg.
func (o Options) overlay(cfg *config.Config) {
	if o.Simulate {
		cfg.Host.Mode = config.HostSim
	}
	if o.Transport != "" {
		cfg.Server.Transport = o.Transport
	}
	if o.Addr != "" {
		cfg.Server.Addr = o.Addr
	}
}

// App holds every long-lived component of a running bridge.
type App struct {
	cfg    *config.Config
	opts   Options
	log    *logging.Logger
	logger *slog.Logger

	host     host.Host
	guard    *dialog.Supervisor
	gate     *service.CallGate
	relay    *service.Relay
	sketches *service.SketchService
	modeling *service.ModelingService
	inspect  *service.InspectService

	db      *storage.DB
	journal *storage.JournalStore
	pruner  *storage.Pruner

	server *mcpserver.Server
}

// New builds and connects everything described by cfg. On error, whatever
// was already opened is closed again.
func New(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	opts.overlay(cfg)

	log, err := logging.New(logging.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Output:   cfg.Logging.Output,
		FilePath: cfg.Logging.FilePath,
	})
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	a := &App{cfg: cfg, opts: opts, log: log, logger: log.Logger}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	if a.host, err = a.openHost(ctx); err != nil {
		return nil, err
	}

	sigs := cfg.Signatures()
	a.guard = dialog.NewSupervisor(dialog.NewFinder(cfg.Dialog.HostProcess), cfg.DialogOptions(), a.logger)
	a.gate = service.NewCallGate()
	a.relay = &service.Relay{}
	serviceSigs := service.Signatures{
		Dimension: sigs[dialog.ModifyDimension.Name],
		Hole:      sigs[dialog.HoleWizard.Name],
	}
	a.sketches = service.NewSketchService(a.host, a.guard, serviceSigs, a.relay, a.logger)
	a.modeling = service.NewModelingService(a.host, a.sketches, a.guard, serviceSigs, a.relay, a.logger)
	a.inspect = service.NewInspectService(a.host, a.logger)

	if cfg.Journal.Enabled {
		if err := a.openJournal(ctx); err != nil {
			return nil, err
		}
	}

	deps := mcpserver.Deps{
		Name:     cfg.Server.Name,
		Version:  opts.Version,
		Host:     a.host,
		Sketches: a.sketches,
		Modeling: a.modeling,
		Inspect:  a.inspect,
		Guard:    a.guard,
		Gate:     a.gate,
		Logger:   a.logger,
	}
	if a.journal != nil {
		deps.Journal, deps.History = a.journal, a.journal
	}
	a.server = mcpserver.New(deps)
	a.relay.Attach(a.server)
	return a, nil
}

// openHost picks the simulated host or connects to the application. When the
// COM host is unavailable on this platform the simulated host stands in.
func (a *App) openHost(ctx context.Context) (host.Host, error) {
	logger := a.logger.With("component", "host")
	if strings.EqualFold(a.cfg.Host.Mode, config.HostSim) {
		logger.Info("using simulated host")
		return host.NewSim(), nil
	}

	com, err := host.NewCOM(host.COMOptions{
		ProgID:      a.cfg.Host.ProgID,
		Templates:   a.cfg.Host.Templates,
		StartupWait: a.cfg.StartupWait(),
		Visible:     a.cfg.Host.Visible,
	}, a.logger)
	if err != nil {
		logger.Warn("COM host unavailable, falling back to the simulated host", "error", err)
		return host.NewSim(), nil
	}
	if err := com.Connect(ctx); err != nil {
		com.Close()
		return nil, fmt.Errorf("connect to host: %w", err)
	}
	rev, _ := com.Revision(ctx)
	logger.Info("connected to host", "prog_id", a.cfg.Host.ProgID, "revision", rev)
	return com, nil
}

func (a *App) openJournal(ctx context.Context) error {
	db, err := storage.Open(ctx, a.cfg.Journal.Driver, a.cfg.Journal.DSN)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	a.db = db
	a.journal = storage.NewJournalStore(db)
	a.pruner = storage.NewPruner(a.journal, a.cfg.Retention(), a.logger)
	return nil
}

// Server is the MCP tool surface.
func (a *App) Server() *mcpserver.Server { return a.server }

func (a *App) Config() *config.Config { return a.cfg }

func (a *App) Logger() *slog.Logger { return a.logger }

// StartPruning schedules journal retention. It is a no-op without a journal
// or a schedule.
func (a *App) StartPruning(ctx context.Context) error {
	if a.pruner == nil || a.cfg.Journal.PruneSchedule == "" {
		return nil
	}
	a.pruner.RunOnce(ctx)
	return a.pruner.Start(ctx, a.cfg.Journal.PruneSchedule)
}

// ApplyConfig takes over the settings that can change while running: the
// dialog timings and the log level. Everything else needs a restart.
func (a *App) ApplyConfig(old, next *config.Config) {
	a.opts.overlay(next)
	a.guard.SetOptions(next.DialogOptions())
	if err := a.log.SetLevel(next.Logging.Level); err != nil {
		a.logger.Warn("log level not applied", "error", err)
	}
	a.logger.Info("config applied",
		"poll_interval", next.DialogOptions().PollInterval,
		"timeout", next.DialogOptions().Timeout,
		"log_level", next.Logging.Level)

	if old == nil {
		return
	}
	if old.Host.Mode != next.Host.Mode || old.Host.ProgID != next.Host.ProgID {
		a.logger.Warn("host settings changed; restart to apply")
	}
	if old.Journal != next.Journal {
		a.logger.Warn("journal settings changed; restart to apply")
	}
	if old.Server != next.Server {
		a.logger.Warn("server settings changed; restart to apply")
	}
}

// Close waits for the call in flight, then releases the host, the journal
// and the log file.
func (a *App) Close(ctx context.Context) error {
	if a.gate != nil {
		a.gate.Close()
		a.gate.WaitIdle(ctx)
		if call := a.gate.Current(); call != "" {
			a.logger.Warn("shutting down with a call still in flight", "call", call)
		}
	}
	return a.closeResources()
}

func (a *App) closeResources() error {
	var errs []error
	if a.pruner != nil {
		a.pruner.Stop()
	}
	if a.host != nil {
		errs = append(errs, a.host.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.log != nil {
		errs = append(errs, a.log.Close())
	}
	return errors.Join(errs...)
}
