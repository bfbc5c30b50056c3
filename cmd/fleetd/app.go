package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"fleetd/internal/adb"
	"fleetd/internal/config"
	"fleetd/internal/console"
	"fleetd/internal/job"
	"fleetd/internal/lifecycle"
	"fleetd/internal/monitor"
	"fleetd/internal/orchestrator"
	"fleetd/internal/registry"
)

// app holds the assembled component graph for one command invocation.
type app struct {
	cfg   config.Config
	log   zerolog.Logger
	orch  *orchestrator.Orchestrator
	reg   *registry.Registry
	store *monitor.UsageStore
}

func newLogger(level string, jsonOut bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", level)
	}
	var w = os.Stderr
	if jsonOut {
		return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
	}
	cw := zerolog.ConsoleWriter{Out: w}
	return zerolog.New(cw).Level(lvl).With().Timestamp().Logger(), nil
}

// buildApp loads configuration and wires every component. The caller must
// Close the returned app.
func buildApp(cfgPath, logLevel string, logJSON bool) (*app, error) {
	log, err := newLogger(logLevel, logJSON)
	if err != nil {
		return nil, err
	}

	var cfg config.Config
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	cfg = config.ApplyDefaults(cfg)

	catalog := config.NewCatalog(cfg.Profiles)

	var store *monitor.UsageStore
	if cfg.UsageDBPath != "" {
		store, err = monitor.OpenUsageStore(cfg.UsageDBPath)
		if err != nil {
			return nil, fmt.Errorf("open usage store: %w", err)
		}
	}

	mon := monitor.New(monitor.Config{
		Thresholds: cfg.Thresholds,
		Catalog:    catalog,
		Sampler:    monitor.NewHostSampler(cfg.ProcessPatterns),
		Store:      store,
		Log:        log,
	})

	life := lifecycle.New(lifecycle.Config{
		Surface: console.NewExecRunner(cfg.ConsolePath, log),
		Prober:  adb.NewExecProbe(cfg.ADBPath, log),
		Batch:   cfg.Batch,
		Log:     log,
	})

	reg, err := registry.Load(cfg.RegistryPath, log)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, fmt.Errorf("load registry: %w", err)
	}

	orch := orchestrator.New(orchestrator.Config{
		Monitor:   mon,
		Lifecycle: life,
		Instances: reg,
		Jobs:      job.NewExecRunner(cfg.WorkerCmd, log),
		Catalog:   catalog,
		Batch:     cfg.Batch,
		Log:       log,
	})

	return &app{cfg: cfg, log: log, orch: orch, reg: reg, store: store}, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("closing usage store")
		}
	}
}
