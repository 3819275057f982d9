package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/rigging"
	"github.com/bft-labs/rigging/internal/cliconfig"
	"github.com/bft-labs/rigging/internal/heartbeat"
	"github.com/bft-labs/rigging/internal/metricsrv"
	"github.com/bft-labs/rigging/pkg/diag"
	"github.com/bft-labs/rigging/pkg/lifecycle"
	"github.com/bft-labs/rigging/pkg/log"
	"github.com/bft-labs/rigging/pkg/registry"
	"github.com/bft-labs/rigging/plugins/fswatch"
	"github.com/bft-labs/rigging/plugins/prommetrics"
)

const helpDescription = `
Run a small component graph under the rigging orchestrator: a heartbeat
ticker, an optional file watcher, and an optional Prometheus endpoint.
Components start in dependency order, stop in reverse, and every lifecycle
transition is logged.

Configuration layering: flags override RIGGING_* environment variables,
which override the config file.
`

var exampleUsage = strings.TrimSpace(`
  rigging --heartbeat 2s
  rigging --watch-dir /etc/myapp --metrics-addr :9090
  rigging --config $HOME/.rigging/config.toml --log-level debug
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:     "rigging",
		Short:   "Run a demo component graph under the rigging orchestrator",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Config file first (default $HOME/.rigging/config.toml), then
			// environment, with explicitly set flags winning over both.
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return run(cfg)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.rigging/config.toml)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "emit JSON logs instead of console output")
	root.Flags().StringVar(&cfg.WatchDir, "watch-dir", cfg.WatchDir, "directory to watch for file changes (optional)")
	root.Flags().DurationVar(&cfg.HeartbeatInterval, "heartbeat", cfg.HeartbeatInterval, "heartbeat interval")
	root.Flags().DurationVar(&cfg.PhaseTimeout, "phase-timeout", cfg.PhaseTimeout, "shared deadline for each orchestration phase")
	root.Flags().DurationVar(&cfg.HookTimeout, "hook-timeout", cfg.HookTimeout, "per-hook timeout applied to every component")
	root.Flags().IntVar(&cfg.LayerConcurrency, "layer-concurrency", cfg.LayerConcurrency, "max simultaneous transitions within a layer (0 = unbounded)")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus listen address, e.g. :9090 (empty disables)")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rigging: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg cliconfig.Config) error {
	var logger *log.ZerologAdapter
	if cfg.LogJSON {
		logger = log.NewZerologJSONAdapter(os.Stderr)
	} else {
		logger = log.NewZerologAdapter()
	}
	logger = logger.WithLevel(cfg.LogLevel)

	promReg := prometheus.NewRegistry()
	reporter := diag.NewReporter(logger, prommetrics.NewSink(promReg))

	hookTimeouts := lifecycle.Timeouts{
		OnCreate:  cfg.HookTimeout,
		OnStart:   cfg.HookTimeout,
		OnStop:    cfg.HookTimeout,
		OnDestroy: cfg.HookTimeout,
	}

	instances := registry.New()
	o, err := rigging.New(
		rigging.WithLogger(logger),
		rigging.WithReporter(reporter),
		rigging.WithRegistry(instances),
		rigging.WithPhaseTimeout(cfg.PhaseTimeout),
		rigging.WithLayerConcurrency(cfg.LayerConcurrency),
		rigging.WithDefaultTimeouts(hookTimeouts),
		prommetrics.WithMetrics(promReg),
	)
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}

	beat := rigging.NewToken("heartbeat")
	if err := o.Register(beat, rigging.Value(heartbeat.New(heartbeat.Config{
		Interval: cfg.HeartbeatInterval,
		Logger:   logger,
	}))); err != nil {
		return err
	}

	if cfg.WatchDir != "" {
		_, err := fswatch.Register(o, fswatch.Config{
			Paths:  []string{cfg.WatchDir},
			Logger: logger,
			Handler: func(path string) {
				logger.Info("file changed", log.String("path", path))
			},
		})
		if err != nil {
			return err
		}
	}

	if cfg.MetricsAddr != "" {
		metrics := rigging.NewToken("metrics")
		// The metrics server starts last so every collector is registered
		// before the endpoint is reachable.
		if err := o.Register(metrics, rigging.Value(metricsrv.New(metricsrv.Config{
			Addr:     cfg.MetricsAddr,
			Gatherer: promReg,
			Logger:   logger,
		})), rigging.WithDependencies(beat)); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := o.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("received signal, stopping")

	if _, err := o.Stop(context.Background()); err != nil {
		logger.Error("stop failed", log.Err(err))
	}
	if _, err := o.Destroy(context.Background()); err != nil {
		return fmt.Errorf("destroy: %w", err)
	}
	return nil
}
