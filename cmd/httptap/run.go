package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"nimbus-tools/httptap/pkg/cli"
	"nimbus-tools/httptap/pkg/config"
	"nimbus-tools/httptap/pkg/history"
	"nimbus-tools/httptap/pkg/proxy"
	"nimbus-tools/httptap/pkg/stats"
	"nimbus-tools/httptap/pkg/upstream"
)

var runFlags struct {
	listenAddress string
	target        string
	hostOverride  string
	insecure      bool
	includeBodies bool
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the intercepting proxy",
	Long: `Start the intercepting proxy with the specified configuration.

The proxy listens on the configured address, logs every exchange to the
tap, and relays traffic to the single configured target.

Examples:
  # Forward to a local backend
  httptap run --target 127.0.0.1:8080

  # Run from a config file, overriding the listen address
  httptap run --config /etc/httptap/config.yaml --listen 0.0.0.0:8888

  # Inspect bodies of a self-signed TLS upstream
  httptap run --target https://api.internal:8443 --insecure --include-bodies

  # Validate config without starting the proxy
  httptap run --config config.yaml --dry-run`,
	RunE: runProxy,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVarP(&runFlags.target, "target", "t", "", "override upstream target")
	runCmd.Flags().StringVar(&runFlags.hostOverride, "host-override", "", "override the forwarded Host header")
	runCmd.Flags().BoolVar(&runFlags.insecure, "insecure", false, "skip upstream certificate verification")
	runCmd.Flags().BoolVar(&runFlags.includeBodies, "include-bodies", false, "print body previews in the tap log")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the proxy")
}

func runProxy(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	setupLogging(cfg)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	// Upstream TLS trouble degrades with warnings; only the target itself
	// can fail the build.
	client, upstreamTLS, err := upstream.Build(&cfg.Upstream)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	opts := proxy.Options{}

	if cfg.Stats.Enabled {
		sender := stats.NewSender(cfg.Stats.BufferSize)
		defer sender.Close()
		opts.Sender = sender

		aggregator := stats.NewAggregator()
		go aggregator.Run(ctx, sender.Events())

		if cfg.Telemetry.Metrics.Enabled {
			metrics := stats.NewMetrics(cfg.Telemetry.Metrics.Namespace, sender)
			go metrics.Serve(ctx, cfg.Telemetry.Metrics.ListenAddress)
			opts.Metrics = metrics
			fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Telemetry.Metrics.ListenAddress)
		}
	}

	if cfg.History.Enabled {
		storage, err := openHistoryStorage(cfg)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		recorder := history.NewRecorder(storage)
		defer recorder.Storage().Close()
		opts.Recorder = recorder

		if cfg.History.PruneSchedule != "" {
			pruner := history.NewPruner(recorder.Storage(), cfg.History.RetentionDays)
			scheduler := history.NewScheduler(pruner, cfg.History.PruneSchedule)
			if err := scheduler.Start(ctx); err != nil {
				slog.Warn("retention scheduler unavailable", "error", err)
			} else {
				defer scheduler.Stop()
			}
		}
		fmt.Printf("✓ History backend: %s\n", cfg.History.Backend)
	}

	p, err := proxy.New(cfg, client, upstreamTLS, opts)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	scheme, authority := p.Target()
	fmt.Printf("✓ Listening on %s, forwarding to %s://%s\n", cfg.Proxy.ListenAddress, scheme, authority)
	fmt.Println("\nPress Ctrl+C to stop")

	errChan := make(chan error, 1)
	go func() {
		errChan <- p.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		return nil
	case sig := <-cli.WaitForShutdown():
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := p.Shutdown(shutdownCtx); err != nil {
			return cli.NewCommandError("run", err)
		}
		fmt.Println("✓ Proxy stopped")
		return nil
	}
}

// loadRunConfig loads the file when given, starts from defaults otherwise,
// applies flag overrides, and validates the result.
func loadRunConfig() (*config.Config, error) {
	var cfg *config.Config
	if cfgFile != "" {
		loaded, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return nil, cli.NewConfigError("", err.Error())
		}
		cfg = loaded
	} else {
		cfg = config.NewConfig()
	}

	if runFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
	}
	if runFlags.target != "" {
		cfg.Proxy.Target = runFlags.target
	}
	if runFlags.hostOverride != "" {
		cfg.Proxy.HostOverride = runFlags.hostOverride
	}
	if runFlags.insecure {
		cfg.Upstream.Insecure = true
	}
	if runFlags.includeBodies {
		cfg.Tap.IncludeBodies = true
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if err := config.Validate(cfg); err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	return cfg, nil
}

// setupLogging installs the process-wide slog default. The tap log goes to
// stdout, so diagnostics stay on stderr to keep the tap parseable.
func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch cfg.Telemetry.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Telemetry.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func openHistoryStorage(cfg *config.Config) (history.Storage, error) {
	switch cfg.History.Backend {
	case "sqlite":
		return history.NewSQLiteStorage(cfg.History.Path)
	case "memory":
		return history.NewMemoryStorage(history.DefaultMemoryCapacity), nil
	default:
		return nil, fmt.Errorf("unsupported history backend: %s", cfg.History.Backend)
	}
}
