// Package main is the entry point for the DEX spread monitor.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/fd1az/dex-spread-monitor/business/arbitrage"
	arbitrageApp "github.com/fd1az/dex-spread-monitor/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/dex-spread-monitor/business/arbitrage/di"
	arbitrageInfra "github.com/fd1az/dex-spread-monitor/business/arbitrage/infra"
	"github.com/fd1az/dex-spread-monitor/business/blockchain"
	"github.com/fd1az/dex-spread-monitor/business/notify"
	"github.com/fd1az/dex-spread-monitor/business/pricing"
	"github.com/fd1az/dex-spread-monitor/internal/apm"
	"github.com/fd1az/dex-spread-monitor/internal/config"
	"github.com/fd1az/dex-spread-monitor/internal/health"
	"github.com/fd1az/dex-spread-monitor/internal/logger"
	"github.com/fd1az/dex-spread-monitor/internal/metrics"
	"github.com/fd1az/dex-spread-monitor/internal/monolith"
	"github.com/fd1az/dex-spread-monitor/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

type options struct {
	configPath string
	tui        bool
	once       bool
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	once := flag.Bool("once", false, "Run a single detection cycle and exit (implies -cli)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dex-spread-monitor %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	opts := options{
		configPath: *configPath,
		tui:        !*cliMode && !*once,
		once:       *once,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cancel, opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, closeLog, err := newLogger(cfg, opts.tui)
	if err != nil {
		return err
	}
	defer closeLog()

	log.Info(ctx, "starting DEX spread monitor",
		"version", version,
		"environment", cfg.App.Environment,
		"chain_id", cfg.Network.ChainID,
	)

	stopTelemetry := setupTelemetry(ctx, cfg, log)
	defer stopTelemetry()

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer done()
		_ = healthServer.Stop(shutdownCtx)
	}()

	mono, err := monolith.New(cfg, log, healthServer)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}

	var program *ui.Program
	var tuiWork background
	var startErr error
	var reporter arbitrageApp.Reporter
	if opts.tui {
		program = ui.NewProgram(func() {
			tuiWork.run(func() { startErr = startTUI(ctx, mono, program, log) })
		})
		reporter = arbitrageInfra.NewTUIReporter(program)
	} else {
		reporter = arbitrageInfra.NewConsoleReporter(os.Stdout)
	}

	modules := []monolith.Module{
		&blockchain.Module{}, // endpoint pool and gas oracle
		&pricing.Module{},    // venue quoter, needs the pool
		&notify.Module{},     // dispatcher and dedup cache
		&arbitrage.Module{Reporter: reporter},
	}
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	defer func() {
		closeCtx, done := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer done()
		_ = mono.Close(closeCtx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			log.Info(ctx, "received shutdown signal", "signal", sig.String())
			cancel()
			if program != nil {
				program.Quit()
			}
		case <-ctx.Done():
		}
	}()

	if opts.tui {
		err := program.Run()
		cancel()
		tuiWork.closeAndWait()
		if err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return startErr
	}

	return runCLI(ctx, mono, opts.once, log)
}

func runCLI(ctx context.Context, mono monolith.App, once bool, log logger.LoggerInterface) error {
	if err := mono.StartModules(ctx, mono.Modules()...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	detector := arbitrageDI.GetDetector(mono.Services())
	if err := detector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start detector: %w", err)
	}
	defer func() {
		if err := detector.Stop(); err != nil {
			log.Error(ctx, "error stopping detector", "error", err)
		}
	}()

	scheduler := arbitrageDI.GetScheduler(mono.Services())
	if once {
		_, err := scheduler.RunOnce(ctx)
		return err
	}

	log.Info(ctx, "all modules started, monitoring spreads")
	return scheduler.Run(ctx)
}

// background tracks work started from the dashboard so shutdown can wait for
// it. Work started after closeAndWait is skipped.
type background struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func (b *background) run(fn func()) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	defer b.wg.Done()
	fn()
}

func (b *background) closeAndWait() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}

// dashboard is the part of the TUI program startTUI drives.
type dashboard interface {
	Send(msg tea.Msg)
	Quit()
}

// startTUI runs once the welcome screen is dismissed. Module startup probes
// the endpoints, so progress is reported step by step. A failure quits the
// dashboard and is returned so the process exits non-zero.
func startTUI(ctx context.Context, mono monolith.App, program dashboard, log logger.LoggerInterface) error {
	fail := func(step string, err error) error {
		log.Error(ctx, "startup failed", "step", step, "error", err)
		program.Send(ui.StartupMsg{Step: step, Status: "failed", Message: err.Error()})
		program.Send(ui.ErrorMsg{Error: err})
		program.Quit()
		return fmt.Errorf("%s: %w", step, err)
	}

	program.Send(ui.StartupMsg{Step: "endpoints", Status: "connecting"})
	if err := mono.StartModules(ctx, mono.Modules()...); err != nil {
		return fail("endpoints", err)
	}
	program.Send(ui.StartupMsg{Step: "endpoints", Status: "connected"})
	program.Send(ui.StartupMsg{Step: "venues", Status: "connected"})

	detector := arbitrageDI.GetDetector(mono.Services())
	if err := detector.Start(ctx); err != nil {
		return fail("monitor", err)
	}
	defer detector.Stop()

	if err := arbitrageDI.GetScheduler(mono.Services()).Run(ctx); err != nil {
		return fail("monitor", err)
	}
	return nil
}

// newLogger discards output in TUI mode unless a log file is configured.
func newLogger(cfg *config.Config, tui bool) (*logger.Logger, func(), error) {
	level := logger.ParseLevel(cfg.App.LogLevel)

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if tui {
		w = io.Discard
	}
	if cfg.App.LogFile != "" {
		f, err := os.OpenFile(cfg.App.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}

	return logger.New(w, level, cfg.App.Name, apm.TraceID), closeFn, nil
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) func() {
	if !cfg.Telemetry.Enabled {
		return func() {}
	}
	tel := cfg.Telemetry

	traceProvider, err := apm.NewTraceProvider(apm.Config{
		Provider:    apm.Provider(tel.TraceProvider),
		ServiceName: tel.ServiceName,
		Endpoint:    tel.OTLPEndpoint,
		Headers:     tel.OTLPHeaders,
	}, log)
	if err != nil {
		log.Warn(ctx, "tracing disabled", "error", err)
	}

	metricOpts := []metrics.OptionFn{
		metrics.WithServiceName(tel.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	}
	// Metrics follow traces to the collector when it speaks OTLP/gRPC.
	if apm.Provider(tel.TraceProvider) == apm.OTLPGRPCProvider && tel.OTLPEndpoint != "" {
		metricOpts = append(metricOpts, metrics.WithProviderConfig(
			metrics.NewOtelCollectorConfig(tel.OTLPEndpoint, apm.ParseHeaders(tel.OTLPHeaders), false)))
	}

	meterProvider, err := metrics.NewMetricProvider(metricOpts...)
	if err != nil {
		log.Warn(ctx, "metrics disabled", "error", err)
	}

	var metricsServer *metrics.Server
	if meterProvider != nil && tel.PrometheusPort > 0 {
		metricsServer = metrics.NewServer(tel.PrometheusPort, log)
		metricsServer.Start()
	}

	return func() {
		shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer done()
		if metricsServer != nil {
			_ = metricsServer.Stop(shutdownCtx)
		}
		if meterProvider != nil {
			_ = meterProvider.Shutdown(shutdownCtx)
		}
		if traceProvider != nil {
			_ = traceProvider.Stop()
		}
	}
}
