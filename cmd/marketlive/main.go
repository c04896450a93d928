// Package main is the entry point for the marketlive client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/marketlive/business/market"
	marketDI "github.com/fd1az/marketlive/business/market/di"
	"github.com/fd1az/marketlive/internal/apm"
	"github.com/fd1az/marketlive/internal/config"
	"github.com/fd1az/marketlive/internal/health"
	"github.com/fd1az/marketlive/internal/logger"
	"github.com/fd1az/marketlive/internal/metrics"
	"github.com/fd1az/marketlive/internal/monolith"
	"github.com/fd1az/marketlive/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("marketlive %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI prints changes line by line
	tuiMode := !*cliMode

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set TUI mode in config so modules pick the right presenter
	cfg.App.TUIMode = tuiMode

	logLevel := logger.ParseLevel(cfg.App.LogLevel)

	var log *logger.Logger
	if tuiMode {
		// Logs would tear the alt screen
		log = logger.New(io.Discard, logLevel, cfg.App.Name, nil)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
		log.Info(ctx, "starting marketlive",
			"version", version,
			"environment", cfg.App.Environment,
			"server", cfg.Server.BaseURL,
		)
	}

	shutdownTelemetry, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	var healthServer *health.Server
	if cfg.Health.Enabled {
		healthServer = health.NewServer(cfg.Health.Port, version, log)
		if err := healthServer.Start(); err != nil {
			log.Warn(ctx, "failed to start health server", "error", err)
			healthServer = nil
		} else {
			log.Info(ctx, "health server started", "port", cfg.Health.Port)
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = healthServer.Stop(stopCtx)
			}()
		}
	}

	mono, err := monolith.New(cfg, log, healthServer)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer func() {
		if err := mono.Close(); err != nil {
			log.Error(context.Background(), "shutdown errors", "error", err)
		}
	}()

	modules := []monolith.Module{
		&market.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if tuiMode {
		startFunc := func() error {
			return mono.StartModules(ctx, modules...)
		}
		return runTUI(ctx, ui.New(marketDI.GetMarketService(mono.Services())), startFunc)
	}

	return runCLI(ctx, log, func() error {
		return mono.StartModules(ctx, modules...)
	})
}

// setupTelemetry installs the trace and meter providers and returns a
// function that flushes them.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *logger.Logger) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	provider, ok := apm.ParseProvider(cfg.Telemetry.TraceProvider)
	if !ok {
		log.Warn(ctx, "unknown trace provider, tracing disabled", "provider", cfg.Telemetry.TraceProvider)
	}

	traceProvider, err := apm.NewTraceProvider(apm.Config{
		Provider:    provider,
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	providerCfg, err := metricsProviderConfig(cfg.Telemetry)
	if err != nil {
		_ = traceProvider.Stop()
		return nil, err
	}

	meterProvider, err := metrics.NewMetricProvider(
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(providerCfg),
	)
	if err != nil {
		_ = traceProvider.Stop()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	var promServer *metrics.PrometheusServer
	if providerCfg.Provider == metrics.PrometheusProvider {
		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		promServer = metrics.NewPrometheusServer(log, metrics.WithPort(strconv.Itoa(port)))
		promServer.Start()
	} else {
		log.Info(ctx, "pushing metrics to collector", "endpoint", providerCfg.Endpoint)
	}

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if promServer != nil {
			_ = promServer.Stop(stopCtx)
		}
		if err := meterProvider.Shutdown(stopCtx); err != nil {
			log.Warn(stopCtx, "meter provider shutdown", "error", err)
		}
		if err := traceProvider.Stop(); err != nil {
			log.Warn(stopCtx, "trace provider shutdown", "error", err)
		}
	}, nil
}

// metricsProviderConfig maps the telemetry settings to a metric reader. The
// OTLP collector shares the trace endpoint and headers.
func metricsProviderConfig(t config.TelemetryConfig) (metrics.ProviderCfg, error) {
	switch t.MetricsProvider {
	case "", config.MetricsPrometheus:
		return metrics.ProviderCfg{Provider: metrics.PrometheusProvider}, nil
	case config.MetricsOTLP:
		headers, err := apm.ParseHeaders(t.OTLPHeaders)
		if err != nil {
			return metrics.ProviderCfg{}, fmt.Errorf("invalid telemetry.otlp_headers: %w", err)
		}
		insecure := strings.HasPrefix(t.OTLPEndpoint, "http://")
		return metrics.NewOtelCollectorConfig(t.OTLPEndpoint, headers, insecure), nil
	default:
		return metrics.ProviderCfg{}, fmt.Errorf("unknown metrics provider %q", t.MetricsProvider)
	}
}

func runCLI(ctx context.Context, log *logger.Logger, startFunc func() error) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := startFunc(); err != nil {
			return fmt.Errorf("failed to start modules: %w", err)
		}
		log.Info(gctx, "all modules started, streaming prices")
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info(context.Background(), "shutting down")
	return nil
}

func runTUI(ctx context.Context, model ui.Model, startFunc func() error) error {
	// Channel to receive StartModulesMsg signal
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		// Wait for welcome screen to complete
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		if err := startFunc(); err != nil {
			ui.Send(ui.StartupMsg{Step: "feed", Status: "failed", Message: err.Error()})
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}
		errCh <- nil
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
