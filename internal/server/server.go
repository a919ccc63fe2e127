// Package server provides the shared service lifecycle runner.
// cmd/ binaries delegate to server.Run for signal handling, config loading,
// credential publication, observability init, health checks, and graceful
// shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/memora-labs/memora/internal/config"
	"github.com/memora-labs/memora/internal/domain"
	"github.com/memora-labs/memora/internal/observability"
)

// SetupDeps carries the infrastructure handles the composition root needs.
type SetupDeps struct {
	Config  *config.Config
	Logger  *slog.Logger
	HTTPMux *http.ServeMux
}

// Params configures a service's lifecycle runner.
type Params struct {
	// Name identifies the service (e.g. "memora").
	Name string

	// PortFromConfig extracts the HTTP port for this service from config.
	PortFromConfig func(cfg *config.Config) int

	// Setup is the service composition root. It wires adapters and handlers
	// onto deps.HTTPMux and returns a cleanup function invoked after the
	// HTTP server has drained. Setup may be nil for a bare health-check
	// process.
	Setup func(ctx context.Context, deps SetupDeps) (func(context.Context) error, error)
}

// Listeners allows tests to inject pre-bound listeners (port-0 testing).
// Zero value means Run binds its own listener from config.
type Listeners struct {
	HTTP net.Listener
}

// Run executes the full service lifecycle: signal handling, config loading,
// credential publication, observability initialization, HTTP server with
// health checks, and graceful shutdown.
//
// All startup failures are fatal and returned to the caller; bind failures
// are never retried here — the supervisor owns restart policy.
func Run(ctx context.Context, p Params, lns Listeners) error {
	// Signal-based cancellation: ctx.Done() closes on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Load configuration once; the value is immutable from here on.
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize structured logging with secret redaction
	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: p.Name,
		Environment: cfg.Environment,
	})

	// Publish the service-account key path before anything serves traffic so
	// SDK default-credential chains in this process resolve deterministically.
	// The file itself is not validated here: a bad path surfaces on the first
	// downstream model call, not at startup.
	if cfg.GCP.Credentials != "" {
		if err := os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", cfg.GCP.Credentials); err != nil {
			return fmt.Errorf("publish credential path: %w", err)
		}
		logger.Info("service account credential path published",
			slog.String("gcp_credentials", cfg.GCP.Credentials))
	}

	// --- Startup order: tracer -> metrics -> setup -> HTTP server ---

	// Initialize OpenTelemetry tracer
	tracerProvider, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:    p.Name,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}

	// releaseStartup reverses already-started resources when a later startup
	// step fails. The happy path hands them to the shutdown goroutine instead.
	releaseStartup := func(steps ...func(context.Context) error) {
		relCtx, relCancel := context.WithTimeout(context.Background(), domain.ShutdownOTELTimeout)
		defer relCancel()
		for _, step := range steps {
			if relErr := step(relCtx); relErr != nil {
				logger.Error("startup rollback error", slog.String("error", relErr.Error()))
			}
		}
	}

	// Initialize OpenTelemetry metrics
	metricsProvider, err := observability.InitMetrics(ctx, observability.MetricsConfig{
		ServiceName:    p.Name,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
	})
	if err != nil {
		releaseStartup(tracerProvider.Shutdown)
		return fmt.Errorf("initialize metrics: %w", err)
	}

	// Health check shutdown coordination via atomic flag.
	var shuttingDown atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if shuttingDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"shutting_down","service":%q}`, p.Name)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":%q}`, p.Name)
	})

	// Composition root: wire adapters and handlers onto the mux.
	cleanup := func(context.Context) error { return nil }
	if p.Setup != nil {
		cleanup, err = p.Setup(ctx, SetupDeps{
			Config:  cfg,
			Logger:  logger,
			HTTPMux: mux,
		})
		if err != nil {
			releaseStartup(metricsProvider.Shutdown, tracerProvider.Shutdown)
			return fmt.Errorf("setup: %w", err)
		}
	}

	// Bind listener (use injected listener or create from config).
	ln := lns.HTTP
	if ln == nil {
		ln, err = (&net.ListenConfig{}).Listen(ctx, "tcp", fmt.Sprintf(":%d", p.PortFromConfig(cfg)))
		if err != nil {
			releaseStartup(cleanup, metricsProvider.Shutdown, tracerProvider.Shutdown)
			return fmt.Errorf("listen on port %d: %v: %w", p.PortFromConfig(cfg), err, domain.ErrPortUnavailable)
		}
	}

	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Structured concurrency via errgroup ---
	g, ctx := errgroup.WithContext(ctx)

	// Goroutine 1: Serve HTTP
	g.Go(func() error {
		logger.Info("starting HTTP server",
			slog.String("addr", ln.Addr().String()),
			slog.String("environment", cfg.Environment),
			slog.Int("dashboard_port_reserved", cfg.Dashboard.Port),
		)
		if serveErr := server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return nil
	})

	// Goroutine 2: Shutdown trigger — waits for context cancellation, then
	// drains. Shutdown order is explicit reverse of startup:
	// HTTP server -> service cleanup -> metrics -> tracer.
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("received shutdown signal, starting graceful shutdown")

		// 1. Mark shutting down — health checks return 503
		shuttingDown.Store(true)

		// 2. Drain delay — let load balancer propagate endpoint removal
		time.Sleep(domain.ShutdownDrainDelay)

		// 3. Drain HTTP server (reverse of startup: HTTP started last, stops first)
		httpCtx, httpCancel := context.WithTimeout(context.Background(), domain.ShutdownHTTPTimeout)
		defer httpCancel()
		if shutdownErr := server.Shutdown(httpCtx); shutdownErr != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", shutdownErr.Error()))
		}

		// 4. Service cleanup (close clients, flush producers)
		if cleanupErr := cleanup(httpCtx); cleanupErr != nil {
			logger.Error("service cleanup error", slog.String("error", cleanupErr.Error()))
		}

		// 5. Flush OTEL (reverse: metrics first, then tracer)
		otelCtx, otelCancel := context.WithTimeout(context.Background(), domain.ShutdownOTELTimeout)
		defer otelCancel()
		if shutdownErr := metricsProvider.Shutdown(otelCtx); shutdownErr != nil {
			logger.Error("failed to shutdown metrics", slog.String("error", shutdownErr.Error()))
		}
		if shutdownErr := tracerProvider.Shutdown(otelCtx); shutdownErr != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", shutdownErr.Error()))
		}

		logger.Info("shutdown complete")
		return nil
	})

	return g.Wait()
}
