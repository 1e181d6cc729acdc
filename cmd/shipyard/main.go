// Command shipyard serves the ship-building API over HTTP.
package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"shipyard/internal/adapters/httpapi"
	"shipyard/internal/archive"
	"shipyard/internal/blob"
	"shipyard/internal/config"
	"shipyard/internal/core"
	"shipyard/pkg/catalog"
)

const readHeaderTimeout = 10 * time.Second

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, nil, os.Stderr)
	stop()
	exitFunc(code)
}

// run loads configuration from environ (the process environment when nil)
// and serves until ctx is cancelled.
func run(ctx context.Context, environ map[string]string, stderr io.Writer) int {
	cfg, err := config.Parse(environ)
	if err != nil {
		fmt.Fprintf(stderr, "shipyard: %v\n", err)
		return 2
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level}))

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer a.close()

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		logger.Error("listen failed", "addr", cfg.HTTPAddr, "error", err)
		return 1
	}
	if err := a.serve(ctx, ln); err != nil {
		logger.Error("server stopped", "error", err)
		return 1
	}
	return 0
}

type app struct {
	cfg     config.Config
	logger  *slog.Logger
	service *core.Service
	handler http.Handler
	close   func()
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		loaded, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		cat = loaded
	}
	waiver, err := cfg.Waiver()
	if err != nil {
		return nil, err
	}

	engine := core.NewRulesEngineWith(core.DefaultRules(waiver)...)
	store, closeStore, err := core.OpenPersistentStore(cfg.StorageOptions(), engine)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StorageDriver, err)
	}
	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("open %s blob store: %w", cfg.Blob.Driver, err)
	}
	archives := archive.New(blobs)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom, err := core.NewPrometheusMetricsRecorder(cfg.MetricsNS, registry)
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	svc := core.NewService(store, cat,
		core.WithLogger(logger),
		core.WithMetricsRecorder(core.MultiMetricsRecorder(prom, core.NewExpvarMetricsRecorder(""))),
		core.WithTracer(core.NewOTelTracer(otel.GetTracerProvider())),
		core.WithClipboard(archives),
		core.WithCapWaiver(waiver),
		core.WithStatsPolicy(cfg.Policy()),
	)

	mux := http.NewServeMux()
	mux.Handle(httpapi.Prefix+"/", httpapi.NewHandler(svc, cat,
		httpapi.WithArchive(archives),
		httpapi.WithLogger(logger),
	))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	logger.Info("shipyard configured",
		"storage", cfg.StorageDriver,
		"blob", string(archives.Driver()),
		"templates", cat.Len(),
		"policy", string(cfg.Policy()),
	)
	return &app{
		cfg:     cfg,
		logger:  logger,
		service: svc,
		handler: mux,
		close: func() {
			if err := closeStore(); err != nil {
				logger.Warn("close store", "error", err)
			}
		},
	}, nil
}

// serve handles requests on ln until ctx is done, then drains in-flight
// requests for at most the configured shutdown timeout.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: a.handler, ReadHeaderTimeout: readHeaderTimeout}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	a.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
