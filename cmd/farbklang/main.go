package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/farbklang/internal/adapters/http/api"
	"github.com/okian/farbklang/internal/adapters/http/site"
	"github.com/okian/farbklang/internal/adapters/http/swagger"
	app "github.com/okian/farbklang/internal/app"
	"github.com/okian/farbklang/internal/config"
	"github.com/okian/farbklang/pkg/logger"
	"github.com/okian/farbklang/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "farbklang exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Defaults -> optional file -> env.
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.InitWithWriter(os.Stdout, cfg.LogFormat); err != nil {
		return err
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Init(metrics.WithStoreLabel(cfg.StoreDriver))

	svc := app.New(serviceOptions(cfg, log)...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
	return nil
}

// serviceOptions maps the loaded configuration onto service options.
func serviceOptions(cfg *config.Config, log logger.Logger) []app.Option {
	return []app.Option{
		app.WithLogger(log),
		app.WithStoreDriver(cfg.StoreDriver, cfg.StorePath, cfg.SheetName),
		app.WithWatchStore(cfg.WatchStore),
		app.WithMaxSimilarLimit(cfg.MaxSimilarLimit),
		app.WithSimilarLimit(cfg.SimilarLimit),
		app.WithWorkerCount(cfg.SaveWorkerCount),
		app.WithQueueSize(cfg.SaveQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithSnapshotInterval(time.Duration(cfg.SnapshotIntervalMS) * time.Millisecond),
		app.WithEmotions(cfg.Emotions),
		app.WithMaxEmotions(cfg.MaxEmotions),
	}
}

// newMux wires the docs, the JSON API and the form page.
func newMux(ctx context.Context, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	site.Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater refreshes the process gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
