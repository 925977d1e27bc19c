package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/ladder/internal/adapters/cache"
	"github.com/okian/ladder/internal/adapters/http/api"
	"github.com/okian/ladder/internal/adapters/store"
	app "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/config"
	"github.com/okian/ladder/internal/jobs"
	"github.com/okian/ladder/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// The custom registry carries all service metrics; the default Go and
	// process collectors would only duplicate what /healthz already serves.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			logger.Error(err)
		}
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Durable store first: migrations must have run before anything reads.
	st, err := store.NewPostgresStore(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Error(ctx, "failed to open score store", logger.Error(err))
		return
	}
	defer st.Close()

	rankCache := cache.NewTreapCache(ctx)
	defer rankCache.Close()

	svc := app.New(st, rankCache,
		app.WithLogger(log),
		app.WithTopWindowSize(cfg.TopWindowSize),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.UpdateQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithActivityWeights(cfg.ActivityWeights, cfg.DefaultActivityWeight),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	// Maintenance jobs: daily rank pass and monthly reset. The first pass
	// also warms the cache, so run it once at boot.
	scheduler := jobs.New(st, rankCache,
		jobs.WithRecomputeSchedule(cfg.RecomputeSchedule),
		jobs.WithResetSchedule(cfg.ResetSchedule),
	)
	if err := scheduler.Start(ctx); err != nil {
		log.Error(ctx, "failed to start job scheduler", logger.Error(err))
		return
	}
	defer scheduler.Stop()

	go func() {
		if err := scheduler.RunRecomputeOnce(ctx); err != nil {
			log.Warn(ctx, "initial rank pass failed; cache stays cold until the next run", logger.Error(err))
		}
	}()

	// HTTP mux and routes.
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}
