package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"medipal/internal/adapters/auth/session"
	"medipal/internal/adapters/notifier/local"
	"medipal/internal/adapters/notifier/push"
	"medipal/internal/adapters/storage/file"
	mem "medipal/internal/adapters/storage/memory"
	pg "medipal/internal/adapters/storage/postgres"
	"medipal/internal/adapters/storage/redis"
	"medipal/internal/platform/config"
	"medipal/internal/platform/logger"
	"medipal/internal/platform/metrics"
	"medipal/internal/ports/kv"
	"medipal/internal/ports/notifier"
	"medipal/internal/router"
)

// @title MediPal API
// @version 1.0
// @description Recordatorios de medicación, cuentas locales y preferencias.
// @BasePath /
func main() {
	log := logger.NewFromEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Error("config", map[string]any{"err": err})
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server error", map[string]any{"err": err})
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	tokens, err := session.NewTokens(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}

	m := metrics.New()
	sched := local.New(local.Options{Tick: cfg.SchedulerTick, Logger: log, Metrics: m})

	var pubs []notifier.Publisher
	if cfg.PushGatewayURL != "" {
		gw, err := push.New(push.Config{URL: cfg.PushGatewayURL, APIKey: cfg.PushGatewayKey}, log)
		if err != nil {
			return err
		}
		pubs = append(pubs, gw)
	}

	app, err := router.New(router.Options{
		Tokens:         tokens,
		Store:          store,
		Scheduler:      sched,
		Logger:         log,
		Metrics:        m,
		Publishers:     pubs,
		AuthRatePerMin: cfg.AuthRatePerMin,
	})
	if err != nil {
		return err
	}
	defer app.Hub.Close()

	// Un schedule que no se pudo reconstruir no impide servir la API.
	if err := app.Start(ctx); err != nil {
		log.Warn("startup schedule rebuild failed", map[string]any{"err": err})
	}
	go sched.Run(ctx)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      app,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": cfg.Addr(), "env": cfg.Env, "storage": cfg.StorageBackend})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore elige el backend KV según STORAGE_BACKEND y aplica KV_PREFIX.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (kv.Store, func(), error) {
	var (
		store   kv.Store
		closeFn = func() {}
	)

	switch cfg.StorageBackend {
	case config.BackendMemory:
		store = mem.NewKV()

	case config.BackendFile:
		f, err := file.Open(filepath.Join(cfg.DataDir, "medipal.json"), log, file.Options{})
		if err != nil {
			return nil, nil, err
		}
		store = f
		closeFn = func() {
			if err := f.Close(); err != nil {
				log.Error("file store close failed", map[string]any{"err": err})
			}
		}

	case config.BackendPostgres:
		db, err := pg.Open(cfg.DBDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pg.Migrate(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		store = pg.NewKV(db)
		closeFn = func() { _ = db.Close() }

	case config.BackendRedis:
		r, err := redis.Open(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		store = r
		closeFn = func() { _ = r.Close() }

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	if cfg.KVPrefix != "" {
		store = kv.Prefixed(store, cfg.KVPrefix)
	}
	return store, closeFn, nil
}
