package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fairwaylive/draw-backend/internal/config"
	"github.com/fairwaylive/draw-backend/internal/httpapi"
	"github.com/fairwaylive/draw-backend/internal/hub"
	"github.com/fairwaylive/draw-backend/internal/pool"
	"github.com/fairwaylive/draw-backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, src, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("store", zap.Error(err))
	}

	h := hub.NewHub(ctx, st, src, hub.Defaults{
		Settle:      cfg.Settle,
		FaceUpLimit: cfg.FaceUpLimit,
	}, logger)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h, st, logger),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
	logger.Info("stopped")
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Production() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// openStore picks Postgres when DATABASE_URL is set and an in-memory store
// otherwise. The in-memory path keeps local runs and demos dependency-free,
// with a static candidate pool to draw from.
func openStore(cfg config.Config, logger *zap.Logger) (store.Store, pool.Source, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("no DATABASE_URL, using in-memory store",
			zap.Int("demo_pool_size", cfg.DemoPool))
		return store.NewMemory(), &pool.Demo{Size: cfg.DemoPool}, nil
	}
	pg, err := store.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return pg, pool.NewDB(pg.DB()), nil
}
