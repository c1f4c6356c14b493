package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"radiology-routing/internal/cache"
	"radiology-routing/internal/combining"
	"radiology-routing/internal/config"
	"radiology-routing/internal/middleware"
	"radiology-routing/internal/models"
	"radiology-routing/internal/notify"
	"radiology-routing/internal/routing"
	"radiology-routing/internal/store"
	"radiology-routing/internal/workload"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Fatal("api exited", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	cfg, err := config.Load(os.Getenv("ROUTING_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	conn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()
	if err := conn.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	pg := store.NewPostgresStore(conn)
	var dataStore routing.DataStore = pg

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		ttl, err := time.ParseDuration(cfg.EquipmentCacheTTL)
		if err != nil {
			return fmt.Errorf("parse equipment_cache_ttl: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		dataStore = &cachedStore{
			DataStore: pg,
			equipment: cache.NewEquipmentCache(pg, rdb, ttl, log),
		}
		log.Info("equipment cache enabled", zap.Duration("ttl", ttl))
	}

	notifier := notify.NewWebhookNotifier(cfg.WebhookURL, log)
	scorer := routing.NewScorer(dataStore, routing.ScorerConfig{
		HorizonDays:         cfg.CapacityHorizonDays,
		ReferenceWeeklyLoad: cfg.ReferenceWeeklyLoad,
	})
	engine := routing.NewEngine(dataStore, scorer, notifier, log, cfg.ScorerConcurrency)
	cmb := combining.NewCombiner(pg, log)
	opt := workload.NewOptimizer(pg, cfg.WorkloadBand, log)

	srv := newServer(engine, cmb, opt, pg, notifier, log)
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recoverer(log))
	srv.routes(r)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", zap.Int("port", cfg.Port))
		errCh <- httpSrv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-stop:
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

// cachedStore overlays the Redis equipment cache on the Postgres store. Only
// the facilities lookup is cached; everything else passes through.
type cachedStore struct {
	routing.DataStore
	equipment *cache.EquipmentCache
}

func (c *cachedStore) GetFacilitiesBySite(ctx context.Context, siteID int64) ([]*models.Facility, error) {
	return c.equipment.GetFacilitiesBySite(ctx, siteID)
}
