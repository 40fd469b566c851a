// Command server wires the land registry: stores, cache, audit pipeline,
// registry service and HTTP transport. Business rules live in the internal
// packages; main only selects backends from config and manages lifecycle.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"landregistry/internal/identity"
	identitymetrics "landregistry/internal/identity/metrics"
	"landregistry/internal/land"
	"landregistry/internal/platform/config"
	"landregistry/internal/platform/httpserver"
	"landregistry/internal/platform/logger"
	platformredis "landregistry/internal/platform/redis"
	"landregistry/internal/platform/token"
	"landregistry/internal/registry/cache"
	"landregistry/internal/registry/handler"
	registrymetrics "landregistry/internal/registry/metrics"
	"landregistry/internal/registry/service"
	"landregistry/internal/transfer"
	"landregistry/pkg/platform/audit"
	"landregistry/pkg/platform/audit/publisher"
	auditmemory "landregistry/pkg/platform/audit/store/memory"
	auditworker "landregistry/pkg/platform/audit/worker"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		identities identity.Store
		lands      land.Store
		transfers  transfer.Store
		opts       []service.Option
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		identities = identity.NewPostgres(db)
		lands = land.NewPostgres(db)
		transfers = transfer.NewPostgres(db)
		opts = append(opts, service.WithTxRunner(newPostgresTxRunner(db)))
		log.Info("using postgres stores")
	} else {
		identities = identity.NewInMemory()
		lands = land.NewInMemory()
		transfers = transfer.NewInMemory()
		log.Info("using in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, service.WithCache(cache.New(redisClient.Client, cfg.Redis.TTL)))
		log.Info("land cache enabled")
	}

	// Audit events always flow through the in-process inbox; a configured
	// broker additionally receives every event.
	inboxPublisher := publisher.NewChannel(1024, log)
	worker := auditworker.New(auditmemory.New(), inboxPublisher.Inbox())
	var auditPublisher audit.Publisher = inboxPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := publisher.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = kafka.Close(closeCtx)
		}()
		auditPublisher = publisher.Fanout(inboxPublisher, kafka)
		log.Info("kafka audit publisher enabled", "topic", cfg.KafkaTopic)
	}

	opts = append(opts,
		service.WithLogger(log),
		service.WithMetrics(registrymetrics.New()),
		service.WithIdentityMetrics(identitymetrics.New()),
		service.WithAuditPublisher(auditPublisher),
	)
	registry := service.New(identities, lands, transfers, opts...)

	validator := token.NewJWT(cfg.JWTSigningKey, 24*time.Hour)

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler.New(registry, log, validator).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting land registry", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
