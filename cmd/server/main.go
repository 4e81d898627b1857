// main wires the scorecard engine together: configuration, storage, cache,
// audit pipeline, services, HTTP surface, and lifecycle. Business logic
// lives in the internal services packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"scorewise/internal/audit"
	auditworker "scorewise/internal/audit/worker"
	"scorewise/internal/evaluation"
	evaluationhandler "scorewise/internal/evaluation/handler"
	evaluationmetrics "scorewise/internal/evaluation/metrics"
	httpapi "scorewise/internal/http"
	"scorewise/internal/platform/config"
	"scorewise/internal/platform/httpserver"
	"scorewise/internal/platform/kafka"
	"scorewise/internal/platform/logger"
	"scorewise/internal/platform/postgres"
	platformredis "scorewise/internal/platform/redis"
	"scorewise/internal/scorecard/cache"
	scorecardhandler "scorewise/internal/scorecard/handler"
	scorecardmetrics "scorewise/internal/scorecard/metrics"
	scorecardservice "scorewise/internal/scorecard/service"
	"scorewise/internal/scorecard/store"
	"scorewise/pkg/platform/middleware/auth"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		log.Error("kafka connection failed", "error", err)
		os.Exit(1)
	}
	if producer != nil {
		defer producer.Close()
	}

	// Stores: Postgres in production, in-memory when no DSN is configured.
	var scorecardStore scorecardservice.Store
	var auditStore audit.Store
	if db != nil {
		scorecardStore = store.NewPostgres(db)
		auditStore = audit.NewPostgres(db)
	} else {
		log.Warn("no POSTGRES_DSN configured, using in-memory stores")
		scorecardStore = store.NewInMemory()
		auditStore = audit.NewInMemoryStore()
	}

	publisher := audit.NewPublisher(auditStore, audit.WithLogger(log))
	defer publisher.Close()

	scorecardOpts := []scorecardservice.Option{
		scorecardservice.WithLogger(log),
		scorecardservice.WithMetrics(scorecardmetrics.New()),
	}
	if redisClient != nil {
		scorecardOpts = append(scorecardOpts,
			scorecardservice.WithCache(cache.NewSnapshot(redisClient.Client, cfg.Redis.SnapshotTTL)))
	}
	scorecards := scorecardservice.New(scorecardStore, auditStore, scorecardOpts...)

	evaluations := evaluation.New(scorecards, publisher,
		evaluation.WithLogger(log),
		evaluation.WithMetrics(evaluationmetrics.New()),
		evaluation.WithBudget(cfg.Server.EvaluationBudget))

	router := httpapi.NewRouter(httpapi.Deps{
		Evaluations: evaluationhandler.New(evaluations, auditStore, log),
		Scorecards:  scorecardhandler.New(scorecards, log),
		Auth:        auth.NewValidator(cfg.Server.JWTSigningKey),
		Logger:      log,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting scorewise", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if db != nil && producer != nil {
		outbox := auditworker.NewOutbox(db, producer, log, cfg.Kafka.PollInterval, cfg.Kafka.BatchSize)
		group.Go(func() error {
			return outbox.Run(ctx)
		})
	} else {
		log.Warn("audit outbox publisher disabled", "postgres", db != nil, "kafka", producer != nil)
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
