package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	dirmetrics "hirelane/internal/directory/metrics"
	dirservice "hirelane/internal/directory/service"
	profilestore "hirelane/internal/directory/store/profile"
	"hirelane/internal/outbox"
	"hirelane/internal/platform/config"
	"hirelane/internal/platform/kafka/admin"
	"hirelane/internal/platform/kafka/consumer"
	"hirelane/internal/platform/kafka/producer"
	"hirelane/internal/platform/logger"
	"hirelane/internal/platform/postgres"
	reconsumer "hirelane/internal/reconcile/consumer"
	"hirelane/internal/reconcile/events"
	"hirelane/internal/reconcile/ledger"
	reconmetrics "hirelane/internal/reconcile/metrics"
	"hirelane/pkg/platform/tx"
)

// main runs the two background loops: the identity reconciliation consumer
// and the outbox publisher. Both share one process so a single deployment
// keeps the directory and the outbound topic current.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	topics := append(events.Topics(), outbox.TopicDomainEvents, cfg.Kafka.DLQTopic)
	if err := admin.EnsureTopics(ctx, cfg.Kafka.Brokers, topics...); err != nil {
		return err
	}

	prod, err := producer.New(cfg.Kafka.Brokers)
	if err != nil {
		return err
	}
	defer prod.Close()

	profiles := profilestore.NewPostgres(db)
	ledgerStore := ledger.NewPostgres(db)
	runner := tx.NewSQLRunner(db, cfg.Kafka.HandleTimeout)

	directory := dirservice.New(profiles,
		dirservice.WithLogger(log),
		dirservice.WithMetrics(dirmetrics.New()),
	)

	m := reconmetrics.New()
	projector := reconsumer.New(directory, ledgerStore, runner,
		reconsumer.WithLogger(log),
		reconsumer.WithMetrics(m),
	)

	group, err := consumer.New(consumer.Config{
		Brokers:       cfg.Kafka.Brokers,
		Group:         cfg.Kafka.ConsumerGroup,
		Topics:        events.Topics(),
		MaxAttempts:   cfg.Kafka.MaxAttempts,
		HandleTimeout: cfg.Kafka.HandleTimeout,
		DLQTopic:      cfg.Kafka.DLQTopic,
		Producer:      prod,
		OnPark:        reconsumer.NewParkRecorder(ledgerStore, log, m),
	}, projector.Router(), log)
	if err != nil {
		return err
	}
	defer group.Close()

	publisher := outbox.NewPublisher(outbox.NewPostgres(db), prod,
		outbox.WithInterval(cfg.Worker.PollInterval),
		outbox.WithBatchSize(cfg.Worker.BatchSize),
		outbox.WithMaxAttempts(cfg.Worker.PublishAttempts),
		outbox.WithLogger(log),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("identity consumer running", "group", cfg.Kafka.ConsumerGroup, "topics", events.Topics())
		return ignoreCanceled(group.Run(gctx))
	})
	g.Go(func() error {
		log.Info("outbox publisher running", "interval", cfg.Worker.PollInterval)
		return ignoreCanceled(publisher.Run(gctx))
	})

	return g.Wait()
}

// ignoreCanceled maps the loops' shutdown sentinel to a clean exit.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
