package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	apphandler "hirelane/internal/application/handler"
	appmetrics "hirelane/internal/application/metrics"
	appservice "hirelane/internal/application/service"
	appstore "hirelane/internal/application/store/application"
	dirmetrics "hirelane/internal/directory/metrics"
	dirservice "hirelane/internal/directory/service"
	profilestore "hirelane/internal/directory/store/profile"
	"hirelane/internal/docstore"
	ivhandler "hirelane/internal/interview/handler"
	ivmetrics "hirelane/internal/interview/metrics"
	ivservice "hirelane/internal/interview/service"
	ivstore "hirelane/internal/interview/store/interview"
	"hirelane/internal/outbox"
	"hirelane/internal/platform/config"
	"hirelane/internal/platform/httpserver"
	"hirelane/internal/platform/logger"
	"hirelane/internal/platform/metrics"
	"hirelane/internal/platform/middleware"
	"hirelane/internal/platform/postgres"
	"hirelane/internal/platform/redis"
	posthandler "hirelane/internal/posting/handler"
	postservice "hirelane/internal/posting/service"
	poststore "hirelane/internal/posting/store/posting"
	"hirelane/internal/registry"
	httptransport "hirelane/internal/transport/http"
	"hirelane/pkg/platform/circuit"
	"hirelane/pkg/platform/tx"
)

// main wires stores, services, and the HTTP router, then runs the server
// until a shutdown signal arrives. Business logic lives in the feature
// packages; this file only assembles them.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
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

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	profiles := profilestore.NewPostgres(db)
	postings := poststore.NewPostgres(db)
	applications := appstore.NewPostgres(db)
	interviews := ivstore.NewPostgres(db)
	outboxStore := outbox.NewPostgres(db)
	runner := tx.NewSQLRunner(db, cfg.Server.RequestTimeout)

	directory := dirservice.New(profiles,
		dirservice.WithLogger(log),
		dirservice.WithMetrics(dirmetrics.New()),
	)

	var existence registry.Existence = registry.NewChecker(directory, postings, applications)
	if redisClient != nil {
		existence = registry.NewCached(existence, redisClient.Client, cfg.Redis.CacheTTL, log)
	}

	// Documents live behind the Storage interface; the signed-URL store is
	// the only implementation wired today.
	signer := docstore.NewURLSigner([]byte(cfg.Documents.SigningKey), cfg.Documents.BaseURL)
	documents := docstore.NewMemory(signer)

	applicationService := appservice.New(applications, existence, documents, outboxStore, runner,
		appservice.WithLogger(log),
		appservice.WithMetrics(appmetrics.New()),
		appservice.WithBreaker(circuit.New("docstore", circuit.WithFailureThreshold(cfg.Documents.BreakerThreshold))),
		appservice.WithDeleteTimeout(cfg.Documents.DeleteTimeout),
		appservice.WithMaxURLExpiry(cfg.Documents.MaxExpiry),
	)
	interviewService := ivservice.New(interviews, applicationService, existence, outboxStore, runner,
		ivservice.WithLogger(log),
		ivservice.WithMetrics(ivmetrics.New()),
	)
	postingService := postservice.New(postings, directory, postservice.WithLogger(log))

	dependencies := []httptransport.Dependency{
		{Name: "postgres", Check: db.PingContext},
	}
	if redisClient != nil {
		dependencies = append(dependencies, httptransport.Dependency{Name: "redis", Check: redisClient.Health})
	}

	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		Metrics:        metrics.New(),
		JWTValidator:   middleware.NewHMACValidator(cfg.Server.JWTSigningKey),
		RequestTimeout: cfg.Server.RequestTimeout,
		Dependencies:   dependencies,
		Features: []httptransport.Registrar{
			posthandler.New(postingService, log),
			apphandler.New(applicationService, log),
			ivhandler.New(interviewService, log),
		},
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("draining http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
