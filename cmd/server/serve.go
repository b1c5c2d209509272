package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"bucketlist/internal/access"
	"bucketlist/internal/audit"
	authhandler "bucketlist/internal/auth/handler"
	authservice "bucketlist/internal/auth/service"
	"bucketlist/internal/auth/store/revocation"
	userstore "bucketlist/internal/auth/store/user"
	listhandler "bucketlist/internal/bucketlist/handler"
	listmetrics "bucketlist/internal/bucketlist/metrics"
	listservice "bucketlist/internal/bucketlist/service"
	liststore "bucketlist/internal/bucketlist/store/bucketlist"
	itemstore "bucketlist/internal/bucketlist/store/item"
	jwttoken "bucketlist/internal/jwt_token"
	"bucketlist/internal/platform/config"
	"bucketlist/internal/platform/database"
	"bucketlist/internal/platform/httpserver"
	"bucketlist/internal/platform/logger"
	"bucketlist/internal/platform/metrics"
	"bucketlist/internal/platform/redis"
	"bucketlist/internal/ratelimit"
	httptransport "bucketlist/internal/transport/http"
	"bucketlist/pkg/platform/tx"
)

// stores groups the storage backends selected by configuration.
type stores struct {
	users       authservice.UserStore
	lists       listservice.BucketlistStore
	owners      access.OwnershipLookup
	items       listservice.ItemStore
	revocations interface {
		authservice.RevocationList
		access.RevocationChecker
	}
	rateLimits ratelimit.Store
	authTx     tx.Runner
	listTx     tx.Runner
	checks     map[string]httptransport.HealthCheck
	closers    []func() error
}

func (s *stores) close(log *slog.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn("failed to close resource", "error", err)
		}
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close(log)

	publisher, closeSink := newAuditPublisher(ctx, cfg, log)
	defer closeSink()
	defer func() { _ = publisher.Close(context.WithoutCancel(ctx)) }()

	httpMetrics := metrics.New(prometheus.DefaultRegisterer)
	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, jwttoken.WithTTL(cfg.TokenTTL))

	lists := listservice.New(st.lists, st.items,
		listservice.WithLogger(log),
		listservice.WithAuditPublisher(publisher),
		listservice.WithMetrics(listmetrics.New(prometheus.DefaultRegisterer)),
		listservice.WithTxRunner(st.listTx),
	)
	auth := authservice.New(st.users, tokens,
		authservice.WithLogger(log),
		authservice.WithAuditPublisher(publisher),
		authservice.WithMetrics(httpMetrics),
		authservice.WithRevocationList(st.revocations),
		authservice.WithOwnedResources(lists),
		authservice.WithTxRunner(st.authTx),
		authservice.WithBcryptCost(cfg.BcryptCost),
	)
	gate := access.New(tokens, st.owners,
		access.WithRevocationChecker(st.revocations),
		access.WithSubjectLookup(auth),
		access.WithLogger(log),
	)

	limiter := ratelimit.New(st.rateLimits, log,
		ratelimit.WithPolicy(ratelimit.ClassAuth, ratelimit.Policy{
			Limit:  cfg.RateLimit.AuthRequests,
			Window: cfg.RateLimit.AuthWindow,
		}),
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
	)

	router := httptransport.NewRouter(log, httpMetrics, st.checks,
		authhandler.New(auth, gate, log, authhandler.WithThrottle(limiter.Limit(ratelimit.ClassAuth))),
		listhandler.New(lists, gate, log, cfg.PublicBaseURL),
	)
	srv := httpserver.New(cfg.Addr, router, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting bucketlist server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := publisher.Close(shutdownCtx); err != nil {
			log.Warn("audit publisher did not drain", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}

// openStores picks Postgres when DATABASE_URL is set and in-memory stores
// otherwise. Redis, when configured, takes over the revocation list and the
// rate limit windows.
func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (*stores, error) {
	st := &stores{checks: map[string]httptransport.HealthCheck{}}

	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		lists := liststore.New()
		st.users = userstore.New()
		st.lists = lists
		st.owners = lists
		st.items = itemstore.New()
		st.revocations = revocation.NewInMemoryTRL(nil)
		st.rateLimits = ratelimit.NewInMemoryStore(nil)
		st.authTx = &tx.LockRunner{}
		st.listTx = &tx.LockRunner{}
	} else {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db.Close)
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				st.close(log)
				return nil, err
			}
		}
		lists := liststore.NewPostgres(db)
		st.users = userstore.NewPostgres(db)
		st.lists = lists
		st.owners = lists
		st.items = itemstore.NewPostgres(db)
		st.revocations = revocation.NewPostgresTRL(db)
		st.rateLimits = ratelimit.NewInMemoryStore(nil)
		st.authTx = tx.SQLRunner{DB: db}
		st.listTx = tx.SQLRunner{DB: db}
		st.checks["postgres"] = db.PingContext
		log.Info("using postgres stores")
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		st.close(log)
		return nil, err
	}
	if rdb != nil {
		st.revocations = revocation.NewRedisTRL(rdb.Client)
		st.rateLimits = ratelimit.NewRedisStore(rdb.Client, nil)
		st.checks["redis"] = rdb.Health
		st.closers = append(st.closers, rdb.Close)
		log.Info("using redis token revocation list")
	}
	return st, nil
}

// newAuditPublisher always logs audit events and, when brokers are
// configured, also ships them to Kafka with the log sink as fallback.
func newAuditPublisher(ctx context.Context, cfg config.Server, log *slog.Logger) (*audit.Publisher, func()) {
	logSink := audit.NewLogSink(log)
	if len(cfg.Audit.KafkaBrokers) == 0 {
		return audit.NewPublisher(logSink, log), func() {}
	}
	kafka, err := audit.NewKafkaSink(ctx, cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic, logSink, log)
	if err != nil {
		log.Warn("kafka audit sink unavailable, logging audit events only", "error", err)
		return audit.NewPublisher(logSink, log), func() {}
	}
	return audit.NewPublisher(kafka, log), func() {
		if err := kafka.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to close kafka audit sink", "error", err)
		}
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	db, log, err := openConfiguredDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(cmd.Context(), db); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

func runPurge(cmd *cobra.Command, _ []string) error {
	db, log, err := openConfiguredDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()
	n, err := revocation.NewPostgresTRL(db).PurgeExpired(cmd.Context())
	if err != nil {
		return err
	}
	log.Info("purged expired revocations", "rows", n)
	return nil
}

func openConfiguredDB(ctx context.Context) (*sql.DB, *slog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if cfg.Database.URL == "" {
		return nil, nil, errors.New("DATABASE_URL is required")
	}
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return db, log, nil
}
