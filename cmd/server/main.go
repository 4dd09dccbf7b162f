package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/chat"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/document"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/policy"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/server"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/redis"
)

// maxConsumerLag is the analytics backlog above which the consumer reports
// degraded.
const maxConsumerLag = 10000

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file (empty for built-in defaults)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err := run(cfg); err != nil {
		slog.Error("policy service failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, err := policy.Load(cfg.Dataset.Path)
	if err != nil {
		return err
	}
	eng := engine.New(ds)
	slog.Info("starting policy service", "port", cfg.Server.Port, "policies", eng.Len())

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	checker := health.NewChecker()
	checker.Register("dataset", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d policies indexed", eng.Len())}
	})

	var queryCache *cache.QueryCache
	var redisPing func(context.Context) error
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL)
			redisPing = redisClient.Ping
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	checker.Register("redis", health.PingCheck(redisPing, false))

	g, gctx := errgroup.WithContext(ctx)

	aggregator := analytics.NewAggregator()
	var publisher analytics.Publisher
	var kafkaPing func(context.Context) error
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.AnalyticsTopic)
		defer producer.Close()
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.AnalyticsTopic, analytics.HandleEvent(aggregator))
		g.Go(func() error { return consumer.Start(gctx) })
		checker.Register("kafka_consumer", func(ctx context.Context) health.ComponentHealth {
			lag := consumer.Lag()
			if lag > maxConsumerLag {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: fmt.Sprintf("lag %d", lag)}
			}
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("lag %d", lag)}
		})
		publisher = producer
		kafkaPing = producer.Ping
		slog.Info("analytics pipeline on kafka", "topic", cfg.Kafka.AnalyticsTopic, "brokers", cfg.Kafka.Brokers)
	} else {
		publisher = analytics.NewLocalPublisher(aggregator)
		slog.Info("kafka disabled, analytics aggregated in process")
	}
	checker.Register("kafka", health.PingCheck(kafkaPing, false))
	collector := analytics.NewCollector(publisher, cfg.Kafka.BufferSize)
	collector.Start(gctx)

	var snapshots analytics.SnapshotLister
	var postgresPing func(context.Context) error
	if cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer pg.Close()
			snapshotStore := store.New(pg.DB)
			if err := snapshotStore.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("preparing snapshot schema: %w", err)
			}
			snapshots = snapshotStore
			postgresPing = pg.Ping
			g.Go(func() error {
				return snapshotStore.Run(gctx, aggregator, cfg.Postgres.SnapshotInterval)
			})
		}
	}
	checker.Register("postgres", health.PingCheck(postgresPing, false))

	var chatOpts []chat.Option
	if m != nil {
		chatOpts = append(chatOpts, chat.WithMetrics(m))
	}
	completer, err := chat.NewLLMCompleter(cfg.Chat, chatOpts...)
	if err != nil {
		return err
	}
	checker.Register("chat", func(ctx context.Context) health.ComponentHealth {
		if !completer.Configured() {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "API key not configured"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: cfg.Chat.Model}
	})
	sessions := chat.NewSessionStore(chat.SystemPrompt(ds.All()), cfg.Chat.MaxSessions, cfg.Chat.MaxTurns)

	var docOpts []document.HandlerOption
	if completer.Configured() {
		docOpts = append(docOpts, document.WithCompleter(completer))
	}

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		return err
	}
	limiter := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer limiter.Stop()

	router := server.New(server.Handlers{
		Search:    handler.New(eng, queryCache, collector, m, cfg.Search.MaxResults),
		Chat:      chat.NewHandler(completer, sessions, collector, m, chat.WithFallback(chat.NewFallbackCompleter(eng))),
		Documents: document.NewHandler(docOpts...),
		Analytics: analytics.NewHandler(aggregator, snapshots),
		Health:    checker,
	}, server.Options{
		Metrics:        m,
		Limiter:        limiter,
		AllowOrigins:   cfg.Server.AllowOrigins,
		Timeout:        cfg.Server.WriteTimeout,
		TrustedProxies: trustedProxies,
	})

	servers := []*http.Server{{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}}
	if m != nil {
		servers = append(servers, m.NewServer(cfg.Metrics.Port))
	}
	for _, srv := range servers {
		g.Go(func() error {
			slog.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutting down %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	err = g.Wait()
	collector.Close()
	slog.Info("policy service stopped")
	return err
}
