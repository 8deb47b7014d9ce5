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
	"time"

	"golang.org/x/sync/errgroup"

	intakehandler "kitmatch/internal/intake/handler"
	intakemetrics "kitmatch/internal/intake/metrics"
	intakeservice "kitmatch/internal/intake/service"
	jwttoken "kitmatch/internal/jwt_token"
	matchhandler "kitmatch/internal/matching/handler"
	matchmetrics "kitmatch/internal/matching/metrics"
	matchservice "kitmatch/internal/matching/service"
	matchstore "kitmatch/internal/matching/store"
	notifyhandler "kitmatch/internal/notify/handler"
	notifymetrics "kitmatch/internal/notify/metrics"
	notifyservice "kitmatch/internal/notify/service"
	"kitmatch/internal/notify/transport"
	operatorshandler "kitmatch/internal/operators/handler"
	operatorsservice "kitmatch/internal/operators/service"
	operatorsstore "kitmatch/internal/operators/store"
	pickuphandler "kitmatch/internal/pickup/handler"
	pickupmetrics "kitmatch/internal/pickup/metrics"
	pickupservice "kitmatch/internal/pickup/service"
	"kitmatch/internal/pickupcode"
	"kitmatch/internal/platform/config"
	"kitmatch/internal/platform/httpserver"
	"kitmatch/internal/platform/kafka"
	"kitmatch/internal/platform/logger"
	"kitmatch/internal/platform/metrics"
	pgplatform "kitmatch/internal/platform/postgres"
	redisplatform "kitmatch/internal/platform/redis"
	postshandler "kitmatch/internal/posts/handler"
	postsservice "kitmatch/internal/posts/service"
	poststore "kitmatch/internal/posts/store"
	rlmetrics "kitmatch/internal/ratelimit/metrics"
	rlmw "kitmatch/internal/ratelimit/middleware"
	rlmodels "kitmatch/internal/ratelimit/models"
	rlservice "kitmatch/internal/ratelimit/service"
	rlmemory "kitmatch/internal/ratelimit/store/memory"
	rlredis "kitmatch/internal/ratelimit/store/redis"
	httptransport "kitmatch/internal/transport/http"
	"kitmatch/pkg/platform/audit/publisher"
	auditmemory "kitmatch/pkg/platform/audit/store/memory"
	auditpostgres "kitmatch/pkg/platform/audit/store/postgres"
	"kitmatch/pkg/platform/circuit"
)

const (
	auditBuffer     = 1024
	shutdownTimeout = 15 * time.Second
)

type stores struct {
	matches   matchstore.Store
	posts     poststore.Store
	operators operatorsstore.Store
	audit     publisher.Store
	db        *sql.DB
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
	}
	health := map[string]httptransport.HealthCheck{}
	if st.db != nil {
		health["database"] = st.db.PingContext
	}

	auditor := publisher.NewPublisher(st.audit,
		publisher.WithAsyncBuffer(auditBuffer),
		publisher.WithLogger(log),
	)
	defer auditor.Close()

	limiter, closeLimiter, err := buildLimiter(ctx, cfg, log, auditor, health)
	if err != nil {
		return err
	}
	defer closeLimiter()

	transports, closeTransports, err := buildTransports(ctx, cfg.Notify, log)
	if err != nil {
		return err
	}
	defer closeTransports()

	codes, err := pickupcode.New(
		pickupcode.WithLength(cfg.PickupCode.Length),
		pickupcode.WithMaxAttempts(cfg.PickupCode.MaxAttempts),
		pickupcode.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("pickup codes: %w", err)
	}

	posts := postsservice.New(st.posts,
		postsservice.WithAuditPublisher(auditor),
		postsservice.WithLogger(log),
	)
	notifier := notifyservice.New(st.matches, posts,
		notifyservice.WithTransports(transports...),
		notifyservice.WithAuditPublisher(auditor),
		notifyservice.WithMetrics(notifymetrics.New()),
		notifyservice.WithDeliveryTimeout(cfg.Notify.DeliveryTimeout),
		notifyservice.WithLogger(log),
	)
	matcher := matchservice.New(st.matches, codes,
		matchservice.WithNotifier(notifier),
		matchservice.WithAuditPublisher(auditor),
		matchservice.WithMetrics(matchmetrics.New()),
		matchservice.WithLogger(log),
	)
	pickup := pickupservice.New(st.matches, cfg.Server.PublicBaseURL,
		pickupservice.WithAuditPublisher(auditor),
		pickupservice.WithMetrics(pickupmetrics.New()),
		pickupservice.WithLogger(log),
	)
	intake := intakeservice.New(st.matches, posts, matcher,
		intakeservice.WithAuditPublisher(auditor),
		intakeservice.WithMetrics(intakemetrics.New()),
		intakeservice.WithLogger(log),
	)

	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	operators := operatorsservice.New(st.operators, tokens,
		operatorsservice.WithPostLookup(posts),
		operatorsservice.WithAuditPublisher(auditor),
		operatorsservice.WithLogger(log),
	)
	if _, err := operators.SeedAdmin(ctx, cfg.Auth.BootstrapAdminUsername, cfg.Auth.BootstrapAdminPassword); err != nil {
		return fmt.Errorf("seed administrator: %w", err)
	}

	router := httptransport.NewRouter(httptransport.Handlers{
		Posts:     postshandler.New(posts, log),
		Intake:    intakehandler.New(intake, log),
		Pickup:    pickuphandler.New(pickup, log),
		Matches:   matchhandler.New(matcher, log),
		Notify:    notifyhandler.New(notifier, log),
		Operators: operatorshandler.New(operators, log),
	}, httptransport.Deps{
		Logger:         log,
		Tokens:         jwttoken.NewJWTServiceAdapter(tokens),
		RateLimit:      rlmw.New(limiter, log, rlmw.WithDisabled(cfg.RateLimit.Disabled)),
		Limits:         cfg.RateLimit,
		CORSOrigins:    cfg.Server.CORSAllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		Metrics:        metrics.NewHTTP(),
		Health:         health,
	})

	srv := httpserver.New(cfg.Server.Addr, router, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting kitmatch", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStores uses Postgres when DATABASE_URL is set and in-memory stores
// otherwise.
func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	if cfg.Database.DSN == "" {
		log.Warn("DATABASE_URL not set, records are kept in memory")
		return &stores{
			matches:   matchstore.NewInMemoryStore(),
			posts:     poststore.NewInMemoryStore(),
			operators: operatorsstore.NewInMemoryStore(),
			audit:     auditmemory.NewInMemoryStore(),
		}, nil
	}
	db, err := pgplatform.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := pgplatform.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("connected to postgres", "driver", cfg.Database.Driver)
	return &stores{
		matches:   matchstore.NewPostgres(db).WithTimeout(cfg.StoreTimeout),
		posts:     poststore.NewPostgres(db),
		operators: operatorsstore.NewPostgres(db),
		audit:     auditpostgres.New(db),
		db:        db,
	}, nil
}

func buildLimiter(ctx context.Context, cfg *config.Config, log *slog.Logger, auditor *publisher.Publisher, health map[string]httptransport.HealthCheck) (*rlservice.Service, func(), error) {
	policy, err := rlmodels.ParseFailurePolicy(cfg.RateLimit.FailurePolicy)
	if err != nil {
		return nil, nil, err
	}
	opts := []rlservice.Option{
		rlservice.WithFailurePolicy(policy),
		rlservice.WithBreaker(circuit.New("ratelimit-store")),
		rlservice.WithMetrics(rlmetrics.New()),
		rlservice.WithAuditPublisher(auditor),
		rlservice.WithLogger(log),
	}

	client, err := redisplatform.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Warn("REDIS_URL not set, rate limit counters are per instance")
		svc, err := rlservice.New(rlmemory.New(), opts...)
		return svc, func() {}, err
	}
	health["redis"] = client.Health
	svc, err := rlservice.New(rlredis.New(client.Client), opts...)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return svc, func() { _ = client.Close() }, nil
}

func buildTransports(ctx context.Context, cfg config.NotifyConfig, log *slog.Logger) ([]transport.Transport, func(), error) {
	var (
		out     []transport.Transport
		closers []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	for _, name := range cfg.Transports {
		switch name {
		case transport.NameLog:
			out = append(out, transport.NewLog(log))
		case transport.NameKafka:
			producer, err := kafka.NewProducer(ctx, cfg.KafkaBrokers, "kitmatch")
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			closers = append(closers, producer.Close)
			if err := producer.EnsureTopic(ctx, cfg.KafkaTopic, 3, 1); err != nil {
				closeAll()
				return nil, nil, err
			}
			out = append(out, transport.NewKafka(producer, cfg.KafkaTopic))
		case transport.NameWebhook:
			out = append(out, transport.NewWebhook(cfg.WebhookURL, cfg.WebhookToken))
		case transport.NameTelegram:
			tg, err := transport.NewTelegramBot(cfg.TelegramToken, cfg.TelegramChatID)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			out = append(out, tg)
		}
		log.Info("notification transport enabled", "transport", name)
	}
	return out, closeAll, nil
}
