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

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"ateneo/internal/admin"
	adminhandler "ateneo/internal/admin/handler"
	adminservice "ateneo/internal/admin/service"
	caseshandler "ateneo/internal/cases/handler"
	casesservice "ateneo/internal/cases/service"
	debatehandler "ateneo/internal/debate/handler"
	debateservice "ateneo/internal/debate/service"
	"ateneo/internal/events"
	"ateneo/internal/events/kafka"
	jwttoken "ateneo/internal/jwt_token"
	"ateneo/internal/payment/gateway"
	paymenthandler "ateneo/internal/payment/handler"
	paymentservice "ateneo/internal/payment/service"
	"ateneo/internal/platform/config"
	"ateneo/internal/platform/httpserver"
	"ateneo/internal/platform/logger"
	"ateneo/internal/platform/metrics"
	"ateneo/internal/platform/redis"
	profilehandler "ateneo/internal/profile/handler"
	profileservice "ateneo/internal/profile/service"
	"ateneo/internal/ratelimit"
	"ateneo/internal/storage"
	"ateneo/internal/storage/memory"
	"ateneo/internal/storage/postgres"
	httptransport "ateneo/internal/transport/http"
	"ateneo/pkg/platform/middleware/metadata"
)

const shutdownTimeout = 10 * time.Second

// backend is the Profile Store selected by configuration.
type backend interface {
	storage.Tx
	Stores() storage.Stores
}

// main wires dependencies and runs the server until SIGINT or SIGTERM.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	m := metrics.New()
	var checks []func(context.Context) error

	store, db, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		checks = append(checks, db.PingContext)
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	limiter := ratelimit.Limiter(ratelimit.NewMemoryLimiter(cfg.Admin.AuthAttemptsPerMin, time.Minute))
	if redisClient != nil {
		defer redisClient.Close()
		checks = append(checks, redisClient.Health)
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.Admin.AuthAttemptsPerMin, time.Minute)
		log.Info("admin-auth rate limit backed by redis")
	}

	publisher, closePublisher, err := openPublisher(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closePublisher()
	dispatcher := events.NewDispatcher(publisher, log, events.WithMetrics(m))

	gw := newGateway(cfg, log)
	stores := store.Stores()
	signingKey := cfg.Admin.TokenSigningKey
	if signingKey == "" {
		if signingKey, err = jwttoken.RandomSigningKey(); err != nil {
			return err
		}
		log.Warn("ADMIN_TOKEN_SIGNING_KEY not set, using a random per-process key; admin tokens will not survive a restart")
	}
	tokens := jwttoken.NewJWTService(signingKey, "ateneo", cfg.Admin.TokenTTL)
	trusted, err := metadata.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}
	authority := admin.NewAuthority(cfg.Admin.BypassKey, admin.WithKeyHash(cfg.Admin.BypassKeyHash))
	if cfg.Admin.BypassKey == "" && cfg.Admin.BypassKeyHash == "" {
		log.Warn("no admin bypass key configured, admin routes accept tokens only")
	}

	profiles := profileservice.New(store, stores.Profiles, log,
		profileservice.WithWelcomeCredits(cfg.Registration.ProfessionalWelcomeCredits),
		profileservice.WithEvents(dispatcher),
		profileservice.WithMetrics(m),
	)
	cases := casesservice.New(store, stores, log,
		casesservice.WithEvents(dispatcher),
		casesservice.WithMetrics(m),
		casesservice.WithWaiverRequired(cfg.Registration.RequireWaiver),
	)
	if !cfg.Registration.RequireWaiver {
		log.Warn("liability waiver gate disabled")
	}
	debates := debateservice.New(store, log, debateservice.WithEvents(dispatcher), debateservice.WithMetrics(m))
	payments := paymentservice.New(gw, store, stores, log,
		paymentservice.WithPublicBaseURL(cfg.Server.PublicBaseURL),
		paymentservice.WithEvents(dispatcher),
		paymentservice.WithMetrics(m),
	)
	admins := adminservice.New(authority, tokens, store, stores, log,
		adminservice.WithEvents(dispatcher),
		adminservice.WithMetrics(m),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Metrics:        m,
		MetricsHandler: promhttp.Handler(),
		RequestTimeout: cfg.Server.RequestTimeout,
		Health: func(ctx context.Context) error {
			for _, check := range checks {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
		Profiles:         profilehandler.New(profiles, log),
		Cases:            caseshandler.New(cases, log),
		Debates:          debatehandler.New(debates, log),
		Payments:         paymenthandler.New(payments, log),
		Admin:            adminhandler.New(admins, log),
		AdminKeys:        authority,
		ProviderKeys:     admin.AnyOf(authority, admin.NewAuthority(cfg.Admin.DiagnosisProviderKey)),
		AdminTokens:      jwttoken.NewJWTServiceAdapter(tokens),
		AdminAuthLimiter: limiter,
		TrustedProxies:   trusted,
	})
	srv := httpserver.New(cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting ateneo", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (backend, *sql.DB, error) {
	if cfg.URL == "" {
		log.Info("using in-memory profile store")
		return memory.New(memory.WithTxTimeout(cfg.TxTimeout)), nil, nil
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info("using postgres profile store")
	return postgres.New(db, postgres.WithTxTimeout(cfg.TxTimeout)), db, nil
}

func openPublisher(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (events.Publisher, func(), error) {
	if len(cfg.Brokers) == 0 {
		log.Info("kafka not configured, domain events are logged only")
		return events.NewLogPublisher(log), func() {}, nil
	}
	p, err := kafka.New(ctx, cfg.Brokers, cfg.Topic)
	if err != nil {
		return nil, nil, err
	}
	if err := p.EnsureTopic(ctx); err != nil {
		p.Close()
		return nil, nil, err
	}
	log.Info("publishing domain events to kafka", "topic", cfg.Topic)
	return p, p.Close, nil
}

func newGateway(cfg config.Config, log *slog.Logger) gateway.Gateway {
	if cfg.Stripe.SecretKey == "" {
		log.Warn("stripe not configured, using local checkout gateway")
		return gateway.NewLocal(cfg.Stripe.WebhookSecret, cfg.Server.PublicBaseURL)
	}
	return gateway.NewStripe(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
}
