package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"curricula/internal/audit"
	"curricula/internal/auth/service"
	sessionStore "curricula/internal/auth/store/session"
	userStore "curricula/internal/auth/store/user"
	"curricula/internal/jwt_token"
	"curricula/internal/notify"
	"curricula/internal/password"
	"curricula/internal/platform/config"
	"curricula/internal/platform/httpserver"
	"curricula/internal/platform/logger"
	"curricula/internal/platform/metrics"
	"curricula/internal/platform/postgres"
	"curricula/internal/platform/redis"
	httptransport "curricula/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	auditDB, err := audit.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Error("audit store unavailable", "error", err)
		os.Exit(1)
	}
	defer auditDB.Close()

	m := metrics.New()

	// Redis is optional; the service falls back to durable-store lookups.
	var cache sessionStore.Cache = sessionStore.NewNoop()
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, running without session cache", "error", err)
	} else if redisClient != nil {
		defer redisClient.Close()
		cache = sessionStore.NewRedis(redisClient.Client, log)
	}

	// Kafka is optional; welcome emails are skipped when unconfigured.
	var welcome notify.Queue = notify.NewNoop(log)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaQueue, err := notify.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.WelcomeTopic, log, m)
		if err != nil {
			log.Warn("kafka unavailable, welcome emails disabled", "error", err)
		} else {
			defer kafkaQueue.Close()
			welcome = kafkaQueue
		}
	}

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer)
	authService := service.NewService(
		userStore.NewPostgres(pool),
		sessionStore.NewPostgres(pool),
		cache,
		tokens,
		password.NewHasher(),
		welcome,
		audit.NewPublisher(audit.NewPostgres(auditDB), log),
		log,
		m,
	)

	tracer := otel.Tracer("curricula")
	authHandler := httptransport.NewAuthHandler(authService, tokens, log)
	router := httptransport.NewRouter(authHandler, tracer, log)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting curricula auth server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
