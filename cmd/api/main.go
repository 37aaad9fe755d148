package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/lojafacil/lojas-backend/api/routes"
	"github.com/lojafacil/lojas-backend/internal/accounts"
	"github.com/lojafacil/lojas-backend/internal/views"
	"github.com/lojafacil/lojas-backend/pkg/auth/session"
	"github.com/lojafacil/lojas-backend/pkg/config"
	"github.com/lojafacil/lojas-backend/pkg/db"
	"github.com/lojafacil/lojas-backend/pkg/env"
	"github.com/lojafacil/lojas-backend/pkg/instance"
	"github.com/lojafacil/lojas-backend/pkg/logger"
	"github.com/lojafacil/lojas-backend/pkg/mailer"
	"github.com/lojafacil/lojas-backend/pkg/metrics"
	"github.com/lojafacil/lojas-backend/pkg/migrate"
	"github.com/lojafacil/lojas-backend/pkg/redis"
	"github.com/lojafacil/lojas-backend/pkg/security"
	"github.com/lojafacil/lojas-backend/pkg/tokens"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.Open(ctx, cfg, logg)
	requireResource(ctx, logg, "database", err)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	defer func() {
		if err := multierr.Combine(dbClient.Close(), redisClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	hasher, err := security.NewHasher(cfg.Password)
	requireResource(ctx, logg, "password hasher", err)

	tokenGen, err := tokens.NewGenerator(cfg.Tokens)
	requireResource(ctx, logg, "token generator", err)

	sender, err := mailer.New(cfg.Mail, logg)
	requireResource(ctx, logg, "mailer", err)

	mailTemplates, err := mailer.LoadTemplates()
	requireResource(ctx, logg, "mail templates", err)

	pages, err := views.New()
	requireResource(ctx, logg, "page templates", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	accountService, err := accounts.NewService(accounts.ServiceParams{
		DB:                       dbClient,
		Hasher:                   hasher,
		Tokens:                   tokenGen,
		Mailer:                   sender,
		Templates:                mailTemplates,
		Sessions:                 sessionManager,
		JWTConfig:                cfg.JWT,
		BaseURL:                  cfg.App.BaseURL,
		RequireEmailConfirmation: cfg.Accounts.RequireEmailConfirmation,
		Metrics:                  metrics.NewAccountMetrics(registry),
		Logger:                   logg,
	})
	requireResource(ctx, logg, "accounts service", err)

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			RateLimits:  redisClient,
			Sessions:    sessionManager,
			Accounts:    accountService,
			Pages:       pages,
			HTTPMetrics: metrics.NewHTTPMetrics(registry),
			Gatherer:    registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "graceful shutdown failed", err)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
