package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/accountkit/accountkit/modules/profile"
	"github.com/accountkit/accountkit/pkg/config"
	"github.com/accountkit/accountkit/pkg/httpserver"
	"github.com/accountkit/accountkit/pkg/logger"
	"github.com/accountkit/accountkit/pkg/pg"
	"github.com/accountkit/accountkit/pkg/redis"
	"github.com/accountkit/accountkit/pkg/webhook"
)

type appConfig struct {
	TokenSecret   string `env:"TOKEN_SECRET,required"`
	WebhookURL    string `env:"WEBHOOK_URL"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		appCfg    appConfig
		loggerCfg logger.Config
		pgCfg     pg.Config
		redisCfg  redis.Config
		httpCfg   httpserver.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&loggerCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&httpCfg)

	log := logger.NewFromConfig(loggerCfg, logger.WithService("accountkit"))

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	opts := []profile.Option{
		profile.WithLogger(log),
	}
	if appCfg.WebhookURL != "" {
		opts = append(opts, profile.WithEmitter(
			profile.NewWebhookEmitter(webhook.NewSender(), appCfg.WebhookURL, appCfg.WebhookSecret),
		))
	}

	svc := profile.NewService(
		profile.NewPostgresUserStore(pool),
		profile.NewRedisVerificationStore(redisClient),
		opts...,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", httpserver.HealthCheckHandler(log))
	r.Get("/readyz", httpserver.HealthCheckHandler(log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))
	r.Mount("/profile", profile.Router(svc, appCfg.TokenSecret))

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, r)
}
