package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pipeworks/taskmesh/internal/apihttp"
	"github.com/pipeworks/taskmesh/internal/auth"
	"github.com/pipeworks/taskmesh/internal/broker"
	"github.com/pipeworks/taskmesh/internal/config"
	"github.com/pipeworks/taskmesh/internal/health"
	"github.com/pipeworks/taskmesh/internal/idgen"
	"github.com/pipeworks/taskmesh/internal/logger"
	"github.com/pipeworks/taskmesh/internal/platform/factory"
)

func main() {
	log := logger.New("apiserver")

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Msg("apiserver starting")

	redisClient := factory.NewRedisClient(cfg)
	db, dialect, err := factory.NewSQLDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("storage unavailable")
	}

	repo, err := factory.NewRepository(cfg, redisClient, db, dialect)
	if err != nil {
		log.Fatal().Err(err).Msg("job repository unavailable")
	}
	c := factory.NewCache(redisClient, db, dialect)
	b := broker.New(redisClient)

	ids, err := idgen.New(cfg.MachineID)
	if err != nil {
		log.Fatal().Err(err).Msg("id generator unavailable")
	}

	healthChecker := health.NewServiceHealthChecker(log)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go healthChecker.Start(ctx, 30*time.Second)

	srv := &apihttp.Server{
		Repo:        repo,
		Broker:      b,
		Authorizer:  auth.NewCacheAuthorizer(c),
		RateLimiter: auth.NewRateLimiter(c),
		IDs:         ids,
		Health:      healthChecker,
		Config:      cfg,
		Log:         log,
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down apiserver")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("apiserver exited")
}
