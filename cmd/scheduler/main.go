package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pipeworks/taskmesh/internal/broker"
	"github.com/pipeworks/taskmesh/internal/config"
	"github.com/pipeworks/taskmesh/internal/logger"
	"github.com/pipeworks/taskmesh/internal/model"
	"github.com/pipeworks/taskmesh/internal/platform/factory"
	"github.com/pipeworks/taskmesh/internal/scheduler"
)

var sources = []model.Source{
	model.SourceEmail,
	model.SourceSharePoint,
	model.SourceAWSS3,
	model.SourceAzure,
}

func main() {
	log := logger.New("scheduler")

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	redisClient := factory.NewRedisClient(cfg)
	db, dialect, err := factory.NewSQLDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("storage unavailable")
	}
	repo, err := factory.NewRepository(cfg, redisClient, db, dialect)
	if err != nil {
		log.Fatal().Err(err).Msg("job repository unavailable")
	}
	b := broker.New(redisClient)

	s := scheduler.New(repo, b, scheduler.Config{Sources: sources}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("scheduler starting")
	if err := s.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("scheduler exited")
		os.Exit(1)
	}
	log.Info().Msg("scheduler exited")
}
