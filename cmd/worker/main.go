package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pipeworks/taskmesh/internal/broker"
	"github.com/pipeworks/taskmesh/internal/config"
	"github.com/pipeworks/taskmesh/internal/idgen"
	"github.com/pipeworks/taskmesh/internal/logger"
	"github.com/pipeworks/taskmesh/internal/model"
	"github.com/pipeworks/taskmesh/internal/notifier"
	"github.com/pipeworks/taskmesh/internal/platform/factory"
	"github.com/pipeworks/taskmesh/internal/processor"
	"github.com/pipeworks/taskmesh/internal/worker"
)

var sources = []model.Source{
	model.SourceEmail,
	model.SourceSharePoint,
	model.SourceAWSS3,
	model.SourceAzure,
}

func main() {
	log := logger.New("worker")

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

	vectorStore, err := factory.NewVectorStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("vector store unavailable")
	}
	pipeline := factory.NewEmbeddingPipeline(cfg, vectorStore, log)

	llmProvider := factory.NewLLMProvider(cfg, os.Getenv("OPENAI_API_KEY"))

	registry := processor.NewRegistry()
	registry.Register(model.TypeEmbedding, processor.NewEmbedding(pipeline))
	registry.Register(model.TypeEmailAnalysis, processor.NewEmailAnalysis(llmProvider, cfg.App.CompanyDomains))
	registry.Register(model.TypeSubjectAnalysis, processor.NewSubjectAnalysis(llmProvider))

	n := notifier.NewWebhookNotifier(cfg.Webhook.URL, cfg.Webhook.Enabled, 0, log)

	ids, err := idgen.New(cfg.MachineID)
	if err != nil {
		log.Fatal().Err(err).Msg("id generator unavailable")
	}

	queues := make([]string, 0, len(sources)+1)
	for _, s := range sources {
		queues = append(queues, worker.QueueName(s))
	}
	queues = append(queues, "task_email.process_subjects")

	w := worker.New(b, repo, registry, n, ids, worker.Config{Queues: queues}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Strs("queues", queues).Msg("worker starting")
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("worker exited")
		os.Exit(1)
	}
	log.Info().Msg("worker exited")
}
