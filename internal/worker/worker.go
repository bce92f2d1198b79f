// Package worker implements the worker runtime described in §4.7: dequeue
// a task, resolve its processor, run it, persist results/status, notify.
// The dequeue-dispatch-persist loop and its graceful-shutdown handling are
// modeled on the outbox worker's ticker loop (internal/outbox/worker.go),
// generalized from a single DB-table poll to broker-backed dequeue across
// one named queue per source.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pipeworks/taskmesh/internal/broker"
	"github.com/pipeworks/taskmesh/internal/metrics"
	"github.com/pipeworks/taskmesh/internal/model"
	"github.com/pipeworks/taskmesh/internal/notifier"
	"github.com/pipeworks/taskmesh/internal/processor"
	"github.com/pipeworks/taskmesh/internal/storage"
)

// DefaultClaimTTL matches §5's "Claim TTL: 5 minutes".
const DefaultClaimTTL = 5 * time.Minute

// DefaultPollTimeout bounds how long a single Dequeue call blocks before
// the worker re-checks ctx for cancellation.
const DefaultPollTimeout = 2 * time.Second

// IDGenerator issues trace IDs for each task run.
type IDGenerator interface {
	NextString() string
}

// Config controls which queues a Worker polls and its claim/poll cadence.
type Config struct {
	Queues      []string
	ClaimTTL    time.Duration
	PollTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.ClaimTTL <= 0 {
		c.ClaimTTL = DefaultClaimTTL
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = DefaultPollTimeout
	}
}

// Worker dequeues broker tasks, dispatches them through the Processor
// Registry, persists results, and notifies on completion.
type Worker struct {
	broker   *broker.Broker
	repo     storage.Repository
	registry *processor.Registry
	notifier notifier.Notifier
	ids      IDGenerator
	cfg      Config
	log      zerolog.Logger
}

// New constructs a Worker.
func New(b *broker.Broker, repo storage.Repository, registry *processor.Registry, n notifier.Notifier, ids IDGenerator, cfg Config, log zerolog.Logger) *Worker {
	cfg.setDefaults()
	return &Worker{broker: b, repo: repo, registry: registry, notifier: n, ids: ids, cfg: cfg, log: log}
}

// Run polls every configured queue in round-robin until ctx is canceled.
// Cancellation drains whichever task is currently in flight before
// returning (§5: "finish in-flight task").
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Strs("queues", w.cfg.Queues).Msg("worker starting")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker stopping")
			return ctx.Err()
		default:
		}

		processed := false
		for _, queue := range w.cfg.Queues {
			task, err := w.broker.Dequeue(ctx, queue, w.cfg.PollTimeout)
			if err != nil {
				if !errors.Is(err, broker.ErrEmpty) {
					w.log.Error().Err(err).Str("queue", queue).Msg("dequeue error")
				}
				continue
			}
			processed = true
			w.handle(ctx, queue, task)
		}
		if !processed {
			// Nothing ready on any queue this round; yield briefly so an
			// idle worker does not hot-loop across empty queues.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
		}
	}
}

// handle runs one task end to end: claim, resolve, process, persist,
// notify, ack/nack.
func (w *Worker) handle(ctx context.Context, queue string, task *broker.Task) {
	traceID := w.ids.NextString()
	source, jobID, owner := parseTaskArg(task)
	log := w.log.With().Str("job_id", jobID).Str("trace_id", traceID).Str("queue", queue).Logger()

	ok, err := w.repo.Claim(ctx, jobID, owner, w.cfg.ClaimTTL)
	if err != nil || !ok {
		metrics.ClaimsTotal.WithLabelValues("job_repository", "lost").Inc()
		log.Warn().Err(err).Msg("claim failed, dropping duplicate delivery")
		_ = w.broker.Ack(ctx, queue, task.ID)
		return
	}
	metrics.ClaimsTotal.WithLabelValues("job_repository", "won").Inc()
	start := time.Now()

	jobType, err := w.repo.GetType(ctx, jobID, owner)
	if err != nil {
		w.fail(ctx, queue, task, jobID, owner, "unknown", log, err)
		return
	}

	proc, err := w.registry.Resolve(jobType)
	if err != nil {
		w.fail(ctx, queue, task, jobID, owner, string(jobType), log, err)
		return
	}

	payload, err := w.repo.GetData(ctx, jobID, owner)
	if err != nil {
		w.fail(ctx, queue, task, jobID, owner, string(jobType), log, err)
		return
	}
	if source != "" {
		payload["source"] = source
	}

	results, err := proc.Process(ctx, payload, jobID, traceID, owner)
	if err != nil {
		w.fail(ctx, queue, task, jobID, owner, string(jobType), log, err)
		return
	}

	if err := w.repo.StoreResults(ctx, jobID, owner, results, 0); err != nil {
		log.Error().Err(err).Msg("store results failed")
	}
	if err := w.notifier.SendNotification(ctx, results, jobID, traceID); err != nil {
		log.Error().Err(err).Msg("notification failed, job remains completed")
	}
	if err := w.broker.Ack(ctx, queue, task.ID); err != nil {
		log.Error().Err(err).Msg("ack failed")
	}
	metrics.JobsProcessedTotal.WithLabelValues(string(jobType), "completed").Inc()
	metrics.JobProcessingDuration.WithLabelValues(string(jobType)).Observe(time.Since(start).Seconds())
	log.Info().Msg("task completed")
}

func (w *Worker) fail(ctx context.Context, queue string, task *broker.Task, jobID, owner, jobType string, log zerolog.Logger, cause error) {
	log.Error().Err(cause).Msg("task failed")
	if err := w.repo.StoreError(ctx, jobID, owner, cause.Error()); err != nil {
		log.Error().Err(err).Msg("store_error failed")
	}
	retried, err := w.broker.Nack(ctx, queue, task)
	if err != nil {
		log.Error().Err(err).Msg("nack failed")
		return
	}
	if retried {
		log.Warn().Int("attempts", task.Attempts).Msg("task requeued for retry")
		return
	}
	metrics.JobsProcessedTotal.WithLabelValues(jobType, "failed").Inc()
	log.Error().Msg("task exhausted retries")
}

// parseTaskArg decodes the "source:id:owner" convention from §6's broker
// task argument format out of the task's JSON payload's "arg" field.
func parseTaskArg(task *broker.Task) (source, jobID, owner string) {
	var payload struct {
		Arg string `json:"arg"`
	}
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return "", task.ID, ""
	}
	parts := strings.SplitN(payload.Arg, ":", 3)
	switch len(parts) {
	case 3:
		return parts[0], parts[1], parts[2]
	case 2:
		return "", parts[0], parts[1]
	default:
		return "", task.ID, ""
	}
}

// QueueName derives the broker queue name for a source per §6's
// "{source}_embedding.task_processing" convention.
func QueueName(source model.Source) string {
	return string(source) + "_embedding.task_processing"
}
