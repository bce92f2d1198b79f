// Package scheduler implements the per-source sweep and janitor described
// in §4.7, modeled on the outbox worker's ticker-loop-plus-lease shape
// (internal/outbox/worker.go) generalized from a single table poll to one
// sweep per configured Source against the Job Repository.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pipeworks/taskmesh/internal/broker"
	"github.com/pipeworks/taskmesh/internal/model"
	"github.com/pipeworks/taskmesh/internal/storage"
)

// DefaultSweepInterval matches §4.7's "interval configurable, default 10s".
const DefaultSweepInterval = 10 * time.Second

// DefaultJanitorInterval controls how often ResetExpiredLocks runs; the
// claim TTL is 5 minutes (§5) so a minute-scale janitor cadence is ample.
const DefaultJanitorInterval = time.Minute

// DefaultSweepLimit bounds how many candidates a single sweep claims per
// source per tick.
const DefaultSweepLimit = 25

// Config controls sweep cadence, batch size, and which sources are swept.
type Config struct {
	Sources         []model.Source
	SweepInterval   time.Duration
	JanitorInterval time.Duration
	SweepLimit      int
}

func (c *Config) setDefaults() {
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.JanitorInterval <= 0 {
		c.JanitorInterval = DefaultJanitorInterval
	}
	if c.SweepLimit <= 0 {
		c.SweepLimit = DefaultSweepLimit
	}
}

// Scheduler fires one sweep per source per tick and a janitor pass on a
// separate, slower cadence.
type Scheduler struct {
	repo   storage.Repository
	broker *broker.Broker
	cfg    Config
	log    zerolog.Logger
}

// New constructs a Scheduler.
func New(repo storage.Repository, b *broker.Broker, cfg Config, log zerolog.Logger) *Scheduler {
	cfg.setDefaults()
	return &Scheduler{repo: repo, broker: b, cfg: cfg, log: log}
}

// Run drives sweep and janitor ticks until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().
		Dur("sweep_interval", s.cfg.SweepInterval).
		Dur("janitor_interval", s.cfg.JanitorInterval).
		Int("sources", len(s.cfg.Sources)).
		Msg("scheduler starting")

	sweepTicker := time.NewTicker(s.cfg.SweepInterval)
	defer sweepTicker.Stop()
	janitorTicker := time.NewTicker(s.cfg.JanitorInterval)
	defer janitorTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopping")
			return ctx.Err()
		case <-sweepTicker.C:
			s.sweepAll(ctx)
		case <-janitorTicker.C:
			if reset, err := s.repo.ResetExpiredLocks(ctx); err != nil {
				s.log.Error().Err(err).Msg("janitor reset failed")
			} else if reset > 0 {
				s.log.Info().Int("count", reset).Msg("janitor reset expired locks")
			}
		}
	}
}

func (s *Scheduler) sweepAll(ctx context.Context) {
	for _, source := range s.cfg.Sources {
		if err := s.sweepOne(ctx, source); err != nil {
			s.log.Error().Err(err).Str("source", string(source)).Msg("sweep failed")
		}
	}
}

// sweepOne implements §4.7's three-step tick for a single source: list
// pending candidates (atomically moved to scheduled by the repository),
// enqueue a broker task per candidate, and fall back to store_error on
// enqueue failure, which marks the job failed. The janitor resets only
// processing jobs, so a job whose enqueue failed is not swept again.
func (s *Scheduler) sweepOne(ctx context.Context, source model.Source) error {
	candidates, err := s.repo.ListPending(ctx, source, s.cfg.SweepLimit)
	if err != nil {
		return fmt.Errorf("list pending %s: %w", source, err)
	}
	if len(candidates) == 0 {
		return nil
	}

	queue := fmt.Sprintf("%s_embedding.task_processing", source)
	for _, c := range candidates {
		payload := map[string]string{"arg": c.Key()}
		if err := s.broker.Enqueue(ctx, queue, c.JobID, model.DefaultPriority, payload); err != nil {
			s.log.Error().Err(err).Str("job_id", c.JobID).Msg("enqueue failed, marking job failed")
			if serr := s.repo.StoreError(ctx, c.JobID, c.Owner, err.Error()); serr != nil {
				s.log.Error().Err(serr).Str("job_id", c.JobID).Msg("store_error also failed")
			}
			continue
		}
		s.log.Debug().Str("job_id", c.JobID).Str("queue", queue).Msg("task enqueued")
	}
	return nil
}
