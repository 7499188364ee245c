package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper purges published outbox rows past retention on a cron schedule.
type Sweeper struct {
	repo      *Repository
	logger    *slog.Logger
	retention time.Duration
	schedule  string
	cron      *cron.Cron
}

func NewSweeper(repo *Repository, logger *slog.Logger, retention time.Duration, schedule string) *Sweeper {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	if schedule == "" {
		schedule = "30 4 * * *"
	}
	return &Sweeper{repo: repo, logger: logger, retention: retention, schedule: schedule}
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.schedule, func() {
		sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		s.sweep(sweepCtx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("outbox sweeper started", "schedule", s.schedule, "retention", s.retention.String())
	return nil
}

func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.retention)
	n, err := s.repo.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("outbox sweep failed", "err", err)
		return
	}
	if n > 0 {
		s.logger.Info("outbox sweep removed published events", "count", n)
	}
}
