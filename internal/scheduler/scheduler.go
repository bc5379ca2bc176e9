package scheduler

import (
	"context"
	"fmt"

	"github.com/timbale/registration-service/internal/services"
	"github.com/timbale/registration-service/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Batch is the reconciliation entry point the scheduler fires
type Batch interface {
	ProcessSheet(ctx context.Context) (services.BatchSummary, error)
}

// Scheduler periodically triggers the sheet reconciliation batch
type Scheduler struct {
	cron            *cron.Cron
	batch           Batch
	intervalMinutes int
	log             *logger.Logger
}

// New creates a scheduler firing every intervalMinutes minutes
func New(batch Batch, intervalMinutes int, log *logger.Logger) *Scheduler {
	if intervalMinutes < 1 {
		intervalMinutes = 30
	}
	return &Scheduler{
		cron:            cron.New(),
		batch:           batch,
		intervalMinutes: intervalMinutes,
		log:             log,
	}
}

// Start registers the reconciliation job and starts the cron loop
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %dm", s.intervalMinutes)
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("failed to schedule sheet reconciliation: %w", err)
	}

	s.cron.Start()
	s.log.Infow("Sheet reconciliation scheduled", "interval_minutes", s.intervalMinutes)
	return nil
}

// Stop stops the cron loop and waits for a running batch to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Infow("Scheduler stopped")
}

// run executes one reconciliation pass; a batch runs to completion
func (s *Scheduler) run() {
	s.log.Infow("Starting scheduled sheet reconciliation")

	summary, err := s.batch.ProcessSheet(context.Background())
	if err != nil {
		s.log.Errorw("Scheduled sheet reconciliation failed", "error", err)
		return
	}

	s.log.Infow("Scheduled sheet reconciliation completed",
		"created", summary.Created, "existing", summary.Existing,
		"skipped", summary.Skipped, "failed", summary.Failed)
}
