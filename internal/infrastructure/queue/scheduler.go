package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"promotion-engine/internal/shared"
	"promotion-engine/pkg/logger"
)

// Scheduler enqueues the periodic maintenance tasks.
type Scheduler struct {
	scheduler   *asynq.Scheduler
	refreshSpec string
}

// NewScheduler builds a scheduler. refreshSpec is a cron spec or an
// "@every <duration>" expression; empty disables the catalog refresh.
func NewScheduler(opt asynq.RedisClientOpt, refreshSpec string) *Scheduler {
	scheduler := asynq.NewScheduler(
		opt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler:   scheduler,
		refreshSpec: refreshSpec,
	}
}

// RegisterJobs registers every periodic task.
func (s *Scheduler) RegisterJobs() error {
	return s.registerCatalogRefreshJob()
}

// ================================================
// Catalog cache refresh
// ================================================
func (s *Scheduler) registerCatalogRefreshJob() error {
	if s.refreshSpec == "" {
		logger.Info("catalog refresh disabled", nil)
		return nil
	}

	task := asynq.NewTask(shared.TypePromotionCatalogRefresh, nil)

	entryID, err := s.scheduler.Register(
		s.refreshSpec,
		task,
		asynq.Queue(shared.QueueLow),
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Second),
		// A slow refill must not pile up behind itself.
		asynq.Unique(time.Minute),
	)
	if err != nil {
		logger.Error("failed to register catalog refresh job", err)
		return err
	}

	logger.Info("registered catalog refresh", map[string]interface{}{
		"spec":     s.refreshSpec,
		"entry_id": entryID,
	})
	return nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

// Shutdown stops the scheduler.
func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
