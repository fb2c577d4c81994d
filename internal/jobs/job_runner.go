package jobs

import (
	"context"
	"time"

	"musicclub-backend/internal/config"
	"musicclub-backend/internal/logger"
	"musicclub-backend/internal/service"
)

const jobTimeout = 10 * time.Minute

// RosterImporter loads the whole roster into the member collection.
type RosterImporter interface {
	Import(ctx context.Context) (int, error)
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	applications service.ApplicationService
	importer     RosterImporter
	config       *config.Config
}

// NewJobRunner creates a job runner. importer may be nil when the roster is
// disabled.
func NewJobRunner(applications service.ApplicationService, importer RosterImporter, cfg *config.Config) *JobRunner {
	return &JobRunner{
		applications: applications,
		importer:     importer,
		config:       cfg,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	logger.Info("Starting job", "job", jobName)
	start := time.Now()
	if err := jobFunc(ctx); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err, "duration", time.Since(start))
		return
	}
	logger.Info("Job completed", "job", jobName, "duration", time.Since(start))
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ImportRoster()
	jr.RecheckDeferredRoster()
}
