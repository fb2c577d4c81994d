package jobs

import (
	"context"

	"musicclub-backend/internal/logger"
)

// RecheckDeferredRoster retries roster lookups for pending applications
// whose submission-time lookup failed.
func (jr *JobRunner) RecheckDeferredRoster() {
	jr.runWithRecovery("RecheckDeferredRoster", func(ctx context.Context) error {
		resolved, err := jr.applications.RecheckDeferred(ctx, jr.config.Scheduler.RecheckBatchSize)
		if err != nil {
			return err
		}
		logger.Info("Deferred roster checks resolved", "count", resolved)
		return nil
	})
}

// ImportRoster refreshes the member collection from the roster.
func (jr *JobRunner) ImportRoster() {
	if jr.importer == nil {
		logger.Debug("Roster disabled, skipping import")
		return
	}
	jr.runWithRecovery("ImportRoster", func(ctx context.Context) error {
		imported, err := jr.importer.Import(ctx)
		if err != nil {
			return err
		}
		logger.Info("Roster imported", "members", imported)
		return nil
	})
}
