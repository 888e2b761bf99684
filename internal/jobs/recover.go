package jobs

import (
	"context"
	"log/slog"
)

// StalledFailer marks jobs stuck in the processing state as failed.
type StalledFailer interface {
	FailStalledProcessing(ctx context.Context, reason string) (int64, error)
}

const stalledReason = "conversion interrupted by service restart"

// RecoverStalled runs once at startup. A job can only sit in
// processing across a restart if the previous process died mid
// transcode; its worker is gone and the output cannot be trusted, so
// the job is failed rather than silently retried. Jobs still pending
// need no recovery: the runner picks them up on its normal poll.
func RecoverStalled(ctx context.Context, st StalledFailer, logger *slog.Logger) error {
	n, err := st.FailStalledProcessing(ctx, stalledReason)
	if err != nil {
		return err
	}
	if n > 0 && logger != nil {
		logger.Warn("failed stalled processing jobs", "count", n)
	}
	return nil
}
