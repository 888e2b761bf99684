package jobs

import (
	"context"
	"log/slog"
	"time"

	"audioverter/internal/config"
	"audioverter/internal/store"
)

// ConversionExecutor executes a single conversion job end to end,
// driving it to a terminal state.
type ConversionExecutor interface {
	ExecuteConversionJob(ctx context.Context, job store.ConversionJob)
}

// PendingSource lists jobs waiting to be picked up.
type PendingSource interface {
	ListPendingJobs(ctx context.Context, limit int32) ([]store.ConversionJob, error)
}

// Runner polls the conversion_jobs table and dispatches pending jobs
// to the executor, each on its own goroutine. A semaphore caps how
// many external transcodes run at once so one slow conversion never
// stalls unrelated requests or jobs.
type Runner struct {
	cfg      *config.Config
	source   PendingSource
	executor ConversionExecutor
	logger   *slog.Logger
}

func NewRunner(cfg *config.Config, source PendingSource, executor ConversionExecutor, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		source:   source,
		executor: executor,
		logger:   logger,
	}
}

// Start launches the worker loop in the current goroutine. Callers
// typically run this in its own goroutine and keep the process alive.
func (r *Runner) Start(ctx context.Context) {
	pollInterval := time.Duration(r.cfg.Worker.PollIntervalMs) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}

	maxJobs := r.cfg.Worker.MaxConcurrentJobs
	if maxJobs <= 0 {
		maxJobs = 4
	}

	sem := make(chan struct{}, maxJobs)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		capacity := maxJobs - len(sem)
		if capacity <= 0 {
			continue
		}

		pending, err := r.source.ListPendingJobs(ctx, int32(capacity))
		if err != nil {
			if r.logger != nil {
				r.logger.Error("list pending jobs failed", "error", err)
			}
			continue
		}

		for _, job := range pending {
			job := job
			sem <- struct{}{}
			go func() {
				defer func() { <-sem }()
				r.executor.ExecuteConversionJob(ctx, job)
			}()
		}
	}
}
