// Package pipeline drives a conversion job from pending to a terminal
// state: claim the job, run the pitch transform, persist the outcome.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"audioverter/internal/metrics"
	"audioverter/internal/store"
	"audioverter/internal/transcode"
)

// JobStore is the subset of the record store the pipeline mutates.
// Status transitions happen nowhere else.
type JobStore interface {
	ClaimJob(ctx context.Context, id int64) (bool, error)
	CompleteJob(ctx context.Context, id int64, convertedURL string) error
	FailJob(ctx context.Context, id int64, errMsg string) error
}

// Transcoder performs the pitch transform on an uploaded artifact.
type Transcoder interface {
	PitchTransform(ctx context.Context, inputPath, outputPath string, target transcode.Gender) error
}

// Artifacts names the derived output for a stored upload.
type Artifacts interface {
	DerivedPath(storedPath string) string
	DerivedURL(storedPath string) string
}

// Processor executes conversion jobs handed to it by the jobs runner.
type Processor struct {
	st         JobStore
	artifacts  Artifacts
	transcoder Transcoder
	logger     *slog.Logger
}

func NewProcessor(st JobStore, artifacts Artifacts, transcoder Transcoder, logger *slog.Logger) *Processor {
	return &Processor{
		st:         st,
		artifacts:  artifacts,
		transcoder: transcoder,
		logger:     logger,
	}
}

// ExecuteConversionJob runs one job to a terminal state. The claim is
// a compare-and-set on the pending status, so two runners polling the
// same table never transcode the same job twice.
func (p *Processor) ExecuteConversionJob(ctx context.Context, job store.ConversionJob) {
	ok, err := p.st.ClaimJob(ctx, job.ID)
	if err != nil {
		p.logError("claim job failed", job.ID, err)
		return
	}
	if !ok {
		// Someone else owns it, or the user deleted it meanwhile.
		return
	}

	outputPath := p.artifacts.DerivedPath(job.FilePath)
	target := transcode.Gender(job.TargetGender)

	start := time.Now()
	if err := p.transcoder.PitchTransform(ctx, job.FilePath, outputPath, target); err != nil {
		p.logError("conversion failed", job.ID, err)
		p.finalizeFailure(job.ID, err)
		metrics.RecordConversion(job.TargetGender, "failed")
		return
	}

	// Single update: no reader ever sees converted_url on a job that
	// is not completed.
	finCtx, cancel := finalizeContext()
	defer cancel()
	if err := p.st.CompleteJob(finCtx, job.ID, p.artifacts.DerivedURL(job.FilePath)); err != nil {
		p.logError("persist completion failed", job.ID, err)
		return
	}

	metrics.RecordConversion(job.TargetGender, "completed")
	if p.logger != nil {
		p.logger.Info("conversion completed",
			"job_id", job.ID,
			"target", job.TargetGender,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// finalizeFailure records the failed status. The write runs on its own
// context so a cancelled worker context cannot leave the job without a
// terminal state. The original upload is retained for a manual retry.
func (p *Processor) finalizeFailure(jobID int64, cause error) {
	ctx, cancel := finalizeContext()
	defer cancel()
	if err := p.st.FailJob(ctx, jobID, cause.Error()); err != nil {
		p.logError("persist failure failed", jobID, err)
	}
}

// finalizeContext detaches terminal status writes from the worker
// context so shutdown cannot strand a job mid-transition.
func finalizeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (p *Processor) logError(msg string, jobID int64, err error) {
	if p.logger != nil {
		p.logger.Error(msg, "job_id", jobID, "error", err)
	}
}
