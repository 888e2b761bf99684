package http

import (
	"context"

	"audioverter/internal/store"
)

// JobStore is the slice of the record store the handlers consume.
// *store.Store satisfies it; tests substitute in-memory fakes.
type JobStore interface {
	CreateJob(ctx context.Context, originalName, filePath, targetGender string) (store.ConversionJob, error)
	GetJobByID(ctx context.Context, id int64) (store.ConversionJob, error)
	ListJobs(ctx context.Context) ([]store.ConversionJob, error)
	DeleteJob(ctx context.Context, id int64) error
}

// TempoRenderer re-encodes audio at a different playback tempo.
// *transcode.FFmpeg satisfies it.
type TempoRenderer interface {
	TempoTransform(ctx context.Context, inputPath, outputPath string, speed float64) error
}
