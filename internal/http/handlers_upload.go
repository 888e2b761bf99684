package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"audioverter/internal/config"
	"audioverter/internal/jobs"
	"audioverter/internal/storage"
	"audioverter/internal/store"
	"audioverter/internal/transcode"
)

// uploadHandler accepts a multipart audio payload plus a target-voice
// selector, persists a pending job, then waits for the worker to drive
// it to a terminal state. Validation happens strictly before the job
// record exists: a rejected payload never creates a row or a file.
func uploadHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	st := c.Locals("store").(JobStore)
	artifacts := c.Locals("artifacts").(*storage.Store)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(UploadResponse{
			Success: false,
			Code:    "INVALID_UPLOAD",
			Error:   "No file uploaded",
		})
	}

	targetRaw := c.FormValue("targetGender", string(transcode.GenderFemale))
	target, err := transcode.ParseGender(targetRaw)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(UploadResponse{
			Success: false,
			Code:    "INVALID_PARAMETER",
			Error:   "targetGender must be male or female",
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(UploadResponse{
			Success: false,
			Code:    "INVALID_UPLOAD",
			Error:   "Unreadable upload",
		})
	}
	defer src.Close()

	storedPath, err := artifacts.Write(
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		src,
		fileHeader.Size,
	)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidUpload) {
			return c.Status(fiber.StatusBadRequest).JSON(UploadResponse{
				Success: false,
				Code:    "INVALID_UPLOAD",
				Error:   "Only MP3 files up to 10 MiB are allowed",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(UploadResponse{
			Success: false,
			Code:    "STORAGE_UNAVAILABLE",
			Error:   "Error storing uploaded file",
		})
	}

	job, err := st.CreateJob(c.Context(), fileHeader.Filename, storedPath, string(target))
	if err != nil {
		// Keep disk and records consistent: no row means no file.
		_ = artifacts.Remove(storedPath)
		return c.Status(fiber.StatusInternalServerError).JSON(UploadResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   "Error processing file",
		})
	}

	job = waitForTerminal(c.Context(), st, job,
		time.Duration(cfg.Worker.SyncJobWaitTimeoutMs)*time.Millisecond)

	item := songItem(job)
	switch jobs.Status(job.Status) {
	case jobs.StatusCompleted:
		return c.Status(fiber.StatusOK).JSON(UploadResponse{
			Success: true,
			Song:    &item,
		})
	case jobs.StatusFailed:
		return c.Status(fiber.StatusInternalServerError).JSON(UploadResponse{
			Success: false,
			Code:    "TRANSCODE_FAILED",
			Error:   "Error processing audio file",
			Song:    &item,
		})
	default:
		// Still pending/processing after the wait window; the job
		// remains listable and will finish in the background.
		return c.Status(fiber.StatusAccepted).JSON(UploadResponse{
			Success: true,
			Song:    &item,
		})
	}
}

// waitForTerminal polls the job until it reaches a terminal status or
// the wait window closes, returning the freshest row seen.
func waitForTerminal(ctx context.Context, st JobStore, job store.ConversionJob, timeout time.Duration) store.ConversionJob {
	if timeout <= 0 {
		return job
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			return job
		case <-ticker.C:
		}

		fresh, err := st.GetJobByID(waitCtx, job.ID)
		if err != nil {
			return job
		}
		job = fresh
		if jobs.Terminal(jobs.Status(job.Status)) {
			return job
		}
	}
}
