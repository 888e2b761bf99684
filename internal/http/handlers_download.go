package http

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"audioverter/internal/jobs"
	"audioverter/internal/metrics"
	"audioverter/internal/storage"
	"audioverter/internal/store"
	"audioverter/internal/transcode"
)

// tempFileStream streams a rendered temp file and removes it when the
// response body is closed. fasthttp closes body streams on every exit
// path, including client disconnect and mid-stream errors, so cleanup
// rides on Close rather than on a happy-path callback.
type tempFileStream struct {
	f    *os.File
	path string
}

func (t *tempFileStream) Read(p []byte) (int, error) { return t.f.Read(p) }

func (t *tempFileStream) Close() error {
	err := t.f.Close()
	if rmErr := os.Remove(t.path); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

// downloadHandler streams a speed-adjusted rendition of a completed
// job's artifact. Nothing is persisted: the rendition lives in a
// process-scoped temp file that is deleted once streaming ends.
func downloadHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(JobStore)
	artifacts := c.Locals("artifacts").(*storage.Store)
	transcoder := c.Locals("transcoder").(TempoRenderer)

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid song id",
		})
	}

	// Speed is validated before the job lookup and long before any
	// external process could be spawned.
	speed, err := strconv.ParseFloat(c.Params("speed"), 64)
	if err != nil || transcode.ValidateSpeed(speed) != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "INVALID_PARAMETER",
			Error:   "Invalid speed parameter",
		})
	}

	job, err := st.GetJobByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "Song not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   "Error downloading file",
		})
	}

	if jobs.Status(job.Status) != jobs.StatusCompleted {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Success: false,
			Code:    "INVALID_STATE",
			Error:   "Song conversion is not completed",
		})
	}

	inputPath := artifacts.ResolveDerivedURL(job.ConvertedURL.String)
	if !artifacts.Exists(inputPath) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Success: false,
			Code:    "NOT_FOUND",
			Error:   "Audio file not found",
		})
	}

	// Collision-resistant temp name: concurrent downloads of the same
	// job must never contend on one path.
	outputPath := filepath.Join(os.TempDir(), fmt.Sprintf("speed_adjusted_%d-%s.mp3",
		time.Now().UnixMilli(), uuid.New().String()[:8]))

	if err := transcoder.TempoTransform(c.Context(), inputPath, outputPath, speed); err != nil {
		_ = os.Remove(outputPath)
		metrics.RecordDownload(false)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "TRANSCODE_FAILED",
			Error:   "Error processing audio file",
		})
	}

	f, err := os.Open(outputPath)
	if err != nil {
		_ = os.Remove(outputPath)
		metrics.RecordDownload(false)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   "Error downloading file",
		})
	}

	size := -1
	if info, err := f.Stat(); err == nil {
		size = int(info.Size())
	}

	c.Set(fiber.HeaderContentType, storage.AudioMIMEType)
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", "speed_adjusted_"+job.OriginalName))

	metrics.RecordDownload(true)
	return c.SendStream(&tempFileStream{f: f, path: outputPath}, size)
}
