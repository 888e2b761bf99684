package http

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"audioverter/internal/metrics"
	"audioverter/internal/storage"
	"audioverter/internal/store"
)

// songsListHandler returns every conversion job, oldest first.
func songsListHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(JobStore)

	jobs, err := st.ListJobs(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ListSongsResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   "Error fetching songs",
		})
	}

	items := make([]SongItem, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, songItem(job))
	}

	return c.Status(fiber.StatusOK).JSON(ListSongsResponse{
		Success: true,
		Songs:   items,
	})
}

// songDeleteHandler removes a job and its artifacts. File removals are
// best effort and reported as warnings; deleting the record is the
// authoritative final step, so an orphaned file is preferred over a
// record pointing at nothing.
func songDeleteHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(JobStore)
	artifacts := c.Locals("artifacts").(*storage.Store)

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(DeleteSongResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid song id",
		})
	}

	job, err := st.GetJobByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(DeleteSongResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "Song not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(DeleteSongResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   "Error deleting song",
		})
	}

	var warnings []string
	if job.FilePath != "" {
		if err := artifacts.Remove(job.FilePath); err != nil {
			warnings = append(warnings, fmt.Sprintf("original file not removed: %v", err))
		}
	}
	if job.ConvertedURL.Valid {
		derived := artifacts.ResolveDerivedURL(job.ConvertedURL.String)
		if err := artifacts.Remove(derived); err != nil {
			warnings = append(warnings, fmt.Sprintf("converted file not removed: %v", err))
		}
	}

	if err := st.DeleteJob(c.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(DeleteSongResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "Song not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(DeleteSongResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   "Error deleting song",
		})
	}

	metrics.RecordDelete(len(warnings))

	return c.Status(fiber.StatusOK).JSON(DeleteSongResponse{
		Success:  true,
		Message:  "Song deleted successfully",
		Warnings: warnings,
	})
}
