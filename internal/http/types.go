package http

import (
	"time"

	"audioverter/internal/jobs"
	"audioverter/internal/store"
)

// ErrorResponse is the generic error envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error"`
}

// SongItem is the API view of a conversion job. Error is present only
// on failed jobs.
type SongItem struct {
	ID           int64     `json:"id"`
	OriginalName string    `json:"originalName"`
	ConvertedURL *string   `json:"convertedUrl"`
	Status       string    `json:"status"`
	Error        *string   `json:"error,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UploadResponse carries the job resulting from an upload. The job id
// is present even when the conversion failed, for correlation.
type UploadResponse struct {
	Success bool      `json:"success"`
	Code    string    `json:"code,omitempty"`
	Error   string    `json:"error,omitempty"`
	Song    *SongItem `json:"song,omitempty"`
}

type ListSongsResponse struct {
	Success bool       `json:"success"`
	Code    string     `json:"code,omitempty"`
	Error   string     `json:"error,omitempty"`
	Songs   []SongItem `json:"songs"`
}

// DeleteSongResponse reports a deletion. File-removal failures are
// surfaced as warnings rather than silently logged; the record delete
// itself is the authoritative outcome.
type DeleteSongResponse struct {
	Success  bool     `json:"success"`
	Code     string   `json:"code,omitempty"`
	Error    string   `json:"error,omitempty"`
	Message  string   `json:"message,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

type VerifyLicenseRequest struct {
	LicenseKey string `json:"licenseKey"`
}

type VerifyLicenseResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func songItem(job store.ConversionJob) SongItem {
	var convertedURL *string
	if job.ConvertedURL.Valid {
		u := job.ConvertedURL.String
		convertedURL = &u
	}
	var errMsg *string
	if job.Error.Valid && jobs.Status(job.Status) == jobs.StatusFailed {
		e := job.Error.String
		errMsg = &e
	}
	return SongItem{
		ID:           job.ID,
		OriginalName: job.OriginalName,
		ConvertedURL: convertedURL,
		Status:       job.Status,
		Error:        errMsg,
		CreatedAt:    job.CreatedAt,
	}
}
