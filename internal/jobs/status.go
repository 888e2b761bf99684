package jobs

// Status represents the lifecycle state of a conversion job. These
// values must match the text values stored in conversion_jobs.status.
//
// Centralizing these here avoids scattering string literals like
// "pending" or "completed" across packages.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether a status admits no further transitions.
func Terminal(s Status) bool {
	return s == StatusCompleted || s == StatusFailed
}
