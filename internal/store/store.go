package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrNotFound is returned when a job id does not exist.
var ErrNotFound = errors.New("job not found")

// ConversionJob is a row in the conversion_jobs table. ConvertedURL is
// non-null exactly when Status is "completed"; the table carries a CHECK
// constraint for the same invariant.
type ConversionJob struct {
	ID           int64
	OriginalName string
	FilePath     string
	TargetGender string
	ConvertedURL sql.NullString
	Status       string
	Error        sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  sql.NullTime
}

// Store wraps access to the database with a shared pooled *sql.DB.
type Store struct {
	DB *sql.DB
}

func New(database *sql.DB) *Store {
	return &Store{DB: database}
}

const jobColumns = `id, original_name, file_path, target_gender, converted_url, status, error, created_at, updated_at, completed_at`

func scanJob(row interface{ Scan(...any) error }) (ConversionJob, error) {
	var j ConversionJob
	err := row.Scan(
		&j.ID, &j.OriginalName, &j.FilePath, &j.TargetGender, &j.ConvertedURL,
		&j.Status, &j.Error, &j.CreatedAt, &j.UpdatedAt, &j.CompletedAt,
	)
	return j, err
}

// CreateJob inserts a new conversion job in the pending state and
// returns the stored row. The record is durable before any conversion
// work starts, so a crash mid-conversion still leaves a listable job.
func (s *Store) CreateJob(ctx context.Context, originalName, filePath, targetGender string) (ConversionJob, error) {
	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO conversion_jobs (original_name, file_path, target_gender, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING `+jobColumns,
		originalName, filePath, targetGender,
	)
	return scanJob(row)
}

// GetJobByID fetches a single job.
func (s *Store) GetJobByID(ctx context.Context, id int64) (ConversionJob, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM conversion_jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ConversionJob{}, ErrNotFound
	}
	return j, err
}

// ListJobs returns all jobs ordered by creation time ascending. The
// table stays small at this scale; pagination can be layered on later
// without changing the ordering contract.
func (s *Store) ListJobs(ctx context.Context) ([]ConversionJob, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM conversion_jobs ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []ConversionJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ListPendingJobs returns up to `limit` jobs that are still pending,
// oldest first.
func (s *Store) ListPendingJobs(ctx context.Context, limit int32) ([]ConversionJob, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM conversion_jobs
		WHERE status = 'pending'
		ORDER BY created_at ASC, id ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []ConversionJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ClaimJob transitions a job from pending to processing. The WHERE
// clause on status makes the claim a compare-and-set: if another
// worker already owns the job, zero rows match and ok is false.
func (s *Store) ClaimJob(ctx context.Context, id int64) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE conversion_jobs
		SET status = 'processing', updated_at = now()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CompleteJob records the derived artifact and marks the job completed
// in a single UPDATE, so no reader can observe converted_url set while
// the status is anything else.
func (s *Store) CompleteJob(ctx context.Context, id int64, convertedURL string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE conversion_jobs
		SET status = 'completed', converted_url = $2, updated_at = now(), completed_at = now()
		WHERE id = $1`, id, convertedURL)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FailJob marks the job failed with an error message. converted_url is
// left NULL and the original upload is retained.
func (s *Store) FailJob(ctx context.Context, id int64, errMsg string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE conversion_jobs
		SET status = 'failed', error = $2, updated_at = now()
		WHERE id = $1`, id, errMsg)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteJob removes the database record. Callers remove the artifact
// files first; the record delete is the authoritative final step.
func (s *Store) DeleteJob(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM conversion_jobs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FailStalledProcessing marks every job stuck in processing as failed.
// Run once at startup: a processing row can only survive a crash, since
// live workers always drive their claimed jobs to a terminal state.
func (s *Store) FailStalledProcessing(ctx context.Context, reason string) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE conversion_jobs
		SET status = 'failed', error = $1, updated_at = now()
		WHERE status = 'processing'`, reason)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
