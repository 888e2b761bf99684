// Package storage owns the upload and converted artifact directories
// and every filesystem operation against them.
package storage

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"audioverter/internal/config"
)

var (
	// ErrInvalidUpload is returned for payloads with the wrong MIME
	// type or over the size ceiling. Checked before anything touches
	// disk, so a rejected upload leaves no file behind.
	ErrInvalidUpload = errors.New("invalid upload")

	// ErrStorageUnavailable is returned when a directory or file
	// cannot be created for reasons other than already existing.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// AudioMIMEType is the single recognized upload content type.
const AudioMIMEType = "audio/mpeg"

// ConvertedURLPrefix is the externally reachable prefix for derived
// artifacts, served by the static file routes.
const ConvertedURLPrefix = "/uploads/converted/"

// Store manages the original-upload and converted-output directories.
// Both paths come from explicit configuration at construction.
type Store struct {
	uploadDir    string
	convertedDir string
	maxBytes     int64
}

func New(cfg config.StorageConfig) *Store {
	return &Store{
		uploadDir:    cfg.UploadDir,
		convertedDir: cfg.ConvertedDir,
		maxBytes:     cfg.MaxUploadBytes,
	}
}

func (s *Store) UploadDir() string    { return s.uploadDir }
func (s *Store) ConvertedDir() string { return s.convertedDir }

// Init creates both directories. Idempotent: an existing directory is
// not an error.
func (s *Store) Init() error {
	for _, dir := range []string{s.uploadDir, s.convertedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create %s: %v", ErrStorageUnavailable, dir, err)
		}
	}
	return nil
}

// Write validates and stores an uploaded payload, returning the path
// of the stored file. The stored name is collision-resistant
// (timestamp plus random suffix) and distinct from the user-supplied
// name; the original extension is preserved.
func (s *Store) Write(originalName, mimeType string, r io.Reader, size int64) (string, error) {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil || mediaType != AudioMIMEType {
		return "", fmt.Errorf("%w: unsupported content type %q", ErrInvalidUpload, mimeType)
	}
	if size <= 0 || size > s.maxBytes {
		return "", fmt.Errorf("%w: payload size %d exceeds limit %d", ErrInvalidUpload, size, s.maxBytes)
	}

	name := fmt.Sprintf("song-%d-%s%s",
		time.Now().UnixMilli(),
		uuid.New().String()[:8],
		filepath.Ext(originalName),
	)
	storedPath := filepath.Join(s.uploadDir, name)

	f, err := os.OpenFile(storedPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("%w: create %s: %v", ErrStorageUnavailable, storedPath, err)
	}

	// Cap the copy at one byte past the declared size so a lying
	// Content-Length cannot blow past the ceiling.
	n, copyErr := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	closeErr := f.Close()
	if copyErr == nil && closeErr != nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(storedPath)
		return "", fmt.Errorf("%w: write %s: %v", ErrStorageUnavailable, storedPath, copyErr)
	}
	if n > s.maxBytes {
		_ = os.Remove(storedPath)
		return "", fmt.Errorf("%w: payload exceeds limit %d", ErrInvalidUpload, s.maxBytes)
	}

	return storedPath, nil
}

// DerivedPath returns where the converted rendition of a stored upload
// lives. Pure function of the input path: recomputing it is always
// safe and always lands on the same file.
func (s *Store) DerivedPath(storedPath string) string {
	return filepath.Join(s.convertedDir, "converted-"+filepath.Base(storedPath))
}

// DerivedURL returns the externally reachable URL for the derived
// artifact of a stored upload.
func (s *Store) DerivedURL(storedPath string) string {
	return ConvertedURLPrefix + "converted-" + filepath.Base(storedPath)
}

// ResolveDerivedURL maps a converted URL back to its on-disk path.
func (s *Store) ResolveDerivedURL(convertedURL string) string {
	return filepath.Join(s.convertedDir, path.Base(convertedURL))
}

// Exists reports whether the artifact at path is present on disk.
func (s *Store) Exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// Remove deletes an artifact. A file that is already gone is not an
// error; callers treat any other failure as a warning, never as a
// blocking condition.
func (s *Store) Remove(p string) error {
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
