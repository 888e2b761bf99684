package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"

	"audioverter/internal/config"
	"audioverter/internal/storage"
	"audioverter/internal/store"
)

// fakeJobStore is an in-memory JobStore. terminalStatus, when set,
// is the status GetJobByID reports for every job, simulating the
// background worker finishing while the upload handler waits.
type fakeJobStore struct {
	mu     sync.Mutex
	nextID int64
	jobs   map[int64]store.ConversionJob
	order  []int64

	terminalStatus string
	convertedURL   string

	createErr   error
	listErr     error
	deleteCalls int
	getCalls    int
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[int64]store.ConversionJob)}
}

func (f *fakeJobStore) CreateJob(_ context.Context, originalName, filePath, targetGender string) (store.ConversionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return store.ConversionJob{}, f.createErr
	}
	f.nextID++
	job := store.ConversionJob{
		ID:           f.nextID,
		OriginalName: originalName,
		FilePath:     filePath,
		TargetGender: targetGender,
		Status:       "pending",
	}
	f.jobs[job.ID] = job
	f.order = append(f.order, job.ID)
	return job, nil
}

func (f *fakeJobStore) GetJobByID(_ context.Context, id int64) (store.ConversionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	job, ok := f.jobs[id]
	if !ok {
		return store.ConversionJob{}, store.ErrNotFound
	}
	if f.terminalStatus != "" {
		job.Status = f.terminalStatus
		if f.terminalStatus == "completed" {
			job.ConvertedURL.Valid = true
			job.ConvertedURL.String = f.convertedURL
		}
	}
	return job, nil
}

func (f *fakeJobStore) ListJobs(_ context.Context) ([]store.ConversionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]store.ConversionJob, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.jobs[id])
	}
	return out, nil
}

func (f *fakeJobStore) DeleteJob(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if _, ok := f.jobs[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.jobs, id)
	for i, oid := range f.order {
		if oid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeJobStore) jobCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

// fakeRenderer copies the input file to the output path, or fails.
type fakeRenderer struct {
	mu         sync.Mutex
	calls      int
	err        error
	lastOutput string
	lastSpeed  float64
}

func (f *fakeRenderer) TempoTransform(_ context.Context, inputPath, outputPath string, speed float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastOutput = outputPath
	f.lastSpeed = speed
	if f.err != nil {
		return f.err
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

func (f *fakeRenderer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Storage.MaxUploadBytes = 10 << 20
	return cfg
}

func testArtifacts(t *testing.T) *storage.Store {
	t.Helper()
	base := t.TempDir()
	s := storage.New(config.StorageConfig{
		UploadDir:      filepath.Join(base, "uploads"),
		ConvertedDir:   filepath.Join(base, "uploads", "converted"),
		MaxUploadBytes: 10 << 20,
	})
	if err := s.Init(); err != nil {
		t.Fatalf("storage init: %v", err)
	}
	return s
}

// testApp wires a single handler behind the Locals the router normally
// injects.
func testApp(method, path string, handler fiber.Handler, locals map[string]any) *fiber.App {
	app := fiber.New()
	app.Add(method, path, func(c *fiber.Ctx) error {
		for k, v := range locals {
			c.Locals(k, v)
		}
		return handler(c)
	})
	return app
}

// multipartUpload builds a multipart body with one file part and
// optional extra form fields.
func multipartUpload(t *testing.T, filename, contentType string, payload []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write part: %v", err)
	}

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func readBody(t *testing.T, body io.ReadCloser) []byte {
	t.Helper()
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return data
}
