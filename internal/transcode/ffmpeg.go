// Package transcode wraps the external ffmpeg tool behind two
// operations: a voice pitch transform and a playback tempo transform.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"

	"audioverter/internal/config"
)

var (
	// ErrTranscodeFailed is returned when ffmpeg exits non-zero or
	// the expected output file is absent afterward.
	ErrTranscodeFailed = errors.New("transcode failed")

	// ErrInvalidParameter is returned for out-of-range speed factors
	// or unknown target genders, before any process is spawned.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Gender selects the direction of the pitch transform.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ParseGender validates a target-voice selector.
func ParseGender(s string) (Gender, error) {
	switch Gender(s) {
	case GenderMale, GenderFemale:
		return Gender(s), nil
	}
	return "", fmt.Errorf("%w: unknown target gender %q", ErrInvalidParameter, s)
}

// pitchFactor is the resample-rate multiplier applied before
// resampling back to the original rate. Raising the rate raises
// perceived pitch without an audible duration change.
func pitchFactor(g Gender) float64 {
	if g == GenderFemale {
		return 1.3
	}
	return 0.7
}

// ValidateSpeed checks a tempo factor against the allowed (0, 2]
// range. ffmpeg's atempo filter also caps at 2.0 per stage.
func ValidateSpeed(speed float64) error {
	if speed <= 0 || speed > 2 {
		return fmt.Errorf("%w: speed %v outside (0, 2]", ErrInvalidParameter, speed)
	}
	return nil
}

// FFmpeg invokes the external tool with argument-list commands (no
// shell), one new output file per invocation, input never mutated.
type FFmpeg struct {
	path       string
	timeout    time.Duration
	sampleRate int
	logger     *slog.Logger
}

func New(cfg config.TranscodeConfig, logger *slog.Logger) (*FFmpeg, error) {
	path := cfg.FFmpegPath
	if path == "" {
		p, err := exec.LookPath("ffmpeg")
		if err != nil {
			return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
		}
		path = p
	}
	return &FFmpeg{
		path:       path,
		timeout:    time.Duration(cfg.TimeoutMs) * time.Millisecond,
		sampleRate: cfg.SampleRate,
		logger:     logger,
	}, nil
}

// pitchArgs builds the argument list for a pitch transform: play the
// samples at a shifted rate, then resample back so only pitch changes.
func pitchArgs(sampleRate int, factor float64, inputPath, outputPath string) []string {
	filter := fmt.Sprintf("asetrate=%d*%s,aresample=%d",
		sampleRate, formatFactor(factor), sampleRate)
	return []string{
		"-y",
		"-i", inputPath,
		"-af", filter,
		"-acodec", "libmp3lame",
		"-q:a", "2",
		outputPath,
	}
}

// tempoArgs builds the argument list for a tempo transform without
// pitch correction.
func tempoArgs(speed float64, inputPath, outputPath string) []string {
	return []string{
		"-y",
		"-i", inputPath,
		"-filter:a", "atempo=" + formatFactor(speed),
		"-vn",
		outputPath,
	}
}

func formatFactor(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// PitchTransform re-encodes inputPath into outputPath with the voice
// pitch shifted toward the target gender.
func (f *FFmpeg) PitchTransform(ctx context.Context, inputPath, outputPath string, target Gender) error {
	if _, err := ParseGender(string(target)); err != nil {
		return err
	}
	return f.run(ctx, pitchArgs(f.sampleRate, pitchFactor(target), inputPath, outputPath), outputPath)
}

// TempoTransform re-encodes inputPath into outputPath at a different
// playback tempo. The speed factor is validated before any process is
// spawned.
func (f *FFmpeg) TempoTransform(ctx context.Context, inputPath, outputPath string, speed float64) error {
	if err := ValidateSpeed(speed); err != nil {
		return err
	}
	return f.run(ctx, tempoArgs(speed, inputPath, outputPath), outputPath)
}

func (f *FFmpeg) run(ctx context.Context, args []string, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if f.logger != nil {
		f.logger.Debug("executing ffmpeg", "args", args)
	}

	if err := cmd.Run(); err != nil {
		// ffmpeg -y may leave a partial output behind on failure.
		_ = os.Remove(outputPath)
		if f.logger != nil {
			f.logger.Error("ffmpeg failed", "error", err, "stderr", stderr.String())
		}
		return fmt.Errorf("%w: %v", ErrTranscodeFailed, err)
	}

	// The exit code alone is not trusted; the output file must exist.
	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("%w: output file was not created", ErrTranscodeFailed)
	}

	return nil
}
