// Package ffmpeg implements the auxiliary preview surface with single-frame ffmpeg
// extractions.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"sync"
)

var (
	ErrPathEmpty   = errors.New("ffmpeg path is empty")
	ErrSourceEmpty = errors.New("source is required")
	ErrNoFrame     = errors.New("no frame extracted yet")
)

// Extractor seeks by decoding exactly one frame at the requested time. The decoded
// frame is held until the next seek.
type Extractor struct {
	path string

	mu    sync.Mutex
	frame image.Image
}

func NewExtractor(path string) (*Extractor, error) {
	if path == "" {
		return nil, ErrPathEmpty
	}

	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to find ffmpeg: %w", err)
	}

	return &Extractor{path: resolved}, nil
}

func buildArgs(source string, t float64) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", t),
		"-i", source,
		"-frames:v", "1",
		"-an",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}
}

func (e *Extractor) Seek(ctx context.Context, source string, t float64) error {
	if source == "" {
		return ErrSourceEmpty
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.path, buildArgs(source, t)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w (output: %s)", err, stderr.String())
	}

	frame, err := png.Decode(&stdout)
	if err != nil {
		return fmt.Errorf("failed to decode extracted frame: %w", err)
	}

	e.mu.Lock()
	e.frame = frame
	e.mu.Unlock()

	return nil
}

func (e *Extractor) Frame(context.Context) (image.Image, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.frame == nil {
		return nil, ErrNoFrame
	}

	return e.frame, nil
}
