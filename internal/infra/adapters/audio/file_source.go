package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"voice-ai-assistant/internal/domain/ports/adapter"
)

var _ adapter.AudioSource = (*FileSource)(nil)

// ErrNoInput is returned when no WAV file has been configured.
var ErrNoInput = errors.New("no audio input file configured")

// FileSource captures an utterance by reading a WAV file. Every capture reads
// the current path until it is replaced.
type FileSource struct {
	mu   sync.Mutex
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// SetPath replaces the file read by every later Capture.
func (s *FileSource) SetPath(path string) {
	s.mu.Lock()
	s.path = path
	s.mu.Unlock()
}

func (s *FileSource) Capture(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	path := s.path
	s.mu.Unlock()
	if path == "" {
		return nil, ErrNoInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(b) < 12 || string(b[:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%s is not a WAV file", path)
	}
	return b, nil
}
