package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"voice-ai-assistant/internal/domain/ports/adapter"
)

var _ adapter.AudioSink = (*FileSink)(nil)

// FileSink writes each synthesized reply to dir/reply-<ulid>.wav and, when a
// player command is set, runs it with the file path as its last argument.
type FileSink struct {
	dir    string
	player []string
	log    *zerolog.Logger
}

func NewFileSink(dir, playerCommand string, log *zerolog.Logger) *FileSink {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &FileSink{dir: dir, player: strings.Fields(playerCommand), log: log}
}

func (s *FileSink) Play(ctx context.Context, audio []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(s.dir, "reply-"+ulid.Make().String()+".wav")
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return fmt.Errorf("write reply audio: %w", err)
	}
	s.log.Debug().Str("file", path).Int("bytes", len(audio)).Msg("reply audio written")

	if len(s.player) == 0 {
		return nil
	}
	args := append(append([]string(nil), s.player[1:]...), path)
	out, err := exec.CommandContext(ctx, s.player[0], args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("player %s: %w: %s", s.player[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
