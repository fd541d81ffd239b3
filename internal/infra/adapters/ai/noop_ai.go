package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"voice-ai-assistant/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAIAdapter)(nil)

// NoopAIAdapter answers locally for dev runs without provider keys.
type NoopAIAdapter struct {
	log *zerolog.Logger
}

func NewNoopAIAdapter(log *zerolog.Logger) *NoopAIAdapter {
	return &NoopAIAdapter{log: log}
}

func (a *NoopAIAdapter) Name() string { return "noop" }

func (a *NoopAIAdapter) Chat(ctx context.Context, model string, messages []adapter.Message, _ []adapter.Tool) (adapter.Reply, error) {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return adapter.Reply{}, ctx.Err()
	}
	last := ""
	if n := len(messages); n > 0 {
		last = messages[n-1].Content
	}
	a.log.Debug().Int("messages", len(messages)).Msg("noop chat")
	return adapter.Reply{Content: fmt.Sprintf("You said: %s", last)}, nil
}

func (a *NoopAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{"noop-ai-model"}, nil
}
