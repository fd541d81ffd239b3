//go:build !integration

package ai_test

import (
	"context"
	"testing"

	"voice-ai-assistant/internal/domain/ports/adapter"
	ai "voice-ai-assistant/internal/infra/adapters/ai"
)

type stubAI struct {
	name      string
	chatN     int
	lastModel string
}

func (s *stubAI) Name() string { return s.name }
func (s *stubAI) ListModels(ctx context.Context) ([]string, error) {
	return []string{s.name + "-model"}, nil
}
func (s *stubAI) Chat(ctx context.Context, model string, messages []adapter.Message, tools []adapter.Tool) (adapter.Reply, error) {
	s.chatN++
	s.lastModel = model
	return adapter.Reply{Content: "ok"}, nil
}

func TestRouting_ExplicitMap_Heuristics_And_Fallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	open := &stubAI{name: "openai"}
	gem := &stubAI{name: "gemini"}

	m := ai.NewMultiAIAdapter(
		"openai",
		map[string]adapter.AIServiceAdapter{"openai": open, "gemini": gem},
		map[string]string{"custom-x": "gemini"},
	)

	// explicit map wins
	_, _ = m.Chat(ctx, "custom-x", nil, nil)
	if gem.chatN != 1 || open.chatN != 0 {
		t.Fatalf("explicit map should route to gemini, got open:%d gem:%d", open.chatN, gem.chatN)
	}
	open.chatN, gem.chatN = 0, 0

	// gpt-* -> openai
	_, _ = m.Chat(ctx, "gpt-4o-mini", nil, nil)
	if open.chatN != 1 || gem.chatN != 0 {
		t.Fatalf("heuristic gpt-* should go openai")
	}
	open.chatN, gem.chatN = 0, 0

	// gemini-* -> gemini
	_, _ = m.Chat(ctx, "gemini-1.5-flash", nil, nil)
	if gem.chatN != 1 || open.chatN != 0 {
		t.Fatalf("heuristic gemini-* should go gemini")
	}
	open.chatN, gem.chatN = 0, 0

	// unknown -> default provider (openai)
	_, _ = m.Chat(ctx, "unknown", nil, nil)
	if open.chatN != 1 || gem.chatN != 0 {
		t.Fatalf("unknown model should go to default provider (openai)")
	}

	models, _ := m.ListModels(ctx)
	if len(models) != 3 {
		t.Errorf("want custom-x plus one model per provider, got %v", models)
	}
}

func TestRouting_GPTFallsBackWithoutOpenAI(t *testing.T) {
	metis := &stubAI{name: "metis"}
	m := ai.NewMultiAIAdapter("metis", map[string]adapter.AIServiceAdapter{"metis": metis}, nil)
	if _, err := m.Chat(context.Background(), "gpt-4o-mini", nil, nil); err != nil {
		t.Fatal(err)
	}
	if metis.chatN != 1 || metis.lastModel != "gpt-4o-mini" {
		t.Errorf("gpt model should reach the default provider: %+v", metis)
	}

	empty := ai.NewMultiAIAdapter("openai", nil, nil)
	if _, err := empty.Chat(context.Background(), "x", nil, nil); err == nil {
		t.Error("no providers should be an error")
	}
}

func TestLimitedAI_HonorsContextWhileWaiting(t *testing.T) {
	blocker := make(chan struct{})
	inner := &blockingAI{release: blocker, entered: make(chan struct{}, 1)}
	l := ai.NewLimitedAI(inner, 1)

	go func() { _, _ = l.Chat(context.Background(), "", nil, nil) }()
	<-inner.entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Chat(ctx, "", nil, nil); err == nil {
		t.Error("second call should give up when its context ends")
	}
	close(blocker)
}

type blockingAI struct {
	release chan struct{}
	entered chan struct{}
}

func (b *blockingAI) Name() string                                { return "blocking" }
func (b *blockingAI) ListModels(context.Context) ([]string, error) { return nil, nil }
func (b *blockingAI) Chat(context.Context, string, []adapter.Message, []adapter.Tool) (adapter.Reply, error) {
	b.entered <- struct{}{}
	<-b.release
	return adapter.Reply{}, nil
}
