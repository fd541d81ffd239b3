//go:build !integration

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"voice-ai-assistant/internal/domain"
	"voice-ai-assistant/internal/domain/model"
	"voice-ai-assistant/internal/domain/ports/adapter"
)

// ---- Fakes ----

type fakeAI struct {
	mu       sync.Mutex
	calls    [][]adapter.Message
	reply    adapter.Reply
	err      error
	useTools func(ctx context.Context, tools []adapter.Tool) []adapter.ToolResult
}

func (f *fakeAI) Name() string { return "fake" }
func (f *fakeAI) ListModels(ctx context.Context) ([]string, error) {
	return []string{"gpt-4o-mini"}, nil
}
func (f *fakeAI) Chat(ctx context.Context, model string, messages []adapter.Message, tools []adapter.Tool) (adapter.Reply, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]adapter.Message(nil), messages...))
	f.mu.Unlock()
	if f.err != nil {
		return adapter.Reply{}, f.err
	}
	r := f.reply
	if f.useTools != nil {
		r.ToolResults = f.useTools(ctx, tools)
	}
	return r, nil
}

type memConversations struct {
	mu      sync.Mutex
	byID    map[string][]adapter.Message
	loadErr error
}

func newMemConversations() *memConversations {
	return &memConversations{byID: map[string][]adapter.Message{}}
}

func (m *memConversations) Load(ctx context.Context, id string) ([]adapter.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	msgs, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]adapter.Message(nil), msgs...), nil
}

func (m *memConversations) Save(ctx context.Context, id string, msgs []adapter.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id] = append([]adapter.Message(nil), msgs...)
	return nil
}

func (m *memConversations) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

type dropOldest struct{ keep int }

func (d dropOldest) Trim(_ string, msgs []adapter.Message, _ int) ([]adapter.Message, int) {
	if len(msgs) <= d.keep {
		return msgs, 0
	}
	out := append([]adapter.Message{msgs[0]}, msgs[len(msgs)-d.keep+1:]...)
	return out, len(msgs) - len(out)
}

func newChatUC(ai *fakeAI, repo *memConversations, tools []adapter.Tool) *chatUC {
	return NewChatUseCase(repo, ai, nil, tools, ChatOptions{
		Persona:     "You speak {language}.",
		InitMessage: "Hi, how can I help?",
		Model:       "gpt-4o-mini",
	}, nil)
}

func userReq(session, lang string, texts ...string) ChatRequest {
	req := ChatRequest{SessionID: session, Language: lang, Messages: []model.ChatMessage{{Role: model.RoleSystem}}}
	for _, t := range texts {
		req.Messages = append(req.Messages, model.ChatMessage{Role: model.RoleUser, Content: t})
	}
	return req
}

// ---- Tests ----

func TestChatUC_Reply_SeedsNewConversation(t *testing.T) {
	ai := &fakeAI{reply: adapter.Reply{Content: "Hello!"}}
	repo := newMemConversations()
	uc := newChatUC(ai, repo, nil)

	got, err := uc.Reply(context.Background(), userReq("s1", "Japanese", "Hi"))
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if got.Role != model.RoleAssistant || got.Message != "Hello!" || got.Action != "" {
		t.Errorf("unexpected reply %+v", got)
	}

	sent := ai.calls[0]
	want := []adapter.Message{
		{Role: "system", Content: "You speak Japanese."},
		{Role: "assistant", Content: "Hi, how can I help?"},
		{Role: "user", Content: "Hi"},
	}
	if len(sent) != len(want) {
		t.Fatalf("prompt: %+v", sent)
	}
	for i := range want {
		if sent[i] != want[i] {
			t.Errorf("prompt[%d] = %+v, want %+v", i, sent[i], want[i])
		}
	}
	if stored := repo.byID["s1"]; len(stored) != 4 || stored[3].Content != "Hello!" {
		t.Errorf("stored conversation: %+v", stored)
	}
}

func TestChatUC_Reply_ContinuesAndRefreshesPersona(t *testing.T) {
	ai := &fakeAI{reply: adapter.Reply{Content: "ok"}}
	repo := newMemConversations()
	repo.byID["s1"] = []adapter.Message{{Role: "system", Content: ""}, {Role: "user", Content: "a"}, {Role: "assistant", Content: "b"}}
	uc := newChatUC(ai, repo, nil)

	if _, err := uc.Reply(context.Background(), userReq("s1", "", "c")); err != nil {
		t.Fatal(err)
	}
	sent := ai.calls[0]
	if sent[0].Content != "You speak English." {
		t.Errorf("empty system message should get the persona, got %q", sent[0].Content)
	}
	if len(sent) != 4 || sent[3].Content != "c" {
		t.Errorf("only the newest user message is appended: %+v", sent)
	}
}

func TestChatUC_Reply_RejectsBadRequests(t *testing.T) {
	uc := newChatUC(&fakeAI{}, newMemConversations(), nil)
	ctx := context.Background()

	cases := map[string]struct {
		req  ChatRequest
		want error
	}{
		"no session":     {ChatRequest{Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "x"}}}, domain.ErrInvalidArgument},
		"no messages":    {ChatRequest{SessionID: "s"}, domain.ErrInvalidArgument},
		"assistant last": {ChatRequest{SessionID: "s", Messages: []model.ChatMessage{{Role: model.RoleAssistant, Content: "x"}}}, domain.ErrNotUserTurn},
		"blank user":     {userReq("s", "", "  "), domain.ErrEmptyTurn},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := uc.Reply(ctx, c.req); !errors.Is(err, c.want) {
				t.Errorf("got %v, want %v", err, c.want)
			}
		})
	}
}

func TestChatUC_Reply_ErrorsLeaveStoreUntouched(t *testing.T) {
	ai := &fakeAI{err: errors.New("provider down")}
	repo := newMemConversations()
	uc := newChatUC(ai, repo, nil)

	if _, err := uc.Reply(context.Background(), userReq("s1", "English", "Hi")); err == nil {
		t.Fatal("expected completion error")
	}
	if _, ok := repo.byID["s1"]; ok {
		t.Error("failed turn must not be stored")
	}

	repo.loadErr = errors.New("redis down")
	if _, err := uc.Reply(context.Background(), userReq("s1", "English", "Hi")); err == nil || !strings.Contains(err.Error(), "load conversation") {
		t.Errorf("load error should surface, got %v", err)
	}
}

func TestChatUC_Reply_TrimsPrompt(t *testing.T) {
	ai := &fakeAI{reply: adapter.Reply{Content: "ok"}}
	repo := newMemConversations()
	repo.byID["s1"] = []adapter.Message{
		{Role: "system", Content: "p"},
		{Role: "user", Content: "1"}, {Role: "assistant", Content: "2"},
		{Role: "user", Content: "3"}, {Role: "assistant", Content: "4"},
	}
	uc := NewChatUseCase(repo, ai, dropOldest{keep: 3}, nil, ChatOptions{Persona: "p"}, nil)

	if _, err := uc.Reply(context.Background(), userReq("s1", "", "5")); err != nil {
		t.Fatal(err)
	}
	sent := ai.calls[0]
	if len(sent) != 3 || sent[0].Role != "system" || sent[1].Content != "4" || sent[2].Content != "5" {
		t.Errorf("trimmed prompt: %+v", sent)
	}
}

func TestChatUC_Reply_DisplayToolBecomesAction(t *testing.T) {
	catalog := &stubCatalog{products: []model.Product{{ID: "7", Name: "Serum", Price: 120, Size: 30}}}
	tools := NewProductTools(catalog, "").Tools()
	ai := &fakeAI{
		reply: adapter.Reply{Content: "Here it is."},
		useTools: func(ctx context.Context, tools []adapter.Tool) []adapter.ToolResult {
			var out []adapter.ToolResult
			for _, name := range []string{ToolSearchProduct, ToolDisplayProduct} {
				for _, tool := range tools {
					if tool.Name != name {
						continue
					}
					args := `{"search_query":"serum"}`
					if name == ToolDisplayProduct {
						args = `{"product_ids":"7"}`
					}
					res, err := tool.Run(ctx, json.RawMessage(args))
					if err != nil {
						t.Errorf("%s: %v", name, err)
					}
					out = append(out, adapter.ToolResult{Name: name, Output: res})
				}
			}
			return out
		},
	}
	uc := newChatUC(ai, newMemConversations(), tools)

	got, err := uc.Reply(context.Background(), userReq("s1", "English", "show me a serum"))
	if err != nil {
		t.Fatal(err)
	}
	want := `<table border='1'><tr><td colspan="6"><img id="image_7" src="/images/7" alt="Loading image..." /></td></tr></table>`
	if got.Action != want {
		t.Errorf("action:\n got %s\nwant %s", got.Action, want)
	}
	if got.Message != "Here it is." {
		t.Errorf("message %q", got.Message)
	}
}

type oneShotLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	unlocked int
}

func (l *oneShotLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return "", domain.ErrReplyPending
	}
	l.held[key] = true
	return "tok", nil
}

func (l *oneShotLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	l.unlocked++
	return nil
}

func TestChatUC_Reply_LockedSessionIsPending(t *testing.T) {
	locker := &oneShotLocker{held: map[string]bool{"busy": true}}
	ai := &fakeAI{reply: adapter.Reply{Content: "ok"}}
	uc := newChatUC(ai, newMemConversations(), nil).WithLocker(locker)

	if _, err := uc.Reply(context.Background(), userReq("busy", "", "hi")); !errors.Is(err, domain.ErrReplyPending) {
		t.Errorf("locked session: %v", err)
	}
	if len(ai.calls) != 0 {
		t.Error("no completion while another turn holds the session")
	}
	if _, err := uc.Reply(context.Background(), userReq("free", "", "hi")); err != nil {
		t.Fatal(err)
	}
	if locker.unlocked != 1 || locker.held["free"] {
		t.Errorf("lock not released: %+v", locker)
	}
}
