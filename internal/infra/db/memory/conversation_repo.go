package memory

import (
	"context"
	"sync"
	"time"

	"voice-ai-assistant/internal/domain"
	"voice-ai-assistant/internal/domain/ports/adapter"
	"voice-ai-assistant/internal/domain/ports/repository"
	"voice-ai-assistant/internal/infra/metrics"
)

var _ repository.ConversationRepository = (*ConversationRepo)(nil)

type entry struct {
	messages  []adapter.Message
	updatedAt time.Time
}

// ConversationRepo keeps conversations in process memory. Idle entries are
// removed by Sweep.
type ConversationRepo struct {
	mu   sync.RWMutex
	byID map[string]entry
	now  func() time.Time
}

func NewConversationRepo() *ConversationRepo {
	return &ConversationRepo{byID: make(map[string]entry), now: time.Now}
}

func (r *ConversationRepo) Load(ctx context.Context, sessionID string) ([]adapter.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]adapter.Message(nil), e.messages...), nil
}

func (r *ConversationRepo) Save(ctx context.Context, sessionID string, messages []adapter.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[sessionID] = entry{messages: append([]adapter.Message(nil), messages...), updatedAt: r.now()}
	return nil
}

func (r *ConversationRepo) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, sessionID)
	return nil
}

// Sweep drops conversations not saved for idleFor and returns how many.
func (r *ConversationRepo) Sweep(ctx context.Context, idleFor time.Duration) (int, error) {
	cutoff := r.now().Add(-idleFor)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.byID {
		if e.updatedAt.Before(cutoff) {
			delete(r.byID, id)
			n++
		}
	}
	metrics.SetConversationsStored("memory", len(r.byID))
	return n, nil
}

func (r *ConversationRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
