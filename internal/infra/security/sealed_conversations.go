package security

import (
	"context"
	"fmt"

	"voice-ai-assistant/internal/domain/ports/adapter"
	"voice-ai-assistant/internal/domain/ports/repository"
)

var _ repository.ConversationRepository = (*SealedConversations)(nil)

// SealedConversations encrypts message contents before they reach the
// underlying store. Roles stay readable so stores can be inspected.
type SealedConversations struct {
	inner  repository.ConversationRepository
	cipher *Cipher
}

func NewSealedConversations(inner repository.ConversationRepository, c *Cipher) *SealedConversations {
	return &SealedConversations{inner: inner, cipher: c}
}

func (s *SealedConversations) Load(ctx context.Context, sessionID string) ([]adapter.Message, error) {
	msgs, err := s.inner.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		pt, err := s.cipher.Open(msgs[i].Content)
		if err != nil {
			return nil, fmt.Errorf("open message %d of %s: %w", i, sessionID, err)
		}
		msgs[i].Content = pt
	}
	return msgs, nil
}

func (s *SealedConversations) Save(ctx context.Context, sessionID string, messages []adapter.Message) error {
	sealed := make([]adapter.Message, len(messages))
	for i, m := range messages {
		ct, err := s.cipher.Seal(m.Content)
		if err != nil {
			return err
		}
		sealed[i] = adapter.Message{Role: m.Role, Content: ct}
	}
	return s.inner.Save(ctx, sessionID, sealed)
}

func (s *SealedConversations) Delete(ctx context.Context, sessionID string) error {
	return s.inner.Delete(ctx, sessionID)
}
