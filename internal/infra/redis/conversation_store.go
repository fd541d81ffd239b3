package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"voice-ai-assistant/internal/domain"
	"voice-ai-assistant/internal/domain/ports/adapter"
	"voice-ai-assistant/internal/domain/ports/repository"
	"voice-ai-assistant/internal/infra/metrics"
)

var _ repository.ConversationRepository = (*ConversationStore)(nil)

const conversationPrefix = "conversation:"

// ConversationStore keeps each backend conversation as one JSON value with a
// sliding TTL.
type ConversationStore struct {
	client RedisClient
	ttl    time.Duration
}

func NewConversationStore(client RedisClient, ttl time.Duration) *ConversationStore {
	return &ConversationStore{
		client: client,
		ttl:    ttl,
	}
}

func (c *ConversationStore) Load(ctx context.Context, sessionID string) ([]adapter.Message, error) {
	data, err := c.client.GetBytes(ctx, conversationPrefix+sessionID)
	if errors.Is(err, Nil) {
		metrics.IncCacheRequest("conversation", "miss")
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	metrics.IncCacheRequest("conversation", "hit")

	var msgs []adapter.Message
	if err := sonic.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", sessionID, err)
	}
	return msgs, nil
}

func (c *ConversationStore) Save(ctx context.Context, sessionID string, messages []adapter.Message) error {
	data, err := sonic.Marshal(messages)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, conversationPrefix+sessionID, data, c.ttl)
}

func (c *ConversationStore) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, conversationPrefix+sessionID)
}
