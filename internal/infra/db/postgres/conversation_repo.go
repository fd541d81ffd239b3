// File: internal/infra/db/postgres/conversation_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"voice-ai-assistant/internal/domain"
	"voice-ai-assistant/internal/domain/ports/adapter"
	"voice-ai-assistant/internal/domain/ports/repository"
	"voice-ai-assistant/internal/infra/metrics"
)

var _ repository.ConversationRepository = (*ConversationRepo)(nil)

// ConversationRepo stores each backend conversation as a JSONB array.
type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) Load(ctx context.Context, sessionID string) ([]adapter.Message, error) {
	const q = `SELECT messages FROM conversations WHERE session_id = $1;`
	var raw []byte
	if err := r.pool.QueryRow(ctx, q, sessionID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	var msgs []adapter.Message
	if err := sonic.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", sessionID, err)
	}
	return msgs, nil
}

func (r *ConversationRepo) Save(ctx context.Context, sessionID string, messages []adapter.Message) error {
	const q = `
INSERT INTO conversations (session_id, messages, created_at, updated_at)
VALUES ($1, $2::jsonb, NOW(), NOW())
ON CONFLICT (session_id) DO UPDATE SET
  messages = EXCLUDED.messages,
  updated_at = NOW();`
	raw, err := sonic.Marshal(messages)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, q, sessionID, string(raw)); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepo) Delete(ctx context.Context, sessionID string) error {
	const q = `DELETE FROM conversations WHERE session_id = $1;`
	if _, err := r.pool.Exec(ctx, q, sessionID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// Sweep removes conversations not updated for idleFor.
func (r *ConversationRepo) Sweep(ctx context.Context, idleFor time.Duration) (int, error) {
	const q = `DELETE FROM conversations WHERE updated_at < NOW() - make_interval(secs => $1);`
	tag, err := r.pool.Exec(ctx, q, idleFor.Seconds())
	if err != nil {
		return 0, fmt.Errorf("sweep conversations: %w", err)
	}

	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations;`).Scan(&n); err == nil {
		metrics.SetConversationsStored("postgres", n)
	}
	return int(tag.RowsAffected()), nil
}
