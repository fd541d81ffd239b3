package repository

import (
	"context"

	"voice-ai-assistant/internal/domain/ports/adapter"
)

// -----------------------------
// Server-side conversations
// -----------------------------

// ConversationRepository stores the backend's full conversation per session id,
// including persona and tool messages the client never sees.
type ConversationRepository interface {
	// Load returns domain.ErrNotFound when nothing is stored for sessionID.
	Load(ctx context.Context, sessionID string) ([]adapter.Message, error)
	Save(ctx context.Context, sessionID string, messages []adapter.Message) error
	Delete(ctx context.Context, sessionID string) error
}

// ImageRepository serves product images referenced by action payloads.
type ImageRepository interface {
	// Get returns domain.ErrNotFound when the image does not exist.
	Get(ctx context.Context, productID string) ([]byte, error)
}
