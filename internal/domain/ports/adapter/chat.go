package adapter

import (
	"context"

	"voice-ai-assistant/internal/domain/model"
)

// ChatReply is the backend's answer to one user turn.
type ChatReply struct {
	Role    model.Role `json:"role"`
	Message string     `json:"message"`
	Action  string     `json:"action,omitempty"`
}

// ChatBackend sends the current history to the remote chat endpoint.
// Implementations are stateless with respect to conversation content.
type ChatBackend interface {
	Send(ctx context.Context, sessionID string, history []model.ChatMessage, language string) (ChatReply, error)
}
