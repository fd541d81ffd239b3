// File: internal/usecase/session_store.go
package usecase

import (
	"github.com/oklog/ulid/v2"

	"voice-ai-assistant/internal/domain/model"
)

// SessionStore holds the current session and its bounded history.
// It is not safe for concurrent use; the ConversationController's loop owns it.
type SessionStore struct {
	maxMessages int
	session     *model.ChatSession
	newID       func() string
}

func NewSessionStore(maxMessages int) *SessionStore {
	s := &SessionStore{
		maxMessages: maxMessages,
		newID:       func() string { return ulid.Make().String() },
	}
	s.Reset()
	return s
}

// Append adds a turn, evicting the oldest non-system entry past the window.
func (s *SessionStore) Append(role model.Role, content string) {
	s.session.AddMessage(role, content)
}

// Reset replaces the session with a fresh id and a single empty system message.
func (s *SessionStore) Reset() *model.ChatSession {
	s.session = model.NewChatSession(s.newID(), s.maxMessages)
	return s.session
}

func (s *SessionStore) Latest() (model.ChatMessage, bool) {
	return s.session.Latest()
}

func (s *SessionStore) ID() string { return s.session.ID }

// History returns a copy of the current history.
func (s *SessionStore) History() []model.ChatMessage { return s.session.History() }
