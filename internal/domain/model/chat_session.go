package model

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultMaxMessages is the number of non-system turns kept in the window.
const DefaultMaxMessages = 10

// ChatMessage represents one turn of a conversation.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatSession is the aggregate root for a running conversation: an identity
// plus a bounded history that always starts with one system message.
type ChatSession struct {
	ID          string
	Messages    []ChatMessage
	CreatedAt   time.Time
	maxMessages int
}

func NewChatSession(id string, maxMessages int) *ChatSession {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	msgs := make([]ChatMessage, 1, maxMessages+2)
	msgs[0] = ChatMessage{Role: RoleSystem}
	return &ChatSession{
		ID:          id,
		Messages:    msgs,
		CreatedAt:   time.Now(),
		maxMessages: maxMessages,
	}
}

// AddMessage appends a turn and slides the window: while more than
// maxMessages turns follow the system message, index 1 is dropped.
func (s *ChatSession) AddMessage(role Role, content string) {
	s.Messages = append(s.Messages, ChatMessage{Role: role, Content: content})
	for len(s.Messages)-1 > s.maxMessages {
		s.Messages = append(s.Messages[:1], s.Messages[2:]...)
	}
}

// Latest returns the newest entry.
func (s *ChatSession) Latest() (ChatMessage, bool) {
	if len(s.Messages) == 0 {
		return ChatMessage{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// History returns a copy of the messages, safe to hand to other goroutines.
func (s *ChatSession) History() []ChatMessage {
	out := make([]ChatMessage, len(s.Messages))
	copy(out, s.Messages)
	return out
}

func (s *ChatSession) MaxMessages() int { return s.maxMessages }

// Turns is the number of non-system entries.
func (s *ChatSession) Turns() int { return len(s.Messages) - 1 }
