package adapter

import (
	"context"
	"encoding/json"
)

// Message represents a chat message sent to a completion provider.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system", "tool"
	Content string `json:"content"`
}

// Usage for a single chat call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Tool is a function the model may call while composing its answer.
// Parameters is a JSON schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
	Run         func(ctx context.Context, args json.RawMessage) (string, error)
}

// ToolResult records one tool invocation made during a chat call.
type ToolResult struct {
	Name   string
	Output string
}

// Reply is what a completion provider produced for one user turn.
type Reply struct {
	Content     string
	ToolResults []ToolResult
	Usage       Usage
}

// AIServiceAdapter is the port for LLM chat.
type AIServiceAdapter interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	ListModels(ctx context.Context) ([]string, error)

	// Chat sends the conversation and returns the assistant reply. Adapters
	// that cannot call tools ignore the tools argument.
	Chat(ctx context.Context, model string, messages []Message, tools []Tool) (Reply, error)
}
