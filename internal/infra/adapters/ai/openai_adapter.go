package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"voice-ai-assistant/internal/domain/ports/adapter"
	"voice-ai-assistant/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIServiceAdapter = (*OpenAIAdapter)(nil)

// maxToolRounds bounds how many times the model may call tools before answering.
const maxToolRounds = 10

// OpenAIAdapter implements adapter.AIServiceAdapter with Chat Completions and tool calls.
type OpenAIAdapter struct {
	client *openai.Client
	model  string
	maxOut int
}

// NewOpenAIAdapter builds the adapter. baseURL may be empty for api.openai.com.
func NewOpenAIAdapter(apiKey, baseURL, model string, maxOut int) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		maxOut: maxOut,
	}, nil
}

func (o *OpenAIAdapter) Name() string { return "openai" }

func (o *OpenAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{o.model}, nil
}

func (o *OpenAIAdapter) Chat(ctx context.Context, model string, messages []adapter.Message, tools []adapter.Tool) (adapter.Reply, error) {
	req := openai.ChatCompletionRequest{
		Model:     modelOrDefault(model, o.model),
		Messages:  toOpenAIMessages(messages),
		MaxTokens: o.maxOut,
	}
	byName := make(map[string]adapter.Tool, len(tools))
	for _, t := range tools {
		byName[t.Name] = t
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	var reply adapter.Reply
	for round := 0; round < maxToolRounds; round++ {
		resp, err := o.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return adapter.Reply{}, fmt.Errorf("openai chat: %w", err)
		}
		reply.Usage.PromptTokens += resp.Usage.PromptTokens
		reply.Usage.CompletionTokens += resp.Usage.CompletionTokens
		reply.Usage.TotalTokens += resp.Usage.TotalTokens
		if len(resp.Choices) == 0 {
			return adapter.Reply{}, errors.New("openai: no choices")
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			reply.Content = msg.Content
			return reply, nil
		}

		req.Messages = append(req.Messages, msg)
		for _, call := range msg.ToolCalls {
			out, err := runTool(ctx, byName, call.Function.Name, call.Function.Arguments)
			if err != nil {
				out = "error: " + err.Error()
			} else {
				reply.ToolResults = append(reply.ToolResults, adapter.ToolResult{Name: call.Function.Name, Output: out})
			}
			req.Messages = append(req.Messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    out,
				Name:       call.Function.Name,
				ToolCallID: call.ID,
			})
		}
	}
	return adapter.Reply{}, fmt.Errorf("openai: no answer after %d tool rounds", maxToolRounds)
}

func runTool(ctx context.Context, byName map[string]adapter.Tool, name, args string) (string, error) {
	t, ok := byName[name]
	if !ok || t.Run == nil {
		err := fmt.Errorf("unknown tool %q", name)
		metrics.IncToolCall(name, err)
		return "", err
	}
	if args == "" {
		args = "{}"
	}
	out, err := t.Run(ctx, json.RawMessage(args))
	metrics.IncToolCall(name, err)
	return out, err
}

func toOpenAIMessages(msgs []adapter.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
