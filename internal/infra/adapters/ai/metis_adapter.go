package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"voice-ai-assistant/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIServiceAdapter = (*MetisOpenAIAdapter)(nil)

// MetisOpenAIAdapter talks to Metis's OpenAI-compatible gateway through the
// official SDK. Base URL defaults to https://api.metisai.ir/openai/v1.
// Tools are not forwarded; the gateway answers in plain text.
type MetisOpenAIAdapter struct {
	client openai.Client
	model  string
	maxOut int
}

func NewMetisOpenAIAdapter(apiKey, model, base string, maxOut int) (*MetisOpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("metis api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if base == "" {
		base = "https://api.metisai.ir/openai/v1"
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(strings.TrimRight(base, "/")+"/"),
	)
	return &MetisOpenAIAdapter{client: client, model: model, maxOut: maxOut}, nil
}

func (m *MetisOpenAIAdapter) Name() string { return "metis" }

func (m *MetisOpenAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{m.model}, nil
}

func (m *MetisOpenAIAdapter) Chat(ctx context.Context, model string, messages []adapter.Message, _ []adapter.Tool) (adapter.Reply, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(modelOrDefault(model, m.model)),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}
	if m.maxOut > 0 {
		params.MaxTokens = openai.Int(int64(m.maxOut))
	}
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return adapter.Reply{}, err
	}
	if len(resp.Choices) == 0 {
		return adapter.Reply{}, errors.New("no choice content")
	}
	return adapter.Reply{
		Content: resp.Choices[0].Message.Content,
		Usage: adapter.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}
