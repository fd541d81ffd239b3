// File: internal/usecase/chat_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"voice-ai-assistant/internal/domain"
	"voice-ai-assistant/internal/domain/model"
	"voice-ai-assistant/internal/domain/ports/adapter"
	"voice-ai-assistant/internal/domain/ports/repository"
	"voice-ai-assistant/internal/infra/logging"
	"voice-ai-assistant/internal/infra/metrics"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

const defaultLanguageName = "English"

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	SessionID string              `json:"session_id"`
	Messages  []model.ChatMessage `json:"messages"`
	Language  string              `json:"language"`
}

// ChatUseCase answers one user turn for the chat backend.
type ChatUseCase interface {
	Reply(ctx context.Context, req ChatRequest) (adapter.ChatReply, error)
	ListModels(ctx context.Context) ([]string, error)
}

// PromptTrimmer keeps a prompt within a token budget.
type PromptTrimmer interface {
	Trim(model string, messages []adapter.Message, budget int) ([]adapter.Message, int)
}

// SessionLocker serializes turns of one session.
type SessionLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

const sessionLockTTL = 2 * time.Minute

type ChatOptions struct {
	Persona         string // {language} is replaced with the request language
	InitMessage     string
	Model           string
	MaxPromptTokens int
	Dev             bool // log transcripts unredacted
}

type chatUC struct {
	conversations repository.ConversationRepository
	ai            adapter.AIServiceAdapter
	trimmer       PromptTrimmer
	tools         []adapter.Tool
	opts          ChatOptions
	locker        SessionLocker
	log           *zerolog.Logger
}

func NewChatUseCase(conversations repository.ConversationRepository, ai adapter.AIServiceAdapter, trimmer PromptTrimmer, tools []adapter.Tool, opts ChatOptions, log *zerolog.Logger) *chatUC {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &chatUC{conversations: conversations, ai: ai, trimmer: trimmer, tools: tools, opts: opts, log: log}
}

// WithLocker makes concurrent turns of one session fail with
// domain.ErrReplyPending instead of racing on the stored conversation.
func (c *chatUC) WithLocker(l SessionLocker) *chatUC {
	c.locker = l
	return c
}

func (c *chatUC) Reply(ctx context.Context, req ChatRequest) (adapter.ChatReply, error) {
	ctx = logging.WithSessID(ctx, req.SessionID)
	log := logging.With(ctx, c.log)
	defer logging.TraceDuration(log, "ChatUC.Reply")()

	if strings.TrimSpace(req.SessionID) == "" || len(req.Messages) == 0 {
		return adapter.ChatReply{}, domain.ErrInvalidArgument
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != model.RoleUser {
		return adapter.ChatReply{}, domain.ErrNotUserTurn
	}
	if strings.TrimSpace(last.Content) == "" {
		return adapter.ChatReply{}, domain.ErrEmptyTurn
	}
	if c.locker != nil {
		token, err := c.locker.TryLock(ctx, req.SessionID, sessionLockTTL)
		if err != nil {
			return adapter.ChatReply{}, err
		}
		defer func() {
			if err := c.locker.Unlock(context.WithoutCancel(ctx), req.SessionID, token); err != nil {
				log.Warn().Err(err).Msg("session unlock failed")
			}
		}()
	}

	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = defaultLanguageName
	}
	persona := strings.ReplaceAll(c.opts.Persona, "{language}", lang)

	conv, err := c.conversations.Load(ctx, req.SessionID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		conv = []adapter.Message{{Role: string(model.RoleSystem), Content: persona}}
		if c.opts.InitMessage != "" {
			conv = append(conv, adapter.Message{Role: string(model.RoleAssistant), Content: c.opts.InitMessage})
		}
	case err != nil:
		return adapter.ChatReply{}, fmt.Errorf("load conversation: %w", err)
	case len(conv) > 0 && conv[0].Role == string(model.RoleSystem):
		// The persona follows the language of the latest request.
		conv[0].Content = persona
	default:
		conv = append([]adapter.Message{{Role: string(model.RoleSystem), Content: persona}}, conv...)
	}
	conv = append(conv, adapter.Message{Role: string(model.RoleUser), Content: last.Content})

	if c.trimmer != nil {
		var dropped int
		conv, dropped = c.trimmer.Trim(c.opts.Model, conv, c.opts.MaxPromptTokens)
		if dropped > 0 {
			metrics.AddPromptTrimmed(dropped)
			log.Debug().Int("dropped", dropped).Msg("prompt trimmed")
		}
	}

	start := time.Now()
	reply, err := c.ai.Chat(ctx, c.opts.Model, conv, c.tools)
	metrics.ObserveChatUsage(c.ai.Name(), c.opts.Model, reply.Usage.PromptTokens, reply.Usage.CompletionTokens,
		int(time.Since(start).Milliseconds()), err == nil)
	if err != nil {
		log.Error().Err(err).Str("provider", c.ai.Name()).Msg("completion failed")
		return adapter.ChatReply{}, fmt.Errorf("completion: %w", err)
	}

	var action string
	if n := len(reply.ToolResults); n > 0 && reply.ToolResults[n-1].Name == ToolDisplayProduct {
		action = reply.ToolResults[n-1].Output
	}

	conv = append(conv, adapter.Message{Role: string(model.RoleAssistant), Content: reply.Content})
	if err := c.conversations.Save(ctx, req.SessionID, conv); err != nil {
		return adapter.ChatReply{}, fmt.Errorf("save conversation: %w", err)
	}

	log.Info().
		Str("user", logging.Redact(last.Content, c.opts.Dev)).
		Int("tools", len(reply.ToolResults)).
		Bool("action", action != "").
		Msg("chat reply")
	return adapter.ChatReply{Role: model.RoleAssistant, Message: reply.Content, Action: action}, nil
}

func (c *chatUC) ListModels(ctx context.Context) ([]string, error) {
	return c.ai.ListModels(ctx)
}
