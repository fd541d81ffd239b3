package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"voice-ai-assistant/internal/domain"
	"voice-ai-assistant/internal/domain/model"
	"voice-ai-assistant/internal/domain/ports/adapter"
	"voice-ai-assistant/internal/infra/logging"
)

// Compile-time assurance this client satisfies the port
var _ adapter.ChatBackend = (*HTTPClient)(nil)

// maxReplyBytes caps how much of a backend response is read.
const maxReplyBytes = 1 << 20

type request struct {
	SessionID string              `json:"session_id"`
	Messages  []model.ChatMessage `json:"messages"`
	Language  string              `json:"language"`
}

type response struct {
	Role    model.Role `json:"role"`
	Message *string    `json:"message"`
	Action  string     `json:"action"`
}

// HTTPClient posts the conversation to {base}/chat.
type HTTPClient struct {
	endpoint string
	hc       *http.Client
	log      *zerolog.Logger
}

// NewHTTPClient builds a client for the backend at baseURL. A nil hc uses a
// client with a 60s timeout.
func NewHTTPClient(baseURL string, hc *http.Client, log *zerolog.Logger) *HTTPClient {
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &HTTPClient{endpoint: strings.TrimRight(baseURL, "/") + "/chat", hc: hc, log: log}
}

func (c *HTTPClient) Send(ctx context.Context, sessionID string, history []model.ChatMessage, language string) (adapter.ChatReply, error) {
	if n := len(history); n == 0 || history[n-1].Role != model.RoleUser {
		return adapter.ChatReply{}, domain.ErrNotUserTurn
	}
	body, err := sonic.Marshal(request{SessionID: sessionID, Messages: history, Language: language})
	if err != nil {
		return adapter.ChatReply{}, fmt.Errorf("encode chat request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return adapter.ChatReply{}, &domain.TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if id := logging.TraceIDFrom(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return adapter.ChatReply{}, &domain.TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return adapter.ChatReply{}, &domain.TransportError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn().Int("status", resp.StatusCode).Str("session_id", sessionID).Msg("chat backend rejected turn")
		return adapter.ChatReply{}, &domain.BackendError{Status: resp.StatusCode}
	}

	var out response
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return adapter.ChatReply{}, &domain.BackendError{Status: resp.StatusCode, Err: fmt.Errorf("decode reply: %w", err)}
	}
	if out.Message == nil {
		return adapter.ChatReply{}, &domain.BackendError{Status: resp.StatusCode, Err: errors.New("reply has no message")}
	}
	return adapter.ChatReply{Role: out.Role, Message: *out.Message, Action: out.Action}, nil
}
