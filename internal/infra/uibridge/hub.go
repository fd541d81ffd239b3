// Package uibridge exposes the conversation controller to a browser over a
// websocket. Outbound messages are state snapshots and notices; inbound
// messages are user intents.
package uibridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"voice-ai-assistant/internal/domain/model"
	"voice-ai-assistant/internal/infra/metrics"
	"voice-ai-assistant/internal/usecase"
)

// Event ids.
const (
	EventSnapshot       = "snapshot"
	EventNotice         = "notice"
	EventTypedTurn      = "typed_turn"
	EventVoiceTurn      = "voice_turn"
	EventChangeLanguage = "change_language"
	EventReset          = "reset"
)

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
	maxInbound   = 64 << 10
)

var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrFileNotAllowed = errors.New("voice file not allowed")
)

// Options configures the bridge. Origins lists the accepted browser origins,
// empty accepts any. voice_turn files are looked up inside InputDir; when it
// is empty the file field is refused.
type Options struct {
	Origins  []string
	InputDir string
}

// Controller is the part of the conversation controller the bridge drives.
type Controller interface {
	Subscribe(o usecase.Observer)
	Snapshot() usecase.Snapshot
	SubmitTypedTurn(ctx context.Context, text string) error
	SubmitVoiceTurn(ctx context.Context) error
	ChangeLanguage(ctx context.Context, code string) (model.LanguageSelection, error)
	Reset(ctx context.Context) (string, error)
}

// VoiceInput lets a voice_turn event pick the recording to recognize.
type VoiceInput interface {
	SetPath(path string)
}

// Envelope is the wire frame in both directions.
type Envelope struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type noticePayload struct {
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
}

type typedTurn struct {
	Text string `json:"text"`
}

type voiceTurn struct {
	File string `json:"file,omitempty"`
}

type changeLanguage struct {
	Code string `json:"code"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub fans controller output out to every connected client.
type Hub struct {
	ctrl     Controller
	voice    VoiceInput
	inputDir string
	log      *zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub subscribes to ctrl. voice may be nil, in which case voice_turn
// ignores its file field.
func NewHub(ctrl Controller, voice VoiceInput, opts Options, log *zerolog.Logger) *Hub {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	h := &Hub{
		ctrl:     ctrl,
		voice:    voice,
		inputDir: opts.InputDir,
		log:      log,
		clients:  make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(opts.Origins),
	}
	ctrl.Subscribe(h)
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// OnSnapshot implements usecase.Observer. It never blocks; a client whose
// buffer is full is disconnected.
func (h *Hub) OnSnapshot(s usecase.Snapshot) {
	msg, err := encode(EventSnapshot, s)
	if err != nil {
		h.log.Error().Err(err).Msg("encode snapshot")
		return
	}
	h.broadcast(msg)
}

// OnNotice implements usecase.Observer.
func (h *Hub) OnNotice(n usecase.Notice) {
	msg, err := encode(EventNotice, noticePayload{SessionID: n.SessionID, Error: errString(n.Err)})
	if err != nil {
		h.log.Error().Err(err).Msg("encode notice")
		return
	}
	h.broadcast(msg)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn().Msg("ui client too slow, dropping")
			h.dropLocked(c)
		}
	}
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.close()
	metrics.AddUIClients(-1)
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and serves one client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxInbound)
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	first, err := encode(EventSnapshot, h.ctrl.Snapshot())
	if err == nil {
		c.send <- first
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.AddUIClients(1)
	h.log.Debug().Str("remote", r.RemoteAddr).Msg("ui client connected")

	go h.writeLoop(c)
	h.readLoop(r.Context(), c)
	h.drop(c)
	_ = conn.Close()
	h.log.Debug().Str("remote", r.RemoteAddr).Msg("ui client disconnected")
}

func (h *Hub) writeLoop(c *client) {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.drop(c)
			_ = c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) readLoop(ctx context.Context, c *client) {
	for {
		mt, raw, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug().Err(err).Msg("ui read")
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var env Envelope
		if err := sonic.Unmarshal(raw, &env); err != nil {
			h.reply(c, fmt.Errorf("malformed event: %w", err))
			continue
		}
		err = h.dispatch(ctx, env)
		metrics.IncUIEvent(env.ID, err)
		if err != nil {
			h.reply(c, err)
		}
	}
}

// dispatch forwards one inbound event. Errors go back to the sender only;
// failures inside the controller arrive as broadcast notices instead.
func (h *Hub) dispatch(ctx context.Context, env Envelope) error {
	switch env.ID {
	case EventTypedTurn:
		var p typedTurn
		if err := decodePayload(env, &p); err != nil {
			return err
		}
		return h.ctrl.SubmitTypedTurn(ctx, p.Text)
	case EventVoiceTurn:
		var p voiceTurn
		if err := decodePayload(env, &p); err != nil {
			return err
		}
		if p.File != "" && h.voice != nil {
			path, err := h.resolveInput(p.File)
			if err != nil {
				return err
			}
			h.voice.SetPath(path)
		}
		return h.ctrl.SubmitVoiceTurn(ctx)
	case EventChangeLanguage:
		var p changeLanguage
		if err := decodePayload(env, &p); err != nil {
			return err
		}
		_, err := h.ctrl.ChangeLanguage(ctx, p.Code)
		return err
	case EventReset:
		_, err := h.ctrl.Reset(ctx)
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, env.ID)
	}
}

// resolveInput maps a client supplied name to a file under the input dir.
func (h *Hub) resolveInput(name string) (string, error) {
	if h.inputDir == "" {
		return "", fmt.Errorf("%w: no input directory configured", ErrFileNotAllowed)
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrFileNotAllowed, name)
	}
	return filepath.Join(h.inputDir, name), nil
}

func (h *Hub) reply(c *client, err error) {
	msg, encErr := encode(EventNotice, noticePayload{SessionID: h.ctrl.Snapshot().SessionID, Error: errString(err)})
	if encErr != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.dropLocked(c)
	}
}

func decodePayload(env Envelope, v any) error {
	if len(env.Payload) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%s payload: %w", env.ID, err)
	}
	return nil
}

func encode(id string, payload any) ([]byte, error) {
	p, err := sonic.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return sonic.Marshal(Envelope{ID: id, Payload: p})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
