// File: internal/usecase/conversation_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voice-ai-assistant/internal/domain"
	"voice-ai-assistant/internal/domain/model"
	"voice-ai-assistant/internal/domain/ports/adapter"
	"voice-ai-assistant/internal/infra/logging"
	"voice-ai-assistant/internal/infra/metrics"
	"voice-ai-assistant/internal/infra/worker"
)

type State string

const (
	StateIdle          State = "idle"
	StateAwaitingReply State = "awaiting_reply"
	StateSpeaking      State = "speaking"
)

// Origin tells where the pending user turn came from.
type Origin string

const (
	OriginTyped Origin = "typed"
	OriginVoice Origin = "voice"
)

// Snapshot is the read-only view handed to observers.
type Snapshot struct {
	SessionID string                  `json:"session_id"`
	History   []model.ChatMessage     `json:"history"`
	State     State                   `json:"state"`
	Language  model.LanguageSelection `json:"language"`
	Action    string                  `json:"action,omitempty"`
	Listening bool                    `json:"listening"`
}

// Notice reports a non-fatal failure to the presentation layer.
type Notice struct {
	SessionID string
	Err       error
}

// Observer callbacks run on the controller loop and must not block.
type Observer interface {
	OnSnapshot(Snapshot)
	OnNotice(Notice)
}

// TaskRunner runs suspending operations off the loop.
type TaskRunner interface {
	Submit(task worker.Task) error
}

// ConversationController owns the session and decides when to call the chat
// backend and when to speak a reply. All state is touched only by Run's
// goroutine; public methods post commands to it.
type ConversationController struct {
	store  *SessionStore
	lang   *LanguageProfile
	speech Speech
	chat   adapter.ChatBackend
	runner TaskRunner
	log    *zerolog.Logger

	events chan any
	done   chan struct{}

	// loop-owned
	sending      bool
	speaking     bool
	listening    bool
	pendingVoice bool
	action       string
	state        State

	mu        sync.RWMutex
	snap      Snapshot
	observers []Observer
}

func NewConversationController(store *SessionStore, lang *LanguageProfile, speech Speech, chat adapter.ChatBackend, runner TaskRunner, log *zerolog.Logger) *ConversationController {
	c := &ConversationController{
		store:  store,
		lang:   lang,
		speech: speech,
		chat:   chat,
		runner: runner,
		log:    log,
		events: make(chan any, 16),
		done:   make(chan struct{}),
		state:  StateIdle,
	}
	c.snap = c.buildSnapshot()
	return c
}

// ---- commands and events ----

type typedTurnCmd struct {
	text string
	resp chan error
}

type voiceTurnCmd struct{ resp chan error }

type languageCmd struct {
	code string
	resp chan languageResult
}

type languageResult struct {
	sel model.LanguageSelection
	err error
}

type resetCmd struct{ resp chan string }

type replyEvent struct {
	sessionID string
	reply     adapter.ChatReply
	err       error
}

type recognizedEvent struct {
	sessionID string
	rec       adapter.Recognition
	err       error
}

type spokenEvent struct {
	sessionID string
	err       error
}

// ---- public surface ----

// Subscribe registers an observer. Observers added before Run see the
// initial snapshot.
func (c *ConversationController) Subscribe(o Observer) {
	c.mu.Lock()
	c.observers = append(c.observers, o)
	c.mu.Unlock()
}

// Snapshot returns the latest published state. Safe from any goroutine.
func (c *ConversationController) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// SubmitTypedTurn appends a typed user turn and dispatches it to the backend.
func (c *ConversationController) SubmitTypedTurn(ctx context.Context, text string) error {
	resp := make(chan error, 1)
	if err := c.post(ctx, typedTurnCmd{text: text, resp: resp}); err != nil {
		return err
	}
	return wait(ctx, resp)
}

// SubmitVoiceTurn starts one recognition. The recognized text, if any, is
// appended as a voice-sourced turn when the recognizer settles.
func (c *ConversationController) SubmitVoiceTurn(ctx context.Context) error {
	resp := make(chan error, 1)
	if err := c.post(ctx, voiceTurnCmd{resp: resp}); err != nil {
		return err
	}
	return wait(ctx, resp)
}

// ChangeLanguage selects a language manually. It never contacts the backend.
func (c *ConversationController) ChangeLanguage(ctx context.Context, code string) (model.LanguageSelection, error) {
	resp := make(chan languageResult, 1)
	if err := c.post(ctx, languageCmd{code: code, resp: resp}); err != nil {
		return model.LanguageSelection{}, err
	}
	select {
	case r := <-resp:
		return r.sel, r.err
	case <-ctx.Done():
		return model.LanguageSelection{}, ctx.Err()
	}
}

// Reset starts a new session and returns its id. Results of operations still
// in flight for the old session are discarded when they arrive.
func (c *ConversationController) Reset(ctx context.Context) (string, error) {
	resp := make(chan string, 1)
	if err := c.post(ctx, resetCmd{resp: resp}); err != nil {
		return "", err
	}
	select {
	case id := <-resp:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Run processes commands and async results until ctx ends. Call it once.
func (c *ConversationController) Run(ctx context.Context) error {
	defer close(c.done)
	c.log.Info().Str("session_id", c.store.ID()).Msg("conversation loop started")
	c.publish()
	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("conversation loop stopped")
			return ctx.Err()
		case ev := <-c.events:
			c.handle(ev)
			c.publish()
		}
	}
}

// ---- loop ----

func (c *ConversationController) handle(ev any) {
	switch ev := ev.(type) {
	case typedTurnCmd:
		ev.resp <- c.onTypedTurn(ev.text)
	case voiceTurnCmd:
		ev.resp <- c.onVoiceTurn()
	case languageCmd:
		sel, err := c.lang.Select(ev.code, model.LanguageManual)
		c.log.Debug().Str("language", string(sel.Code)).Str("voice", sel.Voice).Msg("language selected")
		ev.resp <- languageResult{sel: sel, err: err}
	case resetCmd:
		ev.resp <- c.onReset()
	case replyEvent:
		c.onReply(ev)
	case recognizedEvent:
		c.onRecognized(ev)
	case spokenEvent:
		c.onSpoken(ev)
	default:
		c.log.Error().Str("event", fmt.Sprintf("%T", ev)).Msg("unknown event")
	}
}

func (c *ConversationController) onTypedTurn(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyTurn
	}
	if c.sending {
		return domain.ErrReplyPending
	}
	c.appendUserTurn(text, OriginTyped)
	return nil
}

func (c *ConversationController) onVoiceTurn() error {
	if c.sending {
		return domain.ErrReplyPending
	}
	if c.listening || c.speech.Busy() {
		return domain.ErrSpeechBusy
	}
	sessionID := c.store.ID()
	candidates := c.lang.Candidates()
	err := c.runner.Submit(func(ctx context.Context) error {
		ev := recognizedEvent{sessionID: sessionID}
		defer func() {
			if p := recover(); p != nil {
				ev.err = fmt.Errorf("%w: panic: %v", domain.ErrRecognitionFailed, p)
			}
			c.deliver(ev)
		}()
		ev.rec, ev.err = c.speech.RecognizeOnce(ctx, candidates)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRecognitionFailed, err)
	}
	c.listening = true
	return nil
}

func (c *ConversationController) onReset() string {
	old := c.store.ID()
	sess := c.store.Reset()
	c.sending = false
	c.speaking = false
	c.pendingVoice = false
	c.action = ""
	c.log.Info().Str("old_session_id", old).Str("session_id", sess.ID).Msg("session reset")
	return sess.ID
}

func (c *ConversationController) appendUserTurn(text string, origin Origin) {
	c.store.Append(model.RoleUser, text)
	c.pendingVoice = origin == OriginVoice
	metrics.IncTurn(string(model.RoleUser), string(origin))
	c.dispatchSend()
}

// dispatchSend calls the backend only when the newest entry is a user turn.
func (c *ConversationController) dispatchSend() {
	latest, ok := c.store.Latest()
	if !ok || latest.Role != model.RoleUser || c.sending {
		return
	}
	sessionID := c.store.ID()
	history := c.store.History()
	language := c.lang.DisplayName(c.lang.Current().Code)

	err := c.runner.Submit(func(ctx context.Context) error {
		ev := replyEvent{sessionID: sessionID}
		defer func() {
			if p := recover(); p != nil {
				ev.err = &domain.TransportError{Err: fmt.Errorf("chat send panic: %v", p)}
			}
			c.deliver(ev)
		}()
		ctx = logging.WithSessID(ctx, sessionID)
		start := time.Now()
		ev.reply, ev.err = c.chat.Send(ctx, sessionID, history, language)
		metrics.ObserveChatSend(time.Since(start), ev.err)
		return nil
	})
	if err != nil {
		c.pendingVoice = false
		c.notify(&domain.TransportError{Err: fmt.Errorf("dispatch chat send: %w", err)})
		return
	}
	c.sending = true
}

func (c *ConversationController) onReply(ev replyEvent) {
	if ev.sessionID != c.store.ID() {
		metrics.IncStaleResult("send")
		c.log.Debug().Str("session_id", ev.sessionID).Msg("discarding reply for previous session")
		return
	}
	c.sending = false
	voice := c.pendingVoice
	c.pendingVoice = false
	origin := OriginTyped
	if voice {
		origin = OriginVoice
	}

	if ev.err != nil {
		// the user turn stays visible; resubmitting retries
		c.notify(ev.err)
		return
	}

	c.store.Append(model.RoleAssistant, ev.reply.Message)
	c.action = ev.reply.Action
	metrics.IncTurn(string(model.RoleAssistant), string(origin))
	if voice {
		c.startSpeaking(ev.reply.Message)
	}
}

func (c *ConversationController) startSpeaking(text string) {
	sessionID := c.store.ID()
	sel := c.lang.Current()
	err := c.runner.Submit(func(ctx context.Context) error {
		ev := spokenEvent{sessionID: sessionID}
		defer func() {
			if p := recover(); p != nil {
				ev.err = fmt.Errorf("%w: panic: %v", domain.ErrSynthesisFailed, p)
			}
			c.deliver(ev)
		}()
		ev.err = c.speech.Speak(ctx, text, sel.Voice, string(sel.Code))
		return nil
	})
	if err != nil {
		c.notify(fmt.Errorf("%w: %v", domain.ErrSynthesisFailed, err))
		return
	}
	c.speaking = true
}

func (c *ConversationController) onSpoken(ev spokenEvent) {
	if ev.sessionID != c.store.ID() {
		metrics.IncStaleResult("speak")
		return
	}
	c.speaking = false
	if ev.err != nil {
		c.log.Warn().Err(ev.err).Msg("speech synthesis failed")
		c.notify(ev.err)
	}
}

func (c *ConversationController) onRecognized(ev recognizedEvent) {
	c.listening = false
	if ev.sessionID != c.store.ID() {
		metrics.IncStaleResult("recognize")
		return
	}
	if ev.err != nil {
		c.log.Debug().Err(ev.err).Msg("recognition failed")
		c.notify(ev.err)
		return
	}
	text := strings.TrimSpace(ev.rec.Text)
	if text == "" {
		return
	}
	if c.sending {
		c.notify(domain.ErrReplyPending)
		return
	}
	if ev.rec.DetectedLanguage != "" {
		if _, err := c.lang.Select(ev.rec.DetectedLanguage, model.LanguageDetected); err != nil {
			c.notify(err)
		}
	}
	c.appendUserTurn(text, OriginVoice)
}

func (c *ConversationController) currentState() State {
	switch {
	case c.sending:
		return StateAwaitingReply
	case c.speaking:
		return StateSpeaking
	default:
		return StateIdle
	}
}

func (c *ConversationController) buildSnapshot() Snapshot {
	return Snapshot{
		SessionID: c.store.ID(),
		History:   c.store.History(),
		State:     c.currentState(),
		Language:  c.lang.Current(),
		Action:    c.action,
		Listening: c.listening,
	}
}

func (c *ConversationController) publish() {
	if next := c.currentState(); next != c.state {
		metrics.IncTransition(string(c.state), string(next))
		c.log.Debug().Str("from", string(c.state)).Str("to", string(next)).Msg("state transition")
		c.state = next
	}
	snap := c.buildSnapshot()
	c.mu.Lock()
	c.snap = snap
	observers := append([]Observer(nil), c.observers...)
	c.mu.Unlock()
	for _, o := range observers {
		o.OnSnapshot(snap)
	}
}

func (c *ConversationController) notify(err error) {
	var be *domain.BackendError
	switch {
	case errors.As(err, &be):
		c.log.Warn().Int("status", be.Status).Err(err).Msg("chat backend error")
	case errors.Is(err, domain.ErrUnknownLanguageCode), errors.Is(err, domain.ErrReplyPending):
		c.log.Info().Err(err).Msg("notice")
	default:
		c.log.Warn().Err(err).Msg("notice")
	}
	n := Notice{SessionID: c.store.ID(), Err: err}
	c.mu.RLock()
	observers := append([]Observer(nil), c.observers...)
	c.mu.RUnlock()
	for _, o := range observers {
		o.OnNotice(n)
	}
}

// post enqueues a command from a caller goroutine.
func (c *ConversationController) post(ctx context.Context, ev any) error {
	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return errors.New("conversation loop stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// deliver hands an async result back to the loop; dropped once Run returned.
func (c *ConversationController) deliver(ev any) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func wait(ctx context.Context, resp <-chan error) error {
	select {
	case err := <-resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
