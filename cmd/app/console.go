package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"voice-ai-assistant/internal/domain"
	"voice-ai-assistant/internal/domain/model"
	"voice-ai-assistant/internal/infra/i18n"
	"voice-ai-assistant/internal/usecase"
)

// controller is what the console drives; *usecase.ConversationController
// satisfies it.
type controller interface {
	Subscribe(o usecase.Observer)
	Snapshot() usecase.Snapshot
	SubmitTypedTurn(ctx context.Context, text string) error
	SubmitVoiceTurn(ctx context.Context) error
	ChangeLanguage(ctx context.Context, code string) (model.LanguageSelection, error)
	Reset(ctx context.Context) (string, error)
}

type voicePicker interface {
	SetPath(path string)
}

// console renders controller output as plain text and turns input lines
// into controller calls.
type console struct {
	ctrl    controller
	voice   voicePicker
	catalog *i18n.Catalog

	mu        sync.Mutex
	out       io.Writer
	sessionID string
	shown     []model.ChatMessage
	state     usecase.State
	listening bool
	action    string
}

func newConsole(ctrl controller, voice voicePicker, catalog *i18n.Catalog, out io.Writer) *console {
	c := &console{ctrl: ctrl, voice: voice, catalog: catalog, out: out}
	ctrl.Subscribe(c)
	return c
}

func (c *console) tr() *i18n.Translator {
	return c.catalog.For(string(c.ctrl.Snapshot().Language.Code))
}

func (c *console) OnSnapshot(s usecase.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.catalog.For(string(s.Language.Code))

	if s.SessionID != c.sessionID {
		c.sessionID = s.SessionID
		c.shown = nil
		c.action = ""
	}
	var turns []model.ChatMessage
	if len(s.History) > 1 {
		turns = s.History[1:]
	}
	for _, m := range newEntries(c.shown, turns) {
		fmt.Fprintf(c.out, "%s: %s\n", speaker(t, m.Role), m.Content)
	}
	c.shown = turns

	if s.Listening && !c.listening {
		fmt.Fprintln(c.out, t.T("listening"))
	}
	c.listening = s.Listening
	if s.State != c.state {
		switch s.State {
		case usecase.StateAwaitingReply:
			fmt.Fprintln(c.out, t.T("thinking"))
		case usecase.StateSpeaking:
			fmt.Fprintln(c.out, t.T("speaking"))
		}
		c.state = s.State
	}
	if s.Action != "" && s.Action != c.action {
		fmt.Fprintln(c.out, t.T("action_available", s.Action))
	}
	c.action = s.Action
}

func (c *console) OnNotice(n usecase.Notice) {
	t := c.tr()
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, describe(t, n.Err, ""))
}

func (c *console) say(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

// Run reads commands from in until EOF, /quit or ctx ends.
func (c *console) Run(ctx context.Context, in io.Reader) error {
	c.say(c.tr().T("welcome"))
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		quit, err := c.exec(ctx, sc.Text())
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
	return sc.Err()
}

// exec handles one input line. Only context errors are returned; everything
// else is printed.
func (c *console) exec(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	t := c.tr()
	var err error
	var code string
	if !strings.HasPrefix(line, "/") {
		err = c.ctrl.SubmitTypedTurn(ctx, line)
	} else {
		fields := strings.Fields(line)
		arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
		switch fields[0] {
		case "/quit", "/exit":
			return true, nil
		case "/help":
			c.say(t.T("help"))
		case "/voice":
			if arg != "" && c.voice != nil {
				c.voice.SetPath(arg)
			}
			err = c.ctrl.SubmitVoiceTurn(ctx)
		case "/lang":
			if arg == "" {
				c.say(t.T("languages", supportedCodes()))
				break
			}
			code = arg
			var sel model.LanguageSelection
			sel, err = c.ctrl.ChangeLanguage(ctx, arg)
			if err == nil {
				c.say(c.catalog.For(string(sel.Code)).T("language_changed", languageName(sel.Code), sel.Code))
			}
		case "/reset":
			if _, err = c.ctrl.Reset(ctx); err == nil {
				c.say(c.tr().T("session_reset"))
			}
		case "/history":
			c.printHistory(t)
		default:
			c.say(t.T("unknown_command", fields[0]))
		}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		c.say(describe(t, err, code))
	}
	return false, nil
}

func (c *console) printHistory(t *i18n.Translator) {
	h := c.ctrl.Snapshot().History
	if len(h) <= 1 {
		c.say(t.T("history_empty"))
		return
	}
	for _, m := range h[1:] {
		c.say(fmt.Sprintf("%s: %s", speaker(t, m.Role), m.Content))
	}
}

func speaker(t *i18n.Translator, r model.Role) string {
	if r == model.RoleUser {
		return t.T("you")
	}
	return t.T("assistant")
}

// newEntries returns the tail of next that was not in prev. The window may
// have evicted entries from the front of prev since it was shown.
func newEntries(prev, next []model.ChatMessage) []model.ChatMessage {
	for shift := 0; shift <= len(prev); shift++ {
		kept := prev[shift:]
		if len(kept) > len(next) {
			continue
		}
		if equalTurns(kept, next[:len(kept)]) {
			return next[len(kept):]
		}
	}
	return next
}

func equalTurns(a, b []model.ChatMessage) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// describe turns a controller error into a localized message.
func describe(t *i18n.Translator, err error, code string) string {
	var be *domain.BackendError
	var te *domain.TransportError
	switch {
	case errors.Is(err, domain.ErrNoSpeech):
		return t.T("no_speech")
	case errors.Is(err, domain.ErrTokenUnavailable):
		return t.T("token_unavailable")
	case errors.Is(err, domain.ErrRecognitionFailed):
		return t.T("recognition_failed")
	case errors.Is(err, domain.ErrSynthesisFailed):
		return t.T("synthesis_failed")
	case errors.As(err, &be):
		return t.T("backend_error", be.Status)
	case errors.As(err, &te):
		return t.T("transport_error")
	case errors.Is(err, domain.ErrUnknownLanguageCode):
		if code == "" {
			code = "?"
		}
		return t.T("unknown_language", code)
	case errors.Is(err, domain.ErrReplyPending):
		return t.T("reply_pending")
	case errors.Is(err, domain.ErrSpeechBusy):
		return t.T("speech_busy")
	default:
		return err.Error()
	}
}

func supportedCodes() string {
	langs := model.SupportedLanguages()
	codes := make([]string, len(langs))
	for i, l := range langs {
		codes[i] = string(l.Code)
	}
	return strings.Join(codes, ", ")
}

func languageName(code model.LanguageCode) string {
	if l, ok := model.LookupLanguage(code); ok {
		return l.DisplayName
	}
	return string(code)
}
