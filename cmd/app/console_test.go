//go:build !integration

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"voice-ai-assistant/internal/domain"
	"voice-ai-assistant/internal/domain/model"
	"voice-ai-assistant/internal/infra/i18n"
	"voice-ai-assistant/internal/usecase"
)

type stubController struct {
	snap     usecase.Snapshot
	typed    []string
	voices   int
	langs    []string
	resets   int
	typedErr error
}

func (s *stubController) Subscribe(usecase.Observer) {}
func (s *stubController) Snapshot() usecase.Snapshot { return s.snap }

func (s *stubController) SubmitTypedTurn(_ context.Context, text string) error {
	s.typed = append(s.typed, text)
	return s.typedErr
}

func (s *stubController) SubmitVoiceTurn(context.Context) error {
	s.voices++
	return nil
}

func (s *stubController) ChangeLanguage(_ context.Context, code string) (model.LanguageSelection, error) {
	s.langs = append(s.langs, code)
	if code == "xx" {
		return model.LanguageSelection{Code: model.LangEnglish}, fmt.Errorf("%w: %q", domain.ErrUnknownLanguageCode, code)
	}
	return model.LanguageSelection{Code: model.LanguageCode(code)}, nil
}

func (s *stubController) Reset(context.Context) (string, error) {
	s.resets++
	return "s-2", nil
}

type pathRecorder struct{ path string }

func (p *pathRecorder) SetPath(path string) { p.path = path }

func newTestConsole(t *testing.T) (*console, *stubController, *pathRecorder, *bytes.Buffer) {
	t.Helper()
	catalog, err := i18n.LoadCatalog(i18n.LocalesFS)
	if err != nil {
		t.Fatal(err)
	}
	ctrl := &stubController{snap: usecase.Snapshot{SessionID: "s-1", Language: model.LanguageSelection{Code: model.LangEnglish}}}
	voice := &pathRecorder{}
	var out bytes.Buffer
	return newConsole(ctrl, voice, catalog, &out), ctrl, voice, &out
}

func TestConsole_Commands(t *testing.T) {
	con, ctrl, voice, out := newTestConsole(t)
	ctx := context.Background()

	for _, line := range []string{"hello there", "/voice /tmp/a.wav", "/lang ja-JP", "/reset", "/bogus", "   "} {
		if quit, err := con.exec(ctx, line); quit || err != nil {
			t.Fatalf("%q: quit=%v err=%v", line, quit, err)
		}
	}
	if len(ctrl.typed) != 1 || ctrl.typed[0] != "hello there" {
		t.Errorf("typed %v", ctrl.typed)
	}
	if ctrl.voices != 1 || voice.path != "/tmp/a.wav" {
		t.Errorf("voice turns=%d path=%q", ctrl.voices, voice.path)
	}
	if len(ctrl.langs) != 1 || ctrl.langs[0] != "ja-JP" || ctrl.resets != 1 {
		t.Errorf("langs=%v resets=%d", ctrl.langs, ctrl.resets)
	}
	if !strings.Contains(out.String(), "Unknown command: /bogus") {
		t.Errorf("output:\n%s", out.String())
	}

	if quit, _ := con.exec(ctx, "/quit"); !quit {
		t.Error("/quit should stop the console")
	}
}

func TestConsole_PrintsLocalizedErrors(t *testing.T) {
	con, ctrl, _, out := newTestConsole(t)
	ctrl.typedErr = domain.ErrReplyPending

	_, _ = con.exec(context.Background(), "again")
	_, _ = con.exec(context.Background(), "/lang xx")
	got := out.String()
	if !strings.Contains(got, "Please wait for the current reply.") {
		t.Errorf("missing pending notice:\n%s", got)
	}
	if !strings.Contains(got, "Language xx is not supported, using English.") {
		t.Errorf("missing language notice:\n%s", got)
	}
}

func TestConsole_ReturnsContextErrors(t *testing.T) {
	con, ctrl, _, _ := newTestConsole(t)
	ctrl.typedErr = context.Canceled
	if _, err := con.exec(context.Background(), "hi"); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v", err)
	}
}

func TestConsole_OnSnapshotPrintsNewTurnsOnce(t *testing.T) {
	con, _, _, out := newTestConsole(t)
	sys := model.ChatMessage{Role: model.RoleSystem}
	u1 := model.ChatMessage{Role: model.RoleUser, Content: "hi"}
	a1 := model.ChatMessage{Role: model.RoleAssistant, Content: "hello"}

	en := model.LanguageSelection{Code: model.LangEnglish}
	con.OnSnapshot(usecase.Snapshot{SessionID: "s-1", Language: en, History: []model.ChatMessage{sys, u1}, State: usecase.StateAwaitingReply})
	con.OnSnapshot(usecase.Snapshot{SessionID: "s-1", Language: en, History: []model.ChatMessage{sys, u1, a1}, State: usecase.StateIdle, Action: "<table></table>"})
	con.OnSnapshot(usecase.Snapshot{SessionID: "s-1", Language: en, History: []model.ChatMessage{sys, u1, a1}, State: usecase.StateIdle, Action: "<table></table>"})

	want := "You: hi\nWaiting for the assistant...\nAssistant: hello\nThe assistant shared product details: <table></table>\n"
	if out.String() != want {
		t.Errorf("output:\n got %q\nwant %q", out.String(), want)
	}
}

func TestNewEntries(t *testing.T) {
	m := func(s string) model.ChatMessage { return model.ChatMessage{Role: model.RoleUser, Content: s} }
	cases := []struct {
		name       string
		prev, next []model.ChatMessage
		want       int
	}{
		{"append", []model.ChatMessage{m("a")}, []model.ChatMessage{m("a"), m("b")}, 1},
		{"unchanged", []model.ChatMessage{m("a"), m("b")}, []model.ChatMessage{m("a"), m("b")}, 0},
		{"evicted", []model.ChatMessage{m("a"), m("b"), m("c")}, []model.ChatMessage{m("b"), m("c"), m("d")}, 1},
		{"fresh", nil, []model.ChatMessage{m("x")}, 1},
		{"replaced", []model.ChatMessage{m("a")}, []model.ChatMessage{m("z")}, 1},
	}
	for _, c := range cases {
		if got := newEntries(c.prev, c.next); len(got) != c.want {
			t.Errorf("%s: got %v", c.name, got)
		}
	}
}

func TestDescribe(t *testing.T) {
	catalog, err := i18n.LoadCatalog(i18n.LocalesFS)
	if err != nil {
		t.Fatal(err)
	}
	tr := catalog.For("en-US")
	cases := []struct {
		err  error
		want string
	}{
		{domain.ErrNoSpeech, "No speech was detected."},
		{domain.ErrTokenRejected, "Speech is unavailable right now. Please try again shortly."},
		{&domain.BackendError{Status: 502}, "The assistant returned an error (status 502). You can send your message again."},
		{&domain.TransportError{Err: errors.New("dial")}, "The assistant could not be reached. You can send your message again."},
		{domain.ErrSpeechBusy, "The microphone is busy."},
		{errors.New("something else"), "something else"},
	}
	for _, c := range cases {
		if got := describe(tr, c.err, ""); got != c.want {
			t.Errorf("%v: got %q", c.err, got)
		}
	}
}
