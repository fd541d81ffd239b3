//go:build !integration

package model

import (
	"fmt"
	"testing"
)

// --- ChatSession Tests ---

func TestNewChatSession(t *testing.T) {
	t.Run("should start with a single empty system message", func(t *testing.T) {
		s := NewChatSession("s1", 10)
		if len(s.Messages) != 1 {
			t.Fatalf("expected 1 message, got %d", len(s.Messages))
		}
		if s.Messages[0].Role != RoleSystem || s.Messages[0].Content != "" {
			t.Errorf("expected empty system message, got %+v", s.Messages[0])
		}
		if s.ID != "s1" {
			t.Errorf("expected id s1, got %s", s.ID)
		}
	})

	t.Run("should default the window when maxMessages is not positive", func(t *testing.T) {
		s := NewChatSession("s1", 0)
		if s.MaxMessages() != DefaultMaxMessages {
			t.Errorf("expected %d, got %d", DefaultMaxMessages, s.MaxMessages())
		}
	})
}

func TestChatSession_AddMessage_SlidingWindow(t *testing.T) {
	t.Run("never exceeds maxMessages turns and keeps the system message", func(t *testing.T) {
		const max = 4
		s := NewChatSession("s1", max)
		for i := 0; i < 25; i++ {
			role := RoleUser
			if i%2 == 1 {
				role = RoleAssistant
			}
			s.AddMessage(role, fmt.Sprintf("m%d", i))
			if s.Turns() > max {
				t.Fatalf("after %d appends: %d turns exceeds %d", i+1, s.Turns(), max)
			}
			if s.Messages[0].Role != RoleSystem {
				t.Fatalf("system message lost after %d appends", i+1)
			}
		}
	})

	t.Run("evicts the oldest non-system entry", func(t *testing.T) {
		s := NewChatSession("s1", 2)
		s.AddMessage(RoleUser, "a")
		s.AddMessage(RoleAssistant, "b")
		s.AddMessage(RoleUser, "c")

		got := []string{s.Messages[1].Content, s.Messages[2].Content}
		if got[0] != "b" || got[1] != "c" {
			t.Errorf("wanted [b c], got %v", got)
		}
	})

	t.Run("eleven typed turns with a window of ten stabilise at eleven entries", func(t *testing.T) {
		s := NewChatSession("s1", 10)
		for i := 0; i < 11; i++ {
			s.AddMessage(RoleUser, fmt.Sprintf("u%d", i))
		}
		if len(s.Messages) != 11 {
			t.Fatalf("expected 11 entries, got %d", len(s.Messages))
		}
		if s.Messages[1].Content != "u1" {
			t.Errorf("expected u0 evicted, first turn is %q", s.Messages[1].Content)
		}
	})
}

func TestChatSession_Latest(t *testing.T) {
	s := NewChatSession("s1", 10)
	if m, ok := s.Latest(); !ok || m.Role != RoleSystem {
		t.Fatalf("expected system message as latest, got %+v ok=%v", m, ok)
	}
	s.AddMessage(RoleUser, "Hi")
	if m, _ := s.Latest(); m.Role != RoleUser || m.Content != "Hi" {
		t.Errorf("expected user Hi, got %+v", m)
	}

	s.Messages = nil
	if _, ok := s.Latest(); ok {
		t.Error("expected no latest message on empty history")
	}
}

func TestChatSession_HistoryIsACopy(t *testing.T) {
	s := NewChatSession("s1", 10)
	s.AddMessage(RoleUser, "Hi")
	h := s.History()
	h[1].Content = "changed"
	if s.Messages[1].Content != "Hi" {
		t.Error("mutating the returned history must not touch the session")
	}
}

// --- Language Tests ---

func TestLookupLanguage(t *testing.T) {
	cases := map[LanguageCode]string{
		LangEnglish:    "en-US-JennyNeural",
		LangJapanese:   "ja-JP-NanamiNeural",
		LangChinese:    "zh-CN-XiaoxiaoNeural",
		LangVietnamese: "vi-VN-HoaiMyNeural",
		LangKorean:     "ko-KR-SunHiNeural",
		LangSpanish:    "es-ES-ElviraNeural",
	}
	for code, voice := range cases {
		l, ok := LookupLanguage(code)
		if !ok {
			t.Errorf("%s: expected to be supported", code)
			continue
		}
		if l.Voice != voice {
			t.Errorf("%s: wanted voice %s, got %s", code, voice, l.Voice)
		}
	}

	if _, ok := LookupLanguage("fr-FR"); ok {
		t.Error("fr-FR should not be supported")
	}
}

func TestSupportedLanguagesIsACopy(t *testing.T) {
	langs := SupportedLanguages()
	langs[0].Voice = "broken"
	if l, _ := LookupLanguage(LangEnglish); l.Voice != "en-US-JennyNeural" {
		t.Error("table must not be mutable through SupportedLanguages")
	}
}
