//go:build !integration

package i18n

import (
	"testing"
	"testing/fstest"
)

func TestTranslator(t *testing.T) {
	translator, err := newTranslatorFromBytes([]byte("greeting: Xin chào\nwelcome_user: Xin chào %s"))
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		if got := translator.T("greeting"); got != "Xin chào" {
			t.Errorf("got '%s'", got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		if got := translator.T("nonexistent_key"); got != "nonexistent_key" {
			t.Errorf("got '%s'", got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		if got := translator.T("welcome_user", "Lan"); got != "Xin chào Lan" {
			t.Errorf("got '%s'", got)
		}
	})
}

func TestCatalog_FallbackToDefault(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en-US.yaml": {Data: []byte("hello: Hello\nbye: Bye\n")},
		"locales/ja-JP.yaml": {Data: []byte("hello: こんにちは\n")},
		"locales/README.md":  {Data: []byte("ignored")},
	}
	c, err := LoadCatalog(fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ja := c.For("ja-JP")
	if got := ja.T("hello"); got != "こんにちは" {
		t.Errorf("ja hello: %q", got)
	}
	if got := ja.T("bye"); got != "Bye" {
		t.Errorf("missing ja key should fall back, got %q", got)
	}
	if got := c.For("xx-XX").Lang(); got != DefaultLang {
		t.Errorf("unknown language should use default catalog, got %q", got)
	}
}

func TestCatalog_RequiresDefault(t *testing.T) {
	fsys := fstest.MapFS{"locales/ja-JP.yaml": {Data: []byte("hello: x\n")}}
	if _, err := LoadCatalog(fsys); err == nil {
		t.Fatal("expected error without default catalog")
	}
}

func TestEmbeddedLocales_CoverNoticeKeys(t *testing.T) {
	c, err := LoadCatalog(LocalesFS)
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	keys := []string{
		"recognition_failed", "no_speech", "synthesis_failed", "token_unavailable",
		"backend_error", "transport_error", "unknown_language", "reply_pending", "speech_busy",
	}
	for _, lang := range []string{"en-US", "ja-JP", "zh-CN", "vi-VN", "ko-KR", "es-ES"} {
		tr := c.For(lang)
		if tr.Lang() != lang {
			t.Errorf("%s: embedded catalog missing", lang)
			continue
		}
		for _, k := range keys {
			if _, ok := tr.translations[k]; !ok {
				t.Errorf("%s: missing key %s", lang, k)
			}
		}
	}
}
