//go:build !integration

package security

import (
	"context"
	"errors"
	"strings"
	"testing"

	"voice-ai-assistant/internal/domain/ports/adapter"
	"voice-ai-assistant/internal/infra/db/memory"
)

func testCipher(t *testing.T) *Cipher {
	t.Helper()
	key, err := ParseKey(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestParseKey(t *testing.T) {
	cases := map[string]int{
		strings.Repeat("k", 16): 16,
		strings.Repeat("k", 32): 32,
		strings.Repeat("0f", 16): 16,
		strings.Repeat("0f", 32): 32,
	}
	for in, want := range cases {
		k, err := ParseKey(in)
		if err != nil || len(k) != want {
			t.Errorf("%q: len=%d err=%v", in, len(k), err)
		}
	}
	if _, err := ParseKey("short"); err == nil {
		t.Error("short key should fail")
	}
}

func TestCipher_SealOpen(t *testing.T) {
	c := testCipher(t)
	a, err := c.Seal("hello")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := c.Seal("hello")
	if a == b {
		t.Error("nonce should make ciphertexts differ")
	}
	if pt, err := c.Open(a); err != nil || pt != "hello" {
		t.Errorf("open: %q %v", pt, err)
	}
	for _, bad := range []string{"!!", "AAAA", a[:len(a)-4] + "AAAA"} {
		if _, err := c.Open(bad); !errors.Is(err, ErrCiphertext) {
			t.Errorf("%q: got %v", bad, err)
		}
	}
}

func TestSealedConversations(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewConversationRepo()
	s := NewSealedConversations(inner, testCipher(t))
	msgs := []adapter.Message{{Role: "system", Content: "persona"}, {Role: "user", Content: "secret"}}

	if err := s.Save(ctx, "s1", msgs); err != nil {
		t.Fatal(err)
	}
	raw, _ := inner.Load(ctx, "s1")
	if raw[1].Role != "user" || raw[1].Content == "secret" {
		t.Errorf("stored content should be sealed: %+v", raw[1])
	}
	if msgs[1].Content != "secret" {
		t.Error("caller slice must not be modified")
	}

	got, err := s.Load(ctx, "s1")
	if err != nil || len(got) != 2 || got[1].Content != "secret" {
		t.Errorf("load: %+v %v", got, err)
	}
	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, "s1"); err == nil {
		t.Error("deleted conversation should be missing")
	}
}
