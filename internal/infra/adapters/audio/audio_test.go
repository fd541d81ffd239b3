//go:build !integration

package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func wav(payload string) []byte {
	return []byte("RIFF\x00\x00\x00\x00WAVE" + payload)
}

func TestFileSource_Capture(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	_ = os.WriteFile(a, wav("a"), 0o644)
	_ = os.WriteFile(b, wav("b"), 0o644)
	ctx := context.Background()

	src := NewFileSource("")
	if _, err := src.Capture(ctx); !errors.Is(err, ErrNoInput) {
		t.Errorf("unset path: %v", err)
	}

	src.SetPath(a)
	got, err := src.Capture(ctx)
	if err != nil || !strings.HasSuffix(string(got), "a") {
		t.Errorf("capture a: %q %v", got, err)
	}
	if got, _ := src.Capture(ctx); !strings.HasSuffix(string(got), "a") {
		t.Errorf("path should persist across captures: %q", got)
	}
	src.SetPath(b)
	if got, _ := src.Capture(ctx); !strings.HasSuffix(string(got), "b") {
		t.Errorf("capture b: %q", got)
	}

	txt := filepath.Join(dir, "notes.txt")
	_ = os.WriteFile(txt, []byte("hello world, not audio"), 0o644)
	src.SetPath(txt)
	if _, err := src.Capture(ctx); err == nil {
		t.Error("non-WAV input should be rejected")
	}
}

func TestFileSink_WritesReply(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := NewFileSink(dir, "", nil)
	if err := sink.Play(context.Background(), wav("x")); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("entries %v %v", entries, err)
	}
	name := entries[0].Name()
	if !strings.HasPrefix(name, "reply-") || !strings.HasSuffix(name, ".wav") {
		t.Errorf("file name %s", name)
	}
}

func TestFileSink_PlayerFailure(t *testing.T) {
	sink := NewFileSink(t.TempDir(), "/nonexistent/player --quiet", nil)
	if err := sink.Play(context.Background(), wav("x")); err == nil {
		t.Error("missing player should fail")
	}
}
