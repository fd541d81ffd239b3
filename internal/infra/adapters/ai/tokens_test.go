//go:build !integration

package ai

import (
	"errors"
	"strings"
	"testing"

	"github.com/pkoukk/tiktoken-go"

	"voice-ai-assistant/internal/domain/ports/adapter"
)

func heuristicCounter() *TokenCounter {
	c := NewTokenCounter()
	c.load = func(string) (*tiktoken.Tiktoken, error) { return nil, errors.New("offline") }
	return c
}

func TestEstimateTokens(t *testing.T) {
	cases := map[string]int{
		"":         0,
		"abcd":     1,
		"abcde":    2,
		"こんにちは":    5,
		"hi こんにちは": 6,
	}
	for in, want := range cases {
		if got := EstimateTokens(in); got != want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestTokenCounter_TrimKeepsSystemAndNewest(t *testing.T) {
	c := heuristicCounter()
	long := strings.Repeat("a", 400) // 100 tokens each
	msgs := []adapter.Message{
		{Role: "system", Content: "persona"},
		{Role: "assistant", Content: long},
		{Role: "user", Content: long},
		{Role: "assistant", Content: long},
		{Role: "user", Content: "latest"},
	}

	out, dropped := c.Trim("gpt-4o-mini", msgs, 100)
	if dropped != 3 {
		t.Fatalf("dropped %d, want 3", dropped)
	}
	if len(out) != 2 || out[0].Content != "persona" || out[1].Content != "latest" {
		t.Errorf("kept: %+v", out)
	}
	if len(msgs) != 5 {
		t.Error("Trim must not modify its input")
	}

	if out, dropped := c.Trim("gpt-4o-mini", msgs, 0); dropped != 0 || len(out) != 5 {
		t.Error("zero budget disables trimming")
	}
}

func TestTokenCounter_CountAddsOverhead(t *testing.T) {
	c := heuristicCounter()
	got := c.Count("m", []adapter.Message{{Role: "user", Content: "abcd"}, {Role: "assistant", Content: ""}})
	if want := 2*perMessageOverhead + 1; got != want {
		t.Errorf("count %d, want %d", got, want)
	}
}
