package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"voice-ai-assistant/internal/domain/ports/adapter"
)

// perMessageOverhead approximates the role/framing tokens chat formats add.
const perMessageOverhead = 4

// TokenCounter counts prompt tokens with the model's BPE encoding when one
// can be loaded, and with a character-weight estimate otherwise.
type TokenCounter struct {
	mu   sync.Mutex
	encs map[string]*tiktoken.Tiktoken
	// load is swapped in tests to avoid fetching BPE ranks.
	load func(model string) (*tiktoken.Tiktoken, error)
}

func NewTokenCounter() *TokenCounter {
	return &TokenCounter{
		encs: make(map[string]*tiktoken.Tiktoken),
		load: func(model string) (*tiktoken.Tiktoken, error) {
			if enc, err := tiktoken.EncodingForModel(model); err == nil {
				return enc, nil
			}
			return tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		},
	}
}

func (c *TokenCounter) encoding(model string) *tiktoken.Tiktoken {
	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encs[model]; ok {
		return enc
	}
	enc, err := c.load(model)
	if err != nil {
		enc = nil
	}
	c.encs[model] = enc
	return enc
}

// Count returns the prompt size of messages for model.
func (c *TokenCounter) Count(model string, messages []adapter.Message) int {
	enc := c.encoding(model)
	total := 0
	for _, m := range messages {
		total += perMessageOverhead
		if enc != nil {
			total += len(enc.Encode(m.Content, nil, nil))
		} else {
			total += EstimateTokens(m.Content)
		}
	}
	return total
}

// Trim drops the oldest non-system messages until the prompt fits budget.
// The leading system message and the newest message are always kept.
// It returns the kept messages and how many were dropped.
func (c *TokenCounter) Trim(model string, messages []adapter.Message, budget int) ([]adapter.Message, int) {
	if budget <= 0 || len(messages) < 3 {
		return messages, 0
	}
	out := append([]adapter.Message(nil), messages...)
	dropped := 0
	for len(out) > 2 && c.Count(model, out) > budget {
		start := 0
		if out[0].Role == "system" {
			start = 1
		}
		out = append(out[:start], out[start+1:]...)
		dropped++
	}
	return out, dropped
}

// EstimateTokens is a conservative heuristic used when no BPE encoding is available.
func EstimateTokens(text string) int {
	weight := 0
	for _, r := range text {
		switch {
		case r <= 127: // ~4 ASCII chars = 1 token
			weight += 1
		default: // ~1 non-ASCII char = 1 token (CJK, Vietnamese diacritics, etc.)
			weight += 4
		}
	}
	return (weight + 3) / 4
}
