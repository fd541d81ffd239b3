package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"voice-ai-assistant/internal/domain"
	"voice-ai-assistant/internal/domain/ports/adapter"
	"voice-ai-assistant/internal/infra/metrics"
)

var _ adapter.TokenSource = (*TokenClient)(nil)

// DefaultTokenTTL is how long a fetched token is reused. Provider tokens are
// valid for ten minutes.
const DefaultTokenTTL = 540 * time.Second

// TokenClient fetches speech credentials from the token service and caches
// them until shortly before they expire.
type TokenClient struct {
	endpoint string
	ttl      time.Duration
	hc       *http.Client
	log      *zerolog.Logger
	now      func() time.Time

	mu     sync.Mutex
	cached adapter.SpeechCredential
}

func NewTokenClient(baseURL string, ttl time.Duration, hc *http.Client, log *zerolog.Logger) *TokenClient {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &TokenClient{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/get-speech-token",
		ttl:      ttl,
		hc:       hc,
		log:      log,
		now:      time.Now,
	}
}

func (c *TokenClient) Token(ctx context.Context) (adapter.SpeechCredential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached.Token != "" && c.now().Before(c.cached.ExpiresAt) {
		metrics.IncCacheRequest("speech_token", "hit")
		return c.cached, nil
	}
	metrics.IncCacheRequest("speech_token", "miss")

	cred, err := c.fetch(ctx)
	metrics.IncTokenFetch(err)
	if err != nil {
		c.log.Warn().Err(err).Msg("speech token fetch failed")
		return adapter.SpeechCredential{}, err
	}
	c.cached = cred
	return cred, nil
}

func (c *TokenClient) Invalidate() {
	c.mu.Lock()
	c.cached = adapter.SpeechCredential{}
	c.mu.Unlock()
}

func (c *TokenClient) fetch(ctx context.Context) (adapter.SpeechCredential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return adapter.SpeechCredential{}, fmt.Errorf("%w: %v", domain.ErrTokenUnavailable, err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return adapter.SpeechCredential{}, fmt.Errorf("%w: %v", domain.ErrTokenUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return adapter.SpeechCredential{}, fmt.Errorf("%w: %v", domain.ErrTokenUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return adapter.SpeechCredential{}, fmt.Errorf("%w: token service http %d: %s",
			domain.ErrTokenUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Token  string `json:"token"`
		Region string `json:"region"`
	}
	if err := sonic.Unmarshal(body, &out); err != nil {
		return adapter.SpeechCredential{}, fmt.Errorf("%w: decode: %v", domain.ErrTokenUnavailable, err)
	}
	if out.Token == "" || out.Region == "" {
		return adapter.SpeechCredential{}, fmt.Errorf("%w: empty token or region", domain.ErrTokenUnavailable)
	}
	return adapter.SpeechCredential{Token: out.Token, Region: out.Region, ExpiresAt: c.now().Add(c.ttl)}, nil
}
