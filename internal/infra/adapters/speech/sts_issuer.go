package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voice-ai-assistant/internal/domain"
	"voice-ai-assistant/internal/domain/ports/adapter"
)

var _ adapter.SpeechTokenIssuer = (*STSIssuer)(nil)

const DefaultSTSURL = "https://{region}.api.cognitive.microsoft.com/sts/v1.0/issueToken"

// STSIssuer exchanges the subscription key for a ten-minute bearer token.
type STSIssuer struct {
	key    string
	region string
	url    string
	hc     *http.Client
}

func NewSTSIssuer(key, region, stsURL string, hc *http.Client) *STSIssuer {
	if stsURL == "" {
		stsURL = DefaultSTSURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &STSIssuer{key: key, region: region, url: stsURL, hc: hc}
}

func (s *STSIssuer) Issue(ctx context.Context) (string, string, error) {
	if s.key == "" || s.region == "" {
		return "", "", domain.ErrSpeechNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, regionURL(s.url, s.region), nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.key)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.hc.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("issue token: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<10))
	if err != nil {
		return "", "", fmt.Errorf("issue token: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("issue token: http %d", resp.StatusCode)
	}
	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", "", errors.New("issue token: empty body")
	}
	return token, s.region, nil
}
