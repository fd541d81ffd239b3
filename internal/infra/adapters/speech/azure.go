package speech

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"voice-ai-assistant/internal/domain"
	"voice-ai-assistant/internal/domain/ports/adapter"
)

var _ adapter.SpeechProvider = (*AzureProvider)(nil)

const (
	// {region} is replaced with the credential's region.
	DefaultSTTURL       = "https://{region}.api.cognitive.microsoft.com/speechtotext/transcriptions:transcribe?api-version=2024-11-15"
	DefaultTTSURL       = "https://{region}.tts.speech.microsoft.com/cognitiveservices/v1"
	DefaultOutputFormat = "riff-24khz-16bit-mono-pcm"

	maxAudioBytes = 32 << 20
)

type AzureConfig struct {
	STTURL       string
	TTSURL       string
	OutputFormat string
}

// AzureProvider talks to the Azure Speech REST endpoints: fast transcription
// for recognition and SSML synthesis for speech.
type AzureProvider struct {
	cfg AzureConfig
	hc  *http.Client
	log *zerolog.Logger
}

func NewAzureProvider(cfg AzureConfig, hc *http.Client, log *zerolog.Logger) *AzureProvider {
	if cfg.STTURL == "" {
		cfg.STTURL = DefaultSTTURL
	}
	if cfg.TTSURL == "" {
		cfg.TTSURL = DefaultTTSURL
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = DefaultOutputFormat
	}
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &AzureProvider{cfg: cfg, hc: hc, log: log}
}

type transcription struct {
	CombinedPhrases []struct {
		Text string `json:"text"`
	} `json:"combinedPhrases"`
	Phrases []struct {
		Locale string `json:"locale"`
		Text   string `json:"text"`
	} `json:"phrases"`
}

func (p *AzureProvider) Recognize(ctx context.Context, cred adapter.SpeechCredential, audio []byte, candidates []string) (adapter.Recognition, error) {
	definition, err := sonic.Marshal(map[string]any{"locales": candidates})
	if err != nil {
		return adapter.Recognition{}, fmt.Errorf("%w: %v", domain.ErrRecognitionFailed, err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", "utterance.wav")
	if err == nil {
		_, err = part.Write(audio)
	}
	if err == nil {
		err = mw.WriteField("definition", string(definition))
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return adapter.Recognition{}, fmt.Errorf("%w: build request: %v", domain.ErrRecognitionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, regionURL(p.cfg.STTURL, cred.Region), &body)
	if err != nil {
		return adapter.Recognition{}, fmt.Errorf("%w: %v", domain.ErrRecognitionFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	raw, err := p.do(req, domain.ErrRecognitionFailed)
	if err != nil {
		return adapter.Recognition{}, err
	}

	var tr transcription
	if err := sonic.Unmarshal(raw, &tr); err != nil {
		return adapter.Recognition{}, fmt.Errorf("%w: decode: %v", domain.ErrRecognitionFailed, err)
	}
	var text string
	if len(tr.CombinedPhrases) > 0 {
		text = strings.TrimSpace(tr.CombinedPhrases[0].Text)
	}
	if text == "" || len(tr.Phrases) == 0 {
		return adapter.Recognition{}, domain.ErrNoSpeech
	}
	return adapter.Recognition{Text: text, DetectedLanguage: tr.Phrases[0].Locale}, nil
}

func (p *AzureProvider) Synthesize(ctx context.Context, cred adapter.SpeechCredential, text, voice, language string) ([]byte, error) {
	ssml, err := buildSSML(text, voice, language)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSynthesisFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, regionURL(p.cfg.TTSURL, cred.Region), strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSynthesisFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", p.cfg.OutputFormat)
	req.Header.Set("User-Agent", "voice-ai-assistant")

	audio, err := p.do(req, domain.ErrSynthesisFailed)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio", domain.ErrSynthesisFailed)
	}
	return audio, nil
}

// do executes req and maps auth failures to ErrTokenRejected and everything
// else to kind.
func (p *AzureProvider) do(req *http.Request, kind error) ([]byte, error) {
	resp, err := p.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kind, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", kind, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, domain.ErrTokenRejected
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		p.log.Warn().Int("status", resp.StatusCode).Str("url", req.URL.Path).Msg("speech provider error")
		return nil, fmt.Errorf("%w: http %d", kind, resp.StatusCode)
	}
	return raw, nil
}

func buildSSML(text, voice, language string) (string, error) {
	var b strings.Builder
	b.WriteString("<speak version='1.0' xml:lang='")
	if err := xml.EscapeText(&b, []byte(language)); err != nil {
		return "", err
	}
	b.WriteString("'><voice name='")
	if err := xml.EscapeText(&b, []byte(voice)); err != nil {
		return "", err
	}
	b.WriteString("'>")
	if err := xml.EscapeText(&b, []byte(text)); err != nil {
		return "", err
	}
	b.WriteString("</voice></speak>")
	return b.String(), nil
}

func regionURL(tmpl, region string) string {
	return strings.ReplaceAll(tmpl, "{region}", region)
}
