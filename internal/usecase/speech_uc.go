// File: internal/usecase/speech_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"voice-ai-assistant/internal/domain"
	"voice-ai-assistant/internal/domain/ports/adapter"
	"voice-ai-assistant/internal/infra/metrics"
)

// Compile-time check
var _ Speech = (*SpeechChannel)(nil)

// Speech is what the controller needs from the speech channel.
type Speech interface {
	RecognizeOnce(ctx context.Context, candidates []string) (adapter.Recognition, error)
	Speak(ctx context.Context, text, voice, languageCode string) error
	Busy() bool
}

// SpeechChannel runs recognize-once and speak against the external provider.
// Microphone and speaker are one exclusive resource: recognition fails fast
// when it is taken, speaking waits for it.
type SpeechChannel struct {
	provider adapter.SpeechProvider
	tokens   adapter.TokenSource
	source   adapter.AudioSource
	sink     adapter.AudioSink
	busy     chan struct{}
	log      *zerolog.Logger
}

func NewSpeechChannel(provider adapter.SpeechProvider, tokens adapter.TokenSource, source adapter.AudioSource, sink adapter.AudioSink, log *zerolog.Logger) *SpeechChannel {
	return &SpeechChannel{
		provider: provider,
		tokens:   tokens,
		source:   source,
		sink:     sink,
		busy:     make(chan struct{}, 1),
		log:      log,
	}
}

func (c *SpeechChannel) Busy() bool { return len(c.busy) > 0 }

func (c *SpeechChannel) RecognizeOnce(ctx context.Context, candidates []string) (rec adapter.Recognition, err error) {
	start := time.Now()
	select {
	case c.busy <- struct{}{}:
	default:
		metrics.ObserveSpeechOp("recognize", "busy", time.Since(start))
		return adapter.Recognition{}, domain.ErrSpeechBusy
	}
	defer func() {
		<-c.busy
		metrics.ObserveSpeechOp("recognize", speechResult(err), time.Since(start))
	}()

	cred, err := c.credential(ctx)
	if err != nil {
		return adapter.Recognition{}, err
	}
	audio, err := c.source.Capture(ctx)
	if err != nil {
		return adapter.Recognition{}, fmt.Errorf("%w: capture: %v", domain.ErrRecognitionFailed, err)
	}
	rec, err = c.provider.Recognize(ctx, cred, audio, candidates)
	if err != nil {
		return adapter.Recognition{}, c.providerError(err, domain.ErrRecognitionFailed)
	}
	c.log.Debug().Str("detected", rec.DetectedLanguage).Int("chars", len(rec.Text)).Msg("recognized")
	return rec, nil
}

func (c *SpeechChannel) Speak(ctx context.Context, text, voice, languageCode string) (err error) {
	start := time.Now()
	select {
	case c.busy <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", domain.ErrSynthesisFailed, ctx.Err())
	}
	defer func() {
		<-c.busy
		metrics.ObserveSpeechOp("speak", speechResult(err), time.Since(start))
	}()

	cred, err := c.credential(ctx)
	if err != nil {
		return err
	}
	audio, err := c.provider.Synthesize(ctx, cred, text, voice, languageCode)
	if err != nil {
		return c.providerError(err, domain.ErrSynthesisFailed)
	}
	if err := c.sink.Play(ctx, audio); err != nil {
		return fmt.Errorf("%w: play: %v", domain.ErrSynthesisFailed, err)
	}
	return nil
}

func (c *SpeechChannel) credential(ctx context.Context) (adapter.SpeechCredential, error) {
	cred, err := c.tokens.Token(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrTokenUnavailable) {
			return adapter.SpeechCredential{}, err
		}
		return adapter.SpeechCredential{}, fmt.Errorf("%w: %v", domain.ErrTokenUnavailable, err)
	}
	return cred, nil
}

// providerError drops a rejected credential and tags everything else with kind.
func (c *SpeechChannel) providerError(err, kind error) error {
	if errors.Is(err, domain.ErrTokenRejected) {
		c.tokens.Invalidate()
		return err
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %v", kind, err)
}

func speechResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNoSpeech):
		return "no_speech"
	case errors.Is(err, domain.ErrTokenUnavailable):
		return "token_unavailable"
	default:
		return "error"
	}
}
