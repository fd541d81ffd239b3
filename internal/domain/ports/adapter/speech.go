package adapter

import (
	"context"
	"time"
)

// SpeechCredential is an ephemeral bearer token scoped to a provider region.
type SpeechCredential struct {
	Token     string
	Region    string
	ExpiresAt time.Time
}

// Recognition is the terminal result of one recognize-once call.
type Recognition struct {
	Text             string
	DetectedLanguage string
}

// TokenSource hands out a valid speech credential, fetching or refreshing it
// as needed. Invalidate drops a cached credential the provider rejected.
type TokenSource interface {
	Token(ctx context.Context) (SpeechCredential, error)
	Invalidate()
}

// SpeechProvider is the external recognition/synthesis service.
type SpeechProvider interface {
	Recognize(ctx context.Context, cred SpeechCredential, audio []byte, candidates []string) (Recognition, error)
	Synthesize(ctx context.Context, cred SpeechCredential, text, voice, language string) ([]byte, error)
}

// AudioSource captures one utterance (WAV bytes).
type AudioSource interface {
	Capture(ctx context.Context) ([]byte, error)
}

// AudioSink plays synthesized audio.
type AudioSink interface {
	Play(ctx context.Context, audio []byte) error
}

// SpeechTokenIssuer exchanges the long-lived subscription key for an
// ephemeral token. It is used by the token service, never by the client.
type SpeechTokenIssuer interface {
	Issue(ctx context.Context) (token string, region string, err error)
}
