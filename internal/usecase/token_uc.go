package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"voice-ai-assistant/internal/domain"
	"voice-ai-assistant/internal/domain/ports/adapter"
	"voice-ai-assistant/internal/infra/logging"
	"voice-ai-assistant/internal/infra/metrics"
)

// SpeechToken is what the token endpoint hands to clients.
type SpeechToken struct {
	Token  string `json:"token"`
	Region string `json:"region"`
}

// TokenUseCase issues short-lived speech credentials so clients never hold
// the subscription key.
type TokenUseCase interface {
	Issue(ctx context.Context) (SpeechToken, error)
}

type tokenUC struct {
	issuer adapter.SpeechTokenIssuer
	log    *zerolog.Logger
}

func NewTokenUseCase(issuer adapter.SpeechTokenIssuer, log *zerolog.Logger) *tokenUC {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &tokenUC{issuer: issuer, log: log}
}

func (u *tokenUC) Issue(ctx context.Context) (SpeechToken, error) {
	token, region, err := u.issuer.Issue(ctx)
	switch {
	case errors.Is(err, domain.ErrSpeechNotConfigured):
		metrics.IncTokenIssued("not_configured")
		return SpeechToken{}, err
	case err != nil:
		metrics.IncTokenIssued("rejected")
		logging.With(ctx, u.log).Warn().Err(err).Msg("speech token exchange failed")
		return SpeechToken{}, err
	}
	metrics.IncTokenIssued("ok")
	return SpeechToken{Token: token, Region: region}, nil
}
