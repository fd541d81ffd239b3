package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")

	// Conversation errors
	ErrEmptyTurn    = errors.New("empty turn")
	ErrReplyPending = errors.New("a reply is still pending for this session")
	ErrNotUserTurn  = errors.New("newest history entry is not a user turn")

	// Speech errors
	ErrRecognitionFailed = errors.New("speech recognition failed")
	ErrNoSpeech          = fmt.Errorf("%w: no speech detected", ErrRecognitionFailed)
	ErrSynthesisFailed   = errors.New("speech synthesis failed")
	ErrTokenUnavailable  = errors.New("speech token unavailable")
	ErrTokenRejected     = fmt.Errorf("%w: rejected by provider", ErrTokenUnavailable)
	ErrSpeechBusy        = errors.New("speech device busy")

	// Token service errors
	ErrSpeechNotConfigured = errors.New("speech key or region not configured")

	// Language errors
	ErrUnknownLanguageCode = errors.New("unknown language code")
)

// BackendError is returned when the chat backend answered with a non-success
// status or a body that could not be decoded.
type BackendError struct {
	Status int
	Err    error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chat backend http %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("chat backend http %d", e.Status)
}

func (e *BackendError) Unwrap() error { return e.Err }

// TransportError wraps network failures talking to the chat backend.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "chat backend transport: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }
