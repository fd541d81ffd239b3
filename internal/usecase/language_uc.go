// File: internal/usecase/language_uc.go
package usecase

import (
	"fmt"
	"strings"

	"voice-ai-assistant/internal/domain"
	"voice-ai-assistant/internal/domain/model"
)

// LanguageProfile maps language codes to synthesis voices and tracks the
// active selection. Like SessionStore it is owned by the controller loop.
type LanguageProfile struct {
	def        model.Language
	candidates []string
	current    model.LanguageSelection
}

// NewLanguageProfile validates the default code and the auto-detect
// candidates against the supported-language table. Unsupported candidates
// are an error; an empty candidate list detects the default only.
func NewLanguageProfile(defaultCode string, candidates []string) (*LanguageProfile, error) {
	def, ok := lookup(defaultCode)
	if !ok {
		return nil, fmt.Errorf("default language %q: %w", defaultCode, domain.ErrUnknownLanguageCode)
	}
	p := &LanguageProfile{def: def}
	seen := make(map[model.LanguageCode]bool)
	for _, c := range candidates {
		l, ok := lookup(c)
		if !ok {
			return nil, fmt.Errorf("candidate language %q: %w", c, domain.ErrUnknownLanguageCode)
		}
		if !seen[l.Code] {
			seen[l.Code] = true
			p.candidates = append(p.candidates, string(l.Code))
		}
	}
	if len(p.candidates) == 0 {
		p.candidates = []string{string(def.Code)}
	}
	p.current = model.LanguageSelection{Code: def.Code, Voice: def.Voice, Source: model.LanguageManual}
	return p, nil
}

// Select makes code the active language. An unsupported code activates the
// default language and returns ErrUnknownLanguageCode with that fallback.
func (p *LanguageProfile) Select(code string, source model.LanguageSource) (model.LanguageSelection, error) {
	l, ok := lookup(code)
	var err error
	if !ok {
		l = p.def
		err = fmt.Errorf("%w: %q", domain.ErrUnknownLanguageCode, code)
	}
	p.current = model.LanguageSelection{Code: l.Code, Voice: l.Voice, Source: source}
	return p.current, err
}

func (p *LanguageProfile) Current() model.LanguageSelection { return p.current }

// VoiceFor is a pure table lookup.
func (p *LanguageProfile) VoiceFor(code string) (string, bool) {
	l, ok := lookup(code)
	return l.Voice, ok
}

// DisplayName returns the human-readable name sent to the chat backend.
func (p *LanguageProfile) DisplayName(code model.LanguageCode) string {
	if l, ok := model.LookupLanguage(code); ok {
		return l.DisplayName
	}
	return p.def.DisplayName
}

func (p *LanguageProfile) Candidates() []string {
	out := make([]string, len(p.candidates))
	copy(out, p.candidates)
	return out
}

// lookup matches case-insensitively; detector output is untrusted.
func lookup(code string) (model.Language, bool) {
	code = strings.TrimSpace(code)
	for _, l := range model.SupportedLanguages() {
		if strings.EqualFold(string(l.Code), code) {
			return l, true
		}
	}
	return model.Language{}, false
}
