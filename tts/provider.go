package tts

import (
	"context"
	"strings"
)

// Provider is a single text-to-speech backend.
// Implementations abstract native OS commands and cloud APIs behind one
// contract so the Manager can treat them interchangeably.
type Provider interface {
	// Name returns the stable provider identifier (for selection/logging).
	Name() string

	// Native reports whether the provider shells out to a local command,
	// as opposed to calling a remote API. The Manager prefers native
	// providers when selecting the active backend.
	Native() bool

	// IsAvailable probes whether the backend is usable on this host.
	// It is a side-effect-free observation: it may look up a binary or
	// inspect configuration but must not mutate provider state. Any
	// internal failure reports as false, never as an error.
	IsAvailable(ctx context.Context) bool

	// Initialize runs detection once and caches the result for Available.
	// Calling it again simply re-runs detection. The built-in providers
	// always return nil; the Manager excludes any provider that errors.
	Initialize(ctx context.Context) error

	// Available returns the cached detection result. False until
	// Initialize has run.
	Available() bool

	// Speak vocalizes text on the host. Text is cleaned before dispatch;
	// it is an error if the provider is unavailable, the cleaned text is
	// empty, or the backend reports failure (nonzero exit, non-2xx).
	Speak(ctx context.Context, text string, opts SpeakOptions) error

	// Voices enumerates the provider's voices. Listing is advisory: any
	// failure yields an empty list, never an error.
	Voices(ctx context.Context) []Voice
}

// Gender classifies a voice.
type Gender string

// Voice genders.
const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderNeutral Gender = "neutral"
)

// ParseGender maps a backend's gender string onto the Gender enum,
// case-insensitively. Unknown values map to the empty Gender.
func ParseGender(s string) Gender {
	switch Gender(strings.ToLower(s)) {
	case GenderMale:
		return GenderMale
	case GenderFemale:
		return GenderFemale
	case GenderNeutral, Gender("neuter"):
		return GenderNeutral
	default:
		return ""
	}
}

// Quality is a voice quality tier.
type Quality string

// Voice quality tiers.
const (
	QualityStandard Quality = "standard"
	QualityEnhanced Quality = "enhanced"
	QualityPremium  Quality = "premium"
)

// Voice describes a voice available from a provider.
type Voice struct {
	// ID is the provider-specific voice identifier.
	ID string `json:"id"`

	// Name is a human-readable voice name.
	Name string `json:"name"`

	// Language is the primary language tag (e.g. "en-US").
	Language string `json:"language"`

	// Gender is the voice gender, when the backend reports one.
	Gender Gender `json:"gender,omitempty"`

	// Quality is the voice quality tier, when the backend reports one.
	Quality Quality `json:"quality,omitempty"`
}

// SpeakOptions tunes a single speak dispatch. Zero values mean the
// provider default; out-of-range values are clamped per provider, never
// rejected.
type SpeakOptions struct {
	// Voice is the provider-specific voice ID.
	Voice string

	// Rate is the speech rate in words per minute. Providers translate
	// it into their own scales (say passes wpm through, sapi maps onto
	// -10..10, termux normalizes against a 175 wpm baseline).
	Rate float64

	// Pitch adjusts the voice pitch on the provider's own scale.
	Pitch float64

	// Volume is the playback volume in 0..1 for providers that support it.
	Volume float64
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
