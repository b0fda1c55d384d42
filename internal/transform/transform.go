// Package transform implements the cache-keyed LLM transformation pipeline
// shared by chapter translation and personalization.
//
// Both features follow the same shape: hash the input, check the cache, build
// a constrained prompt, call the model gateway, validate the output structure,
// write through the cache and return. The pipeline never fails a request
// because of an AI or storage outage; it degrades to the original source with
// an explanatory flag instead.
package transform

import (
	"errors"
	"time"
)

// Kind identifies which transformation a request performs.
type Kind string

const (
	// KindTranslation translates a chapter into a target language.
	KindTranslation Kind = "translation"

	// KindPersonalization adapts a chapter to a learner profile.
	KindPersonalization Kind = "personalization"
)

// Valid reports whether k is a known transformation kind.
func (k Kind) Valid() bool {
	return k == KindTranslation || k == KindPersonalization
}

var (
	// ErrContentTooLarge indicates the source exceeds the prompt builder's
	// size limit. Surfaced to the caller; chunked handling is manual.
	ErrContentTooLarge = errors.New("content too large")

	// ErrUnknownKind indicates an unrecognized transformation kind.
	ErrUnknownKind = errors.New("unknown transformation kind")

	// ErrMissingProfile indicates a personalization request without a profile.
	ErrMissingProfile = errors.New("missing learner profile")

	// ErrMissingLanguage indicates a translation request without a target language.
	ErrMissingLanguage = errors.New("missing target language")
)

// Request describes one transformation. It is ephemeral and never persisted.
type Request struct {
	ContentID string
	Kind      Kind

	// TargetLanguage is required for KindTranslation (lowercase language tag).
	TargetLanguage string

	// Profile is required for KindPersonalization.
	Profile *Profile

	// SourceOverride, when non-empty, replaces the chapter text from the
	// content store. Used to translate an already-personalized variant.
	SourceOverride string
}

// validate checks that the request carries the parameters its kind needs.
func (r Request) validate() error {
	if !r.Kind.Valid() {
		return ErrUnknownKind
	}
	if r.Kind == KindTranslation && r.TargetLanguage == "" {
		return ErrMissingLanguage
	}
	if r.Kind == KindPersonalization && r.Profile == nil {
		return ErrMissingProfile
	}
	return nil
}

// Metadata describes how a result was produced.
type Metadata struct {
	ProcessingTime     time.Duration `json:"-"`
	ProcessingTimeMS   int64         `json:"processing_time_ms"`
	Provider           string        `json:"provider_used,omitempty"`
	FallbackUsed       bool          `json:"fallback_used"`
	FallbackReason     string        `json:"fallback_reason,omitempty"`
	ValidationWarnings []string      `json:"validation_warnings"`
	CacheKey           string        `json:"-"`
	VariantHash        string        `json:"-"`
}

// Result is the outcome of a transformation request.
// Content is never empty when error is nil: on generation failure it carries
// the original source with Metadata.FallbackUsed set.
type Result struct {
	ContentID string
	Kind      Kind
	VariantID string // personalization variant identifier, empty for translation
	Content   string
	Cached    bool
	Metadata  Metadata
}
