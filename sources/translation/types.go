package translation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"babelgram/sources/platform"
	"babelgram/sources/tracing"
)

var (
	// ErrTranslationFailed marks a per-message provider failure. Inside a
	// batch it is isolated to its message and never aborts the batch.
	ErrTranslationFailed = errors.New("translation failed")

	// ErrMalformedResponse marks a provider answer that could not be
	// decoded. Distinguishable from transport failures by design.
	ErrMalformedResponse = errors.New("malformed translation response")

	// ErrUsageLimited is returned when the conversation exhausted its
	// translation budget for the period.
	ErrUsageLimited = errors.New("translation usage limit exceeded")
)

// Request is the narrow contract towards the external translation service.
type Request struct {
	Text               string
	SourceLanguageHint string
	TargetLanguage     string
	Formality          string
	ContextHints       []string
}

// Result is a successful provider answer.
type Result struct {
	TranslatedText         string
	DetectedSourceLanguage string
	Confidence             *float64
	CulturalNotes          []string
}

// Provider is one external translation backend. Both request shapes are
// idempotent; failures must come back as errors, never panics.
type Provider interface {
	Name() string
	Translate(ctx context.Context, log *tracing.Logger, req Request) (*Result, error)
	DetectLanguage(ctx context.Context, text string) (string, float64, error)
}

// ProviderSource yields the provider to use for the next call.
type ProviderSource interface {
	Pick() Provider
}

// Entry is one cached translation result.
type Entry struct {
	MessageID              platform.MessageID `json:"message_id"`
	SourceText             string             `json:"source_text"`
	TargetLanguage         string             `json:"target_language"`
	TranslatedText         string             `json:"translated_text"`
	CulturalNotes          []string           `json:"cultural_notes,omitempty"`
	Confidence             *float64           `json:"confidence,omitempty"`
	DetectedSourceLanguage string             `json:"detected_source_language,omitempty"`
	CreatedAt              time.Time          `json:"created_at"`
	TTL                    time.Duration      `json:"ttl"`
}

// Expired reports whether the entry is past its TTL at the given moment.
// Readers check age at read time rather than relying on eviction sweeps.
func (e Entry) Expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.CreatedAt) > e.TTL
}

func entryKey(targetLanguage string, messageID platform.MessageID) string {
	return fmt.Sprintf("%s:%d", targetLanguage, messageID)
}
