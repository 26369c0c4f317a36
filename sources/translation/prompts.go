package translation

import (
	"encoding/json"
	"fmt"
	"strings"
)

const translateSystemPrompt = `You are a translation engine for a chat application.
Translate the user message into the requested target language, keeping the register of casual conversation.
Respond with a single JSON object: {"translated_text": string, "detected_source_language": string, "confidence": number, "cultural_notes": [string]}.
Cultural notes are short remarks about idioms or references a reader from another culture would miss; omit the array when there are none.`

const detectSystemPrompt = `You are a language identification engine.
Respond with a single JSON object: {"language": string, "confidence": number} where language is an ISO 639-1 code.`

func translateUserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target language: %s\n", req.TargetLanguage)
	if req.SourceLanguageHint != "" {
		fmt.Fprintf(&b, "Source language hint: %s\n", req.SourceLanguageHint)
	}
	if req.Formality != "" {
		fmt.Fprintf(&b, "Formality: %s\n", req.Formality)
	}
	if len(req.ContextHints) > 0 {
		fmt.Fprintf(&b, "Conversation context:\n%s\n", strings.Join(req.ContextHints, "\n"))
	}
	fmt.Fprintf(&b, "Message:\n%s", req.Text)
	return b.String()
}

type translatePayload struct {
	TranslatedText         string   `json:"translated_text"`
	DetectedSourceLanguage string   `json:"detected_source_language"`
	Confidence             *float64 `json:"confidence"`
	CulturalNotes          []string `json:"cultural_notes"`
}

type detectPayload struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

func parseTranslateResponse(content string) (*Result, error) {
	var payload translatePayload
	if err := json.Unmarshal([]byte(extractJSON(content)), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload.TranslatedText == "" {
		return nil, fmt.Errorf("%w: empty translated_text", ErrMalformedResponse)
	}
	return &Result{
		TranslatedText:         payload.TranslatedText,
		DetectedSourceLanguage: payload.DetectedSourceLanguage,
		Confidence:             payload.Confidence,
		CulturalNotes:          payload.CulturalNotes,
	}, nil
}

func parseDetectResponse(content string) (string, float64, error) {
	var payload detectPayload
	if err := json.Unmarshal([]byte(extractJSON(content)), &payload); err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload.Language == "" {
		return "", 0, fmt.Errorf("%w: empty language", ErrMalformedResponse)
	}
	return payload.Language, payload.Confidence, nil
}

// extractJSON tolerates models that wrap the object in a code fence.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}
