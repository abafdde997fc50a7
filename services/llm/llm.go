// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides provider-agnostic clients for hosted generative-AI
// models. The compliance analyzer depends only on the Client interface so
// the concrete provider (Gemini, Anthropic) is an environment decision.
//
// Thread Safety: all implementations in this package are safe for
// concurrent use.
package llm

import (
	"context"
	"fmt"
	"os"
)

// Message is a single turn in a conversation sent to a model.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the plain-text content of the turn.
	Content string `json:"content"`
}

// GenerationParams holds provider-agnostic generation options.
//
// Description:
//
//	Pointer fields are omitted from the provider request when nil so the
//	provider default applies. ResponseMIMEType requests structured output
//	where the provider supports it (Gemini honors "application/json";
//	Anthropic ignores it and relies on prompt discipline).
type GenerationParams struct {
	Temperature *float32
	TopP        *float32
	MaxTokens   *int
	Stop        []string

	// ModelOverride selects a model for this request only.
	ModelOverride string

	// ResponseMIMEType constrains the response format where supported.
	ResponseMIMEType string
}

// Client is the minimal interface the compliance analyzer needs from a
// hosted model.
//
// Thread Safety: implementations must be safe for concurrent use.
type Client interface {
	// Generate sends a single-turn prompt and returns the response text.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Chat sends a multi-turn conversation and returns the assistant's
	// response text.
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)

	// Provider returns the provider name ("gemini", "anthropic") for
	// logging and metrics labels.
	Provider() string
}

// Provider names accepted by NewClientFromEnv.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// NewClientFromEnv creates a Client based on the COMPLY_LLM_PROVIDER
// environment variable.
//
// Description:
//
//	Defaults to Gemini when the variable is unset, matching the primary
//	deployment target. Each constructor validates its own API key and
//	returns a descriptive error when the key is missing, so the server can
//	start in degraded mode and report analyzer unavailability on /ready.
//
// Outputs:
//   - Client: The configured provider client.
//   - error: Non-nil if the provider is unknown or its API key is missing.
func NewClientFromEnv() (Client, error) {
	provider := os.Getenv("COMPLY_LLM_PROVIDER")
	if provider == "" {
		provider = ProviderGemini
	}

	switch provider {
	case ProviderGemini:
		return NewGeminiClient()
	case ProviderAnthropic:
		return NewAnthropicClient()
	default:
		return nil, fmt.Errorf("llm: unknown provider %q (want %q or %q)",
			provider, ProviderGemini, ProviderAnthropic)
	}
}
