// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewAnthropicClient_MissingAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := NewAnthropicClient()
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestAnthropicClient_SecretBackend_RotatedKey(t *testing.T) {
	var seenKeys []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenKeys = append(seenKeys, r.Header.Get("x-api-key"))
		resp := anthropicResponse{
			Type:    "message",
			Role:    "assistant",
			Content: []anthropicContent{{Type: "text", Text: "ok"}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	t.Setenv("ANTHROPIC_API_KEY", "key-before-rotation")

	client, err := NewAnthropicClientWithSecrets(NewEnvBackend(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.httpClient = server.Client()
	client.baseURL = server.URL

	if _, err := client.Generate(context.Background(), "hi", GenerationParams{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Setenv("ANTHROPIC_API_KEY", "key-after-rotation")
	if _, err := client.Generate(context.Background(), "hi", GenerationParams{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"key-before-rotation", "key-after-rotation"}
	if len(seenKeys) != len(want) {
		t.Fatalf("server saw %d requests, want %d", len(seenKeys), len(want))
	}
	for i := range want {
		if seenKeys[i] != want[i] {
			t.Errorf("request %d sent key %q, want %q", i, seenKeys[i], want[i])
		}
	}
}

func TestAnthropicClient_Chat_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("anthropic-version"); got != anthropicAPIVersion {
			t.Errorf("anthropic-version = %q, want %q", got, anthropicAPIVersion)
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.MaxTokens == 0 {
			t.Error("expected non-zero max_tokens")
		}
		if req.System != "You are an AI Compliance Officer." {
			t.Errorf("system = %q, want top-level system prompt", req.System)
		}

		resp := anthropicResponse{
			Type: "message",
			Role: "assistant",
			Content: []anthropicContent{
				{Type: "text", Text: "assessment complete"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewAnthropicClientWithConfig("test-key", "claude-sonnet-4-20250514", server.URL)

	messages := []Message{
		{Role: "system", Content: "You are an AI Compliance Officer."},
		{Role: "user", Content: "Assess these policies"},
	}

	result, err := client.Chat(context.Background(), messages, GenerationParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "assessment complete" {
		t.Errorf("result = %q, want %q", result, "assessment complete")
	}
}

func TestAnthropicClient_Chat_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "authentication_error", "message": "invalid x-api-key"},
		})
	}))
	defer server.Close()

	client := NewAnthropicClientWithConfig("bad-key", "claude-sonnet-4-20250514", server.URL)

	_, err := client.Generate(context.Background(), "hi", GenerationParams{})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}
