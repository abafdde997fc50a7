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
	"strings"
	"testing"
	"time"
)

func TestNewGeminiClient_MissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := NewGeminiClient()
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestNewGeminiClient_DefaultModel(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_MODEL", "")

	client, err := NewGeminiClient()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.model != "gemini-1.5-pro" {
		t.Errorf("model = %q, want %q", client.model, "gemini-1.5-pro")
	}
}

func TestNewGeminiClient_CustomModel(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_MODEL", "gemini-2.0-flash")

	client, err := NewGeminiClient()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.model != "gemini-2.0-flash" {
		t.Errorf("model = %q, want %q", client.model, "gemini-2.0-flash")
	}
}

func TestGeminiClient_SecretBackend_RotatedKey(t *testing.T) {
	var seenKeys []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenKeys = append(seenKeys, r.Header.Get("x-goog-api-key"))
		resp := geminiResponse{
			Candidates: []geminiCandidate{
				{Content: geminiContent{Role: "model", Parts: []geminiPart{{Text: "ok"}}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	t.Setenv("GEMINI_API_KEY", "key-before-rotation")

	// TTL zero means every request re-reads the environment, so a
	// rotated key is picked up without rebuilding the client.
	client := &GeminiClient{
		httpClient: server.Client(),
		secrets:    NewEnvBackend(0),
		model:      "gemini-1.5-pro",
		baseURL:    server.URL,
	}

	if _, err := client.Generate(context.Background(), "hi", GenerationParams{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Setenv("GEMINI_API_KEY", "key-after-rotation")
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

func TestGeminiClient_SecretBackend_CachedWithinTTL(t *testing.T) {
	var seenKeys []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenKeys = append(seenKeys, r.Header.Get("x-goog-api-key"))
		resp := geminiResponse{
			Candidates: []geminiCandidate{
				{Content: geminiContent{Role: "model", Parts: []geminiPart{{Text: "ok"}}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	t.Setenv("GEMINI_API_KEY", "cached-key")

	client := &GeminiClient{
		httpClient: server.Client(),
		secrets:    NewEnvBackend(time.Minute),
		model:      "gemini-1.5-pro",
		baseURL:    server.URL,
	}

	if _, err := client.Generate(context.Background(), "hi", GenerationParams{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Within the TTL the backend serves the cached value even though
	// the environment has changed underneath it.
	t.Setenv("GEMINI_API_KEY", "changed-too-soon")
	if _, err := client.Generate(context.Background(), "hi", GenerationParams{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seenKeys) != 2 {
		t.Fatalf("server saw %d requests, want 2", len(seenKeys))
	}
	for i, key := range seenKeys {
		if key != "cached-key" {
			t.Errorf("request %d sent key %q, want cached %q", i, key, "cached-key")
		}
	}
}

func TestGeminiClient_Chat_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if len(req.Contents) == 0 {
			t.Error("expected at least one content block")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		resp := geminiResponse{
			Candidates: []geminiCandidate{
				{
					Content: geminiContent{
						Role: "model",
						Parts: []geminiPart{
							{Text: `{"regulation_summary":"ok"}`},
						},
					},
					FinishReason: "STOP",
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := &GeminiClient{
		httpClient: server.Client(),
		apiKey:     "test-key",
		model:      "gemini-1.5-pro",
		baseURL:    server.URL,
	}

	messages := []Message{
		{Role: "user", Content: "Summarize this regulation"},
	}

	result, err := client.Chat(context.Background(), messages, GenerationParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != `{"regulation_summary":"ok"}` {
		t.Errorf("result = %q, want the mock JSON body", result)
	}
}

func TestGeminiClient_Chat_ResponseMIMEType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if req.GenerationConfig == nil || req.GenerationConfig.ResponseMIMEType != "application/json" {
			t.Error("expected responseMimeType application/json in generation config")
		}

		resp := geminiResponse{
			Candidates: []geminiCandidate{
				{Content: geminiContent{Role: "model", Parts: []geminiPart{{Text: "{}"}}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := &GeminiClient{
		httpClient: server.Client(),
		apiKey:     "test-key",
		model:      "gemini-1.5-pro",
		baseURL:    server.URL,
	}

	_, err := client.Generate(context.Background(), "strict JSON please",
		GenerationParams{ResponseMIMEType: "application/json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGeminiClient_Chat_SystemPromptBecomesSystemInstruction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if req.SystemInstruction == nil {
			t.Error("expected systemInstruction to be set")
		} else if len(req.SystemInstruction.Parts) == 0 || req.SystemInstruction.Parts[0].Text != "You are an AI Compliance Officer." {
			t.Errorf("systemInstruction = %+v, want the system prompt", req.SystemInstruction)
		}

		// The system turn must not appear in contents.
		for _, content := range req.Contents {
			for _, part := range content.Parts {
				if strings.Contains(part.Text, "Compliance Officer") {
					t.Error("system prompt leaked into contents")
				}
			}
		}

		resp := geminiResponse{
			Candidates: []geminiCandidate{
				{Content: geminiContent{Role: "model", Parts: []geminiPart{{Text: "ok"}}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := &GeminiClient{
		httpClient: server.Client(),
		apiKey:     "test-key",
		model:      "gemini-1.5-pro",
		baseURL:    server.URL,
	}

	messages := []Message{
		{Role: "system", Content: "You are an AI Compliance Officer."},
		{Role: "user", Content: "Hello"},
	}

	if _, err := client.Chat(context.Background(), messages, GenerationParams{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGeminiClient_Chat_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"},
		})
	}))
	defer server.Close()

	client := &GeminiClient{
		httpClient: server.Client(),
		apiKey:     "test-key",
		model:      "gemini-1.5-pro",
		baseURL:    server.URL,
	}

	_, err := client.Generate(context.Background(), "hi", GenerationParams{})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error = %v, want status code in message", err)
	}
}

func TestGeminiClient_Chat_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(geminiResponse{})
	}))
	defer server.Close()

	client := &GeminiClient{
		httpClient: server.Client(),
		apiKey:     "test-key",
		model:      "gemini-1.5-pro",
		baseURL:    server.URL,
	}

	_, err := client.Generate(context.Background(), "hi", GenerationParams{})
	if err == nil {
		t.Fatal("expected error for empty candidates")
	}
}
