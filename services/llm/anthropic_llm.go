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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	anthropicAPIVersion     = "2023-06-01"
	anthropicDefaultBaseURL = "https://api.anthropic.com/v1/messages"

	// anthropicDefaultMaxTokens bounds responses when the caller does not
	// set MaxTokens. The Anthropic API requires max_tokens on every request.
	anthropicDefaultMaxTokens = 4096
)

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`

	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	StopSeqs    []string `json:"stop_sequences,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string             `json:"id"`
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnthropicClient implements Client for Anthropic Claude models.
//
// Description:
//
//	Uses the Anthropic Messages API. Kept as the alternate cloud provider
//	for deployments that cannot use Gemini. JSON-structured analyzer output
//	relies on prompt discipline since the Messages API has no response
//	MIME type parameter.
//
// Thread Safety: AnthropicClient is safe for concurrent use.
type AnthropicClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string

	// secrets, when set, resolves the API key per request so rotated
	// keys are picked up without restarting. apiKey is the static
	// fallback used by NewAnthropicClientWithConfig.
	secrets SecretBackend
}

// anthropicAPIKeyEnv is the environment variable holding the Anthropic API key.
const anthropicAPIKeyEnv = "ANTHROPIC_API_KEY"

// NewAnthropicClientWithConfig creates an AnthropicClient with explicit configuration.
//
// Inputs:
//   - apiKey: The Anthropic API key.
//   - model: The model name.
//   - baseURL: The full messages endpoint URL.
//
// Outputs:
//   - *AnthropicClient: The configured client.
func NewAnthropicClientWithConfig(apiKey, model, baseURL string) *AnthropicClient {
	return &AnthropicClient{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
	}
}

// NewAnthropicClient creates a new AnthropicClient from environment variables.
//
// Description:
//
//	Resolves ANTHROPIC_API_KEY through a TTL-cached env secret backend
//	and reads CLAUDE_MODEL from the environment. Defaults to
//	"claude-sonnet-4-20250514" if CLAUDE_MODEL is not set.
//
// Outputs:
//   - *AnthropicClient: The configured client.
//   - error: Non-nil if ANTHROPIC_API_KEY is missing.
func NewAnthropicClient() (*AnthropicClient, error) {
	return NewAnthropicClientWithSecrets(NewEnvBackend(DefaultSecretTTL))
}

// NewAnthropicClientWithSecrets creates an AnthropicClient that resolves
// its API key through the given secret backend on every request.
//
// Inputs:
//   - secrets: Source of the ANTHROPIC_API_KEY credential. Must not be nil.
//
// Outputs:
//   - *AnthropicClient: The configured client.
//   - error: Non-nil if the API key cannot be resolved.
func NewAnthropicClientWithSecrets(secrets SecretBackend) (*AnthropicClient, error) {
	if _, err := secrets.GetSecret(context.Background(), anthropicAPIKeyEnv); err != nil {
		return nil, fmt.Errorf("anthropic: API key is missing (%s): %w", anthropicAPIKeyEnv, err)
	}

	model := os.Getenv("CLAUDE_MODEL")
	if model == "" {
		model = "claude-sonnet-4-20250514"
		slog.Info("CLAUDE_MODEL not set, defaulting to claude-sonnet-4-20250514")
	}

	slog.Info("Initializing Anthropic client", slog.String("model", model))

	return &AnthropicClient{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		secrets:    secrets,
		model:      model,
		baseURL:    anthropicDefaultBaseURL,
	}, nil
}

// resolveAPIKey returns the current API key, consulting the secret
// backend when one is configured.
func (a *AnthropicClient) resolveAPIKey(ctx context.Context) (string, error) {
	if a.secrets == nil {
		return a.apiKey, nil
	}
	key, err := a.secrets.GetSecret(ctx, anthropicAPIKeyEnv)
	if err != nil {
		return "", fmt.Errorf("anthropic: resolving API key: %w", err)
	}
	return key, nil
}

// Provider implements Client.Provider.
func (a *AnthropicClient) Provider() string { return ProviderAnthropic }

// Generate implements Client.Generate using the Anthropic Messages API.
func (a *AnthropicClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	messages := []Message{
		{Role: "user", Content: prompt},
	}
	return a.Chat(ctx, messages, params)
}

// Chat implements Client.Chat using the Anthropic Messages API.
func (a *AnthropicClient) Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error) {
	model := a.model
	if params.ModelOverride != "" {
		model = params.ModelOverride
	}

	maxTokens := anthropicDefaultMaxTokens
	if params.MaxTokens != nil {
		maxTokens = *params.MaxTokens
	}

	req := anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		StopSeqs:    params.Stop,
	}

	// The Messages API takes the system prompt as a top-level field, not
	// as a conversation turn.
	for _, msg := range messages {
		switch strings.ToLower(msg.Role) {
		case "system":
			req.System = msg.Content
		case "assistant":
			req.Messages = append(req.Messages, anthropicMessage{Role: "assistant", Content: msg.Content})
		default:
			req.Messages = append(req.Messages, anthropicMessage{Role: "user", Content: msg.Content})
		}
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("anthropic: marshaling request: %w", err)
	}

	apiKey, err := a.resolveAPIKey(ctx)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.baseURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("anthropic: creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	slog.Debug("Sending request to Anthropic",
		slog.String("model", model),
		slog.Int("message_count", len(req.Messages)),
	)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("anthropic: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("anthropic: reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic: API returned status %d: %s", resp.StatusCode, SafeLogString(string(bodyBytes)))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("anthropic: parsing response JSON: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("anthropic: API error %s: %s",
			apiResp.Error.Type, SafeLogString(apiResp.Error.Message))
	}

	var textParts []string
	for _, block := range apiResp.Content {
		if block.Type == "text" && block.Text != "" {
			textParts = append(textParts, block.Text)
		}
	}

	result := strings.Join(textParts, "")
	if result == "" {
		return "", fmt.Errorf("anthropic: returned empty text content")
	}

	slog.Debug("Received Anthropic response",
		slog.String("model", model),
		slog.Int("response_len", len(result)),
	)

	return result, nil
}
