// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/AleutianComply/services/compliance"
)

// Checks and report generation call the model server-side, so the
// client waits well past a normal request timeout.
var httpClient = &http.Client{Timeout: 3 * time.Minute}

// apiPath joins the base URL with a /v1/compliance path suffix.
func apiPath(suffix string) string {
	return fmt.Sprintf("%s/v1/compliance%s", baseURL(), suffix)
}

// decodeAPIError turns a non-2xx response body into a readable error.
func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var apiErr compliance.ErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return fmt.Errorf("server returned %d (%s): %s", resp.StatusCode, apiErr.Code, apiErr.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		slog.Error("failed to close response body", "error", err)
	}
}

// getJSON fetches a JSON document from the server.
func getJSON(suffix string, out any) error {
	resp, err := httpClient.Get(apiPath(suffix))
	if err != nil {
		return fmt.Errorf("server unavailable at %s: %w", baseURL(), err)
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse server response: %w", err)
	}
	return nil
}

// postJSON sends a JSON payload and decodes the JSON reply into out
// (out may be nil when the caller only cares about success).
func postJSON(suffix string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to create request body: %w", err)
	}

	resp, err := httpClient.Post(apiPath(suffix), "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("server unavailable at %s: %w", baseURL(), err)
	}
	defer closeBody(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse server response: %w", err)
	}
	return nil
}

// deleteJSON issues a DELETE and ignores the response body on success.
func deleteJSON(suffix string) error {
	req, err := http.NewRequest(http.MethodDelete, apiPath(suffix), nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("server unavailable at %s: %w", baseURL(), err)
	}
	defer closeBody(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	return nil
}

// decodeJSONBody parses a response body into out.
func decodeJSONBody(r io.Reader, out any) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return fmt.Errorf("failed to parse server response: %w", err)
	}
	return nil
}

// printJSON pretty-prints any value to stdout.
func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
