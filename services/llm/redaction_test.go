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
	"strings"
	"testing"
)

func TestSafeLogString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     string
		contains string
	}{
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "no secrets",
			input: "regulation analysis failed: timeout after 120s",
			want:  "regulation analysis failed: timeout after 120s",
		},
		{
			name:     "gemini key",
			input:    "error calling AIzaSyAbcDefGhiJklMnoPqrStUvWxYz01234567",
			contains: "[REDACTED:gemini_key]",
		},
		{
			name:     "anthropic key",
			input:    "auth failed for sk-ant-REDACTED",
			contains: "[REDACTED:anthropic_key]",
		},
		{
			name:     "bearer token",
			input:    "header was Bearer eyJhbGciOiJIUzI1NiJ9.payload",
			contains: "[REDACTED:bearer_token]",
		},
		{
			name:     "key query parameter",
			input:    "GET /v1beta/models?key=AIzaSyAbcDefGhi1234567890",
			contains: "key=[REDACTED]",
		},
		{
			name:     "password",
			input:    "dsn was host=db password=hunter42 sslmode=off",
			contains: "password=[REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeLogString(tt.input)
			if tt.want != "" || tt.input == "" {
				if got != tt.want {
					t.Errorf("SafeLogString(%q) = %q, want %q", tt.input, got, tt.want)
				}
				return
			}
			if !strings.Contains(got, tt.contains) {
				t.Errorf("SafeLogString(%q) = %q, want it to contain %q", tt.input, got, tt.contains)
			}
			if got == tt.input {
				t.Errorf("SafeLogString(%q) did not redact anything", tt.input)
			}
		})
	}
}
