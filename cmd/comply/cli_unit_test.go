// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// These are unit tests that don't require a running server.
// Run with: go test -v ./cmd/comply/...

package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianComply/services/compliance"
)

func TestBaseURL_Resolution(t *testing.T) {
	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{"default", "", "", "http://localhost:8000"},
		{"env wins over default", "", "http://comply.internal:9000", "http://comply.internal:9000"},
		{"flag wins over env", "http://flagged:1234", "http://comply.internal:9000", "http://flagged:1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := apiFlag
			defer func() { apiFlag = old }()
			apiFlag = tt.flag
			t.Setenv("ALEUTIAN_COMPLY_URL", tt.env)

			if got := baseURL(); got != tt.want {
				t.Errorf("baseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHostnameOf(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://gdpr-info.eu/art-5-gdpr/", "gdpr-info.eu"},
		{"http://localhost:8080/page", "localhost:8080"},
		{"not a url", "not a url"},
	}
	for _, tt := range tests {
		if got := hostnameOf(tt.raw); got != tt.want {
			t.Errorf("hostnameOf(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestFilenameFromDisposition(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"normal", `attachment; filename="report_abc_20250101_120000.pdf"`, "report_abc_20250101_120000.pdf"},
		{"path stripped", `attachment; filename="../../etc/passwd"`, "passwd"},
		{"missing filename", "attachment", ""},
		{"empty header", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filenameFromDisposition(tt.header); got != tt.want {
				t.Errorf("filenameFromDisposition(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestDecodeAPIError_StructuredBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "regulation not found", "code": "REGULATION_NOT_FOUND"}`))
	}))
	defer srv.Close()

	old := apiFlag
	defer func() { apiFlag = old }()
	apiFlag = srv.URL

	var out compliance.ListRegulationsResponse
	err := getJSON("/regulations/nope", &out)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	for _, want := range []string{"404", "REGULATION_NOT_FOUND", "regulation not found"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestDownloadReport_WritesFile(t *testing.T) {
	const content = "%PDF-1.4 fake report body"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/compliance/reports/rpt-1/download" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="report_reg1_20250101_120000.pdf"`)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte(content))
	}))
	defer srv.Close()

	old := apiFlag
	defer func() { apiFlag = old }()
	apiFlag = srv.URL

	dest := filepath.Join(t.TempDir(), "out.pdf")
	if err := downloadReport("rpt-1", dest); err != nil {
		t.Fatalf("downloadReport failed: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(got) != content {
		t.Errorf("downloaded content = %q, want %q", got, content)
	}
}
