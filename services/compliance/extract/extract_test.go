// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestTextPlain(t *testing.T) {
	got, err := Text("policy.txt", []byte("  Article 5. Data minimisation.  \n"))
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if got != "Article 5. Data minimisation." {
		t.Errorf("Text() = %q, want trimmed content", got)
	}
}

func TestTextPlainInvalidUTF8(t *testing.T) {
	_, err := Text("policy.txt", []byte{0xFF, 0xFE, 0x00})
	if err == nil {
		t.Fatal("Text() expected error for invalid UTF-8")
	}
}

func TestTextUnsupportedFormat(t *testing.T) {
	_, err := Text("slides.pptx", []byte("anything"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Text() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestTextPDFInvalid(t *testing.T) {
	_, err := Text("broken.pdf", []byte("not a pdf at all"))
	if err == nil {
		t.Fatal("Text() expected error for malformed PDF")
	}
}

func TestTextDOCX(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Section 1. Scope</w:t></w:r></w:p>
    <w:p><w:r><w:t>Controllers shall</w:t></w:r><w:r><w:t xml:space="preserve"> maintain records.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Line one</w:t><w:br/><w:t>line two</w:t></w:r></w:p>
  </w:body>
</w:document>`

	got, err := Text("regulation.docx", buildDOCX(t, docXML))
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}

	want := []string{
		"Section 1. Scope",
		"Controllers shall maintain records.",
		"Line one\nline two",
	}
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Errorf("extracted text missing %q; got:\n%s", w, got)
		}
	}
}

func TestTextDOCXMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/other.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("<x/>")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	_, err = Text("empty.docx", buf.Bytes())
	if err == nil {
		t.Fatal("Text() expected error for DOCX without document.xml")
	}
}

func TestIsSupported(t *testing.T) {
	cases := map[string]bool{
		"a.txt":       true,
		"a.PDF":       true,
		"a.docx":      true,
		"a.doc":       false,
		"a.md":        false,
		"noextension": false,
	}
	for name, want := range cases {
		if got := IsSupported(name); got != want {
			t.Errorf("IsSupported(%q) = %v, want %v", name, got, want)
		}
	}
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
