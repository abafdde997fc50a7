// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extract pulls plain text out of uploaded regulation documents.
// Supported formats are plain text, PDF, and DOCX. Scanned PDFs with no
// text layer come back empty rather than erroring; callers decide whether
// an empty extraction is fatal.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	ledongpdf "github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for file extensions the extractor does
// not handle.
var ErrUnsupportedFormat = fmt.Errorf("unsupported document format")

// SupportedExtensions lists the file extensions Text accepts, lowercase
// with the leading dot.
var SupportedExtensions = []string{".txt", ".pdf", ".docx"}

// IsSupported reports whether the filename's extension is extractable.
func IsSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Text extracts the plain text of a document.
//
// Description:
//
//	Dispatches on the filename extension. Plain text files are validated
//	as UTF-8; PDF text layers are concatenated page by page; DOCX files
//	are unzipped and the paragraph text of word/document.xml is joined
//	with newlines. The result is whitespace-trimmed.
//
// Inputs:
//   - filename: original upload name, used only for its extension.
//   - data: full document bytes.
//
// Outputs:
//   - string: extracted text, possibly empty for image-only PDFs.
//   - error: ErrUnsupportedFormat for unknown extensions, or a parse error.
func Text(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return textFromPlain(data)
	case ".pdf":
		return textFromPDF(data)
	case ".docx":
		return textFromDOCX(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

func textFromPlain(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("text file is not valid UTF-8")
	}
	return strings.TrimSpace(string(data)), nil
}

func textFromPDF(data []byte) (string, error) {
	reader, err := ledongpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parsing PDF: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages with broken content streams are skipped, the rest of
			// the document is still usable.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

// docx word/document.xml elements we care about. Paragraphs become
// newlines, text runs are concatenated, explicit breaks and tabs map to
// their plain-text equivalents.
func textFromDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening DOCX archive: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("DOCX archive has no word/document.xml")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("opening document.xml: %w", err)
	}
	defer rc.Close()

	text, err := textFromDocumentXML(rc)
	if err != nil {
		return "", fmt.Errorf("parsing document.xml: %w", err)
	}
	return text, nil
}

func textFromDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var sb strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "br":
				sb.WriteString("\n")
			case "tab":
				sb.WriteString("\t")
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(el)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
