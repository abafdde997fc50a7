// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/AleutianAI/AleutianComply/services/compliance/datatypes"
)

const (
	pdfMarginMM   = 20
	pdfLineMM     = 5.5
	pdfMaxLineLen = 110
)

// pdfWriter wraps fpdf with the line-oriented layout the report uses.
type pdfWriter struct {
	pdf *fpdf.Fpdf
}

func newPDFWriter() *pdfWriter {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMarginMM, pdfMarginMM, pdfMarginMM)
	pdf.SetAutoPageBreak(true, pdfMarginMM)
	pdf.AddPage()
	return &pdfWriter{pdf: pdf}
}

func (w *pdfWriter) heading(text string, size float64) {
	w.pdf.SetFont("Helvetica", "B", size)
	w.line(text)
	w.pdf.SetFont("Helvetica", "", 10)
}

func (w *pdfWriter) line(text string) {
	if len(text) > pdfMaxLineLen {
		text = text[:pdfMaxLineLen]
	}
	w.pdf.CellFormat(0, pdfLineMM, text, "", 1, "L", false, 0, "")
}

func (w *pdfWriter) blank() {
	w.pdf.Ln(pdfLineMM)
}

// scoreBar draws an outlined horizontal bar filled proportionally to
// score (0-100).
func (w *pdfWriter) scoreBar(score float64) {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	pageW, _ := w.pdf.GetPageSize()
	barX := float64(pdfMarginMM)
	barY := w.pdf.GetY()
	barW := pageW - 2*pdfMarginMM
	barH := 4.0

	w.pdf.Rect(barX, barY, barW, barH, "D")
	w.pdf.SetFillColor(51, 51, 51)
	w.pdf.Rect(barX, barY, score/100*barW, barH, "F")
	w.pdf.SetY(barY + barH + 3)
}

func buildPDF(path string, reg *datatypes.Regulation, checks []*datatypes.ComplianceCheck, includeRecommendations bool) error {
	w := newPDFWriter()

	w.heading("Compliance Report", 16)
	w.line(fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	w.blank()

	w.heading("Regulation", 12)
	w.line(fmt.Sprintf("ID: %s", reg.ID))
	w.line(fmt.Sprintf("Filename: %s", reg.Filename))
	w.line(fmt.Sprintf("Type: %s | Jurisdiction: %s", reg.RegulationType, reg.Jurisdiction))
	w.blank()

	w.heading("Executive Summary", 12)
	summary := "N/A"
	if reg.Analysis != nil && reg.Analysis.RegulationSummary != "" {
		summary = reg.Analysis.RegulationSummary
	}
	for _, para := range strings.Split(summary, "\n") {
		w.line(para)
	}
	w.blank()

	writePDFOverview(w, reg)
	bestScore, lastDetailed := writePDFChecks(w, checks)

	if bestScore >= 0 {
		w.heading("Compliance Score (Best)", 12)
		w.scoreBar(bestScore)
		w.line(fmt.Sprintf("Score: %d / 100", int(bestScore)))
		w.blank()
	}

	writePDFSections(w, lastDetailed)

	if includeRecommendations {
		w.heading("Recommendations", 12)
		recs := collectRecommendations(reg, checks)
		if len(recs) == 0 {
			w.line("No specific recommendations available at this time.")
		}
		for i, r := range recs {
			if i >= 20 {
				break
			}
			w.line("- " + r)
		}
	}

	writePDFTailored(w, lastDetailed)

	return w.pdf.OutputFileAndClose(path)
}

func writePDFOverview(w *pdfWriter, reg *datatypes.Regulation) {
	w.heading("Document Overview", 12)
	if reg.Analysis == nil {
		w.line("No analysis available.")
		w.blank()
		return
	}

	if reg.Analysis.DocumentOverview != "" {
		w.line("Overview: " + reg.Analysis.DocumentOverview)
	}
	if reg.Analysis.DetectedFramework != "" {
		w.line("Detected Framework: " + reg.Analysis.DetectedFramework)
	}
	if len(reg.Analysis.KeyRequirements) > 0 {
		w.line("Key Requirements:")
		for i, kr := range reg.Analysis.KeyRequirements {
			if i >= 8 {
				break
			}
			w.line("- " + kr.Description)
		}
	}
	if len(reg.Analysis.ComplianceObligations) > 0 {
		w.line("Primary Obligations:")
		for i, ob := range reg.Analysis.ComplianceObligations {
			if i >= 6 {
				break
			}
			w.line("- " + ob)
		}
	}
	w.blank()
}

// writePDFChecks lists each check with its gaps and returns the best
// score seen (-1 when none) plus the last detailed analysis encountered.
func writePDFChecks(w *pdfWriter, checks []*datatypes.ComplianceCheck) (float64, map[string]any) {
	w.heading("Compliance Checks", 12)

	bestScore := -1.0
	var lastDetailed map[string]any
	for _, chk := range checks {
		if chk.Result == nil {
			w.line(fmt.Sprintf("Check: %s | Score: N/A", chk.ID))
			continue
		}
		w.line(fmt.Sprintf("Check: %s | Score: %.0f", chk.ID, chk.Result.ComplianceScore))
		w.line(fmt.Sprintf("Status: %s", chk.Result.OverallStatus))
		if chk.Result.ComplianceScore > bestScore {
			bestScore = chk.Result.ComplianceScore
		}
		if len(chk.Result.DetailedAnalysis) > 0 {
			lastDetailed = chk.Result.DetailedAnalysis
		}
		if len(chk.Result.Gaps) > 0 {
			w.line("Gaps:")
			for i, g := range chk.Result.Gaps {
				if i >= 10 {
					break
				}
				w.line(fmt.Sprintf("- %s: %s", g.Requirement, g.GapDescription))
			}
		}
	}
	w.blank()
	return bestScore, lastDetailed
}

func writePDFSections(w *pdfWriter, detailed map[string]any) {
	if detailed == nil {
		return
	}

	if framework := stringAt(detailed, "detected_framework"); framework != "" {
		w.heading("Detected Framework: "+framework, 12)
		w.blank()
	}

	sections := detailedSections(detailed)
	if len(sections) == 0 {
		return
	}
	w.heading("Sections Overview", 12)
	for i, s := range sections {
		if i >= 12 {
			break
		}
		w.line(fmt.Sprintf("- %s | Status: %s | Score: %.0f", s.name, s.status, s.score))
	}
	w.blank()
}

// writePDFTailored prints per-gap suggestions pulled from the detailed
// analysis, capped to keep the section scannable.
func writePDFTailored(w *pdfWriter, detailed map[string]any) {
	if detailed == nil {
		return
	}

	seen := map[string]bool{}
	var suggestions []string
	for i, s := range detailedSections(detailed) {
		if i >= 10 {
			break
		}
		for gi, g := range s.gaps {
			if gi >= 3 {
				break
			}
			for ri, r := range g.recommendations {
				if ri >= 2 {
					break
				}
				if r != "" && !seen[r] {
					seen[r] = true
					suggestions = append(suggestions, r)
				}
			}
		}
	}
	if len(suggestions) == 0 {
		return
	}

	w.blank()
	w.heading("Tailored Suggestions (From this Document)", 12)
	for i, r := range suggestions {
		if i >= 15 {
			break
		}
		w.line("- " + r)
	}
}
