// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report renders compliance reports to PDF and XLSX files on disk.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/AleutianAI/AleutianComply/services/compliance/datatypes"
)

// ErrUnsupportedFormat is returned for report formats other than pdf and
// xlsx.
var ErrUnsupportedFormat = fmt.Errorf("unsupported report format")

// Generator writes report files into a target directory.
//
// Thread Safety: Safe for concurrent use; each call writes a distinct
// timestamped file.
type Generator struct {
	dir    string
	logger *slog.Logger

	// now is replaceable in tests for deterministic filenames.
	now func() time.Time
}

// NewGenerator creates a Generator writing into dir (default "reports").
func NewGenerator(dir string, logger *slog.Logger) *Generator {
	if dir == "" {
		dir = "reports"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{dir: dir, logger: logger, now: time.Now}
}

// Generate renders a report for a regulation and its compliance checks.
//
// Description:
//
//	Writes report_{regulation_id}_{timestamp}.{ext} into the generator's
//	directory, creating it if needed. Format must be "pdf" or "xlsx".
//	includeRecommendations only affects the PDF rendering; the XLSX
//	workbook always carries its three fixed sheets.
//
// Outputs:
//   - string: path of the written file.
//   - error: ErrUnsupportedFormat, or a filesystem/rendering error.
func (g *Generator) Generate(ctx context.Context, reg *datatypes.Regulation, checks []*datatypes.ComplianceCheck, format string, includeRecommendations bool) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if reg == nil {
		return "", fmt.Errorf("regulation is required")
	}

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	ts := g.now().UTC().Format("20060102_150405")
	base := fmt.Sprintf("report_%s_%s", reg.ID, ts)

	var path string
	var err error
	switch format {
	case datatypes.ReportFormatPDF:
		path = filepath.Join(g.dir, base+".pdf")
		err = buildPDF(path, reg, checks, includeRecommendations)
	case datatypes.ReportFormatXLSX:
		path = filepath.Join(g.dir, base+".xlsx")
		err = buildXLSX(path, reg, checks)
	default:
		return "", fmt.Errorf("%w: %q (want pdf or xlsx)", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return "", fmt.Errorf("rendering %s report: %w", format, err)
	}

	g.logger.Info("report generated",
		slog.String("regulation_id", reg.ID),
		slog.String("format", format),
		slog.String("path", path),
	)
	return path, nil
}

// collectRecommendations gathers recommendations from every check result,
// its detailed analysis, and the regulation analysis, deduplicated in
// encounter order.
func collectRecommendations(reg *datatypes.Regulation, checks []*datatypes.ComplianceCheck) []string {
	seen := map[string]bool{}
	var out []string
	add := func(r string) {
		if r != "" && !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}

	for _, chk := range checks {
		if chk.Result == nil {
			continue
		}
		for _, r := range chk.Result.Recommendations {
			add(r)
		}
		for _, r := range detailedStrings(chk.Result.DetailedAnalysis, "top_recommendations") {
			add(r)
		}
		for _, sec := range detailedSections(chk.Result.DetailedAnalysis) {
			for _, gap := range sec.gaps {
				for _, r := range gap.recommendations {
					add(r)
				}
			}
		}
	}
	if reg.Analysis != nil {
		for _, r := range reg.Analysis.RecommendedActions {
			add(r)
		}
	}
	return out
}

// detailedSection is a loosely-typed view of one section in a check's
// detailed analysis map.
type detailedSection struct {
	name   string
	status string
	score  float64
	gaps   []detailedGap
}

type detailedGap struct {
	recommendations []string
}

func detailedSections(detailed map[string]any) []detailedSection {
	raw, ok := detailed["sections"].([]any)
	if !ok {
		return nil
	}
	var out []detailedSection
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		sec := detailedSection{
			name:   stringAt(m, "name"),
			status: stringAt(m, "status"),
		}
		if f, ok := m["score"].(float64); ok {
			sec.score = f
		}
		if gaps, ok := m["gaps"].([]any); ok {
			for _, g := range gaps {
				gm, ok := g.(map[string]any)
				if !ok {
					continue
				}
				sec.gaps = append(sec.gaps, detailedGap{
					recommendations: anyStrings(gm["recommendations"]),
				})
			}
		}
		out = append(out, sec)
	}
	return out
}

func detailedStrings(detailed map[string]any, key string) []string {
	return anyStrings(detailed[key])
}

func anyStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringAt(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
