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
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/AleutianAI/AleutianComply/services/compliance/datatypes"
)

func testRegulation() *datatypes.Regulation {
	return &datatypes.Regulation{
		ID:             "reg-1",
		Filename:       "gdpr.pdf",
		RegulationType: "gdpr",
		Jurisdiction:   "EU",
		UploadedAt:     "2025-06-01T10:00:00Z",
		Status:         datatypes.RegulationStatusProcessed,
		Analysis: &datatypes.RegulationAnalysis{
			RegulationSummary:     "GDPR governs personal data.",
			KeyRequirements:       []datatypes.KeyRequirement{{ID: "R1", Description: "Lawful basis for processing"}},
			ComplianceObligations: []string{"Maintain processing records"},
			RecommendedActions:    []string{"Appoint a DPO"},
			DetectedFramework:     "gdpr",
			DocumentOverview:      "EU data protection law",
		},
	}
}

func testChecks() []*datatypes.ComplianceCheck {
	return []*datatypes.ComplianceCheck{{
		ID:           "chk-1",
		RegulationID: "reg-1",
		CreatedAt:    "2025-06-02T10:00:00Z",
		Result: &datatypes.CheckResult{
			OverallStatus:   datatypes.StatusPartiallyCompliant,
			ComplianceScore: 72,
			Gaps: []datatypes.Gap{{
				GapID:          "DSR-1",
				Requirement:    "Data Subject Rights",
				GapDescription: "No deletion workflow",
				ImpactLevel:    "high",
			}},
			Recommendations: []string{"Build deletion workflow"},
			DetailedAnalysis: map[string]any{
				"detected_framework": "gdpr",
				"sections": []any{
					map[string]any{
						"name": "Data Subject Rights", "status": "non_compliant", "score": 40.0,
						"gaps": []any{
							map[string]any{"recommendations": []any{"Build deletion workflow", "Define SLA"}},
						},
					},
				},
			},
		},
	}}
}

func TestGeneratePDF(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, nil)
	g.now = func() time.Time { return time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC) }

	path, err := g.Generate(context.Background(), testRegulation(), testChecks(), datatypes.ReportFormatPDF, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report_reg-1_20250603_120000.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"), "output should be a PDF")
	assert.NotEmpty(t, data)
}

func TestGenerateXLSX(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, nil)

	path, err := g.Generate(context.Background(), testRegulation(), testChecks(), datatypes.ReportFormatXLSX, true)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".xlsx"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Regulation", "Checks", "Gaps"}, f.GetSheetList())

	id, err := f.GetCellValue("Regulation", "B2")
	require.NoError(t, err)
	assert.Equal(t, "reg-1", id)

	checkID, err := f.GetCellValue("Checks", "A2")
	require.NoError(t, err)
	assert.Equal(t, "chk-1", checkID)

	gapReq, err := f.GetCellValue("Gaps", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Data Subject Rights", gapReq)
}

func TestGenerateUnsupportedFormat(t *testing.T) {
	g := NewGenerator(t.TempDir(), nil)

	_, err := g.Generate(context.Background(), testRegulation(), nil, "csv", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestGenerateNoChecks(t *testing.T) {
	g := NewGenerator(t.TempDir(), nil)

	path, err := g.Generate(context.Background(), testRegulation(), nil, datatypes.ReportFormatPDF, true)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestCollectRecommendationsDeduplicates(t *testing.T) {
	reg := testRegulation()
	checks := testChecks()

	recs := collectRecommendations(reg, checks)

	counts := map[string]int{}
	for _, r := range recs {
		counts[r]++
	}
	for r, n := range counts {
		assert.Equal(t, 1, n, "recommendation %q duplicated", r)
	}
	// Gathered from check result, detailed analysis, and regulation analysis.
	assert.Contains(t, recs, "Build deletion workflow")
	assert.Contains(t, recs, "Define SLA")
	assert.Contains(t, recs, "Appoint a DPO")
}
