// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianComply/services/compliance/datatypes"
	"github.com/AleutianAI/AleutianComply/services/llm"
)

// mockClient returns canned responses and records the last prompt.
type mockClient struct {
	response   string
	err        error
	lastPrompt string
}

func (m *mockClient) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	m.lastPrompt = prompt
	return m.response, m.err
}

func (m *mockClient) Chat(ctx context.Context, messages []llm.Message, params llm.GenerationParams) (string, error) {
	return m.response, m.err
}

func (m *mockClient) Provider() string { return "mock" }

func TestAnalyzeRegulationParsesJSON(t *testing.T) {
	client := &mockClient{response: `{
		"regulation_summary": "GDPR governs personal data processing.",
		"key_requirements": [{"id": "R1", "description": "Lawful basis", "category": "processing", "priority": "high"}],
		"compliance_obligations": ["Maintain records of processing"],
		"risk_assessment": {"overall_risk": "high"},
		"affected_departments": ["Legal"],
		"recommended_actions": ["Appoint a DPO"],
		"detected_framework": "gdpr",
		"document_overview": "EU data protection law"
	}`}

	a := New(client, nil)
	analysis, err := a.AnalyzeRegulation(context.Background(), "regulation text", "gdpr", "EU")
	require.NoError(t, err)
	assert.Equal(t, "GDPR governs personal data processing.", analysis.RegulationSummary)
	require.Len(t, analysis.KeyRequirements, 1)
	assert.Equal(t, "high", analysis.KeyRequirements[0].Priority)
	assert.Equal(t, "high", analysis.RiskAssessment.OverallRisk)
	assert.Equal(t, "gdpr", analysis.DetectedFramework)
}

func TestAnalyzeRegulationFallbackOnParseError(t *testing.T) {
	client := &mockClient{response: "I could not produce JSON, sorry."}

	a := New(client, nil)
	analysis, err := a.AnalyzeRegulation(context.Background(), "text", "hipaa", "US")
	require.NoError(t, err)
	assert.Contains(t, analysis.RegulationSummary, "could not produce JSON")
	assert.Equal(t, "medium", analysis.RiskAssessment.OverallRisk)
	assert.Equal(t, "hipaa", analysis.DetectedFramework)
	assert.Contains(t, analysis.DocumentOverview, "hipaa")
}

func TestAnalyzeRegulationFallbackOnAPIError(t *testing.T) {
	client := &mockClient{err: errors.New("api unavailable")}

	a := New(client, nil)
	analysis, err := a.AnalyzeRegulation(context.Background(), "text", "gdpr", "EU")
	require.NoError(t, err)
	assert.Equal(t, "Analysis generated for gdpr (EU)", analysis.RegulationSummary)
	assert.Empty(t, analysis.KeyRequirements)
}

func TestAnalyzeRegulationTruncatesLongText(t *testing.T) {
	client := &mockClient{response: `{"regulation_summary": "ok", "risk_assessment": {"overall_risk": "low"}}`}

	a := New(client, nil)
	long := strings.Repeat("x", 20000)
	_, err := a.AnalyzeRegulation(context.Background(), long, "general", "unknown")
	require.NoError(t, err)
	assert.Less(t, len(client.lastPrompt), 18000)
}

func TestAnalyzeRegulationStripsCodeFences(t *testing.T) {
	client := &mockClient{response: "```json\n{\"regulation_summary\": \"fenced\", \"risk_assessment\": {\"overall_risk\": \"low\"}}\n```"}

	a := New(client, nil)
	analysis, err := a.AnalyzeRegulation(context.Background(), "text", "general", "unknown")
	require.NoError(t, err)
	assert.Equal(t, "fenced", analysis.RegulationSummary)
}

func TestCheckComplianceFlattensGaps(t *testing.T) {
	client := &mockClient{response: `{
		"overall": {"status": "partially_compliant", "score": 72, "summary": "Partial coverage"},
		"sections": [{
			"name": "Data Subject Rights",
			"status": "non_compliant",
			"score": 40,
			"gaps": [
				{"gap_id": "DSR-1", "description": "No deletion workflow", "risk_level": "high", "recommendations": ["Build deletion workflow"]},
				{"description": "No access request SLA", "recommendations": ["Define SLA"]}
			]
		}],
		"top_recommendations": ["Prioritize data subject rights tooling"],
		"detected_framework": "gdpr"
	}`}

	a := New(client, nil)
	result, err := a.CheckCompliance(context.Background(), "reg text", []string{"policy A"}, &datatypes.RegulationAnalysis{DetectedFramework: "gdpr"})
	require.NoError(t, err)

	assert.Equal(t, datatypes.StatusPartiallyCompliant, result.OverallStatus)
	assert.Equal(t, 72.0, result.ComplianceScore)
	require.Len(t, result.Gaps, 2)
	assert.Equal(t, "DSR-1", result.Gaps[0].GapID)
	assert.Equal(t, "Data Subject Rights", result.Gaps[0].Requirement)
	assert.Equal(t, "high", result.Gaps[0].ImpactLevel)
	// Missing gap_id gets a generated section-scoped ID.
	assert.Equal(t, "Data Subject Rights-2", result.Gaps[1].GapID)
	assert.Equal(t, "medium", result.Gaps[1].ImpactLevel)
	assert.Equal(t, []string{"Prioritize data subject rights tooling"}, result.Recommendations)
	assert.NotEmpty(t, result.DetailedAnalysis)
}

func TestCheckComplianceRecommendationsFromGaps(t *testing.T) {
	client := &mockClient{response: `{
		"overall": {"status": "non_compliant", "score": 30, "summary": ""},
		"sections": [{
			"name": "Security",
			"gaps": [
				{"gap_id": "S-1", "description": "No encryption", "risk_level": "high", "recommendations": ["Encrypt at rest", "Encrypt in transit"]},
				{"gap_id": "S-2", "description": "No MFA", "risk_level": "high", "recommendations": ["Encrypt at rest", "Roll out MFA"]}
			]
		}]
	}`}

	a := New(client, nil)
	result, err := a.CheckCompliance(context.Background(), "reg", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Encrypt at rest", "Encrypt in transit", "Roll out MFA"}, result.Recommendations)
}

func TestCheckComplianceDefaultRecommendationsByFramework(t *testing.T) {
	cases := []struct {
		framework string
		want      string
	}{
		{"gdpr", "data subject rights"},
		{"GDPR-2016", "data subject rights"},
		{"hipaa", "PHI"},
		{"sox", "compliance review"},
	}

	for _, tc := range cases {
		client := &mockClient{response: `{"overall": {"status": "compliant", "score": 95, "summary": "ok"}, "sections": []}`}
		a := New(client, nil)
		result, err := a.CheckCompliance(context.Background(), "reg", nil, &datatypes.RegulationAnalysis{DetectedFramework: tc.framework})
		require.NoError(t, err)
		require.NotEmpty(t, result.Recommendations, tc.framework)

		joined := strings.ToLower(strings.Join(result.Recommendations, " "))
		assert.Contains(t, joined, strings.ToLower(tc.want), "framework %s", tc.framework)
	}
}

func TestCheckComplianceFallbackOnParseError(t *testing.T) {
	client := &mockClient{response: "plain prose answer"}

	a := New(client, nil)
	result, err := a.CheckCompliance(context.Background(), "reg", []string{"p"}, nil)
	require.NoError(t, err)
	assert.Equal(t, datatypes.StatusPartiallyCompliant, result.OverallStatus)
	assert.Equal(t, 60.0, result.ComplianceScore)
	assert.Empty(t, result.Gaps)
	assert.NotEmpty(t, result.Recommendations)
}

func TestCheckComplianceFallbackOnAPIError(t *testing.T) {
	client := &mockClient{err: errors.New("timeout")}

	a := New(client, nil)
	result, err := a.CheckCompliance(context.Background(), "reg", nil, &datatypes.RegulationAnalysis{DetectedFramework: "hipaa"})
	require.NoError(t, err)
	assert.Equal(t, datatypes.StatusPartiallyCompliant, result.OverallStatus)
	assert.Equal(t, 60.0, result.ComplianceScore)
	assert.Len(t, result.Recommendations, 3)
	assert.Equal(t, "timeout", result.DetailedAnalysis["error"])
}

func TestCheckComplianceMissingOverallDefaults(t *testing.T) {
	// Valid JSON that never includes the overall block at all.
	client := &mockClient{response: `{"sections":[],"top_recommendations":[]}`}

	a := New(client, nil)
	result, err := a.CheckCompliance(context.Background(), "reg", []string{"p"}, nil)
	require.NoError(t, err)
	assert.Equal(t, datatypes.StatusPartiallyCompliant, result.OverallStatus)
	assert.Equal(t, 60.0, result.ComplianceScore)
}

func TestCheckComplianceMissingScoreDefaults(t *testing.T) {
	client := &mockClient{response: `{"overall": {"status": "compliant", "summary": "fine"}, "sections": []}`}

	a := New(client, nil)
	result, err := a.CheckCompliance(context.Background(), "reg", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "compliant", result.OverallStatus)
	assert.Equal(t, 60.0, result.ComplianceScore)
}

func TestCheckComplianceExplicitZeroScoreKept(t *testing.T) {
	client := &mockClient{response: `{"overall": {"status": "non_compliant", "score": 0, "summary": ""}, "sections": []}`}

	a := New(client, nil)
	result, err := a.CheckCompliance(context.Background(), "reg", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.ComplianceScore)
}

func TestCheckComplianceScoreClamped(t *testing.T) {
	client := &mockClient{response: `{"overall": {"status": "compliant", "score": 140, "summary": ""}, "sections": []}`}

	a := New(client, nil)
	result, err := a.CheckCompliance(context.Background(), "reg", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.ComplianceScore)
}

func TestAnalyzeRegulationContextCancelled(t *testing.T) {
	client := &mockClient{response: "{}"}
	a := New(client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.AnalyzeRegulation(ctx, "text", "gdpr", "EU")
	assert.ErrorIs(t, err, context.Canceled)
}
