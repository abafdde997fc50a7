// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analyzer turns regulation text into structured obligations and
// scores company policies against them using a hosted model.
//
// Both operations degrade instead of failing: a model API error or a
// response that is not valid JSON yields a conservative fallback result,
// never an error surfaced to the caller. Callers can therefore always
// persist and display something.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianComply/services/compliance/datatypes"
	"github.com/AleutianAI/AleutianComply/services/llm"
)

const (
	opAnalyzeRegulation = "analyze_regulation"
	opCheckCompliance   = "check_compliance"

	fallbackReasonAPIError   = "api_error"
	fallbackReasonParseError = "parse_error"
)

// Analyzer runs compliance analysis prompts against a model client.
//
// Thread Safety: Safe for concurrent use.
type Analyzer struct {
	client llm.Client
	logger *slog.Logger
}

// New creates an Analyzer on the given model client.
func New(client llm.Client, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{client: client, logger: logger}
}

// AnalyzeRegulation summarizes a regulation's obligations.
//
// Description:
//
//	Sends the regulation text (truncated) to the model with a strict-JSON
//	prompt and parses the result into a RegulationAnalysis. On API error
//	or unparseable output, returns a minimal fallback analysis carrying
//	the raw response snippet as the summary. Never returns an error for
//	model failures; only context cancellation aborts.
func (a *Analyzer) AnalyzeRegulation(ctx context.Context, text, regulationType, jurisdiction string) (*datatypes.RegulationAnalysis, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	start := time.Now()
	prompt := buildRegulationPrompt(text, regulationType, jurisdiction)
	recordPromptSize(opAnalyzeRegulation, len(prompt))

	raw, err := a.client.Generate(ctx, prompt, llm.GenerationParams{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Error("regulation analysis call failed",
			slog.String("provider", a.client.Provider()),
			slog.Any("error", err),
		)
		recordAnalysisFallback(opAnalyzeRegulation, fallbackReasonAPIError, time.Since(start).Seconds())
		return fallbackAnalysis(
			fmt.Sprintf("Analysis generated for %s (%s)", regulationType, jurisdiction),
			regulationType, jurisdiction,
		), nil
	}

	var analysis datatypes.RegulationAnalysis
	if jsonErr := json.Unmarshal([]byte(stripJSONFences(raw)), &analysis); jsonErr != nil {
		a.logger.Warn("regulation analysis response was not valid JSON",
			slog.String("provider", a.client.Provider()),
			slog.Any("error", jsonErr),
		)
		recordAnalysisFallback(opAnalyzeRegulation, fallbackReasonParseError, time.Since(start).Seconds())
		return fallbackAnalysis(snippet(raw, 500), regulationType, jurisdiction), nil
	}

	if analysis.RiskAssessment.OverallRisk == "" {
		analysis.RiskAssessment.OverallRisk = "medium"
	}
	if analysis.DetectedFramework == "" {
		analysis.DetectedFramework = regulationType
	}

	recordAnalysisOK(opAnalyzeRegulation, time.Since(start).Seconds())
	return &analysis, nil
}

// checkOverall is the top-level verdict block of the check response.
// Score is a pointer so a response that omits it can be told apart from
// an explicit zero and given the neutral default.
type checkOverall struct {
	Status  string   `json:"status"`
	Score   *float64 `json:"score"`
	Summary string   `json:"summary"`
}

// checkResponse is the raw shape of the compliance-check prompt output
// before normalization.
type checkResponse struct {
	Overall *checkOverall `json:"overall"`
	Sections []struct {
		Name   string  `json:"name"`
		Status string  `json:"status"`
		Score  float64 `json:"score"`
		Gaps   []struct {
			GapID           string   `json:"gap_id"`
			Description     string   `json:"description"`
			RiskLevel       string   `json:"risk_level"`
			Evidence        string   `json:"evidence"`
			Recommendations []string `json:"recommendations"`
		} `json:"gaps"`
	} `json:"sections"`
	TopRecommendations []string `json:"top_recommendations"`
	DetectedFramework  string   `json:"detected_framework"`
	Assumptions        []string `json:"assumptions"`
}

// CheckCompliance scores company policies against a regulation.
//
// Description:
//
//	Sends the regulation text, the policy documents, and framework hints
//	to the model, then normalizes the sectioned response into a flat
//	CheckResult: section gaps are flattened with stable fallback IDs,
//	recommendations come from top_recommendations, then deduplicated gap
//	actions, then canned framework defaults. The raw parsed response is
//	preserved in DetailedAnalysis. API failures yield a partial-compliance
//	fallback with framework-specific recommendations.
func (a *Analyzer) CheckCompliance(ctx context.Context, regulationText string, policies []string, analysis *datatypes.RegulationAnalysis) (*datatypes.CheckResult, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	hintType := "general"
	hintJurisdiction := "unknown"
	if analysis != nil && analysis.DetectedFramework != "" {
		hintType = analysis.DetectedFramework
	}

	start := time.Now()
	prompt := buildCheckPrompt(regulationText, policies, hintType, hintJurisdiction)
	recordPromptSize(opCheckCompliance, len(prompt))

	raw, err := a.client.Generate(ctx, prompt, llm.GenerationParams{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Error("compliance check call failed",
			slog.String("provider", a.client.Provider()),
			slog.Any("error", err),
		)
		recordAnalysisFallback(opCheckCompliance, fallbackReasonAPIError, time.Since(start).Seconds())
		return &datatypes.CheckResult{
			OverallStatus:    datatypes.StatusPartiallyCompliant,
			ComplianceScore:  60,
			Gaps:             []datatypes.Gap{},
			Recommendations:  defaultRecommendations(hintType)[:3],
			DetailedAnalysis: map[string]any{"error": err.Error()},
		}, nil
	}

	var parsed checkResponse
	parseErr := json.Unmarshal([]byte(stripJSONFences(raw)), &parsed)
	if parseErr != nil {
		a.logger.Warn("compliance check response was not valid JSON",
			slog.String("provider", a.client.Provider()),
			slog.Any("error", parseErr),
		)
		recordAnalysisFallback(opCheckCompliance, fallbackReasonParseError, time.Since(start).Seconds())
		fallbackScore := 60.0
		parsed = checkResponse{
			Overall: &checkOverall{
				Status:  datatypes.StatusPartiallyCompliant,
				Score:   &fallbackScore,
				Summary: snippet(raw, 300),
			},
			DetectedFramework: "unknown",
		}
	} else {
		recordAnalysisOK(opCheckCompliance, time.Since(start).Seconds())
	}

	result := normalizeCheck(&parsed, hintType)
	return result, nil
}

// normalizeCheck flattens the sectioned model output into the API shape.
// A missing overall block, or a missing score within it, defaults to a
// neutral 60 rather than reading as fully non-compliant.
func normalizeCheck(parsed *checkResponse, hintType string) *datatypes.CheckResult {
	overall := parsed.Overall
	if overall == nil {
		overall = &checkOverall{}
	}
	status := overall.Status
	if status == "" {
		status = datatypes.StatusPartiallyCompliant
	}
	score := 60.0
	if overall.Score != nil {
		score = *overall.Score
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	gaps := []datatypes.Gap{}
	for _, sec := range parsed.Sections {
		secName := sec.Name
		if secName == "" {
			secName = "Unknown"
		}
		for i, g := range sec.Gaps {
			gapID := g.GapID
			if gapID == "" {
				gapID = fmt.Sprintf("%s-%d", secName, i+1)
			}
			impact := g.RiskLevel
			if impact == "" {
				impact = "medium"
			}
			gaps = append(gaps, datatypes.Gap{
				GapID:              gapID,
				Requirement:        secName,
				CurrentState:       "unknown",
				GapDescription:     g.Description,
				ImpactLevel:        impact,
				RemediationEffort:  "medium",
				RecommendedActions: g.Recommendations,
			})
		}
	}

	recommendations := parsed.TopRecommendations
	if len(recommendations) == 0 {
		seen := map[string]bool{}
		for _, g := range gaps {
			for _, r := range g.RecommendedActions {
				if r != "" && !seen[r] {
					seen[r] = true
					recommendations = append(recommendations, r)
				}
			}
		}
	}
	if len(recommendations) == 0 {
		recommendations = defaultRecommendations(hintType)
	}

	detailed := map[string]any{}
	if data, err := json.Marshal(parsed); err == nil {
		_ = json.Unmarshal(data, &detailed)
	}

	return &datatypes.CheckResult{
		OverallStatus:    status,
		ComplianceScore:  score,
		Gaps:             gaps,
		Recommendations:  recommendations,
		DetailedAnalysis: detailed,
	}
}

// defaultRecommendations returns canned framework guidance used when the
// model produced no recommendations at all.
func defaultRecommendations(hintType string) []string {
	lower := strings.ToLower(hintType)
	switch {
	case strings.Contains(lower, "gdpr"):
		return []string{
			"Implement data subject rights management system",
			"Conduct Data Protection Impact Assessments (DPIAs)",
			"Establish data breach notification procedures",
			"Review and update privacy notices",
			"Implement data minimization practices",
		}
	case strings.Contains(lower, "hipaa"):
		return []string{
			"Implement PHI access controls and audit logs",
			"Conduct risk assessments for all PHI systems",
			"Establish Business Associate Agreements (BAAs)",
			"Implement workforce training on PHI handling",
			"Develop incident response procedures",
		}
	default:
		return []string{
			"Conduct comprehensive compliance review",
			"Develop detailed action plan with timelines",
			"Assign compliance responsibilities to team members",
			"Implement regular monitoring and reporting",
			"Establish training programs for staff",
		}
	}
}

func fallbackAnalysis(summary, regulationType, jurisdiction string) *datatypes.RegulationAnalysis {
	return &datatypes.RegulationAnalysis{
		RegulationSummary:     summary,
		KeyRequirements:       []datatypes.KeyRequirement{},
		ComplianceObligations: []string{},
		RiskAssessment:        datatypes.RiskAssessment{OverallRisk: "medium"},
		AffectedDepartments:   []string{},
		RecommendedActions:    []string{},
		DetectedFramework:     regulationType,
		DocumentOverview:      fmt.Sprintf("Document analysis for %s regulation in %s", regulationType, jurisdiction),
	}
}

// stripJSONFences removes a surrounding markdown code fence if present.
// Gemini honors the JSON MIME type but Anthropic sometimes wraps output.
func stripJSONFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func snippet(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
