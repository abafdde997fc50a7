// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the shared domain records for the compliance
// service: regulations, compliance checks, reports, and monitored sources.
// All timestamps are RFC 3339 UTC strings so records round-trip through
// JSON storage without locale surprises.
package datatypes

// Regulation processing statuses.
const (
	RegulationStatusProcessing = "processing"
	RegulationStatusExtracting = "extracting"
	RegulationStatusAnalyzing  = "analyzing"
	RegulationStatusProcessed  = "processed"
	RegulationStatusError      = "error"
)

// Compliance statuses produced by the analyzer.
const (
	StatusCompliant          = "compliant"
	StatusPartiallyCompliant = "partially_compliant"
	StatusNonCompliant       = "non_compliant"
)

// Report formats.
const (
	ReportFormatPDF  = "pdf"
	ReportFormatXLSX = "xlsx"
)

// Regulation is an uploaded regulation document plus its model analysis.
type Regulation struct {
	ID             string              `json:"id"`
	Filename       string              `json:"filename"`
	RegulationType string              `json:"regulation_type"`
	Jurisdiction   string              `json:"jurisdiction"`
	EffectiveDate  string              `json:"effective_date,omitempty"`
	ExtractedText  string              `json:"extracted_text,omitempty"`
	Analysis       *RegulationAnalysis `json:"analysis,omitempty"`
	UploadedAt     string              `json:"uploaded_at"`
	Status         string              `json:"status"`

	// Error holds the failure message when Status is "error".
	Error string `json:"error,omitempty"`
}

// RegulationAnalysis is the structured output of the regulation analysis
// prompt. Fields the model cannot determine are null or empty, never
// invented.
type RegulationAnalysis struct {
	RegulationSummary       string           `json:"regulation_summary"`
	KeyRequirements         []KeyRequirement `json:"key_requirements"`
	ComplianceObligations   []string         `json:"compliance_obligations"`
	RiskAssessment          RiskAssessment   `json:"risk_assessment"`
	ImplementationTimeline  string           `json:"implementation_timeline,omitempty"`
	AffectedDepartments     []string         `json:"affected_departments"`
	PenaltiesAndEnforcement string           `json:"penalties_and_enforcement,omitempty"`
	RecommendedActions      []string         `json:"recommended_actions"`
	DetectedFramework       string           `json:"detected_framework"`
	DocumentOverview        string           `json:"document_overview"`
}

// KeyRequirement is one obligation extracted from a regulation.
type KeyRequirement struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"` // high, medium, low
}

// RiskAssessment summarizes regulatory exposure.
type RiskAssessment struct {
	OverallRisk string `json:"overall_risk"` // high, medium, low
}

// ComplianceCheck is one scored comparison of company policies against a
// regulation.
type ComplianceCheck struct {
	ID           string       `json:"id"`
	RegulationID string       `json:"regulation_id"`
	Policies     []string     `json:"policies,omitempty"`
	Result       *CheckResult `json:"result"`
	CreatedAt    string       `json:"created_at"`
}

// CheckResult is the normalized compliance assessment returned by the
// analyzer and persisted with the check.
type CheckResult struct {
	OverallStatus    string         `json:"overall_status"`
	ComplianceScore  float64        `json:"compliance_score"` // 0-100
	Gaps             []Gap          `json:"gaps"`
	Recommendations  []string       `json:"recommendations"`
	DetailedAnalysis map[string]any `json:"detailed_analysis,omitempty"`
}

// Gap is one identified shortfall between policy and obligation.
type Gap struct {
	GapID              string   `json:"gap_id"`
	Requirement        string   `json:"requirement"`
	CurrentState       string   `json:"current_state"`
	GapDescription     string   `json:"gap_description"`
	ImpactLevel        string   `json:"impact_level"`       // high, medium, low
	RemediationEffort  string   `json:"remediation_effort"` // high, medium, low
	RecommendedActions []string `json:"recommended_actions"`
}

// Report is the metadata row for a generated report file.
type Report struct {
	ID           string `json:"id"`
	RegulationID string `json:"regulation_id"`
	Format       string `json:"format"`
	FilePath     string `json:"file_path"`
	CreatedAt    string `json:"created_at"`
}

// Source is a monitored remote regulatory source.
type Source struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	URL            string `json:"url"`
	Jurisdiction   string `json:"jurisdiction"`
	RegulationType string `json:"regulation_type"`
	Enabled        bool   `json:"enabled"`
	DueDays        int    `json:"due_days,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// SourceVersion is one observed state of a monitored source.
type SourceVersion struct {
	ID             string `json:"id"`
	SourceID       string `json:"source_id"`
	FetchedAtMilli int64  `json:"fetched_at_milli"`
	Hash           string `json:"hash"`
	Snippet        string `json:"snippet,omitempty"`

	// Diff is a unified diff against the previous version's content
	// snippet. Empty for the first observed version.
	Diff string `json:"diff,omitempty"`
}
