// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package compliance

import (
	"github.com/AleutianAI/AleutianComply/services/compliance/datatypes"
)

// ErrorResponse is the uniform error body for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// UploadResponse acknowledges an accepted regulation upload.
type UploadResponse struct {
	RegulationID string `json:"regulation_id"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}

// ListRegulationsResponse pages regulation summaries.
type ListRegulationsResponse struct {
	Regulations []RegulationSummary `json:"regulations"`
	Count       int                 `json:"count"`
}

// RegulationSummary is the list-view projection of a regulation: no
// extracted text, no full analysis.
type RegulationSummary struct {
	ID             string `json:"id"`
	Filename       string `json:"filename"`
	RegulationType string `json:"regulation_type"`
	Jurisdiction   string `json:"jurisdiction"`
	UploadedAt     string `json:"uploaded_at"`
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
}

// CheckRequest asks for a compliance check of policies against a
// regulation.
type CheckRequest struct {
	RegulationID    string   `json:"regulation_id" binding:"required"`
	CompanyPolicies []string `json:"company_policies" binding:"dive,min=1"`
}

// CheckResponse returns a completed compliance check.
type CheckResponse struct {
	CheckID          string          `json:"check_id"`
	RegulationID     string          `json:"regulation_id"`
	OverallStatus    string          `json:"overall_status"`
	ComplianceScore  float64         `json:"compliance_score"`
	Gaps             []datatypes.Gap `json:"gaps"`
	Recommendations  []string        `json:"recommendations"`
	DetailedAnalysis map[string]any  `json:"detailed_analysis,omitempty"`
	CreatedAt        string          `json:"created_at"`
}

// ListChecksResponse lists checks, optionally filtered by regulation.
type ListChecksResponse struct {
	Checks []CheckResponse `json:"checks"`
	Count  int             `json:"count"`
}

// ReportRequest asks for report generation.
type ReportRequest struct {
	RegulationID           string `json:"regulation_id" binding:"required"`
	Format                 string `json:"format" binding:"omitempty,oneof=pdf xlsx"`
	IncludeRecommendations *bool  `json:"include_recommendations"`
}

// ReportResponse returns generated report metadata.
type ReportResponse struct {
	ReportID     string `json:"report_id"`
	RegulationID string `json:"regulation_id"`
	Format       string `json:"format"`
	FilePath     string `json:"file_path"`
	CreatedAt    string `json:"created_at"`
}

// ListReportsResponse lists report metadata.
type ListReportsResponse struct {
	Reports []ReportResponse `json:"reports"`
	Count   int              `json:"count"`
}

// AddSourceRequest registers a monitored regulatory source.
type AddSourceRequest struct {
	Name           string `json:"name" binding:"required"`
	URL            string `json:"url" binding:"required,url"`
	Jurisdiction   string `json:"jurisdiction"`
	RegulationType string `json:"regulation_type"`
	DueDays        int    `json:"due_days" binding:"omitempty,gte=0"`
}

// AddSourceResponse acknowledges a registered source.
type AddSourceResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// ListSourcesResponse lists monitored sources.
type ListSourcesResponse struct {
	Sources []datatypes.Source `json:"sources"`
	Count   int                `json:"count"`
}

// MonitorRunResponse summarizes one on-demand monitoring pass.
type MonitorRunResponse struct {
	Checked int    `json:"checked"`
	Changes int    `json:"changes"`
	Errors  int    `json:"errors"`
	Message string `json:"message"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Analyzer  bool   `json:"analyzer_available"`
}

// StatusEvent is one message on the regulation processing event stream.
type StatusEvent struct {
	RegulationID string `json:"regulation_id"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	Timestamp    string `json:"timestamp"`
}

func summarize(reg *datatypes.Regulation) RegulationSummary {
	return RegulationSummary{
		ID:             reg.ID,
		Filename:       reg.Filename,
		RegulationType: reg.RegulationType,
		Jurisdiction:   reg.Jurisdiction,
		UploadedAt:     reg.UploadedAt,
		Status:         reg.Status,
		Error:          reg.Error,
	}
}

func checkResponse(chk *datatypes.ComplianceCheck) CheckResponse {
	resp := CheckResponse{
		CheckID:      chk.ID,
		RegulationID: chk.RegulationID,
		CreatedAt:    chk.CreatedAt,
	}
	if chk.Result != nil {
		resp.OverallStatus = chk.Result.OverallStatus
		resp.ComplianceScore = chk.Result.ComplianceScore
		resp.Gaps = chk.Result.Gaps
		resp.Recommendations = chk.Result.Recommendations
		resp.DetailedAnalysis = chk.Result.DetailedAnalysis
	}
	return resp
}

func reportResponse(rpt *datatypes.Report) ReportResponse {
	return ReportResponse{
		ReportID:     rpt.ID,
		RegulationID: rpt.RegulationID,
		Format:       rpt.Format,
		FilePath:     rpt.FilePath,
		CreatedAt:    rpt.CreatedAt,
	}
}
