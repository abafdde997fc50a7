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
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/AleutianComply/services/compliance/datatypes"
	"github.com/AleutianAI/AleutianComply/services/compliance/extract"
)

// Handlers holds the HTTP handlers for the compliance service.
type Handlers struct {
	svc *Service

	upgrader websocket.Upgrader
}

// NewHandlers creates the handler set for a service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Status streams carry no sensitive state and the API has no
			// browser origin of its own.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// getOrCreateRequestID returns the request ID set by middleware, minting
// one if the middleware is absent.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	id := uuid.New().String()
	c.Set(requestIDKey, id)
	return id
}

// HandleHealth handles GET /v1/compliance/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Analyzer:  h.svc.AnalyzerAvailable(),
	})
}

// HandleReady handles GET /v1/compliance/ready.
//
// Description:
//
//	Readiness requires the analyzer to be configured; storage is probed
//	with a cheap list call.
func (h *Handlers) HandleReady(c *gin.Context) {
	if !h.svc.AnalyzerAvailable() {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "analyzer not configured",
			Code:  "ANALYZER_NOT_AVAILABLE",
		})
		return
	}
	if _, err := h.svc.ListRegulations(c.Request.Context(), 1); err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "storage not available",
			Code:  "STORAGE_NOT_AVAILABLE",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// HandleUploadRegulation handles POST /v1/compliance/regulations.
//
// Description:
//
//	Accepts a multipart upload ("file" part plus optional form fields
//	regulation_type, jurisdiction, effective_date), spools it, and
//	returns 202 while analysis continues in the background.
//
// Response:
//
//	202 Accepted: UploadResponse
//	400 Bad Request: missing file or unsupported format
//	413 Request Entity Too Large: file exceeds the upload limit
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleUploadRegulation(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleUploadRegulation")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "multipart 'file' part is required",
			Code:  "MISSING_FILE",
		})
		return
	}
	if !extract.IsSupported(fileHeader.Filename) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "unsupported file type " + filepath.Ext(fileHeader.Filename) + " (want .txt, .pdf, or .docx)",
			Code:  "UNSUPPORTED_FORMAT",
		})
		return
	}
	if fileHeader.Size > h.svc.cfg.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: "file exceeds maximum upload size",
			Code:  "FILE_TOO_LARGE",
		})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "reading upload: " + err.Error(),
			Code:  "UPLOAD_READ_FAILED",
		})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.svc.cfg.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "reading upload: " + err.Error(),
			Code:  "UPLOAD_READ_FAILED",
		})
		return
	}

	regulationType := c.DefaultPostForm("regulation_type", "general")
	jurisdiction := c.DefaultPostForm("jurisdiction", "global")
	effectiveDate := c.PostForm("effective_date")

	regID, err := h.svc.CreateRegulation(c.Request.Context(), fileHeader.Filename, data, regulationType, jurisdiction, effectiveDate)
	if err != nil {
		logger.Error("upload rejected", slog.Any("error", err))
		if errors.Is(err, ErrAnalyzerUnavailable) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error: err.Error(),
				Code:  "ANALYZER_NOT_AVAILABLE",
			})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "UPLOAD_REJECTED",
		})
		return
	}

	logger.Info("regulation upload accepted",
		slog.String("regulation_id", regID),
		slog.String("filename", fileHeader.Filename),
		slog.Int("bytes", len(data)),
	)
	c.JSON(http.StatusAccepted, UploadResponse{
		RegulationID: regID,
		Status:       datatypes.RegulationStatusProcessing,
		Message:      "Document uploaded successfully. Analysis in progress.",
	})
}

// HandleListRegulations handles GET /v1/compliance/regulations.
//
// Query Parameters:
//
//	limit: Maximum results, default 100
func (h *Handlers) HandleListRegulations(c *gin.Context) {
	limit := parseLimit(c, 100)

	regs, err := h.svc.ListRegulations(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "listing regulations: " + err.Error(),
			Code:  "LIST_FAILED",
		})
		return
	}

	resp := ListRegulationsResponse{
		Regulations: make([]RegulationSummary, 0, len(regs)),
	}
	for _, reg := range regs {
		resp.Regulations = append(resp.Regulations, summarize(reg))
	}
	resp.Count = len(resp.Regulations)
	c.JSON(http.StatusOK, resp)
}

// HandleGetRegulation handles GET /v1/compliance/regulations/:id.
func (h *Handlers) HandleGetRegulation(c *gin.Context) {
	reg, err := h.svc.GetRegulation(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "regulation not found",
				Code:  "REGULATION_NOT_FOUND",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "GET_FAILED",
		})
		return
	}
	c.JSON(http.StatusOK, reg)
}

// HandleRegulationEvents handles GET /v1/compliance/regulations/:id/events.
//
// Description:
//
//	Upgrades to a WebSocket and streams StatusEvent messages until the
//	regulation reaches a terminal status (processed or error) or the
//	client disconnects. A subscriber immediately receives the current
//	status.
func (h *Handlers) HandleRegulationEvents(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRegulationEvents")

	regID := c.Param("id")
	if _, err := h.svc.GetRegulation(c.Request.Context(), regID); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "regulation not found",
				Code:  "REGULATION_NOT_FOUND",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "GET_FAILED",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	events, unsubscribe := h.svc.SubscribeStatus(regID)
	defer unsubscribe()

	// Read pump: detect client disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case ev := <-events:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
			if terminalStatus(ev.Status) {
				return
			}
		}
	}
}

// HandleRunCheck handles POST /v1/compliance/checks.
//
// Response:
//
//	200 OK: CheckResponse
//	400 Bad Request: invalid body
//	404 Not Found: regulation missing
//	409 Conflict: regulation not processed yet
func (h *Handlers) HandleRunCheck(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRunCheck")

	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	chk, err := h.svc.RunCheck(c.Request.Context(), req.RegulationID, req.CompanyPolicies)
	if err != nil {
		switch {
		case errors.Is(err, ErrAnalyzerUnavailable):
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error: err.Error(),
				Code:  "ANALYZER_NOT_AVAILABLE",
			})
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "regulation not found",
				Code:  "REGULATION_NOT_FOUND",
			})
		case errors.Is(err, ErrNotProcessed):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error: err.Error(),
				Code:  "REGULATION_NOT_PROCESSED",
			})
		default:
			logger.Error("check failed", slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: "compliance check failed: " + err.Error(),
				Code:  "CHECK_FAILED",
			})
		}
		return
	}

	c.JSON(http.StatusOK, checkResponse(chk))
}

// HandleListChecks handles GET /v1/compliance/checks.
//
// Query Parameters:
//
//	regulation_id: Optional filter
//	limit: Maximum results, default 100
func (h *Handlers) HandleListChecks(c *gin.Context) {
	limit := parseLimit(c, 100)

	checks, err := h.svc.ListChecks(c.Request.Context(), c.Query("regulation_id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "listing checks: " + err.Error(),
			Code:  "LIST_FAILED",
		})
		return
	}

	resp := ListChecksResponse{Checks: make([]CheckResponse, 0, len(checks))}
	for _, chk := range checks {
		resp.Checks = append(resp.Checks, checkResponse(chk))
	}
	resp.Count = len(resp.Checks)
	c.JSON(http.StatusOK, resp)
}

// HandleGetCheck handles GET /v1/compliance/checks/:id.
func (h *Handlers) HandleGetCheck(c *gin.Context) {
	chk, err := h.svc.GetCheck(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "check not found",
				Code:  "CHECK_NOT_FOUND",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "GET_FAILED",
		})
		return
	}
	c.JSON(http.StatusOK, checkResponse(chk))
}

// HandleGenerateReport handles POST /v1/compliance/reports.
func (h *Handlers) HandleGenerateReport(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGenerateReport")

	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	includeRecs := true
	if req.IncludeRecommendations != nil {
		includeRecs = *req.IncludeRecommendations
	}

	rpt, err := h.svc.GenerateReport(c.Request.Context(), req.RegulationID, req.Format, includeRecs)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "regulation not found",
				Code:  "REGULATION_NOT_FOUND",
			})
			return
		}
		logger.Error("report generation failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "report generation failed: " + err.Error(),
			Code:  "REPORT_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, reportResponse(rpt))
}

// HandleListReports handles GET /v1/compliance/reports.
func (h *Handlers) HandleListReports(c *gin.Context) {
	limit := parseLimit(c, 100)

	reports, err := h.svc.ListReports(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "listing reports: " + err.Error(),
			Code:  "LIST_FAILED",
		})
		return
	}

	resp := ListReportsResponse{Reports: make([]ReportResponse, 0, len(reports))}
	for _, rpt := range reports {
		resp.Reports = append(resp.Reports, reportResponse(rpt))
	}
	resp.Count = len(resp.Reports)
	c.JSON(http.StatusOK, resp)
}

// HandleDownloadReport handles GET /v1/compliance/reports/:id/download.
//
// Description:
//
//	Streams the report file with the right media type and an attachment
//	Content-Disposition. 404 covers both missing metadata and a missing
//	file on disk.
func (h *Handlers) HandleDownloadReport(c *gin.Context) {
	rpt, err := h.svc.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "report not found",
				Code:  "REPORT_NOT_FOUND",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "GET_FAILED",
		})
		return
	}
	h.serveReportFile(c, rpt)
}

// HandleLatestReport handles GET /v1/compliance/regulations/:id/report.
//
// Description:
//
//	Serves the newest report for a regulation, generating a PDF first
//	when none exists.
func (h *Handlers) HandleLatestReport(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleLatestReport")

	rpt, err := h.svc.LatestReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "regulation not found",
				Code:  "REGULATION_NOT_FOUND",
			})
			return
		}
		logger.Error("latest report failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "report generation failed: " + err.Error(),
			Code:  "REPORT_FAILED",
		})
		return
	}
	h.serveReportFile(c, rpt)
}

func (h *Handlers) serveReportFile(c *gin.Context, rpt *datatypes.Report) {
	if _, err := os.Stat(rpt.FilePath); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "report file not found on disk",
			Code:  "REPORT_FILE_MISSING",
		})
		return
	}

	mediaType := "application/pdf"
	if rpt.Format == datatypes.ReportFormatXLSX {
		mediaType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	c.Header("Content-Disposition", "attachment; filename="+filepath.Base(rpt.FilePath))
	c.Header("Content-Type", mediaType)
	c.File(rpt.FilePath)
}

func parseLimit(c *gin.Context, def int) int {
	limit := def
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return limit
}
