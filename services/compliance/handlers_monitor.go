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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianComply/services/compliance/datatypes"
)

// HandleAddSource handles POST /v1/compliance/monitor/sources.
func (h *Handlers) HandleAddSource(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAddSource")

	var req AddSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	id, err := h.svc.AddSource(c.Request.Context(), req.Name, req.URL, req.Jurisdiction, req.RegulationType, req.DueDays)
	if err != nil {
		logger.Error("adding source failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "adding source failed: " + err.Error(),
			Code:  "SOURCE_ADD_FAILED",
		})
		return
	}

	logger.Info("source added",
		slog.String("source_id", id),
		slog.String("url", req.URL),
	)
	c.JSON(http.StatusOK, AddSourceResponse{ID: id, Message: "Source added"})
}

// HandleListSources handles GET /v1/compliance/monitor/sources.
func (h *Handlers) HandleListSources(c *gin.Context) {
	sources, err := h.svc.ListSources(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "listing sources: " + err.Error(),
			Code:  "LIST_FAILED",
		})
		return
	}

	resp := ListSourcesResponse{Sources: make([]datatypes.Source, 0, len(sources))}
	for _, src := range sources {
		resp.Sources = append(resp.Sources, *src)
	}
	resp.Count = len(resp.Sources)
	c.JSON(http.StatusOK, resp)
}

// HandleDeleteSource handles DELETE /v1/compliance/monitor/sources/:id.
func (h *Handlers) HandleDeleteSource(c *gin.Context) {
	err := h.svc.DeleteSource(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "source not found",
				Code:  "SOURCE_NOT_FOUND",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "deleting source: " + err.Error(),
			Code:  "SOURCE_DELETE_FAILED",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Source deleted"})
}

// HandleRunMonitor handles POST /v1/compliance/monitor/run.
//
// Description:
//
//	Polls every enabled source synchronously and reports how many
//	changed. Per-source failures are counted, not fatal.
func (h *Handlers) HandleRunMonitor(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRunMonitor")

	summary, err := h.svc.RunMonitor(c.Request.Context())
	if err != nil {
		logger.Error("monitor run failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "monitor run failed: " + err.Error(),
			Code:  "MONITOR_RUN_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, MonitorRunResponse{
		Checked: summary.Checked,
		Changes: summary.Changes,
		Errors:  summary.Errors,
		Message: "Monitor completed",
	})
}
