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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all compliance routes with the router group.
//
// Description:
//
//	Registers all /v1/compliance/* endpoints. The group should already
//	carry any shared middleware (request IDs, tracing, recovery).
//
// Endpoints:
//
//	GET    /v1/compliance/health - Liveness
//	GET    /v1/compliance/ready - Readiness
//
//	POST   /v1/compliance/regulations - Upload a regulation document
//	GET    /v1/compliance/regulations - List regulations
//	GET    /v1/compliance/regulations/:id - Get one regulation
//	GET    /v1/compliance/regulations/:id/events - Processing status stream (WebSocket)
//	GET    /v1/compliance/regulations/:id/report - Latest report (auto-generating)
//
//	POST   /v1/compliance/checks - Run a compliance check
//	GET    /v1/compliance/checks - List checks
//	GET    /v1/compliance/checks/:id - Get one check
//
//	POST   /v1/compliance/reports - Generate a report
//	GET    /v1/compliance/reports - List reports
//	GET    /v1/compliance/reports/:id/download - Download a report file
//
//	POST   /v1/compliance/monitor/sources - Register a monitored source
//	GET    /v1/compliance/monitor/sources - List sources
//	DELETE /v1/compliance/monitor/sources/:id - Remove a source
//	POST   /v1/compliance/monitor/run - Poll all enabled sources now
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	comply := rg.Group("/compliance")
	{
		comply.GET("/health", handlers.HandleHealth)
		comply.GET("/ready", handlers.HandleReady)

		comply.POST("/regulations", handlers.HandleUploadRegulation)
		comply.GET("/regulations", handlers.HandleListRegulations)
		comply.GET("/regulations/:id", handlers.HandleGetRegulation)
		comply.GET("/regulations/:id/events", handlers.HandleRegulationEvents)
		comply.GET("/regulations/:id/report", handlers.HandleLatestReport)

		comply.POST("/checks", handlers.HandleRunCheck)
		comply.GET("/checks", handlers.HandleListChecks)
		comply.GET("/checks/:id", handlers.HandleGetCheck)

		comply.POST("/reports", handlers.HandleGenerateReport)
		comply.GET("/reports", handlers.HandleListReports)
		comply.GET("/reports/:id/download", handlers.HandleDownloadReport)

		comply.POST("/monitor/sources", handlers.HandleAddSource)
		comply.GET("/monitor/sources", handlers.HandleListSources)
		comply.DELETE("/monitor/sources/:id", handlers.HandleDeleteSource)
		comply.POST("/monitor/run", handlers.HandleRunMonitor)
	}
}
