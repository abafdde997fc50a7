// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command complyd starts the Aleutian Comply API server.
//
// Aleutian Comply is an AI compliance officer:
//   - Upload regulation documents (pdf/docx/txt) for model analysis
//   - Score company policies against extracted obligations
//   - Generate downloadable PDF/XLSX compliance reports
//   - Monitor remote regulatory sources for content changes
//
// Usage:
//
//	go run ./cmd/complyd
//	go run ./cmd/complyd -port 9090 -config comply.config.yaml
//
// The analyzer needs a model API key:
//
//	GEMINI_API_KEY=... go run ./cmd/complyd
//	COMPLY_LLM_PROVIDER=anthropic ANTHROPIC_API_KEY=... go run ./cmd/complyd
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8000/v1/compliance/health
//
//	# Upload a regulation
//	curl -X POST http://localhost:8000/v1/compliance/regulations \
//	  -F file=@gdpr.pdf -F regulation_type=gdpr -F jurisdiction=EU
//
//	# Run a compliance check
//	curl -X POST http://localhost:8000/v1/compliance/checks \
//	  -H "Content-Type: application/json" \
//	  -d '{"regulation_id": "...", "company_policies": ["We encrypt data at rest."]}'
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/AleutianAI/AleutianComply/services/compliance"
	"github.com/AleutianAI/AleutianComply/services/compliance/analyzer"
	complyconfig "github.com/AleutianAI/AleutianComply/services/compliance/config"
	"github.com/AleutianAI/AleutianComply/services/compliance/monitor"
	"github.com/AleutianAI/AleutianComply/services/compliance/report"
	badgerstore "github.com/AleutianAI/AleutianComply/services/compliance/storage/badger"
	"github.com/AleutianAI/AleutianComply/services/llm"
)

func main() {
	port := flag.Int("port", 0, "Port to listen on (overrides config listen_addr)")
	configPath := flag.String("config", complyconfig.DefaultPath, "Path to config file")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := complyconfig.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	addr := cfg.Server.ListenAddr
	if *port != 0 {
		addr = fmt.Sprintf(":%d", *port)
	}

	// W3C TraceContext propagation so trace context flows from incoming
	// headers through handlers and outbound calls.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Storage
	dbCfg := badgerstore.DefaultConfig()
	dbCfg.Path = cfg.Storage.Path
	db, err := badgerstore.OpenDB(dbCfg)
	if err != nil {
		slog.Error("Failed to open BadgerDB", slog.String("error", err.Error()))
		os.Exit(1)
	}
	regulations := badgerstore.NewRegulationStore(db, nil)
	checks := badgerstore.NewCheckStore(db, nil)
	reports := badgerstore.NewReportStore(db, nil)
	sources := badgerstore.NewSourceStore(db, nil)

	// Analyzer. A missing API key degrades the service instead of
	// preventing startup; /ready reports the gap.
	var an compliance.Analyzer
	var monitorAnalyzer *analyzer.Analyzer
	if cfg.LLM.Provider != "" && os.Getenv("COMPLY_LLM_PROVIDER") == "" {
		os.Setenv("COMPLY_LLM_PROVIDER", cfg.LLM.Provider)
	}
	llmClient, err := llm.NewClientFromEnv()
	if err != nil {
		slog.Warn("Model client unavailable, running degraded",
			slog.String("error", err.Error()),
		)
	} else {
		a := analyzer.New(llmClient, nil)
		an = a
		monitorAnalyzer = a
	}

	reporter := report.NewGenerator(cfg.Reports.Dir, nil)

	var mon *monitor.Monitor
	if monitorAnalyzer != nil {
		mon = monitor.New(sources, regulations, monitorAnalyzer, nil, monitor.Options{
			MaxParallel:       cfg.Monitor.MaxParallel,
			RequestsPerSecond: cfg.Monitor.RequestsPerSecond,
		})
	}

	svc := compliance.NewService(
		compliance.ServiceConfig{
			UploadDir:      cfg.Uploads.Dir,
			MaxUploadBytes: cfg.Uploads.MaxBytes,
		},
		regulations, checks, reports, sources,
		an, reporter, mon, nil,
	)
	handlers := compliance.NewHandlers(svc)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("aleutian-comply"))
	router.Use(compliance.RequestIDMiddleware())
	if *debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	compliance.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := newSchedulerControl(mon, rootCtx)
	sched.apply(cfg.Monitor)

	// Hot reload: only the monitor section is applied live; other
	// changes need a restart.
	go func() {
		err := complyconfig.Watch(rootCtx, *configPath, nil, func(newCfg *complyconfig.Config) {
			sched.apply(newCfg.Monitor)
		})
		if err != nil && rootCtx.Err() == nil {
			slog.Warn("Config watcher stopped", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting Aleutian Comply server",
			slog.String("address", addr),
			slog.Bool("analyzer_available", an != nil),
			slog.Bool("monitor_enabled", mon != nil && cfg.Monitor.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-rootCtx.Done()
	slog.Info("Shutting down Aleutian Comply server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", slog.String("error", err.Error()))
	}

	svc.Close()
	sched.stopCurrent()
	if err := db.Close(); err != nil {
		slog.Warn("Failed to close BadgerDB", slog.String("error", err.Error()))
	}
	slog.Info("Shutdown complete")
}

// schedulerControl starts and restarts the monitor scheduler as the
// monitor config section changes.
type schedulerControl struct {
	mon     *monitor.Monitor
	rootCtx context.Context

	mu     sync.Mutex
	cancel context.CancelFunc
	cur    complyconfig.MonitorConfig
	first  bool
}

func newSchedulerControl(mon *monitor.Monitor, rootCtx context.Context) *schedulerControl {
	return &schedulerControl{mon: mon, rootCtx: rootCtx, first: true}
}

// apply reconciles the running scheduler with the desired config.
func (s *schedulerControl) apply(cfg complyconfig.MonitorConfig) {
	if s.mon == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.first && cfg.Enabled == s.cur.Enabled && cfg.IntervalMinutes == s.cur.IntervalMinutes {
		return
	}
	s.first = false
	s.cur = cfg

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if !cfg.Enabled {
		slog.Info("Monitor scheduler disabled")
		return
	}

	ctx, cancel := context.WithCancel(s.rootCtx)
	s.cancel = cancel
	interval := time.Duration(cfg.IntervalMinutes) * time.Minute
	sched := monitor.NewScheduler(s.mon, interval, nil)
	go sched.Start(ctx)
}

func (s *schedulerControl) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
