// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package compliance is the HTTP service tying together document
// extraction, model analysis, persistence, report generation, and source
// monitoring.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianComply/services/compliance/datatypes"
	"github.com/AleutianAI/AleutianComply/services/compliance/extract"
	"github.com/AleutianAI/AleutianComply/services/compliance/monitor"
	"github.com/AleutianAI/AleutianComply/services/compliance/report"
	badgerstore "github.com/AleutianAI/AleutianComply/services/compliance/storage/badger"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotProcessed is returned when an operation needs a fully processed
// regulation but processing has not finished (or failed).
var ErrNotProcessed = errors.New("regulation not processed yet")

// ErrAnalyzerUnavailable is returned when no model analyzer is
// configured but an operation needs one.
var ErrAnalyzerUnavailable = errors.New("analyzer not configured")

// Analyzer is the model-analysis surface the service depends on.
type Analyzer interface {
	AnalyzeRegulation(ctx context.Context, text, regulationType, jurisdiction string) (*datatypes.RegulationAnalysis, error)
	CheckCompliance(ctx context.Context, regulationText string, policies []string, analysis *datatypes.RegulationAnalysis) (*datatypes.CheckResult, error)
}

// ServiceConfig holds Service construction parameters.
type ServiceConfig struct {
	// UploadDir is the spool directory for uploads awaiting processing.
	UploadDir string

	// MaxUploadBytes caps a single uploaded file.
	MaxUploadBytes int64
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		UploadDir:      "data/uploads",
		MaxUploadBytes: 20 << 20,
	}
}

// Service implements the compliance operations behind the HTTP handlers.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	cfg ServiceConfig

	regulations *badgerstore.RegulationStore
	checks      *badgerstore.CheckStore
	reports     *badgerstore.ReportStore
	sources     *badgerstore.SourceStore

	analyzer Analyzer
	reporter *report.Generator
	monitor  *monitor.Monitor

	events *eventHub
	logger *slog.Logger

	// workers tracks in-flight background processing so Close can wait.
	workers sync.WaitGroup

	// baseCtx cancels background processing on shutdown.
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// NewService wires up a Service. The monitor may be nil when source
// monitoring is disabled.
func NewService(
	cfg ServiceConfig,
	regulations *badgerstore.RegulationStore,
	checks *badgerstore.CheckStore,
	reports *badgerstore.ReportStore,
	sources *badgerstore.SourceStore,
	an Analyzer,
	reporter *report.Generator,
	mon *monitor.Monitor,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:         cfg,
		regulations: regulations,
		checks:      checks,
		reports:     reports,
		sources:     sources,
		analyzer:    an,
		reporter:    reporter,
		monitor:     mon,
		events:      newEventHub(),
		logger:      logger,
		baseCtx:     ctx,
		cancelBase:  cancel,
	}
}

// Close cancels background processing and waits for in-flight workers.
func (s *Service) Close() {
	s.cancelBase()
	s.workers.Wait()
}

// AnalyzerAvailable reports whether a model analyzer is configured.
func (s *Service) AnalyzerAvailable() bool {
	return s.analyzer != nil
}

// =============================================================================
// Regulations
// =============================================================================

// CreateRegulation accepts an uploaded document: spools it to disk,
// stores a processing-status record, and dispatches background analysis.
//
// Outputs:
//   - string: the new regulation ID.
//   - error: validation or persistence failure; nothing is dispatched then.
func (s *Service) CreateRegulation(ctx context.Context, filename string, data []byte, regulationType, jurisdiction, effectiveDate string) (string, error) {
	if s.analyzer == nil {
		return "", ErrAnalyzerUnavailable
	}
	if !extract.IsSupported(filename) {
		return "", fmt.Errorf("%w: %s", extract.ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return "", fmt.Errorf("file exceeds maximum upload size (%d bytes)", s.cfg.MaxUploadBytes)
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload directory: %w", err)
	}

	regID := uuid.New().String()
	spoolPath := filepath.Join(s.cfg.UploadDir, regID+filepath.Ext(filename))
	if err := os.WriteFile(spoolPath, data, 0o644); err != nil {
		return "", fmt.Errorf("spooling upload: %w", err)
	}

	reg := &datatypes.Regulation{
		ID:             regID,
		Filename:       filepath.Base(filename),
		RegulationType: regulationType,
		Jurisdiction:   jurisdiction,
		EffectiveDate:  effectiveDate,
		UploadedAt:     time.Now().UTC().Format(time.RFC3339),
		Status:         datatypes.RegulationStatusProcessing,
	}
	if err := s.regulations.Put(ctx, reg); err != nil {
		os.Remove(spoolPath)
		return "", err
	}

	s.events.Publish(regID, datatypes.RegulationStatusProcessing, "")
	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		s.processRegulation(s.baseCtx, reg, spoolPath)
	}()

	return regID, nil
}

// processRegulation runs the extract-analyze-persist pipeline for one
// spooled upload. The spool file is removed regardless of outcome.
func (s *Service) processRegulation(ctx context.Context, reg *datatypes.Regulation, spoolPath string) {
	defer os.Remove(spoolPath)

	logger := s.logger.With(slog.String("regulation_id", reg.ID))

	fail := func(cause error) {
		logger.Error("regulation processing failed", slog.Any("error", cause))
		reg.Status = datatypes.RegulationStatusError
		reg.Error = cause.Error()
		if err := s.regulations.Put(ctx, reg); err != nil {
			logger.Error("persisting error status failed", slog.Any("error", err))
		}
		s.events.Publish(reg.ID, datatypes.RegulationStatusError, cause.Error())
	}

	setStatus := func(status string) bool {
		reg.Status = status
		if err := s.regulations.Put(ctx, reg); err != nil {
			fail(fmt.Errorf("persisting status %s: %w", status, err))
			return false
		}
		s.events.Publish(reg.ID, status, "")
		return true
	}

	if !setStatus(datatypes.RegulationStatusExtracting) {
		return
	}

	data, err := os.ReadFile(spoolPath)
	if err != nil {
		fail(fmt.Errorf("reading spooled upload: %w", err))
		return
	}
	text, err := extract.Text(reg.Filename, data)
	if err != nil {
		fail(fmt.Errorf("extracting text: %w", err))
		return
	}
	if text == "" {
		fail(fmt.Errorf("document contains no extractable text"))
		return
	}
	reg.ExtractedText = text

	if !setStatus(datatypes.RegulationStatusAnalyzing) {
		return
	}

	analysis, err := s.analyzer.AnalyzeRegulation(ctx, text, reg.RegulationType, reg.Jurisdiction)
	if err != nil {
		fail(fmt.Errorf("analyzing regulation: %w", err))
		return
	}
	reg.Analysis = analysis

	if !setStatus(datatypes.RegulationStatusProcessed) {
		return
	}
	logger.Info("regulation processed",
		slog.String("filename", reg.Filename),
		slog.Int("text_chars", len(text)),
	)
}

// GetRegulation returns one regulation. ErrNotFound when absent.
func (s *Service) GetRegulation(ctx context.Context, id string) (*datatypes.Regulation, error) {
	reg, err := s.regulations.Get(ctx, id)
	if err != nil {
		if errors.Is(err, badgerstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

// ListRegulations lists stored regulations, newest first.
func (s *Service) ListRegulations(ctx context.Context, limit int) ([]*datatypes.Regulation, error) {
	return s.regulations.List(ctx, limit)
}

// SubscribeStatus subscribes to a regulation's processing events.
func (s *Service) SubscribeStatus(regulationID string) (<-chan StatusEvent, func()) {
	return s.events.Subscribe(regulationID)
}

// =============================================================================
// Checks
// =============================================================================

// RunCheck scores company policies against a processed regulation and
// persists the result.
//
// Outputs:
//   - *datatypes.ComplianceCheck: the stored check.
//   - error: ErrNotFound, ErrNotProcessed, or a storage/analysis failure.
func (s *Service) RunCheck(ctx context.Context, regulationID string, policies []string) (*datatypes.ComplianceCheck, error) {
	if s.analyzer == nil {
		return nil, ErrAnalyzerUnavailable
	}
	reg, err := s.GetRegulation(ctx, regulationID)
	if err != nil {
		return nil, err
	}
	if reg.Status != datatypes.RegulationStatusProcessed {
		return nil, fmt.Errorf("%w: status is %s", ErrNotProcessed, reg.Status)
	}

	result, err := s.analyzer.CheckCompliance(ctx, reg.ExtractedText, policies, reg.Analysis)
	if err != nil {
		return nil, fmt.Errorf("checking compliance: %w", err)
	}

	chk := &datatypes.ComplianceCheck{
		ID:           uuid.New().String(),
		RegulationID: regulationID,
		Policies:     policies,
		Result:       result,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.checks.Put(ctx, chk); err != nil {
		return nil, err
	}

	s.logger.Info("compliance check completed",
		slog.String("check_id", chk.ID),
		slog.String("regulation_id", regulationID),
		slog.String("status", result.OverallStatus),
		slog.Float64("score", result.ComplianceScore),
	)
	return chk, nil
}

// GetCheck returns one check. ErrNotFound when absent.
func (s *Service) GetCheck(ctx context.Context, id string) (*datatypes.ComplianceCheck, error) {
	chk, err := s.checks.Get(ctx, id)
	if err != nil {
		if errors.Is(err, badgerstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return chk, nil
}

// ListChecks lists checks, optionally filtered to one regulation.
func (s *Service) ListChecks(ctx context.Context, regulationID string, limit int) ([]*datatypes.ComplianceCheck, error) {
	if regulationID != "" {
		return s.checks.ListByRegulation(ctx, regulationID)
	}
	return s.checks.List(ctx, limit)
}

// =============================================================================
// Reports
// =============================================================================

// GenerateReport renders a report for a regulation from its stored
// checks and persists the metadata.
func (s *Service) GenerateReport(ctx context.Context, regulationID, format string, includeRecommendations bool) (*datatypes.Report, error) {
	if format == "" {
		format = datatypes.ReportFormatPDF
	}

	reg, err := s.GetRegulation(ctx, regulationID)
	if err != nil {
		return nil, err
	}

	checks, err := s.checks.ListByRegulation(ctx, regulationID)
	if err != nil {
		return nil, err
	}

	path, err := s.reporter.Generate(ctx, reg, checks, format, includeRecommendations)
	if err != nil {
		return nil, err
	}

	rpt := &datatypes.Report{
		ID:           uuid.New().String(),
		RegulationID: regulationID,
		Format:       format,
		FilePath:     path,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.reports.Put(ctx, rpt); err != nil {
		return nil, err
	}
	return rpt, nil
}

// GetReport returns one report's metadata. ErrNotFound when absent.
func (s *Service) GetReport(ctx context.Context, id string) (*datatypes.Report, error) {
	rpt, err := s.reports.Get(ctx, id)
	if err != nil {
		if errors.Is(err, badgerstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rpt, nil
}

// ListReports lists stored report metadata.
func (s *Service) ListReports(ctx context.Context, limit int) ([]*datatypes.Report, error) {
	return s.reports.List(ctx, limit)
}

// LatestReport returns the newest report for a regulation, generating a
// PDF one when none exists yet.
func (s *Service) LatestReport(ctx context.Context, regulationID string) (*datatypes.Report, error) {
	rpt, err := s.reports.LatestByRegulation(ctx, regulationID)
	if err == nil {
		return rpt, nil
	}
	if !errors.Is(err, badgerstore.ErrNotFound) {
		return nil, err
	}
	return s.GenerateReport(ctx, regulationID, datatypes.ReportFormatPDF, true)
}

// =============================================================================
// Monitoring
// =============================================================================

// AddSource registers a monitored regulatory source.
func (s *Service) AddSource(ctx context.Context, name, url, jurisdiction, regulationType string, dueDays int) (string, error) {
	if jurisdiction == "" {
		jurisdiction = "global"
	}
	if regulationType == "" {
		regulationType = "general"
	}

	src := &datatypes.Source{
		ID:             uuid.New().String(),
		Name:           name,
		URL:            url,
		Jurisdiction:   jurisdiction,
		RegulationType: regulationType,
		Enabled:        true,
		DueDays:        dueDays,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.sources.Put(ctx, src); err != nil {
		return "", err
	}
	return src.ID, nil
}

// ListSources lists monitored sources.
func (s *Service) ListSources(ctx context.Context) ([]*datatypes.Source, error) {
	return s.sources.List(ctx)
}

// DeleteSource removes a source and its stored versions.
func (s *Service) DeleteSource(ctx context.Context, id string) error {
	if _, err := s.sources.Get(ctx, id); err != nil {
		if errors.Is(err, badgerstore.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.sources.Delete(ctx, id)
}

// RunMonitor polls all enabled sources once.
func (s *Service) RunMonitor(ctx context.Context) (monitor.Summary, error) {
	if s.monitor == nil {
		return monitor.Summary{}, fmt.Errorf("source monitoring not configured")
	}
	return s.monitor.Run(ctx)
}
