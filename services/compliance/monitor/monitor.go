// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package monitor polls remote regulatory sources and detects content
// changes by hash comparison. A changed source gets a stored version with
// a unified diff against the previous observation, plus an auto-created
// regulation record analyzed like a normal upload.
package monitor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianComply/services/compliance/datatypes"
	badgerstore "github.com/AleutianAI/AleutianComply/services/compliance/storage/badger"
)

const (
	fetchTimeout      = 30 * time.Second
	snippetMaxChars   = 200
	extractedMaxChars = 10000
	maxBodyBytes      = 4 << 20
)

// regulationAnalyzer is the slice of the analyzer the monitor needs.
type regulationAnalyzer interface {
	AnalyzeRegulation(ctx context.Context, text, regulationType, jurisdiction string) (*datatypes.RegulationAnalysis, error)
}

// Summary reports one monitoring pass.
type Summary struct {
	Checked int `json:"checked"`
	Changes int `json:"changes"`
	Errors  int `json:"errors"`
}

// Monitor fetches enabled sources and records changed content.
//
// Thread Safety: Safe for concurrent use; Run may be invoked from both
// the scheduler and the HTTP trigger.
type Monitor struct {
	sources     *badgerstore.SourceStore
	regulations *badgerstore.RegulationStore
	analyzer    regulationAnalyzer
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger

	// maxParallel bounds concurrent source fetches.
	maxParallel int
}

// Options tunes a Monitor.
type Options struct {
	// MaxParallel bounds concurrent fetches. Default 4.
	MaxParallel int

	// RequestsPerSecond rate-limits outbound fetches across all sources.
	// Default 2.
	RequestsPerSecond float64

	// HTTPClient overrides the default 30s-timeout client, mainly for
	// tests.
	HTTPClient *http.Client
}

// New creates a Monitor.
func New(sources *badgerstore.SourceStore, regulations *badgerstore.RegulationStore, an regulationAnalyzer, logger *slog.Logger, opts Options) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 4
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Monitor{
		sources:     sources,
		regulations: regulations,
		analyzer:    an,
		httpClient:  client,
		limiter:     rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		logger:      logger,
		maxParallel: opts.MaxParallel,
	}
}

// Run checks every enabled source once.
//
// Description:
//
//	Fetches sources in parallel (bounded), isolating failures: one
//	source erroring is logged and counted, the rest still run. Returns
//	an error only when the source list itself cannot be read or the
//	context is cancelled.
func (m *Monitor) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	sources, err := m.sources.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("listing sources: %w", err)
	}

	var checked, changes, errCount atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.maxParallel)
	for _, src := range sources {
		if !src.Enabled {
			continue
		}
		checked.Add(1)
		g.Go(func() error {
			changed, err := m.checkSource(gctx, src)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				errCount.Add(1)
				m.logger.Error("source check failed",
					slog.String("source_id", src.ID),
					slog.String("url", src.URL),
					slog.Any("error", err),
				)
				return nil
			}
			if changed {
				changes.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Checked: int(checked.Load()),
		Changes: int(changes.Load()),
		Errors:  int(errCount.Load()),
	}
	recordMonitorRun(summary, time.Since(start).Seconds())
	m.logger.Info("monitor run completed",
		slog.Int("checked", summary.Checked),
		slog.Int("changes", summary.Changes),
		slog.Int("errors", summary.Errors),
	)
	return summary, nil
}

// checkSource fetches a source and reports whether its content changed
// since the last observation.
func (m *Monitor) checkSource(ctx context.Context, src *datatypes.Source) (bool, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return false, err
	}

	content, err := m.fetch(ctx, src.URL)
	if err != nil {
		return false, err
	}

	sum := sha256.Sum256([]byte(content))
	hash := hex.EncodeToString(sum[:])

	prev, err := m.sources.LatestVersion(ctx, src.ID)
	if err != nil {
		if !errors.Is(err, badgerstore.ErrNotFound) {
			return false, fmt.Errorf("reading last version: %w", err)
		}
		prev = nil
	}
	if prev != nil && prev.Hash == hash {
		return false, nil
	}

	snippet := content
	if len(snippet) > snippetMaxChars {
		snippet = snippet[:snippetMaxChars]
	}

	ver := &datatypes.SourceVersion{
		ID:             uuid.New().String(),
		SourceID:       src.ID,
		FetchedAtMilli: time.Now().UnixMilli(),
		Hash:           hash,
		Snippet:        snippet,
	}
	if prev != nil {
		ver.Diff = unifiedDiff(prev.Snippet, snippet)
	}
	if err := m.sources.PutVersion(ctx, ver); err != nil {
		return false, fmt.Errorf("storing version: %w", err)
	}

	if err := m.createRegulation(ctx, src, content); err != nil {
		return false, fmt.Errorf("creating regulation from source: %w", err)
	}

	m.logger.Info("source content changed",
		slog.String("source_id", src.ID),
		slog.String("hash", hash),
	)
	return true, nil
}

// createRegulation stores the changed content as a processed regulation,
// analyzed the same way as an uploaded document.
func (m *Monitor) createRegulation(ctx context.Context, src *datatypes.Source, content string) error {
	text := content
	if len(text) > extractedMaxChars {
		text = text[:extractedMaxChars]
	}

	analysis, err := m.analyzer.AnalyzeRegulation(ctx, text, src.RegulationType, src.Jurisdiction)
	if err != nil {
		return err
	}

	reg := &datatypes.Regulation{
		ID:             uuid.New().String(),
		Filename:       fmt.Sprintf("monitor_%s.txt", src.Name),
		RegulationType: src.RegulationType,
		Jurisdiction:   src.Jurisdiction,
		ExtractedText:  text,
		Analysis:       analysis,
		UploadedAt:     time.Now().UTC().Format(time.RFC3339),
		Status:         datatypes.RegulationStatusProcessed,
	}
	return m.regulations.Put(ctx, reg)
}

func (m *Monitor) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(body), nil
}

// unifiedDiff renders a patch-format diff between two content snippets.
func unifiedDiff(old, new string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(old, new, false)
	patches := dmp.PatchMake(old, diffs)
	return dmp.PatchToText(patches)
}
