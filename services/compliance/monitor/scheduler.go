// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package monitor

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler runs the monitor on a fixed interval until its context is
// cancelled.
type Scheduler struct {
	monitor  *Monitor
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler. Interval defaults to 30 minutes.
func NewScheduler(m *Monitor, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{monitor: m, interval: interval, logger: logger}
}

// Start blocks, running a monitoring pass every interval. It returns when
// ctx is cancelled. Run errors are logged, not fatal; the next tick still
// fires.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("monitor scheduler started",
		slog.Duration("interval", s.interval),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("monitor scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.monitor.Run(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("scheduled monitor run failed", slog.Any("error", err))
			}
		}
	}
}
