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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// monitorRunsTotal counts completed monitoring passes.
	monitorRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "comply",
		Subsystem: "monitor",
		Name:      "runs_total",
		Help:      "Total completed monitoring passes",
	})

	// monitorSourcesTotal counts per-source outcomes across runs.
	// Labels: outcome (unchanged, changed, error)
	monitorSourcesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "comply",
		Subsystem: "monitor",
		Name:      "sources_total",
		Help:      "Per-source check outcomes across monitoring passes",
	}, []string{"outcome"})

	// monitorRunSeconds measures full-pass duration.
	monitorRunSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "comply",
		Subsystem: "monitor",
		Name:      "run_seconds",
		Help:      "Duration of a full monitoring pass",
		Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
	})
)

func recordMonitorRun(s Summary, durationSec float64) {
	monitorRunsTotal.Inc()
	monitorRunSeconds.Observe(durationSec)
	monitorSourcesTotal.WithLabelValues("changed").Add(float64(s.Changes))
	monitorSourcesTotal.WithLabelValues("error").Add(float64(s.Errors))
	unchanged := s.Checked - s.Changes - s.Errors
	if unchanged > 0 {
		monitorSourcesTotal.WithLabelValues("unchanged").Add(float64(unchanged))
	}
}
