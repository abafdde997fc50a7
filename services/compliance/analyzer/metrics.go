// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Compliance Analysis
// =============================================================================

var (
	// analysisCallsTotal counts model analysis calls by operation and outcome.
	// Labels: operation (analyze_regulation, check_compliance),
	// status (ok, fallback)
	analysisCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "comply",
		Subsystem: "analyzer",
		Name:      "calls_total",
		Help:      "Total model analysis calls by operation and outcome",
	}, []string{"operation", "status"})

	// analysisFallbacksTotal counts fallback results by operation and cause.
	// Labels: operation, reason (api_error, parse_error)
	analysisFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "comply",
		Subsystem: "analyzer",
		Name:      "fallbacks_total",
		Help:      "Total fallback analysis results by operation and cause",
	}, []string{"operation", "reason"})

	// analysisLatencySeconds measures end-to-end analysis latency.
	// Labels: operation
	analysisLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "comply",
		Subsystem: "analyzer",
		Name:      "latency_seconds",
		Help:      "End-to-end model analysis latency",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"operation"})

	// analysisPromptChars tracks prompt sizes sent to the model, a rough
	// proxy for token consumption.
	// Labels: operation
	analysisPromptChars = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "comply",
		Subsystem: "analyzer",
		Name:      "prompt_chars_total",
		Help:      "Total prompt characters sent to the model by operation",
	}, []string{"operation"})
)

func recordPromptSize(operation string, chars int) {
	analysisPromptChars.WithLabelValues(operation).Add(float64(chars))
}

func recordAnalysisOK(operation string, durationSec float64) {
	analysisCallsTotal.WithLabelValues(operation, "ok").Inc()
	analysisLatencySeconds.WithLabelValues(operation).Observe(durationSec)
}

func recordAnalysisFallback(operation, reason string, durationSec float64) {
	analysisCallsTotal.WithLabelValues(operation, "fallback").Inc()
	analysisFallbacksTotal.WithLabelValues(operation, reason).Inc()
	analysisLatencySeconds.WithLabelValues(operation).Observe(durationSec)
}
