// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

// =============================================================================
// OTel Tracer
// =============================================================================

var tracer = otel.Tracer("insight.nlq")

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "insight",
		Subsystem: "resolver",
		Name:      "queries_total",
		Help:      "Resolved analytics questions by outcome: matched, no_match",
	}, []string{"outcome"})

	resolveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "insight",
		Subsystem: "resolver",
		Name:      "latency_seconds",
		Help:      "Intent resolution latency",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})

	resolveConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "insight",
		Subsystem: "resolver",
		Name:      "confidence",
		Help:      "Primary-intent confidence of matched questions",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.5, 0.7, 0.9, 1.0},
	})

	synthTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "insight",
		Subsystem: "synthesizer",
		Name:      "queries_total",
		Help:      "Synthesized questions by outcome: rendered, missing_param, no_match",
	}, []string{"outcome"})

	synthLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "insight",
		Subsystem: "synthesizer",
		Name:      "latency_seconds",
		Help:      "Query synthesis latency (ranking + rendering, excluding execution)",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})

	executeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "insight",
		Subsystem: "synthesizer",
		Name:      "executions_total",
		Help:      "Warehouse executions of rendered queries by outcome: success, error",
	}, []string{"outcome"})

	executeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "insight",
		Subsystem: "synthesizer",
		Name:      "execution_latency_seconds",
		Help:      "Warehouse execution latency of rendered queries",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	})
)
