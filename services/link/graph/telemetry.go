// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the package-level tracer for resolution operations.
var tracer = otel.Tracer("github.com/crosslinkhq/crosslink/services/link/graph")

// meter is the package-level meter for resolution metrics.
var meter = otel.Meter("github.com/crosslinkhq/crosslink/services/link/graph")

// Metric instruments, initialized lazily on first use.
var (
	metricsOnce     sync.Once
	resolveDuration metric.Float64Histogram
	edgesResolved   metric.Int64Counter
	refsUnresolved  metric.Int64Counter
)

// initMetrics creates the metric instruments. Called once.
func initMetrics() {
	var err error

	resolveDuration, err = meter.Float64Histogram(
		"crosslink.graph.resolve.duration",
		metric.WithDescription("Relationship resolution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		slog.Warn("failed to create resolve duration histogram", slog.String("error", err.Error()))
	}

	edgesResolved, err = meter.Int64Counter(
		"crosslink.graph.edges",
		metric.WithDescription("Relationship edges resolved"),
	)
	if err != nil {
		slog.Warn("failed to create edges counter", slog.String("error", err.Error()))
	}

	refsUnresolved, err = meter.Int64Counter(
		"crosslink.graph.unresolved",
		metric.WithDescription("References that failed resolution"),
	)
	if err != nil {
		slog.Warn("failed to create unresolved counter", slog.String("error", err.Error()))
	}
}

// startResolveSpan starts the tracing span for a resolution run.
func startResolveSpan(ctx context.Context, fileCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine.Resolve",
		trace.WithAttributes(
			attribute.Int("file_count", fileCount),
		),
	)
}

// setResolveSpanResult records the run outcome on the span.
func setResolveSpanResult(span trace.Span, edges, unresolved int) {
	span.SetAttributes(
		attribute.Int("edges", edges),
		attribute.Int("unresolved", unresolved),
	)
}

// recordResolveMetrics records duration and volume metrics for a run.
func recordResolveMetrics(ctx context.Context, d time.Duration, edges, unresolved int, ok bool) {
	metricsOnce.Do(initMetrics)

	outcome := "success"
	if !ok {
		outcome = "cancelled"
	}

	if resolveDuration != nil {
		resolveDuration.Record(ctx, d.Seconds(),
			metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if edgesResolved != nil && edges > 0 {
		edgesResolved.Add(ctx, int64(edges))
	}
	if refsUnresolved != nil && unresolved > 0 {
		refsUnresolved.Add(ctx, int64(unresolved))
	}
}
