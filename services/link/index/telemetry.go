// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

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

// tracer is the package-level tracer for index operations.
var tracer = otel.Tracer("github.com/crosslinkhq/crosslink/services/link/index")

// meter is the package-level meter for index metrics.
var meter = otel.Meter("github.com/crosslinkhq/crosslink/services/link/index")

// Metric instruments, initialized lazily on first use.
var (
	metricsOnce     sync.Once
	buildDuration   metric.Float64Histogram
	scopesIndexed   metric.Int64Counter
	buildsByOutcome metric.Int64Counter
)

// initMetrics creates the metric instruments. Called once.
func initMetrics() {
	var err error

	buildDuration, err = meter.Float64Histogram(
		"crosslink.index.build.duration",
		metric.WithDescription("Scope index build duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		slog.Warn("failed to create build duration histogram", slog.String("error", err.Error()))
	}

	scopesIndexed, err = meter.Int64Counter(
		"crosslink.index.scopes",
		metric.WithDescription("Total scopes indexed"),
	)
	if err != nil {
		slog.Warn("failed to create scopes counter", slog.String("error", err.Error()))
	}

	buildsByOutcome, err = meter.Int64Counter(
		"crosslink.index.builds",
		metric.WithDescription("Index builds by outcome"),
	)
	if err != nil {
		slog.Warn("failed to create builds counter", slog.String("error", err.Error()))
	}
}

// startBuildSpan starts the tracing span for an index build.
func startBuildSpan(ctx context.Context, fileCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ScopeIndex.Build",
		trace.WithAttributes(
			attribute.Int("file_count", fileCount),
		),
	)
}

// setBuildSpanResult records the build outcome on the span.
func setBuildSpanResult(span trace.Span, total, skipped int) {
	span.SetAttributes(
		attribute.Int("scopes_indexed", total),
		attribute.Int("scopes_skipped", skipped),
	)
}

// recordBuildMetrics records duration and volume metrics for a build.
func recordBuildMetrics(ctx context.Context, d time.Duration, total int, ok bool) {
	metricsOnce.Do(initMetrics)

	outcome := "success"
	if !ok {
		outcome = "cancelled"
	}

	if buildDuration != nil {
		buildDuration.Record(ctx, d.Seconds())
	}
	if scopesIndexed != nil && total > 0 {
		scopesIndexed.Add(ctx, int64(total))
	}
	if buildsByOutcome != nil {
		buildsByOutcome.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}
