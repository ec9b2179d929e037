// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package link wires the two-phase analysis pipeline: global scope index
// build, then relationship resolution.
package link

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crosslinkhq/crosslink/services/link/graph"
	"github.com/crosslinkhq/crosslink/services/link/index"
	"github.com/crosslinkhq/crosslink/services/link/resolver"
	"github.com/crosslinkhq/crosslink/services/link/scope"
)

// AnalyzeOptions configures one analysis run.
type AnalyzeOptions struct {
	// WorkerCount bounds parallelism in both phases.
	// Default: runtime.NumCPU() (resolved by the phases themselves).
	WorkerCount int

	// Registry supplies per-language import resolvers. May be nil; all
	// import-mediated references then resolve through name-search fallback.
	Registry *resolver.Registry
}

// AnalyzeOption is a functional option for Analyze.
type AnalyzeOption func(*AnalyzeOptions)

// WithWorkerCount bounds parallelism in both phases.
func WithWorkerCount(n int) AnalyzeOption {
	return func(o *AnalyzeOptions) {
		o.WorkerCount = n
	}
}

// WithRegistry supplies the import resolver registry.
func WithRegistry(reg *resolver.Registry) AnalyzeOption {
	return func(o *AnalyzeOptions) {
		o.Registry = reg
	}
}

// Analyze runs the full pipeline over a parsed corpus.
//
// Description:
//
//	Phase 1 builds the global scope index over ALL files; Phase 2 resolves
//	relationships against it. The phase barrier is load-bearing: an import
//	in file A may target a scope defined in a file indexed after A, so
//	resolution must never start before indexing finishes.
//
// Inputs:
//
//	ctx - Context for cancellation. The two-phase call carries no timeout
//	      of its own; partial results are not surfaced on abort.
//	files - Walker output keyed by project-relative path.
//
// Outputs:
//
//	*graph.Result - Edges, diagnostics, index, and stats.
//	error - Non-nil only on context cancellation.
//
// Thread Safety: Safe for concurrent use.
func Analyze(ctx context.Context, files map[string]*scope.ParsedFile, opts ...AnalyzeOption) (*graph.Result, error) {
	var options AnalyzeOptions
	for _, opt := range opts {
		opt(&options)
	}

	phase1 := time.Now()
	idx, err := index.Build(ctx, files, index.WithWorkerCount(options.WorkerCount))
	if err != nil {
		return nil, fmt.Errorf("index build: %w", err)
	}
	slog.Debug("scope index built",
		slog.Int("scopes", idx.Stats().TotalScopes),
		slog.Int("files", idx.Stats().FileCount),
		slog.Duration("elapsed", time.Since(phase1)),
	)

	engine := graph.NewEngine(graph.WithWorkerCount(options.WorkerCount))
	result, err := engine.Resolve(ctx, files, idx, options.Registry)
	if err != nil {
		return nil, fmt.Errorf("relationship resolution: %w", err)
	}
	slog.Debug("relationships resolved",
		slog.Int("edges", result.Stats.TotalRelationships),
		slog.Int("unresolved", result.Stats.UnresolvedCount),
	)

	return result, nil
}
