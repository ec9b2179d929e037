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
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crosslinkhq/crosslink/services/link/scope"
)

// DefaultMaxScopes is the default maximum number of scopes the index can hold.
const DefaultMaxScopes = 1_000_000

// MappingEntry is the derived index record for one scope.
//
// Created once per scope during Build and immutable afterward. Entries are
// never deleted within a resolution run; the index is rebuilt wholesale on
// re-analysis.
type MappingEntry struct {
	// UUID is the deterministic identity (see ScopeUUID).
	UUID string `json:"uuid"`

	// File is the project-relative defining file.
	File string `json:"file"`

	// Type is the scope's kind.
	Type scope.ScopeType `json:"type"`

	// Name is the declared name.
	Name string `json:"name"`

	// Signature is the rendered declaration text, when available.
	Signature string `json:"signature,omitempty"`

	// Parent names the enclosing same-file scope, when nested.
	Parent string `json:"parent,omitempty"`

	// StartLine and EndLine delimit the declaration.
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`
}

// BuildOptions configures index construction.
type BuildOptions struct {
	// MaxScopes caps the number of entries. Files past the cap are dropped
	// with a warning rather than failing the build.
	// Default: 1,000,000
	MaxScopes int

	// WorkerCount is the number of parallel per-file workers.
	// Default: runtime.NumCPU()
	WorkerCount int
}

// BuildOption is a functional option for configuring Build.
type BuildOption func(*BuildOptions)

// WithMaxScopes sets the maximum number of entries the index can hold.
func WithMaxScopes(max int) BuildOption {
	return func(o *BuildOptions) {
		o.MaxScopes = max
	}
}

// WithWorkerCount sets the number of parallel per-file workers.
func WithWorkerCount(n int) BuildOption {
	return func(o *BuildOptions) {
		o.WorkerCount = n
	}
}

// Stats contains statistics about a built index.
type Stats struct {
	// TotalScopes is the number of entries in the index.
	TotalScopes int

	// ByType maps each scope type to its entry count.
	ByType map[scope.ScopeType]int

	// FileCount is the number of files contributing entries.
	FileCount int

	// SkippedScopes counts scopes dropped for failing validation.
	SkippedScopes int

	// BuildMillis is the wall-clock build duration in milliseconds.
	BuildMillis int64
}

// ScopeIndex is the global scope index: every scope in the analyzed corpus,
// keyed by name (one-to-many) and by uuid (one-to-one).
//
// Thread Safety:
//
//	ScopeIndex is immutable after Build returns and safe for unsynchronized
//	concurrent reads. There are no mutating methods.
//
// Ownership:
//
//	The index stores pointers to the walkers' scopes but does NOT own them.
//	Scopes MUST NOT be mutated after being passed to Build.
type ScopeIndex struct {
	byName map[string][]*MappingEntry
	byUUID map[string]*MappingEntry
	byFile map[string][]*MappingEntry

	// byScope resolves a source scope back to its entry in O(1) during
	// Phase 2, avoiding identity re-hashing on the hot path.
	byScope map[*scope.Scope]*MappingEntry

	stats Stats
}

// fileEntries is the per-file map output of the parallel build phase.
type fileEntries struct {
	path    string
	entries []*MappingEntry
	scopes  []*scope.Scope // parallel to entries
	skipped int
}

// Build constructs the global scope index from parsed files.
//
// Description:
//
//	Assigns every valid scope a deterministic identity and indexes it by
//	name, uuid, and file. Per-file identity computation has no cross-file
//	dependencies and runs on a bounded worker pool; results are reduced in
//	sorted file order so name-bucket ordering is deterministic, which the
//	engine's first-match tie-breaks depend on.
//
//	Scopes failing validation are skipped with a warning, never fatal.
//	Duplicate (name, file) pairs are both retained as separate entries.
//
// Inputs:
//
//	ctx - Context for cancellation, checked between files.
//	files - Walker output keyed by project-relative path.
//
// Outputs:
//
//	*ScopeIndex - The built index. Never nil on nil error.
//	error - Non-nil only on context cancellation.
//
// Thread Safety: Safe for concurrent use (no shared state across calls).
func Build(ctx context.Context, files map[string]*scope.ParsedFile, opts ...BuildOption) (*ScopeIndex, error) {
	options := BuildOptions{
		MaxScopes:   DefaultMaxScopes,
		WorkerCount: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.WorkerCount <= 0 {
		options.WorkerCount = runtime.NumCPU()
	}

	ctx, span := startBuildSpan(ctx, len(files))
	defer span.End()
	start := time.Now()

	// Sorted paths give the reduce phase a stable order.
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	// Map phase: per-file entry computation, pure, parallel.
	results := make([]*fileEntries, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(options.WorkerCount)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = indexFile(p, files[p])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		recordBuildMetrics(ctx, time.Since(start), 0, false)
		return nil, ErrBuildCancelled
	}

	// Reduce phase: single-threaded merge into the shared maps.
	idx := &ScopeIndex{
		byName:  make(map[string][]*MappingEntry),
		byUUID:  make(map[string]*MappingEntry),
		byFile:  make(map[string][]*MappingEntry),
		byScope: make(map[*scope.Scope]*MappingEntry),
	}
	byType := make(map[scope.ScopeType]int)

	for _, fe := range results {
		if fe == nil {
			continue
		}
		idx.stats.SkippedScopes += fe.skipped
		for j, e := range fe.entries {
			if idx.stats.TotalScopes >= options.MaxScopes {
				slog.Warn("scope index at capacity, dropping remaining scopes",
					slog.String("file", fe.path),
					slog.Int("max_scopes", options.MaxScopes),
					slog.String("error", ErrMaxScopesExceeded.Error()),
				)
				break
			}
			idx.byName[e.Name] = append(idx.byName[e.Name], e)
			idx.byUUID[e.UUID] = e
			idx.byFile[e.File] = append(idx.byFile[e.File], e)
			idx.byScope[fe.scopes[j]] = e
			byType[e.Type]++
			idx.stats.TotalScopes++
		}
	}

	idx.stats.ByType = byType
	idx.stats.FileCount = len(idx.byFile)
	idx.stats.BuildMillis = time.Since(start).Milliseconds()

	setBuildSpanResult(span, idx.stats.TotalScopes, idx.stats.SkippedScopes)
	recordBuildMetrics(ctx, time.Since(start), idx.stats.TotalScopes, true)

	return idx, nil
}

// indexFile computes mapping entries for one parsed file.
func indexFile(path string, pf *scope.ParsedFile) *fileEntries {
	fe := &fileEntries{path: path}
	if pf == nil {
		return fe
	}

	for _, s := range pf.Scopes {
		if err := s.Validate(); err != nil {
			slog.Warn("skipping malformed scope",
				slog.String("file", path),
				slog.String("error", err.Error()),
			)
			fe.skipped++
			continue
		}

		fe.entries = append(fe.entries, &MappingEntry{
			UUID:      ScopeUUID(s),
			File:      s.File,
			Type:      s.Type,
			Name:      s.Name,
			Signature: s.Signature,
			Parent:    s.Parent,
			StartLine: s.StartLine,
			EndLine:   s.EndLine,
		})
		fe.scopes = append(fe.scopes, s)
	}

	return fe
}

// ByName retrieves all entries with the given name, across all files.
//
// The returned slice is shared and MUST NOT be modified by the caller.
func (idx *ScopeIndex) ByName(name string) []*MappingEntry {
	return idx.byName[name]
}

// ByNameInFile retrieves entries with the given name defined in one file.
func (idx *ScopeIndex) ByNameInFile(name, file string) []*MappingEntry {
	var out []*MappingEntry
	for _, e := range idx.byName[name] {
		if e.File == file {
			out = append(out, e)
		}
	}
	return out
}

// ByUUID retrieves the entry with the given identity.
func (idx *ScopeIndex) ByUUID(id string) (*MappingEntry, bool) {
	e, ok := idx.byUUID[id]
	return e, ok
}

// ByFile retrieves all entries defined in the given file.
//
// The returned slice is shared and MUST NOT be modified by the caller.
func (idx *ScopeIndex) ByFile(file string) []*MappingEntry {
	return idx.byFile[file]
}

// EntryFor resolves a source scope back to its mapping entry.
//
// Returns nil for scopes that were skipped during Build (validation
// failures) or that were never part of the indexed input.
func (idx *ScopeIndex) EntryFor(s *scope.Scope) *MappingEntry {
	return idx.byScope[s]
}

// Entries returns all entries sorted by uuid, for deterministic iteration
// and serialization.
func (idx *ScopeIndex) Entries() []*MappingEntry {
	out := make([]*MappingEntry, 0, len(idx.byUUID))
	for _, e := range idx.byUUID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out
}

// Stats returns build statistics.
func (idx *ScopeIndex) Stats() Stats {
	return idx.stats
}
