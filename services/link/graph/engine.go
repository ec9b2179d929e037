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
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crosslinkhq/crosslink/services/link/index"
	"github.com/crosslinkhq/crosslink/services/link/resolver"
	"github.com/crosslinkhq/crosslink/services/link/scope"
)

// EngineOptions configures Engine behavior.
type EngineOptions struct {
	// WorkerCount is the number of parallel per-file workers.
	// Default: runtime.NumCPU()
	WorkerCount int
}

// EngineOption is a functional option for configuring Engine.
type EngineOption func(*EngineOptions)

// WithWorkerCount sets the number of parallel per-file workers.
func WithWorkerCount(n int) EngineOption {
	return func(o *EngineOptions) {
		o.WorkerCount = n
	}
}

// Engine derives typed relationships from an indexed scope corpus.
//
// The engine is stateless and can be reused across runs: each Resolve call
// operates on its own local state.
//
// Thread Safety: Engine is safe for concurrent use.
type Engine struct {
	options EngineOptions
}

// NewEngine creates an Engine with the given options.
func NewEngine(opts ...EngineOption) *Engine {
	options := EngineOptions{WorkerCount: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.WorkerCount <= 0 {
		options.WorkerCount = runtime.NumCPU()
	}
	return &Engine{options: options}
}

// Stats summarizes one resolution run.
type Stats struct {
	// TotalScopes is the number of indexed scopes the run covered.
	TotalScopes int `json:"totalScopes"`

	// TotalRelationships counts all edges, inverses included.
	TotalRelationships int `json:"totalRelationships"`

	// ByType counts edges per relationship type.
	ByType map[RelType]int `json:"byType"`

	// UnresolvedCount is the number of unresolved reference records.
	UnresolvedCount int `json:"unresolvedCount"`

	// FilesAnalyzed is the number of input files.
	FilesAnalyzed int `json:"filesAnalyzed"`

	// ResolutionTimeMillis is the wall-clock duration of the Resolve call.
	// Index build time is not included; the caller times that phase.
	ResolutionTimeMillis int64 `json:"resolutionTimeMs"`
}

// Result is the output of one resolution run.
type Result struct {
	// Relationships holds every derived edge, forward and inverse.
	Relationships []Relationship

	// Unresolved holds the diagnostic records for references that could
	// not be linked.
	Unresolved []UnresolvedReference

	// Index is the scope index the run resolved against; it carries the
	// scope mapping (by name) and uuid mapping (by identity).
	Index *index.ScopeIndex

	// Stats summarizes the run.
	Stats Stats
}

// fileOutput is one worker's private buffers. Workers never share buffers;
// Resolve concatenates them after the pool drains.
type fileOutput struct {
	rels       []Relationship
	unresolved []UnresolvedReference
}

// Resolve derives relationships for every scope in every file.
//
// Description:
//
//	Phase 2 of the pipeline. The index must already cover ALL parsed files
//	(Phase 1 barrier): an import in file A may target a scope defined in a
//	file indexed after A. Resolution is read-only against the index and
//	fans out per file over a bounded worker pool.
//
//	Five sub-passes run per scope: local references, import-mediated
//	references, unknown-reference fallback, structural containment, and
//	decoration. Inverse edges are generated last from the concatenated
//	forward set. Nothing in this path raises on ambiguity or missing
//	configuration — failed resolutions degrade to UnresolvedReference
//	records.
//
// Inputs:
//
//	ctx - Context for cancellation. Partial results are not meaningful;
//	      a cancelled run returns a nil Result.
//	files - Walker output keyed by project-relative path. Must be the same
//	        set the index was built from.
//	idx - The global scope index.
//	reg - Import resolver registry. May be nil; every import-mediated
//	      reference then resolves through the name-search fallback.
//
// Outputs:
//
//	*Result - The edge set, diagnostics, and stats. Nil on error.
//	error - Non-nil only on context cancellation.
//
// Thread Safety: Safe for concurrent use.
func (e *Engine) Resolve(ctx context.Context, files map[string]*scope.ParsedFile, idx *index.ScopeIndex, reg *resolver.Registry) (*Result, error) {
	ctx, span := startResolveSpan(ctx, len(files))
	defer span.End()
	start := time.Now()

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	outputs := make([]*fileOutput, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.options.WorkerCount)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outputs[i] = e.resolveFile(gctx, files[p], idx, reg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		recordResolveMetrics(ctx, time.Since(start), 0, 0, false)
		return nil, err
	}

	result := &Result{Index: idx}
	for _, out := range outputs {
		if out == nil {
			continue
		}
		result.Relationships = append(result.Relationships, out.rels...)
		result.Unresolved = append(result.Unresolved, out.unresolved...)
	}

	result.Relationships = append(result.Relationships, GenerateInverses(result.Relationships)...)

	byType := make(map[RelType]int)
	for _, r := range result.Relationships {
		byType[r.Type]++
	}
	result.Stats = Stats{
		TotalScopes:          idx.Stats().TotalScopes,
		TotalRelationships:   len(result.Relationships),
		ByType:               byType,
		UnresolvedCount:      len(result.Unresolved),
		FilesAnalyzed:        len(files),
		ResolutionTimeMillis: time.Since(start).Milliseconds(),
	}

	setResolveSpanResult(span, len(result.Relationships), len(result.Unresolved))
	recordResolveMetrics(ctx, time.Since(start), len(result.Relationships), len(result.Unresolved), true)

	return result, nil
}

// resolveFile runs all sub-passes for one file into a private buffer.
func (e *Engine) resolveFile(ctx context.Context, pf *scope.ParsedFile, idx *index.ScopeIndex, reg *resolver.Registry) *fileOutput {
	out := &fileOutput{}
	if pf == nil {
		return out
	}

	for _, s := range pf.Scopes {
		src := idx.EntryFor(s)
		if src == nil {
			// Skipped at index time (malformed); skip resolution too.
			continue
		}

		e.passLocal(s, src, idx, out)
		e.passImports(ctx, pf, s, src, idx, reg, out)
		e.passUnknown(s, src, idx, out)
		e.passContainment(s, src, idx, out)
		e.passDecorators(s, src, idx, out)
	}

	return out
}

// emit appends one edge, refusing self-edges.
func (o *fileOutput) emit(t RelType, src, dst *index.MappingEntry, md Metadata) {
	if src.UUID == dst.UUID {
		return
	}
	o.rels = append(o.rels, Relationship{
		Type:     t,
		FromUUID: src.UUID,
		ToUUID:   dst.UUID,
		FromFile: src.File,
		ToFile:   dst.File,
		FromName: src.Name,
		ToName:   dst.Name,
		FromType: src.Type,
		ToType:   dst.Type,
		Metadata: md,
	})
}

// miss appends one unresolved-reference record.
func (o *fileOutput) miss(src *index.MappingEntry, identifier, resolution, reason string, candidates []Candidate) {
	o.unresolved = append(o.unresolved, UnresolvedReference{
		FromUUID:   src.UUID,
		FromFile:   src.File,
		FromName:   src.Name,
		Identifier: identifier,
		Resolution: resolution,
		Reason:     reason,
		Candidates: candidates,
	})
}

// relRank orders relationship types when several references hit the same
// target pair: heritage classifications outrank plain usage, so a pair
// classified INHERITS_FROM never also carries a CONSUMES edge.
func relRank(t RelType) int {
	if t == RelInheritsFrom || t == RelImplements {
		return 1
	}
	return 0
}

// passLocal links identifier references classified local_scope against
// same-file scopes. When a same-name symbol also exists in another file,
// the local classification pins resolution to the same-file entry.
func (e *Engine) passLocal(s *scope.Scope, src *index.MappingEntry, idx *index.ScopeIndex, out *fileOutput) {
	type pending struct {
		rel RelType
		md  Metadata
	}
	best := make(map[string]pending) // target uuid → edge
	targets := make(map[string]*index.MappingEntry)
	var order []string

	for _, ref := range s.IdentifierReferences {
		if ref.Kind != scope.RefKindLocal {
			continue
		}

		cands := excludeUUID(idx.ByNameInFile(ref.Identifier, s.File), src.UUID)
		target, ok := pickFirstByValueType(cands)
		if !ok {
			out.miss(src, ref.Identifier, ResolutionLocal, "no scope with this name in file", nil)
			continue
		}

		rel := Classify(s, target, ref.Context)
		prev, seen := best[target.UUID]
		if !seen {
			best[target.UUID] = pending{rel: rel, md: Metadata{Context: ref.Context}}
			targets[target.UUID] = target
			order = append(order, target.UUID)
			continue
		}
		if relRank(rel) > relRank(prev.rel) {
			best[target.UUID] = pending{rel: rel, md: Metadata{Context: ref.Context}}
		}
	}

	for _, id := range order {
		p := best[id]
		out.emit(p.rel, src, targets[id], p.md)
	}
}

// importUsage pairs an import reference with the identifier usages that
// exercise it.
type importUsage struct {
	imp  scope.ImportReference
	refs []scope.IdentifierReference
}

// passImports links import-mediated references: resolver-backed when the
// language's import resolver can map the specifier to a file, name-search
// fallback otherwise.
func (e *Engine) passImports(ctx context.Context, pf *scope.ParsedFile, s *scope.Scope, src *index.MappingEntry, idx *index.ScopeIndex, reg *resolver.Registry, out *fileOutput) {
	imports := append([]scope.ImportReference(nil), s.ImportReferences...)
	refs := importKindRefs(s)

	// A class transitively uses whatever its same-file methods and
	// constructors use.
	if s.Type == scope.TypeClass {
		for _, child := range pf.Scopes {
			if child.Parent != s.Name {
				continue
			}
			if child.Type != scope.TypeMethod && child.Type != scope.TypeConstructor {
				continue
			}
			imports = append(imports, child.ImportReferences...)
			refs = append(refs, importKindRefs(child)...)
		}
	}

	seen := make(map[string]bool) // dedup per (source, target name)
	for _, usage := range matchUsages(imports, refs) {
		for _, target := range usage.targets() {
			key := usage.imp.Source + "\x00" + target.name
			if seen[key] {
				continue
			}
			seen[key] = true

			e.resolveImportTarget(ctx, s, src, idx, reg, usage.imp, target, out)
		}
	}
}

// importTarget is one symbol an import usage wants linked.
type importTarget struct {
	name    string
	context string
}

// targets lists the symbols an import usage references. Named and default
// imports yield the imported symbol itself; namespace imports yield every
// member accessed through the namespace alias.
func (u importUsage) targets() []importTarget {
	if u.imp.Imported != "*" {
		t := importTarget{name: u.imp.Imported}
		for _, ref := range u.refs {
			if ref.Context != "" {
				t.context = ref.Context
				break
			}
		}
		return []importTarget{t}
	}

	local := u.imp.LocalName()
	var out []importTarget
	seen := make(map[string]bool)
	for _, ref := range u.refs {
		if ref.Qualifier != local || seen[ref.Identifier] {
			continue
		}
		seen[ref.Identifier] = true
		out = append(out, importTarget{name: ref.Identifier, context: ref.Context})
	}
	return out
}

// matchUsages pairs each import with the identifier references that use it.
// Unused imports (no matching reference) produce no edges; side-effect
// imports carry no symbol at all.
func matchUsages(imports []scope.ImportReference, refs []scope.IdentifierReference) []importUsage {
	var out []importUsage
	for _, imp := range imports {
		if imp.Kind == scope.ImportKindSideEffect {
			continue
		}
		local := imp.LocalName()
		var matched []scope.IdentifierReference
		for _, ref := range refs {
			if ref.Source == imp.Source || ref.Identifier == local || ref.Qualifier == local {
				matched = append(matched, ref)
			}
		}
		if len(matched) == 0 {
			continue
		}
		out = append(out, importUsage{imp: imp, refs: matched})
	}
	return out
}

// resolveImportTarget links one imported symbol: resolver-restricted lookup
// first, global name-search fallback second, unresolved record last.
func (e *Engine) resolveImportTarget(ctx context.Context, s *scope.Scope, src *index.MappingEntry, idx *index.ScopeIndex, reg *resolver.Registry, imp scope.ImportReference, target importTarget, out *fileOutput) {
	md := Metadata{
		Context:    target.context,
		ViaImport:  true,
		ImportPath: imp.Source,
	}

	if res := resolverFor(reg, s.File); res != nil {
		abs, err := res.ResolveImport(ctx, imp.Source, s.File)
		if err == nil && abs != "" {
			// Barrel files re-export symbols defined elsewhere; chase the
			// chain when the resolver knows how.
			if follower, ok := res.(resolver.ReExportFollower); ok {
				if defining := follower.FollowReExports(ctx, abs, target.name); defining != "" {
					abs = defining
				}
			}

			rel := res.GetRelativePath(abs)
			if entry, ok := pickFirstByValueType(idx.ByNameInFile(target.name, rel)); ok {
				out.emit(Classify(s, entry, target.context), src, entry, md)
				return
			}
			// Resolved file defines no such scope; fall through to the
			// global search rather than dropping a likely-real edge.
		} else if err != nil && ctx.Err() != nil {
			return
		}
	}

	// Fallback: name search across all OTHER files. Imports are cross-file
	// by definition, so same-file entries are excluded from the pool.
	md.FallbackResolution = true
	cands := excludeFile(idx.ByName(target.name), s.File)
	if len(cands) == 0 {
		out.miss(src, target.name, ResolutionImport, "no scope with this name", nil)
		return
	}
	entry, ok := pickByValueType(cands)
	if !ok {
		out.miss(src, target.name, ResolutionImport, "ambiguous with no file match", toCandidates(cands))
		return
	}
	out.emit(Classify(s, entry, target.context), src, entry, md)
}

// passUnknown links references the walker could not classify, for languages
// without an import/local classifier. Same-file matches are preferred, then
// cross-file under the value-type tie-break. A symbol referenced many times
// yields one edge.
func (e *Engine) passUnknown(s *scope.Scope, src *index.MappingEntry, idx *index.ScopeIndex, out *fileOutput) {
	done := make(map[string]bool)
	for _, ref := range s.IdentifierReferences {
		if ref.Kind != scope.RefKindUnknown || done[ref.Identifier] {
			continue
		}
		done[ref.Identifier] = true

		if same := excludeUUID(idx.ByNameInFile(ref.Identifier, s.File), src.UUID); len(same) > 0 {
			entry, _ := pickFirstByValueType(same)
			out.emit(Classify(s, entry, ref.Context), src, entry, Metadata{Context: ref.Context})
			continue
		}

		cross := excludeFile(idx.ByName(ref.Identifier), s.File)
		if len(cross) == 0 {
			out.miss(src, ref.Identifier, ResolutionFallback, "no scope with this name", nil)
			continue
		}
		entry, ok := pickByValueType(cross)
		if !ok {
			out.miss(src, ref.Identifier, ResolutionFallback, "ambiguous with no file match", toCandidates(cross))
			continue
		}
		out.emit(Classify(s, entry, ref.Context), src, entry, Metadata{
			Context:            ref.Context,
			FallbackResolution: true,
		})
	}
}

// passContainment emits the PARENT_OF edge (parent → child) for nested
// scopes. Parents are same-file by contract.
func (e *Engine) passContainment(s *scope.Scope, src *index.MappingEntry, idx *index.ScopeIndex, out *fileOutput) {
	if s.Parent == "" {
		return
	}

	parents := excludeUUID(idx.ByNameInFile(s.Parent, s.File), src.UUID)
	parent, ok := pickFirstByValueType(parents)
	if !ok {
		out.miss(src, s.Parent, ResolutionParent, "parent scope not found in file", nil)
		return
	}
	out.emit(RelParentOf, parent, src, Metadata{})
}

// passDecorators emits DECORATES edges (decorator scope → decorated scope),
// preferring a same-file decorator definition over cross-file ones.
func (e *Engine) passDecorators(s *scope.Scope, src *index.MappingEntry, idx *index.ScopeIndex, out *fileOutput) {
	for _, dec := range s.Decorators {
		md := Metadata{DecoratorArgs: dec.Arguments}

		if same := excludeUUID(idx.ByNameInFile(dec.Name, s.File), src.UUID); len(same) > 0 {
			entry, _ := pickFirstByValueType(same)
			out.emit(RelDecorates, entry, src, md)
			continue
		}

		all := excludeFile(idx.ByName(dec.Name), s.File)
		entry, ok := pickFirstByValueType(all)
		if !ok {
			out.miss(src, dec.Name, ResolutionDecorator, "no scope with this name", nil)
			continue
		}
		md.FallbackResolution = true
		out.emit(RelDecorates, entry, src, md)
	}
}

// importKindRefs returns the identifier references classified as imports.
func importKindRefs(s *scope.Scope) []scope.IdentifierReference {
	var out []scope.IdentifierReference
	for _, ref := range s.IdentifierReferences {
		if ref.Kind == scope.RefKindImport {
			out = append(out, ref)
		}
	}
	return out
}

// resolverFor looks up the registry resolver for a file, quietly returning
// nil when the registry is absent or no resolver claims the extension.
func resolverFor(reg *resolver.Registry, file string) resolver.ImportResolver {
	if reg == nil {
		return nil
	}
	res, err := reg.ForFile(file)
	if err != nil {
		slog.Debug("no import resolver for file, using fallback resolution",
			slog.String("file", file),
		)
		return nil
	}
	return res
}

// excludeUUID filters entries whose uuid matches.
func excludeUUID(entries []*index.MappingEntry, uuid string) []*index.MappingEntry {
	var out []*index.MappingEntry
	for _, e := range entries {
		if e.UUID != uuid {
			out = append(out, e)
		}
	}
	return out
}

// excludeFile filters entries defined in the given file.
func excludeFile(entries []*index.MappingEntry, file string) []*index.MappingEntry {
	var out []*index.MappingEntry
	for _, e := range entries {
		if e.File != file {
			out = append(out, e)
		}
	}
	return out
}
