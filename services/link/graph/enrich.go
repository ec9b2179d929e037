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

import "github.com/crosslinkhq/crosslink/services/link/index"

// ScopeView is the per-scope adjacency view exposed by the enrichment API.
type ScopeView struct {
	// Entry is the scope's mapping entry.
	Entry *index.MappingEntry

	// Consumes are outgoing CONSUMES edges.
	Consumes []Relationship

	// ConsumedBy are incoming CONSUMES edges, seen from the consumer side
	// (i.e. this scope's CONSUMED_BY edges).
	ConsumedBy []Relationship

	// Extends merges outgoing INHERITS_FROM and IMPLEMENTS edges.
	Extends []Relationship

	// ExtendedBy merges incoming INHERITS_FROM and IMPLEMENTS edges.
	ExtendedBy []Relationship

	// ParentOf are outgoing containment edges to child scopes.
	ParentOf []Relationship

	// HasParent is the containment edge to the enclosing scope, when nested.
	// A scope has at most one parent.
	HasParent *Relationship

	// DecoratedBy are this scope's DECORATED_BY edges.
	DecoratedBy []Relationship
}

// Enrichment indexes the flat edge list back into per-scope adjacency views.
//
// Thread Safety:
//
//	Enrichment is immutable after NewEnrichment returns and safe for
//	unsynchronized concurrent reads.
type Enrichment struct {
	idx    *index.ScopeIndex
	byFrom map[string][]Relationship
	byTo   map[string][]Relationship
}

// NewEnrichment builds the adjacency indices over a resolution result.
func NewEnrichment(result *Result) *Enrichment {
	e := &Enrichment{
		idx:    result.Index,
		byFrom: make(map[string][]Relationship),
		byTo:   make(map[string][]Relationship),
	}
	for _, r := range result.Relationships {
		e.byFrom[r.FromUUID] = append(e.byFrom[r.FromUUID], r)
		e.byTo[r.ToUUID] = append(e.byTo[r.ToUUID], r)
	}
	return e
}

// Enrich builds the adjacency indices for this result. Shorthand for
// NewEnrichment(r).
func (r *Result) Enrich() *Enrichment {
	return NewEnrichment(r)
}

// View assembles the per-scope adjacency view for one identity.
// Returns nil when the uuid is unknown.
func (e *Enrichment) View(uuid string) *ScopeView {
	entry, ok := e.idx.ByUUID(uuid)
	if !ok {
		return nil
	}

	v := &ScopeView{Entry: entry}
	for _, r := range e.byFrom[uuid] {
		switch r.Type {
		case RelConsumes:
			v.Consumes = append(v.Consumes, r)
		case RelConsumedBy:
			v.ConsumedBy = append(v.ConsumedBy, r)
		case RelInheritsFrom, RelImplements:
			v.Extends = append(v.Extends, r)
		case RelParentOf:
			v.ParentOf = append(v.ParentOf, r)
		case RelHasParent:
			if v.HasParent == nil {
				edge := r
				v.HasParent = &edge
			}
		case RelDecoratedBy:
			v.DecoratedBy = append(v.DecoratedBy, r)
		}
	}
	for _, r := range e.byTo[uuid] {
		if r.Type == RelInheritsFrom || r.Type == RelImplements {
			v.ExtendedBy = append(v.ExtendedBy, r)
		}
	}
	return v
}

// ScopesByName returns the mapping entries sharing a name, across all files.
func (e *Enrichment) ScopesByName(name string) []*index.MappingEntry {
	return e.idx.ByName(name)
}

// ScopeByUUID returns the mapping entry for one identity.
func (e *Enrichment) ScopeByUUID(uuid string) (*index.MappingEntry, bool) {
	return e.idx.ByUUID(uuid)
}

// ConsumersOf answers "who depends on X": every edge whose target is the
// given scope and whose type is CONSUMES.
func (e *Enrichment) ConsumersOf(uuid string) []Relationship {
	var out []Relationship
	for _, r := range e.byTo[uuid] {
		if r.Type == RelConsumes {
			out = append(out, r)
		}
	}
	return out
}

// DependenciesOf answers "what does X depend on": every outgoing CONSUMES,
// INHERITS_FROM, or IMPLEMENTS edge from the given scope.
func (e *Enrichment) DependenciesOf(uuid string) []Relationship {
	var out []Relationship
	for _, r := range e.byFrom[uuid] {
		switch r.Type {
		case RelConsumes, RelInheritsFrom, RelImplements:
			out = append(out, r)
		}
	}
	return out
}
