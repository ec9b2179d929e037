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
	"github.com/crosslinkhq/crosslink/services/link/index"
	"github.com/crosslinkhq/crosslink/services/link/scope"
)

// valueTypeRank orders resolution candidates when several scopes share a
// name: concrete definitions outrank type-only declarations. Lower ranks
// win. Types absent from the map rank below every listed concrete type but
// above the type-only tier.
var valueTypeRank = map[scope.ScopeType]int{
	scope.TypeFunction:  0,
	scope.TypeClass:     1,
	scope.TypeStruct:    2,
	scope.TypeTrait:     3,
	scope.TypeEnum:      4,
	scope.TypeConstant:  5,
	scope.TypeMethod:    6,
	scope.TypeVariable:  7,
	scope.TypeModule:    8,
	scope.TypeInterface: 20,
	scope.TypeTypeAlias: 21,
}

// unrankedValueType is the rank for concrete types not in the list
// (constructor, lambda). Still above the type-only tier.
const unrankedValueType = 10

func rankOf(t scope.ScopeType) int {
	if r, ok := valueTypeRank[t]; ok {
		return r
	}
	return unrankedValueType
}

// pickByValueType applies the value-type priority tie-break to a candidate
// list.
//
// Description:
//
//	A single candidate is accepted outright. With several, the best-ranked
//	candidate wins — but only when it is unique at its rank. Two candidates
//	of equal rank (two same-named functions in different files, say) stay
//	ambiguous: the caller records an UnresolvedReference rather than
//	guessing between them.
//
// Outputs:
//
//	*index.MappingEntry - The winning candidate, nil when none or ambiguous.
//	bool - True when a unique winner exists.
//
// Thread Safety: Safe for concurrent use (stateless function).
func pickByValueType(candidates []*index.MappingEntry) (*index.MappingEntry, bool) {
	switch len(candidates) {
	case 0:
		return nil, false
	case 1:
		return candidates[0], true
	}

	best := candidates[0]
	bestRank := rankOf(best.Type)
	tied := false
	for _, c := range candidates[1:] {
		r := rankOf(c.Type)
		switch {
		case r < bestRank:
			best, bestRank, tied = c, r, false
		case r == bestRank:
			tied = true
		}
	}

	if tied {
		return nil, false
	}
	return best, true
}

// pickFirstByValueType is the lenient variant used where a deterministic
// pick is wanted rather than an ambiguity report: best value-type rank wins,
// and on a rank tie the first candidate in index order wins.
func pickFirstByValueType(candidates []*index.MappingEntry) (*index.MappingEntry, bool) {
	if len(candidates) == 0 {
		return nil, false
	}
	best := candidates[0]
	bestRank := rankOf(best.Type)
	for _, c := range candidates[1:] {
		if r := rankOf(c.Type); r < bestRank {
			best, bestRank = c, r
		}
	}
	return best, true
}

// toCandidates converts index entries to diagnostic candidate records.
func toCandidates(entries []*index.MappingEntry) []Candidate {
	out := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		out = append(out, Candidate{File: e.File, Type: e.Type})
	}
	return out
}
