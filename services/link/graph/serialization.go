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
	"encoding/json"
	"fmt"
	"sort"

	"github.com/crosslinkhq/crosslink/services/link/index"
)

// SchemaVersion is the version of the serialization schema. Increment when
// the format — or the identity namespace feeding the uuids — changes in a
// breaking way.
const SchemaVersion = "1.0"

// SerializableResult is the JSON representation of a resolution run.
//
// Description:
//
//	Scopes and relationships are sorted so that identical inputs produce
//	byte-identical output, enabling reliable diffing and content hashing
//	by downstream consumers.
//
// Thread Safety: SerializableResult is a value type with no internal state.
type SerializableResult struct {
	// SchemaVersion identifies the serialization format version.
	SchemaVersion string `json:"schema_version"`

	// Scopes contains every mapping entry, sorted by uuid.
	Scopes []*index.MappingEntry `json:"scopes"`

	// Relationships contains every edge, forward and inverse, sorted.
	Relationships []Relationship `json:"relationships"`

	// Unresolved contains the diagnostic records, sorted.
	Unresolved []UnresolvedReference `json:"unresolved_references"`

	// Stats summarizes the run.
	Stats Stats `json:"stats"`
}

// ToSerializable converts a Result into its deterministic JSON form.
//
// Description:
//
//	Scopes sort by uuid; relationships by (fromUuid, toUuid, type);
//	unresolved records by (fromUuid, identifier, resolution). The edge set
//	is unordered in memory (worker concatenation order is a scheduling
//	detail), so sorting here is what makes re-runs diffable.
//
// Thread Safety: Safe for concurrent use (reads only).
func (r *Result) ToSerializable() *SerializableResult {
	rels := make([]Relationship, len(r.Relationships))
	copy(rels, r.Relationships)
	sort.Slice(rels, func(i, j int) bool {
		a, b := rels[i], rels[j]
		if a.FromUUID != b.FromUUID {
			return a.FromUUID < b.FromUUID
		}
		if a.ToUUID != b.ToUUID {
			return a.ToUUID < b.ToUUID
		}
		return a.Type < b.Type
	})

	unresolved := make([]UnresolvedReference, len(r.Unresolved))
	copy(unresolved, r.Unresolved)
	sort.Slice(unresolved, func(i, j int) bool {
		a, b := unresolved[i], unresolved[j]
		if a.FromUUID != b.FromUUID {
			return a.FromUUID < b.FromUUID
		}
		if a.Identifier != b.Identifier {
			return a.Identifier < b.Identifier
		}
		return a.Resolution < b.Resolution
	})

	return &SerializableResult{
		SchemaVersion: SchemaVersion,
		Scopes:        r.Index.Entries(),
		Relationships: rels,
		Unresolved:    unresolved,
		Stats:         r.Stats,
	}
}

// MarshalJSON encodes the result in its deterministic serialized form.
func (r *Result) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(r.ToSerializable())
	if err != nil {
		return nil, fmt.Errorf("marshal resolution result: %w", err)
	}
	return data, nil
}
