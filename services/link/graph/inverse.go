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

// GenerateInverses derives the symmetric companion edge for every forward
// edge of an invertible type.
//
// Description:
//
//	Fixed mapping: CONSUMES → CONSUMED_BY, PARENT_OF → HAS_PARENT,
//	DECORATES → DECORATED_BY. INHERITS_FROM and IMPLEMENTS are inherently
//	asymmetric and get no inverse. Metadata is copied verbatim and all
//	from/to fields are swapped. Edges that are already inverses are never
//	inverted again, so repeated application cannot explode the edge set.
//
// Outputs:
//
//	[]Relationship - One reversed edge per invertible forward edge, in
//	input order. Nil when nothing is invertible.
//
// Thread Safety: Safe for concurrent use (stateless function).
func GenerateInverses(forward []Relationship) []Relationship {
	var out []Relationship
	for _, r := range forward {
		if r.Type.IsInverse() {
			continue
		}
		inv, ok := inverseOf[r.Type]
		if !ok {
			continue
		}
		out = append(out, Relationship{
			Type:     inv,
			FromUUID: r.ToUUID,
			ToUUID:   r.FromUUID,
			FromFile: r.ToFile,
			ToFile:   r.FromFile,
			FromName: r.ToName,
			ToName:   r.FromName,
			FromType: r.ToType,
			ToType:   r.FromType,
			Metadata: r.Metadata,
		})
	}
	return out
}
