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

import "github.com/crosslinkhq/crosslink/services/link/scope"

// RelType is the kind of a resolved relationship.
type RelType string

// Forward relationship types.
const (
	// RelConsumes is the generic usage edge: source uses target.
	RelConsumes RelType = "CONSUMES"

	// RelInheritsFrom is a class/struct inheritance edge. Inherently
	// asymmetric: no inverse is ever generated.
	RelInheritsFrom RelType = "INHERITS_FROM"

	// RelImplements is an interface/trait implementation edge. Inherently
	// asymmetric: no inverse is ever generated.
	RelImplements RelType = "IMPLEMENTS"

	// RelParentOf is the structural containment edge, parent → child.
	RelParentOf RelType = "PARENT_OF"

	// RelDecorates is the decoration edge, decorator scope → decorated scope.
	RelDecorates RelType = "DECORATES"
)

// Inverse relationship types. Only ever produced by GenerateInverses,
// never emitted directly by the engine.
const (
	RelConsumedBy  RelType = "CONSUMED_BY"
	RelHasParent   RelType = "HAS_PARENT"
	RelDecoratedBy RelType = "DECORATED_BY"
)

// inverseOf is the fixed forward → inverse mapping. INHERITS_FROM and
// IMPLEMENTS are deliberately absent.
var inverseOf = map[RelType]RelType{
	RelConsumes:  RelConsumedBy,
	RelParentOf:  RelHasParent,
	RelDecorates: RelDecoratedBy,
}

// IsInverse reports whether the type is a generated inverse type.
func (t RelType) IsInverse() bool {
	switch t {
	case RelConsumedBy, RelHasParent, RelDecoratedBy:
		return true
	default:
		return false
	}
}

// Metadata is the per-edge diagnostic payload. Copied verbatim onto the
// generated inverse edge.
type Metadata struct {
	// Context is the surrounding declaration text the edge was derived from.
	Context string `json:"context,omitempty"`

	// ViaImport marks edges derived from an import statement.
	ViaImport bool `json:"viaImport,omitempty"`

	// ImportPath is the raw import specifier, when ViaImport is set.
	ImportPath string `json:"importPath,omitempty"`

	// FallbackResolution marks cross-file matches found by name search
	// alone, without a successful import-resolver file match.
	FallbackResolution bool `json:"fallbackResolution,omitempty"`

	// DecoratorArgs is the decorator argument text, on DECORATES edges.
	DecoratorArgs string `json:"decoratorArgs,omitempty"`
}

// Relationship is one typed, directed edge between two scope identities.
type Relationship struct {
	Type RelType `json:"type"`

	FromUUID string `json:"fromUuid"`
	ToUUID   string `json:"toUuid"`

	FromFile string `json:"fromFile"`
	ToFile   string `json:"toFile"`

	FromName string `json:"fromName"`
	ToName   string `json:"toName"`

	FromType scope.ScopeType `json:"fromType"`
	ToType   scope.ScopeType `json:"toType"`

	Metadata Metadata `json:"metadata"`
}

// Candidate is one ambiguous resolution candidate, kept for diagnosis.
type Candidate struct {
	File string          `json:"file"`
	Type scope.ScopeType `json:"type"`
}

// Resolution kinds attempted, recorded on unresolved references.
const (
	ResolutionLocal     = "local"
	ResolutionImport    = "import"
	ResolutionFallback  = "fallback"
	ResolutionParent    = "parent"
	ResolutionDecorator = "decorator"
)

// UnresolvedReference records one reference the engine could not link.
// Diagnostic output only — never fatal.
type UnresolvedReference struct {
	// FromUUID, FromFile, FromName identify the source scope.
	FromUUID string `json:"fromUuid"`
	FromFile string `json:"fromFile"`
	FromName string `json:"fromName"`

	// Identifier is the name that failed to resolve.
	Identifier string `json:"identifier"`

	// Resolution is the attempted resolution kind.
	Resolution string `json:"resolution"`

	// Reason is a human-readable explanation.
	Reason string `json:"reason"`

	// Candidates lists the ambiguous matches found, when any.
	Candidates []Candidate `json:"candidates,omitempty"`
}
