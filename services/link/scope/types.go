// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scope

// ScopeType identifies the kind of code unit a scope represents.
type ScopeType string

// Scope types produced by the per-language walkers.
const (
	TypeFunction    ScopeType = "function"
	TypeMethod      ScopeType = "method"
	TypeConstructor ScopeType = "constructor"
	TypeClass       ScopeType = "class"
	TypeInterface   ScopeType = "interface"
	TypeTrait       ScopeType = "trait"
	TypeStruct      ScopeType = "struct"
	TypeEnum        ScopeType = "enum"
	TypeModule      ScopeType = "module"
	TypeVariable    ScopeType = "variable"
	TypeConstant    ScopeType = "constant"
	TypeLambda      ScopeType = "lambda"
	TypeTypeAlias   ScopeType = "type_alias"
)

// IsPositional reports whether identity for this scope type must include
// the declaration line. Multiple same-named variables can legally coexist
// in one file, so their identities disambiguate by start line; everything
// else stays line-independent to survive edits elsewhere in the file.
func (t ScopeType) IsPositional() bool {
	return t == TypeVariable || t == TypeConstant
}

// IsAggregate reports whether the scope type can carry members or a base
// list (class-like types). Used by the structural-embedding classifier
// heuristic and by the engine's method-reference promotion.
func (t ScopeType) IsAggregate() bool {
	switch t {
	case TypeClass, TypeInterface, TypeTrait, TypeStruct, TypeEnum:
		return true
	default:
		return false
	}
}

// RefKind classifies the origin of an identifier usage. Assigned by the
// producing walker before the engine runs; the engine only consumes it.
type RefKind string

const (
	// RefKindLocal marks a usage of a name defined in the same file.
	RefKindLocal RefKind = "local_scope"

	// RefKindImport marks a usage of an imported name.
	RefKindImport RefKind = "import"

	// RefKindBuiltin marks a usage of a language builtin. Filtered out by
	// the walker; never reaches the resolution engine.
	RefKindBuiltin RefKind = "builtin"

	// RefKindUnknown marks a usage the walker could not classify.
	// Languages without an import/local classifier emit only this kind.
	RefKindUnknown RefKind = "unknown"
)

// ImportKind classifies the syntactic form of an import statement.
type ImportKind string

const (
	ImportKindNamed      ImportKind = "named"
	ImportKindNamespace  ImportKind = "namespace"
	ImportKindDefault    ImportKind = "default"
	ImportKindSideEffect ImportKind = "side_effect"
)

// IdentifierReference is a single textual usage of a name inside a scope.
type IdentifierReference struct {
	// Identifier is the used name.
	Identifier string `json:"identifier"`

	// Qualifier is the left-hand side of a member access, when the usage
	// is qualifier.identifier. Empty for bare usages.
	Qualifier string `json:"qualifier,omitempty"`

	// Context is surrounding declaration text, used by the relationship
	// type classifier. May be empty.
	Context string `json:"context,omitempty"`

	// Kind is the walker-assigned origin classification.
	Kind RefKind `json:"kind"`

	// Source is the import origin, set only when Kind == RefKindImport.
	Source string `json:"source,omitempty"`
}

// ImportReference is one structured import statement attached to a scope.
type ImportReference struct {
	// Source is the raw import specifier as written (e.g. "./log",
	// "pandas.core.reshape.merge", "@app/models").
	Source string `json:"source"`

	// Imported is the symbol name brought in, or "*" for namespace imports.
	Imported string `json:"imported"`

	// Alias is the local rename, when present (import {X as Y}).
	Alias string `json:"alias,omitempty"`

	// Kind is the syntactic import form.
	Kind ImportKind `json:"kind"`

	// IsLocal is the producing walker's heuristic guess at whether the
	// specifier points inside the project.
	IsLocal bool `json:"isLocal"`
}

// LocalName returns the name the importing file uses for the symbol:
// the alias when present, otherwise the imported name itself.
func (i ImportReference) LocalName() string {
	if i.Alias != "" {
		return i.Alias
	}
	return i.Imported
}

// Decorator is one decorator/annotation applied to a scope.
type Decorator struct {
	// Name is the decorator identifier without the sigil (@Injectable → "Injectable").
	Name string `json:"name"`

	// Arguments is the raw argument text, when the decorator was invoked.
	Arguments string `json:"arguments,omitempty"`
}

// HeritageClause is explicit inheritance metadata attached by walkers that
// can read it directly from the syntax tree (e.g. TypeScript heritage
// clauses). When present it overrides the textual classifier heuristics.
type HeritageClause struct {
	// Kind is "extends" or "implements".
	Kind string `json:"kind"`

	// Name is the referenced base type name.
	Name string `json:"name"`
}

// Scope is one named, located code unit extracted from a source file.
type Scope struct {
	// Name is the declared name of the code unit.
	Name string `json:"name"`

	// Type is the kind of code unit.
	Type ScopeType `json:"type"`

	// File is the project-relative path of the defining file.
	File string `json:"file"`

	// StartLine and EndLine delimit the declaration (1-indexed, inclusive).
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`

	// Signature is the rendered declaration text, e.g.
	// "class Dog extends Animal". May be empty for walkers that do not
	// render signatures.
	Signature string `json:"signature,omitempty"`

	// Parent names the enclosing scope in the SAME file, when nested.
	Parent string `json:"parent,omitempty"`

	// Decorators applied to this scope, outermost first.
	Decorators []Decorator `json:"decorators,omitempty"`

	// Content is the scope body text (or a dedented copy). Used as a
	// signature substitute in identity hashing and by the structural
	// embedding heuristic.
	Content string `json:"content,omitempty"`

	// Heritage is explicit inheritance metadata, when the walker provides it.
	Heritage []HeritageClause `json:"heritage,omitempty"`

	// IdentifierReferences are the raw identifier usages inside this scope.
	IdentifierReferences []IdentifierReference `json:"identifierReferences,omitempty"`

	// ImportReferences are the structured imports attached to this scope.
	ImportReferences []ImportReference `json:"importReferences,omitempty"`
}

// ParsedFile is the walker output for one analyzed file.
type ParsedFile struct {
	// Path is the project-relative file path. Keys of the engine input map
	// must match this value.
	Path string `json:"path"`

	// Language is the walker's language tag (e.g. "python", "typescript").
	// Used to select an import resolver. May be empty.
	Language string `json:"language,omitempty"`

	// Scopes is the flat list of code units found in the file. Nesting is
	// expressed through Scope.Parent, not through the list shape.
	Scopes []*Scope `json:"scopes"`
}
