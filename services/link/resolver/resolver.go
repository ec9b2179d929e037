// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolver defines the pluggable import resolver contract and the
// language-keyed registry that constructs resolvers lazily.
//
// One resolver implementation exists per guest language, selected by file
// extension. Resolvers map textual import specifiers ("./log", "@app/models",
// "pandas.core.reshape.merge") to absolute files. Everything is best-effort:
// a missing project manifest falls back to defaults and a failed resolution
// returns ErrNotResolved, never a fatal error — the engine degrades to
// name-search fallback in both cases.
package resolver

import (
	"context"
	"errors"
)

// Sentinel errors for import resolution.
var (
	// ErrNotResolved is returned when a specifier cannot be mapped to a file.
	// The engine treats it as "fall back to global name search", not a failure.
	ErrNotResolved = errors.New("import specifier not resolved")

	// ErrNoResolver is returned by the registry when no factory is registered
	// for a language.
	ErrNoResolver = errors.New("no import resolver for language")
)

// ImportType classifies an import specifier's addressing form.
type ImportType string

const (
	ImportTypeBuiltin  ImportType = "builtin"
	ImportTypeRelative ImportType = "relative"
	ImportTypeAbsolute ImportType = "absolute"
	ImportTypePackage  ImportType = "package"
	ImportTypeUnknown  ImportType = "unknown"
)

// ResolvedImport is the full resolution of one import specifier.
type ResolvedImport struct {
	// AbsolutePath is the resolved file, empty when resolution failed.
	AbsolutePath string

	// IsLocal reports whether the target lives inside the project.
	IsLocal bool

	// PackageName is the external package name, for non-local imports.
	PackageName string

	// OriginalSpecifier is the specifier as written in source.
	OriginalSpecifier string
}

// ImportResolver maps import specifiers to files for one guest language.
//
// Implementations hold only their own one-time configuration load as mutable
// state; after LoadConfig they must be safe for concurrent use. ResolveImport
// performs file-existence probes and may block on I/O.
type ImportResolver interface {
	// LoadConfig loads project manifests (tsconfig, pyproject, ...) from the
	// project root. Best-effort: missing manifests fall back to defaults and
	// never fail the caller. configPath overrides the default location when
	// non-empty.
	LoadConfig(projectRoot, configPath string) error

	// IsLocalImport reports whether the specifier points inside the project.
	IsLocalImport(spec string) bool

	// GetImportType classifies the specifier's addressing form.
	GetImportType(spec string) ImportType

	// IsBuiltinModule reports whether the name is a language builtin module.
	IsBuiltinModule(name string) bool

	// ResolveImport maps a specifier, as used from currentFile, to an
	// absolute file path. Returns ErrNotResolved when no file matches.
	ResolveImport(ctx context.Context, spec, currentFile string) (string, error)

	// ResolveImportFull is ResolveImport plus locality and package metadata.
	// It never returns an error: a failed resolution yields a ResolvedImport
	// with an empty AbsolutePath.
	ResolveImportFull(ctx context.Context, spec, currentFile string) ResolvedImport

	// GetRelativePath converts an absolute path back to project-relative form.
	GetRelativePath(absolutePath string) string
}

// ReExportFollower is an optional resolver capability: following re-export
// chains (barrel files) to the file that actually defines a symbol. The
// engine uses it opportunistically via type assertion when present.
type ReExportFollower interface {
	// FollowReExports returns the defining file for symbolName starting at
	// path, chasing re-exports. Returns path unchanged when the symbol is
	// defined there or the chain cannot be followed.
	FollowReExports(ctx context.Context, path, symbolName string) string
}
