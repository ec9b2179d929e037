// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultResolveCacheSize is the default capacity of the per-resolver
// specifier cache. Import graphs repeat specifiers heavily (every file in a
// package imports the same barrels), so even a small cache absorbs most
// filesystem probes.
const DefaultResolveCacheSize = 4096

// StatFunc probes a path for existence as a regular file. Injectable so
// tests run against an in-memory file set instead of the real filesystem.
type StatFunc func(path string) bool

// osStat is the production existence probe.
func osStat(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// RelativeResolverOptions configures a RelativeResolver.
type RelativeResolverOptions struct {
	// Extensions are the candidate file extensions probed, in order.
	Extensions []string

	// IndexNames are directory index file names probed (without extension),
	// e.g. "index" for JS-style directories, "__init__" for Python packages.
	IndexNames []string

	// Builtins is the set of module names treated as language builtins.
	Builtins []string

	// CacheSize is the LRU capacity for resolved specifiers.
	// Default: 4096
	CacheSize int

	// Stat is the file-existence probe. Default: os.Stat.
	Stat StatFunc
}

// RelativeResolverOption is a functional option for NewRelativeResolver.
type RelativeResolverOption func(*RelativeResolverOptions)

// WithExtensions sets the candidate extensions probed during resolution.
func WithExtensions(exts ...string) RelativeResolverOption {
	return func(o *RelativeResolverOptions) {
		o.Extensions = exts
	}
}

// WithIndexNames sets the directory index file names probed during resolution.
func WithIndexNames(names ...string) RelativeResolverOption {
	return func(o *RelativeResolverOptions) {
		o.IndexNames = names
	}
}

// WithBuiltins sets the builtin module name set.
func WithBuiltins(names ...string) RelativeResolverOption {
	return func(o *RelativeResolverOptions) {
		o.Builtins = names
	}
}

// WithCacheSize sets the LRU capacity for resolved specifiers.
func WithCacheSize(n int) RelativeResolverOption {
	return func(o *RelativeResolverOptions) {
		o.CacheSize = n
	}
}

// WithStatFunc sets the file-existence probe.
func WithStatFunc(fn StatFunc) RelativeResolverOption {
	return func(o *RelativeResolverOptions) {
		o.Stat = fn
	}
}

// RelativeResolver resolves relative-path and alias imports by probing the
// filesystem with a configured extension list.
//
// Description:
//
//	The batteries-included resolver: it understands "./x" and "../y"
//	specifiers, project-config path aliases, and source-root-anchored
//	absolute specifiers. It knows nothing about any language's package
//	registries — package-form specifiers always fail with ErrNotResolved,
//	pushing the engine to its name-search fallback. Per-language resolvers
//	with manifest knowledge layer on top of this behavior.
//
// Thread Safety:
//
//	Safe for concurrent use after LoadConfig. The LRU cache is internally
//	synchronized; all other state is write-once at configuration time.
type RelativeResolver struct {
	projectRoot string
	cfg         ProjectConfig

	extensions []string
	indexNames []string
	builtins   map[string]struct{}
	stat       StatFunc

	cache *lru.Cache[string, string]
}

// NewRelativeResolver creates a relative-path resolver.
//
// Example:
//
//	res := NewRelativeResolver(
//	    WithExtensions(".ts", ".tsx", ".js"),
//	    WithIndexNames("index"),
//	)
func NewRelativeResolver(opts ...RelativeResolverOption) *RelativeResolver {
	options := RelativeResolverOptions{
		Extensions: []string{".ts", ".tsx", ".js", ".jsx", ".py", ".go", ".rs", ".java"},
		IndexNames: []string{"index", "__init__"},
		CacheSize:  DefaultResolveCacheSize,
		Stat:       osStat,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.CacheSize <= 0 {
		options.CacheSize = DefaultResolveCacheSize
	}

	builtins := make(map[string]struct{}, len(options.Builtins))
	for _, b := range options.Builtins {
		builtins[b] = struct{}{}
	}

	// lru.New only errors on non-positive size, which is guarded above.
	cache, _ := lru.New[string, string](options.CacheSize)

	return &RelativeResolver{
		extensions: options.Extensions,
		indexNames: options.IndexNames,
		builtins:   builtins,
		stat:       options.Stat,
		cache:      cache,
	}
}

// LoadConfig loads the optional project config and remembers the root.
// Missing config files fall back to defaults, never failing the caller.
func (r *RelativeResolver) LoadConfig(projectRoot, configPath string) error {
	r.projectRoot = projectRoot

	cfg, err := LoadProjectConfig(projectRoot, configPath)
	if err != nil {
		slog.Warn("resolver config unreadable, using defaults",
			slog.String("project_root", projectRoot),
			slog.String("error", err.Error()),
		)
		return nil
	}

	r.cfg = cfg
	r.extensions = append(r.extensions, cfg.Extensions...)
	return nil
}

// IsLocalImport reports whether the specifier points inside the project.
func (r *RelativeResolver) IsLocalImport(spec string) bool {
	switch r.GetImportType(spec) {
	case ImportTypeRelative, ImportTypeAbsolute:
		return true
	default:
		return false
	}
}

// GetImportType classifies the specifier's addressing form.
func (r *RelativeResolver) GetImportType(spec string) ImportType {
	if spec == "" {
		return ImportTypeUnknown
	}
	if r.IsBuiltinModule(spec) {
		return ImportTypeBuiltin
	}
	if strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || spec == "." || spec == ".." {
		return ImportTypeRelative
	}
	if strings.HasPrefix(spec, "/") || r.aliasFor(spec) != "" {
		return ImportTypeAbsolute
	}
	return ImportTypePackage
}

// IsBuiltinModule reports whether the name is a configured builtin.
func (r *RelativeResolver) IsBuiltinModule(name string) bool {
	_, ok := r.builtins[name]
	return ok
}

// aliasFor returns the matching alias prefix for a specifier, or empty.
func (r *RelativeResolver) aliasFor(spec string) string {
	for prefix := range r.cfg.Aliases {
		if strings.HasPrefix(spec, prefix) {
			return prefix
		}
	}
	return ""
}

// ResolveImport maps a specifier to an absolute file path.
//
// Description:
//
//	Resolution order: exact path, then each candidate extension, then each
//	index name under the path as a directory. Results (including negative
//	ones) are cached per (specifier, importing directory) pair.
//
// Inputs:
//
//	ctx - Checked once on entry; probes themselves are fast stat calls.
//	spec - The specifier as written in source.
//	currentFile - Absolute or project-relative path of the importing file.
//
// Outputs:
//
//	string - The resolved absolute path.
//	error - ErrNotResolved when no candidate file exists, or ctx.Err().
//
// Thread Safety: Safe for concurrent use.
func (r *RelativeResolver) ResolveImport(ctx context.Context, spec, currentFile string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fromDir := filepath.Dir(r.absolutize(currentFile))
	key := spec + "\x00" + fromDir

	if hit, ok := r.cache.Get(key); ok {
		if hit == "" {
			return "", fmt.Errorf("%w: %q (cached)", ErrNotResolved, spec)
		}
		return hit, nil
	}

	resolved := r.probe(spec, fromDir)
	r.cache.Add(key, resolved)

	if resolved == "" {
		return "", fmt.Errorf("%w: %q from %q", ErrNotResolved, spec, currentFile)
	}
	return resolved, nil
}

// ResolveImportFull is ResolveImport plus locality and package metadata.
func (r *RelativeResolver) ResolveImportFull(ctx context.Context, spec, currentFile string) ResolvedImport {
	out := ResolvedImport{
		OriginalSpecifier: spec,
		IsLocal:           r.IsLocalImport(spec),
	}

	if r.GetImportType(spec) == ImportTypePackage {
		// First path segment names the external package.
		out.PackageName = strings.SplitN(spec, "/", 2)[0]
		return out
	}

	path, err := r.ResolveImport(ctx, spec, currentFile)
	if err != nil {
		return out
	}
	out.AbsolutePath = path
	out.IsLocal = true
	return out
}

// GetRelativePath converts an absolute path back to project-relative form.
// Returns the input unchanged when it is not under the project root.
func (r *RelativeResolver) GetRelativePath(absolutePath string) string {
	if r.projectRoot == "" {
		return absolutePath
	}
	rel, err := filepath.Rel(r.projectRoot, absolutePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return absolutePath
	}
	return rel
}

// absolutize anchors a project-relative path at the project root.
func (r *RelativeResolver) absolutize(path string) string {
	if filepath.IsAbs(path) || r.projectRoot == "" {
		return path
	}
	return filepath.Join(r.projectRoot, path)
}

// probe finds the file a specifier denotes, or empty when none exists.
func (r *RelativeResolver) probe(spec, fromDir string) string {
	var base string
	switch {
	case strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || spec == "." || spec == "..":
		base = filepath.Join(fromDir, spec)
	case strings.HasPrefix(spec, "/"):
		base = filepath.Join(r.projectRoot, strings.TrimPrefix(spec, "/"))
	default:
		if prefix := r.aliasFor(spec); prefix != "" {
			base = filepath.Join(r.projectRoot, r.cfg.Aliases[prefix], strings.TrimPrefix(spec, prefix))
			break
		}
		// Source-root-anchored absolute specifiers ("app/models" with
		// source_roots: [src] probes src/app/models).
		for _, root := range r.cfg.SourceRoots {
			if hit := r.probeCandidates(filepath.Join(r.projectRoot, root, spec)); hit != "" {
				return hit
			}
		}
		return ""
	}

	return r.probeCandidates(base)
}

// probeCandidates tries the base path exactly, with each extension, and as
// a directory holding an index file.
func (r *RelativeResolver) probeCandidates(base string) string {
	if r.stat(base) {
		return base
	}

	for _, ext := range r.extensions {
		if candidate := base + ext; r.stat(candidate) {
			return candidate
		}
	}

	for _, name := range r.indexNames {
		for _, ext := range r.extensions {
			if candidate := filepath.Join(base, name+ext); r.stat(candidate) {
				return candidate
			}
		}
	}

	return ""
}
