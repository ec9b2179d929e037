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
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Factory constructs an import resolver for one language. The returned
// resolver has NOT had LoadConfig called; the registry does that once,
// immediately after construction.
type Factory func() (ImportResolver, error)

// Registry is a memoizing import-resolver factory keyed by language tag.
//
// Description:
//
//	Resolver construction loads project manifests from disk, so it is done
//	lazily and exactly once per language. Concurrent first-use races are
//	collapsed to a single initialization through singleflight; later calls
//	hit the cache without touching the group.
//
// Thread Safety:
//
//	Registry is safe for concurrent use after construction. RegisterFactory
//	calls must complete before the first ForLanguage/ForFile call.
type Registry struct {
	projectRoot string
	configPath  string

	factories map[string]Factory
	byExt     map[string]string // extension (with dot) → language tag

	mu    sync.RWMutex
	cache map[string]ImportResolver

	group singleflight.Group
}

// NewRegistry creates a resolver registry rooted at projectRoot.
// configPath optionally overrides the default project config location.
func NewRegistry(projectRoot, configPath string) *Registry {
	return &Registry{
		projectRoot: projectRoot,
		configPath:  configPath,
		factories:   make(map[string]Factory),
		byExt:       make(map[string]string),
		cache:       make(map[string]ImportResolver),
	}
}

// RegisterFactory registers a resolver factory for a language and the file
// extensions it claims (with or without leading dot).
func (r *Registry) RegisterFactory(language string, factory Factory, extensions ...string) {
	r.factories[language] = factory
	for _, ext := range extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.byExt[ext] = language
	}
}

// LanguageForFile returns the language tag claimed for the file's extension,
// or empty when no resolver claims it.
func (r *Registry) LanguageForFile(path string) string {
	return r.byExt[strings.ToLower(filepath.Ext(path))]
}

// ForFile returns the resolver for the language claiming the file's
// extension. Returns ErrNoResolver when no factory claims it.
func (r *Registry) ForFile(path string) (ImportResolver, error) {
	lang := r.LanguageForFile(path)
	if lang == "" {
		return nil, fmt.Errorf("%w: file %q", ErrNoResolver, path)
	}
	return r.ForLanguage(lang)
}

// ForLanguage returns the resolver for a language tag, constructing and
// configuring it on first use.
//
// Description:
//
//	The fast path is a read-locked cache hit. On miss, the construction is
//	funneled through singleflight so that N concurrent first-users produce
//	one resolver, one LoadConfig call, and N shared results.
//
// Outputs:
//
//	ImportResolver - The memoized resolver.
//	error - ErrNoResolver for unknown languages, or the factory's error.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) ForLanguage(language string) (ImportResolver, error) {
	r.mu.RLock()
	cached, ok := r.cache[language]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := r.group.Do(language, func() (any, error) {
		// Re-check under the flight: a previous flight may have populated
		// the cache between our RLock and Do.
		r.mu.RLock()
		cached, ok := r.cache[language]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}

		factory, ok := r.factories[language]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNoResolver, language)
		}

		res, err := factory()
		if err != nil {
			return nil, fmt.Errorf("construct %s resolver: %w", language, err)
		}

		// Config load is best-effort: a missing manifest logs and defaults.
		if err := res.LoadConfig(r.projectRoot, r.configPath); err != nil {
			slog.Warn("import resolver config load failed, using defaults",
				slog.String("language", language),
				slog.String("error", err.Error()),
			)
		}

		r.mu.Lock()
		r.cache[language] = res
		r.mu.Unlock()

		return res, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(ImportResolver), nil
}
