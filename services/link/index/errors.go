// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package index builds the global scope index: every scope in every parsed
// file, assigned a deterministic identity and indexed by name and by uuid.
//
// The index is rebuilt wholesale on every analysis run and is immutable
// afterward — it is never patched incrementally. Phase 2 (the resolution
// engine) reads it concurrently without synchronization.
package index

import "errors"

// Sentinel errors for index operations.
var (
	// ErrMaxScopesExceeded is returned when the index has reached its
	// configured maximum capacity.
	ErrMaxScopesExceeded = errors.New("maximum scope count exceeded")

	// ErrBuildCancelled is returned when an index build is cancelled via context.
	ErrBuildCancelled = errors.New("index build cancelled")
)
