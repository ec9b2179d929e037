// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scope defines the data contracts between per-language walkers
// and the relationship resolution engine.
//
// Walkers (external to this module) parse source files and emit flat lists
// of named code units — "scopes" — together with the raw identifier usages
// and import statements found inside each one. Every identifier reference
// arrives pre-classified by its producing walker: local to the file, imported,
// builtin, or unknown. The engine never re-classifies; it only consumes.
//
// # Ownership Model
//
// The index and engine store pointers to scopes but do NOT own them:
//   - Scopes MUST NOT be mutated after being handed to index.Build()
//   - Nothing in this module copies scopes (for memory efficiency)
//
// # Invariants
//
//   - Parent, when present, names another scope in the SAME file.
//     Cross-file parent/child links do not exist.
//   - Builtin identifier references are filtered out by the walker before
//     the engine runs; RefKindBuiltin appears here only for completeness
//     of the wire format.
package scope
