// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph derives typed relationships between scopes across files and
// languages: who consumes, extends, implements, contains, or decorates what.
//
// The engine runs strictly after the global scope index is built (an import
// in file A may target a scope defined in a file indexed after A). Within a
// run it fans out per file over a bounded worker pool; every worker writes
// only to its own local buffers, which are concatenated at the end, so no
// shared mutable list exists under contention.
//
// Resolution is heuristic by design. There is no compiler-grade type system
// behind it: the engine optimizes for useful, explainable edges over provably
// correct ones, and every failure degrades to an UnresolvedReference record
// instead of an error.
package graph
