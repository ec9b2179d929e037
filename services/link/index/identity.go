// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/crosslinkhq/crosslink/services/link/scope"
)

// identityNamespace is the fixed UUIDv5 namespace for scope identities.
// Changing it changes every identity in every graph ever produced, so it is
// versioned together with the serialization schema version.
var identityNamespace = uuid.MustParse("7b9c3d1e-4a52-4e8f-9d36-0c81b5a7f2c4")

// signatureHashLen is the number of hex characters kept from the signature
// digest. 16 hex chars (64 bits) is ample for per-file disambiguation.
const signatureHashLen = 16

// SignatureHash computes the short content hash that feeds a scope's identity.
//
// Description:
//
//	Hashes the parent-qualified declaration. The basis is the rendered
//	signature when the walker provides one, otherwise "name:type:content".
//	For variable and constant scopes the declaration start line is appended:
//	several same-named variables can legally coexist in one file, and the
//	line is the only thing that tells them apart. All other scope types stay
//	line-independent so identities survive edits elsewhere in the file.
//
// Thread Safety: Safe for concurrent use (stateless function).
func SignatureHash(s *scope.Scope) string {
	basis := s.Signature
	if basis == "" {
		basis = fmt.Sprintf("%s:%s:%s", s.Name, s.Type, s.Content)
	}

	input := s.Parent + "|" + basis
	if s.Type.IsPositional() {
		input = fmt.Sprintf("%s:%d", input, s.StartLine)
	}

	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:signatureHashLen]
}

// ScopeUUID computes the deterministic identity of a scope.
//
// Description:
//
//	UUIDv5 over "file:name:type:signatureHash" in a fixed namespace.
//	A pure function of the scope's content — no counters, no randomness —
//	so re-running the index on unchanged source yields byte-identical
//	identities. Downstream consumers rely on this for incremental
//	re-indexing.
//
// Thread Safety: Safe for concurrent use (stateless function).
func ScopeUUID(s *scope.Scope) string {
	name := fmt.Sprintf("%s:%s:%s:%s", s.File, s.Name, s.Type, SignatureHash(s))
	return uuid.NewSHA1(identityNamespace, []byte(name)).String()
}
