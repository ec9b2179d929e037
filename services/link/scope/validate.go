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

import (
	"errors"
	"fmt"
)

// Sentinel errors for scope validation.
var (
	// ErrMissingName is returned when a scope has no name.
	ErrMissingName = errors.New("scope has no name")

	// ErrMissingFile is returned when a scope has no file path.
	ErrMissingFile = errors.New("scope has no file path")

	// ErrMissingType is returned when a scope has no type.
	ErrMissingType = errors.New("scope has no type")

	// ErrInvalidLines is returned when a scope's line range is inverted.
	ErrInvalidLines = errors.New("scope end line precedes start line")
)

// Validate checks the fields an upstream walker is required to populate.
//
// Description:
//
//	A scope failing validation is skipped by the resolution engine and the
//	index — upstream walker bugs degrade one scope, never the whole run.
//
// Outputs:
//
//	error - Non-nil if a required field is missing or inconsistent.
//
// Thread Safety: Safe for concurrent use (reads only).
func (s *Scope) Validate() error {
	if s == nil {
		return errors.New("scope is nil")
	}
	if s.Name == "" {
		return ErrMissingName
	}
	if s.File == "" {
		return ErrMissingFile
	}
	if s.Type == "" {
		return ErrMissingType
	}
	if s.EndLine != 0 && s.EndLine < s.StartLine {
		return fmt.Errorf("%w: start=%d end=%d", ErrInvalidLines, s.StartLine, s.EndLine)
	}
	return nil
}
