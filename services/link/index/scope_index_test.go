// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package index

import (
	"context"
	"errors"
	"testing"

	"github.com/crosslinkhq/crosslink/services/link/scope"
)

func testFiles() map[string]*scope.ParsedFile {
	return map[string]*scope.ParsedFile{
		"src/animal.py": {
			Path:     "src/animal.py",
			Language: "python",
			Scopes: []*scope.Scope{
				{Name: "Animal", Type: scope.TypeClass, File: "src/animal.py", StartLine: 1, EndLine: 20, Signature: "class Animal"},
				{Name: "speak", Type: scope.TypeMethod, File: "src/animal.py", StartLine: 5, EndLine: 8, Parent: "Animal", Signature: "def speak(self)"},
			},
		},
		"src/dog.py": {
			Path:     "src/dog.py",
			Language: "python",
			Scopes: []*scope.Scope{
				{Name: "Dog", Type: scope.TypeClass, File: "src/dog.py", StartLine: 1, EndLine: 30, Signature: "class Dog(Animal)"},
				{Name: "speak", Type: scope.TypeMethod, File: "src/dog.py", StartLine: 10, EndLine: 14, Parent: "Dog", Signature: "def speak(self)"},
			},
		},
	}
}

func TestBuildIndexesByNameUUIDAndFile(t *testing.T) {
	idx, err := Build(context.Background(), testFiles())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// Two classes plus two same-named methods across files.
	if got := idx.Stats().TotalScopes; got != 4 {
		t.Fatalf("TotalScopes = %d, want 4", got)
	}

	speaks := idx.ByName("speak")
	if len(speaks) != 2 {
		t.Fatalf("ByName(speak) returned %d entries, want 2", len(speaks))
	}
	// Reduce runs in sorted path order.
	if speaks[0].File != "src/animal.py" || speaks[1].File != "src/dog.py" {
		t.Errorf("name bucket not in sorted file order: %s, %s", speaks[0].File, speaks[1].File)
	}

	dogSpeak := idx.ByNameInFile("speak", "src/dog.py")
	if len(dogSpeak) != 1 || dogSpeak[0].Parent != "Dog" {
		t.Errorf("ByNameInFile returned wrong entries: %+v", dogSpeak)
	}

	for _, e := range idx.ByFile("src/animal.py") {
		got, ok := idx.ByUUID(e.UUID)
		if !ok || got != e {
			t.Errorf("ByUUID round-trip failed for %s", e.Name)
		}
	}
}

func TestBuildRetainsDuplicates(t *testing.T) {
	// Exact duplicate declarations (e.g. conditional redefinition) are both
	// kept; they collapse to one uuid and later resolution treats the name
	// as ambiguous.
	files := map[string]*scope.ParsedFile{
		"src/dup.py": {
			Path: "src/dup.py",
			Scopes: []*scope.Scope{
				{Name: "impl", Type: scope.TypeFunction, File: "src/dup.py", StartLine: 3, EndLine: 6, Signature: "def impl()"},
				{Name: "impl", Type: scope.TypeFunction, File: "src/dup.py", StartLine: 10, EndLine: 13, Signature: "def impl()"},
			},
		},
	}

	idx, err := Build(context.Background(), files)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := len(idx.ByName("impl")); got != 2 {
		t.Errorf("duplicate declarations collapsed: got %d entries, want 2", got)
	}
}

func TestBuildSkipsMalformedScopes(t *testing.T) {
	files := map[string]*scope.ParsedFile{
		"src/mixed.ts": {
			Path: "src/mixed.ts",
			Scopes: []*scope.Scope{
				{Name: "good", Type: scope.TypeFunction, File: "src/mixed.ts", StartLine: 1, EndLine: 3},
				{Name: "", Type: scope.TypeFunction, File: "src/mixed.ts", StartLine: 5, EndLine: 7},
				{Name: "badLines", Type: scope.TypeFunction, File: "src/mixed.ts", StartLine: 9, EndLine: 2},
			},
		},
	}

	idx, err := Build(context.Background(), files)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := idx.Stats().TotalScopes; got != 1 {
		t.Errorf("TotalScopes = %d, want 1", got)
	}
	if got := idx.Stats().SkippedScopes; got != 2 {
		t.Errorf("SkippedScopes = %d, want 2", got)
	}
}

func TestBuildDeterministicAcrossRuns(t *testing.T) {
	first, err := Build(context.Background(), testFiles())
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	second, err := Build(context.Background(), testFiles(), WithWorkerCount(1))
	if err != nil {
		t.Fatalf("second Build failed: %v", err)
	}

	a, b := first.Entries(), second.Entries()
	if len(a) != len(b) {
		t.Fatalf("entry counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].UUID != b[i].UUID {
			t.Errorf("entry %d uuid differs: %s vs %s", i, a[i].UUID, b[i].UUID)
		}
	}
}

func TestBuildMaxScopesCap(t *testing.T) {
	idx, err := Build(context.Background(), testFiles(), WithMaxScopes(2))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := idx.Stats().TotalScopes; got != 2 {
		t.Errorf("TotalScopes = %d, want cap of 2", got)
	}
}

func TestBuildCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, testFiles())
	if !errors.Is(err, ErrBuildCancelled) {
		t.Errorf("Build with cancelled context returned %v, want ErrBuildCancelled", err)
	}
}

func TestEntryForUnindexedScope(t *testing.T) {
	idx, err := Build(context.Background(), testFiles())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	stray := &scope.Scope{Name: "stray", Type: scope.TypeFunction, File: "nowhere.py", StartLine: 1, EndLine: 2}
	if idx.EntryFor(stray) != nil {
		t.Error("EntryFor returned an entry for a scope that was never indexed")
	}
}
