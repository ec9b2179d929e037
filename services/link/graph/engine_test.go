// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"context"
	"testing"

	"github.com/crosslinkhq/crosslink/services/link/index"
	"github.com/crosslinkhq/crosslink/services/link/resolver"
	"github.com/crosslinkhq/crosslink/services/link/scope"
)

// resolve builds the index and runs the engine over the given files.
func resolve(t *testing.T, files map[string]*scope.ParsedFile, reg *resolver.Registry) *Result {
	t.Helper()
	idx, err := index.Build(context.Background(), files)
	if err != nil {
		t.Fatalf("index.Build failed: %v", err)
	}
	result, err := NewEngine(WithWorkerCount(2)).Resolve(context.Background(), files, idx, reg)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	return result
}

// edgesOf filters the result's edges by type and endpoint names.
func edgesOf(r *Result, t RelType, fromName, toName string) []Relationship {
	var out []Relationship
	for _, rel := range r.Relationships {
		if rel.Type == t && rel.FromName == fromName && rel.ToName == toName {
			out = append(out, rel)
		}
	}
	return out
}

func TestResolveInheritanceSuppressesUsageEdge(t *testing.T) {
	// A subclass referencing its base in the class declaration yields one
	// INHERITS_FROM edge for the pair, no CONSUMES, and no inverse.
	files := map[string]*scope.ParsedFile{
		"shapes.py": {
			Path:     "shapes.py",
			Language: "python",
			Scopes: []*scope.Scope{
				{Name: "Shape", Type: scope.TypeClass, File: "shapes.py", StartLine: 1, EndLine: 10, Signature: "class Shape:"},
				{
					Name: "Circle", Type: scope.TypeClass, File: "shapes.py", StartLine: 12, EndLine: 30,
					Signature: "class Circle(Shape):",
					IdentifierReferences: []scope.IdentifierReference{
						{Identifier: "Shape", Kind: scope.RefKindLocal, Context: "class Circle(Shape):"},
						{Identifier: "Shape", Kind: scope.RefKindLocal, Context: "super().__init__()"},
					},
				},
			},
		},
	}

	r := resolve(t, files, nil)

	if got := edgesOf(r, RelInheritsFrom, "Circle", "Shape"); len(got) != 1 {
		t.Fatalf("INHERITS_FROM Circle→Shape edges = %d, want 1", len(got))
	}
	if got := edgesOf(r, RelConsumes, "Circle", "Shape"); len(got) != 0 {
		t.Errorf("CONSUMES Circle→Shape should be suppressed by inheritance, got %d", len(got))
	}
	for _, rel := range r.Relationships {
		if rel.Type.IsInverse() && rel.FromName == "Shape" && rel.ToName == "Circle" {
			t.Errorf("inheritance must not produce an inverse, found %s", rel.Type)
		}
	}
}

func TestResolveImportThroughResolver(t *testing.T) {
	// The TypeScript-style resolver maps "./log" to log.ts on the fake
	// filesystem; the edge pins to that file even though another file
	// defines the same name.
	exists := make(map[string]bool)
	for _, p := range []string{"/proj/app.ts", "/proj/log.ts", "/proj/vendor/log.ts"} {
		exists[p] = true
	}
	reg := resolver.NewRegistry("/proj", "")
	reg.RegisterFactory("typescript", func() (resolver.ImportResolver, error) {
		return resolver.NewRelativeResolver(
			resolver.WithExtensions(".ts"),
			resolver.WithIndexNames("index"),
			resolver.WithStatFunc(func(p string) bool { return exists[p] }),
		), nil
	}, ".ts")

	files := map[string]*scope.ParsedFile{
		"app.ts": {
			Path:     "app.ts",
			Language: "typescript",
			Scopes: []*scope.Scope{
				{
					Name: "main", Type: scope.TypeFunction, File: "app.ts", StartLine: 3, EndLine: 10,
					Signature: "function main()",
					ImportReferences: []scope.ImportReference{
						{Source: "./log", Imported: "Logger", Kind: scope.ImportKindNamed, IsLocal: true},
					},
					IdentifierReferences: []scope.IdentifierReference{
						{Identifier: "Logger", Kind: scope.RefKindImport, Source: "./log", Context: "new Logger()"},
					},
				},
			},
		},
		"log.ts": {
			Path:     "log.ts",
			Language: "typescript",
			Scopes: []*scope.Scope{
				{Name: "Logger", Type: scope.TypeClass, File: "log.ts", StartLine: 1, EndLine: 40, Signature: "class Logger"},
			},
		},
		"vendor/log.ts": {
			Path:     "vendor/log.ts",
			Language: "typescript",
			Scopes: []*scope.Scope{
				{Name: "Logger", Type: scope.TypeClass, File: "vendor/log.ts", StartLine: 1, EndLine: 40, Signature: "class Logger"},
			},
		},
	}

	r := resolve(t, files, reg)

	got := edgesOf(r, RelConsumes, "main", "Logger")
	if len(got) != 1 {
		t.Fatalf("CONSUMES main→Logger edges = %d, want 1", len(got))
	}
	edge := got[0]
	if edge.ToFile != "log.ts" {
		t.Errorf("edge resolved to %s, want log.ts", edge.ToFile)
	}
	if !edge.Metadata.ViaImport || edge.Metadata.ImportPath != "./log" {
		t.Errorf("import metadata wrong: %+v", edge.Metadata)
	}
	if edge.Metadata.FallbackResolution {
		t.Error("resolver-backed match must not be marked fallbackResolution")
	}
}

func TestResolveImportFallbackByName(t *testing.T) {
	// No resolver registered: a package-style import still links when
	// exactly one other file defines the symbol, marked fallback.
	files := map[string]*scope.ParsedFile{
		"consumer.ts": {
			Path: "consumer.ts",
			Scopes: []*scope.Scope{
				{
					Name: "run", Type: scope.TypeFunction, File: "consumer.ts", StartLine: 1, EndLine: 8,
					ImportReferences: []scope.ImportReference{
						{Source: "parser", Imported: "Parse", Kind: scope.ImportKindNamed},
					},
					IdentifierReferences: []scope.IdentifierReference{
						{Identifier: "Parse", Kind: scope.RefKindImport, Source: "parser"},
					},
				},
			},
		},
		"parser.ts": {
			Path: "parser.ts",
			Scopes: []*scope.Scope{
				{Name: "Parse", Type: scope.TypeFunction, File: "parser.ts", StartLine: 1, EndLine: 20},
			},
		},
	}

	r := resolve(t, files, nil)

	got := edgesOf(r, RelConsumes, "run", "Parse")
	if len(got) != 1 {
		t.Fatalf("CONSUMES run→Parse edges = %d, want 1", len(got))
	}
	if !got[0].Metadata.FallbackResolution {
		t.Error("name-search match must be marked fallbackResolution")
	}
	if got[0].ToFile != "parser.ts" {
		t.Errorf("edge resolved to %s, want parser.ts", got[0].ToFile)
	}
}

func TestResolveAmbiguousImportStaysUnresolved(t *testing.T) {
	// Two same-ranked definitions and no resolvable import: no edge, one
	// unresolved record carrying both candidates.
	files := map[string]*scope.ParsedFile{
		"a.ts": {
			Path: "a.ts",
			Scopes: []*scope.Scope{
				{Name: "Parse", Type: scope.TypeFunction, File: "a.ts", StartLine: 1, EndLine: 5},
			},
		},
		"b.ts": {
			Path: "b.ts",
			Scopes: []*scope.Scope{
				{Name: "Parse", Type: scope.TypeFunction, File: "b.ts", StartLine: 1, EndLine: 5},
			},
		},
		"consumer.ts": {
			Path: "consumer.ts",
			Scopes: []*scope.Scope{
				{
					Name: "run", Type: scope.TypeFunction, File: "consumer.ts", StartLine: 1, EndLine: 8,
					ImportReferences: []scope.ImportReference{
						{Source: "somelib", Imported: "Parse", Kind: scope.ImportKindNamed},
					},
					IdentifierReferences: []scope.IdentifierReference{
						{Identifier: "Parse", Kind: scope.RefKindImport, Source: "somelib"},
					},
				},
			},
		},
	}

	r := resolve(t, files, nil)

	if got := edgesOf(r, RelConsumes, "run", "Parse"); len(got) != 0 {
		t.Errorf("ambiguous reference produced %d edges, want 0", len(got))
	}
	var found *UnresolvedReference
	for i := range r.Unresolved {
		if r.Unresolved[i].Identifier == "Parse" {
			found = &r.Unresolved[i]
		}
	}
	if found == nil {
		t.Fatal("no unresolved record for Parse")
	}
	if found.Resolution != ResolutionImport {
		t.Errorf("resolution = %s, want %s", found.Resolution, ResolutionImport)
	}
	if len(found.Candidates) != 2 {
		t.Errorf("candidates = %d, want 2", len(found.Candidates))
	}
}

func TestResolveValueTypePriorityBreaksTie(t *testing.T) {
	// A function outranks a variable of the same name in the candidate pool.
	files := map[string]*scope.ParsedFile{
		"consumer.ts": {
			Path: "consumer.ts",
			Scopes: []*scope.Scope{
				{
					Name: "run", Type: scope.TypeFunction, File: "consumer.ts", StartLine: 1, EndLine: 8,
					ImportReferences: []scope.ImportReference{
						{Source: "helpers", Imported: "format", Kind: scope.ImportKindNamed},
					},
					IdentifierReferences: []scope.IdentifierReference{
						{Identifier: "format", Kind: scope.RefKindImport, Source: "helpers"},
					},
				},
			},
		},
		"fn.ts": {
			Path: "fn.ts",
			Scopes: []*scope.Scope{
				{Name: "format", Type: scope.TypeFunction, File: "fn.ts", StartLine: 1, EndLine: 5},
			},
		},
		"var.ts": {
			Path: "var.ts",
			Scopes: []*scope.Scope{
				{Name: "format", Type: scope.TypeVariable, File: "var.ts", StartLine: 2, EndLine: 2},
			},
		},
	}

	r := resolve(t, files, nil)

	got := edgesOf(r, RelConsumes, "run", "format")
	if len(got) != 1 {
		t.Fatalf("CONSUMES run→format edges = %d, want 1", len(got))
	}
	if got[0].ToType != scope.TypeFunction || got[0].ToFile != "fn.ts" {
		t.Errorf("tie-break picked %s in %s, want function in fn.ts", got[0].ToType, got[0].ToFile)
	}
}

func TestResolveDecorator(t *testing.T) {
	files := map[string]*scope.ParsedFile{
		"service.py": {
			Path: "service.py",
			Scopes: []*scope.Scope{
				{
					Name: "Service", Type: scope.TypeClass, File: "service.py", StartLine: 3, EndLine: 40,
					Decorators: []scope.Decorator{{Name: "injectable", Arguments: "scope='singleton'"}},
				},
			},
		},
		"di.py": {
			Path: "di.py",
			Scopes: []*scope.Scope{
				{Name: "injectable", Type: scope.TypeFunction, File: "di.py", StartLine: 1, EndLine: 12},
			},
		},
	}

	r := resolve(t, files, nil)

	got := edgesOf(r, RelDecorates, "injectable", "Service")
	if len(got) != 1 {
		t.Fatalf("DECORATES injectable→Service edges = %d, want 1", len(got))
	}
	if got[0].Metadata.DecoratorArgs != "scope='singleton'" {
		t.Errorf("decorator args not carried: %+v", got[0].Metadata)
	}
	if !got[0].Metadata.FallbackResolution {
		t.Error("cross-file decorator match must be marked fallbackResolution")
	}
	if inv := edgesOf(r, RelDecoratedBy, "Service", "injectable"); len(inv) != 1 {
		t.Errorf("DECORATED_BY inverse edges = %d, want 1", len(inv))
	}
}

func TestResolveContainment(t *testing.T) {
	files := map[string]*scope.ParsedFile{
		"animal.py": {
			Path: "animal.py",
			Scopes: []*scope.Scope{
				{Name: "Animal", Type: scope.TypeClass, File: "animal.py", StartLine: 1, EndLine: 20},
				{Name: "speak", Type: scope.TypeMethod, File: "animal.py", StartLine: 5, EndLine: 9, Parent: "Animal"},
			},
		},
	}

	r := resolve(t, files, nil)

	if got := edgesOf(r, RelParentOf, "Animal", "speak"); len(got) != 1 {
		t.Errorf("PARENT_OF Animal→speak edges = %d, want 1", len(got))
	}
	if got := edgesOf(r, RelHasParent, "speak", "Animal"); len(got) != 1 {
		t.Errorf("HAS_PARENT speak→Animal inverse edges = %d, want 1", len(got))
	}
}

func TestResolveLocalPinsToSameFile(t *testing.T) {
	// A local_scope reference resolves to the same-file definition even when
	// another file defines the same name.
	files := map[string]*scope.ParsedFile{
		"main.go": {
			Path: "main.go",
			Scopes: []*scope.Scope{
				{Name: "helper", Type: scope.TypeFunction, File: "main.go", StartLine: 1, EndLine: 4},
				{
					Name: "run", Type: scope.TypeFunction, File: "main.go", StartLine: 6, EndLine: 12,
					IdentifierReferences: []scope.IdentifierReference{
						{Identifier: "helper", Kind: scope.RefKindLocal},
					},
				},
			},
		},
		"other.go": {
			Path: "other.go",
			Scopes: []*scope.Scope{
				{Name: "helper", Type: scope.TypeFunction, File: "other.go", StartLine: 1, EndLine: 4},
			},
		},
	}

	r := resolve(t, files, nil)

	got := edgesOf(r, RelConsumes, "run", "helper")
	if len(got) != 1 {
		t.Fatalf("CONSUMES run→helper edges = %d, want 1", len(got))
	}
	if got[0].ToFile != "main.go" {
		t.Errorf("local reference resolved to %s, want main.go", got[0].ToFile)
	}
	if got[0].Metadata.FallbackResolution {
		t.Error("same-file local match must not be marked fallbackResolution")
	}
}

func TestResolveUnknownPrefersSameFile(t *testing.T) {
	files := map[string]*scope.ParsedFile{
		"lib.rb": {
			Path: "lib.rb",
			Scopes: []*scope.Scope{
				{Name: "helper", Type: scope.TypeFunction, File: "lib.rb", StartLine: 1, EndLine: 4},
				{
					Name: "run", Type: scope.TypeFunction, File: "lib.rb", StartLine: 6, EndLine: 12,
					IdentifierReferences: []scope.IdentifierReference{
						{Identifier: "helper", Kind: scope.RefKindUnknown},
						{Identifier: "remote", Kind: scope.RefKindUnknown},
						{Identifier: "remote", Kind: scope.RefKindUnknown},
					},
				},
			},
		},
		"remote.rb": {
			Path: "remote.rb",
			Scopes: []*scope.Scope{
				{Name: "remote", Type: scope.TypeFunction, File: "remote.rb", StartLine: 1, EndLine: 4},
			},
		},
	}

	r := resolve(t, files, nil)

	local := edgesOf(r, RelConsumes, "run", "helper")
	if len(local) != 1 || local[0].Metadata.FallbackResolution {
		t.Errorf("same-file unknown match wrong: %+v", local)
	}

	// Repeated references to one symbol collapse to one edge.
	cross := edgesOf(r, RelConsumes, "run", "remote")
	if len(cross) != 1 {
		t.Fatalf("CONSUMES run→remote edges = %d, want 1", len(cross))
	}
	if !cross[0].Metadata.FallbackResolution {
		t.Error("cross-file unknown match must be marked fallbackResolution")
	}
}

func TestResolveNamespaceImport(t *testing.T) {
	// import * as util: each member accessed through the alias links to its
	// definition in the resolved module.
	files := map[string]*scope.ParsedFile{
		"app.ts": {
			Path: "app.ts",
			Scopes: []*scope.Scope{
				{
					Name: "main", Type: scope.TypeFunction, File: "app.ts", StartLine: 1, EndLine: 10,
					ImportReferences: []scope.ImportReference{
						{Source: "helpers", Imported: "*", Alias: "util", Kind: scope.ImportKindNamespace},
					},
					IdentifierReferences: []scope.IdentifierReference{
						{Identifier: "trim", Qualifier: "util", Kind: scope.RefKindImport, Source: "helpers"},
						{Identifier: "pad", Qualifier: "util", Kind: scope.RefKindImport, Source: "helpers"},
					},
				},
			},
		},
		"helpers.ts": {
			Path: "helpers.ts",
			Scopes: []*scope.Scope{
				{Name: "trim", Type: scope.TypeFunction, File: "helpers.ts", StartLine: 1, EndLine: 3},
				{Name: "pad", Type: scope.TypeFunction, File: "helpers.ts", StartLine: 5, EndLine: 7},
			},
		},
	}

	r := resolve(t, files, nil)

	for _, member := range []string{"trim", "pad"} {
		if got := edgesOf(r, RelConsumes, "main", member); len(got) != 1 {
			t.Errorf("CONSUMES main→%s edges = %d, want 1", member, len(got))
		}
	}
}

func TestResolveClassInheritsMethodImports(t *testing.T) {
	// A class transitively uses what its methods use.
	files := map[string]*scope.ParsedFile{
		"svc.ts": {
			Path: "svc.ts",
			Scopes: []*scope.Scope{
				{Name: "Service", Type: scope.TypeClass, File: "svc.ts", StartLine: 1, EndLine: 30},
				{
					Name: "handle", Type: scope.TypeMethod, File: "svc.ts", StartLine: 5, EndLine: 15, Parent: "Service",
					ImportReferences: []scope.ImportReference{
						{Source: "codec", Imported: "Decode", Kind: scope.ImportKindNamed},
					},
					IdentifierReferences: []scope.IdentifierReference{
						{Identifier: "Decode", Kind: scope.RefKindImport, Source: "codec"},
					},
				},
			},
		},
		"codec.ts": {
			Path: "codec.ts",
			Scopes: []*scope.Scope{
				{Name: "Decode", Type: scope.TypeFunction, File: "codec.ts", StartLine: 1, EndLine: 10},
			},
		},
	}

	r := resolve(t, files, nil)

	if got := edgesOf(r, RelConsumes, "handle", "Decode"); len(got) != 1 {
		t.Errorf("CONSUMES handle→Decode edges = %d, want 1", len(got))
	}
	if got := edgesOf(r, RelConsumes, "Service", "Decode"); len(got) != 1 {
		t.Errorf("CONSUMES Service→Decode edges = %d, want 1 (transitive through method)", len(got))
	}
}

func TestResolveNoSelfEdges(t *testing.T) {
	files := map[string]*scope.ParsedFile{
		"rec.py": {
			Path: "rec.py",
			Scopes: []*scope.Scope{
				{
					Name: "fact", Type: scope.TypeFunction, File: "rec.py", StartLine: 1, EndLine: 6,
					IdentifierReferences: []scope.IdentifierReference{
						{Identifier: "fact", Kind: scope.RefKindLocal, Context: "return n * fact(n-1)"},
					},
				},
			},
		},
	}

	r := resolve(t, files, nil)

	for _, rel := range r.Relationships {
		if rel.FromUUID == rel.ToUUID {
			t.Errorf("self-edge emitted: %s %s→%s", rel.Type, rel.FromName, rel.ToName)
		}
	}
}

func TestResolveInverseCompleteness(t *testing.T) {
	files := map[string]*scope.ParsedFile{
		"a.py": {
			Path: "a.py",
			Scopes: []*scope.Scope{
				{Name: "Base", Type: scope.TypeClass, File: "a.py", StartLine: 1, EndLine: 10},
				{
					Name: "Child", Type: scope.TypeClass, File: "a.py", StartLine: 12, EndLine: 30,
					Signature: "class Child(Base):",
					IdentifierReferences: []scope.IdentifierReference{
						{Identifier: "Base", Kind: scope.RefKindLocal, Context: "class Child(Base):"},
						{Identifier: "helper", Kind: scope.RefKindLocal},
					},
				},
				{Name: "helper", Type: scope.TypeFunction, File: "a.py", StartLine: 32, EndLine: 36},
				{Name: "method", Type: scope.TypeMethod, File: "a.py", StartLine: 14, EndLine: 20, Parent: "Child"},
			},
		},
	}

	r := resolve(t, files, nil)

	type key struct {
		t        RelType
		from, to string
	}
	set := make(map[key]int)
	for _, rel := range r.Relationships {
		set[key{rel.Type, rel.FromUUID, rel.ToUUID}]++
	}

	for k, n := range set {
		if n != 1 {
			t.Errorf("duplicate edge %s: %d copies", k.t, n)
		}
		switch k.t {
		case RelConsumes:
			if set[key{RelConsumedBy, k.to, k.from}] != 1 {
				t.Errorf("CONSUMES without CONSUMED_BY inverse")
			}
		case RelParentOf:
			if set[key{RelHasParent, k.to, k.from}] != 1 {
				t.Errorf("PARENT_OF without HAS_PARENT inverse")
			}
		case RelInheritsFrom, RelImplements:
			for kk := range set {
				if kk.from == k.to && kk.to == k.from && kk.t.IsInverse() {
					t.Errorf("heritage edge has an inverse: %s", kk.t)
				}
			}
		}
	}
}

func TestResolveStats(t *testing.T) {
	files := map[string]*scope.ParsedFile{
		"a.py": {
			Path: "a.py",
			Scopes: []*scope.Scope{
				{Name: "f", Type: scope.TypeFunction, File: "a.py", StartLine: 1, EndLine: 3},
				{
					Name: "g", Type: scope.TypeFunction, File: "a.py", StartLine: 5, EndLine: 9,
					IdentifierReferences: []scope.IdentifierReference{
						{Identifier: "f", Kind: scope.RefKindLocal},
						{Identifier: "missing", Kind: scope.RefKindLocal},
					},
				},
			},
		},
	}

	r := resolve(t, files, nil)

	s := r.Stats
	if s.TotalScopes != 2 {
		t.Errorf("TotalScopes = %d, want 2", s.TotalScopes)
	}
	if s.FilesAnalyzed != 1 {
		t.Errorf("FilesAnalyzed = %d, want 1", s.FilesAnalyzed)
	}
	if s.TotalRelationships != len(r.Relationships) {
		t.Errorf("TotalRelationships = %d, edges = %d", s.TotalRelationships, len(r.Relationships))
	}
	if s.UnresolvedCount != 1 {
		t.Errorf("UnresolvedCount = %d, want 1", s.UnresolvedCount)
	}
	if s.ByType[RelConsumes] != 1 || s.ByType[RelConsumedBy] != 1 {
		t.Errorf("ByType wrong: %+v", s.ByType)
	}
}

func TestResolveDeterministic(t *testing.T) {
	files := map[string]*scope.ParsedFile{
		"a.ts": {
			Path: "a.ts",
			Scopes: []*scope.Scope{
				{Name: "x", Type: scope.TypeFunction, File: "a.ts", StartLine: 1, EndLine: 2},
				{
					Name: "y", Type: scope.TypeFunction, File: "a.ts", StartLine: 4, EndLine: 9,
					IdentifierReferences: []scope.IdentifierReference{
						{Identifier: "x", Kind: scope.RefKindLocal},
						{Identifier: "z", Kind: scope.RefKindUnknown},
					},
				},
			},
		},
		"b.ts": {
			Path: "b.ts",
			Scopes: []*scope.Scope{
				{Name: "z", Type: scope.TypeFunction, File: "b.ts", StartLine: 1, EndLine: 2},
			},
		},
	}

	marshal := func() string {
		r := resolve(t, files, nil)
		r.Stats.ResolutionTimeMillis = 0 // wall-clock, not content
		data, err := r.MarshalJSON()
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		return string(data)
	}

	first := marshal()
	for i := 0; i < 5; i++ {
		if again := marshal(); first != again {
			t.Fatal("serialized result differs across identical runs")
		}
	}
}

func TestResolveCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := map[string]*scope.ParsedFile{
		"a.ts": {Path: "a.ts", Scopes: []*scope.Scope{
			{Name: "f", Type: scope.TypeFunction, File: "a.ts", StartLine: 1, EndLine: 2},
		}},
	}
	idx, err := index.Build(context.Background(), files)
	if err != nil {
		t.Fatalf("index.Build failed: %v", err)
	}

	if _, err := NewEngine().Resolve(ctx, files, idx, nil); err == nil {
		t.Error("Resolve with cancelled context returned nil error")
	}
}
