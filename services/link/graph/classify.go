// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"strings"

	"github.com/crosslinkhq/crosslink/services/link/index"
	"github.com/crosslinkhq/crosslink/services/link/scope"
)

// Keyword fragments that signal inheritance or implementation in context
// text across guest languages.
var (
	inheritanceKeywords    = []string{"extends ", "inherits ", "superclass"}
	implementationKeywords = []string{"implements ", "conforms to "}
)

// heritagePredicate is one language-idiom detector. It inspects the source
// signature, the reference context, and the candidate target, and reports
// a relationship kind when its idiom matches. Predicates are pure and
// independently testable; Classify evaluates them in a fixed order and the
// first match wins.
type heritagePredicate func(src *scope.Scope, target *index.MappingEntry, context string) (RelType, bool)

// classifyRules is the ordered rule list. One predicate per idiom, not one
// monolithic regex.
var classifyRules = []heritagePredicate{
	contextInheritanceRule,
	contextImplementationRule,
	signatureExtendsRule,
	signatureImplementsRule,
	traitImplRule,
	colonBaseListRule,
	callStyleBaseRule,
	structuralEmbedRule,
	heritageMetadataRule,
}

// Classify decides the relationship type for an edge from src to target.
//
// Description:
//
//	Evaluates the idiom predicates in order; the first match wins and the
//	default is CONSUMES. Pure and side-effect free: same inputs always
//	produce the same type.
//
// Inputs:
//
//	src - The source scope. Must not be nil.
//	target - The resolved target entry. Must not be nil.
//	context - Surrounding declaration text from the identifier reference.
//	          May be empty.
//
// Thread Safety: Safe for concurrent use (stateless function).
func Classify(src *scope.Scope, target *index.MappingEntry, context string) RelType {
	for _, rule := range classifyRules {
		if t, ok := rule(src, target, context); ok {
			return t
		}
	}
	return RelConsumes
}

// contextInheritanceRule: reference context contains an inheritance keyword.
func contextInheritanceRule(_ *scope.Scope, _ *index.MappingEntry, context string) (RelType, bool) {
	if containsAny(context, inheritanceKeywords) {
		return RelInheritsFrom, true
	}
	return "", false
}

// contextImplementationRule: reference context contains an implementation keyword.
func contextImplementationRule(_ *scope.Scope, _ *index.MappingEntry, context string) (RelType, bool) {
	if containsAny(context, implementationKeywords) {
		return RelImplements, true
	}
	return "", false
}

// signatureExtendsRule: "class Dog extends Animal" and kin, target named in
// the extends clause.
func signatureExtendsRule(src *scope.Scope, target *index.MappingEntry, _ string) (RelType, bool) {
	for _, kw := range []string{" extends ", " inherits "} {
		if clause, ok := clauseAfter(src.Signature, kw); ok && nameInList(clause, target.Name) {
			return RelInheritsFrom, true
		}
	}
	return "", false
}

// signatureImplementsRule: "class Service implements Handler, Closer",
// target named in the implements clause.
func signatureImplementsRule(src *scope.Scope, target *index.MappingEntry, _ string) (RelType, bool) {
	if clause, ok := clauseAfter(src.Signature, " implements "); ok && nameInList(clause, target.Name) {
		return RelImplements, true
	}
	return "", false
}

// traitImplRule: Rust-style "impl Display for Point" naming the target trait.
func traitImplRule(src *scope.Scope, target *index.MappingEntry, _ string) (RelType, bool) {
	sig := strings.TrimSpace(src.Signature)
	if !strings.HasPrefix(sig, "impl ") {
		return "", false
	}
	rest := strings.TrimPrefix(sig, "impl ")
	traitPart, _, found := strings.Cut(rest, " for ")
	if !found {
		return "", false
	}
	// Strip generic parameters: "impl<T> Display for Wrapper<T>".
	traitPart = strings.TrimSpace(traitPart)
	if i := strings.IndexByte(traitPart, '<'); i >= 0 {
		traitPart = traitPart[:i]
	}
	if traitPart == target.Name {
		return RelImplements, true
	}
	return "", false
}

// colonBaseListRule: "class Button : Widget, IDrawable" (C#/C++/Swift-style
// base list). The target's declared type disambiguates: interface-like
// targets implement, everything else inherits.
func colonBaseListRule(src *scope.Scope, target *index.MappingEntry, _ string) (RelType, bool) {
	if !src.Type.IsAggregate() {
		return "", false
	}
	head, clause, found := strings.Cut(src.Signature, ":")
	if !found || strings.Contains(head, "(") {
		// A paren before the colon means this is Python-style or a
		// function signature, handled by other rules.
		return "", false
	}
	if i := strings.IndexByte(clause, '{'); i >= 0 {
		clause = clause[:i]
	}
	// Strip access specifiers common in C++ base lists.
	clause = strings.NewReplacer("public ", "", "private ", "", "protected ", "", "virtual ", "").Replace(clause)
	if !nameInList(clause, target.Name) {
		return "", false
	}
	if target.Type == scope.TypeInterface || target.Type == scope.TypeTypeAlias {
		return RelImplements, true
	}
	return RelInheritsFrom, true
}

// callStyleBaseRule: Python-style "class Dog(Animal)" naming the target in
// the base list.
func callStyleBaseRule(src *scope.Scope, target *index.MappingEntry, _ string) (RelType, bool) {
	if !src.Type.IsAggregate() {
		return "", false
	}
	open := strings.IndexByte(src.Signature, '(')
	closing := strings.IndexByte(src.Signature, ')')
	if open < 0 || closing <= open {
		return "", false
	}
	if nameInList(src.Signature[open+1:closing], target.Name) {
		return RelInheritsFrom, true
	}
	return "", false
}

// structuralEmbedRule: Go-style embedding — the target's name stands alone
// as an unlabeled field line in the aggregate source's body.
func structuralEmbedRule(src *scope.Scope, target *index.MappingEntry, _ string) (RelType, bool) {
	if !src.Type.IsAggregate() || src.Content == "" {
		return "", false
	}
	for _, line := range strings.Split(src.Content, "\n") {
		line = strings.TrimSuffix(strings.TrimSpace(line), ",")
		line = strings.TrimPrefix(line, "*")
		if line == target.Name {
			return RelInheritsFrom, true
		}
	}
	return "", false
}

// heritageMetadataRule: explicit walker-provided heritage entries map
// directly to a relationship kind.
func heritageMetadataRule(src *scope.Scope, target *index.MappingEntry, _ string) (RelType, bool) {
	for _, h := range src.Heritage {
		if h.Name != target.Name {
			continue
		}
		switch h.Kind {
		case "extends":
			return RelInheritsFrom, true
		case "implements":
			return RelImplements, true
		}
	}
	return "", false
}

// containsAny reports whether s contains any of the fragments.
func containsAny(s string, fragments []string) bool {
	if s == "" {
		return false
	}
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

// clauseAfter returns the text following the first occurrence of kw in sig,
// cut at the body-opening brace and at the next clause keyword, so
// "class Dog extends Animal implements Pet" yields just "Animal" for the
// extends clause.
func clauseAfter(sig, kw string) (string, bool) {
	_, after, found := strings.Cut(sig, kw)
	if !found {
		return "", false
	}
	if i := strings.IndexByte(after, '{'); i >= 0 {
		after = after[:i]
	}
	for _, stop := range []string{" implements ", " extends ", " where "} {
		if i := strings.Index(after, stop); i >= 0 {
			after = after[:i]
		}
	}
	return after, true
}

// nameInList reports whether name appears as a standalone entry in a
// comma-separated type list, ignoring generic arguments.
func nameInList(list, name string) bool {
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if i := strings.IndexByte(item, '<'); i >= 0 {
			item = strings.TrimSpace(item[:i])
		}
		// Drop Python metaclass/keyword arguments: "metaclass=ABCMeta".
		if strings.ContainsRune(item, '=') {
			continue
		}
		if item == name {
			return true
		}
	}
	return false
}
