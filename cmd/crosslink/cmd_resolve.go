// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	link "github.com/crosslinkhq/crosslink/services/link"
	"github.com/crosslinkhq/crosslink/services/link/graph"
	"github.com/crosslinkhq/crosslink/services/link/resolver"
	"github.com/crosslinkhq/crosslink/services/link/scope"
)

// newResolveCmd builds the resolve subcommand.
func newResolveCmd() *cobra.Command {
	var (
		inGlob      string
		outPath     string
		projectRoot string
		configPath  string
		workers     int
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve walker parse dumps into a relationship graph",
		Long: "Loads ParsedFile JSON documents matched by the --in glob, builds the\n" +
			"global scope index, resolves cross-file relationships, and writes the\n" +
			"serialized graph to --out (or stdout).",
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, err := loadParsedFiles(inGlob)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no parse dumps matched %q", inGlob)
			}
			slog.Info("loaded parse dumps", slog.Int("files", len(files)))

			reg := resolver.NewRegistry(projectRoot, configPath)
			registerDefaultResolvers(reg)

			result, err := link.Analyze(cmd.Context(), files,
				link.WithRegistry(reg),
				link.WithWorkerCount(workers),
			)
			if err != nil {
				return err
			}

			slog.Info("resolution complete",
				slog.Int("scopes", result.Stats.TotalScopes),
				slog.Int("relationships", result.Stats.TotalRelationships),
				slog.Int("unresolved", result.Stats.UnresolvedCount),
				slog.Int64("elapsed_ms", result.Stats.ResolutionTimeMillis),
			)

			return writeResult(result, outPath)
		},
	}

	cmd.Flags().StringVar(&inGlob, "in", "", "doublestar glob matching ParsedFile JSON documents (required)")
	cmd.Flags().StringVar(&outPath, "out", "", "output file for the serialized graph (default: stdout)")
	cmd.Flags().StringVar(&projectRoot, "root", ".", "project root for import resolution")
	cmd.Flags().StringVar(&configPath, "config", "", "resolver config path (default: <root>/"+resolver.DefaultConfigName+")")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel workers (0 = all CPUs)")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}

// registerDefaultResolvers wires the batteries-included relative resolver
// for the common guest languages. Language-specific resolvers with manifest
// knowledge register over these in embedding applications.
func registerDefaultResolvers(reg *resolver.Registry) {
	reg.RegisterFactory("typescript", func() (resolver.ImportResolver, error) {
		return resolver.NewRelativeResolver(
			resolver.WithExtensions(".ts", ".tsx", ".js", ".jsx"),
			resolver.WithIndexNames("index"),
		), nil
	}, ".ts", ".tsx")

	reg.RegisterFactory("javascript", func() (resolver.ImportResolver, error) {
		return resolver.NewRelativeResolver(
			resolver.WithExtensions(".js", ".jsx", ".mjs", ".cjs"),
			resolver.WithIndexNames("index"),
		), nil
	}, ".js", ".jsx", ".mjs", ".cjs")

	reg.RegisterFactory("python", func() (resolver.ImportResolver, error) {
		return resolver.NewRelativeResolver(
			resolver.WithExtensions(".py"),
			resolver.WithIndexNames("__init__"),
		), nil
	}, ".py")
}

// loadParsedFiles reads every ParsedFile document matched by the glob.
func loadParsedFiles(pattern string) (map[string]*scope.ParsedFile, error) {
	base, rest := doublestar.SplitPattern(filepath.ToSlash(pattern))
	fsys := os.DirFS(base)

	matches, err := doublestar.Glob(fsys, rest)
	if err != nil {
		return nil, fmt.Errorf("bad input glob %q: %w", pattern, err)
	}

	files := make(map[string]*scope.ParsedFile, len(matches))
	for _, m := range matches {
		path := filepath.Join(base, filepath.FromSlash(m))
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read parse dump %s: %w", path, err)
		}

		var pf scope.ParsedFile
		if err := json.Unmarshal(data, &pf); err != nil {
			return nil, fmt.Errorf("parse dump %s: %w", path, err)
		}
		if pf.Path == "" {
			slog.Warn("parse dump has no file path, skipping", slog.String("dump", path))
			continue
		}
		files[pf.Path] = &pf
	}

	return files, nil
}

// writeResult serializes the result to the output path, or stdout.
func writeResult(result *graph.Result, outPath string) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	if outPath == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write graph %s: %w", outPath, err)
	}
	slog.Info("graph written", slog.String("path", outPath))
	return nil
}
