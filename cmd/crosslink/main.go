// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command crosslink links walker-produced symbol tables into a cross-file,
// cross-language dependency graph.
//
// Usage:
//
//	# Resolve all parse dumps under ./out and print the graph
//	crosslink resolve --root /path/to/project --in 'out/**/*.json'
//
//	# Write the graph to a file
//	crosslink resolve --root /path/to/project --in 'out/**/*.json' --out graph.json
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// logLevel holds the --log-level flag value.
var logLevel string

var rootCmd = &cobra.Command{
	Use:   "crosslink",
	Short: "Cross-language code relationship resolver",
	Long: "crosslink ingests syntax-tree-derived symbol tables from per-language\n" +
		"walkers and produces a typed cross-file dependency graph: who uses,\n" +
		"extends, implements, contains, or decorates what.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return setupLogging(logLevel)
	},
	SilenceUsage: true,
}

// setupLogging installs a text slog handler at the requested level.
func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})))
	return nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(newResolveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
