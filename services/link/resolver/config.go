// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolver

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigName is the project config file the registry's resolvers
// read when no explicit config path is given.
const DefaultConfigName = "link.config.yaml"

// ProjectConfig holds user-provided overrides for import resolution.
//
// Description:
//
//	Loaded from <projectRoot>/link.config.yaml. All fields are optional.
//	A missing config file is not an error (zero-config works out of the box).
//
// Thread Safety: Safe for concurrent reads after construction.
type ProjectConfig struct {
	// Aliases maps import path prefixes to project-relative directories.
	// Example: {"@app/": "src/app/"}
	Aliases map[string]string `yaml:"aliases"`

	// SourceRoots lists directories probed for absolute-style imports,
	// in order. Example: ["src", "lib"]
	SourceRoots []string `yaml:"source_roots"`

	// Extensions extends the per-language candidate extension list.
	// Example: [".mjs", ".cts"]
	Extensions []string `yaml:"extensions"`
}

// LoadProjectConfig reads the resolver config from the project root.
//
// Description:
//
//	Reads and parses the config file. If the project root is empty or the
//	file does not exist, returns an empty config with no error. Only
//	returns an error if the file exists but cannot be parsed.
//
// Inputs:
//
//	projectRoot - Absolute path to the project root. May be empty.
//	configPath - Explicit config file path. Empty means the default location.
//
// Outputs:
//
//	ProjectConfig - The parsed config, or empty config if file is missing.
//	error - Non-nil only if the file exists but has invalid YAML.
//
// Thread Safety: Safe for concurrent use (stateless function).
func LoadProjectConfig(projectRoot, configPath string) (ProjectConfig, error) {
	if configPath == "" {
		if projectRoot == "" {
			return ProjectConfig{}, nil
		}
		configPath = filepath.Join(projectRoot, DefaultConfigName)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ProjectConfig{}, nil
		}
		return ProjectConfig{}, fmt.Errorf("read resolver config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ProjectConfig{}, fmt.Errorf("parse resolver config %s: %w", configPath, err)
	}

	return cfg, nil
}
