// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shardstream/shardstream/lib/dataset"
)

// config is the YAML file layout. There is exactly one config file,
// named explicitly with --config; no discovery, no fallbacks.
type config struct {
	Splits []splitConfig `yaml:"splits"`
}

type splitConfig struct {
	Name   string   `yaml:"name"`
	Shards []string `yaml:"shards"`
}

// loadConfig reads and validates the split config file.
func loadConfig(path string) ([]dataset.Split, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var parsed config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if len(parsed.Splits) == 0 {
		return nil, fmt.Errorf("config %s declares no splits", path)
	}

	splits := make([]dataset.Split, 0, len(parsed.Splits))
	for _, split := range parsed.Splits {
		splits = append(splits, dataset.Split{Name: split.Name, Shards: split.Shards})
	}
	return splits, nil
}
