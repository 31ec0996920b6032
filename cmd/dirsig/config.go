// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// configEnvVariable names the config file when no --config flag is
// given. There are no discovery fallbacks: configuration comes from
// exactly the file named here or on the command line, or nowhere.
const configEnvVariable = "DIRSIG_CONFIG"

// fileConfig is the YAML configuration file. It only supplies
// defaults; explicit flags always win.
//
//	defaults:
//	  hash: blake3/256
//	  block_size: 65536
//	  threads: 8
type fileConfig struct {
	Defaults struct {
		Hash      string `yaml:"hash"`
		BlockSize uint64 `yaml:"block_size"`
		Threads   int    `yaml:"threads"`
	} `yaml:"defaults"`
}

// loadFileConfig reads the config file named by the flag or the
// environment. An empty path with no environment variable set returns
// the zero config; a named file that cannot be read or parsed is an
// error (a requested config must never be silently ignored).
func loadFileConfig(flagPath string) (fileConfig, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(configEnvVariable)
	}
	var config fileConfig
	if path == "" {
		return config, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("reading config file: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return config, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return config, nil
}
