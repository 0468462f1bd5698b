// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultConfigPath = ".plsqlg/project.yaml"

// resolvedConfigPath resolves the project.yaml path with precedence:
// --config flag > PLSQLG_CONFIG_PATH env > ./.plsqlg/project.yaml,
// mirroring the teacher's resolvedConfigPath in cmd/cie/paths.go.
func resolvedConfigPath(configPath string) (string, error) {
	if configPath != "" {
		return absPath(configPath)
	}
	if envPath := os.Getenv("PLSQLG_CONFIG_PATH"); envPath != "" {
		return absPath(envPath)
	}
	return absPath(defaultConfigPath)
}

// dataDir resolves the effective data directory for cfg: PLSQLG_DATA_DIR
// env, then cfg.DataDir relative to the config file's directory.
func dataDir(cfgDataDir, configPath string) (string, error) {
	if envDir := os.Getenv("PLSQLG_DATA_DIR"); envDir != "" {
		return absPath(envDir)
	}
	if cfgDataDir == "" {
		cfgDataDir = ".plsqlg"
	}
	if filepath.IsAbs(cfgDataDir) {
		return filepath.Clean(cfgDataDir), nil
	}
	cfgFilePath, err := resolvedConfigPath(configPath)
	if err != nil {
		return "", fmt.Errorf("resolve data dir: %w", err)
	}
	return filepath.Clean(filepath.Join(filepath.Dir(cfgFilePath), cfgDataDir)), nil
}

func absPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}
