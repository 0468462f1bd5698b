// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/plsqlgraph/internal/config"
)

// runInit executes the 'init' CLI command, creating a .plsqlg/project.yaml
// configuration file, mirroring the teacher's runInit shape (force/
// non-interactive flags, default-config-then-save).
func runInit(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing configuration")
	projectID := fs.String("project-id", "", "Project identifier (default: directory name)")
	sourceRoot := fs.StringP("source-root", "s", ".", "Root directory to walk for source files")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: plsqlg init [options]

Creates .plsqlg/project.yaml with default settings.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		fatal("Cannot determine working directory", err)
	}

	target, err := resolvedConfigPath(configPath)
	if err != nil {
		fatal("Cannot resolve config path", err)
	}

	if _, err := os.Stat(target); err == nil && !*force {
		fatal("Configuration already exists", fmt.Errorf("%s already exists; use --force to overwrite", target))
	}

	cfg := config.Default()
	cfg.SourceRoot = *sourceRoot
	if *projectID != "" {
		cfg.ProjectID = *projectID
	} else {
		cfg.ProjectID = filepath.Base(cwd)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		fatal("Cannot create config directory", err)
	}
	if err := config.Save(target, cfg); err != nil {
		fatal("Cannot write configuration", err)
	}

	fmt.Printf("Created %s for project %q\n", target, cfg.ProjectID)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  plsqlg index    Index the configured source tree")
}
