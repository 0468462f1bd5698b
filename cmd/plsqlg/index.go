// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/plsqlgraph/internal/config"
	"github.com/kraklabs/plsqlgraph/internal/logging"
	"github.com/kraklabs/plsqlgraph/internal/pipeline"
	"github.com/kraklabs/plsqlgraph/internal/store"
)

// runIndex executes the 'index' command: load config, open the store,
// run the pipeline, and print a summary, mirroring the teacher's
// runLocalIndex progress-bar wiring in cmd/cie/index.go.
func runIndex(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	full := fs.Bool("full", false, "Bypass delta detection and reprocess every file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: plsqlg index [options]

Walks the configured source tree, extracts objects and calls, and
builds the dependency graph.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, cfgPath := loadConfigOrFatal(configPath)
	logger := logging.New(os.Stderr, logging.Options{JSON: globals.JSON, NoColor: globals.NoColor, Verbose: globals.Verbose, Quiet: globals.Quiet})

	st := openStoreOrFatal(cfg, cfgPath)
	defer st.Close()

	p := pipeline.New(cfg, st, logger)

	var bar *progressbar.ProgressBar
	if !globals.Quiet {
		p.SetProgress(func(current, total int64, phase string) {
			if bar == nil {
				bar = progressbar.Default(total, phase)
			}
			_ = bar.Set64(current)
		})
	}

	result, err := p.Run(context.Background(), *full)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		fatal("Indexing failed", err)
	}

	fmt.Printf("Run %s: %d files walked, %d processed, %d unchanged, %d deleted\n",
		result.RunID, result.FilesWalked, result.FilesProcessed, result.FilesSkipped, result.FilesDeleted)
	fmt.Printf("Objects: %d  Edges: %d  Out-of-scope: %d\n", result.ObjectsExtracted, result.Edges, result.OutOfScope)
	if result.ParseErrors > 0 {
		fmt.Printf("Parse errors: %d (see logs with -v)\n", result.ParseErrors)
	}
}

func loadConfigOrFatal(configPath string) (config.Project, string) {
	cfgPath, err := resolvedConfigPath(configPath)
	if err != nil {
		fatal("Cannot resolve config path", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal(fmt.Sprintf("Cannot load %s (run 'plsqlg init' first)", cfgPath), err)
	}
	return cfg, cfgPath
}

func openStoreOrFatal(cfg config.Project, cfgPath string) *store.Store {
	dir, err := dataDir(cfg.DataDir, cfgPath)
	if err != nil {
		fatal("Cannot resolve data directory", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fatal("Cannot create data directory", err)
	}
	st, err := store.Open(filepath.Join(dir, "objects.db"))
	if err != nil {
		fatal("Cannot open object store", err)
	}
	return st
}
