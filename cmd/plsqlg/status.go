// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/plsqlgraph/internal/cleaner"
	"github.com/kraklabs/plsqlgraph/internal/config"
	"github.com/kraklabs/plsqlgraph/internal/graph"
	"github.com/kraklabs/plsqlgraph/internal/store"
)

// StatusResult is the JSON shape of 'status --json', matching the
// teacher's StatusResult in cmd/cie/status.go.
type StatusResult struct {
	ProjectID      string    `json:"project_id"`
	DataDir        string    `json:"data_dir"`
	Objects        int       `json:"objects"`
	Edges          int       `json:"edges"`
	OutOfScope     int       `json:"out_of_scope"`
	ResolutionRate float64   `json:"resolution_rate"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

func runStatus(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	diffPath := fs.String("diff", "", "render a unified diff between the stored and current cleaned source of the given file, named by its stored path (relative to source_root, exclude_from_processed_path components removed)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, cfgPath := loadConfigOrFatal(configPath)
	dir, err := dataDir(cfg.DataDir, cfgPath)
	if err != nil {
		fatal("Cannot resolve data directory", err)
	}

	result := StatusResult{ProjectID: cfg.ProjectID, DataDir: dir, Timestamp: time.Now()}

	st := openStoreOrFatal(cfg, cfgPath)
	defer st.Close()

	if *diffPath != "" {
		runStatusDiff(st, cfg, *diffPath)
		return
	}

	objs, err := st.AllObjects()
	if err != nil {
		result.Error = err.Error()
	} else {
		result.Objects = len(objs)
		gr := graph.Build(objs, nil)
		result.Edges = len(gr.Graph.Edges)
		result.OutOfScope = len(gr.OutOfScope)
		if denom := result.Edges + result.OutOfScope; denom > 0 {
			result.ResolutionRate = float64(result.Edges) / float64(denom)
		}
	}

	if globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
		return
	}

	fmt.Printf("Project:     %s\n", result.ProjectID)
	fmt.Printf("Data dir:    %s\n", result.DataDir)
	fmt.Printf("Objects:     %d\n", result.Objects)
	fmt.Printf("Edges:       %d\n", result.Edges)
	fmt.Printf("Out-of-scope: %d\n", result.OutOfScope)
	fmt.Printf("Resolution rate: %.1f%%\n", result.ResolutionRate*100)
	if result.Error != "" {
		fmt.Printf("Error:       %s\n", result.Error)
	}
}

// runStatusDiff renders a unified diff between relPath's last-indexed
// cleaned source (stored on every object extracted from that file) and a
// fresh clean of the file's current on-disk content, matching the
// teacher's delta-debugging use of go-difflib for "what changed since the
// last run" output.
func runStatusDiff(st *store.Store, cfg config.Project, relPath string) {
	objs, err := st.ObjectsForFile(relPath)
	if err != nil {
		fatal("Cannot load stored objects for file", err)
	}
	if len(objs) == 0 {
		fmt.Printf("No indexed objects for %s.\n", relPath)
		return
	}
	stored := objs[0].CleanCode

	full := filepath.Join(cfg.SourceRoot, relPath)
	raw, err := os.ReadFile(full)
	if err != nil {
		fatal("Cannot read current file content", err)
	}
	current := cleaner.Clean(string(raw)).Cleaned

	if stored == current {
		fmt.Println("No differences.")
		return
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(stored),
		B:        difflib.SplitLines(current),
		FromFile: "stored",
		ToFile:   "current",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		fatal("Cannot render diff", err)
	}
	fmt.Print(text)
}
