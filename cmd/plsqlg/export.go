// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	exportpkg "github.com/kraklabs/plsqlgraph/internal/export"
	"github.com/kraklabs/plsqlgraph/internal/graph"
)

// runExport executes the 'export' command: serialise the graph built
// from every stored object to JSON, GraphML, or gob.
func runExport(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.StringP("format", "f", "", "Output format: json, graphml, gob (default: inferred from file extension)")
	structureOnly := fs.Bool("structure-only", false, "Elide clean code/parameters/call bodies, keep only {id,name,package_name,kind}")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: plsqlg export <output-file> [options]

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	outPath := fs.Arg(0)

	fmtName := *format
	if fmtName == "" {
		fmtName = inferFormat(outPath)
	}

	cfg, cfgPath := loadConfigOrFatal(configPath)
	st := openStoreOrFatal(cfg, cfgPath)
	defer st.Close()

	objs, err := st.AllObjects()
	if err != nil {
		fatal("Cannot load objects", err)
	}
	result := graph.Build(objs, nil)

	f, err := os.Create(outPath)
	if err != nil {
		fatal("Cannot create output file", err)
	}
	defer f.Close()

	opts := exportpkg.Options{StructureOnly: *structureOnly}
	switch fmtName {
	case "json":
		err = exportpkg.JSON(f, result.Graph, opts)
	case "graphml":
		err = exportpkg.GraphML(f, result.Graph, opts)
	case "gob":
		err = exportpkg.Gob(f, result.Graph, opts)
	default:
		fatal("Unknown export format", fmt.Errorf("%q (want json, graphml, or gob)", fmtName))
	}
	if err != nil {
		fatal("Export failed", err)
	}

	fmt.Printf("Exported %d nodes, %d edges to %s (%s)\n", len(result.Graph.Nodes), len(result.Graph.Edges), outPath, fmtName)
}

func inferFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".graphml", ".xml":
		return "graphml"
	case ".gob", ".bin":
		return "gob"
	default:
		return "json"
	}
}
