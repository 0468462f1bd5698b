// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main implements the plsqlg CLI for indexing a PL/SQL source
// tree into a call-dependency graph and querying the result.
//
// Usage:
//
//	plsqlg init                 Create .plsqlg/project.yaml configuration
//	plsqlg index                Index the configured source tree
//	plsqlg status               Show object/edge/out-of-scope counts
//	plsqlg query <expr>         Filter stored objects by name/package/kind
//	plsqlg export <file>        Write the graph as JSON/GraphML/gob
//	plsqlg reset --yes          Delete all local indexed data
//	plsqlg serve                Serve /health and /metrics, reindexing on an interval
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds flags accepted before the subcommand name, matching
// the teacher's cmd/cie/main.go GlobalFlags shape.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Verbose int
	Quiet   bool
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Path to .plsqlg/project.yaml (default: ./.plsqlg/project.yaml)")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format (for applicable commands)")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output")
	)

	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `plsqlg - PL/SQL call-dependency graph builder

Usage:
  plsqlg <command> [options]

Commands:
  init          Create .plsqlg/project.yaml configuration
  index         Index the configured source tree
  status        Show object/edge/out-of-scope counts
  query         Filter stored objects by name/package/kind
  export        Write the graph as JSON/GraphML/gob
  reset         Delete all local indexed data (destructive!)
  serve         Serve /health and /metrics, reindexing on an interval

Global Options:
  --json            Output in JSON format (for applicable commands)
  --no-color        Disable color output (respects NO_COLOR env var)
  -v, --verbose     Increase verbosity (-v for info, -vv for debug)
  -q, --quiet       Suppress non-essential output
  -c, --config      Path to .plsqlg/project.yaml
  -V, --version     Show version and exit

Examples:
  plsqlg init
  plsqlg index --full
  plsqlg status --json
  plsqlg query "package:billing kind:FUNCTION"
  plsqlg export graph.json
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("plsqlg version %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}
	if *quiet && *verbose > 0 {
		fmt.Fprintln(os.Stderr, "Error: cannot use --quiet and --verbose together")
		os.Exit(1)
	}
	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{JSON: *jsonOutput, NoColor: *noColor, Verbose: *verbose, Quiet: *quiet}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs, *configPath, globals)
	case "index":
		runIndex(cmdArgs, *configPath, globals)
	case "status":
		runStatus(cmdArgs, *configPath, globals)
	case "query":
		runQuery(cmdArgs, *configPath, globals)
	case "export":
		runExport(cmdArgs, *configPath, globals)
	case "reset":
		runReset(cmdArgs, *configPath, globals)
	case "serve":
		runServe(cmdArgs, *configPath, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
