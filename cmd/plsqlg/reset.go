// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// runReset executes the 'reset' command, deleting all local indexed
// data, matching the teacher's runReset confirmation-flag pattern.
func runReset(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	confirm := fs.Bool("yes", false, "Confirm the reset (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: plsqlg reset --yes

WARNING: deletes all locally indexed data for the current project
(the object store, not .plsqlg/project.yaml). Re-run 'plsqlg index'
afterwards to rebuild it.
`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if !*confirm {
		fatal("Confirmation required", fmt.Errorf("pass --yes to confirm this destructive operation"))
	}

	cfg, cfgPath := loadConfigOrFatal(configPath)
	dir, err := dataDir(cfg.DataDir, cfgPath)
	if err != nil {
		fatal("Cannot resolve data directory", err)
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Printf("No local data found for project %s\n", cfg.ProjectID)
		return
	}

	fmt.Printf("Resetting project %s (deleting %s)...\n", cfg.ProjectID, dir)
	if err := os.RemoveAll(dir); err != nil {
		fatal("Cannot delete data directory", err)
	}

	fmt.Println("Reset complete. All local indexed data has been deleted.")
	fmt.Println("Next step: plsqlg index")
}
