// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
)

// fatal prints a one-line error summary and exits non-zero, standing in
// for the teacher's internal/errors.FatalError (filtered from this
// module's retrieval pack): this CLI has no remote-reporting or
// JSON-error-envelope concerns, so a bare stderr print plus exit is the
// whole of what's needed here.
func fatal(summary string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", summary, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", summary)
	}
	os.Exit(1)
}
