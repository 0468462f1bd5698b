// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/plsqlgraph/internal/object"
)

// runQuery executes the 'query' command: a small hand-written filter DSL
// over name/package/kind (CozoDB and its CozoScript query language are
// dropped along with the rest of the cozodb backend, see DESIGN.md), in
// the spirit of the teacher's runQuery but against this module's
// relational store instead of Datalog.
//
// Filter syntax: space-separated "field:value" terms, ANDed together.
// Recognised fields: name, package, kind. A bare term (no ':') matches
// against name as a case-insensitive substring.
//
// Examples:
//
//	plsqlg query "package:billing kind:FUNCTION"
//	plsqlg query "charge"
func runQuery(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	limit := fs.Int("limit", 0, "Maximum number of results (0 = no limit)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: plsqlg query <filter> [options]

Filter syntax: space-separated "field:value" terms (name, package, kind),
ANDed together. A bare term matches name as a substring.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}

	cfg, cfgPath := loadConfigOrFatal(configPath)
	st := openStoreOrFatal(cfg, cfgPath)
	defer st.Close()

	objs, err := st.AllObjects()
	if err != nil {
		fatal("Cannot load objects", err)
	}

	pred := parseFilter(strings.Join(fs.Args(), " "))
	var matched []*object.CodeObject
	for _, o := range objs {
		if pred(o) {
			matched = append(matched, o)
		}
		if *limit > 0 && len(matched) >= *limit {
			break
		}
	}

	if globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(matched)
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tPACKAGE\tNAME")
	for _, o := range matched {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.ID, o.Kind, o.PackageName, o.Name)
	}
	_ = tw.Flush()
}

// predicate matches a CodeObject against the parsed filter.
type predicate func(*object.CodeObject) bool

func parseFilter(expr string) predicate {
	terms := strings.Fields(expr)
	var preds []predicate
	for _, term := range terms {
		field, value, hasField := strings.Cut(term, ":")
		value = strings.ToLower(value)
		if !hasField {
			substr := strings.ToLower(field)
			preds = append(preds, func(o *object.CodeObject) bool {
				return strings.Contains(strings.ToLower(o.Name), substr)
			})
			continue
		}
		switch strings.ToLower(field) {
		case "name":
			preds = append(preds, func(o *object.CodeObject) bool { return strings.Contains(strings.ToLower(o.Name), value) })
		case "package":
			preds = append(preds, func(o *object.CodeObject) bool { return strings.Contains(strings.ToLower(o.PackageName), value) })
		case "kind":
			preds = append(preds, func(o *object.CodeObject) bool { return strings.EqualFold(string(o.Kind), value) })
		}
	}
	return func(o *object.CodeObject) bool {
		for _, p := range preds {
			if !p(o) {
				return false
			}
		}
		return true
	}
}
