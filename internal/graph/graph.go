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

// Package graph implements C8, the Graph Constructor: it orchestrates C6
// (lookup.Build) and C7 (resolve.Resolve) over the full object list,
// producing a directed graph of resolved call edges plus an out-of-scope
// set of call names that could not be resolved.
//
// Nodes are held in an arena (slice) with edges stored as index pairs, per
// the "Cyclic graph structure" design note: this avoids owning
// back-references from nodes to the graph and keeps serialisation trivial.
package graph

import (
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/kraklabs/plsqlgraph/internal/lookup"
	"github.com/kraklabs/plsqlgraph/internal/object"
	"github.com/kraklabs/plsqlgraph/internal/resolve"
)

// Edge is an ordered pair of node indices into Graph.Nodes.
type Edge struct {
	From, To int
}

// Graph is the arena of CodeObject nodes plus the index-pair edge list.
type Graph struct {
	Nodes   []*object.CodeObject
	idIndex map[string]int
	Edges   []Edge
	edgeSet map[Edge]bool
}

// NodeByID returns the node index for id, or (-1, false).
func (g *Graph) NodeByID(id string) (int, bool) {
	idx, ok := g.idIndex[id]
	return idx, ok
}

func newGraph() *Graph {
	return &Graph{idIndex: make(map[string]int), edgeSet: make(map[Edge]bool)}
}

// FromNodesAndEdges rebuilds a Graph from a previously exported node list
// and edge set (used by internal/export's gob decoder to rehydrate a
// snapshot without re-running resolution).
func FromNodesAndEdges(nodes []*object.CodeObject, edges []Edge) *Graph {
	g := newGraph()
	for _, n := range nodes {
		g.addNode(n)
	}
	for _, e := range edges {
		g.addEdge(e.From, e.To)
	}
	return g
}

func (g *Graph) addNode(o *object.CodeObject) int {
	if idx, ok := g.idIndex[o.ID]; ok {
		return idx
	}
	idx := len(g.Nodes)
	g.Nodes = append(g.Nodes, o)
	g.idIndex[o.ID] = idx
	return idx
}

// addEdge adds a unique, non-self-loop edge. Returns true if a new edge
// was added.
func (g *Graph) addEdge(from, to int) bool {
	if from == to {
		return false
	}
	e := Edge{From: from, To: to}
	if g.edgeSet[e] {
		return false
	}
	g.edgeSet[e] = true
	g.Edges = append(g.Edges, e)
	return true
}

// CallShape is a summary of a call site's argument shape (spec.md §4.8:
// out-of-scope entries for unresolved/ambiguous overload calls must record
// the call's parameter shape for diagnosis).
type CallShape struct {
	Positional []string          `json:"positional,omitempty"`
	Named      map[string]string `json:"named,omitempty"`
}

func callShape(c object.CallSite) CallShape {
	return CallShape{Positional: c.Positional, Named: c.Named}
}

// OutOfScopeEntry records a call name that could not be resolved, with
// enough shape to distinguish qualified vs unqualified failures.
type OutOfScopeEntry struct {
	CallerID string
	CallName string
	Reason   string // "unresolved", "ambiguous", "skipped"
	Params   CallShape
}

// Result is the output of Build: the constructed graph and the set of
// out-of-scope call names.
type Result struct {
	Graph      *Graph
	OutOfScope []OutOfScopeEntry
}

// parallelThreshold mirrors the teacher's sequential-vs-parallel dispatch
// cutoff in resolver.go: below this many objects, resolve sequentially;
// above it, fan out across a bounded worker pool.
const parallelThreshold = 64

// Build runs C6 then C8's resolution pipeline over objs (which must
// already have forward declarations removed, per spec.md's invariant that
// forward declarations never appear as nodes). Iteration is sorted by ID
// for determinism (spec.md §4.8 contract).
func Build(objs []*object.CodeObject, logger *slog.Logger) Result {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sorted := append([]*object.CodeObject(nil), objs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	tables := lookup.Build(sorted, logger)

	g := newGraph()
	for _, o := range sorted {
		g.addNode(o)
	}

	workers := 1
	if len(sorted) >= parallelThreshold {
		workers = runtime.NumCPU()
		if workers > 8 {
			workers = 8
		}
	}

	type pendingEdge struct {
		from   int
		target *object.CodeObject
	}

	type outcome struct {
		edges      []pendingEdge
		outOfScope []OutOfScopeEntry
	}

	process := func(o *object.CodeObject) outcome {
		var out outcome
		if o.CleanCode == "" {
			return out
		}
		calls := append([]object.CallSite(nil), o.Calls...)
		sort.Slice(calls, func(i, j int) bool { return calls[i].StartIdx < calls[j].StartIdx })

		fromIdx, _ := g.NodeByID(o.ID)
		for _, c := range calls {
			res := resolveCall(tables, o.PackageName, c)
			switch res.status {
			case resolvedStatus:
				out.edges = append(out.edges, pendingEdge{from: fromIdx, target: res.target})
			case placeholderStatus:
				out.edges = append(out.edges, pendingEdge{from: fromIdx, target: res.target})
				out.outOfScope = append(out.outOfScope, OutOfScopeEntry{CallerID: o.ID, CallName: c.CallName, Reason: "unresolved", Params: callShape(c)})
			case ambiguousStatus:
				out.outOfScope = append(out.outOfScope, OutOfScopeEntry{CallerID: o.ID, CallName: c.CallName, Reason: "ambiguous", Params: callShape(c)})
			case outOfScopeStatus:
				out.outOfScope = append(out.outOfScope, OutOfScopeEntry{CallerID: o.ID, CallName: c.CallName, Reason: "unresolved", Params: callShape(c)})
			case skippedStatus:
				// n is in tables.Skip: no resolution is attempted, but the
				// call is still out-of-scope per spec.md §4.8.
				out.outOfScope = append(out.outOfScope, OutOfScopeEntry{CallerID: o.ID, CallName: c.CallName, Reason: "skipped", Params: callShape(c)})
			}
		}
		return out
	}

	outcomes := make([]outcome, len(sorted))
	if workers <= 1 {
		for i, o := range sorted {
			outcomes[i] = process(o)
		}
	} else {
		var wg sync.WaitGroup
		sem := make(chan struct{}, workers)
		for i, o := range sorted {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, o *object.CodeObject) {
				defer wg.Done()
				defer func() { <-sem }()
				outcomes[i] = process(o)
			}(i, o)
		}
		wg.Wait()
	}

	// Target nodes (placeholders included) are added only here, after all
	// workers are done, so node order follows the sorted object order.
	var outOfScope []OutOfScopeEntry
	for _, oc := range outcomes {
		for _, e := range oc.edges {
			g.addEdge(e.from, g.addNode(e.target))
		}
		outOfScope = append(outOfScope, oc.outOfScope...)
	}

	return Result{Graph: g, OutOfScope: outOfScope}
}

type resolveStatus int

const (
	outOfScopeStatus resolveStatus = iota
	resolvedStatus
	placeholderStatus
	ambiguousStatus
	skippedStatus
)

type resolveOutcome struct {
	status resolveStatus
	target *object.CodeObject
}

// resolveCall implements the 6-step resolution order of spec.md §4.8.
func resolveCall(t *lookup.Tables, callerPkg string, c object.CallSite) resolveOutcome {
	n := c.CallName
	nLower := lookup.FoldName(n)

	if t.Skip[nLower] {
		return resolveOutcome{status: skippedStatus}
	}

	// 1. Global normal exact match on n.
	if o, ok := t.GlobalNormal[nLower]; ok {
		return resolveOutcome{status: resolvedStatus, target: o}
	}

	// 2. Package-local normal exact match on n under caller's package.
	if pm, ok := t.PkgLocal[callerPkg]; ok {
		if o, ok := pm.Normal[nLower]; ok {
			return resolveOutcome{status: resolvedStatus, target: o}
		}
	}

	// 3. Global normal exact match on P + "." + n.
	qualified := nLower
	if callerPkg != "" {
		qualified = strings.ToLower(callerPkg) + "." + nLower
		if o, ok := t.GlobalNormal[qualified]; ok {
			return resolveOutcome{status: resolvedStatus, target: o}
		}
	}

	// 4. Global overload set exact match on n. The teacher's
	// graph_constructor.py invokes overload resolution exactly once on the
	// first non-empty candidate set and returns immediately regardless of
	// success, ambiguity, or no-match; it never falls through to try a
	// different overload set afterward.
	if set, ok := t.GlobalOverloaded[nLower]; ok {
		return resolveSetOutcome(set, c)
	}

	// 5. Package-local overload set on n under caller's package.
	if pm, ok := t.PkgLocal[callerPkg]; ok {
		if set, ok := pm.Overloaded[nLower]; ok {
			return resolveSetOutcome(set, c)
		}
	}

	// 6. Global overload set on P + "." + n.
	if callerPkg != "" {
		if set, ok := t.GlobalOverloaded[qualified]; ok {
			return resolveSetOutcome(set, c)
		}
	}

	// No path resolved. If n contains ".", synthesise a placeholder node.
	if strings.Contains(n, ".") {
		return resolveOutcome{status: placeholderStatus, target: object.Placeholder(n)}
	}
	return resolveOutcome{status: outOfScopeStatus}
}

func resolveSet(set map[string]*object.CodeObject, c object.CallSite) (*object.CodeObject, error) {
	candidates := make([]*object.CodeObject, 0, len(set))
	for _, o := range set {
		candidates = append(candidates, o)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	return resolve.Resolve(candidates, c)
}

// resolveSetOutcome resolves against a single non-empty overload candidate
// set and reports its outcome directly: a no-match here is a terminal
// out-of-scope result, not a cue to keep trying other candidate sets.
func resolveSetOutcome(set map[string]*object.CodeObject, c object.CallSite) resolveOutcome {
	o, err := resolveSet(set, c)
	switch err {
	case nil:
		return resolveOutcome{status: resolvedStatus, target: o}
	case resolve.ErrAmbiguous:
		return resolveOutcome{status: ambiguousStatus}
	default:
		return resolveOutcome{status: outOfScopeStatus}
	}
}
