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

// Package export serialises a graph.Graph to JSON (node-link), GraphML,
// or gob, per spec.md §6.3 / SPEC_FULL.md §6.3. Every node carries at
// minimum {id, name, package_name, kind}. JSON nodes add parameters, return
// type and line span unless StructureOnly is set; gob nodes carry the full
// CodeObject (clean code, literal map, call sites included) unless
// StructureOnly reduces them to the four fields. GraphML nodes always carry
// only the four fields.
package export

import (
	"encoding/gob"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/kraklabs/plsqlgraph/internal/graph"
	"github.com/kraklabs/plsqlgraph/internal/object"
)

// Options controls what an export writes.
type Options struct {
	StructureOnly bool
}

// nodeLinkNode is the JSON shape of one node.
type nodeLinkNode struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	PackageName string              `json:"package_name"`
	Kind        object.Kind         `json:"kind"`
	Parameters  []object.Parameter  `json:"parameters,omitempty"`
	ReturnType  *string             `json:"return_type,omitempty"`
	StartLine   int                 `json:"start_line,omitempty"`
	EndLine     int                 `json:"end_line,omitempty"`
}

type nodeLinkEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type nodeLinkDoc struct {
	Directed bool           `json:"directed"`
	Nodes    []nodeLinkNode `json:"nodes"`
	Edges    []nodeLinkEdge `json:"edges"`
}

func toDoc(g *graph.Graph, opts Options) nodeLinkDoc {
	doc := nodeLinkDoc{Directed: true}
	for _, n := range g.Nodes {
		nn := nodeLinkNode{ID: n.ID, Name: n.Name, PackageName: n.PackageName, Kind: n.Kind}
		if !opts.StructureOnly {
			nn.Parameters = n.Parameters
			nn.ReturnType = n.ReturnType
			nn.StartLine = n.StartLine
			nn.EndLine = n.EndLine
		}
		doc.Nodes = append(doc.Nodes, nn)
	}
	for _, e := range g.Edges {
		doc.Edges = append(doc.Edges, nodeLinkEdge{Source: g.Nodes[e.From].ID, Target: g.Nodes[e.To].ID})
	}
	return doc
}

// JSON writes a node-link JSON document to w.
func JSON(w io.Writer, g *graph.Graph, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toDoc(g, opts))
}

// graphmlNode/graphmlEdge/graphmlDoc model the minimal subset of the
// GraphML schema needed to round-trip a call graph: a node per
// CodeObject and an edge per call, with data keys matching the node-link
// JSON field set.
type graphmlDataKey struct {
	XMLName xml.Name `xml:"key"`
	ID      string   `xml:"id,attr"`
	For     string   `xml:"for,attr"`
	AttrName string  `xml:"attr.name,attr"`
	AttrType string  `xml:"attr.type,attr"`
}

type graphmlData struct {
	XMLName xml.Name `xml:"data"`
	Key     string   `xml:"key,attr"`
	Value   string   `xml:",chardata"`
}

type graphmlNode struct {
	XMLName xml.Name      `xml:"node"`
	ID      string        `xml:"id,attr"`
	Data    []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	XMLName xml.Name `xml:"edge"`
	Source  string   `xml:"source,attr"`
	Target  string   `xml:"target,attr"`
}

type graphmlGraph struct {
	XMLName     xml.Name      `xml:"graph"`
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlDoc struct {
	XMLName xml.Name         `xml:"graphml"`
	Keys    []graphmlDataKey `xml:"key"`
	Graph   graphmlGraph     `xml:"graph"`
}

// GraphML writes a GraphML XML document to w.
func GraphML(w io.Writer, g *graph.Graph, opts Options) error {
	doc := graphmlDoc{
		Keys: []graphmlDataKey{
			{ID: "name", For: "node", AttrName: "name", AttrType: "string"},
			{ID: "package_name", For: "node", AttrName: "package_name", AttrType: "string"},
			{ID: "kind", For: "node", AttrName: "kind", AttrType: "string"},
		},
		Graph: graphmlGraph{EdgeDefault: "directed"},
	}
	_ = opts // GraphML always carries the minimal node fields; there is no
	// further payload to elide beyond what JSON's StructureOnly removes.

	for _, n := range g.Nodes {
		doc.Graph.Nodes = append(doc.Graph.Nodes, graphmlNode{
			ID: n.ID,
			Data: []graphmlData{
				{Key: "name", Value: n.Name},
				{Key: "package_name", Value: n.PackageName},
				{Key: "kind", Value: string(n.Kind)},
			},
		})
	}
	for _, e := range g.Edges {
		doc.Graph.Edges = append(doc.Graph.Edges, graphmlEdge{Source: g.Nodes[e.From].ID, Target: g.Nodes[e.To].ID})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("export: encode graphml: %w", err)
	}
	return nil
}

// gobDoc is the payload written/read by Gob/DecodeGob: the full node
// arena plus edges, letting a structure-only export still be used to
// reconstruct graph.Graph for further queries (minus bodies/calls).
type gobDoc struct {
	Nodes []*object.CodeObject
	Edges []graph.Edge
}

// Gob writes a gob-encoded binary snapshot of g to w.
func Gob(w io.Writer, g *graph.Graph, opts Options) error {
	doc := gobDoc{Edges: g.Edges}
	for _, n := range g.Nodes {
		if opts.StructureOnly {
			doc.Nodes = append(doc.Nodes, &object.CodeObject{ID: n.ID, Name: n.Name, PackageName: n.PackageName, Kind: n.Kind})
			continue
		}
		doc.Nodes = append(doc.Nodes, n)
	}
	return gob.NewEncoder(w).Encode(doc)
}

// DecodeGob reads a gob-encoded snapshot previously written by Gob.
func DecodeGob(r io.Reader) (*graph.Graph, error) {
	var doc gobDoc
	if err := gob.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("export: decode gob: %w", err)
	}
	return graph.FromNodesAndEdges(doc.Nodes, doc.Edges), nil
}
