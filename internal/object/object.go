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

// Package object defines the central data model shared by every stage of
// the PL/SQL ingestion pipeline: parameters, call sites, and the
// CodeObject record that C2-C4 populate and C5-C8 persist and resolve.
package object

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// Kind is the closed enumeration of object kinds. UNKNOWN is reserved for
// placeholder nodes synthesised for unresolved external calls.
type Kind string

const (
	KindProcedure Kind = "PROCEDURE"
	KindFunction  Kind = "FUNCTION"
	KindPackage   Kind = "PACKAGE"
	KindTrigger   Kind = "TRIGGER"
	KindType      Kind = "TYPE"
	KindUnknown   Kind = "UNKNOWN"
)

// Mode is a parameter's passing mode.
type Mode string

const (
	ModeIn    Mode = "IN"
	ModeOut   Mode = "OUT"
	ModeInOut Mode = "IN_OUT"
)

// Parameter is a single formal parameter of a procedure or function header.
// Type is captured verbatim (not normalised); Default uses an explicit
// pointer rather than a sentinel string to distinguish "no default" from an
// empty-string default expression, per the "tagged variants" design note.
type Parameter struct {
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Mode    Mode    `json:"mode"`
	Default *string `json:"default,omitempty"`
}

// HasDefault reports whether the parameter carries a default expression.
func (p Parameter) HasDefault() bool {
	return p.Default != nil
}

// CallSite is a single invocation recorded within an object's body.
// Indices refer to the cleaned source; call_name preserves original
// casing, but all comparisons against it elsewhere are case-insensitive.
type CallSite struct {
	CallName   string            `json:"call_name"`
	LineNo     uint32            `json:"line_no"`
	StartIdx   uint32            `json:"start_idx"`
	EndIdx     uint32            `json:"end_idx"`
	Positional []string          `json:"positional"`
	Named      map[string]string `json:"named"`
}

// CodeObject is the central entity of the pipeline: a single procedure or
// function definition (or a placeholder node of Kind Unknown).
type CodeObject struct {
	ID          string
	Name        string // case-folded simple name
	PackageName string // case-folded, dotted; "" for standalone objects
	Kind        Kind
	Overloaded  bool
	Parameters  []Parameter
	ReturnType  *string // set for functions whose header parsed; nil otherwise
	CleanCode   string  // cleaned source of the containing file
	LiteralMap  map[string]string
	Calls       []CallSite
	StartLine   int
	EndLine     int
}

// QualifiedName returns "package.name", or just "name" when PackageName is
// empty.
func (o *CodeObject) QualifiedName() string {
	if o.PackageName == "" {
		return o.Name
	}
	return o.PackageName + "." + o.Name
}

// paramIDShape is the canonical, JSON-stable shape of a parameter used when
// hashing overload IDs. Only Name participates: overloads are told apart
// by their formal parameter name sets, so Default, Mode and Type are left
// out of the hash input.
type paramIDShape struct {
	Name string `json:"name"`
}

// GenerateID computes the stable ID for a CodeObject per spec.md's ID
// Generation rule in §3: if not overloaded, or it has no parameters, the ID
// is simply "package.name" (or "name" for standalone objects). Otherwise it
// is that qualified name plus "-" and the SHA-256 hex digest of a canonical
// JSON array of {"name": ...} objects holding the lower-cased parameter
// names, sorted by name, so that two overloads sharing the
// same formal-parameter-name *set* (regardless of declaration order) are
// assigned the same ID.
func GenerateID(packageName, name string, overloaded bool, parameters []Parameter) string {
	qualified := name
	if packageName != "" {
		qualified = packageName + "." + name
	}
	if !overloaded || len(parameters) == 0 {
		return qualified
	}

	shapes := make([]paramIDShape, len(parameters))
	for i, p := range parameters {
		shapes[i] = paramIDShape{Name: strings.ToLower(p.Name)}
	}
	sort.Slice(shapes, func(i, j int) bool { return shapes[i].Name < shapes[j].Name })

	canonical, err := json.Marshal(shapes)
	if err != nil {
		// json.Marshal on a slice of single-string structs cannot fail; this is
		// unreachable, but keep the contract total rather than panicking.
		canonical = []byte("[]")
	}
	sum := sha256.Sum256(canonical)
	return qualified + "-" + hex.EncodeToString(sum[:])
}

// Placeholder builds a Kind-Unknown node for an unresolved qualified call
// name "prefix.lastSegment", used so downstream analyses see the external
// dependency edge even though the target was never ingested.
func Placeholder(qualifiedName string) *CodeObject {
	idx := strings.LastIndex(qualifiedName, ".")
	name := qualifiedName
	pkg := ""
	if idx >= 0 {
		name = qualifiedName[idx+1:]
		pkg = qualifiedName[:idx]
	}
	return &CodeObject{
		ID:          qualifiedName,
		Name:        name,
		PackageName: pkg,
		Kind:        KindUnknown,
	}
}
