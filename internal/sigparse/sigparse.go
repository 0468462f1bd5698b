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

// Package sigparse implements C3, the Signature Parser: it turns a single
// object's header text into {kind, name, parameters, return_type}.
//
// The scanning strategy mirrors the teacher's Go-signature parser
// (balanced-paren scanning, top-level comma splitting) generalized to the
// PL/SQL grammar described in spec.md §4.3, which was itself distilled from
// a pyparsing grammar (original_source's signature_parser.py). Header
// candidates are found with a scan-forward-for-best-match strategy: among
// all regex matches for a full signature, the longest wins, and ties prefer
// the last match encountered (matching pyparsing's scan_string with a ">="
// comparison).
package sigparse

import (
	"regexp"
	"strings"

	"github.com/kraklabs/plsqlgraph/internal/object"
)

// Signature is the parsed result of an object header.
type Signature struct {
	Kind       object.Kind
	Name       string
	Parameters []object.Parameter
	ReturnType *string
}

// headerRegex's parameter-list group accepts parentheses nested up to three
// levels deep (e.g. NUMBER(10,2), or a default of NVL(TRUNC(x), 0)) and ends
// at the list's matching ')'.
var headerRegex = regexp.MustCompile(`(?is)(?:CREATE\s+(?:OR\s+REPLACE\s+)?(?:(?:NON)?EDITIONABLE\s+)?)?` +
	`(PROCEDURE|FUNCTION)\s+` +
	`([A-Za-z_][A-Za-z0-9_#$.]*|"(?:[^"]|"")+")` +
	`\s*(\((?:[^;()]|\((?:[^;()]|\([^;()]*\))*\))*\))?` +
	`(?:\s+RETURN\s+([A-Za-z_][A-Za-z0-9_.#$%]*(?:\s*\([^)]*\))?))?` +
	`\s*(?:IS|AS)?`)

// Parse attempts to parse a header (typically the first line(s) of an
// object's body up to IS/AS/;) into a Signature. Returns false if no
// header pattern matched.
func Parse(headerText string) (Signature, bool) {
	matches := headerRegex.FindAllStringSubmatchIndex(headerText, -1)
	if len(matches) == 0 {
		return Signature{}, false
	}

	// Scan-forward-for-best-match: longest match wins; ties prefer the
	// last one found (">=" comparison, per signature_parser.py::parse).
	best := matches[0]
	bestLen := best[1] - best[0]
	for _, m := range matches[1:] {
		l := m[1] - m[0]
		if l >= bestLen {
			best = m
			bestLen = l
		}
	}

	group := func(i int) string {
		if best[2*i] < 0 {
			return ""
		}
		return headerText[best[2*i]:best[2*i+1]]
	}

	kindText := strings.ToUpper(group(1))
	name := cleanIdent(strings.TrimSpace(group(2)))
	paramsText := strings.TrimSpace(group(3))
	returnType := strings.TrimSpace(group(4))

	var kind object.Kind
	switch kindText {
	case "PROCEDURE":
		kind = object.KindProcedure
	case "FUNCTION":
		kind = object.KindFunction
	default:
		return Signature{}, false
	}

	params := parseParamList(paramsText)

	sig := Signature{Kind: kind, Name: name, Parameters: params}
	if kind == object.KindFunction {
		if returnType == "" {
			returnType = "UNKNOWN"
		}
		sig.ReturnType = &returnType
	}
	return sig, true
}

func cleanIdent(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}

// parseParamList parses "(...)" into a parameter slice, splitting at
// top-level commas (respecting nested parens, e.g. NUMBER(10,2)).
func parseParamList(text string) []object.Parameter {
	if text == "" {
		return nil
	}
	text = strings.TrimPrefix(text, "(")
	text = strings.TrimSuffix(text, ")")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	chunks := splitAtTopLevelCommas(text)
	params := make([]object.Parameter, 0, len(chunks))
	for _, c := range chunks {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		params = append(params, parseOneParam(c))
	}
	return params
}

func splitAtTopLevelCommas(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

var (
	identRegex       = regexp.MustCompile(`^("(?:[^"]|"")+"|[A-Za-z_][A-Za-z0-9_#$]*)`)
	modeInOutRegex   = regexp.MustCompile(`(?i)^\s*IN\s+OUT\b`)
	modeInRegex      = regexp.MustCompile(`(?i)^\s*IN\b`)
	modeOutRegex     = regexp.MustCompile(`(?i)^\s*OUT\b`)
	nocopyRegex      = regexp.MustCompile(`(?i)^\s*NOCOPY\b`)
	defaultKwRegex   = regexp.MustCompile(`(?i)^\s*(?:DEFAULT|:=)\s*`)
	sizeSpecRegex    = regexp.MustCompile(`(?i)^\s*\(\s*\d+(\s*,\s*\d+)?\s*(?:CHAR|BYTE)?\s*\)`)
	typeAttrRegex    = regexp.MustCompile(`(?i)^\s*%(TYPE|ROWTYPE)\b`)
	qnameSegmentStep = regexp.MustCompile(`^\s*\.\s*`)
)

// parseOneParam parses "name [IN|OUT|IN OUT] [NOCOPY] type_expr [DEFAULT|:= expr]".
func parseOneParam(text string) object.Parameter {
	rest := text

	nameMatch := identRegex.FindString(rest)
	name := cleanIdent(nameMatch)
	rest = rest[len(nameMatch):]

	mode := object.ModeIn
	switch {
	case modeInOutRegex.MatchString(rest):
		mode = object.ModeInOut
		rest = modeInOutRegex.ReplaceAllString(rest, "")
	case modeOutRegex.MatchString(rest):
		mode = object.ModeOut
		rest = modeOutRegex.ReplaceAllString(rest, "")
	case modeInRegex.MatchString(rest):
		mode = object.ModeIn
		rest = modeInRegex.ReplaceAllString(rest, "")
	}

	if nocopyRegex.MatchString(rest) {
		rest = nocopyRegex.ReplaceAllString(rest, "")
	}

	// type_expr: qname ( '(' size tokens ')' )? ( '%TYPE' | '%ROWTYPE' )?
	// and a trailing default clause. Locate the default clause boundary
	// first (first top-level "DEFAULT"/":=" outside of any parens), then
	// treat everything before it as the type expression.
	typeText, defaultText := splitDefaultClause(rest)

	typeExpr := normalizeWhitespace(typeText)

	var def *string
	if defaultText != "" {
		d := strings.TrimSpace(defaultText)
		def = &d
	}

	return object.Parameter{
		Name:    name,
		Type:    typeExpr,
		Mode:    mode,
		Default: def,
	}
}

// splitDefaultClause finds the first top-level DEFAULT or ":=" token (depth
// 0 w.r.t. parens) and splits the remainder into (type, defaultExpr).
func splitDefaultClause(s string) (string, string) {
	depth := 0
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 {
			remainder := string(runes[i:])
			if loc := defaultKwRegex.FindStringIndex(remainder); loc != nil && loc[0] == 0 {
				return string(runes[:i]), remainder[loc[1]:]
			}
		}
	}
	return s, ""
}

func normalizeWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
