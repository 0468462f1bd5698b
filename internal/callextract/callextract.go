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

// Package callextract implements C4, the Call Extractor: it scans an
// object's cleaned body for call sites, balancing nested parentheses by
// hand (not regex, per spec.md §9) and recognising named-parameter ("=>")
// syntax, restoring literal values from C1's literal map.
//
// Grounded directly on original_source's call_extractor.py, in particular
// the _extract_call_params state machine: a nesting counter starting at 1
// after the opening '(', with ';' at depth<=1 aborting collection for that
// call (discarding only the in-progress partial parameter) and ')' at
// depth 1 terminating the list.
package callextract

import (
	"regexp"
	"strings"

	"github.com/kraklabs/plsqlgraph/internal/object"
)

var qnameRegex = regexp.MustCompile(`(?i)([A-Za-z_][A-Za-z0-9_#$]*|"(?:[^"]|"")+")(\.(?:[A-Za-z_][A-Za-z0-9_#$]*|"(?:[^"]|"")+"))*`)

// Options configures candidate filtering, matching spec.md §6's
// call_keywords_to_drop / strict_lpar_only_calls / allow_parameterless_calls.
type Options struct {
	KeywordsToDrop        map[string]bool // upper-cased
	StrictLparOnlyCalls   bool
	AllowParameterlessCalls bool
}

// DefaultOptions returns permissive defaults: no keyword blacklist, allow
// both "(" and bare ";" terminators, allow parameterless calls.
func DefaultOptions() Options {
	return Options{KeywordsToDrop: map[string]bool{}, AllowParameterlessCalls: true}
}

// Extract scans cleaned for call sites, in source order.
func Extract(cleaned string, literalMap map[string]string, opts Options) []object.CallSite {
	var sites []object.CallSite

	matches := qnameRegex.FindAllStringIndex(cleaned, -1)
	for _, m := range matches {
		start, end := m[0], m[1]
		callName := cleaned[start:end]

		terminatorPos := skipWhitespaceIdx(cleaned, end)
		var terminator byte
		if terminatorPos < len(cleaned) {
			terminator = cleaned[terminatorPos]
		}
		if terminator != '(' && terminator != ';' {
			continue
		}

		upper := strings.ToUpper(callName)
		if opts.KeywordsToDrop[upper] {
			continue
		}
		if opts.StrictLparOnlyCalls && terminator == ';' {
			continue
		}
		if precededByEnd(cleaned, start) {
			continue
		}

		params, ok := extractParams(cleaned, end, literalMap, opts.AllowParameterlessCalls)
		if !ok {
			continue
		}

		lineNo := uint32(strings.Count(cleaned[:start], "\n") + 1)
		sites = append(sites, object.CallSite{
			CallName:   callName,
			LineNo:     lineNo,
			StartIdx:   uint32(start),
			EndIdx:     uint32(start + len(callName)),
			Positional: params.positional,
			Named:      params.named,
		})
	}

	return sites
}

func skipWhitespaceIdx(s string, idx int) int {
	for idx < len(s) && (s[idx] == ' ' || s[idx] == '\t' || s[idx] == '\n' || s[idx] == '\r') {
		idx++
	}
	return idx
}

var endPrefixRegex = regexp.MustCompile(`(?i)\bEND\s*$`)

func precededByEnd(s string, start int) bool {
	before := s[:start]
	return endPrefixRegex.MatchString(before)
}

type callParams struct {
	positional []string
	named      map[string]string
}

// extractParams implements the hand-written balanced-parenthesis scanner.
// Returns ok=false when the call should be skipped entirely (no "("
// found and allowParameterless is false).
func extractParams(cleaned string, afterName int, literalMap map[string]string, allowParameterless bool) (callParams, bool) {
	idx := skipWhitespaceIdx(cleaned, afterName)
	if idx >= len(cleaned) || cleaned[idx] != '(' {
		if !allowParameterless {
			return callParams{}, false
		}
		return callParams{positional: nil, named: map[string]string{}}, true
	}

	idx++ // consume '('
	depth := 1

	var value strings.Builder
	var name strings.Builder
	isNamed := false

	positional := []string{}
	named := map[string]string{}

	commit := func(always bool) {
		v := strings.TrimSpace(value.String())
		if isNamed {
			n := strings.TrimSpace(name.String())
			if n != "" {
				named[n] = restoreLiterals(v, literalMap)
			}
		} else if always || v != "" {
			positional = append(positional, restoreLiterals(v, literalMap))
		}
		value.Reset()
		name.Reset()
		isNamed = false
	}

	aborted := false
	for idx < len(cleaned) {
		c := cleaned[idx]
		switch {
		case c == '(':
			depth++
			value.WriteByte(c)
			idx++
		case c == ')':
			depth--
			if depth > 0 {
				value.WriteByte(c)
				idx++
			} else {
				idx++
				goto done
			}
		case c == ';' && depth <= 1:
			value.Reset()
			aborted = true
			idx++
			goto done
		case c == ',' && depth == 1:
			// Blank interior slots (foo(a,,b)) are silently dropped, not
			// recorded as empty positional args, matching call_extractor.py.
			commit(false)
			idx++
		case c == '=' && depth == 1 && !isNamed && idx+1 < len(cleaned) && cleaned[idx+1] == '>':
			name.WriteString(value.String())
			value.Reset()
			isNamed = true
			idx += 2
		default:
			value.WriteByte(c)
			idx++
		}
	}
done:
	_ = aborted
	if value.Len() > 0 || isNamed {
		commit(false)
	}

	return callParams{positional: positional, named: named}, true
}

var literalRefRegex = regexp.MustCompile(`<LITERAL_\d+>`)

func restoreLiterals(s string, literalMap map[string]string) string {
	return literalRefRegex.ReplaceAllStringFunc(s, func(token string) string {
		if v, ok := literalMap[token]; ok {
			return v
		}
		return token
	})
}
