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

// Package resolve implements C7, the Overload Resolver: given a call site
// and a set of overload candidates, it returns the unique matching
// candidate or signals failure (no match, or ambiguous).
//
// Grounded directly on original_source's overload_resolver.py
// (resolve_overloaded_call): named pass, then positional pass filling the
// next still-unsupplied formal in declaration order, then a default-value
// check on whatever remains unsupplied. Ties are unconditionally
// ambiguous; there is no tie-breaking heuristic (spec.md §9's open
// question is answered by preserving the source's behaviour).
package resolve

import (
	"errors"
	"sort"
	"strings"

	"github.com/kraklabs/plsqlgraph/internal/object"
)

// ErrNoMatch indicates no candidate satisfied the call's arguments.
var ErrNoMatch = errors.New("resolve: no matching overload")

// ErrAmbiguous indicates more than one candidate satisfied the call.
var ErrAmbiguous = errors.New("resolve: ambiguous overload")

// Resolve returns the unique candidate matching call, or an error
// (ErrNoMatch / ErrAmbiguous) if zero or more than one candidate matches.
func Resolve(candidates []*object.CodeObject, call object.CallSite) (*object.CodeObject, error) {
	// Fold case-variant keys deterministically: iterate call.Named in sorted
	// key order so that, when two distinctly-cased keys fold to the same
	// name, the last-wins outcome does not depend on Go's randomised map
	// iteration order (spec.md §8 Testable Property #9).
	keys := make([]string, 0, len(call.Named))
	for k := range call.Named {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	namedLower := make(map[string]string, len(call.Named))
	for _, k := range keys {
		namedLower[strings.ToLower(k)] = call.Named[k]
	}

	var matches []*object.CodeObject

candidateLoop:
	for _, cand := range candidates {
		supplied := make([]bool, len(cand.Parameters))

		// 1. Named pass.
		for lowerName := range namedLower {
			found := -1
			for i, p := range cand.Parameters {
				if strings.ToLower(p.Name) == lowerName {
					found = i
					break
				}
			}
			if found == -1 {
				continue candidateLoop // called named param not in signature
			}
			if supplied[found] {
				continue candidateLoop // duplicate supply (unreachable via a map, kept for parity)
			}
			supplied[found] = true
		}

		// 2. Positional pass: assign each positional arg to the next
		// unsupplied formal, in declaration order.
		avail := 0
		for range call.Positional {
			found := false
			for avail < len(cand.Parameters) {
				if !supplied[avail] {
					supplied[avail] = true
					avail++
					found = true
					break
				}
				avail++
			}
			if !found {
				continue candidateLoop // too many positional args
			}
		}

		// 3. Default check: every unsupplied formal needs a default.
		for i, p := range cand.Parameters {
			if !supplied[i] && !p.HasDefault() {
				continue candidateLoop
			}
		}

		matches = append(matches, cand)
	}

	switch len(matches) {
	case 0:
		return nil, ErrNoMatch
	case 1:
		return matches[0], nil
	default:
		return nil, ErrAmbiguous
	}
}
