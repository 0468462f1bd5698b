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

package callextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_SimplePositionalCall(t *testing.T) {
	sites := Extract("pkg_billing.charge_customer(p_id);", nil, DefaultOptions())
	require.Len(t, sites, 1)
	s := sites[0]
	assert.Equal(t, "pkg_billing.charge_customer", s.CallName)
	require.Len(t, s.Positional, 1)
	assert.Equal(t, "p_id", s.Positional[0])
}

func TestExtract_NamedParameters(t *testing.T) {
	sites := Extract("charge_customer(p_id => 1, p_amount => 2);", nil, DefaultOptions())
	require.Len(t, sites, 1)
	s := sites[0]
	assert.Equal(t, "1", s.Named["p_id"])
	assert.Equal(t, "2", s.Named["p_amount"])
	assert.Empty(t, s.Positional, "expected no positional args")
}

func TestExtract_NestedParensDoNotTerminateEarly(t *testing.T) {
	sites := Extract("f(g(1, 2), 3);", nil, DefaultOptions())
	require.Len(t, sites, 2, "expected f and g")
	var outer []string
	for _, s := range sites {
		if s.CallName == "f" {
			outer = s.Positional
		}
	}
	require.Len(t, outer, 2)
	assert.Equal(t, "g(1, 2)", outer[0])
	assert.Equal(t, "3", outer[1])
}

func TestExtract_SemicolonAbortsCollection(t *testing.T) {
	sites := Extract("f(1, 2", nil, DefaultOptions())
	assert.Len(t, sites, 1, "expected unterminated call with no closing paren to still be recorded")

	sites = Extract("f(1; g(2);", nil, DefaultOptions())
	var names []string
	for _, s := range sites {
		names = append(names, s.CallName)
	}
	assert.Contains(t, names, "g", "expected g(2) to still be extracted after f's aborted call")
}

func TestExtract_LiteralRestoration(t *testing.T) {
	literalMap := map[string]string{"<LITERAL_0>": "hello"}
	sites := Extract("log('<LITERAL_0>');", literalMap, DefaultOptions())
	require.Len(t, sites, 1)
	require.Len(t, sites[0].Positional, 1)
	assert.Equal(t, "'hello'", sites[0].Positional[0])
}

func TestExtract_KeywordsToDrop(t *testing.T) {
	opts := DefaultOptions()
	opts.KeywordsToDrop = map[string]bool{"IF": true}
	sites := Extract("IF(x);", nil, opts)
	assert.Empty(t, sites, "expected IF(...) to be dropped as a keyword")
}

func TestExtract_ParameterlessCall_SemicolonTerminator(t *testing.T) {
	sites := Extract("do_something;", nil, DefaultOptions())
	require.Len(t, sites, 1)
	assert.Equal(t, "do_something", sites[0].CallName)
	assert.Empty(t, sites[0].Positional, "expected no positional args")
}

func TestExtract_DisallowParameterlessCalls(t *testing.T) {
	opts := DefaultOptions()
	opts.AllowParameterlessCalls = false
	sites := Extract("do_something;", nil, opts)
	assert.Empty(t, sites, "expected parameterless call to be dropped when disallowed")
}

func TestExtract_PrecededByEnd_NotACall(t *testing.T) {
	sites := Extract("END charge_customer;", nil, DefaultOptions())
	assert.Empty(t, sites, "expected an object's own END name to not be treated as a call")
}

func TestExtract_BlankInteriorCommaSlot_Dropped(t *testing.T) {
	sites := Extract("foo(a,,b);", nil, DefaultOptions())
	require.Len(t, sites, 1)
	assert.Equal(t, []string{"a", "b"}, sites[0].Positional, "expected blank interior slot silently dropped")
}

func TestExtract_StrictLparOnly(t *testing.T) {
	opts := DefaultOptions()
	opts.StrictLparOnlyCalls = true
	sites := Extract("do_something;", nil, opts)
	assert.Empty(t, sites, "expected bare ';'-terminated call to be dropped under strict lpar-only mode")

	sites = Extract("do_something();", nil, opts)
	assert.Len(t, sites, 1, "expected '('-terminated call to still be extracted")
}
