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

package structural

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_PackageBodyWithOneProcedure(t *testing.T) {
	src := "CREATE OR REPLACE PACKAGE BODY pkg_billing IS\n" +
		"  PROCEDURE charge_customer(p_id IN NUMBER) IS\n" +
		"  BEGIN\n" +
		"    NULL;\n" +
		"  END charge_customer;\n" +
		"END pkg_billing;\n"

	p := New(nil)
	res := p.Parse(src)

	assert.Equal(t, "pkg_billing", res.PackageName)

	entries, ok := res.Objects["charge_customer"]
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Start)
	assert.Equal(t, 5, entries[0].End)
	assert.Equal(t, "PROCEDURE", entries[0].Type)
}

func TestParse_StandaloneProcedure_NoPackage(t *testing.T) {
	src := "PROCEDURE standalone_proc IS\n" +
		"BEGIN\n" +
		"  NULL;\n" +
		"END standalone_proc;\n"

	p := New(nil)
	res := p.Parse(src)

	assert.Empty(t, res.PackageName)
	entries, ok := res.Objects["standalone_proc"]
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Start)
	assert.Equal(t, 4, entries[0].End)
}

func TestParse_TwoObjectsInOnePackage(t *testing.T) {
	src := "CREATE OR REPLACE PACKAGE BODY pkg_billing IS\n" +
		"  PROCEDURE charge_customer(p_id IN NUMBER) IS\n" +
		"  BEGIN\n" +
		"    NULL;\n" +
		"  END charge_customer;\n" +
		"  FUNCTION get_balance(p_id IN NUMBER) RETURN NUMBER IS\n" +
		"  BEGIN\n" +
		"    RETURN 0;\n" +
		"  END get_balance;\n" +
		"END pkg_billing;\n"

	p := New(nil)
	res := p.Parse(src)

	assert.Contains(t, res.Objects, "charge_customer")
	assert.Contains(t, res.Objects, "get_balance")
}

func TestParse_NestedIfBlock_DoesNotCloseEnclosingScope(t *testing.T) {
	src := "PROCEDURE p1 IS\n" +
		"BEGIN\n" +
		"  IF 1 = 1 THEN\n" +
		"    NULL;\n" +
		"  END IF;\n" +
		"END p1;\n"

	p := New(nil)
	res := p.Parse(src)

	entries, ok := res.Objects["p1"]
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, 6, entries[0].End, "expected p1 to close at line 6 (its own END)")
}

func TestParse_ForwardDeclaration_Elided(t *testing.T) {
	src := "CREATE OR REPLACE PACKAGE BODY pkg_x IS\n" +
		"  PROCEDURE p;\n" +
		"  PROCEDURE p IS\n" +
		"  BEGIN\n" +
		"    NULL;\n" +
		"  END p;\n" +
		"END pkg_x;\n"

	p := New(nil)
	res := p.Parse(src)

	entries, ok := res.Objects["p"]
	require.True(t, ok, "expected exactly one entry for p (forward declaration elided)")
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Start, "expected the surviving entry to span the definition")
	assert.Equal(t, 6, entries[0].End)
}

func TestParse_ForLoop_SameLine_ClosesWithOneEnd(t *testing.T) {
	src := "PROCEDURE p2 IS\n" +
		"BEGIN\n" +
		"  FOR i IN 1..10 LOOP\n" +
		"    NULL;\n" +
		"  END LOOP;\n" +
		"END p2;\n"

	p := New(nil)
	res := p.Parse(src)

	entries, ok := res.Objects["p2"]
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, 6, entries[0].End,
		"expected p2 to close at its own END after a single-line FOR...LOOP is closed by one END LOOP")
}

func TestParse_EmptySource(t *testing.T) {
	p := New(nil)
	res := p.Parse("")
	assert.Empty(t, res.PackageName)
	assert.Empty(t, res.Objects)
}
