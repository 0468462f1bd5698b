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

package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateID_NotOverloaded(t *testing.T) {
	id := GenerateID("pkg_billing", "charge_customer", false, []Parameter{{Name: "p_id"}})
	assert.Equal(t, "pkg_billing.charge_customer", id)
}

func TestGenerateID_NoPackage(t *testing.T) {
	id := GenerateID("", "standalone_proc", false, nil)
	assert.Equal(t, "standalone_proc", id)
}

func TestGenerateID_Overloaded_OrderIndependent(t *testing.T) {
	id1 := GenerateID("pkg", "charge", true, []Parameter{{Name: "p_a"}, {Name: "p_b"}})
	id2 := GenerateID("pkg", "charge", true, []Parameter{{Name: "p_b"}, {Name: "p_a"}})
	assert.Equal(t, id1, id2, "expected order-independent IDs to match")
}

func TestGenerateID_Overloaded_DistinctParamSets(t *testing.T) {
	id1 := GenerateID("pkg", "charge", true, []Parameter{{Name: "p_a"}})
	id2 := GenerateID("pkg", "charge", true, []Parameter{{Name: "p_a"}, {Name: "p_b"}})
	assert.NotEqual(t, id1, id2, "expected distinct parameter sets to produce distinct IDs")
}

func TestGenerateID_Overloaded_NoParameters(t *testing.T) {
	id := GenerateID("pkg", "charge", true, nil)
	assert.Equal(t, "pkg.charge", id, "overloaded with zero params degenerates to the qualified name")
}

func TestQualifiedName(t *testing.T) {
	o := &CodeObject{Name: "charge_customer", PackageName: "pkg_billing"}
	assert.Equal(t, "pkg_billing.charge_customer", o.QualifiedName())

	standalone := &CodeObject{Name: "standalone_proc"}
	assert.Equal(t, "standalone_proc", standalone.QualifiedName())
}

func TestPlaceholder(t *testing.T) {
	p := Placeholder("dbms_output.put_line")
	assert.Equal(t, KindUnknown, p.Kind)
	assert.Equal(t, "put_line", p.Name)
	assert.Equal(t, "dbms_output", p.PackageName)
	assert.Equal(t, "dbms_output.put_line", p.ID, "expected placeholder ID to equal the qualified call name")
}

func TestPlaceholder_NoDot(t *testing.T) {
	p := Placeholder("mystery_call")
	assert.Empty(t, p.PackageName)
	assert.Equal(t, "mystery_call", p.Name)
}

func TestParameter_HasDefault(t *testing.T) {
	noDefault := Parameter{Name: "p_id"}
	assert.False(t, noDefault.HasDefault())

	val := "0"
	withDefault := Parameter{Name: "p_count", Default: &val}
	assert.True(t, withDefault.HasDefault())
}
