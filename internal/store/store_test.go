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

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/plsqlgraph/internal/object"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "objects.db")
	s, err := Open(path)
	require.NoError(t, err, "Open failed")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestReplaceFile_InsertAndReload(t *testing.T) {
	s := setupTestStore(t)

	objs := []*object.CodeObject{
		{ID: "pkg.charge", Name: "charge", PackageName: "pkg", Kind: object.KindProcedure,
			Parameters: []object.Parameter{{Name: "p_id", Type: "NUMBER", Mode: object.ModeIn}}},
	}
	require.NoError(t, s.ReplaceFile("billing.pkb", "hash1", "pkg", objs))

	all, err := s.AllObjects()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "pkg.charge", all[0].ID)
	require.Len(t, all[0].Parameters, 1, "expected parameters to round-trip through JSON")
	assert.Equal(t, "p_id", all[0].Parameters[0].Name)

	hash, ok, err := s.FileHash("billing.pkb")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hash1", hash)
}

func TestReplaceFile_Invalidation_RemovesStaleObjects(t *testing.T) {
	s := setupTestStore(t)

	first := []*object.CodeObject{{ID: "pkg.a", Name: "a", PackageName: "pkg"}, {ID: "pkg.b", Name: "b", PackageName: "pkg"}}
	require.NoError(t, s.ReplaceFile("f.pkb", "hash1", "pkg", first))

	second := []*object.CodeObject{{ID: "pkg.a", Name: "a", PackageName: "pkg"}}
	require.NoError(t, s.ReplaceFile("f.pkb", "hash2", "pkg", second))

	all, err := s.AllObjects()
	require.NoError(t, err)
	require.Len(t, all, 1, "expected pkg.b to be invalidated")
	assert.Equal(t, "pkg.a", all[0].ID)

	hash, ok, _ := s.FileHash("f.pkb")
	require.True(t, ok)
	assert.Equal(t, "hash2", hash)
}

func TestDeleteFile_RemovesObjectsAndHash(t *testing.T) {
	s := setupTestStore(t)

	objs := []*object.CodeObject{{ID: "pkg.a", Name: "a", PackageName: "pkg"}}
	require.NoError(t, s.ReplaceFile("f.pkb", "hash1", "pkg", objs))
	require.NoError(t, s.DeleteFile("f.pkb"))

	all, err := s.AllObjects()
	require.NoError(t, err)
	assert.Empty(t, all, "expected no objects after delete")

	_, ok, _ := s.FileHash("f.pkb")
	assert.False(t, ok, "expected no hash record after delete")
}

func TestKnownFiles(t *testing.T) {
	s := setupTestStore(t)

	_ = s.ReplaceFile("a.pkb", "h1", "pkg_a", nil)
	_ = s.ReplaceFile("b.pkb", "h2", "pkg_b", nil)

	known, err := s.KnownFiles()
	require.NoError(t, err)
	assert.Equal(t, "h1", known["a.pkb"])
	assert.Equal(t, "h2", known["b.pkb"])
}

func TestMeta_SetAndGet(t *testing.T) {
	s := setupTestStore(t)

	v, err := s.GetMeta("schema_version")
	require.NoError(t, err)
	assert.Empty(t, v, "expected empty value for unset key")

	require.NoError(t, s.SetMeta("schema_version", "1"))
	v, err = s.GetMeta("schema_version")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	require.NoError(t, s.SetMeta("schema_version", "2"), "SetMeta overwrite")
	v, err = s.GetMeta("schema_version")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestObjectsForFile(t *testing.T) {
	s := setupTestStore(t)

	_ = s.ReplaceFile("a.pkb", "h1", "pkg_a", []*object.CodeObject{{ID: "pkg_a.x", Name: "x", PackageName: "pkg_a"}})
	_ = s.ReplaceFile("b.pkb", "h2", "pkg_b", []*object.CodeObject{{ID: "pkg_b.y", Name: "y", PackageName: "pkg_b"}})

	objs, err := s.ObjectsForFile("a.pkb")
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "pkg_a.x", objs[0].ID)
}
