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

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/plsqlgraph/internal/config"
	"github.com/kraklabs/plsqlgraph/internal/store"
)

func TestDerivePackageName_PrefixAndInFileMerge(t *testing.T) {
	got := derivePackageName("src/billing/pkg_billing.pkb", "pkg_billing", []string{"src"})
	assert.Equal(t, "pkg_billing.billing", got)
}

func TestDerivePackageName_StandaloneObject_EmptyResult(t *testing.T) {
	got := derivePackageName("proc_standalone.sql", "", nil)
	assert.Empty(t, got, "standalone object is allowed")
}

func TestDerivePackageName_CaseInsensitiveDedup_InFileNameFirst(t *testing.T) {
	got := derivePackageName("pkg_billing/file.pkb", "PKG_BILLING", nil)
	assert.Equal(t, "pkg_billing", got, "dir-derived duplicate of the in-file name should be dropped")
}

func TestPlanWork_ForceReprocess_AllToProcess(t *testing.T) {
	cfg := config.Default()
	cfg.ForceReprocess = true
	p := New(cfg, nil, nil)

	files := []FileInfo{{Path: "a.pkb"}, {Path: "b.pkb"}}
	known := map[string]string{"a.pkb": "x", "c.pkb": "y"}

	toProcess, unchanged, deleted := p.planWork(files, known, false)
	assert.Len(t, toProcess, 2, "expected both files forced to reprocess")
	assert.Empty(t, unchanged)
	require.Len(t, deleted, 1)
	assert.Equal(t, "c.pkb", deleted[0])
}

func TestPlanWork_HashUnchanged_Skipped(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "a.pkb")
	require.NoError(t, os.WriteFile(full, []byte("PROCEDURE p IS BEGIN NULL; END;"), 0o644))

	cfg := config.Default()
	cfg.UseGitDelta = false // hash-only detection; the git-delta path reads the store
	p := New(cfg, nil, nil)

	hash, err := hashFile(full)
	require.NoError(t, err)

	files := []FileInfo{{Path: "a.pkb", FullPath: full}}
	known := map[string]string{"a.pkb": hash}

	toProcess, unchanged, deleted := p.planWork(files, known, false)
	assert.Empty(t, toProcess, "expected no files to process when hash matches")
	require.Len(t, unchanged, 1)
	assert.Equal(t, "a.pkb", unchanged[0])
	assert.Empty(t, deleted)
}

func TestPlanWork_HashChanged_Reprocessed(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "a.pkb")
	require.NoError(t, os.WriteFile(full, []byte("PROCEDURE p IS BEGIN NULL; END;"), 0o644))

	cfg := config.Default()
	cfg.UseGitDelta = false // hash-only detection; the git-delta path reads the store
	p := New(cfg, nil, nil)

	files := []FileInfo{{Path: "a.pkb", FullPath: full}}
	known := map[string]string{"a.pkb": "stale-hash"}

	toProcess, _, _ := p.planWork(files, known, false)
	assert.Len(t, toProcess, 1, "expected changed file to be reprocessed")
}

func TestRun_EndToEnd_SingleFile(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "billing.pkb"),
		[]byte("CREATE OR REPLACE PACKAGE BODY pkg_billing IS\n"+
			"  PROCEDURE charge_customer(p_id IN NUMBER) IS\n"+
			"  BEGIN\n"+
			"    log_event('charged');\n"+
			"  END charge_customer;\n"+
			"END pkg_billing;\n"), 0o644))

	st, err := store.Open(filepath.Join(t.TempDir(), "objects.db"))
	require.NoError(t, err)
	defer st.Close()

	cfg := config.Default()
	cfg.SourceRoot = srcDir
	cfg.FileExtensions = []string{"pkb"}

	p := New(cfg, st, nil)
	result, err := p.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesWalked)
	assert.Equal(t, 1, result.FilesProcessed)
	assert.Equal(t, 1, result.ObjectsExtracted, "expected one extracted object")

	_, ok := result.Graph.NodeByID("pkg_billing.charge_customer")
	assert.True(t, ok, "expected pkg_billing.charge_customer to be a graph node")
}
