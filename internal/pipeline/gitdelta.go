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
	"bufio"
	"bytes"
	"os/exec"
	"strings"
)

// gitHeadMetaKey is the store.Meta key under which the commit SHA of the
// last git-delta-assisted run is persisted, so the next Run can diff
// against it instead of the empty tree.
const gitHeadMetaKey = "git_head_sha"

// emptyTreeSHA is git's well-known empty-tree object, used as the base
// when no prior indexed commit is recorded.
const emptyTreeSHA = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// gitDelta is the trimmed-down shape of the teacher's pkg/ingestion
// GitDelta that planWork needs: which paths changed (added or modified)
// and which were deleted, between baseSHA and HeadSHA.
type gitDelta struct {
	HeadSHA string
	Changed map[string]bool
	Deleted map[string]bool
}

// detectGitDelta runs `git diff --name-status` between baseSHA and HEAD in
// repoRoot, mirroring the teacher's DeltaDetector.DetectDelta. baseSHA ==
// "" compares against git's empty-tree SHA, so every tracked file is
// reported changed (matching DetectDelta's "initial ingestion" case).
// Returns ok=false whenever repoRoot is not a git repository, the git
// binary is unavailable, or the diff otherwise fails -- the caller then
// falls back to pure content-hash detection.
func detectGitDelta(repoRoot, baseSHA string) (*gitDelta, bool) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, false
	}

	headOut, err := runGit(repoRoot, "rev-parse", "HEAD")
	if err != nil {
		return nil, false
	}
	head := strings.TrimSpace(string(headOut))

	base := baseSHA
	if base == "" {
		base = emptyTreeSHA
	}

	diffOut, err := runGit(repoRoot, "diff", "--name-status", "-M", base, head)
	if err != nil {
		return nil, false
	}

	d := &gitDelta{HeadSHA: head, Changed: map[string]bool{}, Deleted: map[string]bool{}}
	scanner := bufio.NewScanner(bytes.NewReader(diffOut))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		status, paths := parts[0], parts[1:]
		switch status[0] {
		case 'A', 'M':
			d.Changed[paths[0]] = true
		case 'D':
			d.Deleted[paths[0]] = true
		case 'R', 'C':
			if len(paths) >= 2 {
				d.Changed[paths[1]] = true
				if status[0] == 'R' {
					d.Deleted[paths[0]] = true
				}
			}
		}
	}
	return d, true
}

func runGit(dir string, args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	return cmd.Output()
}
