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

// Package lookup implements C6, the Lookup Builder: global and
// package-local name resolution maps built once per graph construction
// from the complete object list, under the Strict-Cleaner Global Rule
// (spec.md §4.6).
package lookup

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/kraklabs/plsqlgraph/internal/object"
)

// PackageMaps is the per-package pair of normal/overloaded name maps.
type PackageMaps struct {
	Normal     map[string]*object.CodeObject
	Overloaded map[string]map[string]*object.CodeObject // name -> id -> object
}

// Tables holds the three maps and the skip set built by Build.
type Tables struct {
	GlobalNormal     map[string]*object.CodeObject
	GlobalOverloaded map[string]map[string]*object.CodeObject // name -> id -> object
	PkgLocal         map[string]*PackageMaps                  // package -> maps
	Skip             map[string]bool
}

func newTables() *Tables {
	return &Tables{
		GlobalNormal:     make(map[string]*object.CodeObject),
		GlobalOverloaded: make(map[string]map[string]*object.CodeObject),
		PkgLocal:         make(map[string]*PackageMaps),
		Skip:             make(map[string]bool),
	}
}

func (t *Tables) pkg(name string) *PackageMaps {
	pm, ok := t.PkgLocal[name]
	if !ok {
		pm = &PackageMaps{
			Normal:     make(map[string]*object.CodeObject),
			Overloaded: make(map[string]map[string]*object.CodeObject),
		}
		t.PkgLocal[name] = pm
	}
	return pm
}

// Build constructs global and package-local lookup tables from objs,
// applying the Strict-Cleaner Global Rule and the conflict policy of
// spec.md §4.6. Logs are dotted-event-name, matching the teacher's
// convention.
func Build(objs []*object.CodeObject, logger *slog.Logger) *Tables {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	t := newTables()

	sorted := append([]*object.CodeObject(nil), objs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, o := range sorted {
		// Strict Cleaner Global Rule: packaged objects register only
		// "pkg.name" globally; non-packaged objects register "name".
		globalKey := o.Name
		if o.PackageName != "" {
			globalKey = o.PackageName + "." + o.Name
		}
		t.registerGlobal(globalKey, o, logger)
		t.registerPackageLocal(o.PackageName, o.Name, o, logger)
	}

	t.validateOverloadSets(logger)
	return t
}

func (t *Tables) registerGlobal(key string, o *object.CodeObject, logger *slog.Logger) {
	if t.Skip[key] {
		return
	}

	if o.Overloaded {
		if existingNormal, ok := t.GlobalNormal[key]; ok {
			logger.Warn("lookup.conflict.normal_vs_overloaded", "key", key, "existing", existingNormal.ID)
			delete(t.GlobalNormal, key)
			delete(t.GlobalOverloaded, key)
			t.Skip[key] = true
			return
		}
		set, ok := t.GlobalOverloaded[key]
		if !ok {
			set = make(map[string]*object.CodeObject)
			t.GlobalOverloaded[key] = set
		}
		set[o.ID] = o
		return
	}

	if existing, ok := t.GlobalNormal[key]; ok {
		if existing.ID != o.ID {
			logger.Warn("lookup.conflict.normal_vs_normal", "key", key, "existing", existing.ID, "new", o.ID)
			delete(t.GlobalNormal, key)
			t.Skip[key] = true
		}
		return
	}
	if _, ok := t.GlobalOverloaded[key]; ok {
		logger.Warn("lookup.conflict.overloaded_vs_normal", "key", key)
		delete(t.GlobalOverloaded, key)
		t.Skip[key] = true
		return
	}
	t.GlobalNormal[key] = o
}

func (t *Tables) registerPackageLocal(pkgName, simpleName string, o *object.CodeObject, logger *slog.Logger) {
	pm := t.pkg(pkgName)

	if o.Overloaded {
		set, ok := pm.Overloaded[simpleName]
		if !ok {
			set = make(map[string]*object.CodeObject)
			pm.Overloaded[simpleName] = set
		}
		set[o.ID] = o
		return
	}

	if _, exists := pm.Normal[simpleName]; exists {
		logger.Debug("lookup.pkglocal.collision_last_writer_wins", "package", pkgName, "name", simpleName)
	}
	pm.Normal[simpleName] = o
}

// validateOverloadSets removes degenerate overload sets (<2 members),
// promoting singletons to the normal map via the conflict policy.
func (t *Tables) validateOverloadSets(logger *slog.Logger) {
	for key, set := range t.GlobalOverloaded {
		switch len(set) {
		case 0:
			delete(t.GlobalOverloaded, key)
		case 1:
			var only *object.CodeObject
			for _, v := range set {
				only = v
			}
			delete(t.GlobalOverloaded, key)
			t.insertNormalAfterValidation(key, only, logger)
		}
	}
	for _, pm := range t.PkgLocal {
		for name, set := range pm.Overloaded {
			switch len(set) {
			case 0:
				delete(pm.Overloaded, name)
			case 1:
				var only *object.CodeObject
				for _, v := range set {
					only = v
				}
				delete(pm.Overloaded, name)
				if _, exists := pm.Normal[name]; !exists {
					pm.Normal[name] = only
				}
			}
		}
	}
}

func (t *Tables) insertNormalAfterValidation(key string, o *object.CodeObject, logger *slog.Logger) {
	if t.Skip[key] {
		return
	}
	if existing, ok := t.GlobalNormal[key]; ok && existing.ID != o.ID {
		logger.Warn("lookup.conflict.normal_vs_normal", "key", key)
		delete(t.GlobalNormal, key)
		t.Skip[key] = true
		return
	}
	t.GlobalNormal[key] = o
}

// FoldName lower-cases n for case-insensitive lookup, matching the
// "case fold once, never re-fold" design note.
func FoldName(n string) string { return strings.ToLower(n) }
