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

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_LevelMapping(t *testing.T) {
	cases := []struct {
		name string
		opts Options
		want slog.Level
	}{
		{"default is warn", Options{}, slog.LevelWarn},
		{"quiet wins even with verbose", Options{Quiet: true, Verbose: 2}, slog.LevelError},
		{"verbose 1 is info", Options{Verbose: 1}, slog.LevelInfo},
		{"verbose 2+ is debug", Options{Verbose: 2}, slog.LevelDebug},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(&buf, c.opts)
			assert.True(t, logger.Enabled(context.Background(), c.want), "expected level %v enabled", c.want)
			if c.want > slog.LevelDebug {
				assert.False(t, logger.Enabled(context.Background(), c.want-1), "expected level below %v to be disabled", c.want)
			}
		})
	}
}

func TestShouldColor_NoColorEnvWins(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	assert.False(t, ShouldColor(&buf, false), "expected NO_COLOR env to force no color")
}

func TestShouldColor_FlagWins(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	var buf bytes.Buffer
	assert.False(t, ShouldColor(&buf, true), "expected --no-color flag to force no color")
}

func TestShouldColor_NonFileWriter_NeverColored(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	var buf bytes.Buffer
	assert.False(t, ShouldColor(&buf, false), "expected a non-*os.File writer to never be colorized")
}

func TestTextHandler_RendersLevelPrefixAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := newTextHandler(&buf, slog.LevelInfo, false)
	logger := slog.New(h)
	logger.Info("pipeline.complete", "objects", 3)

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "pipeline.complete")
	assert.Contains(t, out, "objects=3")
}

func TestTextHandler_WithAttrs_PersistsAcrossCalls(t *testing.T) {
	var buf bytes.Buffer
	h := newTextHandler(&buf, slog.LevelInfo, false)
	logger := slog.New(h).With("run_id", "abc123")
	logger.Info("pipeline.plan")

	assert.Contains(t, buf.String(), "run_id=abc123")
}

func TestTextHandler_Enabled_RespectsLevel(t *testing.T) {
	h := newTextHandler(&bytes.Buffer{}, slog.LevelWarn, false)
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo), "expected info to be disabled under a warn-level handler")
	assert.True(t, h.Enabled(context.Background(), slog.LevelError), "expected error to be enabled under a warn-level handler")
}
