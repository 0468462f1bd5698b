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

// Package logging wires up log/slog the way the teacher's CLI does:
// NO_COLOR/--no-color controls whether errors and warnings are colorized,
// -v/-vv maps to Info/Debug level, and --json switches the handler from a
// colorized text renderer to slog's JSONHandler so automation can parse
// output, mirroring cmd/cie/main.go's GlobalFlags (JSON/NoColor/Verbose/Quiet).
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Options mirrors the global CLI flags that affect logging.
type Options struct {
	JSON    bool
	NoColor bool
	Verbose int // 0 = warn, 1 = info (-v), 2+ = debug (-vv)
	Quiet   bool
}

// New builds a *slog.Logger per opts, writing to w (typically os.Stderr).
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case opts.Quiet:
		level = slog.LevelError
	case opts.Verbose >= 2:
		level = slog.LevelDebug
	case opts.Verbose >= 1:
		level = slog.LevelInfo
	}

	if opts.JSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}

	useColor := ShouldColor(w, opts.NoColor)
	return slog.New(newTextHandler(w, level, useColor))
}

// ShouldColor applies the same precedence the teacher's main.go uses for
// ui.InitColors: NO_COLOR env wins, then --no-color, then whether w is a
// terminal.
func ShouldColor(w io.Writer, noColorFlag bool) bool {
	if os.Getenv("NO_COLOR") != "" || noColorFlag {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// textHandler is a minimal slog.Handler rendering dotted event names with
// level-colored prefixes (red ERROR, yellow WARN, cyan INFO, dim DEBUG),
// matching the log*() helpers' bracketed-prefix style in cmd/cie/main.go
// but upgraded to structured attrs since every call site here uses them.
type textHandler struct {
	w        io.Writer
	level    slog.Level
	useColor bool
	attrs    []slog.Attr
}

func newTextHandler(w io.Writer, level slog.Level, useColor bool) *textHandler {
	return &textHandler{w: w, level: level, useColor: useColor}
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool { return level >= h.level }

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	prefix := h.levelPrefix(r.Level)
	line := prefix + " " + r.Message
	r.AddAttrs(h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		line += " " + a.Key + "=" + a.Value.String()
		return true
	})
	_, err := io.WriteString(h.w, line+"\n")
	return err
}

func (h *textHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &textHandler{w: h.w, level: h.level, useColor: h.useColor, attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...)}
}

func (h *textHandler) WithGroup(_ string) slog.Handler { return h }

func (h *textHandler) levelPrefix(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return h.colorize(color.FgRed, "[ERROR]")
	case level >= slog.LevelWarn:
		return h.colorize(color.FgYellow, "[WARN]")
	case level >= slog.LevelInfo:
		return h.colorize(color.FgCyan, "[INFO]")
	default:
		return h.colorize(color.FgHiBlack, "[DEBUG]")
	}
}

func (h *textHandler) colorize(attr color.Attribute, s string) string {
	if !h.useColor {
		return s
	}
	return color.New(attr).Sprint(s)
}
