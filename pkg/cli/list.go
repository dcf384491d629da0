// Unplug Core
// Copyright (c) 2025 The Unplug Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Unplug Core.
//
// Unplug Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Unplug Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Unplug Core.  If not, see <http://www.gnu.org/licenses/>.

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/UnplugProject/unplug-core/pkg/drives"
)

// HandleList prints every mounted removable drive to w.
func HandleList(ctx context.Context, w io.Writer) error {
	list, err := defaultDriveOps.List(ctx)
	if err != nil {
		return fmt.Errorf("list drives: %w", err)
	}

	if len(list) == 0 {
		_, _ = fmt.Fprintln(w, "No removable drives found.")
		return nil
	}

	_, _ = fmt.Fprint(w, "Removable drives:\n\n")
	_, _ = fmt.Fprintf(w, "%-6s %-16s %-7s %-10s %-10s %s\n",
		"Drive", "Label", "FS", "Free", "Total", "Device")
	_, _ = fmt.Fprintf(w, "%s\n", strings.Repeat("-", 80))

	for i := range list {
		d := &list[i]
		_, _ = fmt.Fprintf(w, "%-6s %-16s %-7s %-10s %-10s %s\n",
			d.Root,
			d.Label,
			d.Filesystem,
			formatBytes(d.Free),
			formatBytes(d.Total),
			describeDevice(d),
		)
	}
	return nil
}

// HandleWatch streams drive arrivals and removals to w until ctx is done.
func HandleWatch(ctx context.Context, w io.Writer, rescanEvery time.Duration) error {
	watcher, err := defaultDriveOps.NewWatcher(rescanEvery)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Stop()

	_, _ = fmt.Fprintln(w, "Watching removable drives. Press Ctrl+C to stop.")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			printEvent(w, &ev)
		}
	}
}

func printEvent(w io.Writer, ev *drives.Event) {
	detail := driveDetail(&ev.Drive)
	if detail != "" {
		detail = "  (" + detail + ")"
	}
	_, _ = fmt.Fprintf(w, "%-8s %s%s\n", ev.Type, ev.Drive.Root, detail)
}

// driveDetail is the short human summary used in watch output.
func driveDetail(d *drives.Drive) string {
	parts := make([]string, 0, 3)
	if d.Label != "" {
		parts = append(parts, d.Label)
	}
	if d.Filesystem != "" {
		parts = append(parts, d.Filesystem)
	}
	if d.Total > 0 {
		parts = append(parts, formatBytes(d.Total))
	}
	return strings.Join(parts, ", ")
}

// describeDevice renders the physical disk column, empty when the disk
// could not be resolved.
func describeDevice(d *drives.Drive) string {
	if d.Model == "" {
		return ""
	}
	extra := make([]string, 0, 2)
	if d.Bus != "" {
		extra = append(extra, d.Bus)
	}
	if d.Size > 0 {
		extra = append(extra, formatBytes(d.Size))
	}
	if len(extra) == 0 {
		return d.Model
	}
	return fmt.Sprintf("%s (%s)", d.Model, strings.Join(extra, ", "))
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
