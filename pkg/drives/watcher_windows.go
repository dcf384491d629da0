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

package drives

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/UnplugProject/unplug-core/pkg/volume"
	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Win32_VolumeChangeEvent types.
const (
	wmiEventArrival = 2
	wmiEventRemoval = 3
)

// eventBuffer comfortably holds a full seed of 26 drive letters so Start
// never blocks before the consumer begins reading.
const eventBuffer = 32

// winWatcher watches volume change events through WMI and reconciles the
// drive set on a timer for anything the subscription missed.
type winWatcher struct {
	clock    clockwork.Clock
	state    *scanState
	events   chan Event
	stopCh   chan struct{}
	every    time.Duration
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newWatcher(clock clockwork.Clock, every time.Duration) (Watcher, error) {
	return &winWatcher{
		clock:  clock,
		state:  newScanState(),
		events: make(chan Event, eventBuffer),
		stopCh: make(chan struct{}),
		every:  every,
	}, nil
}

func (w *winWatcher) Events() <-chan Event {
	return w.events
}

func (w *winWatcher) Start(ctx context.Context) error {
	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		return fmt.Errorf("initialize COM: %w", err)
	}

	// Seed with the drives already mounted.
	w.resync(ctx)

	w.wg.Add(2)
	go w.watchVolumeChanges(ctx)
	go func() {
		defer w.wg.Done()
		rescanLoop(ctx, w.clock, w.every, w.stopCh, func() { w.resync(ctx) })
	}()
	return nil
}

func (w *winWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		ole.CoUninitialize()
		close(w.events)
	})
}

func (w *winWatcher) emit(ev Event) {
	select {
	case w.events <- ev:
	case <-w.stopCh:
	}
}

func (w *winWatcher) resync(ctx context.Context) {
	current, err := List(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("drive rescan failed")
		return
	}
	for _, ev := range w.state.reconcile(current) {
		w.emit(ev)
	}
}

func (w *winWatcher) watchVolumeChanges(ctx context.Context) {
	defer w.wg.Done()

	// COM must be initialized on the goroutine doing the WMI calls.
	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		log.Error().Err(err).Msg("failed to initialize COM for volume watcher")
		return
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WbemScripting.SWbemLocator")
	if err != nil {
		log.Error().Err(err).Msg("failed to create WMI locator")
		return
	}
	defer unknown.Release()

	wmiLocator, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		log.Error().Err(err).Msg("failed to query WMI interface")
		return
	}
	defer wmiLocator.Release()

	serviceRaw, err := oleutil.CallMethod(wmiLocator, "ConnectServer")
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to WMI service")
		return
	}
	service := serviceRaw.ToIDispatch()
	defer service.Release()

	queryRaw, err := oleutil.CallMethod(service, "ExecNotificationQuery",
		"SELECT * FROM Win32_VolumeChangeEvent WHERE EventType = 2 OR EventType = 3")
	if err != nil {
		log.Error().Err(err).Msg("failed to execute WMI notification query")
		return
	}
	eventSink := queryRaw.ToIDispatch()
	defer eventSink.Release()

	log.Debug().Msg("started watching for volume changes")

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
			// Wait for the next event, timing out so stop stays responsive.
			nextRaw, err := oleutil.CallMethod(eventSink, "NextEvent", 1000)
			if err != nil {
				select {
				case <-w.stopCh:
					return
				default:
					continue
				}
			}
			if nextRaw.VT == ole.VT_NULL || nextRaw.VT == ole.VT_EMPTY {
				continue
			}

			event := nextRaw.ToIDispatch()
			w.handleVolumeEvent(ctx, event)
			event.Release()
		}
	}
}

func (w *winWatcher) handleVolumeEvent(ctx context.Context, event *ole.IDispatch) {
	eventTypeRaw, err := oleutil.GetProperty(event, "EventType")
	if err != nil {
		log.Debug().Err(err).Msg("failed to read volume event type")
		return
	}
	eventType := int(eventTypeRaw.Val)

	// DriveName is the bare letter form, like "E:".
	driveNameRaw, err := oleutil.GetProperty(event, "DriveName")
	if err != nil {
		log.Debug().Err(err).Msg("failed to read volume event drive name")
		return
	}
	driveName := driveNameRaw.ToString()
	if driveName == "" || !volume.IsDriveLetterValid(driveName[0]) {
		return
	}
	letter := driveName[0]
	if letter >= 'a' && letter <= 'z' {
		letter -= 'a' - 'A'
	}

	switch eventType {
	case wmiEventArrival:
		w.handleArrival(ctx, letter)
	case wmiEventRemoval:
		w.handleRemoval(letter)
	}
}

func (w *winWatcher) handleArrival(ctx context.Context, letter byte) {
	removable, err := volume.IsRemovableDrive(letter)
	if err != nil || !removable {
		return
	}

	d := probeDrive(ctx, letter)
	if !w.state.noteArrival(d) {
		return
	}

	log.Debug().
		Str("drive", d.Root).
		Str("label", d.Label).
		Msg("drive arrival detected")
	w.emit(Event{Type: DriveArrived, Drive: d})
}

func (w *winWatcher) handleRemoval(letter byte) {
	d, ok := w.state.noteRemoval(letter)
	if !ok {
		return
	}

	log.Debug().
		Str("drive", d.Root).
		Msg("drive removal detected")
	w.emit(Event{Type: DriveRemoved, Drive: d})
}
