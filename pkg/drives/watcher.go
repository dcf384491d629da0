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
	"time"

	"github.com/UnplugProject/unplug-core/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
)

// DefaultRescanInterval is the fallback reconciliation period used when the
// watcher's event subscription misses a change.
const DefaultRescanInterval = 30 * time.Second

// EventType distinguishes watcher events.
type EventType int

const (
	// DriveArrived reports a removable drive that became mounted.
	DriveArrived EventType = iota + 1

	// DriveRemoved reports a removable drive that went away.
	DriveRemoved
)

func (t EventType) String() string {
	switch t {
	case DriveArrived:
		return "arrived"
	case DriveRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event reports one change to the set of mounted removable drives. On
// removal the Drive carries the details captured while it was mounted.
type Event struct {
	Drive Drive
	Type  EventType
}

// Watcher emits an Event for every removable drive arrival and removal.
// Drives mounted when the watcher starts are reported as arrivals.
type Watcher interface {
	// Events returns the event channel. It is closed by Stop.
	Events() <-chan Event

	// Start begins watching. The context cancels the watch goroutines.
	Start(ctx context.Context) error

	// Stop terminates the watcher and closes the event channel. Safe to
	// call more than once.
	Stop()
}

// NewWatcher creates the platform watcher. A nil clock uses the wall clock;
// rescanEvery at or below zero uses DefaultRescanInterval.
func NewWatcher(clock clockwork.Clock, rescanEvery time.Duration) (Watcher, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if rescanEvery <= 0 {
		rescanEvery = DefaultRescanInterval
	}
	return newWatcher(clock, rescanEvery)
}

// scanState tracks which drives are known mounted. The event subscription
// and the rescan ticker both mutate it, so access is serialized here.
type scanState struct {
	mu    syncutil.RWMutex
	known map[byte]Drive
}

func newScanState() *scanState {
	return &scanState{known: make(map[byte]Drive)}
}

// noteArrival records a newly mounted drive. Reports false when the letter
// is already tracked, as with a rescan overlapping a subscription event.
func (s *scanState) noteArrival(d Drive) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.known[d.Letter]; ok {
		return false
	}
	s.known[d.Letter] = d
	return true
}

// noteRemoval forgets a tracked drive and returns it. Reports false when the
// letter was never tracked, as with fixed drives.
func (s *scanState) noteRemoval(letter byte) (Drive, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.known[letter]
	if !ok {
		return Drive{}, false
	}
	delete(s.known, letter)
	return d, true
}

// reconcile replaces the tracked set with current and returns the changes in
// drive-letter order.
func (s *scanState) reconcile(current []Drive) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[byte]Drive, len(current))
	for _, d := range current {
		next[d.Letter] = d
	}

	var events []Event
	for letter := byte('A'); letter <= 'Z'; letter++ {
		old, had := s.known[letter]
		now, has := next[letter]
		switch {
		case had && !has:
			events = append(events, Event{Type: DriveRemoved, Drive: old})
		case !had && has:
			events = append(events, Event{Type: DriveArrived, Drive: now})
		}
	}
	s.known = next
	return events
}

// rescanLoop invokes scan on every tick until the context or the stop
// channel ends it.
func rescanLoop(
	ctx context.Context,
	clock clockwork.Clock,
	every time.Duration,
	stop <-chan struct{},
	scan func(),
) {
	ticker := clock.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.Chan():
			scan()
		}
	}
}
