// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"sync"
	"sync/atomic"
	"time"
)

// brailleSpin are the phases of our default spinner.
const brailleSpin = "⠉⠘⠰⠤⠆⠃"

// spinner cycles through its phases in the background while verifications are
// in flight; no bells, no frills.
type spinner struct {
	phases   []string
	phase    atomic.Int32
	done     chan struct{}
	stopOnce sync.Once
}

// newSpinner returns a new spinner cycling through the runes of the specified
// phases text, each followed by a space. Call Start to make it spin and Stop
// to release its background resources.
func newSpinner(phases string) *spinner {
	s := &spinner{done: make(chan struct{})}
	for _, r := range phases {
		s.phases = append(s.phases, string(r)+" ")
	}
	return s
}

// Spinner returns the spinner text for the current phase.
func (s *spinner) Spinner() string {
	return s.phases[int(s.phase.Load())%len(s.phases)]
}

// Start the spinner to advance one phase every specified interval.
func (s *spinner) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if next := s.phase.Add(1); int(next) >= len(s.phases) {
					s.phase.Store(0)
				}
			case <-s.done:
				return
			}
		}
	}()
}

// Stop the spinner and release the background resources; stopping more than
// once is fine.
func (s *spinner) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}
