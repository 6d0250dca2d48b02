// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartviz

import (
	"coinchart/chartplot"
	"time"
)

type frameCallback struct {
	handle chartplot.FrameHandle
	fn     func(now time.Time)
}

// frameScheduler runs animation callbacks at the start of a frame.
// It is only used from the UI goroutine, the owner invalidates the window while callbacks are pending.
type frameScheduler struct {
	lastHandle chartplot.FrameHandle
	pending    []frameCallback
	running    []frameCallback
	now        func() time.Time
}

var _ chartplot.FrameScheduler = (*frameScheduler)(nil)

func newFrameScheduler() *frameScheduler {
	return &frameScheduler{now: time.Now}
}

func (s *frameScheduler) RequestFrame(fn func(now time.Time)) chartplot.FrameHandle {
	s.lastHandle++
	s.pending = append(s.pending, frameCallback{handle: s.lastHandle, fn: fn})
	return s.lastHandle
}

func (s *frameScheduler) CancelFrame(h chartplot.FrameHandle) {
	for i, cb := range s.pending {
		if cb.handle == h {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

func (s *frameScheduler) Now() time.Time {
	return s.now()
}

func (s *frameScheduler) Pending() bool {
	return len(s.pending) > 0
}

// RunFrame calls all callbacks which were pending when the frame started.
// Callbacks requested meanwhile are called in the next frame.
func (s *frameScheduler) RunFrame(now time.Time) {
	if len(s.pending) == 0 {
		return
	}
	s.running, s.pending = s.pending, s.running[:0]
	for _, cb := range s.running {
		cb.fn(now)
	}
	clear(s.running)
	s.running = s.running[:0]
}
