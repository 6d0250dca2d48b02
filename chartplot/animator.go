// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"coinchart/chartval"
	"time"
)

const DefaultAnimationDuration = 300 * time.Millisecond

type FrameHandle uint64

// FrameScheduler calls back once before the next frame is drawn.
type FrameScheduler interface {
	RequestFrame(fn func(now time.Time)) FrameHandle
	// CancelFrame removes a pending callback. Unknown handles are ignored.
	CancelFrame(h FrameHandle)
	Now() time.Time
}

// Animator eases the range of a scale towards a target.
// At most one animation is running at a time, a new one replaces the previous one.
type Animator struct {
	Duration  time.Duration
	scale     Scale
	scheduler FrameScheduler
	state     struct {
		start      Window
		target     Window
		startTime  time.Time
		duration   time.Duration
		handle     FrameHandle
		active     bool
		generation uint64
	}
}

func NewAnimator(scale Scale, scheduler FrameScheduler) *Animator {
	return &Animator{
		Duration:  DefaultAnimationDuration,
		scale:     scale,
		scheduler: scheduler,
	}
}

func (a *Animator) Animate(target Window) error {
	return a.AnimateWithDuration(target, a.Duration)
}

func (a *Animator) AnimateWithDuration(target Window, d time.Duration) error {
	if a.scale == nil {
		return ErrNoScale
	}
	if err := target.check(); err != nil {
		return err
	}
	a.Cancel()
	if d <= 0 || a.scheduler == nil {
		a.scale.SetRange(target.Min, target.Max)
		return nil
	}
	a.state.start = Window{Min: a.scale.Min(), Max: a.scale.Max()}
	if !chartval.IsFinite(a.state.start.Min, a.state.start.Max) {
		a.state.start = target
	}
	a.state.target = target
	a.state.startTime = a.scheduler.Now()
	a.state.duration = d
	a.state.active = true
	a.requestFrame()
	return nil
}

// Cancel stops the running animation, the scale keeps its current range.
func (a *Animator) Cancel() {
	if a.state.active && a.scheduler != nil {
		a.scheduler.CancelFrame(a.state.handle)
	}
	a.state.active = false
	a.state.handle = 0
	// Invalidate callbacks which might still be queued.
	a.state.generation++
}

func (a *Animator) Active() bool {
	return a.state.active
}

// Target returns the range the running or last animation ends at.
func (a *Animator) Target() Window {
	return a.state.target
}

func (a *Animator) requestFrame() {
	generation := a.state.generation
	a.state.handle = a.scheduler.RequestFrame(func(now time.Time) {
		if generation == a.state.generation {
			a.step(now)
		}
	})
}

func (a *Animator) step(now time.Time) {
	p := chartval.Clamp(float64(now.Sub(a.state.startTime))/float64(a.state.duration), 0, 1)
	if p >= 1 {
		// Do not trust interpolation to end exactly at the target.
		a.scale.SetRange(a.state.target.Min, a.state.target.Max)
		a.state.active = false
		a.state.handle = 0
		return
	}
	e := easeInOutQuart(p)
	a.scale.SetRange(
		a.state.start.Min+(a.state.target.Min-a.state.start.Min)*e,
		a.state.start.Max+(a.state.target.Max-a.state.start.Max)*e,
	)
	a.requestFrame()
}

func easeInOutQuart(p float64) float64 {
	if p < 0.5 {
		return 8 * p * p * p * p
	}
	q := -2*p + 2
	return 1 - q*q*q*q/2
}
