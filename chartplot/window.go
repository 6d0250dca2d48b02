// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"coinchart/chartval"
	"fmt"
	"math"
)

// Window is a value range of an axis. For the time axis, values are unix milliseconds.
type Window struct {
	Min float64
	Max float64
}

func (w Window) Width() float64 {
	return w.Max - w.Min
}

func (w Window) Center() float64 {
	return w.Min + w.Width()/2
}

func (w Window) Valid() bool {
	return chartval.IsFinite(w.Min, w.Max) && w.Max > w.Min
}

func (w Window) Shift(delta float64) Window {
	return Window{Min: w.Min + delta, Max: w.Max + delta}
}

func (w Window) Contains(v float64) bool {
	return v >= w.Min && v <= w.Max
}

// Round returns the window with both bounds rounded to whole units.
func (w Window) Round() Window {
	return Window{Min: math.Round(w.Min), Max: math.Round(w.Max)}
}

func (w Window) String() string {
	return fmt.Sprintf("[%.0f, %.0f]", w.Min, w.Max)
}

func (w Window) check() error {
	if !chartval.IsFinite(w.Min, w.Max) {
		return fmt.Errorf("window %v: %w", w, ErrNotFinite)
	}
	if w.Max <= w.Min {
		return fmt.Errorf("window %v: %w", w, ErrInvalidWindow)
	}
	return nil
}
