// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import "errors"

var (
	ErrInvalidWindow   = errors.New("invalid visible window")
	ErrEmptyPlotArea   = errors.New("empty plot area")
	ErrNoCandles       = errors.New("no candles available")
	ErrNoScale         = errors.New("scale not set")
	ErrGestureCaptured = errors.New("gesture captured by drawing tool")
	ErrNotFinite       = errors.New("value is not finite")
)

// isExpected reports whether err is a regular no-op condition,
// e.g. because no data has been loaded yet.
func isExpected(err error) bool {
	return errors.Is(err, ErrNoCandles) || errors.Is(err, ErrEmptyPlotArea) || errors.Is(err, ErrGestureCaptured)
}
