// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"math"
	"time"
)

const (
	msMinute = float64(time.Minute / time.Millisecond)
	msHour   = 60 * msMinute
	msDay    = 24 * msHour
)

// Round durations which are used as grid spacing, ascending.
var spacingLadder = [...]float64{
	30 * 1000,
	msMinute,
	2 * msMinute,
	3 * msMinute,
	5 * msMinute,
	10 * msMinute,
	15 * msMinute,
	30 * msMinute,
	45 * msMinute,
	msHour,
	2 * msHour,
	3 * msHour,
	4 * msHour,
	6 * msHour,
	8 * msHour,
	12 * msHour,
	msDay,
	2 * msDay,
	3 * msDay,
	7 * msDay,
	14 * msDay,
	30 * msDay,
	60 * msDay,
	90 * msDay,
	180 * msDay,
	365 * msDay,
}

// Max number of visible candles for which every candle gets a grid line.
const maxCandlesPerLine = 6

// MinLabelDistance estimates the minimum pixel distance between two time labels.
func MinLabelDistance(fontSizePx float64) float64 {
	return math.Max(100, fontSizePx*8*1.5)
}

// SelectSpacing returns the time distance between two vertical grid lines in milliseconds.
// All inputs need to be finite and positive, callers should check this first.
func SelectSpacing(visibleRangeMs, plotWidthPx, candleIntervalMs, labelFontSizePx float64) float64 {
	if visibleRangeMs <= maxCandlesPerLine*candleIntervalMs {
		return candleIntervalMs
	}
	minDist := MinLabelDistance(labelFontSizePx)
	maxLabels := math.Max(1, math.Floor(plotWidthPx/minDist))
	rawSpacing := math.Max(visibleRangeMs/maxLabels, candleIntervalMs)

	// Only consider spacings which are at least one candle.
	ladder := spacingLadder[:]
	for len(ladder) > 0 && ladder[0] < candleIntervalMs {
		ladder = ladder[1:]
	}
	index := -1
	for i, v := range ladder {
		if v >= rawSpacing {
			index = i
			break
		}
	}
	var spacing float64
	switch {
	case index >= 0:
		spacing = ladder[index]
	case len(ladder) > 0:
		largest := ladder[len(ladder)-1]
		spacing = largest * math.Ceil(rawSpacing/largest)
	default:
		spacing = candleIntervalMs * math.Ceil(rawSpacing/candleIntervalMs)
	}

	pxPerMs := plotWidthPx / visibleRangeMs
	if gap := spacing * pxPerMs; gap < minDist {
		if index >= 0 && index+1 < len(ladder) && ladder[index+1]*pxPerMs >= minDist {
			spacing = ladder[index+1]
		} else {
			base := spacing
			spacing = base * math.Ceil(minDist/gap)
			// Rounding errors may still leave the gap a tiny bit too small.
			for i := 0; spacing*pxPerMs < minDist && i < 16; i++ {
				spacing += base
			}
		}
	}
	return spacing
}

// TimeLabelFormat returns the time.Format layout for labels at the given spacing.
func TimeLabelFormat(spacingMs float64) string {
	switch {
	case spacingMs < 6*msHour:
		return "15:04"
	case spacingMs < msDay:
		return "02/01 15:04"
	case spacingMs < 30*msDay:
		return "02/01"
	default:
		return "01/06"
	}
}

// FormatTimeLabel formats a grid time in UTC, independent of the local time zone.
func FormatTimeLabel(timeMs float64, layout string) string {
	return time.UnixMilli(int64(math.Round(timeMs))).UTC().Format(layout)
}
