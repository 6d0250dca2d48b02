// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartviz

import (
	"coinchart/chartplot"
	"image"
	"math"
)

// getCandleWidth returns the widths in pixels for a candle spacing of mX pixels.
func getCandleWidth(mX float64, maxBorderWidth int) (candleWidth, lineWidth, borderWidth int) {
	const minCandleWidth = 1
	const minLineWidth = 1
	const defaultCandleMultiplier = 0.8

	candleWidth = int(math.Abs(mX) * defaultCandleMultiplier)
	if candleWidth < minCandleWidth {
		candleWidth = minCandleWidth
	}
	lineWidth = candleWidth / 16
	if lineWidth < minLineWidth {
		lineWidth = minLineWidth
	}
	borderWidth = candleWidth / 5
	if borderWidth > maxBorderWidth {
		borderWidth = maxBorderWidth
	}
	return
}

// candleSpacingPx converts a candle spacing in milliseconds to pixels.
func candleSpacingPx(xScale chartplot.Scale, spacingMs float64) float64 {
	base := xScale.Min()
	return xScale.PixelForValue(base+spacingMs) - xScale.PixelForValue(base)
}

// plotArea returns the area of the candles within a widget of the given size.
// Candles are not drawn on the axis labels to the right and below.
func plotArea(size, marginMin, marginMax image.Point) image.Rectangle {
	r := image.Rectangle{Min: marginMin, Max: size.Sub(marginMax)}
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return image.Rectangle{}
	}
	return r
}
