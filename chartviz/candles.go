// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartviz

import (
	"coinchart/chartplot"
	"coinchart/chartval"
	"coinchart/widgets"
	"image"
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/x/stroke"
	"golang.org/x/exp/slices"
)

type candleSegments struct {
	line   []stroke.Segment
	border []stroke.Segment
	body   []stroke.Segment
}

func (s *candleSegments) reset() {
	s.line = s.line[:0]
	s.border = s.border[:0]
	s.body = s.body[:0]
}

// candlePainter draws candles as thick lines with a flat cap.
// All candles of one color are painted with a single stroke per part.
// The segment buffers are reused between frames.
type candlePainter struct {
	theme *widgets.PlotTheme
	frame struct {
		green candleSegments
		red   candleSegments
	}
}

// visibleRange returns the index range of the candles which overlap [minTime, maxTime].
func visibleRange(data []chartval.Candle, minTime, maxTime float64) (first, last int) {
	first, _ = slices.BinarySearchFunc(data, minTime, func(c chartval.Candle, t float64) int {
		switch {
		case float64(c.Time) < t:
			return -1
		case float64(c.Time) > t:
			return 1
		}
		return 0
	})
	last = first
	for last < len(data) && float64(data[last].Time) <= maxTime {
		last++
	}
	return
}

// collect adds the segments of all candles which are visible within clipRect.
// It returns the number of collected candles.
func (p *candlePainter) collect(data []chartval.Candle, xScale, yScale chartplot.Scale, spacingMs float64,
	clipRect image.Rectangle, borderWidth int) int {
	p.frame.green.reset()
	p.frame.red.reset()

	// Include candles which are partly visible.
	first, last := visibleRange(data, xScale.Min()-spacingMs, xScale.Max()+spacingMs)
	count := 0
	for _, c := range data[first:last] {
		if p.collectSingleCandle(c, xScale, yScale, clipRect, borderWidth) {
			count++
		}
	}
	return count
}

func (p *candlePainter) collectSingleCandle(c chartval.Candle, xScale, yScale chartplot.Scale,
	clipRect image.Rectangle, borderWidth int) bool {
	xPos := xScale.PixelForValue(float64(c.Time))
	y1Pos := yScale.PixelForValue(c.Low)
	y2Pos := yScale.PixelForValue(c.High)
	if !chartval.IsFinite(xPos, y1Pos, y2Pos) {
		return false
	}
	if math.Round(y1Pos) == math.Round(y2Pos) {
		y2Pos++ // Stroke does not draw zero length lines, see https://github.com/andybalholm/stroke/issues/3
	}
	// Skip candles which are completely above or below the plot area.
	if (y1Pos < float64(clipRect.Min.Y) && y2Pos < float64(clipRect.Min.Y)) ||
		(y1Pos > float64(clipRect.Max.Y) && y2Pos > float64(clipRect.Max.Y)) {
		return false
	}
	y3Pos := yScale.PixelForValue(c.Open)
	y4Pos := yScale.PixelForValue(c.Close)

	isGreenCandle := c.IsGreen()
	seg := &p.frame.red
	if isGreenCandle {
		seg = &p.frame.green
	}
	seg.line = append(seg.line,
		stroke.MoveTo(f32.Pt(float32(xPos), float32(y1Pos))),
		stroke.LineTo(f32.Pt(float32(xPos), float32(y2Pos))),
	)

	// Draw candle using a minimum height of 1 px
	if math.Round(y4Pos) == math.Round(y3Pos) {
		y4Pos--
	}
	// Pixel positions grow downwards, top is the higher price.
	top, bottom := math.Min(y3Pos, y4Pos), math.Max(y3Pos, y4Pos)
	var borderSize float64
	if p.theme.DrawCandleBorder(isGreenCandle) {
		borderSize = float64(borderWidth)
		seg.border = append(seg.border,
			stroke.MoveTo(f32.Pt(float32(xPos), float32(bottom))),
			stroke.LineTo(f32.Pt(float32(xPos), float32(top))),
		)
	}
	if bottom-top > 2*borderSize {
		seg.body = append(seg.body,
			stroke.MoveTo(f32.Pt(float32(xPos), float32(bottom-borderSize))),
			stroke.LineTo(f32.Pt(float32(xPos), float32(top+borderSize))),
		)
	}
	return true
}

// Paint draws the candles within the plot area.
func (p *candlePainter) Paint(gtx layout.Context, data []chartval.Candle, xScale, yScale chartplot.Scale, spacingMs float64, clipRect image.Rectangle) {
	if clipRect.Empty() || len(data) == 0 {
		return
	}
	candleWidth, lineWidth, borderWidth := getCandleWidth(candleSpacingPx(xScale, spacingMs), gtx.Dp(1))
	if p.collect(data, xScale, yScale, spacingMs, clipRect, borderWidth) == 0 {
		return
	}
	// Only draw within the plot area.
	defer clip.Rect(clipRect).Push(gtx.Ops).Pop()

	var actualBorderWidth int
	if len(p.frame.green.border) > 0 || len(p.frame.red.border) > 0 {
		actualBorderWidth = borderWidth * 2
	}
	for _, isGreen := range [2]bool{true, false} {
		seg := &p.frame.red
		if isGreen {
			seg = &p.frame.green
		}
		candleColor, lineColor, borderColor := p.theme.GetCandleColors(isGreen)
		strokeCandleSegments(gtx, seg.line, float32(lineWidth), lineColor)
		strokeCandleSegments(gtx, seg.border, float32(candleWidth), borderColor)
		strokeCandleSegments(gtx, seg.body, float32(candleWidth-actualBorderWidth), candleColor)
	}
}

func strokeCandleSegments(gtx layout.Context, seg []stroke.Segment, width float32, c color.NRGBA) {
	if len(seg) == 0 || width <= 0 {
		return
	}
	var path stroke.Path
	path.Segments = seg
	paint.FillShape(
		gtx.Ops,
		c,
		stroke.Stroke{Path: path, Width: width, Cap: stroke.FlatCap}.Op(gtx.Ops),
	)
}
