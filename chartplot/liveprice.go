// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"coinchart/chartval"
	"image"
	"image/color"
	"math"

	"gioui.org/f32"
)

// Below this relative difference the displayed price jumps to the target.
const DefaultPriceEpsilon = 1e-6

type LivePriceStyle struct {
	LineColor color.NRGBA
	UpColor   color.NRGBA
	DownColor color.NRGBA
	TextColor color.NRGBA
	FontSize  float32
	LineWidth float32
	Dashes    []float32
}

// LivePrice smooths the latest price for display.
// The label keeps its width once established so that it does not jitter.
type LivePrice struct {
	Epsilon    float64
	displayed  float64
	target     float64
	hasValue   bool
	up         bool
	labelWidth int
}

func NewLivePrice() *LivePrice {
	return &LivePrice{Epsilon: DefaultPriceEpsilon}
}

// SetTarget sets the authoritative latest price. The first price is displayed immediately.
func (l *LivePrice) SetTarget(price float64) {
	if !chartval.IsFinite(price) {
		return
	}
	l.target = price
	if !l.hasValue {
		l.displayed = price
		l.hasValue = true
	}
}

// SetTargetFromCandles uses the close of the active candle,
// or the reference price if there are no candles.
func (l *LivePrice) SetTargetFromCandles(candles []chartval.Candle, reference float64) {
	if n := len(candles); n > 0 {
		c := candles[n-1]
		l.up = c.IsGreen()
		l.SetTarget(c.Close)
		return
	}
	l.SetTarget(reference)
}

func (l *LivePrice) HasValue() bool {
	return l.hasValue
}

func (l *LivePrice) Target() float64 {
	return l.target
}

func (l *LivePrice) Displayed() float64 {
	return l.displayed
}

// Step moves the displayed price towards the target. Call once per frame.
// It returns whether the displayed price still differs from the target.
func (l *LivePrice) Step() bool {
	if !l.hasValue {
		return false
	}
	diff := l.target - l.displayed
	relDiff := math.Abs(diff)
	if l.target != 0 {
		relDiff /= math.Abs(l.target)
	}
	if relDiff < l.Epsilon {
		l.displayed = l.target
		return false
	}
	l.displayed += diff * smoothingFactor(relDiff)
	return true
}

// Larger moves are followed faster, micro fluctuations are calmed down.
func smoothingFactor(relDiff float64) float64 {
	switch {
	case relDiff < 0.0001:
		return 0.15
	case relDiff < 0.001:
		return 0.20
	default:
		return 0.30
	}
}

// LabelWidth returns the fixed label width in pixels. It only ever grows.
func (l *LivePrice) LabelWidth(c Canvas, fontSize float32) int {
	w := c.MeasureText(chartval.WidestPriceTemplate(l.displayed), fontSize).X
	if w > l.labelWidth {
		l.labelWidth = w
	}
	return l.labelWidth
}

// Draw paints a dashed line at the displayed price across the plot area
// and the price label on the right side of it.
func (l *LivePrice) Draw(c Canvas, area image.Rectangle, yScale Scale, style LivePriceStyle) error {
	if !l.hasValue {
		return ErrNoCandles
	}
	if area.Empty() {
		return ErrEmptyPlotArea
	}
	if yScale == nil {
		return ErrNoScale
	}
	y := yScale.PixelForValue(l.displayed)
	if !chartval.IsFinite(y) {
		return ErrNotFinite
	}
	if y < float64(area.Min.Y) || y > float64(area.Max.Y) {
		// The price is not within the visible range.
		return nil
	}
	pop := c.PushClip(area)
	c.Line(
		f32.Pt(float32(area.Max.X), float32(y)),
		f32.Pt(float32(area.Min.X), float32(y)),
		LineStyle{Width: style.LineWidth, Color: style.LineColor, Dashes: style.Dashes},
	)
	pop()

	text := chartval.FormatPrice(l.displayed)
	textSize := c.MeasureText(text, style.FontSize)
	width := l.LabelWidth(c, style.FontSize)
	bgColor := style.DownColor
	if l.up {
		bgColor = style.UpColor
	}
	// Thick background line with round caps, the text is right aligned within the fixed width.
	basePosX := area.Max.X + textMarginPx
	const borderSize = 2
	c.Line(
		f32.Pt(float32(basePosX), float32(y)),
		f32.Pt(float32(basePosX+width), float32(y)),
		LineStyle{Width: float32(textSize.Y + borderSize), Color: bgColor, RoundCap: true},
	)
	c.DrawText(text, image.Pt(basePosX+width-textSize.X, int(y)-textSize.Y/2), style.FontSize, style.TextColor)
	return nil
}
