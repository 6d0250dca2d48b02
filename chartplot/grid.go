// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"coinchart/chartval"
	"fmt"
	"image"
	"math"

	"gioui.org/f32"
)

// Hard limit of grid lines per frame, in case the spacing is far too small.
const maxGridSteps = 2000

// Ticks slightly outside the plot area still get a label.
const labelMarginPx = 2

// Gap between plot area and axis labels.
const textMarginPx = 4

// GridTick is a vertical grid line. It is recomputed every frame.
type GridTick struct {
	X    float64 // pixel
	Time float64 // ms
}

type TimeLabel struct {
	Text  string
	Tick  GridTick
	Left  int
	Right int
	Size  image.Point
}

type ValueLabel struct {
	Text  string
	Value float64
	Y     float64 // pixel
	Size  image.Point
}

// GridRenderer draws time and price grid lines and their labels.
// It keeps buffers between frames and must only be used from a single goroutine.
type GridRenderer struct {
	XAxis AxisOptions
	YAxis AxisOptions
	frame struct {
		spacing     float64
		ticks       []GridTick
		candidates  []TimeLabel
		labels      []TimeLabel
		valueLabels []ValueLabel
	}
}

func NewGridRenderer(xAxis, yAxis AxisOptions) *GridRenderer {
	return &GridRenderer{XAxis: xAxis, YAxis: yAxis}
}

// Spacing returns the grid spacing of the last frame in ms.
func (g *GridRenderer) Spacing() float64 {
	return g.frame.spacing
}

// Ticks returns all multiples of spacing within [min-spacing, max+spacing] of the scale, ascending.
func (g *GridRenderer) Ticks(xScale Scale, spacing float64) []GridTick {
	ticks := g.frame.ticks[:0]
	minValue, maxValue := xScale.Min(), xScale.Max()
	first := math.Ceil(minValue/spacing) - 1
	for i := 0; i < maxGridSteps; i++ {
		// Multiply instead of adding up to avoid accumulating rounding errors.
		t := (first + float64(i)) * spacing
		if t > maxValue+spacing {
			break
		}
		ticks = append(ticks, GridTick{X: xScale.PixelForValue(t), Time: t})
	}
	g.frame.ticks = ticks
	return ticks
}

// PlaceLabels selects non-overlapping time labels from left to right.
// The greedy choice does not necessarily yield the maximum number of labels.
func (g *GridRenderer) PlaceLabels(c Canvas, ticks []GridTick, area image.Rectangle, spacing float64, fontSize float32) []TimeLabel {
	layout := TimeLabelFormat(spacing)
	candidates := g.frame.candidates[:0]
	for _, t := range ticks {
		if t.X < float64(area.Min.X-labelMarginPx) || t.X > float64(area.Max.X+labelMarginPx) {
			continue
		}
		text := FormatTimeLabel(t.Time, layout)
		size := c.MeasureText(text, fontSize)
		left := int(math.Round(t.X)) - size.X/2
		candidates = append(candidates, TimeLabel{
			Text:  text,
			Tick:  t,
			Left:  left,
			Right: left + size.X,
			Size:  size,
		})
	}
	g.frame.candidates = candidates

	minDist := MinLabelDistance(float64(fontSize))
	maxLabels := math.Max(1, math.Floor(float64(area.Dx())/minDist))
	if n := float64(len(candidates)); n > maxLabels {
		minDist *= n / maxLabels
	}
	labels := g.frame.labels[:0]
	for _, l := range candidates {
		if len(labels) > 0 {
			prev := labels[len(labels)-1]
			if l.Text == prev.Text || float64(l.Left) < float64(prev.Right)+minDist {
				continue
			}
		}
		labels = append(labels, l)
	}
	g.frame.labels = labels
	return labels
}

// ValueLabels returns the price labels for the tick values of the vertical scale
// which are inside the plot area. Consecutive labels with the same text are skipped.
func (g *GridRenderer) ValueLabels(c Canvas, yScale Scale, area image.Rectangle) []ValueLabel {
	labels := g.frame.valueLabels[:0]
	precision := chartval.Precision(math.Max(math.Abs(yScale.Min()), math.Abs(yScale.Max())))
	var labelText string
	for _, v := range yScale.Ticks() {
		y := yScale.PixelForValue(v)
		if y < float64(area.Min.Y) || y > float64(area.Max.Y) {
			continue
		}
		newLabelText := chartval.FormatPriceWithPrecision(v, precision)
		if newLabelText == labelText {
			continue // do not print text twice if it is unchanged due to precision
		}
		labelText = newLabelText
		labels = append(labels, ValueLabel{
			Text:  labelText,
			Value: v,
			Y:     y,
			Size:  c.MeasureText(labelText, g.YAxis.LabelFontSize),
		})
	}
	g.frame.valueLabels = labels
	return labels
}

// Draw paints the grid of one frame. The time labels are painted below the plot area,
// the price labels to the right of it.
func (g *GridRenderer) Draw(c Canvas, area image.Rectangle, xScale, yScale Scale, candleIntervalMs float64) error {
	if area.Empty() {
		return ErrEmptyPlotArea
	}
	if xScale == nil || yScale == nil {
		return ErrNoScale
	}
	if err := (Window{Min: xScale.Min(), Max: xScale.Max()}).check(); err != nil {
		return fmt.Errorf("time axis: %w", err)
	}
	if !chartval.IsFinite(candleIntervalMs) || candleIntervalMs <= 0 {
		return fmt.Errorf("candle interval %v: %w", candleIntervalMs, ErrNotFinite)
	}
	fontSize := g.XAxis.LabelFontSize
	spacing := SelectSpacing(xScale.Max()-xScale.Min(), float64(area.Dx()), candleIntervalMs, float64(fontSize))
	g.frame.spacing = spacing
	ticks := g.Ticks(xScale, spacing)

	pop := c.PushClip(area)
	if g.XAxis.ShowGrid {
		style := LineStyle{Width: g.XAxis.GridWidth, Color: g.XAxis.GridColor, Fade: true}
		for _, t := range ticks {
			x := float32(t.X)
			c.Line(f32.Pt(x, float32(area.Min.Y)), f32.Pt(x, float32(area.Max.Y)), style)
		}
	}
	if g.YAxis.ShowGrid && yScale.Max() > yScale.Min() {
		style := LineStyle{Width: g.YAxis.GridWidth, Color: g.YAxis.GridColor, Fade: true}
		for _, v := range yScale.Ticks() {
			y := float32(yScale.PixelForValue(v))
			c.Line(f32.Pt(float32(area.Min.X), y), f32.Pt(float32(area.Max.X), y), style)
		}
	}
	pop()

	for _, l := range g.PlaceLabels(c, ticks, area, spacing, fontSize) {
		c.DrawText(l.Text, image.Pt(l.Left, area.Max.Y+textMarginPx), fontSize, g.XAxis.LabelColor)
	}
	if yScale.Max() > yScale.Min() {
		for _, l := range g.ValueLabels(c, yScale, area) {
			c.DrawText(l.Text, image.Pt(area.Max.X+textMarginPx, int(l.Y)-l.Size.Y/2), g.YAxis.LabelFontSize, g.YAxis.LabelColor)
		}
	}
	return nil
}
