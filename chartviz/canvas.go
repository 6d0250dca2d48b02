// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartviz

import (
	"coinchart/chartplot"
	"image"
	"image/color"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget/material"
	"gioui.org/x/stroke"
)

// Measured label sizes are kept across frames, up to this number of entries.
const maxCachedLabelSizes = 4096

type labelSizeKey struct {
	text     string
	fontSize float32
}

// gioCanvas draws the engine output into the ops of the current frame.
// Font sizes are in pixels.
type gioCanvas struct {
	th         *material.Theme
	gtx        layout.Context
	metric     unit.Metric
	sizes      map[labelSizeKey]image.Point
	measureOps op.Ops
}

var _ chartplot.Canvas = (*gioCanvas)(nil)

func newGioCanvas(th *material.Theme) *gioCanvas {
	return &gioCanvas{
		th:    th,
		sizes: make(map[labelSizeKey]image.Point),
	}
}

// Begin needs to be called once per frame before drawing.
func (c *gioCanvas) Begin(gtx layout.Context) {
	if gtx.Metric != c.metric {
		clear(c.sizes)
		c.metric = gtx.Metric
	}
	c.gtx = gtx
}

func (c *gioCanvas) PushClip(r image.Rectangle) func() {
	return clip.Rect(r).Push(c.gtx.Ops).Pop
}

func (c *gioCanvas) Line(from, to f32.Point, style chartplot.LineStyle) {
	if style.Width <= 0 || style.Color.A == 0 {
		return
	}
	s := stroke.Stroke{
		Path: stroke.Path{Segments: []stroke.Segment{
			stroke.MoveTo(from),
			stroke.LineTo(to),
		}},
		Width: style.Width,
		Cap:   stroke.FlatCap,
	}
	if style.RoundCap {
		s.Cap = stroke.RoundCap
	}
	if len(style.Dashes) > 0 {
		s.Dashes = stroke.Dashes{Dashes: style.Dashes}
	}
	if !style.Fade {
		paint.FillShape(c.gtx.Ops, style.Color, s.Op(c.gtx.Ops))
		return
	}
	// Two gradients, transparent at both ends and opaque in the middle.
	mid := f32.Pt((from.X+to.X)/2, (from.Y+to.Y)/2)
	transparent := style.Color
	transparent.A = 0
	c.fillGradient(s, from, mid, transparent, style.Color)
	c.fillGradient(s, mid, to, style.Color, transparent)
}

// fillGradient strokes the line from -> to with the style of s and a linear gradient.
func (c *gioCanvas) fillGradient(s stroke.Stroke, from, to f32.Point, c1, c2 color.NRGBA) {
	s.Path.Segments = []stroke.Segment{stroke.MoveTo(from), stroke.LineTo(to)}
	defer s.Op(c.gtx.Ops).Push(c.gtx.Ops).Pop()
	paint.LinearGradientOp{Stop1: from, Stop2: to, Color1: c1, Color2: c2}.Add(c.gtx.Ops)
	paint.PaintOp{}.Add(c.gtx.Ops)
}

func (c *gioCanvas) MeasureText(labelText string, fontSize float32) image.Point {
	k := labelSizeKey{text: labelText, fontSize: fontSize}
	if size, ok := c.sizes[k]; ok {
		return size
	}
	// Measure into scratch ops, the recorded label is not needed.
	c.measureOps.Reset()
	gtx := c.gtx
	gtx.Ops = &c.measureOps
	_, size := recordLabelText(labelText, color.NRGBA{A: 255}, fontSize, gtx, c.th)
	if len(c.sizes) >= maxCachedLabelSizes {
		clear(c.sizes)
	}
	c.sizes[k] = size
	return size
}

func (c *gioCanvas) DrawText(labelText string, pos image.Point, fontSize float32, col color.NRGBA) {
	call, _ := recordLabelText(labelText, col, fontSize, c.gtx, c.th)
	stack := op.Offset(pos).Push(c.gtx.Ops)
	// Run recorded drawing.
	call.Add(c.gtx.Ops)
	stack.Pop()
}

func recordLabelText(labelText string, c color.NRGBA, fontSizePx float32, gtx layout.Context, th *material.Theme) (op.CallOp, image.Point) {
	gtx.Constraints = layout.Constraints{Max: image.Pt(1<<20, 1<<20)}
	pxPerSp := gtx.Metric.PxPerSp
	if pxPerSp <= 0 {
		pxPerSp = 1
	}
	macro := op.Record(gtx.Ops)
	lbl := material.Label(
		th,
		unit.Sp(fontSizePx/pxPerSp),
		labelText,
	)
	lbl.Color = c
	lbl.Alignment = text.Start
	lbl.MaxLines = 1
	dims := lbl.Layout(gtx)
	return macro.Stop(), dims.Size
}
