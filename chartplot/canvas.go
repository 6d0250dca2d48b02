// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"image"
	"image/color"

	"gioui.org/f32"
)

// LineStyle describes how a single line is stroked.
type LineStyle struct {
	Width float32
	Color color.NRGBA
	// Dashes is an optional on/off pattern in pixels.
	Dashes []float32
	// RoundCap draws round ends, otherwise ends are flat.
	RoundCap bool
	// Fade draws the line with a linear fade transparent -> Color -> transparent
	// along its direction.
	Fade bool
}

// Canvas is the drawing surface of the chart for one frame.
type Canvas interface {
	// PushClip restricts drawing to r until the returned function is called.
	PushClip(r image.Rectangle) (pop func())
	Line(from, to f32.Point, style LineStyle)
	// MeasureText returns the size of the rendered text in pixels.
	MeasureText(text string, fontSize float32) image.Point
	// DrawText draws text with its top left corner at pos.
	DrawText(text string, pos image.Point, fontSize float32, c color.NRGBA)
}

// AxisOptions are the visual settings of an axis.
type AxisOptions struct {
	ShowGrid      bool
	GridColor     color.NRGBA
	GridWidth     float32
	LabelColor    color.NRGBA
	LabelFontSize float32
}
