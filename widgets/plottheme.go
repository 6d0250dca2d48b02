// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package widgets

import (
	"image"
	"image/color"

	"gioui.org/layout"
	"gioui.org/unit"
	"golang.org/x/image/colornames"
)

type DpPoint struct {
	X unit.Dp
	Y unit.Dp
}

func (p *DpPoint) Dp(gtx layout.Context) image.Point {
	return image.Point{
		X: gtx.Dp(p.X),
		Y: gtx.Dp(p.Y),
	}
}

type PlotTheme struct {
	AxesMarginMin                DpPoint
	AxesMarginMax                DpPoint
	TextMargin                   DpPoint
	AxesColor                    color.NRGBA
	GridColor                    color.NRGBA
	GridWidth                    unit.Dp
	ShowGridX                    bool
	ShowGridY                    bool
	CandleUpColor                color.NRGBA
	CandleDownColor              color.NRGBA
	CandleUpBorderColor          color.NRGBA
	CandleDownBorderColor        color.NRGBA
	UseBorderColorForCandleLines bool
	DrawCandleUpBorder           bool
	DrawCandleDownBorder         bool
	AxesXtextColor               color.NRGBA
	AxesYtextColor               color.NRGBA
	QuoteDashColor               color.NRGBA
	QuoteDashPattern             []float32
	QuoteLineWidth               unit.Dp
	QuoteUpColor                 color.NRGBA
	QuoteDownColor               color.NRGBA
	QuoteTextColor               color.NRGBA
	FrameBgColor                 color.NRGBA
	FrameTextColor               color.NRGBA
	MessageBgColor               color.NRGBA
}

// colornames only has opaque colors, so the conversion keeps the values.
func named(c color.RGBA) color.NRGBA {
	return color.NRGBA(c)
}

func withAlpha(c color.NRGBA, a uint8) color.NRGBA {
	c.A = a
	return c
}

func NewDarkPlotTheme() *PlotTheme {
	return &PlotTheme{
		AxesMarginMin:                DpPoint{X: 10, Y: 10},
		AxesMarginMax:                DpPoint{X: 80, Y: 30},
		TextMargin:                   DpPoint{X: 4, Y: 4},
		AxesColor:                    named(colornames.White),
		GridColor:                    color.NRGBA{R: 60, G: 60, B: 60, A: 255},
		GridWidth:                    1,
		ShowGridX:                    true,
		ShowGridY:                    true,
		CandleUpColor:                named(colornames.Mediumseagreen),
		CandleDownColor:              named(colornames.Crimson),
		CandleUpBorderColor:          named(colornames.White),
		CandleDownBorderColor:        named(colornames.White),
		UseBorderColorForCandleLines: false,
		DrawCandleUpBorder:           false,
		DrawCandleDownBorder:         false,
		AxesXtextColor:               named(colornames.Lightgray),
		AxesYtextColor:               named(colornames.Lightgray),
		QuoteDashColor:               named(colornames.White),
		QuoteDashPattern:             []float32{2, 6},
		QuoteLineWidth:               1,
		QuoteUpColor:                 named(colornames.Mediumseagreen),
		QuoteDownColor:               named(colornames.Crimson),
		QuoteTextColor:               named(colornames.Black),
		FrameBgColor:                 withAlpha(named(colornames.Darkslategray), 200),
		FrameTextColor:               named(colornames.White),
		MessageBgColor:               withAlpha(named(colornames.Darkred), 250),
	}
}

func NewLightPlotTheme() *PlotTheme {
	return &PlotTheme{
		AxesMarginMin:                DpPoint{X: 10, Y: 10},
		AxesMarginMax:                DpPoint{X: 80, Y: 30},
		TextMargin:                   DpPoint{X: 4, Y: 4},
		AxesColor:                    named(colornames.Black),
		GridColor:                    color.NRGBA{R: 230, G: 230, B: 230, A: 255},
		GridWidth:                    1,
		ShowGridX:                    true,
		ShowGridY:                    true,
		CandleUpColor:                named(colornames.Seagreen),
		CandleDownColor:              named(colornames.Firebrick),
		CandleUpBorderColor:          named(colornames.Black),
		CandleDownBorderColor:        named(colornames.Black),
		UseBorderColorForCandleLines: false,
		DrawCandleUpBorder:           false,
		DrawCandleDownBorder:         false,
		AxesXtextColor:               named(colornames.Dimgray),
		AxesYtextColor:               named(colornames.Dimgray),
		QuoteDashColor:               named(colornames.Black),
		QuoteDashPattern:             []float32{2, 6},
		QuoteLineWidth:               1,
		QuoteUpColor:                 named(colornames.Seagreen),
		QuoteDownColor:               named(colornames.Firebrick),
		QuoteTextColor:               named(colornames.White),
		FrameBgColor:                 withAlpha(named(colornames.Lightsteelblue), 220),
		FrameTextColor:               named(colornames.Black),
		MessageBgColor:               withAlpha(named(colornames.Firebrick), 250),
	}
}

func (th *PlotTheme) GetCandleColors(isGreenCandle bool) (candleColor, lineColor, borderColor color.NRGBA) {
	if isGreenCandle {
		candleColor = th.CandleUpColor
		borderColor = th.CandleUpBorderColor
	} else {
		candleColor = th.CandleDownColor
		borderColor = th.CandleDownBorderColor
	}
	lineColor = candleColor
	if th.UseBorderColorForCandleLines {
		lineColor = borderColor
	}
	return
}

func (th *PlotTheme) DrawCandleBorder(isGreenCandle bool) bool {
	if isGreenCandle {
		return th.DrawCandleUpBorder
	}
	return th.DrawCandleDownBorder
}
