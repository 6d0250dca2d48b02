// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package widgets

import (
	"image"
	"image/color"

	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
)

type Frame struct {
	OuterMargin     unit.Dp
	InnerMargin     unit.Dp
	BorderWidth     unit.Dp
	BorderColor     color.NRGBA
	BackgroundColor color.NRGBA
}

func (f Frame) Layout(gtx layout.Context, w layout.Widget) layout.Dimensions {
	return layout.UniformInset(f.OuterMargin).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return widget.Border{Color: f.BorderColor, Width: f.BorderWidth, CornerRadius: unit.Dp(4)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			if f.BackgroundColor.A == 0 {
				return layout.UniformInset(f.InnerMargin).Layout(gtx, w)
			}
			macro := op.Record(gtx.Ops)
			dims := layout.UniformInset(f.InnerMargin).Layout(gtx, w)
			call := macro.Stop()
			rr := gtx.Dp(4)
			paint.FillShape(gtx.Ops, f.BackgroundColor, clip.UniformRRect(image.Rectangle{Max: dims.Size}, rr).Op(gtx.Ops))
			call.Add(gtx.Ops)
			return dims
		})
	})
}

// TitleField shows the symbol with its latest price and change.
type TitleField struct {
	Symbol    string
	Timeframe string
	Price     string
	Change    string
	Up        bool
}

func (t TitleField) Layout(gtx layout.Context, th *material.Theme, pth *PlotTheme) layout.Dimensions {
	gtx.Constraints.Min.X = 0
	return Frame{InnerMargin: 5, BorderWidth: 1, BorderColor: pth.FrameBgColor, BackgroundColor: pth.FrameBgColor}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Baseline}.Layout(
			gtx,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				lbl := material.H6(th, t.Symbol+" · "+t.Timeframe)
				lbl.Color = pth.FrameTextColor
				return lbl.Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				if t.Price == "" {
					return layout.Dimensions{}
				}
				lbl := material.Body1(th, t.Price)
				lbl.Color = pth.FrameTextColor
				return layout.Inset{Left: 15}.Layout(gtx, lbl.Layout)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				if t.Change == "" {
					return layout.Dimensions{}
				}
				lbl := material.Body1(th, t.Change)
				lbl.Color = pth.QuoteDownColor
				if t.Up {
					lbl.Color = pth.QuoteUpColor
				}
				return layout.Inset{Left: 10}.Layout(gtx, lbl.Layout)
			}),
		)
	})
}
