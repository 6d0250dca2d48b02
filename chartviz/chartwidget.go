// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartviz

import (
	"coinchart/chartplot"
	"coinchart/chartval"
	"coinchart/config"
	"coinchart/widgets"
	"image"
	"math"
	"time"

	"gioui.org/f32"
	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/unit"
	"gioui.org/widget/material"
	"github.com/rs/zerolog"
)

const (
	// A zoom gesture is complete if no scroll event arrives within this delay.
	zoomSettleDelay = 250 * time.Millisecond
	// Relative window width after one scroll step towards the pointer.
	zoomInFactor = 0.9
)

type ChartWidgetConfig struct {
	Series           *chartval.Series
	Theme            *widgets.PlotTheme
	MaterialTheme    *material.Theme
	ChartConfig      config.ChartConfig
	Loading          chartplot.LoadingFlag
	OnHistoryRequest func(chartplot.HistoryRequest)
	Logger           zerolog.Logger
}

// ChartWidget shows the candles of a series and forwards pointer gestures to the chart engine.
// All methods need to be called from the UI goroutine.
type ChartWidget struct {
	Chart       *chartplot.Chart
	series      *chartval.Series
	theme       *widgets.PlotTheme
	fontSize    unit.Sp
	scheduler   *frameScheduler
	canvas      *gioCanvas
	painter     candlePainter
	initialized bool
	pointer     struct {
		panning     bool
		pressPos    f32.Point
		pressWindow chartplot.Window
	}
	zoom struct {
		active    bool
		lastEvent time.Time
	}
	frame struct {
		area          image.Rectangle
		labelMarginPx int
	}
}

func NewChartWidget(cfg ChartWidgetConfig) *ChartWidget {
	scheduler := newFrameScheduler()
	w := &ChartWidget{
		series:    cfg.Series,
		theme:     cfg.Theme,
		fontSize:  unit.Sp(cfg.ChartConfig.LabelFontSize),
		scheduler: scheduler,
		canvas:    newGioCanvas(cfg.MaterialTheme),
		painter:   candlePainter{theme: cfg.Theme},
	}
	w.Chart = chartplot.NewChart(chartplot.ChartConfig{
		CandleIntervalMs:         cfg.Series.Timeframe.IntervalMs(),
		PrefetchThresholdCandles: float64(cfg.ChartConfig.PrefetchThresholdCandles),
		Source:                   cfg.Series,
		Loading:                  cfg.Loading,
		Scheduler:                scheduler,
		OnHistoryRequest:         cfg.OnHistoryRequest,
		XAxis: chartplot.AxisOptions{
			ShowGrid:   cfg.Theme.ShowGridX,
			GridColor:  cfg.Theme.GridColor,
			LabelColor: cfg.Theme.AxesXtextColor,
		},
		YAxis: chartplot.AxisOptions{
			ShowGrid:   cfg.Theme.ShowGridY,
			GridColor:  cfg.Theme.GridColor,
			LabelColor: cfg.Theme.AxesYtextColor,
		},
		LivePrice: chartplot.LivePriceStyle{
			LineColor: cfg.Theme.QuoteDashColor,
			UpColor:   cfg.Theme.QuoteUpColor,
			DownColor: cfg.Theme.QuoteDownColor,
			TextColor: cfg.Theme.QuoteTextColor,
			Dashes:    cfg.Theme.QuoteDashPattern,
		},
		Logger: cfg.Logger,
	})
	w.Chart.Animator.Duration = time.Duration(cfg.ChartConfig.AnimationDurationMs) * time.Millisecond
	return w
}

// Initialized returns whether the chart shows a time window.
func (w *ChartWidget) Initialized() bool {
	return w.initialized
}

// Reset shows the latest n candles. It has no effect until the series has candles.
func (w *ChartWidget) Reset(n int) {
	if w.series.Len() == 0 {
		return
	}
	w.Chart.Reset(n)
	w.initialized = true
}

// updateStyle converts the theme to pixels, the metric may change at any time.
func (w *ChartWidget) updateStyle(gtx layout.Context) {
	fontSizePx := float32(gtx.Sp(w.fontSize))
	gridWidth := float32(gtx.Dp(w.theme.GridWidth))
	x, y := w.Chart.XAxis(), w.Chart.YAxis()
	x.LabelFontSize, y.LabelFontSize = fontSizePx, fontSizePx
	x.GridWidth, y.GridWidth = gridWidth, gridWidth
	ls := w.Chart.LivePriceStyle()
	ls.FontSize = fontSizePx
	ls.LineWidth = float32(gtx.Dp(w.theme.QuoteLineWidth))
}

func (w *ChartWidget) layoutPlotArea(gtx layout.Context) image.Rectangle {
	marginMin := w.theme.AxesMarginMin.Dp(gtx)
	marginMax := w.theme.AxesMarginMax.Dp(gtx)
	// Keep room for the widest price label on the right.
	if w.Chart.LivePrice.HasValue() {
		labelWidth := w.Chart.LivePrice.LabelWidth(w.canvas, w.Chart.YAxis().LabelFontSize) + gtx.Dp(w.theme.TextMargin.X)*2 + gtx.Dp(10)
		if labelWidth > w.frame.labelMarginPx {
			w.frame.labelMarginPx = labelWidth
		}
	}
	if w.frame.labelMarginPx > marginMax.X {
		marginMax.X = w.frame.labelMarginPx
	}
	return plotArea(gtx.Constraints.Max, marginMin, marginMax)
}

// Layout draws the chart. The reference price is shown as live price if there are no candles.
func (w *ChartWidget) Layout(gtx layout.Context, reference float64) layout.Dimensions {
	size := gtx.Constraints.Max
	w.scheduler.RunFrame(gtx.Now)
	w.canvas.Begin(gtx)
	w.updateStyle(gtx)

	area := w.layoutPlotArea(gtx)
	w.frame.area = area
	w.Chart.SetPlotArea(area)
	w.handleInput(gtx)
	w.checkZoomComplete(gtx)

	animating := false
	if !area.Empty() && w.Initialized() {
		w.paintAxes(gtx, area)
		w.Chart.DrawGrid(w.canvas, area)
		candles := w.series.Candles()
		w.painter.Paint(gtx, candles, w.Chart.XScale, w.Chart.YScale, w.Chart.Viewport.CandleSpacing(candles), area)
		animating = w.Chart.DrawLivePrice(w.canvas, area, reference)
	}
	w.registerInputOps(gtx.Ops, area)
	if animating || w.scheduler.Pending() {
		gtx.Execute(op.InvalidateCmd{})
	}
	return layout.Dimensions{Size: size}
}

func (w *ChartWidget) paintAxes(gtx layout.Context, area image.Rectangle) {
	style := chartplot.LineStyle{Width: float32(gtx.Dp(1)), Color: w.theme.AxesColor}
	w.canvas.Line(f32.Pt(float32(area.Min.X), float32(area.Max.Y)), f32.Pt(float32(area.Max.X), float32(area.Max.Y)), style)
	w.canvas.Line(f32.Pt(float32(area.Max.X), float32(area.Min.Y)), f32.Pt(float32(area.Max.X), float32(area.Max.Y)), style)
}

func (w *ChartWidget) registerInputOps(ops *op.Ops, area image.Rectangle) {
	defer clip.Rect(area).Push(ops).Pop()
	event.Op(ops, w)
	if w.pointer.panning {
		pointer.CursorGrabbing.Add(ops)
	} else {
		pointer.CursorCrosshair.Add(ops)
	}
}

func (w *ChartWidget) handleInput(gtx layout.Context) {
	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  w,
			Kinds:   pointer.Press | pointer.Drag | pointer.Release | pointer.Cancel | pointer.Scroll,
			ScrollY: pointer.ScrollRange{Min: math.MinInt32, Max: math.MaxInt32},
		})
		if !ok {
			break
		}
		e, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		switch e.Kind {
		case pointer.Press:
			w.beginPan(e.Position)
		case pointer.Drag:
			w.pan(e.Position)
		case pointer.Release, pointer.Cancel:
			w.endPan()
		case pointer.Scroll:
			w.zoomBy(gtx, e.Scroll.Y, e.Position)
		}
	}
}

func (w *ChartWidget) beginPan(pos f32.Point) {
	if w.pointer.panning || !w.Initialized() {
		return
	}
	if !w.Chart.OnPanStart() {
		return
	}
	w.pointer.panning = true
	w.pointer.pressPos = pos
	w.pointer.pressWindow = w.Chart.Viewport.Window()
}

func (w *ChartWidget) pan(pos f32.Point) {
	if !w.pointer.panning || w.frame.area.Dx() <= 0 {
		return
	}
	msPerPx := w.pointer.pressWindow.Width() / float64(w.frame.area.Dx())
	dx := float64(pos.X - w.pointer.pressPos.X)
	w.Chart.OnPan(w.pointer.pressWindow.Shift(-dx * msPerPx))
}

func (w *ChartWidget) endPan() {
	if !w.pointer.panning {
		return
	}
	w.pointer.panning = false
	w.Chart.OnPanComplete()
}

// zoomBy changes the window width by one step per scroll event, keeping the time below the pointer.
func (w *ChartWidget) zoomBy(gtx layout.Context, scrollY float32, pos f32.Point) {
	if scrollY == 0 || !w.Initialized() {
		return
	}
	if !w.zoom.active {
		if !w.Chart.OnZoomStart() {
			return
		}
		w.zoom.active = true
	}
	current := w.Chart.Viewport.Window()
	factor := zoomInFactor
	if scrollY > 0 {
		factor = 1 / zoomInFactor
	}
	center := w.Chart.XScale.ValueForPixel(float64(pos.X))
	ratio := 0.5
	if current.Contains(center) {
		ratio = (center - current.Min) / current.Width()
	} else {
		center = current.Center()
	}
	newWidth := current.Width() * factor
	newMin := center - ratio*newWidth
	w.Chart.OnZoom(chartplot.Window{Min: newMin, Max: newMin + newWidth}, center)
	w.zoom.lastEvent = gtx.Now
	gtx.Execute(op.InvalidateCmd{At: gtx.Now.Add(zoomSettleDelay)})
}

func (w *ChartWidget) checkZoomComplete(gtx layout.Context) {
	if !w.zoom.active {
		return
	}
	settleTime := w.zoom.lastEvent.Add(zoomSettleDelay)
	if gtx.Now.Before(settleTime) {
		gtx.Execute(op.InvalidateCmd{At: settleTime})
		return
	}
	w.zoom.active = false
	w.Chart.OnZoomComplete()
}
