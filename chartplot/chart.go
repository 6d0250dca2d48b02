// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"coinchart/chartval"
	"errors"
	"image"

	"github.com/rs/zerolog"
)

type ChartConfig struct {
	CandleIntervalMs         float64
	PrefetchThresholdCandles float64
	Source                   CandleSource
	Loading                  LoadingFlag
	Scheduler                FrameScheduler
	OnHistoryRequest         func(HistoryRequest)
	IsCapturing              func() bool
	XAxis                    AxisOptions
	YAxis                    AxisOptions
	LivePrice                LivePriceStyle
	Logger                   zerolog.Logger
}

// Chart connects the engine to the host's drawing and event loop.
// Errors and panics do not leave its handlers, they are logged instead.
type Chart struct {
	XScale    *LinearScale
	YScale    *LinearScale
	Viewport  *Viewport
	Animator  *Animator
	Grid      *GridRenderer
	LivePrice *LivePrice
	style     LivePriceStyle
	interval  float64
	logger    zerolog.Logger
}

func NewChart(cfg ChartConfig) *Chart {
	xScale := NewLinearScale(DefaultTickSpacingPx)
	yScale := NewLinearScale(DefaultTickSpacingPx)
	animator := NewAnimator(yScale, cfg.Scheduler)
	return &Chart{
		XScale: xScale,
		YScale: yScale,
		Viewport: NewViewport(ViewportConfig{
			CandleIntervalMs:         cfg.CandleIntervalMs,
			PrefetchThresholdCandles: cfg.PrefetchThresholdCandles,
			XScale:                   xScale,
			YScale:                   yScale,
			Source:                   cfg.Source,
			Loading:                  cfg.Loading,
			Animator:                 animator,
			OnHistoryRequest:         cfg.OnHistoryRequest,
			IsCapturing:              cfg.IsCapturing,
		}),
		Animator:  animator,
		Grid:      NewGridRenderer(cfg.XAxis, cfg.YAxis),
		LivePrice: NewLivePrice(),
		style:     cfg.LivePrice,
		interval:  cfg.CandleIntervalMs,
		logger:    cfg.Logger,
	}
}

func (c *Chart) XAxis() *AxisOptions {
	return &c.Grid.XAxis
}

func (c *Chart) YAxis() *AxisOptions {
	return &c.Grid.YAxis
}

// LivePriceStyle returns the style of the live price line, which may be changed between frames.
func (c *Chart) LivePriceStyle() *LivePriceStyle {
	return &c.style
}

// SetPlotArea updates the pixel spans of both scales. Call whenever the layout changes.
func (c *Chart) SetPlotArea(area image.Rectangle) {
	c.XScale.SetPixelRange(float64(area.Min.X), float64(area.Max.X))
	c.YScale.SetPixelRange(float64(area.Max.Y), float64(area.Min.Y))
}

// OnPanStart returns false if the gesture should not be handled as pan.
func (c *Chart) OnPanStart() bool {
	return c.guard("pan start", c.Viewport.PanStart)
}

func (c *Chart) OnPan(requested Window) bool {
	return c.guard("pan", func() error { return c.Viewport.Pan(requested) })
}

func (c *Chart) OnPanComplete() bool {
	return c.guard("pan complete", c.Viewport.PanEnd)
}

func (c *Chart) OnZoomStart() bool {
	return c.guard("zoom start", c.Viewport.ZoomStart)
}

func (c *Chart) OnZoom(requested Window, center float64) bool {
	return c.guard("zoom", func() error { return c.Viewport.Zoom(requested, center) })
}

func (c *Chart) OnZoomComplete() bool {
	return c.guard("zoom complete", c.Viewport.ZoomComplete)
}

// OnCandlesChanged is called after candles were merged into the source.
func (c *Chart) OnCandlesChanged() {
	c.guard("candles changed", c.Viewport.Update)
}

func (c *Chart) Reset(visibleCandles int) {
	c.guard("reset", func() error { return c.Viewport.Reset(visibleCandles) })
}

func (c *Chart) Restore(w Window) {
	c.guard("restore", func() error { return c.Viewport.Restore(w) })
}

func (c *Chart) FollowLatest() {
	c.Viewport.SetAutoFollow(true)
	c.OnCandlesChanged()
}

// DrawGrid is invoked once per frame before the host paints the candles.
func (c *Chart) DrawGrid(canvas Canvas, area image.Rectangle) {
	c.guard("draw grid", func() error {
		return c.Grid.Draw(canvas, area, c.XScale, c.YScale, c.interval)
	})
}

// DrawLivePrice is invoked once per frame after the candles were painted.
// It returns whether another frame is needed for the displayed price to settle.
func (c *Chart) DrawLivePrice(canvas Canvas, area image.Rectangle, reference float64) (animating bool) {
	c.guard("draw live price", func() error {
		var candles []chartval.Candle
		if c.Viewport.Source != nil {
			candles = c.Viewport.Source.Candles()
		}
		c.LivePrice.SetTargetFromCandles(candles, reference)
		animating = c.LivePrice.Step()
		return c.LivePrice.Draw(canvas, area, c.YScale, c.style)
	})
	return
}

// guard runs a handler and converts its outcome into the boolean expected by the dispatcher.
// Only a captured gesture is rejected, all other failures are logged and reported as handled.
func (c *Chart) guard(name string, fn func() error) (handled bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn().Str("handler", name).Interface("panic", r).Msg("recovered from panic")
			handled = true
		}
	}()
	err := fn()
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrGestureCaptured):
		c.logger.Debug().Str("handler", name).Err(err).Msg("gesture rejected")
		return false
	case isExpected(err):
		c.logger.Debug().Str("handler", name).Err(err).Msg("skipped")
		return true
	default:
		c.logger.Warn().Str("handler", name).Err(err).Msg("handler failed")
		return true
	}
}
