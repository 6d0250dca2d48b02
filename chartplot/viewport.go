// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"coinchart/chartval"
	"fmt"
	"math"
)

// Note that this is not a generic plotting engine, it is specifically for candle charts.
// The X axis is always "time" in unix milliseconds.

const (
	DefaultPrefetchThresholdCandles = 20

	// Width limits of the visible window while a gesture is running, in candle spacings.
	minGestureCandles = 5
	maxGestureCandles = 800
	// Width limits after a zoom gesture has settled, in candle intervals.
	minSettledCandles = 5
	maxSettledCandles = 100

	// Padding above and below the visible prices, relative to the price range.
	priceRangePadding = 0.15
	// Relative padding used if all visible prices are equal.
	flatPricePadding = 0.001
)

// CandleSource provides the loaded candles, sorted ascending by time without duplicates.
type CandleSource interface {
	Candles() []chartval.Candle
}

// LoadingFlag is set by the viewport when history is requested.
// The owner of the history request clears it when loading is finished.
type LoadingFlag interface {
	Load() bool
	Store(bool)
}

// HistoryRequest asks for candles older than Oldest. Restore is the window
// which should be shown again after the candles have been merged.
type HistoryRequest struct {
	Oldest  int64
	Restore Window
}

type ViewportConfig struct {
	CandleIntervalMs         float64
	PrefetchThresholdCandles float64
	XScale                   Scale
	YScale                   Scale
	Source                   CandleSource
	Loading                  LoadingFlag
	Animator                 *Animator
	// OnHistoryRequest is called when the window gets close to the oldest candle.
	// It must not block.
	OnHistoryRequest func(HistoryRequest)
	// IsCapturing reports whether a drawing tool is using the pointer.
	IsCapturing func() bool
}

// Viewport owns the visible time window and keeps it within the loaded candles.
// All methods need to be called from the same goroutine.
type Viewport struct {
	ViewportConfig
	window        Window
	isPanning     bool
	isZooming     bool
	autoFollow    bool
	preGesture    Window
	preZoomWidth  float64
	zoomComplete  Window
	hasZoomResult bool
	prefetch      struct {
		armed      bool
		requested  bool
		lastOldest int64
	}
}

func NewViewport(cfg ViewportConfig) *Viewport {
	if cfg.PrefetchThresholdCandles <= 0 {
		cfg.PrefetchThresholdCandles = DefaultPrefetchThresholdCandles
	}
	v := &Viewport{
		ViewportConfig: cfg,
		autoFollow:     true,
	}
	v.prefetch.armed = true
	if cfg.XScale != nil {
		v.window = Window{Min: cfg.XScale.Min(), Max: cfg.XScale.Max()}
	}
	return v
}

func (v *Viewport) Window() Window {
	return v.window
}

func (v *Viewport) IsPanning() bool {
	return v.isPanning
}

func (v *Viewport) IsZooming() bool {
	return v.isZooming
}

func (v *Viewport) AutoFollow() bool {
	return v.autoFollow
}

func (v *Viewport) SetAutoFollow(follow bool) {
	v.autoFollow = follow
}

// PreGestureWindow returns the window at the start of the last gesture.
func (v *Viewport) PreGestureWindow() Window {
	return v.preGesture
}

func (v *Viewport) PreZoomWidth() float64 {
	return v.preZoomWidth
}

// CandleSpacing returns the time difference of the last two candles,
// or the nominal interval if there are not enough candles.
func (v *Viewport) CandleSpacing(candles []chartval.Candle) float64 {
	if n := len(candles); n >= 2 {
		if d := float64(candles[n-1].Time - candles[n-2].Time); d > 0 {
			return d
		}
	}
	return v.CandleIntervalMs
}

func (v *Viewport) PanStart() error {
	if err := v.beginGesture(); err != nil {
		return err
	}
	v.isPanning = true
	return nil
}

// Pan applies the window requested by the pointer movement.
func (v *Viewport) Pan(requested Window) error {
	candles, err := v.prepare(requested)
	if err != nil {
		return err
	}
	v.apply(v.clampEdges(requested, candles))
	v.checkPrefetch(candles)
	return nil
}

func (v *Viewport) PanEnd() error {
	v.isPanning = false
	candles, err := v.prepare(v.window)
	if err != nil {
		return err
	}
	v.apply(v.clampEdges(v.window, candles))
	v.checkPrefetch(candles)
	return v.FitY(true)
}

func (v *Viewport) ZoomStart() error {
	if err := v.beginGesture(); err != nil {
		return err
	}
	v.isZooming = true
	v.preZoomWidth = v.window.Width()
	return nil
}

// Zoom applies the window requested by a wheel or pinch gesture.
// center is the value below the pointer, it keeps its relative position.
func (v *Viewport) Zoom(requested Window, center float64) error {
	candles, err := v.prepare(requested)
	if err != nil {
		return err
	}
	spacing := v.CandleSpacing(candles)
	w := clampWidth(requested, center, minGestureCandles*spacing, maxGestureCandles*spacing)
	v.apply(v.clampEdges(w, candles))
	v.checkPrefetch(candles)
	return v.FitY(true)
}

// ZoomComplete settles the window after a zoom gesture.
// Repeated calls without changes in between are ignored.
func (v *Viewport) ZoomComplete() error {
	v.isZooming = false
	if v.hasZoomResult && v.window.Round() == v.zoomComplete {
		return nil
	}
	candles, err := v.prepare(v.window)
	if err != nil {
		return err
	}
	w := clampWidth(v.window, v.window.Center(), minSettledCandles*v.CandleIntervalMs, maxSettledCandles*v.CandleIntervalMs)
	v.apply(v.clampEdges(w, candles))
	v.zoomComplete = v.window.Round()
	v.hasZoomResult = true
	v.checkPrefetch(candles)
	return v.FitY(true)
}

// Reset shows the latest n candles and fits the price axis without animation.
func (v *Viewport) Reset(n int) error {
	if v.XScale == nil {
		return ErrNoScale
	}
	candles := v.candles()
	if len(candles) == 0 {
		return ErrNoCandles
	}
	spacing := v.CandleSpacing(candles)
	n = chartval.Clamp(n, minSettledCandles, maxSettledCandles)
	right := float64(candles[len(candles)-1].Time) + 0.5*spacing
	v.apply(v.clampEdges(Window{Min: right - float64(n)*spacing, Max: right}, candles))
	v.autoFollow = true
	v.hasZoomResult = false
	return v.FitY(false)
}

// Restore shows the given window again, usually after history was merged.
func (v *Viewport) Restore(w Window) error {
	candles, err := v.prepare(w)
	if err != nil {
		return err
	}
	v.apply(v.clampEdges(w, candles))
	v.checkPrefetch(candles)
	return v.FitY(true)
}

// Update is called when new candles were merged. If auto-follow is active,
// the window is moved so that the newest candle stays visible.
func (v *Viewport) Update() error {
	if v.isPanning || v.isZooming {
		return nil
	}
	candles, err := v.prepare(v.window)
	if err != nil {
		return err
	}
	if !v.autoFollow {
		return nil
	}
	right := float64(candles[len(candles)-1].Time) + 0.5*v.CandleSpacing(candles)
	if v.window.Max >= right {
		return nil
	}
	v.apply(v.clampEdges(v.window.Shift(right-v.window.Max), candles))
	return v.FitY(true)
}

// FitY sets the price range to the visible candles plus some padding.
// If no candle is visible, the price range is left unchanged.
func (v *Viewport) FitY(animate bool) error {
	if v.YScale == nil {
		return ErrNoScale
	}
	low, high, ok := chartval.CandleList(v.candles()).PriceRange(v.window.Min, v.window.Max)
	if !ok {
		return ErrNoCandles
	}
	target := paddedPriceRange(low, high)
	if err := target.check(); err != nil {
		return err
	}
	if animate && v.Animator != nil {
		return v.Animator.Animate(target)
	}
	if v.Animator != nil {
		v.Animator.Cancel()
	}
	v.YScale.SetRange(target.Min, target.Max)
	return nil
}

func (v *Viewport) beginGesture() error {
	if v.IsCapturing != nil && v.IsCapturing() {
		return ErrGestureCaptured
	}
	if v.XScale == nil {
		return ErrNoScale
	}
	v.preGesture = v.window
	v.autoFollow = false
	return nil
}

func (v *Viewport) candles() []chartval.Candle {
	if v.Source == nil {
		return nil
	}
	return v.Source.Candles()
}

func (v *Viewport) prepare(w Window) ([]chartval.Candle, error) {
	if v.XScale == nil {
		return nil, ErrNoScale
	}
	if err := w.check(); err != nil {
		return nil, err
	}
	candles := v.candles()
	if len(candles) == 0 {
		return nil, ErrNoCandles
	}
	return candles, nil
}

func (v *Viewport) apply(w Window) {
	v.window = w
	v.XScale.SetRange(w.Min, w.Max)
}

// clampEdges keeps the window within half a candle spacing around the loaded candles.
// Hitting the right edge keeps the width, the left edge is a plain limit which
// never narrows the window below the gesture minimum.
func (v *Viewport) clampEdges(w Window, candles []chartval.Candle) Window {
	spacing := v.CandleSpacing(candles)
	rightEdge := float64(candles[len(candles)-1].Time) + 0.5*spacing
	if w.Max > rightEdge {
		w = w.Shift(rightEdge - w.Max)
	}
	leftEdge := float64(candles[0].Time) - 0.5*spacing
	if w.Min < leftEdge {
		clamped := Window{Min: leftEdge, Max: w.Max}
		if !clamped.Valid() {
			// The whole window is left of the data.
			clamped = w.Shift(leftEdge - w.Min)
		}
		if minWidth := minGestureCandles * spacing; clamped.Width() < minWidth {
			clamped.Max = clamped.Min + minWidth
		}
		w = clamped
	}
	return w
}

// clampWidth limits the window width, keeping the relative position of center.
func clampWidth(w Window, center, minWidth, maxWidth float64) Window {
	width := w.Width()
	newWidth := chartval.Clamp(width, minWidth, maxWidth)
	if newWidth == width {
		return w
	}
	ratio := 0.5
	if chartval.IsFinite(center) && w.Contains(center) {
		ratio = (center - w.Min) / width
	} else {
		center = w.Center()
	}
	newMin := center - newWidth*ratio
	return Window{Min: newMin, Max: newMin + newWidth}
}

func (v *Viewport) checkPrefetch(candles []chartval.Candle) {
	oldest := candles[0].Time
	threshold := v.PrefetchThresholdCandles * v.CandleIntervalMs
	if v.window.Min-float64(oldest) > threshold {
		// Leaving the threshold band allows the next request.
		v.prefetch.armed = true
		return
	}
	if v.OnHistoryRequest == nil || v.Loading == nil || v.Loading.Load() {
		return
	}
	// Without new history since the last request, only request again after
	// the window has left the threshold band.
	if !v.prefetch.armed && v.prefetch.requested && v.prefetch.lastOldest == oldest {
		return
	}
	v.Loading.Store(true)
	v.prefetch.armed = false
	v.prefetch.requested = true
	v.prefetch.lastOldest = oldest
	v.OnHistoryRequest(HistoryRequest{Oldest: oldest, Restore: v.window})
}

func paddedPriceRange(low, high float64) Window {
	priceRange := high - low
	pad := priceRange * priceRangePadding
	if priceRange <= chartval.NearZero*math.Max(1, math.Abs(high)) {
		pad = math.Max(math.Abs(high)*flatPricePadding, chartval.NearZero)
	}
	return Window{Min: low - pad, Max: high + pad}
}

func (v *Viewport) String() string {
	return fmt.Sprintf("viewport %v panning=%t zooming=%t follow=%t", v.window, v.isPanning, v.isZooming, v.autoFollow)
}
