// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"coinchart/chartval"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testViewport struct {
	*Viewport
	source    *sliceSource
	loading   *loadingFlag
	scheduler *manualScheduler
	requests  []HistoryRequest
}

func newTestViewport(n int) *testViewport {
	tv := &testViewport{
		source:    &sliceSource{candles: newTestCandles(n)},
		loading:   &loadingFlag{},
		scheduler: newManualScheduler(),
	}
	xScale := newTestScale(0, 1, 0, 900)
	yScale := newTestScale(0, 1, 500, 0)
	tv.Viewport = NewViewport(ViewportConfig{
		CandleIntervalMs: testInterval,
		XScale:           xScale,
		YScale:           yScale,
		Source:           tv.source,
		Loading:          tv.loading,
		Animator:         NewAnimator(yScale, tv.scheduler),
		OnHistoryRequest: func(r HistoryRequest) {
			tv.requests = append(tv.requests, r)
		},
	})
	return tv
}

// right clamp edge of n test candles
func rightEdge(n int) float64 {
	return float64(n-1)*testInterval + 0.5*testInterval
}

func TestResetShowsLatestCandles(t *testing.T) {
	v := newTestViewport(200)
	require.NoError(t, v.Reset(50))
	assert.Equal(t, Window{Min: rightEdge(200) - 50*testInterval, Max: rightEdge(200)}, v.Window())
	assert.Equal(t, v.Window().Min, v.XScale.Min())
	assert.Equal(t, v.Window().Max, v.XScale.Max())
	assert.InDelta(t, 98.7, v.YScale.Min(), 1e-9)
	assert.InDelta(t, 101.3, v.YScale.Max(), 1e-9)
	assert.False(t, v.Animator.Active())
	assert.True(t, v.AutoFollow())
}

func TestPanRightKeepsWidth(t *testing.T) {
	v := newTestViewport(200)
	require.NoError(t, v.Reset(50))
	require.NoError(t, v.PanStart())
	assert.True(t, v.IsPanning())
	assert.False(t, v.AutoFollow())

	before := v.Window()
	require.NoError(t, v.Pan(before.Shift(-120000)))
	for i := 0; i < 10; i++ {
		w := v.Window()
		require.NoError(t, v.Pan(w.Shift(50000)))
		assert.LessOrEqual(t, v.Window().Max, rightEdge(200))
		assert.InDelta(t, before.Width(), v.Window().Width(), 1)
	}
	assert.Equal(t, rightEdge(200), v.Window().Max)
	require.NoError(t, v.PanEnd())
	assert.False(t, v.IsPanning())
	assert.Equal(t, before, v.PreGestureWindow())
}

func TestPanLeftClamp(t *testing.T) {
	v := newTestViewport(200)
	require.NoError(t, v.Reset(50))
	require.NoError(t, v.PanStart())
	require.NoError(t, v.Pan(Window{Min: -1e6, Max: 2e6}))
	// A wide window is cut at the left edge.
	assert.Equal(t, Window{Min: -0.5 * testInterval, Max: 2e6}, v.Window())

	// Near the oldest candle, more history is requested.
	require.Len(t, v.requests, 1)
	assert.Equal(t, int64(0), v.requests[0].Oldest)
	assert.Equal(t, v.Window(), v.requests[0].Restore)
	assert.True(t, v.loading.Load())
}

func TestLeftClampKeepsMinWidth(t *testing.T) {
	v := newTestViewport(200)
	require.NoError(t, v.Reset(50))
	press := v.Window()
	require.NoError(t, v.PanStart())
	// Dragging further than the loaded data, while the pointer is still pressed.
	for _, candles := range []float64{150, 190, 230, 199.4} {
		require.NoError(t, v.Pan(press.Shift(-candles*testInterval)))
		assert.Equal(t, -0.5*testInterval, v.Window().Min)
		assert.GreaterOrEqual(t, v.Window().Width(), minGestureCandles*testInterval-1e-6)
	}
	assert.Equal(t, Window{Min: -0.5 * testInterval, Max: 4.5 * testInterval}, v.Window())
	require.NoError(t, v.PanEnd())
	assert.Equal(t, Window{Min: -0.5 * testInterval, Max: 4.5 * testInterval}, v.Window())

	require.NoError(t, v.ZoomStart())
	require.NoError(t, v.Zoom(Window{Min: -4 * testInterval, Max: testInterval}, -1.5*testInterval))
	assert.Equal(t, Window{Min: -0.5 * testInterval, Max: 4.5 * testInterval}, v.Window())
	require.NoError(t, v.ZoomComplete())
	assert.InDelta(t, 5.0*testInterval, v.Window().Width(), 1e-6)
}

func TestPanEndFitsY(t *testing.T) {
	v := newTestViewport(200)
	require.NoError(t, v.Reset(50))
	v.source.candles[120].High = 200
	require.NoError(t, v.PanStart())
	require.NoError(t, v.Pan(Window{Min: 100 * testInterval, Max: 150 * testInterval}))
	require.NoError(t, v.PanEnd())
	assert.True(t, v.Animator.Active())
	v.scheduler.advance(DefaultAnimationDuration)
	assert.False(t, v.Animator.Active())
	assert.InDelta(t, 99-101*0.15, v.YScale.Min(), 1e-9)
	assert.InDelta(t, 200+101*0.15, v.YScale.Max(), 1e-9)
}

func TestZoomClampsMinWidth(t *testing.T) {
	v := newTestViewport(200)
	require.NoError(t, v.Reset(50))
	require.NoError(t, v.ZoomStart())
	assert.True(t, v.IsZooming())
	assert.Equal(t, 50.0*testInterval, v.PreZoomWidth())

	// Three candles are requested, five is the limit.
	require.NoError(t, v.Zoom(Window{Min: 6e6 - 1.5*testInterval, Max: 6e6 + 1.5*testInterval}, 6e6))
	assert.Equal(t, 5.0*testInterval, v.Window().Width())
	assert.Equal(t, Window{Min: 6e6 - 2.5*testInterval, Max: 6e6 + 2.5*testInterval}, v.Window())
}

func TestZoomKeepsPointerPosition(t *testing.T) {
	v := newTestViewport(200)
	require.NoError(t, v.Reset(50))
	require.NoError(t, v.ZoomStart())
	// Pointer at a quarter of the requested window.
	require.NoError(t, v.Zoom(Window{Min: 6e6, Max: 6e6 + 4*testInterval}, 6e6+testInterval))
	assert.InDelta(t, 6e6+testInterval-1.25*testInterval, v.Window().Min, 1e-6)
	assert.InDelta(t, 5.0*testInterval, v.Window().Width(), 1e-6)
}

func TestZoomClampsMaxWidth(t *testing.T) {
	v := newTestViewport(1000)
	require.NoError(t, v.Reset(50))
	require.NoError(t, v.ZoomStart())
	require.NoError(t, v.Zoom(Window{Min: 0, Max: 60e6}, 30e6))
	assert.Equal(t, Window{Min: 6e6, Max: 54e6}, v.Window())
	assert.Empty(t, v.requests)
}

func TestZoomWidthWithinGestureLimits(t *testing.T) {
	v := newTestViewport(1000)
	require.NoError(t, v.Reset(50))
	require.NoError(t, v.ZoomStart())
	for _, f := range []float64{0.5, 0.1, 0.01, 3, 10, 100, 0.2, 1000, 0.001} {
		w := v.Window()
		c := w.Center()
		require.NoError(t, v.Zoom(Window{Min: c - w.Width()*f/2, Max: c + w.Width()*f/2}, c))
		assert.GreaterOrEqual(t, v.Window().Width(), minGestureCandles*testInterval-1e-6)
		assert.LessOrEqual(t, v.Window().Width(), maxGestureCandles*testInterval+1e-6)
		assert.LessOrEqual(t, v.Window().Max, rightEdge(1000))
	}
}

func TestZoomCompleteSettles(t *testing.T) {
	v := newTestViewport(1000)
	require.NoError(t, v.Reset(50))
	require.NoError(t, v.ZoomStart())
	// 300 candles are fine during the gesture.
	require.NoError(t, v.Zoom(Window{Min: 21e6, Max: 39e6}, 30e6))
	assert.Equal(t, Window{Min: 21e6, Max: 39e6}, v.Window())

	require.NoError(t, v.ZoomComplete())
	assert.False(t, v.IsZooming())
	assert.Equal(t, Window{Min: 27e6, Max: 33e6}, v.Window())
	assert.True(t, v.Animator.Active())
	v.scheduler.advance(time.Second)
	assert.False(t, v.Animator.Active())

	// Duplicate completion events are ignored.
	require.NoError(t, v.ZoomComplete())
	assert.Equal(t, Window{Min: 27e6, Max: 33e6}, v.Window())
	assert.False(t, v.Animator.Active())
}

func TestZoomCompleteIgnoresGapsInSpacing(t *testing.T) {
	v := newTestViewport(1000)
	// The last candle is two intervals after the previous one.
	v.source.candles[999].Time += testInterval
	require.NoError(t, v.Reset(50))
	require.NoError(t, v.ZoomStart())
	require.NoError(t, v.Zoom(Window{Min: 10e6, Max: 50e6}, 30e6))
	// 800 candle spacings are allowed during the gesture.
	assert.Equal(t, 40e6, v.Window().Width())
	require.NoError(t, v.ZoomComplete())
	// 100 nominal intervals after settling.
	assert.Equal(t, 100.0*testInterval, v.Window().Width())
}

func TestPrefetchOncePerCrossing(t *testing.T) {
	v := newTestViewport(200)
	require.NoError(t, v.Reset(50))
	assert.Empty(t, v.requests)
	require.NoError(t, v.PanStart())

	require.NoError(t, v.Pan(Window{Min: 600000, Max: 3.6e6}))
	require.Len(t, v.requests, 1)
	assert.Equal(t, Window{Min: 600000, Max: 3.6e6}, v.requests[0].Restore)
	assert.True(t, v.loading.Load())

	// Still loading.
	require.NoError(t, v.Pan(Window{Min: 540000, Max: 3.54e6}))
	assert.Len(t, v.requests, 1)

	// Loading finished without new candles, the window did not leave the threshold band.
	v.loading.Store(false)
	require.NoError(t, v.Pan(Window{Min: 480000, Max: 3.48e6}))
	assert.Len(t, v.requests, 1)

	// Leave and re-enter.
	require.NoError(t, v.Pan(Window{Min: 3e6, Max: 6e6}))
	assert.Len(t, v.requests, 1)
	require.NoError(t, v.Pan(Window{Min: 600000, Max: 3.6e6}))
	assert.Len(t, v.requests, 2)
}

func TestPrefetchAfterHistoryMerged(t *testing.T) {
	v := newTestViewport(200)
	require.NoError(t, v.Reset(50))
	require.NoError(t, v.PanStart())
	require.NoError(t, v.Pan(Window{Min: 600000, Max: 3.6e6}))
	require.Len(t, v.requests, 1)

	// Only a few older candles arrived, the window is still close to the oldest one.
	older := newTestCandles(5)
	for i := range older {
		older[i].Time -= 5 * testInterval
	}
	v.source.candles = append(older, v.source.candles...)
	v.loading.Store(false)
	require.NoError(t, v.Restore(v.requests[0].Restore))
	require.Len(t, v.requests, 2)
	assert.Equal(t, int64(-5*testInterval), v.requests[1].Oldest)
	assert.Equal(t, Window{Min: 600000, Max: 3.6e6}, v.Window())
}

func TestPrefetchDuringZoom(t *testing.T) {
	v := newTestViewport(200)
	require.NoError(t, v.Reset(50))
	require.NoError(t, v.ZoomStart())
	for i := 0; i < 5; i++ {
		w := v.Window()
		require.NoError(t, v.Zoom(Window{Min: w.Min - 2e6, Max: w.Max}, w.Max))
	}
	assert.Len(t, v.requests, 1)
}

func TestGestureCaptured(t *testing.T) {
	v := newTestViewport(200)
	require.NoError(t, v.Reset(50))
	v.IsCapturing = func() bool { return true }
	assert.ErrorIs(t, v.PanStart(), ErrGestureCaptured)
	assert.ErrorIs(t, v.ZoomStart(), ErrGestureCaptured)
	assert.False(t, v.IsPanning())
	assert.False(t, v.IsZooming())
	assert.True(t, v.AutoFollow())
}

func TestNoCandles(t *testing.T) {
	v := newTestViewport(0)
	assert.ErrorIs(t, v.Reset(50), ErrNoCandles)
	assert.ErrorIs(t, v.Pan(Window{Min: 0, Max: 1e6}), ErrNoCandles)
	assert.ErrorIs(t, v.Zoom(Window{Min: 0, Max: 1e6}, 5e5), ErrNoCandles)
	assert.ErrorIs(t, v.FitY(true), ErrNoCandles)
	assert.Equal(t, Window{Min: 0, Max: 1}, v.Window())
	assert.Equal(t, 0.0, v.YScale.Min())
	assert.Equal(t, 1.0, v.YScale.Max())
}

func TestInvalidRequestedWindow(t *testing.T) {
	v := newTestViewport(200)
	require.NoError(t, v.Reset(50))
	before := v.Window()
	assert.ErrorIs(t, v.Pan(Window{Min: math.NaN(), Max: 1}), ErrNotFinite)
	assert.ErrorIs(t, v.Zoom(Window{Min: 5, Max: 1}, 3), ErrInvalidWindow)
	assert.ErrorIs(t, v.Restore(Window{Min: 0, Max: math.Inf(1)}), ErrNotFinite)
	assert.Equal(t, before, v.Window())
}

func TestFitYWithoutVisibleCandles(t *testing.T) {
	v := newTestViewport(200)
	require.NoError(t, v.Reset(50))
	v.window = Window{Min: 1e9, Max: 1e9 + 1}
	assert.ErrorIs(t, v.FitY(true), ErrNoCandles)
	assert.InDelta(t, 98.7, v.YScale.Min(), 1e-9)
	assert.False(t, v.Animator.Active())
}

func TestFitYFlatPrices(t *testing.T) {
	v := newTestViewport(0)
	v.source.candles = []chartval.Candle{{Time: 0, Open: 100, High: 100, Low: 100, Close: 100}}
	require.NoError(t, v.Reset(10))
	assert.InDelta(t, 99.9, v.YScale.Min(), 1e-9)
	assert.InDelta(t, 100.1, v.YScale.Max(), 1e-9)
}

func TestAutoFollow(t *testing.T) {
	v := newTestViewport(200)
	require.NoError(t, v.Reset(50))
	width := v.Window().Width()

	v.source.candles = append(v.source.candles, chartval.Candle{Time: 200 * testInterval, Open: 100, High: 101, Low: 99, Close: 100})
	require.NoError(t, v.Update())
	assert.Equal(t, rightEdge(201), v.Window().Max)
	assert.Equal(t, width, v.Window().Width())

	// Panning stops following.
	require.NoError(t, v.PanStart())
	require.NoError(t, v.PanEnd())
	v.source.candles = append(v.source.candles, chartval.Candle{Time: 201 * testInterval, Open: 100, High: 101, Low: 99, Close: 100})
	require.NoError(t, v.Update())
	assert.Equal(t, rightEdge(201), v.Window().Max)

	v.SetAutoFollow(true)
	require.NoError(t, v.Update())
	assert.Equal(t, rightEdge(202), v.Window().Max)
}

func TestRestore(t *testing.T) {
	v := newTestViewport(200)
	require.NoError(t, v.Reset(50))
	require.NoError(t, v.Restore(Window{Min: 6e6, Max: 9e6}))
	assert.Equal(t, Window{Min: 6e6, Max: 9e6}, v.Window())
	assert.Equal(t, 6e6, v.XScale.Min())
}
