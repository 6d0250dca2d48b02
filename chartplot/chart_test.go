// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"bytes"
	"coinchart/chartval"
	"image"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panicSource struct{}

func (panicSource) Candles() []chartval.Candle {
	panic("broken source")
}

func newTestChart(source CandleSource, logs *bytes.Buffer) *Chart {
	c := NewChart(ChartConfig{
		CandleIntervalMs: testInterval,
		Source:           source,
		Loading:          &loadingFlag{},
		Scheduler:        newManualScheduler(),
		XAxis:            AxisOptions{ShowGrid: true, GridWidth: 1, LabelFontSize: 11},
		YAxis:            AxisOptions{ShowGrid: true, GridWidth: 1, LabelFontSize: 11},
		LivePrice:        LivePriceStyle{FontSize: 11, LineWidth: 1},
		Logger:           zerolog.New(logs).Level(zerolog.DebugLevel),
	})
	c.SetPlotArea(image.Rect(0, 0, 900, 500))
	return c
}

func TestChartSwallowsErrors(t *testing.T) {
	var logs bytes.Buffer
	c := newTestChart(&sliceSource{}, &logs)
	assert.True(t, c.OnPanStart())
	assert.True(t, c.OnPan(Window{Min: 0, Max: 1e6}))
	assert.True(t, c.OnPanComplete())
	assert.Contains(t, logs.String(), "skipped")
	assert.Contains(t, logs.String(), ErrNoCandles.Error())

	logs.Reset()
	assert.True(t, c.OnZoom(Window{Min: 1, Max: 0}, 0))
	assert.Contains(t, logs.String(), "handler failed")
}

func TestChartRecoversPanic(t *testing.T) {
	var logs bytes.Buffer
	c := newTestChart(panicSource{}, &logs)
	assert.NotPanics(t, func() {
		assert.True(t, c.OnPan(Window{Min: 0, Max: 1e6}))
		c.DrawLivePrice(&recordingCanvas{}, image.Rect(0, 0, 900, 500), 0)
	})
	assert.Contains(t, logs.String(), "recovered from panic")
}

func TestChartRejectsCapturedGesture(t *testing.T) {
	var logs bytes.Buffer
	c := newTestChart(&sliceSource{candles: newTestCandles(10)}, &logs)
	c.Viewport.IsCapturing = func() bool { return true }
	assert.False(t, c.OnPanStart())
	assert.False(t, c.OnZoomStart())
}

func TestChartDraw(t *testing.T) {
	var logs bytes.Buffer
	c := newTestChart(&sliceSource{candles: newTestCandles(200)}, &logs)
	c.Reset(20)
	assert.Equal(t, 20.0*testInterval, c.Viewport.Window().Width())

	canvas := &recordingCanvas{}
	area := image.Rect(0, 0, 900, 500)
	c.DrawGrid(canvas, area)
	assert.NotEmpty(t, canvas.lines)
	assert.Equal(t, float64(300000), c.Grid.Spacing())

	canvas = &recordingCanvas{}
	assert.False(t, c.DrawLivePrice(canvas, area, 0))
	require.NotEmpty(t, canvas.texts)
	assert.Equal(t, "100.00", canvas.texts[len(canvas.texts)-1].text)
	assert.Empty(t, logs.String())
}

func TestChartAxisOptions(t *testing.T) {
	var logs bytes.Buffer
	c := newTestChart(&sliceSource{}, &logs)
	c.XAxis().ShowGrid = false
	assert.False(t, c.Grid.XAxis.ShowGrid)
	assert.True(t, c.YAxis().ShowGrid)
}
