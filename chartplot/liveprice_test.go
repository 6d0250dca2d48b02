// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"coinchart/chartval"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLivePriceMicroMove(t *testing.T) {
	l := NewLivePrice()
	l.SetTarget(100)
	assert.Equal(t, 100.0, l.Displayed())
	l.SetTarget(100.0001)
	assert.False(t, l.Step())
	assert.Equal(t, 100.0001, l.Displayed())
}

func TestLivePriceConverges(t *testing.T) {
	l := NewLivePrice()
	l.SetTarget(100)
	l.SetTarget(105)
	assert.True(t, l.Step())
	assert.InDelta(t, 101.5, l.Displayed(), 1e-9)
	for i := 1; i < 10; i++ {
		l.Step()
		assert.LessOrEqual(t, l.Displayed(), 105.0)
	}
	assert.Less(t, 105-l.Displayed(), 0.15)

	frames := 10
	for ; frames < 100 && l.Step(); frames++ {
		assert.LessOrEqual(t, l.Displayed(), 105.0)
	}
	assert.Less(t, frames, 100)
	assert.Equal(t, 105.0, l.Displayed())
}

func TestLivePriceFalling(t *testing.T) {
	l := NewLivePrice()
	l.SetTarget(0.5)
	l.SetTarget(0.4)
	for i := 0; i < 200 && l.Step(); i++ {
		assert.GreaterOrEqual(t, l.Displayed(), 0.4)
	}
	assert.Equal(t, 0.4, l.Displayed())
}

func TestSmoothingFactor(t *testing.T) {
	assert.Equal(t, 0.15, smoothingFactor(0.00005))
	assert.Equal(t, 0.20, smoothingFactor(0.0005))
	assert.Equal(t, 0.30, smoothingFactor(0.05))
}

func TestLivePriceIgnoresInvalid(t *testing.T) {
	l := NewLivePrice()
	l.SetTarget(math.NaN())
	assert.False(t, l.HasValue())
	assert.False(t, l.Step())
	l.SetTargetFromCandles(nil, 42)
	assert.Equal(t, 42.0, l.Displayed())
	l.SetTarget(math.Inf(1))
	assert.Equal(t, 42.0, l.Target())
}

func TestLivePriceLabelWidth(t *testing.T) {
	c := &recordingCanvas{}
	l := NewLivePrice()
	l.SetTarget(65000)
	w := l.LabelWidth(c, 11)
	assert.Equal(t, c.MeasureText("888888.88", 11).X, w)
	// Fewer digits do not shrink the label.
	l.displayed = 9.5
	assert.Equal(t, w, l.LabelWidth(c, 11))
}

func TestLivePriceDraw(t *testing.T) {
	c := &recordingCanvas{}
	l := NewLivePrice()
	l.SetTargetFromCandles([]chartval.Candle{{Time: 0, Open: 99, High: 101, Low: 98, Close: 100}}, 0)
	style := LivePriceStyle{
		LineColor: color.NRGBA{A: 1},
		UpColor:   color.NRGBA{G: 255, A: 255},
		DownColor: color.NRGBA{R: 255, A: 255},
		FontSize:  11,
		LineWidth: 1,
		Dashes:    []float32{4, 4},
	}
	area := image.Rect(0, 0, 900, 500)
	require.NoError(t, l.Draw(c, area, newTestScale(90, 110, 500, 0), style))

	require.Len(t, c.lines, 2)
	assert.Equal(t, float32(250), c.lines[0].from.Y)
	assert.Equal(t, []float32{4, 4}, c.lines[0].style.Dashes)
	assert.True(t, c.lines[1].style.RoundCap)
	assert.Equal(t, style.UpColor, c.lines[1].style.Color)

	require.Len(t, c.texts, 1)
	assert.Equal(t, "100.00", c.texts[0].text)
	width := c.MeasureText("8888.88", 11).X
	// Right aligned within the fixed width.
	assert.Equal(t, area.Max.X+textMarginPx+width, c.texts[0].pos.X+c.MeasureText("100.00", 11).X)
}

func TestLivePriceDrawOutsideRange(t *testing.T) {
	c := &recordingCanvas{}
	l := NewLivePrice()
	l.SetTarget(200)
	require.NoError(t, l.Draw(c, image.Rect(0, 0, 900, 500), newTestScale(90, 110, 500, 0), LivePriceStyle{FontSize: 11}))
	assert.Empty(t, c.lines)
	assert.ErrorIs(t, NewLivePrice().Draw(c, image.Rect(0, 0, 900, 500), newTestScale(90, 110, 500, 0), LivePriceStyle{}), ErrNoCandles)
}
