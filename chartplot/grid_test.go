// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGrid() *GridRenderer {
	return NewGridRenderer(
		AxisOptions{ShowGrid: true, GridWidth: 1, LabelFontSize: 11},
		AxisOptions{ShowGrid: true, GridWidth: 1, LabelFontSize: 11},
	)
}

func newTestScale(min, max, pxFrom, pxTo float64) *LinearScale {
	s := NewLinearScale(DefaultTickSpacingPx)
	s.SetRange(min, max)
	s.SetPixelRange(pxFrom, pxTo)
	return s
}

func TestGridTicks(t *testing.T) {
	g := newTestGrid()
	ticks := g.Ticks(newTestScale(1000, 10000, 0, 900), 3000)
	times := make([]float64, len(ticks))
	for i, tick := range ticks {
		times[i] = tick.Time
	}
	assert.Equal(t, []float64{0, 3000, 6000, 9000, 12000}, times)
	assert.InDelta(t, 200.0, ticks[1].X, 1e-9)
}

func TestGridTicksMultiples(t *testing.T) {
	g := newTestGrid()
	for _, w := range []Window{{Min: 3000, Max: 9000}, {Min: -4500, Max: 100}, {Min: 1710413100000, Max: 1710414300000}} {
		for _, spacing := range []float64{1000, 3000, 60000} {
			ticks := g.Ticks(newTestScale(w.Min, w.Max, 0, 900), spacing)
			require.NotEmpty(t, ticks)
			for i, tick := range ticks {
				assert.Zero(t, math.Mod(tick.Time, spacing))
				assert.GreaterOrEqual(t, tick.Time, w.Min-spacing)
				assert.LessOrEqual(t, tick.Time, w.Max+spacing)
				if i > 0 {
					assert.Equal(t, spacing, tick.Time-ticks[i-1].Time)
					assert.Greater(t, tick.X, ticks[i-1].X)
				}
			}
			// No multiple within the range is missing at either end.
			assert.Less(t, ticks[0].Time-spacing, w.Min-spacing)
			assert.Greater(t, ticks[len(ticks)-1].Time+spacing, w.Max+spacing)
		}
	}
}

func TestGridTicksLimit(t *testing.T) {
	g := newTestGrid()
	ticks := g.Ticks(newTestScale(0, 1e9, 0, 900), 1)
	assert.Len(t, ticks, maxGridSteps)
}

func TestPlaceLabelsNoOverlap(t *testing.T) {
	g := newTestGrid()
	c := &recordingCanvas{}
	area := image.Rect(0, 0, 900, 500)
	for _, fontSize := range []float32{8, 11, 14, 20, 32} {
		for _, spacing := range []float64{testInterval, 5 * testInterval, msHour, msDay} {
			ticks := g.Ticks(newTestScale(0, 100*spacing, 0, 900), spacing)
			labels := g.PlaceLabels(c, ticks, area, spacing, fontSize)
			require.NotEmpty(t, labels)
			for i := 1; i < len(labels); i++ {
				assert.GreaterOrEqual(t, labels[i].Left, labels[i-1].Right)
				assert.NotEqual(t, labels[i].Text, labels[i-1].Text)
			}
			assert.LessOrEqual(t, float64(len(labels)), math.Max(1, math.Floor(900/MinLabelDistance(float64(fontSize))))+1)
		}
	}
}

func TestPlaceLabelsSkipsDuplicates(t *testing.T) {
	g := newTestGrid()
	c := &recordingCanvas{}
	ticks := []GridTick{
		{X: 0, Time: 1704067200000},   // 2024-01-01
		{X: 300, Time: 1705276800000}, // 2024-01-15
		{X: 600, Time: 1706745600000}, // 2024-02-01
	}
	labels := g.PlaceLabels(c, ticks, image.Rect(0, 0, 900, 500), 30*msDay, 11)
	require.Len(t, labels, 2)
	assert.Equal(t, "01/24", labels[0].Text)
	assert.Equal(t, "02/24", labels[1].Text)
}

func TestPlaceLabelsOutsideArea(t *testing.T) {
	g := newTestGrid()
	c := &recordingCanvas{}
	ticks := []GridTick{{X: -3, Time: 0}, {X: -2, Time: 60000}, {X: 450, Time: 120000}, {X: 903, Time: 180000}}
	labels := g.PlaceLabels(c, ticks, image.Rect(0, 0, 900, 500), testInterval, 11)
	require.Len(t, labels, 2)
	assert.Equal(t, "00:01", labels[0].Text)
	assert.Equal(t, "00:02", labels[1].Text)
}

func TestGridDraw(t *testing.T) {
	g := newTestGrid()
	c := &recordingCanvas{}
	area := image.Rect(0, 0, 900, 500)
	xScale := newTestScale(0, 1200000, 0, 900)
	yScale := newTestScale(95, 105, 500, 0)
	require.NoError(t, g.Draw(c, area, xScale, yScale, testInterval))
	assert.Equal(t, float64(300000), g.Spacing())

	var vertical, horizontal int
	for _, l := range c.lines {
		assert.True(t, l.style.Fade)
		if l.from.X == l.to.X {
			vertical++
		} else {
			horizontal++
		}
	}
	assert.Equal(t, 7, vertical)
	assert.Equal(t, len(yScale.Ticks()), horizontal)
	require.Len(t, c.clips, 1)
	assert.Equal(t, area, c.clips[0])

	var timeLabels []string
	for _, txt := range c.texts {
		if txt.pos.Y == area.Max.Y+textMarginPx {
			timeLabels = append(timeLabels, txt.text)
		}
	}
	assert.Equal(t, []string{"00:00", "00:05", "00:10", "00:15", "00:20"}, timeLabels)
}

func TestGridDrawInvalid(t *testing.T) {
	g := newTestGrid()
	c := &recordingCanvas{}
	yScale := newTestScale(95, 105, 500, 0)
	assert.ErrorIs(t, g.Draw(c, image.Rectangle{}, newTestScale(0, 1, 0, 1), yScale, testInterval), ErrEmptyPlotArea)
	assert.ErrorIs(t, g.Draw(c, image.Rect(0, 0, 900, 500), newTestScale(math.NaN(), 1, 0, 900), yScale, testInterval), ErrNotFinite)
	assert.ErrorIs(t, g.Draw(c, image.Rect(0, 0, 900, 500), newTestScale(5, 5, 0, 900), yScale, testInterval), ErrInvalidWindow)
	assert.ErrorIs(t, g.Draw(c, image.Rect(0, 0, 900, 500), newTestScale(0, 1, 0, 900), yScale, 0), ErrNotFinite)
	assert.ErrorIs(t, g.Draw(c, image.Rect(0, 0, 900, 500), nil, yScale, testInterval), ErrNoScale)
	assert.Empty(t, c.lines)
}

func TestValueLabels(t *testing.T) {
	g := newTestGrid()
	c := &recordingCanvas{}
	labels := g.ValueLabels(c, newTestScale(64990, 65010, 600, 0), image.Rect(0, 0, 900, 600))
	require.NotEmpty(t, labels)
	assert.Equal(t, "64990.00", labels[0].Text)
	for i := 1; i < len(labels); i++ {
		assert.Less(t, labels[i].Y, labels[i-1].Y)
	}
}
