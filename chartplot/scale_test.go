// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinearScaleVertical(t *testing.T) {
	s := newTestScale(100, 200, 500, 0)
	assert.Equal(t, 500.0, s.PixelForValue(100))
	assert.Equal(t, 0.0, s.PixelForValue(200))
	assert.Equal(t, 250.0, s.PixelForValue(150))
	assert.Equal(t, 150.0, s.ValueForPixel(250))
	assert.Equal(t, 200.0, s.ValueForPixel(0))
}

func TestLinearScaleTicks(t *testing.T) {
	s := newTestScale(0, 100, 0, 600)
	assert.Equal(t, []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, s.Ticks())

	s.SetRange(64993.3, 65007.1)
	ticks := s.Ticks()
	assert.NotEmpty(t, ticks)
	for _, v := range ticks {
		assert.GreaterOrEqual(t, v, 64993.3)
		assert.LessOrEqual(t, v, 65007.1)
	}

	s.SetRange(5, 5)
	assert.Empty(t, s.Ticks())
}

func TestNiceStep(t *testing.T) {
	assert.Equal(t, 1.0, niceStep(1))
	assert.Equal(t, 2.0, niceStep(1.3))
	assert.Equal(t, 5.0, niceStep(2.5))
	assert.Equal(t, 10.0, niceStep(7))
	assert.Equal(t, 10.0, niceStep(10))
	assert.InDelta(t, 0.5, niceStep(0.3), 1e-12)
}

func TestWindow(t *testing.T) {
	w := Window{Min: 10, Max: 30}
	assert.Equal(t, 20.0, w.Width())
	assert.Equal(t, 20.0, w.Center())
	assert.True(t, w.Valid())
	assert.True(t, w.Contains(10))
	assert.False(t, w.Contains(31))
	assert.Equal(t, Window{Min: 15, Max: 35}, w.Shift(5))
	assert.False(t, Window{Min: 1, Max: 1}.Valid())
	assert.Equal(t, Window{Min: 1, Max: 3}, Window{Min: 1.2, Max: 2.6}.Round())
}
