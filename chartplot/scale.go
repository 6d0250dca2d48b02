// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"coinchart/chartval"
	"math"
)

// Scale maps axis values to pixels. The viewport owns the value range
// and pushes it into the scale, the scale never changes it by itself.
type Scale interface {
	Min() float64
	Max() float64
	PixelForValue(v float64) float64
	ValueForPixel(px float64) float64
	SetRange(min, max float64)
	// Ticks returns "nice" values within the current range, ascending.
	Ticks() []float64
}

const DefaultTickSpacingPx = 60
const maxScaleTicks = 1000

// LinearScale is a linear projection f(v)=m*v+b of a value range onto a pixel span.
// For a vertical axis, pass the bottom pixel as "from" so that values increase upwards.
type LinearScale struct {
	TickSpacingPx float64
	min           float64
	max           float64
	pxFrom        float64
	pxTo          float64
	ticks         []float64
}

func NewLinearScale(tickSpacingPx float64) *LinearScale {
	if tickSpacingPx <= 0 {
		tickSpacingPx = DefaultTickSpacingPx
	}
	return &LinearScale{TickSpacingPx: tickSpacingPx, max: 1, pxTo: 1}
}

func (s *LinearScale) SetPixelRange(from, to float64) {
	s.pxFrom = from
	s.pxTo = to
}

func (s *LinearScale) PixelSpan() float64 {
	return math.Abs(s.pxTo - s.pxFrom)
}

func (s *LinearScale) SetRange(min, max float64) {
	s.min = min
	s.max = max
}

func (s *LinearScale) Min() float64 {
	return s.min
}

func (s *LinearScale) Max() float64 {
	return s.max
}

func (s *LinearScale) PixelForValue(v float64) float64 {
	if s.max == s.min {
		return s.pxFrom
	}
	m := (s.pxTo - s.pxFrom) / (s.max - s.min)
	return m*(v-s.min) + s.pxFrom
}

func (s *LinearScale) ValueForPixel(px float64) float64 {
	if s.pxTo == s.pxFrom {
		return s.min
	}
	m := (s.max - s.min) / (s.pxTo - s.pxFrom)
	return m*(px-s.pxFrom) + s.min
}

func (s *LinearScale) Ticks() []float64 {
	// Reuse tick buffer from previous frame.
	ticks := s.ticks[:0]
	valueRange := s.max - s.min
	if !chartval.IsFinite(s.min, s.max) || valueRange <= 0 {
		s.ticks = ticks
		return ticks
	}
	numSegments := math.Max(1, math.Floor(s.PixelSpan()/s.TickSpacingPx))
	step := niceStep(valueRange / numSegments)
	for k := math.Ceil(s.min / step); k*step <= s.max && len(ticks) < maxScaleTicks; k++ {
		v := k * step
		// we do not want negative zero on our label
		if math.Abs(v) < step*chartval.NearZero {
			v = 0
		}
		ticks = append(ticks, v)
	}
	s.ticks = ticks
	return ticks
}

// niceStep rounds a raw step up to 1, 2 or 5 times a power of ten,
// to avoid unintuitive value differences like 0.3$.
func niceStep(raw float64) float64 {
	decimalBase := math.Pow10(int(math.Floor(math.Log10(raw))))
	f := raw / decimalBase
	switch {
	case f <= 1:
		return decimalBase
	case f <= 2:
		return 2 * decimalBase
	case f <= 5:
		return 5 * decimalBase
	default:
		return 10 * decimalBase
	}
}
