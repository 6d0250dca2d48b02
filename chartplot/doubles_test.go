// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"coinchart/chartval"
	"image"
	"image/color"
	"time"

	"gioui.org/f32"
)

type recordedLine struct {
	from, to f32.Point
	style    LineStyle
}

type recordedText struct {
	text string
	pos  image.Point
	size float32
}

// recordingCanvas measures text with a fixed advance per character.
type recordingCanvas struct {
	clips []image.Rectangle
	lines []recordedLine
	texts []recordedText
}

func (c *recordingCanvas) PushClip(r image.Rectangle) func() {
	c.clips = append(c.clips, r)
	return func() {}
}

func (c *recordingCanvas) Line(from, to f32.Point, style LineStyle) {
	c.lines = append(c.lines, recordedLine{from: from, to: to, style: style})
}

func (c *recordingCanvas) MeasureText(text string, fontSize float32) image.Point {
	return image.Pt(int(float32(len(text))*fontSize*0.6), int(fontSize*1.2))
}

func (c *recordingCanvas) DrawText(text string, pos image.Point, fontSize float32, _ color.NRGBA) {
	c.texts = append(c.texts, recordedText{text: text, pos: pos, size: fontSize})
}

// manualScheduler runs frame callbacks only when the test advances the time.
type manualScheduler struct {
	now     time.Time
	next    FrameHandle
	pending map[FrameHandle]func(time.Time)
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{
		now:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		pending: make(map[FrameHandle]func(time.Time)),
	}
}

func (s *manualScheduler) RequestFrame(fn func(time.Time)) FrameHandle {
	s.next++
	s.pending[s.next] = fn
	return s.next
}

func (s *manualScheduler) CancelFrame(h FrameHandle) {
	delete(s.pending, h)
}

func (s *manualScheduler) Now() time.Time {
	return s.now
}

// advance moves the time forward and runs one frame.
func (s *manualScheduler) advance(d time.Duration) {
	s.now = s.now.Add(d)
	callbacks := s.pending
	s.pending = make(map[FrameHandle]func(time.Time))
	for _, fn := range callbacks {
		fn(s.now)
	}
}

type sliceSource struct {
	candles []chartval.Candle
}

func (s *sliceSource) Candles() []chartval.Candle {
	return s.candles
}

type loadingFlag struct {
	loading bool
}

func (f *loadingFlag) Load() bool {
	return f.loading
}

func (f *loadingFlag) Store(v bool) {
	f.loading = v
}

const testInterval = 60000

// newTestCandles returns n one minute candles starting at time zero with close price 100.
func newTestCandles(n int) []chartval.Candle {
	l := make([]chartval.Candle, n)
	for i := range l {
		l[i] = chartval.Candle{Time: int64(i) * testInterval, Open: 100, High: 101, Low: 99, Close: 100}
	}
	return l
}
