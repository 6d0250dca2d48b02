// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package candles

import (
	"fmt"
	"time"
)

type Timeframe int32

const (
	OneMinute Timeframe = iota
	ThreeMinutes
	FiveMinutes
	FifteenMinutes
	ThirtyMinutes
	OneHour
	TwoHours
	FourHours
	SixHours
	EightHours
	TwelveHours
	OneDay
	ThreeDays
	OneWeek
	OneMonth
)

const NumTimeframes = OneMonth + 1

const day = 24 * time.Hour

type timeframeInfo struct {
	name     string // exchange interval name, also used in the configuration file
	uiName   string
	interval time.Duration
}

// Nominal durations. Monthly candles have a calendar dependent length,
// use GetDuration if the exact length matters.
var timeframeTable = [NumTimeframes]timeframeInfo{
	OneMinute:      {"1m", "1 min", time.Minute},
	ThreeMinutes:   {"3m", "3 min", 3 * time.Minute},
	FiveMinutes:    {"5m", "5 min", 5 * time.Minute},
	FifteenMinutes: {"15m", "15 min", 15 * time.Minute},
	ThirtyMinutes:  {"30m", "30 min", 30 * time.Minute},
	OneHour:        {"1h", "1 hour", time.Hour},
	TwoHours:       {"2h", "2 hours", 2 * time.Hour},
	FourHours:      {"4h", "4 hours", 4 * time.Hour},
	SixHours:       {"6h", "6 hours", 6 * time.Hour},
	EightHours:     {"8h", "8 hours", 8 * time.Hour},
	TwelveHours:    {"12h", "12 hours", 12 * time.Hour},
	OneDay:         {"1d", "1 day", day},
	ThreeDays:      {"3d", "3 days", 3 * day},
	OneWeek:        {"1w", "1 week", 7 * day},
	OneMonth:       {"1M", "1 month", 30 * day},
}

func ParseTimeframe(s string) (Timeframe, error) {
	for i, info := range timeframeTable {
		if info.name == s {
			return Timeframe(i), nil
		}
	}
	return OneMinute, fmt.Errorf("unknown timeframe %q", s)
}

func UiStringList() []string {
	l := make([]string, 0, NumTimeframes)
	for _, info := range timeframeTable {
		l = append(l, info.uiName)
	}
	return l
}

func (r Timeframe) IsValid() bool {
	return r >= 0 && r < NumTimeframes
}

func (r Timeframe) String() string {
	if !r.IsValid() {
		return fmt.Sprintf("Timeframe(%d)", int32(r))
	}
	return timeframeTable[r].name
}

// Interval returns the nominal duration of a single candle.
func (r Timeframe) Interval() time.Duration {
	if !r.IsValid() {
		panic("unsupported timeframe")
	}
	return timeframeTable[r].interval
}

func (r Timeframe) IntervalMs() float64 {
	return float64(r.Interval().Milliseconds())
}

// GetDuration returns the length of the candle which contains t.
func (r Timeframe) GetDuration(t time.Time) time.Duration {
	if r == OneMonth {
		d, _ := getMonthDuration(t.UTC())
		return d
	}
	return r.Interval()
}

// CandleStartTime returns the open time of the candle containing t.
// All candles are aligned in UTC, weeks start on Mondays.
func (r Timeframe) CandleStartTime(t time.Time) time.Time {
	t = t.UTC()
	switch r {
	case OneWeek:
		_, s := getWeekDuration(t)
		return s
	case OneMonth:
		_, s := getMonthDuration(t)
		return s
	default:
		interval := r.Interval().Milliseconds()
		ms := t.UnixMilli()
		start := ms - ms%interval
		if ms < 0 && ms%interval != 0 {
			start -= interval
		}
		return time.UnixMilli(start).UTC()
	}
}

func (r Timeframe) GetNthCandleTime(t time.Time, n int) time.Time {
	// Get 0th candle time first, so that n = 0 works.
	t = r.CandleStartTime(t)
	if n < 0 {
		for i := 0; i > n; i-- {
			// Go one millisecond back to the previous interval to get the correct duration.
			t = t.Add(-r.GetDuration(t.Add(-time.Millisecond)))
		}
	}
	for i := 0; i < n; i++ {
		t = t.Add(r.GetDuration(t))
	}
	return t
}

func getWeekDuration(t time.Time) (time.Duration, time.Time) {
	// Candlestick weeks start on Mondays. Golang weeks start on Sundays.
	weekdayDiff := int(t.Weekday()) - int(time.Monday)
	if weekdayDiff < 0 {
		weekdayDiff = 7 + weekdayDiff
	}
	y, m, d := t.Date()
	d -= weekdayDiff
	s := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return time.Date(y, m, d+7, 0, 0, 0, 0, t.Location()).Sub(s), s
}

func getMonthDuration(t time.Time) (time.Duration, time.Time) {
	y := t.Year()
	m := t.Month()
	s := time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	return time.Date(y, m+1, 1, 0, 0, 0, 0, t.Location()).Sub(s), s
}
