// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartval

import (
	"math"
	"regexp"
	"strings"
)

// Candle is a single OHLC sample. Time is the open time in unix milliseconds.
type Candle struct {
	Time  int64   `json:"t"`
	Open  float64 `json:"o"`
	High  float64 `json:"h"`
	Low   float64 `json:"l"`
	Close float64 `json:"c"`
}

func (c Candle) IsValid() bool {
	return IsFinite(c.Open, c.High, c.Low, c.Close) && c.High >= c.Low
}

func (c Candle) IsGreen() bool {
	return IsGreenCandle(c.Open, c.Close)
}

// For sorting
type CandleList []Candle

func (x CandleList) Len() int           { return len(x) }
func (x CandleList) Less(i, j int) bool { return x[i].Time < x[j].Time }
func (x CandleList) Swap(i, j int)      { x[i], x[j] = x[j], x[i] }

// PriceRange returns the lowest low and highest high of all candles with min <= time <= max.
func (x CandleList) PriceRange(minTime, maxTime float64) (low, high float64, ok bool) {
	for _, c := range x {
		t := float64(c.Time)
		if t < minTime {
			continue
		}
		if t > maxTime {
			break
		}
		if !ok || c.Low < low {
			low = c.Low
		}
		if !ok || c.High > high {
			high = c.High
		}
		ok = true
	}
	return
}

var symbolRegex = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)

// NormalizeSymbol converts user input like "btc-usdt" to the exchange format "BTCUSDT".
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "/", "", "_", "").Replace(s)
}

func IsValidSymbol(s string) bool {
	return symbolRegex.MatchString(s)
}

func IsFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
