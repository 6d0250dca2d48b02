// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package cache

import (
	"coinchart/candles"
	"coinchart/chartval"
)

// CandleCache stores recently loaded candles, so that the chart can be shown
// before the first request completes.
type CandleCache interface {
	ReadCandles(symbol string, timeframe candles.Timeframe) []chartval.Candle
	WriteCandles(symbol string, timeframe candles.Timeframe, data []chartval.Candle) error
}
