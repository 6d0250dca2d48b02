// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package mock

import (
	"coinchart/cache"
	"coinchart/candles"
	"coinchart/chartapi"
	"coinchart/chartval"
	"sync"
)

// TestCandleCache keeps candles in memory.
type TestCandleCache struct {
	data  map[string][]chartval.Candle
	mutex sync.Mutex
}

func NewCandleCache() *TestCandleCache {
	return &TestCandleCache{data: make(map[string][]chartval.Candle)}
}

var _ cache.CandleCache = (*TestCandleCache)(nil)

func (c *TestCandleCache) ReadCandles(symbol string, timeframe candles.Timeframe) []chartval.Candle {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.data[chartapi.StreamKey(symbol, timeframe)]
}

func (c *TestCandleCache) WriteCandles(symbol string, timeframe candles.Timeframe, data []chartval.Candle) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data[chartapi.StreamKey(symbol, timeframe)] = append([]chartval.Candle(nil), data...)
	return nil
}
