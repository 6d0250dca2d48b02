// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package cache

import (
	"coinchart/candles"
	"coinchart/chartval"
	"coinchart/config"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/lotodore/localcache"
	"github.com/rs/zerolog/log"
)

// Only the newest candles are kept.
const MaxCachedCandles = 1000

// Older entries are not worth showing, the gap to the live data would be too large.
const cacheMaxAge = time.Hour * 24

type localCandleCache struct {
	data  *localcache.Cache
	mutex sync.Mutex
}

func NewLocalCandleCache(broker config.BrokerId) CandleCache {
	c := localCandleCache{}
	var err error
	c.data, err = localcache.New(filepath.Join(config.AppName, string(broker)))
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing candle cache")
	}
	return &c
}

// Monthly and minute candles differ only in case, which is not distinguished by all file systems.
func cacheKey(symbol string, timeframe candles.Timeframe) string {
	return fmt.Sprintf("candles_%s_%d", symbol, int64(timeframe.Interval()/time.Minute))
}

func (c *localCandleCache) ReadCandles(symbol string, timeframe candles.Timeframe) []chartval.Candle {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	key := cacheKey(symbol, timeframe)
	err := c.data.PurgeKey(key, cacheMaxAge)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("error purging cache, candle data may be outdated")
	}
	raw, err := c.data.ReadFile(key)
	if err != nil {
		return nil
	}
	var data []chartval.Candle
	if err = json.Unmarshal(raw, &data); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("candle cache contains invalid data")
		if err = c.data.Remove(key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("error deleting cache, candle data may be invalid")
		}
		return nil
	}
	return data
}

func (c *localCandleCache) WriteCandles(symbol string, timeframe candles.Timeframe, data []chartval.Candle) error {
	data = prepareForCache(data)
	if len(data) == 0 {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.data.WriteFile(cacheKey(symbol, timeframe), raw)
}

// prepareForCache returns the newest valid candles in ascending order, the input is not modified.
func prepareForCache(data []chartval.Candle) []chartval.Candle {
	l := make(chartval.CandleList, 0, len(data))
	for _, d := range data {
		if d.IsValid() {
			l = append(l, d)
		}
	}
	if !sort.IsSorted(l) {
		sort.Stable(l)
	}
	if len(l) > MaxCachedCandles {
		l = l[len(l)-MaxCachedCandles:]
	}
	return l
}
