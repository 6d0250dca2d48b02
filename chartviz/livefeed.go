// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartviz

import (
	"coinchart/cache"
	"coinchart/chartapi"
	"coinchart/chartval"
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type livePrice struct {
	key   string
	price float64
}

// LiveFeed merges streamed klines into the series which is currently shown.
type LiveFeed struct {
	cache        cache.CandleCache
	updater      UiUpdater
	onError      func(error)
	logger       zerolog.Logger
	series       atomic.Pointer[chartval.Series]
	price        atomic.Pointer[livePrice]
	changed      atomic.Bool
	dirty        atomic.Bool
	requestChan  chan chartapi.SubscribeRequest
	responseChan chan chartapi.SubscribeResponse
	wg           sync.WaitGroup
}

func NewLiveFeed(c cache.CandleCache, updater UiUpdater, onError func(error), logger zerolog.Logger) *LiveFeed {
	return &LiveFeed{
		cache:   c,
		updater: updater,
		onError: onError,
		logger:  logger,
	}
}

func (f *LiveFeed) Initialize(ctx context.Context, subscriber chartapi.KlineSubscriber) {
	f.requestChan = make(chan chartapi.SubscribeRequest, 16)
	f.responseChan = make(chan chartapi.SubscribeResponse, 16)
	f.wg.Add(2)
	go func() {
		defer f.wg.Done()
		f.handleSubscribeResponses()
	}()
	go func() {
		defer f.wg.Done()
		subscriber.SubscribeKlines(ctx, f.requestChan, f.responseChan)
	}()
}

// SetSeries replaces the subscription of the previous series. Call from the UI goroutine.
func (f *LiveFeed) SetSeries(s *chartval.Series) {
	old := f.series.Swap(s)
	if old == s {
		return
	}
	if old != nil {
		f.flush(old)
		f.requestChan <- chartapi.SubscribeRequest{Symbol: old.Symbol, Timeframe: old.Timeframe, Unsubscribe: true}
	}
	if s != nil {
		f.requestChan <- chartapi.SubscribeRequest{Symbol: s.Symbol, Timeframe: s.Timeframe}
	}
}

func (f *LiveFeed) handleSubscribeResponses() {
	for resp := range f.responseChan {
		if resp.Error != nil {
			f.logger.Warn().Err(resp.Error).Str("symbol", resp.Request.Symbol).Msg("subscription failed")
			if f.onError != nil {
				f.onError(resp.Error)
			}
			continue
		}
		if resp.Updates == nil {
			continue
		}
		f.wg.Add(1)
		go func(updates chan chartapi.KlineUpdate) {
			defer f.wg.Done()
			f.handleUpdates(updates)
		}(resp.Updates)
	}
	f.logger.Debug().Msg("terminating subscription handler")
}

func (f *LiveFeed) handleUpdates(updates chan chartapi.KlineUpdate) {
	for u := range updates {
		s := f.series.Load()
		if s == nil || s.Symbol != u.Symbol || s.Timeframe != u.Timeframe {
			// Still queued after switching the series.
			continue
		}
		// The candle with the same open time is replaced.
		s.Merge([]chartval.Candle{u.Candle})
		f.price.Store(&livePrice{key: chartapi.StreamKey(u.Symbol, u.Timeframe), price: u.Candle.Close})
		if u.Closed {
			f.dirty.Store(true)
		}
		f.changed.Store(true)
		f.updater.Invalidate()
	}
}

// LatestPrice returns the last streamed price of the given series.
func (f *LiveFeed) LatestPrice(s *chartval.Series) (float64, bool) {
	p := f.price.Load()
	if p == nil || s == nil || p.key != chartapi.StreamKey(s.Symbol, s.Timeframe) {
		return 0, false
	}
	return p.price, true
}

// TakeChanged returns whether candles were merged since the last call.
func (f *LiveFeed) TakeChanged() bool {
	return f.changed.Swap(false)
}

// FlushCache writes the candles of the current series if a kline was closed.
func (f *LiveFeed) FlushCache() {
	if s := f.series.Load(); s != nil {
		f.flush(s)
	}
}

func (f *LiveFeed) flush(s *chartval.Series) {
	if f.cache == nil || !f.dirty.Swap(false) {
		return
	}
	if err := f.cache.WriteCandles(s.Symbol, s.Timeframe, s.Candles()); err != nil {
		f.logger.Warn().Err(err).Msg("could not write candle cache")
	}
}

// Cleanup ends all subscriptions and waits for the handlers to terminate.
func (f *LiveFeed) Cleanup() {
	f.FlushCache()
	close(f.requestChan)
	f.wg.Wait()
}
