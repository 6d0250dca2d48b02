// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartviz

import (
	"coinchart/cache"
	"coinchart/chartapi"
	"coinchart/chartplot"
	"coinchart/chartval"
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Refreshing only needs the latest candles, the rest is already loaded.
const maxRefreshCandles = 100

type UiUpdater interface {
	Invalidate()
}

// LoadResult describes a completed candle request. It is applied on the UI goroutine.
type LoadResult struct {
	History bool
	Restore chartplot.Window
	Added   int
	Err     error
}

// HistoryLoader requests candles of one series and merges them.
// The loading flag is set by the viewport and cleared when a history response arrived.
type HistoryLoader struct {
	Series       *chartval.Series
	batchSize    int
	cache        cache.CandleCache
	updater      UiUpdater
	onError      func(error)
	logger       zerolog.Logger
	loading      atomic.Bool
	requestChan  chan chartapi.CandlesRequest
	responseChan chan chartapi.QueryCandlesResponse
	requestMutex sync.Mutex
	closed       bool
	restore      chartplot.Window
	resultMutex  sync.Mutex
	results      []LoadResult
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

func NewHistoryLoader(series *chartval.Series, batchSize int, c cache.CandleCache, updater UiUpdater, onError func(error), logger zerolog.Logger) *HistoryLoader {
	if batchSize <= 0 || batchSize > chartapi.MaxCandlesPerRequest {
		batchSize = chartapi.MaxCandlesPerRequest
	}
	return &HistoryLoader{
		Series:    series,
		batchSize: batchSize,
		cache:     c,
		updater:   updater,
		onError:   onError,
		logger:    logger.With().Str("stream", chartapi.StreamKey(series.Symbol, series.Timeframe)).Logger(),
	}
}

func (l *HistoryLoader) Initialize(ctx context.Context, requester chartapi.CandleRequester) {
	l.requestChan = make(chan chartapi.CandlesRequest, 16)
	l.responseChan = make(chan chartapi.QueryCandlesResponse, 16)
	ctx, l.cancel = context.WithCancel(ctx)
	l.wg.Add(2)
	go func() {
		defer l.wg.Done()
		l.handleResponses()
	}()
	go func() {
		defer l.wg.Done()
		requester.QueryCandles(ctx, l.requestChan, l.responseChan)
	}()
}

// Loading returns the flag which is shared with the viewport.
func (l *HistoryLoader) Loading() chartplot.LoadingFlag {
	return &l.loading
}

// LoadInitial shows cached candles and requests the latest batch.
func (l *HistoryLoader) LoadInitial() {
	if l.cache != nil {
		if cached := l.cache.ReadCandles(l.Series.Symbol, l.Series.Timeframe); len(cached) > 0 {
			added := l.Series.Merge(cached)
			l.logger.Debug().Int("candles", added).Msg("using cached candles")
			l.pushResult(LoadResult{Added: added})
			l.updater.Invalidate()
		}
	}
	l.send(chartapi.CandlesRequest{Limit: l.batchSize})
}

// RequestHistory loads candles older than the request. It does not block.
func (l *HistoryLoader) RequestHistory(req chartplot.HistoryRequest) {
	l.requestMutex.Lock()
	l.restore = req.Restore
	l.requestMutex.Unlock()
	l.logger.Debug().Int64("oldest", req.Oldest).Msg("requesting history")
	if !l.send(chartapi.CandlesRequest{EndTime: req.Oldest - 1, Limit: l.batchSize}) {
		l.loading.Store(false)
	}
}

// Refresh requests the latest candles again.
func (l *HistoryLoader) Refresh() {
	l.send(chartapi.CandlesRequest{Limit: min(l.batchSize, maxRefreshCandles)})
}

func (l *HistoryLoader) send(req chartapi.CandlesRequest) bool {
	req.Symbol = l.Series.Symbol
	req.Timeframe = l.Series.Timeframe
	l.requestMutex.Lock()
	defer l.requestMutex.Unlock()
	if l.closed {
		return false
	}
	select {
	case l.requestChan <- req:
		return true
	default:
		l.logger.Warn().Int64("end", req.EndTime).Msg("request queue is full, dropping candle request")
		return false
	}
}

func (l *HistoryLoader) handleResponses() {
	for resp := range l.responseChan {
		history := resp.Request.EndTime != 0
		r := LoadResult{History: history, Err: resp.Error}
		if resp.Error != nil {
			l.logger.Warn().Err(resp.Error).Bool("history", history).Msg("candle request failed")
			if l.onError != nil {
				l.onError(resp.Error)
			}
		} else {
			r.Added = l.Series.Merge(resp.Data)
			l.logger.Debug().Int("received", len(resp.Data)).Int("added", r.Added).Bool("history", history).Msg("merged candles")
			if !history && l.cache != nil {
				if err := l.cache.WriteCandles(l.Series.Symbol, l.Series.Timeframe, l.Series.Candles()); err != nil {
					l.logger.Warn().Err(err).Msg("could not write candle cache")
				}
			}
		}
		if history {
			l.requestMutex.Lock()
			r.Restore = l.restore
			l.requestMutex.Unlock()
			// The candles are merged, the next request may start from the new oldest candle.
			l.loading.Store(false)
		}
		l.pushResult(r)
		l.updater.Invalidate()
	}
	l.logger.Debug().Msg("terminating candle response handler")
}

func (l *HistoryLoader) pushResult(r LoadResult) {
	l.resultMutex.Lock()
	defer l.resultMutex.Unlock()
	l.results = append(l.results, r)
}

// TakeResults returns the results since the last call. Call from the UI goroutine.
func (l *HistoryLoader) TakeResults() []LoadResult {
	l.resultMutex.Lock()
	defer l.resultMutex.Unlock()
	r := l.results
	l.results = nil
	return r
}

// Cleanup stops all requests and waits for the handlers to terminate.
func (l *HistoryLoader) Cleanup() {
	l.requestMutex.Lock()
	if l.closed {
		l.requestMutex.Unlock()
		return
	}
	l.closed = true
	close(l.requestChan)
	l.requestMutex.Unlock()
	l.cancel()
	l.wg.Wait()
}
