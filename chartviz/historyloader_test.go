// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartviz

import (
	"coinchart/cache"
	"coinchart/candles"
	"coinchart/chartapi"
	"coinchart/chartplot"
	"coinchart/chartval"
	"coinchart/config"
	"coinchart/mock"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSymbol = "BTCUSDT"

type countingUpdater struct {
	count atomic.Int32
}

func (u *countingUpdater) Invalidate() {
	u.count.Add(1)
}

// testRequester answers candle requests with the result of respond.
type testRequester struct {
	mutex    sync.Mutex
	requests []chartapi.CandlesRequest
	respond  func(req chartapi.CandlesRequest) ([]chartval.Candle, error)
}

func (r *testRequester) ReadConfig(config.Config) error {
	return nil
}

func (r *testRequester) QueryCandles(ctx context.Context, request <-chan chartapi.CandlesRequest, response chan<- chartapi.QueryCandlesResponse) {
	defer close(response)
	for req := range request {
		r.mutex.Lock()
		r.requests = append(r.requests, req)
		r.mutex.Unlock()
		data, err := r.respond(req)
		response <- chartapi.QueryCandlesResponse{Request: req, Data: data, Error: err}
	}
}

func (r *testRequester) Requests() []chartapi.CandlesRequest {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]chartapi.CandlesRequest(nil), r.requests...)
}

func candleRange(fromMinute, toMinute int) []chartval.Candle {
	var data []chartval.Candle
	for i := fromMinute; i < toMinute; i++ {
		price := float64(1000 + i)
		data = append(data, chartval.Candle{Time: int64(i) * minuteMs, Open: price, High: price + 5, Low: price - 5, Close: price + 1})
	}
	return data
}

// latestOrOlder returns candles up to the given minute, or the older batch for history requests.
func latestOrOlder(latestMinute int) func(chartapi.CandlesRequest) ([]chartval.Candle, error) {
	return func(req chartapi.CandlesRequest) ([]chartval.Candle, error) {
		end := latestMinute + 1
		if req.EndTime != 0 {
			end = int(req.EndTime/minuteMs) + 1
		}
		start := end - req.Limit
		if start < 0 {
			start = 0
		}
		return candleRange(start, end), nil
	}
}

func waitForResults(t *testing.T, l *HistoryLoader, n int) []LoadResult {
	var results []LoadResult
	var mutex sync.Mutex
	require.Eventually(t, func() bool {
		mutex.Lock()
		defer mutex.Unlock()
		results = append(results, l.TakeResults()...)
		return len(results) >= n
	}, 2*time.Second, 5*time.Millisecond)
	mutex.Lock()
	defer mutex.Unlock()
	return results
}

func newTestLoader(t *testing.T, batchSize int, requester *testRequester, c cache.CandleCache, onError func(error)) (*HistoryLoader, *countingUpdater) {
	updater := &countingUpdater{}
	series := chartval.NewSeries(testSymbol, candles.OneMinute)
	l := NewHistoryLoader(series, batchSize, c, updater, onError, zerolog.Nop())
	l.Initialize(context.Background(), requester)
	t.Cleanup(l.Cleanup)
	return l, updater
}

func TestHistoryLoaderInitialLoad(t *testing.T) {
	c := mock.NewCandleCache()
	require.NoError(t, c.WriteCandles(testSymbol, candles.OneMinute, candleRange(195, 200)))
	requester := &testRequester{respond: latestOrOlder(209)}
	l, updater := newTestLoader(t, 10, requester, c, nil)

	l.LoadInitial()
	results := waitForResults(t, l, 2)
	// Cached candles are shown before the response arrives.
	assert.Equal(t, LoadResult{Added: 5}, results[0])
	assert.Equal(t, LoadResult{Added: 10}, results[1])
	assert.Equal(t, 15, l.Series.Len())
	assert.GreaterOrEqual(t, updater.count.Load(), int32(2))

	requests := requester.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, chartapi.CandlesRequest{Symbol: testSymbol, Timeframe: candles.OneMinute, Limit: 10}, requests[0])
	// The latest candles are written to the cache.
	assert.Len(t, c.ReadCandles(testSymbol, candles.OneMinute), 15)
}

func TestHistoryLoaderRequestHistory(t *testing.T) {
	c := mock.NewCandleCache()
	requester := &testRequester{respond: latestOrOlder(209)}
	l, _ := newTestLoader(t, 10, requester, c, nil)
	l.Series.Merge(candleRange(200, 210))

	restore := chartplot.Window{Min: 202 * minuteMs, Max: 208 * minuteMs}
	l.Loading().Store(true)
	l.RequestHistory(chartplot.HistoryRequest{Oldest: 200 * minuteMs, Restore: restore})

	results := waitForResults(t, l, 1)
	assert.Equal(t, LoadResult{History: true, Restore: restore, Added: 10}, results[0])
	assert.False(t, l.Loading().Load())
	assert.Equal(t, 20, l.Series.Len())
	first, ok := l.Series.First()
	require.True(t, ok)
	assert.Equal(t, int64(190*minuteMs), first.Time)

	requests := requester.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, int64(200*minuteMs-1), requests[0].EndTime)
	// History is not cached.
	assert.Empty(t, c.ReadCandles(testSymbol, candles.OneMinute))
}

func TestHistoryLoaderError(t *testing.T) {
	errRequest := errors.New("request failed")
	requester := &testRequester{respond: func(chartapi.CandlesRequest) ([]chartval.Candle, error) {
		return nil, errRequest
	}}
	var reported atomic.Pointer[error]
	l, _ := newTestLoader(t, 10, requester, nil, func(err error) { reported.Store(&err) })

	l.Loading().Store(true)
	l.RequestHistory(chartplot.HistoryRequest{Oldest: 200 * minuteMs})
	results := waitForResults(t, l, 1)
	assert.True(t, results[0].History)
	assert.ErrorIs(t, results[0].Err, errRequest)
	assert.Zero(t, results[0].Added)
	// A failed request allows the viewport to retry.
	assert.False(t, l.Loading().Load())
	if assert.NotNil(t, reported.Load()) {
		assert.ErrorIs(t, *reported.Load(), errRequest)
	}
}

func TestHistoryLoaderRefreshLimit(t *testing.T) {
	requester := &testRequester{respond: latestOrOlder(2000)}
	l, _ := newTestLoader(t, 0, requester, nil, nil)
	l.Refresh()
	waitForResults(t, l, 1)

	requests := requester.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, maxRefreshCandles, requests[0].Limit)
	assert.Zero(t, requests[0].EndTime)
}

func TestHistoryLoaderAfterCleanup(t *testing.T) {
	requester := &testRequester{respond: latestOrOlder(209)}
	l, _ := newTestLoader(t, 10, requester, nil, nil)
	l.Cleanup()

	l.Loading().Store(true)
	l.RequestHistory(chartplot.HistoryRequest{Oldest: 200 * minuteMs})
	assert.False(t, l.Loading().Load())
	assert.Empty(t, requester.Requests())
}
