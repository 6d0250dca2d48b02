// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartapi

import (
	"coinchart/candles"
	"coinchart/chartval"
	"coinchart/config"
	"context"
)

// Upper limit of CandlesRequest.Limit which all providers support.
const MaxCandlesPerRequest = 1000

type CandlesRequest struct {
	Symbol    string
	Timeframe candles.Timeframe
	// Open time of the last requested candle in unix milliseconds, 0 for the latest candles.
	EndTime int64
	Limit   int
}

type QueryCandlesResponse struct {
	Request CandlesRequest
	Error   error
	Data    []chartval.Candle
}

type KlineUpdate struct {
	Symbol    string
	Timeframe candles.Timeframe
	Candle    chartval.Candle
	// Closed is set for the final update of a candle.
	Closed bool
}

type SubscribeRequest struct {
	Symbol      string
	Timeframe   candles.Timeframe
	Unsubscribe bool
}

type SubscribeResponse struct {
	Request SubscribeRequest
	Error   error
	Updates chan KlineUpdate
}

// CandleRequester answers candle requests until the request channel is closed,
// then it closes the response channel.
type CandleRequester interface {
	ReadConfig(c config.Config) error
	QueryCandles(ctx context.Context, request <-chan CandlesRequest, response chan<- QueryCandlesResponse)
}

// KlineSubscriber streams live candle updates.
type KlineSubscriber interface {
	SubscribeKlines(ctx context.Context, request <-chan SubscribeRequest, response chan<- SubscribeResponse)
}

type MarketDataProvider interface {
	CandleRequester
	KlineSubscriber
	// RemainingApiLimit returns the request weight which can still be used in the current interval.
	RemainingApiLimit() int
}

// StreamKey identifies a realtime subscription.
func StreamKey(symbol string, timeframe candles.Timeframe) string {
	return symbol + "@" + timeframe.String()
}
