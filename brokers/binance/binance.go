// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package binance

import (
	"coinchart/candles"
	"coinchart/chartapi"
	"coinchart/chartval"
	"coinchart/config"
	"coinchart/webclient"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Binance returns at most this many klines per request.
const MaxKlinesPerRequest = chartapi.MaxCandlesPerRequest

// Market data is public, so no api key is needed.
type binanceBroker struct {
	// Binance limits the request weight per minute and reports the used weight in each response.
	rateLimiter   *webclient.RateLimiter
	apiClient     *http.Client
	klineMap      *chartapi.RealtimeChanMap[chartapi.KlineUpdate]
	validate      *validator.Validate
	config        config.BrokerConfig
	logger        zerolog.Logger
	reconnectWait time.Duration

	connMutex sync.Mutex
	conn      *websocket.Conn
	commandId int64
	started   bool
}

// Error payload within stream replies.
type streamError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Stream frames are either replies to commands or kline events.
//
//	{"e":"kline","E":1672515782136,"s":"BNBBTC","k":{"t":1672515780000,"i":"1m","o":"0.0010","c":"0.0020","h":"0.0025","l":"0.0015","x":false}}
type streamFrame struct {
	EventType string       `json:"e"`
	Symbol    string       `json:"s" validate:"required"`
	Kline     klineData    `json:"k"`
	Id        *int64       `json:"id,omitempty" validate:"-"`
	Error     *streamError `json:"error,omitempty" validate:"-"`
}

type klineData struct {
	OpenTime int64  `json:"t" validate:"gt=0"`
	Interval string `json:"i" validate:"required"`
	Open     string `json:"o" validate:"required,numeric"`
	High     string `json:"h" validate:"required,numeric"`
	Low      string `json:"l" validate:"required,numeric"`
	Close    string `json:"c" validate:"required,numeric"`
	Closed   bool   `json:"x"`
}

type streamCommand struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	Id     int64    `json:"id"`
}

const eventTypeKline = "kline"

func NewBroker(logger zerolog.Logger) chartapi.MarketDataProvider {
	return newBroker(logger)
}

func newBroker(logger zerolog.Logger) *binanceBroker {
	return &binanceBroker{
		rateLimiter:   webclient.NewRateLimiter(time.Minute, 0, webclient.BinanceUsedWeightHeader),
		apiClient:     &http.Client{},
		klineMap:      chartapi.NewRealtimeChanMap[chartapi.KlineUpdate](),
		validate:      validator.New(),
		logger:        logger.With().Str("broker", string(GetBrokerId())).Logger(),
		reconnectWait: webclient.MinReconnectWaitTime,
	}
}

func GetBrokerId() config.BrokerId {
	return config.BrokerBinance
}

func (rq *binanceBroker) ReadConfig(c config.Config) error {
	appConfig, err := c.Copy()
	if err != nil {
		return err
	}
	brokerConfig, ok := appConfig.BrokerConfig[GetBrokerId()]
	if !ok || len(brokerConfig.DataUrl) == 0 || len(brokerConfig.WsUrl) == 0 {
		return errors.New("binance configuration is missing")
	}
	rq.config = brokerConfig
	rq.apiClient.Timeout = time.Second * time.Duration(rq.config.DataTimeoutSeconds)
	rq.rateLimiter = webclient.NewRateLimiter(time.Minute, uint32(rq.config.RequestWeightPerMinute), webclient.BinanceUsedWeightHeader)
	return nil
}

func (rq *binanceBroker) RemainingApiLimit() int {
	return rq.rateLimiter.Remaining()
}

// Request weight of the klines endpoint, depending on the limit.
func klinesWeight(limit int) uint32 {
	switch {
	case limit < 100:
		return 1
	case limit < 500:
		return 2
	case limit <= 1000:
		return 5
	default:
		return 10
	}
}

func (rq *binanceBroker) runRequest(ctx context.Context, cmd string, query url.Values, weight uint32) (*http.Response, error) {
	retry := true
	var resp *http.Response
	for retry {
		err := rq.rateLimiter.WaitN(ctx, weight)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rq.config.DataUrl+cmd, nil)
		if err != nil {
			return nil, err
		}
		req.URL.RawQuery = query.Encode()

		resp, err = rq.apiClient.Do(req)
		if err != nil {
			return nil, err
		}
		retry, err = rq.rateLimiter.HandleResponseHeadersWithWait(ctx, resp)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		if retry {
			rq.logger.Warn().Int("status", resp.StatusCode).Str("cmd", cmd).Msg("request was throttled, retrying")
			resp.Body.Close()
		}
	}
	return resp, nil
}

func (rq *binanceBroker) QueryCandles(ctx context.Context, request <-chan chartapi.CandlesRequest, response chan<- chartapi.QueryCandlesResponse) {
	defer close(response)

	for req := range request {
		resp := rq.queryKlines(ctx, req)
		if resp.Error != nil {
			rq.logger.Error().Err(resp.Error).Str("symbol", req.Symbol).Msg("candle request failed")
		}
		response <- resp
	}
	rq.logger.Debug().Msg("QueryCandles terminating")
}

func (rq *binanceBroker) queryKlines(ctx context.Context, req chartapi.CandlesRequest) chartapi.QueryCandlesResponse {
	limit := req.Limit
	if limit <= 0 || limit > MaxKlinesPerRequest {
		limit = MaxKlinesPerRequest
	}
	query := make(url.Values)
	query.Add("symbol", req.Symbol)
	query.Add("interval", req.Timeframe.String())
	query.Add("limit", strconv.Itoa(limit))
	if req.EndTime > 0 {
		query.Add("endTime", strconv.FormatInt(req.EndTime, 10))
	}
	resp, err := rq.runRequest(ctx, "/klines", query, klinesWeight(limit))
	if err != nil {
		return chartapi.QueryCandlesResponse{Request: req, Error: err}
	}
	defer resp.Body.Close()

	var rows [][]json.RawMessage
	if err = webclient.ParseJsonResponse(resp, &rows); err != nil {
		return chartapi.QueryCandlesResponse{Request: req, Error: err}
	}
	data, err := parseKlineRows(rows)
	if err != nil {
		return chartapi.QueryCandlesResponse{Request: req, Error: err}
	}
	rq.logger.Debug().Str("symbol", req.Symbol).Stringer("timeframe", req.Timeframe).Int("count", len(data)).Msg("klines received")
	return chartapi.QueryCandlesResponse{Request: req, Data: data}
}

// Kline rows look like [openTime, "open", "high", "low", "close", "volume", closeTime, ...].
func parseKlineRows(rows [][]json.RawMessage) ([]chartval.Candle, error) {
	data := make([]chartval.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 5 {
			return nil, fmt.Errorf("kline %d: expected at least 5 fields, got %d", i, len(row))
		}
		var c chartval.Candle
		if err := json.Unmarshal(row[0], &c.Time); err != nil {
			return nil, fmt.Errorf("kline %d: invalid open time: %w", i, err)
		}
		prices := []*float64{&c.Open, &c.High, &c.Low, &c.Close}
		for j, p := range prices {
			var s string
			if err := json.Unmarshal(row[j+1], &s); err != nil {
				return nil, fmt.Errorf("kline %d: invalid price field %d: %w", i, j+1, err)
			}
			v, err := chartval.ParseDecimalFloat(s)
			if err != nil {
				return nil, fmt.Errorf("kline %d: invalid price %q: %w", i, s, err)
			}
			*p = v
		}
		data = append(data, c)
	}
	return data, nil
}

// Binance stream name, e.g. "btcusdt@kline_1m". Interval names are case sensitive.
func streamName(symbol string, timeframe candles.Timeframe) string {
	return strings.ToLower(symbol) + "@kline_" + timeframe.String()
}

func (rq *binanceBroker) SubscribeKlines(ctx context.Context, request <-chan chartapi.SubscribeRequest, response chan<- chartapi.SubscribeResponse) {
	defer close(response)

	realtimeCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for entry := range request {
		// connect whenever we receive a first subscription message.
		// this avoids establishing a realtime connection which is not used.
		if !entry.Unsubscribe {
			rq.startRealtimeOnce(realtimeCtx, &wg)
		}
		key := chartapi.StreamKey(entry.Symbol, entry.Timeframe)
		var updates chan chartapi.KlineUpdate
		var err error
		if entry.Unsubscribe {
			err = rq.klineMap.Unsubscribe(key)
			if err == nil {
				err = rq.sendCommand("UNSUBSCRIBE", streamName(entry.Symbol, entry.Timeframe))
			}
		} else {
			updates, err = rq.klineMap.Subscribe(key)
			if err == nil {
				err = rq.sendCommand("SUBSCRIBE", streamName(entry.Symbol, entry.Timeframe))
			}
		}
		response <- chartapi.SubscribeResponse{
			Request: entry,
			Error:   err,
			Updates: updates,
		}
	}
	cancel()
	wg.Wait()
	rq.connMutex.Lock()
	rq.started = false
	rq.connMutex.Unlock()
	rq.klineMap.ClearPendingClose()
	rq.klineMap.Clear()
	rq.logger.Debug().Msg("SubscribeKlines terminating")
}

func (rq *binanceBroker) startRealtimeOnce(ctx context.Context, wg *sync.WaitGroup) {
	rq.connMutex.Lock()
	defer rq.connMutex.Unlock()
	if rq.started {
		return
	}
	rq.started = true
	wg.Add(1)
	go func() {
		defer wg.Done()
		rq.runRealtime(ctx)
	}()
}

func (rq *binanceBroker) runRealtime(ctx context.Context) {
	for {
		err := rq.connectAndRead(ctx)
		if ctx.Err() != nil {
			return
		}
		rq.logger.Warn().Err(err).Dur("wait", rq.reconnectWait).Msg("realtime connection was terminated, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(rq.reconnectWait):
		}
	}
}

func (rq *binanceBroker) connectAndRead(ctx context.Context) error {
	rq.logger.Info().Str("url", rq.config.WsUrl).Msg("establishing realtime connection")
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rq.config.WsUrl+"/ws", nil)
	if err != nil {
		return fmt.Errorf("could not connect to websocket: %w", err)
	}
	defer conn.Close()
	// Unblock the read loop if the context ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err = rq.setConn(conn); err != nil {
		return err
	}
	defer rq.setConn(nil)

	for {
		_, msg, err := conn.ReadMessage()

		rq.klineMap.ClearPendingClose()

		if err != nil {
			return err
		}
		rq.handleMessage(msg)
	}
}

// setConn stores the active connection and subscribes all streams which are
// currently requested.
func (rq *binanceBroker) setConn(conn *websocket.Conn) error {
	rq.connMutex.Lock()
	defer rq.connMutex.Unlock()
	rq.conn = conn
	if conn == nil {
		return nil
	}
	var streams []string
	for _, key := range rq.klineMap.Keys() {
		symbol, timeframe, err := parseStreamKey(key)
		if err != nil {
			continue
		}
		streams = append(streams, streamName(symbol, timeframe))
	}
	if len(streams) == 0 {
		return nil
	}
	return rq.writeCommand("SUBSCRIBE", streams...)
}

func (rq *binanceBroker) sendCommand(method string, streams ...string) error {
	rq.connMutex.Lock()
	defer rq.connMutex.Unlock()
	if rq.conn == nil {
		// Subscriptions are sent after connecting.
		return nil
	}
	return rq.writeCommand(method, streams...)
}

// Requires connMutex.
func (rq *binanceBroker) writeCommand(method string, streams ...string) error {
	rq.commandId++
	msg, err := json.Marshal(streamCommand{Method: method, Params: streams, Id: rq.commandId})
	if err != nil {
		return err
	}
	return rq.conn.WriteMessage(websocket.TextMessage, msg)
}

func parseStreamKey(key string) (string, candles.Timeframe, error) {
	symbol, tf, found := strings.Cut(key, "@")
	if !found {
		return "", candles.OneMinute, fmt.Errorf("invalid stream key %s", key)
	}
	timeframe, err := candles.ParseTimeframe(tf)
	return symbol, timeframe, err
}

func (rq *binanceBroker) handleMessage(msg []byte) {
	var frame streamFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		rq.logger.Error().Err(err).Msg("invalid stream frame")
		return
	}
	if frame.Error != nil {
		rq.logger.Error().Int("code", frame.Error.Code).Str("msg", frame.Error.Msg).Msg("stream command failed")
		return
	}
	if frame.EventType != eventTypeKline {
		// Command replies and other events.
		return
	}
	if err := rq.validate.Struct(&frame); err != nil {
		rq.logger.Warn().Err(err).Msg("kline validation failed")
		return
	}
	update, err := convertKline(frame)
	if err != nil {
		rq.logger.Warn().Err(err).Str("symbol", frame.Symbol).Msg("invalid kline")
		return
	}
	err = rq.klineMap.AddNewData(chartapi.StreamKey(update.Symbol, update.Timeframe), update)
	if err != nil {
		rq.logger.Warn().Err(err).Msg("kline dispatch")
	}
}

func convertKline(frame streamFrame) (chartapi.KlineUpdate, error) {
	timeframe, err := candles.ParseTimeframe(frame.Kline.Interval)
	if err != nil {
		return chartapi.KlineUpdate{}, err
	}
	c := chartval.Candle{Time: frame.Kline.OpenTime}
	prices := []struct {
		s string
		p *float64
	}{
		{frame.Kline.Open, &c.Open},
		{frame.Kline.High, &c.High},
		{frame.Kline.Low, &c.Low},
		{frame.Kline.Close, &c.Close},
	}
	for _, v := range prices {
		if *v.p, err = chartval.ParseDecimalFloat(v.s); err != nil {
			return chartapi.KlineUpdate{}, fmt.Errorf("invalid price %q: %w", v.s, err)
		}
	}
	return chartapi.KlineUpdate{
		Symbol:    frame.Symbol,
		Timeframe: timeframe,
		Candle:    c,
		Closed:    frame.Kline.Closed,
	}, nil
}
