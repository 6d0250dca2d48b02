// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package config

import (
	"coinchart/candles"
	"coinchart/chartval"

	"github.com/robfig/cron/v3"
)

const (
	maxPrefetchThresholdCandles = 500
	// Binance returns at most 1000 klines per request.
	maxHistoryBatchSize    = 1000
	maxAnimationDurationMs = 5000
	minLabelFontSize       = 6
	maxLabelFontSize       = 48
	minInitialVisible      = 5
	maxInitialVisible      = 100
)

type ChartConfig struct {
	Symbol                   string
	Timeframe                string
	PrefetchThresholdCandles int
	HistoryBatchSize         int
	AnimationDurationMs      int
	LabelFontSize            int
	RefreshSchedule          string
	InitialVisibleCandles    int
}

var defaultChartConfig = NewChartConfig()

func NewChartConfig() ChartConfig {
	return ChartConfig{
		Symbol:                   "BTCUSDT",
		Timeframe:                candles.OneMinute.String(),
		PrefetchThresholdCandles: 20,
		HistoryBatchSize:         500,
		AnimationDurationMs:      300,
		LabelFontSize:            11,
		RefreshSchedule:          "@every 20s",
		InitialVisibleCandles:    80,
	}
}

// GetTimeframe returns the configured timeframe, which is valid after sanitizing.
func (c *ChartConfig) GetTimeframe() candles.Timeframe {
	tf, err := candles.ParseTimeframe(c.Timeframe)
	if err != nil {
		return candles.OneMinute
	}
	return tf
}

func (c *ChartConfig) sanitize() {
	def := defaultChartConfig
	c.Symbol = chartval.NormalizeSymbol(c.Symbol)
	if !chartval.IsValidSymbol(c.Symbol) {
		c.Symbol = def.Symbol
	}
	if _, err := candles.ParseTimeframe(c.Timeframe); err != nil {
		c.Timeframe = def.Timeframe
	}
	if c.PrefetchThresholdCandles <= 0 || c.PrefetchThresholdCandles > maxPrefetchThresholdCandles {
		c.PrefetchThresholdCandles = def.PrefetchThresholdCandles
	}
	if c.HistoryBatchSize <= 0 || c.HistoryBatchSize > maxHistoryBatchSize {
		c.HistoryBatchSize = def.HistoryBatchSize
	}
	if c.AnimationDurationMs < 0 || c.AnimationDurationMs > maxAnimationDurationMs {
		c.AnimationDurationMs = def.AnimationDurationMs
	}
	if c.LabelFontSize < minLabelFontSize || c.LabelFontSize > maxLabelFontSize {
		c.LabelFontSize = def.LabelFontSize
	}
	if _, err := cron.ParseStandard(c.RefreshSchedule); err != nil {
		c.RefreshSchedule = def.RefreshSchedule
	}
	if c.InitialVisibleCandles < minInitialVisible || c.InitialVisibleCandles > maxInitialVisible {
		c.InitialVisibleCandles = def.InitialVisibleCandles
	}
}
