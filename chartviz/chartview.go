// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartviz

import (
	"coinchart/cache"
	"coinchart/candles"
	"coinchart/chartapi"
	"coinchart/chartval"
	"coinchart/config"
	"coinchart/widgets"
	"context"
	"fmt"
	"math"

	"gioui.org/layout"
	"gioui.org/widget/material"
	"github.com/rs/zerolog"
)

// chartView is the chart of one symbol and timeframe with its data.
type chartView struct {
	series         *chartval.Series
	loader         *HistoryLoader
	widget         *ChartWidget
	visibleCandles int
}

type chartViewConfig struct {
	Symbol        string
	Timeframe     candles.Timeframe
	ChartConfig   config.ChartConfig
	Requester     chartapi.CandleRequester
	Cache         cache.CandleCache
	Updater       UiUpdater
	OnError       func(error)
	Theme         *widgets.PlotTheme
	MaterialTheme *material.Theme
	Logger        zerolog.Logger
}

func newChartView(ctx context.Context, cfg chartViewConfig) *chartView {
	series := chartval.NewSeries(cfg.Symbol, cfg.Timeframe)
	loader := NewHistoryLoader(series, cfg.ChartConfig.HistoryBatchSize, cfg.Cache, cfg.Updater, cfg.OnError, cfg.Logger)
	v := &chartView{
		series: series,
		loader: loader,
		widget: NewChartWidget(ChartWidgetConfig{
			Series:           series,
			Theme:            cfg.Theme,
			MaterialTheme:    cfg.MaterialTheme,
			ChartConfig:      cfg.ChartConfig,
			Loading:          loader.Loading(),
			OnHistoryRequest: loader.RequestHistory,
			Logger:           cfg.Logger,
		}),
		visibleCandles: cfg.ChartConfig.InitialVisibleCandles,
	}
	loader.Initialize(ctx, cfg.Requester)
	loader.LoadInitial()
	return v
}

// applyUpdates passes merged candles to the chart. Call from the UI goroutine before Layout.
func (v *chartView) applyUpdates(streamChanged bool) {
	for _, r := range v.loader.TakeResults() {
		switch {
		case !v.widget.Initialized():
			v.widget.Reset(v.visibleCandles)
		case r.History && r.Err == nil:
			v.widget.Chart.Restore(r.Restore)
		case r.Added > 0:
			v.widget.Chart.OnCandlesChanged()
		}
	}
	if streamChanged {
		if !v.widget.Initialized() {
			v.widget.Reset(v.visibleCandles)
		} else {
			v.widget.Chart.OnCandlesChanged()
		}
	}
}

func (v *chartView) Layout(gtx layout.Context, livePrice float64) layout.Dimensions {
	return v.widget.Layout(gtx, livePrice)
}

// titleField returns the symbol with its latest price and the change within the latest candle.
func (v *chartView) titleField() widgets.TitleField {
	t := widgets.TitleField{Symbol: v.series.Symbol, Timeframe: v.series.Timeframe.String()}
	last, ok := v.series.Last()
	if !ok {
		return t
	}
	t.Price = chartval.FormatPrice(last.Close)
	t.Up = last.IsGreen()
	if last.Open > chartval.NearZero {
		change := (last.Close - last.Open) / last.Open * 100
		if math.Abs(change) < 0.005 {
			change = 0
		}
		t.Change = fmt.Sprintf("%+.2f%%", change)
	}
	return t
}

func (v *chartView) close() {
	v.loader.Cleanup()
}
