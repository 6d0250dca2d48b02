// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartviz

import (
	"coinchart/cache"
	"coinchart/candles"
	"coinchart/chartapi"
	"coinchart/config"
	"coinchart/widgets"
	"context"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"gioui.org/app"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Closed klines are written to the cache with this schedule.
const cacheFlushSchedule = "@every 1m"

type ChartApp struct {
	win               *app.Window
	windowSize        image.Point
	config            config.Config
	chartConfig       config.ChartConfig
	provider          chartapi.MarketDataProvider
	cache             cache.CandleCache
	matTheme          *material.Theme
	plotTheme         *widgets.PlotTheme
	timeframeDropDown *widgets.DropDown
	latestButton      widget.Clickable
	messageField      *widgets.MessageField
	feed              *LiveFeed
	view              *chartView
	viewMutex         sync.Mutex
	cron              *cron.Cron
	terminateWg       sync.WaitGroup
	logger            zerolog.Logger
}

func NewChartApp(c config.Config, provider chartapi.MarketDataProvider, candleCache cache.CandleCache, logger zerolog.Logger) (*ChartApp, error) {
	appConfig, err := c.Copy()
	if err != nil {
		return nil, fmt.Errorf("could not read configuration: %w", err)
	}
	a := &ChartApp{
		config:       c,
		chartConfig:  appConfig.ChartConfig,
		windowSize:   appConfig.WindowConfig.Size,
		provider:     provider,
		cache:        candleCache,
		messageField: widgets.NewMessageField(),
		logger:       logger,
	}
	a.matTheme, a.plotTheme = widgets.NewThemes(appConfig.LightTheme)
	a.timeframeDropDown = widgets.NewDropDown(candles.UiStringList(), int(appConfig.ChartConfig.GetTimeframe()))
	a.feed = NewLiveFeed(candleCache, a, a.showError, logger)
	a.cron = cron.New(cron.WithLogger(cronLogger{logger: logger}))
	if _, err = a.cron.AddFunc(a.chartConfig.RefreshSchedule, a.refresh); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", a.chartConfig.RefreshSchedule, err)
	}
	if _, err = a.cron.AddFunc(cacheFlushSchedule, a.feed.FlushCache); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *ChartApp) Run(ctx context.Context) {
	a.createWindow()
	a.feed.Initialize(ctx, a.provider)
	a.setView(ctx, a.chartConfig.GetTimeframe())
	a.cron.Start()
	err := a.handleEvents(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("terminating with error")
	}
	a.terminate()
}

// Invalidate requests a redraw. It may be called from any goroutine.
func (a *ChartApp) Invalidate() {
	if a.win != nil {
		a.win.Invalidate()
	}
}

func (a *ChartApp) showError(err error) {
	a.messageField.SetMessage(err.Error(), time.Now())
	a.Invalidate()
}

func (a *ChartApp) createWindow() {
	size := a.windowSize
	if size.X == 0 || size.Y == 0 {
		size = image.Pt(1280, 800)
	}
	a.win = app.NewWindow(
		app.Title(fmt.Sprintf("%s %s", a.config.GetAppName(), a.chartConfig.Symbol)),
		app.Size(unit.Dp(size.X), unit.Dp(size.Y)),
	)
	a.win.Perform(system.ActionCenter)
}

// setView replaces the current chart with a new one for the given timeframe.
func (a *ChartApp) setView(ctx context.Context, timeframe candles.Timeframe) {
	v := newChartView(ctx, chartViewConfig{
		Symbol:        a.chartConfig.Symbol,
		Timeframe:     timeframe,
		ChartConfig:   a.chartConfig,
		Requester:     a.provider,
		Cache:         a.cache,
		Updater:       a,
		OnError:       a.showError,
		Theme:         a.plotTheme,
		MaterialTheme: a.matTheme,
		Logger:        a.logger,
	})
	a.viewMutex.Lock()
	old := a.view
	a.view = v
	a.viewMutex.Unlock()
	a.feed.SetSeries(v.series)
	if old != nil {
		// Pending requests may take a while, do not block the UI.
		a.terminateWg.Add(1)
		go func() {
			defer a.terminateWg.Done()
			old.close()
		}()
	}
	a.chartConfig.Timeframe = timeframe.String()
	a.logger.Info().Str("symbol", a.chartConfig.Symbol).Stringer("timeframe", timeframe).Msg("showing chart")
}

func (a *ChartApp) currentView() *chartView {
	a.viewMutex.Lock()
	defer a.viewMutex.Unlock()
	return a.view
}

func (a *ChartApp) refresh() {
	if v := a.currentView(); v != nil {
		v.loader.Refresh()
	}
}

func (a *ChartApp) handleEvents(ctx context.Context) error {
	var ops op.Ops
	for {
		switch e := a.win.NextEvent().(type) {
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			a.windowSize = image.Pt(int(gtx.Metric.PxToDp(e.Size.X)), int(gtx.Metric.PxToDp(e.Size.Y)))
			paint.Fill(gtx.Ops, a.matTheme.Bg)
			a.layout(ctx, gtx)
			e.Frame(gtx.Ops)
		case app.DestroyEvent:
			return e.Err
		}
	}
}

func (a *ChartApp) handleInput(ctx context.Context, gtx layout.Context) {
	if i := a.timeframeDropDown.ClickedIndex(); i >= 0 {
		a.timeframeDropDown.SetSelectedIndex(i)
		if tf := candles.Timeframe(i); tf.IsValid() && tf != a.view.series.Timeframe {
			a.setView(ctx, tf)
		}
	}
	if a.latestButton.Clicked(gtx) {
		a.view.widget.Reset(a.view.visibleCandles)
		a.view.widget.Chart.FollowLatest()
	}
}

func (a *ChartApp) layout(ctx context.Context, gtx layout.Context) {
	a.handleInput(ctx, gtx)
	v := a.view
	v.applyUpdates(a.feed.TakeChanged())
	reference, ok := a.feed.LatestPrice(v.series)
	if !ok {
		reference = math.NaN()
	}

	layout.Stack{}.Layout(gtx,
		layout.Expanded(func(gtx layout.Context) layout.Dimensions {
			return v.Layout(gtx, reference)
		}),
		layout.Stacked(func(gtx layout.Context) layout.Dimensions {
			return layout.Inset{Left: 5, Top: 5}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				return a.layoutToolbar(gtx, v)
			})
		}),
	)
	layout.Center.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		if a.provider.RemainingApiLimit() < 1 {
			return widgets.LayoutMessage("API limit exceeded. No more requests possible for now.", gtx, a.matTheme, a.plotTheme)
		}
		return a.messageField.Layout(gtx, a.matTheme, a.plotTheme)
	})
}

func (a *ChartApp) layoutToolbar(gtx layout.Context, v *chartView) layout.Dimensions {
	gtx.Constraints.Min = image.Point{}
	return layout.Flex{Alignment: layout.Start}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return v.titleField().Layout(gtx, a.matTheme, a.plotTheme)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.Inset{Top: 10, Left: 10}.Layout(gtx, material.Body1(a.matTheme, "Timeframe:").Layout)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.Inset{Left: 10}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				return a.timeframeDropDown.Layout(gtx, a.matTheme)
			})
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			button := material.Button(a.matTheme, &a.latestButton, "Latest")
			return layout.Inset{Top: 10, Left: 10}.Layout(gtx, button.Layout)
		}),
	)
}

func (a *ChartApp) saveConfiguration() error {
	appConfig, err := a.config.Lock()
	if err != nil {
		return err
	}
	appConfig.ChartConfig.Timeframe = a.chartConfig.Timeframe
	appConfig.WindowConfig.Size = a.windowSize
	return a.config.Unlock(appConfig)
}

func (a *ChartApp) terminate() {
	if err := a.saveConfiguration(); err != nil {
		a.logger.Error().Err(err).Msg("error saving configuration")
	}
	<-a.cron.Stop().Done()
	if v := a.currentView(); v != nil {
		v.close()
	}
	a.feed.Cleanup()
	a.terminateWg.Wait()
	a.logger.Info().Msg("terminated")
}

// cronLogger passes the scheduler log to zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
