// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package initapp

import (
	"coinchart/brokers/binance"
	"coinchart/cache"
	"coinchart/chartapi"
	"coinchart/chartviz"
	"coinchart/config"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// InitApp reads the configuration and creates the market data provider before the chart window is opened.
type InitApp struct {
	config        config.Config
	broker        map[config.BrokerId]chartapi.MarketDataProvider
	defaultBroker config.BrokerId
	logger        zerolog.Logger
}

func NewInitApp(c config.Config, logger zerolog.Logger) *InitApp {
	return &InitApp{
		config: c,
		broker: make(map[config.BrokerId]chartapi.MarketDataProvider),
		logger: logger,
	}
}

func (a *InitApp) reloadConfiguration() error {
	appConfig, err := a.config.Copy()
	if err != nil {
		return err
	}
	if _, ok := appConfig.BrokerConfig[binance.GetBrokerId()]; ok {
		r := binance.NewBroker(a.logger)
		if err = r.ReadConfig(a.config); err != nil {
			return fmt.Errorf("invalid %s configuration: %w", binance.GetBrokerId(), err)
		}
		a.broker[binance.GetBrokerId()] = r
		a.defaultBroker = binance.GetBrokerId()
	}
	if len(a.broker) == 0 {
		return errors.New("missing broker configuration")
	}
	return nil
}

// Run opens the chart window and exits the process once it is closed.
func (a *InitApp) Run(ctx context.Context) {
	if err := a.reloadConfiguration(); err != nil {
		a.logger.Fatal().Err(err).Msg("initialization failed")
	}
	s, err := chartviz.NewChartApp(a.config, a.broker[a.defaultBroker], cache.NewLocalCandleCache(a.defaultBroker), a.logger)
	if err != nil {
		a.logger.Fatal().Err(err).Msg("app initialization failed")
	}
	s.Run(ctx)

	os.Exit(0)
}
