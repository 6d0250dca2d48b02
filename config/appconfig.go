// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package config

import (
	"github.com/barkimedes/go-deepcopy"
)

type BrokerId string

const BrokerBinance BrokerId = "binance"

type AppConfig struct {
	LightTheme   bool `yaml:",omitempty"`
	BrokerConfig map[BrokerId]BrokerConfig
	ChartConfig  ChartConfig
	WindowConfig WindowConfig
}

type BrokerConfig struct {
	DataUrl string `yaml:",omitempty"`
	WsUrl   string `yaml:",omitempty"`
	// Binance reports the used request weight per minute in the response headers.
	RequestWeightPerMinute int `yaml:",omitempty"`
	DataTimeoutSeconds     int `yaml:",omitempty"`
}

var defaultBrokerConfig = NewBrokerConfigMap()

func NewAppConfig() AppConfig {
	return AppConfig{
		BrokerConfig: NewBrokerConfigMap(),
		ChartConfig:  NewChartConfig(),
		WindowConfig: NewWindowConfig(),
	}
}

func NewBrokerConfigMap() map[BrokerId]BrokerConfig {
	return map[BrokerId]BrokerConfig{
		BrokerBinance: {
			DataUrl:                "https://api.binance.com/api/v3",
			WsUrl:                  "wss://stream.binance.com:9443",
			RequestWeightPerMinute: 6000,
			DataTimeoutSeconds:     10,
		},
	}
}

func (a *AppConfig) deepCopy() AppConfig {
	c, err := deepcopy.Anything(a)
	if err != nil {
		panic(err)
	}
	return *c.(*AppConfig)
}

func (a *AppConfig) Sanitize() {
	if a.BrokerConfig == nil {
		a.BrokerConfig = make(map[BrokerId]BrokerConfig)
	}
	// Brokers may be missing in older configuration files.
	for key, def := range defaultBrokerConfig {
		c, ok := a.BrokerConfig[key]
		if !ok {
			a.BrokerConfig[key] = def
			continue
		}
		if c.RequestWeightPerMinute <= 0 {
			c.RequestWeightPerMinute = def.RequestWeightPerMinute
		}
		if c.DataTimeoutSeconds <= 0 {
			c.DataTimeoutSeconds = def.DataTimeoutSeconds
		}
		a.BrokerConfig[key] = c
	}
	a.ChartConfig.sanitize()
	a.WindowConfig.sanitize()
	a.RestoreDefaults()
}

// We do not want to store certain default values in the configuration file,
// in order to avoid having to patch them.
func (a *AppConfig) RemoveDefaults() {
	for key, c := range a.BrokerConfig {
		def := defaultBrokerConfig[key]
		if c.DataUrl == def.DataUrl {
			c.DataUrl = ""
		}
		if c.WsUrl == def.WsUrl {
			c.WsUrl = ""
		}
		a.BrokerConfig[key] = c
	}
}

// Restore certain default values which are not stored in the configuration file.
func (a *AppConfig) RestoreDefaults() {
	for key, c := range a.BrokerConfig {
		def := defaultBrokerConfig[key]
		if len(c.DataUrl) == 0 {
			c.DataUrl = def.DataUrl
		}
		if len(c.WsUrl) == 0 {
			c.WsUrl = def.WsUrl
		}
		a.BrokerConfig[key] = c
	}
}
