// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package mock

import (
	"bufio"
	"coinchart/config"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// NewLogger returns a logger whose JSON lines can be read from the scanner.
func NewLogger(t *testing.T) (zerolog.Logger, *bufio.Scanner) {
	r, w, err := os.Pipe()
	if err != nil {
		assert.Fail(t, "failed to create logger mock: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	t.Cleanup(func() { w.Close() })
	return zerolog.New(w).With().Timestamp().Logger(), bufio.NewScanner(r)
}

func NewBrokerConfig(brokerId config.BrokerId, dataUrl string) config.Config {
	c := NewTestConfig()
	appConfig, _ := c.Lock()
	brokerConfig := appConfig.BrokerConfig[brokerId]
	brokerConfig.DataUrl = dataUrl
	brokerConfig.WsUrl = "ws" + strings.TrimPrefix(dataUrl, "http")
	brokerConfig.DataTimeoutSeconds = 2
	appConfig.BrokerConfig[brokerId] = brokerConfig
	_ = c.Unlock(appConfig)
	return c
}
