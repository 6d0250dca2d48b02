// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package main

import (
	"coinchart/config"
	"coinchart/initapp"
	"context"
	"flag"
	"os"
	"time"

	"gioui.org/app"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var debug = flag.Bool("debug", false, "enable debug logging")

func main() {
	flag.Parse()
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	c := config.NewGlobalConfig()
	a := initapp.NewInitApp(c, log.Logger)
	go a.Run(context.Background())
	app.Main()
}
