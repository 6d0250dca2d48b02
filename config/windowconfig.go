// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package config

import (
	"image"
)

const (
	minWindowWidth  = 320
	minWindowHeight = 240
)

type WindowConfig struct {
	Size image.Point `yaml:",omitempty"`
}

func NewWindowConfig() WindowConfig {
	return WindowConfig{}
}

func (w *WindowConfig) sanitize() {
	// A zero size means "use the platform default".
	if w.Size == (image.Point{}) {
		return
	}
	if w.Size.X < minWindowWidth || w.Size.Y < minWindowHeight {
		w.Size = image.Point{}
	}
}
