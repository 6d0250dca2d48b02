// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package widgets

import (
	"image"
	"sync"
	"time"

	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/widget/material"
)

// MessageField shows the most recent error message for a limited time.
// Messages may be set from any goroutine.
type MessageField struct {
	Timeout time.Duration
	text    string
	shownAt time.Time
	mutex   sync.Mutex
}

const DefaultMessageTimeout = 10 * time.Second

func NewMessageField() *MessageField {
	return &MessageField{Timeout: DefaultMessageTimeout}
}

func (f *MessageField) SetMessage(txt string, now time.Time) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.text = txt
	f.shownAt = now
}

// Message returns the current message, or false if it has expired.
func (f *MessageField) Message(now time.Time) (string, bool) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.text == "" || now.Sub(f.shownAt) >= f.Timeout {
		return "", false
	}
	return f.text, true
}

func (f *MessageField) expiry() time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.shownAt.Add(f.Timeout)
}

// Layout draws the message if there is one. A redraw is scheduled for the time it expires.
func (f *MessageField) Layout(gtx layout.Context, th *material.Theme, pth *PlotTheme) layout.Dimensions {
	txt, ok := f.Message(gtx.Now)
	if !ok {
		return layout.Dimensions{}
	}
	gtx.Execute(op.InvalidateCmd{At: f.expiry()})
	return LayoutMessage(txt, gtx, th, pth)
}

func LayoutMessage(txt string, gtx layout.Context, th *material.Theme, pth *PlotTheme) layout.Dimensions {
	macro := op.Record(gtx.Ops)
	lbl := material.Body1(th, txt)
	lbl.Color = pth.FrameTextColor
	dims := lbl.Layout(gtx)
	call := macro.Stop()

	clipRect := image.Rectangle{Max: image.Point{X: gtx.Dp(50) + dims.Size.X, Y: gtx.Dp(40) + dims.Size.Y}}
	defer clip.Rect(clipRect).Push(gtx.Ops).Pop()
	paint.Fill(gtx.Ops, pth.MessageBgColor)

	textArea := op.Offset(image.Point{X: clipRect.Min.X + gtx.Dp(25), Y: clipRect.Min.Y + gtx.Dp(20)}).Push(gtx.Ops)
	// Run recorded drawing.
	call.Add(gtx.Ops)
	textArea.Pop()
	return layout.Dimensions{Size: clipRect.Size()}
}
