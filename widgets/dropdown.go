// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package widgets

import (
	"image/color"

	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"gioui.org/x/component"
)

type DropDownItem struct {
	Text       string
	ItemButton *widget.Clickable
}

// DropDown is a button showing the selected item, which opens a menu of all items.
type DropDown struct {
	items         []DropDownItem
	selectedIndex int
	clickedIndex  int
	menu          component.MenuState
	button        widget.Clickable
	toggled       bool
}

func NewDropDown(items []string, selectedIndex int) *DropDown {
	d := DropDown{
		selectedIndex: selectedIndex,
		clickedIndex:  -1,
	}
	d.items = make([]DropDownItem, len(items))
	for i, t := range items {
		d.items[i] = DropDownItem{Text: t, ItemButton: new(widget.Clickable)}
	}
	return &d
}

func newMenu(th *material.Theme, state *component.MenuState) component.MenuStyle {
	m := component.Menu(th, state)
	m.AmbientColor = th.Palette.ContrastBg
	m.PenumbraColor = color.NRGBA{}
	m.UmbraColor = color.NRGBA{}
	return m
}

// Retrieve index of the last clicked entry. Call from same goroutine as Layout.
// Returns -1 if nothing has been clicked since the last call.
func (d *DropDown) ClickedIndex() int {
	c := d.clickedIndex
	d.clickedIndex = -1
	return c
}

func (d *DropDown) SelectedIndex() int {
	return d.selectedIndex
}

// Set the currently selected item. Call from same goroutine as Layout.
func (d *DropDown) SetSelectedIndex(index int) {
	d.selectedIndex = index
}

func (d *DropDown) IsOpen() bool {
	return d.toggled
}

func (d *DropDown) handleInput(gtx layout.Context, th *material.Theme) {
	d.menu.Options = d.menu.Options[:0]
	for i, m := range d.items {
		// The button loses focus on release, so the press is what counts.
		if m.ItemButton.Pressed() && d.toggled {
			d.clickedIndex = i
			d.toggled = false
			gtx.Execute(op.InvalidateCmd{})
		}
		d.menu.Options = append(d.menu.Options, component.MenuItem(th, m.ItemButton, m.Text).Layout)
	}
	if d.button.Clicked(gtx) {
		gtx.Execute(key.FocusCmd{Tag: &d.button})
		d.toggled = !d.toggled
		gtx.Execute(op.InvalidateCmd{})
	} else if d.toggled && !gtx.Focused(&d.button) {
		d.toggled = false
		gtx.Execute(op.InvalidateCmd{})
	}
}

func (d *DropDown) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	d.handleInput(gtx, th)

	var buttonDims layout.Dimensions
	flexChildren := [2]layout.FlexChild{
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			var buttonText string
			if d.selectedIndex >= 0 && d.selectedIndex < len(d.items) {
				buttonText = d.items[d.selectedIndex].Text
			}
			button := material.Button(th, &d.button, buttonText)
			buttonDims = layout.Inset{Top: 10, Right: 1, Bottom: 0, Left: 1}.Layout(gtx, button.Layout)
			return buttonDims
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.Inset{Top: 2}.Layout(gtx, newMenu(th, &d.menu).Layout)
		}),
	}
	if d.toggled && len(d.items) > 0 {
		// The menu is drawn on top of everything else.
		macro := op.Record(gtx.Ops)
		layout.Flex{Axis: layout.Vertical}.Layout(gtx, flexChildren[:]...)
		op.Defer(gtx.Ops, macro.Stop())
	} else {
		layout.Flex{Axis: layout.Vertical}.Layout(gtx, flexChildren[0:1]...)
	}
	return buttonDims
}
