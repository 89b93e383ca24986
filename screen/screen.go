// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package screen renders the text of a character LCD to the terminal using
// ANSI color codes, framed by a row of backlight colored blocks.
//
// Useful while the panel is not wired yet, or to watch a simulated board.
package screen

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strings"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// Opts represents the options available for this display.
type Opts struct {
	// Cols is the number of visible columns.
	Cols int
	// Backlight is the panel color.
	Backlight color.NRGBA
	Palette   *ansi256.Palette
	// W defaults to stdout.
	W io.Writer

	_ struct{}
}

// DefaultBacklight is the yellow-green of common STN panels.
var DefaultBacklight = color.NRGBA{R: 0x9c, G: 0xc4, B: 0x1b, A: 0xff}

// Dev is a character panel emulator that outputs to the console.
type Dev struct {
	w       io.Writer
	cols    int
	bl      color.NRGBA
	palette ansi256.Palette

	drawn int
	buf   bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	bl := opts.Backlight
	if bl == (color.NRGBA{}) {
		bl = DefaultBacklight
	}
	return &Dev{w: w, cols: opts.Cols, bl: bl, palette: *p}
}

func (d *Dev) String() string {
	return fmt.Sprintf("Screen{%d cols}", d.cols)
}

// Show redraws lines in place of the previous frame. Lines are cut or padded
// to the panel width.
func (d *Dev) Show(lines []string) error {
	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	if d.drawn > 0 {
		fmt.Fprintf(&d.buf, "\033[%dA", d.drawn)
	}
	block := d.palette.Block(d.bl)
	border := strings.Repeat(block, d.cols+2)
	_, _ = d.buf.WriteString("\r\033[0m" + border + "\033[0m\n")
	for _, l := range lines {
		if len(l) > d.cols {
			l = l[:d.cols]
		}
		fmt.Fprintf(&d.buf, "\r%s\033[0m%-*s%s\033[0m\n", block, d.cols, l, block)
	}
	_, _ = d.buf.WriteString("\r" + border + "\033[0m\n")
	d.drawn = len(lines) + 2
	_, err := d.buf.WriteTo(d.w)
	return err
}

// Halt implements conn.Resource.
//
// It resets the terminal colors so the console is not corrupted.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\033[0m"))
	return err
}

var _ fmt.Stringer = &Dev{}
