// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package keypad scans a passive 4x4 matrix keypad.
//
// Each key connects one row line to one column line. A key is probed by
// driving its row low and sensing its column through a pull-up: the column
// reads low only when the key is closed. All other lines float so that no
// other key can pull the column down.
//
// There is no debouncing and no multi-key handling: Scan reports the first
// closed key in row-major order.
package keypad

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

const (
	// Rows is the number of row lines.
	Rows = 4
	// Cols is the number of column lines.
	Cols = 4
)

// Key identifies a key by its row-major position, starting at 1.
type Key uint8

// None is returned by Scan when no key is closed.
const None Key = 0

// KeyAt returns the Key at the zero based (row, col).
func KeyAt(row, col int) Key {
	return Key(row*Cols + col + 1)
}

// Row returns the zero based row of k. It is undefined for None.
func (k Key) Row() int {
	return (int(k) - 1) / Cols
}

// Col returns the zero based column of k. It is undefined for None.
func (k Key) Col() int {
	return (int(k) - 1) % Cols
}

func (k Key) String() string {
	if k == None {
		return "none"
	}
	return fmt.Sprintf("K%d(%d,%d)", uint8(k), k.Row(), k.Col())
}

// Waiter provides the settle delay between driving a row and sensing a
// column.
type Waiter interface {
	WaitMS(n uint32)
}

// Opts holds scan timing.
type Opts struct {
	// SettleMS is the time given to a probed column to settle.
	SettleMS uint32
}

// DefaultOpts settles for 1ms.
var DefaultOpts = Opts{SettleMS: 1}

var errPosition = errors.New("keypad: position out of range")

// Dev is a matrix keypad on eight dedicated GPIO lines.
type Dev struct {
	rows [Rows]gpio.PinIO
	cols [Cols]gpio.PinIO
	w    Waiter
	opts Opts
}

// New returns a keypad on the given row and column lines. If opts is nil,
// DefaultOpts is used.
func New(rows, cols []gpio.PinIO, w Waiter, opts *Opts) (*Dev, error) {
	if len(rows) != Rows || len(cols) != Cols {
		return nil, fmt.Errorf("keypad: need %d rows and %d columns, got %d and %d", Rows, Cols, len(rows), len(cols))
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{w: w, opts: *opts}
	copy(d.rows[:], rows)
	copy(d.cols[:], cols)
	return d, d.release()
}

// release floats every line.
func (d *Dev) release() error {
	for _, l := range d.lines() {
		if err := l.In(gpio.Float, gpio.NoEdge); err != nil {
			return fmt.Errorf("keypad: %w", err)
		}
	}
	return nil
}

func (d *Dev) lines() []gpio.PinIO {
	return append(d.rows[:], d.cols[:]...)
}

// IsPressed reports whether the key at the zero based (row, col) is closed.
func (d *Dev) IsPressed(row, col int) (bool, error) {
	if row < 0 || row >= Rows || col < 0 || col >= Cols {
		return false, errPosition
	}
	if err := d.release(); err != nil {
		return false, err
	}
	if err := d.rows[row].Out(gpio.Low); err != nil {
		return false, fmt.Errorf("keypad: %w", err)
	}
	if err := d.cols[col].In(gpio.PullUp, gpio.NoEdge); err != nil {
		return false, fmt.Errorf("keypad: %w", err)
	}
	d.w.WaitMS(d.opts.SettleMS)
	return d.cols[col].Read() == gpio.Low, nil
}

// Scan probes all keys in row-major order and returns the first closed one,
// or None.
func (d *Dev) Scan() (Key, error) {
	for row := range Rows {
		for col := range Cols {
			pressed, err := d.IsPressed(row, col)
			if err != nil {
				return None, err
			}
			if pressed {
				return KeyAt(row, col), nil
			}
		}
	}
	return None, nil
}

// Halt floats every line.
func (d *Dev) Halt() error {
	return d.release()
}

func (d *Dev) String() string {
	return fmt.Sprintf("Keypad{rows %s..%s, cols %s..%s}", d.rows[0], d.rows[Rows-1], d.cols[0], d.cols[Cols-1])
}
