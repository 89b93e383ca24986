// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package keypadtest simulates the lines of a passive 4x4 key matrix.
package keypadtest

import (
	"fmt"
	"sync"

	"github.com/GermanBionicSystems/voltmeter/keypad"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// Matrix is a set of switches between row and column lines. A column pulled
// up reads low when a closed switch connects it to a row driven low.
type Matrix struct {
	mu      sync.Mutex
	closed  [keypad.Rows][keypad.Cols]bool
	driven  [keypad.Rows]bool
	level   [keypad.Rows]gpio.Level
	pull    [keypad.Cols]gpio.Pull
	reads   int
	drivers int
	rows    []gpio.PinIO
	cols    []gpio.PinIO
}

// New returns a matrix with every switch open.
func New() *Matrix {
	m := &Matrix{}
	for i := range keypad.Rows {
		m.rows = append(m.rows, &rowPin{Pin: &gpiotest.Pin{N: fmt.Sprintf("ROW%d", i), Num: 4 + i}, m: m, i: i})
	}
	for i := range keypad.Cols {
		m.cols = append(m.cols, &colPin{Pin: &gpiotest.Pin{N: fmt.Sprintf("COL%d", i), Num: i}, m: m, i: i})
	}
	return m
}

// Rows returns the row lines.
func (m *Matrix) Rows() []gpio.PinIO {
	return m.rows
}

// Cols returns the column lines.
func (m *Matrix) Cols() []gpio.PinIO {
	return m.cols
}

// Press closes the switch at the zero based (row, col).
func (m *Matrix) Press(row, col int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed[row][col] = true
}

// Release opens the switch at the zero based (row, col).
func (m *Matrix) Release(row, col int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed[row][col] = false
}

// ReleaseAll opens every switch.
func (m *Matrix) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = [keypad.Rows][keypad.Cols]bool{}
}

// Reads returns the number of column reads so far.
func (m *Matrix) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// MaxDrivers returns the largest number of rows seen driven at once.
func (m *Matrix) MaxDrivers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drivers
}

func (m *Matrix) countDrivers() {
	n := 0
	for _, d := range m.driven {
		if d {
			n++
		}
	}
	if n > m.drivers {
		m.drivers = n
	}
}

type rowPin struct {
	*gpiotest.Pin
	m *Matrix
	i int
}

func (p *rowPin) In(pull gpio.Pull, edge gpio.Edge) error {
	if err := p.Pin.In(pull, edge); err != nil {
		return err
	}
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	p.m.driven[p.i] = false
	return nil
}

func (p *rowPin) Out(l gpio.Level) error {
	if err := p.Pin.Out(l); err != nil {
		return err
	}
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	p.m.driven[p.i] = true
	p.m.level[p.i] = l
	p.m.countDrivers()
	return nil
}

type colPin struct {
	*gpiotest.Pin
	m *Matrix
	i int
}

func (p *colPin) In(pull gpio.Pull, edge gpio.Edge) error {
	if err := p.Pin.In(pull, edge); err != nil {
		return err
	}
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	p.m.pull[p.i] = pull
	return nil
}

func (p *colPin) Read() gpio.Level {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	p.m.reads++
	for row := range keypad.Rows {
		if p.m.closed[row][p.i] && p.m.driven[row] {
			return p.m.level[row]
		}
	}
	return p.m.pull[p.i] == gpio.PullUp
}

var _ gpio.PinIO = &rowPin{}
var _ gpio.PinIO = &colPin{}
