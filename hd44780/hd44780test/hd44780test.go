// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780test is meant to be used to test drivers using an HD44780
// parallel bus. It simulates the controller side of the bus.
package hd44780test

import (
	"bytes"
	"sync"

	"github.com/GermanBionicSystems/voltmeter/hd44780"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// Op is one transfer seen by the controller.
type Op struct {
	// Data is true when RS selected the data register.
	Data bool
	// Read is true for transfers where the controller drove the bus.
	Read bool
	// Busy is true when the transfer happened while the busy flag was set.
	Busy bool
	V    byte
}

type line int

const (
	lineRS line = iota
	lineRW
	lineE
)

const (
	ddramSize = 0x80
	floating  = 0xff
)

// Controller simulates an HD44780 wired to an 8-bit bus.
//
// After every executed write the busy flag stays set for BusyReads status
// reads. Writes that arrive before the host first polls the status register
// never set the busy flag, as the datasheet requires the host to time them.
type Controller struct {
	// BusyReads is the number of status reads that report busy after each
	// write.
	BusyReads int

	mu       sync.Mutex
	rs       gpio.Level
	rw       gpio.Level
	e        gpio.Level
	hostDir  hd44780.Direction
	hostData byte
	driving  bool
	out      byte

	busy    int
	polled  bool
	addr    byte
	ddram   [ddramSize]byte
	twoLine bool
	inc     bool
	on      bool
	cursor  bool
	blink   bool
	fn      byte

	ops         []Op
	statusReads int
	violations  int
	contentions int
}

// New returns a controller in its power-on state.
func New(busyReads int) *Controller {
	c := &Controller{BusyReads: busyReads, inc: true}
	c.clear()
	return c
}

// Pins returns the RS, RW and E lines as seen by the host.
func (c *Controller) Pins() (rs, rw, e gpio.PinIO) {
	return &pin{Pin: &gpiotest.Pin{N: "RS", Num: 0}, c: c, l: lineRS},
		&pin{Pin: &gpiotest.Pin{N: "RW", Num: 1}, c: c, l: lineRW},
		&pin{Pin: &gpiotest.Pin{N: "E", Num: 2}, c: c, l: lineE}
}

// Port returns the data bus as seen by the host.
func (c *Controller) Port() hd44780.Port {
	return &port{c: c}
}

// Ops returns the transfers seen since the last Reset.
func (c *Controller) Ops() []Op {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Op(nil), c.ops...)
}

// StatusReads returns the number of busy flag reads since the last Reset.
func (c *Controller) StatusReads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusReads
}

// Violations returns the number of writes received while busy.
func (c *Controller) Violations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.violations
}

// Contentions returns the number of times both sides drove the bus.
func (c *Controller) Contentions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contentions
}

// Reset clears the transfer log and counters. Controller state is kept.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = nil
	c.statusReads = 0
	c.violations = 0
	c.contentions = 0
}

// Address returns the DDRAM address counter.
func (c *Controller) Address() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// Function returns the last function set command.
func (c *Controller) Function() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fn
}

// State returns the display control flags.
func (c *Controller) State() (on, cursor, blink, increment bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.on, c.cursor, c.blink, c.inc
}

// Lines returns the first cols characters of every line.
func (c *Controller) Lines(cols int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.twoLine {
		return []string{string(c.ddram[:cols])}
	}
	return []string{string(c.ddram[:cols]), string(c.ddram[0x40 : 0x40+cols])}
}

// Line returns line row with trailing blanks removed.
func (c *Controller) Line(row int) string {
	lines := c.Lines(hd44780.LineStride)
	if row >= len(lines) {
		return ""
	}
	return string(bytes.TrimRight([]byte(lines[row]), " "))
}

func (c *Controller) drive(l line, lvl gpio.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch l {
	case lineRS:
		c.rs = lvl
	case lineRW:
		c.rw = lvl
	case lineE:
		if lvl == c.e {
			return
		}
		c.e = lvl
		if lvl == gpio.High {
			c.rise()
		} else {
			c.fall()
		}
	}
}

// rise handles the E rising edge. Reads are presented on the bus here.
func (c *Controller) rise() {
	if c.rw != gpio.High {
		return
	}
	if c.hostDir == hd44780.Output {
		c.contentions++
	}
	c.driving = true
	if c.rs == gpio.Low {
		c.polled = true
		c.statusReads++
		c.out = c.addr
		if c.busy > 0 {
			c.out |= 0x80
			c.busy--
			c.ops = append(c.ops, Op{Read: true, Busy: true, V: c.out})
			return
		}
		c.ops = append(c.ops, Op{Read: true, V: c.out})
		return
	}
	c.out = c.ddram[c.addr]
	c.ops = append(c.ops, Op{Data: true, Read: true, Busy: c.busy > 0, V: c.out})
	c.step(true)
}

// fall handles the E falling edge. Writes are latched here.
func (c *Controller) fall() {
	if c.rw == gpio.High {
		c.driving = false
		return
	}
	v := byte(floating)
	if c.hostDir == hd44780.Output {
		v = c.hostData
	}
	busy := c.busy > 0
	if busy {
		c.violations++
	}
	c.ops = append(c.ops, Op{Data: c.rs == gpio.High, Busy: busy, V: v})
	if c.rs == gpio.High {
		c.ddram[c.addr] = v
		c.step(c.inc)
	} else {
		c.execute(v)
	}
	if c.polled {
		c.busy = c.BusyReads
	}
}

func (c *Controller) execute(v byte) {
	switch {
	case v&0x80 != 0:
		c.addr = v & 0x7f
	case v&0x40 != 0:
		// CGRAM is not simulated.
	case v&0x20 != 0:
		c.fn = v
		c.twoLine = v&0x08 != 0
	case v&0x10 != 0:
		if v&0x08 == 0 {
			c.step(v&0x04 != 0)
		}
	case v&0x08 != 0:
		c.on = v&0x04 != 0
		c.cursor = v&0x02 != 0
		c.blink = v&0x01 != 0
	case v&0x04 != 0:
		c.inc = v&0x02 != 0
	case v&0x02 != 0:
		c.addr = 0
	case v&0x01 != 0:
		c.clear()
	}
}

func (c *Controller) clear() {
	for i := range c.ddram {
		c.ddram[i] = ' '
	}
	c.addr = 0
	c.inc = true
}

// step moves the address counter by one cell, wrapping between lines the way
// the controller does.
func (c *Controller) step(forward bool) {
	if !c.twoLine {
		if forward {
			c.addr = (c.addr + 1) % 0x50
		} else {
			c.addr = (c.addr + 0x4f) % 0x50
		}
		return
	}
	if forward {
		switch c.addr {
		case 0x27:
			c.addr = 0x40
		case 0x67:
			c.addr = 0x00
		default:
			c.addr++
		}
		return
	}
	switch c.addr {
	case 0x00:
		c.addr = 0x67
	case 0x40:
		c.addr = 0x27
	default:
		c.addr--
	}
}

type pin struct {
	*gpiotest.Pin
	c *Controller
	l line
}

func (p *pin) Out(l gpio.Level) error {
	if err := p.Pin.Out(l); err != nil {
		return err
	}
	p.c.drive(p.l, l)
	return nil
}

type port struct {
	c *Controller
}

func (p *port) SetDirection(d hd44780.Direction) error {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	p.c.hostDir = d
	return nil
}

func (p *port) Write(v byte) error {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	if p.c.driving {
		p.c.contentions++
	}
	p.c.hostData = v
	return nil
}

func (p *port) Read() (byte, error) {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	if !p.c.driving {
		return floating, nil
	}
	return p.c.out, nil
}

var _ gpio.PinIO = &pin{}
