// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Direction selects which side drives the shared data port.
type Direction bool

const (
	// Input releases the port so the controller can drive it.
	Input Direction = false
	// Output drives the port from the host.
	Output Direction = true
)

func (d Direction) String() string {
	if d == Output {
		return "Output"
	}
	return "Input"
}

// Register is the controller register addressed by the RS line.
type Register bool

const (
	Instruction Register = false
	Data        Register = true
)

// Port is the 8-bit bidirectional data bus between the host and the
// controller.
//
// The direction must be switched with SetDirection before every transfer:
// to Output before Write and to Input before Read. Driving the port while the
// controller drives it causes bus contention.
type Port interface {
	SetDirection(d Direction) error
	Write(v byte) error
	Read() (byte, error)
}

// Pulser holds a strobe for its minimum width.
type Pulser interface {
	Pulse()
}

var errDirection = errors.New("hd44780: data port used in the wrong direction")

// GPIOPort is a Port made of eight discrete GPIO lines, D0 first.
type GPIOPort struct {
	pins [8]gpio.PinIO
	dir  Direction
}

// NewGPIOPort returns a Port over pins D0..D7. The port starts as Input.
func NewGPIOPort(pins ...gpio.PinIO) (*GPIOPort, error) {
	if len(pins) != 8 {
		return nil, fmt.Errorf("hd44780: data port needs 8 pins, got %d", len(pins))
	}
	p := &GPIOPort{}
	copy(p.pins[:], pins)
	return p, p.SetDirection(Input)
}

// SetDirection implements Port.
func (p *GPIOPort) SetDirection(d Direction) error {
	if d == Input {
		for _, pin := range p.pins {
			if err := pin.In(gpio.Float, gpio.NoEdge); err != nil {
				return wrap(err)
			}
		}
	}
	p.dir = d
	return nil
}

// Write implements Port. The lines switch to output on the first write after
// SetDirection(Output).
func (p *GPIOPort) Write(v byte) error {
	if p.dir != Output {
		return errDirection
	}
	for bit, pin := range p.pins {
		if err := pin.Out(gpio.Level(v&(1<<bit) != 0)); err != nil {
			return wrap(err)
		}
	}
	return nil
}

// Read implements Port.
func (p *GPIOPort) Read() (byte, error) {
	if p.dir != Input {
		return 0, errDirection
	}
	var v byte
	for bit, pin := range p.pins {
		if pin.Read() == gpio.High {
			v |= 1 << bit
		}
	}
	return v, nil
}

func (p *GPIOPort) String() string {
	return fmt.Sprintf("GPIOPort{%s..%s}", p.pins[0], p.pins[7])
}

// Bus drives one transfer at a time over the data port and the register
// select (RS), read/write (RW) and enable (E) lines.
type Bus struct {
	data      Port
	rs, rw, e gpio.PinOut
	clk       Pulser
}

// NewBus returns a Bus with all three control lines driven low.
func NewBus(data Port, rs, rw, e gpio.PinOut, clk Pulser) (*Bus, error) {
	b := &Bus{data: data, rs: rs, rw: rw, e: e, clk: clk}
	for _, pin := range []gpio.PinOut{rs, rw, e} {
		if err := pin.Out(gpio.Low); err != nil {
			return nil, wrap(err)
		}
	}
	return b, nil
}

// Write latches v into register reg.
func (b *Bus) Write(reg Register, v byte) error {
	if err := b.rs.Out(gpio.Level(reg)); err != nil {
		return wrap(err)
	}
	if err := b.rw.Out(gpio.Low); err != nil {
		return wrap(err)
	}
	if err := b.data.SetDirection(Output); err != nil {
		return err
	}
	if err := b.data.Write(v); err != nil {
		return err
	}
	return b.strobe(nil)
}

// Read samples register reg. With reg set to Instruction the result is the
// status byte: busy flag in bit 7, address counter in bits 0-6.
func (b *Bus) Read(reg Register) (byte, error) {
	if err := b.rs.Out(gpio.Level(reg)); err != nil {
		return 0, wrap(err)
	}
	if err := b.rw.Out(gpio.High); err != nil {
		return 0, wrap(err)
	}
	if err := b.data.SetDirection(Input); err != nil {
		return 0, err
	}
	var v byte
	err := b.strobe(func() (err error) {
		v, err = b.data.Read()
		return err
	})
	return v, err
}

// strobe raises E for one settle interval, calls sample while E is still high
// and drops E.
func (b *Bus) strobe(sample func() error) error {
	if err := b.e.Out(gpio.High); err != nil {
		return wrap(err)
	}
	b.clk.Pulse()
	var err error
	if sample != nil {
		err = sample()
	}
	if errLow := b.e.Out(gpio.Low); err == nil && errLow != nil {
		err = wrap(errLow)
	}
	return err
}

var _ Port = &GPIOPort{}
