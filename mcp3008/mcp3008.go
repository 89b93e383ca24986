// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mcp3008 exposes a Microchip MCP3008 8 channel 10-bit SPI converter
// as an adc.Peripheral, for boards without an on-chip converter.
//
// The conversion runs during the SPI transfer that SetControl issues when the
// start bit is set, so Control never reports a conversion in flight.
//
// # Datasheet
//
// https://ww1.microchip.com/downloads/en/DeviceDoc/21295d.pdf
package mcp3008

import (
	"errors"
	"fmt"
	"sync"

	"github.com/GermanBionicSystems/voltmeter/adc"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

const (
	// Channels is the number of single-ended inputs.
	Channels = 8
	// MaxSpeed is the highest clock at 5V supply.
	MaxSpeed = 3600 * physic.KiloHertz

	startBit    byte = 0x01
	singleEnded byte = 0x80
)

var errChannel = errors.New("mcp3008: channel out of range")

// Dev is an MCP3008 on an SPI connection.
type Dev struct {
	c spi.Conn

	mu     sync.Mutex
	ch     adc.Channel
	ctl    adc.Control
	result uint16
}

// New returns a Dev using c. The connection should be mode 0, 8 bits, at most
// MaxSpeed.
func New(c spi.Conn) *Dev {
	return &Dev{c: c}
}

// NewSPI connects to p and returns a Dev.
func NewSPI(p spi.Port, f physic.Frequency) (*Dev, error) {
	if f > MaxSpeed {
		f = MaxSpeed
	}
	c, err := p.Connect(f, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("mcp3008: %w", err)
	}
	return New(c), nil
}

// SetMux implements adc.Peripheral. The reference selection is fixed by the
// VREF pin and is ignored.
func (d *Dev) SetMux(m adc.Mux) error {
	if m.Channel >= Channels {
		return errChannel
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ch = m.Channel
	return nil
}

// SetControl implements adc.Peripheral. Setting Enable|Start runs one
// conversion.
func (d *Dev) SetControl(c adc.Control) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctl = c &^ adc.Start
	if c&adc.Enable == 0 || !c.Converting() {
		return nil
	}
	w := []byte{startBit, singleEnded | byte(d.ch)<<4, 0}
	r := make([]byte, len(w))
	if err := d.c.Tx(w, r); err != nil {
		return fmt.Errorf("mcp3008: %w", err)
	}
	d.result = uint16(r[1]&0x03)<<8 | uint16(r[2])
	return nil
}

// Control implements adc.Peripheral.
func (d *Dev) Control() (adc.Control, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctl, nil
}

// Result implements adc.Peripheral.
func (d *Dev) Result() (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result, nil
}

// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("MCP3008{%s}", d.c)
}

var _ adc.Peripheral = &Dev{}
var _ conn.Resource = &Dev{}
