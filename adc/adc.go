// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package adc reads a 10-bit successive approximation converter through its
// multiplexer, control and result registers.
//
// A conversion is started by setting the start bit and is complete when the
// converter clears it again. The wait is a busy poll with no timeout.
package adc

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
)

const (
	// Resolution is the converter width in bits.
	Resolution = 10
	// MaxCode is the full scale result.
	MaxCode = 1<<Resolution - 1
)

// Channel is a single-ended input.
type Channel uint8

// Reference selects the converter voltage reference.
type Reference uint8

const (
	// RefExternal uses the voltage on the reference pin.
	RefExternal Reference = 0
	// RefSupply uses the analog supply.
	RefSupply Reference = 1
	// RefInternal uses the on-chip bandgap reference.
	RefInternal Reference = 3
)

// Mux is the multiplexer selection register.
type Mux struct {
	Ref        Reference
	LeftAdjust bool
	Channel    Channel
}

// Byte encodes m as the raw register value.
func (m Mux) Byte() byte {
	v := byte(m.Ref&0x03)<<6 | byte(m.Channel&0x1f)
	if m.LeftAdjust {
		v |= 1 << 5
	}
	return v
}

// Control is the control and status register.
type Control byte

const (
	Enable          Control = 1 << 7
	Start           Control = 1 << 6
	AutoTrigger     Control = 1 << 5
	InterruptFlag   Control = 1 << 4
	InterruptEnable Control = 1 << 3
)

// Converting reports whether a conversion is in flight.
func (c Control) Converting() bool {
	return c&Start != 0
}

// Peripheral is the converter register file.
type Peripheral interface {
	SetMux(m Mux) error
	SetControl(c Control) error
	Control() (Control, error)
	// Result returns the last conversion, right adjusted.
	Result() (uint16, error)
}

// Opts selects the input and its scaling.
type Opts struct {
	Channel Channel
	Ref     Reference
	// VRef is the voltage corresponding to MaxCode.
	VRef physic.ElectricPotential
}

// DefaultOpts reads channel 0 against a 5V supply reference.
var DefaultOpts = Opts{
	Channel: 0,
	Ref:     RefSupply,
	VRef:    5 * physic.Volt,
}

var errVRef = errors.New("adc: reference voltage must be positive")

// Converter is one single-ended input of the converter.
//
// Implements periph.io/x/conn/v3/analog.PinADC.
type Converter struct {
	p    Peripheral
	mux  Mux
	vref physic.ElectricPotential
}

// New returns a Converter. If opts is nil, DefaultOpts is used.
func New(p Peripheral, opts *Opts) (*Converter, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.VRef <= 0 {
		return nil, errVRef
	}
	return &Converter{
		p:    p,
		mux:  Mux{Ref: opts.Ref, Channel: opts.Channel},
		vref: opts.VRef,
	}, nil
}

// ReadCode runs one conversion and returns the raw code in [0, MaxCode]. It
// blocks until the converter reports completion.
func (c *Converter) ReadCode() (uint16, error) {
	if err := c.p.SetMux(c.mux); err != nil {
		return 0, wrap(err)
	}
	if err := c.p.SetControl(Enable | Start); err != nil {
		return 0, wrap(err)
	}
	for {
		ctl, err := c.p.Control()
		if err != nil {
			return 0, wrap(err)
		}
		if !ctl.Converting() {
			break
		}
	}
	v, err := c.p.Result()
	if err != nil {
		return 0, wrap(err)
	}
	return v & MaxCode, nil
}

// Read implements analog.PinADC.
func (c *Converter) Read() (analog.Sample, error) {
	code, err := c.ReadCode()
	if err != nil {
		return analog.Sample{}, err
	}
	return analog.Sample{V: Voltage(code, c.vref), Raw: int32(code)}, nil
}

// Range implements analog.PinADC.
func (c *Converter) Range() (analog.Sample, analog.Sample) {
	return analog.Sample{}, analog.Sample{V: c.vref, Raw: MaxCode}
}

// VRef returns the voltage of a full scale code.
func (c *Converter) VRef() physic.ElectricPotential {
	return c.vref
}

// Name implements pin.Pin.
func (c *Converter) Name() string {
	return fmt.Sprintf("ADC%d", c.mux.Channel)
}

// Number implements pin.Pin.
func (c *Converter) Number() int {
	return int(c.mux.Channel)
}

// Function implements pin.Pin.
func (c *Converter) Function() string {
	return "ADC"
}

// Halt disables the converter.
func (c *Converter) Halt() error {
	return wrap(c.p.SetControl(0))
}

func (c *Converter) String() string {
	return fmt.Sprintf("%s{%s full scale}", c.Name(), c.vref)
}

// Voltage maps code linearly onto [0, vref].
func Voltage(code uint16, vref physic.ElectricPotential) physic.ElectricPotential {
	return vref * physic.ElectricPotential(code) / MaxCode
}

// Volts maps code linearly onto [0, vref] volts.
func Volts(code uint16, vref float64) float64 {
	return float64(code) / MaxCode * vref
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("adc: %w", err)
}

var _ analog.PinADC = &Converter{}
