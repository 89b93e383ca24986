// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package adctest provides a scripted converter register file.
package adctest

import (
	"sync"

	"github.com/GermanBionicSystems/voltmeter/adc"
)

// Peripheral produces one code from Next per conversion. The start bit stays
// set for BusyPolls reads of the control register.
type Peripheral struct {
	// BusyPolls is the number of control reads that report a conversion in
	// flight.
	BusyPolls int
	// Next returns the code for the next conversion.
	Next func() uint16

	mu      sync.Mutex
	ctl     adc.Control
	mux     adc.Mux
	result  uint16
	pending int
	polls   int
	starts  int
	early   int
}

// NewSequence returns a Peripheral converting codes in order and then
// repeating the last one.
func NewSequence(busyPolls int, codes ...uint16) *Peripheral {
	i := 0
	return &Peripheral{
		BusyPolls: busyPolls,
		Next: func() uint16 {
			if len(codes) == 0 {
				return 0
			}
			c := codes[i]
			if i < len(codes)-1 {
				i++
			}
			return c
		},
	}
}

// SetMux implements adc.Peripheral.
func (p *Peripheral) SetMux(m adc.Mux) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mux = m
	return nil
}

// SetControl implements adc.Peripheral.
func (p *Peripheral) SetControl(c adc.Control) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctl = c
	if c&adc.Enable != 0 && c.Converting() {
		p.starts++
		p.pending = p.BusyPolls
		if p.Next != nil {
			p.result = p.Next()
		}
	}
	if p.pending == 0 {
		p.ctl &^= adc.Start
	}
	return nil
}

// Control implements adc.Peripheral.
func (p *Peripheral) Control() (adc.Control, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++
	if p.pending > 0 {
		p.pending--
		return p.ctl, nil
	}
	p.ctl &^= adc.Start
	return p.ctl, nil
}

// Result implements adc.Peripheral.
func (p *Peripheral) Result() (uint16, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctl.Converting() {
		p.early++
	}
	return p.result, nil
}

// Mux returns the last multiplexer selection.
func (p *Peripheral) Mux() adc.Mux {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mux
}

// Stats returns the number of conversions started, control register polls,
// and results read before the conversion completed.
func (p *Peripheral) Stats() (starts, polls, early int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.starts, p.polls, p.early
}

var _ adc.Peripheral = &Peripheral{}
