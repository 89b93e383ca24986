// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tick provides busy-wait delays calibrated against a fixed oscillator
// and an 8-bit free-running counter.
//
// Every delay monopolizes the calling goroutine for its full duration. There
// is no yielding and no cancellation.
package tick

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Prescale is the clock-select field of the counter control register. The
// numeric values are the raw field encoding.
type Prescale uint8

const (
	Stopped Prescale = iota
	Div1
	Div8
	Div64
	Div256
	Div1024
)

// Divisor returns the oscillator division ratio, or 0 for Stopped and unknown
// encodings.
func (p Prescale) Divisor() uint32 {
	switch p {
	case Div1:
		return 1
	case Div8:
		return 8
	case Div64:
		return 64
	case Div256:
		return 256
	case Div1024:
		return 1024
	default:
		return 0
	}
}

// PrescaleOf returns the Prescale dividing by divisor.
func PrescaleOf(divisor uint32) (Prescale, bool) {
	for p := Div1; p <= Div1024; p++ {
		if p.Divisor() == divisor {
			return p, true
		}
	}
	return Stopped, false
}

func (p Prescale) String() string {
	if d := p.Divisor(); d != 0 {
		return fmt.Sprintf("clk/%d", d)
	}
	return "stopped"
}

// Counter is an 8-bit up-counter that raises an overflow flag when it wraps
// from 0xff to 0x00.
type Counter interface {
	// Select starts the counter clocked at the oscillator divided by p, or
	// stops it when p is Stopped.
	Select(p Prescale)
	// Load sets the current count.
	Load(v uint8)
	// ClearOverflow clears a pending overflow flag.
	ClearOverflow()
	// Overflowed reports whether the counter wrapped since the last clear.
	Overflowed() bool
}

// Watchdog is kicked once per elapsed millisecond.
type Watchdog interface {
	Kick()
}

// Opts holds the timer calibration.
type Opts struct {
	// Oscillator is the frequency of the clock feeding the counter prescaler.
	Oscillator physic.Frequency
	// Prescale divides the oscillator before it reaches the counter.
	Prescale Prescale
	// Watchdog is optional.
	Watchdog Watchdog
}

// DefaultOpts is an 8MHz crystal with the counter running at clk/64, i.e. 125
// counts per millisecond.
var DefaultOpts = Opts{
	Oscillator: 8 * physic.MegaHertz,
	Prescale:   Div64,
}

// pulseCycles is the width of a bus settle pulse in oscillator cycles.
const pulseCycles = 3

var (
	errInvalidPrescale   = errors.New("tick: invalid prescale")
	errInvalidOscillator = errors.New("tick: invalid oscillator frequency")
)

// Timer produces millisecond delays by reloading the counter so that it
// overflows exactly once per millisecond.
type Timer struct {
	c        Counter
	osc      physic.Frequency
	prescale Prescale
	reload   uint8
	pulse    time.Duration
	wd       Watchdog
}

// New returns a Timer calibrated from opts. If opts is nil, DefaultOpts is
// used.
func New(c Counter, opts *Opts) (*Timer, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	div := opts.Prescale.Divisor()
	if div == 0 {
		return nil, errInvalidPrescale
	}
	if opts.Oscillator < physic.Hertz {
		return nil, errInvalidOscillator
	}
	ticks := uint64(opts.Oscillator/physic.Hertz) / uint64(div) / 1000
	if ticks == 0 || ticks > 256 {
		return nil, fmt.Errorf("tick: %s at %s gives %d counts per millisecond, want 1..256", opts.Oscillator, opts.Prescale, ticks)
	}
	return &Timer{
		c:        c,
		osc:      opts.Oscillator,
		prescale: opts.Prescale,
		reload:   uint8(256 - ticks),
		pulse:    pulseCycles * opts.Oscillator.Period(),
		wd:       opts.Watchdog,
	}, nil
}

// Reload returns the count loaded at the start of every millisecond.
func (t *Timer) Reload() uint8 {
	return t.reload
}

// WaitMS blocks for n milliseconds.
//
// The counter is reloaded at the start of every millisecond so that the time
// spent between overflows does not accumulate as drift.
func (t *Timer) WaitMS(n uint32) {
	t.c.Select(t.prescale)
	for ; n > 0; n-- {
		t.c.Load(t.reload)
		t.c.ClearOverflow()
		if t.wd != nil {
			t.wd.Kick()
		}
		for !t.c.Overflowed() {
		}
	}
	t.c.Select(Stopped)
}

// Pulse blocks for a few oscillator cycles. It is used to hold bus strobes
// for their minimum width.
func (t *Timer) Pulse() {
	for start := time.Now(); time.Since(start) < t.pulse; {
	}
}

func (t *Timer) String() string {
	return fmt.Sprintf("tick{%s, %s, reload %d}", t.osc, t.prescale, t.reload)
}
