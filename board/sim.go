// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package board

import (
	"github.com/GermanBionicSystems/voltmeter/adc/adctest"
	"github.com/GermanBionicSystems/voltmeter/hd44780/hd44780test"
	"github.com/GermanBionicSystems/voltmeter/keypad/keypadtest"
	"github.com/GermanBionicSystems/voltmeter/tick"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"
)

// SimOpts tunes the simulated peripherals.
type SimOpts struct {
	// BusyReads is how long the LCD controller stays busy, in status reads.
	BusyReads int
	// ConversionPolls is how long a conversion takes, in control reads.
	ConversionPolls int
	// Source returns the code of the next conversion.
	Source func() uint16
	// Counter defaults to a host counter running in real time.
	Counter tick.Counter
}

// Sim is a board whose peripherals are simulated.
type Sim struct {
	*Board
	LCD  *hd44780test.Controller
	Keys *keypadtest.Matrix
	ADC  *adctest.Peripheral
}

// Simulate assembles the board described by cfg on simulated peripherals.
// Pin names in cfg are ignored.
func Simulate(cfg *Config, opts *SimOpts, log logrus.FieldLogger) (*Sim, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Sim{
		LCD:  hd44780test.New(opts.BusyReads),
		Keys: keypadtest.New(),
		ADC:  &adctest.Peripheral{BusyPolls: opts.ConversionPolls, Next: opts.Source},
	}
	rs, rw, e := s.LCD.Pins()
	counter := opts.Counter
	if counter == nil {
		counter = tick.NewHostCounter(physic.Frequency(cfg.Timing.OscillatorHz) * physic.Hertz)
	}
	var err error
	s.Board, err = assemble(cfg, &lines{
		data:    s.LCD.Port(),
		rs:      rs,
		rw:      rw,
		e:       e,
		rows:    s.Keys.Rows(),
		cols:    s.Keys.Cols(),
		adc:     s.ADC,
		counter: counter,
	}, log)
	if err != nil {
		return nil, err
	}
	return s, nil
}
