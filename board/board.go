// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package board assembles the voltmeter from a wiring description: the
// character LCD, the keypad matrix, the converter and the millisecond timer.
//
// Open drives real lines through the periph.io host drivers. Simulate builds
// the same instrument on simulated peripherals.
package board

import (
	"fmt"

	"github.com/GermanBionicSystems/voltmeter/adc"
	"github.com/GermanBionicSystems/voltmeter/hd44780"
	"github.com/GermanBionicSystems/voltmeter/keypad"
	"github.com/GermanBionicSystems/voltmeter/mcp3008"
	"github.com/GermanBionicSystems/voltmeter/tick"
	"github.com/GermanBionicSystems/voltmeter/voltmeter"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Board is an assembled instrument.
type Board struct {
	Timer     *tick.Timer
	Display   *hd44780.Dev
	Keypad    *keypad.Dev
	Converter *adc.Converter

	cfg     *Config
	closers []func() error
}

// lines is the electrical side of a board.
type lines struct {
	data      hd44780.Port
	rs, rw, e gpio.PinOut
	backlight display.DisplayBacklight
	rows      []gpio.PinIO
	cols      []gpio.PinIO
	adc       adc.Peripheral
	counter   tick.Counter
}

func assemble(cfg *Config, l *lines, log logrus.FieldLogger) (*Board, error) {
	tickOpts, err := cfg.TickOpts()
	if err != nil {
		return nil, err
	}
	b := &Board{cfg: cfg}
	if b.Timer, err = tick.New(l.counter, tickOpts); err != nil {
		return nil, err
	}
	log.WithField("timer", b.Timer).Info("timer calibrated")

	bus, err := hd44780.NewBus(l.data, l.rs, l.rw, l.e, b.Timer)
	if err != nil {
		return nil, err
	}
	dispOpts := cfg.DisplayOpts()
	dispOpts.Backlight = l.backlight
	if b.Display, err = hd44780.New(bus, b.Timer, dispOpts); err != nil {
		return nil, err
	}
	if l.backlight != nil {
		if err := b.Display.Backlight(0xff); err != nil {
			return nil, err
		}
	}
	b.closers = append(b.closers, b.Display.Halt)
	log.WithField("display", b.Display).Info("display initialized")

	if b.Keypad, err = keypad.New(l.rows, l.cols, b.Timer, &keypad.Opts{SettleMS: cfg.Keypad.SettleMS}); err != nil {
		return nil, err
	}
	b.closers = append(b.closers, b.Keypad.Halt)
	log.WithField("keypad", b.Keypad).Info("keypad ready")

	if b.Converter, err = adc.New(l.adc, cfg.ConverterOpts()); err != nil {
		return nil, err
	}
	b.closers = append(b.closers, b.Converter.Halt)
	log.WithField("converter", b.Converter).Info("converter ready")
	return b, nil
}

// Open initializes the host drivers and assembles the board described by
// cfg.
func Open(cfg *Config, log logrus.FieldLogger) (*Board, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("board: %w", err)
	}
	l := &lines{}
	var err error
	data := make([]gpio.PinIO, len(cfg.Display.Data))
	for i, name := range cfg.Display.Data {
		if data[i], err = pinByName(name); err != nil {
			return nil, err
		}
	}
	if l.data, err = hd44780.NewGPIOPort(data...); err != nil {
		return nil, err
	}
	for _, c := range []struct {
		name string
		pin  *gpio.PinOut
	}{{cfg.Display.RS, &l.rs}, {cfg.Display.RW, &l.rw}, {cfg.Display.E, &l.e}} {
		p, err := pinByName(c.name)
		if err != nil {
			return nil, err
		}
		*c.pin = p
	}
	if cfg.Display.Backlight != "" {
		p, err := pinByName(cfg.Display.Backlight)
		if err != nil {
			return nil, err
		}
		l.backlight = hd44780.NewBacklight(p)
	}
	if l.rows, err = pinsByName(cfg.Keypad.Rows); err != nil {
		return nil, err
	}
	if l.cols, err = pinsByName(cfg.Keypad.Cols); err != nil {
		return nil, err
	}

	port, err := spireg.Open(cfg.Converter.SPI)
	if err != nil {
		return nil, fmt.Errorf("board: opening SPI %q: %w", cfg.Converter.SPI, err)
	}
	conv, err := mcp3008.NewSPI(port, physic.Frequency(cfg.Converter.SpeedHz)*physic.Hertz)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	l.adc = conv
	l.counter = tick.NewHostCounter(physic.Frequency(cfg.Timing.OscillatorHz) * physic.Hertz)

	b, err := assemble(cfg, l, log)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	b.closers = append([]func() error{port.Close}, b.closers...)
	return b, nil
}

func pinByName(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("board: no GPIO named %q", name)
	}
	return p, nil
}

func pinsByName(names []string) ([]gpio.PinIO, error) {
	pins := make([]gpio.PinIO, len(names))
	for i, name := range names {
		p, err := pinByName(name)
		if err != nil {
			return nil, err
		}
		pins[i] = p
	}
	return pins, nil
}

// Meter returns the acquisition loop running on b. opts overrides the
// configured loop settings when not nil.
func (b *Board) Meter(opts *voltmeter.Opts) *voltmeter.Meter {
	if opts == nil {
		opts = b.cfg.MeterOpts()
	}
	return voltmeter.New(b.Display, b.Keypad, b.Converter, b.Timer, opts)
}

// Close halts every device and releases the buses. It returns the first error.
func (b *Board) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	b.closers = nil
	return first
}
