// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package voltmeter is the acquisition loop of a single channel voltmeter: it
// samples a converter, keeps running minimum, maximum and mean, and shows them
// on a 2 line character display. A toggle key switches between live
// statistics and a held mode that only shows the instantaneous value.
//
// Every step runs strictly in sequence. The waits inside the display,
// converter and keypad drivers block without bound.
package voltmeter

import (
	"context"
	"fmt"

	"github.com/GermanBionicSystems/voltmeter/adc"
	"github.com/GermanBionicSystems/voltmeter/keypad"
	"github.com/sirupsen/logrus"
)

// Mode selects what the display shows.
type Mode int

const (
	// Live shows the instantaneous value and the running statistics.
	Live Mode = iota
	// Held shows the instantaneous value only.
	Held
)

func (m Mode) String() string {
	if m == Held {
		return "held"
	}
	return "live"
}

// Placeholder replaces values that are not shown in Held mode.
const Placeholder = "----"

// Display is the text output of the meter.
type Display interface {
	Clear() error
	// SetCursor moves to the zero based (row, col).
	SetCursor(row, col uint8) error
	PutString(s string) error
}

// Keypad reports the key held down, or keypad.None.
type Keypad interface {
	Scan() (keypad.Key, error)
}

// Sampler runs one conversion.
type Sampler interface {
	ReadCode() (uint16, error)
}

// Waiter blocks for whole milliseconds.
type Waiter interface {
	WaitMS(n uint32)
}

// Reading is what one step acquired and displayed.
type Reading struct {
	Code  uint16
	Mode  Mode
	Stats Stats
	Lines [2]string
}

// Opts configures the loop.
type Opts struct {
	// ToggleKey switches between Live and Held.
	ToggleKey keypad.Key
	// ScanSettleMS is waited after every keypad scan.
	ScanSettleMS uint32
	// RefreshMS is waited after every redraw.
	RefreshMS uint32
	// VRef is the voltage of FullScale.
	VRef float64
	// FullScale is the largest converter code.
	FullScale uint16
	// Log defaults to the standard logrus logger.
	Log logrus.FieldLogger
	// Observer, if set, is called after every redraw.
	Observer func(Reading)
}

// DefaultOpts toggles on the first key and refreshes twice a second.
var DefaultOpts = Opts{
	ToggleKey:    keypad.KeyAt(0, 0),
	ScanSettleMS: 1,
	RefreshMS:    500,
	VRef:         5.0,
	FullScale:    adc.MaxCode,
}

// Meter owns the statistics and the mode. It is not safe for concurrent use.
type Meter struct {
	lcd   Display
	keys  Keypad
	adc   Sampler
	w     Waiter
	opts  Opts
	log   logrus.FieldLogger
	mode  Mode
	stats Stats
}

// New returns a Meter in Live mode with empty statistics. If opts is nil,
// DefaultOpts is used.
func New(lcd Display, keys Keypad, s Sampler, w Waiter, opts *Opts) *Meter {
	if opts == nil {
		opts = &DefaultOpts
	}
	m := &Meter{lcd: lcd, keys: keys, adc: s, w: w, opts: *opts, log: opts.Log}
	if m.log == nil {
		m.log = logrus.StandardLogger()
	}
	m.stats = NewStats(m.opts.FullScale)
	return m
}

// Mode returns the current mode.
func (m *Meter) Mode() Mode {
	return m.mode
}

// Stats returns a copy of the running statistics.
func (m *Meter) Stats() Stats {
	return m.stats
}

// Step runs one iteration: scan the keypad, sample, update the statistics,
// redraw and wait for the refresh interval.
//
// Statistics are reset on every toggle, in both directions. Samples are
// accumulated in both modes; Held only changes what is drawn.
func (m *Meter) Step() error {
	key, err := m.keys.Scan()
	if err != nil {
		return err
	}
	m.w.WaitMS(m.opts.ScanSettleMS)
	if key == m.opts.ToggleKey {
		m.toggle()
	}
	code, err := m.adc.ReadCode()
	if err != nil {
		return err
	}
	m.stats.Add(code)
	lines := m.render(code)
	if err := m.draw(lines); err != nil {
		return err
	}
	m.log.WithFields(logrus.Fields{"code": code, "mode": m.mode}).Debug(lines[0] + " | " + lines[1])
	if m.opts.Observer != nil {
		m.opts.Observer(Reading{Code: code, Mode: m.mode, Stats: m.stats, Lines: lines})
	}
	m.w.WaitMS(m.opts.RefreshMS)
	return nil
}

// Run calls Step until ctx is done or a step fails. ctx is checked between
// steps only.
func (m *Meter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
}

func (m *Meter) toggle() {
	if m.mode == Live {
		m.mode = Held
	} else {
		m.mode = Live
	}
	m.stats.Reset()
	m.log.WithField("mode", m.mode).Info("mode toggled, statistics reset")
}

func (m *Meter) volts(code uint16) float64 {
	return float64(code) / float64(m.opts.FullScale) * m.opts.VRef
}

// render formats both lines. In Live mode it advances the sample count.
func (m *Meter) render(code uint16) [2]string {
	if m.mode == Held {
		return [2]string{
			fmt.Sprintf("%4.2f : %s", m.volts(code), Placeholder),
			fmt.Sprintf("%s : %s", Placeholder, Placeholder),
		}
	}
	first := fmt.Sprintf("%4.2f : %4.2f", m.volts(code), m.volts(m.stats.Max))
	mean := m.stats.CountedMean()
	return [2]string{
		first,
		fmt.Sprintf("%4.2f : %4.2f", m.volts(m.stats.Min), m.volts(mean)),
	}
}

func (m *Meter) draw(lines [2]string) error {
	if err := m.lcd.Clear(); err != nil {
		return err
	}
	for row, l := range lines {
		if err := m.lcd.SetCursor(uint8(row), 0); err != nil {
			return err
		}
		if err := m.lcd.PutString(l); err != nil {
			return err
		}
	}
	return nil
}
