// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package board

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/GermanBionicSystems/voltmeter/adc"
	"github.com/GermanBionicSystems/voltmeter/hd44780"
	"github.com/GermanBionicSystems/voltmeter/keypad"
	"github.com/GermanBionicSystems/voltmeter/tick"
	"github.com/GermanBionicSystems/voltmeter/voltmeter"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
)

// Config describes how the instrument is wired.
type Config struct {
	Display   DisplayConfig   `yaml:"display"`
	Keypad    KeypadConfig    `yaml:"keypad"`
	Converter ConverterConfig `yaml:"converter"`
	Timing    TimingConfig    `yaml:"timing"`
	Meter     MeterConfig     `yaml:"meter"`
}

// DisplayConfig names the character LCD lines.
type DisplayConfig struct {
	Data      []string `yaml:"data"` // D0..D7
	RS        string   `yaml:"rs"`
	RW        string   `yaml:"rw"`
	E         string   `yaml:"e"`
	Backlight string   `yaml:"backlight"` // optional
	Rows      int      `yaml:"rows"`
	Cols      int      `yaml:"cols"`
}

// KeypadConfig names the matrix lines.
type KeypadConfig struct {
	Rows     []string `yaml:"rows"`
	Cols     []string `yaml:"cols"`
	SettleMS uint32   `yaml:"settle_ms"`
}

// ConverterConfig selects the SPI converter input.
type ConverterConfig struct {
	SPI     string  `yaml:"spi"` // "" is the first SPI port
	SpeedHz int64   `yaml:"speed_hz"`
	Channel uint8   `yaml:"channel"`
	VRef    float64 `yaml:"vref"`
}

// TimingConfig calibrates the millisecond timer.
type TimingConfig struct {
	OscillatorHz int64  `yaml:"oscillator_hz"`
	Prescale     uint32 `yaml:"prescale"`
}

// MeterConfig tunes the acquisition loop.
type MeterConfig struct {
	ToggleKey uint8  `yaml:"toggle_key"`
	RefreshMS uint32 `yaml:"refresh_ms"`
}

// Default returns the wiring of the reference board.
func Default() *Config {
	return &Config{
		Display: DisplayConfig{
			Data: []string{"GPIO5", "GPIO6", "GPIO12", "GPIO13", "GPIO16", "GPIO19", "GPIO20", "GPIO21"},
			RS:   "GPIO22",
			RW:   "GPIO23",
			E:    "GPIO24",
			Rows: 2,
			Cols: 16,
		},
		Keypad: KeypadConfig{
			Rows:     []string{"GPIO4", "GPIO17", "GPIO27", "GPIO25"},
			Cols:     []string{"GPIO26", "GPIO18", "GPIO2", "GPIO3"},
			SettleMS: 1,
		},
		Converter: ConverterConfig{
			SpeedHz: 1000000,
			Channel: 0,
			VRef:    5.0,
		},
		Timing: TimingConfig{
			OscillatorHz: 8000000,
			Prescale:     64,
		},
		Meter: MeterConfig{
			ToggleKey: 1,
			RefreshMS: 500,
		},
	}
}

// Load loads the configuration from a YAML file. If the file doesn't exist or
// fields are missing, default values are used.
func Load(filename string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("board: reading %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("board: parsing %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration describes a usable board.
func (c *Config) Validate() error {
	if len(c.Display.Data) != 8 {
		return fmt.Errorf("board: display needs 8 data lines, got %d", len(c.Display.Data))
	}
	if c.Display.RS == "" || c.Display.RW == "" || c.Display.E == "" {
		return errors.New("board: display rs, rw and e lines are required")
	}
	if len(c.Keypad.Rows) != keypad.Rows || len(c.Keypad.Cols) != keypad.Cols {
		return fmt.Errorf("board: keypad needs %d rows and %d cols", keypad.Rows, keypad.Cols)
	}
	if c.Converter.VRef <= 0 {
		return errors.New("board: converter vref must be positive")
	}
	if c.Meter.ToggleKey < 1 || int(c.Meter.ToggleKey) > keypad.Rows*keypad.Cols {
		return fmt.Errorf("board: toggle key %d out of range", c.Meter.ToggleKey)
	}
	opts, err := c.TickOpts()
	if err != nil {
		return err
	}
	if _, err := tick.New(nil, opts); err != nil {
		return fmt.Errorf("board: %w", err)
	}
	return nil
}

// TickOpts returns the timer calibration.
func (c *Config) TickOpts() (*tick.Opts, error) {
	p, ok := tick.PrescaleOf(c.Timing.Prescale)
	if !ok {
		return nil, fmt.Errorf("board: unsupported prescale %d", c.Timing.Prescale)
	}
	return &tick.Opts{
		Oscillator: physic.Frequency(c.Timing.OscillatorHz) * physic.Hertz,
		Prescale:   p,
	}, nil
}

// DisplayOpts returns the panel geometry.
func (c *Config) DisplayOpts() *hd44780.Opts {
	return &hd44780.Opts{Rows: c.Display.Rows, Cols: c.Display.Cols}
}

// ConverterOpts returns the converter input selection.
func (c *Config) ConverterOpts() *adc.Opts {
	return &adc.Opts{
		Channel: adc.Channel(c.Converter.Channel),
		Ref:     adc.RefExternal,
		VRef:    physic.ElectricPotential(math.Round(c.Converter.VRef * float64(physic.Volt))),
	}
}

// MeterOpts returns the loop settings.
func (c *Config) MeterOpts() *voltmeter.Opts {
	opts := voltmeter.DefaultOpts
	opts.ToggleKey = keypad.Key(c.Meter.ToggleKey)
	opts.RefreshMS = c.Meter.RefreshMS
	opts.VRef = c.Converter.VRef
	return &opts
}
