// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package adc_test

import (
	"fmt"
	"testing"

	"github.com/GermanBionicSystems/voltmeter/adc"
	"github.com/GermanBionicSystems/voltmeter/adc/adctest"
	"periph.io/x/conn/v3/physic"
)

func TestMuxByte(t *testing.T) {
	tests := []struct {
		m    adc.Mux
		want byte
	}{
		{adc.Mux{Ref: adc.RefSupply}, 0x40},
		{adc.Mux{Ref: adc.RefExternal, Channel: 5}, 0x05},
		{adc.Mux{Ref: adc.RefInternal, LeftAdjust: true, Channel: 7}, 0xe7},
	}
	for _, tc := range tests {
		if got := tc.m.Byte(); got != tc.want {
			t.Errorf("%+v.Byte() = %#x, want %#x", tc.m, got, tc.want)
		}
	}
	if got := byte(adc.Enable | adc.Start); got != 0xc0 {
		t.Errorf("Enable|Start = %#x, want 0xc0", got)
	}
}

func TestReadCode(t *testing.T) {
	for _, busy := range []int{0, 1, 5} {
		t.Run(fmt.Sprintf("busy%d", busy), func(t *testing.T) {
			p := adctest.NewSequence(busy, 512, 0xffff)
			c, err := adc.New(p, nil)
			if err != nil {
				t.Fatal(err)
			}
			code, err := c.ReadCode()
			if err != nil {
				t.Fatal(err)
			}
			if code != 512 {
				t.Errorf("ReadCode() = %d, want 512", code)
			}
			starts, polls, early := p.Stats()
			if starts != 1 || polls != busy+1 || early != 0 {
				t.Errorf("Stats() = %d starts, %d polls, %d early reads; want 1, %d, 0", starts, polls, early, busy+1)
			}
			if m := p.Mux(); m.Byte() != 0x40 {
				t.Errorf("mux = %#x, want 0x40", m.Byte())
			}
			if code, _ = c.ReadCode(); code != adc.MaxCode {
				t.Errorf("ReadCode() = %d, want result masked to %d", code, adc.MaxCode)
			}
		})
	}
}

func TestRead(t *testing.T) {
	c, err := adc.New(adctest.NewSequence(0, 0, 512, 1023), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []struct {
		raw int32
		v   physic.ElectricPotential
	}{
		{0, 0},
		{512, 2502443792 * physic.NanoVolt},
		{1023, 5 * physic.Volt},
	} {
		s, err := c.Read()
		if err != nil {
			t.Fatal(err)
		}
		if s.Raw != want.raw {
			t.Errorf("Raw = %d, want %d", s.Raw, want.raw)
		}
		if s.V != want.v {
			t.Errorf("V = %s, want %s", s.V, want.v)
		}
	}
	lo, hi := c.Range()
	if lo.V != 0 || hi.V != 5*physic.Volt || hi.Raw != 1023 {
		t.Errorf("Range() = %v, %v", lo, hi)
	}
}

func TestVolts(t *testing.T) {
	tests := []struct {
		code uint16
		want string
	}{
		{0, "0.00"},
		{512, "2.50"},
		{1023, "5.00"},
	}
	for _, tc := range tests {
		if got := fmt.Sprintf("%4.2f", adc.Volts(tc.code, 5)); got != tc.want {
			t.Errorf("Volts(%d) = %s, want %s", tc.code, got, tc.want)
		}
	}
}

func TestNew(t *testing.T) {
	if _, err := adc.New(adctest.NewSequence(0), &adc.Opts{}); err == nil {
		t.Error("New() accepted a zero reference")
	}
	c, err := adc.New(adctest.NewSequence(0), &adc.Opts{Channel: 3, Ref: adc.RefExternal, VRef: 3300 * physic.MilliVolt})
	if err != nil {
		t.Fatal(err)
	}
	if c.Name() != "ADC3" || c.Number() != 3 {
		t.Errorf("Name() = %s, Number() = %d", c.Name(), c.Number())
	}
	if err := c.Halt(); err != nil {
		t.Error(err)
	}
}
