// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/GermanBionicSystems/voltmeter/hd44780"
	"github.com/GermanBionicSystems/voltmeter/hd44780/hd44780test"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	periphDisplay "periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/display/displaytest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type clock struct {
	waits  []uint32
	pulses int
}

func (c *clock) WaitMS(n uint32) {
	c.waits = append(c.waits, n)
}

func (c *clock) Pulse() {
	c.pulses++
}

func newDev(t *testing.T, busyReads int, opts *hd44780.Opts) (*hd44780.Dev, *hd44780test.Controller, *clock) {
	t.Helper()
	ctrl := hd44780test.New(busyReads)
	rs, rw, e := ctrl.Pins()
	clk := &clock{}
	bus, err := hd44780.NewBus(ctrl.Port(), rs, rw, e, clk)
	if err != nil {
		t.Fatal(err)
	}
	dev, err := hd44780.New(bus, clk, opts)
	if err != nil {
		t.Fatal(err)
	}
	return dev, ctrl, clk
}

// writes returns the values of the write transfers in ops.
func writes(ops []hd44780test.Op) []hd44780test.Op {
	var w []hd44780test.Op
	for _, op := range ops {
		if !op.Read {
			w = append(w, op)
		}
	}
	return w
}

func TestInit(t *testing.T) {
	_, ctrl, clk := newDev(t, 2, nil)

	want := []hd44780test.Op{
		{V: 0x30}, {V: 0x30}, {V: 0x3c}, {V: 0x0c}, {V: 0x06}, {V: 0x01},
	}
	if diff := cmp.Diff(writes(ctrl.Ops()), want); diff != "" {
		t.Errorf("init sequence (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(clk.waits, []uint32{16, 5, 1}); diff != "" {
		t.Errorf("init delays (-got +want):\n%s", diff)
	}
	if n := ctrl.Violations(); n != 0 {
		t.Errorf("%d writes while busy", n)
	}
	if n := ctrl.Contentions(); n != 0 {
		t.Errorf("%d bus contentions", n)
	}
	if fn := ctrl.Function(); fn != 0x3c {
		t.Errorf("function set = %#x, want 0x3c", fn)
	}
	on, cursor, blink, inc := ctrl.State()
	if !on || cursor || blink || !inc {
		t.Errorf("State() = on:%t cursor:%t blink:%t increment:%t", on, cursor, blink, inc)
	}
}

func TestBusyFlag(t *testing.T) {
	for _, n := range []int{0, 1, 3, 10} {
		t.Run(fmt.Sprintf("busy%d", n), func(t *testing.T) {
			dev, ctrl, _ := newDev(t, n, nil)
			ctrl.Reset()
			if err := dev.PutChar('A'); err != nil {
				t.Fatal(err)
			}
			if got := ctrl.StatusReads(); got != n+1 {
				t.Errorf("StatusReads() = %d, want %d", got, n+1)
			}
			var want []hd44780test.Op
			for range n {
				want = append(want, hd44780test.Op{Read: true, Busy: true})
			}
			want = append(want, hd44780test.Op{Read: true}, hd44780test.Op{Data: true, V: 'A'})
			if diff := cmp.Diff(ctrl.Ops(), want, cmpopts.IgnoreFields(hd44780test.Op{}, "V"), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("transfers (-got +want):\n%s", diff)
			}
			if v := ctrl.Violations(); v != 0 {
				t.Errorf("%d writes while busy", v)
			}
			if got := ctrl.Line(0); got != "A" {
				t.Errorf("Line(0) = %q, want %q", got, "A")
			}
		})
	}
}

func TestAddress(t *testing.T) {
	tests := []struct {
		row, col uint8
		want     uint8
	}{
		{0, 0, 0},
		{0, 15, 15},
		{1, 0, 40},
		{1, 5, 45},
		{1, 39, 79},
	}
	for _, tc := range tests {
		if got := hd44780.Address(tc.row, tc.col); got != tc.want {
			t.Errorf("Address(%d, %d) = %d, want %d", tc.row, tc.col, got, tc.want)
		}
	}
}

func TestSetCursor(t *testing.T) {
	dev, ctrl, _ := newDev(t, 1, nil)
	ctrl.Reset()
	if err := dev.SetCursor(1, 5); err != nil {
		t.Fatal(err)
	}
	w := writes(ctrl.Ops())
	if len(w) != 46 || w[0].V != 0x02 {
		t.Fatalf("SetCursor(1, 5) wrote %d commands starting with %#x, want home then 45 steps", len(w), w[0].V)
	}
	for _, op := range w[1:] {
		if op.V != 0x14 {
			t.Fatalf("step command %#x, want 0x14", op.V)
		}
	}
	if a := ctrl.Address(); a != 0x45 {
		t.Errorf("address counter = %#x, want 0x45", a)
	}
	if err := dev.PutString("Hi"); err != nil {
		t.Fatal(err)
	}
	if got := ctrl.Line(1); got != "     Hi" {
		t.Errorf("Line(1) = %q", got)
	}

	for _, bad := range [][2]uint8{{2, 0}, {0, 40}} {
		if err := dev.SetCursor(bad[0], bad[1]); err == nil {
			t.Errorf("SetCursor(%d, %d) succeeded", bad[0], bad[1])
		}
	}
}

func TestPutString(t *testing.T) {
	dev, ctrl, _ := newDev(t, 1, nil)
	if err := dev.PutString("ab\x00cd"); err != nil {
		t.Fatal(err)
	}
	if got := ctrl.Line(0); got != "ab" {
		t.Errorf("Line(0) = %q, want %q", got, "ab")
	}
	if err := dev.Clear(); err != nil {
		t.Fatal(err)
	}
	n, err := dev.WriteString("1.25 : 3.75")
	if err != nil {
		t.Fatal(err)
	}
	if n != 11 {
		t.Errorf("WriteString() = %d, want 11", n)
	}
	if diff := cmp.Diff(ctrl.Lines(16), []string{"1.25 : 3.75     ", "                "}); diff != "" {
		t.Errorf("Lines (-got +want):\n%s", diff)
	}
}

func TestMoveTo(t *testing.T) {
	dev, ctrl, _ := newDev(t, 0, nil)
	if err := dev.MoveTo(2, 16); err != nil {
		t.Fatal(err)
	}
	if a := ctrl.Address(); a != 0x4f {
		t.Errorf("MoveTo(2, 16) address = %#x, want 0x4f", a)
	}
	if err := dev.Move(periphDisplay.Backward); err != nil {
		t.Fatal(err)
	}
	if a := ctrl.Address(); a != 0x4e {
		t.Errorf("Move(Backward) address = %#x, want 0x4e", a)
	}
	if err := dev.MoveTo(0, 1); err == nil {
		t.Error("MoveTo(0, 1) succeeded")
	}
	if err := dev.MoveTo(1, 17); err == nil {
		t.Error("MoveTo(1, 17) succeeded")
	}
	if err := dev.Move(periphDisplay.Down); !errors.Is(err, periphDisplay.ErrNotImplemented) {
		t.Errorf("Move(Down) = %v", err)
	}
}

func TestCursor(t *testing.T) {
	dev, ctrl, _ := newDev(t, 0, nil)
	if err := dev.Cursor(periphDisplay.CursorUnderline, periphDisplay.CursorBlink); err != nil {
		t.Fatal(err)
	}
	if on, cursor, blink, _ := ctrl.State(); !on || !cursor || !blink {
		t.Errorf("State() = on:%t cursor:%t blink:%t", on, cursor, blink)
	}
	if err := dev.Cursor(periphDisplay.CursorOff); err != nil {
		t.Fatal(err)
	}
	if err := dev.Display(false); err != nil {
		t.Fatal(err)
	}
	if on, cursor, blink, _ := ctrl.State(); on || cursor || blink {
		t.Errorf("State() = on:%t cursor:%t blink:%t", on, cursor, blink)
	}
}

func TestBacklight(t *testing.T) {
	blPin := &gpiotest.Pin{N: "BL", Num: 18}
	dev, ctrl, _ := newDev(t, 1, &hd44780.Opts{Rows: 2, Cols: 16, Backlight: hd44780.NewBacklight(blPin)})
	if err := dev.Backlight(0xff); err != nil {
		t.Fatal(err)
	}
	if blPin.Read() != gpio.High {
		t.Error("backlight not on")
	}
	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
	if blPin.Read() != gpio.Low {
		t.Error("backlight not off after Halt")
	}
	if on, _, _, _ := ctrl.State(); on {
		t.Error("display on after Halt")
	}

	bare, _, _ := newDev(t, 1, nil)
	if err := bare.Backlight(0xff); !errors.Is(err, periphDisplay.ErrNotImplemented) {
		t.Errorf("Backlight() without pin = %v", err)
	}
	if err := bare.Halt(); err != nil {
		t.Errorf("Halt() without backlight = %v", err)
	}
}

func TestInterface(t *testing.T) {
	dev, ctrl, _ := newDev(t, 2, nil)
	t.Cleanup(func() {
		_ = dev.Halt()
	})
	errs := displaytest.TestTextDisplay(dev, false)
	for _, err := range errs {
		if !errors.Is(err, periphDisplay.ErrNotImplemented) {
			t.Error(err)
		}
	}
	if n := ctrl.Violations(); n != 0 {
		t.Errorf("%d writes while busy", n)
	}
}

func TestGeometry(t *testing.T) {
	ctrl := hd44780test.New(0)
	rs, rw, e := ctrl.Pins()
	clk := &clock{}
	bus, err := hd44780.NewBus(ctrl.Port(), rs, rw, e, clk)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := hd44780.New(bus, clk, &hd44780.Opts{Rows: 4, Cols: 20}); err == nil {
		t.Error("New() accepted a 4 line panel")
	}
	if len(clk.waits) != 0 {
		t.Error("rejected panel was initialized")
	}
}

func TestGPIOPort(t *testing.T) {
	pins := make([]gpio.PinIO, 8)
	raw := make([]*gpiotest.Pin, 8)
	for i := range pins {
		raw[i] = &gpiotest.Pin{N: fmt.Sprintf("D%d", i), Num: i}
		pins[i] = raw[i]
	}
	if _, err := hd44780.NewGPIOPort(pins[:7]...); err == nil {
		t.Error("NewGPIOPort accepted 7 pins")
	}
	p, err := hd44780.NewGPIOPort(pins...)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Write(0xa5); err == nil {
		t.Error("Write() on an input port succeeded")
	}
	if err := p.SetDirection(hd44780.Output); err != nil {
		t.Fatal(err)
	}
	if err := p.Write(0xa5); err != nil {
		t.Fatal(err)
	}
	for i, pin := range raw {
		if want := gpio.Level(0xa5&(1<<i) != 0); pin.Read() != want {
			t.Errorf("D%d = %s, want %s", i, pin.Read(), want)
		}
	}
	if _, err := p.Read(); err == nil {
		t.Error("Read() on an output port succeeded")
	}
	if err := p.SetDirection(hd44780.Input); err != nil {
		t.Fatal(err)
	}
	raw[0].L = gpio.Low
	raw[1].L = gpio.High
	v, err := p.Read()
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xa6 {
		t.Errorf("Read() = %#x, want 0xa6", v)
	}
}
