// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780_test

import (
	"fmt"
	"log"

	"github.com/GermanBionicSystems/voltmeter/hd44780"
	"github.com/GermanBionicSystems/voltmeter/tick"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// This example drives a display wired in 8 bit mode with the read/write line
// connected, so that the driver can poll the busy flag.
func Example() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	pin := func(name string) gpio.PinIO {
		p := gpioreg.ByName(name)
		if p == nil {
			log.Fatalf("no pin %s", name)
		}
		return p
	}
	var data []gpio.PinIO
	for _, name := range []string{"GPIO5", "GPIO6", "GPIO12", "GPIO13", "GPIO16", "GPIO19", "GPIO20", "GPIO21"} {
		data = append(data, pin(name))
	}
	port, err := hd44780.NewGPIOPort(data...)
	if err != nil {
		log.Fatal(err)
	}
	clk, err := tick.New(tick.NewHostCounter(8*physic.MegaHertz), nil)
	if err != nil {
		log.Fatal(err)
	}
	bus, err := hd44780.NewBus(port, pin("GPIO22"), pin("GPIO23"), pin("GPIO24"), clk)
	if err != nil {
		log.Fatal(err)
	}
	lcd, err := hd44780.New(bus, clk, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer lcd.Halt()

	if err := lcd.SetCursor(0, 0); err != nil {
		log.Fatal(err)
	}
	if err := lcd.PutString("Hello"); err != nil {
		log.Fatal(err)
	}
	_ = lcd.MoveTo(2, 1)
	_, _ = lcd.WriteString("World")
	fmt.Println(lcd)
}
