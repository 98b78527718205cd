// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"sync"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

// LightOptions selects the ADS1115 channel wired to the ambient light photodiode.
type LightOptions struct {
	I2CBus  string
	I2CAddr uint16
	Channel int     // 0-3
	MaxVolt float64 // voltage at full brightness
}

var adsChannels = []ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3}

type adsLight struct {
	mu      sync.Mutex
	bus     i2c.BusCloser
	pin     analog.PinADC
	maxVolt float64
}

// NewADS1115Light opens the light sensor ADC and returns it as a LightSource.
// Readings are reported in volts.
func NewADS1115Light(opts LightOptions) (LightSource, error) {
	if opts.Channel < 0 || opts.Channel >= len(adsChannels) {
		return nil, fmt.Errorf("light: ADC channel %d out of range", opts.Channel)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("light: periph host init: %w", err)
	}

	bus, err := i2creg.Open(opts.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("light: I2C open %q: %w", opts.I2CBus, err)
	}

	adcOpts := ads1x15.DefaultOpts
	if opts.I2CAddr != 0 {
		adcOpts.I2cAddress = opts.I2CAddr
	}
	adc, err := ads1x15.NewADS1115(bus, &adcOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("light: ADS1115 init: %w", err)
	}

	maxVolt := opts.MaxVolt
	fullScale := physic.ElectricPotential(maxVolt * float64(physic.Volt))
	if fullScale <= 0 {
		fullScale = 5 * physic.Volt
	}
	pin, err := adc.PinForChannel(adsChannels[opts.Channel], fullScale, 8*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("light: ADC channel %d: %w", opts.Channel, err)
	}

	log.Printf("light: ADS1115 channel %d ready on bus %q (max %.2fV)", opts.Channel, opts.I2CBus, maxVolt)
	return &adsLight{bus: bus, pin: pin, maxVolt: maxVolt}, nil
}

// ReadLight returns the photodiode voltage.
func (s *adsLight) ReadLight() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample, err := s.pin.Read()
	if err != nil {
		return 0, fmt.Errorf("light: ADC read: %w", err)
	}
	v := float64(sample.V) / float64(physic.Volt)
	if v < 0 {
		v = 0
	}
	return v, nil
}

// MaxRange returns the configured full brightness voltage, or 0 when unset.
func (s *adsLight) MaxRange() float64 {
	return s.maxVolt
}

// Close halts the ADC pin and releases the bus.
func (s *adsLight) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.pin.Halt(); err != nil {
		log.Printf("light: ADC halt: %v", err)
	}
	return s.bus.Close()
}
