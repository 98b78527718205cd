// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgeWaitSlice bounds each WaitForEdge call so a cancel is noticed promptly.
const edgeWaitSlice = 100 * time.Millisecond

// gpioTrigger turns the IMU wake-on-motion interrupt line into a one-shot
// significant motion trigger.
type gpioTrigger struct {
	pin gpio.PinIO

	mu     sync.Mutex
	cancel chan struct{}
	done   chan struct{}
}

// NewGPIOMotionTrigger opens the interrupt pin and programs accel to pulse
// it on motion beyond thresholdMS2. It returns ErrUnavailable when accel
// cannot drive an interrupt or the pin does not exist on this host. The
// trigger is only returned once the accelerometer is programmed.
func NewGPIOMotionTrigger(pinName string, accel AccelSource, thresholdMS2 float64) (MotionTrigger, error) {
	wom, ok := accel.(WakeOnMotion)
	if !ok {
		return nil, fmt.Errorf("motion: accelerometer has no wake-on-motion interrupt: %w", ErrUnavailable)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("motion: periph host init: %w", err)
	}
	p := gpioreg.ByName(pinName)
	if p == nil {
		return nil, fmt.Errorf("motion: interrupt pin %q not found: %w", pinName, ErrUnavailable)
	}
	if err := wom.EnableWakeOnMotion(thresholdMS2); err != nil {
		return nil, fmt.Errorf("motion: %w", err)
	}
	return newGPIOTrigger(p), nil
}

func newGPIOTrigger(p gpio.PinIO) *gpioTrigger {
	return &gpioTrigger{pin: p}
}

// RequestTrigger arms the pin for one rising edge. Arming an armed trigger does nothing.
func (t *gpioTrigger) RequestTrigger(fire func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return nil
	}
	if err := t.pin.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return fmt.Errorf("motion: arm %s: %w", t.pin.Name(), err)
	}
	t.cancel = make(chan struct{})
	t.done = make(chan struct{})
	go t.wait(fire, t.cancel, t.done)
	return nil
}

func (t *gpioTrigger) wait(fire func(), cancel, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-cancel:
			return
		default:
		}
		if !t.pin.WaitForEdge(edgeWaitSlice) {
			continue
		}
		// Consume this arm before firing so fire may request the next one.
		t.mu.Lock()
		if t.cancel != cancel {
			t.mu.Unlock()
			return
		}
		t.cancel, t.done = nil, nil
		t.mu.Unlock()
		fire()
		return
	}
}

// CancelTrigger disarms the pin and waits for the edge watcher to exit.
// It must not be called from inside fire.
func (t *gpioTrigger) CancelTrigger() error {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return nil
	}
	close(cancel)
	<-done
	if err := t.pin.Halt(); err != nil {
		log.Printf("motion: halt %s: %v", t.pin.Name(), err)
	}
	return nil
}
