// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"log"
	"sync"

	"github.com/relabs-tech/focus_sensors/internal/imu"
	"github.com/relabs-tech/focus_sensors/internal/sensors"
)

// fallbackStrategy listens to the accelerometer continuously.
type fallbackStrategy struct {
	accel     sensors.AccelSource
	threshold float64
	poller    *sensors.Poller

	mu   sync.Mutex
	fire func()
}

func newFallbackStrategy(accel sensors.AccelSource, opts Options) *fallbackStrategy {
	f := &fallbackStrategy{accel: accel, threshold: opts.Threshold}
	f.poller = sensors.NewPoller("motion", opts.Interval, f.poll)
	return f
}

func (f *fallbackStrategy) available() bool { return f.accel != nil }

func (f *fallbackStrategy) start(fire func()) {
	f.mu.Lock()
	f.fire = fire
	f.mu.Unlock()
	if f.available() {
		f.poller.Start()
	}
}

func (f *fallbackStrategy) stop() {
	f.poller.Stop()
	f.mu.Lock()
	f.fire = nil
	f.mu.Unlock()
}

func (f *fallbackStrategy) poll() {
	a, err := f.accel.ReadAccel()
	if err != nil {
		log.Printf("motion: accel read error: %v", err)
		return
	}
	f.handle(a)
}

func (f *fallbackStrategy) handle(a imu.Accel) {
	if !Exceeds(a, f.threshold) {
		return
	}
	f.mu.Lock()
	fire := f.fire
	f.mu.Unlock()
	if fire != nil {
		fire()
	}
}
