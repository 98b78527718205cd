// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package motion detects significant device motion, preferring a hardware
// one-shot trigger and falling back to thresholding the accelerometer.
package motion

import (
	"math"
	"sync"
	"time"

	"github.com/relabs-tech/focus_sensors/internal/imu"
	"github.com/relabs-tech/focus_sensors/internal/sensors"
)

const (
	// DefaultThreshold is the allowed deviation of |a| from gravity in m/s².
	DefaultThreshold = 2.0
	// DefaultInterval is the fallback accelerometer polling period.
	DefaultInterval = 100 * time.Millisecond
)

// Exceeds reports whether the acceleration magnitude deviates from gravity
// by more than threshold.
func Exceeds(a imu.Accel, threshold float64) bool {
	return math.Abs(a.Magnitude()-imu.StandardGravity) > threshold
}

// Options tune the fallback strategy. Zero values select the defaults.
type Options struct {
	Interval  time.Duration
	Threshold float64
}

// strategy is one way of producing motion events.
type strategy interface {
	start(fire func())
	stop()
	available() bool
}

// Detector reports motion events through a single strategy chosen at construction.
type Detector struct {
	strategy strategy
	fallback bool

	mu       sync.Mutex
	listener func()
}

// NewDetector selects the hardware strategy when trigger is non-nil and
// the accelerometer fallback otherwise. accel may also be nil, in which
// case the detector is unavailable and never fires.
func NewDetector(trigger sensors.MotionTrigger, accel sensors.AccelSource, opts Options) *Detector {
	if trigger != nil {
		return &Detector{strategy: &hardwareStrategy{trigger: trigger}}
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	return &Detector{
		strategy: newFallbackStrategy(accel, opts),
		fallback: true,
	}
}

// IsFallback reports whether the accelerometer strategy was chosen.
func (d *Detector) IsFallback() bool {
	return d.fallback
}

// IsAvailable reports whether the chosen strategy has hardware behind it.
func (d *Detector) IsAvailable() bool {
	return d.strategy.available()
}

// Start delivers every motion event to l.
func (d *Detector) Start(l func()) {
	d.mu.Lock()
	d.listener = l
	d.mu.Unlock()
	d.strategy.start(d.fire)
}

// Stop cancels the strategy and drops the listener.
func (d *Detector) Stop() {
	d.strategy.stop()
	d.mu.Lock()
	d.listener = nil
	d.mu.Unlock()
}

func (d *Detector) fire() {
	d.mu.Lock()
	l := d.listener
	d.mu.Unlock()
	if l != nil {
		l()
	}
}
