// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package orientation turns the accelerometer stream into a face-up signal.
package orientation

import (
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/focus_sensors/internal/imu"
	"github.com/relabs-tech/focus_sensors/internal/sensors"
)

const (
	// DefaultFaceUpThreshold is the tolerance around gravity on the z axis in m/s².
	DefaultFaceUpThreshold = 2.0
	// DefaultInterval is the low-frequency orientation polling period.
	DefaultInterval = 200 * time.Millisecond
)

// IsFaceUp reports whether the vertical acceleration az lies within
// threshold of standard gravity.
func IsFaceUp(az, threshold float64) bool {
	return math.Abs(az-imu.StandardGravity) < threshold
}

// Options tune the monitor. Zero values select the defaults.
type Options struct {
	Interval  time.Duration
	Threshold float64
}

// Monitor polls an accelerometer and reports whether the device faces up.
type Monitor struct {
	src       sensors.AccelSource
	threshold float64
	poller    *sensors.Poller

	faceUp atomic.Bool

	mu sync.Mutex
	cb func(faceUp bool)
}

// NewMonitor creates a stopped monitor. src may be nil when the host has no
// accelerometer; the monitor is then unavailable and never calls back.
func NewMonitor(src sensors.AccelSource, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultFaceUpThreshold
	}
	m := &Monitor{src: src, threshold: opts.Threshold}
	m.poller = sensors.NewPoller("orientation", opts.Interval, m.poll)
	return m
}

// IsAvailable reports whether an accelerometer backs this monitor.
func (m *Monitor) IsAvailable() bool {
	return m.src != nil
}

// Start subscribes cb to face-up updates. It does nothing when the monitor is unavailable.
func (m *Monitor) Start(cb func(faceUp bool)) {
	if !m.IsAvailable() {
		return
	}
	m.mu.Lock()
	m.cb = cb
	m.mu.Unlock()
	m.poller.Start()
}

// Stop unsubscribes and drops the callback.
func (m *Monitor) Stop() {
	m.poller.Stop()
	m.mu.Lock()
	m.cb = nil
	m.mu.Unlock()
}

// FaceUp returns the most recent face-up state.
func (m *Monitor) FaceUp() bool {
	return m.faceUp.Load()
}

func (m *Monitor) poll() {
	a, err := m.src.ReadAccel()
	if err != nil {
		log.Printf("orientation: accel read error: %v", err)
		return
	}
	m.handle(a)
}

func (m *Monitor) handle(a imu.Accel) {
	up := IsFaceUp(a.Z, m.threshold)
	m.faceUp.Store(up)

	m.mu.Lock()
	cb := m.cb
	m.mu.Unlock()
	if cb != nil {
		cb(up)
	}
}
