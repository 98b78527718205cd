// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package light reads ambient light on a 0-100 scale, gated by orientation.
package light

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/relabs-tech/focus_sensors/internal/orientation"
	"github.com/relabs-tech/focus_sensors/internal/sensors"
)

const (
	// FallbackMaxRange is used when the sensor reports a zero range.
	FallbackMaxRange = 10000.0
	// DefaultInterval is the light polling period.
	DefaultInterval = 500 * time.Millisecond
)

// Listener receives the current light level and face-up state.
type Listener func(level float32, faceUp bool)

// Normalize maps a raw reading onto 0-100.
func Normalize(raw, maxRange float64) float32 {
	if maxRange <= 0 {
		maxRange = FallbackMaxRange
	}
	v := raw / maxRange * 100
	if v < 0 || math.IsNaN(v) {
		v = 0
	}
	return float32(math.Min(100, v))
}

// Meter forwards light readings while the device faces up and holds the
// last recorded level while it faces down.
type Meter struct {
	src    sensors.LightSource
	orient *orientation.Monitor
	poller *sensors.Poller

	// level is written only by the handlers below.
	level sensors.Float32

	mu       sync.Mutex
	listener Listener
}

// NewMeter creates a stopped meter that owns orient. src may be nil when
// the host has no light sensor.
func NewMeter(src sensors.LightSource, orient *orientation.Monitor, interval time.Duration) *Meter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	m := &Meter{src: src, orient: orient}
	m.poller = sensors.NewPoller("light", interval, m.poll)
	return m
}

// IsAvailable reports whether a light sensor backs this meter.
func (m *Meter) IsAvailable() bool {
	return m.src != nil
}

// Start begins forwarding (level, faceUp) pairs to l on every light reading
// and on every orientation change.
func (m *Meter) Start(l Listener) {
	m.mu.Lock()
	m.listener = l
	m.mu.Unlock()

	m.orient.Start(m.handleOrientation)
	if m.IsAvailable() {
		m.poller.Start()
	}
}

// Stop unsubscribes from the light stream and the orientation monitor.
func (m *Meter) Stop() {
	m.poller.Stop()
	m.orient.Stop()
	m.mu.Lock()
	m.listener = nil
	m.mu.Unlock()
}

// Level returns the last recorded light level.
func (m *Meter) Level() float32 {
	return m.level.Load()
}

// FaceUp returns the owned orientation monitor's state.
func (m *Meter) FaceUp() bool {
	return m.orient.FaceUp()
}

func (m *Meter) poll() {
	raw, err := m.src.ReadLight()
	if err != nil {
		log.Printf("light: read error: %v", err)
		return
	}
	m.handleReading(raw)
}

// gateOpen reports whether a new reading may replace the recorded level.
// Without an orientation sensor nothing can be gated.
func (m *Meter) gateOpen() bool {
	return !m.orient.IsAvailable() || m.orient.FaceUp()
}

func (m *Meter) handleReading(raw float64) {
	if m.gateOpen() {
		m.level.Store(Normalize(raw, m.src.MaxRange()))
	}
	m.emit()
}

func (m *Meter) handleOrientation(bool) {
	m.emit()
}

func (m *Meter) emit() {
	m.mu.Lock()
	l := m.listener
	m.mu.Unlock()
	if l != nil {
		l(m.level.Load(), m.orient.FaceUp())
	}
}
