// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package audio measures short-window microphone loudness.
package audio

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"sync"
	"sync/atomic"

	"github.com/relabs-tech/focus_sensors/internal/sensors"
)

const (
	DefaultSampleRate = 44100
	DefaultBufferSize = 2048

	// maxConsecutiveReadErrors turns repeated transient failures into a device failure.
	maxConsecutiveReadErrors = 10
)

var (
	// ErrInvalidFormat is returned when the capture format cannot be opened.
	ErrInvalidFormat = errors.New("audio: invalid capture format")
	// ErrDeviceInit is returned when the capture device fails to open or start.
	ErrDeviceInit = errors.New("audio: device initialization failed")
)

// RMS returns sqrt(Σ x² / N) over buf, or 0 for an empty buffer.
func RMS(buf []int16) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, s := range buf {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(buf)))
}

// Meter runs a dedicated capture loop and publishes the RMS of every buffer.
type Meter struct {
	open      sensors.AudioOpener
	format    sensors.AudioFormat
	onFailure func(error)

	mu  sync.Mutex // serializes Start/Stop
	dev sensors.AudioDevice

	recording atomic.Bool
	amplitude sensors.Float64
	done      chan struct{}

	errMu sync.Mutex
	err   error
}

// NewMeter creates an idle meter. onFailure, if set, is called from the
// capture loop when the device fails for good.
func NewMeter(open sensors.AudioOpener, format sensors.AudioFormat, onFailure func(error)) *Meter {
	return &Meter{open: open, format: format, onFailure: onFailure}
}

// StartRecording opens the device and spawns the capture loop. It does
// nothing if the meter is already recording. When the device cannot be
// initialized no loop is spawned and the error is returned.
func (m *Meter) StartRecording() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.recording.Load() {
		return nil
	}
	if m.format.SampleRate <= 0 || m.format.BufferSize <= 0 {
		return fmt.Errorf("%w: rate=%d buffer=%d", ErrInvalidFormat, m.format.SampleRate, m.format.BufferSize)
	}
	if m.open == nil {
		return fmt.Errorf("%w: no capture device", ErrDeviceInit)
	}

	dev, err := m.open(m.format)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceInit, err)
	}
	if err := dev.Start(); err != nil {
		dev.Close()
		return fmt.Errorf("%w: %w", ErrDeviceInit, err)
	}

	m.setErr(nil)
	m.dev = dev
	m.done = make(chan struct{})
	m.recording.Store(true)
	go m.capture(dev, m.done)

	log.Printf("audio: recording at %d Hz, %d samples per buffer", m.format.SampleRate, m.format.BufferSize)
	return nil
}

// StopRecording clears the recording flag, waits for the capture loop to
// finish its current read, then releases the device and resets the amplitude.
func (m *Meter) StopRecording() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.recording.Swap(false) {
		return
	}
	<-m.done
	if err := m.dev.Close(); err != nil {
		log.Printf("audio: close device: %v", err)
	}
	m.dev = nil
	m.done = nil
	m.amplitude.Store(0)
}

// CurrentAmplitude returns the RMS of the most recent buffer.
func (m *Meter) CurrentAmplitude() float64 {
	return m.amplitude.Load()
}

// IsRecording reports whether a capture loop is running or awaiting StopRecording.
func (m *Meter) IsRecording() bool {
	return m.recording.Load()
}

// Err returns the failure that ended the last capture loop, if any.
func (m *Meter) Err() error {
	m.errMu.Lock()
	defer m.errMu.Unlock()
	return m.err
}

func (m *Meter) setErr(err error) {
	m.errMu.Lock()
	m.err = err
	m.errMu.Unlock()
}

func (m *Meter) capture(dev sensors.AudioDevice, done chan struct{}) {
	defer close(done)

	buf := make([]int16, m.format.BufferSize)
	failures := 0
	for m.recording.Load() {
		n, err := dev.Read(buf)
		if err != nil {
			failures++
			if fatalReadError(err) || failures >= maxConsecutiveReadErrors {
				m.fail(fmt.Errorf("audio: capture stopped after %d failed reads: %w", failures, err))
				return
			}
			log.Printf("audio: read error: %v", err)
			continue
		}
		failures = 0
		m.amplitude.Store(RMS(buf[:n]))
	}
}

func (m *Meter) fail(err error) {
	log.Printf("audio: %v", err)
	m.setErr(err)
	if m.recording.Load() && m.onFailure != nil {
		m.onFailure(err)
	}
}

// fatalReadError reports errors after which the stream cannot deliver data.
func fatalReadError(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, sensors.ErrDeviceBusy) ||
		errors.Is(err, sensors.ErrPermissionDenied)
}
