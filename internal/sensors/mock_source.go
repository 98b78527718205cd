// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/focus_sensors/internal/imu"
)

type mockAccel struct {
	start time.Time
}

// NewMockAccel creates a mock accelerometer that lies face up and is
// flipped face down for a few seconds every minute, with a jolt on each flip.
func NewMockAccel() AccelSource {
	return &mockAccel{start: time.Now()}
}

func (m *mockAccel) ReadAccel() (imu.Accel, error) {
	elapsed := time.Since(m.start).Seconds()
	phase := math.Mod(elapsed, 60)

	z := imu.StandardGravity
	if phase > 50 {
		z = -imu.StandardGravity
	}
	a := imu.Accel{
		X: 0.2 * math.Sin(elapsed),
		Y: 0.2 * math.Cos(elapsed*0.7),
		Z: z,
	}
	if math.Abs(phase-50) < 0.3 || phase < 0.3 {
		a.X += 8
	}
	return a, nil
}

type mockLight struct {
	start time.Time
}

// NewMockLight creates a mock light sensor that drifts slowly between dim and bright.
func NewMockLight() LightSource {
	return &mockLight{start: time.Now()}
}

func (m *mockLight) ReadLight() (float64, error) {
	elapsed := time.Since(m.start).Seconds()
	return 400 + 300*math.Sin(elapsed/30), nil
}

func (m *mockLight) MaxRange() float64 { return 1000 }

type mockAudio struct {
	format AudioFormat
	n      int
}

// MockAudioOpener opens a synthetic microphone producing a quiet tone with a
// loud burst every ten seconds. Reads block for the buffer's real duration.
func MockAudioOpener(f AudioFormat) (AudioDevice, error) {
	return &mockAudio{format: f}, nil
}

func (m *mockAudio) Start() error { return nil }

func (m *mockAudio) Read(buf []int16) (int, error) {
	time.Sleep(time.Duration(len(buf)) * time.Second / time.Duration(m.format.SampleRate))

	amp := 500.0
	if (m.n/m.format.SampleRate)%10 == 0 {
		amp = 8000
	}
	for i := range buf {
		t := float64(m.n+i) / float64(m.format.SampleRate)
		buf[i] = int16(amp * math.Sin(2*math.Pi*440*t))
	}
	m.n += len(buf)
	return len(buf), nil
}

func (m *mockAudio) Close() error { return nil }
