// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"sync"

	"github.com/relabs-tech/focus_sensors/internal/imu"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// AccelOptions selects the MPU9250 used for orientation and fallback motion.
type AccelOptions struct {
	SPIDevice string
	CSPin     string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	Range     byte
	Calibrate bool
}

type mpuAccel struct {
	mu       sync.Mutex // the SPI transport is shared by orientation and motion pollers
	imu      *mpu9250.MPU9250
	rangeIdx byte
}

// NewMPU9250Accel initializes an MPU9250 over SPI and returns it as an AccelSource.
func NewMPU9250Accel(opts AccelOptions) (AccelSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(opts.CSPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found: %w", opts.CSPin, ErrUnavailable)
	}

	tr, err := mpu9250.NewSpiTransport(opts.SPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", opts.SPIDevice, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := dev.SetAccelRange(opts.Range); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	log.Printf("IMU: accelerometer range set to %d (±%dg)", opts.Range, []int{2, 4, 8, 16}[opts.Range&3])

	if opts.Calibrate {
		if _, err := dev.SelfTest(); err != nil {
			log.Printf("Warning: IMU self-test failed: %v", err)
		}
		if err := dev.Calibrate(); err != nil {
			log.Printf("Warning: IMU calibration failed: %v", err)
		} else {
			log.Println("IMU calibration complete")
		}
	}

	return &mpuAccel{imu: dev, rangeIdx: opts.Range}, nil
}

// ReadAccel reads the three accelerometer axes and converts them to m/s².
func (s *mpuAccel) ReadAccel() (imu.Accel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return imu.Accel{}, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return imu.Accel{}, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return imu.Accel{}, fmt.Errorf("IMU accel Z: %w", err)
	}

	return imu.Accel{
		X: imu.CountsToMS2(ax, s.rangeIdx),
		Y: imu.CountsToMS2(ay, s.rangeIdx),
		Z: imu.CountsToMS2(az, s.rangeIdx),
	}, nil
}

// EnableWakeOnMotion programs the wake-on-motion interrupt on the INT line.
func (s *mpuAccel) EnableWakeOnMotion(thresholdMS2 float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := applyRegisters(s.imu, WakeOnMotionProgram(thresholdMS2)); err != nil {
		return fmt.Errorf("IMU: wake on motion: %w", err)
	}
	log.Printf("IMU: wake on motion enabled, threshold %.1f m/s² (WOM_THR=%d)", thresholdMS2, WOMThreshold(thresholdMS2))
	return nil
}
