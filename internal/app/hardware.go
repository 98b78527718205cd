// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/relabs-tech/focus_sensors/internal/config"
	"github.com/relabs-tech/focus_sensors/internal/sensors"
	"github.com/relabs-tech/focus_sensors/internal/session"
)

// OpenHardware builds the sensor sources described by cfg. A sensor that is
// not configured or fails to initialize is left nil with a warning, so the
// session runs without it. The returned function releases what was opened.
func OpenHardware(cfg *config.Config) (session.Hardware, func()) {
	if cfg.UseMockSensors {
		log.Println("hardware: using mock sensors")
		return session.Hardware{
			Accel:       sensors.NewMockAccel(),
			Light:       sensors.NewMockLight(),
			Audio:       sensors.MockAudioOpener,
			Permissions: sensors.StaticPermissions(true),
		}, func() {}
	}

	var (
		hw      session.Hardware
		closers []io.Closer
	)

	if cfg.IMUSPIDevice != "" {
		accel, err := sensors.NewMPU9250Accel(sensors.AccelOptions{
			SPIDevice: cfg.IMUSPIDevice,
			CSPin:     cfg.IMUCSPin,
			Range:     cfg.IMUAccelRange,
			Calibrate: cfg.IMUCalibrate,
		})
		if err != nil {
			log.Printf("WARNING: accelerometer not available, orientation and fallback motion disabled: %v", err)
		} else {
			hw.Accel = accel
		}
	} else {
		log.Println("WARNING: IMU_SPI_DEVICE not set, orientation and fallback motion disabled")
	}

	if cfg.LightI2CBus != "" {
		src, err := sensors.NewADS1115Light(sensors.LightOptions{
			I2CBus:  cfg.LightI2CBus,
			I2CAddr: cfg.LightI2CAddr,
			Channel: cfg.LightADCChannel,
			MaxVolt: cfg.LightMaxRange,
		})
		if err != nil {
			log.Printf("WARNING: light sensor not available: %v", err)
		} else {
			hw.Light = src
			if c, ok := src.(io.Closer); ok {
				closers = append(closers, c)
			}
		}
	} else {
		log.Println("WARNING: LIGHT_I2C_BUS not set, light level will read 0")
	}

	if cfg.MotionIntPin != "" {
		trigger, err := openMotionTrigger(cfg, hw.Accel)
		switch {
		case errors.Is(err, sensors.ErrUnavailable):
			log.Printf("motion: %v, using accelerometer fallback", err)
		case err != nil:
			log.Printf("WARNING: motion trigger init failed, using accelerometer fallback: %v", err)
		default:
			hw.Motion = trigger
		}
	}

	hw.Audio = sensors.CaptureOpener(cfg.AudioDevice)
	hw.Permissions = sensors.DevicePermissions{}

	return hw, func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Printf("hardware: close: %v", err)
			}
		}
	}
}

// openMotionTrigger returns the interrupt-driven trigger when the IMU can
// be programmed for wake on motion.
func openMotionTrigger(cfg *config.Config, accel sensors.AccelSource) (sensors.MotionTrigger, error) {
	if accel == nil {
		return nil, fmt.Errorf("motion: no accelerometer to drive %s: %w", cfg.MotionIntPin, sensors.ErrUnavailable)
	}
	return sensors.NewGPIOMotionTrigger(cfg.MotionIntPin, accel, cfg.MotionThreshold)
}
