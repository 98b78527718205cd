// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"math"

	"periph.io/x/devices/v3/mpu9250/reg"

	"github.com/relabs-tech/focus_sensors/internal/imu"
)

const (
	// womThresholdLSB is the WOM_THR resolution in mg.
	womThresholdLSB = 4.0
	// lpAccelODR62Hz selects 62.5 Hz in LP_ACCEL_ODR.
	lpAccelODR62Hz = 0x08
	// accelDLPF184Hz sets ACCEL_CONFIG2 to fchoice_b=0, A_DLPFCFG=1.
	accelDLPF184Hz = 0x01
)

// RegisterWrite is one step of an MPU9250 register program.
type RegisterWrite struct {
	Address     byte
	Name        string
	Value       byte
	Description string
}

// registerWriter is the part of the periph MPU9250 driver a register
// program needs.
type registerWriter interface {
	WriteByteAddress(address, value byte) error
	SetIntEnabled(enabled byte) error
}

// WOMThreshold converts a motion threshold in m/s² to the WOM_THR register
// value. The register holds 4 mg steps in 1..255.
func WOMThreshold(thresholdMS2 float64) byte {
	mg := thresholdMS2 / imu.StandardGravity * 1000
	steps := math.Round(mg / womThresholdLSB)
	switch {
	case steps < 1:
		return 1
	case steps > 255:
		return 255
	}
	return byte(steps)
}

// WakeOnMotionProgram returns the register writes that make the MPU9250
// pulse its INT line when an axis moves more than thresholdMS2 away from
// the reference sample. The accelerometer stays in full power mode so it
// can still be polled for orientation.
func WakeOnMotionProgram(thresholdMS2 float64) []RegisterWrite {
	return []RegisterWrite{
		{Address: reg.MPU9250_ACCEL_CONFIG2, Name: "ACCEL_CONFIG2", Value: accelDLPF184Hz,
			Description: "Accel DLPF 184 Hz"},
		{Address: reg.MPU9250_INT_PIN_CFG, Name: "INT_PIN_CFG", Value: 0x00,
			Description: "INT active high, push-pull, 50us pulse"},
		{Address: reg.MPU9250_INT_ENABLE, Name: "INT_ENABLE", Value: reg.MPU9250_WOM_EN_MASK,
			Description: "Wake on Motion interrupt only"},
		{Address: reg.MPU9250_MOT_DETECT_CTRL, Name: "MOT_DETECT_CTRL",
			Value:       reg.MPU9250_ACCEL_INTEL_EN_MASK | reg.MPU9250_ACCEL_INTEL_MODE_MASK,
			Description: "Accel intelligence on, compare with previous sample"},
		{Address: reg.MPU9250_WOM_THR, Name: "WOM_THR", Value: WOMThreshold(thresholdMS2),
			Description: fmt.Sprintf("Wake on Motion threshold %.1f m/s²", thresholdMS2)},
		{Address: reg.MPU9250_LP_ACCEL_ODR, Name: "LP_ACCEL_ODR", Value: lpAccelODR62Hz,
			Description: "Low power accel ODR 62.5 Hz"},
	}
}

// applyRegisters writes prog in order and stops at the first failure.
func applyRegisters(dev registerWriter, prog []RegisterWrite) error {
	for _, w := range prog {
		var err error
		if w.Address == reg.MPU9250_INT_ENABLE {
			err = dev.SetIntEnabled(w.Value)
		} else {
			err = dev.WriteByteAddress(w.Address, w.Value)
		}
		if err != nil {
			return fmt.Errorf("write %s (0x%02X=0x%02X): %w", w.Name, w.Address, w.Value, err)
		}
	}
	return nil
}
