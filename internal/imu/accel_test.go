package imu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMagnitude(t *testing.T) {
	assert.InDelta(t, 5.0, Accel{X: 3, Y: 4}.Magnitude(), 1e-9)
	assert.InDelta(t, StandardGravity, Accel{Z: StandardGravity}.Magnitude(), 1e-9)
	assert.Zero(t, Accel{}.Magnitude())
}

func TestCountsToMS2(t *testing.T) {
	// One g is 16384 counts at ±2g and 2048 counts at ±16g.
	assert.InDelta(t, StandardGravity, CountsToMS2(16384, 0), 1e-9)
	assert.InDelta(t, StandardGravity, CountsToMS2(8192, 1), 1e-9)
	assert.InDelta(t, StandardGravity, CountsToMS2(2048, 3), 1e-9)
	assert.InDelta(t, -StandardGravity, CountsToMS2(-16384, 0), 1e-9)
}
