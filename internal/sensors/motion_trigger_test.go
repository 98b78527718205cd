package sensors

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/devices/v3/mpu9250/reg"
)

func newTestPin() *gpiotest.Pin {
	return &gpiotest.Pin{N: "GPIO17", Num: 17, EdgesChan: make(chan gpio.Level)}
}

// edgeTaken reports whether an armed watcher consumed a rising edge.
func edgeTaken(p *gpiotest.Pin) bool {
	select {
	case p.EdgesChan <- gpio.High:
		return true
	case <-time.After(3 * edgeWaitSlice):
		return false
	}
}

func TestGPIOTriggerFiresOnce(t *testing.T) {
	pin := newTestPin()
	tr := newGPIOTrigger(pin)

	fired := make(chan struct{}, 2)
	require.NoError(t, tr.RequestTrigger(func() { fired <- struct{}{} }))
	require.NoError(t, tr.RequestTrigger(func() { t.Error("second arm replaced the first") }))
	assert.Equal(t, gpio.PullDown, pin.Pull())

	require.True(t, edgeTaken(pin))
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("trigger did not fire")
	}

	assert.False(t, edgeTaken(pin), "edge consumed without an armed trigger")
	assert.Len(t, fired, 0)
}

func TestGPIOTriggerRearmsFromFire(t *testing.T) {
	pin := newTestPin()
	tr := newGPIOTrigger(pin)

	var fires atomic.Int32
	var fire func()
	fire = func() {
		fires.Add(1)
		assert.NoError(t, tr.RequestTrigger(fire))
	}
	require.NoError(t, tr.RequestTrigger(fire))

	require.True(t, edgeTaken(pin))
	require.Eventually(t, func() bool { return fires.Load() == 1 }, time.Second, time.Millisecond)
	require.True(t, edgeTaken(pin))
	require.Eventually(t, func() bool { return fires.Load() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, tr.CancelTrigger())
	assert.False(t, edgeTaken(pin))
	assert.Equal(t, int32(2), fires.Load())
}

func TestGPIOTriggerCancelStopsWatcher(t *testing.T) {
	pin := newTestPin()
	tr := newGPIOTrigger(pin)

	require.NoError(t, tr.CancelTrigger(), "cancel without an arm is a no-op")
	require.NoError(t, tr.RequestTrigger(func() { t.Error("fired after cancel") }))

	start := time.Now()
	require.NoError(t, tr.CancelTrigger())
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, edgeTaken(pin))

	// the trigger can be armed again after a cancel
	fired := make(chan struct{}, 1)
	require.NoError(t, tr.RequestTrigger(func() { fired <- struct{}{} }))
	require.True(t, edgeTaken(pin))
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("trigger did not fire after re-arm")
	}
}

func TestGPIOTriggerArmFailure(t *testing.T) {
	tr := newGPIOTrigger(&gpiotest.Pin{N: "GPIO17"})
	err := tr.RequestTrigger(func() {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GPIO17")
	require.NoError(t, tr.CancelTrigger())
}

func TestMotionTriggerNeedsWakeOnMotion(t *testing.T) {
	_, err := NewGPIOMotionTrigger("GPIO17", NewMockAccel(), 2)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestWOMThreshold(t *testing.T) {
	assert.Equal(t, byte(51), WOMThreshold(2.0))
	assert.Equal(t, byte(1), WOMThreshold(0))
	assert.Equal(t, byte(1), WOMThreshold(-3))
	assert.Equal(t, byte(255), WOMThreshold(100))
}

type recordedWrite struct {
	addr, value byte
	viaInt      bool
}

type fakeRegisters struct {
	writes []recordedWrite
	failAt byte
}

func (f *fakeRegisters) WriteByteAddress(address, value byte) error {
	if f.failAt != 0 && address == f.failAt {
		return errors.New("spi: transfer failed")
	}
	f.writes = append(f.writes, recordedWrite{addr: address, value: value})
	return nil
}

func (f *fakeRegisters) SetIntEnabled(enabled byte) error {
	f.writes = append(f.writes, recordedWrite{addr: reg.MPU9250_INT_ENABLE, value: enabled, viaInt: true})
	return nil
}

func TestWakeOnMotionProgram(t *testing.T) {
	dev := &fakeRegisters{}
	require.NoError(t, applyRegisters(dev, WakeOnMotionProgram(2.0)))

	got := map[byte]recordedWrite{}
	for _, w := range dev.writes {
		got[w.addr] = w
	}
	assert.Len(t, dev.writes, 6)
	assert.Equal(t, recordedWrite{addr: 0x38, value: 0x40, viaInt: true}, got[0x38], "INT_ENABLE WOM_EN")
	assert.Equal(t, byte(0xC0), got[0x69].value, "MOT_DETECT_CTRL")
	assert.Equal(t, byte(51), got[0x1F].value, "WOM_THR")
	assert.Equal(t, byte(0x08), got[0x1E].value, "LP_ACCEL_ODR")
	assert.Equal(t, byte(0x00), got[0x37].value, "INT_PIN_CFG active high pulse")

	// the accelerometer filter is set before the interrupt is enabled
	assert.Equal(t, byte(0x1D), dev.writes[0].addr)
}

func TestWakeOnMotionProgramStopsOnError(t *testing.T) {
	dev := &fakeRegisters{failAt: reg.MPU9250_MOT_DETECT_CTRL}
	err := applyRegisters(dev, WakeOnMotionProgram(2.0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MOT_DETECT_CTRL")
	assert.Len(t, dev.writes, 3)
}
