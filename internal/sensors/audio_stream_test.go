package sensors

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPCMStreamDecodesLittleEndianAcrossPeriods(t *testing.T) {
	s := newPCMStream(4, time.Second)
	s.push([]byte{0x01, 0x00, 0xFF, 0xFF})
	s.push([]byte{0x00, 0x80, 0xFF, 0x7F})

	buf := make([]int16, 3)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int16{1, -1, -32768}, buf)

	n, err = s.Read(buf[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int16(32767), buf[0])
}

func TestPCMStreamPushCopiesBackendBuffer(t *testing.T) {
	s := newPCMStream(2, time.Second)
	period := []byte{0x10, 0x00}
	s.push(period)
	period[0] = 0x20

	buf := make([]int16, 1)
	_, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, int16(0x10), buf[0])
}

func TestPCMStreamDropsWhenReaderIsBehind(t *testing.T) {
	s := newPCMStream(1, time.Second)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.push([]byte{1, 0})
		s.push([]byte{2, 0})
		s.push(nil)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("push blocked on a full queue")
	}
	assert.Len(t, s.frames, 1)
}

func TestPCMStreamPrimeKeepsFirstPeriod(t *testing.T) {
	s := newPCMStream(2, time.Second)
	s.push([]byte{0x05, 0x00})
	require.NoError(t, s.prime(time.Second))
	assert.Empty(t, s.frames)

	buf := make([]int16, 1)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int16(5), buf[0])
}

func TestPCMStreamPrimeFailsWithoutData(t *testing.T) {
	s := newPCMStream(2, time.Second)
	err := s.prime(10 * time.Millisecond)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestPCMStreamPrimeReportsBackendFailure(t *testing.T) {
	s := newPCMStream(2, time.Second)
	s.fail(classifyCaptureError(errors.New("Device or resource busy")))
	err := s.prime(time.Second)
	require.ErrorIs(t, err, ErrDeviceBusy)
}

func TestPCMStreamEndsWithFirstFailure(t *testing.T) {
	s := newPCMStream(2, time.Second)
	s.push([]byte{0x01, 0x00})
	s.fail(fmt.Errorf("audio: capture ended: %w", io.EOF))
	s.fail(errCaptureClosed)
	s.push([]byte{0x02, 0x00})

	buf := make([]int16, 4)
	n, err := s.Read(buf)
	require.NoError(t, err, "a partial buffer is delivered before the failure")
	assert.Equal(t, 1, n)

	_, err = s.Read(buf)
	require.ErrorIs(t, err, io.EOF)
}

func TestPCMStreamReadStalls(t *testing.T) {
	s := newPCMStream(2, 10*time.Millisecond)
	_, err := s.Read(make([]int16, 4))
	require.ErrorIs(t, err, errCaptureStalled)
}

func TestClassifyCaptureError(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"Device or resource busy.", ErrDeviceBusy},
		{"Permission denied.", ErrPermissionDenied},
		{"Access denied.", ErrPermissionDenied},
		{"No device.", ErrUnavailable},
		{"Device does not exist.", ErrUnavailable},
		{"Generic error.", nil},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			cause := errors.New(tt.msg)
			err := classifyCaptureError(cause)
			require.ErrorIs(t, err, cause)
			for _, sentinel := range []error{ErrDeviceBusy, ErrPermissionDenied, ErrUnavailable} {
				assert.Equal(t, sentinel == tt.want, errors.Is(err, sentinel), sentinel.Error())
			}
		})
	}
	assert.NoError(t, classifyCaptureError(nil))
}
