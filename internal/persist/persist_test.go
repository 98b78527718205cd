package persist

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/focus_sensors/internal/metrics"
	"github.com/relabs-tech/focus_sensors/internal/sample"
)

type recordingSink struct {
	mu    sync.Mutex
	got   []uint64
	gate  chan struct{}
	fail  error
	delay time.Duration
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Append(ctx context.Context, s sample.Sample) error {
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.got = append(r.got, s.Seq)
	return nil
}

func (r *recordingSink) seqs() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.got...)
}

func TestWriterPreservesOrder(t *testing.T) {
	sink := &recordingSink{delay: time.Millisecond}
	m := metrics.New(nil)
	w := NewWriter(sink, 16, m)

	for i := uint64(1); i <= 10; i++ {
		require.True(t, w.Enqueue(sample.Sample{SessionID: 1, Seq: i}))
	}
	require.NoError(t, w.Close(context.Background()))

	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, sink.seqs())
	assert.Equal(t, 10.0, testutil.ToFloat64(m.SamplesPersisted.WithLabelValues("recording")))
}

func TestWriterDropsWhenFull(t *testing.T) {
	sink := &recordingSink{gate: make(chan struct{})}
	m := metrics.New(nil)
	w := NewWriter(sink, 1, m)

	// the first sample is taken by the worker and blocks on the gate,
	// the second fills the queue, the third is dropped
	require.True(t, w.Enqueue(sample.Sample{Seq: 1}))
	require.Eventually(t, func() bool { return len(w.queue) == 0 }, time.Second, time.Millisecond)
	require.True(t, w.Enqueue(sample.Sample{Seq: 2}))
	assert.False(t, w.Enqueue(sample.Sample{Seq: 3}))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SamplesDropped))

	close(sink.gate)
	require.NoError(t, w.Close(context.Background()))
	assert.Equal(t, []uint64{1, 2}, sink.seqs())
}

func TestWriterEnqueueAfterCloseIsRejected(t *testing.T) {
	w := NewWriter(&recordingSink{}, 4, nil)
	require.NoError(t, w.Close(context.Background()))
	assert.False(t, w.Enqueue(sample.Sample{Seq: 1}))
	// closing twice is harmless
	require.NoError(t, w.Close(context.Background()))
}

func TestWriterCloseIsBounded(t *testing.T) {
	sink := &recordingSink{gate: make(chan struct{})}
	w := NewWriter(sink, 4, nil)
	w.Enqueue(sample.Sample{Seq: 1})
	w.Enqueue(sample.Sample{Seq: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := w.Close(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	// the cancelled worker exits without storing anything
	select {
	case <-w.done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after cancellation")
	}
	assert.Empty(t, sink.seqs())
}

func TestWriterCountsSinkErrors(t *testing.T) {
	m := metrics.New(nil)
	w := NewWriter(&recordingSink{fail: errors.New("disk full")}, 4, m)
	w.Enqueue(sample.Sample{Seq: 1})
	require.NoError(t, w.Close(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistErrors.WithLabelValues("recording")))
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	ok := &recordingSink{}
	bad := &recordingSink{fail: errors.New("offline")}
	err := MultiSink{bad, ok}.Append(context.Background(), sample.Sample{Seq: 7})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "offline")
	assert.Equal(t, []uint64{7}, ok.seqs())
}

func TestMultiSinkDoesNotWaitOnSlowSink(t *testing.T) {
	slow := &recordingSink{gate: make(chan struct{})}
	fast := &recordingSink{}

	done := make(chan error, 1)
	go func() { done <- MultiSink{slow, fast}.Append(context.Background(), sample.Sample{Seq: 3}) }()

	require.Eventually(t, func() bool { return len(fast.seqs()) == 1 }, time.Second, time.Millisecond)
	select {
	case <-done:
		t.Fatal("Append returned before the slow sink finished")
	default:
	}

	close(slow.gate)
	require.NoError(t, <-done)
	assert.Equal(t, []uint64{3}, slow.seqs())
}

func TestSQLSinkAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sink, err := NewSQLSink(db, "sensor_samples")
	require.NoError(t, err)

	ts := time.Now()
	s := sample.Sample{
		Timestamp:      ts,
		SessionID:      42,
		Seq:            3,
		NoiseLevel:     812.5,
		LightLevel:     42.5,
		FaceUp:         true,
		MotionDetected: false,
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO sensor_samples (session_id, seq, ts, noise_level, light_level, face_up, motion_detected) VALUES ($1,$2,$3,$4,$5,$6,$7) ON CONFLICT (session_id, seq) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs(int64(42), int64(3), ts, 812.5, 42.5, true, false).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, sink.Append(context.Background(), s))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSinkEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sink, err := NewSQLSink(db, "sensor_samples")
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS sensor_samples")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, sink.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSinkRejectsBadTableName(t *testing.T) {
	_, err := NewSQLSink(nil, "samples; DROP TABLE users")
	assert.Error(t, err)
}

func TestHubBroadcasts(t *testing.T) {
	h := NewHub()
	_, ok := h.Last()
	assert.False(t, ok)

	a, unsubA := h.Subscribe(1)
	b, unsubB := h.Subscribe(1)
	defer unsubB()

	require.NoError(t, h.Append(context.Background(), sample.Sample{Seq: 1}))
	assert.Equal(t, uint64(1), (<-a).Seq)
	assert.Equal(t, uint64(1), (<-b).Seq)

	unsubA()
	unsubA()
	_, open := <-a
	assert.False(t, open)

	// a full subscriber does not block the hub
	require.NoError(t, h.Append(context.Background(), sample.Sample{Seq: 2}))
	require.NoError(t, h.Append(context.Background(), sample.Sample{Seq: 3}))
	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, uint64(3), last.Seq)
	assert.Equal(t, uint64(2), (<-b).Seq)
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func (t *fakeToken) Wait() bool { <-t.done; return true }
func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}
func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

// fakeClient overrides Publish; the other mqtt.Client methods are unused.
type fakeClient struct {
	mqtt.Client
	topic   string
	payload []byte
	token   *fakeToken
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topic = topic
	c.payload = payload.([]byte)
	return c.token
}

func TestMQTTSinkPublishesJSON(t *testing.T) {
	done := make(chan struct{})
	close(done)
	client := &fakeClient{token: &fakeToken{done: done}}
	sink := NewMQTTSink(client, "focus/samples")

	require.NoError(t, sink.Append(context.Background(), sample.Sample{SessionID: 42, Seq: 1, MotionDetected: true}))
	assert.Equal(t, "focus/samples", client.topic)

	var got sample.Sample
	require.NoError(t, json.Unmarshal(client.payload, &got))
	assert.Equal(t, int64(42), got.SessionID)
	assert.True(t, got.MotionDetected)
}

func TestMQTTSinkHonoursContext(t *testing.T) {
	client := &fakeClient{token: &fakeToken{done: make(chan struct{})}}
	sink := NewMQTTSink(client, "focus/samples")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sink.Append(ctx, sample.Sample{}), context.Canceled)
}

func TestMQTTSinkPublishTimesOut(t *testing.T) {
	client := &fakeClient{token: &fakeToken{done: make(chan struct{})}}
	sink := NewMQTTSink(client, "focus/samples")
	sink.timeout = 10 * time.Millisecond

	start := time.Now()
	err := sink.Append(context.Background(), sample.Sample{Seq: 1})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
