package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/focus_sensors/internal/config"
	"github.com/relabs-tech/focus_sensors/internal/metrics"
	"github.com/relabs-tech/focus_sensors/internal/persist"
	"github.com/relabs-tech/focus_sensors/internal/sample"
	"github.com/relabs-tech/focus_sensors/internal/sensors"
	"github.com/relabs-tech/focus_sensors/internal/session"
)

func newTestServer(t *testing.T) (*httptest.Server, *session.Orchestrator, *persist.Hub) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hub := persist.NewHub()

	hw := session.Hardware{Accel: sensors.NewMockAccel(), Light: sensors.NewMockLight()}
	orch := session.New(hw, nil, session.Options{SampleInterval: time.Hour, Metrics: m})
	t.Cleanup(func() { orch.Shutdown(context.Background()) })

	srv := httptest.NewServer(NewWebHandler(orch, hub, reg))
	t.Cleanup(srv.Close)
	return srv, orch, hub
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestStatusEndpoint(t *testing.T) {
	srv, _, hub := newTestServer(t)
	require.NoError(t, hub.Append(context.Background(), sample.Sample{SessionID: 3, Seq: 9}))

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var st map[string]any
	decode(t, resp, &st)
	assert.Equal(t, "idle", st["state"])
	assert.Equal(t, true, st["light_available"])
	assert.Equal(t, false, st["motion_available"])
	assert.Equal(t, true, st["motion_fallback"])
	require.Contains(t, st, "last_sample")
	assert.Equal(t, float64(9), st["last_sample"].(map[string]any)["seq"])
}

func TestSessionEndpoints(t *testing.T) {
	srv, orch, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/session/start?id=42", "", nil)
	require.NoError(t, err)
	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "running", body["state"])
	assert.Equal(t, session.Running, orch.State())

	resp, err = http.Post(srv.URL+"/api/session/start?id=43", "", nil)
	require.NoError(t, err)
	var apiErr map[string]string
	decode(t, resp, &apiErr)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already running", apiErr["error"])

	resp, err = http.Post(srv.URL+"/api/session/stop", "", nil)
	require.NoError(t, err)
	decode(t, resp, &body)
	assert.Equal(t, "idle", body["state"])
	assert.Equal(t, session.Idle, orch.State())
}

func TestStartRejectsBadID(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, q := range []string{"id=0", "id=-5", "id=abc", ""} {
		resp, err := http.Post(srv.URL+"/api/session/start?"+q, "", nil)
		require.NoError(t, err)
		var apiErr map[string]string
		decode(t, resp, &apiErr)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		assert.Equal(t, "invalid session", apiErr["error"], q)
	}
}

func TestMethodsAreEnforced(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/session/start?id=1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, orch, _ := newTestServer(t)
	require.Error(t, orch.StartSession(-1))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `focus_session_starts_total{outcome="invalid session"} 1`)
}

func TestWebsocketStreamsSamples(t *testing.T) {
	srv, _, hub := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, hub.Append(context.Background(), sample.Sample{SessionID: 5, Seq: 1, FaceUp: true}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got sample.Sample
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, int64(5), got.SessionID)
	assert.True(t, got.FaceUp)
}

func TestLockFileIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "focus.lock")
	a := NewLockFile(path)
	b := NewLockFile(path)

	require.NoError(t, a.Acquire())
	require.NoError(t, a.Acquire(), "re-acquiring a held lock is a no-op")
	assert.Error(t, b.Acquire())

	a.Release()
	a.Release()
	require.NoError(t, b.Acquire())
	b.Release()
}

func TestMockHardware(t *testing.T) {
	hw, closeHW := OpenHardware(&config.Config{UseMockSensors: true})
	defer closeHW()
	assert.NotNil(t, hw.Accel)
	assert.NotNil(t, hw.Light)
	assert.Nil(t, hw.Motion)
	assert.True(t, hw.Permissions.MicrophoneGranted())
}

func TestFormatSample(t *testing.T) {
	s := sample.Sample{
		Timestamp:      time.Date(2026, 3, 1, 9, 30, 5, 0, time.UTC),
		SessionID:      42,
		Seq:            3,
		NoiseLevel:     120.25,
		LightLevel:     55.5,
		FaceUp:         true,
		MotionDetected: true,
	}
	out := formatSample(s)
	assert.Contains(t, out, "09:30:05 session=42 #3")
	assert.Contains(t, out, "light= 55.5")
	assert.Contains(t, out, "face=up")
	assert.True(t, strings.HasSuffix(out, "MOTION"))
}

type doneToken struct{ mqtt.Token }

func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Error() error                   { return nil }

type publishRecorder struct {
	mqtt.Client
	mu       sync.Mutex
	payloads [][]byte
	topics   []string
}

func (p *publishRecorder) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload.([]byte))
	return doneToken{}
}

func TestPublishEvents(t *testing.T) {
	events := make(chan session.Event, 2)
	events <- session.Event{Kind: session.EventSessionStarted, SessionID: 42}
	events <- session.Event{Kind: session.EventAudioFailed, SessionID: 42, Message: "capture ended"}
	close(events)

	rec := &publishRecorder{}
	publishEvents(events, rec, "focus/events")

	require.Len(t, rec.payloads, 2)
	assert.Equal(t, []string{"focus/events", "focus/events"}, rec.topics)

	var e consoleEvent
	require.NoError(t, json.Unmarshal(rec.payloads[1], &e))
	assert.Equal(t, "audio device failed", e.Kind)
	assert.Equal(t, int64(42), e.SessionID)
	assert.Equal(t, "capture ended", e.Message)
}

func TestSQLSinkDisabledWithoutConnString(t *testing.T) {
	db, sink, err := openSQLSink(context.Background(), &config.Config{DBTable: "sensor_samples"})
	require.NoError(t, err)
	assert.Nil(t, db)
	assert.Nil(t, sink)
}

func TestMotionTriggerNeedsProgrammableIMU(t *testing.T) {
	cfg := &config.Config{MotionIntPin: "GPIO17", MotionThreshold: 2}

	_, err := openMotionTrigger(cfg, nil)
	require.ErrorIs(t, err, sensors.ErrUnavailable)

	_, err = openMotionTrigger(cfg, sensors.NewMockAccel())
	require.ErrorIs(t, err, sensors.ErrUnavailable)
}
