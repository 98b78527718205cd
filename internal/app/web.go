// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/focus_sensors/internal/persist"
	"github.com/relabs-tech/focus_sensors/internal/sample"
	"github.com/relabs-tech/focus_sensors/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // debug server on the local network
	},
}

const (
	wsWriteTimeout = 5 * time.Second
	wsBuffer       = 16
)

// Status is the document served by /api/status.
type Status struct {
	State           session.State  `json:"state"`
	SessionID       int64          `json:"session_id,omitempty"`
	Amplitude       float64        `json:"amplitude"`
	LightAvailable  bool           `json:"light_available"`
	MotionAvailable bool           `json:"motion_available"`
	MotionFallback  bool           `json:"motion_fallback"`
	LastSample      *sample.Sample `json:"last_sample,omitempty"`
}

type apiError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// NewWebHandler serves the debug API for orch, the live sample stream from
// hub and the metrics in gatherer.
func NewWebHandler(orch *session.Orchestrator, hub *persist.Hub, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		st := Status{
			State:           orch.State(),
			SessionID:       orch.SessionID(),
			Amplitude:       orch.CurrentAmplitude(),
			LightAvailable:  orch.LightSensorAvailable(),
			MotionAvailable: orch.MotionSensorAvailable(),
			MotionFallback:  orch.MotionFallback(),
		}
		if s, ok := hub.Last(); ok {
			st.LastSample = &s
		}
		writeJSON(w, http.StatusOK, st)
	})

	mux.HandleFunc("POST /api/session/start", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: session.ReasonInvalidSession.String(), Detail: err.Error()})
			return
		}
		if err := orch.StartSession(id); err != nil {
			writeJSON(w, statusForStartError(err), apiError{Error: session.ReasonOf(err).String(), Detail: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"state": orch.State(), "session_id": id})
	})

	mux.HandleFunc("POST /api/session/stop", func(w http.ResponseWriter, r *http.Request) {
		orch.StopSession()
		writeJSON(w, http.StatusOK, map[string]any{"state": orch.State()})
	})

	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		streamSamples(w, r, hub)
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return mux
}

func statusForStartError(err error) int {
	switch {
	case errors.Is(err, session.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, session.ErrInvalidSession):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrPermissionMissing):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// streamSamples pushes every new sample to the websocket client until it
// disconnects.
func streamSamples(w http.ResponseWriter, r *http.Request, hub *persist.Hub) {
	// subscribe before the handshake so no sample is missed by a client
	// that starts a session right after connecting
	samples, unsubscribe := hub.Subscribe(wsBuffer)
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: websocket error: %v", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case s, ok := <-samples:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(s); err != nil {
				log.Printf("web: websocket write error: %v", err)
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}
