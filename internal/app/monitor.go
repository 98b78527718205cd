// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/relabs-tech/focus_sensors/internal/config"
	"github.com/relabs-tech/focus_sensors/internal/metrics"
	"github.com/relabs-tech/focus_sensors/internal/persist"
	"github.com/relabs-tech/focus_sensors/internal/sensors"
	"github.com/relabs-tech/focus_sensors/internal/session"
)

// MonitorOptions are the command line choices of the monitor.
type MonitorOptions struct {
	// SessionID, when positive, starts that session as soon as the monitor is up.
	SessionID int64
}

// RunMonitor wires hardware, sinks and the orchestrator from the global
// config and serves the debug API until SIGINT or SIGTERM.
func RunMonitor(opts MonitorOptions) error {
	log.Println("starting focus monitor")

	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// --- connect to MQTT ---
	clientID := fmt.Sprintf("%s-%s", cfg.MQTTClientID, uuid.NewString()[:8])
	mqttOpts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(mqttOpts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("connected to MQTT broker %s as %s", cfg.MQTTBroker, clientID)

	// --- sinks ---
	hub := persist.NewHub()
	sinks := persist.MultiSink{persist.NewMQTTSink(client, cfg.TopicSamples), hub}

	db, sqlSink, err := openSQLSink(ctx, cfg)
	if err != nil {
		log.Printf("WARNING: SQL sink disabled: %v", err)
	} else if db != nil {
		defer db.Close()
		sinks = append(sinks, sqlSink)
		log.Printf("persisting samples to table %s", cfg.DBTable)
	}

	writer := persist.NewWriter(sinks, cfg.PersistQueueSize, m)

	// --- hardware + orchestrator ---
	hw, closeHardware := OpenHardware(cfg)
	defer closeHardware()

	orch := session.New(hw, writer, session.Options{
		SampleInterval:  config.Duration(cfg.SampleInterval),
		LightInterval:   config.Duration(cfg.SensorPollInterval),
		FaceUpInterval:  config.Duration(cfg.SensorPollInterval),
		MotionInterval:  config.Duration(cfg.MotionPollInterval),
		FaceUpThreshold: cfg.FaceUpThreshold,
		MotionThreshold: cfg.MotionThreshold,
		AudioFormat: sensors.AudioFormat{
			SampleRate: cfg.AudioSampleRate,
			BufferSize: cfg.AudioBufferSize,
		},
		Foreground: NewLockFile(cfg.LockFile),
		Metrics:    m,
	})

	eventsDone := make(chan struct{})
	go func() {
		defer close(eventsDone)
		publishEvents(orch.Events(), client, cfg.TopicEvents)
	}()

	// --- debug web server ---
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           NewWebHandler(orch, hub, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("web server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("web server exited: %v", err)
			stop()
		}
	}()

	if opts.SessionID > 0 {
		if err := orch.StartSession(opts.SessionID); err != nil {
			log.Printf("WARNING: session %d not started: %v", opts.SessionID, err)
		}
	}

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.ShutdownTimeout))
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errs = append(errs, err)
	}
	if err := orch.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	select {
	case <-eventsDone:
	case <-shutdownCtx.Done():
	}
	return errors.Join(errs...)
}

// openSQLSink opens the database when DB_CONN_STRING is set and returns
// the sink with its schema in place. The db is nil when no database is
// configured.
func openSQLSink(ctx context.Context, cfg *config.Config) (*sql.DB, *persist.SQLSink, error) {
	if cfg.DBConnString == "" {
		return nil, nil, nil
	}
	db, err := sql.Open("postgres", cfg.DBConnString)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}

	sink, err := persist.NewSQLSink(db, cfg.DBTable)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := sink.EnsureSchema(pingCtx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, sink, nil
}
