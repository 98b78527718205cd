// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics exposes monitor counters and gauges to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the monitor updates.
type Metrics struct {
	SamplesEmitted   prometheus.Counter
	SamplesPersisted *prometheus.CounterVec
	PersistErrors    *prometheus.CounterVec
	SamplesDropped   prometheus.Counter
	PersistLatency   prometheus.Histogram
	MotionEvents     prometheus.Counter
	AudioFailures    prometheus.Counter
	SessionStarts    *prometheus.CounterVec
	SessionActive    prometheus.Gauge
	Amplitude        prometheus.Gauge
	LightLevel       prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which is what tests and library callers usually want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SamplesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "focus_samples_emitted_total",
			Help: "Sensor samples assembled by the sampling loop.",
		}),
		SamplesPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "focus_samples_persisted_total",
			Help: "Sensor samples accepted by a sink.",
		}, []string{"sink"}),
		PersistErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "focus_persist_errors_total",
			Help: "Sensor samples a sink failed to store.",
		}, []string{"sink"}),
		SamplesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "focus_samples_dropped_total",
			Help: "Sensor samples lost because the persistence queue was full or shutting down.",
		}),
		PersistLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "focus_persist_latency_seconds",
			Help:    "Time spent handing one sample to the sink.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		MotionEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "focus_motion_events_total",
			Help: "Motion events reported by the motion detector.",
		}),
		AudioFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "focus_audio_failures_total",
			Help: "Capture loops ended by a device failure.",
		}),
		SessionStarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "focus_session_starts_total",
			Help: "Session start attempts by outcome.",
		}, []string{"outcome"}),
		SessionActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "focus_session_active",
			Help: "1 while a monitoring session is running.",
		}),
		Amplitude: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "focus_noise_level",
			Help: "RMS loudness in the most recent sample.",
		}),
		LightLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "focus_light_level",
			Help: "Light level (0-100) in the most recent sample.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.SamplesEmitted,
			m.SamplesPersisted,
			m.PersistErrors,
			m.SamplesDropped,
			m.PersistLatency,
			m.MotionEvents,
			m.AudioFailures,
			m.SessionStarts,
			m.SessionActive,
			m.Amplitude,
			m.LightLevel,
		)
	}
	return m
}
