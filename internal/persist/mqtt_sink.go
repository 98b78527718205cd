// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/relabs-tech/focus_sensors/internal/sample"
)

// DefaultPublishTimeout bounds a single sample publish.
const DefaultPublishTimeout = 2 * time.Second

// MQTTSink publishes every sample as JSON on a topic.
type MQTTSink struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
}

// NewMQTTSink publishes through an already connected client.
func NewMQTTSink(client mqtt.Client, topic string) *MQTTSink {
	return &MQTTSink{client: client, topic: topic, timeout: DefaultPublishTimeout}
}

// Name implements Sink.
func (m *MQTTSink) Name() string { return "mqtt" }

// Append implements Sink.
func (m *MQTTSink) Append(ctx context.Context, s sample.Sample) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	token := m.client.Publish(m.topic, 0, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("MQTT publish %s: %w", m.topic, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Sink = (*MQTTSink)(nil)
