// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/focus_sensors/internal/session"
)

const eventPublishTimeout = 2 * time.Second

// publishEvents forwards orchestrator events to topic until the channel is
// closed. It returns when the last event has been handed to the client.
func publishEvents(events <-chan session.Event, client mqtt.Client, topic string) {
	for e := range events {
		log.Printf("event: %s session=%d %s", e.Kind, e.SessionID, e.Message)

		payload, err := json.Marshal(e)
		if err != nil {
			log.Printf("json marshal error (event): %v", err)
			continue
		}
		token := client.Publish(topic, 1, false, payload)
		if !token.WaitTimeout(eventPublishTimeout) {
			log.Printf("MQTT publish timeout (event %s)", e.Kind)
			continue
		}
		if err := token.Error(); err != nil {
			log.Printf("MQTT publish error (event): %v", err)
		}
	}
}
