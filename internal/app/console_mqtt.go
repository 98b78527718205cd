package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/relabs-tech/focus_sensors/internal/config"
	"github.com/relabs-tech/focus_sensors/internal/sample"
)

// consoleEvent mirrors session.Event on the wire, where the kind is a string.
type consoleEvent struct {
	Kind      string `json:"kind"`
	SessionID int64  `json:"session_id"`
	Message   string `json:"message"`
}

func formatSample(s sample.Sample) string {
	motion := "-"
	if s.MotionDetected {
		motion = "MOTION"
	}
	orient := "down"
	if s.FaceUp {
		orient = "up"
	}
	return fmt.Sprintf(
		"[SAMPLE] %s session=%d #%d noise=%8.1f light=%5.1f face=%-4s %s",
		s.Timestamp.Format("15:04:05"), s.SessionID, s.Seq, s.NoiseLevel, s.LightLevel, orient, motion,
	)
}

func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(fmt.Sprintf("%s-console-%s", cfg.MQTTClientID, uuid.NewString()[:8]))

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to samples
	sampleToken := client.Subscribe(cfg.TopicSamples, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s sample.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: sample unmarshal error: %v", err)
			return
		}
		fmt.Println(formatSample(s))
	})
	sampleToken.Wait()
	if sampleToken.Error() != nil {
		return sampleToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicSamples)

	// Subscribe to session events
	eventToken := client.Subscribe(cfg.TopicEvents, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var e consoleEvent
		if err := json.Unmarshal(msg.Payload(), &e); err != nil {
			log.Printf("console: event unmarshal error: %v", err)
			return
		}
		fmt.Printf("[EVENT ] %s session=%d %s\n", e.Kind, e.SessionID, e.Message)
	})
	eventToken.Wait()
	if eventToken.Error() != nil {
		return eventToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicEvents)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
