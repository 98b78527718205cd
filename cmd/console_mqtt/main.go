package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/focus_sensors/internal/app"
	"github.com/relabs-tech/focus_sensors/internal/config"
)

func main() {
	configPath := flag.String("config", "focus_config.txt", "path to the KEY=VALUE config file")
	flag.Parse()

	log.Println("starting focus console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsoleMQTT(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
