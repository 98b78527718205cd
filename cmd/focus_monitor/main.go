// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/focus_sensors/internal/app"
	"github.com/relabs-tech/focus_sensors/internal/config"
)

func main() {
	configPath := flag.String("config", "focus_config.txt", "path to the KEY=VALUE config file")
	sessionID := flag.Int64("session", 0, "start this session id immediately (0 waits for the API)")
	mock := flag.Bool("mock", false, "use mock sensors regardless of USE_MOCK_SENSORS")
	flag.Parse()

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *mock {
		config.Get().UseMockSensors = true
	}

	if err := app.RunMonitor(app.MonitorOptions{SessionID: *sessionID}); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
