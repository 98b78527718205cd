package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker   string
	MQTTClientID string

	// Topics
	TopicSamples string
	TopicEvents  string

	// SQL sink (optional)
	DBConnString string
	DBTable      string

	// IMU Hardware (orientation + fallback motion)
	IMUSPIDevice string
	IMUCSPin     string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	IMUCalibrate  bool

	// Light sensor ADC
	LightI2CBus     string
	LightI2CAddr    uint16
	LightADCChannel int
	LightMaxRange   float64 // volts at full brightness

	// Significant motion interrupt line
	MotionIntPin string

	// Audio
	AudioDevice     string
	AudioSampleRate int
	AudioBufferSize int

	// Timing
	SampleInterval     int // milliseconds
	SensorPollInterval int // milliseconds
	MotionPollInterval int // milliseconds
	ShutdownTimeout    int // milliseconds

	// Thresholds (m/s²)
	FaceUpThreshold float64
	MotionThreshold float64

	// Persistence
	PersistQueueSize int

	// Web Server
	WebServerPort int

	// Held while a session runs so two monitors never share the sensors
	LockFile string

	UseMockSensors bool
}

// Defaults for keys that may be omitted from the file.
const (
	DefaultSampleInterval     = 5000
	DefaultSensorPollInterval = 200
	DefaultMotionPollInterval = 100
	DefaultShutdownTimeout    = 3000
	DefaultFaceUpThreshold    = 2.0
	DefaultMotionThreshold    = 2.0
	DefaultAudioSampleRate    = 44100
	DefaultAudioBufferSize    = 2048
	DefaultPersistQueueSize   = 256
	DefaultWebServerPort      = 8080
	DefaultTopicSamples       = "focus/samples"
	DefaultTopicEvents        = "focus/events"
	DefaultDBTable            = "sensor_samples"
	DefaultLockFile           = "/tmp/focus_monitor.lock"
)

// globalConfig is set once by InitGlobal and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := &Config{}
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value

	// Topics
	case "TOPIC_SAMPLES":
		c.TopicSamples = value
	case "TOPIC_EVENTS":
		c.TopicEvents = value

	// SQL
	case "DB_CONN_STRING":
		c.DBConnString = value
	case "DB_TABLE":
		c.DBTable = value

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_CALIBRATE":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_CALIBRATE %q: %w", value, err)
		}
		c.IMUCalibrate = b

	// Light sensor
	case "LIGHT_I2C_BUS":
		c.LightI2CBus = value
	case "LIGHT_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid LIGHT_I2C_ADDR %q: %w", value, err)
		}
		c.LightI2CAddr = uint16(addr)
	case "LIGHT_ADC_CHANNEL":
		ch, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LIGHT_ADC_CHANNEL %q: %w", value, err)
		}
		if ch < 0 || ch > 3 {
			return fmt.Errorf("LIGHT_ADC_CHANNEL must be 0-3, got %d", ch)
		}
		c.LightADCChannel = ch
	case "LIGHT_MAX_RANGE":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid LIGHT_MAX_RANGE %q: %w", value, err)
		}
		if v < 0 {
			return fmt.Errorf("LIGHT_MAX_RANGE must not be negative, got %g", v)
		}
		c.LightMaxRange = v

	// Motion
	case "MOTION_INT_PIN":
		c.MotionIntPin = value

	// Audio
	case "AUDIO_DEVICE":
		c.AudioDevice = value
	case "AUDIO_SAMPLE_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid AUDIO_SAMPLE_RATE %q: %w", value, err)
		}
		if rate <= 0 {
			return fmt.Errorf("AUDIO_SAMPLE_RATE must be positive, got %d", rate)
		}
		c.AudioSampleRate = rate
	case "AUDIO_BUFFER_SIZE":
		size, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid AUDIO_BUFFER_SIZE %q: %w", value, err)
		}
		if size <= 0 {
			return fmt.Errorf("AUDIO_BUFFER_SIZE must be positive, got %d", size)
		}
		c.AudioBufferSize = size

	// Timing
	case "SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.SampleInterval = interval
	case "SENSOR_POLL_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SENSOR_POLL_INTERVAL %q: %w", value, err)
		}
		c.SensorPollInterval = interval
	case "MOTION_POLL_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOTION_POLL_INTERVAL %q: %w", value, err)
		}
		c.MotionPollInterval = interval
	case "SHUTDOWN_TIMEOUT":
		timeout, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q: %w", value, err)
		}
		c.ShutdownTimeout = timeout

	// Thresholds
	case "FACE_UP_THRESHOLD":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid FACE_UP_THRESHOLD %q: %w", value, err)
		}
		c.FaceUpThreshold = v
	case "MOTION_THRESHOLD":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid MOTION_THRESHOLD %q: %w", value, err)
		}
		c.MotionThreshold = v

	// Persistence
	case "PERSIST_QUEUE_SIZE":
		size, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid PERSIST_QUEUE_SIZE %q: %w", value, err)
		}
		c.PersistQueueSize = size

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	case "LOCK_FILE":
		c.LockFile = value

	case "USE_MOCK_SENSORS":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid USE_MOCK_SENSORS %q: %w", value, err)
		}
		c.UseMockSensors = b

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// applyDefaults fills in every optional key left unset.
func (c *Config) applyDefaults() {
	if c.TopicSamples == "" {
		c.TopicSamples = DefaultTopicSamples
	}
	if c.TopicEvents == "" {
		c.TopicEvents = DefaultTopicEvents
	}
	if c.DBTable == "" {
		c.DBTable = DefaultDBTable
	}
	if c.AudioSampleRate == 0 {
		c.AudioSampleRate = DefaultAudioSampleRate
	}
	if c.AudioBufferSize == 0 {
		c.AudioBufferSize = DefaultAudioBufferSize
	}
	if c.SampleInterval == 0 {
		c.SampleInterval = DefaultSampleInterval
	}
	if c.SensorPollInterval == 0 {
		c.SensorPollInterval = DefaultSensorPollInterval
	}
	if c.MotionPollInterval == 0 {
		c.MotionPollInterval = DefaultMotionPollInterval
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.FaceUpThreshold == 0 {
		c.FaceUpThreshold = DefaultFaceUpThreshold
	}
	if c.MotionThreshold == 0 {
		c.MotionThreshold = DefaultMotionThreshold
	}
	if c.PersistQueueSize == 0 {
		c.PersistQueueSize = DefaultPersistQueueSize
	}
	if c.WebServerPort == 0 {
		c.WebServerPort = DefaultWebServerPort
	}
	if c.LockFile == "" {
		c.LockFile = DefaultLockFile
	}
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.MQTTClientID == "" {
		return fmt.Errorf("MQTT_CLIENT_ID is required")
	}
	if c.SampleInterval < 0 || c.SensorPollInterval < 0 || c.MotionPollInterval < 0 || c.ShutdownTimeout < 0 {
		return fmt.Errorf("intervals must not be negative")
	}
	if c.FaceUpThreshold < 0 || c.MotionThreshold < 0 {
		return fmt.Errorf("thresholds must not be negative")
	}
	if c.PersistQueueSize < 0 {
		return fmt.Errorf("PERSIST_QUEUE_SIZE must not be negative")
	}
	if c.UseMockSensors {
		return nil
	}
	if c.IMUSPIDevice != "" && c.IMUCSPin == "" {
		return fmt.Errorf("IMU_CS_PIN is required when IMU_SPI_DEVICE is set")
	}
	if c.LightI2CBus != "" && c.LightMaxRange == 0 {
		return fmt.Errorf("LIGHT_MAX_RANGE is required when LIGHT_I2C_BUS is set")
	}
	return nil
}

// Duration converts one of the millisecond fields to a time.Duration.
func Duration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// InitGlobal initializes the global configuration from file. Only the
// first call reads the file.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
