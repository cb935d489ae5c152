// v1
// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"solarmon/internal/calib"
)

// Config captures all runtime settings of the daemon. Values layer from
// defaults, over the optional YAML file named by SOLARMON_CONFIG, to
// environment overrides, so the daemon can boot with minimal setup.
type Config struct {
	Serial      SerialConfig
	Sampling    SamplingConfig
	Calibration calib.Settings
	Energy      EnergyConfig
	Logging     LoggingConfig
	Server      ServerConfig
	MQTT        MQTTConfig
	Kafka       KafkaConfig
	DeviceName  string
	// ConfigPath records the file the values were loaded from, if any.
	ConfigPath string
}

type SerialConfig struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
}

type SamplingConfig struct {
	// MaxBufferPoints fixes the history ring capacity.
	MaxBufferPoints int
	// StaleAfter is the freshness window for the stale flag.
	StaleAfter time.Duration
}

type EnergyConfig struct {
	// MaxGap bounds the largest sample gap that still contributes energy.
	MaxGap time.Duration
	// Timezone names the IANA zone used for daily rollover; empty means
	// the process-local zone.
	Timezone string
}

type LoggingConfig struct {
	CSVPath string
	LogPath string
	Level   string
}

type ServerConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type MQTTConfig struct {
	Enabled  bool
	Broker   string
	Topic    string
	ClientID string
	QoS      int
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

const (
	defaultSerialPort   = "/dev/ttyACM0"
	defaultBaud         = 115200
	defaultReadTimeout  = 2 * time.Second
	defaultBufferPoints = 720
	defaultStaleAfter   = 15 * time.Second
	defaultMaxGap       = time.Hour
	defaultCSVPath      = "data/solar_log.csv"
	defaultLogPath      = "logs/solarmon.log"
	defaultLogLevel     = "info"
	defaultListenAddr   = ":8080"
	defaultHTTPRead     = 5 * time.Second
	defaultHTTPWrite    = 10 * time.Second
	defaultShutdown     = 5 * time.Second
	defaultMQTTTopic    = "solar/samples"
	defaultMQTTClientID = "solarmon"
	defaultKafkaTopic   = "solar.samples"
	defaultDeviceName   = "solar-monitor"
	defaultConfigFile   = "config.yaml"
	configPathEnv       = "SOLARMON_CONFIG"
)

// fileConfig mirrors the YAML layout. Durations are Go duration strings so
// the file stays readable ("2s", "1h30m").
type fileConfig struct {
	Serial struct {
		Port        string `yaml:"port"`
		Baudrate    int    `yaml:"baudrate"`
		ReadTimeout string `yaml:"read_timeout"`
	} `yaml:"serial"`
	Sampling struct {
		MaxBufferPoints int    `yaml:"max_buffer_points"`
		StaleAfter      string `yaml:"stale_after"`
	} `yaml:"sampling"`
	Calibration *calib.Settings `yaml:"calibration"`
	Energy      struct {
		MaxGap   string `yaml:"max_gap"`
		Timezone string `yaml:"timezone"`
	} `yaml:"energy"`
	Logging struct {
		CSVPath string `yaml:"csv_path"`
		LogPath string `yaml:"log_path"`
		Level   string `yaml:"level"`
	} `yaml:"logging"`
	Server struct {
		ListenAddr      string `yaml:"listen_addr"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	MQTT struct {
		Enabled  bool   `yaml:"enabled"`
		Broker   string `yaml:"broker"`
		Topic    string `yaml:"topic"`
		ClientID string `yaml:"client_id"`
		QoS      *int   `yaml:"qos"`
	} `yaml:"mqtt"`
	Kafka struct {
		Enabled bool     `yaml:"enabled"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
	Device struct {
		Name string `yaml:"name"`
	} `yaml:"device"`
}

// Load resolves the configuration. A missing config file is not an error;
// a present but invalid one is.
func Load() (Config, error) {
	cfg := defaults()

	path := strings.TrimSpace(os.Getenv(configPathEnv))
	explicit := path != ""
	if path == "" {
		path = defaultConfigFile
	}
	if err := applyFile(&cfg, path, explicit); err != nil {
		return Config{}, err
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Serial: SerialConfig{
			Port:        defaultSerialPort,
			Baud:        defaultBaud,
			ReadTimeout: defaultReadTimeout,
		},
		Sampling: SamplingConfig{
			MaxBufferPoints: defaultBufferPoints,
			StaleAfter:      defaultStaleAfter,
		},
		Calibration: calib.Settings{VoltageGain: 1, CurrentGain: 1},
		Energy:      EnergyConfig{MaxGap: defaultMaxGap},
		Logging: LoggingConfig{
			CSVPath: filepath.Clean(defaultCSVPath),
			LogPath: filepath.Clean(defaultLogPath),
			Level:   defaultLogLevel,
		},
		Server: ServerConfig{
			ListenAddr:      defaultListenAddr,
			ReadTimeout:     defaultHTTPRead,
			WriteTimeout:    defaultHTTPWrite,
			ShutdownTimeout: defaultShutdown,
		},
		MQTT: MQTTConfig{
			Topic:    defaultMQTTTopic,
			ClientID: defaultMQTTClientID,
		},
		Kafka:      KafkaConfig{Topic: defaultKafkaTopic},
		DeviceName: defaultDeviceName,
	}
}

func applyFile(cfg *Config, path string, explicit bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	cfg.ConfigPath = path

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if fc.Serial.Port != "" {
		cfg.Serial.Port = fc.Serial.Port
	}
	if fc.Serial.Baudrate != 0 {
		cfg.Serial.Baud = fc.Serial.Baudrate
	}
	if err := overrideDuration(&cfg.Serial.ReadTimeout, fc.Serial.ReadTimeout, "serial.read_timeout"); err != nil {
		return err
	}
	if fc.Sampling.MaxBufferPoints != 0 {
		cfg.Sampling.MaxBufferPoints = fc.Sampling.MaxBufferPoints
	}
	if err := overrideDuration(&cfg.Sampling.StaleAfter, fc.Sampling.StaleAfter, "sampling.stale_after"); err != nil {
		return err
	}
	if fc.Calibration != nil {
		cfg.Calibration = *fc.Calibration
	}
	if err := overrideDuration(&cfg.Energy.MaxGap, fc.Energy.MaxGap, "energy.max_gap"); err != nil {
		return err
	}
	if fc.Energy.Timezone != "" {
		cfg.Energy.Timezone = fc.Energy.Timezone
	}
	if fc.Logging.CSVPath != "" {
		cfg.Logging.CSVPath = filepath.Clean(fc.Logging.CSVPath)
	}
	if fc.Logging.LogPath != "" {
		cfg.Logging.LogPath = filepath.Clean(fc.Logging.LogPath)
	}
	if fc.Logging.Level != "" {
		cfg.Logging.Level = fc.Logging.Level
	}
	if fc.Server.ListenAddr != "" {
		cfg.Server.ListenAddr = fc.Server.ListenAddr
	}
	if err := overrideDuration(&cfg.Server.ReadTimeout, fc.Server.ReadTimeout, "server.read_timeout"); err != nil {
		return err
	}
	if err := overrideDuration(&cfg.Server.WriteTimeout, fc.Server.WriteTimeout, "server.write_timeout"); err != nil {
		return err
	}
	if err := overrideDuration(&cfg.Server.ShutdownTimeout, fc.Server.ShutdownTimeout, "server.shutdown_timeout"); err != nil {
		return err
	}
	cfg.MQTT.Enabled = fc.MQTT.Enabled
	if fc.MQTT.Broker != "" {
		cfg.MQTT.Broker = fc.MQTT.Broker
	}
	if fc.MQTT.Topic != "" {
		cfg.MQTT.Topic = fc.MQTT.Topic
	}
	if fc.MQTT.ClientID != "" {
		cfg.MQTT.ClientID = fc.MQTT.ClientID
	}
	if fc.MQTT.QoS != nil {
		cfg.MQTT.QoS = *fc.MQTT.QoS
	}
	cfg.Kafka.Enabled = fc.Kafka.Enabled
	if len(fc.Kafka.Brokers) != 0 {
		cfg.Kafka.Brokers = fc.Kafka.Brokers
	}
	if fc.Kafka.Topic != "" {
		cfg.Kafka.Topic = fc.Kafka.Topic
	}
	if fc.Device.Name != "" {
		cfg.DeviceName = fc.Device.Name
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := lookupEnvTrimmed("SOLARMON_SERIAL_PORT"); ok {
		if v == "" {
			return errors.New("SOLARMON_SERIAL_PORT cannot be empty")
		}
		cfg.Serial.Port = v
	}
	if v, ok := lookupEnvTrimmed("SOLARMON_LISTEN_ADDR"); ok {
		if v == "" {
			return errors.New("SOLARMON_LISTEN_ADDR cannot be empty")
		}
		cfg.Server.ListenAddr = v
	}
	if v, ok := lookupEnvTrimmed("SOLARMON_CSV_PATH"); ok {
		if v == "" {
			return errors.New("SOLARMON_CSV_PATH cannot be empty")
		}
		cfg.Logging.CSVPath = filepath.Clean(v)
	}
	if v, ok := lookupEnvTrimmed("SOLARMON_LOG_PATH"); ok {
		if v == "" {
			return errors.New("SOLARMON_LOG_PATH cannot be empty")
		}
		cfg.Logging.LogPath = filepath.Clean(v)
	}
	if v, ok := lookupEnvTrimmed("SOLARMON_MQTT_BROKER"); ok {
		if v == "" {
			return errors.New("SOLARMON_MQTT_BROKER cannot be empty")
		}
		cfg.MQTT.Broker = v
		cfg.MQTT.Enabled = true
	}
	if v, ok := lookupEnvTrimmed("SOLARMON_KAFKA_BROKERS"); ok {
		brokers := splitAndTrim(v)
		if len(brokers) == 0 {
			return errors.New("SOLARMON_KAFKA_BROKERS cannot be empty")
		}
		cfg.Kafka.Brokers = brokers
		cfg.Kafka.Enabled = true
	}
	if v, ok := lookupEnvTrimmed("SOLARMON_DEVICE_NAME"); ok {
		if v == "" {
			return errors.New("SOLARMON_DEVICE_NAME cannot be empty")
		}
		cfg.DeviceName = v
	}
	return nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Serial.Port) == "" {
		return errors.New("serial.port cannot be empty")
	}
	if c.Serial.Baud <= 0 {
		return errors.New("serial.baudrate must be positive")
	}
	if c.Serial.ReadTimeout <= 0 {
		return errors.New("serial.read_timeout must be positive")
	}
	if c.Sampling.MaxBufferPoints <= 0 {
		return errors.New("sampling.max_buffer_points must be positive")
	}
	if c.Sampling.StaleAfter <= 0 {
		return errors.New("sampling.stale_after must be positive")
	}
	if err := c.Calibration.Validate(); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	if c.Energy.MaxGap <= 0 {
		return errors.New("energy.max_gap must be positive")
	}
	if c.Energy.Timezone != "" {
		if _, err := time.LoadLocation(c.Energy.Timezone); err != nil {
			return fmt.Errorf("energy.timezone: %w", err)
		}
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	if strings.TrimSpace(c.Server.ListenAddr) == "" {
		return errors.New("server.listen_addr cannot be empty")
	}
	if c.MQTT.Enabled && strings.TrimSpace(c.MQTT.Broker) == "" {
		return errors.New("mqtt.broker cannot be empty when mqtt is enabled")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return errors.New("mqtt.qos must be 0, 1, or 2")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// Location resolves the rollover timezone, defaulting to the process-local
// zone like the original deployment.
func (c Config) Location() (*time.Location, error) {
	if c.Energy.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Energy.Timezone)
}

// LogLevel resolves the configured slog level. Load has already validated
// the string, so the error path only matters for hand-built configs.
func (c Config) LogLevel() (slog.Level, error) {
	return parseLevel(c.Logging.Level)
}

func parseLevel(v string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", v)
	}
}

func overrideDuration(dst *time.Duration, raw, key string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", key)
	}
	*dst = d
	return nil
}

func lookupEnvTrimmed(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func splitAndTrim(raw string) []string {
	fields := strings.Split(raw, ",")
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		trimmed := strings.TrimSpace(field)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
