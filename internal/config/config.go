// Package config loads device settings from a YAML file with BOXTRACE_*
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/boxtrace/internal/logging"
)

// Queue backends.
const (
	QueueFile   = "file"
	QueueRedis  = "redis"
	QueueMemory = "memory"
)

// Connectivity modes.
const (
	ModeHTTP = "http"
	ModeMQTT = "mqtt"
	ModeNone = "none"
)

// Config is the full device configuration.
type Config struct {
	EmployeeID   string             `yaml:"employee_id"`
	FarmerID     string             `yaml:"farmer_id"`
	Backend      BackendConfig      `yaml:"backend"`
	Queue        QueueConfig        `yaml:"queue"`
	Location     LocationConfig     `yaml:"location"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Log          LogConfig          `yaml:"log"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// BackendConfig locates the traceability backend and tunes its breaker.
type BackendConfig struct {
	BaseURL          string        `yaml:"base_url"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold int           `yaml:"failure_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
}

// QueueConfig selects where the offline queue is persisted.
type QueueConfig struct {
	Backend     string        `yaml:"backend"`
	Path        string        `yaml:"path"`
	RedisURL    string        `yaml:"redis_url"`
	RedisPrefix string        `yaml:"redis_prefix"`
	Key         string        `yaml:"key"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// LocationConfig bounds position lookups and optionally fixes the position.
type LocationConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	Latitude  *float64      `yaml:"latitude"`
	Longitude *float64      `yaml:"longitude"`
}

// ConnectivityConfig selects how backend reachability is observed.
type ConnectivityConfig struct {
	Mode          string        `yaml:"mode"`
	ProbeURL      string        `yaml:"probe_url"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
	MQTTBroker    string        `yaml:"mqtt_broker"`
	MQTTTopic     string        `yaml:"mqtt_topic"`
	MQTTClientID  string        `yaml:"mqtt_client_id"`
}

// LogConfig sets the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig is the listen address of the agent status server.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Timeout:          15 * time.Second,
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
		},
		Queue: QueueConfig{
			Backend:     QueueFile,
			Path:        defaultQueueDir(),
			RedisPrefix: "boxtrace:",
			Key:         "@transactions",
			SettleDelay: 5 * time.Second,
		},
		Location: LocationConfig{Timeout: 15 * time.Second},
		Connectivity: ConnectivityConfig{
			Mode:          ModeHTTP,
			ProbeInterval: 10 * time.Second,
			MQTTClientID:  "boxtrace",
		},
		Log:     LogConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Addr: ":9464"},
	}
}

func defaultQueueDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "boxtrace", "queue")
	}
	return filepath.Join(".boxtrace", "queue")
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := decode(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	c.EmployeeID = getEnv("BOXTRACE_EMPLOYEE_ID", c.EmployeeID)
	c.FarmerID = getEnv("BOXTRACE_FARMER_ID", c.FarmerID)

	c.Backend.BaseURL = getEnv("BOXTRACE_BACKEND_URL", c.Backend.BaseURL)
	c.Backend.Timeout = getEnvDuration("BOXTRACE_BACKEND_TIMEOUT", c.Backend.Timeout)
	c.Backend.FailureThreshold = getEnvInt("BOXTRACE_BREAKER_FAILURES", c.Backend.FailureThreshold)
	c.Backend.OpenTimeout = getEnvDuration("BOXTRACE_BREAKER_OPEN_TIMEOUT", c.Backend.OpenTimeout)

	c.Queue.Backend = getEnv("BOXTRACE_QUEUE_BACKEND", c.Queue.Backend)
	c.Queue.Path = getEnv("BOXTRACE_QUEUE_PATH", c.Queue.Path)
	c.Queue.RedisURL = getEnv("BOXTRACE_REDIS_URL", c.Queue.RedisURL)
	c.Queue.RedisPrefix = getEnv("BOXTRACE_REDIS_PREFIX", c.Queue.RedisPrefix)
	c.Queue.Key = getEnv("BOXTRACE_QUEUE_KEY", c.Queue.Key)
	c.Queue.SettleDelay = getEnvDuration("BOXTRACE_SETTLE_DELAY", c.Queue.SettleDelay)

	c.Location.Timeout = getEnvDuration("BOXTRACE_LOCATION_TIMEOUT", c.Location.Timeout)
	c.Location.Latitude = getEnvFloat("BOXTRACE_LATITUDE", c.Location.Latitude)
	c.Location.Longitude = getEnvFloat("BOXTRACE_LONGITUDE", c.Location.Longitude)

	c.Connectivity.Mode = getEnv("BOXTRACE_CONNECTIVITY_MODE", c.Connectivity.Mode)
	c.Connectivity.ProbeURL = getEnv("BOXTRACE_PROBE_URL", c.Connectivity.ProbeURL)
	c.Connectivity.ProbeInterval = getEnvDuration("BOXTRACE_PROBE_INTERVAL", c.Connectivity.ProbeInterval)
	c.Connectivity.MQTTBroker = getEnv("BOXTRACE_MQTT_BROKER", c.Connectivity.MQTTBroker)
	c.Connectivity.MQTTTopic = getEnv("BOXTRACE_MQTT_TOPIC", c.Connectivity.MQTTTopic)
	c.Connectivity.MQTTClientID = getEnv("BOXTRACE_MQTT_CLIENT_ID", c.Connectivity.MQTTClientID)

	c.Log.Level = getEnv("BOXTRACE_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("BOXTRACE_LOG_FORMAT", c.Log.Format)
	c.Metrics.Addr = getEnv("BOXTRACE_METRICS_ADDR", c.Metrics.Addr)
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("config: "+format, args...))
	}

	if c.EmployeeID == "" {
		bad("employee_id is required")
	} else if _, err := uuid.Parse(c.EmployeeID); err != nil {
		bad("employee_id %q is not a UUID", c.EmployeeID)
	}

	if c.Backend.BaseURL == "" {
		bad("backend.base_url is required")
	} else if !isHTTPURL(c.Backend.BaseURL) {
		bad("backend.base_url %q must be an http or https URL", c.Backend.BaseURL)
	}
	if c.Backend.Timeout <= 0 {
		bad("backend.timeout must be positive")
	}

	switch c.Queue.Backend {
	case QueueFile:
		if c.Queue.Path == "" {
			bad("queue.path is required for the file backend")
		}
	case QueueRedis:
		if c.Queue.RedisURL == "" {
			bad("queue.redis_url is required for the redis backend")
		}
	case QueueMemory:
	default:
		bad("queue.backend %q must be file, redis or memory", c.Queue.Backend)
	}
	if c.Queue.Key == "" {
		bad("queue.key is required")
	}
	if c.Queue.SettleDelay < 0 {
		bad("queue.settle_delay must not be negative")
	}

	if c.Location.Timeout <= 0 {
		bad("location.timeout must be positive")
	}
	if (c.Location.Latitude == nil) != (c.Location.Longitude == nil) {
		bad("location.latitude and location.longitude must be set together")
	}
	if lat := c.Location.Latitude; lat != nil && (*lat < -90 || *lat > 90) {
		bad("location.latitude %v out of range", *lat)
	}
	if lon := c.Location.Longitude; lon != nil && (*lon < -180 || *lon > 180) {
		bad("location.longitude %v out of range", *lon)
	}

	switch c.Connectivity.Mode {
	case ModeHTTP:
		if c.Connectivity.ProbeURL != "" && !isHTTPURL(c.Connectivity.ProbeURL) {
			bad("connectivity.probe_url %q must be an http or https URL", c.Connectivity.ProbeURL)
		}
	case ModeMQTT:
		if c.Connectivity.MQTTBroker == "" {
			bad("connectivity.mqtt_broker is required for mqtt mode")
		}
	case ModeNone:
	default:
		bad("connectivity.mode %q must be http, mqtt or none", c.Connectivity.Mode)
	}

	if _, err := logging.New(c.Log.Level, c.Log.Format, io.Discard); err != nil {
		bad("log: %v", err)
	}
	return errors.Join(errs...)
}

// ProbeURL returns the connectivity probe target, defaulting to the backend
// base URL.
func (c *Config) ProbeURL() string {
	if c.Connectivity.ProbeURL != "" {
		return c.Connectivity.ProbeURL
	}
	return c.Backend.BaseURL
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback *float64) *float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return &f
		}
	}
	return fallback
}
