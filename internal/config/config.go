// Package config defines bridge configuration and its loading from
// defaults, an optional YAML file, a dotenv file and OURA_ environment variables.
package config

import (
	"time"

	"github.com/okian/ourabridge/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// APIHost is the Oura usercollection base URL.
	APIHost string `koanf:"api_host"`

	// Token is the Oura personal access token.
	Token string `koanf:"token"`

	// PollInterval is the time between scheduled cycles.
	PollInterval time.Duration `koanf:"poll_interval"`

	// CycleTimeout bounds one whole cycle.
	CycleTimeout time.Duration `koanf:"cycle_timeout"`

	// RequestTimeout and RequestRetries apply to each upstream request.
	RequestTimeout time.Duration `koanf:"request_timeout"`
	RequestRetries int           `koanf:"request_retries"`

	// FetchConcurrency bounds parallel resource fetches per cycle.
	FetchConcurrency int `koanf:"fetch_concurrency"`

	// PartialCycles keeps a cycle going when a resource fails.
	PartialCycles bool `koanf:"partial_cycles"`

	// RingFetch reads ring_configuration from the API instead of the ring_* keys.
	RingFetch bool `koanf:"ring_fetch"`

	RingID              string `koanf:"ring_id"`
	RingColor           string `koanf:"ring_color"`
	RingDesign          string `koanf:"ring_design"`
	RingFirmwareVersion string `koanf:"ring_firmware_version"`
	RingHardwareType    string `koanf:"ring_hardware_type"`
	RingSetUpAt         string `koanf:"ring_set_up_at"`
	RingSize            int    `koanf:"ring_size"`

	// DeviceName is the device name shown in Home Assistant.
	DeviceName string `koanf:"device_name"`

	// MQTT publishing is enabled when MQTTBroker is set.
	MQTTBroker          string `koanf:"mqtt_broker"`
	MQTTClientID        string `koanf:"mqtt_client_id"`
	MQTTUsername        string `koanf:"mqtt_username"`
	MQTTPassword        string `koanf:"mqtt_password"`
	MQTTTopicPrefix     string `koanf:"mqtt_topic_prefix"`
	MQTTDiscoveryPrefix string `koanf:"mqtt_discovery_prefix"`
	MQTTRetain          bool   `koanf:"mqtt_retain"`

	// Redis snapshot storage is enabled when RedisAddr is set.
	RedisAddr      string        `koanf:"redis_addr"`
	RedisPassword  string        `koanf:"redis_password"`
	RedisDB        int           `koanf:"redis_db"`
	RedisKeyPrefix string        `koanf:"redis_key_prefix"`
	RedisTTL       time.Duration `koanf:"redis_ttl"`
}

// New creates a Config holding the defaults.
func New() *Config {
	ring := model.PlaceholderRing()
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		APIHost:             "https://api.ouraring.com/v2/usercollection",
		PollInterval:        30 * time.Minute,
		CycleTimeout:        10 * time.Second,
		RequestTimeout:      10 * time.Second,
		FetchConcurrency:    4,
		RingID:              ring.ID,
		RingColor:           ring.Color,
		RingDesign:          ring.Design,
		RingFirmwareVersion: ring.FirmwareVersion,
		RingHardwareType:    ring.HardwareType,
		RingSetUpAt:         ring.SetUpAt,
		RingSize:            ring.Size,
		DeviceName:          "Oura",
		MQTTClientID:        "ourabridge",
		MQTTTopicPrefix:     "oura",
		MQTTDiscoveryPrefix: "homeassistant",
		MQTTRetain:          true,
		RedisKeyPrefix:      "oura",
	}
}

// Ring returns the configured ring descriptor.
func (c *Config) Ring() model.RingConfiguration {
	return model.RingConfiguration{
		ID:              c.RingID,
		Color:           c.RingColor,
		Design:          c.RingDesign,
		FirmwareVersion: c.RingFirmwareVersion,
		HardwareType:    c.RingHardwareType,
		SetUpAt:         c.RingSetUpAt,
		Size:            c.RingSize,
	}
}

// MQTTEnabled reports whether a broker is configured.
func (c *Config) MQTTEnabled() bool { return c.MQTTBroker != "" }

// RedisEnabled reports whether a Redis server is configured.
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

// MaskedToken returns the token with all but its last four characters hidden.
func (c *Config) MaskedToken() string {
	const visible = 4
	if len(c.Token) <= visible {
		return "****"
	}
	return "****" + c.Token[len(c.Token)-visible:]
}
