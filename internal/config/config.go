// Package config loads the broker's YAML configuration file. A missing
// file is created with defaults for the operator to edit.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Network is the network identity block. Link setup happens outside the
// broker: these values are surfaced verbatim on the status snapshot
// (wifi_ssid/wifi_ip) but the broker never dials anything with them.
type Network struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
	StaticIP string `yaml:"static_ip"`
}

// Options holds every broker-tunable value.
type Options struct {
	MQTTAddress       string  `yaml:"mqtt_address"`
	WebSocketAddress  string  `yaml:"websocket_address"` // empty disables the listener
	HTTPAddress       string  `yaml:"http_address"`
	MessageLogSize    int     `yaml:"message_log_size"`
	QoSTimeoutMs      int64   `yaml:"qos_timeout_ms"`
	MaxQoSRetries     int     `yaml:"max_qos_retries"`
	KeepAliveFactor   float64 `yaml:"keep_alive_factor"`
	DebugMode         bool    `yaml:"debug_mode"`
	Network           Network `yaml:"network"`
}

// Config is the top-level document shape: broker options sit under a
// "server: options:" root.
type Config struct {
	Server struct {
		Options Options `yaml:"options"`
	} `yaml:"server"`
}

// Default returns the broker's built-in configuration, used both as the
// fallback when no config file is present and as the skeleton written out
// for the operator to edit.
func Default() Options {
	return Options{
		MQTTAddress:      ":1883",
		WebSocketAddress: "",
		HTTPAddress:      ":8080",
		MessageLogSize:   50,
		QoSTimeoutMs:     5000,
		MaxQoSRetries:    3,
		KeepAliveFactor:  1.5,
		DebugMode:        false,
	}
}

// Load reads and parses the config file at path. If the file does not
// exist, it is created with the default configuration and an error is
// returned asking the operator to review it.
func Load(path string) (Options, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			def := Config{}
			def.Server.Options = Default()
			data, marshalErr := yaml.Marshal(def)
			if marshalErr == nil {
				_ = os.WriteFile(path, data, 0o644)
			}
			return def.Server.Options, fmt.Errorf("config: %s did not exist and was created with defaults; review it and restart", path)
		}
		return Options{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Config{}
	cfg.Server.Options = Default()
	if err := yaml.Unmarshal(bytes, &cfg); err != nil {
		return Options{}, fmt.Errorf("config: %s is not valid yaml: %w", path, err)
	}

	return cfg.Server.Options, nil
}
