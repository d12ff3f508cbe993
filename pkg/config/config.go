// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the gateway configuration file and the persisted
// protocol state table.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Defaults
const (
	DefaultBaud          = 57600
	DefaultRepeatWindow  = 500 * time.Millisecond
	DefaultProtocolsFile = "protocols.json"
	DefaultFormat        = "text"
	DefaultNATSSubject   = "rflink"
	DefaultLogLevel      = "info"
)

// Config is the gateway configuration.
type Config struct {
	Input    InputConfig   `yaml:"input"`
	Decoder  DecoderConfig `yaml:"decoder"`
	Output   OutputConfig  `yaml:"output"`
	Metrics  MetricsConfig `yaml:"metrics"`
	LogLevel string        `yaml:"log_level"`
}

// InputConfig selects the capture source: a serial port or a websocket.
type InputConfig struct {
	Port        string `yaml:"port"`
	Baud        int    `yaml:"baud"`
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
}

// DecoderConfig tunes the dispatch loop. DisableDedup publishes every
// accepted frame, repeats included.
type DecoderConfig struct {
	RepeatWindow  time.Duration `yaml:"repeat_window"`
	DisableDedup  bool          `yaml:"disable_dedup"`
	ProtocolsFile string        `yaml:"protocols_file"`
}

// OutputConfig selects where readings go.
type OutputConfig struct {
	Format      string `yaml:"format"`
	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Input: InputConfig{
			Baud: DefaultBaud,
		},
		Decoder: DecoderConfig{
			RepeatWindow:  DefaultRepeatWindow,
			ProtocolsFile: DefaultProtocolsFile,
		},
		Output: OutputConfig{
			Format:      DefaultFormat,
			NATSSubject: DefaultNATSSubject,
		},
		LogLevel: DefaultLogLevel,
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Input.Port != "" && c.Input.URL != "" {
		return fmt.Errorf("%w: input.port and input.url are mutually exclusive", ErrInvalidConfig)
	}
	if c.Input.Baud <= 0 {
		return fmt.Errorf("%w: input.baud must be positive, got %d", ErrInvalidConfig, c.Input.Baud)
	}
	if c.Input.URL != "" && !strings.HasPrefix(c.Input.URL, "ws://") && !strings.HasPrefix(c.Input.URL, "wss://") {
		return fmt.Errorf("%w: input.url must be ws:// or wss://", ErrInvalidConfig)
	}
	if c.Decoder.RepeatWindow <= 0 {
		return fmt.Errorf("%w: decoder.repeat_window must be positive", ErrInvalidConfig)
	}
	if c.Decoder.ProtocolsFile == "" {
		return fmt.Errorf("%w: decoder.protocols_file is required", ErrInvalidConfig)
	}

	switch c.Output.Format {
	case "text", "json", "cbor":
	default:
		return fmt.Errorf("%w: output.format must be one of: text, json, cbor", ErrInvalidConfig)
	}
	if c.Output.NATSURL != "" && c.Output.NATSSubject == "" {
		return fmt.Errorf("%w: output.nats_subject is required with output.nats_url", ErrInvalidConfig)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level must be one of: debug, info, warn, error", ErrInvalidConfig)
	}
	return nil
}
