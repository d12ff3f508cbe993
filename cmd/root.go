// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/rfgate/pkg/config"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Gateway flags
	configFile    string
	protocolsFile string
	logLevel      string
	repeatWindow  time.Duration
	outputFormat  string
	natsURL       string
	natsSubject   string
	metricsAddr   string

	// settings is the configuration file merged with explicitly set flags
	settings = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "rfgate",
	Short: "RFLink 433 MHz gateway decoder",
	Long: `rfgate - Decodes 433 MHz sensor transmissions captured by an RFLink receiver.

The receiver streams raw pulse dumps; rfgate runs every enabled protocol
decoder over each one, suppresses retransmissions of the same reading, and
publishes decoded readings as RFLink lines, JSON, CBOR or NATS messages.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 57600]
  WebSocket: --url ws://host/path [--username user]

Settings may also come from a YAML file (--config); flags given on the
command line take precedence.

For WebSocket authentication, the password is read from the RFGATE_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", config.DefaultBaud, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Gateway flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&protocolsFile, "protocols", config.DefaultProtocolsFile, "Protocol state file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().DurationVar(&repeatWindow, "window", config.DefaultRepeatWindow, "Repeat suppression window")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", config.DefaultFormat, "Output format (text, json, cbor)")
	rootCmd.PersistentFlags().StringVar(&natsURL, "nats-url", "", "Also publish readings to this NATS server")
	rootCmd.PersistentFlags().StringVar(&natsSubject, "nats-subject", config.DefaultNATSSubject, "NATS subject prefix")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9110)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadSettings reads the configuration file, overlays the flags the user
// set, and installs the logger.
func loadSettings(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Input.Port = portName
	}
	if flags.Changed("baud") {
		cfg.Input.Baud = baudRate
	}
	if flags.Changed("url") {
		cfg.Input.URL = wsURL
	}
	if flags.Changed("username") {
		cfg.Input.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.Input.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("protocols") {
		cfg.Decoder.ProtocolsFile = protocolsFile
	}
	if flags.Changed("window") {
		cfg.Decoder.RepeatWindow = repeatWindow
	}
	if flags.Changed("format") {
		cfg.Output.Format = outputFormat
	}
	if flags.Changed("nats-url") {
		cfg.Output.NATSURL = natsURL
	}
	if flags.Changed("nats-subject") {
		cfg.Output.NATSSubject = natsSubject
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = metricsAddr
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	settings = cfg

	logger, err := newLogger(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// newLogger returns a text logger at the named level.
func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}
