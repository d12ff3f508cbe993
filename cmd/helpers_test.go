// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Thermoquad/rfgate/pkg/config"
)

const (
	// LaCrosse WS2300 sensor 0606, temperature 16.8°C
	captureTemp168 = "20;D5;DEBUG;Pulses=104;Pulses(uSec)=1400,1275,1350,1275,1350,1275,1325,1150,225,1275,1350,1275,1325,1275,225,1300,1325,1275,225,1300,1325,1275,1325,1275,1350,1275,225,1300,225,1275,1350,1275,1350,1300,225,1300,225,1275,1350,1275,1325,1275,250,1275,1350,1275,250,1275,225,1275,225,1275,225,1275,1325,1275,1350,1275,250,1275,1325,1275,1350,1275,1350,1275,225,1275,225,1275,1350,1275,225,1300,1325,1275,1325,1275,1350,1275,250,1275,1325,1275,250,1275,250,1275,225,1275,1350,1275,1350,1275,225,1275,1350,1275,1350,1275,225,1275,1325;"
	// LaCrosse WS2300 sensor 0606, humidity 88%
	captureHumidity88 = "20;D3;DEBUG;Pulses=104;Pulses(uSec)=1400,1300,1325,1300,1325,1275,1350,1150,225,1300,1325,1275,1325,1275,225,1300,1325,1275,225,1275,1350,1275,225,1300,1325,1275,225,1300,225,1275,1350,1275,1350,1275,250,1275,225,1275,1350,1275,1350,1300,225,1300,1350,1275,225,1275,225,1275,225,1275,225,1275,1325,1275,225,1300,1325,1275,1325,1275,1325,1275,250,1275,1350,1275,1325,1300,1325,1275,250,1275,1350,1275,1325,1275,250,1275,1325,1275,250,1275,225,1275,225,1275,1350,1275,225,1275,250,1275,225,1275,1325,1275,250,1275,1350,1300,1325;"
	// an undecodable dump
	captureNoise = "20;D6;DEBUG;Pulses=20;Pulses(uSec)=500,500,500,500,500,500,500,500,500,500,500,500,500,500,500,500,500,500,500,500;"

	bannerLine = "20;00;Nodo RadioFrequencyLink - RFLink Gateway V1.1 - R46;"
)

// testSettings returns default settings with the protocol state file in a
// temporary directory, and installs them for the commands.
func testSettings(t *testing.T) config.Config {
	t.Helper()

	prevSettings := settings
	prevLogger := slog.Default()
	t.Cleanup(func() {
		settings = prevSettings
		slog.SetDefault(prevLogger)
	})
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	cfg := config.Default()
	cfg.Decoder.ProtocolsFile = filepath.Join(t.TempDir(), "protocols.json")
	settings = cfg
	return cfg
}

// writeCapture writes lines to a capture file and returns its path.
func writeCapture(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "capture.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("failed to write capture: %v", err)
	}
	return path
}
