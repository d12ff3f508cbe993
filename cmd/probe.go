// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/rfgate/pkg/capture"
	"github.com/Thermoquad/rfgate/pkg/config"
	"github.com/Thermoquad/rfgate/pkg/rflink"
)

// Probe exit codes
const (
	exitReading    = 0
	exitTimeout    = 1
	exitConnection = 2
)

var (
	probeTimeout int
	probeRFDebug bool
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Test a receiver by waiting for one decoded reading",
	Long: `Wait for one reading that an enabled protocol decodes, until timeout.

This command connects to a serial port or WebSocket, switches the receiver
into raw pulse mode, and waits for any pulse dump that decodes. Undecodable
traffic is ignored.

Exit codes:
  0 - Reading decoded before timeout
  1 - Timeout reached without a decoded reading
  2 - Connection error

Useful for checking receiver placement and antenna.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 60, "Timeout in seconds to wait for a reading")
	probeCmd.Flags().BoolVar(&probeRFDebug, "rfdebug", true, "Send 10;RFDEBUG=ON; after connecting")
}

func runProbe(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(settings.Input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(exitConnection)
	}
	defer conn.Close()

	if probeRFDebug {
		if err := SendCommand(conn, rfDebugCommand); err != nil {
			fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
			os.Exit(exitConnection)
		}
	}

	fmt.Printf("rfgate - Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", probeTimeout)
	fmt.Printf("Waiting for a decodable transmission...\n\n")

	code := probe(conn, settings, time.Duration(probeTimeout)*time.Second, os.Stdout, os.Stderr)
	conn.Close()
	os.Exit(code)
	return nil
}

// probe decodes src until the first reading, the end of src, or timeout and
// returns the exit code.
func probe(src io.Reader, cfg config.Config, timeout time.Duration, stdout, stderr io.Writer) int {
	readings := make(chan rflink.Reading, 1)
	found := rflink.SinkFunc(func(r *rflink.Reading) error {
		select {
		case readings <- *r:
		default:
		}
		return nil
	})

	p, err := newPipeline(cfg, nil, found)
	if err != nil {
		fmt.Fprintf(stderr, "Setup error: %v\n", err)
		return exitConnection
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := capture.New(src)
	errCh := make(chan error, 1)
	go func() { errCh <- p.run(ctx, r) }()

	select {
	case reading := <-readings:
		printProbeReading(stdout, &reading)
		return exitReading

	case err := <-errCh:
		select {
		case reading := <-readings:
			printProbeReading(stdout, &reading)
			return exitReading
		default:
		}
		if err != nil {
			fmt.Fprintf(stderr, "Read error: %v\n", err)
			return exitConnection
		}
		fmt.Fprintf(stderr, "TIMEOUT: Input ended after %d frames without a decodable reading\n", r.Stats().Frames)
		return exitTimeout

	case <-time.After(timeout):
		fmt.Fprintf(stderr, "TIMEOUT: No reading decoded within %s\n", timeout)
		return exitTimeout
	}
}

func printProbeReading(w io.Writer, r *rflink.Reading) {
	fmt.Fprintf(w, "SUCCESS: Received reading\n")
	fmt.Fprintf(w, "  Protocol: %s (%d)\n", r.Name, r.Protocol)
	if r.Device != "" {
		fmt.Fprintf(w, "  Device: %s\n", r.Device)
	}
	for _, v := range r.Values {
		fmt.Fprintf(w, "  %s: %s\n", v.Kind, rflink.DescribeValue(v))
	}
	if r.Testing {
		fmt.Fprintf(w, "  (protocol in testing state)\n")
	}
}
