// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/rfgate/pkg/capture"
)

var (
	listenReconnect bool
	listenRFDebug   bool
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Decode a live receiver and publish readings",
	Long: `Continuously decode pulse dumps from an RFLink receiver and publish the
readings to stdout in the selected format, and to NATS when --nats-url is set.

Protocol states are re-read from the state file on SIGHUP, so a change made
with "rfgate protocols" applies without a restart.

On connect the receiver is switched into raw pulse mode (10;RFDEBUG=ON;)
unless --rfdebug=false. Pulse dumps that arrive while the previous frame is
still being decoded are dropped, like the receiver's own capture buffer.

Supports both serial and WebSocket connections. A lost connection is
re-opened with exponential backoff unless --reconnect=false.`,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)
	listenCmd.Flags().BoolVar(&listenReconnect, "reconnect", true, "Re-open the connection when it is lost")
	listenCmd.Flags().BoolVar(&listenRFDebug, "rfdebug", true, "Send 10;RFDEBUG=ON; after connecting")
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(settings, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer p.Close()
	p.serveMetrics(ctx, settings.Metrics.Addr)
	p.watchReload(ctx, nil)

	conn, connInfo, err := OpenConnection(settings.Input)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "rfgate - Listen\n")
	fmt.Fprintf(os.Stderr, "Connection: %s\n", connInfo)
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to exit\n\n")

	for {
		if listenRFDebug {
			if err := SendCommand(conn, rfDebugCommand); err != nil {
				slog.Warn("failed to enable pulse dumps", "error", err)
			}
		}

		r := capture.New(conn, capture.WithDropWhenBusy(), capture.WithLogger(slog.Default().With("component", "capture")))
		// a blocked read only returns once the connection is closed
		done := make(chan struct{})
		go func(c Connection) {
			select {
			case <-ctx.Done():
				c.Close()
			case <-done:
			}
		}(conn)
		runErr := p.run(ctx, r)
		close(done)
		conn.Close()

		if ctx.Err() != nil {
			fmt.Fprint(os.Stderr, "\n"+p.summary(r))
			return nil
		}
		if !listenReconnect {
			fmt.Fprint(os.Stderr, p.summary(r))
			return runErr
		}

		slog.Warn("connection lost", "connection", connInfo, "error", runErr)
		conn, connInfo, err = reconnect(ctx)
		if err != nil {
			return nil
		}
		slog.Info("reconnected", "connection", connInfo)
	}
}

// reconnect re-opens the connection with exponential backoff. It returns an
// error only when ctx is done.
func reconnect(ctx context.Context) (Connection, string, error) {
	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(backoff):
		}

		conn, connInfo, err := OpenConnection(settings.Input)
		if err == nil {
			return conn, connInfo, nil
		}
		slog.Debug("reconnect failed", "error", err, "retry_in", backoff)

		// Exponential backoff
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
