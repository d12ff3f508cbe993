// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/rfgate/pkg/capture"
)

var (
	replayQuiet   bool
	replayNoDedup bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Decode a recorded capture file",
	Long: `Decode a file of RFLink pulse dump lines offline, as recorded from a
receiver with RFDEBUG enabled, and write the readings to stdout.

Other lines in the file are skipped. Every pulse dump is decoded; none are
dropped. A statistics summary is printed to stderr unless --quiet.

Capture files carry no timestamps, so repeat suppression runs on the replay
clock: the same reading on consecutive dumps is reported once even when the
dumps were recorded minutes apart. Use --no-dedup to report every decoded
dump.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVarP(&replayQuiet, "quiet", "q", false, "Do not print the statistics summary")
	replayCmd.Flags().BoolVar(&replayNoDedup, "no-dedup", false, "Report repeated readings instead of suppressing them")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	cfg := settings
	if replayNoDedup {
		cfg.Decoder.DisableDedup = true
	}
	p, err := newPipeline(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer p.Close()

	r := capture.New(f)
	if err := p.run(cmd.Context(), r); err != nil {
		return err
	}

	if !replayQuiet {
		fmt.Fprint(cmd.ErrOrStderr(), p.summary(r))
	}
	return nil
}
