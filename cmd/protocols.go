// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/rfgate/pkg/config"
	"github.com/Thermoquad/rfgate/pkg/rflink"
)

var protocolsCmd = &cobra.Command{
	Use:   "protocols",
	Short: "List and change protocol decoder states",
	Long: `List the compiled-in protocol decoders and change their states.

States are stored in the protocol state file (--protocols) and read by every
other command at startup. A running listen or monitor re-reads the file on
SIGHUP:
  enabled   decoded and published
  testing   decoded and published tagged as testing; rejections are logged
  disabled  never offered a frame`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listProtocols(cmd.OutOrStdout(), settings.Decoder.ProtocolsFile)
	},
}

var protocolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List protocol decoders and their states",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listProtocols(cmd.OutOrStdout(), settings.Decoder.ProtocolsFile)
	},
}

func init() {
	rootCmd.AddCommand(protocolsCmd)
	protocolsCmd.AddCommand(protocolsListCmd)
	protocolsCmd.AddCommand(newStateCmd("enable", "Enable a protocol decoder", rflink.StateEnabled))
	protocolsCmd.AddCommand(newStateCmd("disable", "Disable a protocol decoder", rflink.StateDisabled))
	protocolsCmd.AddCommand(newStateCmd("test", "Put a protocol decoder in the testing state", rflink.StateTesting))
}

func newStateCmd(use, short string, state rflink.State) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid protocol id %q", args[0])
			}
			return setProtocolState(cmd.OutOrStdout(), settings.Decoder.ProtocolsFile, id, state)
		},
	}
}

func listProtocols(w io.Writer, path string) error {
	reg, err := config.LoadRegistry(path, nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%5s  %-9s %s\n", "ID", "STATE", "NAME")
	for _, p := range reg.Plugins() {
		fmt.Fprintf(w, "%5d  %-9s %s\n", p.ID(), p.State(), p.Name())
	}
	return nil
}

func setProtocolState(w io.Writer, path string, id int, state rflink.State) error {
	reg, err := config.LoadRegistry(path, nil)
	if err != nil {
		return err
	}
	if err := reg.SetState(id, state); err != nil {
		return err
	}
	if err := config.SaveProtocolStates(path, reg); err != nil {
		return err
	}

	p, _ := reg.Lookup(id)
	fmt.Fprintf(w, "Protocol %d (%s): %s\n", id, p.Name(), state)
	return nil
}
