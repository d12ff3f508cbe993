// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// rfgate - RFLink 433 MHz Gateway Decoder
//
// Decodes raw pulse dumps from an RFLink receiver into sensor readings.

package main

import (
	"os"

	"github.com/Thermoquad/rfgate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
