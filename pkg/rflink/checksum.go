// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rflink

// NibbleSum returns the sum of nibbles truncated to 4 bits.
func NibbleSum(nibbles []uint8) uint8 {
	var sum uint8
	for _, n := range nibbles {
		sum += n & 0xF
	}
	return sum & 0xF
}
