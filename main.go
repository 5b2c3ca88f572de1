// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Helioflash - ESP ROM bootloader client
//
// A CLI tool for putting ESP8266 and ESP32 chips into download mode and
// reporting their identity.

package main

import (
	"os"

	"github.com/Thermoquad/helioflash/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
