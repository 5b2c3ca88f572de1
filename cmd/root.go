// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/helioflash/pkg/connection"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL string

	// Port selection flags
	portFilters []string

	// Diagnostic flags
	debugSerial  bool
	debugLogging bool
)

var rootCmd = &cobra.Command{
	Use:   "helioflash",
	Short: "ESP chip identification tool",
	Long: `Helioflash - A CLI tool for connecting to ESP8266 and ESP32 ROM bootloaders.

Puts the chip into download mode, detects its family and reports the chip
description, crystal frequency, silicon revision and factory MAC address.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 921600]
  WebSocket: --url ws://host/path (serial bridge, no reset lines)
  Picker:    no flags on an interactive terminal opens a port picker,
             optionally narrowed with --filter VID[:PID]

Debug tracing of the serial link (--debug-serial) and the loader
(--debug-logging) is written to stderr.`,
	Version:      "0.3.0",
	SilenceUsage: true,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate after connecting (ESP32 only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket serial bridge URL (ws:// or wss://)")

	// Port selection flags
	rootCmd.PersistentFlags().StringSliceVar(&portFilters, "filter", nil, "USB VID[:PID] filter in hex, repeatable")

	// Diagnostic flags
	rootCmd.PersistentFlags().BoolVar(&debugSerial, "debug-serial", false, "Trace raw serial traffic")
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug-logging", false, "Trace loader commands")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// parseFilters converts the --filter flag values. No flag means nil filters.
func parseFilters(values []string) ([]connection.PortFilter, error) {
	if len(values) == 0 {
		return nil, nil
	}

	filters := make([]connection.PortFilter, 0, len(values))
	for _, v := range values {
		f, err := connection.ParsePortFilter(v)
		if err != nil {
			return nil, fmt.Errorf("invalid --filter %q: %w", v, err)
		}
		filters = append(filters, f)
	}
	return filters, nil
}
